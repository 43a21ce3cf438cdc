package dto

// CreateTaskRequest represents the request payload for creating a task
type CreateTaskRequest struct {
	Title       string  `json:"title" validate:"required,min=1,max=255" example:"Call Jane about renewal"`
	Description *string `json:"description,omitempty" validate:"omitempty,max=5000"`
	Priority    string  `json:"priority,omitempty" validate:"omitempty,oneof=low normal high" example:"high"`
	AssigneeID  *uint   `json:"assignee_id,omitempty" example:"123"`
	LeadID      *uint   `json:"lead_id,omitempty" example:"42"`
	ContactID   *uint   `json:"contact_id,omitempty" example:"17"`
	DealID      *uint   `json:"deal_id,omitempty" example:"5"`
	DueAt       *string `json:"due_at,omitempty" validate:"omitempty" example:"2025-01-20T12:00:00Z"`
}

// UpdateTaskRequest represents the request payload for updating a task
type UpdateTaskRequest struct {
	Title       *string `json:"title,omitempty" validate:"omitempty,min=1,max=255"`
	Description *string `json:"description,omitempty" validate:"omitempty,max=5000"`
	Priority    *string `json:"priority,omitempty" validate:"omitempty,oneof=low normal high"`
	AssigneeID  *uint   `json:"assignee_id,omitempty"`
	DueAt       *string `json:"due_at,omitempty"`
}

// ListTasksRequest represents the query parameters for listing tasks
type ListTasksRequest struct {
	PaginationRequest
	Status  string `json:"status" query:"status" validate:"omitempty,oneof=pending done cancelled" example:"pending"`
	Mine    bool   `json:"mine" query:"mine" example:"true"`
	LeadID  uint   `json:"lead_id" query:"lead_id" example:"42"`
	DealID  uint   `json:"deal_id" query:"deal_id" example:"5"`
	Overdue bool   `json:"overdue" query:"overdue" example:"false"`
}

// TaskDTO represents task information returned in API responses
type TaskDTO struct {
	ID          uint    `json:"id" example:"8"`
	UUID        string  `json:"uuid" example:"550e8400-e29b-41d4-a716-446655440000"`
	Title       string  `json:"title" example:"Call Jane about renewal"`
	Description *string `json:"description,omitempty"`
	Status      string  `json:"status" example:"pending"`
	Priority    string  `json:"priority" example:"high"`
	AssigneeID  uint    `json:"assignee_id" example:"123"`
	LeadID      *uint   `json:"lead_id,omitempty" example:"42"`
	ContactID   *uint   `json:"contact_id,omitempty"`
	DealID      *uint   `json:"deal_id,omitempty"`
	DueAt       *string `json:"due_at,omitempty" example:"2025-01-20T12:00:00Z"`
	CompletedAt *string `json:"completed_at,omitempty"`
	CreatedAt   string  `json:"created_at" example:"2025-01-15T10:30:00Z"`
	UpdatedAt   string  `json:"updated_at" example:"2025-01-16T09:00:00Z"`
}

// ListTasksData represents a page of tasks
type ListTasksData struct {
	Tasks      []TaskDTO  `json:"tasks"`
	Pagination Pagination `json:"pagination"`
}

// Common error codes for task operations
const (
	ErrorTaskNotFound = "TASK_NOT_FOUND"
	ErrorTaskConflict = "TASK_CONFLICT"
)
