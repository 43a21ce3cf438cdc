package dto

// CreateLeadRequest represents the request payload for creating a lead
type CreateLeadRequest struct {
	Name     string  `json:"name" validate:"required,min=1,max=255" example:"Jane Smith"`
	Email    *string `json:"email,omitempty" validate:"omitempty,email,max=255" example:"jane@prospect.example.com"`
	Phone    *string `json:"phone,omitempty" validate:"omitempty,max=50" example:"+14155550123"`
	Mobile   *string `json:"mobile,omitempty" validate:"omitempty,max=50" example:"+14155550124"`
	Company  *string `json:"company,omitempty" validate:"omitempty,max=255" example:"Prospect Inc"`
	Position *string `json:"position,omitempty" validate:"omitempty,max=255" example:"CTO"`
	Address  *string `json:"address,omitempty" validate:"omitempty,max=500"`
	Website  *string `json:"website,omitempty" validate:"omitempty,url,max=255" example:"https://prospect.example.com"`
	Source   *string `json:"source,omitempty" validate:"omitempty,oneof=manual import web_form api" example:"manual"`
	Notes    *string `json:"notes,omitempty" validate:"omitempty,max=5000"`
}

// UpdateLeadRequest represents the request payload for updating lead details.
// Status and ownership are changed only through claim, lose, and convert.
type UpdateLeadRequest struct {
	Name     *string `json:"name,omitempty" validate:"omitempty,min=1,max=255"`
	Email    *string `json:"email,omitempty" validate:"omitempty,email,max=255"`
	Phone    *string `json:"phone,omitempty" validate:"omitempty,max=50"`
	Mobile   *string `json:"mobile,omitempty" validate:"omitempty,max=50"`
	Company  *string `json:"company,omitempty" validate:"omitempty,max=255"`
	Position *string `json:"position,omitempty" validate:"omitempty,max=255"`
	Address  *string `json:"address,omitempty" validate:"omitempty,max=500"`
	Website  *string `json:"website,omitempty" validate:"omitempty,url,max=255"`
	Notes    *string `json:"notes,omitempty" validate:"omitempty,max=5000"`
}

// LoseLeadRequest represents the request payload for marking a lead lost
type LoseLeadRequest struct {
	Reason string `json:"reason" validate:"required,min=1,max=1000" example:"Went with a competitor"`
}

// ConvertLeadRequest represents the request payload for converting a lead
// into a contact and an optional company
type ConvertLeadRequest struct {
	CreateCompany bool    `json:"create_company" example:"true"`
	CompanyName   *string `json:"company_name,omitempty" validate:"omitempty,min=1,max=255" example:"Prospect Inc"`
}

// ListLeadsRequest represents the query parameters for listing leads
type ListLeadsRequest struct {
	PaginationRequest
	Status     string `json:"status" query:"status" validate:"omitempty,oneof=new in_progress converted lost" example:"new"`
	Unassigned bool   `json:"unassigned" query:"unassigned" example:"true"`
	Mine       bool   `json:"mine" query:"mine" example:"false"`
	Search     string `json:"search" query:"search" validate:"omitempty,max=255" example:"acme"`
}

// LeadDTO represents lead information returned in API responses
type LeadDTO struct {
	ID          uint    `json:"id" example:"42"`
	UUID        string  `json:"uuid" example:"550e8400-e29b-41d4-a716-446655440000"`
	Name        string  `json:"name" example:"Jane Smith"`
	Email       *string `json:"email,omitempty"`
	Phone       *string `json:"phone,omitempty"`
	Mobile      *string `json:"mobile,omitempty"`
	Company     *string `json:"company,omitempty"`
	Position    *string `json:"position,omitempty"`
	Address     *string `json:"address,omitempty"`
	Website     *string `json:"website,omitempty"`
	Source      *string `json:"source,omitempty" example:"manual"`
	Notes       *string `json:"notes,omitempty"`
	Status      string  `json:"status" example:"new"`
	OwnerID     *uint   `json:"owner_id,omitempty" example:"123"`
	OwnerName   *string `json:"owner_name,omitempty" example:"John Doe"`
	LossReason  *string `json:"loss_reason,omitempty"`
	CapturedAt  *string `json:"captured_at,omitempty" example:"2025-01-16T09:00:00Z"`
	ConvertedAt *string `json:"converted_at,omitempty"`
	CreatedAt   string  `json:"created_at" example:"2025-01-15T10:30:00Z"`
	UpdatedAt   string  `json:"updated_at" example:"2025-01-16T09:00:00Z"`
}

// LeadLogDTO represents a single lead history entry
type LeadLogDTO struct {
	ID        uint   `json:"id" example:"311"`
	Action    string `json:"action" example:"claimed"`
	UserID    *uint  `json:"user_id,omitempty" example:"123"`
	Details   any    `json:"details,omitempty"`
	CreatedAt string `json:"created_at" example:"2025-01-16T09:00:00Z"`
}

// LeadDetailData represents a lead together with its full history
type LeadDetailData struct {
	Lead LeadDTO      `json:"lead"`
	Logs []LeadLogDTO `json:"logs"`
}

// ListLeadsData represents a page of leads
type ListLeadsData struct {
	Leads      []LeadDTO  `json:"leads"`
	Pagination Pagination `json:"pagination"`
}

// ConvertLeadData represents the outcome of a lead conversion
type ConvertLeadData struct {
	Lead    LeadDTO     `json:"lead"`
	Contact ContactDTO  `json:"contact"`
	Company *CompanyDTO `json:"company,omitempty"`
}

// ImportLeadsData represents the outcome of a bulk lead import
type ImportLeadsData struct {
	Imported int      `json:"imported" example:"240"`
	Skipped  int      `json:"skipped" example:"3"`
	Errors   []string `json:"errors,omitempty"`
}

// Common error codes for lead operations
const (
	ErrorLeadNotFound = "LEAD_NOT_FOUND"
	ErrorLeadConflict = "LEAD_CONFLICT"
	ErrorLeadNotOwned = "LEAD_NOT_OWNED"
	ErrorLeadTerminal = "LEAD_TERMINAL"

	ErrorLeadImportFailed = "LEAD_IMPORT_FAILED"
	ErrorImportFailed     = "IMPORT_FAILED"
)
