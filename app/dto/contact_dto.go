package dto

// CreateContactRequest represents the request payload for creating a contact
type CreateContactRequest struct {
	Name      string  `json:"name" validate:"required,min=1,max=255" example:"Jane Smith"`
	Email     *string `json:"email,omitempty" validate:"omitempty,email,max=255" example:"jane@prospect.example.com"`
	Phone     *string `json:"phone,omitempty" validate:"omitempty,max=50"`
	Mobile    *string `json:"mobile,omitempty" validate:"omitempty,max=50"`
	Position  *string `json:"position,omitempty" validate:"omitempty,max=255" example:"CTO"`
	Address   *string `json:"address,omitempty" validate:"omitempty,max=500"`
	CompanyID *uint   `json:"company_id,omitempty" example:"9"`
	Notes     *string `json:"notes,omitempty" validate:"omitempty,max=5000"`
}

// UpdateContactRequest represents the request payload for updating a contact
type UpdateContactRequest struct {
	Name      *string `json:"name,omitempty" validate:"omitempty,min=1,max=255"`
	Email     *string `json:"email,omitempty" validate:"omitempty,email,max=255"`
	Phone     *string `json:"phone,omitempty" validate:"omitempty,max=50"`
	Mobile    *string `json:"mobile,omitempty" validate:"omitempty,max=50"`
	Position  *string `json:"position,omitempty" validate:"omitempty,max=255"`
	Address   *string `json:"address,omitempty" validate:"omitempty,max=500"`
	CompanyID *uint   `json:"company_id,omitempty"`
	Notes     *string `json:"notes,omitempty" validate:"omitempty,max=5000"`
}

// ListContactsRequest represents the query parameters for listing contacts
type ListContactsRequest struct {
	PaginationRequest
	CompanyID uint   `json:"company_id" query:"company_id" example:"9"`
	Search    string `json:"search" query:"search" validate:"omitempty,max=255" example:"jane"`
}

// ContactDTO represents contact information returned in API responses
type ContactDTO struct {
	ID          uint    `json:"id" example:"17"`
	UUID        string  `json:"uuid" example:"550e8400-e29b-41d4-a716-446655440000"`
	Name        string  `json:"name" example:"Jane Smith"`
	Email       *string `json:"email,omitempty"`
	Phone       *string `json:"phone,omitempty"`
	Mobile      *string `json:"mobile,omitempty"`
	Position    *string `json:"position,omitempty"`
	Address     *string `json:"address,omitempty"`
	CompanyID   *uint   `json:"company_id,omitempty" example:"9"`
	CompanyName *string `json:"company_name,omitempty" example:"Prospect Inc"`
	LeadID      *uint   `json:"lead_id,omitempty" example:"42"`
	Notes       *string `json:"notes,omitempty"`
	CreatedAt   string  `json:"created_at" example:"2025-01-15T10:30:00Z"`
	UpdatedAt   string  `json:"updated_at" example:"2025-01-16T09:00:00Z"`
}

// ListContactsData represents a page of contacts
type ListContactsData struct {
	Contacts   []ContactDTO `json:"contacts"`
	Pagination Pagination   `json:"pagination"`
}

// Common error codes for contact operations
const (
	ErrorContactNotFound = "CONTACT_NOT_FOUND"
)
