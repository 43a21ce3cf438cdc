package dto

// CreateCompanyRequest represents the request payload for creating a company
type CreateCompanyRequest struct {
	Name     string  `json:"name" validate:"required,min=1,max=255" example:"Prospect Inc"`
	Phone    *string `json:"phone,omitempty" validate:"omitempty,max=50" example:"+14155550100"`
	Website  *string `json:"website,omitempty" validate:"omitempty,url,max=255"`
	Industry *string `json:"industry,omitempty" validate:"omitempty,max=255" example:"Software"`
	Address  *string `json:"address,omitempty" validate:"omitempty,max=500"`
	Notes    *string `json:"notes,omitempty" validate:"omitempty,max=5000"`
}

// UpdateCompanyRequest represents the request payload for updating a company
type UpdateCompanyRequest struct {
	Name     *string `json:"name,omitempty" validate:"omitempty,min=1,max=255"`
	Phone    *string `json:"phone,omitempty" validate:"omitempty,max=50"`
	Website  *string `json:"website,omitempty" validate:"omitempty,url,max=255"`
	Industry *string `json:"industry,omitempty" validate:"omitempty,max=255"`
	Address  *string `json:"address,omitempty" validate:"omitempty,max=500"`
	Notes    *string `json:"notes,omitempty" validate:"omitempty,max=5000"`
}

// ListCompaniesRequest represents the query parameters for listing companies
type ListCompaniesRequest struct {
	PaginationRequest
	Search string `json:"search" query:"search" validate:"omitempty,max=255" example:"prospect"`
}

// CompanyDTO represents company information returned in API responses
type CompanyDTO struct {
	ID        uint    `json:"id" example:"9"`
	UUID      string  `json:"uuid" example:"550e8400-e29b-41d4-a716-446655440000"`
	Name      string  `json:"name" example:"Prospect Inc"`
	Phone     *string `json:"phone,omitempty"`
	Website   *string `json:"website,omitempty"`
	Industry  *string `json:"industry,omitempty"`
	Address   *string `json:"address,omitempty"`
	Notes     *string `json:"notes,omitempty"`
	CreatedAt string  `json:"created_at" example:"2025-01-15T10:30:00Z"`
	UpdatedAt string  `json:"updated_at" example:"2025-01-16T09:00:00Z"`
}

// ListCompaniesData represents a page of companies
type ListCompaniesData struct {
	Companies  []CompanyDTO `json:"companies"`
	Pagination Pagination   `json:"pagination"`
}

// Common error codes for company operations
const (
	ErrorCompanyNotFound = "COMPANY_NOT_FOUND"
)
