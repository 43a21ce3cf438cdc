package dto

// CreateDealRequest represents the request payload for creating a deal
type CreateDealRequest struct {
	Title           string  `json:"title" validate:"required,min=1,max=255" example:"Annual license renewal"`
	ContactID       uint    `json:"contact_id" validate:"required" example:"17"`
	CompanyID       *uint   `json:"company_id,omitempty" example:"9"`
	Value           int64   `json:"value" validate:"required,min=0" example:"1200000"`
	Currency        string  `json:"currency,omitempty" validate:"omitempty,len=3,uppercase" example:"USD"`
	ExpectedCloseAt *string `json:"expected_close_at,omitempty" validate:"omitempty,datetime=2006-01-02" example:"2025-03-31"`
	Notes           *string `json:"notes,omitempty" validate:"omitempty,max=5000"`
}

// UpdateDealRequest represents the request payload for updating deal details
type UpdateDealRequest struct {
	Title           *string `json:"title,omitempty" validate:"omitempty,min=1,max=255"`
	Value           *int64  `json:"value,omitempty" validate:"omitempty,min=0"`
	Currency        *string `json:"currency,omitempty" validate:"omitempty,len=3,uppercase"`
	ExpectedCloseAt *string `json:"expected_close_at,omitempty" validate:"omitempty,datetime=2006-01-02"`
	Notes           *string `json:"notes,omitempty" validate:"omitempty,max=5000"`
}

// MoveDealStageRequest represents the request payload for moving a deal
// to another pipeline stage
type MoveDealStageRequest struct {
	Stage string `json:"stage" validate:"required,oneof=qualification proposal negotiation won lost" example:"negotiation"`
}

// ListDealsRequest represents the query parameters for listing deals
type ListDealsRequest struct {
	PaginationRequest
	Stage     string `json:"stage" query:"stage" validate:"omitempty,oneof=qualification proposal negotiation won lost" example:"proposal"`
	ContactID uint   `json:"contact_id" query:"contact_id" example:"17"`
	Mine      bool   `json:"mine" query:"mine" example:"true"`
}

// DealDTO represents deal information returned in API responses
type DealDTO struct {
	ID              uint    `json:"id" example:"5"`
	UUID            string  `json:"uuid" example:"550e8400-e29b-41d4-a716-446655440000"`
	Title           string  `json:"title" example:"Annual license renewal"`
	Stage           string  `json:"stage" example:"negotiation"`
	Value           int64   `json:"value" example:"1200000"`
	Currency        string  `json:"currency" example:"USD"`
	ContactID       uint    `json:"contact_id" example:"17"`
	ContactName     *string `json:"contact_name,omitempty" example:"Jane Smith"`
	CompanyID       *uint   `json:"company_id,omitempty" example:"9"`
	OwnerID         uint    `json:"owner_id" example:"123"`
	ExpectedCloseAt *string `json:"expected_close_at,omitempty" example:"2025-03-31T00:00:00Z"`
	ClosedAt        *string `json:"closed_at,omitempty"`
	Notes           *string `json:"notes,omitempty"`
	CreatedAt       string  `json:"created_at" example:"2025-01-15T10:30:00Z"`
	UpdatedAt       string  `json:"updated_at" example:"2025-01-16T09:00:00Z"`
}

// ListDealsData represents a page of deals
type ListDealsData struct {
	Deals      []DealDTO  `json:"deals"`
	Pagination Pagination `json:"pagination"`
}

// PipelineStageSummary represents aggregate deal value for a single stage
type PipelineStageSummary struct {
	Stage string `json:"stage" example:"negotiation"`
	Count int64  `json:"count" example:"4"`
	Value int64  `json:"value" example:"4800000"`
}

// Common error codes for deal operations
const (
	ErrorDealNotFound     = "DEAL_NOT_FOUND"
	ErrorDealClosed       = "DEAL_CLOSED"
	ErrorInvalidDealStage = "INVALID_DEAL_STAGE"
)
