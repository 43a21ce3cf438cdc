package dto

// CreateProposalRequest represents the request payload for drafting a proposal
type CreateProposalRequest struct {
	DealID uint   `json:"deal_id" validate:"required" example:"5"`
	Title  string `json:"title" validate:"required,min=1,max=255" example:"Renewal offer Q1"`
	Body   string `json:"body" validate:"required,min=1" example:"Dear Jane, please find our offer attached."`
	Amount int64  `json:"amount" validate:"required,min=0" example:"1150000"`
}

// UpdateProposalRequest represents the request payload for editing a draft proposal
type UpdateProposalRequest struct {
	Title  *string `json:"title,omitempty" validate:"omitempty,min=1,max=255"`
	Body   *string `json:"body,omitempty" validate:"omitempty,min=1"`
	Amount *int64  `json:"amount,omitempty" validate:"omitempty,min=0"`
}

// RespondProposalRequest represents the recorded answer to a sent proposal
type RespondProposalRequest struct {
	Status string `json:"status" validate:"required,oneof=accepted declined" example:"accepted"`
}

// ListProposalsRequest represents the query parameters for listing proposals
type ListProposalsRequest struct {
	PaginationRequest
	DealID uint   `json:"deal_id" query:"deal_id" example:"5"`
	Status string `json:"status" query:"status" validate:"omitempty,oneof=draft sent accepted declined" example:"sent"`
}

// ProposalDTO represents proposal information returned in API responses
type ProposalDTO struct {
	ID          uint    `json:"id" example:"3"`
	UUID        string  `json:"uuid" example:"550e8400-e29b-41d4-a716-446655440000"`
	DealID      uint    `json:"deal_id" example:"5"`
	Title       string  `json:"title" example:"Renewal offer Q1"`
	Body        string  `json:"body"`
	Amount      int64   `json:"amount" example:"1150000"`
	Status      string  `json:"status" example:"sent"`
	SentAt      *string `json:"sent_at,omitempty" example:"2025-01-16T09:00:00Z"`
	RespondedAt *string `json:"responded_at,omitempty"`
	CreatedAt   string  `json:"created_at" example:"2025-01-15T10:30:00Z"`
	UpdatedAt   string  `json:"updated_at" example:"2025-01-16T09:00:00Z"`
}

// ListProposalsData represents a page of proposals
type ListProposalsData struct {
	Proposals  []ProposalDTO `json:"proposals"`
	Pagination Pagination    `json:"pagination"`
}

// Common error codes for proposal operations
const (
	ErrorProposalNotFound = "PROPOSAL_NOT_FOUND"
	ErrorProposalConflict = "PROPOSAL_CONFLICT"
)
