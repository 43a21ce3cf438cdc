package dto

// APIResponse represents the standard API response structure
type APIResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty" validate:"omitempty"`
	Error   any    `json:"error,omitempty" validate:"omitempty"`
}

// ErrorDetail represents error details in API responses
type ErrorDetail struct {
	Code    string `json:"code"`
	Details any    `json:"details,omitempty" validate:"omitempty"`
}

// Pagination represents paging metadata returned alongside list results
type Pagination struct {
	Page     int   `json:"page" example:"1"`
	PageSize int   `json:"page_size" example:"20"`
	Total    int64 `json:"total" example:"134"`
}

// PaginationRequest represents common paging query parameters
type PaginationRequest struct {
	Page     int `json:"page" query:"page" validate:"omitempty,min=1" example:"1"`
	PageSize int `json:"page_size" query:"page_size" validate:"omitempty,min=1,max=100" example:"20"`
}

// Normalize fills in default paging values
func (p *PaginationRequest) Normalize() {
	if p.Page < 1 {
		p.Page = 1
	}
	if p.PageSize < 1 || p.PageSize > 100 {
		p.PageSize = 20
	}
}

// Offset returns the row offset for the current page
func (p *PaginationRequest) Offset() int {
	return (p.Page - 1) * p.PageSize
}
