package dto

// InviteUserRequest represents the request payload for inviting a team member
type InviteUserRequest struct {
	FirstName string  `json:"first_name" validate:"required,min=1,max=100" example:"Sara"`
	LastName  string  `json:"last_name" validate:"required,min=1,max=100" example:"Lopez"`
	Email     string  `json:"email" validate:"required,email,max=255" example:"sara@acme.example.com"`
	Phone     *string `json:"phone,omitempty" validate:"omitempty,max=50"`
	Role      string  `json:"role" validate:"required,oneof=admin agent" example:"agent"`
	Password  string  `json:"password" validate:"required,min=8,max=100" example:"TempPass123!"`
}

// UpdateUserRequest represents the request payload for updating a team member
type UpdateUserRequest struct {
	FirstName *string `json:"first_name,omitempty" validate:"omitempty,min=1,max=100"`
	LastName  *string `json:"last_name,omitempty" validate:"omitempty,min=1,max=100"`
	Phone     *string `json:"phone,omitempty" validate:"omitempty,max=50"`
	Role      *string `json:"role,omitempty" validate:"omitempty,oneof=admin agent"`
}

// ListTeamData represents the tenant's team members
type ListTeamData struct {
	Users []UserDTO `json:"users"`
}
