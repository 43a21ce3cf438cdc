// Package dto contains Data Transfer Objects for API request and response structures
package dto

import "time"

// SignupRequest represents the request payload for tenant signup
type SignupRequest struct {
	TenantName      string `json:"tenant_name" validate:"required,min=2,max=255" example:"Acme Corp"`
	Domain          string `json:"domain,omitempty" validate:"omitempty,fqdn,max=255" example:"acme.example.com"`
	Plan            string `json:"plan,omitempty" validate:"omitempty,oneof=free starter professional enterprise" example:"free"`
	FirstName       string `json:"first_name" validate:"required,min=1,max=100" example:"John"`
	LastName        string `json:"last_name" validate:"required,min=1,max=100" example:"Doe"`
	Email           string `json:"email" validate:"required,email,max=255" example:"john@acme.example.com"`
	Password        string `json:"password" validate:"required,min=8,max=100" example:"SecurePass123!"`
	ConfirmPassword string `json:"confirm_password" validate:"required,eqfield=Password" example:"SecurePass123!"`
}

// LoginRequest represents the request payload for user login
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email,max=255" example:"john@acme.example.com"`
	Password string `json:"password" validate:"required,min=8,max=100" example:"SecurePass123!"`
}

// RefreshTokenRequest represents the request payload for token refresh
type RefreshTokenRequest struct {
	RefreshToken string `json:"refresh_token" validate:"required" example:"eyJhbGciOiJIUzI1NiIsInR5cCI6IkpXVCJ9..."`
}

// UserDTO represents user information returned in API responses
type UserDTO struct {
	ID        uint    `json:"id" example:"123"`
	UUID      string  `json:"uuid" example:"550e8400-e29b-41d4-a716-446655440000"`
	FirstName string  `json:"first_name" example:"John"`
	LastName  string  `json:"last_name" example:"Doe"`
	Email     string  `json:"email" example:"john@acme.example.com"`
	Phone     *string `json:"phone,omitempty" example:"+14155550100"`
	Role      string  `json:"role" example:"agent"`
	IsActive  *bool   `json:"is_active" example:"true"`
	CreatedAt string  `json:"created_at" example:"2025-01-15T10:30:00Z"`
}

// TenantDTO represents tenant information returned in API responses
type TenantDTO struct {
	ID        uint    `json:"id" example:"7"`
	UUID      string  `json:"uuid" example:"550e8400-e29b-41d4-a716-446655440000"`
	Name      string  `json:"name" example:"Acme Corp"`
	Domain    *string `json:"domain,omitempty" example:"acme.example.com"`
	Plan      string  `json:"plan" example:"free"`
	IsActive  *bool   `json:"is_active" example:"true"`
	CreatedAt string  `json:"created_at" example:"2025-01-15T10:30:00Z"`
}

// SessionDTO represents the issued token pair
type SessionDTO struct {
	AccessToken  string `json:"access_token" example:"eyJhbGciOiJIUzI1NiIsInR5cCI6IkpXVCJ9..."`
	RefreshToken string `json:"refresh_token" example:"eyJhbGciOiJIUzI1NiIsInR5cCI6IkpXVCJ9..."`
	TokenType    string `json:"token_type" example:"Bearer"`
	ExpiresIn    int    `json:"expires_in" example:"86400"`
	CreatedAt    string `json:"created_at" example:"2025-01-15T10:30:00Z"`
}

// AuthData represents the payload of successful signup and login responses
type AuthData struct {
	User    UserDTO    `json:"user"`
	Tenant  TenantDTO  `json:"tenant"`
	Session SessionDTO `json:"session"`
}

// ChangePasswordRequest represents the request to change the current password
type ChangePasswordRequest struct {
	CurrentPassword string `json:"current_password" validate:"required,min=8,max=100" example:"SecurePass123!"`
	NewPassword     string `json:"new_password" validate:"required,min=8,max=100,nefield=CurrentPassword" example:"EvenMoreSecure456!"`
	ConfirmPassword string `json:"confirm_password" validate:"required,eqfield=NewPassword" example:"EvenMoreSecure456!"`
}

// ChangePasswordData represents the response payload after a password change
type ChangePasswordData struct {
	PasswordChangedAt time.Time `json:"password_changed_at" example:"2025-01-15T16:30:00Z"`
}

// Common error codes for auth operations
const (
	ErrorUserNotFound       = "USER_NOT_FOUND"
	ErrorIncorrectPassword  = "INCORRECT_PASSWORD"
	ErrorAccountInactive    = "ACCOUNT_INACTIVE"
	ErrorTenantInactive     = "TENANT_INACTIVE"
	ErrorEmailAlreadyExists = "EMAIL_ALREADY_EXISTS"
	ErrorPlanNotFound       = "PLAN_NOT_FOUND"
	ErrorSessionNotFound    = "SESSION_NOT_FOUND"
	ErrorTokenInvalid       = "TOKEN_INVALID"
	ErrorTokenExpired       = "TOKEN_EXPIRED"
	ErrorPermissionDenied   = "PERMISSION_DENIED"
)
