// Package models contains domain entities and business models for the CRM platform
package models

import (
	"time"

	"github.com/google/uuid"
)

type User struct {
	ID       uint      `gorm:"primaryKey" json:"id"`
	UUID     uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:uk_users_uuid" json:"uuid"`
	TenantID uint      `gorm:"not null;index:idx_users_tenant_id;uniqueIndex:uk_users_tenant_email" json:"tenant_id"`
	Tenant   Tenant    `gorm:"foreignKey:TenantID;references:ID" json:"tenant,omitempty"`

	FirstName string  `gorm:"size:100;not null" json:"first_name"`
	LastName  string  `gorm:"size:100;not null" json:"last_name"`
	Email     string  `gorm:"size:255;not null;uniqueIndex:uk_users_tenant_email" json:"email"`
	Phone     *string `gorm:"size:20" json:"phone,omitempty"`

	PasswordHash string `gorm:"size:255;not null" json:"-"` // Never serialize password hash

	// Role within the tenant. Agents are the lowest-privilege role and are
	// restricted to leads they own for destructive transitions.
	Role string `gorm:"size:20;not null;default:'agent';index:idx_users_role" json:"role"`

	IsActive *bool `gorm:"default:true;index:idx_users_is_active" json:"is_active"`

	CreatedAt   time.Time  `gorm:"default:(CURRENT_TIMESTAMP AT TIME ZONE 'UTC');index:idx_users_created_at" json:"created_at"`
	UpdatedAt   time.Time  `gorm:"default:(CURRENT_TIMESTAMP AT TIME ZONE 'UTC')" json:"updated_at"`
	LastLoginAt *time.Time `gorm:"index:idx_users_last_login_at" json:"last_login_at,omitempty"`

	// Relations
	Sessions      []UserSession  `gorm:"foreignKey:UserID" json:"-"`
	OwnedLeads    []Lead         `gorm:"foreignKey:UserID" json:"-"`
	Notifications []Notification `gorm:"foreignKey:UserID" json:"-"`
	AuditLogs     []AuditLog     `gorm:"foreignKey:UserID" json:"-"`
}

func (User) TableName() string {
	return "users"
}

// User role constants
const (
	RoleOwner = "owner"
	RoleAdmin = "admin"
	RoleAgent = "agent"
)

// UserFilter represents filter criteria for user queries
type UserFilter struct {
	ID            *uint
	UUID          *uuid.UUID
	TenantID      *uint
	Email         *string
	Role          *string
	IsActive      *bool
	CreatedAfter  *time.Time
	CreatedBefore *time.Time
}

func (u *User) IsOwner() bool {
	return u.Role == RoleOwner
}

func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

func (u *User) IsAgent() bool {
	return u.Role == RoleAgent
}

// CanManageTeam reports whether the user may invite, update, or deactivate
// other users in the tenant
func (u *User) CanManageTeam() bool {
	return u.Role == RoleOwner || u.Role == RoleAdmin
}

func (u *User) FullName() string {
	return u.FirstName + " " + u.LastName
}

// IsValidRole reports whether role is one of the recognized tenant roles
func IsValidRole(role string) bool {
	switch role {
	case RoleOwner, RoleAdmin, RoleAgent:
		return true
	}
	return false
}
