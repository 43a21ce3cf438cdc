// Package models contains domain entities and business models for the CRM platform
package models

import (
	"time"

	"github.com/google/uuid"
)

type Tenant struct {
	ID     uint      `gorm:"primaryKey" json:"id"`
	UUID   uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:uk_tenants_uuid" json:"uuid"`
	Name   string    `gorm:"size:100;not null" json:"name"`
	Domain *string   `gorm:"size:100;uniqueIndex:uk_tenants_domain" json:"domain,omitempty"`

	PlanID uint `gorm:"not null;index:idx_tenants_plan_id" json:"plan_id"`
	Plan   Plan `gorm:"foreignKey:PlanID;references:ID" json:"plan,omitempty"`

	// OwnerUserID points at the user who receives quota and billing notifications.
	// Nullable only during the signup transaction before the first user exists.
	OwnerUserID *uint `gorm:"index:idx_tenants_owner_user_id" json:"owner_user_id,omitempty"`

	// Email quota bookkeeping. The counter covers the calendar month containing
	// EmailResetDate and is reset lazily on the first send of a new month.
	EmailUsageCount int       `gorm:"not null;default:0" json:"email_usage_count"`
	EmailResetDate  time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"email_reset_date"`
	EmailWarned90   *bool     `gorm:"column:email_warned_90;default:false" json:"email_warned_90"`

	IsActive *bool `gorm:"default:true;index:idx_tenants_is_active" json:"is_active"`

	CreatedAt time.Time `gorm:"default:(CURRENT_TIMESTAMP AT TIME ZONE 'UTC');index:idx_tenants_created_at" json:"created_at"`
	UpdatedAt time.Time `gorm:"default:(CURRENT_TIMESTAMP AT TIME ZONE 'UTC')" json:"updated_at"`

	// Relations
	Users         []User         `gorm:"foreignKey:TenantID" json:"-"`
	Leads         []Lead         `gorm:"foreignKey:TenantID" json:"-"`
	Notifications []Notification `gorm:"foreignKey:TenantID" json:"-"`
}

func (Tenant) TableName() string {
	return "tenants"
}

// TenantFilter represents filter criteria for tenant queries
type TenantFilter struct {
	ID            *uint
	UUID          *uuid.UUID
	Name          *string
	Domain        *string
	PlanID        *uint
	IsActive      *bool
	CreatedAfter  *time.Time
	CreatedBefore *time.Time
}

// EmailLimit returns the tenant's effective monthly email cap, nil meaning unlimited
func (t *Tenant) EmailLimit() *int {
	return t.Plan.MaxEmailsMonth
}

// NeedsUsageReset reports whether the stored reset date belongs to an earlier
// calendar month than now (both compared in UTC)
func (t *Tenant) NeedsUsageReset(now time.Time) bool {
	reset := t.EmailResetDate.UTC()
	now = now.UTC()
	return reset.Year() != now.Year() || reset.Month() != now.Month()
}
