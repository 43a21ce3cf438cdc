// Package models contains domain entities and business models for the CRM platform
package models

import (
	"time"
)

type Plan struct {
	ID             uint   `gorm:"primaryKey" json:"id"`
	Name           string `gorm:"size:50;not null;uniqueIndex:uk_plans_name" json:"name"`
	DisplayName    string `gorm:"size:100;not null" json:"display_name"`
	PriceMonthly   int64  `gorm:"not null;default:0" json:"price_monthly"` // smallest currency unit
	MaxUsers       *int   `json:"max_users,omitempty"`                     // NULL = unlimited
	MaxLeads       *int   `json:"max_leads,omitempty"`                     // NULL = unlimited
	MaxEmailsMonth *int   `json:"max_emails_month,omitempty"`              // NULL = unlimited
	IsActive       *bool  `gorm:"default:true" json:"is_active"`

	CreatedAt time.Time `gorm:"default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt time.Time `gorm:"default:CURRENT_TIMESTAMP" json:"updated_at"`

	// Relations
	Tenants []Tenant `gorm:"foreignKey:PlanID" json:"-"`
}

func (Plan) TableName() string {
	return "plans"
}

// Plan name constants
const (
	PlanFree         = "free"
	PlanStarter      = "starter"
	PlanProfessional = "professional"
	PlanEnterprise   = "enterprise"
)

// PlanFilter represents filter criteria for plan queries
type PlanFilter struct {
	ID       *uint
	Name     *string
	IsActive *bool
}

// IsUnlimitedEmails reports whether the plan places no cap on monthly emails
func (p *Plan) IsUnlimitedEmails() bool {
	return p.MaxEmailsMonth == nil
}
