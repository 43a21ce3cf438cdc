// Package models contains domain entities and business models for the CRM platform
package models

import (
	"time"

	"github.com/google/uuid"
)

type Company struct {
	ID       uint      `gorm:"primaryKey" json:"id"`
	UUID     uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:uk_companies_uuid" json:"uuid"`
	TenantID uint      `gorm:"not null;index:idx_companies_tenant_id" json:"tenant_id"`
	Tenant   Tenant    `gorm:"foreignKey:TenantID;references:ID" json:"-"`

	Name     string  `gorm:"size:255;not null;index:idx_companies_name" json:"name"`
	Website  *string `gorm:"size:255" json:"website,omitempty"`
	Phone    *string `gorm:"size:20" json:"phone,omitempty"`
	Address  *string `gorm:"size:255" json:"address,omitempty"`
	Industry *string `gorm:"size:100" json:"industry,omitempty"`
	Notes    *string `gorm:"type:text" json:"notes,omitempty"`

	CreatedAt time.Time `gorm:"default:(CURRENT_TIMESTAMP AT TIME ZONE 'UTC');index:idx_companies_created_at" json:"created_at"`
	UpdatedAt time.Time `gorm:"default:(CURRENT_TIMESTAMP AT TIME ZONE 'UTC')" json:"updated_at"`

	// Relations
	Contacts []Contact `gorm:"foreignKey:CompanyID" json:"contacts,omitempty"`
}

func (Company) TableName() string {
	return "companies"
}

// CompanyFilter represents filter criteria for company queries
type CompanyFilter struct {
	ID            *uint
	UUID          *uuid.UUID
	TenantID      *uint
	Name          *string
	Search        *string // matches name or website
	CreatedAfter  *time.Time
	CreatedBefore *time.Time
}
