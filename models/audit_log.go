// Package models contains domain entities and business models for the CRM platform
package models

import (
	"encoding/json"
	"time"
)

type AuditLog struct {
	ID           uint            `gorm:"primaryKey" json:"id"`
	TenantID     *uint           `gorm:"index:idx_audit_tenant_id" json:"tenant_id,omitempty"`
	UserID       *uint           `gorm:"index:idx_audit_user_id" json:"user_id,omitempty"`
	User         *User           `gorm:"foreignKey:UserID;references:ID" json:"user,omitempty"`
	Action       string          `gorm:"size:50;not null;index:idx_audit_action" json:"action"`
	Description  *string         `gorm:"type:text" json:"description,omitempty"`
	IPAddress    *string         `gorm:"type:inet;index:idx_audit_ip_address" json:"ip_address,omitempty"`
	UserAgent    *string         `gorm:"type:text" json:"user_agent,omitempty"`
	RequestID    *string         `gorm:"size:255;index:idx_audit_request_id" json:"request_id,omitempty"`
	Metadata     json.RawMessage `gorm:"type:jsonb" json:"metadata,omitempty"`
	Success      *bool           `gorm:"default:true;index:idx_audit_success" json:"success"`
	ErrorMessage *string         `gorm:"type:text" json:"error_message,omitempty"`
	CreatedAt    time.Time       `gorm:"default:CURRENT_TIMESTAMP;index:idx_audit_created_at" json:"created_at"`
}

func (AuditLog) TableName() string {
	return "audit_log"
}

// Audit action constants
const (
	AuditActionTenantSignup      = "tenant_signup"
	AuditActionLoginSuccessful   = "login_successful"
	AuditActionLoginFailed       = "login_failed"
	AuditActionLogout            = "logout"
	AuditActionPasswordChanged   = "password_changed"
	AuditActionSessionCreated    = "session_created"
	AuditActionSessionExpired    = "session_expired"
	AuditActionUserInvited       = "user_invited"
	AuditActionUserUpdated       = "user_updated"
	AuditActionUserDeactivated   = "user_deactivated"
	AuditActionLeadCreated       = "lead_created"
	AuditActionLeadImported      = "lead_imported"
	AuditActionLeadClaimed       = "lead_claimed"
	AuditActionLeadClaimConflict = "lead_claim_conflict"
	AuditActionLeadLost          = "lead_lost"
	AuditActionLeadConverted     = "lead_converted"
	AuditActionLeadDeleted       = "lead_deleted"
	AuditActionDealStageMoved    = "deal_stage_moved"
	AuditActionProposalSent      = "proposal_sent"
	AuditActionProposalResponded = "proposal_responded"
	AuditActionEmailSent         = "email_sent"
	AuditActionEmailBlocked      = "email_blocked"
)

// AuditLogFilter represents filter criteria for audit log queries
type AuditLogFilter struct {
	ID            *uint
	TenantID      *uint
	UserID        *uint
	Action        *string
	Success       *bool
	IPAddress     *string
	RequestID     *string
	CreatedAfter  *time.Time
	CreatedBefore *time.Time
}

func (a *AuditLog) IsFailed() bool {
	return a.Success != nil && !*a.Success
}

func (a *AuditLog) IsSecurityEvent() bool {
	securityActions := map[string]bool{
		AuditActionLoginSuccessful: true,
		AuditActionLoginFailed:     true,
		AuditActionPasswordChanged: true,
		AuditActionUserDeactivated: true,
	}
	return securityActions[a.Action]
}
