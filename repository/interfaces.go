// Package repository provides data access layer implementations and interfaces for database operations
package repository

import (
	"context"
	"time"

	"github.com/atlascrm/atlas/models"
	"github.com/google/uuid"
)

// RepositoryContext key for transaction in context
type contextKey string

const TxContextKey contextKey = "tx"

type Repository[T any, F any] interface {
	ByID(ctx context.Context, id uint) (*T, error)
	ByFilter(ctx context.Context, filter F, orderBy string, limit, offset int) ([]*T, error)
	Save(ctx context.Context, entity *T) error
	SaveBatch(ctx context.Context, entities []*T) error
	Count(ctx context.Context, filter F) (int64, error)
	Exists(ctx context.Context, filter F) (bool, error)
}

// PlanRepository defines operations for subscription plans
type PlanRepository interface {
	Repository[models.Plan, models.PlanFilter]
	ByName(ctx context.Context, name string) (*models.Plan, error)
}

// TenantRepository defines operations for tenants, including the email quota counters
type TenantRepository interface {
	Repository[models.Tenant, models.TenantFilter]
	ByUUID(ctx context.Context, uuid string) (*models.Tenant, error)
	ByIDWithPlan(ctx context.Context, id uint) (*models.Tenant, error)
	Update(ctx context.Context, tenant *models.Tenant) error
	SetOwner(ctx context.Context, tenantID, userID uint) error

	// ResetEmailUsage zeroes the counter and warning flag and stamps the reset
	// date, but only while the stored reset date is still in a month earlier
	// than now. Returns true when a reset actually happened.
	ResetEmailUsage(ctx context.Context, tenantID uint, now time.Time) (bool, error)

	// IncrementEmailUsage bumps the counter by one as a single conditional
	// update. A nil limit means unlimited. Returns the new usage on success
	// and false when the counter already sits at the limit.
	IncrementEmailUsage(ctx context.Context, tenantID uint, limit *int) (int, bool, error)

	// MarkWarned90 flips the 90% warning flag, returning true only for the
	// call that actually transitioned it from false to true.
	MarkWarned90(ctx context.Context, tenantID uint) (bool, error)
}

// UserRepository defines operations for tenant users
type UserRepository interface {
	Repository[models.User, models.UserFilter]
	ByUUID(ctx context.Context, uuid string) (*models.User, error)
	ByTenantAndEmail(ctx context.Context, tenantID uint, email string) (*models.User, error)
	ByEmail(ctx context.Context, email string) (*models.User, error)
	ListByTenant(ctx context.Context, tenantID uint, limit, offset int) ([]*models.User, error)
	Update(ctx context.Context, user *models.User) error
	UpdatePassword(ctx context.Context, userID uint, passwordHash string) error
	UpdateLastLogin(ctx context.Context, userID uint, at time.Time) error
}

// UserSessionRepository defines operations for user sessions
type UserSessionRepository interface {
	Repository[models.UserSession, models.UserSessionFilter]
	BySessionToken(ctx context.Context, token string) (*models.UserSession, error)
	ByRefreshToken(ctx context.Context, token string) (*models.UserSession, error)
	ListActiveSessionsByUser(ctx context.Context, userID uint) ([]*models.UserSession, error)
	ExpireSession(ctx context.Context, sessionID uint) error
	ExpireAllUserSessions(ctx context.Context, userID uint) error
	CleanupExpiredSessions(ctx context.Context) error
	GetLatestByCorrelationID(ctx context.Context, correlationID uuid.UUID) (*models.UserSession, error)
}

// LeadRepository defines operations for leads, including the lifecycle transitions
type LeadRepository interface {
	Repository[models.Lead, models.LeadFilter]
	ByUUID(ctx context.Context, tenantID uint, uuid string) (*models.Lead, error)
	ListByTenant(ctx context.Context, tenantID uint, filter models.LeadFilter, limit, offset int) ([]*models.Lead, error)
	Update(ctx context.Context, lead *models.Lead) error
	Delete(ctx context.Context, tenantID, leadID uint) error

	// Claim assigns ownership with a single conditional update scoped to
	// tenant and unowned rows. The affected-row count is the success signal;
	// false means the lead is already claimed, terminal, or not visible to
	// the tenant.
	Claim(ctx context.Context, tenantID, leadID, userID uint, at time.Time) (bool, error)

	// MarkLost flips the lead to lost with the given reason. When ownerID is
	// non-nil the predicate additionally requires that owner, which is how
	// agent-level authorization is enforced at the row level.
	MarkLost(ctx context.Context, tenantID, leadID uint, ownerID *uint, reason string) (bool, error)

	// MarkConverted flips the lead to converted unless it already is.
	MarkConverted(ctx context.Context, tenantID, leadID uint, at time.Time) (bool, error)

	CountByStatus(ctx context.Context, tenantID uint) (map[string]int64, error)
}

// LeadLogRepository defines operations for the append-only lead activity log
type LeadLogRepository interface {
	Repository[models.LeadLog, models.LeadLogFilter]
	ListByLead(ctx context.Context, leadID uint, limit, offset int) ([]*models.LeadLog, error)
}

// CompanyRepository defines operations for companies
type CompanyRepository interface {
	Repository[models.Company, models.CompanyFilter]
	ByUUID(ctx context.Context, tenantID uint, uuid string) (*models.Company, error)
	ByTenantAndName(ctx context.Context, tenantID uint, name string) (*models.Company, error)
	ListByTenant(ctx context.Context, tenantID uint, filter models.CompanyFilter, limit, offset int) ([]*models.Company, error)
	Update(ctx context.Context, company *models.Company) error
}

// ContactRepository defines operations for contacts
type ContactRepository interface {
	Repository[models.Contact, models.ContactFilter]
	ByUUID(ctx context.Context, tenantID uint, uuid string) (*models.Contact, error)
	ListByTenant(ctx context.Context, tenantID uint, filter models.ContactFilter, limit, offset int) ([]*models.Contact, error)
	Update(ctx context.Context, contact *models.Contact) error
}

// DealRepository defines operations for deals
type DealRepository interface {
	Repository[models.Deal, models.DealFilter]
	ByUUID(ctx context.Context, tenantID uint, uuid string) (*models.Deal, error)
	ListByTenant(ctx context.Context, tenantID uint, filter models.DealFilter, limit, offset int) ([]*models.Deal, error)
	Update(ctx context.Context, deal *models.Deal) error

	// UpdateStage moves the deal to the given stage unless it is already
	// closed. Returns false when no open row matched.
	UpdateStage(ctx context.Context, tenantID, dealID uint, stage string, closedAt *time.Time) (bool, error)

	SumValueByStage(ctx context.Context, tenantID uint) (map[string]models.DealStageTotals, error)
}

// ProposalRepository defines operations for proposals
type ProposalRepository interface {
	Repository[models.Proposal, models.ProposalFilter]
	ByUUID(ctx context.Context, tenantID uint, uuid string) (*models.Proposal, error)
	ListByTenant(ctx context.Context, tenantID uint, filter models.ProposalFilter, limit, offset int) ([]*models.Proposal, error)
	Update(ctx context.Context, proposal *models.Proposal) error

	// MarkSent moves draft -> sent; returns false when the proposal is not
	// in draft.
	MarkSent(ctx context.Context, tenantID, proposalID uint, at time.Time) (bool, error)

	// Respond moves sent -> accepted|declined with a conditional update so a
	// proposal cannot be answered twice; returns false when no sent row
	// matched.
	Respond(ctx context.Context, tenantID, proposalID uint, status string, at time.Time) (bool, error)
}

// TaskRepository defines operations for tasks
type TaskRepository interface {
	Repository[models.Task, models.TaskFilter]
	ByUUID(ctx context.Context, tenantID uint, uuid string) (*models.Task, error)
	ListByTenant(ctx context.Context, tenantID uint, filter models.TaskFilter, limit, offset int) ([]*models.Task, error)
	Update(ctx context.Context, task *models.Task) error
	Complete(ctx context.Context, tenantID, taskID uint, at time.Time) (bool, error)
	DueForReminder(ctx context.Context, windowEnd time.Time, limit int) ([]*models.Task, error)
	MarkReminderSent(ctx context.Context, taskID uint, at time.Time) (bool, error)
}

// NotificationRepository defines operations for in-app notifications
type NotificationRepository interface {
	Repository[models.Notification, models.NotificationFilter]
	ListByUser(ctx context.Context, tenantID, userID uint, limit, offset int) ([]*models.Notification, error)
	CountUnread(ctx context.Context, tenantID, userID uint) (int64, error)
	MarkRead(ctx context.Context, tenantID, userID, notificationID uint) (bool, error)
	MarkAllRead(ctx context.Context, tenantID, userID uint) (int64, error)
}

// AuditLogRepository defines operations for audit logs
type AuditLogRepository interface {
	Repository[models.AuditLog, models.AuditLogFilter]
	ListByTenant(ctx context.Context, tenantID uint, limit, offset int) ([]*models.AuditLog, error)
	ListByAction(ctx context.Context, action string, limit, offset int) ([]*models.AuditLog, error)
	ListFailedActions(ctx context.Context, limit, offset int) ([]*models.AuditLog, error)
}
