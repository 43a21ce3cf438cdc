// Package businessflow contains the core business logic and use cases for CRM workflows
package businessflow

import (
	"context"
	"fmt"
	"log"

	"github.com/atlascrm/atlas/app/dto"
	"github.com/atlascrm/atlas/app/services"
	"github.com/atlascrm/atlas/models"
	"github.com/atlascrm/atlas/repository"
	"github.com/atlascrm/atlas/utils"
	"gorm.io/gorm"
)

// EmailQuotaFlow is the gate every outbound tenant email passes through.
// It lazily resets the monthly counter, enforces the plan limit with a
// single conditional update, delivers inside the same transaction so a
// transport failure is never counted, and raises the 90% and 100%
// threshold notifications for the tenant owner.
type EmailQuotaFlow interface {
	// SendEmail delivers one email on behalf of the tenant, counting it
	// against the monthly quota. Returns ErrQuotaExceeded when the plan
	// limit is reached; the failed attempt is not counted.
	SendEmail(ctx context.Context, actor Actor, to, subject, body string) error

	// DispatchEmail sends asynchronously. Failures are logged and written to
	// the audit trail but never surface to the caller; flows that trigger
	// emails as a side effect must not fail because of the quota.
	DispatchEmail(actor Actor, to, subject, body string)

	// GetEmailUsage reports the tenant's current counter, limit, and period.
	GetEmailUsage(ctx context.Context, actor Actor) (*dto.EmailUsageDTO, error)
}

// EmailQuotaFlowImpl implements the email quota business flow
type EmailQuotaFlowImpl struct {
	tenantRepo       repository.TenantRepository
	notificationRepo repository.NotificationRepository
	auditRepo        repository.AuditLogRepository
	emailService     services.EmailService
	db               *gorm.DB
}

// NewEmailQuotaFlow creates a new email quota flow instance
func NewEmailQuotaFlow(
	tenantRepo repository.TenantRepository,
	notificationRepo repository.NotificationRepository,
	auditRepo repository.AuditLogRepository,
	emailService services.EmailService,
	db *gorm.DB,
) EmailQuotaFlow {
	return &EmailQuotaFlowImpl{
		tenantRepo:       tenantRepo,
		notificationRepo: notificationRepo,
		auditRepo:        auditRepo,
		emailService:     emailService,
		db:               db,
	}
}

// SendEmail counts and delivers one email inside a single transaction
func (s *EmailQuotaFlowImpl) SendEmail(ctx context.Context, actor Actor, to, subject, body string) error {
	var tenant *models.Tenant
	var usage int
	var limit *int

	err := repository.WithTransaction(ctx, s.db, func(txCtx context.Context) error {
		var err error
		tenant, err = s.tenantRepo.ByIDWithPlan(txCtx, actor.TenantID)
		if err != nil {
			return err
		}
		if tenant == nil {
			return ErrTenantNotFound
		}
		if !utils.IsTrue(tenant.IsActive) {
			return ErrTenantInactive
		}

		now := utils.UTCNow()

		// Lazy month rollover. The repository repeats the month comparison in
		// the update predicate, so concurrent senders cannot double-reset.
		if tenant.NeedsUsageReset(now) {
			if _, err := s.tenantRepo.ResetEmailUsage(txCtx, tenant.ID, now); err != nil {
				return err
			}
		}

		limit = tenant.EmailLimit()

		// Limit check and increment in one conditional update. Zero affected
		// rows means the counter already sits at the limit.
		var ok bool
		usage, ok, err = s.tenantRepo.IncrementEmailUsage(txCtx, tenant.ID, limit)
		if err != nil {
			return err
		}
		if !ok {
			return ErrQuotaExceeded
		}

		// Delivery inside the transaction: a transport error rolls the
		// increment back, so a failed send is never counted.
		if err := s.emailService.SendEmail(to, subject, body); err != nil {
			return err
		}

		return s.raiseThresholdNotifications(txCtx, tenant, usage, limit)
	})

	if err != nil {
		if IsQuotaExceeded(err) {
			s.notifyQuotaBlocked(ctx, tenant, limit)

			errMsg := fmt.Sprintf("Email blocked by quota: tenant %d", actor.TenantID)
			_ = s.createAuditLog(ctx, actor, models.AuditActionEmailBlocked, errMsg, false, &errMsg)
			return ErrQuotaExceeded
		}
		if IsTenantNotFound(err) || IsTenantInactive(err) {
			return err
		}
		return NewBusinessError("EMAIL_SEND_FAILED", "Email send failed", err)
	}

	msg := fmt.Sprintf("Email sent: tenant %d, usage %d", actor.TenantID, usage)
	_ = s.createAuditLog(ctx, actor, models.AuditActionEmailSent, msg, true, nil)

	return nil
}

// DispatchEmail fires the send in a goroutine and logs failures
func (s *EmailQuotaFlowImpl) DispatchEmail(actor Actor, to, subject, body string) {
	go func() {
		if err := s.SendEmail(context.Background(), actor, to, subject, body); err != nil {
			log.Printf("async email to %s failed for tenant %d: %v", to, actor.TenantID, err)
		}
	}()
}

// GetEmailUsage reports the tenant's current quota state
func (s *EmailQuotaFlowImpl) GetEmailUsage(ctx context.Context, actor Actor) (*dto.EmailUsageDTO, error) {
	tenant, err := s.tenantRepo.ByIDWithPlan(ctx, actor.TenantID)
	if err != nil {
		return nil, NewBusinessError("USAGE_FETCH_FAILED", "Usage fetch failed", err)
	}
	if tenant == nil {
		return nil, ErrTenantNotFound
	}

	// A pending lazy reset means the stored counter belongs to an old month.
	usage := tenant.EmailUsageCount
	warned := utils.IsTrue(tenant.EmailWarned90)
	if tenant.NeedsUsageReset(utils.UTCNow()) {
		usage = 0
		warned = false
	}

	limit := tenant.EmailLimit()
	exhausted := limit != nil && usage >= *limit

	return &dto.EmailUsageDTO{
		Used:      usage,
		Limit:     limit,
		Period:    utils.CurrentUsagePeriod(),
		Warned90:  warned,
		Exhausted: exhausted,
	}, nil
}

// Private helper methods

// raiseThresholdNotifications writes the one-time 90% warning and the 100%
// notice for the tenant owner, inside the send transaction
func (s *EmailQuotaFlowImpl) raiseThresholdNotifications(ctx context.Context, tenant *models.Tenant, usage int, limit *int) error {
	if limit == nil || tenant.OwnerUserID == nil {
		return nil
	}

	if usage == *limit {
		return s.notificationRepo.Save(ctx, &models.Notification{
			TenantID: tenant.ID,
			UserID:   *tenant.OwnerUserID,
			Type:     models.NotificationTypeQuotaLimit,
			Title:    "Email quota reached",
			Message:  fmt.Sprintf("Your workspace has used all %d monthly emails. Further sends are blocked until next month.", *limit),
			Link:     utils.ToPtr("/settings/billing"),
			Read:     utils.ToPtr(false),
		})
	}

	if float64(usage) >= utils.EmailWarningThreshold*float64(*limit) {
		// The flag flip is conditional, so exactly one sender per period wins
		// the right to write the warning.
		warned, err := s.tenantRepo.MarkWarned90(ctx, tenant.ID)
		if err != nil {
			return err
		}
		if warned {
			return s.notificationRepo.Save(ctx, &models.Notification{
				TenantID: tenant.ID,
				UserID:   *tenant.OwnerUserID,
				Type:     models.NotificationTypeQuotaWarning,
				Title:    "Email quota at 90%",
				Message:  fmt.Sprintf("Your workspace has used %d of %d monthly emails.", usage, *limit),
				Link:     utils.ToPtr("/settings/billing"),
				Read:     utils.ToPtr(false),
			})
		}
	}

	return nil
}

// notifyQuotaBlocked records a blocked-send notice for the owner, outside
// the rolled-back transaction
func (s *EmailQuotaFlowImpl) notifyQuotaBlocked(ctx context.Context, tenant *models.Tenant, limit *int) {
	if tenant == nil || tenant.OwnerUserID == nil || limit == nil {
		return
	}

	_ = s.notificationRepo.Save(ctx, &models.Notification{
		TenantID: tenant.ID,
		UserID:   *tenant.OwnerUserID,
		Type:     models.NotificationTypeQuotaBlocked,
		Title:    "Email blocked by quota",
		Message:  fmt.Sprintf("An email was not sent because the monthly limit of %d is exhausted.", *limit),
		Link:     utils.ToPtr("/settings/billing"),
		Read:     utils.ToPtr(false),
	})
}

func (s *EmailQuotaFlowImpl) createAuditLog(ctx context.Context, actor Actor, action, description string, success bool, errorMsg *string) error {
	audit := &models.AuditLog{
		TenantID:     &actor.TenantID,
		UserID:       &actor.UserID,
		Action:       action,
		Description:  &description,
		Success:      utils.ToPtr(success),
		ErrorMessage: errorMsg,
	}

	if requestID, ok := ctx.Value(RequestIDKey).(string); ok {
		audit.RequestID = &requestID
	}

	return s.auditRepo.Save(ctx, audit)
}
