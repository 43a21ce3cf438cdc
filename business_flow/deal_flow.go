// Package businessflow contains the core business logic and use cases for CRM workflows
package businessflow

import (
	"context"
	"fmt"
	"time"

	"github.com/atlascrm/atlas/app/dto"
	"github.com/atlascrm/atlas/models"
	"github.com/atlascrm/atlas/repository"
	"github.com/atlascrm/atlas/utils"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// DealFlow handles the deal pipeline. Stage moves are conditional updates
// guarded against closed deals; side effects (owner notification, email to
// the tenant owner) never fail the move itself.
type DealFlow interface {
	CreateDeal(ctx context.Context, actor Actor, req *dto.CreateDealRequest) (*dto.DealDTO, error)
	ListDeals(ctx context.Context, actor Actor, req *dto.ListDealsRequest) (*dto.ListDealsData, error)
	GetDeal(ctx context.Context, actor Actor, dealUUID string) (*dto.DealDTO, error)
	UpdateDeal(ctx context.Context, actor Actor, dealUUID string, req *dto.UpdateDealRequest) (*dto.DealDTO, error)
	MoveStage(ctx context.Context, actor Actor, dealUUID string, req *dto.MoveDealStageRequest, metadata *ClientMetadata) (*dto.DealDTO, error)
}

// DealFlowImpl implements the deal business flow
type DealFlowImpl struct {
	dealRepo         repository.DealRepository
	contactRepo      repository.ContactRepository
	tenantRepo       repository.TenantRepository
	userRepo         repository.UserRepository
	notificationRepo repository.NotificationRepository
	auditRepo        repository.AuditLogRepository
	emailQuota       EmailQuotaFlow
	db               *gorm.DB
}

// NewDealFlow creates a new deal flow instance
func NewDealFlow(
	dealRepo repository.DealRepository,
	contactRepo repository.ContactRepository,
	tenantRepo repository.TenantRepository,
	userRepo repository.UserRepository,
	notificationRepo repository.NotificationRepository,
	auditRepo repository.AuditLogRepository,
	emailQuota EmailQuotaFlow,
	db *gorm.DB,
) DealFlow {
	return &DealFlowImpl{
		dealRepo:         dealRepo,
		contactRepo:      contactRepo,
		tenantRepo:       tenantRepo,
		userRepo:         userRepo,
		notificationRepo: notificationRepo,
		auditRepo:        auditRepo,
		emailQuota:       emailQuota,
		db:               db,
	}
}

// CreateDeal opens a new deal against a contact
func (s *DealFlowImpl) CreateDeal(ctx context.Context, actor Actor, req *dto.CreateDealRequest) (*dto.DealDTO, error) {
	contact, err := s.contactRepo.ByID(ctx, req.ContactID)
	if err != nil {
		return nil, NewBusinessError("DEAL_CREATE_FAILED", "Deal creation failed", err)
	}
	if contact == nil || contact.TenantID != actor.TenantID {
		return nil, ErrContactNotFound
	}

	currency := req.Currency
	if currency == "" {
		currency = "USD"
	}

	deal := &models.Deal{
		UUID:      uuid.New(),
		TenantID:  actor.TenantID,
		Title:     req.Title,
		Stage:     models.DealStageQualification,
		Value:     req.Value,
		Currency:  currency,
		ContactID: req.ContactID,
		CompanyID: req.CompanyID,
		UserID:    actor.UserID,
		Notes:     req.Notes,
	}

	if req.ExpectedCloseAt != nil {
		at, err := time.Parse("2006-01-02", *req.ExpectedCloseAt)
		if err != nil {
			return nil, NewBusinessError("DEAL_CREATE_FAILED", "Invalid expected close date", err)
		}
		deal.ExpectedCloseAt = &at
	}

	if err := s.dealRepo.Save(ctx, deal); err != nil {
		return nil, NewBusinessError("DEAL_CREATE_FAILED", "Deal creation failed", err)
	}

	result := ToDealDTO(*deal)
	return &result, nil
}

// ListDeals returns a page of the tenant's deals
func (s *DealFlowImpl) ListDeals(ctx context.Context, actor Actor, req *dto.ListDealsRequest) (*dto.ListDealsData, error) {
	req.Normalize()

	filter := models.DealFilter{TenantID: &actor.TenantID}
	if req.Stage != "" {
		filter.Stage = &req.Stage
	}
	if req.ContactID != 0 {
		filter.ContactID = &req.ContactID
	}
	if req.Mine {
		filter.UserID = &actor.UserID
	}

	deals, err := s.dealRepo.ByFilter(ctx, filter, "created_at DESC", req.PageSize, req.Offset())
	if err != nil {
		return nil, NewBusinessError("DEAL_LIST_FAILED", "Deal listing failed", err)
	}

	total, err := s.dealRepo.Count(ctx, filter)
	if err != nil {
		return nil, NewBusinessError("DEAL_LIST_FAILED", "Deal listing failed", err)
	}

	data := &dto.ListDealsData{
		Deals: make([]dto.DealDTO, 0, len(deals)),
		Pagination: dto.Pagination{
			Page:     req.Page,
			PageSize: req.PageSize,
			Total:    total,
		},
	}
	for _, deal := range deals {
		data.Deals = append(data.Deals, ToDealDTO(*deal))
	}

	return data, nil
}

// GetDeal returns a single deal
func (s *DealFlowImpl) GetDeal(ctx context.Context, actor Actor, dealUUID string) (*dto.DealDTO, error) {
	deal, err := s.findDeal(ctx, actor, dealUUID)
	if err != nil {
		return nil, err
	}

	result := ToDealDTO(*deal)
	return &result, nil
}

// UpdateDeal edits deal details. The stage changes only through MoveStage.
func (s *DealFlowImpl) UpdateDeal(ctx context.Context, actor Actor, dealUUID string, req *dto.UpdateDealRequest) (*dto.DealDTO, error) {
	deal, err := s.findDeal(ctx, actor, dealUUID)
	if err != nil {
		return nil, err
	}
	if deal.IsClosed() {
		return nil, ErrDealClosed
	}

	if req.Title != nil {
		deal.Title = *req.Title
	}
	if req.Value != nil {
		deal.Value = *req.Value
	}
	if req.Currency != nil {
		deal.Currency = *req.Currency
	}
	if req.ExpectedCloseAt != nil {
		at, err := time.Parse("2006-01-02", *req.ExpectedCloseAt)
		if err != nil {
			return nil, NewBusinessError("DEAL_UPDATE_FAILED", "Invalid expected close date", err)
		}
		deal.ExpectedCloseAt = &at
	}
	if req.Notes != nil {
		deal.Notes = req.Notes
	}

	if err := s.dealRepo.Update(ctx, deal); err != nil {
		return nil, NewBusinessError("DEAL_UPDATE_FAILED", "Deal update failed", err)
	}

	result := ToDealDTO(*deal)
	return &result, nil
}

// MoveStage moves a deal through the pipeline
func (s *DealFlowImpl) MoveStage(ctx context.Context, actor Actor, dealUUID string, req *dto.MoveDealStageRequest, metadata *ClientMetadata) (*dto.DealDTO, error) {
	if !models.IsValidDealStage(req.Stage) {
		return nil, ErrInvalidDealStage
	}

	deal, err := s.findDeal(ctx, actor, dealUUID)
	if err != nil {
		return nil, err
	}

	var closedAt *time.Time
	if req.Stage == models.DealStageWon || req.Stage == models.DealStageLost {
		closedAt = utils.ToPtr(utils.UTCNow())
	}

	moved, err := s.dealRepo.UpdateStage(ctx, actor.TenantID, deal.ID, req.Stage, closedAt)
	if err != nil {
		return nil, NewBusinessError("DEAL_STAGE_MOVE_FAILED", "Deal stage move failed", err)
	}
	if !moved {
		return nil, ErrDealClosed
	}

	msg := fmt.Sprintf("Deal %d moved to %s", deal.ID, req.Stage)
	_ = s.createAuditLog(ctx, actor, models.AuditActionDealStageMoved, msg, true, nil, metadata)

	// Side effects must not fail the move.
	s.notifyStageMove(ctx, actor, deal, req.Stage)

	deal, err = s.dealRepo.ByID(ctx, deal.ID)
	if err != nil || deal == nil {
		return nil, NewBusinessError("DEAL_STAGE_MOVE_FAILED", "Deal stage move failed", err)
	}

	result := ToDealDTO(*deal)
	return &result, nil
}

// Private helper methods

func (s *DealFlowImpl) findDeal(ctx context.Context, actor Actor, dealUUID string) (*models.Deal, error) {
	deal, err := s.dealRepo.ByUUID(ctx, actor.TenantID, dealUUID)
	if err != nil {
		return nil, NewBusinessError("DEAL_FETCH_FAILED", "Deal fetch failed", err)
	}
	if deal == nil {
		return nil, ErrDealNotFound
	}
	return deal, nil
}

// notifyStageMove writes an in-app notification for the deal owner and
// fire-and-logs a quota-gated email to the tenant owner
func (s *DealFlowImpl) notifyStageMove(ctx context.Context, actor Actor, deal *models.Deal, stage string) {
	_ = s.notificationRepo.Save(ctx, &models.Notification{
		TenantID: actor.TenantID,
		UserID:   deal.UserID,
		Type:     models.NotificationTypeDealStage,
		Title:    "Deal stage changed",
		Message:  fmt.Sprintf("Deal %q moved to %s.", deal.Title, stage),
		Link:     utils.ToPtr(fmt.Sprintf("/deals/%s", deal.UUID)),
		Read:     utils.ToPtr(false),
	})

	tenant, err := s.tenantRepo.ByID(ctx, actor.TenantID)
	if err != nil || tenant == nil || tenant.OwnerUserID == nil {
		return
	}

	owner, err := s.userRepo.ByID(ctx, *tenant.OwnerUserID)
	if err != nil || owner == nil {
		return
	}

	subject := fmt.Sprintf("Deal update: %s", deal.Title)
	body := fmt.Sprintf("Deal %q moved to stage %s.", deal.Title, stage)
	s.emailQuota.DispatchEmail(actor, owner.Email, subject, body)
}

func (s *DealFlowImpl) createAuditLog(ctx context.Context, actor Actor, action, description string, success bool, errorMsg *string, metadata *ClientMetadata) error {
	ipAddress := "127.0.0.1"
	userAgent := ""
	if metadata != nil {
		ipAddress = metadata.IPAddress
		userAgent = metadata.UserAgent
	}

	audit := &models.AuditLog{
		TenantID:     &actor.TenantID,
		UserID:       &actor.UserID,
		Action:       action,
		Description:  &description,
		Success:      utils.ToPtr(success),
		IPAddress:    &ipAddress,
		UserAgent:    &userAgent,
		ErrorMessage: errorMsg,
	}

	if requestID, ok := ctx.Value(RequestIDKey).(string); ok {
		audit.RequestID = &requestID
	}

	return s.auditRepo.Save(ctx, audit)
}
