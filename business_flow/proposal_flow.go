// Package businessflow contains the core business logic and use cases for CRM workflows
package businessflow

import (
	"context"
	"fmt"

	"github.com/atlascrm/atlas/app/dto"
	"github.com/atlascrm/atlas/models"
	"github.com/atlascrm/atlas/repository"
	"github.com/atlascrm/atlas/utils"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ProposalFlow handles drafting, sending, and answering proposals. Sending
// goes through the email quota gate; the draft-to-sent and sent-to-answered
// moves are conditional updates so a proposal is sent and answered at most
// once.
type ProposalFlow interface {
	CreateProposal(ctx context.Context, actor Actor, req *dto.CreateProposalRequest) (*dto.ProposalDTO, error)
	ListProposals(ctx context.Context, actor Actor, req *dto.ListProposalsRequest) (*dto.ListProposalsData, error)
	GetProposal(ctx context.Context, actor Actor, proposalUUID string) (*dto.ProposalDTO, error)
	UpdateProposal(ctx context.Context, actor Actor, proposalUUID string, req *dto.UpdateProposalRequest) (*dto.ProposalDTO, error)

	// SendProposal moves the proposal draft -> sent and dispatches the email
	// to the deal's contact in the background. A quota rejection suppresses
	// the email but never reverses the move.
	SendProposal(ctx context.Context, actor Actor, proposalUUID string, metadata *ClientMetadata) (*dto.ProposalDTO, error)

	// RespondProposal records acceptance or decline; answering twice yields
	// a conflict.
	RespondProposal(ctx context.Context, actor Actor, proposalUUID string, req *dto.RespondProposalRequest, metadata *ClientMetadata) (*dto.ProposalDTO, error)
}

// ProposalFlowImpl implements the proposal business flow
type ProposalFlowImpl struct {
	proposalRepo     repository.ProposalRepository
	dealRepo         repository.DealRepository
	contactRepo      repository.ContactRepository
	notificationRepo repository.NotificationRepository
	auditRepo        repository.AuditLogRepository
	emailQuota       EmailQuotaFlow
	db               *gorm.DB
}

// NewProposalFlow creates a new proposal flow instance
func NewProposalFlow(
	proposalRepo repository.ProposalRepository,
	dealRepo repository.DealRepository,
	contactRepo repository.ContactRepository,
	notificationRepo repository.NotificationRepository,
	auditRepo repository.AuditLogRepository,
	emailQuota EmailQuotaFlow,
	db *gorm.DB,
) ProposalFlow {
	return &ProposalFlowImpl{
		proposalRepo:     proposalRepo,
		dealRepo:         dealRepo,
		contactRepo:      contactRepo,
		notificationRepo: notificationRepo,
		auditRepo:        auditRepo,
		emailQuota:       emailQuota,
		db:               db,
	}
}

// CreateProposal drafts a proposal against an open deal
func (s *ProposalFlowImpl) CreateProposal(ctx context.Context, actor Actor, req *dto.CreateProposalRequest) (*dto.ProposalDTO, error) {
	deal, err := s.dealRepo.ByID(ctx, req.DealID)
	if err != nil {
		return nil, NewBusinessError("PROPOSAL_CREATE_FAILED", "Proposal creation failed", err)
	}
	if deal == nil || deal.TenantID != actor.TenantID {
		return nil, ErrDealNotFound
	}
	if deal.IsClosed() {
		return nil, ErrDealClosed
	}

	proposal := &models.Proposal{
		UUID:     uuid.New(),
		TenantID: actor.TenantID,
		DealID:   deal.ID,
		UserID:   actor.UserID,
		Title:    req.Title,
		Body:     req.Body,
		Amount:   req.Amount,
		Status:   models.ProposalStatusDraft,
	}

	if err := s.proposalRepo.Save(ctx, proposal); err != nil {
		return nil, NewBusinessError("PROPOSAL_CREATE_FAILED", "Proposal creation failed", err)
	}

	result := ToProposalDTO(*proposal)
	return &result, nil
}

// ListProposals returns a page of the tenant's proposals
func (s *ProposalFlowImpl) ListProposals(ctx context.Context, actor Actor, req *dto.ListProposalsRequest) (*dto.ListProposalsData, error) {
	req.Normalize()

	filter := models.ProposalFilter{TenantID: &actor.TenantID}
	if req.DealID != 0 {
		filter.DealID = &req.DealID
	}
	if req.Status != "" {
		filter.Status = &req.Status
	}

	proposals, err := s.proposalRepo.ByFilter(ctx, filter, "created_at DESC", req.PageSize, req.Offset())
	if err != nil {
		return nil, NewBusinessError("PROPOSAL_LIST_FAILED", "Proposal listing failed", err)
	}

	total, err := s.proposalRepo.Count(ctx, filter)
	if err != nil {
		return nil, NewBusinessError("PROPOSAL_LIST_FAILED", "Proposal listing failed", err)
	}

	data := &dto.ListProposalsData{
		Proposals: make([]dto.ProposalDTO, 0, len(proposals)),
		Pagination: dto.Pagination{
			Page:     req.Page,
			PageSize: req.PageSize,
			Total:    total,
		},
	}
	for _, proposal := range proposals {
		data.Proposals = append(data.Proposals, ToProposalDTO(*proposal))
	}

	return data, nil
}

// GetProposal returns a single proposal
func (s *ProposalFlowImpl) GetProposal(ctx context.Context, actor Actor, proposalUUID string) (*dto.ProposalDTO, error) {
	proposal, err := s.findProposal(ctx, actor, proposalUUID)
	if err != nil {
		return nil, err
	}

	result := ToProposalDTO(*proposal)
	return &result, nil
}

// UpdateProposal edits a proposal while it is still a draft
func (s *ProposalFlowImpl) UpdateProposal(ctx context.Context, actor Actor, proposalUUID string, req *dto.UpdateProposalRequest) (*dto.ProposalDTO, error) {
	proposal, err := s.findProposal(ctx, actor, proposalUUID)
	if err != nil {
		return nil, err
	}
	if proposal.Status != models.ProposalStatusDraft {
		return nil, ErrProposalConflict
	}

	if req.Title != nil {
		proposal.Title = *req.Title
	}
	if req.Body != nil {
		proposal.Body = *req.Body
	}
	if req.Amount != nil {
		proposal.Amount = *req.Amount
	}

	if err := s.proposalRepo.Update(ctx, proposal); err != nil {
		return nil, NewBusinessError("PROPOSAL_UPDATE_FAILED", "Proposal update failed", err)
	}

	result := ToProposalDTO(*proposal)
	return &result, nil
}

// SendProposal emails the proposal and flips it to sent
func (s *ProposalFlowImpl) SendProposal(ctx context.Context, actor Actor, proposalUUID string, metadata *ClientMetadata) (*dto.ProposalDTO, error) {
	proposal, err := s.findProposal(ctx, actor, proposalUUID)
	if err != nil {
		return nil, err
	}
	if proposal.Status != models.ProposalStatusDraft {
		return nil, ErrProposalConflict
	}

	deal, err := s.dealRepo.ByID(ctx, proposal.DealID)
	if err != nil {
		return nil, NewBusinessError("PROPOSAL_SEND_FAILED", "Proposal send failed", err)
	}
	if deal == nil {
		return nil, ErrDealNotFound
	}

	contact, err := s.contactRepo.ByID(ctx, deal.ContactID)
	if err != nil {
		return nil, NewBusinessError("PROPOSAL_SEND_FAILED", "Proposal send failed", err)
	}
	if contact == nil || contact.Email == nil {
		return nil, NewBusinessError("PROPOSAL_SEND_FAILED", "Deal contact has no email address", ErrContactNotFound)
	}

	sent, err := s.proposalRepo.MarkSent(ctx, actor.TenantID, proposal.ID, utils.UTCNow())
	if err != nil {
		return nil, NewBusinessError("PROPOSAL_SEND_FAILED", "Proposal send failed", err)
	}
	if !sent {
		return nil, ErrProposalConflict
	}

	// The email itself is best-effort: a quota rejection or delivery failure
	// is logged and surfaced through notifications, never through the status
	// move that already happened.
	s.emailQuota.DispatchEmail(actor, *contact.Email, proposal.Title, proposal.Body)

	msg := fmt.Sprintf("Proposal sent: %d to %s", proposal.ID, *contact.Email)
	_ = s.createAuditLog(ctx, actor, models.AuditActionProposalSent, msg, true, nil, metadata)

	proposal, err = s.proposalRepo.ByID(ctx, proposal.ID)
	if err != nil || proposal == nil {
		return nil, NewBusinessError("PROPOSAL_SEND_FAILED", "Proposal send failed", err)
	}

	result := ToProposalDTO(*proposal)
	return &result, nil
}

// RespondProposal records the contact's answer
func (s *ProposalFlowImpl) RespondProposal(ctx context.Context, actor Actor, proposalUUID string, req *dto.RespondProposalRequest, metadata *ClientMetadata) (*dto.ProposalDTO, error) {
	if req.Status != models.ProposalStatusAccepted && req.Status != models.ProposalStatusDeclined {
		return nil, ErrInvalidProposalStatus
	}

	proposal, err := s.findProposal(ctx, actor, proposalUUID)
	if err != nil {
		return nil, err
	}

	responded, err := s.proposalRepo.Respond(ctx, actor.TenantID, proposal.ID, req.Status, utils.UTCNow())
	if err != nil {
		return nil, NewBusinessError("PROPOSAL_RESPOND_FAILED", "Proposal respond failed", err)
	}
	if !responded {
		return nil, ErrProposalConflict
	}

	// Tell the proposal author.
	_ = s.notificationRepo.Save(ctx, &models.Notification{
		TenantID: actor.TenantID,
		UserID:   proposal.UserID,
		Type:     models.NotificationTypeProposalResponse,
		Title:    "Proposal answered",
		Message:  fmt.Sprintf("Proposal %q was %s.", proposal.Title, req.Status),
		Link:     utils.ToPtr(fmt.Sprintf("/proposals/%s", proposal.UUID)),
		Read:     utils.ToPtr(false),
	})

	msg := fmt.Sprintf("Proposal %d %s", proposal.ID, req.Status)
	_ = s.createAuditLog(ctx, actor, models.AuditActionProposalResponded, msg, true, nil, metadata)

	proposal, err = s.proposalRepo.ByID(ctx, proposal.ID)
	if err != nil || proposal == nil {
		return nil, NewBusinessError("PROPOSAL_RESPOND_FAILED", "Proposal respond failed", err)
	}

	result := ToProposalDTO(*proposal)
	return &result, nil
}

// Private helper methods

func (s *ProposalFlowImpl) findProposal(ctx context.Context, actor Actor, proposalUUID string) (*models.Proposal, error) {
	proposal, err := s.proposalRepo.ByUUID(ctx, actor.TenantID, proposalUUID)
	if err != nil {
		return nil, NewBusinessError("PROPOSAL_FETCH_FAILED", "Proposal fetch failed", err)
	}
	if proposal == nil {
		return nil, ErrProposalNotFound
	}
	return proposal, nil
}

func (s *ProposalFlowImpl) createAuditLog(ctx context.Context, actor Actor, action, description string, success bool, errorMsg *string, metadata *ClientMetadata) error {
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
