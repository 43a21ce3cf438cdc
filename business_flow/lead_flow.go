// Package businessflow contains the core business logic and use cases for CRM workflows
package businessflow

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/atlascrm/atlas/app/dto"
	"github.com/atlascrm/atlas/models"
	"github.com/atlascrm/atlas/repository"
	"github.com/atlascrm/atlas/utils"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// LeadFlow handles the lead lifecycle: capture, claim, lose, convert, and the
// append-only activity log that travels with every transition.
type LeadFlow interface {
	CreateLead(ctx context.Context, actor Actor, req *dto.CreateLeadRequest, metadata *ClientMetadata) (*dto.LeadDTO, error)
	ListLeads(ctx context.Context, actor Actor, req *dto.ListLeadsRequest) (*dto.ListLeadsData, error)
	GetLead(ctx context.Context, actor Actor, leadUUID string) (*dto.LeadDetailData, error)
	UpdateLead(ctx context.Context, actor Actor, leadUUID string, req *dto.UpdateLeadRequest, metadata *ClientMetadata) (*dto.LeadDTO, error)
	DeleteLead(ctx context.Context, actor Actor, leadUUID string, metadata *ClientMetadata) error

	// ClaimLead assigns an unowned new lead to the actor. Exactly one of any
	// set of concurrent claimers wins; the rest get a conflict. A lead that
	// does not exist, or lives in another workspace, yields the same
	// conflict as a lost race.
	ClaimLead(ctx context.Context, actor Actor, leadUUID string, metadata *ClientMetadata) (*dto.LeadDTO, error)

	// LoseLead marks a claimed lead as lost with a mandatory reason. Agents
	// may only lose leads they own.
	LoseLead(ctx context.Context, actor Actor, leadUUID string, req *dto.LoseLeadRequest, metadata *ClientMetadata) (*dto.LeadDTO, error)

	// ConvertLead turns a claimed lead into a contact and optionally a
	// company, all inside one transaction.
	ConvertLead(ctx context.Context, actor Actor, leadUUID string, req *dto.ConvertLeadRequest, metadata *ClientMetadata) (*dto.ConvertLeadData, error)
}

// LeadFlowImpl implements the lead business flow
type LeadFlowImpl struct {
	leadRepo    repository.LeadRepository
	leadLogRepo repository.LeadLogRepository
	contactRepo repository.ContactRepository
	companyRepo repository.CompanyRepository
	auditRepo   repository.AuditLogRepository
	db          *gorm.DB
}

// NewLeadFlow creates a new lead flow instance
func NewLeadFlow(
	leadRepo repository.LeadRepository,
	leadLogRepo repository.LeadLogRepository,
	contactRepo repository.ContactRepository,
	companyRepo repository.CompanyRepository,
	auditRepo repository.AuditLogRepository,
	db *gorm.DB,
) LeadFlow {
	return &LeadFlowImpl{
		leadRepo:    leadRepo,
		leadLogRepo: leadLogRepo,
		contactRepo: contactRepo,
		companyRepo: companyRepo,
		auditRepo:   auditRepo,
		db:          db,
	}
}

// CreateLead captures a new lead and writes its first log entry
func (s *LeadFlowImpl) CreateLead(ctx context.Context, actor Actor, req *dto.CreateLeadRequest, metadata *ClientMetadata) (*dto.LeadDTO, error) {
	source := models.LeadSourceManual
	if req.Source != nil {
		source = *req.Source
	}

	lead := &models.Lead{
		UUID:     uuid.New(),
		TenantID: actor.TenantID,
		Name:     req.Name,
		Email:    req.Email,
		Phone:    req.Phone,
		Mobile:   req.Mobile,
		Company:  req.Company,
		Position: req.Position,
		Address:  req.Address,
		Website:  req.Website,
		Source:   &source,
		Notes:    req.Notes,
		Status:   models.LeadStatusNew,
	}

	err := repository.WithTransaction(ctx, s.db, func(txCtx context.Context) error {
		if err := s.leadRepo.Save(txCtx, lead); err != nil {
			return err
		}

		return s.appendLog(txCtx, lead.ID, &actor.UserID, models.LeadActionCreated, map[string]any{
			"source": source,
		})
	})

	if err != nil {
		return nil, NewBusinessError("LEAD_CREATE_FAILED", "Lead creation failed", err)
	}

	msg := fmt.Sprintf("Lead created: %d", lead.ID)
	_ = s.createAuditLog(ctx, actor, models.AuditActionLeadCreated, msg, true, nil, metadata)

	result := ToLeadDTO(*lead)
	return &result, nil
}

// ListLeads returns a page of the tenant's leads
func (s *LeadFlowImpl) ListLeads(ctx context.Context, actor Actor, req *dto.ListLeadsRequest) (*dto.ListLeadsData, error) {
	req.Normalize()

	filter := models.LeadFilter{TenantID: &actor.TenantID}
	if req.Status != "" {
		filter.Status = &req.Status
	}
	if req.Unassigned {
		filter.Unassigned = utils.ToPtr(true)
	}
	if req.Mine {
		filter.UserID = &actor.UserID
	}
	if req.Search != "" {
		filter.Search = &req.Search
	}

	leads, err := s.leadRepo.ByFilter(ctx, filter, "created_at DESC", req.PageSize, req.Offset())
	if err != nil {
		return nil, NewBusinessError("LEAD_LIST_FAILED", "Lead listing failed", err)
	}

	total, err := s.leadRepo.Count(ctx, filter)
	if err != nil {
		return nil, NewBusinessError("LEAD_LIST_FAILED", "Lead listing failed", err)
	}

	data := &dto.ListLeadsData{
		Leads: make([]dto.LeadDTO, 0, len(leads)),
		Pagination: dto.Pagination{
			Page:     req.Page,
			PageSize: req.PageSize,
			Total:    total,
		},
	}
	for _, lead := range leads {
		data.Leads = append(data.Leads, ToLeadDTO(*lead))
	}

	return data, nil
}

// GetLead returns a lead together with its full activity log
func (s *LeadFlowImpl) GetLead(ctx context.Context, actor Actor, leadUUID string) (*dto.LeadDetailData, error) {
	lead, err := s.findLead(ctx, actor, leadUUID)
	if err != nil {
		return nil, err
	}

	logs, err := s.leadLogRepo.ListByLead(ctx, lead.ID, 0, 0)
	if err != nil {
		return nil, NewBusinessError("LEAD_FETCH_FAILED", "Lead fetch failed", err)
	}

	data := &dto.LeadDetailData{
		Lead: ToLeadDTO(*lead),
		Logs: make([]dto.LeadLogDTO, 0, len(logs)),
	}
	for _, log := range logs {
		data.Logs = append(data.Logs, ToLeadLogDTO(*log))
	}

	return data, nil
}

// UpdateLead edits lead details. Status and ownership never change here.
func (s *LeadFlowImpl) UpdateLead(ctx context.Context, actor Actor, leadUUID string, req *dto.UpdateLeadRequest, metadata *ClientMetadata) (*dto.LeadDTO, error) {
	var lead *models.Lead

	err := repository.WithTransaction(ctx, s.db, func(txCtx context.Context) error {
		var err error
		lead, err = s.leadRepo.ByUUID(txCtx, actor.TenantID, leadUUID)
		if err != nil {
			return err
		}
		if lead == nil {
			return ErrLeadNotFound
		}
		if lead.IsTerminal() {
			return ErrLeadTerminal
		}

		changed := applyLeadUpdate(lead, req)
		if !changed {
			return nil
		}

		if err := s.leadRepo.Update(txCtx, lead); err != nil {
			return err
		}

		return s.appendLog(txCtx, lead.ID, &actor.UserID, models.LeadActionUpdated, nil)
	})

	if err != nil {
		if IsLeadNotFound(err) || IsLeadTerminal(err) {
			return nil, err
		}
		return nil, NewBusinessError("LEAD_UPDATE_FAILED", "Lead update failed", err)
	}

	result := ToLeadDTO(*lead)
	return &result, nil
}

// DeleteLead removes a lead. Only owners and admins may delete.
func (s *LeadFlowImpl) DeleteLead(ctx context.Context, actor Actor, leadUUID string, metadata *ClientMetadata) error {
	if !actor.CanManageTeam() {
		return ErrPermissionDenied
	}

	lead, err := s.findLead(ctx, actor, leadUUID)
	if err != nil {
		return err
	}

	if err := s.leadRepo.Delete(ctx, actor.TenantID, lead.ID); err != nil {
		return NewBusinessError("LEAD_DELETE_FAILED", "Lead deletion failed", err)
	}

	msg := fmt.Sprintf("Lead deleted: %d", lead.ID)
	_ = s.createAuditLog(ctx, actor, models.AuditActionLeadDeleted, msg, true, nil, metadata)

	return nil
}

// ClaimLead assigns an unowned lead to the actor
func (s *LeadFlowImpl) ClaimLead(ctx context.Context, actor Actor, leadUUID string, metadata *ClientMetadata) (*dto.LeadDTO, error) {
	var lead *models.Lead

	err := repository.WithTransaction(ctx, s.db, func(txCtx context.Context) error {
		var err error
		lead, err = s.leadRepo.ByUUID(txCtx, actor.TenantID, leadUUID)
		if err != nil {
			return err
		}
		// A missing or foreign lead reads the same as a lost race, so a
		// caller cannot probe which leads exist in other workspaces.
		if lead == nil {
			return ErrLeadConflict
		}

		claimed, err := s.leadRepo.Claim(txCtx, actor.TenantID, lead.ID, actor.UserID, utils.UTCNow())
		if err != nil {
			return err
		}
		if !claimed {
			return ErrLeadConflict
		}

		if err := s.appendLog(txCtx, lead.ID, &actor.UserID, models.LeadActionClaimed, nil); err != nil {
			return err
		}

		lead, err = s.leadRepo.ByID(txCtx, lead.ID)
		return err
	})

	if err != nil {
		if IsLeadConflict(err) {
			msg := fmt.Sprintf("Lead claim conflict: user %d", actor.UserID)
			_ = s.createAuditLog(ctx, actor, models.AuditActionLeadClaimConflict, msg, false, &msg, metadata)
			return nil, err
		}
		return nil, NewBusinessError("LEAD_CLAIM_FAILED", "Lead claim failed", err)
	}

	msg := fmt.Sprintf("Lead claimed: %d by user %d", lead.ID, actor.UserID)
	_ = s.createAuditLog(ctx, actor, models.AuditActionLeadClaimed, msg, true, nil, metadata)

	result := ToLeadDTO(*lead)
	return &result, nil
}

// LoseLead marks a lead as lost with the given reason
func (s *LeadFlowImpl) LoseLead(ctx context.Context, actor Actor, leadUUID string, req *dto.LoseLeadRequest, metadata *ClientMetadata) (*dto.LeadDTO, error) {
	if req.Reason == "" {
		return nil, ErrLossReasonRequired
	}

	// Agents may only lose their own leads; the restriction rides in the
	// update predicate instead of a separate read.
	var ownerID *uint
	if actor.IsAgent() {
		ownerID = &actor.UserID
	}

	var lead *models.Lead

	err := repository.WithTransaction(ctx, s.db, func(txCtx context.Context) error {
		var err error
		lead, err = s.leadRepo.ByUUID(txCtx, actor.TenantID, leadUUID)
		if err != nil {
			return err
		}
		if lead == nil {
			return ErrLeadNotFound
		}

		lost, err := s.leadRepo.MarkLost(txCtx, actor.TenantID, lead.ID, ownerID, req.Reason)
		if err != nil {
			return err
		}
		if !lost {
			if lead.IsTerminal() {
				return ErrLeadTerminal
			}
			if ownerID != nil && (lead.UserID == nil || *lead.UserID != *ownerID) {
				return ErrLeadNotOwned
			}
			return ErrLeadConflict
		}

		if err := s.appendLog(txCtx, lead.ID, &actor.UserID, models.LeadActionLost, map[string]any{
			"reason": req.Reason,
		}); err != nil {
			return err
		}

		lead, err = s.leadRepo.ByID(txCtx, lead.ID)
		return err
	})

	if err != nil {
		if IsLeadNotFound(err) || IsLeadTerminal(err) || IsLeadNotOwned(err) || IsLeadConflict(err) {
			return nil, err
		}
		return nil, NewBusinessError("LEAD_LOSE_FAILED", "Lead lose failed", err)
	}

	msg := fmt.Sprintf("Lead lost: %d", lead.ID)
	_ = s.createAuditLog(ctx, actor, models.AuditActionLeadLost, msg, true, nil, metadata)

	result := ToLeadDTO(*lead)
	return &result, nil
}

// ConvertLead turns a claimed lead into a contact and optionally a company
func (s *LeadFlowImpl) ConvertLead(ctx context.Context, actor Actor, leadUUID string, req *dto.ConvertLeadRequest, metadata *ClientMetadata) (*dto.ConvertLeadData, error) {
	var lead *models.Lead
	var contact *models.Contact
	var company *models.Company

	err := repository.WithTransaction(ctx, s.db, func(txCtx context.Context) error {
		// Re-fetch inside the transaction so the decision is made on current
		// state, not on whatever the caller last saw.
		var err error
		lead, err = s.leadRepo.ByUUID(txCtx, actor.TenantID, leadUUID)
		if err != nil {
			return err
		}
		if lead == nil {
			return ErrLeadNotFound
		}
		if lead.IsTerminal() {
			return ErrLeadTerminal
		}
		if lead.Status != models.LeadStatusInProgress {
			return ErrLeadConflict
		}

		if req.CreateCompany {
			companyName := lead.Company
			if req.CompanyName != nil {
				companyName = req.CompanyName
			}
			if companyName != nil && *companyName != "" {
				// Reuse an existing company with the same name instead of
				// piling up duplicates.
				company, err = s.companyRepo.ByTenantAndName(txCtx, actor.TenantID, *companyName)
				if err != nil {
					return err
				}
				if company == nil {
					company = &models.Company{
						UUID:     uuid.New(),
						TenantID: actor.TenantID,
						Name:     *companyName,
						Website:  lead.Website,
						Address:  lead.Address,
					}
					if err := s.companyRepo.Save(txCtx, company); err != nil {
						return err
					}
				}
			}
		}

		contact = &models.Contact{
			UUID:     uuid.New(),
			TenantID: actor.TenantID,
			Name:     lead.Name,
			Email:    lead.Email,
			Phone:    lead.Phone,
			Mobile:   lead.Mobile,
			Position: lead.Position,
			Address:  lead.Address,
			Notes:    lead.Notes,
			LeadID:   &lead.ID,
		}
		if company != nil {
			contact.CompanyID = &company.ID
		}
		if err := s.contactRepo.Save(txCtx, contact); err != nil {
			return err
		}

		converted, err := s.leadRepo.MarkConverted(txCtx, actor.TenantID, lead.ID, utils.UTCNow())
		if err != nil {
			return err
		}
		if !converted {
			return ErrLeadConflict
		}

		details := map[string]any{"contact_id": contact.ID}
		if company != nil {
			details["company_id"] = company.ID
		}
		if err := s.appendLog(txCtx, lead.ID, &actor.UserID, models.LeadActionConverted, details); err != nil {
			return err
		}

		lead, err = s.leadRepo.ByID(txCtx, lead.ID)
		return err
	})

	if err != nil {
		if IsLeadNotFound(err) || IsLeadTerminal(err) || IsLeadConflict(err) {
			return nil, err
		}
		return nil, NewBusinessError("LEAD_CONVERT_FAILED", "Lead conversion failed", err)
	}

	msg := fmt.Sprintf("Lead converted: %d into contact %d", lead.ID, contact.ID)
	_ = s.createAuditLog(ctx, actor, models.AuditActionLeadConverted, msg, true, nil, metadata)

	data := &dto.ConvertLeadData{
		Lead:    ToLeadDTO(*lead),
		Contact: ToContactDTO(*contact),
	}
	if company != nil {
		c := ToCompanyDTO(*company)
		data.Company = &c
	}

	return data, nil
}

// Private helper methods

func (s *LeadFlowImpl) findLead(ctx context.Context, actor Actor, leadUUID string) (*models.Lead, error) {
	lead, err := s.leadRepo.ByUUID(ctx, actor.TenantID, leadUUID)
	if err != nil {
		return nil, NewBusinessError("LEAD_FETCH_FAILED", "Lead fetch failed", err)
	}
	if lead == nil {
		return nil, ErrLeadNotFound
	}
	return lead, nil
}

func (s *LeadFlowImpl) appendLog(ctx context.Context, leadID uint, userID *uint, action string, details map[string]any) error {
	log := &models.LeadLog{
		LeadID: leadID,
		UserID: userID,
		Action: action,
	}

	if details != nil {
		raw, err := json.Marshal(details)
		if err != nil {
			return err
		}
		log.Details = raw
	}

	return s.leadLogRepo.Save(ctx, log)
}

func (s *LeadFlowImpl) createAuditLog(ctx context.Context, actor Actor, action, description string, success bool, errorMsg *string, metadata *ClientMetadata) error {
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

func applyLeadUpdate(lead *models.Lead, req *dto.UpdateLeadRequest) bool {
	changed := false

	if req.Name != nil && *req.Name != lead.Name {
		lead.Name = *req.Name
		changed = true
	}
	if req.Email != nil {
		lead.Email = req.Email
		changed = true
	}
	if req.Phone != nil {
		lead.Phone = req.Phone
		changed = true
	}
	if req.Mobile != nil {
		lead.Mobile = req.Mobile
		changed = true
	}
	if req.Company != nil {
		lead.Company = req.Company
		changed = true
	}
	if req.Position != nil {
		lead.Position = req.Position
		changed = true
	}
	if req.Address != nil {
		lead.Address = req.Address
		changed = true
	}
	if req.Website != nil {
		lead.Website = req.Website
		changed = true
	}
	if req.Notes != nil {
		lead.Notes = req.Notes
		changed = true
	}

	return changed
}
