// Package businessflow contains the core business logic and use cases for CRM workflows
package businessflow

import (
	"context"

	"github.com/atlascrm/atlas/app/dto"
	"github.com/atlascrm/atlas/models"
	"github.com/atlascrm/atlas/repository"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ContactFlow handles contact CRUD. Contacts are tenant-scoped and may be
// linked to a company; lead conversion also lands here.
type ContactFlow interface {
	CreateContact(ctx context.Context, actor Actor, req *dto.CreateContactRequest) (*dto.ContactDTO, error)
	ListContacts(ctx context.Context, actor Actor, req *dto.ListContactsRequest) (*dto.ListContactsData, error)
	GetContact(ctx context.Context, actor Actor, contactUUID string) (*dto.ContactDTO, error)
	UpdateContact(ctx context.Context, actor Actor, contactUUID string, req *dto.UpdateContactRequest) (*dto.ContactDTO, error)
}

// ContactFlowImpl implements the contact business flow
type ContactFlowImpl struct {
	contactRepo repository.ContactRepository
	companyRepo repository.CompanyRepository
	db          *gorm.DB
}

// NewContactFlow creates a new contact flow instance
func NewContactFlow(contactRepo repository.ContactRepository, companyRepo repository.CompanyRepository, db *gorm.DB) ContactFlow {
	return &ContactFlowImpl{
		contactRepo: contactRepo,
		companyRepo: companyRepo,
		db:          db,
	}
}

// CreateContact creates a tenant-scoped contact
func (s *ContactFlowImpl) CreateContact(ctx context.Context, actor Actor, req *dto.CreateContactRequest) (*dto.ContactDTO, error) {
	if req.CompanyID != nil {
		if err := s.checkCompany(ctx, actor, *req.CompanyID); err != nil {
			return nil, err
		}
	}

	contact := &models.Contact{
		UUID:      uuid.New(),
		TenantID:  actor.TenantID,
		Name:      req.Name,
		Email:     req.Email,
		Phone:     req.Phone,
		Mobile:    req.Mobile,
		Position:  req.Position,
		Address:   req.Address,
		CompanyID: req.CompanyID,
		Notes:     req.Notes,
	}

	if err := s.contactRepo.Save(ctx, contact); err != nil {
		return nil, NewBusinessError("CONTACT_CREATE_FAILED", "Contact creation failed", err)
	}

	result := ToContactDTO(*contact)
	return &result, nil
}

// ListContacts returns a page of the tenant's contacts
func (s *ContactFlowImpl) ListContacts(ctx context.Context, actor Actor, req *dto.ListContactsRequest) (*dto.ListContactsData, error) {
	req.Normalize()

	filter := models.ContactFilter{TenantID: &actor.TenantID}
	if req.CompanyID != 0 {
		filter.CompanyID = &req.CompanyID
	}
	if req.Search != "" {
		filter.Search = &req.Search
	}

	contacts, err := s.contactRepo.ByFilter(ctx, filter, "created_at DESC", req.PageSize, req.Offset())
	if err != nil {
		return nil, NewBusinessError("CONTACT_LIST_FAILED", "Contact listing failed", err)
	}

	total, err := s.contactRepo.Count(ctx, filter)
	if err != nil {
		return nil, NewBusinessError("CONTACT_LIST_FAILED", "Contact listing failed", err)
	}

	data := &dto.ListContactsData{
		Contacts: make([]dto.ContactDTO, 0, len(contacts)),
		Pagination: dto.Pagination{
			Page:     req.Page,
			PageSize: req.PageSize,
			Total:    total,
		},
	}
	for _, contact := range contacts {
		data.Contacts = append(data.Contacts, ToContactDTO(*contact))
	}

	return data, nil
}

// GetContact returns a single contact
func (s *ContactFlowImpl) GetContact(ctx context.Context, actor Actor, contactUUID string) (*dto.ContactDTO, error) {
	contact, err := s.contactRepo.ByUUID(ctx, actor.TenantID, contactUUID)
	if err != nil {
		return nil, NewBusinessError("CONTACT_FETCH_FAILED", "Contact fetch failed", err)
	}
	if contact == nil {
		return nil, ErrContactNotFound
	}

	result := ToContactDTO(*contact)
	return &result, nil
}

// UpdateContact edits contact details
func (s *ContactFlowImpl) UpdateContact(ctx context.Context, actor Actor, contactUUID string, req *dto.UpdateContactRequest) (*dto.ContactDTO, error) {
	contact, err := s.contactRepo.ByUUID(ctx, actor.TenantID, contactUUID)
	if err != nil {
		return nil, NewBusinessError("CONTACT_UPDATE_FAILED", "Contact update failed", err)
	}
	if contact == nil {
		return nil, ErrContactNotFound
	}

	if req.CompanyID != nil {
		if err := s.checkCompany(ctx, actor, *req.CompanyID); err != nil {
			return nil, err
		}
		contact.CompanyID = req.CompanyID
	}
	if req.Name != nil {
		contact.Name = *req.Name
	}
	if req.Email != nil {
		contact.Email = req.Email
	}
	if req.Phone != nil {
		contact.Phone = req.Phone
	}
	if req.Mobile != nil {
		contact.Mobile = req.Mobile
	}
	if req.Position != nil {
		contact.Position = req.Position
	}
	if req.Address != nil {
		contact.Address = req.Address
	}
	if req.Notes != nil {
		contact.Notes = req.Notes
	}

	if err := s.contactRepo.Update(ctx, contact); err != nil {
		return nil, NewBusinessError("CONTACT_UPDATE_FAILED", "Contact update failed", err)
	}

	result := ToContactDTO(*contact)
	return &result, nil
}

func (s *ContactFlowImpl) checkCompany(ctx context.Context, actor Actor, companyID uint) error {
	company, err := s.companyRepo.ByID(ctx, companyID)
	if err != nil {
		return NewBusinessError("COMPANY_FETCH_FAILED", "Company fetch failed", err)
	}
	if company == nil || company.TenantID != actor.TenantID {
		return ErrCompanyNotFound
	}
	return nil
}
