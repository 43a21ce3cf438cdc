// Package businessflow contains the core business logic and use cases for CRM workflows
package businessflow

import (
	"context"

	"github.com/atlascrm/atlas/app/dto"
	"github.com/atlascrm/atlas/models"
	"github.com/atlascrm/atlas/repository"
	"github.com/google/uuid"
)

// CompanyFlow handles company CRUD
type CompanyFlow interface {
	CreateCompany(ctx context.Context, actor Actor, req *dto.CreateCompanyRequest) (*dto.CompanyDTO, error)
	ListCompanies(ctx context.Context, actor Actor, req *dto.ListCompaniesRequest) (*dto.ListCompaniesData, error)
	GetCompany(ctx context.Context, actor Actor, companyUUID string) (*dto.CompanyDTO, error)
	UpdateCompany(ctx context.Context, actor Actor, companyUUID string, req *dto.UpdateCompanyRequest) (*dto.CompanyDTO, error)
}

// CompanyFlowImpl implements the company business flow
type CompanyFlowImpl struct {
	companyRepo repository.CompanyRepository
}

// NewCompanyFlow creates a new company flow instance
func NewCompanyFlow(companyRepo repository.CompanyRepository) CompanyFlow {
	return &CompanyFlowImpl{companyRepo: companyRepo}
}

// CreateCompany creates a tenant-scoped company
func (s *CompanyFlowImpl) CreateCompany(ctx context.Context, actor Actor, req *dto.CreateCompanyRequest) (*dto.CompanyDTO, error) {
	company := &models.Company{
		UUID:     uuid.New(),
		TenantID: actor.TenantID,
		Name:     req.Name,
		Website:  req.Website,
		Phone:    req.Phone,
		Industry: req.Industry,
		Address:  req.Address,
		Notes:    req.Notes,
	}

	if err := s.companyRepo.Save(ctx, company); err != nil {
		return nil, NewBusinessError("COMPANY_CREATE_FAILED", "Company creation failed", err)
	}

	result := ToCompanyDTO(*company)
	return &result, nil
}

// ListCompanies returns a page of the tenant's companies
func (s *CompanyFlowImpl) ListCompanies(ctx context.Context, actor Actor, req *dto.ListCompaniesRequest) (*dto.ListCompaniesData, error) {
	req.Normalize()

	filter := models.CompanyFilter{TenantID: &actor.TenantID}
	if req.Search != "" {
		filter.Search = &req.Search
	}

	companies, err := s.companyRepo.ByFilter(ctx, filter, "created_at DESC", req.PageSize, req.Offset())
	if err != nil {
		return nil, NewBusinessError("COMPANY_LIST_FAILED", "Company listing failed", err)
	}

	total, err := s.companyRepo.Count(ctx, filter)
	if err != nil {
		return nil, NewBusinessError("COMPANY_LIST_FAILED", "Company listing failed", err)
	}

	data := &dto.ListCompaniesData{
		Companies: make([]dto.CompanyDTO, 0, len(companies)),
		Pagination: dto.Pagination{
			Page:     req.Page,
			PageSize: req.PageSize,
			Total:    total,
		},
	}
	for _, company := range companies {
		data.Companies = append(data.Companies, ToCompanyDTO(*company))
	}

	return data, nil
}

// GetCompany returns a single company
func (s *CompanyFlowImpl) GetCompany(ctx context.Context, actor Actor, companyUUID string) (*dto.CompanyDTO, error) {
	company, err := s.companyRepo.ByUUID(ctx, actor.TenantID, companyUUID)
	if err != nil {
		return nil, NewBusinessError("COMPANY_FETCH_FAILED", "Company fetch failed", err)
	}
	if company == nil {
		return nil, ErrCompanyNotFound
	}

	result := ToCompanyDTO(*company)
	return &result, nil
}

// UpdateCompany edits company details
func (s *CompanyFlowImpl) UpdateCompany(ctx context.Context, actor Actor, companyUUID string, req *dto.UpdateCompanyRequest) (*dto.CompanyDTO, error) {
	company, err := s.companyRepo.ByUUID(ctx, actor.TenantID, companyUUID)
	if err != nil {
		return nil, NewBusinessError("COMPANY_UPDATE_FAILED", "Company update failed", err)
	}
	if company == nil {
		return nil, ErrCompanyNotFound
	}

	if req.Name != nil {
		company.Name = *req.Name
	}
	if req.Website != nil {
		company.Website = req.Website
	}
	if req.Phone != nil {
		company.Phone = req.Phone
	}
	if req.Industry != nil {
		company.Industry = req.Industry
	}
	if req.Address != nil {
		company.Address = req.Address
	}
	if req.Notes != nil {
		company.Notes = req.Notes
	}

	if err := s.companyRepo.Update(ctx, company); err != nil {
		return nil, NewBusinessError("COMPANY_UPDATE_FAILED", "Company update failed", err)
	}

	result := ToCompanyDTO(*company)
	return &result, nil
}
