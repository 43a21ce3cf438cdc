package repository

import (
	"context"

	"github.com/atlascrm/atlas/models"
	"github.com/atlascrm/atlas/utils"
	"gorm.io/gorm"
)

// CompanyRepositoryImpl implements the CompanyRepository interface
type CompanyRepositoryImpl struct {
	*BaseRepository[models.Company, models.CompanyFilter]
}

// NewCompanyRepository creates a new company repository
func NewCompanyRepository(db *gorm.DB) CompanyRepository {
	return &CompanyRepositoryImpl{
		BaseRepository: NewBaseRepository[models.Company, models.CompanyFilter](db),
	}
}

// ByUUID retrieves a company by UUID within one tenant
func (r *CompanyRepositoryImpl) ByUUID(ctx context.Context, tenantID uint, uuid string) (*models.Company, error) {
	parsedUUID, err := utils.ParseUUID(uuid)
	if err != nil {
		return nil, err
	}

	filter := models.CompanyFilter{TenantID: &tenantID, UUID: &parsedUUID}
	companies, err := r.ByFilter(ctx, filter, "", 0, 0)
	if err != nil {
		return nil, err
	}

	if len(companies) == 0 {
		return nil, nil
	}

	return companies[0], nil
}

// ByTenantAndName retrieves a company by exact name within one tenant
func (r *CompanyRepositoryImpl) ByTenantAndName(ctx context.Context, tenantID uint, name string) (*models.Company, error) {
	db := r.getDB(ctx)

	var companies []*models.Company
	err := db.Where("tenant_id = ? AND name = ?", tenantID, name).
		Limit(1).
		Find(&companies).Error
	if err != nil {
		return nil, err
	}

	if len(companies) == 0 {
		return nil, nil
	}

	return companies[0], nil
}

// ListByTenant retrieves companies belonging to a tenant with pagination
func (r *CompanyRepositoryImpl) ListByTenant(ctx context.Context, tenantID uint, filter models.CompanyFilter, limit, offset int) ([]*models.Company, error) {
	filter.TenantID = &tenantID
	return r.ByFilter(ctx, filter, "created_at DESC", limit, offset)
}

// Update updates a company
func (r *CompanyRepositoryImpl) Update(ctx context.Context, company *models.Company) error {
	db, shouldCommit, err := r.getDBForWrite(ctx)
	if err != nil {
		return err
	}

	if shouldCommit {
		defer func() {
			if err != nil {
				db.Rollback()
			} else {
				db.Commit()
			}
		}()
	}

	company.UpdatedAt = utils.UTCNow()
	err = db.Save(company).Error
	if err != nil {
		return err
	}

	return nil
}

// ByFilter retrieves companies based on filter criteria
func (r *CompanyRepositoryImpl) ByFilter(ctx context.Context, filter models.CompanyFilter, orderBy string, limit, offset int) ([]*models.Company, error) {
	db := r.getDB(ctx)

	var companies []*models.Company
	query := r.applyFilter(db, filter)

	if orderBy != "" {
		query = query.Order(orderBy)
	}
	if limit > 0 {
		query = query.Limit(limit)
	}
	if offset > 0 {
		query = query.Offset(offset)
	}

	err := query.Find(&companies).Error
	if err != nil {
		return nil, err
	}

	return companies, nil
}

// Count returns the number of companies matching the filter
func (r *CompanyRepositoryImpl) Count(ctx context.Context, filter models.CompanyFilter) (int64, error) {
	db := r.getDB(ctx)

	var count int64
	query := r.applyFilter(db.Model(&models.Company{}), filter)

	err := query.Count(&count).Error
	if err != nil {
		return 0, err
	}

	return count, nil
}

// Exists checks if any company matching the filter exists
func (r *CompanyRepositoryImpl) Exists(ctx context.Context, filter models.CompanyFilter) (bool, error) {
	count, err := r.Count(ctx, filter)
	if err != nil {
		return false, err
	}

	return count > 0, nil
}

// applyFilter applies filter conditions to the GORM query
func (r *CompanyRepositoryImpl) applyFilter(db *gorm.DB, filter models.CompanyFilter) *gorm.DB {
	if filter.ID != nil {
		db = db.Where("id = ?", *filter.ID)
	}
	if filter.UUID != nil {
		db = db.Where("uuid = ?", *filter.UUID)
	}
	if filter.TenantID != nil {
		db = db.Where("tenant_id = ?", *filter.TenantID)
	}
	if filter.Name != nil {
		db = db.Where("name = ?", *filter.Name)
	}
	if filter.Search != nil {
		pattern := "%" + *filter.Search + "%"
		db = db.Where("name ILIKE ? OR website ILIKE ?", pattern, pattern)
	}
	if filter.CreatedAfter != nil {
		db = db.Where("created_at >= ?", *filter.CreatedAfter)
	}
	if filter.CreatedBefore != nil {
		db = db.Where("created_at < ?", *filter.CreatedBefore)
	}

	return db
}
