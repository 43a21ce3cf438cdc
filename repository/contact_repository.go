package repository

import (
	"context"

	"github.com/atlascrm/atlas/models"
	"github.com/atlascrm/atlas/utils"
	"gorm.io/gorm"
)

// ContactRepositoryImpl implements the ContactRepository interface
type ContactRepositoryImpl struct {
	*BaseRepository[models.Contact, models.ContactFilter]
}

// NewContactRepository creates a new contact repository
func NewContactRepository(db *gorm.DB) ContactRepository {
	return &ContactRepositoryImpl{
		BaseRepository: NewBaseRepository[models.Contact, models.ContactFilter](db),
	}
}

// ByUUID retrieves a contact by UUID within one tenant
func (r *ContactRepositoryImpl) ByUUID(ctx context.Context, tenantID uint, uuid string) (*models.Contact, error) {
	parsedUUID, err := utils.ParseUUID(uuid)
	if err != nil {
		return nil, err
	}

	filter := models.ContactFilter{TenantID: &tenantID, UUID: &parsedUUID}
	contacts, err := r.ByFilter(ctx, filter, "", 0, 0)
	if err != nil {
		return nil, err
	}

	if len(contacts) == 0 {
		return nil, nil
	}

	return contacts[0], nil
}

// ListByTenant retrieves contacts belonging to a tenant with pagination
func (r *ContactRepositoryImpl) ListByTenant(ctx context.Context, tenantID uint, filter models.ContactFilter, limit, offset int) ([]*models.Contact, error) {
	filter.TenantID = &tenantID
	return r.ByFilter(ctx, filter, "created_at DESC", limit, offset)
}

// Update updates a contact
func (r *ContactRepositoryImpl) Update(ctx context.Context, contact *models.Contact) error {
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

	contact.UpdatedAt = utils.UTCNow()
	err = db.Save(contact).Error
	if err != nil {
		return err
	}

	return nil
}

// ByFilter retrieves contacts based on filter criteria
func (r *ContactRepositoryImpl) ByFilter(ctx context.Context, filter models.ContactFilter, orderBy string, limit, offset int) ([]*models.Contact, error) {
	db := r.getDB(ctx)

	var contacts []*models.Contact
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

	query = query.Preload("Company")

	err := query.Find(&contacts).Error
	if err != nil {
		return nil, err
	}

	return contacts, nil
}

// Count returns the number of contacts matching the filter
func (r *ContactRepositoryImpl) Count(ctx context.Context, filter models.ContactFilter) (int64, error) {
	db := r.getDB(ctx)

	var count int64
	query := r.applyFilter(db.Model(&models.Contact{}), filter)

	err := query.Count(&count).Error
	if err != nil {
		return 0, err
	}

	return count, nil
}

// Exists checks if any contact matching the filter exists
func (r *ContactRepositoryImpl) Exists(ctx context.Context, filter models.ContactFilter) (bool, error) {
	count, err := r.Count(ctx, filter)
	if err != nil {
		return false, err
	}

	return count > 0, nil
}

// applyFilter applies filter conditions to the GORM query
func (r *ContactRepositoryImpl) applyFilter(db *gorm.DB, filter models.ContactFilter) *gorm.DB {
	if filter.ID != nil {
		db = db.Where("id = ?", *filter.ID)
	}
	if filter.UUID != nil {
		db = db.Where("uuid = ?", *filter.UUID)
	}
	if filter.TenantID != nil {
		db = db.Where("tenant_id = ?", *filter.TenantID)
	}
	if filter.CompanyID != nil {
		db = db.Where("company_id = ?", *filter.CompanyID)
	}
	if filter.LeadID != nil {
		db = db.Where("lead_id = ?", *filter.LeadID)
	}
	if filter.Email != nil {
		db = db.Where("email = ?", *filter.Email)
	}
	if filter.Search != nil {
		pattern := "%" + *filter.Search + "%"
		db = db.Where("name ILIKE ? OR email ILIKE ?", pattern, pattern)
	}
	if filter.CreatedAfter != nil {
		db = db.Where("created_at >= ?", *filter.CreatedAfter)
	}
	if filter.CreatedBefore != nil {
		db = db.Where("created_at < ?", *filter.CreatedBefore)
	}

	return db
}
