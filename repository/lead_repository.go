package repository

import (
	"context"
	"errors"
	"time"

	"github.com/atlascrm/atlas/models"
	"github.com/atlascrm/atlas/utils"
	"gorm.io/gorm"
)

// LeadRepositoryImpl implements the LeadRepository interface
type LeadRepositoryImpl struct {
	*BaseRepository[models.Lead, models.LeadFilter]
}

// NewLeadRepository creates a new lead repository
func NewLeadRepository(db *gorm.DB) LeadRepository {
	return &LeadRepositoryImpl{
		BaseRepository: NewBaseRepository[models.Lead, models.LeadFilter](db),
	}
}

// ByID retrieves a lead by ID with its owner preloaded
func (r *LeadRepositoryImpl) ByID(ctx context.Context, id uint) (*models.Lead, error) {
	db := r.getDB(ctx)

	var lead models.Lead
	err := db.Preload("User").Last(&lead, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}

	return &lead, nil
}

// ByUUID retrieves a lead by UUID within one tenant
func (r *LeadRepositoryImpl) ByUUID(ctx context.Context, tenantID uint, uuid string) (*models.Lead, error) {
	parsedUUID, err := utils.ParseUUID(uuid)
	if err != nil {
		return nil, err
	}

	filter := models.LeadFilter{TenantID: &tenantID, UUID: &parsedUUID}
	leads, err := r.ByFilter(ctx, filter, "", 0, 0)
	if err != nil {
		return nil, err
	}

	if len(leads) == 0 {
		return nil, nil
	}

	return leads[0], nil
}

// ListByTenant retrieves leads belonging to a tenant with pagination
func (r *LeadRepositoryImpl) ListByTenant(ctx context.Context, tenantID uint, filter models.LeadFilter, limit, offset int) ([]*models.Lead, error) {
	filter.TenantID = &tenantID
	return r.ByFilter(ctx, filter, "created_at DESC", limit, offset)
}

// Update updates a lead
func (r *LeadRepositoryImpl) Update(ctx context.Context, lead *models.Lead) error {
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

	lead.UpdatedAt = utils.UTCNow()
	err = db.Save(lead).Error
	if err != nil {
		return err
	}

	return nil
}

// Delete removes a lead within its tenant scope
func (r *LeadRepositoryImpl) Delete(ctx context.Context, tenantID, leadID uint) error {
	db := r.getDB(ctx)
	return db.Where("tenant_id = ? AND id = ?", tenantID, leadID).
		Delete(&models.Lead{}).Error
}

// Claim assigns the lead to a user with a single conditional update. The
// predicate requires the row to be unowned and still new, so of any number of
// concurrent claimers exactly one sees RowsAffected == 1. A miss also covers
// leads outside the tenant, which keeps the conflict response from leaking
// existence across tenants.
func (r *LeadRepositoryImpl) Claim(ctx context.Context, tenantID, leadID, userID uint, at time.Time) (bool, error) {
	db := r.getDB(ctx)

	res := db.Model(&models.Lead{}).
		Where("tenant_id = ? AND id = ? AND user_id IS NULL AND status = ?",
			tenantID, leadID, models.LeadStatusNew).
		Updates(map[string]any{
			"user_id":     userID,
			"status":      models.LeadStatusInProgress,
			"captured_at": at,
			"updated_at":  at,
		})
	if res.Error != nil {
		return false, res.Error
	}

	return res.RowsAffected > 0, nil
}

// MarkLost flips a non-terminal lead to lost. A non-nil ownerID narrows the
// predicate to rows owned by that user, enforcing the agent restriction
// without a separate read.
func (r *LeadRepositoryImpl) MarkLost(ctx context.Context, tenantID, leadID uint, ownerID *uint, reason string) (bool, error) {
	db := r.getDB(ctx)

	query := db.Model(&models.Lead{}).
		Where("tenant_id = ? AND id = ? AND status NOT IN ?",
			tenantID, leadID, []string{models.LeadStatusConverted, models.LeadStatusLost})
	if ownerID != nil {
		query = query.Where("user_id = ?", *ownerID)
	}

	res := query.Updates(map[string]any{
		"status":      models.LeadStatusLost,
		"loss_reason": reason,
		"updated_at":  utils.UTCNow(),
	})
	if res.Error != nil {
		return false, res.Error
	}

	return res.RowsAffected > 0, nil
}

// MarkConverted flips a non-terminal lead to converted
func (r *LeadRepositoryImpl) MarkConverted(ctx context.Context, tenantID, leadID uint, at time.Time) (bool, error) {
	db := r.getDB(ctx)

	res := db.Model(&models.Lead{}).
		Where("tenant_id = ? AND id = ? AND status NOT IN ?",
			tenantID, leadID, []string{models.LeadStatusConverted, models.LeadStatusLost}).
		Updates(map[string]any{
			"status":       models.LeadStatusConverted,
			"converted_at": at,
			"updated_at":   at,
		})
	if res.Error != nil {
		return false, res.Error
	}

	return res.RowsAffected > 0, nil
}

// CountByStatus returns lead counts per status for a tenant
func (r *LeadRepositoryImpl) CountByStatus(ctx context.Context, tenantID uint) (map[string]int64, error) {
	db := r.getDB(ctx)

	type row struct {
		Status string
		Total  int64
	}
	var rows []row
	err := db.Model(&models.Lead{}).
		Select("status, COUNT(*) AS total").
		Where("tenant_id = ?", tenantID).
		Group("status").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	out := make(map[string]int64, len(rows))
	for _, r := range rows {
		out[r.Status] = r.Total
	}
	return out, nil
}

// ByFilter retrieves leads based on filter criteria
func (r *LeadRepositoryImpl) ByFilter(ctx context.Context, filter models.LeadFilter, orderBy string, limit, offset int) ([]*models.Lead, error) {
	db := r.getDB(ctx)

	var leads []*models.Lead
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

	query = query.Preload("User")

	err := query.Find(&leads).Error
	if err != nil {
		return nil, err
	}

	return leads, nil
}

// Count returns the number of leads matching the filter
func (r *LeadRepositoryImpl) Count(ctx context.Context, filter models.LeadFilter) (int64, error) {
	db := r.getDB(ctx)

	var count int64
	query := r.applyFilter(db.Model(&models.Lead{}), filter)

	err := query.Count(&count).Error
	if err != nil {
		return 0, err
	}

	return count, nil
}

// Exists checks if any lead matching the filter exists
func (r *LeadRepositoryImpl) Exists(ctx context.Context, filter models.LeadFilter) (bool, error) {
	count, err := r.Count(ctx, filter)
	if err != nil {
		return false, err
	}

	return count > 0, nil
}

// applyFilter applies filter conditions to the GORM query
func (r *LeadRepositoryImpl) applyFilter(db *gorm.DB, filter models.LeadFilter) *gorm.DB {
	if filter.ID != nil {
		db = db.Where("id = ?", *filter.ID)
	}
	if filter.UUID != nil {
		db = db.Where("uuid = ?", *filter.UUID)
	}
	if filter.TenantID != nil {
		db = db.Where("tenant_id = ?", *filter.TenantID)
	}
	if filter.UserID != nil {
		db = db.Where("user_id = ?", *filter.UserID)
	}
	if filter.Unassigned != nil && *filter.Unassigned {
		db = db.Where("user_id IS NULL")
	}
	if filter.Status != nil {
		db = db.Where("status = ?", *filter.Status)
	}
	if filter.Source != nil {
		db = db.Where("source = ?", *filter.Source)
	}
	if filter.Email != nil {
		db = db.Where("email = ?", *filter.Email)
	}
	if filter.Company != nil {
		db = db.Where("company ILIKE ?", "%"+*filter.Company+"%")
	}
	if filter.Search != nil {
		pattern := "%" + *filter.Search + "%"
		db = db.Where("name ILIKE ? OR email ILIKE ? OR company ILIKE ?", pattern, pattern, pattern)
	}
	if filter.CreatedAfter != nil {
		db = db.Where("created_at >= ?", *filter.CreatedAfter)
	}
	if filter.CreatedBefore != nil {
		db = db.Where("created_at < ?", *filter.CreatedBefore)
	}

	return db
}
