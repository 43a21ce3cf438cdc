package repository

import (
	"context"
	"errors"
	"time"

	"github.com/atlascrm/atlas/models"
	"github.com/atlascrm/atlas/utils"
	"gorm.io/gorm"
)

// TenantRepositoryImpl implements the TenantRepository interface
type TenantRepositoryImpl struct {
	*BaseRepository[models.Tenant, models.TenantFilter]
}

// NewTenantRepository creates a new tenant repository
func NewTenantRepository(db *gorm.DB) TenantRepository {
	return &TenantRepositoryImpl{
		BaseRepository: NewBaseRepository[models.Tenant, models.TenantFilter](db),
	}
}

// ByUUID retrieves a tenant by UUID
func (r *TenantRepositoryImpl) ByUUID(ctx context.Context, uuid string) (*models.Tenant, error) {
	parsedUUID, err := utils.ParseUUID(uuid)
	if err != nil {
		return nil, err
	}

	filter := models.TenantFilter{UUID: &parsedUUID}
	tenants, err := r.ByFilter(ctx, filter, "", 0, 0)
	if err != nil {
		return nil, err
	}

	if len(tenants) == 0 {
		return nil, nil
	}

	return tenants[0], nil
}

// ByIDWithPlan retrieves a tenant with its plan preloaded
func (r *TenantRepositoryImpl) ByIDWithPlan(ctx context.Context, id uint) (*models.Tenant, error) {
	db := r.getDB(ctx)

	var tenant models.Tenant
	err := db.Preload("Plan").Last(&tenant, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}

	return &tenant, nil
}

// Update updates a tenant
func (r *TenantRepositoryImpl) Update(ctx context.Context, tenant *models.Tenant) error {
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

	tenant.UpdatedAt = utils.UTCNow()
	err = db.Save(tenant).Error
	if err != nil {
		return err
	}

	return nil
}

// SetOwner points the tenant at its owning user
func (r *TenantRepositoryImpl) SetOwner(ctx context.Context, tenantID, userID uint) error {
	db := r.getDB(ctx)
	return db.Model(&models.Tenant{}).
		Where("id = ?", tenantID).
		Updates(map[string]any{
			"owner_user_id": userID,
			"updated_at":    utils.UTCNow(),
		}).Error
}

// ResetEmailUsage performs the lazy monthly reset. The predicate repeats the
// month comparison so concurrent senders cannot reset twice: only the update
// that still sees a stale reset date matches any row.
func (r *TenantRepositoryImpl) ResetEmailUsage(ctx context.Context, tenantID uint, now time.Time) (bool, error) {
	db := r.getDB(ctx)

	now = now.UTC()
	res := db.Model(&models.Tenant{}).
		Where("id = ?", tenantID).
		Where("date_trunc('month', email_reset_date AT TIME ZONE 'UTC') < date_trunc('month', ?::timestamptz AT TIME ZONE 'UTC')", now).
		Updates(map[string]any{
			"email_usage_count": 0,
			"email_reset_date":  now,
			"email_warned_90":   false,
			"updated_at":        now,
		})
	if res.Error != nil {
		return false, res.Error
	}

	return res.RowsAffected > 0, nil
}

// IncrementEmailUsage bumps the monthly counter with a single conditional
// update so the limit check and the increment cannot interleave with a
// concurrent sender. A nil limit never blocks.
func (r *TenantRepositoryImpl) IncrementEmailUsage(ctx context.Context, tenantID uint, limit *int) (int, bool, error) {
	db := r.getDB(ctx)

	query := db.Model(&models.Tenant{}).Where("id = ?", tenantID)
	if limit != nil {
		query = query.Where("email_usage_count < ?", *limit)
	}

	res := query.Updates(map[string]any{
		"email_usage_count": gorm.Expr("email_usage_count + 1"),
		"updated_at":        utils.UTCNow(),
	})
	if res.Error != nil {
		return 0, false, res.Error
	}
	if res.RowsAffected == 0 {
		return 0, false, nil
	}

	var usage int
	err := db.Model(&models.Tenant{}).
		Where("id = ?", tenantID).
		Select("email_usage_count").
		Scan(&usage).Error
	if err != nil {
		return 0, false, err
	}

	return usage, true, nil
}

// MarkWarned90 flips the warning flag; the false -> true transition happens in
// exactly one caller because the predicate requires the flag to still be unset
func (r *TenantRepositoryImpl) MarkWarned90(ctx context.Context, tenantID uint) (bool, error) {
	db := r.getDB(ctx)

	res := db.Model(&models.Tenant{}).
		Where("id = ? AND email_warned_90 = ?", tenantID, false).
		Updates(map[string]any{
			"email_warned_90": true,
			"updated_at":      utils.UTCNow(),
		})
	if res.Error != nil {
		return false, res.Error
	}

	return res.RowsAffected > 0, nil
}

// ByFilter retrieves tenants based on filter criteria
func (r *TenantRepositoryImpl) ByFilter(ctx context.Context, filter models.TenantFilter, orderBy string, limit, offset int) ([]*models.Tenant, error) {
	db := r.getDB(ctx)

	var tenants []*models.Tenant
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

	query = query.Preload("Plan")

	err := query.Find(&tenants).Error
	if err != nil {
		return nil, err
	}

	return tenants, nil
}

// Count returns the number of tenants matching the filter
func (r *TenantRepositoryImpl) Count(ctx context.Context, filter models.TenantFilter) (int64, error) {
	db := r.getDB(ctx)

	var count int64
	query := r.applyFilter(db.Model(&models.Tenant{}), filter)

	err := query.Count(&count).Error
	if err != nil {
		return 0, err
	}

	return count, nil
}

// Exists checks if any tenant matching the filter exists
func (r *TenantRepositoryImpl) Exists(ctx context.Context, filter models.TenantFilter) (bool, error) {
	count, err := r.Count(ctx, filter)
	if err != nil {
		return false, err
	}

	return count > 0, nil
}

// applyFilter applies filter conditions to the GORM query
func (r *TenantRepositoryImpl) applyFilter(db *gorm.DB, filter models.TenantFilter) *gorm.DB {
	if filter.ID != nil {
		db = db.Where("id = ?", *filter.ID)
	}
	if filter.UUID != nil {
		db = db.Where("uuid = ?", *filter.UUID)
	}
	if filter.Name != nil {
		db = db.Where("name ILIKE ?", "%"+*filter.Name+"%")
	}
	if filter.Domain != nil {
		db = db.Where("domain = ?", *filter.Domain)
	}
	if filter.PlanID != nil {
		db = db.Where("plan_id = ?", *filter.PlanID)
	}
	if filter.IsActive != nil {
		db = db.Where("is_active = ?", *filter.IsActive)
	}
	if filter.CreatedAfter != nil {
		db = db.Where("created_at >= ?", *filter.CreatedAfter)
	}
	if filter.CreatedBefore != nil {
		db = db.Where("created_at < ?", *filter.CreatedBefore)
	}

	return db
}
