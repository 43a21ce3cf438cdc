package repository

import (
	"context"
	"time"

	"github.com/atlascrm/atlas/models"
	"github.com/atlascrm/atlas/utils"
	"gorm.io/gorm"
)

// DealRepositoryImpl implements the DealRepository interface
type DealRepositoryImpl struct {
	*BaseRepository[models.Deal, models.DealFilter]
}

// NewDealRepository creates a new deal repository
func NewDealRepository(db *gorm.DB) DealRepository {
	return &DealRepositoryImpl{
		BaseRepository: NewBaseRepository[models.Deal, models.DealFilter](db),
	}
}

// ByUUID retrieves a deal by UUID within one tenant
func (r *DealRepositoryImpl) ByUUID(ctx context.Context, tenantID uint, uuid string) (*models.Deal, error) {
	parsedUUID, err := utils.ParseUUID(uuid)
	if err != nil {
		return nil, err
	}

	filter := models.DealFilter{TenantID: &tenantID, UUID: &parsedUUID}
	deals, err := r.ByFilter(ctx, filter, "", 0, 0)
	if err != nil {
		return nil, err
	}

	if len(deals) == 0 {
		return nil, nil
	}

	return deals[0], nil
}

// ListByTenant retrieves deals belonging to a tenant with pagination
func (r *DealRepositoryImpl) ListByTenant(ctx context.Context, tenantID uint, filter models.DealFilter, limit, offset int) ([]*models.Deal, error) {
	filter.TenantID = &tenantID
	return r.ByFilter(ctx, filter, "created_at DESC", limit, offset)
}

// Update updates a deal
func (r *DealRepositoryImpl) Update(ctx context.Context, deal *models.Deal) error {
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

	deal.UpdatedAt = utils.UTCNow()
	err = db.Save(deal).Error
	if err != nil {
		return err
	}

	return nil
}

// UpdateStage moves a deal to the given stage unless it is already closed.
// The predicate excludes closed stages so a won or lost deal cannot be moved.
func (r *DealRepositoryImpl) UpdateStage(ctx context.Context, tenantID, dealID uint, stage string, closedAt *time.Time) (bool, error) {
	db := r.getDB(ctx)

	updates := map[string]any{
		"stage":      stage,
		"updated_at": utils.UTCNow(),
	}
	if closedAt != nil {
		updates["closed_at"] = *closedAt
	}

	res := db.Model(&models.Deal{}).
		Where("tenant_id = ? AND id = ? AND stage NOT IN ?",
			tenantID, dealID, []string{models.DealStageWon, models.DealStageLost}).
		Updates(updates)
	if res.Error != nil {
		return false, res.Error
	}

	return res.RowsAffected > 0, nil
}

// SumValueByStage returns deal counts and total value per stage for a tenant
func (r *DealRepositoryImpl) SumValueByStage(ctx context.Context, tenantID uint) (map[string]models.DealStageTotals, error) {
	db := r.getDB(ctx)

	type row struct {
		Stage string
		Count int64
		Total int64
	}
	var rows []row
	err := db.Model(&models.Deal{}).
		Select("stage, COUNT(*) AS count, COALESCE(SUM(value), 0) AS total").
		Where("tenant_id = ?", tenantID).
		Group("stage").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	out := make(map[string]models.DealStageTotals, len(rows))
	for _, r := range rows {
		out[r.Stage] = models.DealStageTotals{Count: r.Count, Value: r.Total}
	}
	return out, nil
}

// ByFilter retrieves deals based on filter criteria
func (r *DealRepositoryImpl) ByFilter(ctx context.Context, filter models.DealFilter, orderBy string, limit, offset int) ([]*models.Deal, error) {
	db := r.getDB(ctx)

	var deals []*models.Deal
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

	query = query.Preload("Contact").
		Preload("User")

	err := query.Find(&deals).Error
	if err != nil {
		return nil, err
	}

	return deals, nil
}

// Count returns the number of deals matching the filter
func (r *DealRepositoryImpl) Count(ctx context.Context, filter models.DealFilter) (int64, error) {
	db := r.getDB(ctx)

	var count int64
	query := r.applyFilter(db.Model(&models.Deal{}), filter)

	err := query.Count(&count).Error
	if err != nil {
		return 0, err
	}

	return count, nil
}

// Exists checks if any deal matching the filter exists
func (r *DealRepositoryImpl) Exists(ctx context.Context, filter models.DealFilter) (bool, error) {
	count, err := r.Count(ctx, filter)
	if err != nil {
		return false, err
	}

	return count > 0, nil
}

// applyFilter applies filter conditions to the GORM query
func (r *DealRepositoryImpl) applyFilter(db *gorm.DB, filter models.DealFilter) *gorm.DB {
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
	if filter.ContactID != nil {
		db = db.Where("contact_id = ?", *filter.ContactID)
	}
	if filter.CompanyID != nil {
		db = db.Where("company_id = ?", *filter.CompanyID)
	}
	if filter.Stage != nil {
		db = db.Where("stage = ?", *filter.Stage)
	}
	if filter.MinValue != nil {
		db = db.Where("value >= ?", *filter.MinValue)
	}
	if filter.MaxValue != nil {
		db = db.Where("value <= ?", *filter.MaxValue)
	}
	if filter.CreatedAfter != nil {
		db = db.Where("created_at >= ?", *filter.CreatedAfter)
	}
	if filter.CreatedBefore != nil {
		db = db.Where("created_at < ?", *filter.CreatedBefore)
	}

	return db
}
