package repository

import (
	"context"

	"github.com/atlascrm/atlas/models"
	"gorm.io/gorm"
)

// PlanRepositoryImpl implements the PlanRepository interface
type PlanRepositoryImpl struct {
	*BaseRepository[models.Plan, models.PlanFilter]
}

// NewPlanRepository creates a new plan repository
func NewPlanRepository(db *gorm.DB) PlanRepository {
	return &PlanRepositoryImpl{
		BaseRepository: NewBaseRepository[models.Plan, models.PlanFilter](db),
	}
}

// ByName retrieves a plan by its unique name
func (r *PlanRepositoryImpl) ByName(ctx context.Context, name string) (*models.Plan, error) {
	filter := models.PlanFilter{Name: &name}
	plans, err := r.ByFilter(ctx, filter, "", 0, 0)
	if err != nil {
		return nil, err
	}

	if len(plans) == 0 {
		return nil, nil
	}

	return plans[0], nil
}

// ByFilter retrieves plans based on filter criteria
func (r *PlanRepositoryImpl) ByFilter(ctx context.Context, filter models.PlanFilter, orderBy string, limit, offset int) ([]*models.Plan, error) {
	db := r.getDB(ctx)

	var plans []*models.Plan
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

	err := query.Find(&plans).Error
	if err != nil {
		return nil, err
	}

	return plans, nil
}

// Count returns the number of plans matching the filter
func (r *PlanRepositoryImpl) Count(ctx context.Context, filter models.PlanFilter) (int64, error) {
	db := r.getDB(ctx)

	var count int64
	query := r.applyFilter(db.Model(&models.Plan{}), filter)

	err := query.Count(&count).Error
	if err != nil {
		return 0, err
	}

	return count, nil
}

// Exists checks if any plan matching the filter exists
func (r *PlanRepositoryImpl) Exists(ctx context.Context, filter models.PlanFilter) (bool, error) {
	count, err := r.Count(ctx, filter)
	if err != nil {
		return false, err
	}

	return count > 0, nil
}

// applyFilter applies filter conditions to the GORM query
func (r *PlanRepositoryImpl) applyFilter(db *gorm.DB, filter models.PlanFilter) *gorm.DB {
	if filter.ID != nil {
		db = db.Where("id = ?", *filter.ID)
	}
	if filter.Name != nil {
		db = db.Where("name = ?", *filter.Name)
	}
	if filter.IsActive != nil {
		db = db.Where("is_active = ?", *filter.IsActive)
	}

	return db
}
