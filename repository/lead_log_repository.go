package repository

import (
	"context"

	"github.com/atlascrm/atlas/models"
	"gorm.io/gorm"
)

// LeadLogRepositoryImpl implements the LeadLogRepository interface. The log
// is append-only; no update or delete paths exist here on purpose.
type LeadLogRepositoryImpl struct {
	*BaseRepository[models.LeadLog, models.LeadLogFilter]
}

// NewLeadLogRepository creates a new lead log repository
func NewLeadLogRepository(db *gorm.DB) LeadLogRepository {
	return &LeadLogRepositoryImpl{
		BaseRepository: NewBaseRepository[models.LeadLog, models.LeadLogFilter](db),
	}
}

// ListByLead retrieves log entries for a lead in causal order
func (r *LeadLogRepositoryImpl) ListByLead(ctx context.Context, leadID uint, limit, offset int) ([]*models.LeadLog, error) {
	filter := models.LeadLogFilter{LeadID: &leadID}
	return r.ByFilter(ctx, filter, "created_at ASC, id ASC", limit, offset)
}

// ByFilter retrieves log entries based on filter criteria
func (r *LeadLogRepositoryImpl) ByFilter(ctx context.Context, filter models.LeadLogFilter, orderBy string, limit, offset int) ([]*models.LeadLog, error) {
	db := r.getDB(ctx)

	var logs []*models.LeadLog
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

	err := query.Find(&logs).Error
	if err != nil {
		return nil, err
	}

	return logs, nil
}

// Count returns the number of log entries matching the filter
func (r *LeadLogRepositoryImpl) Count(ctx context.Context, filter models.LeadLogFilter) (int64, error) {
	db := r.getDB(ctx)

	var count int64
	query := r.applyFilter(db.Model(&models.LeadLog{}), filter)

	err := query.Count(&count).Error
	if err != nil {
		return 0, err
	}

	return count, nil
}

// Exists checks if any log entry matching the filter exists
func (r *LeadLogRepositoryImpl) Exists(ctx context.Context, filter models.LeadLogFilter) (bool, error) {
	count, err := r.Count(ctx, filter)
	if err != nil {
		return false, err
	}

	return count > 0, nil
}

// applyFilter applies filter conditions to the GORM query
func (r *LeadLogRepositoryImpl) applyFilter(db *gorm.DB, filter models.LeadLogFilter) *gorm.DB {
	if filter.ID != nil {
		db = db.Where("id = ?", *filter.ID)
	}
	if filter.LeadID != nil {
		db = db.Where("lead_id = ?", *filter.LeadID)
	}
	if filter.UserID != nil {
		db = db.Where("user_id = ?", *filter.UserID)
	}
	if filter.Action != nil {
		db = db.Where("action = ?", *filter.Action)
	}
	if filter.CreatedAfter != nil {
		db = db.Where("created_at >= ?", *filter.CreatedAfter)
	}
	if filter.CreatedBefore != nil {
		db = db.Where("created_at < ?", *filter.CreatedBefore)
	}

	return db
}
