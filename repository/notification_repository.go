package repository

import (
	"context"

	"github.com/atlascrm/atlas/models"
	"github.com/atlascrm/atlas/utils"
	"gorm.io/gorm"
)

// NotificationRepositoryImpl implements the NotificationRepository interface
type NotificationRepositoryImpl struct {
	*BaseRepository[models.Notification, models.NotificationFilter]
}

// NewNotificationRepository creates a new notification repository
func NewNotificationRepository(db *gorm.DB) NotificationRepository {
	return &NotificationRepositoryImpl{
		BaseRepository: NewBaseRepository[models.Notification, models.NotificationFilter](db),
	}
}

// ListByUser retrieves notifications for a user, newest first
func (r *NotificationRepositoryImpl) ListByUser(ctx context.Context, tenantID, userID uint, limit, offset int) ([]*models.Notification, error) {
	filter := models.NotificationFilter{TenantID: &tenantID, UserID: &userID}
	return r.ByFilter(ctx, filter, "created_at DESC", limit, offset)
}

// CountUnread returns the number of unread notifications for a user
func (r *NotificationRepositoryImpl) CountUnread(ctx context.Context, tenantID, userID uint) (int64, error) {
	filter := models.NotificationFilter{
		TenantID: &tenantID,
		UserID:   &userID,
		Read:     utils.ToPtr(false),
	}
	return r.Count(ctx, filter)
}

// MarkRead marks a single notification read; returns false when no unread row matched
func (r *NotificationRepositoryImpl) MarkRead(ctx context.Context, tenantID, userID, notificationID uint) (bool, error) {
	db := r.getDB(ctx)

	res := db.Model(&models.Notification{}).
		Where("tenant_id = ? AND user_id = ? AND id = ? AND read = ?",
			tenantID, userID, notificationID, false).
		Updates(map[string]any{
			"read":    true,
			"read_at": utils.UTCNow(),
		})
	if res.Error != nil {
		return false, res.Error
	}

	return res.RowsAffected > 0, nil
}

// MarkAllRead marks every unread notification of a user read, returning the count
func (r *NotificationRepositoryImpl) MarkAllRead(ctx context.Context, tenantID, userID uint) (int64, error) {
	db := r.getDB(ctx)

	res := db.Model(&models.Notification{}).
		Where("tenant_id = ? AND user_id = ? AND read = ?", tenantID, userID, false).
		Updates(map[string]any{
			"read":    true,
			"read_at": utils.UTCNow(),
		})
	if res.Error != nil {
		return 0, res.Error
	}

	return res.RowsAffected, nil
}

// ByFilter retrieves notifications based on filter criteria
func (r *NotificationRepositoryImpl) ByFilter(ctx context.Context, filter models.NotificationFilter, orderBy string, limit, offset int) ([]*models.Notification, error) {
	db := r.getDB(ctx)

	var notifications []*models.Notification
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

	err := query.Find(&notifications).Error
	if err != nil {
		return nil, err
	}

	return notifications, nil
}

// Count returns the number of notifications matching the filter
func (r *NotificationRepositoryImpl) Count(ctx context.Context, filter models.NotificationFilter) (int64, error) {
	db := r.getDB(ctx)

	var count int64
	query := r.applyFilter(db.Model(&models.Notification{}), filter)

	err := query.Count(&count).Error
	if err != nil {
		return 0, err
	}

	return count, nil
}

// Exists checks if any notification matching the filter exists
func (r *NotificationRepositoryImpl) Exists(ctx context.Context, filter models.NotificationFilter) (bool, error) {
	count, err := r.Count(ctx, filter)
	if err != nil {
		return false, err
	}

	return count > 0, nil
}

// applyFilter applies filter conditions to the GORM query
func (r *NotificationRepositoryImpl) applyFilter(db *gorm.DB, filter models.NotificationFilter) *gorm.DB {
	if filter.ID != nil {
		db = db.Where("id = ?", *filter.ID)
	}
	if filter.TenantID != nil {
		db = db.Where("tenant_id = ?", *filter.TenantID)
	}
	if filter.UserID != nil {
		db = db.Where("user_id = ?", *filter.UserID)
	}
	if filter.Type != nil {
		db = db.Where("type = ?", *filter.Type)
	}
	if filter.Read != nil {
		db = db.Where("read = ?", *filter.Read)
	}
	if filter.CreatedAfter != nil {
		db = db.Where("created_at >= ?", *filter.CreatedAfter)
	}
	if filter.CreatedBefore != nil {
		db = db.Where("created_at < ?", *filter.CreatedBefore)
	}

	return db
}
