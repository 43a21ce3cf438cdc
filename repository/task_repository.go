package repository

import (
	"context"
	"time"

	"github.com/atlascrm/atlas/models"
	"github.com/atlascrm/atlas/utils"
	"gorm.io/gorm"
)

// TaskRepositoryImpl implements the TaskRepository interface
type TaskRepositoryImpl struct {
	*BaseRepository[models.Task, models.TaskFilter]
}

// NewTaskRepository creates a new task repository
func NewTaskRepository(db *gorm.DB) TaskRepository {
	return &TaskRepositoryImpl{
		BaseRepository: NewBaseRepository[models.Task, models.TaskFilter](db),
	}
}

// ByUUID retrieves a task by UUID within one tenant
func (r *TaskRepositoryImpl) ByUUID(ctx context.Context, tenantID uint, uuid string) (*models.Task, error) {
	parsedUUID, err := utils.ParseUUID(uuid)
	if err != nil {
		return nil, err
	}

	filter := models.TaskFilter{TenantID: &tenantID, UUID: &parsedUUID}
	tasks, err := r.ByFilter(ctx, filter, "", 0, 0)
	if err != nil {
		return nil, err
	}

	if len(tasks) == 0 {
		return nil, nil
	}

	return tasks[0], nil
}

// ListByTenant retrieves tasks belonging to a tenant with pagination
func (r *TaskRepositoryImpl) ListByTenant(ctx context.Context, tenantID uint, filter models.TaskFilter, limit, offset int) ([]*models.Task, error) {
	filter.TenantID = &tenantID
	return r.ByFilter(ctx, filter, "due_at ASC NULLS LAST, created_at DESC", limit, offset)
}

// Update updates a task
func (r *TaskRepositoryImpl) Update(ctx context.Context, task *models.Task) error {
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

	task.UpdatedAt = utils.UTCNow()
	err = db.Save(task).Error
	if err != nil {
		return err
	}

	return nil
}

// Complete marks a pending task done; returns false when no pending row matched
func (r *TaskRepositoryImpl) Complete(ctx context.Context, tenantID, taskID uint, at time.Time) (bool, error) {
	db := r.getDB(ctx)

	res := db.Model(&models.Task{}).
		Where("tenant_id = ? AND id = ? AND status = ?",
			tenantID, taskID, models.TaskStatusPending).
		Updates(map[string]any{
			"status":       models.TaskStatusDone,
			"completed_at": at,
			"updated_at":   at,
		})
	if res.Error != nil {
		return false, res.Error
	}

	return res.RowsAffected > 0, nil
}

// DueForReminder lists pending tasks due before windowEnd with no reminder
// sent yet, oldest due date first
func (r *TaskRepositoryImpl) DueForReminder(ctx context.Context, windowEnd time.Time, limit int) ([]*models.Task, error) {
	db := r.getDB(ctx)

	var tasks []*models.Task
	query := db.
		Where("status = ? AND due_at IS NOT NULL AND due_at < ? AND reminder_sent_at IS NULL",
			models.TaskStatusPending, windowEnd).
		Order("due_at ASC").
		Preload("Assignee")
	if limit > 0 {
		query = query.Limit(limit)
	}

	if err := query.Find(&tasks).Error; err != nil {
		return nil, err
	}

	return tasks, nil
}

// MarkReminderSent stamps the reminder once; returns false when another
// worker already stamped it or the task is no longer pending
func (r *TaskRepositoryImpl) MarkReminderSent(ctx context.Context, taskID uint, at time.Time) (bool, error) {
	db := r.getDB(ctx)

	res := db.Model(&models.Task{}).
		Where("id = ? AND status = ? AND reminder_sent_at IS NULL",
			taskID, models.TaskStatusPending).
		Updates(map[string]any{
			"reminder_sent_at": at,
			"updated_at":       at,
		})
	if res.Error != nil {
		return false, res.Error
	}

	return res.RowsAffected > 0, nil
}

// ByFilter retrieves tasks based on filter criteria
func (r *TaskRepositoryImpl) ByFilter(ctx context.Context, filter models.TaskFilter, orderBy string, limit, offset int) ([]*models.Task, error) {
	db := r.getDB(ctx)

	var tasks []*models.Task
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

	query = query.Preload("Assignee")

	err := query.Find(&tasks).Error
	if err != nil {
		return nil, err
	}

	return tasks, nil
}

// Count returns the number of tasks matching the filter
func (r *TaskRepositoryImpl) Count(ctx context.Context, filter models.TaskFilter) (int64, error) {
	db := r.getDB(ctx)

	var count int64
	query := r.applyFilter(db.Model(&models.Task{}), filter)

	err := query.Count(&count).Error
	if err != nil {
		return 0, err
	}

	return count, nil
}

// Exists checks if any task matching the filter exists
func (r *TaskRepositoryImpl) Exists(ctx context.Context, filter models.TaskFilter) (bool, error) {
	count, err := r.Count(ctx, filter)
	if err != nil {
		return false, err
	}

	return count > 0, nil
}

// applyFilter applies filter conditions to the GORM query
func (r *TaskRepositoryImpl) applyFilter(db *gorm.DB, filter models.TaskFilter) *gorm.DB {
	if filter.ID != nil {
		db = db.Where("id = ?", *filter.ID)
	}
	if filter.UUID != nil {
		db = db.Where("uuid = ?", *filter.UUID)
	}
	if filter.TenantID != nil {
		db = db.Where("tenant_id = ?", *filter.TenantID)
	}
	if filter.AssigneeID != nil {
		db = db.Where("assignee_id = ?", *filter.AssigneeID)
	}
	if filter.LeadID != nil {
		db = db.Where("lead_id = ?", *filter.LeadID)
	}
	if filter.ContactID != nil {
		db = db.Where("contact_id = ?", *filter.ContactID)
	}
	if filter.DealID != nil {
		db = db.Where("deal_id = ?", *filter.DealID)
	}
	if filter.Status != nil {
		db = db.Where("status = ?", *filter.Status)
	}
	if filter.Priority != nil {
		db = db.Where("priority = ?", *filter.Priority)
	}
	if filter.DueBefore != nil {
		db = db.Where("due_at < ?", *filter.DueBefore)
	}
	if filter.DueAfter != nil {
		db = db.Where("due_at >= ?", *filter.DueAfter)
	}
	if filter.CreatedAfter != nil {
		db = db.Where("created_at >= ?", *filter.CreatedAfter)
	}
	if filter.CreatedBefore != nil {
		db = db.Where("created_at < ?", *filter.CreatedBefore)
	}

	return db
}
