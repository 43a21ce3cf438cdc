// Package repository provides data access layer implementations and interfaces for database operations
package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/atlascrm/atlas/models"
	"github.com/atlascrm/atlas/utils"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// UserSessionRepositoryImpl implements UserSessionRepository interface
type UserSessionRepositoryImpl struct {
	*BaseRepository[models.UserSession, models.UserSessionFilter]
}

// NewUserSessionRepository creates a new user session repository
func NewUserSessionRepository(db *gorm.DB) UserSessionRepository {
	return &UserSessionRepositoryImpl{
		BaseRepository: NewBaseRepository[models.UserSession, models.UserSessionFilter](db),
	}
}

// BySessionToken retrieves a session by session token
func (r *UserSessionRepositoryImpl) BySessionToken(ctx context.Context, token string) (*models.UserSession, error) {
	db := r.getDB(ctx)

	var session models.UserSession
	err := db.Where("session_token = ? AND is_active = ? AND expires_at > ?",
		token, true, time.Now()).
		Preload("User").
		First(&session).Error

	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find session by token: %w", err)
	}

	return &session, nil
}

// ByRefreshToken retrieves a session by refresh token
func (r *UserSessionRepositoryImpl) ByRefreshToken(ctx context.Context, token string) (*models.UserSession, error) {
	db := r.getDB(ctx)

	var session models.UserSession
	err := db.Where("refresh_token = ? AND is_active = ? AND expires_at > ?",
		token, true, time.Now()).
		Preload("User").
		First(&session).Error

	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find session by refresh token: %w", err)
	}

	return &session, nil
}

// ListActiveSessionsByUser retrieves all active sessions for a user
func (r *UserSessionRepositoryImpl) ListActiveSessionsByUser(ctx context.Context, userID uint) ([]*models.UserSession, error) {
	filter := models.UserSessionFilter{
		UserID:   &userID,
		IsActive: utils.ToPtr(true),
	}

	sessions, err := r.ByFilter(ctx, filter, "created_at DESC", 0, 0)
	if err != nil {
		return nil, fmt.Errorf("failed to list active sessions by user: %w", err)
	}

	// Filter out expired sessions
	var activeSessions []*models.UserSession
	now := time.Now()
	for _, session := range sessions {
		if session.ExpiresAt.After(now) {
			activeSessions = append(activeSessions, session)
		}
	}

	return activeSessions, nil
}

// ExpireSession deactivates a single session
func (r *UserSessionRepositoryImpl) ExpireSession(ctx context.Context, sessionID uint) error {
	db := r.getDB(ctx)

	now := time.Now()
	return db.Model(&models.UserSession{}).
		Where("id = ?", sessionID).
		Updates(map[string]any{
			"is_active":        false,
			"refresh_token":    nil,
			"expires_at":       now,
			"last_accessed_at": now,
		}).Error
}

// ExpireAllUserSessions deactivates every active session of a user
func (r *UserSessionRepositoryImpl) ExpireAllUserSessions(ctx context.Context, userID uint) error {
	db := r.getDB(ctx)

	now := time.Now()
	return db.Model(&models.UserSession{}).
		Where("user_id = ? AND is_active = ?", userID, true).
		Updates(map[string]any{
			"is_active":        false,
			"refresh_token":    nil,
			"expires_at":       now,
			"last_accessed_at": now,
		}).Error
}

// CleanupExpiredSessions deactivates sessions that are past their expiry but still flagged active
func (r *UserSessionRepositoryImpl) CleanupExpiredSessions(ctx context.Context) error {
	db := r.getDB(ctx)

	return db.Model(&models.UserSession{}).
		Where("is_active = ? AND expires_at <= ?", true, time.Now()).
		Updates(map[string]any{
			"is_active":     false,
			"refresh_token": nil,
		}).Error
}

// GetLatestByCorrelationID retrieves the most recent session sharing a correlation id
func (r *UserSessionRepositoryImpl) GetLatestByCorrelationID(ctx context.Context, correlationID uuid.UUID) (*models.UserSession, error) {
	filter := models.UserSessionFilter{CorrelationID: &correlationID}
	sessions, err := r.ByFilter(ctx, filter, "created_at DESC", 1, 0)
	if err != nil {
		return nil, err
	}

	if len(sessions) == 0 {
		return nil, nil
	}

	return sessions[0], nil
}

// ByFilter retrieves sessions based on filter criteria
func (r *UserSessionRepositoryImpl) ByFilter(ctx context.Context, filter models.UserSessionFilter, orderBy string, limit, offset int) ([]*models.UserSession, error) {
	db := r.getDB(ctx)

	var sessions []*models.UserSession
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

	err := query.Find(&sessions).Error
	if err != nil {
		return nil, err
	}

	return sessions, nil
}

// Count returns the number of sessions matching the filter
func (r *UserSessionRepositoryImpl) Count(ctx context.Context, filter models.UserSessionFilter) (int64, error) {
	db := r.getDB(ctx)

	var count int64
	query := r.applyFilter(db.Model(&models.UserSession{}), filter)

	err := query.Count(&count).Error
	if err != nil {
		return 0, err
	}

	return count, nil
}

// Exists checks if any session matching the filter exists
func (r *UserSessionRepositoryImpl) Exists(ctx context.Context, filter models.UserSessionFilter) (bool, error) {
	count, err := r.Count(ctx, filter)
	if err != nil {
		return false, err
	}

	return count > 0, nil
}

// applyFilter applies filter conditions to the GORM query
func (r *UserSessionRepositoryImpl) applyFilter(db *gorm.DB, filter models.UserSessionFilter) *gorm.DB {
	if filter.ID != nil {
		db = db.Where("id = ?", *filter.ID)
	}
	if filter.CorrelationID != nil {
		db = db.Where("correlation_id = ?", *filter.CorrelationID)
	}
	if filter.UserID != nil {
		db = db.Where("user_id = ?", *filter.UserID)
	}
	if filter.IsActive != nil {
		db = db.Where("is_active = ?", *filter.IsActive)
	}
	if filter.IPAddress != nil {
		db = db.Where("ip_address = ?", *filter.IPAddress)
	}
	if filter.CreatedAfter != nil {
		db = db.Where("created_at >= ?", *filter.CreatedAfter)
	}
	if filter.CreatedBefore != nil {
		db = db.Where("created_at < ?", *filter.CreatedBefore)
	}
	if filter.ExpiresAfter != nil {
		db = db.Where("expires_at > ?", *filter.ExpiresAfter)
	}
	if filter.ExpiresBefore != nil {
		db = db.Where("expires_at <= ?", *filter.ExpiresBefore)
	}
	if filter.AccessedAfter != nil {
		db = db.Where("last_accessed_at >= ?", *filter.AccessedAfter)
	}
	if filter.AccessedBefore != nil {
		db = db.Where("last_accessed_at < ?", *filter.AccessedBefore)
	}
	if filter.IsExpired != nil && *filter.IsExpired {
		db = db.Where("expires_at <= ?", time.Now())
	}

	return db
}
