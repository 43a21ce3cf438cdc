// Package businessflow contains the core business logic and use cases for CRM workflows
package businessflow

import (
	"context"

	"github.com/atlascrm/atlas/app/dto"
	"github.com/atlascrm/atlas/models"
	"github.com/atlascrm/atlas/repository"
	"github.com/atlascrm/atlas/utils"
)

// NotificationFlow handles listing and acknowledging in-app notifications
type NotificationFlow interface {
	ListNotifications(ctx context.Context, actor Actor, req *dto.ListNotificationsRequest) (*dto.ListNotificationsData, error)
	MarkRead(ctx context.Context, actor Actor, notificationID uint) error
	MarkAllRead(ctx context.Context, actor Actor) (int64, error)
}

// NotificationFlowImpl implements the notification business flow
type NotificationFlowImpl struct {
	notificationRepo repository.NotificationRepository
}

// NewNotificationFlow creates a new notification flow instance
func NewNotificationFlow(notificationRepo repository.NotificationRepository) NotificationFlow {
	return &NotificationFlowImpl{notificationRepo: notificationRepo}
}

// ListNotifications returns a page of the actor's notifications plus the unread count
func (s *NotificationFlowImpl) ListNotifications(ctx context.Context, actor Actor, req *dto.ListNotificationsRequest) (*dto.ListNotificationsData, error) {
	req.Normalize()

	var notifications []*models.Notification
	var err error

	if req.UnreadOnly {
		filter := models.NotificationFilter{
			TenantID: &actor.TenantID,
			UserID:   &actor.UserID,
			Read:     utils.ToPtr(false),
		}
		notifications, err = s.notificationRepo.ByFilter(ctx, filter, "created_at DESC", req.PageSize, req.Offset())
	} else {
		notifications, err = s.notificationRepo.ListByUser(ctx, actor.TenantID, actor.UserID, req.PageSize, req.Offset())
	}
	if err != nil {
		return nil, NewBusinessError("NOTIFICATION_LIST_FAILED", "Notification listing failed", err)
	}

	unread, err := s.notificationRepo.CountUnread(ctx, actor.TenantID, actor.UserID)
	if err != nil {
		return nil, NewBusinessError("NOTIFICATION_LIST_FAILED", "Notification listing failed", err)
	}

	total, err := s.notificationRepo.Count(ctx, models.NotificationFilter{
		TenantID: &actor.TenantID,
		UserID:   &actor.UserID,
	})
	if err != nil {
		return nil, NewBusinessError("NOTIFICATION_LIST_FAILED", "Notification listing failed", err)
	}

	data := &dto.ListNotificationsData{
		Notifications: make([]dto.NotificationDTO, 0, len(notifications)),
		UnreadCount:   unread,
		Pagination: dto.Pagination{
			Page:     req.Page,
			PageSize: req.PageSize,
			Total:    total,
		},
	}
	for _, n := range notifications {
		data.Notifications = append(data.Notifications, ToNotificationDTO(*n))
	}

	return data, nil
}

// MarkRead acknowledges a single notification belonging to the actor
func (s *NotificationFlowImpl) MarkRead(ctx context.Context, actor Actor, notificationID uint) error {
	ok, err := s.notificationRepo.MarkRead(ctx, actor.TenantID, actor.UserID, notificationID)
	if err != nil {
		return NewBusinessError("NOTIFICATION_MARK_READ_FAILED", "Notification mark read failed", err)
	}
	if !ok {
		return ErrNotificationNotFound
	}
	return nil
}

// MarkAllRead acknowledges all unread notifications of the actor
func (s *NotificationFlowImpl) MarkAllRead(ctx context.Context, actor Actor) (int64, error) {
	n, err := s.notificationRepo.MarkAllRead(ctx, actor.TenantID, actor.UserID)
	if err != nil {
		return 0, NewBusinessError("NOTIFICATION_MARK_ALL_READ_FAILED", "Notification mark all read failed", err)
	}
	return n, nil
}
