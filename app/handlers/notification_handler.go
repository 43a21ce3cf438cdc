// Package handlers contains HTTP request handlers and presentation layer logic for the API endpoints
package handlers

import (
	"context"
	"log"
	"strconv"
	"time"

	"github.com/atlascrm/atlas/app/dto"
	businessflow "github.com/atlascrm/atlas/business_flow"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
)

// NotificationHandlerInterface defines the contract for notification handlers
type NotificationHandlerInterface interface {
	ListNotifications(c fiber.Ctx) error
	MarkRead(c fiber.Ctx) error
	MarkAllRead(c fiber.Ctx) error
	GetEmailUsage(c fiber.Ctx) error
}

// NotificationHandler handles notification-related HTTP requests
type NotificationHandler struct {
	flow      businessflow.NotificationFlow
	quotaFlow businessflow.EmailQuotaFlow
	validator *validator.Validate
}

// NewNotificationHandler creates a new notification handler
func NewNotificationHandler(flow businessflow.NotificationFlow, quotaFlow businessflow.EmailQuotaFlow) *NotificationHandler {
	return &NotificationHandler{
		flow:      flow,
		quotaFlow: quotaFlow,
		validator: validator.New(),
	}
}

func (h *NotificationHandler) ErrorResponse(c fiber.Ctx, statusCode int, message, errorCode string, details any) error {
	return c.Status(statusCode).JSON(dto.APIResponse{
		Success: false,
		Message: message,
		Error: dto.ErrorDetail{
			Code:    errorCode,
			Details: details,
		},
	})
}

func (h *NotificationHandler) SuccessResponse(c fiber.Ctx, statusCode int, message string, data any) error {
	return c.Status(statusCode).JSON(dto.APIResponse{
		Success: true,
		Message: message,
		Data:    data,
	})
}

// ListNotifications handles notification listing
// @Summary List Notifications
// @Description List the caller's in-app notifications with the unread count
// @Tags Notifications
// @Produce json
// @Security BearerAuth
// @Param page query int false "Page number"
// @Param page_size query int false "Page size"
// @Param unread_only query bool false "Only unread notifications"
// @Success 200 {object} dto.APIResponse{data=dto.ListNotificationsData} "Notifications retrieved successfully"
// @Failure 401 {object} dto.APIResponse "Unauthorized"
// @Failure 500 {object} dto.APIResponse "Internal server error"
// @Router /api/v1/notifications [get]
func (h *NotificationHandler) ListNotifications(c fiber.Ctx) error {
	actor, ok := actorFromLocals(c)
	if !ok {
		return h.ErrorResponse(c, fiber.StatusUnauthorized, "Authentication context missing", "MISSING_AUTH_CONTEXT", nil)
	}

	var req dto.ListNotificationsRequest
	if err := c.Bind().Query(&req); err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid query parameters", "INVALID_REQUEST", err.Error())
	}

	result, err := h.flow.ListNotifications(h.createRequestContext(c, "/api/v1/notifications"), actor, &req)
	if err != nil {
		log.Println("List notifications failed", err)
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Notification listing failed", "NOTIFICATION_LIST_FAILED", nil)
	}

	return h.SuccessResponse(c, fiber.StatusOK, "Notifications retrieved successfully", result)
}

// MarkRead marks one notification as read
// @Summary Mark Notification Read
// @Description Mark a single notification as read
// @Tags Notifications
// @Produce json
// @Security BearerAuth
// @Param id path int true "Notification ID"
// @Success 200 {object} dto.APIResponse "Notification marked read"
// @Failure 400 {object} dto.APIResponse "Invalid notification ID"
// @Failure 401 {object} dto.APIResponse "Unauthorized"
// @Failure 404 {object} dto.APIResponse "Notification not found"
// @Failure 500 {object} dto.APIResponse "Internal server error"
// @Router /api/v1/notifications/{id}/read [post]
func (h *NotificationHandler) MarkRead(c fiber.Ctx) error {
	actor, ok := actorFromLocals(c)
	if !ok {
		return h.ErrorResponse(c, fiber.StatusUnauthorized, "Authentication context missing", "MISSING_AUTH_CONTEXT", nil)
	}

	id, err := strconv.ParseUint(c.Params("id"), 10, 32)
	if err != nil || id == 0 {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid notification ID", "INVALID_NOTIFICATION_ID", nil)
	}

	if err := h.flow.MarkRead(h.createRequestContext(c, "/api/v1/notifications/:id/read"), actor, uint(id)); err != nil {
		if businessflow.IsNotificationNotFound(err) {
			return h.ErrorResponse(c, fiber.StatusNotFound, "Notification not found", dto.ErrorNotificationNotFound, nil)
		}

		log.Println("Mark notification read failed", err)
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Notification update failed", "NOTIFICATION_READ_FAILED", nil)
	}

	return h.SuccessResponse(c, fiber.StatusOK, "Notification marked read", nil)
}

// MarkAllRead marks every unread notification as read
// @Summary Mark All Notifications Read
// @Description Mark all of the caller's unread notifications as read
// @Tags Notifications
// @Produce json
// @Security BearerAuth
// @Success 200 {object} dto.APIResponse "Notifications marked read"
// @Failure 401 {object} dto.APIResponse "Unauthorized"
// @Failure 500 {object} dto.APIResponse "Internal server error"
// @Router /api/v1/notifications/read-all [post]
func (h *NotificationHandler) MarkAllRead(c fiber.Ctx) error {
	actor, ok := actorFromLocals(c)
	if !ok {
		return h.ErrorResponse(c, fiber.StatusUnauthorized, "Authentication context missing", "MISSING_AUTH_CONTEXT", nil)
	}

	updated, err := h.flow.MarkAllRead(h.createRequestContext(c, "/api/v1/notifications/read-all"), actor)
	if err != nil {
		log.Println("Mark all notifications read failed", err)
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Notification update failed", "NOTIFICATION_READ_FAILED", nil)
	}

	return h.SuccessResponse(c, fiber.StatusOK, "Notifications marked read", fiber.Map{
		"updated": updated,
	})
}

// GetEmailUsage reports the tenant's email quota state
// @Summary Get Email Usage
// @Description Report the tenant's monthly email counter, plan limit, and warning state
// @Tags Notifications
// @Produce json
// @Security BearerAuth
// @Success 200 {object} dto.APIResponse{data=dto.EmailUsageDTO} "Usage retrieved successfully"
// @Failure 401 {object} dto.APIResponse "Unauthorized"
// @Failure 500 {object} dto.APIResponse "Internal server error"
// @Router /api/v1/usage/email [get]
func (h *NotificationHandler) GetEmailUsage(c fiber.Ctx) error {
	actor, ok := actorFromLocals(c)
	if !ok {
		return h.ErrorResponse(c, fiber.StatusUnauthorized, "Authentication context missing", "MISSING_AUTH_CONTEXT", nil)
	}

	result, err := h.quotaFlow.GetEmailUsage(h.createRequestContext(c, "/api/v1/usage/email"), actor)
	if err != nil {
		log.Println("Get email usage failed", err)
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Usage fetch failed", "USAGE_FETCH_FAILED", nil)
	}

	return h.SuccessResponse(c, fiber.StatusOK, "Usage retrieved successfully", result)
}

// createRequestContext creates a context with request-scoped values for observability and timeout
func (h *NotificationHandler) createRequestContext(c fiber.Ctx, endpoint string) context.Context {
	return h.createRequestContextWithTimeout(c, endpoint, 30*time.Second)
}

func (h *NotificationHandler) createRequestContextWithTimeout(c fiber.Ctx, endpoint string, timeout time.Duration) context.Context {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	ctx = context.WithValue(ctx, businessflow.RequestIDKey, c.Get("X-Request-ID"))
	ctx = context.WithValue(ctx, "user_agent", c.Get("User-Agent"))
	ctx = context.WithValue(ctx, "ip_address", c.IP())
	ctx = context.WithValue(ctx, "endpoint", endpoint)
	ctx = context.WithValue(ctx, "cancel_func", cancel)
	return ctx
}
