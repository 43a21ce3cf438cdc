// Package handlers contains HTTP request handlers and presentation layer logic for the API endpoints
package handlers

import (
	"context"
	"log"
	"time"

	"github.com/atlascrm/atlas/app/dto"
	businessflow "github.com/atlascrm/atlas/business_flow"
	"github.com/gofiber/fiber/v3"
)

// DashboardHandlerInterface defines the contract for dashboard handlers
type DashboardHandlerInterface interface {
	GetDashboard(c fiber.Ctx) error
}

// DashboardHandler handles dashboard-related HTTP requests
type DashboardHandler struct {
	flow businessflow.DashboardFlow
}

// NewDashboardHandler creates a new dashboard handler
func NewDashboardHandler(flow businessflow.DashboardFlow) *DashboardHandler {
	return &DashboardHandler{flow: flow}
}

func (h *DashboardHandler) ErrorResponse(c fiber.Ctx, statusCode int, message, errorCode string, details any) error {
	return c.Status(statusCode).JSON(dto.APIResponse{
		Success: false,
		Message: message,
		Error: dto.ErrorDetail{
			Code:    errorCode,
			Details: details,
		},
	})
}

func (h *DashboardHandler) SuccessResponse(c fiber.Ctx, statusCode int, message string, data any) error {
	return c.Status(statusCode).JSON(dto.APIResponse{
		Success: true,
		Message: message,
		Data:    data,
	})
}

// GetDashboard returns the workspace summary
// @Summary Get Dashboard
// @Description Retrieve the aggregated workspace summary: lead counts, pipeline totals, task counts, and email usage
// @Tags Dashboard
// @Produce json
// @Security BearerAuth
// @Success 200 {object} dto.APIResponse{data=dto.DashboardData} "Dashboard retrieved successfully"
// @Failure 401 {object} dto.APIResponse "Unauthorized"
// @Failure 500 {object} dto.APIResponse "Internal server error"
// @Router /api/v1/dashboard [get]
func (h *DashboardHandler) GetDashboard(c fiber.Ctx) error {
	actor, ok := actorFromLocals(c)
	if !ok {
		return h.ErrorResponse(c, fiber.StatusUnauthorized, "Authentication context missing", "MISSING_AUTH_CONTEXT", nil)
	}

	result, err := h.flow.GetDashboard(h.createRequestContext(c, "/api/v1/dashboard"), actor)
	if err != nil {
		log.Println("Get dashboard failed", err)
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Dashboard fetch failed", "DASHBOARD_FETCH_FAILED", nil)
	}

	return h.SuccessResponse(c, fiber.StatusOK, "Dashboard retrieved successfully", result)
}

// createRequestContext creates a context with request-scoped values for observability and timeout
func (h *DashboardHandler) createRequestContext(c fiber.Ctx, endpoint string) context.Context {
	return h.createRequestContextWithTimeout(c, endpoint, 30*time.Second)
}

func (h *DashboardHandler) createRequestContextWithTimeout(c fiber.Ctx, endpoint string, timeout time.Duration) context.Context {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	ctx = context.WithValue(ctx, businessflow.RequestIDKey, c.Get("X-Request-ID"))
	ctx = context.WithValue(ctx, "user_agent", c.Get("User-Agent"))
	ctx = context.WithValue(ctx, "ip_address", c.IP())
	ctx = context.WithValue(ctx, "endpoint", endpoint)
	ctx = context.WithValue(ctx, "cancel_func", cancel)
	return ctx
}
