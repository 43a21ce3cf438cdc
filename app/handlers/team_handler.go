// Package handlers contains HTTP request handlers and presentation layer logic for the API endpoints
package handlers

import (
	"context"
	"log"
	"time"

	"github.com/atlascrm/atlas/app/dto"
	businessflow "github.com/atlascrm/atlas/business_flow"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
)

// TeamHandlerInterface defines the contract for team management handlers
type TeamHandlerInterface interface {
	InviteUser(c fiber.Ctx) error
	ListTeam(c fiber.Ctx) error
	UpdateUser(c fiber.Ctx) error
	DeactivateUser(c fiber.Ctx) error
}

// TeamHandler handles team management HTTP requests
type TeamHandler struct {
	flow      businessflow.TeamFlow
	validator *validator.Validate
}

// NewTeamHandler creates a new team handler
func NewTeamHandler(flow businessflow.TeamFlow) *TeamHandler {
	return &TeamHandler{
		flow:      flow,
		validator: validator.New(),
	}
}

func (h *TeamHandler) ErrorResponse(c fiber.Ctx, statusCode int, message, errorCode string, details any) error {
	return c.Status(statusCode).JSON(dto.APIResponse{
		Success: false,
		Message: message,
		Error: dto.ErrorDetail{
			Code:    errorCode,
			Details: details,
		},
	})
}

func (h *TeamHandler) SuccessResponse(c fiber.Ctx, statusCode int, message string, data any) error {
	return c.Status(statusCode).JSON(dto.APIResponse{
		Success: true,
		Message: message,
		Data:    data,
	})
}

// InviteUser creates a new team member
// @Summary Invite User
// @Description Add a new member to the workspace. Owners and admins only; the plan's user limit applies.
// @Tags Team
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body dto.InviteUserRequest true "New member data"
// @Success 201 {object} dto.APIResponse{data=dto.UserDTO} "User invited successfully"
// @Failure 400 {object} dto.APIResponse "Validation error or plan limit reached"
// @Failure 401 {object} dto.APIResponse "Unauthorized"
// @Failure 403 {object} dto.APIResponse "Permission denied"
// @Failure 409 {object} dto.APIResponse "Email already exists"
// @Failure 500 {object} dto.APIResponse "Internal server error"
// @Router /api/v1/team [post]
func (h *TeamHandler) InviteUser(c fiber.Ctx) error {
	actor, ok := actorFromLocals(c)
	if !ok {
		return h.ErrorResponse(c, fiber.StatusUnauthorized, "Authentication context missing", "MISSING_AUTH_CONTEXT", nil)
	}

	var req dto.InviteUserRequest
	if err := c.Bind().JSON(&req); err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", "INVALID_REQUEST", err.Error())
	}

	// Validate request
	if err := h.validator.Struct(&req); err != nil {
		var validationErrors []string
		for _, err := range err.(validator.ValidationErrors) {
			validationErrors = append(validationErrors, getValidationErrorMessage(err))
		}
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Validation failed", "VALIDATION_ERROR", validationErrors)
	}

	metadata := businessflow.NewClientMetadata(c.IP(), c.Get("User-Agent"))

	result, err := h.flow.InviteUser(h.createRequestContext(c, "/api/v1/team"), actor, &req, metadata)
	if err != nil {
		if businessflow.IsPermissionDenied(err) {
			return h.ErrorResponse(c, fiber.StatusForbidden, "Permission denied", dto.ErrorPermissionDenied, nil)
		}
		if businessflow.IsEmailAlreadyExists(err) {
			return h.ErrorResponse(c, fiber.StatusConflict, "Email already exists", dto.ErrorEmailAlreadyExists, nil)
		}
		if be, ok := err.(*businessflow.BusinessError); ok && be.Code == "USER_LIMIT_REACHED" {
			return h.ErrorResponse(c, fiber.StatusBadRequest, be.Message, be.Code, nil)
		}

		log.Println("Invite user failed", err)
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "User invite failed", "USER_INVITE_FAILED", nil)
	}

	return h.SuccessResponse(c, fiber.StatusCreated, "User invited successfully", result)
}

// ListTeam returns every member of the workspace
// @Summary List Team
// @Description List all members of the workspace
// @Tags Team
// @Produce json
// @Security BearerAuth
// @Success 200 {object} dto.APIResponse{data=dto.ListTeamData} "Team retrieved successfully"
// @Failure 401 {object} dto.APIResponse "Unauthorized"
// @Failure 500 {object} dto.APIResponse "Internal server error"
// @Router /api/v1/team [get]
func (h *TeamHandler) ListTeam(c fiber.Ctx) error {
	actor, ok := actorFromLocals(c)
	if !ok {
		return h.ErrorResponse(c, fiber.StatusUnauthorized, "Authentication context missing", "MISSING_AUTH_CONTEXT", nil)
	}

	result, err := h.flow.ListTeam(h.createRequestContext(c, "/api/v1/team"), actor)
	if err != nil {
		log.Println("List team failed", err)
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Team listing failed", "TEAM_LIST_FAILED", nil)
	}

	return h.SuccessResponse(c, fiber.StatusOK, "Team retrieved successfully", result)
}

// UpdateUser edits a member's profile or role
// @Summary Update Team Member
// @Description Update a member's profile or role. Owners and admins only; the owner role cannot change.
// @Tags Team
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param uuid path string true "User UUID"
// @Param request body dto.UpdateUserRequest true "User fields to update"
// @Success 200 {object} dto.APIResponse{data=dto.UserDTO} "User updated successfully"
// @Failure 400 {object} dto.APIResponse "Validation error"
// @Failure 401 {object} dto.APIResponse "Unauthorized"
// @Failure 403 {object} dto.APIResponse "Permission denied"
// @Failure 404 {object} dto.APIResponse "User not found"
// @Failure 500 {object} dto.APIResponse "Internal server error"
// @Router /api/v1/team/{uuid} [put]
func (h *TeamHandler) UpdateUser(c fiber.Ctx) error {
	actor, ok := actorFromLocals(c)
	if !ok {
		return h.ErrorResponse(c, fiber.StatusUnauthorized, "Authentication context missing", "MISSING_AUTH_CONTEXT", nil)
	}

	userUUID := c.Params("uuid")

	var req dto.UpdateUserRequest
	if err := c.Bind().JSON(&req); err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", "INVALID_REQUEST", err.Error())
	}

	// Validate request
	if err := h.validator.Struct(&req); err != nil {
		var validationErrors []string
		for _, err := range err.(validator.ValidationErrors) {
			validationErrors = append(validationErrors, getValidationErrorMessage(err))
		}
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Validation failed", "VALIDATION_ERROR", validationErrors)
	}

	metadata := businessflow.NewClientMetadata(c.IP(), c.Get("User-Agent"))

	result, err := h.flow.UpdateUser(h.createRequestContext(c, "/api/v1/team/:uuid"), actor, userUUID, &req, metadata)
	if err != nil {
		if businessflow.IsPermissionDenied(err) {
			return h.ErrorResponse(c, fiber.StatusForbidden, "Permission denied", dto.ErrorPermissionDenied, nil)
		}
		if businessflow.IsUserNotFound(err) {
			return h.ErrorResponse(c, fiber.StatusNotFound, "User not found", dto.ErrorUserNotFound, nil)
		}

		log.Println("Update user failed", err)
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "User update failed", "USER_UPDATE_FAILED", nil)
	}

	return h.SuccessResponse(c, fiber.StatusOK, "User updated successfully", result)
}

// DeactivateUser disables a member
// @Summary Deactivate Team Member
// @Description Deactivate a member and expire all their sessions. Owners and admins only; self-deactivation is rejected.
// @Tags Team
// @Produce json
// @Security BearerAuth
// @Param uuid path string true "User UUID"
// @Success 200 {object} dto.APIResponse "User deactivated successfully"
// @Failure 400 {object} dto.APIResponse "Cannot deactivate yourself"
// @Failure 401 {object} dto.APIResponse "Unauthorized"
// @Failure 403 {object} dto.APIResponse "Permission denied"
// @Failure 404 {object} dto.APIResponse "User not found"
// @Failure 500 {object} dto.APIResponse "Internal server error"
// @Router /api/v1/team/{uuid} [delete]
func (h *TeamHandler) DeactivateUser(c fiber.Ctx) error {
	actor, ok := actorFromLocals(c)
	if !ok {
		return h.ErrorResponse(c, fiber.StatusUnauthorized, "Authentication context missing", "MISSING_AUTH_CONTEXT", nil)
	}

	userUUID := c.Params("uuid")

	metadata := businessflow.NewClientMetadata(c.IP(), c.Get("User-Agent"))

	if err := h.flow.DeactivateUser(h.createRequestContext(c, "/api/v1/team/:uuid"), actor, userUUID, metadata); err != nil {
		if businessflow.IsPermissionDenied(err) {
			return h.ErrorResponse(c, fiber.StatusForbidden, "Permission denied", dto.ErrorPermissionDenied, nil)
		}
		if businessflow.IsUserNotFound(err) {
			return h.ErrorResponse(c, fiber.StatusNotFound, "User not found", dto.ErrorUserNotFound, nil)
		}
		if businessflow.IsCannotDeactivateSelf(err) {
			return h.ErrorResponse(c, fiber.StatusBadRequest, "You cannot deactivate your own account", "CANNOT_DEACTIVATE_SELF", nil)
		}

		log.Println("Deactivate user failed", err)
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "User deactivation failed", "USER_DEACTIVATE_FAILED", nil)
	}

	return h.SuccessResponse(c, fiber.StatusOK, "User deactivated successfully", nil)
}

// createRequestContext creates a context with request-scoped values for observability and timeout
func (h *TeamHandler) createRequestContext(c fiber.Ctx, endpoint string) context.Context {
	return h.createRequestContextWithTimeout(c, endpoint, 30*time.Second)
}

func (h *TeamHandler) createRequestContextWithTimeout(c fiber.Ctx, endpoint string, timeout time.Duration) context.Context {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	ctx = context.WithValue(ctx, businessflow.RequestIDKey, c.Get("X-Request-ID"))
	ctx = context.WithValue(ctx, "user_agent", c.Get("User-Agent"))
	ctx = context.WithValue(ctx, "ip_address", c.IP())
	ctx = context.WithValue(ctx, "endpoint", endpoint)
	ctx = context.WithValue(ctx, "cancel_func", cancel)
	return ctx
}
