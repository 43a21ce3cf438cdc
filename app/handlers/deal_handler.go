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

// DealHandlerInterface defines the contract for deal handlers
type DealHandlerInterface interface {
	CreateDeal(c fiber.Ctx) error
	ListDeals(c fiber.Ctx) error
	GetDeal(c fiber.Ctx) error
	UpdateDeal(c fiber.Ctx) error
	MoveStage(c fiber.Ctx) error
}

// DealHandler handles deal-related HTTP requests
type DealHandler struct {
	flow      businessflow.DealFlow
	validator *validator.Validate
}

// NewDealHandler creates a new deal handler
func NewDealHandler(flow businessflow.DealFlow) *DealHandler {
	return &DealHandler{
		flow:      flow,
		validator: validator.New(),
	}
}

func (h *DealHandler) ErrorResponse(c fiber.Ctx, statusCode int, message, errorCode string, details any) error {
	return c.Status(statusCode).JSON(dto.APIResponse{
		Success: false,
		Message: message,
		Error: dto.ErrorDetail{
			Code:    errorCode,
			Details: details,
		},
	})
}

func (h *DealHandler) SuccessResponse(c fiber.Ctx, statusCode int, message string, data any) error {
	return c.Status(statusCode).JSON(dto.APIResponse{
		Success: true,
		Message: message,
		Data:    data,
	})
}

// CreateDeal handles deal creation
// @Summary Create Deal
// @Description Create a new deal attached to a contact
// @Tags Deals
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body dto.CreateDealRequest true "Deal data"
// @Success 201 {object} dto.APIResponse{data=dto.DealDTO} "Deal created successfully"
// @Failure 400 {object} dto.APIResponse "Validation error"
// @Failure 401 {object} dto.APIResponse "Unauthorized"
// @Failure 404 {object} dto.APIResponse "Contact or company not found"
// @Failure 500 {object} dto.APIResponse "Internal server error"
// @Router /api/v1/deals [post]
func (h *DealHandler) CreateDeal(c fiber.Ctx) error {
	actor, ok := actorFromLocals(c)
	if !ok {
		return h.ErrorResponse(c, fiber.StatusUnauthorized, "Authentication context missing", "MISSING_AUTH_CONTEXT", nil)
	}

	var req dto.CreateDealRequest
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

	result, err := h.flow.CreateDeal(h.createRequestContext(c, "/api/v1/deals"), actor, &req)
	if err != nil {
		if businessflow.IsContactNotFound(err) {
			return h.ErrorResponse(c, fiber.StatusNotFound, "Contact not found", dto.ErrorContactNotFound, nil)
		}
		if businessflow.IsCompanyNotFound(err) {
			return h.ErrorResponse(c, fiber.StatusNotFound, "Company not found", dto.ErrorCompanyNotFound, nil)
		}

		log.Println("Create deal failed", err)
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Deal creation failed", "DEAL_CREATE_FAILED", nil)
	}

	return h.SuccessResponse(c, fiber.StatusCreated, "Deal created successfully", result)
}

// ListDeals handles deal listing with filters
// @Summary List Deals
// @Description List deals with pagination and optional stage, contact, and ownership filters
// @Tags Deals
// @Produce json
// @Security BearerAuth
// @Param page query int false "Page number"
// @Param page_size query int false "Page size"
// @Param stage query string false "Stage filter" Enums(qualification, proposal, negotiation, won, lost)
// @Param contact_id query int false "Contact ID filter"
// @Param mine query bool false "Only deals owned by the caller"
// @Success 200 {object} dto.APIResponse{data=dto.ListDealsData} "Deals retrieved successfully"
// @Failure 400 {object} dto.APIResponse "Validation error"
// @Failure 401 {object} dto.APIResponse "Unauthorized"
// @Failure 500 {object} dto.APIResponse "Internal server error"
// @Router /api/v1/deals [get]
func (h *DealHandler) ListDeals(c fiber.Ctx) error {
	actor, ok := actorFromLocals(c)
	if !ok {
		return h.ErrorResponse(c, fiber.StatusUnauthorized, "Authentication context missing", "MISSING_AUTH_CONTEXT", nil)
	}

	var req dto.ListDealsRequest
	if err := c.Bind().Query(&req); err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid query parameters", "INVALID_REQUEST", err.Error())
	}

	// Validate request
	if err := h.validator.Struct(&req); err != nil {
		var validationErrors []string
		for _, err := range err.(validator.ValidationErrors) {
			validationErrors = append(validationErrors, getValidationErrorMessage(err))
		}
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Validation failed", "VALIDATION_ERROR", validationErrors)
	}

	result, err := h.flow.ListDeals(h.createRequestContext(c, "/api/v1/deals"), actor, &req)
	if err != nil {
		log.Println("List deals failed", err)
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Deal listing failed", "DEAL_LIST_FAILED", nil)
	}

	return h.SuccessResponse(c, fiber.StatusOK, "Deals retrieved successfully", result)
}

// GetDeal returns one deal
// @Summary Get Deal
// @Description Retrieve a single deal
// @Tags Deals
// @Produce json
// @Security BearerAuth
// @Param uuid path string true "Deal UUID"
// @Success 200 {object} dto.APIResponse{data=dto.DealDTO} "Deal retrieved successfully"
// @Failure 401 {object} dto.APIResponse "Unauthorized"
// @Failure 404 {object} dto.APIResponse "Deal not found"
// @Failure 500 {object} dto.APIResponse "Internal server error"
// @Router /api/v1/deals/{uuid} [get]
func (h *DealHandler) GetDeal(c fiber.Ctx) error {
	actor, ok := actorFromLocals(c)
	if !ok {
		return h.ErrorResponse(c, fiber.StatusUnauthorized, "Authentication context missing", "MISSING_AUTH_CONTEXT", nil)
	}

	dealUUID := c.Params("uuid")

	result, err := h.flow.GetDeal(h.createRequestContext(c, "/api/v1/deals/:uuid"), actor, dealUUID)
	if err != nil {
		if businessflow.IsDealNotFound(err) {
			return h.ErrorResponse(c, fiber.StatusNotFound, "Deal not found", dto.ErrorDealNotFound, nil)
		}

		log.Println("Get deal failed", err)
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Deal fetch failed", "DEAL_FETCH_FAILED", nil)
	}

	return h.SuccessResponse(c, fiber.StatusOK, "Deal retrieved successfully", result)
}

// UpdateDeal edits deal fields
// @Summary Update Deal
// @Description Update deal fields. Stage changes go through the stage endpoint.
// @Tags Deals
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param uuid path string true "Deal UUID"
// @Param request body dto.UpdateDealRequest true "Deal fields to update"
// @Success 200 {object} dto.APIResponse{data=dto.DealDTO} "Deal updated successfully"
// @Failure 400 {object} dto.APIResponse "Validation error"
// @Failure 401 {object} dto.APIResponse "Unauthorized"
// @Failure 404 {object} dto.APIResponse "Deal not found"
// @Failure 409 {object} dto.APIResponse "Deal already closed"
// @Failure 500 {object} dto.APIResponse "Internal server error"
// @Router /api/v1/deals/{uuid} [put]
func (h *DealHandler) UpdateDeal(c fiber.Ctx) error {
	actor, ok := actorFromLocals(c)
	if !ok {
		return h.ErrorResponse(c, fiber.StatusUnauthorized, "Authentication context missing", "MISSING_AUTH_CONTEXT", nil)
	}

	dealUUID := c.Params("uuid")

	var req dto.UpdateDealRequest
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

	result, err := h.flow.UpdateDeal(h.createRequestContext(c, "/api/v1/deals/:uuid"), actor, dealUUID, &req)
	if err != nil {
		if businessflow.IsDealNotFound(err) {
			return h.ErrorResponse(c, fiber.StatusNotFound, "Deal not found", dto.ErrorDealNotFound, nil)
		}
		if businessflow.IsDealClosed(err) {
			return h.ErrorResponse(c, fiber.StatusConflict, "Deal is already closed", dto.ErrorDealClosed, nil)
		}

		log.Println("Update deal failed", err)
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Deal update failed", "DEAL_UPDATE_FAILED", nil)
	}

	return h.SuccessResponse(c, fiber.StatusOK, "Deal updated successfully", result)
}

// MoveStage moves a deal through the pipeline
// @Summary Move Deal Stage
// @Description Move a deal to another pipeline stage. Closed deals cannot move.
// @Tags Deals
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param uuid path string true "Deal UUID"
// @Param request body dto.MoveDealStageRequest true "Target stage"
// @Success 200 {object} dto.APIResponse{data=dto.DealDTO} "Deal stage moved"
// @Failure 400 {object} dto.APIResponse "Validation error"
// @Failure 401 {object} dto.APIResponse "Unauthorized"
// @Failure 404 {object} dto.APIResponse "Deal not found"
// @Failure 409 {object} dto.APIResponse "Deal already closed"
// @Failure 500 {object} dto.APIResponse "Internal server error"
// @Router /api/v1/deals/{uuid}/stage [post]
func (h *DealHandler) MoveStage(c fiber.Ctx) error {
	actor, ok := actorFromLocals(c)
	if !ok {
		return h.ErrorResponse(c, fiber.StatusUnauthorized, "Authentication context missing", "MISSING_AUTH_CONTEXT", nil)
	}

	dealUUID := c.Params("uuid")

	var req dto.MoveDealStageRequest
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

	result, err := h.flow.MoveStage(h.createRequestContext(c, "/api/v1/deals/:uuid/stage"), actor, dealUUID, &req, metadata)
	if err != nil {
		if businessflow.IsDealNotFound(err) {
			return h.ErrorResponse(c, fiber.StatusNotFound, "Deal not found", dto.ErrorDealNotFound, nil)
		}
		if businessflow.IsInvalidDealStage(err) {
			return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid deal stage", dto.ErrorInvalidDealStage, nil)
		}
		if businessflow.IsDealClosed(err) {
			return h.ErrorResponse(c, fiber.StatusConflict, "Deal is already closed", dto.ErrorDealClosed, nil)
		}

		log.Println("Move deal stage failed", err)
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Deal stage move failed", "DEAL_STAGE_FAILED", nil)
	}

	return h.SuccessResponse(c, fiber.StatusOK, "Deal stage moved", result)
}

// createRequestContext creates a context with request-scoped values for observability and timeout
func (h *DealHandler) createRequestContext(c fiber.Ctx, endpoint string) context.Context {
	return h.createRequestContextWithTimeout(c, endpoint, 30*time.Second)
}

func (h *DealHandler) createRequestContextWithTimeout(c fiber.Ctx, endpoint string, timeout time.Duration) context.Context {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	ctx = context.WithValue(ctx, businessflow.RequestIDKey, c.Get("X-Request-ID"))
	ctx = context.WithValue(ctx, "user_agent", c.Get("User-Agent"))
	ctx = context.WithValue(ctx, "ip_address", c.IP())
	ctx = context.WithValue(ctx, "endpoint", endpoint)
	ctx = context.WithValue(ctx, "cancel_func", cancel)
	return ctx
}
