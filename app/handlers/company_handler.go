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

// CompanyHandlerInterface defines the contract for company handlers
type CompanyHandlerInterface interface {
	CreateCompany(c fiber.Ctx) error
	ListCompanies(c fiber.Ctx) error
	GetCompany(c fiber.Ctx) error
	UpdateCompany(c fiber.Ctx) error
}

// CompanyHandler handles company-related HTTP requests
type CompanyHandler struct {
	flow      businessflow.CompanyFlow
	validator *validator.Validate
}

// NewCompanyHandler creates a new company handler
func NewCompanyHandler(flow businessflow.CompanyFlow) *CompanyHandler {
	return &CompanyHandler{
		flow:      flow,
		validator: validator.New(),
	}
}

func (h *CompanyHandler) ErrorResponse(c fiber.Ctx, statusCode int, message, errorCode string, details any) error {
	return c.Status(statusCode).JSON(dto.APIResponse{
		Success: false,
		Message: message,
		Error: dto.ErrorDetail{
			Code:    errorCode,
			Details: details,
		},
	})
}

func (h *CompanyHandler) SuccessResponse(c fiber.Ctx, statusCode int, message string, data any) error {
	return c.Status(statusCode).JSON(dto.APIResponse{
		Success: true,
		Message: message,
		Data:    data,
	})
}

// CreateCompany handles company creation
// @Summary Create Company
// @Description Create a new company record
// @Tags Companies
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body dto.CreateCompanyRequest true "Company data"
// @Success 201 {object} dto.APIResponse{data=dto.CompanyDTO} "Company created successfully"
// @Failure 400 {object} dto.APIResponse "Validation error"
// @Failure 401 {object} dto.APIResponse "Unauthorized"
// @Failure 500 {object} dto.APIResponse "Internal server error"
// @Router /api/v1/companies [post]
func (h *CompanyHandler) CreateCompany(c fiber.Ctx) error {
	actor, ok := actorFromLocals(c)
	if !ok {
		return h.ErrorResponse(c, fiber.StatusUnauthorized, "Authentication context missing", "MISSING_AUTH_CONTEXT", nil)
	}

	var req dto.CreateCompanyRequest
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

	result, err := h.flow.CreateCompany(h.createRequestContext(c, "/api/v1/companies"), actor, &req)
	if err != nil {
		log.Println("Create company failed", err)
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Company creation failed", "COMPANY_CREATE_FAILED", nil)
	}

	return h.SuccessResponse(c, fiber.StatusCreated, "Company created successfully", result)
}

// ListCompanies handles company listing
// @Summary List Companies
// @Description List companies with pagination and optional name search
// @Tags Companies
// @Produce json
// @Security BearerAuth
// @Param page query int false "Page number"
// @Param page_size query int false "Page size"
// @Param search query string false "Name search"
// @Success 200 {object} dto.APIResponse{data=dto.ListCompaniesData} "Companies retrieved successfully"
// @Failure 400 {object} dto.APIResponse "Validation error"
// @Failure 401 {object} dto.APIResponse "Unauthorized"
// @Failure 500 {object} dto.APIResponse "Internal server error"
// @Router /api/v1/companies [get]
func (h *CompanyHandler) ListCompanies(c fiber.Ctx) error {
	actor, ok := actorFromLocals(c)
	if !ok {
		return h.ErrorResponse(c, fiber.StatusUnauthorized, "Authentication context missing", "MISSING_AUTH_CONTEXT", nil)
	}

	var req dto.ListCompaniesRequest
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

	result, err := h.flow.ListCompanies(h.createRequestContext(c, "/api/v1/companies"), actor, &req)
	if err != nil {
		log.Println("List companies failed", err)
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Company listing failed", "COMPANY_LIST_FAILED", nil)
	}

	return h.SuccessResponse(c, fiber.StatusOK, "Companies retrieved successfully", result)
}

// GetCompany returns one company
// @Summary Get Company
// @Description Retrieve a single company
// @Tags Companies
// @Produce json
// @Security BearerAuth
// @Param uuid path string true "Company UUID"
// @Success 200 {object} dto.APIResponse{data=dto.CompanyDTO} "Company retrieved successfully"
// @Failure 401 {object} dto.APIResponse "Unauthorized"
// @Failure 404 {object} dto.APIResponse "Company not found"
// @Failure 500 {object} dto.APIResponse "Internal server error"
// @Router /api/v1/companies/{uuid} [get]
func (h *CompanyHandler) GetCompany(c fiber.Ctx) error {
	actor, ok := actorFromLocals(c)
	if !ok {
		return h.ErrorResponse(c, fiber.StatusUnauthorized, "Authentication context missing", "MISSING_AUTH_CONTEXT", nil)
	}

	companyUUID := c.Params("uuid")

	result, err := h.flow.GetCompany(h.createRequestContext(c, "/api/v1/companies/:uuid"), actor, companyUUID)
	if err != nil {
		if businessflow.IsCompanyNotFound(err) {
			return h.ErrorResponse(c, fiber.StatusNotFound, "Company not found", dto.ErrorCompanyNotFound, nil)
		}

		log.Println("Get company failed", err)
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Company fetch failed", "COMPANY_FETCH_FAILED", nil)
	}

	return h.SuccessResponse(c, fiber.StatusOK, "Company retrieved successfully", result)
}

// UpdateCompany edits company fields
// @Summary Update Company
// @Description Update company profile fields
// @Tags Companies
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param uuid path string true "Company UUID"
// @Param request body dto.UpdateCompanyRequest true "Company fields to update"
// @Success 200 {object} dto.APIResponse{data=dto.CompanyDTO} "Company updated successfully"
// @Failure 400 {object} dto.APIResponse "Validation error"
// @Failure 401 {object} dto.APIResponse "Unauthorized"
// @Failure 404 {object} dto.APIResponse "Company not found"
// @Failure 500 {object} dto.APIResponse "Internal server error"
// @Router /api/v1/companies/{uuid} [put]
func (h *CompanyHandler) UpdateCompany(c fiber.Ctx) error {
	actor, ok := actorFromLocals(c)
	if !ok {
		return h.ErrorResponse(c, fiber.StatusUnauthorized, "Authentication context missing", "MISSING_AUTH_CONTEXT", nil)
	}

	companyUUID := c.Params("uuid")

	var req dto.UpdateCompanyRequest
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

	result, err := h.flow.UpdateCompany(h.createRequestContext(c, "/api/v1/companies/:uuid"), actor, companyUUID, &req)
	if err != nil {
		if businessflow.IsCompanyNotFound(err) {
			return h.ErrorResponse(c, fiber.StatusNotFound, "Company not found", dto.ErrorCompanyNotFound, nil)
		}

		log.Println("Update company failed", err)
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Company update failed", "COMPANY_UPDATE_FAILED", nil)
	}

	return h.SuccessResponse(c, fiber.StatusOK, "Company updated successfully", result)
}

// createRequestContext creates a context with request-scoped values for observability and timeout
func (h *CompanyHandler) createRequestContext(c fiber.Ctx, endpoint string) context.Context {
	return h.createRequestContextWithTimeout(c, endpoint, 30*time.Second)
}

func (h *CompanyHandler) createRequestContextWithTimeout(c fiber.Ctx, endpoint string, timeout time.Duration) context.Context {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	ctx = context.WithValue(ctx, businessflow.RequestIDKey, c.Get("X-Request-ID"))
	ctx = context.WithValue(ctx, "user_agent", c.Get("User-Agent"))
	ctx = context.WithValue(ctx, "ip_address", c.IP())
	ctx = context.WithValue(ctx, "endpoint", endpoint)
	ctx = context.WithValue(ctx, "cancel_func", cancel)
	return ctx
}
