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

// ContactHandlerInterface defines the contract for contact handlers
type ContactHandlerInterface interface {
	CreateContact(c fiber.Ctx) error
	ListContacts(c fiber.Ctx) error
	GetContact(c fiber.Ctx) error
	UpdateContact(c fiber.Ctx) error
}

// ContactHandler handles contact-related HTTP requests
type ContactHandler struct {
	flow      businessflow.ContactFlow
	validator *validator.Validate
}

// NewContactHandler creates a new contact handler
func NewContactHandler(flow businessflow.ContactFlow) *ContactHandler {
	return &ContactHandler{
		flow:      flow,
		validator: validator.New(),
	}
}

func (h *ContactHandler) ErrorResponse(c fiber.Ctx, statusCode int, message, errorCode string, details any) error {
	return c.Status(statusCode).JSON(dto.APIResponse{
		Success: false,
		Message: message,
		Error: dto.ErrorDetail{
			Code:    errorCode,
			Details: details,
		},
	})
}

func (h *ContactHandler) SuccessResponse(c fiber.Ctx, statusCode int, message string, data any) error {
	return c.Status(statusCode).JSON(dto.APIResponse{
		Success: true,
		Message: message,
		Data:    data,
	})
}

// CreateContact handles contact creation
// @Summary Create Contact
// @Description Create a new contact, optionally linked to a company
// @Tags Contacts
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body dto.CreateContactRequest true "Contact data"
// @Success 201 {object} dto.APIResponse{data=dto.ContactDTO} "Contact created successfully"
// @Failure 400 {object} dto.APIResponse "Validation error"
// @Failure 401 {object} dto.APIResponse "Unauthorized"
// @Failure 404 {object} dto.APIResponse "Company not found"
// @Failure 500 {object} dto.APIResponse "Internal server error"
// @Router /api/v1/contacts [post]
func (h *ContactHandler) CreateContact(c fiber.Ctx) error {
	actor, ok := actorFromLocals(c)
	if !ok {
		return h.ErrorResponse(c, fiber.StatusUnauthorized, "Authentication context missing", "MISSING_AUTH_CONTEXT", nil)
	}

	var req dto.CreateContactRequest
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

	result, err := h.flow.CreateContact(h.createRequestContext(c, "/api/v1/contacts"), actor, &req)
	if err != nil {
		if businessflow.IsCompanyNotFound(err) {
			return h.ErrorResponse(c, fiber.StatusNotFound, "Company not found", dto.ErrorCompanyNotFound, nil)
		}

		log.Println("Create contact failed", err)
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Contact creation failed", "CONTACT_CREATE_FAILED", nil)
	}

	return h.SuccessResponse(c, fiber.StatusCreated, "Contact created successfully", result)
}

// ListContacts handles contact listing with filters
// @Summary List Contacts
// @Description List contacts with pagination and optional company and search filters
// @Tags Contacts
// @Produce json
// @Security BearerAuth
// @Param page query int false "Page number"
// @Param page_size query int false "Page size"
// @Param company_id query int false "Company ID filter"
// @Param search query string false "Name or email search"
// @Success 200 {object} dto.APIResponse{data=dto.ListContactsData} "Contacts retrieved successfully"
// @Failure 400 {object} dto.APIResponse "Validation error"
// @Failure 401 {object} dto.APIResponse "Unauthorized"
// @Failure 500 {object} dto.APIResponse "Internal server error"
// @Router /api/v1/contacts [get]
func (h *ContactHandler) ListContacts(c fiber.Ctx) error {
	actor, ok := actorFromLocals(c)
	if !ok {
		return h.ErrorResponse(c, fiber.StatusUnauthorized, "Authentication context missing", "MISSING_AUTH_CONTEXT", nil)
	}

	var req dto.ListContactsRequest
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

	result, err := h.flow.ListContacts(h.createRequestContext(c, "/api/v1/contacts"), actor, &req)
	if err != nil {
		log.Println("List contacts failed", err)
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Contact listing failed", "CONTACT_LIST_FAILED", nil)
	}

	return h.SuccessResponse(c, fiber.StatusOK, "Contacts retrieved successfully", result)
}

// GetContact returns one contact
// @Summary Get Contact
// @Description Retrieve a single contact
// @Tags Contacts
// @Produce json
// @Security BearerAuth
// @Param uuid path string true "Contact UUID"
// @Success 200 {object} dto.APIResponse{data=dto.ContactDTO} "Contact retrieved successfully"
// @Failure 401 {object} dto.APIResponse "Unauthorized"
// @Failure 404 {object} dto.APIResponse "Contact not found"
// @Failure 500 {object} dto.APIResponse "Internal server error"
// @Router /api/v1/contacts/{uuid} [get]
func (h *ContactHandler) GetContact(c fiber.Ctx) error {
	actor, ok := actorFromLocals(c)
	if !ok {
		return h.ErrorResponse(c, fiber.StatusUnauthorized, "Authentication context missing", "MISSING_AUTH_CONTEXT", nil)
	}

	contactUUID := c.Params("uuid")

	result, err := h.flow.GetContact(h.createRequestContext(c, "/api/v1/contacts/:uuid"), actor, contactUUID)
	if err != nil {
		if businessflow.IsContactNotFound(err) {
			return h.ErrorResponse(c, fiber.StatusNotFound, "Contact not found", dto.ErrorContactNotFound, nil)
		}

		log.Println("Get contact failed", err)
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Contact fetch failed", "CONTACT_FETCH_FAILED", nil)
	}

	return h.SuccessResponse(c, fiber.StatusOK, "Contact retrieved successfully", result)
}

// UpdateContact edits contact fields
// @Summary Update Contact
// @Description Update contact profile fields
// @Tags Contacts
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param uuid path string true "Contact UUID"
// @Param request body dto.UpdateContactRequest true "Contact fields to update"
// @Success 200 {object} dto.APIResponse{data=dto.ContactDTO} "Contact updated successfully"
// @Failure 400 {object} dto.APIResponse "Validation error"
// @Failure 401 {object} dto.APIResponse "Unauthorized"
// @Failure 404 {object} dto.APIResponse "Contact not found"
// @Failure 500 {object} dto.APIResponse "Internal server error"
// @Router /api/v1/contacts/{uuid} [put]
func (h *ContactHandler) UpdateContact(c fiber.Ctx) error {
	actor, ok := actorFromLocals(c)
	if !ok {
		return h.ErrorResponse(c, fiber.StatusUnauthorized, "Authentication context missing", "MISSING_AUTH_CONTEXT", nil)
	}

	contactUUID := c.Params("uuid")

	var req dto.UpdateContactRequest
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

	result, err := h.flow.UpdateContact(h.createRequestContext(c, "/api/v1/contacts/:uuid"), actor, contactUUID, &req)
	if err != nil {
		if businessflow.IsContactNotFound(err) {
			return h.ErrorResponse(c, fiber.StatusNotFound, "Contact not found", dto.ErrorContactNotFound, nil)
		}
		if businessflow.IsCompanyNotFound(err) {
			return h.ErrorResponse(c, fiber.StatusNotFound, "Company not found", dto.ErrorCompanyNotFound, nil)
		}

		log.Println("Update contact failed", err)
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Contact update failed", "CONTACT_UPDATE_FAILED", nil)
	}

	return h.SuccessResponse(c, fiber.StatusOK, "Contact updated successfully", result)
}

// createRequestContext creates a context with request-scoped values for observability and timeout
func (h *ContactHandler) createRequestContext(c fiber.Ctx, endpoint string) context.Context {
	return h.createRequestContextWithTimeout(c, endpoint, 30*time.Second)
}

func (h *ContactHandler) createRequestContextWithTimeout(c fiber.Ctx, endpoint string, timeout time.Duration) context.Context {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	ctx = context.WithValue(ctx, businessflow.RequestIDKey, c.Get("X-Request-ID"))
	ctx = context.WithValue(ctx, "user_agent", c.Get("User-Agent"))
	ctx = context.WithValue(ctx, "ip_address", c.IP())
	ctx = context.WithValue(ctx, "endpoint", endpoint)
	ctx = context.WithValue(ctx, "cancel_func", cancel)
	return ctx
}
