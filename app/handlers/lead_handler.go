// Package handlers contains HTTP request handlers and presentation layer logic for the API endpoints
package handlers

import (
	"context"
	"log"
	"time"

	"github.com/atlascrm/atlas/app/dto"
	businessflow "github.com/atlascrm/atlas/business_flow"
	"github.com/atlascrm/atlas/utils"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
)

// LeadHandlerInterface defines the contract for lead handlers
type LeadHandlerInterface interface {
	CreateLead(c fiber.Ctx) error
	ListLeads(c fiber.Ctx) error
	GetLead(c fiber.Ctx) error
	UpdateLead(c fiber.Ctx) error
	DeleteLead(c fiber.Ctx) error
	ClaimLead(c fiber.Ctx) error
	LoseLead(c fiber.Ctx) error
	ConvertLead(c fiber.Ctx) error
	ImportLeads(c fiber.Ctx) error
	ExportLeads(c fiber.Ctx) error
}

// LeadHandler handles lead-related HTTP requests
type LeadHandler struct {
	leadFlow   businessflow.LeadFlow
	importFlow businessflow.LeadImportFlow
	validator  *validator.Validate
}

// NewLeadHandler creates a new lead handler
func NewLeadHandler(leadFlow businessflow.LeadFlow, importFlow businessflow.LeadImportFlow) *LeadHandler {
	return &LeadHandler{
		leadFlow:   leadFlow,
		importFlow: importFlow,
		validator:  validator.New(),
	}
}

func (h *LeadHandler) ErrorResponse(c fiber.Ctx, statusCode int, message, errorCode string, details any) error {
	return c.Status(statusCode).JSON(dto.APIResponse{
		Success: false,
		Message: message,
		Error: dto.ErrorDetail{
			Code:    errorCode,
			Details: details,
		},
	})
}

func (h *LeadHandler) SuccessResponse(c fiber.Ctx, statusCode int, message string, data any) error {
	return c.Status(statusCode).JSON(dto.APIResponse{
		Success: true,
		Message: message,
		Data:    data,
	})
}

// CreateLead handles lead creation
// @Summary Create Lead
// @Description Create a new lead in the workspace
// @Tags Leads
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body dto.CreateLeadRequest true "Lead data"
// @Success 201 {object} dto.APIResponse{data=dto.LeadDTO} "Lead created successfully"
// @Failure 400 {object} dto.APIResponse "Validation error"
// @Failure 401 {object} dto.APIResponse "Unauthorized"
// @Failure 500 {object} dto.APIResponse "Internal server error"
// @Router /api/v1/leads [post]
func (h *LeadHandler) CreateLead(c fiber.Ctx) error {
	actor, ok := actorFromLocals(c)
	if !ok {
		return h.ErrorResponse(c, fiber.StatusUnauthorized, "Authentication context missing", "MISSING_AUTH_CONTEXT", nil)
	}

	var req dto.CreateLeadRequest
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

	result, err := h.leadFlow.CreateLead(h.createRequestContext(c, "/api/v1/leads"), actor, &req, metadata)
	if err != nil {
		log.Println("Create lead failed", err)
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Lead creation failed", "LEAD_CREATE_FAILED", nil)
	}

	return h.SuccessResponse(c, fiber.StatusCreated, "Lead created successfully", result)
}

// ListLeads handles lead listing with filters
// @Summary List Leads
// @Description List leads with pagination and optional status, ownership, and search filters
// @Tags Leads
// @Produce json
// @Security BearerAuth
// @Param page query int false "Page number"
// @Param page_size query int false "Page size"
// @Param status query string false "Lead status filter" Enums(new, in_progress, converted, lost)
// @Param unassigned query bool false "Only unowned leads"
// @Param mine query bool false "Only leads owned by the caller"
// @Param search query string false "Name or email search"
// @Success 200 {object} dto.APIResponse{data=dto.ListLeadsData} "Leads retrieved successfully"
// @Failure 400 {object} dto.APIResponse "Validation error"
// @Failure 401 {object} dto.APIResponse "Unauthorized"
// @Failure 500 {object} dto.APIResponse "Internal server error"
// @Router /api/v1/leads [get]
func (h *LeadHandler) ListLeads(c fiber.Ctx) error {
	actor, ok := actorFromLocals(c)
	if !ok {
		return h.ErrorResponse(c, fiber.StatusUnauthorized, "Authentication context missing", "MISSING_AUTH_CONTEXT", nil)
	}

	var req dto.ListLeadsRequest
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

	result, err := h.leadFlow.ListLeads(h.createRequestContext(c, "/api/v1/leads"), actor, &req)
	if err != nil {
		log.Println("List leads failed", err)
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Lead listing failed", "LEAD_LIST_FAILED", nil)
	}

	return h.SuccessResponse(c, fiber.StatusOK, "Leads retrieved successfully", result)
}

// GetLead returns one lead with its activity log
// @Summary Get Lead
// @Description Retrieve a single lead with its full activity log
// @Tags Leads
// @Produce json
// @Security BearerAuth
// @Param uuid path string true "Lead UUID"
// @Success 200 {object} dto.APIResponse{data=dto.LeadDetailData} "Lead retrieved successfully"
// @Failure 401 {object} dto.APIResponse "Unauthorized"
// @Failure 404 {object} dto.APIResponse "Lead not found"
// @Failure 500 {object} dto.APIResponse "Internal server error"
// @Router /api/v1/leads/{uuid} [get]
func (h *LeadHandler) GetLead(c fiber.Ctx) error {
	actor, ok := actorFromLocals(c)
	if !ok {
		return h.ErrorResponse(c, fiber.StatusUnauthorized, "Authentication context missing", "MISSING_AUTH_CONTEXT", nil)
	}

	leadUUID := c.Params("uuid")

	result, err := h.leadFlow.GetLead(h.createRequestContext(c, "/api/v1/leads/:uuid"), actor, leadUUID)
	if err != nil {
		if businessflow.IsLeadNotFound(err) {
			return h.ErrorResponse(c, fiber.StatusNotFound, "Lead not found", dto.ErrorLeadNotFound, nil)
		}

		log.Println("Get lead failed", err)
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Lead fetch failed", "LEAD_FETCH_FAILED", nil)
	}

	return h.SuccessResponse(c, fiber.StatusOK, "Lead retrieved successfully", result)
}

// UpdateLead edits lead fields
// @Summary Update Lead
// @Description Update lead profile fields. Status and ownership only change through claim, lose, and convert.
// @Tags Leads
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param uuid path string true "Lead UUID"
// @Param request body dto.UpdateLeadRequest true "Lead fields to update"
// @Success 200 {object} dto.APIResponse{data=dto.LeadDTO} "Lead updated successfully"
// @Failure 400 {object} dto.APIResponse "Validation error"
// @Failure 401 {object} dto.APIResponse "Unauthorized"
// @Failure 404 {object} dto.APIResponse "Lead not found"
// @Failure 409 {object} dto.APIResponse "Lead already closed"
// @Failure 500 {object} dto.APIResponse "Internal server error"
// @Router /api/v1/leads/{uuid} [put]
func (h *LeadHandler) UpdateLead(c fiber.Ctx) error {
	actor, ok := actorFromLocals(c)
	if !ok {
		return h.ErrorResponse(c, fiber.StatusUnauthorized, "Authentication context missing", "MISSING_AUTH_CONTEXT", nil)
	}

	leadUUID := c.Params("uuid")

	var req dto.UpdateLeadRequest
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

	result, err := h.leadFlow.UpdateLead(h.createRequestContext(c, "/api/v1/leads/:uuid"), actor, leadUUID, &req, metadata)
	if err != nil {
		if businessflow.IsLeadNotFound(err) {
			return h.ErrorResponse(c, fiber.StatusNotFound, "Lead not found", dto.ErrorLeadNotFound, nil)
		}
		if businessflow.IsLeadTerminal(err) {
			return h.ErrorResponse(c, fiber.StatusConflict, "Lead is already closed", dto.ErrorLeadTerminal, nil)
		}

		log.Println("Update lead failed", err)
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Lead update failed", "LEAD_UPDATE_FAILED", nil)
	}

	return h.SuccessResponse(c, fiber.StatusOK, "Lead updated successfully", result)
}

// DeleteLead removes a lead
// @Summary Delete Lead
// @Description Delete a lead. Owners and admins only.
// @Tags Leads
// @Produce json
// @Security BearerAuth
// @Param uuid path string true "Lead UUID"
// @Success 200 {object} dto.APIResponse "Lead deleted successfully"
// @Failure 401 {object} dto.APIResponse "Unauthorized"
// @Failure 403 {object} dto.APIResponse "Permission denied"
// @Failure 404 {object} dto.APIResponse "Lead not found"
// @Failure 500 {object} dto.APIResponse "Internal server error"
// @Router /api/v1/leads/{uuid} [delete]
func (h *LeadHandler) DeleteLead(c fiber.Ctx) error {
	actor, ok := actorFromLocals(c)
	if !ok {
		return h.ErrorResponse(c, fiber.StatusUnauthorized, "Authentication context missing", "MISSING_AUTH_CONTEXT", nil)
	}

	leadUUID := c.Params("uuid")

	metadata := businessflow.NewClientMetadata(c.IP(), c.Get("User-Agent"))

	if err := h.leadFlow.DeleteLead(h.createRequestContext(c, "/api/v1/leads/:uuid"), actor, leadUUID, metadata); err != nil {
		if businessflow.IsPermissionDenied(err) {
			return h.ErrorResponse(c, fiber.StatusForbidden, "Permission denied", dto.ErrorPermissionDenied, nil)
		}
		if businessflow.IsLeadNotFound(err) {
			return h.ErrorResponse(c, fiber.StatusNotFound, "Lead not found", dto.ErrorLeadNotFound, nil)
		}

		log.Println("Delete lead failed", err)
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Lead deletion failed", "LEAD_DELETE_FAILED", nil)
	}

	return h.SuccessResponse(c, fiber.StatusOK, "Lead deleted successfully", nil)
}

// ClaimLead assigns an unowned lead to the caller
// @Summary Claim Lead
// @Description Claim an unowned new lead. Exactly one of any set of concurrent claimers succeeds. A missing or foreign lead reads as the same conflict as a lost race.
// @Tags Leads
// @Produce json
// @Security BearerAuth
// @Param uuid path string true "Lead UUID"
// @Success 200 {object} dto.APIResponse{data=dto.LeadDTO} "Lead claimed successfully"
// @Failure 401 {object} dto.APIResponse "Unauthorized"
// @Failure 409 {object} dto.APIResponse "Lead already claimed, closed, or unknown"
// @Failure 500 {object} dto.APIResponse "Internal server error"
// @Router /api/v1/leads/{uuid}/claim [post]
func (h *LeadHandler) ClaimLead(c fiber.Ctx) error {
	actor, ok := actorFromLocals(c)
	if !ok {
		return h.ErrorResponse(c, fiber.StatusUnauthorized, "Authentication context missing", "MISSING_AUTH_CONTEXT", nil)
	}

	leadUUID := c.Params("uuid")

	metadata := businessflow.NewClientMetadata(c.IP(), c.Get("User-Agent"))

	result, err := h.leadFlow.ClaimLead(h.createRequestContext(c, "/api/v1/leads/:uuid/claim"), actor, leadUUID, metadata)
	if err != nil {
		if businessflow.IsLeadConflict(err) {
			return h.ErrorResponse(c, fiber.StatusConflict, "Lead was already claimed", dto.ErrorLeadConflict, nil)
		}

		log.Println("Claim lead failed", err)
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Lead claim failed", "LEAD_CLAIM_FAILED", nil)
	}

	return h.SuccessResponse(c, fiber.StatusOK, "Lead claimed successfully", result)
}

// LoseLead marks a lead as lost
// @Summary Lose Lead
// @Description Mark a claimed lead as lost with a mandatory reason. Agents may only lose leads they own.
// @Tags Leads
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param uuid path string true "Lead UUID"
// @Param request body dto.LoseLeadRequest true "Loss reason"
// @Success 200 {object} dto.APIResponse{data=dto.LeadDTO} "Lead marked lost"
// @Failure 400 {object} dto.APIResponse "Validation error"
// @Failure 401 {object} dto.APIResponse "Unauthorized"
// @Failure 403 {object} dto.APIResponse "Lead owned by someone else"
// @Failure 404 {object} dto.APIResponse "Lead not found"
// @Failure 409 {object} dto.APIResponse "Lead already closed"
// @Failure 500 {object} dto.APIResponse "Internal server error"
// @Router /api/v1/leads/{uuid}/lose [post]
func (h *LeadHandler) LoseLead(c fiber.Ctx) error {
	actor, ok := actorFromLocals(c)
	if !ok {
		return h.ErrorResponse(c, fiber.StatusUnauthorized, "Authentication context missing", "MISSING_AUTH_CONTEXT", nil)
	}

	leadUUID := c.Params("uuid")

	var req dto.LoseLeadRequest
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

	result, err := h.leadFlow.LoseLead(h.createRequestContext(c, "/api/v1/leads/:uuid/lose"), actor, leadUUID, &req, metadata)
	if err != nil {
		if businessflow.IsLeadNotFound(err) {
			return h.ErrorResponse(c, fiber.StatusNotFound, "Lead not found", dto.ErrorLeadNotFound, nil)
		}
		if businessflow.IsLossReasonRequired(err) {
			return h.ErrorResponse(c, fiber.StatusBadRequest, "A loss reason is required", "LOSS_REASON_REQUIRED", nil)
		}
		if businessflow.IsLeadNotOwned(err) {
			return h.ErrorResponse(c, fiber.StatusForbidden, "Lead is owned by someone else", dto.ErrorLeadNotOwned, nil)
		}
		if businessflow.IsLeadTerminal(err) {
			return h.ErrorResponse(c, fiber.StatusConflict, "Lead is already closed", dto.ErrorLeadTerminal, nil)
		}
		if businessflow.IsLeadConflict(err) {
			return h.ErrorResponse(c, fiber.StatusConflict, "Lead state changed concurrently", dto.ErrorLeadConflict, nil)
		}

		log.Println("Lose lead failed", err)
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Lead loss failed", "LEAD_LOSE_FAILED", nil)
	}

	return h.SuccessResponse(c, fiber.StatusOK, "Lead marked lost", result)
}

// ConvertLead converts a lead into a contact
// @Summary Convert Lead
// @Description Convert a claimed lead into a contact and optionally a company, atomically
// @Tags Leads
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param uuid path string true "Lead UUID"
// @Param request body dto.ConvertLeadRequest true "Conversion options"
// @Success 200 {object} dto.APIResponse{data=dto.ConvertLeadData} "Lead converted successfully"
// @Failure 400 {object} dto.APIResponse "Validation error"
// @Failure 401 {object} dto.APIResponse "Unauthorized"
// @Failure 404 {object} dto.APIResponse "Lead not found"
// @Failure 409 {object} dto.APIResponse "Lead not convertible"
// @Failure 500 {object} dto.APIResponse "Internal server error"
// @Router /api/v1/leads/{uuid}/convert [post]
func (h *LeadHandler) ConvertLead(c fiber.Ctx) error {
	actor, ok := actorFromLocals(c)
	if !ok {
		return h.ErrorResponse(c, fiber.StatusUnauthorized, "Authentication context missing", "MISSING_AUTH_CONTEXT", nil)
	}

	leadUUID := c.Params("uuid")

	var req dto.ConvertLeadRequest
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

	result, err := h.leadFlow.ConvertLead(h.createRequestContext(c, "/api/v1/leads/:uuid/convert"), actor, leadUUID, &req, metadata)
	if err != nil {
		if businessflow.IsLeadNotFound(err) {
			return h.ErrorResponse(c, fiber.StatusNotFound, "Lead not found", dto.ErrorLeadNotFound, nil)
		}
		if businessflow.IsLeadTerminal(err) {
			return h.ErrorResponse(c, fiber.StatusConflict, "Lead is already closed", dto.ErrorLeadTerminal, nil)
		}
		if businessflow.IsLeadConflict(err) {
			return h.ErrorResponse(c, fiber.StatusConflict, "Lead is not in a convertible state", dto.ErrorLeadConflict, nil)
		}

		log.Println("Convert lead failed", err)
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Lead conversion failed", "LEAD_CONVERT_FAILED", nil)
	}

	return h.SuccessResponse(c, fiber.StatusOK, "Lead converted successfully", result)
}

// ImportLeads handles bulk lead import from a spreadsheet
// @Summary Import Leads
// @Description Import leads in bulk from an uploaded CSV or XLSX file
// @Tags Leads
// @Accept mpfd
// @Produce json
// @Security BearerAuth
// @Param file formData file true "CSV or XLSX file with a name column"
// @Success 200 {object} dto.APIResponse{data=dto.ImportLeadsData} "Import completed"
// @Failure 400 {object} dto.APIResponse "Invalid file"
// @Failure 401 {object} dto.APIResponse "Unauthorized"
// @Failure 500 {object} dto.APIResponse "Internal server error"
// @Router /api/v1/leads/import [post]
func (h *LeadHandler) ImportLeads(c fiber.Ctx) error {
	actor, ok := actorFromLocals(c)
	if !ok {
		return h.ErrorResponse(c, fiber.StatusUnauthorized, "Authentication context missing", "MISSING_AUTH_CONTEXT", nil)
	}

	fileHeader, err := c.FormFile("file")
	if err != nil || fileHeader == nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "file is required", "INVALID_FILE", nil)
	}
	if fileHeader.Size > utils.MaxImportFileSize {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "File too large", "IMPORT_FILE_TOO_LARGE", nil)
	}

	file, err := fileHeader.Open()
	if err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "invalid file", "INVALID_FILE", err.Error())
	}
	defer file.Close()

	metadata := businessflow.NewClientMetadata(c.IP(), c.Get("User-Agent"))

	result, err := h.importFlow.ImportLeads(h.createRequestContext(c, "/api/v1/leads/import"), actor, fileHeader.Filename, file, metadata)
	if err != nil {
		if businessflow.IsImportFileUnreadable(err) {
			return h.ErrorResponse(c, fiber.StatusBadRequest, "File could not be parsed", dto.ErrorLeadImportFailed, nil)
		}
		if businessflow.IsImportTooManyRows(err) {
			return h.ErrorResponse(c, fiber.StatusBadRequest, "Too many rows in import file", dto.ErrorLeadImportFailed, nil)
		}
		if businessflow.IsImportNoRows(err) {
			return h.ErrorResponse(c, fiber.StatusBadRequest, "No data rows found in import file", dto.ErrorLeadImportFailed, nil)
		}

		log.Println("Import leads failed", err)
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Lead import failed", dto.ErrorLeadImportFailed, nil)
	}

	return h.SuccessResponse(c, fiber.StatusOK, "Import completed", result)
}

// ExportLeads streams the tenant's leads as an XLSX workbook
// @Summary Export Leads
// @Description Download the tenant's leads as an XLSX file, honoring the same filters as the list endpoint
// @Tags Leads
// @Produce application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
// @Security BearerAuth
// @Param status query string false "Lead status filter" Enums(new, in_progress, converted, lost)
// @Success 200 {file} file "XLSX workbook"
// @Failure 401 {object} dto.APIResponse "Unauthorized"
// @Failure 500 {object} dto.APIResponse "Internal server error"
// @Router /api/v1/leads/export [get]
func (h *LeadHandler) ExportLeads(c fiber.Ctx) error {
	actor, ok := actorFromLocals(c)
	if !ok {
		return h.ErrorResponse(c, fiber.StatusUnauthorized, "Authentication context missing", "MISSING_AUTH_CONTEXT", nil)
	}

	var req dto.ListLeadsRequest
	if err := c.Bind().Query(&req); err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid query parameters", "INVALID_REQUEST", err.Error())
	}

	filename, content, err := h.importFlow.ExportLeads(h.createRequestContext(c, "/api/v1/leads/export"), actor, &req)
	if err != nil {
		log.Println("Export leads failed", err)
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Lead export failed", "LEAD_EXPORT_FAILED", nil)
	}

	c.Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	c.Set("Content-Disposition", `attachment; filename="`+filename+`"`)
	return c.Status(fiber.StatusOK).Send(content)
}

// createRequestContext creates a context with request-scoped values for observability and timeout
func (h *LeadHandler) createRequestContext(c fiber.Ctx, endpoint string) context.Context {
	return h.createRequestContextWithTimeout(c, endpoint, 30*time.Second)
}

// createRequestContextWithTimeout creates a context with custom timeout and request-scoped values
func (h *LeadHandler) createRequestContextWithTimeout(c fiber.Ctx, endpoint string, timeout time.Duration) context.Context {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)

	// Add request-scoped values for observability
	ctx = context.WithValue(ctx, businessflow.RequestIDKey, c.Get("X-Request-ID"))
	ctx = context.WithValue(ctx, "user_agent", c.Get("User-Agent"))
	ctx = context.WithValue(ctx, "ip_address", c.IP())
	ctx = context.WithValue(ctx, "endpoint", endpoint)
	ctx = context.WithValue(ctx, "cancel_func", cancel) // Store cancel function for cleanup

	return ctx
}
