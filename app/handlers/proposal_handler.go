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

// ProposalHandlerInterface defines the contract for proposal handlers
type ProposalHandlerInterface interface {
	CreateProposal(c fiber.Ctx) error
	ListProposals(c fiber.Ctx) error
	GetProposal(c fiber.Ctx) error
	UpdateProposal(c fiber.Ctx) error
	SendProposal(c fiber.Ctx) error
	RespondProposal(c fiber.Ctx) error
}

// ProposalHandler handles proposal-related HTTP requests
type ProposalHandler struct {
	flow      businessflow.ProposalFlow
	validator *validator.Validate
}

// NewProposalHandler creates a new proposal handler
func NewProposalHandler(flow businessflow.ProposalFlow) *ProposalHandler {
	return &ProposalHandler{
		flow:      flow,
		validator: validator.New(),
	}
}

func (h *ProposalHandler) ErrorResponse(c fiber.Ctx, statusCode int, message, errorCode string, details any) error {
	return c.Status(statusCode).JSON(dto.APIResponse{
		Success: false,
		Message: message,
		Error: dto.ErrorDetail{
			Code:    errorCode,
			Details: details,
		},
	})
}

func (h *ProposalHandler) SuccessResponse(c fiber.Ctx, statusCode int, message string, data any) error {
	return c.Status(statusCode).JSON(dto.APIResponse{
		Success: true,
		Message: message,
		Data:    data,
	})
}

// CreateProposal handles proposal creation
// @Summary Create Proposal
// @Description Create a draft proposal attached to an open deal
// @Tags Proposals
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body dto.CreateProposalRequest true "Proposal data"
// @Success 201 {object} dto.APIResponse{data=dto.ProposalDTO} "Proposal created successfully"
// @Failure 400 {object} dto.APIResponse "Validation error"
// @Failure 401 {object} dto.APIResponse "Unauthorized"
// @Failure 404 {object} dto.APIResponse "Deal not found"
// @Failure 409 {object} dto.APIResponse "Deal already closed"
// @Failure 500 {object} dto.APIResponse "Internal server error"
// @Router /api/v1/proposals [post]
func (h *ProposalHandler) CreateProposal(c fiber.Ctx) error {
	actor, ok := actorFromLocals(c)
	if !ok {
		return h.ErrorResponse(c, fiber.StatusUnauthorized, "Authentication context missing", "MISSING_AUTH_CONTEXT", nil)
	}

	var req dto.CreateProposalRequest
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

	result, err := h.flow.CreateProposal(h.createRequestContext(c, "/api/v1/proposals"), actor, &req)
	if err != nil {
		if businessflow.IsDealNotFound(err) {
			return h.ErrorResponse(c, fiber.StatusNotFound, "Deal not found", dto.ErrorDealNotFound, nil)
		}
		if businessflow.IsDealClosed(err) {
			return h.ErrorResponse(c, fiber.StatusConflict, "Deal is already closed", dto.ErrorDealClosed, nil)
		}

		log.Println("Create proposal failed", err)
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Proposal creation failed", "PROPOSAL_CREATE_FAILED", nil)
	}

	return h.SuccessResponse(c, fiber.StatusCreated, "Proposal created successfully", result)
}

// ListProposals handles proposal listing with filters
// @Summary List Proposals
// @Description List proposals with pagination and optional deal and status filters
// @Tags Proposals
// @Produce json
// @Security BearerAuth
// @Param page query int false "Page number"
// @Param page_size query int false "Page size"
// @Param deal_id query int false "Deal ID filter"
// @Param status query string false "Status filter" Enums(draft, sent, accepted, declined)
// @Success 200 {object} dto.APIResponse{data=dto.ListProposalsData} "Proposals retrieved successfully"
// @Failure 400 {object} dto.APIResponse "Validation error"
// @Failure 401 {object} dto.APIResponse "Unauthorized"
// @Failure 500 {object} dto.APIResponse "Internal server error"
// @Router /api/v1/proposals [get]
func (h *ProposalHandler) ListProposals(c fiber.Ctx) error {
	actor, ok := actorFromLocals(c)
	if !ok {
		return h.ErrorResponse(c, fiber.StatusUnauthorized, "Authentication context missing", "MISSING_AUTH_CONTEXT", nil)
	}

	var req dto.ListProposalsRequest
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

	result, err := h.flow.ListProposals(h.createRequestContext(c, "/api/v1/proposals"), actor, &req)
	if err != nil {
		log.Println("List proposals failed", err)
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Proposal listing failed", "PROPOSAL_LIST_FAILED", nil)
	}

	return h.SuccessResponse(c, fiber.StatusOK, "Proposals retrieved successfully", result)
}

// GetProposal returns one proposal
// @Summary Get Proposal
// @Description Retrieve a single proposal
// @Tags Proposals
// @Produce json
// @Security BearerAuth
// @Param uuid path string true "Proposal UUID"
// @Success 200 {object} dto.APIResponse{data=dto.ProposalDTO} "Proposal retrieved successfully"
// @Failure 401 {object} dto.APIResponse "Unauthorized"
// @Failure 404 {object} dto.APIResponse "Proposal not found"
// @Failure 500 {object} dto.APIResponse "Internal server error"
// @Router /api/v1/proposals/{uuid} [get]
func (h *ProposalHandler) GetProposal(c fiber.Ctx) error {
	actor, ok := actorFromLocals(c)
	if !ok {
		return h.ErrorResponse(c, fiber.StatusUnauthorized, "Authentication context missing", "MISSING_AUTH_CONTEXT", nil)
	}

	proposalUUID := c.Params("uuid")

	result, err := h.flow.GetProposal(h.createRequestContext(c, "/api/v1/proposals/:uuid"), actor, proposalUUID)
	if err != nil {
		if businessflow.IsProposalNotFound(err) {
			return h.ErrorResponse(c, fiber.StatusNotFound, "Proposal not found", dto.ErrorProposalNotFound, nil)
		}

		log.Println("Get proposal failed", err)
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Proposal fetch failed", "PROPOSAL_FETCH_FAILED", nil)
	}

	return h.SuccessResponse(c, fiber.StatusOK, "Proposal retrieved successfully", result)
}

// UpdateProposal edits a draft proposal
// @Summary Update Proposal
// @Description Update a proposal while it is still in draft
// @Tags Proposals
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param uuid path string true "Proposal UUID"
// @Param request body dto.UpdateProposalRequest true "Proposal fields to update"
// @Success 200 {object} dto.APIResponse{data=dto.ProposalDTO} "Proposal updated successfully"
// @Failure 400 {object} dto.APIResponse "Validation error"
// @Failure 401 {object} dto.APIResponse "Unauthorized"
// @Failure 404 {object} dto.APIResponse "Proposal not found"
// @Failure 409 {object} dto.APIResponse "Proposal no longer in draft"
// @Failure 500 {object} dto.APIResponse "Internal server error"
// @Router /api/v1/proposals/{uuid} [put]
func (h *ProposalHandler) UpdateProposal(c fiber.Ctx) error {
	actor, ok := actorFromLocals(c)
	if !ok {
		return h.ErrorResponse(c, fiber.StatusUnauthorized, "Authentication context missing", "MISSING_AUTH_CONTEXT", nil)
	}

	proposalUUID := c.Params("uuid")

	var req dto.UpdateProposalRequest
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

	result, err := h.flow.UpdateProposal(h.createRequestContext(c, "/api/v1/proposals/:uuid"), actor, proposalUUID, &req)
	if err != nil {
		if businessflow.IsProposalNotFound(err) {
			return h.ErrorResponse(c, fiber.StatusNotFound, "Proposal not found", dto.ErrorProposalNotFound, nil)
		}
		if businessflow.IsProposalConflict(err) {
			return h.ErrorResponse(c, fiber.StatusConflict, "Proposal is no longer in draft", dto.ErrorProposalConflict, nil)
		}

		log.Println("Update proposal failed", err)
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Proposal update failed", "PROPOSAL_UPDATE_FAILED", nil)
	}

	return h.SuccessResponse(c, fiber.StatusOK, "Proposal updated successfully", result)
}

// SendProposal emails the proposal to the deal's contact
// @Summary Send Proposal
// @Description Move the proposal from draft to sent and email it to the deal's contact in the background. The email counts against the monthly quota.
// @Tags Proposals
// @Produce json
// @Security BearerAuth
// @Param uuid path string true "Proposal UUID"
// @Success 200 {object} dto.APIResponse{data=dto.ProposalDTO} "Proposal sent"
// @Failure 401 {object} dto.APIResponse "Unauthorized"
// @Failure 404 {object} dto.APIResponse "Proposal not found"
// @Failure 409 {object} dto.APIResponse "Proposal not in draft"
// @Failure 500 {object} dto.APIResponse "Internal server error"
// @Router /api/v1/proposals/{uuid}/send [post]
func (h *ProposalHandler) SendProposal(c fiber.Ctx) error {
	actor, ok := actorFromLocals(c)
	if !ok {
		return h.ErrorResponse(c, fiber.StatusUnauthorized, "Authentication context missing", "MISSING_AUTH_CONTEXT", nil)
	}

	proposalUUID := c.Params("uuid")

	metadata := businessflow.NewClientMetadata(c.IP(), c.Get("User-Agent"))

	result, err := h.flow.SendProposal(h.createRequestContext(c, "/api/v1/proposals/:uuid/send"), actor, proposalUUID, metadata)
	if err != nil {
		if businessflow.IsProposalNotFound(err) {
			return h.ErrorResponse(c, fiber.StatusNotFound, "Proposal not found", dto.ErrorProposalNotFound, nil)
		}
		if businessflow.IsContactNotFound(err) {
			return h.ErrorResponse(c, fiber.StatusBadRequest, "The deal's contact has no email address", dto.ErrorContactNotFound, nil)
		}
		if businessflow.IsProposalConflict(err) {
			return h.ErrorResponse(c, fiber.StatusConflict, "Proposal is not in draft", dto.ErrorProposalConflict, nil)
		}

		log.Println("Send proposal failed", err)
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Proposal send failed", "PROPOSAL_SEND_FAILED", nil)
	}

	return h.SuccessResponse(c, fiber.StatusOK, "Proposal sent", result)
}

// RespondProposal records the client's answer
// @Summary Respond to Proposal
// @Description Record acceptance or decline of a sent proposal
// @Tags Proposals
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param uuid path string true "Proposal UUID"
// @Param request body dto.RespondProposalRequest true "Response"
// @Success 200 {object} dto.APIResponse{data=dto.ProposalDTO} "Response recorded"
// @Failure 400 {object} dto.APIResponse "Validation error"
// @Failure 401 {object} dto.APIResponse "Unauthorized"
// @Failure 404 {object} dto.APIResponse "Proposal not found"
// @Failure 409 {object} dto.APIResponse "Proposal already answered"
// @Failure 500 {object} dto.APIResponse "Internal server error"
// @Router /api/v1/proposals/{uuid}/respond [post]
func (h *ProposalHandler) RespondProposal(c fiber.Ctx) error {
	actor, ok := actorFromLocals(c)
	if !ok {
		return h.ErrorResponse(c, fiber.StatusUnauthorized, "Authentication context missing", "MISSING_AUTH_CONTEXT", nil)
	}

	proposalUUID := c.Params("uuid")

	var req dto.RespondProposalRequest
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

	result, err := h.flow.RespondProposal(h.createRequestContext(c, "/api/v1/proposals/:uuid/respond"), actor, proposalUUID, &req, metadata)
	if err != nil {
		if businessflow.IsProposalNotFound(err) {
			return h.ErrorResponse(c, fiber.StatusNotFound, "Proposal not found", dto.ErrorProposalNotFound, nil)
		}
		if businessflow.IsInvalidProposalStatus(err) {
			return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid response status", "INVALID_PROPOSAL_STATUS", nil)
		}
		if businessflow.IsProposalConflict(err) {
			return h.ErrorResponse(c, fiber.StatusConflict, "Proposal was already answered", dto.ErrorProposalConflict, nil)
		}

		log.Println("Respond proposal failed", err)
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Proposal response failed", "PROPOSAL_RESPOND_FAILED", nil)
	}

	return h.SuccessResponse(c, fiber.StatusOK, "Response recorded", result)
}

// createRequestContext creates a context with request-scoped values for observability and timeout
func (h *ProposalHandler) createRequestContext(c fiber.Ctx, endpoint string) context.Context {
	return h.createRequestContextWithTimeout(c, endpoint, 30*time.Second)
}

func (h *ProposalHandler) createRequestContextWithTimeout(c fiber.Ctx, endpoint string, timeout time.Duration) context.Context {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	ctx = context.WithValue(ctx, businessflow.RequestIDKey, c.Get("X-Request-ID"))
	ctx = context.WithValue(ctx, "user_agent", c.Get("User-Agent"))
	ctx = context.WithValue(ctx, "ip_address", c.IP())
	ctx = context.WithValue(ctx, "endpoint", endpoint)
	ctx = context.WithValue(ctx, "cancel_func", cancel)
	return ctx
}
