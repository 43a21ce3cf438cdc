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

// TaskHandlerInterface defines the contract for task handlers
type TaskHandlerInterface interface {
	CreateTask(c fiber.Ctx) error
	ListTasks(c fiber.Ctx) error
	GetTask(c fiber.Ctx) error
	UpdateTask(c fiber.Ctx) error
	CompleteTask(c fiber.Ctx) error
}

// TaskHandler handles task-related HTTP requests
type TaskHandler struct {
	flow      businessflow.TaskFlow
	validator *validator.Validate
}

// NewTaskHandler creates a new task handler
func NewTaskHandler(flow businessflow.TaskFlow) *TaskHandler {
	return &TaskHandler{
		flow:      flow,
		validator: validator.New(),
	}
}

func (h *TaskHandler) ErrorResponse(c fiber.Ctx, statusCode int, message, errorCode string, details any) error {
	return c.Status(statusCode).JSON(dto.APIResponse{
		Success: false,
		Message: message,
		Error: dto.ErrorDetail{
			Code:    errorCode,
			Details: details,
		},
	})
}

func (h *TaskHandler) SuccessResponse(c fiber.Ctx, statusCode int, message string, data any) error {
	return c.Status(statusCode).JSON(dto.APIResponse{
		Success: true,
		Message: message,
		Data:    data,
	})
}

// CreateTask handles task creation
// @Summary Create Task
// @Description Create a task, optionally linked to a lead, contact, or deal
// @Tags Tasks
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body dto.CreateTaskRequest true "Task data"
// @Success 201 {object} dto.APIResponse{data=dto.TaskDTO} "Task created successfully"
// @Failure 400 {object} dto.APIResponse "Validation error"
// @Failure 401 {object} dto.APIResponse "Unauthorized"
// @Failure 404 {object} dto.APIResponse "Linked record not found"
// @Failure 500 {object} dto.APIResponse "Internal server error"
// @Router /api/v1/tasks [post]
func (h *TaskHandler) CreateTask(c fiber.Ctx) error {
	actor, ok := actorFromLocals(c)
	if !ok {
		return h.ErrorResponse(c, fiber.StatusUnauthorized, "Authentication context missing", "MISSING_AUTH_CONTEXT", nil)
	}

	var req dto.CreateTaskRequest
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

	result, err := h.flow.CreateTask(h.createRequestContext(c, "/api/v1/tasks"), actor, &req)
	if err != nil {
		if businessflow.IsLeadNotFound(err) {
			return h.ErrorResponse(c, fiber.StatusNotFound, "Lead not found", dto.ErrorLeadNotFound, nil)
		}
		if businessflow.IsUserNotFound(err) {
			return h.ErrorResponse(c, fiber.StatusNotFound, "Assignee not found", dto.ErrorUserNotFound, nil)
		}

		log.Println("Create task failed", err)
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Task creation failed", "TASK_CREATE_FAILED", nil)
	}

	return h.SuccessResponse(c, fiber.StatusCreated, "Task created successfully", result)
}

// ListTasks handles task listing with filters
// @Summary List Tasks
// @Description List tasks with pagination and optional status, ownership, and overdue filters
// @Tags Tasks
// @Produce json
// @Security BearerAuth
// @Param page query int false "Page number"
// @Param page_size query int false "Page size"
// @Param status query string false "Status filter" Enums(pending, done, cancelled)
// @Param mine query bool false "Only tasks assigned to the caller"
// @Param lead_id query int false "Lead ID filter"
// @Param deal_id query int false "Deal ID filter"
// @Param overdue query bool false "Only overdue pending tasks"
// @Success 200 {object} dto.APIResponse{data=dto.ListTasksData} "Tasks retrieved successfully"
// @Failure 400 {object} dto.APIResponse "Validation error"
// @Failure 401 {object} dto.APIResponse "Unauthorized"
// @Failure 500 {object} dto.APIResponse "Internal server error"
// @Router /api/v1/tasks [get]
func (h *TaskHandler) ListTasks(c fiber.Ctx) error {
	actor, ok := actorFromLocals(c)
	if !ok {
		return h.ErrorResponse(c, fiber.StatusUnauthorized, "Authentication context missing", "MISSING_AUTH_CONTEXT", nil)
	}

	var req dto.ListTasksRequest
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

	result, err := h.flow.ListTasks(h.createRequestContext(c, "/api/v1/tasks"), actor, &req)
	if err != nil {
		log.Println("List tasks failed", err)
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Task listing failed", "TASK_LIST_FAILED", nil)
	}

	return h.SuccessResponse(c, fiber.StatusOK, "Tasks retrieved successfully", result)
}

// GetTask returns one task
// @Summary Get Task
// @Description Retrieve a single task
// @Tags Tasks
// @Produce json
// @Security BearerAuth
// @Param uuid path string true "Task UUID"
// @Success 200 {object} dto.APIResponse{data=dto.TaskDTO} "Task retrieved successfully"
// @Failure 401 {object} dto.APIResponse "Unauthorized"
// @Failure 404 {object} dto.APIResponse "Task not found"
// @Failure 500 {object} dto.APIResponse "Internal server error"
// @Router /api/v1/tasks/{uuid} [get]
func (h *TaskHandler) GetTask(c fiber.Ctx) error {
	actor, ok := actorFromLocals(c)
	if !ok {
		return h.ErrorResponse(c, fiber.StatusUnauthorized, "Authentication context missing", "MISSING_AUTH_CONTEXT", nil)
	}

	taskUUID := c.Params("uuid")

	result, err := h.flow.GetTask(h.createRequestContext(c, "/api/v1/tasks/:uuid"), actor, taskUUID)
	if err != nil {
		if businessflow.IsTaskNotFound(err) {
			return h.ErrorResponse(c, fiber.StatusNotFound, "Task not found", dto.ErrorTaskNotFound, nil)
		}

		log.Println("Get task failed", err)
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Task fetch failed", "TASK_FETCH_FAILED", nil)
	}

	return h.SuccessResponse(c, fiber.StatusOK, "Task retrieved successfully", result)
}

// UpdateTask edits a pending task
// @Summary Update Task
// @Description Update a task while it is still pending
// @Tags Tasks
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param uuid path string true "Task UUID"
// @Param request body dto.UpdateTaskRequest true "Task fields to update"
// @Success 200 {object} dto.APIResponse{data=dto.TaskDTO} "Task updated successfully"
// @Failure 400 {object} dto.APIResponse "Validation error"
// @Failure 401 {object} dto.APIResponse "Unauthorized"
// @Failure 404 {object} dto.APIResponse "Task not found"
// @Failure 409 {object} dto.APIResponse "Task no longer pending"
// @Failure 500 {object} dto.APIResponse "Internal server error"
// @Router /api/v1/tasks/{uuid} [put]
func (h *TaskHandler) UpdateTask(c fiber.Ctx) error {
	actor, ok := actorFromLocals(c)
	if !ok {
		return h.ErrorResponse(c, fiber.StatusUnauthorized, "Authentication context missing", "MISSING_AUTH_CONTEXT", nil)
	}

	taskUUID := c.Params("uuid")

	var req dto.UpdateTaskRequest
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

	result, err := h.flow.UpdateTask(h.createRequestContext(c, "/api/v1/tasks/:uuid"), actor, taskUUID, &req)
	if err != nil {
		if businessflow.IsTaskNotFound(err) {
			return h.ErrorResponse(c, fiber.StatusNotFound, "Task not found", dto.ErrorTaskNotFound, nil)
		}
		if businessflow.IsTaskConflict(err) {
			return h.ErrorResponse(c, fiber.StatusConflict, "Task is no longer pending", dto.ErrorTaskConflict, nil)
		}

		log.Println("Update task failed", err)
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Task update failed", "TASK_UPDATE_FAILED", nil)
	}

	return h.SuccessResponse(c, fiber.StatusOK, "Task updated successfully", result)
}

// CompleteTask marks a task done
// @Summary Complete Task
// @Description Mark a pending task as done. Completing twice yields a conflict.
// @Tags Tasks
// @Produce json
// @Security BearerAuth
// @Param uuid path string true "Task UUID"
// @Success 200 {object} dto.APIResponse{data=dto.TaskDTO} "Task completed"
// @Failure 401 {object} dto.APIResponse "Unauthorized"
// @Failure 404 {object} dto.APIResponse "Task not found"
// @Failure 409 {object} dto.APIResponse "Task already closed"
// @Failure 500 {object} dto.APIResponse "Internal server error"
// @Router /api/v1/tasks/{uuid}/complete [post]
func (h *TaskHandler) CompleteTask(c fiber.Ctx) error {
	actor, ok := actorFromLocals(c)
	if !ok {
		return h.ErrorResponse(c, fiber.StatusUnauthorized, "Authentication context missing", "MISSING_AUTH_CONTEXT", nil)
	}

	taskUUID := c.Params("uuid")

	result, err := h.flow.CompleteTask(h.createRequestContext(c, "/api/v1/tasks/:uuid/complete"), actor, taskUUID)
	if err != nil {
		if businessflow.IsTaskNotFound(err) {
			return h.ErrorResponse(c, fiber.StatusNotFound, "Task not found", dto.ErrorTaskNotFound, nil)
		}
		if businessflow.IsTaskConflict(err) {
			return h.ErrorResponse(c, fiber.StatusConflict, "Task was already closed", dto.ErrorTaskConflict, nil)
		}

		log.Println("Complete task failed", err)
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Task completion failed", "TASK_COMPLETE_FAILED", nil)
	}

	return h.SuccessResponse(c, fiber.StatusOK, "Task completed", result)
}

// createRequestContext creates a context with request-scoped values for observability and timeout
func (h *TaskHandler) createRequestContext(c fiber.Ctx, endpoint string) context.Context {
	return h.createRequestContextWithTimeout(c, endpoint, 30*time.Second)
}

func (h *TaskHandler) createRequestContextWithTimeout(c fiber.Ctx, endpoint string, timeout time.Duration) context.Context {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	ctx = context.WithValue(ctx, businessflow.RequestIDKey, c.Get("X-Request-ID"))
	ctx = context.WithValue(ctx, "user_agent", c.Get("User-Agent"))
	ctx = context.WithValue(ctx, "ip_address", c.IP())
	ctx = context.WithValue(ctx, "endpoint", endpoint)
	ctx = context.WithValue(ctx, "cancel_func", cancel)
	return ctx
}
