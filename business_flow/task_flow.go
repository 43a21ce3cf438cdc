// Package businessflow contains the core business logic and use cases for CRM workflows
package businessflow

import (
	"context"
	"encoding/json"
	"time"

	"github.com/atlascrm/atlas/app/dto"
	"github.com/atlascrm/atlas/models"
	"github.com/atlascrm/atlas/repository"
	"github.com/atlascrm/atlas/utils"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// TaskFlow handles task CRUD. Creating a task against a lead appends an
// entry to the lead's activity log.
type TaskFlow interface {
	CreateTask(ctx context.Context, actor Actor, req *dto.CreateTaskRequest) (*dto.TaskDTO, error)
	ListTasks(ctx context.Context, actor Actor, req *dto.ListTasksRequest) (*dto.ListTasksData, error)
	GetTask(ctx context.Context, actor Actor, taskUUID string) (*dto.TaskDTO, error)
	UpdateTask(ctx context.Context, actor Actor, taskUUID string, req *dto.UpdateTaskRequest) (*dto.TaskDTO, error)
	CompleteTask(ctx context.Context, actor Actor, taskUUID string) (*dto.TaskDTO, error)
}

// TaskFlowImpl implements the task business flow
type TaskFlowImpl struct {
	taskRepo    repository.TaskRepository
	leadRepo    repository.LeadRepository
	leadLogRepo repository.LeadLogRepository
	db          *gorm.DB
}

// NewTaskFlow creates a new task flow instance
func NewTaskFlow(
	taskRepo repository.TaskRepository,
	leadRepo repository.LeadRepository,
	leadLogRepo repository.LeadLogRepository,
	db *gorm.DB,
) TaskFlow {
	return &TaskFlowImpl{
		taskRepo:    taskRepo,
		leadRepo:    leadRepo,
		leadLogRepo: leadLogRepo,
		db:          db,
	}
}

// CreateTask creates a task, defaulting the assignee to the actor
func (s *TaskFlowImpl) CreateTask(ctx context.Context, actor Actor, req *dto.CreateTaskRequest) (*dto.TaskDTO, error) {
	assignee := actor.UserID
	if req.AssigneeID != nil {
		assignee = *req.AssigneeID
	}

	priority := models.TaskPriorityNormal
	if req.Priority != "" {
		priority = req.Priority
	}

	task := &models.Task{
		UUID:        uuid.New(),
		TenantID:    actor.TenantID,
		Title:       req.Title,
		Description: req.Description,
		Status:      models.TaskStatusPending,
		Priority:    priority,
		AssigneeID:  assignee,
		ContactID:   req.ContactID,
		DealID:      req.DealID,
	}

	if req.DueAt != nil {
		at, err := time.Parse(time.RFC3339, *req.DueAt)
		if err != nil {
			return nil, NewBusinessError("TASK_CREATE_FAILED", "Invalid due date", err)
		}
		task.DueAt = &at
	}

	err := repository.WithTransaction(ctx, s.db, func(txCtx context.Context) error {
		if req.LeadID != nil {
			lead, err := s.leadRepo.ByID(txCtx, *req.LeadID)
			if err != nil {
				return err
			}
			if lead == nil || lead.TenantID != actor.TenantID {
				return ErrLeadNotFound
			}
			task.LeadID = req.LeadID
		}

		if err := s.taskRepo.Save(txCtx, task); err != nil {
			return err
		}

		// A task against a lead shows up in the lead's history.
		if task.LeadID != nil {
			details, err := json.Marshal(map[string]any{"task_id": task.ID, "title": task.Title})
			if err != nil {
				return err
			}
			return s.leadLogRepo.Save(txCtx, &models.LeadLog{
				LeadID:  *task.LeadID,
				UserID:  &actor.UserID,
				Action:  models.LeadActionTaskCreated,
				Details: details,
			})
		}

		return nil
	})

	if err != nil {
		if IsLeadNotFound(err) {
			return nil, err
		}
		return nil, NewBusinessError("TASK_CREATE_FAILED", "Task creation failed", err)
	}

	result := ToTaskDTO(*task)
	return &result, nil
}

// ListTasks returns a page of the tenant's tasks
func (s *TaskFlowImpl) ListTasks(ctx context.Context, actor Actor, req *dto.ListTasksRequest) (*dto.ListTasksData, error) {
	req.Normalize()

	filter := models.TaskFilter{TenantID: &actor.TenantID}
	if req.Status != "" {
		filter.Status = &req.Status
	}
	if req.Mine {
		filter.AssigneeID = &actor.UserID
	}
	if req.LeadID != 0 {
		filter.LeadID = &req.LeadID
	}
	if req.DealID != 0 {
		filter.DealID = &req.DealID
	}
	if req.Overdue {
		filter.DueBefore = utils.ToPtr(utils.UTCNow())
		filter.Status = utils.ToPtr(models.TaskStatusPending)
	}

	tasks, err := s.taskRepo.ByFilter(ctx, filter, "due_at ASC NULLS LAST, created_at DESC", req.PageSize, req.Offset())
	if err != nil {
		return nil, NewBusinessError("TASK_LIST_FAILED", "Task listing failed", err)
	}

	total, err := s.taskRepo.Count(ctx, filter)
	if err != nil {
		return nil, NewBusinessError("TASK_LIST_FAILED", "Task listing failed", err)
	}

	data := &dto.ListTasksData{
		Tasks: make([]dto.TaskDTO, 0, len(tasks)),
		Pagination: dto.Pagination{
			Page:     req.Page,
			PageSize: req.PageSize,
			Total:    total,
		},
	}
	for _, task := range tasks {
		data.Tasks = append(data.Tasks, ToTaskDTO(*task))
	}

	return data, nil
}

// GetTask returns a single task
func (s *TaskFlowImpl) GetTask(ctx context.Context, actor Actor, taskUUID string) (*dto.TaskDTO, error) {
	task, err := s.findTask(ctx, actor, taskUUID)
	if err != nil {
		return nil, err
	}

	result := ToTaskDTO(*task)
	return &result, nil
}

// UpdateTask edits a pending task
func (s *TaskFlowImpl) UpdateTask(ctx context.Context, actor Actor, taskUUID string, req *dto.UpdateTaskRequest) (*dto.TaskDTO, error) {
	task, err := s.findTask(ctx, actor, taskUUID)
	if err != nil {
		return nil, err
	}
	if task.Status != models.TaskStatusPending {
		return nil, ErrTaskConflict
	}

	if req.Title != nil {
		task.Title = *req.Title
	}
	if req.Description != nil {
		task.Description = req.Description
	}
	if req.Priority != nil {
		task.Priority = *req.Priority
	}
	if req.AssigneeID != nil {
		task.AssigneeID = *req.AssigneeID
	}
	if req.DueAt != nil {
		at, err := time.Parse(time.RFC3339, *req.DueAt)
		if err != nil {
			return nil, NewBusinessError("TASK_UPDATE_FAILED", "Invalid due date", err)
		}
		task.DueAt = &at
	}

	if err := s.taskRepo.Update(ctx, task); err != nil {
		return nil, NewBusinessError("TASK_UPDATE_FAILED", "Task update failed", err)
	}

	result := ToTaskDTO(*task)
	return &result, nil
}

// CompleteTask marks a pending task done
func (s *TaskFlowImpl) CompleteTask(ctx context.Context, actor Actor, taskUUID string) (*dto.TaskDTO, error) {
	task, err := s.findTask(ctx, actor, taskUUID)
	if err != nil {
		return nil, err
	}

	done, err := s.taskRepo.Complete(ctx, actor.TenantID, task.ID, utils.UTCNow())
	if err != nil {
		return nil, NewBusinessError("TASK_COMPLETE_FAILED", "Task completion failed", err)
	}
	if !done {
		return nil, ErrTaskConflict
	}

	task, err = s.taskRepo.ByID(ctx, task.ID)
	if err != nil || task == nil {
		return nil, NewBusinessError("TASK_COMPLETE_FAILED", "Task completion failed", err)
	}

	result := ToTaskDTO(*task)
	return &result, nil
}

func (s *TaskFlowImpl) findTask(ctx context.Context, actor Actor, taskUUID string) (*models.Task, error) {
	task, err := s.taskRepo.ByUUID(ctx, actor.TenantID, taskUUID)
	if err != nil {
		return nil, NewBusinessError("TASK_FETCH_FAILED", "Task fetch failed", err)
	}
	if task == nil {
		return nil, ErrTaskNotFound
	}
	return task, nil
}
