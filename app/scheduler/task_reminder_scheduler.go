// Package scheduler
package scheduler

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"time"

	"gorm.io/gorm"

	"github.com/atlascrm/atlas/models"
	"github.com/atlascrm/atlas/repository"
	"github.com/atlascrm/atlas/utils"
)

// TaskReminderScheduler periodically scans for tasks approaching their due
// date and writes a one-time notification to the assignee
type TaskReminderScheduler struct {
	taskRepo  repository.TaskRepository
	notifRepo repository.NotificationRepository
	logger    *log.Logger
	interval  time.Duration
	lookahead time.Duration
	batchSize int

	db *gorm.DB

	logFile *os.File
}

// NewTaskReminderScheduler creates a scheduler that checks every interval for
// pending tasks due within lookahead
func NewTaskReminderScheduler(
	taskRepo repository.TaskRepository,
	notifRepo repository.NotificationRepository,
	db *gorm.DB,
	interval time.Duration,
	lookahead time.Duration,
) (*TaskReminderScheduler, error) {
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	if lookahead <= 0 {
		lookahead = 24 * time.Hour
	}

	s := &TaskReminderScheduler{
		taskRepo:  taskRepo,
		notifRepo: notifRepo,
		db:        db,
		interval:  interval,
		lookahead: lookahead,
		batchSize: 200,
	}
	if err := s.initSchedulerLogger(); err != nil {
		return nil, err
	}

	return s, nil
}

func (s *TaskReminderScheduler) initSchedulerLogger() error {
	// Prefer relative data/ then fallback to /data for containerized environments
	candidates := []string{
		filepath.Join("data"),
		"/data",
	}
	for _, dir := range candidates {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			continue
		}
		logPath := filepath.Join(dir, "scheduler.log")
		f, err := os.OpenFile(logPath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			continue
		}
		s.logFile = f
		mw := io.MultiWriter(os.Stdout, f)
		// log.Logger is goroutine-safe; include timestamps with microseconds and UTC
		s.logger = log.New(mw, "scheduler ", log.LstdFlags|log.Lmicroseconds|log.LUTC)
		return nil
	}
	return fmt.Errorf("could not create scheduler log file in any candidate directory")
}

// Start launches the scheduler loop in a background goroutine and returns a stop function
func (s *TaskReminderScheduler) Start(parent context.Context) func() {
	ctx, cancel := context.WithCancel(parent)

	go func() {
		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		s.runOnce(ctx)

		for {
			select {
			case <-ctx.Done():
				if s.logFile != nil {
					_ = s.logFile.Close()
				}
				return
			case <-ticker.C:
				s.runOnce(ctx)
			}
		}
	}()

	return cancel
}

func (s *TaskReminderScheduler) runOnce(ctx context.Context) {
	now := utils.UTCNow()

	due, err := s.taskRepo.DueForReminder(ctx, now.Add(s.lookahead), s.batchSize)
	if err != nil {
		s.logger.Printf("scheduler: list due tasks failed: %v", err)
		return
	}
	if len(due) == 0 {
		return
	}
	s.logger.Printf("scheduler: %d tasks due for reminder", len(due))

	sent := 0
	for _, task := range due {
		if ctx.Err() != nil {
			return
		}
		if err := s.remind(ctx, task, now); err != nil {
			s.logger.Printf("scheduler: reminder failed for task id=%d: %v", task.ID, err)
			continue
		}
		sent++
	}
	if sent > 0 {
		s.logger.Printf("scheduler: sent %d task reminders", sent)
	}
}

// remind stamps the task and writes the notification in one transaction. The
// stamp is a conditional update, so overlapping scheduler instances produce
// at most one reminder per task.
func (s *TaskReminderScheduler) remind(ctx context.Context, task *models.Task, now time.Time) error {
	return repository.WithTransaction(ctx, s.db, func(txCtx context.Context) error {
		stamped, err := s.taskRepo.MarkReminderSent(txCtx, task.ID, now)
		if err != nil {
			return err
		}
		if !stamped {
			return nil
		}

		return s.notifRepo.Save(txCtx, &models.Notification{
			TenantID: task.TenantID,
			UserID:   task.AssigneeID,
			Type:     models.NotificationTypeTaskDue,
			Title:    "Task due soon",
			Message:  fmt.Sprintf("%q is due %s.", task.Title, task.DueAt.UTC().Format("Jan 2 at 15:04 MST")),
			Link:     utils.ToPtr(fmt.Sprintf("/tasks/%s", task.UUID)),
			Read:     utils.ToPtr(false),
		})
	})
}
