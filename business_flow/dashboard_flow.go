// Package businessflow contains the core business logic and use cases for CRM workflows
package businessflow

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/atlascrm/atlas/app/dto"
	"github.com/atlascrm/atlas/config"
	"github.com/atlascrm/atlas/models"
	"github.com/atlascrm/atlas/repository"
	"github.com/atlascrm/atlas/utils"
	"github.com/redis/go-redis/v9"
)

// DashboardFlow builds the aggregated workspace summary. The payload is
// cached in redis per tenant for a short window; the cache is best effort
// and every redis failure falls back to the database.
type DashboardFlow interface {
	GetDashboard(ctx context.Context, actor Actor) (*dto.DashboardData, error)
	InvalidateDashboard(ctx context.Context, tenantID uint)
}

// DashboardFlowImpl implements the dashboard business flow
type DashboardFlowImpl struct {
	leadRepo    repository.LeadRepository
	dealRepo    repository.DealRepository
	taskRepo    repository.TaskRepository
	emailQuota  EmailQuotaFlow
	rc          *redis.Client
	cacheConfig *config.CacheConfig
}

// NewDashboardFlow creates a new dashboard flow instance
func NewDashboardFlow(
	leadRepo repository.LeadRepository,
	dealRepo repository.DealRepository,
	taskRepo repository.TaskRepository,
	emailQuota EmailQuotaFlow,
	rc *redis.Client,
	cacheConfig *config.CacheConfig,
) DashboardFlow {
	return &DashboardFlowImpl{
		leadRepo:    leadRepo,
		dealRepo:    dealRepo,
		taskRepo:    taskRepo,
		emailQuota:  emailQuota,
		rc:          rc,
		cacheConfig: cacheConfig,
	}
}

// GetDashboard returns the tenant's dashboard summary, from cache when fresh
func (s *DashboardFlowImpl) GetDashboard(ctx context.Context, actor Actor) (*dto.DashboardData, error) {
	cacheKey := s.cacheKey(actor.TenantID)

	// try redis first
	if s.cacheEnabled() {
		if bs, err := s.rc.Get(ctx, cacheKey).Bytes(); err == nil && len(bs) > 0 {
			var out dto.DashboardData
			if err := json.Unmarshal(bs, &out); err == nil {
				return &out, nil
			}
		}
	}

	data, err := s.buildDashboard(ctx, actor)
	if err != nil {
		return nil, err
	}

	if s.cacheEnabled() {
		if bs, err := json.Marshal(data); err == nil {
			_ = s.rc.Set(ctx, cacheKey, bs, utils.DashboardCacheTTL).Err()
		}
	}

	return data, nil
}

// InvalidateDashboard drops the cached summary for a tenant
func (s *DashboardFlowImpl) InvalidateDashboard(ctx context.Context, tenantID uint) {
	if !s.cacheEnabled() {
		return
	}
	_ = s.rc.Del(ctx, s.cacheKey(tenantID)).Err()
}

// Private helper methods

func (s *DashboardFlowImpl) buildDashboard(ctx context.Context, actor Actor) (*dto.DashboardData, error) {
	leadCounts, err := s.leadRepo.CountByStatus(ctx, actor.TenantID)
	if err != nil {
		return nil, NewBusinessError("DASHBOARD_LEADS_FAILED", "Lead aggregation failed", err)
	}

	// Every status appears in the payload even when the count is zero.
	leadsByStatus := map[string]int64{
		models.LeadStatusNew:        leadCounts[models.LeadStatusNew],
		models.LeadStatusInProgress: leadCounts[models.LeadStatusInProgress],
		models.LeadStatusConverted:  leadCounts[models.LeadStatusConverted],
		models.LeadStatusLost:       leadCounts[models.LeadStatusLost],
	}

	stageTotals, err := s.dealRepo.SumValueByStage(ctx, actor.TenantID)
	if err != nil {
		return nil, NewBusinessError("DASHBOARD_DEALS_FAILED", "Deal aggregation failed", err)
	}

	pipeline := make([]dto.PipelineStageSummary, 0, len(models.DealStages()))
	for _, stage := range models.DealStages() {
		totals := stageTotals[stage]
		pipeline = append(pipeline, dto.PipelineStageSummary{
			Stage: stage,
			Count: totals.Count,
			Value: totals.Value,
		})
	}

	pending := models.TaskStatusPending
	openTasks, err := s.taskRepo.Count(ctx, models.TaskFilter{
		TenantID: &actor.TenantID,
		Status:   &pending,
	})
	if err != nil {
		return nil, NewBusinessError("DASHBOARD_TASKS_FAILED", "Task aggregation failed", err)
	}

	now := utils.UTCNow()
	overdueTasks, err := s.taskRepo.Count(ctx, models.TaskFilter{
		TenantID:  &actor.TenantID,
		Status:    &pending,
		DueBefore: &now,
	})
	if err != nil {
		return nil, NewBusinessError("DASHBOARD_TASKS_FAILED", "Task aggregation failed", err)
	}

	usage, err := s.emailQuota.GetEmailUsage(ctx, actor)
	if err != nil {
		return nil, err
	}

	return &dto.DashboardData{
		LeadsByStatus: leadsByStatus,
		Pipeline:      pipeline,
		OpenTasks:     openTasks,
		OverdueTasks:  overdueTasks,
		EmailUsage:    *usage,
		GeneratedAt:   utils.UTCNowRFC3339(),
	}, nil
}

func (s *DashboardFlowImpl) cacheEnabled() bool {
	return s.rc != nil && s.cacheConfig != nil && s.cacheConfig.Enabled
}

func (s *DashboardFlowImpl) cacheKey(tenantID uint) string {
	prefix := ""
	if s.cacheConfig != nil && s.cacheConfig.RedisPrefix != "" {
		prefix = s.cacheConfig.RedisPrefix + ":"
	}
	return fmt.Sprintf("%s%s:%d", prefix, utils.DashboardCacheKey, tenantID)
}
