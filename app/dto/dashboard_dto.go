package dto

// DashboardData represents the aggregated workspace summary shown on the
// dashboard. The payload is cached per tenant for a short window.
type DashboardData struct {
	LeadsByStatus map[string]int64       `json:"leads_by_status"`
	Pipeline      []PipelineStageSummary `json:"pipeline"`
	OpenTasks     int64                  `json:"open_tasks" example:"12"`
	OverdueTasks  int64                  `json:"overdue_tasks" example:"2"`
	EmailUsage    EmailUsageDTO          `json:"email_usage"`
	GeneratedAt   string                 `json:"generated_at" example:"2025-01-16T09:00:00Z"`
}
