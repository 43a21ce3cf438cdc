package utils

import (
	"time"
)

// Token and session time constants
const (
	// AccessTokenTTL is the time-to-live for access tokens (24 hours)
	AccessTokenTTL = 24 * time.Hour

	// AccessTokenTTLSeconds is the time-to-live for access tokens in seconds (86400 seconds = 24 hours)
	AccessTokenTTLSeconds = 86400

	// RefreshTokenTTL is the time-to-live for refresh tokens (7 days)
	RefreshTokenTTL = 7 * 24 * time.Hour

	// SessionTimeout is the default session timeout (24 hours)
	SessionTimeout = 24 * time.Hour
)

// CORS and security constants
const (
	// CORSMaxAge is the maximum age for CORS preflight requests (24 hours)
	CORSMaxAge = 86400
)

// Email quota constants
const (
	// EmailWarningThreshold is the usage ratio at which a quota warning notification is sent (90%)
	EmailWarningThreshold = 0.90

	// UsagePeriodFormat is the layout for per-tenant usage period keys (calendar month, UTC)
	UsagePeriodFormat = "2006-01"
)

// Lead import constants
const (
	// MaxImportRows caps the number of data rows accepted in a single lead import file
	MaxImportRows = 10000

	// MaxImportFileSize caps the uploaded import file size (10 MiB)
	MaxImportFileSize = 10 << 20
)

// Dashboard cache constants
const (
	// DashboardCacheTTL is how long a tenant dashboard summary stays in the cache
	DashboardCacheTTL = 2 * time.Minute

	// DashboardCacheKey is the per-tenant cache key base for dashboard summaries
	DashboardCacheKey = "dashboard"
)
