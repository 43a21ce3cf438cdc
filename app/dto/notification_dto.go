package dto

// ListNotificationsRequest represents the query parameters for listing notifications
type ListNotificationsRequest struct {
	PaginationRequest
	UnreadOnly bool `json:"unread_only" query:"unread_only" example:"true"`
}

// NotificationDTO represents an in-app notification returned in API responses
type NotificationDTO struct {
	ID        uint    `json:"id" example:"21"`
	Type      string  `json:"type" example:"quota_warning"`
	Title     string  `json:"title" example:"Email quota at 90%"`
	Message   string  `json:"message" example:"Your workspace has used 90 of 100 monthly emails."`
	Link      *string `json:"link,omitempty" example:"/settings/billing"`
	Read      *bool   `json:"read" example:"false"`
	ReadAt    *string `json:"read_at,omitempty"`
	CreatedAt string  `json:"created_at" example:"2025-01-16T09:00:00Z"`
}

// ListNotificationsData represents a page of notifications together with
// the unread counter used for badges
type ListNotificationsData struct {
	Notifications []NotificationDTO `json:"notifications"`
	UnreadCount   int64             `json:"unread_count" example:"3"`
	Pagination    Pagination        `json:"pagination"`
}

// EmailUsageDTO represents the tenant's current email quota state
type EmailUsageDTO struct {
	Used      int    `json:"used" example:"90"`
	Limit     *int   `json:"limit,omitempty" example:"100"`
	Period    string `json:"period" example:"2025-01"`
	Warned90  bool   `json:"warned_90" example:"true"`
	Exhausted bool   `json:"exhausted" example:"false"`
}

// Common error codes for notification operations
const (
	ErrorNotificationNotFound = "NOTIFICATION_NOT_FOUND"
)
