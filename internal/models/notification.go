// internal/models/notification.go
package models

import "time"

// Notification types emitted by matching and pipeline operations.
const (
	NotificationNewMatch                 = "new_match"
	NotificationMatchShortlisted         = "match_shortlisted"
	NotificationMatchRejected            = "match_rejected"
	NotificationApplicationReceived      = "application_received"
	NotificationApplicationScreening     = "application_screening"
	NotificationApplicationInterview     = "application_interview"
	NotificationApplicationOffer         = "application_offer"
	NotificationApplicationHired         = "application_hired"
	NotificationApplicationRejected      = "application_rejected"
	NotificationApplicationStatusChanged = "application_status_changed"
)

type Notification struct {
	ID        string                 `json:"id"`
	UserID    string                 `json:"userId"`
	Type      string                 `json:"type"`
	Title     string                 `json:"title"`
	Body      string                 `json:"body"`
	Data      map[string]interface{} `json:"data,omitempty"`
	Read      bool                   `json:"read"`
	CreatedAt time.Time              `json:"createdAt"`
}
