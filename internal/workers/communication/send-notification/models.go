// internal/workers/communication/send-notification/models.go
package sendnotification

const (
	StatusPending  = "pending"
	StatusSent     = "sent"
	StatusFailed   = "failed"
	StatusDisabled = "disabled"
)

type Input struct {
	NotificationID string                 `json:"notificationId"`
	UserID         string                 `json:"userId"`
	Type           string                 `json:"type"`
	Title          string                 `json:"title"`
	Body           string                 `json:"body"`
	Data           map[string]interface{} `json:"data"`
}

type Output struct {
	NotificationID string `json:"notificationId"`
	Status         string `json:"status"` // sent | failed | disabled
	EmailSent      bool   `json:"emailSent"`
	SMSSent        bool   `json:"smsSent"`
}
