// internal/workers/pipeline/move-application/models.go
package moveapplication

type Input struct {
	ApplicationID string `json:"applicationId"`
	TargetStageID string `json:"targetStageId"`
	Actor         string `json:"actor"`
	Automatic     bool   `json:"automatic"`
}

type Output struct {
	ApplicationID    string `json:"applicationId"`
	FromStageID      string `json:"fromStageId"`
	CurrentStageID   string `json:"currentStageId"`
	StageName        string `json:"stageName"`
	HistoryID        string `json:"historyId"`
	NotificationType string `json:"notificationType"`
	MovedAt          string `json:"movedAt"` // ISO 8601
}
