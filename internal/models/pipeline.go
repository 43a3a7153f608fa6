// internal/models/pipeline.go
package models

import "time"

type PipelineStage struct {
	ID        string `json:"id"`
	CompanyID string `json:"companyId"`
	Name      string `json:"name"`
	Order     int    `json:"order"`
	Color     string `json:"color,omitempty"`
	IsDefault bool   `json:"isDefault"`
}

type Application struct {
	ID             string    `json:"id"`
	CandidateID    string    `json:"candidateId"`
	JobID          string    `json:"jobId"`
	CompanyID      string    `json:"companyId"`
	CurrentStageID string    `json:"currentStageId"`
	CreatedAt      time.Time `json:"createdAt"`
	UpdatedAt      time.Time `json:"updatedAt"`
}

// ApplicationHistory is one stage transition. FromStageID is empty for the
// entry written when the application is created.
type ApplicationHistory struct {
	ID            string    `json:"id"`
	ApplicationID string    `json:"applicationId"`
	FromStageID   string    `json:"fromStageId,omitempty"`
	ToStageID     string    `json:"toStageId"`
	Actor         string    `json:"actor"`
	CreatedAt     time.Time `json:"createdAt"`
}
