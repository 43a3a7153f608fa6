// internal/workers/pipeline/mutate-stages/models.go
package mutatestages

import "job-matcher/internal/models"

type Input struct {
	CompanyID       string   `json:"companyId"`
	Operation       string   `json:"operation"` // create | update | delete | reorder
	StageID         string   `json:"stageId"`
	Name            *string  `json:"name"`
	Color           *string  `json:"color"`
	IsDefault       *bool    `json:"isDefault"`
	OrderedStageIDs []string `json:"orderedStageIds"`
}

type Output struct {
	Operation string                 `json:"operation"`
	Stages    []models.PipelineStage `json:"stages"`
}
