// internal/workers/pipeline/list-stages/models.go
package liststages

import "job-matcher/internal/models"

type Input struct {
	CompanyID string `json:"companyId"`
}

type Output struct {
	Stages         []models.PipelineStage `json:"stages"`
	DefaultStageID string                 `json:"defaultStageId,omitempty"`
}
