// internal/workers/pipeline/create-application/models.go
package createapplication

type Input struct {
	CandidateID string `json:"candidateId"`
	JobID       string `json:"jobId"`
	Actor       string `json:"actor"`
}

type Output struct {
	ApplicationID  string `json:"applicationId"`
	CurrentStageID string `json:"currentStageId"`
	CompanyID      string `json:"companyId"`
	CreatedAt      string `json:"createdAt"` // ISO 8601
}
