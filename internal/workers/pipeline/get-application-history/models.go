// internal/workers/pipeline/get-application-history/models.go
package getapplicationhistory

import "job-matcher/internal/models"

type Input struct {
	ApplicationID string `json:"applicationId"`
}

type Output struct {
	ApplicationID string                      `json:"applicationId"`
	History       []models.ApplicationHistory `json:"history"`
	Transitions   int                         `json:"transitions"`
}
