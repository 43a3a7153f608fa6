// internal/workers/pipeline/create-application/handler.go
package createapplication

import (
	"context"
	"time"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"

	"job-matcher/internal/common/camunda"
	"job-matcher/internal/common/logger"
	"job-matcher/internal/common/observability"
	"job-matcher/internal/models"
	"job-matcher/internal/pipeline"
)

const (
	TaskType = "create-application"
)

type ApplicationCreator interface {
	CreateApplication(ctx context.Context, req pipeline.CreateApplicationRequest) (*models.Application, error)
}

type Handler struct {
	apps   ApplicationCreator
	runner *camunda.JobRunner
}

func NewHandler(config *Config, apps ApplicationCreator, log logger.Logger, obs *observability.Observability) *Handler {
	log = log.WithFields(map[string]interface{}{"taskType": TaskType})
	return &Handler{
		apps:   apps,
		runner: camunda.NewJobRunner(TaskType, config.Timeout, log, obs),
	}
}

func (h *Handler) Handle(client worker.JobClient, job entities.Job) {
	camunda.Run(h.runner, client, job, h.Execute)
}

func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	app, err := h.apps.CreateApplication(ctx, pipeline.CreateApplicationRequest{
		CandidateID: input.CandidateID,
		JobID:       input.JobID,
		Actor:       input.Actor,
	})
	if err != nil {
		return nil, err
	}

	return &Output{
		ApplicationID:  app.ID,
		CurrentStageID: app.CurrentStageID,
		CompanyID:      app.CompanyID,
		CreatedAt:      app.CreatedAt.UTC().Format(time.RFC3339),
	}, nil
}
