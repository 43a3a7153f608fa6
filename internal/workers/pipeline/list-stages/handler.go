// internal/workers/pipeline/list-stages/handler.go
package liststages

import (
	"context"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"

	"job-matcher/internal/common/camunda"
	"job-matcher/internal/common/logger"
	"job-matcher/internal/common/observability"
	"job-matcher/internal/models"
)

const (
	TaskType = "list-stages"
)

type StageLister interface {
	ListStages(ctx context.Context, companyID string) ([]models.PipelineStage, error)
}

type Handler struct {
	stages StageLister
	runner *camunda.JobRunner
}

func NewHandler(config *Config, stages StageLister, log logger.Logger, obs *observability.Observability) *Handler {
	log = log.WithFields(map[string]interface{}{"taskType": TaskType})
	return &Handler{
		stages: stages,
		runner: camunda.NewJobRunner(TaskType, config.Timeout, log, obs),
	}
}

func (h *Handler) Handle(client worker.JobClient, job entities.Job) {
	camunda.Run(h.runner, client, job, h.Execute)
}

func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	stages, err := h.stages.ListStages(ctx, input.CompanyID)
	if err != nil {
		return nil, err
	}

	out := &Output{Stages: stages}
	for _, s := range stages {
		if s.IsDefault {
			out.DefaultStageID = s.ID
			break
		}
	}
	return out, nil
}
