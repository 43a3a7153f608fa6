// internal/workers/pipeline/mutate-stages/handler.go
package mutatestages

import (
	"context"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"

	"job-matcher/internal/common/camunda"
	"job-matcher/internal/common/logger"
	"job-matcher/internal/common/observability"
	"job-matcher/internal/models"
	"job-matcher/internal/pipeline"
)

const (
	TaskType = "mutate-stages"
)

type StageMutator interface {
	MutateStages(ctx context.Context, m pipeline.StageMutation) ([]models.PipelineStage, error)
}

type Handler struct {
	stages StageMutator
	runner *camunda.JobRunner
	logger logger.Logger
}

func NewHandler(config *Config, stages StageMutator, log logger.Logger, obs *observability.Observability) *Handler {
	log = log.WithFields(map[string]interface{}{"taskType": TaskType})
	return &Handler{
		stages: stages,
		runner: camunda.NewJobRunner(TaskType, config.Timeout, log, obs),
		logger: log,
	}
}

func (h *Handler) Handle(client worker.JobClient, job entities.Job) {
	camunda.Run(h.runner, client, job, h.Execute)
}

func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	stages, err := h.stages.MutateStages(ctx, pipeline.StageMutation{
		Operation:  input.Operation,
		CompanyID:  input.CompanyID,
		StageID:    input.StageID,
		Name:       input.Name,
		Color:      input.Color,
		IsDefault:  input.IsDefault,
		OrderedIDs: input.OrderedStageIDs,
	})
	if err != nil {
		return nil, err
	}

	h.logger.Info("stages updated", map[string]interface{}{
		"companyId": input.CompanyID,
		"operation": input.Operation,
		"stages":    len(stages),
	})
	return &Output{Operation: input.Operation, Stages: stages}, nil
}
