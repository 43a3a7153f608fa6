// internal/workers/pipeline/move-application/handler.go
package moveapplication

import (
	"context"
	"time"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"

	"job-matcher/internal/common/camunda"
	"job-matcher/internal/common/logger"
	"job-matcher/internal/common/observability"
	"job-matcher/internal/pipeline"
)

const (
	TaskType = "move-application"
)

type Mover interface {
	Move(ctx context.Context, req pipeline.MoveRequest) (*pipeline.MoveResult, error)
}

type Handler struct {
	mover  Mover
	runner *camunda.JobRunner
}

func NewHandler(config *Config, mover Mover, log logger.Logger, obs *observability.Observability) *Handler {
	log = log.WithFields(map[string]interface{}{"taskType": TaskType})
	return &Handler{
		mover:  mover,
		runner: camunda.NewJobRunner(TaskType, config.Timeout, log, obs),
	}
}

func (h *Handler) Handle(client worker.JobClient, job entities.Job) {
	camunda.Run(h.runner, client, job, h.Execute)
}

func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	res, err := h.mover.Move(ctx, pipeline.MoveRequest{
		ApplicationID: input.ApplicationID,
		TargetStageID: input.TargetStageID,
		Actor:         input.Actor,
		Automatic:     input.Automatic,
	})
	if err != nil {
		return nil, err
	}

	return &Output{
		ApplicationID:    res.Application.ID,
		FromStageID:      res.From.ID,
		CurrentStageID:   res.To.ID,
		StageName:        res.To.Name,
		HistoryID:        res.History.ID,
		NotificationType: res.Template,
		MovedAt:          res.History.CreatedAt.UTC().Format(time.RFC3339),
	}, nil
}
