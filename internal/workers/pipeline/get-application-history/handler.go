// internal/workers/pipeline/get-application-history/handler.go
package getapplicationhistory

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
	TaskType = "get-application-history"
)

type HistoryReader interface {
	History(ctx context.Context, applicationID string) ([]models.ApplicationHistory, error)
}

type Handler struct {
	history HistoryReader
	runner  *camunda.JobRunner
}

func NewHandler(config *Config, history HistoryReader, log logger.Logger, obs *observability.Observability) *Handler {
	log = log.WithFields(map[string]interface{}{"taskType": TaskType})
	return &Handler{
		history: history,
		runner:  camunda.NewJobRunner(TaskType, config.Timeout, log, obs),
	}
}

func (h *Handler) Handle(client worker.JobClient, job entities.Job) {
	camunda.Run(h.runner, client, job, h.Execute)
}

func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	history, err := h.history.History(ctx, input.ApplicationID)
	if err != nil {
		return nil, err
	}
	return &Output{
		ApplicationID: input.ApplicationID,
		History:       history,
		Transitions:   len(history),
	}, nil
}
