// internal/workers/matching/decide-match/handler.go
package decidematch

import (
	"context"
	"time"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"

	"job-matcher/internal/common/camunda"
	"job-matcher/internal/common/logger"
	"job-matcher/internal/common/observability"
	"job-matcher/internal/models"
)

const (
	TaskType = "decide-match"
)

type Decider interface {
	DecideMatch(ctx context.Context, matchID, decision string) (*models.Match, bool, error)
}

type Handler struct {
	decider Decider
	runner  *camunda.JobRunner
	logger  logger.Logger
}

func NewHandler(config *Config, decider Decider, log logger.Logger, obs *observability.Observability) *Handler {
	log = log.WithFields(map[string]interface{}{"taskType": TaskType})
	return &Handler{
		decider: decider,
		runner:  camunda.NewJobRunner(TaskType, config.Timeout, log, obs),
		logger:  log,
	}
}

func (h *Handler) Handle(client worker.JobClient, job entities.Job) {
	camunda.Run(h.runner, client, job, h.Execute)
}

func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	m, changed, err := h.decider.DecideMatch(ctx, input.MatchID, input.Decision)
	if err != nil {
		return nil, err
	}

	if !changed {
		h.logger.Debug("decision already applied", map[string]interface{}{
			"matchId":  m.ID,
			"decision": m.Decision,
		})
	}

	return &Output{
		MatchID:     m.ID,
		CandidateID: m.CandidateID,
		JobID:       m.JobID,
		Decision:    string(m.Decision),
		Changed:     changed,
		UpdatedAt:   m.UpdatedAt.UTC().Format(time.RFC3339),
	}, nil
}
