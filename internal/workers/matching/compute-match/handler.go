// internal/workers/matching/compute-match/handler.go
package computematch

import (
	"context"
	"time"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"

	"job-matcher/internal/common/camunda"
	"job-matcher/internal/common/logger"
	"job-matcher/internal/common/observability"
	"job-matcher/internal/matching"
)

const (
	TaskType = "compute-match"
)

type Matcher interface {
	ComputeMatch(ctx context.Context, candidateID, jobID string) (*matching.ComputeResult, error)
}

type Handler struct {
	matcher Matcher
	runner  *camunda.JobRunner
	logger  logger.Logger
}

func NewHandler(config *Config, matcher Matcher, log logger.Logger, obs *observability.Observability) *Handler {
	log = log.WithFields(map[string]interface{}{"taskType": TaskType})
	return &Handler{
		matcher: matcher,
		runner:  camunda.NewJobRunner(TaskType, config.Timeout, log, obs),
		logger:  log,
	}
}

func (h *Handler) Handle(client worker.JobClient, job entities.Job) {
	camunda.Run(h.runner, client, job, h.Execute)
}

func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	res, err := h.matcher.ComputeMatch(ctx, input.CandidateID, input.JobID)
	if err != nil {
		return nil, err
	}

	m := res.Match
	h.logger.Info("match computed", map[string]interface{}{
		"matchId": m.ID,
		"score":   m.Score,
		"created": res.Created,
	})

	return &Output{
		MatchID:     m.ID,
		Score:       m.Score,
		Decision:    string(m.Decision),
		Created:     res.Created,
		SubScores:   res.SubScores,
		Evidence:    m.Evidence,
		GeneratedAt: m.GeneratedAt.UTC().Format(time.RFC3339),
	}, nil
}
