// internal/workers/matching/rank-job-matches/handler.go
package rankjobmatches

import (
	"context"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"

	"job-matcher/internal/common/camunda"
	"job-matcher/internal/common/logger"
	"job-matcher/internal/common/observability"
	"job-matcher/internal/matching"
	"job-matcher/internal/models"
)

const (
	TaskType = "rank-job-matches"
)

type Ranker interface {
	RankJobMatches(ctx context.Context, q matching.RankQuery) ([]models.Match, string, error)
}

type Handler struct {
	config *Config
	ranker Ranker
	runner *camunda.JobRunner
	logger logger.Logger
}

func NewHandler(config *Config, ranker Ranker, log logger.Logger, obs *observability.Observability) *Handler {
	log = log.WithFields(map[string]interface{}{"taskType": TaskType})
	return &Handler{
		config: config,
		ranker: ranker,
		runner: camunda.NewJobRunner(TaskType, config.Timeout, log, obs),
		logger: log,
	}
}

func (h *Handler) Handle(client worker.JobClient, job entities.Job) {
	camunda.Run(h.runner, client, job, h.Execute)
}

func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	limit := input.Limit
	if limit <= 0 {
		limit = h.config.DefaultLimit
	}

	matches, source, err := h.ranker.RankJobMatches(ctx, matching.RankQuery{
		JobID:    input.JobID,
		MinScore: input.MinScore,
		Decision: input.Decision,
		Limit:    limit,
	})
	if err != nil {
		return nil, err
	}

	ranked := make([]RankedMatch, 0, len(matches))
	for _, m := range matches {
		ranked = append(ranked, RankedMatch{
			MatchID:     m.ID,
			CandidateID: m.CandidateID,
			Score:       m.Score,
			Decision:    string(m.Decision),
		})
	}

	h.logger.Info("matches ranked", map[string]interface{}{
		"jobId":  input.JobID,
		"total":  len(ranked),
		"source": source,
	})

	return &Output{
		JobID:   input.JobID,
		Matches: ranked,
		Total:   len(ranked),
		Source:  source,
	}, nil
}
