package rankjobmatches

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "job-matcher/internal/common/errors"
	"job-matcher/internal/common/logger"
	"job-matcher/internal/matching"
	"job-matcher/internal/models"
)

type stubRanker struct {
	matches []models.Match
	source  string
	err     error

	got matching.RankQuery
}

func (s *stubRanker) RankJobMatches(_ context.Context, q matching.RankQuery) ([]models.Match, string, error) {
	s.got = q
	return s.matches, s.source, s.err
}

func newHandler(t *testing.T, r Ranker) *Handler {
	return NewHandler(&Config{Timeout: time.Second, DefaultLimit: 20}, r, logger.NewTestLogger(t), nil)
}

func TestHandler_Execute_Success(t *testing.T) {
	r := &stubRanker{
		matches: []models.Match{
			{ID: "m-1", CandidateID: "c-1", Score: 91, Decision: models.DecisionPending},
			{ID: "m-2", CandidateID: "c-2", Score: 74, Decision: models.DecisionShortlisted},
		},
		source: "elasticsearch",
	}

	out, err := newHandler(t, r).Execute(context.Background(), &Input{JobID: "job-1", MinScore: 70, Decision: "pending"})

	require.NoError(t, err)
	assert.Equal(t, matching.RankQuery{JobID: "job-1", MinScore: 70, Decision: "pending", Limit: 20}, r.got)
	assert.Equal(t, 2, out.Total)
	assert.Equal(t, "elasticsearch", out.Source)
	assert.Equal(t, "m-1", out.Matches[0].MatchID)
	assert.Equal(t, "shortlisted", out.Matches[1].Decision)
}

func TestHandler_Execute_EmptyResultIsNotNil(t *testing.T) {
	r := &stubRanker{source: "postgres"}

	out, err := newHandler(t, r).Execute(context.Background(), &Input{JobID: "job-1", Limit: 5})

	require.NoError(t, err)
	assert.Equal(t, 5, r.got.Limit)
	assert.NotNil(t, out.Matches)
	assert.Zero(t, out.Total)
}

func TestHandler_Execute_InvalidDecisionFilter(t *testing.T) {
	r := &stubRanker{err: apperrors.NewInvalidDecisionError("maybe")}

	out, err := newHandler(t, r).Execute(context.Background(), &Input{JobID: "job-1", Decision: "maybe"})

	assert.Nil(t, out)
	assert.ErrorIs(t, err, apperrors.ErrInvalidDecision)
}
