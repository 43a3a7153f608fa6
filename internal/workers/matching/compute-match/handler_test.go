package computematch

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

type stubMatcher struct {
	res *matching.ComputeResult
	err error

	candidateID, jobID string
}

func (s *stubMatcher) ComputeMatch(_ context.Context, candidateID, jobID string) (*matching.ComputeResult, error) {
	s.candidateID, s.jobID = candidateID, jobID
	return s.res, s.err
}

func TestHandler_Execute_Success(t *testing.T) {
	generated := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	matcher := &stubMatcher{res: &matching.ComputeResult{
		Match: &models.Match{
			ID:          "match-1",
			Score:       82,
			Decision:    models.DecisionPending,
			Evidence:    []models.MatchEvidence{{Axis: models.AxisSkills, SubScore: 100}},
			GeneratedAt: generated,
		},
		Created:   true,
		SubScores: map[string]int{models.AxisSkills: 100},
	}}
	h := NewHandler(&Config{Timeout: time.Second}, matcher, logger.NewTestLogger(t), nil)

	out, err := h.Execute(context.Background(), &Input{CandidateID: "cand-1", JobID: "job-1"})

	require.NoError(t, err)
	assert.Equal(t, "cand-1", matcher.candidateID)
	assert.Equal(t, "job-1", matcher.jobID)
	assert.Equal(t, "match-1", out.MatchID)
	assert.Equal(t, 82, out.Score)
	assert.Equal(t, "pending", out.Decision)
	assert.True(t, out.Created)
	assert.Equal(t, 100, out.SubScores[models.AxisSkills])
	assert.Len(t, out.Evidence, 1)
	assert.Equal(t, "2024-03-01T12:00:00Z", out.GeneratedAt)
}

func TestHandler_Execute_MissingMatrix(t *testing.T) {
	matcher := &stubMatcher{err: apperrors.NewMissingMatrixError("candidate", "cand-1")}
	h := NewHandler(&Config{Timeout: time.Second}, matcher, logger.NewTestLogger(t), nil)

	out, err := h.Execute(context.Background(), &Input{CandidateID: "cand-1", JobID: "job-1"})

	assert.Nil(t, out)
	assert.ErrorIs(t, err, apperrors.ErrMissingMatrix)
}
