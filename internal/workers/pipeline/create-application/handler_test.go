package createapplication

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "job-matcher/internal/common/errors"
	"job-matcher/internal/common/logger"
	"job-matcher/internal/models"
	"job-matcher/internal/pipeline"
)

type stubCreator struct {
	app *models.Application
	err error

	got pipeline.CreateApplicationRequest
}

func (s *stubCreator) CreateApplication(_ context.Context, req pipeline.CreateApplicationRequest) (*models.Application, error) {
	s.got = req
	return s.app, s.err
}

func newHandler(t *testing.T, c ApplicationCreator) *Handler {
	return NewHandler(&Config{Timeout: time.Second}, c, logger.NewTestLogger(t), nil)
}

func TestHandler_Execute_Success(t *testing.T) {
	c := &stubCreator{app: &models.Application{
		ID:             "app-1",
		CurrentStageID: "st-applied",
		CompanyID:      "co-1",
		CreatedAt:      time.Date(2024, 5, 2, 9, 30, 0, 0, time.UTC),
	}}

	out, err := newHandler(t, c).Execute(context.Background(), &Input{CandidateID: "cand-1", JobID: "job-1", Actor: "user-9"})

	require.NoError(t, err)
	assert.Equal(t, pipeline.CreateApplicationRequest{CandidateID: "cand-1", JobID: "job-1", Actor: "user-9"}, c.got)
	assert.Equal(t, "app-1", out.ApplicationID)
	assert.Equal(t, "st-applied", out.CurrentStageID)
	assert.Equal(t, "2024-05-02T09:30:00Z", out.CreatedAt)
}

func TestHandler_Execute_Duplicate(t *testing.T) {
	c := &stubCreator{err: apperrors.NewDuplicateApplicationError("cand-1", "job-1")}

	out, err := newHandler(t, c).Execute(context.Background(), &Input{CandidateID: "cand-1", JobID: "job-1"})

	assert.Nil(t, out)
	assert.ErrorIs(t, err, apperrors.ErrDuplicateApplication)
}
