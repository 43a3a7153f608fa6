package store

import (
	"context"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "job-matcher/internal/common/errors"
	"job-matcher/internal/common/logger"
)

var defaultStageNames = []string{"Applied", "Screening", "Interview", "Offer", "Hired", "Rejected"}

func newRegistry(t *testing.T) (*StageRegistry, sqlmock.Sqlmock) {
	db, mock := newMock(t)
	return NewStageRegistry(db, defaultStageNames, logger.NewTestLogger(t)), mock
}

func threeStages() *sqlmock.Rows {
	return stageRows().
		AddRow("st-1", "co-1", "Applied", 1, "", true).
		AddRow("st-2", "co-1", "Interview", 2, "", false).
		AddRow("st-3", "co-1", "Hired", 3, "", false)
}

func TestStageRegistry_ListStages(t *testing.T) {
	r, mock := newRegistry(t)
	mock.ExpectQuery("FROM pipeline_stages WHERE company_id").
		WithArgs("co-1").
		WillReturnRows(threeStages())

	stages, err := r.ListStages(context.Background(), "co-1")
	require.NoError(t, err)
	require.Len(t, stages, 3)
	for i, s := range stages {
		assert.Equal(t, i+1, s.Order)
	}
}

func TestStageRegistry_DefaultStagePicksLowestOrderWhenDuplicated(t *testing.T) {
	r, mock := newRegistry(t)
	mock.ExpectQuery("FROM pipeline_stages WHERE company_id").
		WithArgs("co-1").
		WillReturnRows(stageRows().
			AddRow("st-1", "co-1", "Sourced", 1, "", false).
			AddRow("st-2", "co-1", "Applied", 2, "", true).
			AddRow("st-3", "co-1", "Screening", 3, "", true))

	stage, err := r.DefaultStage(context.Background(), "co-1")
	require.NoError(t, err)
	assert.Equal(t, "st-2", stage.ID)
}

func TestStageRegistry_DefaultStageFallsBackToFirst(t *testing.T) {
	r, mock := newRegistry(t)
	mock.ExpectQuery("FROM pipeline_stages WHERE company_id").
		WillReturnRows(stageRows().
			AddRow("st-1", "co-1", "Applied", 1, "", false).
			AddRow("st-2", "co-1", "Screening", 2, "", false))

	stage, err := r.DefaultStage(context.Background(), "co-1")
	require.NoError(t, err)
	assert.Equal(t, "st-1", stage.ID)
}

func TestStageRegistry_CreateFirstStageBecomesDefault(t *testing.T) {
	r, mock := newRegistry(t)

	mock.ExpectBegin()
	mock.ExpectExec("pg_advisory_xact_lock").WithArgs("co-1").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery("MAX").WithArgs("co-1").
		WillReturnRows(sqlmock.NewRows([]string{"max", "count"}).AddRow(0, 0))
	mock.ExpectQuery("INSERT INTO pipeline_stages").
		WithArgs(sqlmock.AnyArg(), "co-1", "Applied", 1, "#00aa00", true).
		WillReturnRows(stageRows().AddRow("st-1", "co-1", "Applied", 1, "#00aa00", true))
	mock.ExpectCommit()

	stage, err := r.CreateStage(context.Background(), CreateStageInput{CompanyID: "co-1", Name: " Applied ", Color: "#00aa00"})
	require.NoError(t, err)
	assert.True(t, stage.IsDefault)
	assert.Equal(t, 1, stage.Order)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStageRegistry_CreateDefaultClearsPrevious(t *testing.T) {
	r, mock := newRegistry(t)

	mock.ExpectBegin()
	mock.ExpectExec("pg_advisory_xact_lock").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery("MAX").WillReturnRows(sqlmock.NewRows([]string{"max", "count"}).AddRow(3, 3))
	mock.ExpectExec("SET is_default = FALSE").WithArgs("co-1").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery("INSERT INTO pipeline_stages").
		WithArgs(sqlmock.AnyArg(), "co-1", "Sourced", 4, "", true).
		WillReturnRows(stageRows().AddRow("st-4", "co-1", "Sourced", 4, "", true))
	mock.ExpectCommit()

	stage, err := r.CreateStage(context.Background(), CreateStageInput{CompanyID: "co-1", Name: "Sourced", IsDefault: true})
	require.NoError(t, err)
	assert.Equal(t, 4, stage.Order)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStageRegistry_CreateRequiresName(t *testing.T) {
	r, _ := newRegistry(t)
	_, err := r.CreateStage(context.Background(), CreateStageInput{CompanyID: "co-1", Name: "  "})
	assert.True(t, errors.Is(err, apperrors.ErrInvalidInput))
}

func TestStageRegistry_UpdateCannotUnflagDefault(t *testing.T) {
	r, mock := newRegistry(t)
	off := false

	mock.ExpectBegin()
	mock.ExpectQuery("FROM pipeline_stages WHERE id").WithArgs("st-1").
		WillReturnRows(stageRows().AddRow("st-1", "co-1", "Applied", 1, "", true))
	mock.ExpectExec("pg_advisory_xact_lock").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery("FROM pipeline_stages WHERE id").WithArgs("st-1").
		WillReturnRows(stageRows().AddRow("st-1", "co-1", "Applied", 1, "", true))
	mock.ExpectRollback()

	_, err := r.UpdateStage(context.Background(), UpdateStageInput{StageID: "st-1", IsDefault: &off})
	assert.True(t, errors.Is(err, apperrors.ErrDefaultStageProtected))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStageRegistry_ReorderWritesPermutation(t *testing.T) {
	r, mock := newRegistry(t)

	mock.ExpectBegin()
	mock.ExpectExec("pg_advisory_xact_lock").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery("FOR UPDATE").WithArgs("co-1").WillReturnRows(threeStages())
	mock.ExpectExec("SET stage_order").WithArgs(1, "st-3", "co-1").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("SET stage_order").WithArgs(2, "st-1", "co-1").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("SET stage_order").WithArgs(3, "st-2", "co-1").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery("FROM pipeline_stages WHERE company_id").WithArgs("co-1").
		WillReturnRows(stageRows().
			AddRow("st-3", "co-1", "Hired", 1, "", false).
			AddRow("st-1", "co-1", "Applied", 2, "", true).
			AddRow("st-2", "co-1", "Interview", 3, "", false))
	mock.ExpectCommit()

	stages, err := r.Reorder(context.Background(), "co-1", []string{"st-3", "st-1", "st-2"})
	require.NoError(t, err)
	require.Len(t, stages, 3)
	assert.Equal(t, "st-3", stages[0].ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStageRegistry_ReorderRejectsNonPermutation(t *testing.T) {
	tests := []struct {
		name string
		ids  []string
	}{
		{"omitted id", []string{"st-1", "st-2"}},
		{"duplicate id", []string{"st-1", "st-1", "st-2"}},
		{"foreign id", []string{"st-1", "st-2", "other-co-stage"}},
		{"extra id", []string{"st-1", "st-2", "st-3", "st-4"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, mock := newRegistry(t)
			mock.ExpectBegin()
			mock.ExpectExec("pg_advisory_xact_lock").WillReturnResult(sqlmock.NewResult(0, 0))
			mock.ExpectQuery("FOR UPDATE").WillReturnRows(threeStages())
			mock.ExpectRollback()

			_, err := r.Reorder(context.Background(), "co-1", tt.ids)
			assert.True(t, errors.Is(err, apperrors.ErrInvalidReorder))
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestStageRegistry_ReorderFailureMidwayRollsBack(t *testing.T) {
	r, mock := newRegistry(t)

	mock.ExpectBegin()
	mock.ExpectExec("pg_advisory_xact_lock").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery("FOR UPDATE").WillReturnRows(threeStages())
	mock.ExpectExec("SET stage_order").WithArgs(1, "st-2", "co-1").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("SET stage_order").WithArgs(2, "st-1", "co-1").WillReturnError(errors.New("connection reset"))
	mock.ExpectRollback()

	_, err := r.Reorder(context.Background(), "co-1", []string{"st-2", "st-1", "st-3"})
	require.Error(t, err)
	assert.True(t, apperrors.AsStandardError(err).Retryable)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func expectDeleteAttempt(mock sqlmock.Sqlmock, occupants int) {
	mock.ExpectBegin()
	mock.ExpectQuery("FROM pipeline_stages WHERE id").WithArgs("st-2").
		WillReturnRows(stageRows().AddRow("st-2", "co-1", "Interview", 2, "", false))
	mock.ExpectQuery("SELECT COUNT").WithArgs("st-2").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(occupants))
}

func TestStageRegistry_DeleteInUseThenEmpty(t *testing.T) {
	r, mock := newRegistry(t)

	expectDeleteAttempt(mock, 2)
	mock.ExpectRollback()

	err := r.DeleteStage(context.Background(), "st-2")
	require.True(t, errors.Is(err, apperrors.ErrStageInUse))
	assert.Equal(t, 2, apperrors.AsStandardError(err).Metadata["applications"])

	// the application moved elsewhere
	expectDeleteAttempt(mock, 0)
	mock.ExpectExec("DELETE FROM pipeline_stages").WithArgs("st-2").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	require.NoError(t, r.DeleteStage(context.Background(), "st-2"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStageRegistry_DeleteDefaultIsProtected(t *testing.T) {
	r, mock := newRegistry(t)

	mock.ExpectBegin()
	mock.ExpectQuery("FROM pipeline_stages WHERE id").WithArgs("st-1").
		WillReturnRows(stageRows().AddRow("st-1", "co-1", "Applied", 1, "", true))
	mock.ExpectRollback()

	err := r.DeleteStage(context.Background(), "st-1")
	assert.True(t, errors.Is(err, apperrors.ErrDefaultStageProtected))
}

func TestStageRegistry_DeleteUnknownStage(t *testing.T) {
	r, mock := newRegistry(t)

	mock.ExpectBegin()
	mock.ExpectQuery("FROM pipeline_stages WHERE id").WillReturnRows(stageRows())
	mock.ExpectRollback()

	err := r.DeleteStage(context.Background(), "nope")
	assert.True(t, errors.Is(err, apperrors.ErrStageNotFound))
}

func TestStageRegistry_EnsureDefaultStagesSeedsEmptyCompany(t *testing.T) {
	r, mock := newRegistry(t)

	mock.ExpectBegin()
	mock.ExpectExec("pg_advisory_xact_lock").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery("FROM pipeline_stages WHERE company_id").WillReturnRows(stageRows())
	for i, name := range defaultStageNames {
		mock.ExpectQuery("INSERT INTO pipeline_stages").
			WithArgs(sqlmock.AnyArg(), "co-9", name, i+1, "", i == 0).
			WillReturnRows(stageRows().AddRow("seed-"+name, "co-9", name, i+1, "", i == 0))
	}
	mock.ExpectCommit()

	stages, err := r.EnsureDefaultStages(context.Background(), "co-9")
	require.NoError(t, err)
	require.Len(t, stages, len(defaultStageNames))
	assert.True(t, stages[0].IsDefault)
	assert.Equal(t, "Rejected", stages[5].Name)
	assert.NoError(t, mock.ExpectationsWereMet())
}
