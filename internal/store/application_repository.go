package store

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"

	"job-matcher/internal/common/database"
	apperrors "job-matcher/internal/common/errors"
	"job-matcher/internal/models"
)

// MoveSubject is an application locked for a stage change together with the
// people and job it concerns.
type MoveSubject struct {
	Application models.Application
	UserID      string
	JobTitle    string
}

// ApplicationRepository reads and writes applications and their history.
// Methods taking a *sql.Tx are meant to be composed into one transaction by
// the pipeline engine.
type ApplicationRepository struct {
	db  *sql.DB
	now func() time.Time
}

func NewApplicationRepository(db *sql.DB) *ApplicationRepository {
	return &ApplicationRepository{db: db, now: func() time.Time { return time.Now().UTC() }}
}

func (r *ApplicationRepository) DB() *sql.DB { return r.db }

func (r *ApplicationRepository) Now() time.Time { return r.now() }

// Recipient resolves who an application for candidateID/jobID would notify.
func (r *ApplicationRepository) Recipient(ctx context.Context, tx *sql.Tx, candidateID, jobID string) (*Recipient, error) {
	return lookupRecipient(ctx, tx, candidateID, jobID)
}

// Insert creates the application row. A second application for the same
// candidate and job fails with DUPLICATE_APPLICATION.
func (r *ApplicationRepository) Insert(ctx context.Context, tx *sql.Tx, candidateID, jobID, stageID string) (*models.Application, error) {
	now := r.now()
	app := models.Application{
		ID:             uuid.New().String(),
		CandidateID:    candidateID,
		JobID:          jobID,
		CurrentStageID: stageID,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	// ON CONFLICT DO NOTHING keeps the transaction usable for the error path
	res, err := tx.ExecContext(ctx, `
		INSERT INTO applications (id, candidate_id, job_id, current_stage_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $5)
		ON CONFLICT (candidate_id, job_id) DO NOTHING`,
		app.ID, candidateID, jobID, stageID, now,
	)
	if err != nil {
		if database.IsUniqueViolation(err) {
			return nil, apperrors.NewDuplicateApplicationError(candidateID, jobID)
		}
		return nil, apperrors.NewDatabaseInsertFailedError("insert_application", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return nil, apperrors.NewDuplicateApplicationError(candidateID, jobID)
	}
	return &app, nil
}

// LockForMove loads the application and takes its row lock until tx ends.
func (r *ApplicationRepository) LockForMove(ctx context.Context, tx *sql.Tx, applicationID string) (*MoveSubject, error) {
	var s MoveSubject
	a := &s.Application
	err := tx.QueryRowContext(ctx, `
		SELECT a.id, a.candidate_id, a.job_id, a.current_stage_id, a.created_at, a.updated_at,
		       j.company_id, j.title, c.user_id
		FROM applications a
		JOIN jobs j ON j.id = a.job_id
		JOIN candidates c ON c.id = a.candidate_id
		WHERE a.id = $1
		FOR UPDATE OF a`, applicationID,
	).Scan(&a.ID, &a.CandidateID, &a.JobID, &a.CurrentStageID, &a.CreatedAt, &a.UpdatedAt,
		&a.CompanyID, &s.JobTitle, &s.UserID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.NewApplicationNotFoundError(applicationID)
	}
	if err != nil {
		return nil, apperrors.NewQueryExecutionFailedError("lock_application", err)
	}
	return &s, nil
}

func (r *ApplicationRepository) UpdateStage(ctx context.Context, tx *sql.Tx, applicationID, stageID string, at time.Time) error {
	if _, err := tx.ExecContext(ctx,
		`UPDATE applications SET current_stage_id = $2, updated_at = $3 WHERE id = $1`,
		applicationID, stageID, at,
	); err != nil {
		return apperrors.NewDatabaseInsertFailedError("update_application_stage", err)
	}
	return nil
}

// InsertHistory appends one transition. An empty FromStageID is stored as NULL.
func (r *ApplicationRepository) InsertHistory(ctx context.Context, tx *sql.Tx, h *models.ApplicationHistory) error {
	if h.ID == "" {
		h.ID = uuid.New().String()
	}
	if h.CreatedAt.IsZero() {
		h.CreatedAt = r.now()
	}
	from := sql.NullString{String: h.FromStageID, Valid: h.FromStageID != ""}
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO application_history (id, application_id, from_stage_id, to_stage_id, actor, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		h.ID, h.ApplicationID, from, h.ToStageID, h.Actor, h.CreatedAt,
	); err != nil {
		return apperrors.NewDatabaseInsertFailedError("insert_application_history", err)
	}
	return nil
}

// Stage reads one stage inside tx.
func (r *ApplicationRepository) Stage(ctx context.Context, tx *sql.Tx, stageID string) (*models.PipelineStage, error) {
	return getStage(ctx, tx, stageID, false)
}

// CompanyStages reads the ordered stages of a company inside tx.
func (r *ApplicationRepository) CompanyStages(ctx context.Context, tx *sql.Tx, companyID string) ([]models.PipelineStage, error) {
	return listStages(ctx, tx, companyID, false)
}

// GetHistory returns every transition of the application in insertion order.
// Moves on one application serialize on its row lock, so seq follows commit
// order even when worker clocks disagree.
func (r *ApplicationRepository) GetHistory(ctx context.Context, applicationID string) ([]models.ApplicationHistory, error) {
	var exists bool
	if err := r.db.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM applications WHERE id = $1)`, applicationID,
	).Scan(&exists); err != nil {
		return nil, apperrors.NewQueryExecutionFailedError("select_application", err)
	}
	if !exists {
		return nil, apperrors.NewApplicationNotFoundError(applicationID)
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT id, application_id, from_stage_id, to_stage_id, actor, created_at
		FROM application_history
		WHERE application_id = $1
		ORDER BY seq`, applicationID,
	)
	if err != nil {
		return nil, apperrors.NewQueryExecutionFailedError("select_application_history", err)
	}
	defer rows.Close()

	history := []models.ApplicationHistory{}
	for rows.Next() {
		var (
			h    models.ApplicationHistory
			from sql.NullString
		)
		if err := rows.Scan(&h.ID, &h.ApplicationID, &from, &h.ToStageID, &h.Actor, &h.CreatedAt); err != nil {
			return nil, apperrors.NewQueryExecutionFailedError("select_application_history", err)
		}
		h.FromStageID = from.String
		history = append(history, h)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewQueryExecutionFailedError("select_application_history", err)
	}
	return history, nil
}

func countApplicationsInStage(ctx context.Context, q database.Querier, stageID string) (int, error) {
	var n int
	if err := q.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM applications WHERE current_stage_id = $1`, stageID,
	).Scan(&n); err != nil {
		return 0, apperrors.NewQueryExecutionFailedError("count_stage_applications", err)
	}
	return n, nil
}
