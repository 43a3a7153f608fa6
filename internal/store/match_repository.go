package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"

	apperrors "job-matcher/internal/common/errors"
	"job-matcher/internal/models"
)

const matchColumns = `id, candidate_id, job_id, score, evidence, decision,
	candidate_matrix_id, job_matrix_id, generated_at, created_at, updated_at, version`

// MatchUpsert carries a freshly computed score for one candidate/job pair.
type MatchUpsert struct {
	CandidateID       string
	JobID             string
	Score             int
	Evidence          []models.MatchEvidence
	CandidateMatrixID string
	JobMatrixID       string
}

// Recipient is who hears about a match or application and what it is about.
type Recipient struct {
	UserID    string
	JobTitle  string
	CompanyID string
}

type MatchRepository struct {
	db  *sql.DB
	now func() time.Time
}

func NewMatchRepository(db *sql.DB) *MatchRepository {
	return &MatchRepository{db: db, now: func() time.Time { return time.Now().UTC() }}
}

// Upsert writes the score for the pair in one statement. An existing row keeps
// its id and decision; score, evidence, matrix ids and timestamps are replaced
// and its version goes up by one. created reports whether the row was inserted.
func (r *MatchRepository) Upsert(ctx context.Context, in MatchUpsert) (*models.Match, bool, error) {
	evidence, err := json.Marshal(in.Evidence)
	if err != nil {
		return nil, false, apperrors.NewInvalidInputError("encode evidence: " + err.Error())
	}

	now := r.now()
	row := r.db.QueryRowContext(ctx, `
		INSERT INTO matches (`+matchColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $9, $9, 1)
		ON CONFLICT (candidate_id, job_id) DO UPDATE SET
			score               = EXCLUDED.score,
			evidence            = EXCLUDED.evidence,
			candidate_matrix_id = EXCLUDED.candidate_matrix_id,
			job_matrix_id       = EXCLUDED.job_matrix_id,
			generated_at        = EXCLUDED.generated_at,
			updated_at          = EXCLUDED.updated_at,
			version             = matches.version + 1
		RETURNING `+matchColumns+`, (xmax = 0) AS inserted`,
		uuid.New().String(),
		in.CandidateID,
		in.JobID,
		in.Score,
		evidence,
		string(models.DecisionPending),
		in.CandidateMatrixID,
		in.JobMatrixID,
		now,
	)

	var inserted bool
	m, err := scanMatch(row, &inserted)
	if err != nil {
		return nil, false, apperrors.NewDatabaseInsertFailedError("upsert_match", err)
	}
	return m, inserted, nil
}

func (r *MatchRepository) Get(ctx context.Context, matchID string) (*models.Match, error) {
	m, err := scanMatch(r.db.QueryRowContext(ctx,
		`SELECT `+matchColumns+` FROM matches WHERE id = $1`, matchID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.NewMatchNotFoundError(matchID)
	}
	if err != nil {
		return nil, apperrors.NewQueryExecutionFailedError("select_match", err)
	}
	return m, nil
}

// SetDecision moves the match to decision and bumps its version. Reapplying
// the current decision is a no-op and reports changed=false.
func (r *MatchRepository) SetDecision(ctx context.Context, matchID string, decision models.Decision) (*models.Match, bool, error) {
	m, err := scanMatch(r.db.QueryRowContext(ctx, `
		UPDATE matches
		SET decision = $2, updated_at = $3, version = version + 1
		WHERE id = $1 AND decision <> $2
		RETURNING `+matchColumns,
		matchID, string(decision), r.now(),
	))
	if err == nil {
		return m, true, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, false, apperrors.NewDatabaseInsertFailedError("update_match_decision", err)
	}

	// either unknown or already in that state
	m, err = r.Get(ctx, matchID)
	if err != nil {
		return nil, false, err
	}
	return m, false, nil
}

// TopForJob ranks stored matches for a job. An empty decision matches all.
func (r *MatchRepository) TopForJob(ctx context.Context, jobID string, minScore int, decision models.Decision, limit int) ([]models.Match, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+matchColumns+`
		FROM matches
		WHERE job_id = $1 AND score >= $2 AND ($3 = '' OR decision = $3)
		ORDER BY score DESC, updated_at DESC
		LIMIT $4`,
		jobID, minScore, string(decision), limit,
	)
	if err != nil {
		return nil, apperrors.NewQueryExecutionFailedError("rank_matches", err)
	}
	defer rows.Close()

	var out []models.Match
	for rows.Next() {
		m, err := scanMatch(rows)
		if err != nil {
			return nil, apperrors.NewQueryExecutionFailedError("rank_matches", err)
		}
		out = append(out, *m)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewQueryExecutionFailedError("rank_matches", err)
	}
	return out, nil
}

// Recipient resolves the candidate's user and the job it is about.
func (r *MatchRepository) Recipient(ctx context.Context, candidateID, jobID string) (*Recipient, error) {
	return lookupRecipient(ctx, r.db, candidateID, jobID)
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanMatch(row rowScanner, extra ...interface{}) (*models.Match, error) {
	var (
		m        models.Match
		decision string
		evidence []byte
	)
	dest := []interface{}{
		&m.ID, &m.CandidateID, &m.JobID, &m.Score, &evidence, &decision,
		&m.CandidateMatrixID, &m.JobMatrixID, &m.GeneratedAt, &m.CreatedAt, &m.UpdatedAt, &m.Version,
	}
	if err := row.Scan(append(dest, extra...)...); err != nil {
		return nil, err
	}
	m.Decision = models.Decision(decision)
	if len(evidence) > 0 {
		if err := json.Unmarshal(evidence, &m.Evidence); err != nil {
			return nil, err
		}
	}
	return &m, nil
}
