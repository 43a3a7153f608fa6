// Package store holds the PostgreSQL repositories behind matching and the hiring pipeline.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"

	apperrors "job-matcher/internal/common/errors"
	"job-matcher/internal/common/validation"
	"job-matcher/internal/models"
)

const (
	SideCandidate = "candidate"
	SideJob       = "job"
)

// MatrixStore reads the newest matrix generated for a candidate or job.
type MatrixStore struct {
	db        *sql.DB
	validator *validation.MatrixValidator
}

func NewMatrixStore(db *sql.DB, validator *validation.MatrixValidator) *MatrixStore {
	return &MatrixStore{db: db, validator: validator}
}

func (s *MatrixStore) GetCandidateMatrix(ctx context.Context, candidateID string) (*models.CandidateMatrix, error) {
	var (
		m      models.CandidateMatrix
		cvFile sql.NullString
		raw    []byte
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT id, candidate_id, cv_file_id, matrix, created_at
		FROM candidate_matrices
		WHERE candidate_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT 1`, candidateID,
	).Scan(&m.ID, &m.CandidateID, &cvFile, &raw, &m.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.NewMissingMatrixError(SideCandidate, candidateID)
	}
	if err != nil {
		return nil, apperrors.NewQueryExecutionFailedError("select_candidate_matrix", err)
	}

	res, err := s.validator.ValidateCandidate(raw)
	if err != nil {
		return nil, apperrors.NewMatrixSchemaInvalidError(SideCandidate, candidateID, []string{err.Error()})
	}
	if !res.Valid {
		return nil, apperrors.NewMatrixSchemaInvalidError(SideCandidate, candidateID, res.Messages())
	}

	// row columns win over anything the generator put in the payload
	id, cand, created := m.ID, m.CandidateID, m.CreatedAt
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, apperrors.NewMatrixSchemaInvalidError(SideCandidate, candidateID, []string{err.Error()})
	}
	m.ID, m.CandidateID, m.CreatedAt = id, cand, created
	m.CVFileID = cvFile.String
	return &m, nil
}

func (s *MatrixStore) GetJobMatrix(ctx context.Context, jobID string) (*models.JobMatrix, error) {
	var (
		m   models.JobMatrix
		raw []byte
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT id, job_id, matrix, created_at
		FROM job_matrices
		WHERE job_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT 1`, jobID,
	).Scan(&m.ID, &m.JobID, &raw, &m.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.NewMissingMatrixError(SideJob, jobID)
	}
	if err != nil {
		return nil, apperrors.NewQueryExecutionFailedError("select_job_matrix", err)
	}

	res, err := s.validator.ValidateJob(raw)
	if err != nil {
		return nil, apperrors.NewMatrixSchemaInvalidError(SideJob, jobID, []string{err.Error()})
	}
	if !res.Valid {
		return nil, apperrors.NewMatrixSchemaInvalidError(SideJob, jobID, res.Messages())
	}

	id, job, created := m.ID, m.JobID, m.CreatedAt
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, apperrors.NewMatrixSchemaInvalidError(SideJob, jobID, []string{err.Error()})
	}
	m.ID, m.JobID, m.CreatedAt = id, job, created
	return &m, nil
}
