package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"job-matcher/internal/common/database"
	apperrors "job-matcher/internal/common/errors"
)

// lookupRecipient reads the platform-owned candidates and jobs tables.
func lookupRecipient(ctx context.Context, q database.Querier, candidateID, jobID string) (*Recipient, error) {
	var rcp Recipient
	err := q.QueryRowContext(ctx, `
		SELECT c.user_id, j.title, j.company_id
		FROM candidates c
		CROSS JOIN jobs j
		WHERE c.id = $1 AND j.id = $2`,
		candidateID, jobID,
	).Scan(&rcp.UserID, &rcp.JobTitle, &rcp.CompanyID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.NewInvalidInputError(fmt.Sprintf("unknown candidate %s or job %s", candidateID, jobID))
	}
	if err != nil {
		return nil, apperrors.NewQueryExecutionFailedError("select_recipient", err)
	}
	return &rcp, nil
}

// lockCompanyStages serialises stage registry writers for one company until
// the surrounding transaction ends.
func lockCompanyStages(ctx context.Context, tx *sql.Tx, companyID string) error {
	if _, err := tx.ExecContext(ctx,
		`SELECT pg_advisory_xact_lock(hashtext('pipeline_stages:' || $1))`, companyID,
	); err != nil {
		return apperrors.NewQueryExecutionFailedError("lock_company_stages", err)
	}
	return nil
}
