package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"job-matcher/internal/common/database"
	apperrors "job-matcher/internal/common/errors"
	"job-matcher/internal/common/logger"
	"job-matcher/internal/common/metrics"
	"job-matcher/internal/models"
)

const stageColumns = `id, company_id, name, stage_order, color, is_default`

type CreateStageInput struct {
	CompanyID string
	Name      string
	Color     string
	IsDefault bool
}

// UpdateStageInput changes only the non-nil fields.
type UpdateStageInput struct {
	StageID   string
	Name      *string
	Color     *string
	IsDefault *bool
}

// StageRegistry owns the ordered, per-company list of pipeline stages.
//
// Two rules are checked here rather than left to the schema: every company
// that has stages has exactly one default, and stage_order is a permutation of
// 1..n after every reorder.
type StageRegistry struct {
	db            *sql.DB
	logger        logger.Logger
	defaultStages []string
}

func NewStageRegistry(db *sql.DB, defaultStages []string, log logger.Logger) *StageRegistry {
	return &StageRegistry{
		db:            db,
		logger:        log.Named("stage-registry"),
		defaultStages: defaultStages,
	}
}

func (r *StageRegistry) ListStages(ctx context.Context, companyID string) ([]models.PipelineStage, error) {
	return listStages(ctx, r.db, companyID, false)
}

func (r *StageRegistry) GetStage(ctx context.Context, stageID string) (*models.PipelineStage, error) {
	return getStage(ctx, r.db, stageID, false)
}

// DefaultStage returns the stage new applications start in.
func (r *StageRegistry) DefaultStage(ctx context.Context, companyID string) (*models.PipelineStage, error) {
	stages, err := listStages(ctx, r.db, companyID, false)
	if err != nil {
		return nil, err
	}
	return r.pickDefault(companyID, stages), nil
}

// pickDefault chooses the lowest-order flagged stage. Duplicate or missing
// flags are logged and counted, never returned as errors. Returns nil only
// when stages is empty.
func (r *StageRegistry) pickDefault(companyID string, stages []models.PipelineStage) *models.PipelineStage {
	if len(stages) == 0 {
		return nil
	}

	var flagged []models.PipelineStage
	for _, s := range stages {
		if s.IsDefault {
			flagged = append(flagged, s)
		}
	}

	switch {
	case len(flagged) == 0:
		metrics.DataIntegrityWarnings.WithLabelValues("NO_DEFAULT_STAGE").Inc()
		r.logger.Warn("company has no default stage, using first stage", map[string]interface{}{
			"companyId": companyID,
			"stageId":   stages[0].ID,
		})
		s := stages[0]
		return &s
	case len(flagged) > 1:
		ids := make([]string, 0, len(flagged))
		for _, s := range flagged {
			ids = append(ids, s.ID)
		}
		warn := apperrors.NewDuplicateDefaultStageError(companyID, ids)
		metrics.DataIntegrityWarnings.WithLabelValues(string(warn.Code)).Inc()
		r.logger.Warn("multiple default stages, using lowest order", map[string]interface{}{
			"companyId": companyID,
			"stageIds":  ids,
			"errorCode": string(warn.Code),
		})
	}
	// stages are sorted by order, so flagged[0] is the lowest
	s := flagged[0]
	return &s
}

func (r *StageRegistry) CreateStage(ctx context.Context, in CreateStageInput) (*models.PipelineStage, error) {
	name := strings.TrimSpace(in.Name)
	if in.CompanyID == "" || name == "" {
		return nil, apperrors.NewInvalidInputError("companyId and name are required")
	}

	var created *models.PipelineStage
	err := database.WithTx(ctx, r.db, func(tx *sql.Tx) error {
		if err := lockCompanyStages(ctx, tx, in.CompanyID); err != nil {
			return err
		}

		var maxOrder, count int
		if err := tx.QueryRowContext(ctx, `
			SELECT COALESCE(MAX(stage_order), 0), COUNT(*)
			FROM pipeline_stages
			WHERE company_id = $1`, in.CompanyID,
		).Scan(&maxOrder, &count); err != nil {
			return apperrors.NewQueryExecutionFailedError("select_max_stage_order", err)
		}

		isDefault := in.IsDefault || count == 0
		if isDefault && count > 0 {
			if _, err := tx.ExecContext(ctx,
				`UPDATE pipeline_stages SET is_default = FALSE WHERE company_id = $1 AND is_default`,
				in.CompanyID,
			); err != nil {
				return apperrors.NewDatabaseInsertFailedError("clear_default_stage", err)
			}
		}

		stage, err := insertStage(ctx, tx, in.CompanyID, name, in.Color, maxOrder+1, isDefault)
		if err != nil {
			return err
		}
		created = stage
		return nil
	})
	if err != nil {
		metrics.StageMutations.WithLabelValues("create", "error").Inc()
		return nil, wrapTxErr("create_stage", err)
	}

	metrics.StageMutations.WithLabelValues("create", "ok").Inc()
	r.logger.Info("stage created", map[string]interface{}{
		"companyId": created.CompanyID,
		"stageId":   created.ID,
		"order":     created.Order,
		"isDefault": created.IsDefault,
	})
	return created, nil
}

func (r *StageRegistry) UpdateStage(ctx context.Context, in UpdateStageInput) (*models.PipelineStage, error) {
	if in.Name != nil && strings.TrimSpace(*in.Name) == "" {
		return nil, apperrors.NewInvalidInputError("stage name must not be empty")
	}

	var updated *models.PipelineStage
	err := database.WithTx(ctx, r.db, func(tx *sql.Tx) error {
		current, err := getStage(ctx, tx, in.StageID, false)
		if err != nil {
			return err
		}
		if err := lockCompanyStages(ctx, tx, current.CompanyID); err != nil {
			return err
		}
		// re-read under the company lock
		if current, err = getStage(ctx, tx, in.StageID, true); err != nil {
			return err
		}

		if in.IsDefault != nil && !*in.IsDefault && current.IsDefault {
			return apperrors.NewDefaultStageProtectedError(current.ID, "flag another stage as default instead")
		}
		if in.IsDefault != nil && *in.IsDefault && !current.IsDefault {
			if _, err := tx.ExecContext(ctx,
				`UPDATE pipeline_stages SET is_default = (id = $2) WHERE company_id = $1`,
				current.CompanyID, current.ID,
			); err != nil {
				return apperrors.NewDatabaseInsertFailedError("set_default_stage", err)
			}
		}

		var name, color sql.NullString
		if in.Name != nil {
			name = sql.NullString{String: strings.TrimSpace(*in.Name), Valid: true}
		}
		if in.Color != nil {
			color = sql.NullString{String: *in.Color, Valid: true}
		}
		updated, err = scanStage(tx.QueryRowContext(ctx, `
			UPDATE pipeline_stages
			SET name = COALESCE($2, name), color = COALESCE($3, color)
			WHERE id = $1
			RETURNING `+stageColumns,
			current.ID, name, color,
		))
		if err != nil {
			return apperrors.NewDatabaseInsertFailedError("update_stage", err)
		}
		return nil
	})
	if err != nil {
		metrics.StageMutations.WithLabelValues("update", "error").Inc()
		return nil, wrapTxErr("update_stage", err)
	}

	metrics.StageMutations.WithLabelValues("update", "ok").Inc()
	return updated, nil
}

// Reorder assigns stage_order 1..n following orderedIDs. orderedIDs must name
// every stage of the company exactly once; otherwise nothing is written.
func (r *StageRegistry) Reorder(ctx context.Context, companyID string, orderedIDs []string) ([]models.PipelineStage, error) {
	var result []models.PipelineStage
	err := database.WithTx(ctx, r.db, func(tx *sql.Tx) error {
		if err := lockCompanyStages(ctx, tx, companyID); err != nil {
			return err
		}
		current, err := listStages(ctx, tx, companyID, true)
		if err != nil {
			return err
		}
		if err := checkPermutation(companyID, current, orderedIDs); err != nil {
			return err
		}

		for i, id := range orderedIDs {
			if _, err := tx.ExecContext(ctx,
				`UPDATE pipeline_stages SET stage_order = $1 WHERE id = $2 AND company_id = $3`,
				i+1, id, companyID,
			); err != nil {
				return apperrors.NewDatabaseInsertFailedError("reorder_stage", err)
			}
		}

		result, err = listStages(ctx, tx, companyID, false)
		return err
	})
	if err != nil {
		metrics.StageMutations.WithLabelValues("reorder", "error").Inc()
		return nil, wrapTxErr("reorder_stages", err)
	}

	metrics.StageMutations.WithLabelValues("reorder", "ok").Inc()
	r.logger.Info("stages reordered", map[string]interface{}{
		"companyId": companyID,
		"stageIds":  orderedIDs,
	})
	return result, nil
}

func checkPermutation(companyID string, current []models.PipelineStage, orderedIDs []string) error {
	if len(orderedIDs) != len(current) {
		return apperrors.NewInvalidReorderError(companyID,
			fmt.Sprintf("expected %d stage ids, got %d", len(current), len(orderedIDs)))
	}
	known := make(map[string]bool, len(current))
	for _, s := range current {
		known[s.ID] = true
	}
	seen := make(map[string]bool, len(orderedIDs))
	for _, id := range orderedIDs {
		if !known[id] {
			return apperrors.NewInvalidReorderError(companyID, "unknown stage "+id)
		}
		if seen[id] {
			return apperrors.NewInvalidReorderError(companyID, "duplicate stage "+id)
		}
		seen[id] = true
	}
	return nil
}

// DeleteStage removes an empty, non-default stage.
func (r *StageRegistry) DeleteStage(ctx context.Context, stageID string) error {
	err := database.WithTx(ctx, r.db, func(tx *sql.Tx) error {
		stage, err := getStage(ctx, tx, stageID, true)
		if err != nil {
			return err
		}
		if stage.IsDefault {
			return apperrors.NewDefaultStageProtectedError(stage.ID, "default stage cannot be deleted")
		}

		occupants, err := countApplicationsInStage(ctx, tx, stage.ID)
		if err != nil {
			return err
		}
		if occupants > 0 {
			return apperrors.NewStageInUseError(stage.ID, occupants)
		}

		if _, err := tx.ExecContext(ctx, `DELETE FROM pipeline_stages WHERE id = $1`, stage.ID); err != nil {
			if database.IsForeignKeyViolation(err) {
				// an application moved in after the count
				return apperrors.NewStageInUseError(stage.ID, 1)
			}
			return apperrors.NewDatabaseInsertFailedError("delete_stage", err)
		}
		return nil
	})
	if err != nil {
		metrics.StageMutations.WithLabelValues("delete", "error").Inc()
		return wrapTxErr("delete_stage", err)
	}

	metrics.StageMutations.WithLabelValues("delete", "ok").Inc()
	r.logger.Info("stage deleted", map[string]interface{}{"stageId": stageID})
	return nil
}

// EnsureDefaultStages seeds the configured stage list for a company that has
// no stages yet and returns the company's stages.
func (r *StageRegistry) EnsureDefaultStages(ctx context.Context, companyID string) ([]models.PipelineStage, error) {
	var stages []models.PipelineStage
	err := database.WithTx(ctx, r.db, func(tx *sql.Tx) error {
		var err error
		stages, err = r.ensureDefaultStages(ctx, tx, companyID)
		return err
	})
	if err != nil {
		return nil, wrapTxErr("seed_stages", err)
	}
	return stages, nil
}

func (r *StageRegistry) ensureDefaultStages(ctx context.Context, tx *sql.Tx, companyID string) ([]models.PipelineStage, error) {
	if err := lockCompanyStages(ctx, tx, companyID); err != nil {
		return nil, err
	}
	stages, err := listStages(ctx, tx, companyID, false)
	if err != nil || len(stages) > 0 {
		return stages, err
	}

	for i, name := range r.defaultStages {
		stage, err := insertStage(ctx, tx, companyID, name, "", i+1, i == 0)
		if err != nil {
			return nil, err
		}
		stages = append(stages, *stage)
	}
	r.logger.Info("seeded default stages", map[string]interface{}{
		"companyId": companyID,
		"count":     len(stages),
	})
	return stages, nil
}

// DefaultStageTx resolves the starting stage inside tx, seeding the company's
// pipeline first when it is empty.
func (r *StageRegistry) DefaultStageTx(ctx context.Context, tx *sql.Tx, companyID string) (*models.PipelineStage, error) {
	stages, err := r.ensureDefaultStages(ctx, tx, companyID)
	if err != nil {
		return nil, err
	}
	stage := r.pickDefault(companyID, stages)
	if stage == nil {
		return nil, apperrors.NewStageNotFoundError("default stage for company " + companyID)
	}
	return stage, nil
}

func insertStage(ctx context.Context, tx *sql.Tx, companyID, name, color string, order int, isDefault bool) (*models.PipelineStage, error) {
	stage, err := scanStage(tx.QueryRowContext(ctx, `
		INSERT INTO pipeline_stages (id, company_id, name, stage_order, color, is_default)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING `+stageColumns,
		uuid.New().String(), companyID, name, order, color, isDefault,
	))
	if err != nil {
		return nil, apperrors.NewDatabaseInsertFailedError("insert_stage", err)
	}
	return stage, nil
}

func listStages(ctx context.Context, q database.Querier, companyID string, forUpdate bool) ([]models.PipelineStage, error) {
	query := `SELECT ` + stageColumns + ` FROM pipeline_stages WHERE company_id = $1 ORDER BY stage_order, id`
	if forUpdate {
		query += ` FOR UPDATE`
	}
	rows, err := q.QueryContext(ctx, query, companyID)
	if err != nil {
		return nil, apperrors.NewQueryExecutionFailedError("list_stages", err)
	}
	defer rows.Close()

	var stages []models.PipelineStage
	for rows.Next() {
		s, err := scanStage(rows)
		if err != nil {
			return nil, apperrors.NewQueryExecutionFailedError("list_stages", err)
		}
		stages = append(stages, *s)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewQueryExecutionFailedError("list_stages", err)
	}
	return stages, nil
}

func getStage(ctx context.Context, q database.Querier, stageID string, forUpdate bool) (*models.PipelineStage, error) {
	query := `SELECT ` + stageColumns + ` FROM pipeline_stages WHERE id = $1`
	if forUpdate {
		query += ` FOR UPDATE`
	}
	s, err := scanStage(q.QueryRowContext(ctx, query, stageID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.NewStageNotFoundError(stageID)
	}
	if err != nil {
		return nil, apperrors.NewQueryExecutionFailedError("select_stage", err)
	}
	return s, nil
}

func scanStage(row rowScanner) (*models.PipelineStage, error) {
	var s models.PipelineStage
	if err := row.Scan(&s.ID, &s.CompanyID, &s.Name, &s.Order, &s.Color, &s.IsDefault); err != nil {
		return nil, err
	}
	return &s, nil
}

// wrapTxErr keeps typed errors and classifies the rest (begin/commit failures)
// as retryable database errors.
func wrapTxErr(operation string, err error) error {
	var std *apperrors.StandardError
	if errors.As(err, &std) {
		return err
	}
	if database.IsUniqueViolation(err) {
		return apperrors.NewInvalidReorderError("", "stage order conflict: "+err.Error())
	}
	return apperrors.NewDatabaseInsertFailedError(operation, err)
}
