package pipeline

import (
	"context"
	"strings"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	apperrors "job-matcher/internal/common/errors"
	"job-matcher/internal/common/observability"
	"job-matcher/internal/models"
	"job-matcher/internal/store"
)

const (
	OpCreate  = "create"
	OpUpdate  = "update"
	OpDelete  = "delete"
	OpReorder = "reorder"
)

// StageMutation is one change to a company's stage list. Fields other than
// Operation and CompanyID are read according to the operation.
type StageMutation struct {
	Operation  string
	CompanyID  string
	StageID    string
	Name       *string
	Color      *string
	IsDefault  *bool
	OrderedIDs []string
}

func (e *Engine) ListStages(ctx context.Context, companyID string) ([]models.PipelineStage, error) {
	if companyID == "" {
		return nil, apperrors.NewInvalidInputError("companyId is required")
	}
	stages, err := e.stages.ListStages(ctx, companyID)
	if err != nil {
		return nil, err
	}
	if stages == nil {
		stages = []models.PipelineStage{}
	}
	return stages, nil
}

// MutateStages applies m and returns the company's stages afterwards.
func (e *Engine) MutateStages(ctx context.Context, m StageMutation) (stages []models.PipelineStage, err error) {
	if m.CompanyID == "" {
		return nil, apperrors.NewInvalidInputError("companyId is required")
	}
	op := strings.ToLower(strings.TrimSpace(m.Operation))

	ctx, span := e.obs.Tracer().Start(ctx, "pipeline.mutateStages", trace.WithAttributes(
		attribute.String("company.id", m.CompanyID),
		attribute.String("stages.operation", op),
	))
	defer func() { observability.EndSpan(span, err) }()

	switch op {
	case OpCreate:
		in := store.CreateStageInput{CompanyID: m.CompanyID}
		if m.Name != nil {
			in.Name = *m.Name
		}
		if m.Color != nil {
			in.Color = *m.Color
		}
		if m.IsDefault != nil {
			in.IsDefault = *m.IsDefault
		}
		if _, err := e.stages.CreateStage(ctx, in); err != nil {
			return nil, err
		}
	case OpUpdate:
		if err := e.ownedStage(ctx, m.CompanyID, m.StageID); err != nil {
			return nil, err
		}
		if _, err := e.stages.UpdateStage(ctx, store.UpdateStageInput{
			StageID:   m.StageID,
			Name:      m.Name,
			Color:     m.Color,
			IsDefault: m.IsDefault,
		}); err != nil {
			return nil, err
		}
	case OpDelete:
		if err := e.ownedStage(ctx, m.CompanyID, m.StageID); err != nil {
			return nil, err
		}
		if err := e.stages.DeleteStage(ctx, m.StageID); err != nil {
			return nil, err
		}
	case OpReorder:
		return e.stages.Reorder(ctx, m.CompanyID, m.OrderedIDs)
	default:
		return nil, apperrors.NewInvalidInputError("unknown stage operation " + m.Operation)
	}

	return e.ListStages(ctx, m.CompanyID)
}

// ownedStage hides stages of other companies behind STAGE_NOT_FOUND.
func (e *Engine) ownedStage(ctx context.Context, companyID, stageID string) error {
	if stageID == "" {
		return apperrors.NewInvalidInputError("stageId is required")
	}
	stage, err := e.stages.GetStage(ctx, stageID)
	if err != nil {
		return err
	}
	if stage.CompanyID != companyID {
		return apperrors.NewStageNotFoundError(stageID)
	}
	return nil
}
