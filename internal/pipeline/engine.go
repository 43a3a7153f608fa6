// Package pipeline moves applications through a company's hiring stages.
package pipeline

import (
	"context"
	"database/sql"
	"errors"
	"strconv"
	"strings"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"job-matcher/internal/common/config"
	"job-matcher/internal/common/database"
	apperrors "job-matcher/internal/common/errors"
	"job-matcher/internal/common/logger"
	"job-matcher/internal/common/metrics"
	"job-matcher/internal/common/observability"
	"job-matcher/internal/models"
	"job-matcher/internal/notify"
	"job-matcher/internal/store"
)

const SystemActor = "system"

type MoveRequest struct {
	ApplicationID string
	TargetStageID string
	Actor         string
	// Automatic marks moves made by a process rather than a person. They may
	// not leave a terminal stage.
	Automatic bool
}

type MoveResult struct {
	Application *models.Application        `json:"application"`
	From        *models.PipelineStage      `json:"fromStage"`
	To          *models.PipelineStage      `json:"toStage"`
	History     *models.ApplicationHistory `json:"history"`
	Template    string                     `json:"notificationType"`
}

type CreateApplicationRequest struct {
	CandidateID string
	JobID       string
	Actor       string
}

// Engine is the application state machine. Every stage change and its history
// row commit together; notifications go out after commit and never fail the
// change.
type Engine struct {
	apps         *store.ApplicationRepository
	stages       *store.StageRegistry
	notifier     notify.Notifier
	terminal     map[string]bool
	enforceOrder bool
	obs          *observability.Observability
	logger       logger.Logger
}

func NewEngine(
	apps *store.ApplicationRepository,
	stages *store.StageRegistry,
	notifier notify.Notifier,
	cfg config.PipelineConfig,
	obs *observability.Observability,
	log logger.Logger,
) *Engine {
	terminal := make(map[string]bool, len(cfg.TerminalStages))
	for _, name := range cfg.TerminalStages {
		terminal[strings.ToLower(strings.TrimSpace(name))] = true
	}
	return &Engine{
		apps:         apps,
		stages:       stages,
		notifier:     notifier,
		terminal:     terminal,
		enforceOrder: cfg.EnforceStageOrder,
		obs:          obs,
		logger:       log.Named("pipeline"),
	}
}

func (e *Engine) IsTerminal(stageName string) bool {
	return e.terminal[strings.ToLower(strings.TrimSpace(stageName))]
}

// CreateApplication places a new application at the company's default stage,
// seeding the configured stages first for a company that has none.
func (e *Engine) CreateApplication(ctx context.Context, req CreateApplicationRequest) (*models.Application, error) {
	if req.CandidateID == "" || req.JobID == "" {
		return nil, apperrors.NewInvalidInputError("candidateId and jobId are required")
	}
	actor := actorOrSystem(req.Actor)

	var (
		app   *models.Application
		rcp   *store.Recipient
		stage *models.PipelineStage
	)
	err := database.WithTx(ctx, e.apps.DB(), func(tx *sql.Tx) error {
		var err error
		if rcp, err = e.apps.Recipient(ctx, tx, req.CandidateID, req.JobID); err != nil {
			return err
		}
		if stage, err = e.stages.DefaultStageTx(ctx, tx, rcp.CompanyID); err != nil {
			return err
		}
		if app, err = e.apps.Insert(ctx, tx, req.CandidateID, req.JobID, stage.ID); err != nil {
			return err
		}
		app.CompanyID = rcp.CompanyID
		return e.apps.InsertHistory(ctx, tx, &models.ApplicationHistory{
			ApplicationID: app.ID,
			ToStageID:     stage.ID,
			Actor:         actor,
			CreatedAt:     app.CreatedAt,
		})
	})
	if err != nil {
		return nil, txError("create_application", err)
	}

	e.logger.Info("application created", map[string]interface{}{
		"applicationId": app.ID,
		"candidateId":   app.CandidateID,
		"jobId":         app.JobID,
		"stageId":       stage.ID,
	})
	e.send(ctx, rcp.UserID, receivedTemplate(rcp.JobTitle), app, stage)
	return app, nil
}

// Move sets the application's current stage to req.TargetStageID and appends
// one history row, even when the target equals the current stage.
func (e *Engine) Move(ctx context.Context, req MoveRequest) (res *MoveResult, err error) {
	if req.ApplicationID == "" || req.TargetStageID == "" {
		return nil, apperrors.NewInvalidInputError("applicationId and targetStageId are required")
	}
	actor := actorOrSystem(req.Actor)

	ctx, span := e.obs.Tracer().Start(ctx, "pipeline.moveApplication", trace.WithAttributes(
		attribute.String("application.id", req.ApplicationID),
		attribute.String("stage.target", req.TargetStageID),
		attribute.Bool("move.automatic", req.Automatic),
	))
	defer func() { observability.EndSpan(span, err) }()

	var subject *store.MoveSubject
	res = &MoveResult{}
	err = database.WithTx(ctx, e.apps.DB(), func(tx *sql.Tx) error {
		var err error
		if subject, err = e.apps.LockForMove(ctx, tx, req.ApplicationID); err != nil {
			return err
		}
		app := &subject.Application

		if res.To, err = e.apps.Stage(ctx, tx, req.TargetStageID); err != nil {
			if errors.Is(err, apperrors.ErrStageNotFound) {
				return apperrors.NewInvalidStageTargetError(req.TargetStageID, app.CompanyID)
			}
			return err
		}
		if res.To.CompanyID != app.CompanyID {
			return apperrors.NewInvalidStageTargetError(req.TargetStageID, app.CompanyID)
		}
		if res.From, err = e.apps.Stage(ctx, tx, app.CurrentStageID); err != nil {
			return err
		}
		if err := e.checkTransition(ctx, tx, req, app, res.From, res.To); err != nil {
			return err
		}

		now := e.apps.Now()
		if err := e.apps.UpdateStage(ctx, tx, app.ID, res.To.ID, now); err != nil {
			return err
		}
		res.History = &models.ApplicationHistory{
			ApplicationID: app.ID,
			FromStageID:   res.From.ID,
			ToStageID:     res.To.ID,
			Actor:         actor,
			CreatedAt:     now,
		}
		if err := e.apps.InsertHistory(ctx, tx, res.History); err != nil {
			return err
		}
		app.CurrentStageID = res.To.ID
		app.UpdatedAt = now
		return nil
	})
	if err != nil {
		return nil, txError("move_application", err)
	}
	res.Application = &subject.Application

	tpl := TemplateFor(res.To.Name, subject.JobTitle)
	res.Template = tpl.Type
	metrics.StageTransitions.WithLabelValues(tpl.Type, strconv.FormatBool(req.Automatic)).Inc()

	e.logger.Info("application moved", map[string]interface{}{
		"applicationId": res.Application.ID,
		"fromStageId":   res.From.ID,
		"toStageId":     res.To.ID,
		"actor":         actor,
		"automatic":     req.Automatic,
	})
	e.send(ctx, subject.UserID, tpl, res.Application, res.To)
	return res, nil
}

// checkTransition applies the optional policies. Without them any stage of the
// company is a valid target, backwards included.
func (e *Engine) checkTransition(ctx context.Context, tx *sql.Tx, req MoveRequest, app *models.Application, from, to *models.PipelineStage) error {
	if req.Automatic && e.IsTerminal(from.Name) {
		return apperrors.NewTerminalStageError(app.ID, from.Name)
	}
	if !e.enforceOrder || to.Order <= from.Order || e.IsTerminal(to.Name) {
		return nil
	}

	stages, err := e.apps.CompanyStages(ctx, tx, app.CompanyID)
	if err != nil {
		return err
	}
	for _, s := range stages {
		if s.Order > from.Order {
			if s.ID != to.ID {
				return apperrors.NewStageOrderViolationError(from.Name, to.Name)
			}
			return nil
		}
	}
	return nil
}

// History returns the application's transitions, oldest first.
func (e *Engine) History(ctx context.Context, applicationID string) ([]models.ApplicationHistory, error) {
	if applicationID == "" {
		return nil, apperrors.NewInvalidInputError("applicationId is required")
	}
	return e.apps.GetHistory(ctx, applicationID)
}

func (e *Engine) send(ctx context.Context, userID string, tpl Template, app *models.Application, stage *models.PipelineStage) {
	e.notifier.Notify(ctx, models.Notification{
		UserID: userID,
		Type:   tpl.Type,
		Title:  tpl.Title,
		Body:   tpl.Body,
		Data: map[string]interface{}{
			"applicationId": app.ID,
			"jobId":         app.JobID,
			"companyId":     app.CompanyID,
			"stageId":       stage.ID,
			"stageName":     stage.Name,
		},
	})
}

func actorOrSystem(actor string) string {
	if strings.TrimSpace(actor) == "" {
		return SystemActor
	}
	return actor
}

func txError(operation string, err error) error {
	if apperrors.AsStandardError(err).Code != apperrors.ErrCodeInternal {
		return err
	}
	return apperrors.NewDatabaseInsertFailedError(operation, err)
}
