// internal/workers/communication/send-notification/handler.go
package sendnotification

import (
	"context"
	"database/sql"
	"time"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
	"github.com/google/uuid"

	awsclient "job-matcher/internal/common/aws"
	"job-matcher/internal/common/camunda"
	apperrors "job-matcher/internal/common/errors"
	"job-matcher/internal/common/logger"
	"job-matcher/internal/common/observability"
	"job-matcher/internal/models"
)

const (
	TaskType = "send-notification"
)

// Handler stores the in-app notification and fans it out to email and SMS.
// It serves both the BPMN task and the outbox relay.
type Handler struct {
	config *Config
	db     *sql.DB
	email  awsclient.EmailSender
	sms    awsclient.SMSSender
	runner *camunda.JobRunner
	logger logger.Logger
	now    func() time.Time
}

// NewHandler accepts nil senders; the matching channel is then skipped.
func NewHandler(config *Config, db *sql.DB, email awsclient.EmailSender, sms awsclient.SMSSender, log logger.Logger, obs *observability.Observability) *Handler {
	log = log.WithFields(map[string]interface{}{"taskType": TaskType})
	return &Handler{
		config: config,
		db:     db,
		email:  email,
		sms:    sms,
		runner: camunda.NewJobRunner(TaskType, config.Timeout, log, obs),
		logger: log,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

func (h *Handler) Handle(client worker.JobClient, job entities.Job) {
	camunda.Run(h.runner, client, job, h.Execute)
}

func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	n := models.Notification{
		ID:     input.NotificationID,
		UserID: input.UserID,
		Type:   input.Type,
		Title:  input.Title,
		Body:   input.Body,
		Data:   input.Data,
	}
	return h.deliver(ctx, n)
}

// Deliver matches notify.DeliverFunc. Only storage failures are returned so
// the relay redelivers; channel failures end up in the stored status.
func (h *Handler) Deliver(ctx context.Context, n models.Notification) error {
	_, err := h.deliver(ctx, n)
	return err
}

func (h *Handler) deliver(ctx context.Context, n models.Notification) (*Output, error) {
	if n.UserID == "" || n.Type == "" {
		return nil, apperrors.NewInvalidInputError("userId and type are required")
	}
	if n.ID == "" {
		n.ID = uuid.New().String()
	}
	if n.CreatedAt.IsZero() {
		n.CreatedAt = h.now()
	}
	out := &Output{NotificationID: n.ID}

	email, phone, found, err := h.contact(ctx, n.UserID)
	if err != nil {
		return nil, err
	}
	if !found {
		h.logger.Warn("recipient not found", map[string]interface{}{
			"userId": n.UserID,
			"type":   n.Type,
		})
		out.Status = StatusDisabled
		return out, nil
	}

	inserted, status, err := h.store(ctx, n)
	if err != nil {
		return nil, err
	}
	if !inserted && status != StatusPending {
		h.logger.Debug("notification already delivered", map[string]interface{}{
			"notificationId": n.ID,
			"status":         status,
		})
		out.Status = status
		return out, nil
	}

	attempted, failed := 0, 0
	if h.config.EmailEnabled && h.email != nil && email != "" {
		attempted++
		if err := h.sendEmail(ctx, email, n); err != nil {
			failed++
			h.logger.Error("email send failed", map[string]interface{}{
				"error":          err.Error(),
				"notificationId": n.ID,
			})
		} else {
			out.EmailSent = true
		}
	}
	if h.config.smsFor(n.Type) && h.sms != nil && phone != "" {
		attempted++
		if err := h.sendSMS(ctx, phone, n); err != nil {
			failed++
			h.logger.Error("sms send failed", map[string]interface{}{
				"error":          err.Error(),
				"notificationId": n.ID,
			})
		} else {
			out.SMSSent = true
		}
	}

	switch {
	case attempted == 0:
		out.Status = StatusDisabled
	case failed == attempted:
		out.Status = StatusFailed
	default:
		out.Status = StatusSent
	}

	if _, err := h.db.ExecContext(ctx,
		`UPDATE notifications SET status = $2 WHERE id = $1`, n.ID, out.Status,
	); err != nil {
		h.logger.Warn("failed to record notification status", map[string]interface{}{
			"error":          err.Error(),
			"notificationId": n.ID,
			"status":         out.Status,
		})
	}

	h.logger.Info("notification delivered", map[string]interface{}{
		"notificationId": n.ID,
		"type":           n.Type,
		"status":         out.Status,
		"emailSent":      out.EmailSent,
		"smsSent":        out.SMSSent,
	})
	return out, nil
}
