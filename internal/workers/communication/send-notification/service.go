// internal/workers/communication/send-notification/service.go
package sendnotification

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"

	awsclient "job-matcher/internal/common/aws"
	apperrors "job-matcher/internal/common/errors"
	"job-matcher/internal/common/metrics"
	"job-matcher/internal/models"
)

const maxSMSLength = 160

func (h *Handler) contact(ctx context.Context, userID string) (email, phone string, found bool, err error) {
	var e, p sql.NullString
	err = h.db.QueryRowContext(ctx,
		`SELECT email, phone FROM users WHERE id = $1`, userID,
	).Scan(&e, &p)
	if errors.Is(err, sql.ErrNoRows) {
		return "", "", false, nil
	}
	if err != nil {
		return "", "", false, apperrors.NewQueryExecutionFailedError("select_user_contact", err)
	}
	return e.String, p.String, true, nil
}

// store writes the in-app row keyed by the notification id. A redelivered
// notification finds its row and reports the status recorded last time.
func (h *Handler) store(ctx context.Context, n models.Notification) (inserted bool, status string, err error) {
	data := n.Data
	if data == nil {
		data = map[string]interface{}{}
	}
	raw, err := json.Marshal(data)
	if err != nil {
		return false, "", apperrors.NewInvalidInputError("encode notification data: " + err.Error())
	}

	err = h.db.QueryRowContext(ctx, `
		INSERT INTO notifications (id, user_id, type, title, body, data, status, read, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, FALSE, $8)
		ON CONFLICT (id) DO UPDATE SET id = EXCLUDED.id
		RETURNING status, (xmax = 0) AS inserted`,
		n.ID, n.UserID, n.Type, n.Title, n.Body, raw, StatusPending, n.CreatedAt,
	).Scan(&status, &inserted)
	if err != nil {
		return false, "", apperrors.NewDatabaseInsertFailedError("insert_notification", err)
	}
	return inserted, status, nil
}

func (h *Handler) sendEmail(ctx context.Context, to string, n models.Notification) error {
	_, err := h.email.SendEmail(ctx, awsclient.PlainTextEmail(h.config.FromEmail, to, n.Title, n.Body))
	record("email", err)
	if err != nil {
		return apperrors.NewNotificationSendFailedError(n.Type, err)
	}
	return nil
}

func (h *Handler) sendSMS(ctx context.Context, phone string, n models.Notification) error {
	_, err := h.sms.Publish(ctx, awsclient.TransactionalSMS(phone, smsText(n)))
	record("sms", err)
	if err != nil {
		return apperrors.NewNotificationSendFailedError(n.Type, err)
	}
	return nil
}

func smsText(n models.Notification) string {
	msg := n.Title
	if n.Body != "" {
		msg += ": " + n.Body
	}
	if r := []rune(msg); len(r) > maxSMSLength {
		msg = string(r[:maxSMSLength-3]) + "..."
	}
	return msg
}

func record(channel string, err error) {
	status := "sent"
	if err != nil {
		status = "failed"
	}
	metrics.NotificationsDelivered.WithLabelValues(channel, status).Inc()
}
