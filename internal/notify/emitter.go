// Package notify publishes user notifications to a Redis stream outbox and
// relays them to the delivery channels.
package notify

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"job-matcher/internal/common/config"
	"job-matcher/internal/common/logger"
	"job-matcher/internal/common/metrics"
	"job-matcher/internal/models"
)

const (
	fieldType    = "type"
	fieldUserID  = "userId"
	fieldPayload = "payload"

	defaultPublishTimeout = 500 * time.Millisecond
)

// Notifier is implemented by anything that can take a notification off the
// caller's hands. Notify never reports failure to the caller.
type Notifier interface {
	Notify(ctx context.Context, n models.Notification)
}

// Emitter appends notifications to the outbox stream.
type Emitter struct {
	client  redis.UniversalClient
	stream  string
	maxLen  int64
	timeout time.Duration
	logger  logger.Logger
}

func NewEmitter(client redis.UniversalClient, cfg config.NotificationConfig, log logger.Logger) *Emitter {
	e := &Emitter{
		client:  client,
		stream:  cfg.Stream,
		maxLen:  cfg.MaxLen,
		timeout: cfg.PublishTimeout,
		logger:  log.Named("notify"),
	}
	if e.timeout <= 0 {
		e.timeout = defaultPublishTimeout
	}
	return e
}

// Notify publishes n. The publish gets its own deadline and survives
// cancellation of ctx, so a request that already committed still notifies.
func (e *Emitter) Notify(ctx context.Context, n models.Notification) {
	if n.ID == "" {
		n.ID = uuid.New().String()
	}
	if n.CreatedAt.IsZero() {
		n.CreatedAt = time.Now().UTC()
	}

	fields := map[string]interface{}{
		"notificationId": n.ID,
		"userId":         n.UserID,
		"type":           n.Type,
	}

	payload, err := json.Marshal(n)
	if err != nil {
		metrics.NotificationsFailed.WithLabelValues(n.Type, "encode").Inc()
		e.logger.Error("failed to encode notification", withErr(fields, err))
		return
	}

	pubCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), e.timeout)
	defer cancel()

	args := &redis.XAddArgs{
		Stream: e.stream,
		Values: []interface{}{
			fieldType, n.Type,
			fieldUserID, n.UserID,
			fieldPayload, string(payload),
		},
	}
	if e.maxLen > 0 {
		args.MaxLen = e.maxLen
		args.Approx = true
	}

	id, err := e.client.XAdd(pubCtx, args).Result()
	if err != nil {
		metrics.NotificationsFailed.WithLabelValues(n.Type, "publish").Inc()
		e.logger.Warn("notification not published", withErr(fields, err))
		return
	}

	metrics.NotificationsEmitted.WithLabelValues(n.Type).Inc()
	fields["streamId"] = id
	e.logger.Debug("notification published", fields)
}

func withErr(fields map[string]interface{}, err error) map[string]interface{} {
	out := make(map[string]interface{}, len(fields)+1)
	for k, v := range fields {
		out[k] = v
	}
	out["error"] = err.Error()
	return out
}

// Discard drops every notification. Used by the CLI when no Redis is reachable.
type Discard struct{}

func (Discard) Notify(context.Context, models.Notification) {}
