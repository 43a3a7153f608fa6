package notify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"job-matcher/internal/common/config"
	apperrors "job-matcher/internal/common/errors"
	"job-matcher/internal/common/logger"
	"job-matcher/internal/common/metrics"
	"job-matcher/internal/models"
)

const (
	readBatch            = 16
	defaultRetryInterval = 30 * time.Second
	defaultMaxAttempts   = 5

	deadLetterSuffix = ":dead"
	fieldError       = "error"
	fieldSourceID    = "sourceId"
)

// DeliverFunc sends one notification to its channels. A returned error leaves
// the message pending for redelivery unless it is a non-retryable
// StandardError.
type DeliverFunc func(ctx context.Context, n models.Notification) error

// Relay consumes the outbox stream as a member of a consumer group. Messages
// that cannot be delivered end up on the dead-letter stream. A Relay is
// driven by one goroutine.
type Relay struct {
	client      redis.UniversalClient
	stream      string
	deadLetter  string
	group       string
	consumer    string
	block       time.Duration
	retryEvery  time.Duration
	maxAttempts int
	attempts    map[string]int
	deliver     DeliverFunc
	logger      logger.Logger
}

func NewRelay(client redis.UniversalClient, cfg config.NotificationConfig, deliver DeliverFunc, log logger.Logger) *Relay {
	r := &Relay{
		client:      client,
		stream:      cfg.Stream,
		deadLetter:  cfg.Stream + deadLetterSuffix,
		group:       cfg.ConsumerGroup,
		consumer:    cfg.Consumer,
		block:       cfg.BlockTimeout,
		retryEvery:  cfg.RetryInterval,
		maxAttempts: cfg.MaxAttempts,
		attempts:    make(map[string]int),
		deliver:     deliver,
		logger:      log.Named("notify-relay"),
	}
	if r.retryEvery <= 0 {
		r.retryEvery = defaultRetryInterval
	}
	if r.maxAttempts <= 0 {
		r.maxAttempts = defaultMaxAttempts
	}
	return r
}

// EnsureGroup creates the stream and consumer group when missing.
func (r *Relay) EnsureGroup(ctx context.Context) error {
	err := r.client.XGroupCreateMkStream(ctx, r.stream, r.group, "0").Err()
	if err != nil && !strings.HasPrefix(err.Error(), "BUSYGROUP") {
		return fmt.Errorf("create consumer group %s: %w", r.group, err)
	}
	return nil
}

// Run delivers messages until ctx is cancelled. Messages left pending by an
// earlier run of this consumer are retried first; failed messages are claimed
// again every retry interval.
func (r *Relay) Run(ctx context.Context) error {
	if err := r.EnsureGroup(ctx); err != nil {
		return err
	}
	if _, err := r.ReplayPending(ctx); err != nil && ctx.Err() == nil {
		r.logger.Warn("failed to replay pending notifications", map[string]interface{}{"error": err.Error()})
	}

	interval := r.retryEvery
	if interval <= 0 {
		interval = defaultRetryInterval
	}
	retry := time.NewTicker(interval)
	defer retry.Stop()

	r.logger.Info("notification relay started", map[string]interface{}{
		"stream":        r.stream,
		"group":         r.group,
		"consumer":      r.consumer,
		"retryInterval": interval.String(),
	})
	for {
		if ctx.Err() != nil {
			return nil
		}
		select {
		case <-retry.C:
			if _, err := r.Reclaim(ctx); err != nil && ctx.Err() == nil {
				r.logger.Warn("failed to reclaim pending notifications", map[string]interface{}{"error": err.Error()})
			}
		default:
		}
		if _, err := r.ProcessOnce(ctx); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			r.logger.Error("notification relay read failed", map[string]interface{}{"error": err.Error()})
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(time.Second):
			}
		}
	}
}

// ProcessOnce reads one batch of new messages and returns how many were
// delivered.
func (r *Relay) ProcessOnce(ctx context.Context) (int, error) {
	msgs, err := r.read(ctx, ">", r.block)
	if err != nil {
		return 0, err
	}
	return r.handleAll(ctx, msgs), nil
}

// ReplayPending walks this consumer's whole pending list in batches and
// delivers each entry once more.
func (r *Relay) ReplayPending(ctx context.Context) (int, error) {
	cursor := "0"
	delivered := 0
	for {
		msgs, err := r.read(ctx, cursor, -1)
		if err != nil {
			return delivered, err
		}
		if len(msgs) == 0 {
			return delivered, nil
		}
		delivered += r.handleAll(ctx, msgs)
		cursor = msgs[len(msgs)-1].ID
	}
}

// Reclaim claims every message of the group that has been pending for at
// least the retry interval, including those of consumers that went away, and
// delivers it again.
func (r *Relay) Reclaim(ctx context.Context) (int, error) {
	start := "0-0"
	delivered := 0
	for {
		msgs, next, err := r.client.XAutoClaim(ctx, &redis.XAutoClaimArgs{
			Stream:   r.stream,
			Group:    r.group,
			Consumer: r.consumer,
			MinIdle:  r.retryEvery,
			Start:    start,
			Count:    readBatch,
		}).Result()
		if err != nil {
			return delivered, err
		}
		delivered += r.handleAll(ctx, msgs)
		if next == "" || next == "0-0" {
			return delivered, nil
		}
		start = next
	}
}

func (r *Relay) read(ctx context.Context, from string, block time.Duration) ([]redis.XMessage, error) {
	streams, err := r.client.XReadGroup(ctx, &redis.XReadGroupArgs{
		Group:    r.group,
		Consumer: r.consumer,
		Streams:  []string{r.stream, from},
		Count:    readBatch,
		Block:    block,
	}).Result()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var msgs []redis.XMessage
	for _, s := range streams {
		msgs = append(msgs, s.Messages...)
	}
	return msgs, nil
}

func (r *Relay) handleAll(ctx context.Context, msgs []redis.XMessage) int {
	delivered := 0
	for _, msg := range msgs {
		if r.handle(ctx, msg) {
			delivered++
		}
	}
	return delivered
}

func (r *Relay) handle(ctx context.Context, msg redis.XMessage) bool {
	n, err := decode(msg)
	if err != nil {
		r.logger.Error("malformed notification moved to dead letters", map[string]interface{}{
			"streamId": msg.ID,
			"error":    err.Error(),
		})
		metrics.NotificationsFailed.WithLabelValues("unknown", "decode").Inc()
		r.bury(ctx, msg, err)
		return false
	}

	err = r.deliver(ctx, n)
	if err == nil {
		r.settle(ctx, msg.ID)
		return true
	}

	metrics.NotificationsFailed.WithLabelValues(n.Type, "deliver").Inc()
	r.attempts[msg.ID]++
	fields := map[string]interface{}{
		"streamId":       msg.ID,
		"notificationId": n.ID,
		"type":           n.Type,
		"attempt":        r.attempts[msg.ID],
		"error":          err.Error(),
	}

	switch {
	case !retryable(err):
		r.logger.Error("notification rejected, moved to dead letters", fields)
		r.bury(ctx, msg, err)
	case r.attempts[msg.ID] >= r.maxAttempts:
		r.logger.Error("notification out of attempts, moved to dead letters", fields)
		r.bury(ctx, msg, err)
	default:
		r.logger.Warn("notification delivery failed, left pending", fields)
	}
	return false
}

// retryable reports whether a delivery error is worth another attempt. Errors
// outside the StandardError taxonomy are assumed transient.
func retryable(err error) bool {
	var std *apperrors.StandardError
	if errors.As(err, &std) {
		return std.Retryable
	}
	return true
}

// bury copies msg to the dead-letter stream and acks it. When the copy fails
// the message stays pending so nothing is lost.
func (r *Relay) bury(ctx context.Context, msg redis.XMessage, cause error) {
	values := make([]interface{}, 0, 2*len(msg.Values)+4)
	for k, v := range msg.Values {
		values = append(values, k, v)
	}
	values = append(values, fieldSourceID, msg.ID, fieldError, cause.Error())

	if err := r.client.XAdd(ctx, &redis.XAddArgs{Stream: r.deadLetter, Values: values}).Err(); err != nil {
		r.logger.Warn("failed to write dead letter", map[string]interface{}{
			"streamId": msg.ID,
			"error":    err.Error(),
		})
		return
	}
	r.settle(ctx, msg.ID)
}

func (r *Relay) settle(ctx context.Context, id string) {
	delete(r.attempts, id)
	if err := r.client.XAck(ctx, r.stream, r.group, id).Err(); err != nil {
		r.logger.Warn("failed to ack notification", map[string]interface{}{
			"streamId": id,
			"error":    err.Error(),
		})
	}
}

func decode(msg redis.XMessage) (models.Notification, error) {
	var n models.Notification
	raw, ok := msg.Values[fieldPayload].(string)
	if !ok {
		return n, fmt.Errorf("message %s has no %s field", msg.ID, fieldPayload)
	}
	if err := json.Unmarshal([]byte(raw), &n); err != nil {
		return n, fmt.Errorf("decode message %s: %w", msg.ID, err)
	}
	return n, nil
}
