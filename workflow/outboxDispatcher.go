package workflow

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/mmdatafocus/ledger_backend/config"
	"github.com/mmdatafocus/ledger_backend/models"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// AuditPublisher sends one audit message and returns the broker's message id.
type AuditPublisher interface {
	Publish(ctx context.Context, msg config.AuditMessage) (string, error)
}

type AuditPublisherFunc func(ctx context.Context, msg config.AuditMessage) (string, error)

func (f AuditPublisherFunc) Publish(ctx context.Context, msg config.AuditMessage) (string, error) {
	return f(ctx, msg)
}

// AuditDispatcher drains the audit_logs outbox to Pub/Sub. Rows that keep failing are
// retried with doubling backoff and parked as DEAD after MaxAttempts.
type AuditDispatcher struct {
	DB           *gorm.DB
	Logger       *logrus.Logger
	Publisher    AuditPublisher
	DispatcherID string

	BatchSize      int
	PollInterval   time.Duration
	MaxAttempts    int
	InitialBackoff time.Duration
	Now            func() time.Time
}

func NewAuditDispatcher(db *gorm.DB, logger *logrus.Logger) *AuditDispatcher {
	return &AuditDispatcher{
		DB:             db,
		Logger:         logger,
		Publisher:      AuditPublisherFunc(config.PublishAuditMessage),
		DispatcherID:   uuid.NewString(),
		BatchSize:      50,
		PollInterval:   time.Second,
		MaxAttempts:    20,
		InitialBackoff: 5 * time.Second,
		Now:            time.Now,
	}
}

func (d *AuditDispatcher) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}
		if _, err := d.DispatchOnce(ctx); err != nil {
			config.LogError(d.Logger, "outboxDispatcher.go", "AuditDispatcher.Run", "DispatchOnce", d.DispatcherID, err)
		}
		select {
		case <-ctx.Done():
			return
		case <-time.After(d.PollInterval):
		}
	}
}

type DispatchResult struct {
	Published int
	Failed    int
	Dead      int
}

// DispatchOnce publishes one batch of pending audit logs.
func (d *AuditDispatcher) DispatchOnce(ctx context.Context) (DispatchResult, error) {
	var result DispatchResult
	now := d.now()
	logs, err := models.ClaimPendingAuditLogs(ctx, d.DB, now, d.BatchSize)
	if err != nil {
		return result, err
	}

	for i := range logs {
		rec := &logs[i]
		if _, pubErr := d.Publisher.Publish(ctx, rec.Message()); pubErr != nil {
			dead, err := d.markFailed(ctx, rec, pubErr, now)
			if err != nil {
				return result, err
			}
			if dead {
				result.Dead++
			} else {
				result.Failed++
			}
			continue
		}
		if err := models.MarkAuditLogPublished(ctx, d.DB, rec.ID, now); err != nil {
			return result, err
		}
		result.Published++
	}
	return result, nil
}

func (d *AuditDispatcher) markFailed(ctx context.Context, rec *models.AuditLog, cause error, now time.Time) (bool, error) {
	attempt := rec.PublishAttempts + 1
	fields := logrus.Fields{
		"field":         "AuditDispatcher",
		"dispatcher_id": d.DispatcherID,
		"audit_log_id":  rec.ID,
		"attempt":       attempt,
	}

	if d.MaxAttempts > 0 && attempt >= d.MaxAttempts {
		d.logger().WithFields(fields).Error(fmt.Sprintf("audit publish moved to DEAD after max attempts: %v", cause))
		return true, models.MarkAuditLogFailed(ctx, d.DB, rec.ID, cause, nil)
	}

	next := now.Add(d.backoff(attempt))
	fields["next_attempt_at"] = next.Format(time.RFC3339Nano)
	d.logger().WithFields(fields).Error(fmt.Sprintf("audit publish failed: %v", cause))
	return false, models.MarkAuditLogFailed(ctx, d.DB, rec.ID, cause, &next)
}

// backoff doubles from InitialBackoff per attempt, capped at 10 minutes.
func (d *AuditDispatcher) backoff(attempt int) time.Duration {
	backoff := d.InitialBackoff
	for i := 1; i < attempt; i++ {
		backoff *= 2
		if backoff > 10*time.Minute {
			return 10 * time.Minute
		}
	}
	return backoff
}

func (d *AuditDispatcher) now() time.Time {
	if d.Now == nil {
		return time.Now().UTC()
	}
	return d.Now().UTC()
}

func (d *AuditDispatcher) logger() *logrus.Logger {
	if d.Logger == nil {
		return config.GetLogger()
	}
	return d.Logger
}
