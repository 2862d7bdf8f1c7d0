package models

import (
	"context"
	"encoding/json"
	"time"

	"github.com/mmdatafocus/ledger_backend/config"
	"github.com/mmdatafocus/ledger_backend/utils"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type AuditRecord struct {
	Action      AuditAction
	EntityType  string
	EntityId    int
	Description string
	Changes     map[string]interface{}
}

// AuditSink receives POST/UNPOST records inside the posting transaction.
type AuditSink interface {
	Record(ctx context.Context, tx *gorm.DB, rec AuditRecord) error
}

type AuditSinkFunc func(ctx context.Context, tx *gorm.DB, rec AuditRecord) error

func (f AuditSinkFunc) Record(ctx context.Context, tx *gorm.DB, rec AuditRecord) error {
	return f(ctx, tx, rec)
}

// AuditLog doubles as the outbox for audit publishing.
type AuditLog struct {
	ID              int            `gorm:"primary_key" json:"id"`
	Action          AuditAction    `gorm:"size:20;not null;index" json:"action"`
	EntityType      string         `gorm:"size:50;not null;index:idx_audit_entity" json:"entity_type"`
	EntityId        int            `gorm:"not null;index:idx_audit_entity" json:"entity_id"`
	Description     string         `gorm:"size:255" json:"description"`
	Changes         datatypes.JSON `json:"changes"`
	UserId          *int           `gorm:"index" json:"user_id"`
	CorrelationId   string         `gorm:"size:64;index" json:"correlation_id"`
	PublishStatus   PublishStatus  `gorm:"size:20;not null;default:'PENDING';index" json:"publish_status"`
	PublishAttempts int            `gorm:"not null;default:0" json:"publish_attempts"`
	NextAttemptAt   *time.Time     `gorm:"index" json:"next_attempt_at"`
	LastError       string         `gorm:"type:text" json:"last_error"`
	PublishedAt     *time.Time     `json:"published_at"`
	CreatedAt       time.Time      `gorm:"autoCreateTime" json:"created_at"`
}

// DBAuditSink writes AuditLog rows in the caller's transaction.
type DBAuditSink struct{}

func (DBAuditSink) Record(ctx context.Context, tx *gorm.DB, rec AuditRecord) error {
	changes, err := json.Marshal(rec.Changes)
	if err != nil {
		return err
	}
	entry := AuditLog{
		Action:        rec.Action,
		EntityType:    rec.EntityType,
		EntityId:      rec.EntityId,
		Description:   rec.Description,
		Changes:       datatypes.JSON(changes),
		PublishStatus: PublishStatusPending,
	}
	if userId, ok := utils.GetUserIdFromContext(ctx); ok {
		entry.UserId = &userId
	}
	_, entry.CorrelationId = utils.EnsureCorrelationId(ctx)
	return tx.WithContext(ctx).Create(&entry).Error
}

func (l *AuditLog) Message() config.AuditMessage {
	return config.AuditMessage{
		ID:            l.ID,
		Action:        string(l.Action),
		EntityType:    l.EntityType,
		EntityId:      l.EntityId,
		Description:   l.Description,
		Changes:       json.RawMessage(l.Changes),
		UserId:        l.UserId,
		CorrelationId: l.CorrelationId,
		RecordedAt:    l.CreatedAt,
	}
}

func ListAuditLogs(ctx context.Context, tx *gorm.DB, entityType string, entityId int) ([]AuditLog, error) {
	var logs []AuditLog
	err := tx.WithContext(ctx).
		Where("entity_type = ? AND entity_id = ?", entityType, entityId).
		Order("id").
		Find(&logs).Error
	return logs, err
}

// ClaimPendingAuditLogs returns up to limit rows ready for publishing, oldest first.
func ClaimPendingAuditLogs(ctx context.Context, tx *gorm.DB, now time.Time, limit int) ([]AuditLog, error) {
	var logs []AuditLog
	err := tx.WithContext(ctx).
		Where("publish_status IN ?", []PublishStatus{PublishStatusPending, PublishStatusFailed}).
		Where("(next_attempt_at IS NULL OR next_attempt_at <= ?)", now).
		Order("id").
		Limit(limit).
		Find(&logs).Error
	return logs, err
}

func MarkAuditLogPublished(ctx context.Context, tx *gorm.DB, id int, now time.Time) error {
	return tx.WithContext(ctx).Model(&AuditLog{}).Where("id = ?", id).Updates(map[string]interface{}{
		"publish_status":   PublishStatusPublished,
		"published_at":     now,
		"publish_attempts": gorm.Expr("publish_attempts + 1"),
		"last_error":       "",
		"next_attempt_at":  nil,
	}).Error
}

// MarkAuditLogFailed schedules a retry, or parks the row as DEAD when nextAttempt is nil.
func MarkAuditLogFailed(ctx context.Context, tx *gorm.DB, id int, cause error, nextAttempt *time.Time) error {
	status := PublishStatusFailed
	if nextAttempt == nil {
		status = PublishStatusDead
	}
	return tx.WithContext(ctx).Model(&AuditLog{}).Where("id = ?", id).Updates(map[string]interface{}{
		"publish_status":   status,
		"publish_attempts": gorm.Expr("publish_attempts + 1"),
		"last_error":       cause.Error(),
		"next_attempt_at":  nextAttempt,
	}).Error
}
