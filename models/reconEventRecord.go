package models

import (
	"time"

	"bitbucket.org/kiranetwork/recon_backend/config"
)

// ReconEventRecord is the transactional outbox row for domain events
// (job lifecycle, ledger recomputes). It is written in the same DB
// transaction as the state change it describes; the publish happens
// after commit via the outbox dispatcher.
type ReconEventRecord struct {
	Id        int      `gorm:"primaryKey;index:idx_outbox_dispatch,priority:3;index:idx_outbox_reconcile,priority:3" json:"id"`
	Entity    string   `gorm:"size:64;not null;index;index:idx_outbox_reconcile,priority:1" json:"entity"`
	EventType string   `gorm:"size:50;not null;index" json:"event_type"`
	RunId     string   `gorm:"size:64;index" json:"run_id"`
	Payload   []byte   `gorm:"type:blob" json:"payload"`

	IsProcessed bool `gorm:"index;not null;index:idx_outbox_reconcile,priority:2" json:"is_processed"`

	PublishStatus    string     `gorm:"size:20;index;not null;default:'PENDING';index:idx_outbox_dispatch,priority:1" json:"publish_status"` // PENDING|PROCESSING|SENT|FAILED|DEAD
	PublishedAt      *time.Time `gorm:"index" json:"published_at"`
	PubSubMessageId  *string    `gorm:"size:255" json:"pubsub_message_id"`
	PublishAttempts  int        `gorm:"not null;default:0" json:"publish_attempts"`
	NextAttemptAt    *time.Time `gorm:"index;index:idx_outbox_dispatch,priority:2" json:"next_attempt_at"`
	LockedAt         *time.Time `gorm:"index" json:"locked_at"`
	LockedBy         *string    `gorm:"size:100" json:"locked_by"`
	LastPublishError *string    `gorm:"type:text" json:"last_publish_error"`

	CorrelationId string    `gorm:"size:64;index" json:"correlation_id"`
	CreatedAt     time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt     time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func ConvertToReconEventMessage(record ReconEventRecord) config.ReconEventMessage {
	return config.ReconEventMessage{
		ID:            record.Id,
		Entity:        record.Entity,
		EventType:     record.EventType,
		RunId:         record.RunId,
		OccurredAt:    record.CreatedAt,
		Payload:       record.Payload,
		CorrelationId: record.CorrelationId,
	}
}
