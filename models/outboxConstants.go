package models

// Outbox publish statuses for ReconEventRecord.PublishStatus.
// Keep these as strings (DB values) for backwards compatibility.
const (
	OutboxPublishStatusPending    = "PENDING"
	OutboxPublishStatusProcessing = "PROCESSING"
	OutboxPublishStatusSent       = "SENT"
	OutboxPublishStatusFailed     = "FAILED"
	OutboxPublishStatusDead       = "DEAD"
)

// Event types carried by ReconEventRecord.EventType.
const (
	EventTypeJobCompleted     = "job.completed"
	EventTypeJobFailed        = "job.failed"
	EventTypeLedgerRecomputed = "ledger.recomputed"
)
