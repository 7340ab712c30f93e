package models

import (
	"context"
	"encoding/json"

	"bitbucket.org/kiranetwork/recon_backend/config"
	"bitbucket.org/kiranetwork/recon_backend/utils"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// PublishReconEvent implements the transactional outbox:
// it writes the event record inside the caller's DB transaction but does NOT publish to Pub/Sub.
// Publishing is performed asynchronously by the outbox dispatcher after commit.
func PublishReconEvent(ctx context.Context, db *gorm.DB, entity string, eventType string, runId string, payload interface{}) error {
	if config.OutboxDisabled() {
		return nil
	}

	var payloadInByte []byte
	var err error

	if payload != nil {
		payloadInByte, err = json.Marshal(payload)
		if err != nil {
			return err
		}
	}

	record := ReconEventRecord{
		Entity:        entity,
		EventType:     eventType,
		RunId:         runId,
		Payload:       payloadInByte,
		IsProcessed:   false,
		PublishStatus: OutboxPublishStatusPending,
		CorrelationId: correlationIdFromContextOrNew(ctx),
	}
	err = db.Create(&record).Error
	if err != nil {
		return err
	}
	return nil
}

func correlationIdFromContextOrNew(ctx context.Context) string {
	if ctx != nil {
		if v, ok := utils.GetCorrelationIdFromContext(ctx); ok && v != "" {
			return v
		}
	}
	return uuid.NewString()
}
