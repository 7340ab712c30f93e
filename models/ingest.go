package models

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const ingestBatchSize = 500

// InsertIgnoreBatch inserts rows keyed by transaction id, skipping any id
// already present (INSERT IGNORE semantics on MySQL). Returns the number
// of rows actually inserted, so re-parsing the same statement file
// reports 0 new transactions instead of double counting.
func InsertIgnoreBatch[T any](ctx context.Context, tx *gorm.DB, rows []T) (int64, error) {
	if len(rows) == 0 {
		return 0, nil
	}
	result := tx.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		CreateInBatches(rows, ingestBatchSize)
	if result.Error != nil {
		return 0, result.Error
	}
	return result.RowsAffected, nil
}

// IngestCounts breaks down one ingest call for the job record. Skipped
// counts rows whose transaction id was already in the table.
type IngestCounts struct {
	Source   TransactionSource `json:"source"`
	Parsed   int               `json:"parsed"`
	Inserted int64             `json:"inserted"`
	Skipped  int64             `json:"skipped"`
	BadRows  int               `json:"bad_rows"`
}
