package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// KiraPGLedger compares what the Kira platform recorded against what the
// payment gateway reported, per account and channel per day.
//
// Grain: (pg_account_label, transaction_date, channel). Named e-wallet
// channels are NOT pooled here; the whole point of this table is spotting
// which rail drifted. daily_variance = kira_amount - pg_amount;
// cumulative_variance is a running sum over the month in
// (transaction_date, pg_account_label, channel) order, restarting at
// zero each month.
type KiraPGLedger struct {
	Id              int      `gorm:"primaryKey" json:"id"`
	PgAccountLabel  string   `gorm:"size:64;not null;uniqueIndex:idx_kpg_account_date_channel,priority:1" json:"pg_account_label"`
	TransactionDate DateOnly `gorm:"type:date;not null;uniqueIndex:idx_kpg_account_date_channel,priority:2;index" json:"transaction_date"`
	Channel         Channel  `gorm:"size:30;not null;uniqueIndex:idx_kpg_account_date_channel,priority:3" json:"channel"`

	KiraAmount           decimal.Decimal `gorm:"type:decimal(20,2);default:0" json:"kira_amount"`
	KiraMdr              decimal.Decimal `gorm:"type:decimal(20,2);default:0" json:"kira_mdr"`
	KiraSettlementAmount decimal.Decimal `gorm:"type:decimal(20,2);default:0" json:"kira_settlement_amount"`
	PgAmount             decimal.Decimal `gorm:"type:decimal(20,2);default:0" json:"pg_amount"`
	Volume               int64           `gorm:"not null;default:0" json:"volume"`

	SettlementRule *string          `gorm:"size:10" json:"settlement_rule"`
	FeeType        *string          `gorm:"size:20" json:"fee_type"`
	FeeRate        *decimal.Decimal `gorm:"type:decimal(20,4)" json:"fee_rate"`
	Remarks        *string          `gorm:"size:500" json:"remarks"`

	SettlementDate   *DateOnly        `gorm:"type:date" json:"settlement_date"`
	Fees             *decimal.Decimal `gorm:"type:decimal(20,2)" json:"fees"`
	SettlementAmount *decimal.Decimal `gorm:"type:decimal(20,2)" json:"settlement_amount"`

	DailyVariance      decimal.Decimal `gorm:"type:decimal(20,2);default:0" json:"daily_variance"`
	CumulativeVariance decimal.Decimal `gorm:"type:decimal(20,2);default:0" json:"cumulative_variance"`

	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}
