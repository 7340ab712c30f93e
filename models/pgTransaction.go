package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// PGTransaction is one order as reported by the payment gateway
// (razer, fiuu). account_label ties the row to a Kira merchant.
type PGTransaction struct {
	TransactionId   string   `gorm:"primaryKey;size:128" json:"transaction_id"`
	TransactionDate DateOnly `gorm:"type:date;not null;index;index:idx_pg_account_date,priority:2" json:"transaction_date"`

	Amount   decimal.Decimal `gorm:"type:decimal(20,2);default:0" json:"amount"`
	Platform string          `gorm:"size:50;not null;index" json:"platform"`
	Channel  string          `gorm:"size:100" json:"channel"`

	AccountLabel string `gorm:"size:64;not null;index;index:idx_pg_account_date,priority:1" json:"account_label"`

	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}
