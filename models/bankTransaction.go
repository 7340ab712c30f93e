package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// BankTransaction is one credit line from a bank statement. Only credits
// are ingested; the reconciliation never looks at debit lines.
type BankTransaction struct {
	TransactionId   string   `gorm:"primaryKey;size:128" json:"transaction_id"`
	TransactionDate DateOnly `gorm:"type:date;not null;index" json:"transaction_date"`

	Amount      decimal.Decimal `gorm:"type:decimal(20,2);default:0" json:"amount"`
	Bank        string          `gorm:"size:50;index" json:"bank"`
	Description string          `gorm:"size:255" json:"description"`

	AccountLabel string `gorm:"size:64;index" json:"account_label"`

	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}
