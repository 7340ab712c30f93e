package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// KiraTransaction is one settled order as recorded by the Kira platform
// ledger. Rows are immutable once ingested: re-parsing a statement file
// must never change or double count an existing transaction id.
type KiraTransaction struct {
	TransactionId   string   `gorm:"primaryKey;size:128" json:"transaction_id"`
	TransactionDate DateOnly `gorm:"type:date;not null;index;index:idx_kira_merchant_date,priority:2" json:"transaction_date"`

	Amount           decimal.Decimal  `gorm:"type:decimal(20,2);default:0" json:"amount"`
	PaymentMethod    string           `gorm:"size:100" json:"payment_method"`
	Mdr              *decimal.Decimal `gorm:"type:decimal(20,2)" json:"mdr"`
	SettlementAmount *decimal.Decimal `gorm:"type:decimal(20,2)" json:"settlement_amount"`

	Merchant string `gorm:"size:64;not null;index;index:idx_kira_merchant_date,priority:1" json:"merchant"`

	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}
