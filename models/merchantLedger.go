package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// MerchantLedger tracks one merchant's running balances day by day.
//
// Grain: (merchant, transaction_date). Manual columns are operator
// entries; available_* are copied from the deposit ledger on rebuild;
// the three balance columns are a left-fold over ascending dates and are
// recomputed from day 1 whenever anything upstream changes.
//
// Balances stay NULL until the first day with activity. That is a
// display rule, not missing data: a month with no movement renders blank,
// not as a column of zeros.
type MerchantLedger struct {
	Id              int      `gorm:"primaryKey" json:"id"`
	Merchant        string   `gorm:"size:64;not null;uniqueIndex:idx_ml_merchant_date,priority:1" json:"merchant"`
	TransactionDate DateOnly `gorm:"type:date;not null;uniqueIndex:idx_ml_merchant_date,priority:2;index" json:"transaction_date"`

	SettlementFund    *decimal.Decimal `gorm:"type:decimal(20,2)" json:"settlement_fund"`
	SettlementCharges *decimal.Decimal `gorm:"type:decimal(20,2)" json:"settlement_charges"`
	WithdrawalAmount  *decimal.Decimal `gorm:"type:decimal(20,2)" json:"withdrawal_amount"`
	WithdrawalRate    *decimal.Decimal `gorm:"type:decimal(20,4)" json:"withdrawal_rate"`
	WithdrawalCharges *decimal.Decimal `gorm:"type:decimal(20,2)" json:"withdrawal_charges"`
	TopupPayoutPool   *decimal.Decimal `gorm:"type:decimal(20,2)" json:"topup_payout_pool"`
	Remarks           *string          `gorm:"size:500" json:"remarks"`

	AvailableFpx     decimal.Decimal `gorm:"type:decimal(20,2);default:0" json:"available_fpx"`
	AvailableEwallet decimal.Decimal `gorm:"type:decimal(20,2);default:0" json:"available_ewallet"`
	AvailableTotal   decimal.Decimal `gorm:"type:decimal(20,2);default:0" json:"available_total"`

	PayoutPoolBalance *decimal.Decimal `gorm:"type:decimal(20,2)" json:"payout_pool_balance"`
	AvailableBalance  *decimal.Decimal `gorm:"type:decimal(20,2)" json:"available_balance"`
	TotalBalance      *decimal.Decimal `gorm:"type:decimal(20,2)" json:"total_balance"`

	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}
