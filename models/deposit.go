package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Deposit is the settlement ledger for one merchant.
//
// Grain: (merchant, transaction_date), one row per calendar day of every
// built month (zero-filled when the day had no transactions). Each row
// carries two buckets, fpx and ewallet, because the two rails settle on
// independent schedules.
//
// available_* on a date is NOT that date's takings: it is the sum of
// gross from every earlier day whose settlement lands on this date.
// Manual fields (settlement rules, fee config, remarks) survive
// recomputation; everything else is derived and can be rebuilt from
// kira_transactions + parameters.
type Deposit struct {
	Id              int      `gorm:"primaryKey" json:"id"`
	Merchant        string   `gorm:"size:64;not null;uniqueIndex:idx_deposit_merchant_date,priority:1" json:"merchant"`
	TransactionDate DateOnly `gorm:"type:date;not null;uniqueIndex:idx_deposit_merchant_date,priority:2;index" json:"transaction_date"`

	FpxAmount         decimal.Decimal  `gorm:"type:decimal(20,2);default:0" json:"fpx_amount"`
	FpxVolume         int64            `gorm:"not null;default:0" json:"fpx_volume"`
	FpxSettlementRule *string          `gorm:"size:10" json:"fpx_settlement_rule"`
	FpxSettlementDate *DateOnly        `gorm:"type:date" json:"fpx_settlement_date"`
	FpxFeeType        *string          `gorm:"size:20" json:"fpx_fee_type"`
	FpxFeeRate        *decimal.Decimal `gorm:"type:decimal(20,4)" json:"fpx_fee_rate"`
	FpxFeeAmount      *decimal.Decimal `gorm:"type:decimal(20,2)" json:"fpx_fee_amount"`
	FpxGross          *decimal.Decimal `gorm:"type:decimal(20,2)" json:"fpx_gross"`

	EwalletAmount         decimal.Decimal  `gorm:"type:decimal(20,2);default:0" json:"ewallet_amount"`
	EwalletVolume         int64            `gorm:"not null;default:0" json:"ewallet_volume"`
	EwalletSettlementRule *string          `gorm:"size:10" json:"ewallet_settlement_rule"`
	EwalletSettlementDate *DateOnly        `gorm:"type:date" json:"ewallet_settlement_date"`
	EwalletFeeType        *string          `gorm:"size:20" json:"ewallet_fee_type"`
	EwalletFeeRate        *decimal.Decimal `gorm:"type:decimal(20,4)" json:"ewallet_fee_rate"`
	EwalletFeeAmount      *decimal.Decimal `gorm:"type:decimal(20,2)" json:"ewallet_fee_amount"`
	EwalletGross          *decimal.Decimal `gorm:"type:decimal(20,2)" json:"ewallet_gross"`

	TotalAmount decimal.Decimal `gorm:"type:decimal(20,2);default:0" json:"total_amount"`
	TotalFees   decimal.Decimal `gorm:"type:decimal(20,2);default:0" json:"total_fees"`

	AvailableFpx     decimal.Decimal `gorm:"type:decimal(20,2);default:0" json:"available_fpx"`
	AvailableEwallet decimal.Decimal `gorm:"type:decimal(20,2);default:0" json:"available_ewallet"`
	AvailableTotal   decimal.Decimal `gorm:"type:decimal(20,2);default:0" json:"available_total"`

	Remarks *string `gorm:"size:500" json:"remarks"`

	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

// BucketView exposes one bucket of a deposit row through a single set of
// accessors so the builder does not fork on bucket names.
type BucketView struct {
	Amount         *decimal.Decimal
	Volume         *int64
	SettlementRule **string
	SettlementDate **DateOnly
	FeeType        **string
	FeeRate        **decimal.Decimal
	FeeAmount      **decimal.Decimal
	Gross          **decimal.Decimal
}

func (d *Deposit) View(b Bucket) BucketView {
	if b == BucketFPX {
		return BucketView{
			Amount:         &d.FpxAmount,
			Volume:         &d.FpxVolume,
			SettlementRule: &d.FpxSettlementRule,
			SettlementDate: &d.FpxSettlementDate,
			FeeType:        &d.FpxFeeType,
			FeeRate:        &d.FpxFeeRate,
			FeeAmount:      &d.FpxFeeAmount,
			Gross:          &d.FpxGross,
		}
	}
	return BucketView{
		Amount:         &d.EwalletAmount,
		Volume:         &d.EwalletVolume,
		SettlementRule: &d.EwalletSettlementRule,
		SettlementDate: &d.EwalletSettlementDate,
		FeeType:        &d.EwalletFeeType,
		FeeRate:        &d.EwalletFeeRate,
		FeeAmount:      &d.EwalletFeeAmount,
		Gross:          &d.EwalletGross,
	}
}
