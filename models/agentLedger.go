package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// AgentLedger is the commission ledger for one agent.
//
// Grain: (agent, transaction_date). Commission rates are percent values
// (7.5 means 7.5%); available_* columns hold the deposit availability
// already scaled by the rate. balance folds forward like the merchant
// ledger and stays NULL until the first day with activity.
type AgentLedger struct {
	Id              int      `gorm:"primaryKey" json:"id"`
	Agent           string   `gorm:"size:64;not null;uniqueIndex:idx_al_agent_date,priority:1" json:"agent"`
	TransactionDate DateOnly `gorm:"type:date;not null;uniqueIndex:idx_al_agent_date,priority:2;index" json:"transaction_date"`

	CommissionRateFpx     *decimal.Decimal `gorm:"type:decimal(20,4)" json:"commission_rate_fpx"`
	CommissionRateEwallet *decimal.Decimal `gorm:"type:decimal(20,4)" json:"commission_rate_ewallet"`
	WithdrawalAmount      *decimal.Decimal `gorm:"type:decimal(20,2)" json:"withdrawal_amount"`
	Remarks               *string          `gorm:"size:500" json:"remarks"`

	AvailableFpx     decimal.Decimal `gorm:"type:decimal(20,2);default:0" json:"available_fpx"`
	AvailableEwallet decimal.Decimal `gorm:"type:decimal(20,2);default:0" json:"available_ewallet"`
	AvailableTotal   decimal.Decimal `gorm:"type:decimal(20,2);default:0" json:"available_total"`

	Balance *decimal.Decimal `gorm:"type:decimal(20,2)" json:"balance"`

	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}
