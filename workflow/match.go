package workflow

import (
	"context"
	"sort"
	"time"

	"bitbucket.org/kiranetwork/recon_backend/config"
	"bitbucket.org/kiranetwork/recon_backend/models"
	"bitbucket.org/kiranetwork/recon_backend/utils"
	"github.com/shopspring/decimal"
)

// Remark strings are part of the external contract: the ops UI filters
// on them verbatim. Do not reword.
const (
	RemarkMatch                 = "Match"
	RemarkNotMatchGatewayBank   = "Not Match (Gateway & Bank)"
	RemarkNotMatchGateway       = "Not Match (Gateway)"
	RemarkNotMatchBank          = "Not Match (Bank)"
	RemarkMatchGatewayOnly      = "Match (Gateway only)"
	RemarkMatchBankOnly         = "Match (Bank only)"
	RemarkNoDataGatewayBank     = "No Data (Gateway & Bank)"
	RemarkNoInternalData        = "No Internal Data"
	RemarkNoInternalDataGateway = "No Internal Data (Gateway only)"
	RemarkNoInternalDataBank    = "No Internal Data (Bank only)"
	RemarkUnknown               = "Unknown"
)

// ReconRow is one transaction id seen across the three sources.
type ReconRow struct {
	TransactionId   string          `json:"transaction_id"`
	TransactionDate string          `json:"transaction_date"`
	Entity          string          `json:"entity"`
	Channel         models.Channel  `json:"channel"`

	KiraAmount *decimal.Decimal `json:"kira_amount"`
	PgAmount   *decimal.Decimal `json:"pg_amount"`
	BankAmount *decimal.Decimal `json:"bank_amount"`

	HasInternal bool `json:"has_internal"`
	HasGateway  bool `json:"has_gateway"`
	HasBank     bool `json:"has_bank"`

	Remarks string `json:"remarks"`
}

type MatchStats struct {
	Total           int `json:"total"`
	Matched         int `json:"matched"`
	Mismatched      int `json:"mismatched"`
	MissingInternal int `json:"missing_internal"`
	MissingExternal int `json:"missing_external"`
	Unknown         int `json:"unknown"`
}

// MatchTransactions performs a full outer join of the three sources by
// transaction id: every id appearing in ANY source appears in the output
// exactly once. Amounts compare equal only after 2dp rounding.
func MatchTransactions(kira []models.KiraTransaction, pg []models.PGTransaction, bank []models.BankTransaction) ([]ReconRow, MatchStats) {
	rows := make(map[string]*ReconRow, len(kira)+len(pg)+len(bank))

	rowFor := func(id string) *ReconRow {
		if row, ok := rows[id]; ok {
			return row
		}
		row := &ReconRow{TransactionId: id}
		rows[id] = row
		return row
	}

	for _, t := range kira {
		row := rowFor(t.TransactionId)
		amount := t.Amount
		row.KiraAmount = &amount
		row.HasInternal = true
		row.TransactionDate = t.TransactionDate.String()
		row.Entity = t.Merchant
		row.Channel = NormalizeChannel(t.PaymentMethod)
	}
	for _, t := range pg {
		row := rowFor(t.TransactionId)
		amount := t.Amount
		row.PgAmount = &amount
		row.HasGateway = true
		if row.TransactionDate == "" {
			row.TransactionDate = t.TransactionDate.String()
		}
		if row.Entity == "" {
			row.Entity = t.AccountLabel
		}
		if row.Channel == "" {
			row.Channel = NormalizeChannel(t.Channel)
		}
	}
	for _, t := range bank {
		row := rowFor(t.TransactionId)
		amount := t.Amount
		row.BankAmount = &amount
		row.HasBank = true
		if row.TransactionDate == "" {
			row.TransactionDate = t.TransactionDate.String()
		}
		if row.Entity == "" {
			row.Entity = t.AccountLabel
		}
		if row.Channel == "" {
			row.Channel = NormalizeChannel(t.Description)
		}
	}

	var stats MatchStats
	out := make([]ReconRow, 0, len(rows))
	for _, row := range rows {
		row.Remarks = classifyRow(row)
		switch row.Remarks {
		case RemarkMatch, RemarkMatchGatewayOnly, RemarkMatchBankOnly:
			stats.Matched++
		case RemarkNotMatchGatewayBank, RemarkNotMatchGateway, RemarkNotMatchBank:
			stats.Mismatched++
		case RemarkNoInternalData, RemarkNoInternalDataGateway, RemarkNoInternalDataBank:
			stats.MissingInternal++
		case RemarkNoDataGatewayBank:
			stats.MissingExternal++
		default:
			stats.Unknown++
		}
		out = append(out, *row)
	}
	stats.Total = len(out)

	sort.Slice(out, func(i, j int) bool {
		if out[i].TransactionDate != out[j].TransactionDate {
			return out[i].TransactionDate < out[j].TransactionDate
		}
		return out[i].TransactionId < out[j].TransactionId
	})
	return out, stats
}

func amountsEqual(a, b *decimal.Decimal) bool {
	if a == nil || b == nil {
		return false
	}
	return utils.RoundTo2(*a).Equal(utils.RoundTo2(*b))
}

// classifyRow applies the tie-break order from the reconciliation sheet:
// with an internal record, gateway and bank are compared independently;
// without one, the row is reported by whichever external sources saw it.
func classifyRow(row *ReconRow) string {
	if row.HasInternal {
		gwMatch := amountsEqual(row.KiraAmount, row.PgAmount)
		bankMatch := amountsEqual(row.KiraAmount, row.BankAmount)
		switch {
		case row.HasGateway && row.HasBank:
			switch {
			case gwMatch && bankMatch:
				return RemarkMatch
			case !gwMatch && !bankMatch:
				return RemarkNotMatchGatewayBank
			case !gwMatch:
				return RemarkNotMatchGateway
			default:
				return RemarkNotMatchBank
			}
		case row.HasGateway:
			if gwMatch {
				return RemarkMatchGatewayOnly
			}
			return RemarkNotMatchGateway
		case row.HasBank:
			if bankMatch {
				return RemarkMatchBankOnly
			}
			return RemarkNotMatchBank
		default:
			return RemarkNoDataGatewayBank
		}
	}

	switch {
	case row.HasGateway && row.HasBank:
		return RemarkNoInternalData
	case row.HasGateway:
		return RemarkNoInternalDataGateway
	case row.HasBank:
		return RemarkNoInternalDataBank
	default:
		return RemarkUnknown
	}
}

// GetReconciliationMonth loads the three sources for a month and joins
// them. entity narrows to one merchant/account label; empty means all.
func GetReconciliationMonth(ctx context.Context, year int, month time.Month, entity string) ([]ReconRow, MatchStats, error) {
	db := config.GetDB()
	first, last := utils.MonthRange(year, month)

	kiraQuery := db.WithContext(ctx).Where("transaction_date BETWEEN ? AND ?", first, last)
	pgQuery := db.WithContext(ctx).Where("transaction_date BETWEEN ? AND ?", first, last)
	bankQuery := db.WithContext(ctx).Where("transaction_date BETWEEN ? AND ?", first, last)
	if entity != "" {
		kiraQuery = kiraQuery.Where("merchant = ?", entity)
		pgQuery = pgQuery.Where("account_label = ?", entity)
		bankQuery = bankQuery.Where("account_label = ?", entity)
	}

	var kira []models.KiraTransaction
	if err := kiraQuery.Find(&kira).Error; err != nil {
		return nil, MatchStats{}, utils.NewExternalIOError("load kira transactions", err)
	}
	var pg []models.PGTransaction
	if err := pgQuery.Find(&pg).Error; err != nil {
		return nil, MatchStats{}, utils.NewExternalIOError("load pg transactions", err)
	}
	var bank []models.BankTransaction
	if err := bankQuery.Find(&bank).Error; err != nil {
		return nil, MatchStats{}, utils.NewExternalIOError("load bank transactions", err)
	}

	rows, stats := MatchTransactions(kira, pg, bank)
	return rows, stats, nil
}
