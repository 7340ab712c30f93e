package workflow

import (
	"context"
	"sort"
	"time"

	"bitbucket.org/kiranetwork/recon_backend/config"
	"bitbucket.org/kiranetwork/recon_backend/models"
	"bitbucket.org/kiranetwork/recon_backend/utils"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

var oneHundred = decimal.NewFromInt(100)

// merchantEngine wires the cascade for the merchant ledger: a payout
// pool fed by top-ups and drained by withdrawals, and an available
// balance fed by settled deposits and drained by settlement funding.
func merchantEngine() CascadeEngine[models.MerchantLedger] {
	return CascadeEngine[models.MerchantLedger]{
		PreDerive: func(r *models.MerchantLedger) {
			// recomputed whenever both inputs exist, overriding stale values
			if r.WithdrawalAmount != nil && r.WithdrawalRate != nil {
				charges := utils.RoundTo2(r.WithdrawalAmount.Mul(*r.WithdrawalRate).Div(oneHundred))
				r.WithdrawalCharges = &charges
			}
		},
		Series: []SeriesSpec[models.MerchantLedger]{
			{
				Activity: func(r *models.MerchantLedger, prev decimal.Decimal) bool {
					return r.WithdrawalAmount != nil || r.TopupPayoutPool != nil || !prev.IsZero()
				},
				Next: func(r *models.MerchantLedger, prev decimal.Decimal) decimal.Decimal {
					return prev.
						Sub(utils.DecimalOrZero(r.WithdrawalAmount)).
						Sub(utils.DecimalOrZero(r.WithdrawalCharges)).
						Add(utils.DecimalOrZero(r.TopupPayoutPool))
				},
				Set: func(r *models.MerchantLedger, v *decimal.Decimal) { r.PayoutPoolBalance = v },
			},
			{
				Activity: func(r *models.MerchantLedger, prev decimal.Decimal) bool {
					return r.SettlementFund != nil || r.AvailableTotal.IsPositive() || !prev.IsZero()
				},
				Next: func(r *models.MerchantLedger, prev decimal.Decimal) decimal.Decimal {
					return prev.
						Add(r.AvailableTotal).
						Sub(utils.DecimalOrZero(r.SettlementFund)).
						Sub(utils.DecimalOrZero(r.SettlementCharges))
				},
				Set: func(r *models.MerchantLedger, v *decimal.Decimal) { r.AvailableBalance = v },
			},
		},
		Finalize: func(r *models.MerchantLedger) {
			if r.PayoutPoolBalance == nil && r.AvailableBalance == nil {
				r.TotalBalance = nil
				return
			}
			total := utils.RoundTo2(
				utils.DecimalOrZero(r.PayoutPoolBalance).Add(utils.DecimalOrZero(r.AvailableBalance)))
			r.TotalBalance = &total
		},
	}
}

// BuildMerchantLedger re-derives one merchant's full ledger history:
// availability copied from the deposit ledger, then the cascade from the
// first row. Always whole-history; the fold cannot start mid-series.
func BuildMerchantLedger(ctx context.Context, merchant string) error {
	db := config.GetDB()

	deposits, err := loadAllDeposits(ctx, db, merchant)
	if err != nil {
		return utils.NewExternalIOError("load deposit rows", err)
	}

	var rows []models.MerchantLedger
	if err := db.WithContext(ctx).
		Where("merchant = ?", merchant).
		Order("transaction_date").
		Find(&rows).Error; err != nil {
		return utils.NewExternalIOError("load merchant ledger rows", err)
	}

	rows = ensureMerchantRows(merchant, rows, deposits)

	byDate := make(map[string]*models.Deposit, len(deposits))
	for i := range deposits {
		byDate[deposits[i].TransactionDate.String()] = &deposits[i]
	}

	refs := make([]*models.MerchantLedger, len(rows))
	for i := range rows {
		r := &rows[i]
		refs[i] = r
		if dep, ok := byDate[r.TransactionDate.String()]; ok {
			r.AvailableFpx = dep.AvailableFpx
			r.AvailableEwallet = dep.AvailableEwallet
			r.AvailableTotal = dep.AvailableTotal
		} else {
			r.AvailableFpx = decimal.Zero
			r.AvailableEwallet = decimal.Zero
			r.AvailableTotal = decimal.Zero
		}
	}

	merchantEngine().Run(refs)

	err = db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := AcquireEntityLock(tx, merchant); err != nil {
			return err
		}
		defer ReleaseEntityLock(tx, merchant)

		for _, r := range refs {
			if r.Id == 0 {
				if err := tx.Create(r).Error; err != nil {
					return err
				}
			} else {
				if err := tx.Save(r).Error; err != nil {
					return err
				}
			}
		}
		runId, _ := utils.GetRunIdFromContext(ctx)
		return models.PublishReconEvent(ctx, tx, merchant, models.EventTypeLedgerRecomputed, runId, map[string]interface{}{
			"ledger": "merchant",
		})
	})
	if err != nil {
		return utils.NewComputationError(merchant, "merchant ledger cascade", err)
	}
	return nil
}

// ensureMerchantRows unions the manual-input rows with one row per
// deposit date so availability always has somewhere to land.
func ensureMerchantRows(merchant string, rows []models.MerchantLedger, deposits []models.Deposit) []models.MerchantLedger {
	have := make(map[string]struct{}, len(rows))
	for _, r := range rows {
		have[r.TransactionDate.String()] = struct{}{}
	}
	for _, dep := range deposits {
		if _, ok := have[dep.TransactionDate.String()]; ok {
			continue
		}
		rows = append(rows, models.MerchantLedger{
			Merchant:        merchant,
			TransactionDate: dep.TransactionDate,
		})
		have[dep.TransactionDate.String()] = struct{}{}
	}
	sort.Slice(rows, func(i, j int) bool {
		return rows[i].TransactionDate.Before(rows[j].TransactionDate)
	})
	return rows
}

func loadAllDeposits(ctx context.Context, db *gorm.DB, merchant string) ([]models.Deposit, error) {
	var deposits []models.Deposit
	if err := db.WithContext(ctx).
		Where("merchant = ?", merchant).
		Order("transaction_date").
		Find(&deposits).Error; err != nil {
		return nil, err
	}
	return deposits, nil
}

// GetMerchantLedgerMonth returns one month of the ledger, recomputing
// the cascade first so derived balances are always current.
func GetMerchantLedgerMonth(ctx context.Context, merchant string, year int, month time.Month) ([]models.MerchantLedger, error) {
	if err := BuildMerchantLedger(ctx, merchant); err != nil {
		return nil, err
	}

	db := config.GetDB()
	first, last := utils.MonthRange(year, month)
	var rows []models.MerchantLedger
	if err := db.WithContext(ctx).
		Where("merchant = ? AND transaction_date BETWEEN ? AND ?", merchant, first, last).
		Order("transaction_date").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}
