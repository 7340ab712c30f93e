package workflow

import (
	"context"
	"sort"
	"strings"
	"time"

	"bitbucket.org/kiranetwork/recon_backend/config"
	"bitbucket.org/kiranetwork/recon_backend/models"
	"bitbucket.org/kiranetwork/recon_backend/utils"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// BuildVarianceMonth rebuilds the Kira-vs-gateway variance ledger for
// one month across every account. Daily variance is kira minus gateway;
// the cumulative column is a single running sum over the whole month in
// (date, account, channel) order, restarting at zero each month.
func BuildVarianceMonth(ctx context.Context, year int, month time.Month) error {
	db := config.GetDB()

	rules, err := GetSettlementRules(ctx)
	if err != nil {
		return utils.NewExternalIOError("load settlement rules", err)
	}
	holidays, err := CombinedHolidays(ctx)
	if err != nil {
		return utils.NewExternalIOError("load holidays", err)
	}

	first, last := utils.MonthRange(year, month)

	var kiraRows []models.KiraTransaction
	if err := db.WithContext(ctx).
		Where("transaction_date BETWEEN ? AND ?", first, last).
		Find(&kiraRows).Error; err != nil {
		return utils.NewExternalIOError("load kira transactions", err)
	}
	var pgRows []models.PGTransaction
	if err := db.WithContext(ctx).
		Where("transaction_date BETWEEN ? AND ?", first, last).
		Find(&pgRows).Error; err != nil {
		return utils.NewExternalIOError("load pg transactions", err)
	}

	kiraTotals := AggregateKiraByDay(kiraRows)
	pgTotals := AggregatePGByDay(pgRows)

	keys := make(map[DayKey]struct{}, len(kiraTotals)+len(pgTotals))
	for k := range kiraTotals {
		keys[k] = struct{}{}
	}
	for k := range pgTotals {
		keys[k] = struct{}{}
	}

	var existing []models.KiraPGLedger
	if err := db.WithContext(ctx).
		Where("transaction_date BETWEEN ? AND ?", first, last).
		Find(&existing).Error; err != nil {
		return utils.NewExternalIOError("load variance rows", err)
	}
	existingByKey := make(map[DayKey]*models.KiraPGLedger, len(existing))
	for i := range existing {
		r := &existing[i]
		existingByKey[DayKey{Entity: r.PgAccountLabel, Date: r.TransactionDate.String(), Channel: r.Channel}] = r
	}

	rows := make([]*models.KiraPGLedger, 0, len(keys))
	for key := range keys {
		kira := kiraTotals[key]
		pg := pgTotals[key]
		if kira.Amount.IsZero() && pg.Amount.IsZero() {
			continue
		}

		row, ok := existingByKey[key]
		if !ok {
			date, err := models.ParseDateOnly(key.Date)
			if err != nil {
				continue
			}
			row = &models.KiraPGLedger{
				PgAccountLabel:  key.Entity,
				TransactionDate: date,
				Channel:         key.Channel,
			}
		}

		row.KiraAmount = utils.RoundTo2(kira.Amount)
		row.KiraMdr = utils.RoundTo2(kira.Mdr)
		row.KiraSettlementAmount = utils.RoundTo2(kira.SettlementAmount)
		row.PgAmount = utils.RoundTo2(pg.Amount)
		row.Volume = kira.Count

		computeVarianceDerived(row, rules, holidays)
		rows = append(rows, row)
	}

	sortVarianceRows(rows)

	cumulative := decimal.Zero
	for _, row := range rows {
		cumulative = utils.RoundTo2(cumulative.Add(row.DailyVariance))
		row.CumulativeVariance = cumulative
	}

	lockName := "variance:" + utils.YearMonthPrefix(year, month)
	err = db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := AcquireEntityLock(tx, lockName); err != nil {
			return err
		}
		defer ReleaseEntityLock(tx, lockName)

		for _, row := range rows {
			if row.Id == 0 {
				if err := tx.Create(row).Error; err != nil {
					return err
				}
			} else {
				if err := tx.Save(row).Error; err != nil {
					return err
				}
			}
		}
		runId, _ := utils.GetRunIdFromContext(ctx)
		return models.PublishReconEvent(ctx, tx, lockName, models.EventTypeLedgerRecomputed, runId, map[string]interface{}{
			"ledger": "variance",
			"month":  utils.YearMonthPrefix(year, month),
		})
	})
	if err != nil {
		return utils.NewComputationError(lockName, "variance build", err)
	}
	return nil
}

// computeVarianceDerived fills the derived columns of one row.
// Fees here come only from the row's manual fee fields: the per-bucket
// fee_config parameters do not apply at channel grain. No fee rate
// leaves fees and settlement_amount NULL, not zero.
func computeVarianceDerived(row *models.KiraPGLedger, rules map[string]string, holidays HolidaySet) {
	rule := ResolveSettlementRule(rules, row.SettlementRule, strings.ToLower(string(row.Channel)))
	settlement, ok := CalculateSettlementDate(row.TransactionDate, rule, holidays)
	if !ok {
		settlement, _ = CalculateSettlementDate(row.TransactionDate, DefaultSettlementRule, holidays)
	}
	row.SettlementDate = models.DateOnlyPtr(settlement)

	if row.FeeRate != nil {
		feeType := ""
		if row.FeeType != nil {
			feeType = *row.FeeType
		}
		fees := FeeAmount(feeType, *row.FeeRate, row.PgAmount, row.Volume)
		row.Fees = &fees
		settlementAmount := utils.RoundTo2(row.PgAmount.Sub(fees))
		row.SettlementAmount = &settlementAmount
	} else {
		row.Fees = nil
		row.SettlementAmount = nil
	}

	row.DailyVariance = utils.RoundTo2(row.KiraAmount.Sub(row.PgAmount))
}

func sortVarianceRows(rows []*models.KiraPGLedger) {
	sort.Slice(rows, func(i, j int) bool {
		di, dj := rows[i].TransactionDate.String(), rows[j].TransactionDate.String()
		if di != dj {
			return di < dj
		}
		if rows[i].PgAccountLabel != rows[j].PgAccountLabel {
			return rows[i].PgAccountLabel < rows[j].PgAccountLabel
		}
		return rows[i].Channel < rows[j].Channel
	})
}

// GetVarianceMonth reads one month, building it first when empty.
// account narrows the result to one pg account label.
func GetVarianceMonth(ctx context.Context, year int, month time.Month, account string) ([]models.KiraPGLedger, error) {
	db := config.GetDB()
	first, last := utils.MonthRange(year, month)

	var count int64
	if err := db.WithContext(ctx).Model(&models.KiraPGLedger{}).
		Where("transaction_date BETWEEN ? AND ?", first, last).
		Count(&count).Error; err != nil {
		return nil, err
	}
	if count == 0 {
		if err := BuildVarianceMonth(ctx, year, month); err != nil {
			return nil, err
		}
	}

	query := db.WithContext(ctx).
		Where("transaction_date BETWEEN ? AND ?", first, last)
	if account != "" {
		query = query.Where("pg_account_label = ?", account)
	}
	var rows []models.KiraPGLedger
	if err := query.
		Order("transaction_date, pg_account_label, channel").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}
