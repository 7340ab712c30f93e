package workflow

import (
	"context"
	"strings"
	"time"

	"bitbucket.org/kiranetwork/recon_backend/config"
	"bitbucket.org/kiranetwork/recon_backend/models"
	"bitbucket.org/kiranetwork/recon_backend/utils"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// FeeAmount computes one bucket-day's fee from the configured fee type.
// Legacy alias spellings fold into their canonical meaning; an unknown
// or empty fee type charges nothing.
func FeeAmount(feeType string, rate decimal.Decimal, amount decimal.Decimal, volume int64) decimal.Decimal {
	switch models.CanonicalFeeType(feeType) {
	case models.FeeTypePercentage:
		return utils.RoundTo2(amount.Mul(rate).Div(decimal.NewFromInt(100)))
	case models.FeeTypePerVolume:
		return utils.RoundTo2(rate.Mul(decimal.NewFromInt(volume)))
	case models.FeeTypeFlat:
		return utils.RoundTo2(rate)
	default:
		return decimal.Zero
	}
}

// bucketDay is one computed (date, bucket) cell: what settles, when and
// at what cost. Kept in memory only; rows persist through models.Deposit.
type bucketDay struct {
	amount         decimal.Decimal
	volume         int64
	rule           string
	settlementDate models.DateOnly
	feeAmount      decimal.Decimal
	gross          decimal.Decimal
}

type depositDay struct {
	date    models.DateOnly
	row     *models.Deposit
	buckets map[models.Bucket]bucketDay
}

type depositParams struct {
	rules    map[string]string
	holidays HolidaySet
	fees     map[models.Bucket]*FeeConfig
}

func loadDepositParams(ctx context.Context, merchant string) (*depositParams, error) {
	rules, err := GetSettlementRules(ctx)
	if err != nil {
		return nil, err
	}
	holidays, err := CombinedHolidays(ctx)
	if err != nil {
		return nil, err
	}
	fees := make(map[models.Bucket]*FeeConfig, 2)
	for _, bucket := range []models.Bucket{models.BucketFPX, models.BucketEwallet} {
		fc, err := GetFeeConfig(ctx, merchant, bucket)
		if err != nil {
			return nil, err
		}
		fees[bucket] = fc
	}
	return &depositParams{rules: rules, holidays: holidays, fees: fees}, nil
}

// BuildDepositMonth rebuilds the deposit ledger for one (merchant, year,
// month): per-day bucket totals, fees, settlement dates and the
// availability columns. Manual fields on existing rows survive. The
// whole month persists in a single transaction under the entity lock.
func BuildDepositMonth(ctx context.Context, merchant string, year int, month time.Month) error {
	db := config.GetDB()
	logger := config.GetLogger()

	params, err := loadDepositParams(ctx, merchant)
	if err != nil {
		return utils.NewExternalIOError("load parameters", err)
	}

	prevYear, prevMonth := utils.PrevMonth(year, month)

	// Kira rows for this month AND the previous one: tail-of-prior-month
	// transactions settle into early days of this month.
	windowStart := time.Date(prevYear, prevMonth, 1, 0, 0, 0, 0, time.UTC)
	_, windowEnd := utils.MonthRange(year, month)
	var kiraRows []models.KiraTransaction
	if err := db.WithContext(ctx).
		Where("merchant = ? AND transaction_date BETWEEN ? AND ?", merchant, windowStart, windowEnd).
		Find(&kiraRows).Error; err != nil {
		return utils.NewExternalIOError("load kira transactions", err)
	}

	existing, err := loadDepositRows(ctx, db, merchant, windowStart, windowEnd)
	if err != nil {
		return utils.NewExternalIOError("load deposit rows", err)
	}

	totalsByDate := AggregateKiraByBucket(kiraRows)

	prevDays := computeDepositDays(logger, merchant, prevYear, prevMonth, totalsByDate, existing, params)
	thisDays := computeDepositDays(logger, merchant, year, month, totalsByDate, existing, params)

	applyAvailability(thisDays, append(prevDays, thisDays...), utils.YearMonthPrefix(year, month))

	err = db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := AcquireEntityLock(tx, merchant); err != nil {
			return err
		}
		defer ReleaseEntityLock(tx, merchant)

		for _, day := range thisDays {
			if day.row.Id == 0 {
				if err := tx.Create(day.row).Error; err != nil {
					return err
				}
			} else {
				if err := tx.Save(day.row).Error; err != nil {
					return err
				}
			}
		}

		runId, _ := utils.GetRunIdFromContext(ctx)
		return models.PublishReconEvent(ctx, tx, merchant, models.EventTypeLedgerRecomputed, runId, map[string]interface{}{
			"ledger": "deposit",
			"month":  utils.YearMonthPrefix(year, month),
		})
	})
	if err != nil {
		return utils.NewComputationError(merchant, "deposit build "+utils.YearMonthPrefix(year, month), err)
	}
	return nil
}

// computeDepositDays builds every day of one month in memory. Dates with
// no transactions still get a row (zero-filled) so the month reads as a
// complete calendar.
func computeDepositDays(logger *logrus.Logger, merchant string, year int, month time.Month,
	totalsByDate map[string]map[models.Bucket]BucketTotals,
	existing map[string]*models.Deposit, params *depositParams) []depositDay {

	days := make([]depositDay, 0, utils.DaysInMonth(year, month))
	first, _ := utils.MonthRange(year, month)

	for i := 0; i < utils.DaysInMonth(year, month); i++ {
		date := models.NewDateOnly(first.AddDate(0, 0, i))

		row, ok := existing[date.String()]
		if !ok {
			row = &models.Deposit{Merchant: merchant, TransactionDate: date}
		}

		day := depositDay{date: date, row: row, buckets: make(map[models.Bucket]bucketDay, 2)}
		dayTotals := totalsByDate[date.String()]

		totalAmount := decimal.Zero
		totalFees := decimal.Zero
		for _, bucket := range []models.Bucket{models.BucketFPX, models.BucketEwallet} {
			view := row.View(bucket)
			totals := dayTotals[bucket]

			calc := computeBucketDay(logger, merchant, date, bucket, totals, view, params)
			day.buckets[bucket] = calc

			*view.Amount = calc.amount
			*view.Volume = calc.volume
			*view.SettlementDate = models.DateOnlyPtr(calc.settlementDate)
			*view.FeeAmount = utils.DecimalPtr(calc.feeAmount)
			*view.Gross = utils.DecimalPtr(calc.gross)

			totalAmount = totalAmount.Add(calc.amount)
			totalFees = totalFees.Add(calc.feeAmount)
		}

		row.TotalAmount = utils.RoundTo2(totalAmount)
		row.TotalFees = utils.RoundTo2(totalFees)

		days = append(days, day)
	}
	return days
}

func computeBucketDay(logger *logrus.Logger, merchant string, date models.DateOnly, bucket models.Bucket,
	totals BucketTotals, view models.BucketView, params *depositParams) bucketDay {

	calc := bucketDay{
		amount: utils.RoundTo2(totals.Amount),
		volume: totals.Volume,
	}

	calc.rule = ResolveSettlementRule(params.rules, *view.SettlementRule, string(bucket))
	settlement, ok := CalculateSettlementDate(date, calc.rule, params.holidays)
	if !ok {
		// malformed manual rule: fall back to default, keep going
		config.LogWarn(logger, "workflow", "computeBucketDay",
			"settlement rule "+calc.rule+" for "+merchant+"/"+string(bucket),
			"unparseable settlement rule, using "+DefaultSettlementRule)
		calc.rule = DefaultSettlementRule
		settlement, _ = CalculateSettlementDate(date, calc.rule, params.holidays)
	}
	calc.settlementDate = settlement

	feeType, feeRate := resolveFee(view, params, bucket)
	calc.feeAmount = FeeAmount(feeType, feeRate, calc.amount, calc.volume)
	calc.gross = utils.RoundTo2(calc.amount.Sub(calc.feeAmount))
	return calc
}

// resolveFee prefers the row's human-entered fee over the configured
// default. Rows are never stamped with the configured value, so changing
// a fee_config parameter and rebuilding re-prices history.
func resolveFee(view models.BucketView, params *depositParams, bucket models.Bucket) (string, decimal.Decimal) {
	if *view.FeeType != nil && strings.TrimSpace(**view.FeeType) != "" {
		return **view.FeeType, utils.DecimalOrZero(*view.FeeRate)
	}
	if cfg := params.fees[bucket]; cfg != nil {
		return cfg.FeeType, cfg.FeeRate
	}
	return "", decimal.Zero
}

// applyAvailability fills available_fpx / available_ewallet on the
// target month from the reverse settlement index over the two-month
// window: whatever settles on date s was earned on some earlier day d
// with settlement_date(d) == s.
func applyAvailability(target []depositDay, window []depositDay, monthPrefix string) {
	availFpx := make(map[string]decimal.Decimal)
	availEwallet := make(map[string]decimal.Decimal)

	for _, day := range window {
		for bucket, calc := range day.buckets {
			key := calc.settlementDate.String()
			if !strings.HasPrefix(key, monthPrefix) {
				continue
			}
			if bucket == models.BucketFPX {
				availFpx[key] = utils.RoundTo2(availFpx[key].Add(calc.gross))
			} else {
				availEwallet[key] = utils.RoundTo2(availEwallet[key].Add(calc.gross))
			}
		}
	}

	for _, day := range target {
		key := day.date.String()
		day.row.AvailableFpx = availFpx[key]
		day.row.AvailableEwallet = availEwallet[key]
		day.row.AvailableTotal = utils.RoundTo2(day.row.AvailableFpx.Add(day.row.AvailableEwallet))
	}
}

func loadDepositRows(ctx context.Context, db *gorm.DB, merchant string, from, to time.Time) (map[string]*models.Deposit, error) {
	var rows []models.Deposit
	if err := db.WithContext(ctx).
		Where("merchant = ? AND transaction_date BETWEEN ? AND ?", merchant, from, to).
		Find(&rows).Error; err != nil {
		return nil, err
	}
	existing := make(map[string]*models.Deposit, len(rows))
	for i := range rows {
		existing[rows[i].TransactionDate.String()] = &rows[i]
	}
	return existing, nil
}

// GetDepositMonth reads one merchant-month, building it first when the
// month has never been built.
func GetDepositMonth(ctx context.Context, merchant string, year int, month time.Month) ([]models.Deposit, error) {
	db := config.GetDB()
	first, last := utils.MonthRange(year, month)

	var count int64
	if err := db.WithContext(ctx).Model(&models.Deposit{}).
		Where("merchant = ? AND transaction_date BETWEEN ? AND ?", merchant, first, last).
		Count(&count).Error; err != nil {
		return nil, err
	}
	if count == 0 {
		if err := BuildDepositMonth(ctx, merchant, year, month); err != nil {
			return nil, err
		}
	}

	var rows []models.Deposit
	if err := db.WithContext(ctx).
		Where("merchant = ? AND transaction_date BETWEEN ? AND ?", merchant, first, last).
		Order("transaction_date").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}
