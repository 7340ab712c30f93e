package workflow

import (
	"sort"

	"bitbucket.org/kiranetwork/recon_backend/models"
	"bitbucket.org/kiranetwork/recon_backend/utils"
	"github.com/shopspring/decimal"
)

// DayKey is the aggregation grain shared by the ledger builders:
// one entity, one calendar date, one canonical channel.
type DayKey struct {
	Entity  string
	Date    string // YYYY-MM-DD
	Channel models.Channel
}

type Totals struct {
	Amount           decimal.Decimal
	Count            int64
	Mdr              decimal.Decimal
	SettlementAmount decimal.Decimal
}

func (t Totals) add(amount, mdr, settlement decimal.Decimal) Totals {
	t.Amount = t.Amount.Add(amount)
	t.Count++
	t.Mdr = t.Mdr.Add(mdr)
	t.SettlementAmount = t.SettlementAmount.Add(settlement)
	return t
}

// AggregateKiraByDay groups Kira rows by (merchant, date, channel).
// Pure and order-independent: the same rows always produce the same
// map, so ledger reads can re-aggregate freely without double counting.
func AggregateKiraByDay(rows []models.KiraTransaction) map[DayKey]Totals {
	out := make(map[DayKey]Totals, len(rows))
	for _, r := range rows {
		key := DayKey{
			Entity:  r.Merchant,
			Date:    r.TransactionDate.String(),
			Channel: NormalizeChannel(r.PaymentMethod),
		}
		out[key] = out[key].add(r.Amount, utils.DecimalOrZero(r.Mdr), utils.DecimalOrZero(r.SettlementAmount))
	}
	return out
}

// AggregatePGByDay groups gateway rows by (account_label, date, channel).
func AggregatePGByDay(rows []models.PGTransaction) map[DayKey]Totals {
	out := make(map[DayKey]Totals, len(rows))
	for _, r := range rows {
		key := DayKey{
			Entity:  r.AccountLabel,
			Date:    r.TransactionDate.String(),
			Channel: NormalizeChannel(r.Channel),
		}
		out[key] = out[key].add(r.Amount, decimal.Zero, decimal.Zero)
	}
	return out
}

// AggregateBankByDay groups bank credits by (account_label, date,
// channel), with the channel sniffed from the statement description.
func AggregateBankByDay(rows []models.BankTransaction) map[DayKey]Totals {
	out := make(map[DayKey]Totals, len(rows))
	for _, r := range rows {
		key := DayKey{
			Entity:  r.AccountLabel,
			Date:    r.TransactionDate.String(),
			Channel: NormalizeChannel(r.Description),
		}
		out[key] = out[key].add(r.Amount, decimal.Zero, decimal.Zero)
	}
	return out
}

// SortedDayKeys returns the keys in (date, entity, channel) order, the
// ordering the variance ledger accumulates in.
func SortedDayKeys(m map[DayKey]Totals) []DayKey {
	keys := make([]DayKey, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].Date != keys[j].Date {
			return keys[i].Date < keys[j].Date
		}
		if keys[i].Entity != keys[j].Entity {
			return keys[i].Entity < keys[j].Entity
		}
		return keys[i].Channel < keys[j].Channel
	})
	return keys
}

// BucketTotals is the deposit-ledger grain: per (date, bucket) amounts
// for one merchant.
type BucketTotals struct {
	Amount           decimal.Decimal
	Volume           int64
	SettlementAmount decimal.Decimal
}

// AggregateKiraByBucket folds one merchant's day/channel totals down to
// the two settlement buckets.
func AggregateKiraByBucket(rows []models.KiraTransaction) map[string]map[models.Bucket]BucketTotals {
	byDay := AggregateKiraByDay(rows)
	out := make(map[string]map[models.Bucket]BucketTotals)
	for key, totals := range byDay {
		buckets, ok := out[key.Date]
		if !ok {
			buckets = make(map[models.Bucket]BucketTotals, 2)
			out[key.Date] = buckets
		}
		b := buckets[key.Channel.Bucket()]
		b.Amount = b.Amount.Add(totals.Amount)
		b.Volume += totals.Count
		b.SettlementAmount = b.SettlementAmount.Add(totals.SettlementAmount)
		buckets[key.Channel.Bucket()] = b
	}
	return out
}
