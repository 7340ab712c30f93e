package workflow

import (
	"testing"

	"bitbucket.org/kiranetwork/recon_backend/models"
	"bitbucket.org/kiranetwork/recon_backend/utils"
	"github.com/shopspring/decimal"
)

func aggRow(t *testing.T, merchant, date, method, amount string, mdr string) models.KiraTransaction {
	t.Helper()
	row := models.KiraTransaction{
		Merchant:        merchant,
		TransactionDate: mustDate(t, date),
		PaymentMethod:   method,
		Amount:          decimal.RequireFromString(amount),
	}
	if mdr != "" {
		row.Mdr = utils.DecimalPtr(decimal.RequireFromString(mdr))
	}
	return row
}

func TestAggregateKiraByDay(t *testing.T) {
	rows := []models.KiraTransaction{
		aggRow(t, "M1", "2025-10-01", "FPX B2C", "100", "1.00"),
		aggRow(t, "M1", "2025-10-01", "fpx", "50", ""),
		aggRow(t, "M1", "2025-10-01", "TNG eWallet", "20", "0.40"),
		aggRow(t, "M1", "2025-10-02", "FPX B2C", "70", ""),
		aggRow(t, "M2", "2025-10-01", "FPX B2C", "5", ""),
	}

	got := AggregateKiraByDay(rows)
	if len(got) != 4 {
		t.Fatalf("expected 4 day keys, got %d", len(got))
	}

	fpxDay1 := got[DayKey{Entity: "M1", Date: "2025-10-01", Channel: models.ChannelFPX}]
	if fpxDay1.Amount.String() != "150" {
		t.Fatalf("M1 fpx 2025-10-01 expected amount 150, got %s", fpxDay1.Amount.String())
	}
	if fpxDay1.Count != 2 {
		t.Fatalf("M1 fpx 2025-10-01 expected count 2, got %d", fpxDay1.Count)
	}
	if fpxDay1.Mdr.String() != "1" {
		t.Fatalf("M1 fpx 2025-10-01 expected mdr 1 (nil treated as zero), got %s", fpxDay1.Mdr.String())
	}

	tngDay1 := got[DayKey{Entity: "M1", Date: "2025-10-01", Channel: models.ChannelTNG}]
	if tngDay1.Amount.String() != "20" || tngDay1.Count != 1 {
		t.Fatalf("M1 tng 2025-10-01 expected 20/1, got %s/%d", tngDay1.Amount.String(), tngDay1.Count)
	}

	// Input order must not change the result.
	reversed := make([]models.KiraTransaction, 0, len(rows))
	for i := len(rows) - 1; i >= 0; i-- {
		reversed = append(reversed, rows[i])
	}
	again := AggregateKiraByDay(reversed)
	for key, totals := range got {
		other := again[key]
		if !totals.Amount.Equal(other.Amount) || totals.Count != other.Count {
			t.Fatalf("aggregation depends on input order at %+v", key)
		}
	}
}

func TestAggregateKiraByBucket(t *testing.T) {
	rows := []models.KiraTransaction{
		aggRow(t, "M1", "2025-10-01", "FPX B2C", "100", ""),
		aggRow(t, "M1", "2025-10-01", "FPX B2B", "40", ""), // corporate: ewallet rail
		aggRow(t, "M1", "2025-10-01", "TNG", "20", ""),
		aggRow(t, "M1", "2025-10-01", "Boost", "10", ""),
		aggRow(t, "M1", "2025-10-02", "FPX", "7", ""),
	}

	got := AggregateKiraByBucket(rows)
	if len(got) != 2 {
		t.Fatalf("expected 2 dates, got %d", len(got))
	}

	day1 := got["2025-10-01"]
	if day1[models.BucketFPX].Amount.String() != "100" {
		t.Fatalf("fpx bucket expected 100, got %s", day1[models.BucketFPX].Amount.String())
	}
	if day1[models.BucketFPX].Volume != 1 {
		t.Fatalf("fpx bucket expected volume 1, got %d", day1[models.BucketFPX].Volume)
	}
	if day1[models.BucketEwallet].Amount.String() != "70" {
		t.Fatalf("ewallet bucket expected 70 (FPXC+TNG+Boost), got %s", day1[models.BucketEwallet].Amount.String())
	}
	if day1[models.BucketEwallet].Volume != 3 {
		t.Fatalf("ewallet bucket expected volume 3, got %d", day1[models.BucketEwallet].Volume)
	}

	day2 := got["2025-10-02"]
	if day2[models.BucketFPX].Amount.String() != "7" {
		t.Fatalf("fpx bucket on day 2 expected 7, got %s", day2[models.BucketFPX].Amount.String())
	}
}

func TestAggregatePGByDay(t *testing.T) {
	rows := []models.PGTransaction{
		{AccountLabel: "acct-1", TransactionDate: mustDate(t, "2025-10-01"), Channel: "FPX B2C", Amount: decimal.RequireFromString("100")},
		{AccountLabel: "acct-1", TransactionDate: mustDate(t, "2025-10-01"), Channel: "fpx", Amount: decimal.RequireFromString("25")},
		{AccountLabel: "acct-2", TransactionDate: mustDate(t, "2025-10-01"), Channel: "TNG", Amount: decimal.RequireFromString("9")},
	}
	got := AggregatePGByDay(rows)
	if len(got) != 2 {
		t.Fatalf("expected 2 day keys, got %d", len(got))
	}
	fpx := got[DayKey{Entity: "acct-1", Date: "2025-10-01", Channel: models.ChannelFPX}]
	if fpx.Amount.String() != "125" || fpx.Count != 2 {
		t.Fatalf("acct-1 fpx expected 125/2, got %s/%d", fpx.Amount.String(), fpx.Count)
	}
}

func TestAggregateBankByDay(t *testing.T) {
	rows := []models.BankTransaction{
		{AccountLabel: "acct-1", TransactionDate: mustDate(t, "2025-10-01"), Description: "FPX B2C COLLECTION", Amount: decimal.RequireFromString("100")},
		{AccountLabel: "acct-1", TransactionDate: mustDate(t, "2025-10-01"), Description: "IBG TRANSFER", Amount: decimal.RequireFromString("40")},
		{AccountLabel: "acct-1", TransactionDate: mustDate(t, "2025-10-02"), Description: "TNG SETTLEMENT", Amount: decimal.RequireFromString("20")},
	}
	got := AggregateBankByDay(rows)
	if len(got) != 3 {
		t.Fatalf("expected 3 day keys, got %d", len(got))
	}
	fpx := got[DayKey{Entity: "acct-1", Date: "2025-10-01", Channel: models.ChannelFPX}]
	if fpx.Amount.String() != "100" || fpx.Count != 1 {
		t.Fatalf("fpx day expected 100/1, got %s/%d", fpx.Amount.String(), fpx.Count)
	}
	// Descriptions without a named channel marker land in the generic
	// ewallet lane rather than being dropped.
	generic := got[DayKey{Entity: "acct-1", Date: "2025-10-01", Channel: models.ChannelEwalletGeneric}]
	if generic.Amount.String() != "40" {
		t.Fatalf("generic lane expected 40, got %s", generic.Amount.String())
	}
	tng := got[DayKey{Entity: "acct-1", Date: "2025-10-02", Channel: models.ChannelTNG}]
	if tng.Amount.String() != "20" {
		t.Fatalf("tng day expected 20, got %s", tng.Amount.String())
	}
}

func TestSortedDayKeys(t *testing.T) {
	m := map[DayKey]Totals{
		{Entity: "M2", Date: "2025-10-01", Channel: models.ChannelFPX}: {},
		{Entity: "M1", Date: "2025-10-02", Channel: models.ChannelFPX}: {},
		{Entity: "M1", Date: "2025-10-01", Channel: models.ChannelTNG}: {},
		{Entity: "M1", Date: "2025-10-01", Channel: models.ChannelFPX}: {},
	}
	keys := SortedDayKeys(m)
	want := []DayKey{
		{Entity: "M1", Date: "2025-10-01", Channel: models.ChannelFPX},
		{Entity: "M1", Date: "2025-10-01", Channel: models.ChannelTNG},
		{Entity: "M2", Date: "2025-10-01", Channel: models.ChannelFPX},
		{Entity: "M1", Date: "2025-10-02", Channel: models.ChannelFPX},
	}
	for i := range want {
		if keys[i] != want[i] {
			t.Fatalf("position %d expected %+v, got %+v", i, want[i], keys[i])
		}
	}
}
