// settlement-backfill re-derives settlement dates, fees and availability
// after a settlement rule or holiday calendar change. It rebuilds every
// deposit month containing transactions on or after the change date,
// re-cascades the affected merchant and agent ledgers, and rebuilds the
// variance months (variance rows carry settlement dates too).
//
// Raw transactions are not re-fetched and manual overrides survive; this
// is the tool to run when parameters changed but the data did not.
//
// Usage (from backend directory):
//   DB_USER=... DB_PASSWORD=... DB_HOST=... DB_PORT=... DB_NAME=... \
//     go run ./cmd/settlement-backfill -since 2025-06-01
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"bitbucket.org/kiranetwork/recon_backend/config"
	"bitbucket.org/kiranetwork/recon_backend/models"
	"bitbucket.org/kiranetwork/recon_backend/workflow"
	"gorm.io/gorm"
)

func main() {
	sinceStr := flag.String("since", "", "Optional: first affected date (YYYY-MM-DD). Defaults to the earliest transaction date.")
	entity := flag.String("entity", "", "Optional: backfill one merchant only")
	continueOnError := flag.Bool("continue-on-error", false, "Skip failing merchants and continue with the others")
	flag.Parse()

	var since *models.DateOnly
	if strings.TrimSpace(*sinceStr) != "" {
		d, err := models.ParseDateOnly(strings.TrimSpace(*sinceStr))
		if err != nil {
			fmt.Fprintf(os.Stderr, "invalid -since: %v\n", err)
			os.Exit(1)
		}
		since = &d
	}

	ctx := context.Background()
	config.ConnectDatabaseWithRetry()
	db := config.GetDB()
	if db == nil {
		fmt.Fprintln(os.Stderr, "database not initialized (config.GetDB returned nil)")
		os.Exit(1)
	}

	// Show the rules being applied so a wrong parameter save is caught
	// before an hour of rebuilding.
	rules, err := workflow.GetSettlementRules(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load settlement rules: %v\n", err)
		os.Exit(1)
	}
	keys := make([]string, 0, len(rules))
	for k := range rules {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	fmt.Print("Applying settlement rules:")
	for _, k := range keys {
		fmt.Printf(" %s=%s", k, rules[k])
	}
	if len(keys) == 0 {
		fmt.Printf(" (none configured; every channel falls back to %s)", workflow.DefaultSettlementRule)
	}
	fmt.Println()

	merchants, months, err := backfillScope(ctx, db, strings.TrimSpace(*entity), since)
	if err != nil {
		fmt.Fprintf(os.Stderr, "discover scope: %v\n", err)
		os.Exit(1)
	}
	if len(merchants) == 0 || len(months) == 0 {
		fmt.Println("nothing to backfill (no transactions in range)")
		return
	}
	fmt.Printf("Backfilling %d merchants over months %s..%s\n",
		len(merchants), months[0], months[len(months)-1])

	for _, merchant := range merchants {
		fmt.Printf("Backfilling merchant=%s\n", merchant)
		if err := backfillMerchant(ctx, db, merchant, months); err != nil {
			if *continueOnError {
				fmt.Fprintf(os.Stderr, "backfill failed (skipping): merchant=%s: %v\n", merchant, err)
				continue
			}
			fmt.Fprintf(os.Stderr, "backfill failed: merchant=%s: %v\n", merchant, err)
			os.Exit(1)
		}
	}

	for _, monthKey := range months {
		year, month, err := parseMonthKey(monthKey)
		if err != nil {
			fmt.Fprintf(os.Stderr, "%v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Backfilling variance month=%s\n", monthKey)
		if err := workflow.BuildVarianceMonth(ctx, year, month); err != nil {
			if *continueOnError {
				fmt.Fprintf(os.Stderr, "variance backfill failed (skipping): month=%s: %v\n", monthKey, err)
				continue
			}
			fmt.Fprintf(os.Stderr, "variance backfill failed: month=%s: %v\n", monthKey, err)
			os.Exit(1)
		}
	}

	fmt.Println("settlement backfill complete")
}

func backfillMerchant(ctx context.Context, db *gorm.DB, merchant string, months []string) error {
	for _, monthKey := range months {
		year, month, err := parseMonthKey(monthKey)
		if err != nil {
			return err
		}
		if err := workflow.BuildDepositMonth(ctx, merchant, year, month); err != nil {
			return err
		}
	}

	// Settlement dates from the last rebuilt month can land in the month
	// after it; refresh that month's availability when it was ever built.
	lastYear, lastMonth, err := parseMonthKey(months[len(months)-1])
	if err != nil {
		return err
	}
	nextStart := time.Date(lastYear, lastMonth, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 1, 0)
	first := nextStart
	last := first.AddDate(0, 1, -1)
	var count int64
	if err := db.WithContext(ctx).Model(&models.Deposit{}).
		Where("merchant = ? AND transaction_date BETWEEN ? AND ?", merchant, first, last).
		Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		if err := workflow.BuildDepositMonth(ctx, merchant, nextStart.Year(), nextStart.Month()); err != nil {
			return err
		}
	}

	if err := workflow.BuildMerchantLedger(ctx, merchant); err != nil {
		return err
	}

	var agentRows int64
	if err := db.WithContext(ctx).Model(&models.AgentLedger{}).
		Where("agent = ?", merchant).
		Count(&agentRows).Error; err != nil {
		return err
	}
	if agentRows > 0 {
		if err := workflow.BuildAgentLedger(ctx, merchant); err != nil {
			return err
		}
	}
	return nil
}

func backfillScope(ctx context.Context, db *gorm.DB, entity string, since *models.DateOnly) ([]string, []string, error) {
	query := db.WithContext(ctx).Model(&models.KiraTransaction{})
	if entity != "" {
		query = query.Where("merchant = ?", entity)
	}
	if since != nil {
		// Whole months rebuild anyway, so widen to the month start.
		monthStart := time.Date(since.Time().Year(), since.Time().Month(), 1, 0, 0, 0, 0, time.UTC)
		query = query.Where("transaction_date >= ?", monthStart)
	}
	base := query.Session(&gorm.Session{})

	var merchants []string
	if err := base.Distinct("merchant").
		Where("merchant <> ''").
		Pluck("merchant", &merchants).Error; err != nil {
		return nil, nil, err
	}
	sort.Strings(merchants)

	var dates []models.DateOnly
	if err := base.Distinct("transaction_date").
		Pluck("transaction_date", &dates).Error; err != nil {
		return nil, nil, err
	}
	monthSet := make(map[string]struct{})
	for _, d := range dates {
		monthSet[d.Time().Format("2006-01")] = struct{}{}
	}
	months := make([]string, 0, len(monthSet))
	for m := range monthSet {
		months = append(months, m)
	}
	sort.Strings(months)
	return merchants, months, nil
}

func parseMonthKey(key string) (int, time.Month, error) {
	t, err := time.Parse("2006-01", key)
	if err != nil {
		return 0, 0, fmt.Errorf("bad month key %q: %w", key, err)
	}
	return t.Year(), t.Month(), nil
}
