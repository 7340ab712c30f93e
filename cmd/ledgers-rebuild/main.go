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
	"github.com/google/uuid"
	"gorm.io/gorm"
)

func main() {
	entity := flag.String("entity", "", "Optional: rebuild one merchant only. If empty, rebuilds every merchant with transactions in range.")
	fromStr := flag.String("from", "", "Optional: first month to rebuild (YYYY-MM). Defaults to the earliest transaction month.")
	toStr := flag.String("to", "", "Optional: last month to rebuild (YYYY-MM). Defaults to the latest transaction month.")
	dryRun := flag.Bool("dry-run", false, "Print the rebuild plan without writing anything")
	continueOnError := flag.Bool("continue-on-error", false, "Skip failing merchants and continue rebuilding others")
	skipVariance := flag.Bool("skip-variance", false, "Skip the variance ledger months (variance is account-scoped, not merchant-scoped; skip it when rebuilding a single merchant)")
	flag.Parse()

	fromMonth, err := parseMonthFlag(*fromStr)
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid -from: %v\n", err)
		os.Exit(1)
	}
	toMonth, err := parseMonthFlag(*toStr)
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid -to: %v\n", err)
		os.Exit(1)
	}

	ctx := context.Background()
	config.ConnectDatabaseWithRetry()
	db := config.GetDB()
	if db == nil {
		fmt.Fprintln(os.Stderr, "database not initialized (config.GetDB returned nil)")
		os.Exit(1)
	}

	merchants, months, err := rebuildScope(ctx, db, strings.TrimSpace(*entity), fromMonth, toMonth)
	if err != nil {
		fmt.Fprintf(os.Stderr, "discover scope: %v\n", err)
		os.Exit(1)
	}
	if len(merchants) == 0 || len(months) == 0 {
		fmt.Println("nothing to rebuild (no transactions in range)")
		return
	}

	fmt.Printf("Rebuild plan: %d merchants x %d months (%s..%s)\n",
		len(merchants), len(months), months[0], months[len(months)-1])
	if *dryRun {
		for _, m := range merchants {
			fmt.Printf("  merchant=%s\n", m)
		}
		if !*skipVariance {
			for _, monthKey := range months {
				fmt.Printf("  variance month=%s\n", monthKey)
			}
		}
		fmt.Println("dry run; nothing written")
		return
	}

	job := startRebuildJob(ctx, db, *entity, months)

	failed := []string{}
	for _, merchant := range merchants {
		fmt.Printf("Rebuilding merchant=%s\n", merchant)
		if err := rebuildOneMerchant(ctx, db, merchant, months); err != nil {
			if *continueOnError {
				fmt.Fprintf(os.Stderr, "rebuild failed (skipping): merchant=%s: %v\n", merchant, err)
				failed = append(failed, merchant)
				continue
			}
			finishRebuildJob(ctx, db, job, models.JobStatusFailed, fmt.Sprintf("merchant %s: %v", merchant, err))
			fmt.Fprintf(os.Stderr, "rebuild failed: merchant=%s: %v\n", merchant, err)
			os.Exit(1)
		}
	}

	if !*skipVariance {
		for _, monthKey := range months {
			year, month, err := parseMonthKey(monthKey)
			if err != nil {
				finishRebuildJob(ctx, db, job, models.JobStatusFailed, err.Error())
				fmt.Fprintf(os.Stderr, "%v\n", err)
				os.Exit(1)
			}
			fmt.Printf("Rebuilding variance month=%s\n", monthKey)
			if err := workflow.BuildVarianceMonth(ctx, year, month); err != nil {
				if *continueOnError {
					fmt.Fprintf(os.Stderr, "variance rebuild failed (skipping): month=%s: %v\n", monthKey, err)
					failed = append(failed, "variance:"+monthKey)
					continue
				}
				finishRebuildJob(ctx, db, job, models.JobStatusFailed, fmt.Sprintf("variance %s: %v", monthKey, err))
				fmt.Fprintf(os.Stderr, "variance rebuild failed: month=%s: %v\n", monthKey, err)
				os.Exit(1)
			}
		}
	}

	desc := fmt.Sprintf("%d merchants, %d months", len(merchants), len(months))
	if len(failed) > 0 {
		desc += "; failed: " + strings.Join(failed, ", ")
	}
	finishRebuildJob(ctx, db, job, models.JobStatusCompleted, desc)
	fmt.Printf("ledger rebuild complete (%s)\n", desc)
}

// rebuildOneMerchant runs the whole ledger chain for one merchant:
// deposit months in ascending order, the trailing month when it was
// already built (late-month settlement dates land there), then the
// merchant cascade and, when one exists, the agent cascade.
func rebuildOneMerchant(ctx context.Context, db *gorm.DB, merchant string, months []string) error {
	for _, monthKey := range months {
		year, month, err := parseMonthKey(monthKey)
		if err != nil {
			return err
		}
		if err := workflow.BuildDepositMonth(ctx, merchant, year, month); err != nil {
			return err
		}
	}

	lastYear, lastMonth, err := parseMonthKey(months[len(months)-1])
	if err != nil {
		return err
	}
	nextStart := time.Date(lastYear, lastMonth, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 1, 0)
	built, err := monthHasDeposits(ctx, db, merchant, nextStart.Year(), nextStart.Month())
	if err != nil {
		return err
	}
	if built {
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

// rebuildScope lists the merchants and "YYYY-MM" month keys that have
// transactions inside the requested bounds.
func rebuildScope(ctx context.Context, db *gorm.DB, entity string, fromMonth, toMonth *time.Time) ([]string, []string, error) {
	query := db.WithContext(ctx).Model(&models.KiraTransaction{})
	if entity != "" {
		query = query.Where("merchant = ?", entity)
	}
	if fromMonth != nil {
		query = query.Where("transaction_date >= ?", *fromMonth)
	}
	if toMonth != nil {
		query = query.Where("transaction_date < ?", toMonth.AddDate(0, 1, 0))
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

func monthHasDeposits(ctx context.Context, db *gorm.DB, merchant string, year int, month time.Month) (bool, error) {
	first := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
	last := first.AddDate(0, 1, -1)
	var count int64
	err := db.WithContext(ctx).Model(&models.Deposit{}).
		Where("merchant = ? AND transaction_date BETWEEN ? AND ?", merchant, first, last).
		Count(&count).Error
	return count > 0, err
}

// startRebuildJob records the run in the jobs table so it shows up in
// the jobs API next to the sync runs. Failures to record are not fatal.
func startRebuildJob(ctx context.Context, db *gorm.DB, entity string, months []string) *models.Job {
	now := time.Now().UTC()
	accountLabel := strings.TrimSpace(entity)
	if accountLabel == "" {
		accountLabel = "all"
	}
	job := &models.Job{
		RunId:        uuid.NewString(),
		JobType:      models.JobTypeRebuild,
		Platform:     "cli",
		AccountLabel: accountLabel,
		Status:       models.JobStatusRunning,
		Description:  fmt.Sprintf("months %s..%s", months[0], months[len(months)-1]),
		StartedAt:    &now,
	}
	if err := db.WithContext(ctx).Create(job).Error; err != nil {
		fmt.Fprintf(os.Stderr, "warning: could not record rebuild job: %v\n", err)
		return nil
	}
	return job
}

func finishRebuildJob(ctx context.Context, db *gorm.DB, job *models.Job, status models.JobStatus, desc string) {
	if job == nil {
		return
	}
	now := time.Now().UTC()
	if err := db.WithContext(ctx).Model(&models.Job{}).
		Where("run_id = ?", job.RunId).
		Updates(map[string]interface{}{
			"status":      status,
			"description": desc,
			"finished_at": &now,
		}).Error; err != nil {
		fmt.Fprintf(os.Stderr, "warning: could not finish rebuild job: %v\n", err)
	}
}

func parseMonthFlag(s string) (*time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	t, err := time.Parse("2006-01", s)
	if err != nil {
		return nil, fmt.Errorf("want YYYY-MM, got %q", s)
	}
	return &t, nil
}

func parseMonthKey(key string) (int, time.Month, error) {
	t, err := time.Parse("2006-01", key)
	if err != nil {
		return 0, 0, fmt.Errorf("bad month key %q: %w", key, err)
	}
	return t.Year(), t.Month(), nil
}
