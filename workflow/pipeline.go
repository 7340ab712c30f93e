package workflow

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"bitbucket.org/kiranetwork/recon_backend/config"
	"bitbucket.org/kiranetwork/recon_backend/models"
	"bitbucket.org/kiranetwork/recon_backend/parser"
	"bitbucket.org/kiranetwork/recon_backend/utils"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// maxEntityWorkers bounds how many merchants recompute at once.
const maxEntityWorkers = 4

// SyncStats summarizes one pipeline run for the job record.
type SyncStats struct {
	FilesProcessed int      `json:"files_processed"`
	FilesFailed    int      `json:"files_failed"`
	RowsInserted   int64    `json:"rows_inserted"`
	RowsSkipped    int64    `json:"rows_skipped"`
	BadRows        int      `json:"bad_rows"`
	Merchants      int      `json:"merchants"`
	Months         int      `json:"months"`
	FailedEntities []string `json:"failed_entities,omitempty"`
}

func (s *SyncStats) Description() string {
	desc := fmt.Sprintf("files=%d inserted=%d skipped=%d bad_rows=%d merchants=%d",
		s.FilesProcessed, s.RowsInserted, s.RowsSkipped, s.BadRows, s.Merchants)
	if s.FilesFailed > 0 {
		desc += fmt.Sprintf(" files_failed=%d", s.FilesFailed)
	}
	if len(s.FailedEntities) > 0 {
		desc += " failed_entities=" + strings.Join(s.FailedEntities, ",")
	}
	return desc
}

// FullSync runs the whole pipeline: parse the inbox, ingest each
// source, then rebuild every ledger for the merchants and months that
// have data in the window. Ingest commits before any ledger builder
// runs. A ComputationError aborts only its entity; the rest keep going
// and the failed entities are recorded in the stats. ExternalIOError
// fails the run.
//
// A nil from/to widens the window to everything the kira table holds.
func FullSync(ctx context.Context, from, to *models.DateOnly) (*SyncStats, error) {
	logger := config.GetLogger()
	stats := &SyncStats{}

	if err := IngestInbox(ctx, stats); err != nil {
		return stats, err
	}

	merchants, months, err := discoverScope(ctx, from, to)
	if err != nil {
		return stats, err
	}
	stats.Merchants = len(merchants)
	stats.Months = len(months)
	if len(merchants) == 0 || len(months) == 0 {
		return stats, nil
	}

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		semaphore = make(chan struct{}, maxEntityWorkers)
		fatal     error
	)

	for _, merchant := range merchants {
		wg.Add(1)
		go func(merchant string) {
			defer wg.Done()
			semaphore <- struct{}{}
			defer func() { <-semaphore }()

			m := entityMutex(merchant)
			m.Lock()
			defer m.Unlock()

			if err := rebuildMerchant(ctx, merchant, months); err != nil {
				mu.Lock()
				defer mu.Unlock()
				if utils.IsEntityScoped(err) {
					config.LogError(logger, "workflow", "FullSync", "Entity recompute failed", merchant, err)
					stats.FailedEntities = append(stats.FailedEntities, merchant)
					return
				}
				if fatal == nil {
					fatal = err
				}
			}
		}(merchant)
	}
	wg.Wait()
	if fatal != nil {
		return stats, fatal
	}
	sort.Strings(stats.FailedEntities)

	for _, monthKey := range months {
		year, month, err := parseMonthKey(monthKey)
		if err != nil {
			return stats, err
		}
		if err := BuildVarianceMonth(ctx, year, month); err != nil {
			if utils.IsEntityScoped(err) {
				config.LogError(logger, "workflow", "FullSync", "Variance build failed", monthKey, err)
				stats.FailedEntities = append(stats.FailedEntities, "variance:"+monthKey)
				continue
			}
			return stats, err
		}
	}
	return stats, nil
}

// rebuildMerchant runs one merchant's ledger chain: deposit months in
// order, then the merchant cascade, then the agent cascade when an
// agent ledger exists for the label.
func rebuildMerchant(ctx context.Context, merchant string, months []string) error {
	for _, monthKey := range months {
		year, month, err := parseMonthKey(monthKey)
		if err != nil {
			return err
		}
		if err := BuildDepositMonth(ctx, merchant, year, month); err != nil {
			return err
		}
	}
	if err := BuildMerchantLedger(ctx, merchant); err != nil {
		return err
	}
	hasAgent, err := agentLedgerExists(ctx, config.GetDB(), merchant)
	if err != nil {
		return err
	}
	if hasAgent {
		if err := BuildAgentLedger(ctx, merchant); err != nil {
			return err
		}
	}
	return nil
}

// IngestInbox parses every new file in the inbox and commits its rows.
// Each file gets its own transaction and its own completed parse-job
// record, so a crash mid-scan re-parses only the unfinished files.
func IngestInbox(ctx context.Context, stats *SyncStats) error {
	logger := config.GetLogger()
	db := config.GetDB()

	parsed, err := loadParsedFilenames(ctx, db)
	if err != nil {
		return utils.NewExternalIOError("load parsed filenames", err)
	}

	files, err := parser.ScanDirectory(parser.InboxDir(), parsed)
	if err != nil {
		return err
	}

	for _, pf := range files {
		if pf.Err != nil {
			config.LogError(logger, "workflow", "IngestInbox", "File failed to parse", pf.Filename, pf.Err)
			stats.FilesFailed++
			continue
		}
		counts, err := ingestParsedFile(ctx, db, pf)
		if err != nil {
			return utils.NewExternalIOError("ingest "+pf.Filename, err)
		}
		stats.FilesProcessed++
		stats.RowsInserted += counts.Inserted
		stats.RowsSkipped += counts.Skipped
		stats.BadRows += counts.BadRows

		if _, err := utils.ArchiveStatement(ctx, pf.Filename, pf.Data, ""); err != nil {
			config.LogError(logger, "workflow", "IngestInbox", "Archive failed", pf.Filename, err)
		}
	}
	return nil
}

// IngestStatement ingests one already-parsed statement (the upload path).
// Same transaction and archive handling as the inbox scan; the caller
// decides what to rebuild afterwards.
func IngestStatement(ctx context.Context, pf parser.ParsedFile) (models.IngestCounts, error) {
	logger := config.GetLogger()
	db := config.GetDB()

	if pf.Err != nil {
		return models.IngestCounts{Source: pf.Source}, pf.Err
	}
	counts, err := ingestParsedFile(ctx, db, pf)
	if err != nil {
		return counts, utils.NewExternalIOError("ingest "+pf.Filename, err)
	}
	if _, err := utils.ArchiveStatement(ctx, pf.Filename, pf.Data, ""); err != nil {
		config.LogError(logger, "workflow", "IngestStatement", "Archive failed", pf.Filename, err)
	}
	return counts, nil
}

func ingestParsedFile(ctx context.Context, db *gorm.DB, pf parser.ParsedFile) (models.IngestCounts, error) {
	counts := models.IngestCounts{Source: pf.Source}

	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var inserted int64
		var parsedRows int
		var badRows int
		var err error

		switch pf.Source {
		case models.SourceKira:
			rows, errs := parser.SplitResults(pf.Kira)
			parsedRows, badRows = len(rows), len(errs)
			logRowErrors(pf.Filename, errs)
			inserted, err = models.InsertIgnoreBatch(ctx, tx, rows)
		case models.SourceGateway:
			rows, errs := parser.SplitResults(pf.PG)
			parsedRows, badRows = len(rows), len(errs)
			logRowErrors(pf.Filename, errs)
			inserted, err = models.InsertIgnoreBatch(ctx, tx, rows)
		case models.SourceBank:
			rows, errs := parser.SplitResults(pf.Bank)
			parsedRows, badRows = len(rows), len(errs)
			logRowErrors(pf.Filename, errs)
			inserted, err = models.InsertIgnoreBatch(ctx, tx, rows)
		default:
			return fmt.Errorf("unknown source %q", pf.Source)
		}
		if err != nil {
			return err
		}
		if badRows > 0 && config.StrictParse() {
			return fmt.Errorf("%s: %d unparseable rows (strict mode)", pf.Filename, badRows)
		}

		counts.Parsed = parsedRows
		counts.BadRows = badRows
		counts.Inserted = inserted
		counts.Skipped = int64(parsedRows) - inserted

		now := time.Now().UTC()
		return tx.Create(&models.Job{
			RunId:             uuid.NewString(),
			JobType:           models.JobTypeParse,
			Platform:          pf.Platform,
			AccountLabel:      pf.AccountLabel,
			Status:            models.JobStatusCompleted,
			Filename:          pf.Filename,
			TransactionsCount: int(inserted),
			StartedAt:         &now,
			FinishedAt:        &now,
		}).Error
	})
	return counts, err
}

func logRowErrors(filename string, errs []error) {
	logger := config.GetLogger()
	for _, err := range errs {
		config.LogWarn(logger, "workflow", "ingestParsedFile", filename, err.Error())
	}
}

// loadParsedFilenames collects the filenames of completed parse jobs,
// the skip set for the next inbox scan.
func loadParsedFilenames(ctx context.Context, db *gorm.DB) (map[string]struct{}, error) {
	var names []string
	err := db.WithContext(ctx).Model(&models.Job{}).
		Where("job_type = ? AND status = ? AND filename <> ''", models.JobTypeParse, models.JobStatusCompleted).
		Pluck("filename", &names).Error
	if err != nil {
		return nil, err
	}
	set := make(map[string]struct{}, len(names))
	for _, n := range names {
		set[n] = struct{}{}
	}
	return set, nil
}

// discoverScope finds the merchants and months with kira data inside
// the window. Months come back sorted ascending so deposit builds walk
// forward and the two-month availability lookback always finds the
// previous month already rebuilt.
func discoverScope(ctx context.Context, from, to *models.DateOnly) ([]string, []string, error) {
	db := config.GetDB()

	query := db.WithContext(ctx).Model(&models.KiraTransaction{})
	if from != nil {
		query = query.Where("transaction_date >= ?", from)
	}
	if to != nil {
		query = query.Where("transaction_date <= ?", to)
	}
	base := query.Session(&gorm.Session{})

	var merchants []string
	if err := base.Distinct("merchant").
		Where("merchant <> ''").
		Pluck("merchant", &merchants).Error; err != nil {
		return nil, nil, utils.NewExternalIOError("list merchants", err)
	}

	var dates []models.DateOnly
	if err := base.Distinct("transaction_date").
		Pluck("transaction_date", &dates).Error; err != nil {
		return nil, nil, utils.NewExternalIOError("list transaction months", err)
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
	sort.Strings(merchants)
	return merchants, months, nil
}

// PlatformSync ingests only one platform's files and rebuilds the
// ledgers its accounts feed. The inbox scan is shared with FullSync;
// the narrowing happens at the rebuild stage.
func PlatformSync(ctx context.Context, platform, accountLabel string, from, to *models.DateOnly) (*SyncStats, error) {
	stats := &SyncStats{}
	if err := IngestInbox(ctx, stats); err != nil {
		return stats, err
	}

	merchants, months, err := discoverScope(ctx, from, to)
	if err != nil {
		return stats, err
	}
	if accountLabel != "" {
		narrowed := merchants[:0]
		for _, m := range merchants {
			if m == accountLabel {
				narrowed = append(narrowed, m)
			}
		}
		merchants = narrowed
	}
	stats.Merchants = len(merchants)
	stats.Months = len(months)

	for _, merchant := range merchants {
		m := entityMutex(merchant)
		m.Lock()
		err := rebuildMerchant(ctx, merchant, months)
		m.Unlock()
		if err != nil {
			if utils.IsEntityScoped(err) {
				config.LogError(config.GetLogger(), "workflow", "PlatformSync", "Entity recompute failed", merchant, err)
				stats.FailedEntities = append(stats.FailedEntities, merchant)
				continue
			}
			return stats, err
		}
	}

	for _, monthKey := range months {
		year, month, err := parseMonthKey(monthKey)
		if err != nil {
			return stats, err
		}
		if err := BuildVarianceMonth(ctx, year, month); err != nil {
			if utils.IsEntityScoped(err) {
				stats.FailedEntities = append(stats.FailedEntities, "variance:"+monthKey)
				continue
			}
			return stats, err
		}
	}
	return stats, nil
}
