package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"bitbucket.org/kiranetwork/recon_backend/config"
	"bitbucket.org/kiranetwork/recon_backend/holidaysync"
	"bitbucket.org/kiranetwork/recon_backend/models"
	"bitbucket.org/kiranetwork/recon_backend/utils"
	"bitbucket.org/kiranetwork/recon_backend/workflow"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

const defaultPort = "8080"

// Define a struct to represent the rate limiter.
type RateLimiter struct {
	client *redis.Client
	limit  int64
	window time.Duration
}

// jobRegistry is set in main once the database is connected. Handlers
// behind the readiness gate treat nil as "still starting up".
var jobRegistry *workflow.JobRegistry

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}

func getRedisClient(redisAddress string) *redis.Client {
	client := redis.NewClient(&redis.Options{
		Addr: redisAddress,
	})
	return client
}

func getJobRegistry(c *gin.Context) *workflow.JobRegistry {
	if jobRegistry == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "service is starting up"})
		return nil
	}
	return jobRegistry
}

func parsePathYearMonth(c *gin.Context) (int, time.Month, error) {
	year, err := strconv.Atoi(c.Param("year"))
	if err != nil || year < 2000 || year > 2100 {
		return 0, 0, fmt.Errorf("invalid year %q", c.Param("year"))
	}
	monthNo, err := strconv.Atoi(c.Param("month"))
	if err != nil || monthNo < 1 || monthNo > 12 {
		return 0, 0, fmt.Errorf("invalid month %q", c.Param("month"))
	}
	return year, time.Month(monthNo), nil
}

func parseOptionalDate(s string) (*models.DateOnly, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	d, err := models.ParseDateOnly(s)
	if err != nil {
		return nil, err
	}
	return &d, nil
}

// startedJobResponse shapes the common "background job kicked off"
// reply. A second start while a run is in flight is not an error: the
// caller gets the in-flight run id to poll instead.
func startedJobResponse(c *gin.Context, job *models.Job, err error) {
	if errors.Is(err, utils.ErrorJobAlreadyRunning) {
		runId := ""
		if job != nil {
			runId = job.RunId
		}
		c.JSON(http.StatusOK, gin.H{"status": "already_running", "run_id": runId})
		return
	}
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"status": "started", "run_id": job.RunId})
}

type syncFullRequest struct {
	FromDate string `json:"from_date"`
	ToDate   string `json:"to_date"`
}

func syncFullHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		reg := getJobRegistry(c)
		if reg == nil {
			return
		}
		var req syncFullRequest
		if c.Request.ContentLength > 0 {
			if err := c.ShouldBindJSON(&req); err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
				return
			}
		}
		from, err := parseOptionalDate(req.FromDate)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid from_date"})
			return
		}
		to, err := parseOptionalDate(req.ToDate)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid to_date"})
			return
		}

		job, err := reg.Start(c.Request.Context(), models.JobTypeFullSync, "all", "", from, to,
			func(ctx context.Context, job *models.Job) (int, string, error) {
				stats, err := workflow.FullSync(ctx, from, to)
				if err != nil {
					return 0, "", err
				}
				return int(stats.RowsInserted), stats.Description(), nil
			})
		startedJobResponse(c, job, err)
	}
}

type syncPlatformRequest struct {
	Platform     string `json:"platform" binding:"required"`
	AccountLabel string `json:"account_label"`
	FromDate     string `json:"from_date"`
	ToDate       string `json:"to_date"`
}

func syncPlatformHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		reg := getJobRegistry(c)
		if reg == nil {
			return
		}
		var req syncPlatformRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "platform is required"})
			return
		}
		from, err := parseOptionalDate(req.FromDate)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid from_date"})
			return
		}
		to, err := parseOptionalDate(req.ToDate)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid to_date"})
			return
		}

		platform := strings.ToLower(strings.TrimSpace(req.Platform))
		accountLabel := strings.TrimSpace(req.AccountLabel)
		job, err := reg.Start(c.Request.Context(), models.JobTypePlatformSync, platform, accountLabel, from, to,
			func(ctx context.Context, job *models.Job) (int, string, error) {
				stats, err := workflow.PlatformSync(ctx, platform, accountLabel, from, to)
				if err != nil {
					return 0, "", err
				}
				return int(stats.RowsInserted), stats.Description(), nil
			})
		startedJobResponse(c, job, err)
	}
}

func parseInboxHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		reg := getJobRegistry(c)
		if reg == nil {
			return
		}
		job, err := reg.Start(c.Request.Context(), models.JobTypeParse, "inbox", "", nil, nil,
			func(ctx context.Context, job *models.Job) (int, string, error) {
				stats := &workflow.SyncStats{}
				if err := workflow.IngestInbox(ctx, stats); err != nil {
					return 0, "", err
				}
				return int(stats.RowsInserted), stats.Description(), nil
			})
		startedJobResponse(c, job, err)
	}
}

func holidayRefreshHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		reg := getJobRegistry(c)
		if reg == nil {
			return
		}
		job, err := reg.Start(c.Request.Context(), models.JobTypeHolidaySync, "holiday", "", nil, nil,
			func(ctx context.Context, job *models.Job) (int, string, error) {
				upserted, err := holidaysync.Refresh(ctx)
				if err != nil {
					return 0, "", err
				}
				return upserted, fmt.Sprintf("%d holidays upserted", upserted), nil
			})
		startedJobResponse(c, job, err)
	}
}

func jobGetHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		reg := getJobRegistry(c)
		if reg == nil {
			return
		}
		job, err := reg.Get(c.Request.Context(), c.Param("run_id"))
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "job not found"})
			return
		}
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"data": job})
	}
}

func jobListHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		reg := getJobRegistry(c)
		if reg == nil {
			return
		}
		limit := 0
		if v := strings.TrimSpace(c.Query("limit")); v != "" {
			if n, err := strconv.Atoi(v); err == nil {
				limit = n
			}
		}
		status := models.JobStatus(strings.TrimSpace(c.Query("status")))
		jobs, err := reg.List(c.Request.Context(), status, limit)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"data": jobs, "count": len(jobs)})
	}
}

func depositMonthHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		year, month, err := parsePathYearMonth(c)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		rows, err := workflow.GetDepositMonth(c.Request.Context(), c.Param("entity"), year, month)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"data": rows, "count": len(rows)})
	}
}

func merchantLedgerMonthHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		year, month, err := parsePathYearMonth(c)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		rows, err := workflow.GetMerchantLedgerMonth(c.Request.Context(), c.Param("entity"), year, month)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"data": rows, "count": len(rows)})
	}
}

func agentLedgerMonthHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		year, month, err := parsePathYearMonth(c)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		rows, err := workflow.GetAgentLedgerMonth(c.Request.Context(), c.Param("entity"), year, month)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"data": rows, "count": len(rows)})
	}
}

func varianceMonthHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		year, month, err := parsePathYearMonth(c)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		rows, err := workflow.GetVarianceMonth(c.Request.Context(), year, month, strings.TrimSpace(c.Query("account")))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"data": rows, "count": len(rows)})
	}
}

func reconciliationMonthHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		year, month, err := parsePathYearMonth(c)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		rows, stats, err := workflow.GetReconciliationMonth(c.Request.Context(), year, month, strings.TrimSpace(c.Query("entity")))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"data": rows, "stats": stats})
	}
}

type manualInputRequest struct {
	Edits []workflow.RowEdit `json:"edits" binding:"required"`
}

func manualInputHandler(kind string) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req manualInputRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "edits are required"})
			return
		}
		updated, err := workflow.ApplyManualEdits(c.Request.Context(), kind, req.Edits)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"updated": updated})
	}
}

func parametersGetHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		view, err := workflow.GetParametersView(c.Request.Context())
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"data": view})
	}
}

func parametersSaveHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var input workflow.SaveParametersInput
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
			return
		}
		if err := workflow.SaveParameters(c.Request.Context(), input); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "saved"})
	}
}

func customNotFoundHandler(c *gin.Context) {
	c.JSON(http.StatusNotFound, gin.H{"error": "route not found"})
}

// startCronSchedules wires the in-process schedules: the daily full sync
// and the weekly holiday refresh. Both run through the job registry, so
// an operator-started run and a cron run cannot overlap.
func startCronSchedules(logger *logrus.Logger) *cron.Cron {
	if config.CronDisabled() {
		logger.WithFields(logrus.Fields{"field": "cron"}).Warn("CRON_DISABLED=true; schedules are off")
		return nil
	}

	loc, err := time.LoadLocation("Asia/Kuala_Lumpur")
	if err != nil {
		loc = time.UTC
	}
	c := cron.New(cron.WithLocation(loc))

	syncSpec := strings.TrimSpace(os.Getenv("SYNC_CRON_SPEC"))
	if syncSpec == "" {
		syncSpec = "0 6 * * *"
	}
	if _, err := c.AddFunc(syncSpec, func() {
		if jobRegistry == nil {
			return
		}
		_, err := jobRegistry.Start(context.Background(), models.JobTypeFullSync, "all", "", nil, nil,
			func(ctx context.Context, job *models.Job) (int, string, error) {
				stats, err := workflow.FullSync(ctx, nil, nil)
				if err != nil {
					return 0, "", err
				}
				return int(stats.RowsInserted), stats.Description(), nil
			})
		if err != nil && !errors.Is(err, utils.ErrorJobAlreadyRunning) {
			config.LogError(logger, "server.go", "startCronSchedules", "scheduled full sync", syncSpec, err)
		}
	}); err != nil {
		config.LogError(logger, "server.go", "startCronSchedules", "invalid SYNC_CRON_SPEC", syncSpec, err)
	}

	holidaySpec := strings.TrimSpace(os.Getenv("HOLIDAY_REFRESH_CRON_SPEC"))
	if holidaySpec == "" {
		holidaySpec = "0 5 * * 1"
	}
	if _, err := c.AddFunc(holidaySpec, func() {
		if jobRegistry == nil {
			return
		}
		_, err := jobRegistry.Start(context.Background(), models.JobTypeHolidaySync, "holiday", "", nil, nil,
			func(ctx context.Context, job *models.Job) (int, string, error) {
				upserted, err := holidaysync.Refresh(ctx)
				if err != nil {
					return 0, "", err
				}
				return upserted, fmt.Sprintf("%d holidays upserted", upserted), nil
			})
		if err != nil && !errors.Is(err, utils.ErrorJobAlreadyRunning) {
			config.LogError(logger, "server.go", "startCronSchedules", "scheduled holiday refresh", holidaySpec, err)
		}
	}); err != nil {
		config.LogError(logger, "server.go", "startCronSchedules", "invalid HOLIDAY_REFRESH_CRON_SPEC", holidaySpec, err)
	}

	c.Start()
	logger.WithFields(logrus.Fields{
		"field":        "cron",
		"sync_spec":    syncSpec,
		"holiday_spec": holidaySpec,
	}).Info("schedules started")
	return c
}

func main() {
	port := os.Getenv("API_PORT")
	if port == "" {
		// Cloud Run standard env var.
		port = os.Getenv("PORT")
	}
	if port == "" {
		port = defaultPort
	}

	logger := config.GetLogger()

	// Shutdown coordination.
	// Cloud Run sends SIGTERM on revision shutdown; handle it for graceful drain.
	sigCtx, stopSignals := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stopSignals()

	// Start the HTTP server ASAP so Cloud Run considers the revision healthy.
	// Until DB/Redis are ready, we return 503 for app endpoints.
	r := gin.New()
	// Correlation IDs: generate once per request and attach to context.
	r.Use(func(c *gin.Context) {
		cid := c.GetHeader("x-correlation-id")
		if cid == "" {
			cid = uuid.NewString()
		}
		c.Request = c.Request.WithContext(utils.SetCorrelationIdInContext(c.Request.Context(), cid))
		c.Next()
	})
	r.Use(func(c *gin.Context) {
		// Always allow Cloud Run startup probe.
		if c.Request.URL.Path == "/healthz" {
			c.Status(http.StatusNoContent)
			c.Abort()
			return
		}
		// Gate critical endpoints on dependency readiness.
		if config.GetDB() == nil || config.GetRedisDB() == nil {
			c.AbortWithStatus(http.StatusServiceUnavailable)
			return
		}
		c.Next()
	})

	r.GET("/healthz", func(c *gin.Context) { c.Status(http.StatusNoContent) })

	corsConfig := cors.DefaultConfig()
	// Production-safe CORS:
	// - In production, require explicit allowlist via CORS_ALLOWED_ORIGINS (comma-separated).
	// - In non-production, allow all (developer convenience).
	allowedOrigins := strings.TrimSpace(os.Getenv("CORS_ALLOWED_ORIGINS"))
	if strings.EqualFold(strings.TrimSpace(os.Getenv("GO_ENV")), "production") {
		if allowedOrigins == "" {
			// Safer default: deny all if not configured in production.
			corsConfig.AllowOrigins = []string{}
		} else {
			corsConfig.AllowOrigins = splitAndTrim(allowedOrigins)
		}
	} else {
		corsConfig.AllowAllOrigins = true
	}
	corsConfig.AddAllowMethods("GET", "POST", "PUT", "DELETE", "OPTIONS")
	corsConfig.AddAllowHeaders("token", "Origin", "Content-Type", "Authorization")
	corsConfig.AddExposeHeaders("Content-Length", "Content-Disposition")
	corsConfig.AllowCredentials = true

	r.Use(cors.New(corsConfig))

	// Optional rate limiting (recommended for production).
	// Env:
	// - RATE_LIMIT_ENABLED=true
	// - RATE_LIMIT_WINDOW_SECONDS=60
	// - RATE_LIMIT_MAX_REQUESTS=600
	if strings.EqualFold(strings.TrimSpace(os.Getenv("RATE_LIMIT_ENABLED")), "true") {
		client := getRedisClient(os.Getenv("REDIS_ADDRESS"))
		limit := int64(600)
		if v := strings.TrimSpace(os.Getenv("RATE_LIMIT_MAX_REQUESTS")); v != "" {
			if n, err := strconv.ParseInt(v, 10, 64); err == nil && n > 0 {
				limit = n
			}
		}
		windowSec := int64(60)
		if v := strings.TrimSpace(os.Getenv("RATE_LIMIT_WINDOW_SECONDS")); v != "" {
			if n, err := strconv.ParseInt(v, 10, 64); err == nil && n > 0 {
				windowSec = n
			}
		}
		rateLimiter := NewRateLimiter(client, limit, time.Duration(windowSec)*time.Second)
		r.Use(rateLimiter.RateLimitMiddleware)
	}

	r.Use(customErrorLogger(logger))
	r.Use(gin.Recovery())

	// Sync pipeline.
	r.POST("/api/sync/full", syncFullHandler())
	r.POST("/api/sync/platform", syncPlatformHandler())
	r.POST("/api/parse", parseInboxHandler())
	r.GET("/api/jobs/:run_id", jobGetHandler())
	r.GET("/api/jobs", jobListHandler())

	// Ledger reads (build on first read).
	r.GET("/api/deposit/:entity/:year/:month", depositMonthHandler())
	r.GET("/api/merchant-ledger/:entity/:year/:month", merchantLedgerMonthHandler())
	r.GET("/api/agent-ledger/:entity/:year/:month", agentLedgerMonthHandler())
	r.GET("/api/variance/:year/:month", varianceMonthHandler())
	r.GET("/api/reconciliation/:year/:month", reconciliationMonthHandler())

	// Manual overrides; each save recomputes the derived columns.
	r.POST("/api/deposit/manual-input", manualInputHandler(workflow.LedgerKindDeposit))
	r.POST("/api/merchant-ledger/manual-input", manualInputHandler(workflow.LedgerKindMerchant))
	r.POST("/api/agent-ledger/manual-input", manualInputHandler(workflow.LedgerKindAgent))
	r.POST("/api/variance/manual-input", manualInputHandler(workflow.LedgerKindVariance))

	// Parameters and holiday feed.
	r.GET("/api/parameters", parametersGetHandler())
	r.POST("/api/parameters", parametersSaveHandler())
	r.POST("/api/holidays/refresh", holidayRefreshHandler())

	// Exports.
	r.GET("/api/export/:ledger/:entity/:year/:month", exportLedgerHandler())

	// Statement intake outside the inbox directory. Small files go
	// through multipart; large ones PUT to the bucket with a signed URL
	// and are pulled in by object key.
	r.POST("/internal/upload-statement", uploadStatementHandler())
	r.POST("/internal/upload-statement-url", uploadStatementURLHandler())
	r.POST("/internal/ingest-object", ingestObjectHandler())

	// Ops tooling: nudge the outbox dispatcher.
	r.POST("/internal/ops/outbox/retry", outboxRetryHandler())
	r.POST("/internal/ops/outbox/revert-dead", outboxRevertDeadHandler())

	r.NoRoute(customNotFoundHandler)

	// Start listening immediately (Cloud Run startup probe is TCP based).
	srv := &http.Server{
		Addr:    ":" + port,
		Handler: r,
	}
	serverErrCh := make(chan error, 1)
	go func() {
		// ListenAndServe returns http.ErrServerClosed on graceful shutdown.
		serverErrCh <- srv.ListenAndServe()
	}()

	// Connect dependencies after the port is open.
	config.ConnectDatabaseWithRetry()
	config.ConnectRedisWithRetry()

	// Now DB is ready; run migrations.
	db := config.GetDB()
	sqlDB, _ := db.DB()
	defer func() {
		if sqlDB != nil {
			_ = sqlDB.Close()
		}
	}()
	// IMPORTANT: AutoMigrate can run DDL that blocks tables and causes 504/502 timeouts.
	// Allow disabling migrations on startup (run them as a separate job instead).
	if !strings.EqualFold(strings.TrimSpace(os.Getenv("SKIP_MIGRATIONS")), "true") {
		models.MigrateTable()
	} else {
		logger.WithFields(logrus.Fields{"field": "migrations"}).Warn("SKIP_MIGRATIONS=true; skipping AutoMigrate on startup")
	}

	jobRegistry = workflow.NewJobRegistry(db, logger, config.GetRedisLock())

	// Start outbox dispatcher (publishes AFTER commit).
	dispatcherCtx, cancelDispatcher := context.WithCancel(context.Background())
	defer cancelDispatcher()
	if !config.OutboxDisabled() {
		go workflow.NewOutboxDispatcher(db, logger).Run(dispatcherCtx)
	} else {
		logger.WithFields(logrus.Fields{"field": "outbox"}).Warn("OUTBOX_DISABLED=true; events are not recorded or published")
	}

	cronRunner := startCronSchedules(logger)

	// Set the session isolation level to READ COMMITTED
	for attempt := 1; ; attempt++ {
		err := db.Exec("SET SESSION TRANSACTION ISOLATION LEVEL READ COMMITTED").Error
		if err == nil {
			break
		}
		sleep := time.Second * time.Duration(1<<min(attempt, 5))
		if sleep > 30*time.Second {
			sleep = 30 * time.Second
		}
		logger.WithFields(logrus.Fields{
			"field":   "database",
			"attempt": attempt,
		}).Warn("failed to set isolation level; retrying in " + sleep.String() + ": " + err.Error())
		time.Sleep(sleep)
	}

	logger.WithFields(logrus.Fields{
		"info": "Connection Established",
	}).Info("listening on :", port)

	// Block until shutdown or server error.
	select {
	case <-sigCtx.Done():
		// graceful shutdown below
	case err := <-serverErrCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.WithFields(logrus.Fields{"field": "http"}).Error("server stopped unexpectedly: " + err.Error())
		}
	}

	// Stop background workers first so they don't start new work while we're draining.
	cancelDispatcher()
	if cronRunner != nil {
		cronRunner.Stop()
	}

	// Drain HTTP requests.
	shutdownTimeout := 30 * time.Second
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.WithFields(logrus.Fields{"field": "http"}).Error("graceful shutdown failed: " + err.Error())
	}

	// Close Redis (best-effort).
	if rdb := config.GetRedisDB(); rdb != nil {
		_ = rdb.Close()
	}
}

// customErrorLogger is a custom Gin middleware that logs only errors
func customErrorLogger(logger *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		// Only log when there are errors
		if len(c.Errors) > 0 {
			logger.Error(c.Errors.String())
		}
	}
}

// Initialize a new RateLimiter instance.
func NewRateLimiter(client *redis.Client, limit int64, window time.Duration) *RateLimiter {
	return &RateLimiter{
		client: client,
		limit:  limit,
		window: window,
	}
}

// Middleware function to check rate limits.
func (rl *RateLimiter) RateLimitMiddleware(c *gin.Context) {
	// Get the IP address or user identifier from the request.
	key := c.ClientIP() // Assuming IP-based rate limiting

	// Check if the key exists in Redis.
	exists, err := rl.client.Exists(c.Request.Context(), key).Result()
	if err != nil {
		c.AbortWithError(http.StatusInternalServerError, err)
		return
	}

	// If the key doesn't exist, create it and set expiry.
	if exists == 0 {
		err := rl.client.Set(c.Request.Context(), key, 1, rl.window).Err()
		if err != nil {
			c.AbortWithError(http.StatusInternalServerError, err)
			return
		}
		c.Next()
		return
	}

	// If the key exists, get the current count.
	count, err := rl.client.Incr(c.Request.Context(), key).Result()
	if err != nil {
		c.AbortWithError(http.StatusInternalServerError, err)
		return
	}

	// If the count exceeds the limit, return an error response.
	if count > rl.limit {
		c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
			"error": fmt.Sprintf("Rate limit exceeded. Try again in %d seconds", int(rl.window.Seconds())),
		})
		return
	}

	c.Next()
}

func splitAndTrim(csv string) []string {
	if strings.TrimSpace(csv) == "" {
		return nil
	}
	parts := strings.Split(csv, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
