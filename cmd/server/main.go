package main

import (
	"fmt"
	"net/http"
	"os"

	"finetract/internal/alerts"
	"finetract/internal/config"
	"finetract/internal/database"
	"finetract/internal/feed"
	"finetract/internal/handlers"
	"finetract/internal/ingest"
	"finetract/internal/jobs"
	"finetract/internal/ledger"
	"finetract/internal/logger"
	"finetract/internal/parser"
	"finetract/internal/recurring"
	"finetract/internal/version"
)

func main() {
	// Handle --version flag
	if len(os.Args) > 1 && (os.Args[1] == "--version" || os.Args[1] == "-v") {
		fmt.Printf("Finetract %s (built %s, commit %s)\n",
			version.Version, version.BuildTime, version.GitCommit)
		os.Exit(0)
	}

	// Initialize logger first
	logger.Init()
	log := logger.Default()

	cfg := config.Load()

	// Open database
	db, err := database.Open(cfg.DBPath)
	if err != nil {
		log.Error("database_open_failed", "path", cfg.DBPath, "error", err.Error())
		os.Exit(1)
	}
	defer db.Close()

	// Initialize schema
	if err := db.Init(); err != nil {
		log.Error("database_init_failed", "error", err.Error())
		os.Exit(1)
	}

	// Live event feed for connected UIs; alert notifications ride it too.
	hub := feed.NewHub(log)
	hub.Start()

	led := ledger.New(db, ledger.Options{
		DebounceWindow:    cfg.DebounceWindow,
		DefaultDailyLimit: cfg.DefaultDailyLimit,
	})

	notifier := alerts.NewNotifier(db, hub, log)

	detector := recurring.NewDetector(db, recurring.Config{
		LookbackDays:    cfg.RecurrenceLookbackDays,
		AmountTolerance: cfg.RecurrenceAmountTolerance,
		DayTolerance:    cfg.RecurrenceDayTolerance,
		MinMatches:      cfg.RecurrenceMinMatches,
	})

	// Initialize and start job worker
	worker := jobs.NewWorker(db, log, cfg.WorkerPollInterval)
	worker.Register(jobs.JobTypeDetectRecurring, jobs.DetectRecurringHandler(detector, notifier))
	worker.Start()
	defer worker.Stop()

	ing := ingest.NewService(db, parser.NewNotificationParser(), led, notifier, hub, log)

	// Initialize handlers
	h := handlers.New(db, led, ing, hub, cfg.RecurrenceLookbackDays)

	// Setup routes
	mux := http.NewServeMux()

	// Ingest
	mux.HandleFunc("POST /api/notifications", h.NotificationsCreate)

	// Summary and history
	mux.HandleFunc("GET /api/today", h.Today)
	mux.HandleFunc("GET /api/transactions", h.TransactionsList)
	mux.HandleFunc("DELETE /api/transactions", h.TransactionsClear)

	// Settings
	mux.HandleFunc("GET /api/settings/limit", h.LimitGet)
	mux.HandleFunc("PUT /api/settings/limit", h.LimitPut)
	mux.HandleFunc("GET /api/settings/large-payment-threshold", h.ThresholdGet)
	mux.HandleFunc("PUT /api/settings/large-payment-threshold", h.ThresholdPut)

	// Jobs API
	mux.HandleFunc("GET /api/jobs/{id}", h.JobStatus)

	// Version API
	mux.HandleFunc("GET /api/version", h.Version)

	// Live feed
	mux.HandleFunc("GET /ws", h.Feed)

	handler := logger.HTTPMiddleware(mux)

	log.Info("server_starting", "port", cfg.Port, "address", "http://localhost:"+cfg.Port, "version", version.Version)
	if err := http.ListenAndServe(":"+cfg.Port, handler); err != nil {
		log.Error("server_failed", "error", err.Error())
		os.Exit(1)
	}
}
