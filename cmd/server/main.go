package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/mamadbah2/meditrack/internal/config"
	"github.com/mamadbah2/meditrack/internal/repository"
	"github.com/mamadbah2/meditrack/internal/repository/memory"
	"github.com/mamadbah2/meditrack/internal/repository/mongodb"
	"github.com/mamadbah2/meditrack/internal/repository/sheets"
	"github.com/mamadbah2/meditrack/internal/scheduler"
	"github.com/mamadbah2/meditrack/internal/server/handlers"
	"github.com/mamadbah2/meditrack/internal/server/router"
	amusvc "github.com/mamadbah2/meditrack/internal/service/amu"
	animalsvc "github.com/mamadbah2/meditrack/internal/service/animals"
	authsvc "github.com/mamadbah2/meditrack/internal/service/auth"
	billingsvc "github.com/mamadbah2/meditrack/internal/service/billing"
	ledgersvc "github.com/mamadbah2/meditrack/internal/service/ledger"
	prescriptionsvc "github.com/mamadbah2/meditrack/internal/service/prescriptions"
	reportingsvc "github.com/mamadbah2/meditrack/internal/service/reporting"
	requestsvc "github.com/mamadbah2/meditrack/internal/service/requests"
	whatsappsvc "github.com/mamadbah2/meditrack/internal/service/whatsapp"
	"github.com/mamadbah2/meditrack/internal/storage/uploads"
	ledgerclient "github.com/mamadbah2/meditrack/pkg/clients/ledger"
	whatsappclient "github.com/mamadbah2/meditrack/pkg/clients/whatsapp"
	"github.com/mamadbah2/meditrack/pkg/logger"
)

func main() {
	cfg, err := config.Load("")
	if err != nil {
		panic(err)
	}

	baseLogger := logger.Must(logger.New(cfg.Log.Level))
	defer func() { _ = baseLogger.Sync() }()

	zap.ReplaceGlobals(baseLogger)

	loc, err := cfg.Reporting.Location()
	if err != nil {
		baseLogger.Fatal("invalid timezone", zap.Error(err))
	}

	var (
		store  repository.Store
		pinger handlers.Pinger
	)
	switch cfg.Storage.Driver {
	case config.StorageMemory:
		baseLogger.Warn("using in-memory storage, data is lost on restart")
		store = memory.NewStore()
	default:
		connectCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		mongoRepo, err := mongodb.NewMongoDBRepository(connectCtx, cfg.MongoDB.URI, cfg.MongoDB.DBName)
		if err != nil {
			cancel()
			baseLogger.Fatal("failed to init mongodb repository", zap.Error(err))
		}
		if err := mongoRepo.EnsureIndexes(connectCtx); err != nil {
			cancel()
			baseLogger.Fatal("failed to create mongodb indexes", zap.Error(err))
		}
		cancel()
		defer func() {
			if err := mongoRepo.Close(context.Background()); err != nil {
				baseLogger.Error("failed to close mongodb connection", zap.Error(err))
			}
		}()
		store = mongoRepo.Store()
		pinger = mongoRepo
	}

	photos, err := uploads.NewStore(nil, cfg.Uploads.Dir, cfg.Uploads.MaxBytes, baseLogger.Named("storage.uploads"))
	if err != nil {
		baseLogger.Fatal("failed to init upload storage", zap.Error(err))
	}

	var ledgerClient ledgerclient.Client
	if cfg.Ledger.Enabled() {
		ledgerClient = ledgerclient.NewClient(cfg.Ledger)
		baseLogger.Info("ledger notarization enabled", zap.String("base_url", cfg.Ledger.BaseURL))
	} else {
		baseLogger.Warn("LEDGER_BASE_URL missing, prescriptions will not be notarized")
	}

	var whatsClient whatsappclient.Client
	if cfg.WhatsApp.Enabled() {
		whatsClient = whatsappclient.NewClient(cfg.WhatsApp)
		baseLogger.Info("whatsapp notifications enabled")
	} else {
		baseLogger.Warn("whatsapp credentials missing, farmer notifications disabled")
	}

	authService := authsvc.NewService(store.Users, cfg.Auth.JWTSecret, cfg.Auth.TokenTTL, baseLogger.Named("svc.auth"))
	animalService := animalsvc.NewService(store, baseLogger.Named("svc.animals"))
	requestService := requestsvc.NewService(store, photos, baseLogger.Named("svc.requests"))
	ledgerService := ledgersvc.NewService(ledgerClient, store.Prescriptions, cfg.Ledger.Timeout, baseLogger.Named("svc.ledger"))
	notifier := whatsappsvc.NewService(whatsClient, loc, baseLogger.Named("svc.whatsapp"))
	prescriptionService := prescriptionsvc.NewService(store, requestService, ledgerService, notifier, loc, baseLogger.Named("svc.prescriptions"))
	billingService := billingsvc.NewService(store, baseLogger.Named("svc.billing"))
	reportingService := reportingsvc.NewService(store, baseLogger.Named("svc.reporting"))
	amuService := amusvc.NewService(store.Records, ledgerService, baseLogger.Named("svc.amu"))

	engine := router.New(router.Handlers{
		Auth:          handlers.NewAuthHandler(authService, baseLogger.Named("handlers.auth")),
		Animals:       handlers.NewAnimalHandler(animalService, baseLogger.Named("handlers.animals")),
		Requests:      handlers.NewRequestHandler(requestService, baseLogger.Named("handlers.requests")),
		Prescriptions: handlers.NewPrescriptionHandler(prescriptionService, baseLogger.Named("handlers.prescriptions")),
		Billing:       handlers.NewBillingHandler(billingService, baseLogger.Named("handlers.billing")),
		Reporting:     handlers.NewReportingHandler(reportingService, baseLogger.Named("handlers.reporting")),
		AMU:           handlers.NewAMUHandler(amuService, baseLogger.Named("handlers.amu")),
		Health:        handlers.NewHealthHandler(pinger, baseLogger.Named("handlers.health")),
	}, router.Options{
		Tokens:         authService,
		CORSOrigins:    cfg.Server.CORSOrigins,
		Uploads:        photos.HTTPFileSystem(),
		MaxUploadBytes: cfg.Uploads.MaxBytes,
	}, baseLogger.Named("router"))

	var reconciler scheduler.Reconciler
	if cfg.Ledger.Enabled() {
		reconciler = ledgerService
	}

	var sheetWriter reportingsvc.SheetWriter
	if cfg.Sheets.Enabled() {
		sheetsRepo, err := sheets.NewGoogleSheetRepository(context.Background(), cfg.Sheets, baseLogger.Named("repo.sheets"))
		if err != nil {
			baseLogger.Error("failed to init sheets repository, usage sheet sync disabled", zap.Error(err))
		} else {
			sheetWriter = sheetsRepo
		}
	}

	sched := scheduler.NewScheduler(*cfg, loc, reportingService, reconciler, sheetWriter, baseLogger.Named("scheduler"))
	if err := sched.Start(); err != nil {
		baseLogger.Fatal("failed to start scheduler", zap.Error(err))
	}
	defer sched.Stop()

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      engine,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		baseLogger.Info("server starting", zap.String("port", cfg.Server.Port), zap.String("storage", cfg.Storage.Driver))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			baseLogger.Fatal("http server crashed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	baseLogger.Info("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		baseLogger.Error("graceful shutdown failed", zap.Error(err))
	}
}
