package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/mamadbah2/meditrack/internal/config"
	"github.com/mamadbah2/meditrack/internal/service/ledger"
	"github.com/mamadbah2/meditrack/internal/service/reporting"
)

const (
	jobTimeout      = 2 * time.Minute
	reconcileBatch  = 50
	snapshotJobName = "snapshots"
)

// Reporter rebuilds the usage views.
type Reporter interface {
	RefreshSnapshots(ctx context.Context) (int, error)
	SyncSheet(ctx context.Context, writer reporting.SheetWriter, sheetRange string) error
}

// Reconciler retries ledger appends that did not confirm.
type Reconciler interface {
	Reconcile(ctx context.Context, limit int64) (ledger.ReconcileResult, error)
}

// Scheduler manages scheduled tasks.
type Scheduler struct {
	cron       *cron.Cron
	reporter   Reporter
	reconciler Reconciler
	sheet      reporting.SheetWriter
	cfg        config.Config
	logger     *zap.Logger
}

// NewScheduler creates a new scheduler instance. reconciler and sheet are
// optional; their jobs are skipped when nil.
func NewScheduler(cfg config.Config, loc *time.Location, reporter Reporter, reconciler Reconciler, sheet reporting.SheetWriter, logger *zap.Logger) *Scheduler {
	if logger == nil {
		logger = zap.NewNop()
	}
	if loc == nil {
		loc = time.Local
	}

	return &Scheduler{
		cron:       cron.New(cron.WithLocation(loc)),
		reporter:   reporter,
		reconciler: reconciler,
		sheet:      sheet,
		cfg:        cfg,
		logger:     logger,
	}
}

// Start registers the jobs and starts the cron loop.
func (s *Scheduler) Start() error {
	s.logger.Info("starting scheduler")

	if _, err := s.cron.AddFunc(s.cfg.Reporting.CronSchedule, s.refreshUsage); err != nil {
		return fmt.Errorf("schedule %s job %q: %w", snapshotJobName, s.cfg.Reporting.CronSchedule, err)
	}

	if s.reconciler != nil {
		if _, err := s.cron.AddFunc(s.cfg.Ledger.ReconcileSchedule, s.reconcileLedger); err != nil {
			return fmt.Errorf("schedule ledger reconciliation %q: %w", s.cfg.Ledger.ReconcileSchedule, err)
		}
	}

	s.cron.Start()
	return nil
}

// Stop stops the scheduler and waits for running jobs.
func (s *Scheduler) Stop() {
	s.logger.Info("stopping scheduler")
	<-s.cron.Stop().Done()
}

func (s *Scheduler) refreshUsage() {
	ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
	defer cancel()

	n, err := s.reporter.RefreshSnapshots(ctx)
	if err != nil {
		s.logger.Error("failed to refresh area snapshots", zap.Error(err))
		return
	}
	s.logger.Info("area snapshots job finished", zap.Int("areas", n))

	if s.sheet == nil {
		return
	}
	if err := s.reporter.SyncSheet(ctx, s.sheet, s.cfg.Sheets.Range); err != nil {
		s.logger.Error("failed to sync usage sheet", zap.Error(err))
	}
}

func (s *Scheduler) reconcileLedger() {
	ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
	defer cancel()

	if _, err := s.reconciler.Reconcile(ctx, reconcileBatch); err != nil {
		s.logger.Error("ledger reconciliation failed", zap.Error(err))
	}
}
