/**
 * @description
 * Scheduled reconciliation jobs: a ledger totals report and the re-reporting
 * of partially applied transfers. Repair itself is an operator action; the
 * jobs make sure torn transfers cannot go quiet.
 */
package app

import (
	"context"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/SamMDev/Console-Banking-App/internal/domain"
)

// TotalsReader reports the aggregate ledger state the sweep inspects.
type TotalsReader interface {
	LedgerTotals(ctx context.Context) (domain.Money, int64, error)
}

// Jobs contains the logic for the scheduled reconciliation tasks.
type Jobs struct {
	totals  TotalsReader
	journal *FailureJournal
	logger  *slog.Logger
	timeout time.Duration
}

// NewJobs creates a new Jobs runner.
func NewJobs(totals TotalsReader, journal *FailureJournal, logger *slog.Logger) *Jobs {
	return &Jobs{
		totals:  totals,
		journal: journal,
		logger:  logger,
		timeout: 30 * time.Second,
	}
}

// ReportLedgerTotals logs the current balances sum and ledger size. The
// balances of a closed set of accounts are invariant under transfers, so an
// unexpected move in the total between sweeps points at a torn transfer.
func (j *Jobs) ReportLedgerTotals() {
	ctx, cancel := context.WithTimeout(context.Background(), j.timeout)
	defer cancel()

	total, payments, err := j.totals.LedgerTotals(ctx)
	if err != nil {
		j.logger.Error("ledger totals sweep failed", "err", err)
		return
	}
	j.logger.Info("ledger totals", "balances_total", total.String(), "payment_count", payments)
}

// ReportPartialFailures re-logs every journaled partial failure until an
// operator resolves it.
func (j *Jobs) ReportPartialFailures() {
	entries := j.journal.Snapshot()
	if len(entries) == 0 {
		return
	}
	for _, e := range entries {
		j.logger.Error("unresolved partial transfer failure",
			"sender_id", e.SenderID,
			"receiver_id", e.ReceiverID,
			"amount", e.Amount.String(),
			"occurred_at", e.OccurredAt,
			"reason", e.Reason,
		)
	}
	j.logger.Warn("partial failures awaiting reconciliation", "count", len(entries))
}

// Scheduler manages the reconciliation cron jobs.
type Scheduler struct {
	cron     *cron.Cron
	jobs     *Jobs
	logger   *slog.Logger
	schedule string
}

// NewScheduler creates a new scheduler instance. schedule is a cron
// expression shared by both sweeps.
func NewScheduler(jobs *Jobs, logger *slog.Logger, schedule string) *Scheduler {
	cronLogger := cron.PrintfLogger(slog.NewLogLogger(logger.Handler(), slog.LevelInfo))
	c := cron.New(cron.WithChain(cron.Recover(cronLogger)))

	return &Scheduler{
		cron:     c,
		jobs:     jobs,
		logger:   logger,
		schedule: schedule,
	}
}

// Start registers the jobs and starts the cron scheduler.
func (s *Scheduler) Start() {
	if _, err := s.cron.AddFunc(s.schedule, s.jobs.ReportLedgerTotals); err != nil {
		s.logger.Error("failed to schedule ledger totals sweep", "err", err)
	} else {
		s.logger.Info("scheduled ledger totals sweep", "schedule", s.schedule)
	}

	if _, err := s.cron.AddFunc(s.schedule, s.jobs.ReportPartialFailures); err != nil {
		s.logger.Error("failed to schedule partial failure sweep", "err", err)
	} else {
		s.logger.Info("scheduled partial failure sweep", "schedule", s.schedule)
	}

	s.cron.Start()
}

// Stop gracefully stops the cron scheduler.
func (s *Scheduler) Stop() context.Context {
	return s.cron.Stop()
}
