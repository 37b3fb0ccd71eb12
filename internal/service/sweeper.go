package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/AdamBeresnev/cue-bracket/internal/bracket"
	"github.com/AdamBeresnev/cue-bracket/internal/metrics"
	"github.com/AdamBeresnev/cue-bracket/internal/store"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

const (
	sweepExpire      = "expire"
	sweepAutoConfirm = "auto_confirm"
	sweepRemind      = "remind"
)

// Sweeper drives the deadline based transitions: expiring unplayed matches,
// auto-confirming unanswered results and sending play reminders.
type Sweeper struct {
	matches      *MatchService
	store        *store.MatchStore
	clock        bracket.Clock
	metrics      *metrics.Metrics
	logger       *slog.Logger
	interval     time.Duration
	reminderLead time.Duration
}

func NewSweeper(matches *MatchService, deps Deps, interval, reminderLead time.Duration) *Sweeper {
	deps = deps.withDefaults()
	return &Sweeper{
		matches:      matches,
		store:        deps.Matches,
		clock:        deps.Clock,
		metrics:      deps.Metrics,
		logger:       deps.Logger.With("component", "sweeper"),
		interval:     interval,
		reminderLead: reminderLead,
	}
}

type SweepReport struct {
	Expired       int
	AutoConfirmed int
	Reminded      int
	Skipped       int
	Failed        int
}

// Run sweeps on every tick until ctx is done.
func (s *Sweeper) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			report, err := s.SweepOnce(ctx)
			if err != nil {
				s.logger.ErrorContext(ctx, "sweep failed", "error", err)
				continue
			}
			if report != (SweepReport{}) {
				s.logger.InfoContext(ctx, "sweep done",
					"expired", report.Expired,
					"auto_confirmed", report.AutoConfirmed,
					"reminded", report.Reminded,
					"skipped", report.Skipped,
					"failed", report.Failed,
				)
			}
		}
	}
}

type passResult struct {
	done, skipped, failed int
}

// SweepOnce runs the three passes concurrently. Each match is handled in its
// own transaction and a failing match never stops the rest of the batch.
func (s *Sweeper) SweepOnce(ctx context.Context) (SweepReport, error) {
	now := s.clock.Now()
	var expired, confirmed, reminded passResult

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		expired, err = s.pass(gctx, sweepExpire, func(ctx context.Context) ([]bracket.Match, error) {
			return s.store.GetExpiringMatches(ctx, now)
		}, s.matches.Expire)
		return err
	})
	g.Go(func() error {
		var err error
		confirmed, err = s.pass(gctx, sweepAutoConfirm, func(ctx context.Context) ([]bracket.Match, error) {
			return s.store.GetOverdueConfirmations(ctx, now)
		}, s.matches.AutoConfirm)
		return err
	})
	g.Go(func() error {
		var err error
		reminded, err = s.pass(gctx, sweepRemind, func(ctx context.Context) ([]bracket.Match, error) {
			return s.store.GetRemindableMatches(ctx, now, s.reminderLead)
		}, s.matches.SendReminder)
		return err
	})

	err := g.Wait()
	return SweepReport{
		Expired:       expired.done,
		AutoConfirmed: confirmed.done,
		Reminded:      reminded.done,
		Skipped:       expired.skipped + confirmed.skipped + reminded.skipped,
		Failed:        expired.failed + confirmed.failed + reminded.failed,
	}, err
}

// pass runs one sweep over the matches load returns. The queries already
// apply the deadlines, the transitions check them again under their own lock.
func (s *Sweeper) pass(ctx context.Context, name string, load func(context.Context) ([]bracket.Match, error), run func(context.Context, uuid.UUID) (bool, error)) (passResult, error) {
	start := time.Now()
	defer func() {
		s.metrics.ObserveSweepDuration(name, time.Since(start).Seconds())
	}()

	var res passResult
	candidates, err := load(ctx)
	if err != nil {
		return res, err
	}

	for i := range candidates {
		m := &candidates[i]
		if err := ctx.Err(); err != nil {
			return res, err
		}

		ok, err := run(ctx, m.ID)
		switch {
		case err != nil:
			res.failed++
			s.metrics.ObserveSweepItem(name, metrics.OutcomeError)
			s.logger.WarnContext(ctx, "sweep item failed", "sweep", name, "match_id", m.ID, "error", err)
		case ok:
			res.done++
			s.metrics.ObserveSweepItem(name, metrics.OutcomeOK)
		default:
			res.skipped++
			s.metrics.ObserveSweepItem(name, metrics.OutcomeSkipped)
		}
	}
	return res, nil
}
