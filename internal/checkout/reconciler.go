package checkout

import (
	"context"
	"time"

	"sathi/internal/domain/paymentsrepo"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

type reverifier interface {
	Reverify(ctx context.Context, txID string) (*Settlement, error)
	Expire(ctx context.Context, txID string) (*Settlement, error)
}

type tokenPruner interface {
	PruneStaleTokens(ctx context.Context, olderThan time.Duration) error
}

// ReconcileResult counts what one pass did.
type ReconcileResult struct {
	Checked   int
	Completed int
	Failed    int
	Pending   int
	Expired   int
	Errors    int
}

// Reconciler rechecks payments whose browser never came back from the
// gateway. Settlement goes through Reverify so the usual CAS applies.
type Reconciler struct {
	cron     *cron.Cron
	payments paymentsrepo.Store
	service  reverifier
	tokens   tokenPruner
	logger   *zap.SugaredLogger

	schedule string
	minAge   time.Duration
	maxAge   time.Duration
	batch    int
	now      func() time.Time
}

// ReconcilerConfig controls the pass. Payments younger than MinAge are left
// to their callback; payments still pending after MaxAge are failed as
// expired.
type ReconcilerConfig struct {
	Schedule string
	MinAge   time.Duration
	MaxAge   time.Duration
	Batch    int
}

func NewReconciler(ps paymentsrepo.Store, svc reverifier, tokens tokenPruner, cfg ReconcilerConfig, logger *zap.SugaredLogger) *Reconciler {
	if cfg.Schedule == "" {
		cfg.Schedule = "@every 10m"
	}
	if cfg.MinAge <= 0 {
		cfg.MinAge = 15 * time.Minute
	}
	if cfg.MaxAge <= cfg.MinAge {
		cfg.MaxAge = 72 * time.Hour
	}
	if cfg.Batch <= 0 {
		cfg.Batch = 50
	}
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &Reconciler{
		cron:     cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger))),
		payments: ps,
		service:  svc,
		tokens:   tokens,
		logger:   logger,
		schedule: cfg.Schedule,
		minAge:   cfg.MinAge,
		maxAge:   cfg.MaxAge,
		batch:    cfg.Batch,
		now:      time.Now,
	}
}

// Start registers the jobs and starts the scheduler.
func (r *Reconciler) Start() error {
	if _, err := r.cron.AddFunc(r.schedule, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
		defer cancel()
		res := r.RunOnce(ctx)
		if res.Checked > 0 {
			r.logger.Infow("reconciled pending payments",
				"checked", res.Checked, "completed", res.Completed, "failed", res.Failed,
				"pending", res.Pending, "expired", res.Expired, "errors", res.Errors)
		}
	}); err != nil {
		return err
	}

	if r.tokens != nil {
		if _, err := r.cron.AddFunc("@daily", func() {
			ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
			defer cancel()
			if err := r.tokens.PruneStaleTokens(ctx, 60*24*time.Hour); err != nil {
				r.logger.Errorw("prune stale push tokens", "err", err.Error())
			}
		}); err != nil {
			return err
		}
	}

	r.cron.Start()
	r.logger.Infow("reconciler started", "schedule", r.schedule, "min_age", r.minAge.String(), "max_age", r.maxAge.String())
	return nil
}

// Stop waits for a running pass to finish or ctx to expire.
func (r *Reconciler) Stop(ctx context.Context) {
	done := r.cron.Stop()
	select {
	case <-done.Done():
	case <-ctx.Done():
	}
}

// RunOnce rechecks one batch of stale pending payments, least recently
// checked first. Every row it looks at is marked checked so the next pass
// moves on to others.
func (r *Reconciler) RunOnce(ctx context.Context) ReconcileResult {
	var res ReconcileResult

	now := r.now()
	stale, err := r.payments.ListStalePending(ctx, now.Add(-r.minAge), r.batch)
	if err != nil {
		r.logger.Errorw("list stale payments", "err", err.Error())
		res.Errors++
		return res
	}

	for _, p := range stale {
		if ctx.Err() != nil {
			break
		}
		res.Checked++

		st, err := r.service.Reverify(ctx, p.TransactionID)
		if merr := r.payments.MarkChecked(ctx, p.ID); merr != nil {
			r.logger.Warnw("mark payment checked", "transaction_id", p.TransactionID, "err", merr.Error())
		}
		if err != nil {
			r.logger.Warnw("reverify payment", "transaction_id", p.TransactionID, "err", err.Error())
			res.Errors++
			continue
		}

		// rows the gateway could not answer for are never expired
		if st.Outcome == OutcomePending && st.Reason != ReasonProviderError && st.Reason != ReasonInProgress &&
			p.CreatedAt.Before(now.Add(-r.maxAge)) {
			st, err = r.service.Expire(ctx, p.TransactionID)
			if err != nil {
				r.logger.Warnw("expire payment", "transaction_id", p.TransactionID, "err", err.Error())
				res.Errors++
				continue
			}
			if st.Changed {
				res.Expired++
				continue
			}
		}

		switch st.Outcome {
		case OutcomeCompleted:
			res.Completed++
		case OutcomeFailed:
			res.Failed++
		default:
			res.Pending++
		}
	}
	return res
}
