package checkout

import (
	"context"
	"time"

	"github.com/CODEDESTROYER009/The-Green-Shop/pkg/logging"
)

const reconcileBatch = 50

// Reconciler finishes checkouts whose finalization was interrupted or ran
// out of retries.
type Reconciler struct {
	wf       *Workflow
	interval time.Duration
	grace    time.Duration
	now      func() time.Time
}

func NewReconciler(wf *Workflow, interval, grace time.Duration) *Reconciler {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	return &Reconciler{wf: wf, interval: interval, grace: grace, now: time.Now}
}

// Run ticks until ctx is cancelled.
func (r *Reconciler) Run(ctx context.Context) {
	l := logging.FromContext(ctx).With("component", "reconciler")
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			n, err := r.ReconcileOnce(ctx)
			if err != nil {
				l.Error("reconcile_failed", "error", err)
				continue
			}
			if n > 0 {
				l.Info("reconcile_done", "finalized", n)
			}
		case <-ctx.Done():
			return
		}
	}
}

// ReconcileOnce resumes one batch of unfinished checkouts that have been
// idle longer than the grace period and reports how many got finalized.
func (r *Reconciler) ReconcileOnce(ctx context.Context) (int, error) {
	l := logging.FromContext(ctx).With("component", "reconciler")

	sagas, err := r.wf.Journal.ListUnfinished(ctx, r.now().Add(-r.grace), reconcileBatch)
	if err != nil {
		return 0, err
	}

	finalized := 0
	for _, s := range sagas {
		if ctx.Err() != nil {
			return finalized, ctx.Err()
		}
		rc, err := r.wf.Resume(ctx, s.OrderID)
		if err != nil {
			l.Warn("reconcile_order_pending", "order_id", s.OrderID, "state", s.State, "error", err)
			continue
		}
		if rc.Finalized {
			finalized++
			if r.wf.Metrics != nil {
				r.wf.Metrics.Reconciled()
			}
		}
	}
	return finalized, nil
}
