package checkout

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"

	"github.com/CODEDESTROYER009/The-Green-Shop/internal/models"
	"github.com/CODEDESTROYER009/The-Green-Shop/internal/repo"
	"github.com/CODEDESTROYER009/The-Green-Shop/pkg/logging"
)

const publishTimeout = 5 * time.Second

// finalize drives the journal from its current state to finalized. Every
// step is idempotent and advances the journal only after it succeeded, so
// running finalize again for the same order is always safe. When another
// worker moves the journal first, finalize reloads it and continues from
// there; only the worker that reaches finalized publishes the order.
func (w *Workflow) finalize(ctx context.Context, order *models.Order, saga *models.CheckoutSaga, lines []Line) (*Receipt, error) {
	fctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), w.cfg.FinalizeTimeout)
	defer cancel()

	l := logging.FromContext(ctx).With("component", "checkout", "order_id", order.ID, "order_number", order.OrderNumber)

	state := saga.State
	attempts := saga.Attempts

	for {
		var err error
		switch state {
		case models.SagaLinesPending:
			err = w.retry(fctx, l, StepOrderLines, &attempts, func() error {
				// Fresh rows each attempt so only (order_id, product_id) can conflict.
				if _, err := w.Orders.InsertOrderLines(fctx, order.ID, orderItems(lines)); err != nil {
					return err
				}
				return w.advance(fctx, order.ID, state, models.SagaStatsPending, attempts)
			})
			if err == nil {
				state = models.SagaStatsPending
				continue
			}
			if !errors.Is(err, repo.ErrStale) {
				w.park(fctx, l, order.ID, state, state, attempts, err)
				w.record("partial")
				return nil, partial(order, StepOrderLines, ErrOrderLinePersist, err)
			}

		case models.SagaStatsPending:
			delta := models.StatsDelta{
				OrderID:        order.ID,
				Token:          saga.Token,
				Orders:         1,
				GreenPoints:    order.GreenPointsEarned,
				CO2Saved:       order.CO2Saved,
				PlasticReduced: order.PlasticSaved,
				WaterSaved:     order.WaterSaved,
			}
			err = w.retry(fctx, l, StepStats, &attempts, func() error {
				if _, err := w.Impact.GetStats(fctx, order.UserID); err != nil {
					return permanentIfMissing(err)
				}
				if _, err := w.Impact.AtomicIncrement(fctx, order.UserID, delta); err != nil {
					return permanentIfMissing(err)
				}
				return w.advance(fctx, order.ID, state, models.SagaCartPending, attempts)
			})
			if err == nil {
				state = models.SagaCartPending
				continue
			}
			if errors.Is(err, ErrMissingAccumulator) {
				l.Error("checkout_missing_accumulator", "user_id", order.UserID)
				w.park(fctx, l, order.ID, state, models.SagaFailed, attempts, err)
				w.record("missing_accumulator")
				return nil, &PartialCheckoutError{OrderID: order.ID, OrderNumber: order.OrderNumber, Step: StepStats, Err: ErrMissingAccumulator}
			}
			if !errors.Is(err, repo.ErrStale) {
				w.park(fctx, l, order.ID, state, state, attempts, err)
				w.record("partial")
				return nil, partial(order, StepStats, ErrAccumulatorUpdate, err)
			}

		case models.SagaCartPending:
			ids := productIDs(lines)
			err = w.retry(fctx, l, StepCart, &attempts, func() error {
				if _, err := w.Cart.ClearByUser(fctx, order.UserID, ids); err != nil {
					return err
				}
				return w.advance(fctx, order.ID, state, models.SagaFinalized, attempts)
			})
			if err == nil {
				l.Info("checkout_finalized", "attempt", attempts)
				w.publish(fctx, l, order)
				w.record("completed")
				return receipt(order, true), nil
			}
			if !errors.Is(err, repo.ErrStale) {
				// The order and rewards stand; only the cart is stale.
				l.Warn("checkout_cart_clear_deferred", "attempt", attempts, "error", fmt.Errorf("%w: %w", ErrCartClear, err))
				w.park(fctx, l, order.ID, state, state, attempts, err)
				w.record("cart_pending")
				return receipt(order, false), nil
			}

		case models.SagaFinalized:
			return receipt(order, true), nil

		case models.SagaFailed:
			return nil, &PartialCheckoutError{OrderID: order.ID, OrderNumber: order.OrderNumber, Step: StepStats, Err: ErrMissingAccumulator}

		default:
			return nil, fmt.Errorf("order %s: unknown checkout state %q", order.ID, state)
		}

		// Another worker moved the journal; pick up where it is now.
		current, rerr := w.Journal.GetSaga(fctx, order.ID)
		if rerr != nil {
			return nil, fmt.Errorf("reload checkout journal %s: %w", order.ID, rerr)
		}
		l.Info("checkout_step_superseded", "from", state, "now", current.State)
		state, attempts = current.State, current.Attempts
	}
}

// advance is the journal write at the end of a step. A stale journal is not
// retried.
func (w *Workflow) advance(ctx context.Context, orderID uuid.UUID, from, to models.SagaState, attempts int) error {
	err := w.Journal.Advance(ctx, orderID, from, to, attempts, "")
	if errors.Is(err, repo.ErrStale) {
		return backoff.Permanent(err)
	}
	return err
}

func (w *Workflow) retry(ctx context.Context, l *slog.Logger, step string, attempts *int, op func() error) error {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = w.cfg.RetryInterval
	b.MaxElapsedTime = 0
	policy := backoff.WithContext(backoff.WithMaxRetries(b, uint64(w.cfg.RetryAttempts-1)), ctx)

	counted := func() error {
		err := op()
		if err != nil && !errors.Is(err, repo.ErrStale) {
			*attempts++
			w.stepFailed(step)
		}
		return err
	}

	err := backoff.RetryNotify(counted, policy, func(err error, next time.Duration) {
		l.Warn("checkout_step_retry", "step", step, "attempt", *attempts, "next_in", next.String(), "error", err)
	})
	if err == nil {
		l.Info("checkout_step_done", "step", step, "attempt", *attempts)
	}
	return err
}

// park records where the order stopped so the reconciler can pick it up.
func (w *Workflow) park(ctx context.Context, l *slog.Logger, orderID uuid.UUID, from, to models.SagaState, attempts int, cause error) {
	err := w.Journal.Advance(ctx, orderID, from, to, attempts, cause.Error())
	switch {
	case errors.Is(err, repo.ErrStale):
		l.Warn("checkout_journal_moved_on", "state", from)
	case err != nil:
		l.Error("checkout_journal_update_failed", "state", to, "error", err)
	}
}

func (w *Workflow) publish(ctx context.Context, l *slog.Logger, order *models.Order) {
	if w.Events == nil {
		return
	}
	pctx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()

	ev := OrderPlaced{
		OrderID:           order.ID,
		OrderNumber:       order.OrderNumber,
		UserID:            order.UserID,
		Total:             order.Total,
		GreenPointsEarned: order.GreenPointsEarned,
		CO2Saved:          order.CO2Saved,
		PlacedAt:          order.CreatedAt,
	}
	if err := w.Events.PublishEvent(pctx, EventOrderPlaced, order.ID.String(), ev); err != nil {
		l.Warn("order_event_publish_failed", "error", err)
	}
}

func permanentIfMissing(err error) error {
	if errors.Is(err, repo.ErrNotFound) {
		return backoff.Permanent(ErrMissingAccumulator)
	}
	return err
}

func partial(order *models.Order, step string, sentinel, cause error) *PartialCheckoutError {
	return &PartialCheckoutError{
		OrderID:     order.ID,
		OrderNumber: order.OrderNumber,
		Step:        step,
		Err:         fmt.Errorf("%w: %w", sentinel, cause),
	}
}

func receipt(order *models.Order, finalized bool) *Receipt {
	return &Receipt{
		OrderID:           order.ID,
		OrderNumber:       order.OrderNumber,
		Total:             order.Total,
		GreenPointsEarned: order.GreenPointsEarned,
		CO2Saved:          order.CO2Saved,
		PlasticSaved:      order.PlasticSaved,
		WaterSaved:        order.WaterSaved,
		Finalized:         finalized,
	}
}

func orderItems(lines []Line) []models.OrderItem {
	out := make([]models.OrderItem, 0, len(lines))
	for _, l := range lines {
		out = append(out, models.OrderItem{
			ProductID: l.ProductID,
			Quantity:  l.Quantity,
			Price:     l.UnitPrice,
		})
	}
	return out
}

func productIDs(lines []Line) []uuid.UUID {
	out := make([]uuid.UUID, 0, len(lines))
	for _, l := range lines {
		out = append(out, l.ProductID)
	}
	return out
}
