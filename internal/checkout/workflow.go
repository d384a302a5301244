package checkout

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/CODEDESTROYER009/The-Green-Shop/internal/models"
	"github.com/CODEDESTROYER009/The-Green-Shop/internal/repo"
	"github.com/CODEDESTROYER009/The-Green-Shop/pkg/logging"
)

type CartStore interface {
	ListByUser(ctx context.Context, userID uuid.UUID) ([]models.CartItem, error)
	ClearByUser(ctx context.Context, userID uuid.UUID, productIDs []uuid.UUID) (int64, error)
}

type OrderLedger interface {
	InsertOrder(ctx context.Context, order *models.Order, saga *models.CheckoutSaga) error
	InsertOrderLines(ctx context.Context, orderID uuid.UUID, lines []models.OrderItem) (int64, error)
	GetOrder(ctx context.Context, orderID uuid.UUID) (*models.Order, error)
	FindOrderByToken(ctx context.Context, userID uuid.UUID, token string) (*models.Order, error)
}

type ImpactStore interface {
	GetStats(ctx context.Context, userID uuid.UUID) (*models.UserStats, error)
	AtomicIncrement(ctx context.Context, userID uuid.UUID, d models.StatsDelta) (*models.UserStats, error)
}

type Journal interface {
	Advance(ctx context.Context, orderID uuid.UUID, from, to models.SagaState, attempts int, lastErr string) error
	GetSaga(ctx context.Context, orderID uuid.UUID) (*models.CheckoutSaga, error)
	ListUnfinished(ctx context.Context, olderThan time.Time, limit int) ([]models.CheckoutSaga, error)
}

type Publisher interface {
	PublishEvent(ctx context.Context, eventType, key string, event any) error
}

// Recorder receives checkout outcomes. *metrics.ServerMetrics implements it.
type Recorder interface {
	Checkout(outcome string)
	StepFailed(step string)
	Reconciled()
}

const EventOrderPlaced = "order_placed"

const maxOrderNumberAttempts = 3

type Config struct {
	RetryAttempts   int
	RetryInterval   time.Duration
	FinalizeTimeout time.Duration
}

type Request struct {
	UserID         uuid.UUID
	Lines          []Line
	Donation       decimal.Decimal
	IdempotencyKey string
}

type Receipt struct {
	OrderID           uuid.UUID       `json:"order_id"`
	OrderNumber       string          `json:"order_number"`
	Total             decimal.Decimal `json:"total"`
	GreenPointsEarned int             `json:"green_points_earned"`
	CO2Saved          decimal.Decimal `json:"co2_saved"`
	PlasticSaved      decimal.Decimal `json:"plastic_saved"`
	WaterSaved        decimal.Decimal `json:"water_saved"`
	// Finalized is false while the cart clear is still pending.
	Finalized bool `json:"finalized"`
}

type OrderPlaced struct {
	OrderID           uuid.UUID       `json:"order_id"`
	OrderNumber       string          `json:"order_number"`
	UserID            uuid.UUID       `json:"user_id"`
	Total             decimal.Decimal `json:"total"`
	GreenPointsEarned int             `json:"green_points_earned"`
	CO2Saved          decimal.Decimal `json:"co2_saved"`
	PlacedAt          time.Time       `json:"placed_at"`
}

type Workflow struct {
	Cart    CartStore
	Orders  OrderLedger
	Impact  ImpactStore
	Journal Journal

	Events  Publisher
	Metrics Recorder

	cfg         Config
	orderNumber func(time.Time) string
	now         func() time.Time
}

type Option func(*Workflow)

func WithPublisher(p Publisher) Option { return func(w *Workflow) { w.Events = p } }

func WithRecorder(r Recorder) Option { return func(w *Workflow) { w.Metrics = r } }

func WithOrderNumbers(gen func(time.Time) string) Option {
	return func(w *Workflow) { w.orderNumber = gen }
}

func NewWorkflow(cart CartStore, orders OrderLedger, impact ImpactStore, journal Journal, cfg Config, opts ...Option) *Workflow {
	if cfg.RetryAttempts < 1 {
		cfg.RetryAttempts = 1
	}
	if cfg.RetryInterval <= 0 {
		cfg.RetryInterval = 100 * time.Millisecond
	}
	if cfg.FinalizeTimeout <= 0 {
		cfg.FinalizeTimeout = 30 * time.Second
	}
	w := &Workflow{
		Cart:        cart,
		Orders:      orders,
		Impact:      impact,
		Journal:     journal,
		cfg:         cfg,
		orderNumber: NewOrderNumber,
		now:         func() time.Time { return time.Now().UTC() },
	}
	for _, o := range opts {
		o(w)
	}
	return w
}

// CheckoutCart checks out whatever is currently in the user's cart.
func (w *Workflow) CheckoutCart(ctx context.Context, userID uuid.UUID, donation decimal.Decimal, key string) (*Receipt, error) {
	if userID == uuid.Nil {
		return nil, ErrUnauthenticated
	}
	items, err := w.Cart.ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("%w: read cart: %w", ErrOrderPersist, err)
	}
	return w.Checkout(ctx, Request{
		UserID:         userID,
		Lines:          LinesFromCart(items),
		Donation:       donation,
		IdempotencyKey: key,
	})
}

// Checkout places an order for req.Lines and finalizes it. Nothing is
// written until validation passes. Once the order row is committed the
// remaining steps are retried and journaled; they never undo the order.
func (w *Workflow) Checkout(ctx context.Context, req Request) (*Receipt, error) {
	l := logging.FromContext(ctx).With("component", "checkout", "user_id", req.UserID)

	// A known key replays its order even though the cart is already empty.
	token := uuid.NewString()
	if req.IdempotencyKey != "" && req.UserID != uuid.Nil {
		token = req.UserID.String() + ":" + req.IdempotencyKey
		existing, err := w.Orders.FindOrderByToken(ctx, req.UserID, token)
		switch {
		case err == nil:
			return w.replay(ctx, existing, req)
		case !errors.Is(err, repo.ErrNotFound):
			w.record("failed")
			return nil, fmt.Errorf("%w: %w", ErrOrderPersist, err)
		}
	}

	if err := validate(req); err != nil {
		w.record("rejected")
		return nil, err
	}

	totals := ComputeTotals(req.Lines, req.Donation)
	snapshot, err := json.Marshal(req.Lines)
	if err != nil {
		return nil, fmt.Errorf("%w: snapshot lines: %w", ErrOrderPersist, err)
	}

	order, saga := w.newOrder(req.UserID, token, totals, snapshot)

	for attempt := 1; ; attempt++ {
		err = w.Orders.InsertOrder(ctx, order, saga)
		if err == nil {
			break
		}
		if !errors.Is(err, repo.ErrConstraint) || attempt >= maxOrderNumberAttempts {
			l.Error("checkout_order_persist_failed", "attempt", attempt, "error", err)
			w.record("failed")
			return nil, fmt.Errorf("%w: %w", ErrOrderPersist, err)
		}
		if req.IdempotencyKey != "" {
			if existing, ferr := w.Orders.FindOrderByToken(ctx, req.UserID, token); ferr == nil {
				return w.replay(ctx, existing, req)
			}
		}
		l.Warn("checkout_order_number_collision", "order_number", order.OrderNumber, "attempt", attempt)
		order.OrderNumber = w.orderNumber(w.now())
	}

	l.Info("checkout_order_committed", "order_id", order.ID, "order_number", order.OrderNumber, "total", order.Total.String())
	return w.finalize(ctx, order, saga, req.Lines)
}

// replay answers a repeated idempotency key with the order it already
// placed. The donation must match; the lines are compared only while the
// cart still holds them, since a finished checkout has emptied it.
func (w *Workflow) replay(ctx context.Context, existing *models.Order, req Request) (*Receipt, error) {
	l := logging.FromContext(ctx).With("component", "checkout", "user_id", req.UserID, "order_id", existing.ID)

	same := existing.DonationAmount.Equal(req.Donation)
	if same && len(req.Lines) > 0 {
		same = ComputeTotals(req.Lines, req.Donation).Subtotal.Equal(existing.Subtotal)
	}
	if !same {
		l.Warn("checkout_key_reused", "order_number", existing.OrderNumber)
		w.record("rejected")
		return nil, fmt.Errorf("%w: order %s", ErrKeyReused, existing.OrderNumber)
	}

	l.Info("checkout_replay")
	return w.Resume(ctx, existing.ID)
}

// Resume continues an order from its journaled step. Finalized orders just
// return their receipt.
func (w *Workflow) Resume(ctx context.Context, orderID uuid.UUID) (*Receipt, error) {
	saga, err := w.Journal.GetSaga(ctx, orderID)
	if err != nil {
		return nil, fmt.Errorf("load checkout journal %s: %w", orderID, err)
	}
	order, err := w.Orders.GetOrder(ctx, orderID)
	if err != nil {
		return nil, fmt.Errorf("load order %s: %w", orderID, err)
	}

	var lines []Line
	if err := json.Unmarshal(saga.Lines, &lines); err != nil {
		return nil, fmt.Errorf("decode checkout journal %s: %w", orderID, err)
	}
	return w.finalize(ctx, order, saga, lines)
}

func (w *Workflow) newOrder(userID uuid.UUID, token string, t Totals, snapshot []byte) (*models.Order, *models.CheckoutSaga) {
	id := uuid.New()
	now := w.now()
	order := &models.Order{
		ID:                id,
		OrderNumber:       w.orderNumber(now),
		UserID:            userID,
		IdempotencyToken:  token,
		Subtotal:          t.Subtotal,
		DonationAmount:    t.Donation,
		Total:             t.Total,
		GreenPointsEarned: t.GreenPoints,
		CO2Saved:          t.CO2Saved,
		PlasticSaved:      t.PlasticSaved,
		WaterSaved:        t.WaterSaved,
		Status:            models.OrderStatusCompleted,
		CreatedAt:         now,
	}
	saga := &models.CheckoutSaga{
		OrderID: id,
		UserID:  userID,
		Token:   token,
		State:   models.SagaLinesPending,
		Lines:   snapshot,
	}
	return order, saga
}

func validate(req Request) error {
	if req.UserID == uuid.Nil {
		return ErrUnauthenticated
	}
	if len(req.Lines) == 0 {
		return ErrEmptyCart
	}
	if !ValidDonation(req.Donation) {
		return fmt.Errorf("%w: %w", ErrValidation, ErrInvalidDonation)
	}
	seen := make(map[uuid.UUID]struct{}, len(req.Lines))
	for _, l := range req.Lines {
		if l.ProductID == uuid.Nil {
			return fmt.Errorf("%w: line without product", ErrValidation)
		}
		if _, dup := seen[l.ProductID]; dup {
			return fmt.Errorf("%w: product %s listed twice", ErrValidation, l.ProductID)
		}
		seen[l.ProductID] = struct{}{}
		if l.Quantity < 1 {
			return fmt.Errorf("%w: quantity must be at least 1", ErrValidation)
		}
		if l.UnitPrice.IsNegative() {
			return fmt.Errorf("%w: negative unit price", ErrValidation)
		}
	}
	return nil
}

func (w *Workflow) record(outcome string) {
	if w.Metrics != nil {
		w.Metrics.Checkout(outcome)
	}
}

func (w *Workflow) stepFailed(step string) {
	if w.Metrics != nil {
		w.Metrics.StepFailed(step)
	}
}
