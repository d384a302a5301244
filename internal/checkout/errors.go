package checkout

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
)

var (
	ErrUnauthenticated  = errors.New("checkout requires an authenticated user")
	ErrEmptyCart        = errors.New("cart is empty")
	ErrValidation       = errors.New("invalid checkout request")
	ErrInvalidDonation  = errors.New("donation must be a non-negative multiple of 10")
	ErrOrderPersist     = errors.New("order could not be saved")
	ErrOrderLinePersist = errors.New("order lines could not be saved")
	ErrKeyReused        = errors.New("idempotency key already used for a different checkout")

	ErrMissingAccumulator = errors.New("impact stats not provisioned for user")
	ErrAccumulatorUpdate  = errors.New("impact stats could not be updated")
	ErrCartClear          = errors.New("cart could not be cleared")
)

const (
	StepOrderLines = "order_lines"
	StepStats      = "impact_stats"
	StepCart       = "cart_clear"
)

// PartialCheckoutError means the order was committed but finalization did
// not finish. The order stands; a reconciler or a replay completes it.
type PartialCheckoutError struct {
	OrderID     uuid.UUID
	OrderNumber string
	Step        string
	Err         error
}

func (e *PartialCheckoutError) Error() string {
	return fmt.Sprintf("order %s placed but %s not finalized: %v", e.OrderNumber, e.Step, e.Err)
}

func (e *PartialCheckoutError) Unwrap() error {
	return e.Err
}
