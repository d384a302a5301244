package httpserver

import (
	"context"
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"

	"github.com/CODEDESTROYER009/The-Green-Shop/internal/checkout"
	"github.com/CODEDESTROYER009/The-Green-Shop/internal/transport"
	"github.com/CODEDESTROYER009/The-Green-Shop/pkg/idempotency"
	"github.com/CODEDESTROYER009/The-Green-Shop/pkg/logging"
)

// CartCheckout places an order from the user's cart. *checkout.Workflow implements it.
type CartCheckout interface {
	CheckoutCart(ctx context.Context, userID uuid.UUID, donation decimal.Decimal, key string) (*checkout.Receipt, error)
}

type CheckoutHTTP struct {
	Workflow CartCheckout
}

func (h *CheckoutHTTP) Create(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "checkout.create")

	userID, err := GetID(c)
	if err != nil {
		l.Warn("checkout_error", "status", 401, "error", err)
		return echo.NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}

	key, err := idempotency.FromRequest(c)
	if err != nil {
		l.Warn("checkout_error", "status", 400, "error", err)
		return echo.NewHTTPError(http.StatusBadRequest, "invalid Idempotency-Key header")
	}

	var req transport.CheckoutRequest
	if err := c.Bind(&req); err != nil {
		l.Warn("checkout_error", "status", 400, "error", err)
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}

	receipt, err := h.Workflow.CheckoutCart(ctx, userID, req.DonationAmount, key)
	if err != nil {
		return h.checkoutError(c, err)
	}

	l.Info("checkout_success", "order_id", receipt.OrderID, "order_number", receipt.OrderNumber)
	return c.JSON(http.StatusCreated, receipt)
}

func (h *CheckoutHTTP) checkoutError(c echo.Context, err error) error {
	l := logging.FromContext(c.Request().Context()).With("handler", "checkout.create")

	var partial *checkout.PartialCheckoutError
	switch {
	case errors.Is(err, checkout.ErrUnauthenticated):
		l.Warn("checkout_error", "status", 401, "error", err)
		return echo.NewHTTPError(http.StatusUnauthorized, "unauthorized")

	case errors.Is(err, checkout.ErrEmptyCart):
		l.Warn("checkout_error", "status", 400, "error", err)
		return echo.NewHTTPError(http.StatusBadRequest, "cart is empty")

	case errors.Is(err, checkout.ErrInvalidDonation):
		l.Warn("checkout_error", "status", 400, "error", err)
		return echo.NewHTTPError(http.StatusBadRequest, "donation must be a non-negative multiple of 10")

	case errors.Is(err, checkout.ErrValidation):
		l.Warn("checkout_error", "status", 400, "error", err)
		return echo.NewHTTPError(http.StatusBadRequest, "invalid cart")

	case errors.Is(err, checkout.ErrKeyReused):
		l.Warn("checkout_error", "status", 409, "error", err)
		return echo.NewHTTPError(http.StatusConflict, "Idempotency-Key already used for a different checkout")

	case errors.As(err, &partial) && errors.Is(err, checkout.ErrMissingAccumulator):
		l.Error("checkout_error", "status", 409, "order_id", partial.OrderID, "error", err)
		id := partial.OrderID
		return c.JSON(http.StatusConflict, transport.ErrorResponse{
			Message: "order placed but impact stats are not set up for this account",
			OrderID: &id,
		})

	case errors.As(err, &partial):
		l.Warn("checkout_partial", "status", 202, "order_id", partial.OrderID, "step", partial.Step, "error", err)
		return c.JSON(http.StatusAccepted, transport.CheckoutPending{
			Message:     "order placed, finalizing rewards",
			OrderID:     partial.OrderID,
			OrderNumber: partial.OrderNumber,
			Step:        partial.Step,
		})

	case errors.Is(err, checkout.ErrOrderPersist):
		l.Error("checkout_error", "status", 500, "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "checkout failed, cart unchanged")
	}

	l.Error("checkout_error", "status", 500, "error", err)
	return echo.NewHTTPError(http.StatusInternalServerError, "internal error")
}
