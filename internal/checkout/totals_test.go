package checkout

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func TestComputeTotals_ReferenceScenario(t *testing.T) {
	t.Parallel()

	lines := []Line{
		{ProductID: uuid.New(), Quantity: 2, UnitPrice: d("500"), GreenPointsPerUnit: 10, CO2SavedPerUnit: d("1.2")},
		{ProductID: uuid.New(), Quantity: 1, UnitPrice: d("300"), GreenPointsPerUnit: 5, CO2SavedPerUnit: d("0.5")},
	}

	got := ComputeTotals(lines, d("20"))

	assert.True(t, got.Subtotal.Equal(d("1300")), got.Subtotal.String())
	assert.True(t, got.Total.Equal(d("1320")), got.Total.String())
	assert.Equal(t, 25, got.GreenPoints)
	assert.True(t, got.CO2Saved.Equal(d("2.9")), got.CO2Saved.String())
	assert.True(t, got.PlasticSaved.IsZero())
}

func TestComputeTotals_NoDriftOnRepeat(t *testing.T) {
	t.Parallel()

	lines := make([]Line, 0, 30)
	for i := 0; i < 30; i++ {
		lines = append(lines, Line{ProductID: uuid.New(), Quantity: 3, UnitPrice: d("0.10"), CO2SavedPerUnit: d("0.01")})
	}

	first := ComputeTotals(lines, d("10"))
	for i := 0; i < 100; i++ {
		again := ComputeTotals(lines, d("10"))
		require.True(t, again.Total.Equal(first.Total))
	}
	assert.True(t, first.Subtotal.Equal(d("9")), first.Subtotal.String())
	assert.True(t, first.Total.Equal(first.Subtotal.Add(d("10"))))
	assert.True(t, first.CO2Saved.Equal(d("0.9")))
}

func TestValidate(t *testing.T) {
	t.Parallel()

	user := uuid.New()
	line := Line{ProductID: uuid.New(), Quantity: 1, UnitPrice: d("10")}

	tests := []struct {
		name string
		req  Request
		want error
	}{
		{name: "ok", req: Request{UserID: user, Lines: []Line{line}, Donation: d("0")}},
		{name: "ok donation step", req: Request{UserID: user, Lines: []Line{line}, Donation: d("30")}},
		{name: "anonymous", req: Request{Lines: []Line{line}}, want: ErrUnauthenticated},
		{name: "empty", req: Request{UserID: user}, want: ErrEmptyCart},
		{name: "negative donation", req: Request{UserID: user, Lines: []Line{line}, Donation: d("-10")}, want: ErrInvalidDonation},
		{name: "off-step donation", req: Request{UserID: user, Lines: []Line{line}, Donation: d("15")}, want: ErrValidation},
		{name: "zero quantity", req: Request{UserID: user, Lines: []Line{{ProductID: uuid.New(), UnitPrice: d("1")}}}, want: ErrValidation},
		{name: "duplicate product", req: Request{UserID: user, Lines: []Line{line, line}}, want: ErrValidation},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			err := validate(tt.req)
			if tt.want == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestNewOrderNumber(t *testing.T) {
	t.Parallel()

	at := time.Date(2026, 3, 4, 23, 59, 0, 0, time.UTC)
	seen := map[string]struct{}{}
	for i := 0; i < 1000; i++ {
		n := NewOrderNumber(at)
		require.Regexp(t, `^ORD-20260304-[0-9A-F]{12}$`, n)
		_, dup := seen[n]
		require.False(t, dup)
		seen[n] = struct{}{}
	}
}
