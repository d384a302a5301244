package checkout

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/CODEDESTROYER009/The-Green-Shop/internal/models"
)

// DonationStep is the increment the tree-planting donation moves in.
const DonationStep = 10

// Line is a cart line frozen for checkout. It is also the JSON snapshot kept
// in the checkout journal.
type Line struct {
	ProductID           uuid.UUID       `json:"product_id"`
	Quantity            int             `json:"quantity"`
	UnitPrice           decimal.Decimal `json:"unit_price"`
	GreenPointsPerUnit  int             `json:"green_points_per_unit"`
	CO2SavedPerUnit     decimal.Decimal `json:"co2_saved_per_unit"`
	PlasticSavedPerUnit decimal.Decimal `json:"plastic_saved_per_unit"`
	WaterSavedPerUnit   decimal.Decimal `json:"water_saved_per_unit"`
}

func LineFromCartItem(it models.CartItem) Line {
	return Line{
		ProductID:           it.ProductID,
		Quantity:            it.Quantity,
		UnitPrice:           it.UnitPrice,
		GreenPointsPerUnit:  it.GreenPointsPerUnit,
		CO2SavedPerUnit:     it.CO2SavedPerUnit,
		PlasticSavedPerUnit: it.PlasticSavedPerUnit,
		WaterSavedPerUnit:   it.WaterSavedPerUnit,
	}
}

func LinesFromCart(items []models.CartItem) []Line {
	out := make([]Line, 0, len(items))
	for _, it := range items {
		out = append(out, LineFromCartItem(it))
	}
	return out
}

type Totals struct {
	Subtotal     decimal.Decimal `json:"subtotal"`
	Donation     decimal.Decimal `json:"donation_amount"`
	Total        decimal.Decimal `json:"total"`
	GreenPoints  int             `json:"green_points_earned"`
	CO2Saved     decimal.Decimal `json:"co2_saved"`
	PlasticSaved decimal.Decimal `json:"plastic_saved"`
	WaterSaved   decimal.Decimal `json:"water_saved"`
}

// ComputeTotals sums the lines exactly. Nothing is rounded.
func ComputeTotals(lines []Line, donation decimal.Decimal) Totals {
	t := Totals{
		Subtotal:     decimal.Zero,
		Donation:     donation,
		CO2Saved:     decimal.Zero,
		PlasticSaved: decimal.Zero,
		WaterSaved:   decimal.Zero,
	}
	for _, l := range lines {
		q := decimal.NewFromInt(int64(l.Quantity))
		t.Subtotal = t.Subtotal.Add(l.UnitPrice.Mul(q))
		t.GreenPoints += l.GreenPointsPerUnit * l.Quantity
		t.CO2Saved = t.CO2Saved.Add(l.CO2SavedPerUnit.Mul(q))
		t.PlasticSaved = t.PlasticSaved.Add(l.PlasticSavedPerUnit.Mul(q))
		t.WaterSaved = t.WaterSaved.Add(l.WaterSavedPerUnit.Mul(q))
	}
	t.Total = t.Subtotal.Add(donation)
	return t
}

// ValidDonation reports whether d is a non-negative multiple of DonationStep.
func ValidDonation(d decimal.Decimal) bool {
	return !d.IsNegative() && d.Mod(decimal.NewFromInt(DonationStep)).IsZero()
}
