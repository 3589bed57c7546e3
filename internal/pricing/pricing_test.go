package pricing

import (
	"testing"

	"github.com/ptpplayersteachingplayers/TrainerBookBack/internal/models"
)

func testPolicy(t *testing.T) Policy {
	t.Helper()
	policy, err := ParsePolicy(
		"10000,16000,20000,24000",
		"single:1:0,3-pack:3:1000,5-pack:5:1500",
		300,
		30,
	)
	if err != nil {
		t.Fatalf("ParsePolicy: %v", err)
	}
	return policy
}

func TestParsePolicyRejectsMalformedInput(t *testing.T) {
	cases := []struct {
		name        string
		multipliers string
		packages    string
	}{
		{"empty multipliers", "", "single:1:0"},
		{"negative multiplier", "10000,-500", "single:1:0"},
		{"bad package shape", "10000", "single:1"},
		{"zero sessions", "10000", "single:0:0"},
		{"discount over 100%", "10000", "single:1:10000"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := ParsePolicy(tc.multipliers, tc.packages, 300, 30); err == nil {
				t.Fatalf("expected error for %q / %q", tc.multipliers, tc.packages)
			}
		})
	}
}

func TestPriceLinePackageDiscounts(t *testing.T) {
	policy := testPolicy(t)

	// $60 base rate, 5-pack at 15% off: round(60*5*0.85) = $255.
	price, err := policy.PriceLine(6000, 1, "5-pack")
	if err != nil {
		t.Fatalf("PriceLine 5-pack: %v", err)
	}
	if price != 25500 {
		t.Fatalf("expected 25500, got %d", price)
	}

	// $60 base rate, 3-pack at 10% off: round(60*3*0.90) = $162.
	price, err = policy.PriceLine(6000, 1, "3-pack")
	if err != nil {
		t.Fatalf("PriceLine 3-pack: %v", err)
	}
	if price != 16200 {
		t.Fatalf("expected 16200, got %d", price)
	}
}

func TestPriceLineFloorsAtPackageLevel(t *testing.T) {
	policy := testPolicy(t)

	// $55 * 3 * 0.90 = $148.50 floors to $148, once, not per session.
	price, err := policy.PriceLine(5500, 1, "3-pack")
	if err != nil {
		t.Fatalf("PriceLine: %v", err)
	}
	if price != 14800 {
		t.Fatalf("expected 14800, got %d", price)
	}
}

func TestPriceLineGroupMultipliers(t *testing.T) {
	policy := testPolicy(t)

	expected := map[int]int64{1: 6000, 2: 9600, 3: 12000, 4: 14400}
	for groupSize, want := range expected {
		price, err := policy.PriceLine(6000, groupSize, "single")
		if err != nil {
			t.Fatalf("PriceLine group %d: %v", groupSize, err)
		}
		if price != want {
			t.Fatalf("group %d: expected %d, got %d", groupSize, want, price)
		}
	}
}

func TestPriceLineGroupMonotonicity(t *testing.T) {
	policy := testPolicy(t)

	var prevTotal int64
	var prevPerPlayer float64
	for groupSize := 1; groupSize <= policy.MaxGroupSize(); groupSize++ {
		price, err := policy.PriceLine(6000, groupSize, "single")
		if err != nil {
			t.Fatalf("PriceLine group %d: %v", groupSize, err)
		}
		if price < prevTotal {
			t.Fatalf("line price decreased at group size %d: %d < %d", groupSize, price, prevTotal)
		}
		perPlayer := float64(price) / float64(groupSize)
		if groupSize > 1 && perPlayer > prevPerPlayer {
			t.Fatalf("per-player price increased at group size %d: %.2f > %.2f",
				groupSize, perPlayer, prevPerPlayer)
		}
		prevTotal = price
		prevPerPlayer = perPlayer
	}
}

func TestPriceLineRejectsBadInputs(t *testing.T) {
	policy := testPolicy(t)

	if _, err := policy.PriceLine(6000, 0, "single"); err != ErrInvalidGroupSize {
		t.Fatalf("expected ErrInvalidGroupSize, got %v", err)
	}
	if _, err := policy.PriceLine(6000, 5, "single"); err != ErrInvalidGroupSize {
		t.Fatalf("expected ErrInvalidGroupSize for oversized group, got %v", err)
	}
	if _, err := policy.PriceLine(6000, 1, "10-pack"); err != ErrUnknownPackage {
		t.Fatalf("expected ErrUnknownPackage, got %v", err)
	}
}

func TestQuoteSessionPlusAddOn(t *testing.T) {
	policy := testPolicy(t)

	items := []models.CartItem{
		{ItemType: models.ItemTypeTrainingSession, UnitPriceCents: 6000, Quantity: 1},
		{ItemType: models.ItemTypeAddOn, UnitPriceCents: 5000, Quantity: 1},
	}

	quote := policy.Quote(items, 0)
	if quote.SubtotalCents != 11000 {
		t.Fatalf("expected subtotal 11000, got %d", quote.SubtotalCents)
	}
	// 3% + $0.30 on $110 = $3.60.
	if quote.ProcessingFeeCents != 360 {
		t.Fatalf("expected fee 360, got %d", quote.ProcessingFeeCents)
	}
	if quote.TotalCents != 11360 {
		t.Fatalf("expected total 11360, got %d", quote.TotalCents)
	}
}

func TestQuoteDiscountAppliesBeforeFee(t *testing.T) {
	policy := testPolicy(t)

	items := []models.CartItem{
		{ItemType: models.ItemTypeTrainingSession, UnitPriceCents: 10000, Quantity: 1},
	}

	quote := policy.Quote(items, 2000)
	if quote.DiscountCents != 2000 {
		t.Fatalf("expected discount 2000, got %d", quote.DiscountCents)
	}
	// Fee on the discounted $80, not the $100 subtotal: 80*0.03+0.30 = $2.70.
	if quote.ProcessingFeeCents != 270 {
		t.Fatalf("expected fee 270, got %d", quote.ProcessingFeeCents)
	}
	if quote.TotalCents != 8270 {
		t.Fatalf("expected total 8270, got %d", quote.TotalCents)
	}
}

func TestQuoteDiscountClampsToSubtotal(t *testing.T) {
	policy := testPolicy(t)

	items := []models.CartItem{
		{ItemType: models.ItemTypeAddOn, UnitPriceCents: 1500, Quantity: 1},
	}

	quote := policy.Quote(items, 99999)
	if quote.DiscountCents != 1500 {
		t.Fatalf("expected discount clamped to 1500, got %d", quote.DiscountCents)
	}
	// Subtotal is non-zero, so the fixed fee still applies.
	if quote.ProcessingFeeCents != 30 {
		t.Fatalf("expected fee 30, got %d", quote.ProcessingFeeCents)
	}
	if quote.TotalCents != 30 {
		t.Fatalf("expected total 30, got %d", quote.TotalCents)
	}
}

func TestQuoteEmptyCartSkipsFee(t *testing.T) {
	policy := testPolicy(t)

	quote := policy.Quote(nil, 0)
	if quote.SubtotalCents != 0 || quote.DiscountCents != 0 ||
		quote.ProcessingFeeCents != 0 || quote.TotalCents != 0 {
		t.Fatalf("expected all-zero quote for empty cart, got %+v", quote)
	}
}

func TestQuoteIsIdempotent(t *testing.T) {
	policy := testPolicy(t)

	items := []models.CartItem{
		{ItemType: models.ItemTypeTrainingSession, UnitPriceCents: 6000, Quantity: 2},
		{ItemType: models.ItemTypeClinic, UnitPriceCents: 4500, Quantity: 1},
		{ItemType: models.ItemTypeAddOn, UnitPriceCents: 5000, Quantity: 3},
	}

	first := policy.Quote(items, 1200)
	second := policy.Quote(items, 1200)
	if first != second {
		t.Fatalf("quotes differ for identical cart state: %+v vs %+v", first, second)
	}
}

func TestPercentDiscount(t *testing.T) {
	if got := PercentDiscount(11000, 1000); got != 1100 {
		t.Fatalf("expected 1100, got %d", got)
	}
	// Fractional cents truncate.
	if got := PercentDiscount(999, 1000); got != 99 {
		t.Fatalf("expected 99, got %d", got)
	}
	if got := PercentDiscount(11000, 0); got != 0 {
		t.Fatalf("expected 0, got %d", got)
	}
}
