// Package pricing computes line and cart prices from platform policy.
// All amounts are integer cents; rates are basis points (10000 = 1.0).
package pricing

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/ptpplayersteachingplayers/TrainerBookBack/internal/models"
)

var (
	ErrUnknownPackage   = errors.New("unknown package code")
	ErrInvalidGroupSize = errors.New("invalid group size")
)

type Package struct {
	Code         string `json:"code"`
	SessionCount int    `json:"session_count"`
	DiscountBps  int64  `json:"discount_bps"`
}

// Policy is platform-wide business policy: group multipliers, the package
// catalog and the processing fee. Loaded from config, never hard-coded at
// call sites.
type Policy struct {
	// GroupMultiplierBps[n-1] scales the base rate for a group of n players.
	GroupMultiplierBps []int64
	Packages           map[string]Package
	FeeRateBps         int64
	FeeFixedCents      int64
}

// ParsePolicy builds a Policy from the config's raw strings: multipliers as a
// comma list of bps starting at group size 1, packages as
// "code:sessions:discount_bps" entries.
func ParsePolicy(multipliers, packages string, feeRateBps, feeFixedCents int64) (Policy, error) {
	policy := Policy{
		Packages:      make(map[string]Package),
		FeeRateBps:    feeRateBps,
		FeeFixedCents: feeFixedCents,
	}

	for _, part := range strings.Split(multipliers, ",") {
		bps, err := strconv.ParseInt(strings.TrimSpace(part), 10, 64)
		if err != nil || bps <= 0 {
			return Policy{}, fmt.Errorf("invalid group multiplier %q", part)
		}
		policy.GroupMultiplierBps = append(policy.GroupMultiplierBps, bps)
	}
	if len(policy.GroupMultiplierBps) == 0 {
		return Policy{}, errors.New("group multiplier table is empty")
	}

	for _, part := range strings.Split(packages, ",") {
		fields := strings.Split(strings.TrimSpace(part), ":")
		if len(fields) != 3 {
			return Policy{}, fmt.Errorf("invalid package entry %q", part)
		}
		sessions, err := strconv.Atoi(fields[1])
		if err != nil || sessions < 1 {
			return Policy{}, fmt.Errorf("invalid session count in %q", part)
		}
		discount, err := strconv.ParseInt(fields[2], 10, 64)
		if err != nil || discount < 0 || discount >= 10000 {
			return Policy{}, fmt.Errorf("invalid discount in %q", part)
		}
		code := strings.TrimSpace(fields[0])
		if code == "" {
			return Policy{}, fmt.Errorf("invalid package entry %q", part)
		}
		policy.Packages[code] = Package{Code: code, SessionCount: sessions, DiscountBps: discount}
	}
	if len(policy.Packages) == 0 {
		return Policy{}, errors.New("package catalog is empty")
	}

	return policy, nil
}

func (p Policy) MaxGroupSize() int {
	return len(p.GroupMultiplierBps)
}

func (p Policy) Package(code string) (Package, bool) {
	pkg, ok := p.Packages[code]
	return pkg, ok
}

// PackageCodes returns the catalog codes sorted for stable presentation.
func (p Policy) PackageCodes() []string {
	codes := make([]string, 0, len(p.Packages))
	for code := range p.Packages {
		codes = append(codes, code)
	}
	sort.Strings(codes)
	return codes
}

// PriceLine prices one booked line: the group multiplier scales the base
// rate, the package discount applies across all of its sessions, and the
// result is floored to a whole currency unit once, at package level.
func (p Policy) PriceLine(baseRateCents int64, groupSize int, packageCode string) (int64, error) {
	if groupSize < 1 || groupSize > len(p.GroupMultiplierBps) {
		return 0, ErrInvalidGroupSize
	}
	pkg, ok := p.Packages[packageCode]
	if !ok {
		return 0, ErrUnknownPackage
	}

	grouped := baseRateCents * p.GroupMultiplierBps[groupSize-1] / 10000
	total := grouped * int64(pkg.SessionCount) * (10000 - pkg.DiscountBps) / 10000
	return total - total%100, nil
}

// Subtotal sums unit price times quantity across items.
func Subtotal(items []models.CartItem) int64 {
	var subtotal int64
	for _, item := range items {
		subtotal += item.UnitPriceCents * int64(item.Quantity)
	}
	return subtotal
}

// Quote prices current cart state. Discounts come off the subtotal before the
// fee; the fee is skipped entirely on an empty (zero-subtotal) cart. Given
// the same inputs the result is always identical.
func (p Policy) Quote(items []models.CartItem, discountCents int64) models.PriceQuote {
	subtotal := Subtotal(items)

	discount := discountCents
	if discount < 0 {
		discount = 0
	}
	if discount > subtotal {
		discount = subtotal
	}
	afterDiscount := subtotal - discount

	var fee int64
	if subtotal > 0 {
		fee = roundHalfUpBps(afterDiscount, p.FeeRateBps) + p.FeeFixedCents
	}

	return models.PriceQuote{
		SubtotalCents:      subtotal,
		DiscountCents:      discount,
		ProcessingFeeCents: fee,
		TotalCents:         afterDiscount + fee,
	}
}

// PercentDiscount converts a percentage promo (in bps) into cents off the
// subtotal, truncating fractional cents.
func PercentDiscount(subtotalCents, percentBps int64) int64 {
	if percentBps <= 0 {
		return 0
	}
	return subtotalCents * percentBps / 10000
}

func roundHalfUpBps(amountCents, rateBps int64) int64 {
	return (amountCents*rateBps + 5000) / 10000
}
