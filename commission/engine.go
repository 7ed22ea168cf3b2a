/*
Package commission computes and records reseller commissions.

PURPOSE:
  The Engine is the single place where commission and loyalty point
  amounts are derived from a sale. It is pure: no storage, no clock, no
  I/O. The Recorder applies an Engine result to a member's wallet and
  the audit log.

CALCULATION:
  commission = salePrice * rate / 100, rounded half-up at the configured
  minor-unit precision. Points accrue at one per full PointsDivisor of
  sale price, truncated. The same inputs always produce the same result.

SEE ALSO:
  - commission/recorder.go: Applies results to storage
  - orders/manager.go: Per-item commission fan-out on order creation
*/
package commission

import (
	"github.com/shopspring/decimal"

	"github.com/omega/commerce-engine/ledger"
)

// Config holds the tunable constants of the calculation.
type Config struct {
	// MinorUnitPlaces is the rounding precision for commission amounts.
	// 2 for cent-based currencies, 0 for currencies without minor units.
	MinorUnitPlaces int32

	// PointsDivisor is the sale-price amount that earns one loyalty point.
	PointsDivisor decimal.Decimal
}

// DefaultConfig returns the production constants.
func DefaultConfig() Config {
	return Config{
		MinorUnitPlaces: 2,
		PointsDivisor:   decimal.NewFromInt(1000),
	}
}

// Engine derives commission and points from sale inputs.
type Engine struct {
	cfg Config
}

func NewEngine(cfg Config) *Engine {
	if cfg.PointsDivisor.IsZero() {
		cfg.PointsDivisor = DefaultConfig().PointsDivisor
	}
	return &Engine{cfg: cfg}
}

// Result is the outcome of a commission calculation.
type Result struct {
	Commission decimal.Decimal
	Points     int64
}

var hundred = decimal.NewFromInt(100)

// Compute calculates commission and points for a sale.
//
// Returns InvalidSaleInputError when salePrice is negative or rate is
// outside [0, 100]. A zero salePrice is valid and yields zero commission
// and zero points.
func (e *Engine) Compute(salePrice, rate decimal.Decimal) (Result, error) {
	if salePrice.IsNegative() {
		return Result{}, &ledger.InvalidSaleInputError{
			SalePrice: salePrice,
			Rate:      rate,
			Reason:    "sale price must not be negative",
		}
	}
	if rate.IsNegative() || rate.GreaterThan(hundred) {
		return Result{}, &ledger.InvalidSaleInputError{
			SalePrice: salePrice,
			Rate:      rate,
			Reason:    "rate must be between 0 and 100",
		}
	}

	// Round is half-away-from-zero, which for non-negative amounts is
	// exactly round-half-up.
	commission := salePrice.Mul(rate).Div(hundred).Round(e.cfg.MinorUnitPlaces)
	points := salePrice.Div(e.cfg.PointsDivisor).Floor().IntPart()

	return Result{Commission: commission, Points: points}, nil
}
