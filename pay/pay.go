/*
Package pay computes estimated compensation from a pay plan.

PURPOSE:
  Pure calculation over an in-memory deal list plus a per-user pay plan:
  flat base pay, commission on back-end gross, and per-product bonuses.

THE ASYMMETRY (intentional, preserve exactly):
  Commission is earned on ALL logged deals' gross regardless of funding
  status. Bonuses are earned only on FUNDED deals. This is the business
  rule, not an oversight: commission tracks production, bonuses pay out
  on money actually collected.

FUNDED:
  "Funded" or the legacy synonym "Complete" (older stored ledgers). The
  synonym is accepted here only; the status state machine never writes it.

SEE ALSO:
  - config.go: Pay plan persistence (defaults on first access)
  - metrics/: The read-side aggregation over the same deal lists
*/
package pay

import (
	"github.com/shopspring/decimal"
	"github.com/warp/dealdesk/ledger"
)

// =============================================================================
// PAY PLAN CONFIG
// =============================================================================

type PayPlanConfig struct {
	// CommissionRate is a percentage (0-100) applied to total back-end
	// gross across the selected period.
	CommissionRate decimal.Decimal `json:"commissionRate"`
	// BaseRate is a flat amount added once per period.
	BaseRate decimal.Decimal `json:"baseRate"`

	// Flat per-deal bonuses, paid per funded deal carrying the product.
	VSCBonus decimal.Decimal `json:"vscBonus"`
	GAPBonus decimal.Decimal `json:"gapBonus"`
	PPMBonus decimal.Decimal `json:"ppmBonus"`

	// TotalThreshold is advisory; it does not gate any computation yet.
	// TODO: gate bonuses on totalThreshold once the business rule is
	// confirmed with the pay-plan owners.
	TotalThreshold decimal.Decimal `json:"totalThreshold"`
}

// DefaultConfig is the pay plan a user starts with on first access.
func DefaultConfig() PayPlanConfig {
	return PayPlanConfig{
		CommissionRate: decimal.NewFromInt(15),
		BaseRate:       decimal.Zero,
		VSCBonus:       decimal.Zero,
		GAPBonus:       decimal.Zero,
		PPMBonus:       decimal.Zero,
		TotalThreshold: decimal.Zero,
	}
}

// =============================================================================
// PAY BREAKDOWN
// =============================================================================

type Breakdown struct {
	TotalProfit        decimal.Decimal `json:"totalProfit"`
	CommissionEarnings decimal.Decimal `json:"commissionEarnings"`
	BaseEarnings       decimal.Decimal `json:"baseEarnings"`

	VSCBonuses   decimal.Decimal `json:"vscBonuses"`
	GAPBonuses   decimal.Decimal `json:"gapBonuses"`
	PPMBonuses   decimal.Decimal `json:"ppmBonuses"`
	TotalBonuses decimal.Decimal `json:"totalBonuses"`

	EstimatedPay decimal.Decimal `json:"estimatedPay"`

	FundedDeals int `json:"fundedDeals"`
}

// Compute derives the pay breakdown. Pure; an empty deal list yields base
// pay only, never an error.
func Compute(deals []ledger.Deal, config PayPlanConfig) Breakdown {
	b := Breakdown{
		TotalProfit:  decimal.Zero,
		BaseEarnings: config.BaseRate,
		VSCBonuses:   decimal.Zero,
		GAPBonuses:   decimal.Zero,
		PPMBonuses:   decimal.Zero,
	}

	for _, d := range deals {
		// Commission basis: every logged deal, funded or not.
		b.TotalProfit = b.TotalProfit.Add(d.GrossValue())

		if !d.Status.IsFunded() {
			continue
		}
		b.FundedDeals++
		if d.Products.VSC.IsPositive() {
			b.VSCBonuses = b.VSCBonuses.Add(config.VSCBonus)
		}
		if d.Products.GAP.IsPositive() {
			b.GAPBonuses = b.GAPBonuses.Add(config.GAPBonus)
		}
		if d.Products.PPM.IsPositive() {
			b.PPMBonuses = b.PPMBonuses.Add(config.PPMBonus)
		}
	}

	b.CommissionEarnings = b.TotalProfit.Mul(config.CommissionRate).
		Div(decimal.NewFromInt(100))
	b.TotalBonuses = b.VSCBonuses.Add(b.GAPBonuses).Add(b.PPMBonuses)
	b.EstimatedPay = b.BaseEarnings.Add(b.CommissionEarnings).Add(b.TotalBonuses)
	return b
}
