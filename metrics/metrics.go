/*
Package metrics computes derived business metrics from deal lists.

PURPOSE:
  Pure aggregation over an in-memory deal list: aggregate revenue, deal
  counts by financing type, F&I product penetration and average profit
  per product, and per-vehicle-retailed (PVR) revenue. No side effects,
  no store access - callers filter deals to the desired date range first
  (see daterange.go) and pass the filtered list.

ROUNDING:
  Percentages and per-product averages round half-up to the nearest
  integer. Currency totals, PVR, and products-per-deal are returned
  unrounded; display rounding is the caller's concern.

ZERO STATE:
  An empty deal list is a normal state (new user, new month). Compute
  returns well-defined zeros, never a division error.

SEE ALSO:
  - daterange.go: Date-range selectors consumed by callers
  - pay/: Compensation calculation over the same deal lists
*/
package metrics

import (
	"github.com/shopspring/decimal"
	"github.com/warp/dealdesk/ledger"
)

// =============================================================================
// PRODUCT CATEGORIES - The 8 reported categories
// =============================================================================

// ProductCategory names match existing stored data; exact casing matters.
type ProductCategory string

const (
	CategoryVSC        ProductCategory = "VSC"
	CategoryGAP        ProductCategory = "GAP"
	CategoryPPM        ProductCategory = "PPM"
	CategoryTireWheel  ProductCategory = "Tire & Wheel"
	CategoryAppearance ProductCategory = "Appearance"
	CategoryTheft      ProductCategory = "Theft"
	CategoryBundled    ProductCategory = "Bundled"
	// CategoryOther aggregates the minor products (extended warranty, key
	// replacement, windshield, LoJack/tracking, other) summed together
	// BEFORE the count/average split.
	CategoryOther ProductCategory = "Other"
)

// Categories lists the reported categories in display order.
var Categories = []ProductCategory{
	CategoryVSC, CategoryGAP, CategoryPPM, CategoryTireWheel,
	CategoryAppearance, CategoryTheft, CategoryBundled, CategoryOther,
}

// categoryValue extracts a deal's profit for one reported category.
func categoryValue(d ledger.Deal, c ProductCategory) decimal.Decimal {
	switch c {
	case CategoryVSC:
		return d.Products.VSC
	case CategoryGAP:
		return d.Products.GAP
	case CategoryPPM:
		return d.Products.PPM
	case CategoryTireWheel:
		return d.Products.TireWheel
	case CategoryAppearance:
		return d.Products.Appearance
	case CategoryTheft:
		return d.Products.Theft
	case CategoryBundled:
		return d.Products.Bundled
	case CategoryOther:
		return d.Products.MinorSum()
	default:
		return decimal.Zero
	}
}

// =============================================================================
// METRICS
// =============================================================================

// ProductStats summarizes one product category over a deal set.
type ProductStats struct {
	// Count of deals with this category's profit > 0.
	Count int `json:"count"`
	// Total profit across those deals, unrounded.
	Total decimal.Decimal `json:"total"`
	// Penetration percent, 0-100, rounded half-up.
	Penetration int64 `json:"penetration"`
	// AverageProfit = Total/Count, rounded half-up to the dollar.
	AverageProfit decimal.Decimal `json:"averageProfit"`
}

type Metrics struct {
	TotalRevenue    decimal.Decimal                    `json:"totalRevenue"`
	DealsProcessed  int                                `json:"dealsProcessed"`
	Products        map[ProductCategory]ProductStats   `json:"products"`
	DealTypes       map[ledger.DealType]int            `json:"dealTypes"`
	ProductsPerDeal decimal.Decimal                    `json:"productsPerDeal"`
	PVR             decimal.Decimal                    `json:"pvr"`
}

// Compute aggregates metrics over a deal list. Pure; the input is not
// modified and may be empty.
func Compute(deals []ledger.Deal) Metrics {
	m := Metrics{
		TotalRevenue:    decimal.Zero,
		DealsProcessed:  len(deals),
		Products:        make(map[ProductCategory]ProductStats, len(Categories)),
		DealTypes:       map[ledger.DealType]int{},
		ProductsPerDeal: decimal.Zero,
		PVR:             decimal.Zero,
	}

	for _, d := range deals {
		m.TotalRevenue = m.TotalRevenue.Add(d.GrossValue())
		m.DealTypes[normalizeDealType(d.DealType)]++
	}

	processed := decimal.NewFromInt(int64(m.DealsProcessed))
	totalProductCount := 0

	for _, c := range Categories {
		stats := ProductStats{Total: decimal.Zero, AverageProfit: decimal.Zero}
		for _, d := range deals {
			if v := categoryValue(d, c); v.IsPositive() {
				stats.Count++
				stats.Total = stats.Total.Add(v)
			}
		}
		if m.DealsProcessed > 0 {
			// Round half-up: decimal rounds half away from zero, which is
			// the same thing for non-negative inputs.
			stats.Penetration = decimal.NewFromInt(int64(stats.Count) * 100).
				Div(processed).Round(0).IntPart()
		}
		if stats.Count > 0 {
			stats.AverageProfit = stats.Total.
				Div(decimal.NewFromInt(int64(stats.Count))).Round(0)
		}
		totalProductCount += stats.Count
		m.Products[c] = stats
	}

	if m.DealsProcessed > 0 {
		// A deal counts once per product sold: three products contribute 3.
		// Penetration-weighted average, not "deals with >=1 product".
		m.ProductsPerDeal = decimal.NewFromInt(int64(totalProductCount)).Div(processed)
		m.PVR = m.TotalRevenue.Div(processed)
	}

	return m
}

// normalizeDealType defaults unspecified/unrecognized types to Finance.
func normalizeDealType(t ledger.DealType) ledger.DealType {
	switch t {
	case ledger.DealFinance, ledger.DealCash, ledger.DealLease:
		return t
	default:
		return ledger.DealFinance
	}
}
