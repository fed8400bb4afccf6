/*
migrate.go - Legacy schema normalization at the store boundary

PURPOSE:
  Older stored ledgers predate the canonical schema: some records carry a
  bare "profit" field instead of backEndGross, product profits live at the
  top level instead of under "products", and a handful of product fields
  went through renames. Rather than scattering fallback-or reads through
  every consumer, this file is the ONE place that understands old shapes.

CONTRACT:
  storedDeal accepts every shape ever written. canonical() produces a Deal
  in the current schema with derived fields recomputed. Consumers (metrics,
  pay, API) only ever see canonical Deals.

  Writes always use the canonical shape; migration happens on read, so a
  legacy ledger is silently upgraded the first time it is re-persisted.
*/
package ledger

import (
	"time"

	"github.com/shopspring/decimal"
)

// storedDeal is the wire/storage shape. Superset of every schema version.
type storedDeal struct {
	ID           string      `json:"id"`
	CustomerName string      `json:"customerName"`
	StockNumber  string      `json:"stockNumber"`
	VINLast8     string      `json:"vinLast8"`
	VehicleType  VehicleType `json:"vehicleType"`
	Manufacturer string      `json:"manufacturer"`
	DealType     DealType    `json:"dealType"`
	SaleDate     Date        `json:"saleDate"`
	Status       DealStatus  `json:"status"`

	FrontEndGross decimal.Decimal `json:"frontEndGross"`
	ReserveFlat   decimal.Decimal `json:"reserveFlat"`
	Products      *ProductProfits `json:"products,omitempty"`

	BackEndGross decimal.Decimal `json:"backEndGross"`
	TotalGross   decimal.Decimal `json:"totalGross"`

	// Legacy: early records stored a single gross-equivalent "profit"
	// and no product breakdown. Pointers so a rewrite omits them;
	// omitempty never drops struct-typed zero decimals.
	LegacyProfit *decimal.Decimal `json:"profit,omitempty"`

	// Legacy: product fields at the top level, pre-"products" nesting.
	LegacyVSC        *decimal.Decimal `json:"vscProfit,omitempty"`
	LegacyGAP        *decimal.Decimal `json:"gapProfit,omitempty"`
	LegacyPPM        *decimal.Decimal `json:"maintenanceProfit,omitempty"`
	LegacyTireWheel  *decimal.Decimal `json:"tireWheelProfit,omitempty"`
	LegacyAppearance *decimal.Decimal `json:"appearanceProfit,omitempty"`
	LegacyTheft      *decimal.Decimal `json:"theftProfit,omitempty"`

	SalespersonID       string `json:"salespersonId"`
	SecondSalespersonID string `json:"secondSalespersonId,omitempty"`
	IsSplitDeal         bool   `json:"isSplitDeal"`
	SalespersonDisplay  string `json:"salespersonDisplay"`
	// Legacy name for the display string.
	LegacySalesperson string `json:"salesperson,omitempty"`

	Notes     string    `json:"notes,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

// canonical converts a stored record of any vintage into the current schema.
func (sd storedDeal) canonical() Deal {
	d := Deal{
		ID:                  sd.ID,
		CustomerName:        sd.CustomerName,
		StockNumber:         sd.StockNumber,
		VINLast8:            sd.VINLast8,
		VehicleType:         sd.VehicleType,
		Manufacturer:        sd.Manufacturer,
		DealType:            sd.DealType,
		SaleDate:            sd.SaleDate,
		Status:              sd.Status,
		FrontEndGross:       sd.FrontEndGross,
		ReserveFlat:         sd.ReserveFlat,
		SalespersonID:       sd.SalespersonID,
		SecondSalespersonID: sd.SecondSalespersonID,
		IsSplitDeal:         sd.IsSplitDeal,
		SalespersonDisplay:  sd.SalespersonDisplay,
		Notes:               sd.Notes,
		CreatedAt:           sd.CreatedAt,
	}

	if sd.Products != nil {
		d.Products = *sd.Products
	} else {
		d.Products = ProductProfits{
			VSC:        deref(sd.LegacyVSC),
			GAP:        deref(sd.LegacyGAP),
			PPM:        deref(sd.LegacyPPM),
			TireWheel:  deref(sd.LegacyTireWheel),
			Appearance: deref(sd.LegacyAppearance),
			Theft:      deref(sd.LegacyTheft),
		}
	}

	if d.SalespersonDisplay == "" {
		d.SalespersonDisplay = sd.LegacySalesperson
	}
	if d.Status == "" {
		d.Status = StatusPending
	}

	d.recomputeDerived()

	// Oldest records: a bare "profit" with no product breakdown. The
	// recomputed back-end gross is zero there, so the legacy value is the
	// only gross-equivalent we have.
	if d.BackEndGross.IsZero() && sd.LegacyProfit != nil && !sd.LegacyProfit.IsZero() {
		d.BackEndGross = *sd.LegacyProfit
		d.TotalGross = d.FrontEndGross.Add(d.BackEndGross)
	}

	return d
}

func deref(v *decimal.Decimal) decimal.Decimal {
	if v == nil {
		return decimal.Zero
	}
	return *v
}

// toStored converts a canonical Deal to the storage shape. Always writes
// the current schema; legacy fields are dropped on rewrite.
func toStored(d Deal) storedDeal {
	products := d.Products
	return storedDeal{
		ID:                  d.ID,
		CustomerName:        d.CustomerName,
		StockNumber:         d.StockNumber,
		VINLast8:            d.VINLast8,
		VehicleType:         d.VehicleType,
		Manufacturer:        d.Manufacturer,
		DealType:            d.DealType,
		SaleDate:            d.SaleDate,
		Status:              d.Status,
		FrontEndGross:       d.FrontEndGross,
		ReserveFlat:         d.ReserveFlat,
		Products:            &products,
		BackEndGross:        d.BackEndGross,
		TotalGross:          d.TotalGross,
		SalespersonID:       d.SalespersonID,
		SecondSalespersonID: d.SecondSalespersonID,
		IsSplitDeal:         d.IsSplitDeal,
		SalespersonDisplay:  d.SalespersonDisplay,
		Notes:               d.Notes,
		CreatedAt:           d.CreatedAt,
	}
}

func toStoredList(deals []Deal) []storedDeal {
	stored := make([]storedDeal, len(deals))
	for i, d := range deals {
		stored[i] = toStored(d)
	}
	return stored
}
