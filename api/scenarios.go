/*
scenarios.go - Demo data seeding for local development

PURPOSE:
  Seeds a user with a small roster and a month of representative deals so
  the metrics and pay views have something to show. Used by the -demo
  flag on the server binary; never runs in normal operation.
*/
package api

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/warp/dealdesk/ledger"
	"github.com/warp/dealdesk/pay"
)

// LoadDemoScenario populates the given user with a roster, a pay plan,
// and a spread of current-month deals. Idempotent enough for dev use:
// deal numbers are fixed, so re-running fails on duplicates rather than
// doubling the ledger.
func LoadDemoScenario(ctx context.Context, h *Handler, userID string) error {
	jordan, err := h.Roster.AddMember(ctx, userID, "Jordan", "Diaz", ledger.RoleSalesperson)
	if err != nil {
		return fmt.Errorf("seed roster: %w", err)
	}
	morgan, err := h.Roster.AddMember(ctx, userID, "Morgan", "Kim", ledger.RoleSalesperson)
	if err != nil {
		return fmt.Errorf("seed roster: %w", err)
	}
	if _, err := h.Roster.AddMember(ctx, userID, "Sam", "O'Neill", ledger.RoleSalesManager); err != nil {
		return fmt.Errorf("seed roster: %w", err)
	}

	if err := h.PayPlans.Save(ctx, userID, pay.PayPlanConfig{
		CommissionRate: decimal.NewFromInt(15),
		BaseRate:       decimal.NewFromInt(2500),
		VSCBonus:       decimal.NewFromInt(100),
		GAPBonus:       decimal.NewFromInt(50),
		PPMBonus:       decimal.NewFromInt(50),
		TotalThreshold: decimal.NewFromInt(10000),
	}); err != nil {
		return fmt.Errorf("seed pay plan: %w", err)
	}

	now := time.Now()
	monthStart := ledger.NewDate(now.Year(), now.Month(), 1)

	deals := []ledger.DealInput{
		{
			DealNumber:   "D-1001",
			CustomerName: "Rivera",
			StockNumber:  "S4411",
			VINLast8:     "7H2K9F31",
			VehicleType:  ledger.VehicleNew,
			Manufacturer: "Honda",
			DealType:     ledger.DealFinance,
			SaleDate:     monthStart.AddDays(1),
			Status:       ledger.StatusFunded,
			FrontEndGross: decimal.NewFromInt(1800),
			ReserveFlat:   decimal.NewFromInt(300),
			Products: ledger.ProductProfits{
				VSC: decimal.NewFromInt(1200),
				GAP: decimal.NewFromInt(600),
			},
			SalespersonID: jordan.ID,
		},
		{
			DealNumber:   "D-1002",
			CustomerName: "Chen",
			StockNumber:  "S4432",
			VINLast8:     "3N8M2T44",
			VehicleType:  ledger.VehicleUsed,
			Manufacturer: "Toyota",
			DealType:     ledger.DealCash,
			SaleDate:     monthStart.AddDays(4),
			Status:       ledger.StatusPending,
			FrontEndGross: decimal.NewFromInt(950),
			Products: ledger.ProductProfits{
				PPM:       decimal.NewFromInt(450),
				TireWheel: decimal.NewFromInt(350),
			},
			SalespersonID: morgan.ID,
		},
		{
			DealNumber:   "D-1003",
			CustomerName: "Okafor",
			StockNumber:  "S4455",
			VINLast8:     "9C4R7L18",
			VehicleType:  ledger.VehicleCPO,
			Manufacturer: "BMW",
			DealType:     ledger.DealLease,
			SaleDate:     monthStart.AddDays(7),
			Status:       ledger.StatusFunded,
			FrontEndGross: decimal.NewFromInt(2400),
			ReserveFlat:   decimal.NewFromInt(150),
			Products: ledger.ProductProfits{
				VSC:        decimal.NewFromInt(1500),
				Appearance: decimal.NewFromInt(400),
				ExtWarranty: decimal.NewFromInt(250),
			},
			SalespersonID:       jordan.ID,
			SecondSalespersonID: morgan.ID,
			IsSplitDeal:         true,
		},
	}

	for _, input := range deals {
		if _, err := h.Deals.CreateDeal(ctx, userID, input); err != nil {
			return fmt.Errorf("seed deal %s: %w", input.DealNumber, err)
		}
	}
	return nil
}
