package ledger_test

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/dealdesk/ledger"
	"github.com/warp/dealdesk/ledger/store"
)

// =============================================================================
// TEST SETUP
// =============================================================================

type fixture struct {
	store  *store.Memory
	roster *ledger.Roster
	deals  *ledger.DealLedger
	bus    *ledger.Broadcaster
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	mem := store.NewMemory()
	bus := ledger.NewBroadcaster()
	roster := ledger.NewRoster(mem, bus)
	return &fixture{
		store:  mem,
		roster: roster,
		deals:  ledger.NewDealLedger(mem, roster, bus),
		bus:    bus,
	}
}

func (f *fixture) addMember(t *testing.T, userID, first, last string) ledger.TeamMember {
	t.Helper()
	m, err := f.roster.AddMember(context.Background(), userID, first, last, ledger.RoleSalesperson)
	require.NoError(t, err)
	return m
}

func usd(n int64) decimal.Decimal { return decimal.NewFromInt(n) }

func dealInput(salespersonID string) ledger.DealInput {
	return ledger.DealInput{
		CustomerName:  "Rivera",
		StockNumber:   "S4411",
		VINLast8:      "7H2K9F31",
		VehicleType:   ledger.VehicleNew,
		Manufacturer:  "Honda",
		DealType:      ledger.DealFinance,
		SaleDate:      ledger.NewDate(2025, time.March, 10),
		FrontEndGross: usd(1800),
		ReserveFlat:   usd(300),
		Products: ledger.ProductProfits{
			VSC: usd(1200),
			GAP: usd(600),
		},
		SalespersonID: salespersonID,
	}
}

// =============================================================================
// DERIVED-FIELD CONSISTENCY
// =============================================================================

func TestCreateDeal_ComputesDerivedFields(t *testing.T) {
	// GIVEN: products 1200+600, reserve 300, front end 1800
	// THEN: backEndGross = 2100, totalGross = 3900

	f := newFixture(t)
	ctx := context.Background()
	m := f.addMember(t, "user-1", "Jordan", "Diaz")

	deal, err := f.deals.CreateDeal(ctx, "user-1", dealInput(m.ID))
	require.NoError(t, err)

	assert.True(t, deal.BackEndGross.Equal(usd(2100)), "backEndGross = %s", deal.BackEndGross)
	assert.True(t, deal.TotalGross.Equal(usd(3900)), "totalGross = %s", deal.TotalGross)
	assert.Equal(t, ledger.StatusPending, deal.Status, "status defaults to Pending")
	assert.False(t, deal.CreatedAt.IsZero())
}

func TestUpdateDeal_RecomputesDerivedFields(t *testing.T) {
	// Derived fields must hold immediately after ANY update, regardless
	// of what the caller claims they are.

	f := newFixture(t)
	ctx := context.Background()
	m := f.addMember(t, "user-1", "Jordan", "Diaz")

	deal, err := f.deals.CreateDeal(ctx, "user-1", dealInput(m.ID))
	require.NoError(t, err)

	input := dealInput(m.ID)
	input.Products.VSC = usd(2000)
	input.ReserveFlat = usd(0)

	updated, err := f.deals.UpdateDeal(ctx, "user-1", deal.ID, input)
	require.NoError(t, err)

	assert.True(t, updated.BackEndGross.Equal(usd(2600)), "backEndGross = %s", updated.BackEndGross)
	assert.True(t, updated.TotalGross.Equal(usd(4400)), "totalGross = %s", updated.TotalGross)
	assert.True(t, updated.CreatedAt.Equal(deal.CreatedAt), "createdAt never mutates")
}

// =============================================================================
// ROUND TRIP & ORDERING
// =============================================================================

func TestCreateDeal_RoundTrip_MostRecentFirst(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	m := f.addMember(t, "user-1", "Jordan", "Diaz")

	first := dealInput(m.ID)
	first.DealNumber = "D-1"
	second := dealInput(m.ID)
	second.DealNumber = "D-2"

	_, err := f.deals.CreateDeal(ctx, "user-1", first)
	require.NoError(t, err)
	created, err := f.deals.CreateDeal(ctx, "user-1", second)
	require.NoError(t, err)

	deals, err := f.deals.ListDeals(ctx, "user-1")
	require.NoError(t, err)
	require.Len(t, deals, 2)

	assert.Equal(t, "D-2", deals[0].ID, "newest deal is prepended")
	assert.Equal(t, "D-1", deals[1].ID)

	// The stored deal round-trips with identical values.
	got := deals[0]
	assert.Equal(t, created.CustomerName, got.CustomerName)
	assert.Equal(t, created.VINLast8, got.VINLast8)
	assert.Equal(t, created.SalespersonDisplay, got.SalespersonDisplay)
	assert.Equal(t, created.Status, got.Status)
	assert.True(t, created.SaleDate.Equal(got.SaleDate))
	assert.True(t, created.FrontEndGross.Equal(got.FrontEndGross))
	assert.True(t, created.BackEndGross.Equal(got.BackEndGross))
	assert.True(t, created.TotalGross.Equal(got.TotalGross))
	assert.True(t, created.Products.VSC.Equal(got.Products.VSC))
	assert.True(t, created.CreatedAt.Equal(got.CreatedAt))
}

func TestCreateDeal_DuplicateDealNumberRejected(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	m := f.addMember(t, "user-1", "Jordan", "Diaz")

	input := dealInput(m.ID)
	input.DealNumber = "D-1"

	_, err := f.deals.CreateDeal(ctx, "user-1", input)
	require.NoError(t, err)
	_, err = f.deals.CreateDeal(ctx, "user-1", input)
	assert.ErrorIs(t, err, ledger.ErrDuplicateDealID)
}

// =============================================================================
// SALESPERSON DISPLAY SNAPSHOT
// =============================================================================

func TestCreateDeal_SplitDealDisplay(t *testing.T) {
	// GIVEN: split deal, primary "JD", second "MK"
	// THEN: stored display string is "JD/MK (Split)"

	f := newFixture(t)
	ctx := context.Background()
	a := f.addMember(t, "user-1", "Jordan", "Diaz")
	b := f.addMember(t, "user-1", "Morgan", "Kim")

	input := dealInput(a.ID)
	input.IsSplitDeal = true
	input.SecondSalespersonID = b.ID

	deal, err := f.deals.CreateDeal(ctx, "user-1", input)
	require.NoError(t, err)
	assert.Equal(t, "JD/MK (Split)", deal.SalespersonDisplay)
}

func TestDealDisplay_SurvivesRosterRemoval(t *testing.T) {
	// Deals store a denormalized display string; removing the roster
	// entry must not change deals already logged.

	f := newFixture(t)
	ctx := context.Background()
	m := f.addMember(t, "user-1", "Jordan", "Diaz")

	deal, err := f.deals.CreateDeal(ctx, "user-1", dealInput(m.ID))
	require.NoError(t, err)
	require.Equal(t, "JD", deal.SalespersonDisplay)

	require.NoError(t, f.roster.RemoveMember(ctx, "user-1", m.ID))

	deals, err := f.deals.ListDeals(ctx, "user-1")
	require.NoError(t, err)
	assert.Equal(t, "JD", deals[0].SalespersonDisplay)
}

// =============================================================================
// STATUS STATE MACHINE
// =============================================================================

func TestSetStatus_LegalTransitions(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	m := f.addMember(t, "user-1", "Jordan", "Diaz")

	deal, err := f.deals.CreateDeal(ctx, "user-1", dealInput(m.ID))
	require.NoError(t, err)

	// Pending -> Funded -> Held -> Funded -> Unwound
	for _, status := range []ledger.DealStatus{
		ledger.StatusFunded, ledger.StatusHeld, ledger.StatusFunded, ledger.StatusUnwound,
	} {
		require.NoError(t, f.deals.SetStatus(ctx, "user-1", deal.ID, status))
	}
}

func TestSetStatus_IllegalTransitions(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	m := f.addMember(t, "user-1", "Jordan", "Diaz")

	deal, err := f.deals.CreateDeal(ctx, "user-1", dealInput(m.ID))
	require.NoError(t, err)

	// Pending -> Held skips funding.
	err = f.deals.SetStatus(ctx, "user-1", deal.ID, ledger.StatusHeld)
	require.ErrorIs(t, err, ledger.ErrIllegalTransition)

	var terr *ledger.TransitionError
	require.ErrorAs(t, err, &terr)
	assert.Equal(t, ledger.StatusPending, terr.From)
	assert.Equal(t, ledger.StatusHeld, terr.To)

	// Unwound is terminal.
	require.NoError(t, f.deals.SetStatus(ctx, "user-1", deal.ID, ledger.StatusUnwound))
	err = f.deals.SetStatus(ctx, "user-1", deal.ID, ledger.StatusFunded)
	assert.ErrorIs(t, err, ledger.ErrIllegalTransition)
}

func TestUpdateDeal_StatusOverrideAllowed(t *testing.T) {
	// A full edit is an operator override: it may set any status the
	// state machine would reject.

	f := newFixture(t)
	ctx := context.Background()
	m := f.addMember(t, "user-1", "Jordan", "Diaz")

	deal, err := f.deals.CreateDeal(ctx, "user-1", dealInput(m.ID))
	require.NoError(t, err)

	input := dealInput(m.ID)
	input.Status = ledger.StatusHeld

	updated, err := f.deals.UpdateDeal(ctx, "user-1", deal.ID, input)
	require.NoError(t, err)
	assert.Equal(t, ledger.StatusHeld, updated.Status)
}

// =============================================================================
// NOT FOUND & DELETE
// =============================================================================

func TestUpdateDeal_NotFound(t *testing.T) {
	f := newFixture(t)
	m := f.addMember(t, "user-1", "Jordan", "Diaz")

	_, err := f.deals.UpdateDeal(context.Background(), "user-1", "no-such-deal", dealInput(m.ID))
	assert.ErrorIs(t, err, ledger.ErrDealNotFound)
}

func TestDeleteDeal(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	m := f.addMember(t, "user-1", "Jordan", "Diaz")

	deal, err := f.deals.CreateDeal(ctx, "user-1", dealInput(m.ID))
	require.NoError(t, err)

	require.NoError(t, f.deals.DeleteDeal(ctx, "user-1", deal.ID))

	deals, err := f.deals.ListDeals(ctx, "user-1")
	require.NoError(t, err)
	assert.Empty(t, deals)

	// Deleting again is reported, not silently ignored.
	err = f.deals.DeleteDeal(ctx, "user-1", deal.ID)
	assert.ErrorIs(t, err, ledger.ErrDealNotFound)
}

// =============================================================================
// VALIDATION
// =============================================================================

func TestCreateDeal_Validation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	m := f.addMember(t, "user-1", "Jordan", "Diaz")

	tests := []struct {
		name   string
		mutate func(*ledger.DealInput)
		field  string
	}{
		{"missing customer", func(in *ledger.DealInput) { in.CustomerName = " " }, "customerName"},
		{"missing salesperson", func(in *ledger.DealInput) { in.SalespersonID = "" }, "salespersonId"},
		{"missing sale date", func(in *ledger.DealInput) { in.SaleDate = ledger.Date{} }, "saleDate"},
		{"vin too short", func(in *ledger.DealInput) { in.VINLast8 = "7H2K9F3" }, "vinLast8"},
		{"vin contains O", func(in *ledger.DealInput) { in.VINLast8 = "7H2K9FO1" }, "vinLast8"},
		{"vin contains I", func(in *ledger.DealInput) { in.VINLast8 = "IH2K9F31" }, "vinLast8"},
		{"vin contains Q", func(in *ledger.DealInput) { in.VINLast8 = "QH2K9F31" }, "vinLast8"},
		{"negative product", func(in *ledger.DealInput) { in.Products.GAP = usd(-1) }, "products.gap"},
		{"negative front end", func(in *ledger.DealInput) { in.FrontEndGross = usd(-1) }, "frontEndGross"},
		{"split without second", func(in *ledger.DealInput) { in.IsSplitDeal = true }, "secondSalespersonId"},
		{"unknown status", func(in *ledger.DealInput) { in.Status = "Sideways" }, "status"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			input := dealInput(m.ID)
			tt.mutate(&input)

			_, err := f.deals.CreateDeal(ctx, "user-1", input)

			var verr *ledger.ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Contains(t, verr.Fields, tt.field)
		})
	}

	// Whole-write semantics: none of the rejected inputs were persisted.
	deals, err := f.deals.ListDeals(ctx, "user-1")
	require.NoError(t, err)
	assert.Empty(t, deals)
}

// =============================================================================
// CHANGE BROADCAST
// =============================================================================

func TestDealWrites_PublishChanges(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	m := f.addMember(t, "user-1", "Jordan", "Diaz")

	var got []ledger.Change
	cancel := f.bus.Subscribe("user-1", func(c ledger.Change) { got = append(got, c) })
	defer cancel()

	deal, err := f.deals.CreateDeal(ctx, "user-1", dealInput(m.ID))
	require.NoError(t, err)

	require.Len(t, got, 1)
	assert.Equal(t, ledger.ChangeDeals, got[0].Kind)
	require.Len(t, got[0].Deals, 1)
	assert.Equal(t, deal.ID, got[0].Deals[0].ID)

	// Other users' subscribers stay quiet.
	var other []ledger.Change
	cancelOther := f.bus.Subscribe("user-2", func(c ledger.Change) { other = append(other, c) })
	defer cancelOther()

	require.NoError(t, f.deals.DeleteDeal(ctx, "user-1", deal.ID))
	assert.Len(t, got, 2)
	assert.Empty(t, other)
}
