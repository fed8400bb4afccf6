package ledger_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/dealdesk/ledger"
)

// =============================================================================
// TEST SETUP
// =============================================================================

// rolloverFixture wires a deal ledger and archiver around a settable clock.
type rolloverFixture struct {
	*fixture
	archiver *ledger.Archiver
	clock    time.Time
}

func newRolloverFixture(t *testing.T, start time.Time) *rolloverFixture {
	t.Helper()
	f := newFixture(t)
	rf := &rolloverFixture{fixture: f, clock: start}
	now := func() time.Time { return rf.clock }
	rf.deals.WithClock(now)
	rf.archiver = ledger.NewArchiver(f.store, f.bus).WithClock(now)
	return rf
}

func (rf *rolloverFixture) seedMarchDeals(t *testing.T, count int) {
	t.Helper()
	ctx := context.Background()
	m := rf.addMember(t, "user-1", "Jordan", "Diaz")

	// First run adopts the current month without touching the ledger.
	_, err := rf.archiver.EnsureCurrentMonth(ctx, "user-1")
	require.NoError(t, err)

	for i := 0; i < count; i++ {
		input := dealInput(m.ID)
		input.DealNumber = "D-" + string(rune('1'+i))
		input.SaleDate = ledger.NewDate(2025, time.March, 5+i)
		_, err := rf.deals.CreateDeal(ctx, "user-1", input)
		require.NoError(t, err)
	}
}

var march15 = time.Date(2025, time.March, 15, 10, 0, 0, 0, time.UTC)

// =============================================================================
// MONTH ROLLOVER
// =============================================================================

func TestRollover_ArchivesUnderVacatedMonth(t *testing.T) {
	// GIVEN: 3 deals logged in March, marker at 2025-03
	// WHEN: the clock advances to April 1 and the check runs
	// THEN: the deals are archived under "2025-03" (the VACATED month,
	//       not the new one), the active ledger is cleared, and the
	//       marker advances.

	rf := newRolloverFixture(t, march15)
	ctx := context.Background()
	rf.seedMarchDeals(t, 3)

	rf.clock = time.Date(2025, time.April, 1, 8, 0, 0, 0, time.UTC)
	result, err := rf.archiver.EnsureCurrentMonth(ctx, "user-1")
	require.NoError(t, err)

	assert.True(t, result.Rolled)
	assert.Equal(t, ledger.MonthKey("2025-03"), result.ArchivedMonth)

	active, err := rf.deals.ListDeals(ctx, "user-1")
	require.NoError(t, err)
	assert.Empty(t, active, "active ledger resets after rollover")

	archived, err := rf.archiver.ArchivedDeals(ctx, "user-1", "2025-03")
	require.NoError(t, err)
	assert.Len(t, archived, 3)

	months, err := rf.archiver.ListArchivedMonths(ctx, "user-1")
	require.NoError(t, err)
	assert.Equal(t, []ledger.MonthKey{"2025-03"}, months)
}

func TestRollover_Idempotent(t *testing.T) {
	// Invoking the check twice in the same transition window must produce
	// exactly one bucket and leave the ledger empty both times.

	rf := newRolloverFixture(t, march15)
	ctx := context.Background()
	rf.seedMarchDeals(t, 3)

	rf.clock = time.Date(2025, time.April, 1, 8, 0, 0, 0, time.UTC)

	for i := 0; i < 2; i++ {
		_, err := rf.archiver.EnsureCurrentMonth(ctx, "user-1")
		require.NoError(t, err)

		active, err := rf.deals.ListDeals(ctx, "user-1")
		require.NoError(t, err)
		assert.Empty(t, active, "pass %d", i+1)
	}

	months, err := rf.archiver.ListArchivedMonths(ctx, "user-1")
	require.NoError(t, err)
	assert.Len(t, months, 1, "repeated checks must not duplicate buckets")

	archived, err := rf.archiver.ArchivedDeals(ctx, "user-1", "2025-03")
	require.NoError(t, err)
	assert.Len(t, archived, 3)
}

func TestRollover_SameMonthIsNoOp(t *testing.T) {
	rf := newRolloverFixture(t, march15)
	ctx := context.Background()
	rf.seedMarchDeals(t, 2)

	result, err := rf.archiver.EnsureCurrentMonth(ctx, "user-1")
	require.NoError(t, err)
	assert.False(t, result.Rolled)

	active, err := rf.deals.ListDeals(ctx, "user-1")
	require.NoError(t, err)
	assert.Len(t, active, 2, "same-month check leaves the ledger alone")
}

func TestRollover_EmptyLedgerAdvancesMarkerWithoutBucket(t *testing.T) {
	// No value in archiving nothing: the marker still advances but no
	// bucket appears.

	rf := newRolloverFixture(t, march15)
	ctx := context.Background()

	_, err := rf.archiver.EnsureCurrentMonth(ctx, "user-1")
	require.NoError(t, err)

	rf.clock = time.Date(2025, time.April, 1, 8, 0, 0, 0, time.UTC)
	result, err := rf.archiver.EnsureCurrentMonth(ctx, "user-1")
	require.NoError(t, err)
	assert.True(t, result.Rolled)
	assert.Empty(t, result.ArchivedMonth)

	months, err := rf.archiver.ListArchivedMonths(ctx, "user-1")
	require.NoError(t, err)
	assert.Empty(t, months)

	// Marker advanced: re-running in April is now a no-op.
	result, err = rf.archiver.EnsureCurrentMonth(ctx, "user-1")
	require.NoError(t, err)
	assert.False(t, result.Rolled)
}

func TestRollover_FirstRunKeepsLedger(t *testing.T) {
	// A user with deals but no marker (first run ever) must not lose
	// data: there is no vacated month, so nothing archives and nothing
	// clears.

	rf := newRolloverFixture(t, march15)
	ctx := context.Background()
	m := rf.addMember(t, "user-1", "Jordan", "Diaz")

	_, err := rf.deals.CreateDeal(ctx, "user-1", dealInput(m.ID))
	require.NoError(t, err)

	result, err := rf.archiver.EnsureCurrentMonth(ctx, "user-1")
	require.NoError(t, err)
	assert.True(t, result.Rolled)
	assert.Empty(t, result.ArchivedMonth)

	active, err := rf.deals.ListDeals(ctx, "user-1")
	require.NoError(t, err)
	assert.Len(t, active, 1)
}

func TestRollover_ArchiveIsFrozen(t *testing.T) {
	// Later activity must never touch an existing bucket.

	rf := newRolloverFixture(t, march15)
	ctx := context.Background()
	rf.seedMarchDeals(t, 2)

	rf.clock = time.Date(2025, time.April, 1, 8, 0, 0, 0, time.UTC)
	_, err := rf.archiver.EnsureCurrentMonth(ctx, "user-1")
	require.NoError(t, err)

	// New month activity.
	m := rf.addMember(t, "user-1", "Morgan", "Kim")
	input := dealInput(m.ID)
	input.DealNumber = "D-APRIL"
	input.SaleDate = ledger.NewDate(2025, time.April, 2)
	_, err = rf.deals.CreateDeal(ctx, "user-1", input)
	require.NoError(t, err)

	archived, err := rf.archiver.ArchivedDeals(ctx, "user-1", "2025-03")
	require.NoError(t, err)
	assert.Len(t, archived, 2, "bucket unchanged by new-month writes")
}

func TestRollover_MultipleMonthsSortedDescending(t *testing.T) {
	rf := newRolloverFixture(t, march15)
	ctx := context.Background()
	rf.seedMarchDeals(t, 1)

	// March -> April (archives March), log one, April -> June.
	rf.clock = time.Date(2025, time.April, 10, 0, 0, 0, 0, time.UTC)
	_, err := rf.archiver.EnsureCurrentMonth(ctx, "user-1")
	require.NoError(t, err)

	m := rf.addMember(t, "user-1", "Morgan", "Kim")
	input := dealInput(m.ID)
	input.DealNumber = "D-APR"
	input.SaleDate = ledger.NewDate(2025, time.April, 12)
	_, err = rf.deals.CreateDeal(ctx, "user-1", input)
	require.NoError(t, err)

	rf.clock = time.Date(2025, time.June, 1, 0, 0, 0, 0, time.UTC)
	result, err := rf.archiver.EnsureCurrentMonth(ctx, "user-1")
	require.NoError(t, err)
	// The skipped month means April's deals archive under "2025-04",
	// the marker's month at the time of the check.
	assert.Equal(t, ledger.MonthKey("2025-04"), result.ArchivedMonth)

	months, err := rf.archiver.ListArchivedMonths(ctx, "user-1")
	require.NoError(t, err)
	assert.Equal(t, []ledger.MonthKey{"2025-04", "2025-03"}, months)
}

func TestRollover_UnknownArchiveMonthReturnsEmpty(t *testing.T) {
	rf := newRolloverFixture(t, march15)

	deals, err := rf.archiver.ArchivedDeals(context.Background(), "user-1", "1999-01")
	require.NoError(t, err)
	assert.NotNil(t, deals)
	assert.Empty(t, deals)
}
