package ledger_test

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/dealdesk/ledger"
	"github.com/warp/dealdesk/ledger/store"
)

// =============================================================================
// TEST SETUP
// =============================================================================

func newTestRoster(t *testing.T) *ledger.Roster {
	t.Helper()
	return ledger.NewRoster(store.NewMemory(), ledger.NewBroadcaster())
}

// =============================================================================
// ROSTER CRUD
// =============================================================================

func TestRoster_ListMembers_EmptyIsNotNil(t *testing.T) {
	roster := newTestRoster(t)

	members, err := roster.ListMembers(context.Background(), "user-1")
	require.NoError(t, err)
	assert.NotNil(t, members)
	assert.Empty(t, members)
}

func TestRoster_AddMember_DerivesInitials(t *testing.T) {
	roster := newTestRoster(t)
	ctx := context.Background()

	member, err := roster.AddMember(ctx, "user-1", "Jordan", "Diaz", ledger.RoleSalesperson)
	require.NoError(t, err)

	assert.NotEmpty(t, member.ID)
	assert.Equal(t, "JD", member.Initials)
	assert.True(t, member.Active)

	members, err := roster.ListMembers(ctx, "user-1")
	require.NoError(t, err)
	require.Len(t, members, 1)
	assert.Equal(t, member, members[0])
}

func TestRoster_AddMember_AcceptsPunctuatedNames(t *testing.T) {
	roster := newTestRoster(t)
	ctx := context.Background()

	for _, name := range []string{"Mary-Jane", "O'Neill", "St. Clair", "Van Der Berg"} {
		_, err := roster.AddMember(ctx, "user-1", name, "Smith", ledger.RoleSalesperson)
		assert.NoError(t, err, "name %q should be valid", name)
	}
}

func TestRoster_AddMember_Validation(t *testing.T) {
	roster := newTestRoster(t)
	ctx := context.Background()

	tests := []struct {
		name      string
		firstName string
		lastName  string
		role      ledger.Role
		field     string
	}{
		{"empty first name", "", "Diaz", ledger.RoleSalesperson, "firstName"},
		{"empty last name", "Jordan", "", ledger.RoleSalesperson, "lastName"},
		{"digits in name", "J0rdan", "Diaz", ledger.RoleSalesperson, "firstName"},
		{"too long", strings.Repeat("a", 51), "Diaz", ledger.RoleSalesperson, "firstName"},
		{"bad role", "Jordan", "Diaz", ledger.Role("janitor"), "role"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := roster.AddMember(ctx, "user-1", tt.firstName, tt.lastName, tt.role)

			var verr *ledger.ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Contains(t, verr.Fields, tt.field)

			// Nothing persisted on failure.
			members, err := roster.ListMembers(ctx, "user-1")
			require.NoError(t, err)
			assert.Empty(t, members)
		})
	}
}

func TestRoster_RemoveMember_AbsentIsNoOp(t *testing.T) {
	roster := newTestRoster(t)
	ctx := context.Background()

	_, err := roster.AddMember(ctx, "user-1", "Jordan", "Diaz", ledger.RoleSalesperson)
	require.NoError(t, err)

	require.NoError(t, roster.RemoveMember(ctx, "user-1", "no-such-id"))

	members, err := roster.ListMembers(ctx, "user-1")
	require.NoError(t, err)
	assert.Len(t, members, 1)
}

func TestRoster_RemoveMember_RemovesByID(t *testing.T) {
	roster := newTestRoster(t)
	ctx := context.Background()

	keep, err := roster.AddMember(ctx, "user-1", "Jordan", "Diaz", ledger.RoleSalesperson)
	require.NoError(t, err)
	gone, err := roster.AddMember(ctx, "user-1", "Morgan", "Kim", ledger.RoleSalesperson)
	require.NoError(t, err)

	require.NoError(t, roster.RemoveMember(ctx, "user-1", gone.ID))

	members, err := roster.ListMembers(ctx, "user-1")
	require.NoError(t, err)
	require.Len(t, members, 1)
	assert.Equal(t, keep.ID, members[0].ID)
}

func TestRoster_ToggleActive(t *testing.T) {
	roster := newTestRoster(t)
	ctx := context.Background()

	member, err := roster.AddMember(ctx, "user-1", "Jordan", "Diaz", ledger.RoleSalesperson)
	require.NoError(t, err)

	require.NoError(t, roster.ToggleActive(ctx, "user-1", member.ID))

	members, err := roster.ListMembers(ctx, "user-1")
	require.NoError(t, err)
	assert.False(t, members[0].Active)

	// Inactive members drop out of deal-entry selection but stay listed.
	active, err := roster.ActiveMembers(ctx, "user-1")
	require.NoError(t, err)
	assert.Empty(t, active)

	// Unknown id is reported, unlike RemoveMember.
	err = roster.ToggleActive(ctx, "user-1", "no-such-id")
	assert.ErrorIs(t, err, ledger.ErrMemberNotFound)
}

func TestRoster_UsersAreIsolated(t *testing.T) {
	roster := newTestRoster(t)
	ctx := context.Background()

	_, err := roster.AddMember(ctx, "user-1", "Jordan", "Diaz", ledger.RoleSalesperson)
	require.NoError(t, err)

	members, err := roster.ListMembers(ctx, "user-2")
	require.NoError(t, err)
	assert.Empty(t, members)
}
