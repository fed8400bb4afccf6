/*
roster.go - Team roster management

PURPOSE:
  CRUD over the salespeople and sales managers a finance manager logs
  deals against. The roster is referenced at deal-entry time only: deals
  snapshot the display string, so removing or renaming a member never
  rewrites history.

VALIDATION:
  Names must be non-empty, at most 50 characters, and contain only
  letters, spaces, hyphens, apostrophes, or periods. Failures come back
  as a *ValidationError (field -> message); nothing is persisted on
  failure.
*/
package ledger

import (
	"context"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"
)

var nameRe = regexp.MustCompile(`^[A-Za-z .'-]+$`)

// Roster manages a user's team members.
type Roster struct {
	store  Store
	events *Broadcaster
}

func NewRoster(store Store, events *Broadcaster) *Roster {
	return &Roster{store: store, events: events}
}

// ListMembers returns the roster, oldest first. Never nil.
func (r *Roster) ListMembers(ctx context.Context, userID string) ([]TeamMember, error) {
	members := []TeamMember{}
	if _, err := getJSON(ctx, r.store, KindTeamMembers, userID, &members); err != nil {
		return nil, err
	}
	return members, nil
}

// ActiveMembers returns only members eligible for deal-entry selection.
func (r *Roster) ActiveMembers(ctx context.Context, userID string) ([]TeamMember, error) {
	members, err := r.ListMembers(ctx, userID)
	if err != nil {
		return nil, err
	}
	active := []TeamMember{}
	for _, m := range members {
		if m.Active {
			active = append(active, m)
		}
	}
	return active, nil
}

// AddMember validates, derives initials, appends with active=true, and
// persists the full roster.
func (r *Roster) AddMember(ctx context.Context, userID, firstName, lastName string, role Role) (TeamMember, error) {
	firstName = strings.TrimSpace(firstName)
	lastName = strings.TrimSpace(lastName)

	verr := newValidationError()
	validateName(verr, "firstName", firstName)
	validateName(verr, "lastName", lastName)
	if role != RoleSalesperson && role != RoleSalesManager {
		verr.add("role", "must be salesperson or sales_manager")
	}
	if err := verr.orNil(); err != nil {
		return TeamMember{}, err
	}

	members, err := r.ListMembers(ctx, userID)
	if err != nil {
		return TeamMember{}, err
	}

	member := TeamMember{
		ID:        uuid.NewString(),
		FirstName: firstName,
		LastName:  lastName,
		Initials:  initialsOf(firstName, lastName),
		Role:      role,
		Active:    true,
	}
	members = append(members, member)

	if err := setJSON(ctx, r.store, KindTeamMembers, userID, members); err != nil {
		return TeamMember{}, err
	}
	r.events.Publish(Change{UserID: userID, Kind: ChangeTeam, Members: members})
	return member, nil
}

// RemoveMember deletes a roster entry by id. Absent ids are a no-op: the
// caller cannot tell, and does not need to. Deals that reference the
// member keep their stored display string.
func (r *Roster) RemoveMember(ctx context.Context, userID, memberID string) error {
	members, err := r.ListMembers(ctx, userID)
	if err != nil {
		return err
	}

	kept := members[:0]
	for _, m := range members {
		if m.ID != memberID {
			kept = append(kept, m)
		}
	}
	if len(kept) == len(members) {
		return nil
	}

	if err := setJSON(ctx, r.store, KindTeamMembers, userID, kept); err != nil {
		return err
	}
	r.events.Publish(Change{UserID: userID, Kind: ChangeTeam, Members: kept})
	return nil
}

// ToggleActive flips a member's active flag. Unlike RemoveMember, an
// unknown id here is reported so callers can distinguish a stale view.
func (r *Roster) ToggleActive(ctx context.Context, userID, memberID string) error {
	members, err := r.ListMembers(ctx, userID)
	if err != nil {
		return err
	}

	found := false
	for i := range members {
		if members[i].ID == memberID {
			members[i].Active = !members[i].Active
			found = true
			break
		}
	}
	if !found {
		return ErrMemberNotFound
	}

	if err := setJSON(ctx, r.store, KindTeamMembers, userID, members); err != nil {
		return err
	}
	r.events.Publish(Change{UserID: userID, Kind: ChangeTeam, Members: members})
	return nil
}

// findMember looks up a member by id. Used by the deal ledger to build
// the denormalized salesperson display string at write time.
func (r *Roster) findMember(ctx context.Context, userID, memberID string) (TeamMember, bool, error) {
	members, err := r.ListMembers(ctx, userID)
	if err != nil {
		return TeamMember{}, false, err
	}
	for _, m := range members {
		if m.ID == memberID {
			return m, true, nil
		}
	}
	return TeamMember{}, false, nil
}

func validateName(verr *ValidationError, field, value string) {
	switch {
	case value == "":
		verr.add(field, "is required")
	case utf8.RuneCountInString(value) > 50:
		verr.add(field, "must be 50 characters or fewer")
	case !nameRe.MatchString(value):
		verr.add(field, "may only contain letters, spaces, hyphens, apostrophes, or periods")
	}
}

func initialsOf(firstName, lastName string) string {
	first, _ := utf8.DecodeRuneInString(firstName)
	last, _ := utf8.DecodeRuneInString(lastName)
	return strings.ToUpper(string(first) + string(last))
}
