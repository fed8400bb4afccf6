/*
deals.go - Deal CRUD over the active (current-month) ledger

PURPOSE:
  Create, update, re-status, delete, and list deals for the month in
  progress. The active ledger is stored most-recent-first and persisted
  wholesale on every write.

CRITICAL INVARIANTS:
  1. DERIVED CONSISTENCY: backEndGross and totalGross are recomputed on
     every create/update. Caller-supplied values are ignored.
  2. SNAPSHOT DISPLAY: the salesperson display string is captured at
     write time from the roster. Roster edits never rewrite logged deals.
  3. ACTIVE ONLY: update and delete touch the active ledger exclusively.
     Archived deals are frozen; a missing id is reported, not ignored.
  4. CREATED-AT ONCE: createdAt is set on creation and never mutated.

SEE ALSO:
  - rollover.go: Moves the active ledger into an archive bucket
  - migrate.go: Normalizes legacy stored records on read
*/
package ledger

import (
	"context"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// VIN last-8 check: alphanumeric, excluding I, O, Q (never used in VINs).
var vinRe = regexp.MustCompile(`^[A-HJ-NPR-Za-hj-npr-z0-9]{8}$`)

// =============================================================================
// DEAL INPUT
// =============================================================================

// DealInput is the already-typed record the UI boundary hands over.
// Derived fields are absent on purpose: the ledger computes them.
type DealInput struct {
	// DealNumber, if set, becomes the deal id. Otherwise one is generated.
	DealNumber string `json:"dealNumber,omitempty"`

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
	Products      ProductProfits  `json:"products"`

	SalespersonID       string `json:"salespersonId"`
	SecondSalespersonID string `json:"secondSalespersonId,omitempty"`
	IsSplitDeal         bool   `json:"isSplitDeal"`

	Notes string `json:"notes,omitempty"`
}

// =============================================================================
// DEAL LEDGER
// =============================================================================

// DealLedger manages the active month's deals for each user.
type DealLedger struct {
	store  Store
	roster *Roster
	events *Broadcaster
	now    func() time.Time
}

func NewDealLedger(store Store, roster *Roster, events *Broadcaster) *DealLedger {
	return &DealLedger{store: store, roster: roster, events: events, now: time.Now}
}

// WithClock overrides the ledger's clock. Tests only.
func (l *DealLedger) WithClock(now func() time.Time) *DealLedger {
	l.now = now
	return l
}

// ListDeals returns the active ledger, most-recent-first as stored.
// Never nil.
func (l *DealLedger) ListDeals(ctx context.Context, userID string) ([]Deal, error) {
	return readDealList(ctx, l.store, KindDeals, userID)
}

// CreateDeal validates the input, assigns an id, computes derived fields
// and the salesperson display string, prepends the deal, and persists the
// full ledger.
func (l *DealLedger) CreateDeal(ctx context.Context, userID string, input DealInput) (Deal, error) {
	if err := l.validate(input); err != nil {
		return Deal{}, err
	}

	deals, err := l.ListDeals(ctx, userID)
	if err != nil {
		return Deal{}, err
	}

	id := strings.TrimSpace(input.DealNumber)
	if id == "" {
		id = uuid.NewString()
	}
	for _, d := range deals {
		if d.ID == id {
			return Deal{}, ErrDuplicateDealID
		}
	}

	deal, err := l.buildDeal(ctx, userID, id, input)
	if err != nil {
		return Deal{}, err
	}
	deal.CreatedAt = l.now().UTC()

	// Most-recent-first.
	deals = append([]Deal{deal}, deals...)
	if err := l.persist(ctx, userID, deals); err != nil {
		return Deal{}, err
	}
	return deal, nil
}

// UpdateDeal replaces the record matching dealId in place (ledger order
// unchanged) and recomputes derived fields. Reports ErrDealNotFound for
// ids not in the active ledger; archived deals are never editable.
func (l *DealLedger) UpdateDeal(ctx context.Context, userID, dealID string, input DealInput) (Deal, error) {
	if err := l.validate(input); err != nil {
		return Deal{}, err
	}

	deals, err := l.ListDeals(ctx, userID)
	if err != nil {
		return Deal{}, err
	}

	idx := indexOfDeal(deals, dealID)
	if idx < 0 {
		return Deal{}, ErrDealNotFound
	}

	deal, err := l.buildDeal(ctx, userID, dealID, input)
	if err != nil {
		return Deal{}, err
	}
	deal.CreatedAt = deals[idx].CreatedAt

	deals[idx] = deal
	if err := l.persist(ctx, userID, deals); err != nil {
		return Deal{}, err
	}
	return deal, nil
}

// SetStatus changes only the status of a deal, enforcing the status state
// machine. Full edits through UpdateDeal remain an operator override.
func (l *DealLedger) SetStatus(ctx context.Context, userID, dealID string, newStatus DealStatus) error {
	if !isKnownStatus(newStatus) {
		verr := newValidationError()
		verr.add("status", "unknown status "+string(newStatus))
		return verr
	}

	deals, err := l.ListDeals(ctx, userID)
	if err != nil {
		return err
	}

	idx := indexOfDeal(deals, dealID)
	if idx < 0 {
		return ErrDealNotFound
	}

	from := deals[idx].Status
	if from == newStatus {
		return nil
	}
	if !CanTransition(from, newStatus) {
		return &TransitionError{From: from, To: newStatus}
	}

	deals[idx].Status = newStatus
	return l.persist(ctx, userID, deals)
}

// DeleteDeal removes a deal from the active ledger. There is no undo; the
// caller boundary owns confirmation. Reports ErrDealNotFound so callers
// can distinguish "nothing to do" from "something is wrong".
func (l *DealLedger) DeleteDeal(ctx context.Context, userID, dealID string) error {
	deals, err := l.ListDeals(ctx, userID)
	if err != nil {
		return err
	}

	idx := indexOfDeal(deals, dealID)
	if idx < 0 {
		return ErrDealNotFound
	}

	deals = append(deals[:idx], deals[idx+1:]...)
	return l.persist(ctx, userID, deals)
}

// =============================================================================
// INTERNALS
// =============================================================================

func (l *DealLedger) persist(ctx context.Context, userID string, deals []Deal) error {
	if err := setJSON(ctx, l.store, KindDeals, userID, toStoredList(deals)); err != nil {
		return err
	}
	l.events.Publish(Change{UserID: userID, Kind: ChangeDeals, Deals: deals})
	return nil
}

// buildDeal assembles a canonical Deal from input, recomputing derived
// fields and snapshotting the salesperson display string.
func (l *DealLedger) buildDeal(ctx context.Context, userID, id string, input DealInput) (Deal, error) {
	display, err := l.salespersonDisplay(ctx, userID, input)
	if err != nil {
		return Deal{}, err
	}

	status := input.Status
	if status == "" {
		status = StatusPending
	}
	dealType := input.DealType
	if dealType != DealFinance && dealType != DealCash && dealType != DealLease {
		dealType = DealFinance
	}

	deal := Deal{
		ID:                  id,
		CustomerName:        strings.TrimSpace(input.CustomerName),
		StockNumber:         strings.TrimSpace(input.StockNumber),
		VINLast8:            strings.ToUpper(strings.TrimSpace(input.VINLast8)),
		VehicleType:         input.VehicleType,
		Manufacturer:        strings.TrimSpace(input.Manufacturer),
		DealType:            dealType,
		SaleDate:            input.SaleDate,
		Status:              status,
		FrontEndGross:       input.FrontEndGross,
		ReserveFlat:         input.ReserveFlat,
		Products:            input.Products,
		SalespersonID:       input.SalespersonID,
		SecondSalespersonID: input.SecondSalespersonID,
		IsSplitDeal:         input.IsSplitDeal,
		SalespersonDisplay:  display,
		Notes:               input.Notes,
	}
	deal.recomputeDerived()
	return deal, nil
}

// salespersonDisplay renders the denormalized display string: the primary
// member's initials, "/"-joined with the second member's on a split deal,
// with a " (Split)" suffix. Unknown ids fall back to the raw id so a deal
// can still be logged against a just-removed member.
func (l *DealLedger) salespersonDisplay(ctx context.Context, userID string, input DealInput) (string, error) {
	label := func(memberID string) (string, error) {
		m, ok, err := l.roster.findMember(ctx, userID, memberID)
		if err != nil {
			return "", err
		}
		if !ok {
			return memberID, nil
		}
		return m.Initials, nil
	}

	primary, err := label(input.SalespersonID)
	if err != nil {
		return "", err
	}
	if !input.IsSplitDeal || input.SecondSalespersonID == "" {
		return primary, nil
	}
	second, err := label(input.SecondSalespersonID)
	if err != nil {
		return "", err
	}
	return primary + "/" + second + " (Split)", nil
}

func (l *DealLedger) validate(input DealInput) error {
	verr := newValidationError()

	if strings.TrimSpace(input.CustomerName) == "" {
		verr.add("customerName", "is required")
	}
	if input.SalespersonID == "" {
		verr.add("salespersonId", "is required")
	}
	if input.IsSplitDeal && input.SecondSalespersonID == "" {
		verr.add("secondSalespersonId", "is required for a split deal")
	}
	if input.SaleDate.IsZero() {
		verr.add("saleDate", "is required")
	}
	if vin := strings.TrimSpace(input.VINLast8); vin != "" && !vinRe.MatchString(vin) {
		verr.add("vinLast8", "must be exactly 8 alphanumeric characters (I, O, Q not allowed)")
	}
	if input.Status != "" && !isKnownStatus(input.Status) {
		verr.add("status", "unknown status "+string(input.Status))
	}
	if input.VehicleType != "" &&
		input.VehicleType != VehicleNew && input.VehicleType != VehicleUsed && input.VehicleType != VehicleCPO {
		verr.add("vehicleType", "must be New, Used, or CPO")
	}

	if input.FrontEndGross.IsNegative() {
		verr.add("frontEndGross", "must not be negative")
	}
	if input.ReserveFlat.IsNegative() {
		verr.add("reserveFlat", "must not be negative")
	}
	for field, v := range map[string]decimal.Decimal{
		"products.vsc":            input.Products.VSC,
		"products.gap":            input.Products.GAP,
		"products.ppm":            input.Products.PPM,
		"products.tireWheel":      input.Products.TireWheel,
		"products.appearance":     input.Products.Appearance,
		"products.theft":          input.Products.Theft,
		"products.bundled":        input.Products.Bundled,
		"products.keyReplacement": input.Products.KeyReplacement,
		"products.windshield":     input.Products.Windshield,
		"products.lojack":         input.Products.LoJack,
		"products.extWarranty":    input.Products.ExtWarranty,
		"products.other":          input.Products.Other,
	} {
		if v.IsNegative() {
			verr.add(field, "must not be negative")
		}
	}

	return verr.orNil()
}

func isKnownStatus(s DealStatus) bool {
	switch s {
	case StatusPending, StatusFunded, StatusHeld, StatusUnwound, StatusDeadDeal:
		return true
	}
	return false
}

func indexOfDeal(deals []Deal, dealID string) int {
	for i, d := range deals {
		if d.ID == dealID {
			return i
		}
	}
	return -1
}
