/*
Package ledger provides the core deal-ledger engine.

PURPOSE:
  This package contains the domain types and state management for a
  finance manager's monthly deal ledger: the team roster, the active
  deal list, and the month-rollover machinery that archives a finished
  month into a frozen, dated bucket.

KEY CONCEPTS IN THIS FILE (types.go):
  - Deal: A single logged vehicle deal with F&I product profits
  - TeamMember: A salesperson or sales manager on the roster
  - MonthKey: A YYYY-MM identifier used for archive buckets
  - Date: A calendar date (sale dates, range boundaries)

DESIGN PRINCIPLES:
  1. Precision: Uses decimal.Decimal to avoid floating-point errors
  2. Derived consistency: backEndGross/totalGross are recomputed on
     every write, never trusted from the caller
  3. Denormalized history: deals capture the salesperson display string
     at write time; later roster edits never rewrite logged deals
  4. Explicit identity: every operation takes userID as a parameter

SEE ALSO:
  - store.go: Persistence contract underlying roster/deals/archives
  - deals.go: Deal CRUD and derived-field computation
  - rollover.go: Month transition and archival
*/
package ledger

import (
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// DEAL STATUS - Operator-driven state machine
// =============================================================================

type DealStatus string

const (
	StatusPending  DealStatus = "Pending"
	StatusFunded   DealStatus = "Funded"
	StatusHeld     DealStatus = "Held"
	StatusUnwound  DealStatus = "Unwound"
	StatusDeadDeal DealStatus = "Dead Deal"

	// StatusComplete is a legacy synonym for Funded found in older stored
	// ledgers. It is accepted on read and by the pay calculator, never
	// written by this package and never a legal SetStatus target.
	StatusComplete DealStatus = "Complete"
)

// legalTransitions defines the allowed status moves. Unwound and Dead Deal
// are terminal; a full UpdateDeal may still overwrite status (operator
// override), but SetStatus enforces this table.
var legalTransitions = map[DealStatus][]DealStatus{
	StatusPending: {StatusFunded, StatusUnwound, StatusDeadDeal},
	StatusFunded:  {StatusHeld, StatusUnwound, StatusDeadDeal},
	StatusHeld:    {StatusFunded, StatusUnwound, StatusDeadDeal},
}

// CanTransition reports whether moving from -> to is a legal status change.
func CanTransition(from, to DealStatus) bool {
	for _, next := range legalTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// IsFunded reports whether a status counts as funded for compensation
// purposes. "Complete" is the accepted legacy alias.
func (s DealStatus) IsFunded() bool {
	return s == StatusFunded || s == StatusComplete
}

// =============================================================================
// ENUMS
// =============================================================================

type VehicleType string

const (
	VehicleNew  VehicleType = "New"
	VehicleUsed VehicleType = "Used"
	VehicleCPO  VehicleType = "CPO"
)

type DealType string

const (
	DealFinance DealType = "Finance"
	DealCash    DealType = "Cash"
	DealLease   DealType = "Lease"
)

type Role string

const (
	RoleSalesperson  Role = "salesperson"
	RoleSalesManager Role = "sales_manager"
)

// =============================================================================
// TEAM MEMBER
// =============================================================================

type TeamMember struct {
	ID        string `json:"id"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	// Initials are derived once at creation and intentionally NOT
	// recomputed when the name changes. Deals snapshot them anyway.
	Initials string `json:"initials"`
	Role     Role   `json:"role"`
	Active   bool   `json:"active"`
}

// =============================================================================
// PRODUCT PROFITS - One field per F&I product category
// =============================================================================

// ProductProfits holds the per-product profit amounts on a deal.
// All amounts are non-negative USD; zero means "not sold".
type ProductProfits struct {
	VSC            decimal.Decimal `json:"vsc"`
	GAP            decimal.Decimal `json:"gap"`
	PPM            decimal.Decimal `json:"ppm"`
	TireWheel      decimal.Decimal `json:"tireWheel"`
	Appearance     decimal.Decimal `json:"appearance"`
	Theft          decimal.Decimal `json:"theft"`
	Bundled        decimal.Decimal `json:"bundled"`
	KeyReplacement decimal.Decimal `json:"keyReplacement"`
	Windshield     decimal.Decimal `json:"windshield"`
	LoJack         decimal.Decimal `json:"lojack"`
	ExtWarranty    decimal.Decimal `json:"extWarranty"`
	Other          decimal.Decimal `json:"other"`
}

// Sum returns the total profit across every product field.
func (p ProductProfits) Sum() decimal.Decimal {
	total := decimal.Zero
	for _, v := range []decimal.Decimal{
		p.VSC, p.GAP, p.PPM, p.TireWheel, p.Appearance, p.Theft,
		p.Bundled, p.KeyReplacement, p.Windshield, p.LoJack,
		p.ExtWarranty, p.Other,
	} {
		total = total.Add(v)
	}
	return total
}

// MinorSum returns the combined profit of the minor categories that the
// metrics engine reports under "Other".
func (p ProductProfits) MinorSum() decimal.Decimal {
	return p.ExtWarranty.Add(p.KeyReplacement).Add(p.Windshield).Add(p.LoJack).Add(p.Other)
}

// =============================================================================
// DEAL
// =============================================================================

type Deal struct {
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
	Products      ProductProfits  `json:"products"`

	// Derived at write time. Never independently mutable.
	BackEndGross decimal.Decimal `json:"backEndGross"`
	TotalGross   decimal.Decimal `json:"totalGross"`

	SalespersonID       string `json:"salespersonId"`
	SecondSalespersonID string `json:"secondSalespersonId,omitempty"`
	IsSplitDeal         bool   `json:"isSplitDeal"`
	// Display string captured at write time, e.g. "JD" or "JD/MK (Split)".
	// Intentionally denormalized: roster edits never rewrite history.
	SalespersonDisplay string `json:"salespersonDisplay"`

	Notes     string    `json:"notes,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

// GrossValue returns the deal's back-end gross. Legacy records that carried
// a bare "profit" field are normalized into BackEndGross by the store-
// boundary migration (migrate.go), so consumers read one canonical field.
func (d Deal) GrossValue() decimal.Decimal {
	return d.BackEndGross
}

// recomputeDerived enforces the derived-field invariant:
//   backEndGross = sum(product profits) + reserveFlat
//   totalGross   = frontEndGross + backEndGross
func (d *Deal) recomputeDerived() {
	d.BackEndGross = d.Products.Sum().Add(d.ReserveFlat)
	d.TotalGross = d.FrontEndGross.Add(d.BackEndGross)
}

// =============================================================================
// DATE - Calendar date (day granularity)
// =============================================================================

// Date is a calendar date in UTC. Sale dates and range boundaries are
// dates, not instants; comparisons are whole-day.
type Date struct {
	Time time.Time
}

func NewDate(year int, month time.Month, day int) Date {
	return Date{Time: time.Date(year, month, day, 0, 0, 0, 0, time.UTC)}
}

func DateOf(t time.Time) Date {
	return NewDate(t.Year(), t.Month(), t.Day())
}

func ParseDate(s string) (Date, error) {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return Date{}, err
	}
	return Date{Time: t}, nil
}

func (d Date) normalize() time.Time {
	return time.Date(d.Time.Year(), d.Time.Month(), d.Time.Day(), 0, 0, 0, 0, time.UTC)
}

func (d Date) Before(other Date) bool { return d.normalize().Before(other.normalize()) }
func (d Date) After(other Date) bool  { return d.normalize().After(other.normalize()) }
func (d Date) Equal(other Date) bool  { return d.normalize().Equal(other.normalize()) }
func (d Date) IsZero() bool           { return d.Time.IsZero() }

// In reports whether the date falls within [start, end], inclusive.
func (d Date) In(start, end Date) bool {
	return !d.Before(start) && !d.After(end)
}

func (d Date) AddDays(n int) Date   { return Date{Time: d.Time.AddDate(0, 0, n)} }
func (d Date) AddMonths(n int) Date { return Date{Time: d.Time.AddDate(0, n, 0)} }

func (d Date) String() string { return d.normalize().Format("2006-01-02") }

func (d Date) MarshalJSON() ([]byte, error) {
	return []byte(`"` + d.String() + `"`), nil
}

func (d *Date) UnmarshalJSON(data []byte) error {
	s := string(data)
	if s == "null" || s == `""` {
		*d = Date{}
		return nil
	}
	if len(s) >= 2 && s[0] == '"' {
		s = s[1 : len(s)-1]
	}
	// Tolerate full timestamps from older stored records.
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		*d = DateOf(t)
		return nil
	}
	parsed, err := ParseDate(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// =============================================================================
// MONTH KEY - YYYY-MM identifier for archive buckets
// =============================================================================

type MonthKey string

func MonthKeyOf(t time.Time) MonthKey {
	return MonthKey(t.Format("2006-01"))
}

// ParseMonthKey validates a YYYY-MM string.
func ParseMonthKey(s string) (MonthKey, bool) {
	if _, err := time.Parse("2006-01", s); err != nil {
		return "", false
	}
	return MonthKey(s), true
}

// Bounds returns the first and last day of the month.
func (mk MonthKey) Bounds() (Date, Date) {
	t, err := time.Parse("2006-01", string(mk))
	if err != nil {
		return Date{}, Date{}
	}
	start := NewDate(t.Year(), t.Month(), 1)
	end := start.AddMonths(1).AddDays(-1)
	return start, end
}

func (mk MonthKey) String() string { return string(mk) }
