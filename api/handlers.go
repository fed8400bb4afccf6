/*
handlers.go - HTTP API handlers for the deal ledger

PURPOSE:
  Exposes the deal-ledger engine via REST. Handles HTTP request/response,
  JSON serialization, and delegates to domain logic. Identity resolution
  happens upstream: every route carries an opaque {userID} and this layer
  does nothing else with it.

ENDPOINTS:
  Team:
    GET    /api/users/{userID}/team                     List roster
    POST   /api/users/{userID}/team                     Add member
    DELETE /api/users/{userID}/team/{memberID}          Remove member
    POST   /api/users/{userID}/team/{memberID}/toggle   Flip active

  Deals:
    GET    /api/users/{userID}/deals                    Active ledger
    POST   /api/users/{userID}/deals                    Create deal
    PUT    /api/users/{userID}/deals/{dealID}           Full update
    POST   /api/users/{userID}/deals/{dealID}/status    Status change
    DELETE /api/users/{userID}/deals/{dealID}           Delete deal

  Archives:
    GET    /api/users/{userID}/archives                 Month keys, desc
    GET    /api/users/{userID}/archives/{month}         Frozen snapshot
    POST   /api/users/{userID}/rollover                 Manual rollover check

  Derived:
    GET    /api/users/{userID}/metrics?range=...        Metrics
    GET    /api/users/{userID}/pay?range=...            Pay breakdown
    GET    /api/users/{userID}/payplan                  Pay plan
    PUT    /api/users/{userID}/payplan                  Save pay plan

REQUEST FLOW:
  Routes that read deal data run the month-rollover check FIRST (it may
  archive and reset the active ledger), then select the date range, then
  hand the filtered list to the pure engines.

RANGE SELECTION:
  ?range accepts the selectors from metrics/daterange.go plus a literal
  YYYY-MM archive key. Archive keys bypass date filtering: the bucket's
  full contents are used as-is. Other selectors filter the active ledger
  merged with any archived buckets overlapping the window.

ERROR HANDLING:
  - 400: validation errors, illegal transitions, bad range params
  - 404: unknown deal/member
  - 500: store failures

SEE ALSO:
  - dto.go: Request/response data structures
  - server.go: Router setup and middleware
*/
package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/warp/dealdesk/ledger"
	"github.com/warp/dealdesk/metrics"
	"github.com/warp/dealdesk/pay"
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Store    ledger.Store
	Events   *ledger.Broadcaster
	Roster   *ledger.Roster
	Deals    *ledger.DealLedger
	Archiver *ledger.Archiver
	PayPlans *pay.ConfigManager

	now func() time.Time
}

// NewHandler wires the domain components over the given store.
func NewHandler(store ledger.Store) *Handler {
	events := ledger.NewBroadcaster()
	roster := ledger.NewRoster(store, events)
	return &Handler{
		Store:    store,
		Events:   events,
		Roster:   roster,
		Deals:    ledger.NewDealLedger(store, roster, events),
		Archiver: ledger.NewArchiver(store, events),
		PayPlans: pay.NewConfigManager(store, events),
		now:      time.Now,
	}
}

// WithClock overrides the handler's clock (and its components'). Tests only.
func (h *Handler) WithClock(now func() time.Time) *Handler {
	h.now = now
	h.Deals.WithClock(now)
	h.Archiver.WithClock(now)
	return h
}

// =============================================================================
// TEAM HANDLERS
// =============================================================================

func (h *Handler) ListTeam(w http.ResponseWriter, r *http.Request) {
	members, err := h.Roster.ListMembers(r.Context(), chi.URLParam(r, "userID"))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list team", err)
		return
	}
	writeJSON(w, http.StatusOK, members)
}

func (h *Handler) AddTeamMember(w http.ResponseWriter, r *http.Request) {
	var req AddTeamMemberRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	member, err := h.Roster.AddMember(r.Context(), chi.URLParam(r, "userID"),
		req.FirstName, req.LastName, req.Role)
	if err != nil {
		writeDomainError(w, "Failed to add team member", err)
		return
	}
	writeJSON(w, http.StatusCreated, member)
}

func (h *Handler) RemoveTeamMember(w http.ResponseWriter, r *http.Request) {
	err := h.Roster.RemoveMember(r.Context(),
		chi.URLParam(r, "userID"), chi.URLParam(r, "memberID"))
	if err != nil {
		writeDomainError(w, "Failed to remove team member", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) ToggleTeamMember(w http.ResponseWriter, r *http.Request) {
	err := h.Roster.ToggleActive(r.Context(),
		chi.URLParam(r, "userID"), chi.URLParam(r, "memberID"))
	if err != nil {
		writeDomainError(w, "Failed to toggle team member", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// =============================================================================
// DEAL HANDLERS
// =============================================================================

func (h *Handler) ListDeals(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")
	ctx := r.Context()

	// Home-view activation: rollover runs before any deal read.
	if _, err := h.Archiver.EnsureCurrentMonth(ctx, userID); err != nil {
		writeError(w, http.StatusInternalServerError, "Rollover check failed", err)
		return
	}

	deals, err := h.Deals.ListDeals(ctx, userID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list deals", err)
		return
	}
	writeJSON(w, http.StatusOK, deals)
}

func (h *Handler) CreateDeal(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")
	ctx := r.Context()

	var input ledger.DealInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	if _, err := h.Archiver.EnsureCurrentMonth(ctx, userID); err != nil {
		writeError(w, http.StatusInternalServerError, "Rollover check failed", err)
		return
	}

	deal, err := h.Deals.CreateDeal(ctx, userID, input)
	if err != nil {
		writeDomainError(w, "Failed to create deal", err)
		return
	}
	writeJSON(w, http.StatusCreated, deal)
}

func (h *Handler) UpdateDeal(w http.ResponseWriter, r *http.Request) {
	var input ledger.DealInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	deal, err := h.Deals.UpdateDeal(r.Context(),
		chi.URLParam(r, "userID"), chi.URLParam(r, "dealID"), input)
	if err != nil {
		writeDomainError(w, "Failed to update deal", err)
		return
	}
	writeJSON(w, http.StatusOK, deal)
}

func (h *Handler) SetDealStatus(w http.ResponseWriter, r *http.Request) {
	var req SetStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	err := h.Deals.SetStatus(r.Context(),
		chi.URLParam(r, "userID"), chi.URLParam(r, "dealID"), req.Status)
	if err != nil {
		writeDomainError(w, "Failed to set deal status", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) DeleteDeal(w http.ResponseWriter, r *http.Request) {
	err := h.Deals.DeleteDeal(r.Context(),
		chi.URLParam(r, "userID"), chi.URLParam(r, "dealID"))
	if err != nil {
		writeDomainError(w, "Failed to delete deal", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// =============================================================================
// ARCHIVE HANDLERS
// =============================================================================

func (h *Handler) ListArchives(w http.ResponseWriter, r *http.Request) {
	months, err := h.Archiver.ListArchivedMonths(r.Context(), chi.URLParam(r, "userID"))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list archives", err)
		return
	}
	writeJSON(w, http.StatusOK, ArchiveListResponse{Months: months})
}

func (h *Handler) GetArchive(w http.ResponseWriter, r *http.Request) {
	month, ok := ledger.ParseMonthKey(chi.URLParam(r, "month"))
	if !ok {
		writeError(w, http.StatusBadRequest, "Invalid month key (use YYYY-MM)", nil)
		return
	}

	deals, err := h.Archiver.ArchivedDeals(r.Context(), chi.URLParam(r, "userID"), month)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to read archive", err)
		return
	}
	writeJSON(w, http.StatusOK, deals)
}

// RunRollover triggers the month-rollover check on demand. The check also
// runs on every deal read and on the scheduler tick; this endpoint exists
// for operational use (forcing the transition right after a clock change,
// or verifying a user's marker state).
func (h *Handler) RunRollover(w http.ResponseWriter, r *http.Request) {
	result, err := h.Archiver.EnsureCurrentMonth(r.Context(), chi.URLParam(r, "userID"))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Rollover check failed", err)
		return
	}
	writeJSON(w, http.StatusOK, RolloverResponse{
		Rolled:        result.Rolled,
		ArchivedMonth: string(result.ArchivedMonth),
	})
}

// =============================================================================
// METRICS & PAY HANDLERS
// =============================================================================

func (h *Handler) GetMetrics(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")
	ctx := r.Context()

	if _, err := h.Archiver.EnsureCurrentMonth(ctx, userID); err != nil {
		writeError(w, http.StatusInternalServerError, "Rollover check failed", err)
		return
	}

	deals, rangeLabel, window, err := h.dealsForRange(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid range", err)
		return
	}

	resp := MetricsResponse{Range: rangeLabel, Metrics: metrics.Compute(deals)}
	if window != nil {
		resp.Start = window.Start.String()
		resp.End = window.End.String()
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) GetPay(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")
	ctx := r.Context()

	if _, err := h.Archiver.EnsureCurrentMonth(ctx, userID); err != nil {
		writeError(w, http.StatusInternalServerError, "Rollover check failed", err)
		return
	}

	deals, rangeLabel, _, err := h.dealsForRange(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid range", err)
		return
	}

	// The CURRENT pay plan applies even to archived months; plans are
	// never versioned.
	config, err := h.PayPlans.Get(ctx, userID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to load pay plan", err)
		return
	}

	writeJSON(w, http.StatusOK, PayResponse{
		Range:     rangeLabel,
		Config:    config,
		Breakdown: pay.Compute(deals, config),
	})
}

func (h *Handler) GetPayPlan(w http.ResponseWriter, r *http.Request) {
	config, err := h.PayPlans.Get(r.Context(), chi.URLParam(r, "userID"))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to load pay plan", err)
		return
	}
	writeJSON(w, http.StatusOK, config)
}

func (h *Handler) SavePayPlan(w http.ResponseWriter, r *http.Request) {
	var config pay.PayPlanConfig
	if err := json.NewDecoder(r.Body).Decode(&config); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	if err := h.PayPlans.Save(r.Context(), chi.URLParam(r, "userID"), config); err != nil {
		writeDomainError(w, "Failed to save pay plan", err)
		return
	}
	writeJSON(w, http.StatusOK, config)
}

// =============================================================================
// RANGE SELECTION
// =============================================================================

// dealsForRange resolves the ?range parameter and returns the deal list the
// pure engines should consume. An archived YYYY-MM key returns the bucket
// verbatim (window is nil); selectors return the active ledger merged with
// overlapping archive buckets, filtered by sale date.
func (h *Handler) dealsForRange(r *http.Request) ([]ledger.Deal, string, *metrics.Range, error) {
	userID := chi.URLParam(r, "userID")
	ctx := r.Context()

	rangeParam := r.URL.Query().Get("range")
	if rangeParam == "" {
		rangeParam = string(metrics.SelectThisMonth)
	}

	if month, ok := ledger.ParseMonthKey(rangeParam); ok {
		deals, err := h.Archiver.ArchivedDeals(ctx, userID, month)
		if err != nil {
			return nil, "", nil, err
		}
		return deals, rangeParam, nil, nil
	}

	var customStart, customEnd ledger.Date
	if s := r.URL.Query().Get("start"); s != "" {
		parsed, err := ledger.ParseDate(s)
		if err != nil {
			return nil, "", nil, err
		}
		customStart = parsed
	}
	if s := r.URL.Query().Get("end"); s != "" {
		parsed, err := ledger.ParseDate(s)
		if err != nil {
			return nil, "", nil, err
		}
		customEnd = parsed
	}

	window, err := metrics.ResolveRange(metrics.Selector(rangeParam), h.now(), customStart, customEnd)
	if err != nil {
		return nil, "", nil, err
	}

	deals, err := h.Deals.ListDeals(ctx, userID)
	if err != nil {
		return nil, "", nil, err
	}

	months, err := h.Archiver.ListArchivedMonths(ctx, userID)
	if err != nil {
		return nil, "", nil, err
	}
	for _, month := range months {
		start, end := month.Bounds()
		if end.Before(window.Start) || start.After(window.End) {
			continue
		}
		archived, err := h.Archiver.ArchivedDeals(ctx, userID, month)
		if err != nil {
			return nil, "", nil, err
		}
		deals = append(deals, archived...)
	}

	return metrics.FilterByRange(deals, window), rangeParam, &window, nil
}

// =============================================================================
// RESPONSE HELPERS
// =============================================================================

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}

// writeDomainError maps domain errors onto HTTP statuses: validation and
// transition failures are 400 (with the field map when present), missing
// records are 404, everything else is 500.
func writeDomainError(w http.ResponseWriter, message string, err error) {
	var verr *ledger.ValidationError
	switch {
	case errors.As(err, &verr):
		writeJSON(w, http.StatusBadRequest, ErrorResponse{
			Error:  message,
			Fields: verr.Fields,
		})
	case ledger.IsClientError(err):
		writeError(w, http.StatusBadRequest, message, err)
	case ledger.IsNotFound(err):
		writeError(w, http.StatusNotFound, message, err)
	default:
		writeError(w, http.StatusInternalServerError, message, err)
	}
}
