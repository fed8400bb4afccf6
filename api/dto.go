/*
dto.go - Request/response data structures for the HTTP API

PURPOSE:
  Wire shapes for the REST surface. Deal and team-member records already
  carry JSON tags on the domain types and serialize directly; this file
  holds the request envelopes and the composite responses.
*/
package api

import (
	"github.com/warp/dealdesk/ledger"
	"github.com/warp/dealdesk/metrics"
	"github.com/warp/dealdesk/pay"
)

// =============================================================================
// REQUESTS
// =============================================================================

type AddTeamMemberRequest struct {
	FirstName string      `json:"firstName"`
	LastName  string      `json:"lastName"`
	Role      ledger.Role `json:"role"`
}

type SetStatusRequest struct {
	Status ledger.DealStatus `json:"status"`
}

// =============================================================================
// RESPONSES
// =============================================================================

type ErrorResponse struct {
	Error   string            `json:"error"`
	Details string            `json:"details,omitempty"`
	Fields  map[string]string `json:"fields,omitempty"`
}

type ArchiveListResponse struct {
	Months []ledger.MonthKey `json:"months"`
}

type MetricsResponse struct {
	Range   string          `json:"range"`
	Start   string          `json:"start,omitempty"`
	End     string          `json:"end,omitempty"`
	Metrics metrics.Metrics `json:"metrics"`
}

type PayResponse struct {
	Range     string            `json:"range"`
	Config    pay.PayPlanConfig `json:"config"`
	Breakdown pay.Breakdown     `json:"breakdown"`
}

type RolloverResponse struct {
	Rolled        bool   `json:"rolled"`
	ArchivedMonth string `json:"archivedMonth,omitempty"`
}
