// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package api

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/ManuGH/leavegate/internal/audit"
	"github.com/ManuGH/leavegate/internal/auth"
	"github.com/ManuGH/leavegate/internal/domain/leave/manager"
	"github.com/ManuGH/leavegate/internal/domain/leave/model"
	"github.com/ManuGH/leavegate/internal/domain/leave/query"
	"github.com/ManuGH/leavegate/internal/domain/leave/report"
	"github.com/ManuGH/leavegate/internal/log"
	"github.com/go-chi/chi/v5"
)

// leaveView is a request as returned by the API. Store bookkeeping (seq and
// unix timestamps) stays out of the response.
type leaveView struct {
	ID             string       `json:"id"`
	StudentID      string       `json:"studentId"`
	StudentName    string       `json:"studentName"`
	HostelName     string       `json:"hostelName"`
	RoomNumber     string       `json:"roomNumber"`
	Reason         string       `json:"reason"`
	StartDate      model.Date   `json:"startDate"`
	EndDate        model.Date   `json:"endDate"`
	DurationDays   int          `json:"durationDays"`
	ContactDetails string       `json:"contactDetails"`
	Status         model.Status `json:"status"`
	AppliedDate    model.Date   `json:"appliedDate"`
	ReviewedBy     string       `json:"reviewedBy,omitempty"`
	ReviewedDate   model.Date   `json:"reviewedDate,omitempty"`
	Comments       string       `json:"comments,omitempty"`
	ParentGate     bool         `json:"parentGate,omitempty"`
}

func viewOf(rec *model.LeaveRequest) leaveView {
	return leaveView{
		ID:             rec.ID,
		StudentID:      rec.StudentID,
		StudentName:    rec.StudentName,
		HostelName:     rec.HostelName,
		RoomNumber:     rec.RoomNumber,
		Reason:         rec.Reason,
		StartDate:      rec.StartDate,
		EndDate:        rec.EndDate,
		DurationDays:   rec.DurationDays(),
		ContactDetails: rec.ContactDetails,
		Status:         rec.Status,
		AppliedDate:    rec.AppliedDate,
		ReviewedBy:     rec.ReviewedBy,
		ReviewedDate:   rec.ReviewedDate,
		Comments:       rec.Comments,
		ParentGate:     rec.ParentGate,
	}
}

type listResponse struct {
	Items []leaveView `json:"items"`
	Stats query.Stats `json:"stats"`
}

type verifyRequest struct {
	Code string `json:"code"`
}

func principal(r *http.Request) auth.Principal {
	p, _ := auth.PrincipalFromContext(r.Context())
	return p
}

func filterFrom(r *http.Request) query.Filter {
	q := r.URL.Query()
	return query.Filter{
		Status: strings.TrimSpace(q.Get("status")),
		Search: q.Get("search"),
		From:   model.Date(strings.TrimSpace(q.Get("from"))),
		To:     model.Date(strings.TrimSpace(q.Get("to"))),
	}
}

// handleListLeaves returns the visible requests and their counts.
// GET /api/v1/leaves?status=&search=&from=&to=
func (s *Server) handleListLeaves(w http.ResponseWriter, r *http.Request) {
	listing, err := s.engine.List(r.Context(), principal(r), filterFrom(r))
	if err != nil {
		respondEngineError(w, r, err)
		return
	}
	resp := listResponse{Items: make([]leaveView, 0, len(listing.Items)), Stats: listing.Stats}
	for _, rec := range listing.Items {
		resp.Items = append(resp.Items, viewOf(rec))
	}
	writeJSON(w, http.StatusOK, resp)
}

// handleSubmitLeave creates a request for the calling student.
// POST /api/v1/leaves
func (s *Server) handleSubmitLeave(w http.ResponseWriter, r *http.Request) {
	var in manager.SubmitInput
	if !decodeJSON(w, r, &in) {
		return
	}
	rec, err := s.engine.Submit(r.Context(), principal(r), in)
	if err != nil {
		respondEngineError(w, r, err)
		return
	}
	w.Header().Set("Location", "/api/v1/leaves/"+rec.ID)
	writeJSON(w, http.StatusCreated, viewOf(rec))
}

// handleGetLeave returns one visible request.
// GET /api/v1/leaves/{id}
func (s *Server) handleGetLeave(w http.ResponseWriter, r *http.Request) {
	rec, err := s.engine.Get(r.Context(), chi.URLParam(r, "id"), principal(r))
	if err != nil {
		respondEngineError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, viewOf(rec))
}

// handleDecideLeave applies a reviewer decision.
// POST /api/v1/leaves/{id}/decision
func (s *Server) handleDecideLeave(w http.ResponseWriter, r *http.Request) {
	var in manager.DecisionInput
	if !decodeJSON(w, r, &in) {
		return
	}
	rec, err := s.engine.Decide(r.Context(), chi.URLParam(r, "id"), principal(r), in)
	if err != nil {
		respondEngineError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, viewOf(rec))
}

// handleVerifyOTP lets the linked parent confirm a gated approval.
// POST /api/v1/leaves/{id}/otp/verify
func (s *Server) handleVerifyOTP(w http.ResponseWriter, r *http.Request) {
	p := principal(r)
	if !s.allowOTP(w, r, p) {
		return
	}
	var body verifyRequest
	if !decodeJSON(w, r, &body) {
		return
	}
	rec, err := s.engine.VerifyOTP(r.Context(), chi.URLParam(r, "id"), p, body.Code)
	if err != nil {
		respondEngineError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, viewOf(rec))
}

// handleResendOTP re-issues the parent challenge.
// POST /api/v1/leaves/{id}/otp/resend
func (s *Server) handleResendOTP(w http.ResponseWriter, r *http.Request) {
	p := principal(r)
	if !s.allowOTP(w, r, p) {
		return
	}
	info, err := s.engine.ResendOTP(r.Context(), chi.URLParam(r, "id"), p)
	if err != nil {
		respondEngineError(w, r, err)
		return
	}
	writeJSON(w, http.StatusAccepted, info)
}

// allowOTP applies the per-principal OTP limiter.
func (s *Server) allowOTP(w http.ResponseWriter, r *http.Request, p auth.Principal) bool {
	if s.otpLimiter.Allow(p.ID) {
		return true
	}
	s.audit.RateLimited(r.Context(), p.ID, r.URL.Path)
	w.Header().Set("Retry-After", s.otpRetryAfter)
	RespondError(w, r, http.StatusTooManyRequests, ErrRateLimitExceeded)
	return false
}

// handleExportLeaves streams the visible, filtered history as CSV.
// GET /api/v1/leaves/export.csv
func (s *Server) handleExportLeaves(w http.ResponseWriter, r *http.Request) {
	p := principal(r)
	listing, err := s.engine.List(r.Context(), p, filterFrom(r))
	if err != nil {
		respondEngineError(w, r, err)
		return
	}
	body := report.CSV(listing.Items)
	s.audit.LogFromContext(r.Context(), audit.Event{
		Type:     audit.EventExport,
		Actor:    p.ID,
		Role:     p.Role,
		Action:   "exported leave history",
		Resource: "leaves",
		Result:   audit.ResultSuccess,
		Details:  map[string]string{"rows": strconv.Itoa(len(listing.Items))},
	})

	w.Header().Set("Content-Type", report.ContentType)
	w.Header().Set("Content-Disposition", `attachment; filename="`+report.FileName(s.now())+`"`)
	w.Header().Set("Content-Length", strconv.Itoa(len(body)))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(body); err != nil {
		logger := log.FromContext(r.Context())
		logger.Warn().Err(err).Msg("csv export write failed")
	}
}
