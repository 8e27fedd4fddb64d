package httptransport

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"gatepass/internal/credential/models"
	id "gatepass/pkg/domain"
	dErrors "gatepass/pkg/domain-errors"
	"gatepass/pkg/platform/httputil"
)

const (
	defaultEventLimit = 50
	maxEventLimit     = 500
)

// accessEventView is the operator-facing event shape. Unlike the scanner
// response it carries the full denial reason.
type accessEventView struct {
	ID              string `json:"id"`
	SubjectID       string `json:"subject_id,omitempty"`
	RosterID        string `json:"roster_id,omitempty"`
	TokenID         string `json:"token_id,omitempty"`
	Granted         bool   `json:"granted"`
	DenialReason    string `json:"denial_reason,omitempty"`
	ScannerLocation string `json:"scanner_location,omitempty"`
	ScannerDevice   string `json:"scanner_device,omitempty"`
	OccurredAt      string `json:"occurred_at"`
}

func (h *Handler) handleListEvents(w http.ResponseWriter, r *http.Request) {
	limit, err := eventLimit(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	events, err := h.events.ListRecent(r.Context(), limit)
	if err != nil {
		httputil.WriteError(w, dErrors.Wrap(err, dErrors.CodeStorageUnavailable, "list events"))
		return
	}
	httputil.WriteJSON(w, http.StatusOK, eventViews(events))
}

func (h *Handler) handleListSubjectEvents(w http.ResponseWriter, r *http.Request) {
	subjectID, err := id.ParseSubjectID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeInvalidInput, "invalid subject id"))
		return
	}

	limit, err := eventLimit(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	events, err := h.events.ListBySubject(r.Context(), subjectID, limit)
	if err != nil {
		httputil.WriteError(w, dErrors.Wrap(err, dErrors.CodeStorageUnavailable, "list subject events"))
		return
	}
	httputil.WriteJSON(w, http.StatusOK, eventViews(events))
}

func eventLimit(r *http.Request) (int, error) {
	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return defaultEventLimit, nil
	}
	limit, err := strconv.Atoi(raw)
	if err != nil || limit < 1 {
		return 0, dErrors.New(dErrors.CodeInvalidInput, "limit must be a positive integer")
	}
	if limit > maxEventLimit {
		limit = maxEventLimit
	}
	return limit, nil
}

func eventViews(events []*models.AccessEvent) []accessEventView {
	out := make([]accessEventView, 0, len(events))
	for _, ev := range events {
		view := accessEventView{
			ID:              ev.ID.String(),
			Granted:         ev.Granted,
			DenialReason:    string(ev.DenialReason),
			ScannerLocation: ev.ScannerLocation,
			ScannerDevice:   ev.ScannerDevice,
			OccurredAt:      ev.Timestamp.UTC().Format(time.RFC3339Nano),
		}
		if ev.SubjectID != nil {
			view.SubjectID = ev.SubjectID.String()
		}
		if ev.RosterID != nil {
			view.RosterID = ev.RosterID.String()
		}
		if ev.TokenID != nil {
			view.TokenID = ev.TokenID.String()
		}
		out = append(out, view)
	}
	return out
}
