package httptransport

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	id "gatepass/pkg/domain"
	dErrors "gatepass/pkg/domain-errors"
	"gatepass/pkg/platform/httputil"
)

type issueTokenRequest struct {
	SubjectExternalID string `json:"subject_external_id"`
	RosterID          string `json:"roster_id,omitempty"`
}

type issueTokenResponse struct {
	TokenID  string `json:"token_id"`
	Envelope string `json:"envelope"`
}

func (h *Handler) handleIssueToken(w http.ResponseWriter, r *http.Request) {
	var req issueTokenRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeInvalidInput, "invalid request body"))
		return
	}
	if req.SubjectExternalID == "" {
		httputil.WriteError(w, dErrors.New(dErrors.CodeInvalidInput, "subject_external_id is required"))
		return
	}

	rosterID := id.RosterID{}
	if req.RosterID != "" {
		parsed, err := id.ParseRosterID(req.RosterID)
		if err != nil {
			httputil.WriteError(w, dErrors.New(dErrors.CodeInvalidInput, "invalid roster_id"))
			return
		}
		rosterID = parsed
	}

	res, err := h.credentials.Issue(r.Context(), req.SubjectExternalID, rosterID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusCreated, issueTokenResponse{
		TokenID:  res.TokenID.String(),
		Envelope: res.Envelope,
	})
}

func (h *Handler) handleRevokeToken(w http.ResponseWriter, r *http.Request) {
	tokenID, err := id.ParseTokenID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeInvalidInput, "invalid token id"))
		return
	}

	if err := h.credentials.Revoke(r.Context(), tokenID); err != nil {
		httputil.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
