package httptransport

import (
	"encoding/json"
	"net/http"

	credservice "gatepass/internal/credential/service"
	"gatepass/internal/platform/middleware"
	"gatepass/internal/scanner"
	"gatepass/internal/schema"
	id "gatepass/pkg/domain"
	dErrors "gatepass/pkg/domain-errors"
	"gatepass/pkg/platform/httputil"
)

type verifyRequest struct {
	Envelope string `json:"envelope"`
	RosterID string `json:"roster_id,omitempty"`
}

// verifyResponse is what the scanning client sees. The denial reason is
// deliberately generic; the full reason lives in the access trail and on the
// operator event endpoints only.
type verifyResponse struct {
	Granted    bool                  `json:"granted"`
	Reason     string                `json:"reason,omitempty"`
	Subject    *schema.DisplayFields `json:"subject,omitempty"`
	RosterID   string                `json:"roster_id,omitempty"`
	RosterName string                `json:"roster_name,omitempty"`
	TokenID    string                `json:"token_id,omitempty"`
}

const deniedReason = "access_denied"

func (h *Handler) handleVerify(w http.ResponseWriter, r *http.Request) {
	var req verifyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeInvalidInput, "invalid request body"))
		return
	}

	scope := id.RosterID{}
	if req.RosterID != "" {
		parsed, err := id.ParseRosterID(req.RosterID)
		if err != nil {
			httputil.WriteError(w, dErrors.New(dErrors.CodeInvalidInput, "invalid roster_id"))
			return
		}
		scope = parsed
	}

	location := ""
	if sc, ok := scanner.FromContext(r.Context()); ok {
		location = sc.Location
	}

	decision, err := h.credentials.Verify(r.Context(), credservice.VerifyRequest{
		Envelope:        req.Envelope,
		ScopeRosterID:   scope,
		ScannerLocation: location,
		ScannerDevice:   middleware.GetScannerDevice(r.Context()),
	})
	if err != nil {
		// Storage faults still yield a denied decision; the error is for
		// monitoring, not the scanning client.
		h.logger.Error("verification degraded", "error", err)
	}
	if decision == nil {
		httputil.WriteError(w, err)
		return
	}

	resp := verifyResponse{Granted: decision.Granted}
	if decision.Granted {
		resp.Subject = decision.Subject
		resp.RosterName = decision.RosterName
		if decision.RosterID != nil {
			resp.RosterID = decision.RosterID.String()
		}
		if decision.TokenID != nil {
			resp.TokenID = decision.TokenID.String()
		}
	} else {
		resp.Reason = deniedReason
	}
	httputil.WriteJSON(w, http.StatusOK, resp)
}
