package httptransport

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	id "gatepass/pkg/domain"
	dErrors "gatepass/pkg/domain-errors"
	"gatepass/pkg/platform/httputil"
)

type registerScannerRequest struct {
	Name     string `json:"name"`
	Location string `json:"location"`
}

// registerScannerResponse includes the scanner key exactly once; only a
// bcrypt hash is stored, so the key cannot be shown again.
type registerScannerResponse struct {
	ScannerID string `json:"scanner_id"`
	Name      string `json:"name"`
	Location  string `json:"location"`
	Key       string `json:"key"`
}

func (h *Handler) handleRegisterScanner(w http.ResponseWriter, r *http.Request) {
	var req registerScannerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeInvalidInput, "invalid request body"))
		return
	}

	reg, err := h.scanners.Register(r.Context(), req.Name, req.Location)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusCreated, registerScannerResponse{
		ScannerID: reg.Scanner.ID.String(),
		Name:      reg.Scanner.Name,
		Location:  reg.Scanner.Location,
		Key:       reg.Key,
	})
}

func (h *Handler) handleDeactivateScanner(w http.ResponseWriter, r *http.Request) {
	scannerID, err := id.ParseScannerID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeInvalidInput, "invalid scanner id"))
		return
	}

	if err := h.scanners.Deactivate(r.Context(), scannerID); err != nil {
		httputil.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
