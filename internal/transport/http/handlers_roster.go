package httptransport

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"gatepass/contracts/directory"
	"gatepass/internal/directory/models"
	"gatepass/internal/sentinel"
	id "gatepass/pkg/domain"
	dErrors "gatepass/pkg/domain-errors"
	"gatepass/pkg/platform/httputil"
	"gatepass/pkg/requesttime"
)

type createRosterRequest struct {
	Name   string                `json:"name"`
	Fields []directory.FieldSpec `json:"fields,omitempty"`
}

func (h *Handler) handleCreateRoster(w http.ResponseWriter, r *http.Request) {
	var req createRosterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeInvalidInput, "invalid request body"))
		return
	}
	if req.Name == "" {
		httputil.WriteError(w, dErrors.New(dErrors.CodeInvalidInput, "name is required"))
		return
	}

	fields := make([]models.Field, 0, len(req.Fields))
	for _, f := range req.Fields {
		role := models.Role(f.Role)
		if !role.IsValid() {
			httputil.WriteError(w, dErrors.New(dErrors.CodeInvalidInput, "unknown role "+f.Role))
			return
		}
		fields = append(fields, models.Field{
			Name:        f.Name,
			Type:        f.Type,
			DisplayName: f.DisplayName,
			Role:        role,
		})
	}

	now := requesttime.Now(r.Context())
	ros := &models.Roster{
		ID:        id.NewRosterID(),
		Name:      req.Name,
		Fields:    fields,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := h.rosters.Create(r.Context(), ros); err != nil {
		httputil.WriteError(w, dErrors.Wrap(err, dErrors.CodeStorageUnavailable, "create roster"))
		return
	}

	httputil.WriteJSON(w, http.StatusCreated, rosterSummary(ros, ros.Fields))
}

func (h *Handler) handleListRosters(w http.ResponseWriter, r *http.Request) {
	rosters, err := h.rosters.List(r.Context())
	if err != nil {
		httputil.WriteError(w, dErrors.Wrap(err, dErrors.CodeStorageUnavailable, "list rosters"))
		return
	}

	out := make([]directory.RosterSummary, 0, len(rosters))
	for _, ros := range rosters {
		out = append(out, rosterSummary(ros, nil))
	}
	httputil.WriteJSON(w, http.StatusOK, out)
}

// handleGetSchema returns the roster's effective schema. For rosters without a
// stored schema this is the inferred one, so the response reflects what the
// verification path would use for display resolution.
func (h *Handler) handleGetSchema(w http.ResponseWriter, r *http.Request) {
	rosterID, err := id.ParseRosterID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeInvalidInput, "invalid roster id"))
		return
	}

	ros, err := h.rosters.FindByID(r.Context(), rosterID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			httputil.WriteError(w, dErrors.New(dErrors.CodeNotFound, "roster not found"))
			return
		}
		httputil.WriteError(w, dErrors.Wrap(err, dErrors.CodeStorageUnavailable, "load roster"))
		return
	}

	fields, err := h.schemas.GetSchema(r.Context(), rosterID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, rosterSummary(ros, fields))
}

type registerMappingsRequest struct {
	Mappings map[string]string `json:"mappings"`
}

func (h *Handler) handleRegisterMappings(w http.ResponseWriter, r *http.Request) {
	rosterID, err := id.ParseRosterID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeInvalidInput, "invalid roster id"))
		return
	}

	var req registerMappingsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeInvalidInput, "invalid request body"))
		return
	}

	mappings := make(map[string]models.Role, len(req.Mappings))
	for field, role := range req.Mappings {
		mappings[field] = models.Role(role)
	}

	if err := h.schemas.RegisterFieldMapping(r.Context(), rosterID, mappings); err != nil {
		httputil.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleCreateSubject(w http.ResponseWriter, r *http.Request) {
	rosterID, err := id.ParseRosterID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeInvalidInput, "invalid roster id"))
		return
	}

	var rec directory.SubjectRecord
	if err := json.NewDecoder(r.Body).Decode(&rec); err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeInvalidInput, "invalid request body"))
		return
	}
	if rec.ExternalID == "" {
		httputil.WriteError(w, dErrors.New(dErrors.CodeInvalidInput, "external_id is required"))
		return
	}

	attrs, err := models.AttributesFromJSON(rec.Attributes)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	if _, err := h.rosters.FindByID(r.Context(), rosterID); err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			httputil.WriteError(w, dErrors.New(dErrors.CodeNotFound, "roster not found"))
			return
		}
		httputil.WriteError(w, dErrors.Wrap(err, dErrors.CodeStorageUnavailable, "load roster"))
		return
	}

	sub := &models.Subject{
		ID:         id.NewSubjectID(),
		RosterID:   rosterID,
		ExternalID: rec.ExternalID,
		Attributes: attrs,
		PhotoRef:   rec.PhotoRef,
		CreatedAt:  requesttime.Now(r.Context()),
	}
	if err := h.subjects.Create(r.Context(), sub); err != nil {
		httputil.WriteError(w, dErrors.Wrap(err, dErrors.CodeStorageUnavailable, "create subject"))
		return
	}

	httputil.WriteJSON(w, http.StatusCreated, map[string]string{
		"id":          sub.ID.String(),
		"external_id": sub.ExternalID,
	})
}

func rosterSummary(ros *models.Roster, fields []models.Field) directory.RosterSummary {
	specs := make([]directory.FieldSpec, 0, len(fields))
	for _, f := range fields {
		specs = append(specs, directory.FieldSpec{
			Name:        f.Name,
			Type:        f.Type,
			DisplayName: f.DisplayName,
			Role:        string(f.Role),
		})
	}
	return directory.RosterSummary{
		ID:     ros.ID.String(),
		Name:   ros.Name,
		Fields: specs,
	}
}
