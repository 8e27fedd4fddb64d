// Package schema interprets roster field schemas. It is the single source of
// truth for mapping arbitrarily-named roster fields onto the canonical display
// roles used on access decisions.
package schema

import (
	"context"
	"errors"
	"log/slog"
	"sort"

	"golang.org/x/sync/singleflight"

	"gatepass/internal/directory/models"
	rosterStore "gatepass/internal/directory/store/roster"
	subjectStore "gatepass/internal/directory/store/subject"
	"gatepass/internal/sentinel"
	id "gatepass/pkg/domain"
	dErrors "gatepass/pkg/domain-errors"
)

// Registry resolves roster schemas, inferring one from subject data when a
// roster has none stored. Schemas are re-fetched on every call - rosters can
// be edited concurrently by the import collaborator, so nothing is cached.
// The singleflight group only collapses concurrent duplicate inferences.
type Registry struct {
	rosters  rosterStore.Store
	subjects subjectStore.Store
	logger   *slog.Logger
	inferred func()
	infer    singleflight.Group
}

// Option configures the Registry.
type Option func(*Registry)

// WithLogger sets a logger for inference diagnostics.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Registry) {
		r.logger = logger
	}
}

// WithInferenceObserver registers a hook invoked once per performed
// inference, after singleflight collapsing.
func WithInferenceObserver(fn func()) Option {
	return func(r *Registry) {
		r.inferred = fn
	}
}

// NewRegistry creates a schema registry over the directory stores.
func NewRegistry(rosters rosterStore.Store, subjects subjectStore.Store, opts ...Option) (*Registry, error) {
	if rosters == nil {
		return nil, errors.New("roster store is required")
	}
	if subjects == nil {
		return nil, errors.New("subject store is required")
	}
	r := &Registry{rosters: rosters, subjects: subjects}
	for _, opt := range opts {
		opt(r)
	}
	if r.logger == nil {
		r.logger = slog.Default()
	}
	return r, nil
}

// GetSchema returns the roster's ordered field schema. When the stored schema
// is empty it falls back to inference from one arbitrary subject; inferred
// schemas are never persisted automatically.
func (r *Registry) GetSchema(ctx context.Context, rosterID id.RosterID) ([]models.Field, error) {
	ros, err := r.rosters.FindByID(ctx, rosterID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "roster not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeStorageUnavailable, "load roster schema")
	}
	return r.FieldsFor(ctx, ros)
}

// FieldsFor returns the schema for an already-loaded roster, inferring one
// when no fields are stored.
func (r *Registry) FieldsFor(ctx context.Context, ros *models.Roster) ([]models.Field, error) {
	if len(ros.Fields) > 0 {
		return ros.Fields, nil
	}
	return r.inferSchema(ctx, ros.ID)
}

// inferSchema builds a schema from one subject's attributes. Concurrent
// inferences for the same roster are collapsed into a single lookup.
func (r *Registry) inferSchema(ctx context.Context, rosterID id.RosterID) ([]models.Field, error) {
	v, err, _ := r.infer.Do(rosterID.String(), func() (any, error) {
		sub, err := r.subjects.FindAnyInRoster(ctx, rosterID)
		if err != nil {
			if errors.Is(err, sentinel.ErrNotFound) {
				// Empty roster: nothing to infer from.
				return []models.Field(nil), nil
			}
			return nil, dErrors.Wrap(err, dErrors.CodeStorageUnavailable, "infer roster schema")
		}

		names := make([]string, 0, len(sub.Attributes))
		for name, val := range sub.Attributes {
			if val.Kind == models.AttrString || val.Kind == models.AttrNumber {
				names = append(names, name)
			}
		}
		// Attribute maps have no inherent order; sorting keeps inference
		// deterministic across calls.
		sort.Strings(names)

		fields := make([]models.Field, 0, len(names))
		for _, name := range names {
			fields = append(fields, models.Field{
				Name:        name,
				Type:        "text",
				DisplayName: name,
			})
		}
		r.logger.Debug("inferred roster schema",
			"roster_id", rosterID.String(),
			"field_count", len(fields),
		)
		if r.inferred != nil {
			r.inferred()
		}
		return fields, nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]models.Field), nil
}

// RegisterFieldMapping persists explicit canonical-role overrides for the
// roster. When the roster has no stored schema the inferred schema is
// materialized first so the mapping has fields to attach to.
func (r *Registry) RegisterFieldMapping(ctx context.Context, rosterID id.RosterID, mappings map[string]models.Role) error {
	if len(mappings) == 0 {
		return dErrors.New(dErrors.CodeInvalidInput, "at least one field mapping is required")
	}
	for field, role := range mappings {
		if field == "" {
			return dErrors.New(dErrors.CodeInvalidInput, "field name cannot be empty")
		}
		if !role.IsValid() || role == models.RoleNone {
			return dErrors.New(dErrors.CodeInvalidInput, "unknown canonical role "+string(role))
		}
	}

	fields, err := r.GetSchema(ctx, rosterID)
	if err != nil {
		return err
	}

	updated := make([]models.Field, len(fields))
	copy(updated, fields)
	matched := 0
	for i := range updated {
		if role, ok := mappings[updated[i].Name]; ok {
			updated[i].Role = role
			matched++
		}
	}
	if matched != len(mappings) {
		return dErrors.New(dErrors.CodeInvalidInput, "mapping references unknown schema fields")
	}

	if err := r.rosters.UpdateFields(ctx, rosterID, updated); err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return dErrors.New(dErrors.CodeNotFound, "roster not found")
		}
		return dErrors.Wrap(err, dErrors.CodeStorageUnavailable, "persist field mapping")
	}
	return nil
}
