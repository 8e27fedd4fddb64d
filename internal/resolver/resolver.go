// Package resolver locates credential subjects across rosters. Token payloads
// carry only an external subject identifier, so resolution must search every
// roster unless the caller scopes it.
package resolver

import (
	"context"
	"errors"

	"gatepass/internal/directory/models"
	rosterStore "gatepass/internal/directory/store/roster"
	subjectStore "gatepass/internal/directory/store/subject"
	"gatepass/internal/schema"
	"gatepass/internal/sentinel"
	id "gatepass/pkg/domain"
	dErrors "gatepass/pkg/domain-errors"
)

// SchemaSource yields the field schema a resolution is interpreted under.
type SchemaSource interface {
	FieldsFor(ctx context.Context, ros *models.Roster) ([]models.Field, error)
}

// Resolution is a subject together with its owning roster and the schema the
// subject's attributes are interpreted under.
type Resolution struct {
	Subject *models.Subject
	Roster  *models.Roster
	Fields  []models.Field
}

// Display renders the resolution's canonical display fields.
func (r *Resolution) Display() schema.DisplayFields {
	return schema.ResolveDisplayFields(r.Subject, r.Fields)
}

// Resolver finds subjects by external identifier and attaches their roster
// and schema.
type Resolver struct {
	subjects subjectStore.Store
	rosters  rosterStore.Store
	schemas  SchemaSource
}

// New creates a resolver over the directory stores and schema source.
func New(subjects subjectStore.Store, rosters rosterStore.Store, schemas SchemaSource) (*Resolver, error) {
	if subjects == nil {
		return nil, errors.New("subject store is required")
	}
	if rosters == nil {
		return nil, errors.New("roster store is required")
	}
	if schemas == nil {
		return nil, errors.New("schema source is required")
	}
	return &Resolver{subjects: subjects, rosters: rosters, schemas: schemas}, nil
}

// FindByExternalID resolves a subject by its external identifier. A nil
// rosterID searches across all rosters in one indexed lookup; with multiple
// matches the store returns the earliest-created subject.
func (r *Resolver) FindByExternalID(ctx context.Context, externalID string, rosterID id.RosterID) (*Resolution, error) {
	if externalID == "" {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "external id cannot be empty")
	}

	sub, err := r.subjects.FindByExternalID(ctx, externalID, rosterID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeSubjectNotFound, "no subject matches the presented credential")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeStorageUnavailable, "resolve subject")
	}

	ros, err := r.rosters.FindByID(ctx, sub.RosterID)
	if err != nil {
		// The subject exists but its roster does not; that is directory
		// corruption, not an unknown credential.
		return nil, dErrors.Wrap(err, dErrors.CodeStorageUnavailable, "load subject roster")
	}

	fields, err := r.schemas.FieldsFor(ctx, ros)
	if err != nil {
		return nil, err
	}
	return &Resolution{Subject: sub, Roster: ros, Fields: fields}, nil
}
