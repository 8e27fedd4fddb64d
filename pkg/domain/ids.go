// Package domain provides type-safe identifiers to prevent mixing up IDs at compile time.
package domain

import (
	"github.com/google/uuid"

	dErrors "gatepass/pkg/domain-errors"
)

// Distinct ID types - compiler prevents passing a SubjectID where a RosterID is expected.
type (
	RosterID  uuid.UUID
	SubjectID uuid.UUID
	TokenID   uuid.UUID
	EventID   uuid.UUID
	ScannerID uuid.UUID
)

// Parse functions - use at trust boundaries (handlers, API inputs).

func ParseRosterID(s string) (RosterID, error) {
	id, err := parseUUID(s, "roster ID")
	return RosterID(id), err
}

func ParseSubjectID(s string) (SubjectID, error) {
	id, err := parseUUID(s, "subject ID")
	return SubjectID(id), err
}

func ParseTokenID(s string) (TokenID, error) {
	id, err := parseUUID(s, "token ID")
	return TokenID(id), err
}

func ParseEventID(s string) (EventID, error) {
	id, err := parseUUID(s, "event ID")
	return EventID(id), err
}

func ParseScannerID(s string) (ScannerID, error) {
	id, err := parseUUID(s, "scanner ID")
	return ScannerID(id), err
}

// New constructors for server-side ID generation.

func NewRosterID() RosterID   { return RosterID(uuid.New()) }
func NewSubjectID() SubjectID { return SubjectID(uuid.New()) }
func NewTokenID() TokenID     { return TokenID(uuid.New()) }
func NewEventID() EventID     { return EventID(uuid.New()) }
func NewScannerID() ScannerID { return ScannerID(uuid.New()) }

// String methods - for logging and debugging.

func (id RosterID) String() string  { return uuid.UUID(id).String() }
func (id SubjectID) String() string { return uuid.UUID(id).String() }
func (id TokenID) String() string   { return uuid.UUID(id).String() }
func (id EventID) String() string   { return uuid.UUID(id).String() }
func (id ScannerID) String() string { return uuid.UUID(id).String() }

// IsNil checks - used for service-layer validation.

func (id RosterID) IsNil() bool  { return uuid.UUID(id) == uuid.Nil }
func (id SubjectID) IsNil() bool { return uuid.UUID(id) == uuid.Nil }
func (id TokenID) IsNil() bool   { return uuid.UUID(id) == uuid.Nil }
func (id EventID) IsNil() bool   { return uuid.UUID(id) == uuid.Nil }
func (id ScannerID) IsNil() bool { return uuid.UUID(id) == uuid.Nil }

// parseUUID is the shared validation logic.
// Nil UUIDs are allowed here; use IsNil() at the service layer for business
// validation so store lookups can return proper "not found" errors.
func parseUUID(s, label string) (uuid.UUID, error) {
	if s == "" {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, label+" cannot be empty")
	}
	id, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, "invalid "+label+" format")
	}
	return id, nil
}
