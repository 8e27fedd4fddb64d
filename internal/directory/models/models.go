// Package models defines the roster directory entities: rosters of credential
// holders and the subjects they contain. Rosters are owned by an external
// import/management collaborator; the verification core reads them and only
// writes back schema field mappings.
package models

import (
	"strconv"
	"time"

	id "gatepass/pkg/domain"
	dErrors "gatepass/pkg/domain-errors"
)

// Role is a canonical semantic role that heterogeneous roster fields are
// mapped onto for display.
type Role string

const (
	RoleNone        Role = ""
	RoleFullName    Role = "full_name"
	RoleIdentifier  Role = "identifier"
	RoleDesignation Role = "designation"
	RoleDepartment  Role = "department"
	RoleEmail       Role = "email"
)

// IsValid returns true if the role is a known canonical role or empty.
func (r Role) IsValid() bool {
	switch r {
	case RoleNone, RoleFullName, RoleIdentifier, RoleDesignation, RoleDepartment, RoleEmail:
		return true
	}
	return false
}

// Field describes one roster schema field. Role is RoleNone unless an
// explicit canonical-role mapping has been registered.
type Field struct {
	Name        string
	Type        string
	DisplayName string
	Role        Role
}

// Roster is a named collection of subjects with an ordered field schema.
// An empty Fields slice means the schema was never stored and must be
// inferred from subject data.
type Roster struct {
	ID        id.RosterID
	Name      string
	Fields    []Field
	CreatedAt time.Time
	UpdatedAt time.Time
}

// AttrKind tags the primitive type of a subject attribute value.
type AttrKind uint8

const (
	AttrString AttrKind = iota + 1
	AttrNumber
	AttrBool
)

// AttrValue is a tagged primitive. Subject attributes were an open JSON blob
// in older import tooling; tagging the values keeps interpretation with the
// schema registry instead of scattering type switches across callers.
type AttrValue struct {
	Kind AttrKind
	Str  string
	Num  float64
	Bool bool
}

func String(s string) AttrValue  { return AttrValue{Kind: AttrString, Str: s} }
func Number(f float64) AttrValue { return AttrValue{Kind: AttrNumber, Num: f} }
func Boolean(b bool) AttrValue   { return AttrValue{Kind: AttrBool, Bool: b} }

// DisplayString renders the value for human-facing display fields.
func (v AttrValue) DisplayString() string {
	switch v.Kind {
	case AttrString:
		return v.Str
	case AttrNumber:
		return strconv.FormatFloat(v.Num, 'f', -1, 64)
	case AttrBool:
		return strconv.FormatBool(v.Bool)
	}
	return ""
}

// IsZero reports whether the value is empty for display purposes.
func (v AttrValue) IsZero() bool {
	return v.Kind == 0 || (v.Kind == AttrString && v.Str == "")
}

// Attributes is a subject's open-ended attribute map. Keys are roster field
// names; meaning is governed by the owning roster's schema.
type Attributes map[string]AttrValue

// AttributesFromJSON converts a decoded JSON object into tagged attributes.
// Unsupported value types (arrays, objects, null) are rejected so untyped
// data cannot leak past the import boundary.
func AttributesFromJSON(raw map[string]any) (Attributes, error) {
	attrs := make(Attributes, len(raw))
	for k, v := range raw {
		switch val := v.(type) {
		case string:
			attrs[k] = String(val)
		case float64:
			attrs[k] = Number(val)
		case bool:
			attrs[k] = Boolean(val)
		default:
			return nil, dErrors.New(dErrors.CodeInvalidInput, "attribute "+k+" has unsupported type")
		}
	}
	return attrs, nil
}

// Subject is one credential holder. ExternalID is the identifier embedded in
// token payloads; it is stable across token reissuance and never exposes the
// internal ID.
type Subject struct {
	ID         id.SubjectID
	RosterID   id.RosterID
	ExternalID string
	Attributes Attributes
	PhotoRef   string
	CreatedAt  time.Time
}
