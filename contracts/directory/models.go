package directory

// ContractVersion identifies the wire schema shared with roster-import
// collaborators (CSV importers, admin tooling).
const ContractVersion = "v0.1.0"

// RosterSummary is the minimal roster representation exchanged with importers
// and returned by the schema endpoints.
type RosterSummary struct {
	ID     string      `json:"id"`
	Name   string      `json:"name"`
	Fields []FieldSpec `json:"fields,omitempty"`
}

// FieldSpec describes one roster field. Role is empty when the field has no
// explicit canonical-role mapping.
type FieldSpec struct {
	Name        string `json:"name"`
	Type        string `json:"type"`
	DisplayName string `json:"display_name,omitempty"`
	Role        string `json:"role,omitempty"`
}

// SubjectRecord is the import-side subject shape. Attribute values are
// restricted to strings, numbers, and booleans.
type SubjectRecord struct {
	ExternalID string         `json:"external_id"`
	RosterID   string         `json:"roster_id"`
	Attributes map[string]any `json:"attributes"`
	PhotoRef   string         `json:"photo_ref,omitempty"`
}
