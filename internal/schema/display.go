package schema

import (
	"strings"

	"gatepass/internal/directory/models"
)

// DisplayFields is the canonical projection of a subject shown to the
// operator at the point of access. Every value is already rendered as text;
// empty strings mean the role could not be resolved.
type DisplayFields struct {
	FullName    string `json:"full_name"`
	Identifier  string `json:"identifier"`
	Designation string `json:"designation"`
	Department  string `json:"department"`
	Email       string `json:"email"`
}

// rolePriority is the order roles claim fields during heuristic matching.
// Explicit mappings are applied before any heuristic runs.
var rolePriority = []models.Role{
	models.RoleFullName,
	models.RoleIdentifier,
	models.RoleDesignation,
	models.RoleDepartment,
	models.RoleEmail,
}

// roleHints holds the lowercase substrings that heuristically bind a field
// name to a role when no explicit mapping exists.
var roleHints = map[models.Role][]string{
	models.RoleFullName:    {"name"},
	models.RoleIdentifier:  {"id", "code", "state"},
	models.RoleDesignation: {"designation", "role", "position"},
	models.RoleDepartment:  {"department", "dept"},
	models.RoleEmail:       {"email", "mail"},
}

// ResolveDisplayFields maps a subject's attributes onto the canonical display
// roles using the roster schema. Resolution order:
//
//  1. fields with an explicit role claim that role outright;
//  2. remaining roles run name heuristics over unclaimed fields, in
//     priority order, each field claimable at most once;
//  3. an unresolved full name falls back to the first non-empty text
//     attributes, up to three, joined with spaces.
func ResolveDisplayFields(sub *models.Subject, fields []models.Field) DisplayFields {
	var out DisplayFields
	if sub == nil {
		return out
	}

	claimed := make(map[string]bool, len(fields))
	for _, f := range fields {
		if f.Role == models.RoleNone {
			continue
		}
		if v := attrText(sub, f.Name); v != "" {
			setRole(&out, f.Role, v)
			claimed[f.Name] = true
		}
	}

	for _, role := range rolePriority {
		if roleValue(&out, role) != "" {
			continue
		}
		for _, f := range fields {
			if f.Role != models.RoleNone || claimed[f.Name] {
				continue
			}
			if !nameMatches(f.Name, roleHints[role]) {
				continue
			}
			if v := attrText(sub, f.Name); v != "" {
				setRole(&out, role, v)
				claimed[f.Name] = true
				break
			}
		}
	}

	if out.FullName == "" {
		out.FullName = fallbackName(sub, fields, claimed)
	}
	return out
}

// fallbackName concatenates up to three unclaimed text attribute values in
// schema order so a subject is never displayed nameless.
func fallbackName(sub *models.Subject, fields []models.Field, claimed map[string]bool) string {
	parts := make([]string, 0, 3)
	for _, f := range fields {
		if claimed[f.Name] {
			continue
		}
		if val, ok := sub.Attributes[f.Name]; ok && val.Kind == models.AttrString {
			if s := val.DisplayString(); s != "" {
				parts = append(parts, s)
				if len(parts) == 3 {
					break
				}
			}
		}
	}
	return strings.Join(parts, " ")
}

func nameMatches(field string, hints []string) bool {
	lower := strings.ToLower(field)
	for _, hint := range hints {
		if strings.Contains(lower, hint) {
			return true
		}
	}
	return false
}

func attrText(sub *models.Subject, field string) string {
	val, ok := sub.Attributes[field]
	if !ok {
		return ""
	}
	return val.DisplayString()
}

func setRole(d *DisplayFields, role models.Role, value string) {
	switch role {
	case models.RoleFullName:
		if d.FullName == "" {
			d.FullName = value
		}
	case models.RoleIdentifier:
		if d.Identifier == "" {
			d.Identifier = value
		}
	case models.RoleDesignation:
		if d.Designation == "" {
			d.Designation = value
		}
	case models.RoleDepartment:
		if d.Department == "" {
			d.Department = value
		}
	case models.RoleEmail:
		if d.Email == "" {
			d.Email = value
		}
	}
}

func roleValue(d *DisplayFields, role models.Role) string {
	switch role {
	case models.RoleFullName:
		return d.FullName
	case models.RoleIdentifier:
		return d.Identifier
	case models.RoleDesignation:
		return d.Designation
	case models.RoleDepartment:
		return d.Department
	case models.RoleEmail:
		return d.Email
	}
	return ""
}
