package schema

import (
	"testing"

	"github.com/stretchr/testify/suite"

	"gatepass/internal/directory/models"
)

// DisplaySuite pins heuristic display resolution. The field names here mirror
// real imported rosters, which rarely agree on naming.
type DisplaySuite struct {
	suite.Suite
}

func TestDisplaySuite(t *testing.T) {
	suite.Run(t, new(DisplaySuite))
}

func (s *DisplaySuite) subject(attrs models.Attributes) *models.Subject {
	return &models.Subject{Attributes: attrs}
}

func (s *DisplaySuite) TestResolveDisplayFields() {
	s.Run("heuristics resolve unconventional field names", func() {
		fields := []models.Field{
			{Name: "Names", Type: "text"},
			{Name: "State Code", Type: "text"},
		}
		sub := s.subject(models.Attributes{
			"Names":      models.String("Jane Doe"),
			"State Code": models.String("SC1"),
		})

		out := ResolveDisplayFields(sub, fields)
		s.Equal("Jane Doe", out.FullName)
		s.Equal("SC1", out.Identifier)
	})

	s.Run("explicit role wins over heuristics", func() {
		fields := []models.Field{
			{Name: "Nickname", Type: "text", Role: models.RoleFullName},
			{Name: "Legal Name", Type: "text"},
		}
		sub := s.subject(models.Attributes{
			"Nickname":   models.String("JD"),
			"Legal Name": models.String("Jane Doe"),
		})

		out := ResolveDisplayFields(sub, fields)
		s.Equal("JD", out.FullName)
	})

	s.Run("a field is claimed at most once", func() {
		fields := []models.Field{
			{Name: "Name ID", Type: "text"},
		}
		sub := s.subject(models.Attributes{
			"Name ID": models.String("Jane Doe"),
		})

		// Full name has priority, so the identifier stays empty rather
		// than reusing the same field.
		out := ResolveDisplayFields(sub, fields)
		s.Equal("Jane Doe", out.FullName)
		s.Empty(out.Identifier)
	})

	s.Run("all five roles resolve", func() {
		fields := []models.Field{
			{Name: "Member Name", Type: "text"},
			{Name: "Badge Code", Type: "text"},
			{Name: "Position", Type: "text"},
			{Name: "Dept", Type: "text"},
			{Name: "Work Mail", Type: "text"},
		}
		sub := s.subject(models.Attributes{
			"Member Name": models.String("Jane Doe"),
			"Badge Code":  models.String("B-17"),
			"Position":    models.String("Engineer"),
			"Dept":        models.String("Facilities"),
			"Work Mail":   models.String("jane@example.com"),
		})

		out := ResolveDisplayFields(sub, fields)
		s.Equal("Jane Doe", out.FullName)
		s.Equal("B-17", out.Identifier)
		s.Equal("Engineer", out.Designation)
		s.Equal("Facilities", out.Department)
		s.Equal("jane@example.com", out.Email)
	})

	s.Run("numeric attributes render as text", func() {
		fields := []models.Field{
			{Name: "Member Code", Type: "text"},
		}
		sub := s.subject(models.Attributes{
			"Member Code": models.Number(4017),
		})

		out := ResolveDisplayFields(sub, fields)
		s.Equal("4017", out.Identifier)
	})

	s.Run("full name falls back to concatenated text attributes", func() {
		fields := []models.Field{
			{Name: "First", Type: "text"},
			{Name: "Second", Type: "text"},
			{Name: "Last", Type: "text"},
			{Name: "Suffix", Type: "text"},
		}
		sub := s.subject(models.Attributes{
			"First":  models.String("Jane"),
			"Second": models.String("Q"),
			"Last":   models.String("Doe"),
			"Suffix": models.String("Jr"),
		})

		// Stops at three parts, in schema order.
		out := ResolveDisplayFields(sub, fields)
		s.Equal("Jane Q Doe", out.FullName)
	})

	s.Run("missing attributes leave roles empty", func() {
		fields := []models.Field{
			{Name: "Member Name", Type: "text"},
			{Name: "Badge Code", Type: "text"},
		}
		sub := s.subject(models.Attributes{
			"Badge Code": models.String("B-17"),
		})

		out := ResolveDisplayFields(sub, fields)
		s.Empty(out.FullName)
		s.Equal("B-17", out.Identifier)
	})

	s.Run("nil subject", func() {
		out := ResolveDisplayFields(nil, []models.Field{{Name: "Names"}})
		s.Equal(DisplayFields{}, out)
	})
}
