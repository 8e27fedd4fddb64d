package resolver

import (
	"context"
	"testing"

	"github.com/stretchr/testify/suite"

	"gatepass/internal/directory/models"
	rosterStore "gatepass/internal/directory/store/roster"
	subjectStore "gatepass/internal/directory/store/subject"
	"gatepass/internal/schema"
	id "gatepass/pkg/domain"
	dErrors "gatepass/pkg/domain-errors"
)

type ResolverSuite struct {
	suite.Suite
	ctx      context.Context
	rosters  *rosterStore.InMemory
	subjects *subjectStore.InMemory
	resolver *Resolver
}

func TestResolverSuite(t *testing.T) {
	suite.Run(t, new(ResolverSuite))
}

func (s *ResolverSuite) SetupTest() {
	s.ctx = context.Background()
	s.rosters = rosterStore.NewInMemory()
	s.subjects = subjectStore.NewInMemory()

	registry, err := schema.NewRegistry(s.rosters, s.subjects)
	s.Require().NoError(err)

	resolver, err := New(s.subjects, s.rosters, registry)
	s.Require().NoError(err)
	s.resolver = resolver
}

func (s *ResolverSuite) seed(rosterName, externalID string, attrs models.Attributes) (*models.Roster, *models.Subject) {
	ros := &models.Roster{ID: id.NewRosterID(), Name: rosterName}
	s.Require().NoError(s.rosters.Create(s.ctx, ros))

	sub := &models.Subject{
		ID:         id.NewSubjectID(),
		RosterID:   ros.ID,
		ExternalID: externalID,
		Attributes: attrs,
	}
	s.Require().NoError(s.subjects.Create(s.ctx, sub))
	return ros, sub
}

func (s *ResolverSuite) TestFindByExternalID() {
	s.Run("resolves across rosters and attaches the schema", func() {
		_, sub := s.seed("visitors", "V-1", models.Attributes{
			"Names":      models.String("Jane Doe"),
			"State Code": models.String("SC1"),
		})

		res, err := s.resolver.FindByExternalID(s.ctx, "V-1", id.RosterID{})
		s.Require().NoError(err)
		s.Equal(sub.ID, res.Subject.ID)
		s.Equal("visitors", res.Roster.Name)
		s.Len(res.Fields, 2)

		display := res.Display()
		s.Equal("Jane Doe", display.FullName)
		s.Equal("SC1", display.Identifier)
	})

	s.Run("scoped lookup ignores other rosters", func() {
		s.seed("staff", "X-1", models.Attributes{"Names": models.String("Staff X")})
		other := &models.Roster{ID: id.NewRosterID(), Name: "visitors"}
		s.Require().NoError(s.rosters.Create(s.ctx, other))

		_, err := s.resolver.FindByExternalID(s.ctx, "X-1", other.ID)
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeSubjectNotFound))
	})

	s.Run("unknown external id", func() {
		_, err := s.resolver.FindByExternalID(s.ctx, "missing", id.RosterID{})
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeSubjectNotFound))
	})

	s.Run("empty external id", func() {
		_, err := s.resolver.FindByExternalID(s.ctx, "", id.RosterID{})
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})
}
