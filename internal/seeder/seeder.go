// Package seeder populates the stores with demo rosters, subjects, and
// credentials so the service is explorable without an import pipeline.
package seeder

import (
	"context"
	"fmt"
	"log/slog"

	credservice "gatepass/internal/credential/service"
	"gatepass/internal/directory/models"
	rosterStore "gatepass/internal/directory/store/roster"
	subjectStore "gatepass/internal/directory/store/subject"
	id "gatepass/pkg/domain"
	"gatepass/pkg/requesttime"
)

// Issuer mints credential tokens for seeded subjects.
type Issuer interface {
	Issue(ctx context.Context, subjectExternalID string, rosterID id.RosterID) (*credservice.IssueResult, error)
}

// Seeder loads demo data into the directory and issues one credential per
// seeded subject.
type Seeder struct {
	rosters  rosterStore.Store
	subjects subjectStore.Store
	issuer   Issuer
	logger   *slog.Logger
}

// New creates a seeder.
func New(rosters rosterStore.Store, subjects subjectStore.Store, issuer Issuer, logger *slog.Logger) *Seeder {
	if logger == nil {
		logger = slog.Default()
	}
	return &Seeder{
		rosters:  rosters,
		subjects: subjects,
		issuer:   issuer,
		logger:   logger,
	}
}

type demoRoster struct {
	name     string
	fields   []models.Field
	subjects []demoSubject
}

type demoSubject struct {
	externalID string
	attrs      models.Attributes
}

// The visitors roster ships without explicit role mappings so the demo
// exercises schema inference and display heuristics.
var demoRosters = []demoRoster{
	{
		name: "employees",
		fields: []models.Field{
			{Name: "Full Name", Type: "text", Role: models.RoleFullName},
			{Name: "Badge", Type: "text", Role: models.RoleIdentifier},
			{Name: "Department", Type: "text", Role: models.RoleDepartment},
			{Name: "Email", Type: "text", Role: models.RoleEmail},
		},
		subjects: []demoSubject{
			{externalID: "E-1001", attrs: models.Attributes{
				"Full Name":  models.String("Avery Chen"),
				"Badge":      models.String("B-1001"),
				"Department": models.String("Facilities"),
				"Email":      models.String("avery.chen@example.com"),
			}},
			{externalID: "E-1002", attrs: models.Attributes{
				"Full Name":  models.String("Noor Haddad"),
				"Badge":      models.String("B-1002"),
				"Department": models.String("Security"),
				"Email":      models.String("noor.haddad@example.com"),
			}},
		},
	},
	{
		name: "visitors",
		subjects: []demoSubject{
			{externalID: "V-100", attrs: models.Attributes{
				"Names":      models.String("Jane Doe"),
				"State Code": models.String("SC1"),
			}},
			{externalID: "V-101", attrs: models.Attributes{
				"Names":      models.String("Omar Diallo"),
				"State Code": models.String("SC2"),
			}},
		},
	},
}

// SeedAll loads all demo rosters and issues one token per subject. The
// envelopes are logged so a demo scanner can be pointed at them directly.
func (s *Seeder) SeedAll(ctx context.Context) error {
	s.logger.Info("seeding demo data")

	for _, dr := range demoRosters {
		now := requesttime.Now(ctx)
		ros := &models.Roster{
			ID:        id.NewRosterID(),
			Name:      dr.name,
			Fields:    dr.fields,
			CreatedAt: now,
			UpdatedAt: now,
		}
		if err := s.rosters.Create(ctx, ros); err != nil {
			return fmt.Errorf("seed roster %s: %w", dr.name, err)
		}

		for _, ds := range dr.subjects {
			sub := &models.Subject{
				ID:         id.NewSubjectID(),
				RosterID:   ros.ID,
				ExternalID: ds.externalID,
				Attributes: ds.attrs,
				CreatedAt:  now,
			}
			if err := s.subjects.Create(ctx, sub); err != nil {
				return fmt.Errorf("seed subject %s: %w", ds.externalID, err)
			}

			res, err := s.issuer.Issue(ctx, ds.externalID, ros.ID)
			if err != nil {
				return fmt.Errorf("issue demo credential for %s: %w", ds.externalID, err)
			}
			s.logger.Info("seeded credential",
				"roster", dr.name,
				"subject", ds.externalID,
				"token_id", res.TokenID.String(),
				"envelope", res.Envelope,
			)
		}
	}

	s.logger.Info("demo data seeded", "rosters", len(demoRosters))
	return nil
}
