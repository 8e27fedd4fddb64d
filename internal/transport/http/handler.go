package httptransport

import (
	"context"
	"log/slog"

	credmodels "gatepass/internal/credential/models"
	credservice "gatepass/internal/credential/service"
	dirmodels "gatepass/internal/directory/models"
	rosterStore "gatepass/internal/directory/store/roster"
	subjectStore "gatepass/internal/directory/store/subject"
	"gatepass/internal/scanner"
	id "gatepass/pkg/domain"
)

// CredentialService issues, revokes, and verifies credential tokens.
type CredentialService interface {
	Issue(ctx context.Context, subjectExternalID string, rosterID id.RosterID) (*credservice.IssueResult, error)
	Revoke(ctx context.Context, tokenID id.TokenID) error
	Verify(ctx context.Context, req credservice.VerifyRequest) (*credmodels.Decision, error)
}

// SchemaRegistry exposes roster schemas and field-role mappings.
type SchemaRegistry interface {
	GetSchema(ctx context.Context, rosterID id.RosterID) ([]dirmodels.Field, error)
	RegisterFieldMapping(ctx context.Context, rosterID id.RosterID, mappings map[string]dirmodels.Role) error
}

// ScannerRegistry manages scanner devices and their keys.
type ScannerRegistry interface {
	Register(ctx context.Context, name, location string) (*scanner.Registration, error)
	Deactivate(ctx context.Context, scannerID id.ScannerID) error
}

// EventLog reads the append-only access trail for operator troubleshooting.
type EventLog interface {
	ListRecent(ctx context.Context, limit int) ([]*credmodels.AccessEvent, error)
	ListBySubject(ctx context.Context, subjectID id.SubjectID, limit int) ([]*credmodels.AccessEvent, error)
}

// Handler is the HTTP handler set. Roster and subject administration talks to
// the directory stores directly; everything else goes through a service.
type Handler struct {
	credentials CredentialService
	schemas     SchemaRegistry
	scanners    ScannerRegistry
	events      EventLog
	rosters     rosterStore.Store
	subjects    subjectStore.Store
	logger      *slog.Logger
}

// NewHandler creates the handler set.
func NewHandler(
	credentials CredentialService,
	schemas SchemaRegistry,
	scanners ScannerRegistry,
	events EventLog,
	rosters rosterStore.Store,
	subjects subjectStore.Store,
	logger *slog.Logger,
) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		credentials: credentials,
		schemas:     schemas,
		scanners:    scanners,
		events:      events,
		rosters:     rosters,
		subjects:    subjects,
		logger:      logger,
	}
}
