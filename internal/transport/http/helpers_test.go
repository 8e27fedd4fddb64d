package httptransport

import (
	"log/slog"
	"testing"

	credservice "gatepass/internal/credential/service"
	eventStore "gatepass/internal/credential/store/event"
	tokenStore "gatepass/internal/credential/store/token"
	rosterStore "gatepass/internal/directory/store/roster"
	subjectStore "gatepass/internal/directory/store/subject"
	"gatepass/internal/resolver"
	"gatepass/internal/scanner"
	scannerStore "gatepass/internal/scanner/store"
	"gatepass/internal/schema"
	"gatepass/internal/signer"
)

func signerForTests() (*signer.Signer, error) {
	return signer.New("router-test-signing-secret")
}

// newBareHandler wires a handler over fresh in-memory stores for tests that
// only need the routing and middleware behavior.
func newBareHandler(t *testing.T, logger *slog.Logger) *Handler {
	t.Helper()

	rosters := rosterStore.NewInMemory()
	subjects := subjectStore.NewInMemory()
	events := eventStore.NewInMemory()

	registry, err := schema.NewRegistry(rosters, subjects, schema.WithLogger(logger))
	if err != nil {
		t.Fatal(err)
	}
	res, err := resolver.New(subjects, rosters, registry)
	if err != nil {
		t.Fatal(err)
	}
	sgn, err := signerForTests()
	if err != nil {
		t.Fatal(err)
	}
	credentials, err := credservice.NewService(sgn, tokenStore.NewInMemory(), events, res,
		credservice.WithLogger(logger),
	)
	if err != nil {
		t.Fatal(err)
	}
	scanners, err := scanner.NewService(scannerStore.NewInMemory(), scanner.WithLogger(logger))
	if err != nil {
		t.Fatal(err)
	}

	return NewHandler(credentials, registry, scanners, events, rosters, subjects, logger)
}
