package service

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"gatepass/internal/credential/service/mocks"
	"gatepass/internal/directory/models"
	"gatepass/internal/resolver"
	"gatepass/internal/sentinel"
	"gatepass/internal/signer"
	id "gatepass/pkg/domain"
	dErrors "gatepass/pkg/domain-errors"
	"gatepass/pkg/requesttime"
)

const testSecret = "unit-test-signing-secret"

// =============================================================================
// Credential Service Test Suite
// =============================================================================
// Justification for unit tests: the verification pipeline is the security
// core of the system. Every denial path, the fail-closed storage rule, and
// the exactly-one-event contract must be pinned against mocked collaborators
// where failures can be injected deterministically.

type ServiceSuite struct {
	suite.Suite
	ctrl     *gomock.Controller
	tokens   *mocks.MockTokenStore
	events   *mocks.MockEventStore
	resolver *mocks.MockSubjectResolver
	feed     *mocks.MockFeedPublisher
	signer   *signer.Signer
	service  *Service
	now      time.Time
	ctx      context.Context
}

func TestServiceSuite(t *testing.T) {
	suite.Run(t, new(ServiceSuite))
}

func (s *ServiceSuite) SetupTest() {
	s.ctrl = gomock.NewController(s.T())
	s.tokens = mocks.NewMockTokenStore(s.ctrl)
	s.events = mocks.NewMockEventStore(s.ctrl)
	s.resolver = mocks.NewMockSubjectResolver(s.ctrl)
	s.feed = mocks.NewMockFeedPublisher(s.ctrl)

	s.now = time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	s.ctx = requesttime.WithTime(context.Background(), s.now)

	sgn, err := signer.New(testSecret, signer.WithClock(func() time.Time { return s.now }))
	s.Require().NoError(err)
	s.signer = sgn

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	svc, err := NewService(sgn, s.tokens, s.events, s.resolver,
		WithLogger(logger),
		WithFeed(s.feed),
	)
	s.Require().NoError(err)
	s.service = svc
}

func (s *ServiceSuite) TearDownTest() {
	s.ctrl.Finish()
}

// makeResolution builds a resolution for a visitor-style roster whose field
// names resolve through heuristics.
func (s *ServiceSuite) makeResolution(externalID string) *resolver.Resolution {
	ros := &models.Roster{
		ID:   id.NewRosterID(),
		Name: "visitors",
	}
	sub := &models.Subject{
		ID:         id.NewSubjectID(),
		RosterID:   ros.ID,
		ExternalID: externalID,
		Attributes: models.Attributes{
			"Names":      models.String("Jane Doe"),
			"State Code": models.String("SC1"),
		},
	}
	return &resolver.Resolution{
		Subject: sub,
		Roster:  ros,
		Fields: []models.Field{
			{Name: "Names", Type: "text"},
			{Name: "State Code", Type: "text"},
		},
	}
}

// makeEnvelope signs a fresh payload for the subject as issuance would.
func (s *ServiceSuite) makeEnvelope(externalID string, issuedAt time.Time) string {
	payload, err := signer.NewPayload(externalID, issuedAt)
	s.Require().NoError(err)
	envelope, err := s.signer.Sign(payload)
	s.Require().NoError(err)
	return envelope
}

// tamper flips one payload byte inside a valid envelope so the signature no
// longer matches while the envelope structure stays intact.
func tamper(t *testing.T, encoded string) string {
	raw, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		t.Fatalf("decode envelope: %v", err)
	}
	idx := bytes.Index(raw, []byte("subject_external_id"))
	if idx < 0 {
		t.Fatal("payload marker not found in envelope")
	}
	raw[idx] ^= 0x01
	return base64.StdEncoding.EncodeToString(raw)
}

func subjectNotFoundErr() error {
	return dErrors.New(dErrors.CodeSubjectNotFound, "no subject matches the presented credential")
}

func notFoundErr() error {
	return sentinel.ErrNotFound
}

func storageErr() error {
	return dErrors.Wrap(errors.New("dial tcp: connection refused"), dErrors.CodeStorageUnavailable, "resolve subject")
}

func (s *ServiceSuite) TestNewService() {
	s.Run("nil signer returns error", func() {
		_, err := NewService(nil, s.tokens, s.events, s.resolver)
		s.Error(err)
		s.Contains(err.Error(), "signer is required")
	})

	s.Run("nil token store returns error", func() {
		_, err := NewService(s.signer, nil, s.events, s.resolver)
		s.Error(err)
		s.Contains(err.Error(), "token store is required")
	})

	s.Run("nil event store returns error", func() {
		_, err := NewService(s.signer, s.tokens, nil, s.resolver)
		s.Error(err)
		s.Contains(err.Error(), "event store is required")
	})

	s.Run("nil resolver returns error", func() {
		_, err := NewService(s.signer, s.tokens, s.events, nil)
		s.Error(err)
		s.Contains(err.Error(), "subject resolver is required")
	})
}
