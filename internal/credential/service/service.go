// Package service implements the credential verification core: token
// issuance, revocation, and the verification pipeline that turns a scanned
// envelope into an auditable access decision.
package service

//go:generate mockgen -source=service.go -destination=mocks/mocks.go -package=mocks

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"gatepass/internal/credential/metrics"
	"gatepass/internal/credential/models"
	"gatepass/internal/credential/tracer"
	"gatepass/internal/resolver"
	"gatepass/internal/signer"
	id "gatepass/pkg/domain"
)

const defaultStorageTimeout = 5 * time.Second

// TokenStore defines persistence for issued tokens.
// Error Contract: Find methods return sentinel.ErrNotFound (optionally
// wrapped) when no token matches; RecordUse must be an atomic store-level
// increment.
type TokenStore interface {
	Create(ctx context.Context, tok *models.IssuedToken) error
	FindByID(ctx context.Context, tokenID id.TokenID) (*models.IssuedToken, error)
	FindMostRecentActive(ctx context.Context, subjectID id.SubjectID) (*models.IssuedToken, error)
	RecordUse(ctx context.Context, tokenID id.TokenID, usedAt time.Time) error
	Deactivate(ctx context.Context, tokenID id.TokenID) error
}

// EventStore is the append-only audit sink for access events.
type EventStore interface {
	Append(ctx context.Context, ev *models.AccessEvent) error
}

// SubjectResolver locates subjects by the external identifier carried in
// token payloads.
type SubjectResolver interface {
	FindByExternalID(ctx context.Context, externalID string, rosterID id.RosterID) (*resolver.Resolution, error)
}

// FeedPublisher streams access events to the operations topic. Publishing is
// best-effort and must never block.
type FeedPublisher interface {
	Publish(ev *models.AccessEvent)
}

// Service orchestrates Signer, Subject Resolver, and the token and event
// stores. It is stateless per call; the only shared state is the signing
// secret inside the Signer.
type Service struct {
	signer         *signer.Signer
	tokens         TokenStore
	events         EventStore
	resolver       SubjectResolver
	feed           FeedPublisher
	metrics        *metrics.Metrics
	tracer         tracer.Tracer
	logger         *slog.Logger
	storageTimeout time.Duration
}

// Option configures the Service.
type Option func(*Service)

// WithLogger sets the logger instance for the service.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

// WithMetrics sets the metrics instance for the service.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

// WithTracer sets the tracer for the service.
func WithTracer(t tracer.Tracer) Option {
	return func(s *Service) {
		if t != nil {
			s.tracer = t
		}
	}
}

// WithFeed attaches the operations feed publisher.
func WithFeed(f FeedPublisher) Option {
	return func(s *Service) {
		s.feed = f
	}
}

// WithStorageTimeout bounds each storage call made by the pipeline.
func WithStorageTimeout(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.storageTimeout = d
		}
	}
}

// NewService creates the credential service.
func NewService(sgn *signer.Signer, tokens TokenStore, events EventStore, res SubjectResolver, opts ...Option) (*Service, error) {
	if sgn == nil {
		return nil, errors.New("signer is required")
	}
	if tokens == nil {
		return nil, errors.New("token store is required")
	}
	if events == nil {
		return nil, errors.New("event store is required")
	}
	if res == nil {
		return nil, errors.New("subject resolver is required")
	}
	svc := &Service{
		signer:         sgn,
		tokens:         tokens,
		events:         events,
		resolver:       res,
		tracer:         tracer.NewNoop(),
		storageTimeout: defaultStorageTimeout,
	}
	for _, opt := range opts {
		opt(svc)
	}
	if svc.logger == nil {
		svc.logger = slog.Default()
	}
	return svc, nil
}

// storageCtx bounds a single storage call.
func (s *Service) storageCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, s.storageTimeout)
}
