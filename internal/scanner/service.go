// Package scanner manages registered scanning clients and authenticates
// their requests. Device keys take the form "<scannerID>.<secret>"; only the
// bcrypt hash of the secret is stored.
package scanner

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"gatepass/internal/scanner/models"
	"gatepass/internal/scanner/store"
	"gatepass/internal/sentinel"
	id "gatepass/pkg/domain"
	dErrors "gatepass/pkg/domain-errors"
	"gatepass/pkg/requesttime"
	"gatepass/pkg/secrets"
)

// Registration is the one-time response to registering a scanner; Key is
// never recoverable afterwards.
type Registration struct {
	Scanner *models.Scanner
	Key     string
}

// Service registers scanners and verifies their keys.
type Service struct {
	store  store.Store
	logger *slog.Logger
}

// Option configures the Service.
type Option func(*Service)

// WithLogger sets the logger instance for the service.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

// NewService creates the scanner service.
func NewService(st store.Store, opts ...Option) (*Service, error) {
	if st == nil {
		return nil, errors.New("scanner store is required")
	}
	svc := &Service{store: st}
	for _, opt := range opts {
		opt(svc)
	}
	if svc.logger == nil {
		svc.logger = slog.Default()
	}
	return svc, nil
}

// Register creates a scanner and returns its key exactly once.
func (s *Service) Register(ctx context.Context, name, location string) (*Registration, error) {
	if name == "" {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "scanner name is required")
	}

	secret, err := secrets.Generate()
	if err != nil {
		return nil, err
	}
	hash, err := secrets.Hash(secret)
	if err != nil {
		return nil, err
	}

	sc := &models.Scanner{
		ID:        id.NewScannerID(),
		Name:      name,
		Location:  location,
		KeyHash:   hash,
		Active:    true,
		CreatedAt: requesttime.Now(ctx),
	}
	if err := s.store.Create(ctx, sc); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeStorageUnavailable, "register scanner")
	}

	s.logger.Info("scanner registered",
		"scanner_id", sc.ID.String(),
		"location", sc.Location,
	)
	return &Registration{
		Scanner: sc,
		Key:     sc.ID.String() + "." + secret,
	}, nil
}

// Authenticate verifies a presented device key and returns the scanner.
// Every failure maps to the same unauthorized error so probes cannot tell a
// missing scanner from a bad secret.
func (s *Service) Authenticate(ctx context.Context, key string) (*models.Scanner, error) {
	idPart, secret, ok := strings.Cut(key, ".")
	if !ok || secret == "" {
		return nil, unauthorized()
	}
	scannerID, err := id.ParseScannerID(idPart)
	if err != nil {
		return nil, unauthorized()
	}

	sc, err := s.store.FindByID(ctx, scannerID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, unauthorized()
		}
		return nil, dErrors.Wrap(err, dErrors.CodeStorageUnavailable, "authenticate scanner")
	}
	if !sc.Active {
		return nil, unauthorized()
	}
	if err := secrets.Verify(secret, sc.KeyHash); err != nil {
		return nil, unauthorized()
	}
	return sc, nil
}

// Deactivate disables a scanner's key.
func (s *Service) Deactivate(ctx context.Context, scannerID id.ScannerID) error {
	if err := s.store.Deactivate(ctx, scannerID); err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return dErrors.New(dErrors.CodeNotFound, "scanner not found")
		}
		return dErrors.Wrap(err, dErrors.CodeStorageUnavailable, "deactivate scanner")
	}
	s.logger.Info("scanner deactivated", "scanner_id", scannerID.String())
	return nil
}

func unauthorized() error {
	return dErrors.New(dErrors.CodeUnauthorized, "invalid scanner key")
}
