package store

import (
	"context"
	"sync"

	"gatepass/internal/scanner/models"
	"gatepass/internal/sentinel"
	id "gatepass/pkg/domain"
)

// ErrNotFound is returned when a scanner is not found.
var ErrNotFound = sentinel.ErrNotFound

// Store defines persistence for registered scanners.
// Error Contract: FindByID returns ErrNotFound (optionally wrapped) when no
// scanner matches.
type Store interface {
	Create(ctx context.Context, sc *models.Scanner) error
	FindByID(ctx context.Context, scannerID id.ScannerID) (*models.Scanner, error)
	List(ctx context.Context) ([]*models.Scanner, error)
	Deactivate(ctx context.Context, scannerID id.ScannerID) error
}

// InMemory stores scanners in memory.
type InMemory struct {
	mu       sync.RWMutex
	scanners map[id.ScannerID]*models.Scanner
	order    []id.ScannerID
}

// NewInMemory creates an in-memory scanner store.
func NewInMemory() *InMemory {
	return &InMemory{scanners: make(map[id.ScannerID]*models.Scanner)}
}

// Create registers a scanner.
func (s *InMemory) Create(_ context.Context, sc *models.Scanner) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *sc
	s.scanners[sc.ID] = &cp
	s.order = append(s.order, sc.ID)
	return nil
}

// FindByID retrieves a scanner by its UUID.
func (s *InMemory) FindByID(_ context.Context, scannerID id.ScannerID) (*models.Scanner, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if sc, ok := s.scanners[scannerID]; ok {
		cp := *sc
		return &cp, nil
	}
	return nil, ErrNotFound
}

// List returns scanners in registration order.
func (s *InMemory) List(_ context.Context) ([]*models.Scanner, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*models.Scanner, 0, len(s.order))
	for _, sid := range s.order {
		cp := *s.scanners[sid]
		out = append(out, &cp)
	}
	return out, nil
}

// Deactivate clears the active flag.
func (s *InMemory) Deactivate(_ context.Context, scannerID id.ScannerID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	sc, ok := s.scanners[scannerID]
	if !ok {
		return ErrNotFound
	}
	sc.Active = false
	return nil
}
