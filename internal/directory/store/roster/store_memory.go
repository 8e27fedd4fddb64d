package roster

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"gatepass/internal/directory/models"
	"gatepass/internal/sentinel"
	id "gatepass/pkg/domain"
)

// ErrNotFound is returned when a roster is not found.
var ErrNotFound = sentinel.ErrNotFound

// Store defines the persistence interface for rosters.
// Error Contract: all Find methods return ErrNotFound (optionally wrapped)
// when the roster does not exist.
type Store interface {
	Create(ctx context.Context, r *models.Roster) error
	FindByID(ctx context.Context, rosterID id.RosterID) (*models.Roster, error)
	FindByName(ctx context.Context, name string) (*models.Roster, error)
	List(ctx context.Context) ([]*models.Roster, error)
	// UpdateFields replaces the stored field schema. Used by the schema
	// registry to persist explicit canonical-role mappings.
	UpdateFields(ctx context.Context, rosterID id.RosterID, fields []models.Field) error
}

// InMemory stores rosters in memory for the demo environment and tests.
type InMemory struct {
	mu      sync.RWMutex
	rosters map[id.RosterID]*models.Roster
	nameIdx map[string]id.RosterID
	order   []id.RosterID
}

// NewInMemory creates an in-memory roster store.
func NewInMemory() *InMemory {
	return &InMemory{
		rosters: make(map[id.RosterID]*models.Roster),
		nameIdx: make(map[string]id.RosterID),
	}
}

// Create atomically creates the roster if the name is not already taken (case-insensitive).
func (s *InMemory) Create(_ context.Context, r *models.Roster) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	lower := strings.ToLower(r.Name)
	if _, exists := s.nameIdx[lower]; exists {
		return fmt.Errorf("roster name must be unique: %w", sentinel.ErrInvalidState)
	}
	cp := cloneRoster(r)
	s.rosters[r.ID] = cp
	s.nameIdx[lower] = r.ID
	s.order = append(s.order, r.ID)
	return nil
}

// FindByID retrieves a roster by its UUID.
func (s *InMemory) FindByID(_ context.Context, rosterID id.RosterID) (*models.Roster, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if r, ok := s.rosters[rosterID]; ok {
		return cloneRoster(r), nil
	}
	return nil, ErrNotFound
}

// FindByName retrieves a roster by name (case-insensitive).
func (s *InMemory) FindByName(_ context.Context, name string) (*models.Roster, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if rid, ok := s.nameIdx[strings.ToLower(name)]; ok {
		return cloneRoster(s.rosters[rid]), nil
	}
	return nil, ErrNotFound
}

// List returns all rosters in creation order.
func (s *InMemory) List(_ context.Context) ([]*models.Roster, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*models.Roster, 0, len(s.order))
	for _, rid := range s.order {
		out = append(out, cloneRoster(s.rosters[rid]))
	}
	return out, nil
}

// UpdateFields replaces the stored field schema for the roster.
func (s *InMemory) UpdateFields(_ context.Context, rosterID id.RosterID, fields []models.Field) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.rosters[rosterID]
	if !ok {
		return ErrNotFound
	}
	r.Fields = append([]models.Field(nil), fields...)
	return nil
}

// cloneRoster guards callers against aliasing the store's internal state.
func cloneRoster(r *models.Roster) *models.Roster {
	cp := *r
	cp.Fields = append([]models.Field(nil), r.Fields...)
	return &cp
}
