package subject

import (
	"context"
	"sync"

	"gatepass/internal/directory/models"
	"gatepass/internal/sentinel"
	id "gatepass/pkg/domain"
)

// ErrNotFound is returned when a subject is not found.
var ErrNotFound = sentinel.ErrNotFound

// Store defines the persistence interface for subjects.
// Error Contract: all Find methods return ErrNotFound (optionally wrapped)
// when no subject matches.
type Store interface {
	Create(ctx context.Context, sub *models.Subject) error
	FindByID(ctx context.Context, subjectID id.SubjectID) (*models.Subject, error)
	// FindByExternalID performs ONE indexed lookup on externalID. A nil
	// rosterID searches across all rosters; a non-nil rosterID scopes the
	// match to that roster. Never an N-roster scan loop.
	FindByExternalID(ctx context.Context, externalID string, rosterID id.RosterID) (*models.Subject, error)
	// FindAnyInRoster returns one arbitrary subject from the roster, used
	// for schema inference when a roster has no stored schema.
	FindAnyInRoster(ctx context.Context, rosterID id.RosterID) (*models.Subject, error)
}

// InMemory stores subjects in memory, keeping a secondary index on externalID
// so cross-roster lookups stay O(1) as rosters grow.
type InMemory struct {
	mu          sync.RWMutex
	subjects    map[id.SubjectID]*models.Subject
	externalIdx map[string][]id.SubjectID
	rosterIdx   map[id.RosterID][]id.SubjectID
}

// NewInMemory creates an in-memory subject store.
func NewInMemory() *InMemory {
	return &InMemory{
		subjects:    make(map[id.SubjectID]*models.Subject),
		externalIdx: make(map[string][]id.SubjectID),
		rosterIdx:   make(map[id.RosterID][]id.SubjectID),
	}
}

// Create inserts a subject and maintains both secondary indexes.
func (s *InMemory) Create(_ context.Context, sub *models.Subject) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := cloneSubject(sub)
	s.subjects[sub.ID] = cp
	s.externalIdx[sub.ExternalID] = append(s.externalIdx[sub.ExternalID], sub.ID)
	s.rosterIdx[sub.RosterID] = append(s.rosterIdx[sub.RosterID], sub.ID)
	return nil
}

// FindByID retrieves a subject by its UUID.
func (s *InMemory) FindByID(_ context.Context, subjectID id.SubjectID) (*models.Subject, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if sub, ok := s.subjects[subjectID]; ok {
		return cloneSubject(sub), nil
	}
	return nil, ErrNotFound
}

// FindByExternalID looks up the externalID index directly; the roster scope
// only filters the indexed candidates.
func (s *InMemory) FindByExternalID(_ context.Context, externalID string, rosterID id.RosterID) (*models.Subject, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, sid := range s.externalIdx[externalID] {
		sub := s.subjects[sid]
		if rosterID.IsNil() || sub.RosterID == rosterID {
			return cloneSubject(sub), nil
		}
	}
	return nil, ErrNotFound
}

// FindAnyInRoster returns the first subject created in the roster.
func (s *InMemory) FindAnyInRoster(_ context.Context, rosterID id.RosterID) (*models.Subject, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := s.rosterIdx[rosterID]
	if len(ids) == 0 {
		return nil, ErrNotFound
	}
	return cloneSubject(s.subjects[ids[0]]), nil
}

func cloneSubject(sub *models.Subject) *models.Subject {
	cp := *sub
	cp.Attributes = make(models.Attributes, len(sub.Attributes))
	for k, v := range sub.Attributes {
		cp.Attributes[k] = v
	}
	return &cp
}
