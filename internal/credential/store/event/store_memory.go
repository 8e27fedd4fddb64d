package event

import (
	"context"
	"sync"

	"gatepass/internal/credential/models"
	"gatepass/internal/sentinel"
	id "gatepass/pkg/domain"
)

// ErrNotFound is returned when an access event is not found.
var ErrNotFound = sentinel.ErrNotFound

// Store defines persistence for access events. The log is append-only; there
// is deliberately no update or delete operation.
type Store interface {
	Append(ctx context.Context, ev *models.AccessEvent) error
	FindByID(ctx context.Context, eventID id.EventID) (*models.AccessEvent, error)
	// ListRecent returns up to limit events, newest first.
	ListRecent(ctx context.Context, limit int) ([]*models.AccessEvent, error)
	// ListBySubject returns up to limit events for the subject, newest
	// first, for operator troubleshooting views.
	ListBySubject(ctx context.Context, subjectID id.SubjectID, limit int) ([]*models.AccessEvent, error)
}

// InMemory keeps access events in append order.
type InMemory struct {
	mu     sync.RWMutex
	events []*models.AccessEvent
	byID   map[id.EventID]*models.AccessEvent
}

// NewInMemory creates an in-memory event store.
func NewInMemory() *InMemory {
	return &InMemory{byID: make(map[id.EventID]*models.AccessEvent)}
}

// Append records one verification attempt.
func (s *InMemory) Append(_ context.Context, ev *models.AccessEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := cloneEvent(ev)
	s.events = append(s.events, cp)
	s.byID[ev.ID] = cp
	return nil
}

// FindByID retrieves an access event by its UUID.
func (s *InMemory) FindByID(_ context.Context, eventID id.EventID) (*models.AccessEvent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if ev, ok := s.byID[eventID]; ok {
		return cloneEvent(ev), nil
	}
	return nil, ErrNotFound
}

// ListRecent returns the newest events first.
func (s *InMemory) ListRecent(_ context.Context, limit int) ([]*models.AccessEvent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.collect(limit, func(*models.AccessEvent) bool { return true }), nil
}

// ListBySubject returns the subject's newest events first.
func (s *InMemory) ListBySubject(_ context.Context, subjectID id.SubjectID, limit int) ([]*models.AccessEvent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.collect(limit, func(ev *models.AccessEvent) bool {
		return ev.SubjectID != nil && *ev.SubjectID == subjectID
	}), nil
}

func (s *InMemory) collect(limit int, match func(*models.AccessEvent) bool) []*models.AccessEvent {
	out := make([]*models.AccessEvent, 0, limit)
	for i := len(s.events) - 1; i >= 0 && len(out) < limit; i-- {
		if match(s.events[i]) {
			out = append(out, cloneEvent(s.events[i]))
		}
	}
	return out
}

func cloneEvent(ev *models.AccessEvent) *models.AccessEvent {
	cp := *ev
	if ev.SubjectID != nil {
		v := *ev.SubjectID
		cp.SubjectID = &v
	}
	if ev.RosterID != nil {
		v := *ev.RosterID
		cp.RosterID = &v
	}
	if ev.TokenID != nil {
		v := *ev.TokenID
		cp.TokenID = &v
	}
	return &cp
}
