package token

import (
	"context"
	"sort"
	"sync"
	"time"

	"gatepass/internal/credential/models"
	"gatepass/internal/sentinel"
	id "gatepass/pkg/domain"
)

// ErrNotFound is returned when an issued token is not found.
var ErrNotFound = sentinel.ErrNotFound

// Store defines persistence for issued tokens.
// Error Contract: all Find methods return ErrNotFound (optionally wrapped)
// when no token matches. Rows are never deleted; Deactivate is the only
// revocation primitive and is idempotent.
type Store interface {
	Create(ctx context.Context, tok *models.IssuedToken) error
	FindByID(ctx context.Context, tokenID id.TokenID) (*models.IssuedToken, error)
	// FindMostRecentActive returns the newest token with active=true for
	// the subject. Older active tokens remain valid records; only the most
	// recent one wins at verification time.
	FindMostRecentActive(ctx context.Context, subjectID id.SubjectID) (*models.IssuedToken, error)
	// RecordUse increments use_count by one and sets last_used_at as a
	// single atomic store-level operation. Concurrent calls on the same
	// token must not lose updates.
	RecordUse(ctx context.Context, tokenID id.TokenID, usedAt time.Time) error
	Deactivate(ctx context.Context, tokenID id.TokenID) error
}

// InMemory stores issued tokens in memory with a per-subject index.
type InMemory struct {
	mu         sync.RWMutex
	tokens     map[id.TokenID]*models.IssuedToken
	subjectIdx map[id.SubjectID][]id.TokenID
}

// NewInMemory creates an in-memory token store.
func NewInMemory() *InMemory {
	return &InMemory{
		tokens:     make(map[id.TokenID]*models.IssuedToken),
		subjectIdx: make(map[id.SubjectID][]id.TokenID),
	}
}

// Create inserts an issued token record.
func (s *InMemory) Create(_ context.Context, tok *models.IssuedToken) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tokens[tok.ID] = cloneToken(tok)
	s.subjectIdx[tok.SubjectID] = append(s.subjectIdx[tok.SubjectID], tok.ID)
	return nil
}

// FindByID retrieves an issued token by its UUID.
func (s *InMemory) FindByID(_ context.Context, tokenID id.TokenID) (*models.IssuedToken, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if tok, ok := s.tokens[tokenID]; ok {
		return cloneToken(tok), nil
	}
	return nil, ErrNotFound
}

// FindMostRecentActive returns the newest active token for the subject.
func (s *InMemory) FindMostRecentActive(_ context.Context, subjectID id.SubjectID) (*models.IssuedToken, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	candidates := make([]*models.IssuedToken, 0, len(s.subjectIdx[subjectID]))
	for _, tid := range s.subjectIdx[subjectID] {
		if tok := s.tokens[tid]; tok.Active {
			candidates = append(candidates, tok)
		}
	}
	if len(candidates) == 0 {
		return nil, ErrNotFound
	}
	sort.Slice(candidates, func(i, j int) bool {
		return candidates[i].CreatedAt.After(candidates[j].CreatedAt)
	})
	return cloneToken(candidates[0]), nil
}

// RecordUse performs the increment under the store lock so concurrent scans
// of one token serialize rather than losing counts.
func (s *InMemory) RecordUse(_ context.Context, tokenID id.TokenID, usedAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	tok, ok := s.tokens[tokenID]
	if !ok {
		return ErrNotFound
	}
	tok.UseCount++
	tok.LastUsedAt = &usedAt
	return nil
}

// Deactivate clears the active flag. Already-inactive tokens are a no-op.
func (s *InMemory) Deactivate(_ context.Context, tokenID id.TokenID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	tok, ok := s.tokens[tokenID]
	if !ok {
		return ErrNotFound
	}
	tok.Active = false
	return nil
}

func cloneToken(tok *models.IssuedToken) *models.IssuedToken {
	cp := *tok
	if tok.LastUsedAt != nil {
		t := *tok.LastUsedAt
		cp.LastUsedAt = &t
	}
	return &cp
}
