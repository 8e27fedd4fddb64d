package ratelimit

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
)

type LimiterSuite struct {
	suite.Suite
	ctx   context.Context
	now   time.Time
	store *MemoryStore
}

func TestLimiterSuite(t *testing.T) {
	suite.Run(t, new(LimiterSuite))
}

func (s *LimiterSuite) SetupTest() {
	s.ctx = context.Background()
	s.now = time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	s.store = NewMemoryStore(WithClock(func() time.Time { return s.now }))
}

func (s *LimiterSuite) newLimiter(limit int, opts ...Option) *Limiter {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	all := append([]Option{
		WithLogger(logger),
		WithLimit(limit),
		WithWindow(time.Minute),
	}, opts...)
	l, err := New(s.store, all...)
	s.Require().NoError(err)
	return l
}

func (s *LimiterSuite) TestAllow() {
	s.Run("requests within the limit pass", func() {
		l := s.newLimiter(3)
		for i := 0; i < 3; i++ {
			s.True(l.Allow(s.ctx, "scanner-a"))
		}
		s.False(l.Allow(s.ctx, "scanner-a"))
	})

	s.Run("keys are counted independently", func() {
		l := s.newLimiter(1)
		s.True(l.Allow(s.ctx, "scanner-b"))
		s.False(l.Allow(s.ctx, "scanner-b"))
		s.True(l.Allow(s.ctx, "scanner-c"))
	})

	s.Run("window elapse resets the counter", func() {
		l := s.newLimiter(1)
		s.True(l.Allow(s.ctx, "scanner-d"))
		s.False(l.Allow(s.ctx, "scanner-d"))

		s.now = s.now.Add(61 * time.Second)
		s.True(l.Allow(s.ctx, "scanner-d"))
	})
}

type failingStore struct{}

func (failingStore) Increment(context.Context, string, time.Duration) (int64, error) {
	return 0, errors.New("connection refused")
}

func TestLimiterFailsOpen(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	l, err := New(failingStore{}, WithLogger(logger), WithLimit(1))
	require.NoError(t, err)

	// Counter store down: every request is allowed.
	for i := 0; i < 5; i++ {
		require.True(t, l.Allow(context.Background(), "scanner-a"))
	}
}

func TestLimiterMiddleware(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	limited := 0
	l, err := New(NewMemoryStore(),
		WithLogger(logger),
		WithLimit(1),
		WithWindow(time.Minute),
		WithLimitedCallback(func(string) { limited++ }),
	)
	require.NoError(t, err)

	handler := l.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodPost, "/verify", nil)
	req.RemoteAddr = "10.0.0.1:5000"

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	require.Equal(t, http.StatusTooManyRequests, rec.Code)
	require.NotEmpty(t, rec.Header().Get("Retry-After"))
	require.Equal(t, 1, limited)
}
