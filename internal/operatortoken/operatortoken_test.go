package operatortoken

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	dErrors "gatepass/pkg/domain-errors"
	"gatepass/pkg/requesttime"
)

type OperatorTokenSuite struct {
	suite.Suite
	service *Service
	now     time.Time
	ctx     context.Context
}

func TestOperatorTokenSuite(t *testing.T) {
	suite.Run(t, new(OperatorTokenSuite))
}

func (s *OperatorTokenSuite) SetupTest() {
	// Claim validation runs against the real clock, so the issue time must
	// be anchored to it.
	s.now = time.Now().UTC().Truncate(time.Second)
	s.ctx = requesttime.WithTime(context.Background(), s.now)

	svc, err := NewService("operator-signing-key", 15*time.Minute)
	s.Require().NoError(err)
	s.service = svc
}

func (s *OperatorTokenSuite) TestNewService() {
	s.Run("empty key is a startup error", func() {
		_, err := NewService("", time.Minute)
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeInvariantViolation))
	})

	s.Run("non-positive ttl falls back to default", func() {
		svc, err := NewService("key", 0)
		s.Require().NoError(err)
		s.Equal(DefaultTTL, svc.ttl)
	})
}

func (s *OperatorTokenSuite) TestGenerateAndValidate() {
	s.Run("round trip", func() {
		token, err := s.service.Generate(s.ctx, "front-desk")
		s.Require().NoError(err)

		claims, err := s.service.Validate(token)
		s.Require().NoError(err)
		s.Equal("front-desk", claims.Operator)
	})

	s.Run("empty operator rejected", func() {
		_, err := s.service.Generate(s.ctx, "")
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	s.Run("wrong key rejected", func() {
		other, err := NewService("a-different-key", time.Minute)
		s.Require().NoError(err)
		token, err := other.Generate(s.ctx, "front-desk")
		s.Require().NoError(err)

		_, err = s.service.Validate(token)
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeUnauthorized))
	})

	s.Run("expired token rejected", func() {
		past := requesttime.WithTime(context.Background(), s.now.Add(-time.Hour))
		token, err := s.service.Generate(past, "front-desk")
		s.Require().NoError(err)

		_, err = s.service.Validate(token)
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeUnauthorized))
	})

	s.Run("empty token rejected", func() {
		_, err := s.service.Validate("")
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeUnauthorized))
	})
}

func (s *OperatorTokenSuite) TestRequireOperator() {
	handler := s.service.RequireOperator(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		op, ok := OperatorFromContext(r.Context())
		s.True(ok)
		s.Equal("front-desk", op)
		w.WriteHeader(http.StatusNoContent)
	}))

	s.Run("valid bearer token passes", func() {
		token, err := s.service.Generate(s.ctx, "front-desk")
		s.Require().NoError(err)

		req := httptest.NewRequest(http.MethodPost, "/tokens", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		s.Equal(http.StatusNoContent, rec.Code)
	})

	s.Run("missing header rejected", func() {
		req := httptest.NewRequest(http.MethodPost, "/tokens", nil)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		s.Equal(http.StatusUnauthorized, rec.Code)
	})

	s.Run("malformed header rejected", func() {
		req := httptest.NewRequest(http.MethodPost, "/tokens", nil)
		req.Header.Set("Authorization", "Token abc")
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		s.Equal(http.StatusUnauthorized, rec.Code)
	})
}
