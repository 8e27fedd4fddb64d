package service

import (
	"context"
	"errors"

	"go.uber.org/mock/gomock"

	cmodels "gatepass/internal/credential/models"
	id "gatepass/pkg/domain"
	dErrors "gatepass/pkg/domain-errors"
)

func (s *ServiceSuite) TestIssue() {
	s.Run("issues a signed verifiable token", func() {
		res := s.makeResolution("V-1")

		s.resolver.EXPECT().FindByExternalID(gomock.Any(), "V-1", id.RosterID{}).Return(res, nil)

		var created *cmodels.IssuedToken
		s.tokens.EXPECT().Create(gomock.Any(), gomock.Any()).DoAndReturn(
			func(_ context.Context, tok *cmodels.IssuedToken) error {
				created = tok
				return nil
			})

		result, err := s.service.Issue(s.ctx, "V-1", id.RosterID{})
		s.Require().NoError(err)
		s.Require().NotNil(created)
		s.Equal(result.TokenID, created.ID)
		s.Equal(res.Subject.ID, created.SubjectID)
		s.Equal(res.Roster.ID, created.RosterID)
		s.Equal("V-1", created.SubjectExternalID)
		s.True(created.Active)
		s.Equal(int64(0), created.UseCount)
		s.NotEmpty(created.Nonce)
		s.NotEmpty(created.Signature)
		s.True(created.IssuedAt.Equal(s.now))

		// The envelope must round-trip through the same signer.
		payload, err := s.signer.Verify(result.Envelope)
		s.Require().NoError(err)
		s.Equal("V-1", payload.SubjectExternalID)
		s.Equal(created.Nonce, payload.Nonce)
	})

	s.Run("reissuance leaves prior tokens untouched", func() {
		res := s.makeResolution("V-1")

		s.resolver.EXPECT().FindByExternalID(gomock.Any(), "V-1", id.RosterID{}).Return(res, nil).Times(2)
		s.tokens.EXPECT().Create(gomock.Any(), gomock.Any()).Return(nil).Times(2)
		// No Deactivate expectation: issuance must never revoke.

		first, err := s.service.Issue(s.ctx, "V-1", id.RosterID{})
		s.Require().NoError(err)
		second, err := s.service.Issue(s.ctx, "V-1", id.RosterID{})
		s.Require().NoError(err)
		s.NotEqual(first.TokenID, second.TokenID)
		s.NotEqual(first.Envelope, second.Envelope)
	})

	s.Run("unknown subject propagates", func() {
		s.resolver.EXPECT().FindByExternalID(gomock.Any(), "GHOST", id.RosterID{}).
			Return(nil, subjectNotFoundErr())

		_, err := s.service.Issue(s.ctx, "GHOST", id.RosterID{})
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeSubjectNotFound))
	})

	s.Run("storage failure propagates", func() {
		res := s.makeResolution("V-1")

		s.resolver.EXPECT().FindByExternalID(gomock.Any(), "V-1", id.RosterID{}).Return(res, nil)
		s.tokens.EXPECT().Create(gomock.Any(), gomock.Any()).
			Return(errors.New("connection refused"))

		_, err := s.service.Issue(s.ctx, "V-1", id.RosterID{})
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeStorageUnavailable))
	})
}

func (s *ServiceSuite) TestRevoke() {
	s.Run("revokes an active token", func() {
		tokenID := id.NewTokenID()
		s.tokens.EXPECT().Deactivate(gomock.Any(), tokenID).Return(nil)

		s.Require().NoError(s.service.Revoke(s.ctx, tokenID))
	})

	s.Run("unknown token", func() {
		tokenID := id.NewTokenID()
		s.tokens.EXPECT().Deactivate(gomock.Any(), tokenID).Return(notFoundErr())

		err := s.service.Revoke(s.ctx, tokenID)
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})

	s.Run("storage failure", func() {
		tokenID := id.NewTokenID()
		s.tokens.EXPECT().Deactivate(gomock.Any(), tokenID).
			Return(errors.New("connection refused"))

		err := s.service.Revoke(s.ctx, tokenID)
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeStorageUnavailable))
	})
}
