package service

import (
	"context"
	"errors"
	"time"

	"go.uber.org/mock/gomock"

	cmodels "gatepass/internal/credential/models"
	id "gatepass/pkg/domain"
)

func (s *ServiceSuite) grantedToken(subjectID id.SubjectID, rosterID id.RosterID, externalID string) *cmodels.IssuedToken {
	return &cmodels.IssuedToken{
		ID:                id.NewTokenID(),
		SubjectID:         subjectID,
		RosterID:          rosterID,
		SubjectExternalID: externalID,
		IssuedAt:          s.now.Add(-time.Hour),
		Active:            true,
		CreatedAt:         s.now.Add(-time.Hour),
	}
}

func (s *ServiceSuite) TestVerifyGranted() {
	res := s.makeResolution("V-1")
	tok := s.grantedToken(res.Subject.ID, res.Roster.ID, "V-1")
	envelope := s.makeEnvelope("V-1", s.now.Add(-time.Minute))

	s.resolver.EXPECT().FindByExternalID(gomock.Any(), "V-1", id.RosterID{}).Return(res, nil)
	s.tokens.EXPECT().FindMostRecentActive(gomock.Any(), res.Subject.ID).Return(tok, nil)
	s.tokens.EXPECT().RecordUse(gomock.Any(), tok.ID, s.now).Return(nil)

	var logged *cmodels.AccessEvent
	s.events.EXPECT().Append(gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, ev *cmodels.AccessEvent) error {
			logged = ev
			return nil
		})
	s.feed.EXPECT().Publish(gomock.Any())

	decision, err := s.service.Verify(s.ctx, VerifyRequest{
		Envelope:        envelope,
		ScannerLocation: "north gate",
		ScannerDevice:   "Android 14 Chrome/120",
	})
	s.Require().NoError(err)
	s.Require().True(decision.Granted)
	s.Equal(cmodels.DenialNone, decision.DenialReason)
	s.Equal("visitors", decision.RosterName)
	s.Require().NotNil(decision.Subject)
	s.Equal("Jane Doe", decision.Subject.FullName)
	s.Equal("SC1", decision.Subject.Identifier)
	s.Require().NotNil(decision.TokenID)
	s.Equal(tok.ID, *decision.TokenID)

	s.Require().NotNil(logged)
	s.True(logged.Granted)
	s.Equal(cmodels.DenialNone, logged.DenialReason)
	s.Equal(res.Subject.ID, *logged.SubjectID)
	s.Equal(res.Roster.ID, *logged.RosterID)
	s.Equal(tok.ID, *logged.TokenID)
	s.Equal("north gate", logged.ScannerLocation)
	s.True(logged.Timestamp.Equal(s.now))
}

func (s *ServiceSuite) TestVerifyScopedRoster() {
	res := s.makeResolution("V-1")
	tok := s.grantedToken(res.Subject.ID, res.Roster.ID, "V-1")
	envelope := s.makeEnvelope("V-1", s.now)

	s.resolver.EXPECT().FindByExternalID(gomock.Any(), "V-1", res.Roster.ID).Return(res, nil)
	s.tokens.EXPECT().FindMostRecentActive(gomock.Any(), res.Subject.ID).Return(tok, nil)
	s.tokens.EXPECT().RecordUse(gomock.Any(), tok.ID, s.now).Return(nil)
	s.events.EXPECT().Append(gomock.Any(), gomock.Any()).Return(nil)
	s.feed.EXPECT().Publish(gomock.Any())

	decision, err := s.service.Verify(s.ctx, VerifyRequest{
		Envelope:      envelope,
		ScopeRosterID: res.Roster.ID,
	})
	s.Require().NoError(err)
	s.True(decision.Granted)
}

func (s *ServiceSuite) TestVerifyDenials() {
	s.Run("malformed envelope", func() {
		var logged *cmodels.AccessEvent
		s.events.EXPECT().Append(gomock.Any(), gomock.Any()).DoAndReturn(
			func(_ context.Context, ev *cmodels.AccessEvent) error {
				logged = ev
				return nil
			})
		s.feed.EXPECT().Publish(gomock.Any())

		decision, err := s.service.Verify(s.ctx, VerifyRequest{Envelope: "not-base64!!!"})
		s.Require().NoError(err)
		s.False(decision.Granted)
		s.Equal(cmodels.DenialMalformedEnvelope, decision.DenialReason)
		s.Nil(decision.Subject)

		s.Require().NotNil(logged)
		s.False(logged.Granted)
		s.Equal(cmodels.DenialMalformedEnvelope, logged.DenialReason)
		s.Nil(logged.SubjectID)
		s.Nil(logged.TokenID)
	})

	s.Run("signature mismatch never reaches the resolver", func() {
		// Flip one payload character inside an otherwise valid envelope.
		tampered := tamper(s.T(), s.makeEnvelope("V-1", s.now))

		s.events.EXPECT().Append(gomock.Any(), gomock.Any()).Return(nil)
		s.feed.EXPECT().Publish(gomock.Any())

		decision, err := s.service.Verify(s.ctx, VerifyRequest{Envelope: tampered})
		s.Require().NoError(err)
		s.False(decision.Granted)
		s.Equal(cmodels.DenialSignatureMismatch, decision.DenialReason)
	})

	s.Run("expired token", func() {
		envelope := s.makeEnvelope("V-1", s.now.Add(-25*time.Hour))

		s.events.EXPECT().Append(gomock.Any(), gomock.Any()).Return(nil)
		s.feed.EXPECT().Publish(gomock.Any())

		decision, err := s.service.Verify(s.ctx, VerifyRequest{Envelope: envelope})
		s.Require().NoError(err)
		s.Equal(cmodels.DenialTokenExpired, decision.DenialReason)
	})

	s.Run("unknown subject", func() {
		envelope := s.makeEnvelope("GHOST", s.now)

		s.resolver.EXPECT().FindByExternalID(gomock.Any(), "GHOST", id.RosterID{}).
			Return(nil, subjectNotFoundErr())
		s.events.EXPECT().Append(gomock.Any(), gomock.Any()).Return(nil)
		s.feed.EXPECT().Publish(gomock.Any())

		decision, err := s.service.Verify(s.ctx, VerifyRequest{Envelope: envelope})
		s.Require().NoError(err)
		s.Equal(cmodels.DenialSubjectNotFound, decision.DenialReason)
	})

	s.Run("no active credential keeps subject on the event", func() {
		res := s.makeResolution("V-1")
		envelope := s.makeEnvelope("V-1", s.now)

		s.resolver.EXPECT().FindByExternalID(gomock.Any(), "V-1", id.RosterID{}).Return(res, nil)
		s.tokens.EXPECT().FindMostRecentActive(gomock.Any(), res.Subject.ID).
			Return(nil, notFoundErr())

		var logged *cmodels.AccessEvent
		s.events.EXPECT().Append(gomock.Any(), gomock.Any()).DoAndReturn(
			func(_ context.Context, ev *cmodels.AccessEvent) error {
				logged = ev
				return nil
			})
		s.feed.EXPECT().Publish(gomock.Any())

		decision, err := s.service.Verify(s.ctx, VerifyRequest{Envelope: envelope})
		s.Require().NoError(err)
		s.Equal(cmodels.DenialNoActiveCredential, decision.DenialReason)

		s.Require().NotNil(logged)
		s.Equal(res.Subject.ID, *logged.SubjectID)
		s.Nil(logged.TokenID)
	})
}

func (s *ServiceSuite) TestVerifyFailClosed() {
	s.Run("storage fault denies and surfaces the error", func() {
		res := s.makeResolution("V-1")
		envelope := s.makeEnvelope("V-1", s.now)

		s.resolver.EXPECT().FindByExternalID(gomock.Any(), "V-1", id.RosterID{}).Return(res, nil)
		s.tokens.EXPECT().FindMostRecentActive(gomock.Any(), res.Subject.ID).
			Return(nil, errors.New("connection refused"))
		s.events.EXPECT().Append(gomock.Any(), gomock.Any()).Return(nil)
		s.feed.EXPECT().Publish(gomock.Any())

		decision, err := s.service.Verify(s.ctx, VerifyRequest{Envelope: envelope})
		s.Require().Error(err)
		s.False(decision.Granted)
		s.Equal(cmodels.DenialStorageUnavailable, decision.DenialReason)
	})

	s.Run("resolver storage fault denies and surfaces the error", func() {
		envelope := s.makeEnvelope("V-1", s.now)

		s.resolver.EXPECT().FindByExternalID(gomock.Any(), "V-1", id.RosterID{}).
			Return(nil, storageErr())
		s.events.EXPECT().Append(gomock.Any(), gomock.Any()).Return(nil)
		s.feed.EXPECT().Publish(gomock.Any())

		decision, err := s.service.Verify(s.ctx, VerifyRequest{Envelope: envelope})
		s.Require().Error(err)
		s.Equal(cmodels.DenialStorageUnavailable, decision.DenialReason)
	})
}

func (s *ServiceSuite) TestVerifyBookkeepingFailOpen() {
	s.Run("failed use recording does not flip the grant", func() {
		res := s.makeResolution("V-1")
		tok := s.grantedToken(res.Subject.ID, res.Roster.ID, "V-1")
		envelope := s.makeEnvelope("V-1", s.now)

		s.resolver.EXPECT().FindByExternalID(gomock.Any(), "V-1", id.RosterID{}).Return(res, nil)
		s.tokens.EXPECT().FindMostRecentActive(gomock.Any(), res.Subject.ID).Return(tok, nil)
		s.tokens.EXPECT().RecordUse(gomock.Any(), tok.ID, s.now).
			Return(errors.New("deadlock detected"))

		var logged *cmodels.AccessEvent
		s.events.EXPECT().Append(gomock.Any(), gomock.Any()).DoAndReturn(
			func(_ context.Context, ev *cmodels.AccessEvent) error {
				logged = ev
				return nil
			})
		s.feed.EXPECT().Publish(gomock.Any())

		decision, err := s.service.Verify(s.ctx, VerifyRequest{Envelope: envelope})
		s.Require().NoError(err)
		s.True(decision.Granted)
		s.Require().NotNil(logged)
		s.True(logged.Granted)
	})

	s.Run("failed audit append does not change the decision", func() {
		res := s.makeResolution("V-1")
		tok := s.grantedToken(res.Subject.ID, res.Roster.ID, "V-1")
		envelope := s.makeEnvelope("V-1", s.now)

		s.resolver.EXPECT().FindByExternalID(gomock.Any(), "V-1", id.RosterID{}).Return(res, nil)
		s.tokens.EXPECT().FindMostRecentActive(gomock.Any(), res.Subject.ID).Return(tok, nil)
		s.tokens.EXPECT().RecordUse(gomock.Any(), tok.ID, s.now).Return(nil)
		s.events.EXPECT().Append(gomock.Any(), gomock.Any()).
			Return(errors.New("disk full"))
		s.feed.EXPECT().Publish(gomock.Any())

		decision, err := s.service.Verify(s.ctx, VerifyRequest{Envelope: envelope})
		s.Require().NoError(err)
		s.True(decision.Granted)
	})
}

// Rapid repeat scans are distinct physical events: both increment usage and
// both are logged.
func (s *ServiceSuite) TestVerifyNotIdempotent() {
	res := s.makeResolution("V-1")
	tok := s.grantedToken(res.Subject.ID, res.Roster.ID, "V-1")
	envelope := s.makeEnvelope("V-1", s.now)

	s.resolver.EXPECT().FindByExternalID(gomock.Any(), "V-1", id.RosterID{}).Return(res, nil).Times(2)
	s.tokens.EXPECT().FindMostRecentActive(gomock.Any(), res.Subject.ID).Return(tok, nil).Times(2)
	s.tokens.EXPECT().RecordUse(gomock.Any(), tok.ID, s.now).Return(nil).Times(2)
	s.events.EXPECT().Append(gomock.Any(), gomock.Any()).Return(nil).Times(2)
	s.feed.EXPECT().Publish(gomock.Any()).Times(2)

	for i := 0; i < 2; i++ {
		decision, err := s.service.Verify(s.ctx, VerifyRequest{Envelope: envelope})
		s.Require().NoError(err)
		s.True(decision.Granted)
	}
}
