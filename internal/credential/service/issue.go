package service

import (
	"context"
	"errors"
	"time"

	"gatepass/internal/credential/models"
	"gatepass/internal/credential/tracer"
	"gatepass/internal/sentinel"
	"gatepass/internal/signer"
	id "gatepass/pkg/domain"
	dErrors "gatepass/pkg/domain-errors"
	"gatepass/pkg/requesttime"
)

// IssueResult is the outcome of a successful issuance.
type IssueResult struct {
	Envelope string
	TokenID  id.TokenID
}

// Issue creates, signs, and persists a new credential token for the subject.
// Prior tokens for the same subject stay active: multiple concurrently valid
// tokens are permitted, and the most-recent-active rule decides precedence at
// scan time. Unlike Verify, storage errors propagate to the caller since
// issuance has no partial-success state.
func (s *Service) Issue(ctx context.Context, subjectExternalID string, rosterID id.RosterID) (*IssueResult, error) {
	ctx, span := s.tracer.Start(ctx, tracer.SpanIssue,
		tracer.String(tracer.AttrSubjectHash, tracer.HashExternalID(subjectExternalID)),
		tracer.Bool(tracer.AttrRosterScoped, !rosterID.IsNil()),
	)
	var issueErr error
	defer func() { span.End(issueErr) }()

	resCtx, cancel := s.storageCtx(ctx)
	res, err := s.resolver.FindByExternalID(resCtx, subjectExternalID, rosterID)
	cancel()
	if err != nil {
		issueErr = err
		return nil, err
	}

	now := requesttime.Now(ctx)
	payload, err := signer.NewPayload(res.Subject.ExternalID, now)
	if err != nil {
		issueErr = err
		return nil, err
	}
	envelope, signature, err := s.signer.SignedEnvelope(payload)
	if err != nil {
		issueErr = err
		return nil, err
	}

	tok := &models.IssuedToken{
		ID:                id.NewTokenID(),
		SubjectID:         res.Subject.ID,
		RosterID:          res.Subject.RosterID,
		SubjectExternalID: res.Subject.ExternalID,
		IssuedAt:          time.UnixMilli(payload.IssuedAt),
		Nonce:             payload.Nonce,
		Signature:         signature,
		Active:            true,
		CreatedAt:         now,
	}

	createCtx, cancel := s.storageCtx(ctx)
	err = s.tokens.Create(createCtx, tok)
	cancel()
	if err != nil {
		issueErr = dErrors.Wrap(err, dErrors.CodeStorageUnavailable, "persist issued token")
		return nil, issueErr
	}

	if s.metrics != nil {
		s.metrics.IncrementTokensIssued()
	}
	s.logger.Info("credential token issued",
		"token_id", tok.ID.String(),
		"roster_id", tok.RosterID.String(),
	)
	return &IssueResult{Envelope: envelope, TokenID: tok.ID}, nil
}

// Revoke clears a token's active flag. Rows are never deleted; revoking an
// already-inactive token succeeds.
func (s *Service) Revoke(ctx context.Context, tokenID id.TokenID) error {
	deactivateCtx, cancel := s.storageCtx(ctx)
	err := s.tokens.Deactivate(deactivateCtx, tokenID)
	cancel()
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return dErrors.New(dErrors.CodeNotFound, "token not found")
		}
		return dErrors.Wrap(err, dErrors.CodeStorageUnavailable, "revoke token")
	}

	if s.metrics != nil {
		s.metrics.IncrementTokensRevoked()
	}
	s.logger.Info("credential token revoked", "token_id", tokenID.String())
	return nil
}
