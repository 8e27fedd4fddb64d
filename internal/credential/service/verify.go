package service

import (
	"context"
	"errors"
	"time"

	"golang.org/x/sync/errgroup"

	"gatepass/internal/credential/models"
	"gatepass/internal/credential/tracer"
	"gatepass/internal/resolver"
	"gatepass/internal/schema"
	"gatepass/internal/sentinel"
	id "gatepass/pkg/domain"
	dErrors "gatepass/pkg/domain-errors"
	"gatepass/pkg/requesttime"
)

// VerifyRequest is one physical scan presented for a decision.
type VerifyRequest struct {
	Envelope        string
	ScopeRosterID   id.RosterID
	ScannerLocation string
	ScannerDevice   string
}

// Verify runs the full verification pipeline: signature check, subject
// resolution, active-token check, usage recording, and audit. It always
// returns a decision and always records exactly one access event; the error
// is non-nil only for storage faults, so monitoring can tell an outage from
// a legitimate denial. Deliberately not idempotent: every call is a distinct
// physical scan and increments usage.
func (s *Service) Verify(ctx context.Context, req VerifyRequest) (*models.Decision, error) {
	start := time.Now()
	ctx, span := s.tracer.Start(ctx, tracer.SpanVerify,
		tracer.Bool(tracer.AttrRosterScoped, !req.ScopeRosterID.IsNil()),
	)

	payload, err := s.signer.Verify(req.Envelope)
	if err != nil {
		return s.deny(ctx, span, req, nil, nil, err, start)
	}
	span.SetAttributes(tracer.String(tracer.AttrSubjectHash, tracer.HashExternalID(payload.SubjectExternalID)))

	resCtx, cancel := s.storageCtx(ctx)
	res, err := s.resolver.FindByExternalID(resCtx, payload.SubjectExternalID, req.ScopeRosterID)
	cancel()
	if err != nil {
		return s.deny(ctx, span, req, nil, nil, err, start)
	}

	// The active-token lookup is storage I/O while display resolution is
	// pure; run both while the row is fetched.
	var (
		tok     *models.IssuedToken
		display schema.DisplayFields
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		tokCtx, cancel := s.storageCtx(gctx)
		defer cancel()
		t, err := s.tokens.FindMostRecentActive(tokCtx, res.Subject.ID)
		if err != nil {
			if errors.Is(err, sentinel.ErrNotFound) {
				return dErrors.New(dErrors.CodeNoActiveCredential, "subject has no active credential")
			}
			return dErrors.Wrap(err, dErrors.CodeStorageUnavailable, "load active token")
		}
		tok = t
		return nil
	})
	g.Go(func() error {
		display = res.Display()
		return nil
	})
	if err := g.Wait(); err != nil {
		return s.deny(ctx, span, req, res, nil, err, start)
	}

	now := requesttime.Now(ctx)

	// Best-effort bookkeeping: the decision is already final, so a failed
	// increment is logged and counted but never flips the grant.
	useCtx, cancel := s.storageCtx(ctx)
	err = s.tokens.RecordUse(useCtx, tok.ID, now)
	cancel()
	if err != nil {
		if s.metrics != nil {
			s.metrics.IncrementUseRecordingFailures()
		}
		s.logger.Error("failed to record token use",
			"token_id", tok.ID.String(),
			"error", err,
		)
	}

	decision := &models.Decision{
		Granted:    true,
		Subject:    &display,
		RosterID:   &res.Roster.ID,
		RosterName: res.Roster.Name,
		TokenID:    &tok.ID,
	}
	s.emitEvent(ctx, &models.AccessEvent{
		ID:              id.NewEventID(),
		SubjectID:       &res.Subject.ID,
		RosterID:        &res.Roster.ID,
		TokenID:         &tok.ID,
		Granted:         true,
		ScannerLocation: req.ScannerLocation,
		ScannerDevice:   req.ScannerDevice,
		Timestamp:       now,
	})

	span.SetAttributes(tracer.Bool(tracer.AttrGranted, true))
	span.End(nil)
	if s.metrics != nil {
		s.metrics.ObserveVerification(true, "", float64(time.Since(start).Milliseconds()))
	}
	return decision, nil
}

// deny finalizes a short-circuited pipeline: it records the event, observes
// metrics, and converts the failure into a structured denial. Storage faults
// are additionally surfaced as an error so callers can distinguish outages
// from legitimate denials; the decision itself stays denied (fail-closed).
func (s *Service) deny(ctx context.Context, span tracer.Span, req VerifyRequest, res *resolver.Resolution, tok *models.IssuedToken, cause error, start time.Time) (*models.Decision, error) {
	reason := models.DenialReasonForError(cause)

	ev := &models.AccessEvent{
		ID:              id.NewEventID(),
		Granted:         false,
		DenialReason:    reason,
		ScannerLocation: req.ScannerLocation,
		ScannerDevice:   req.ScannerDevice,
		Timestamp:       requesttime.Now(ctx),
	}
	if res != nil {
		ev.SubjectID = &res.Subject.ID
		ev.RosterID = &res.Roster.ID
	}
	if tok != nil {
		ev.TokenID = &tok.ID
	}
	s.emitEvent(ctx, ev)

	span.SetAttributes(
		tracer.Bool(tracer.AttrGranted, false),
		tracer.String(tracer.AttrDenialReason, string(reason)),
	)
	span.End(cause)
	if s.metrics != nil {
		s.metrics.ObserveVerification(false, string(reason), float64(time.Since(start).Milliseconds()))
	}

	decision := &models.Decision{Granted: false, DenialReason: reason}
	if reason == models.DenialStorageUnavailable {
		return decision, cause
	}
	return decision, nil
}

// emitEvent appends exactly one access event per verification call and hands
// it to the operations feed. An append failure after the decision is final is
// counted and logged rather than propagated.
func (s *Service) emitEvent(ctx context.Context, ev *models.AccessEvent) {
	evCtx, cancel := s.storageCtx(ctx)
	defer cancel()
	if err := s.events.Append(evCtx, ev); err != nil {
		if s.metrics != nil {
			s.metrics.IncrementAuditAppendFailures()
		}
		s.logger.Error("failed to append access event",
			"event_id", ev.ID.String(),
			"error", err,
		)
	}
	if s.feed != nil {
		s.feed.Publish(ev)
	}
}
