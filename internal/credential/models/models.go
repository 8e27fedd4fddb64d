// Package models defines the credential verification entities: issued tokens,
// access events, and the denial taxonomy recorded on every decision.
package models

import (
	"time"

	"gatepass/internal/schema"
	id "gatepass/pkg/domain"
	dErrors "gatepass/pkg/domain-errors"
)

// DenialReason is the stable machine-readable reason recorded on every
// non-granted access event. Values are wire-stable; callers and dashboards
// depend on them.
type DenialReason string

const (
	DenialNone               DenialReason = ""
	DenialMalformedEnvelope  DenialReason = "malformed_envelope"
	DenialSignatureMismatch  DenialReason = "signature_mismatch"
	DenialTokenExpired       DenialReason = "token_expired"
	DenialSubjectNotFound    DenialReason = "subject_not_found"
	DenialNoActiveCredential DenialReason = "no_active_credential"
	DenialStorageUnavailable DenialReason = "storage_unavailable"
)

// DenialReasonForError maps a pipeline failure onto its denial reason. Any
// error without a recognized domain code is a storage-layer fault and denies
// fail-closed.
func DenialReasonForError(err error) DenialReason {
	switch dErrors.CodeOf(err) {
	case dErrors.CodeMalformedEnvelope:
		return DenialMalformedEnvelope
	case dErrors.CodeSignatureMismatch:
		return DenialSignatureMismatch
	case dErrors.CodeTokenExpired:
		return DenialTokenExpired
	case dErrors.CodeSubjectNotFound:
		return DenialSubjectNotFound
	case dErrors.CodeNoActiveCredential:
		return DenialNoActiveCredential
	}
	return DenialStorageUnavailable
}

// IssuedToken records one token issuance. A subject accumulates records over
// time; reissuance never deletes history and active=false is the only
// revocation primitive. UseCount and LastUsedAt are mutated only by granted
// verifications, through an atomic store-level increment.
type IssuedToken struct {
	ID                id.TokenID
	SubjectID         id.SubjectID
	RosterID          id.RosterID
	SubjectExternalID string
	IssuedAt          time.Time
	Nonce             string
	Signature         string
	Active            bool
	UseCount          int64
	LastUsedAt        *time.Time
	CreatedAt         time.Time
}

// AccessEvent is one verification attempt, granted or not. Append-only; the
// verification core never updates or deletes events.
type AccessEvent struct {
	ID              id.EventID
	SubjectID       *id.SubjectID
	RosterID        *id.RosterID
	TokenID         *id.TokenID
	Granted         bool
	DenialReason    DenialReason
	ScannerLocation string
	ScannerDevice   string
	Timestamp       time.Time
}

// Decision is the structured outcome handed back to the scanning client.
// Callers never see raw errors from verification, only this result.
type Decision struct {
	Granted      bool
	DenialReason DenialReason
	Subject      *schema.DisplayFields
	RosterID     *id.RosterID
	RosterName   string
	TokenID      *id.TokenID
}
