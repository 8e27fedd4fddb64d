// Package signer implements the HMAC envelope around credential payloads.
// It is pure: no storage or network access, so it can be tested with fixed
// secrets and fixed clocks.
package signer

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"time"

	dErrors "gatepass/pkg/domain-errors"
)

// DefaultMaxAge bounds how old a credential payload may be before it is
// rejected as expired.
const DefaultMaxAge = 24 * time.Hour

const nonceBytes = 16

// Payload is the canonical credential payload embedded in the scannable code.
// Struct field order fixes the serialization order, which keeps signatures
// stable across issuance and verification.
type Payload struct {
	SubjectExternalID string `json:"subject_external_id"`
	IssuedAt          int64  `json:"issued_at"` // epoch millis
	Nonce             string `json:"nonce"`
}

// envelope is the base64-encoded wire wrapper transmitted as the scannable code.
type envelope struct {
	Data      string `json:"data"`
	Signature string `json:"signature"`
}

// Signer creates and validates signed credential envelopes.
type Signer struct {
	secret []byte
	maxAge time.Duration
	now    func() time.Time
}

// Option configures the Signer.
type Option func(*Signer)

// WithMaxAge overrides the accepted payload age.
func WithMaxAge(d time.Duration) Option {
	return func(s *Signer) {
		if d > 0 {
			s.maxAge = d
		}
	}
}

// WithClock injects a clock for deterministic expiry tests.
func WithClock(now func() time.Time) Option {
	return func(s *Signer) {
		if now != nil {
			s.now = now
		}
	}
}

// New creates a Signer. An empty secret is a configuration error: the service
// must refuse to start rather than sign with a guessable key.
func New(secret string, opts ...Option) (*Signer, error) {
	if secret == "" {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "signing secret is required")
	}
	s := &Signer{
		secret: []byte(secret),
		maxAge: DefaultMaxAge,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// NewPayload builds a payload for the given subject with a fresh random nonce.
func NewPayload(subjectExternalID string, issuedAt time.Time) (Payload, error) {
	if subjectExternalID == "" {
		return Payload{}, dErrors.New(dErrors.CodeInvalidInput, "subject external ID is required")
	}
	buf := make([]byte, nonceBytes)
	if _, err := rand.Read(buf); err != nil {
		return Payload{}, dErrors.Wrap(err, dErrors.CodeInternal, "could not generate nonce")
	}
	return Payload{
		SubjectExternalID: subjectExternalID,
		IssuedAt:          issuedAt.UnixMilli(),
		Nonce:             hex.EncodeToString(buf),
	}, nil
}

// Sign serializes the payload canonically, signs it, and wraps it in the
// base64 envelope transmitted as the scannable code.
func (s *Signer) Sign(p Payload) (string, error) {
	encoded, _, err := s.SignedEnvelope(p)
	return encoded, err
}

// SignedEnvelope is Sign plus the hex signature, which issuance persists on
// the token record for audit correlation.
func (s *Signer) SignedEnvelope(p Payload) (string, string, error) {
	data, err := json.Marshal(p)
	if err != nil {
		return "", "", dErrors.Wrap(err, dErrors.CodeInternal, "could not serialize payload")
	}
	sig := hex.EncodeToString(s.signature(data))
	env, err := json.Marshal(envelope{
		Data:      string(data),
		Signature: sig,
	})
	if err != nil {
		return "", "", dErrors.Wrap(err, dErrors.CodeInternal, "could not serialize envelope")
	}
	return base64.StdEncoding.EncodeToString(env), sig, nil
}

// Verify decodes and validates an envelope. On success it returns the parsed
// payload; every failure carries one of the credential error codes so the
// pipeline can map it to a denial reason.
func (s *Signer) Verify(encoded string) (Payload, error) {
	raw, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return Payload{}, dErrors.New(dErrors.CodeMalformedEnvelope, "envelope is not valid base64")
	}

	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return Payload{}, dErrors.New(dErrors.CodeMalformedEnvelope, "envelope is not valid JSON")
	}
	if env.Data == "" || env.Signature == "" {
		return Payload{}, dErrors.New(dErrors.CodeMalformedEnvelope, "envelope is missing data or signature")
	}

	provided, err := hex.DecodeString(env.Signature)
	if err != nil {
		return Payload{}, dErrors.New(dErrors.CodeSignatureMismatch, "credential signature is invalid")
	}
	expected := s.signature([]byte(env.Data))
	// hmac.Equal is constant-time. This is a security invariant: a
	// short-circuit comparison would leak signature prefixes through timing.
	if !hmac.Equal(provided, expected) {
		return Payload{}, dErrors.New(dErrors.CodeSignatureMismatch, "credential signature is invalid")
	}

	var p Payload
	if err := json.Unmarshal([]byte(env.Data), &p); err != nil {
		return Payload{}, dErrors.New(dErrors.CodeMalformedEnvelope, "payload is not valid JSON")
	}

	age := s.now().UnixMilli() - p.IssuedAt
	if age > s.maxAge.Milliseconds() || age < 0 {
		return Payload{}, dErrors.New(dErrors.CodeTokenExpired, "credential has expired")
	}

	return p, nil
}

func (s *Signer) signature(data []byte) []byte {
	mac := hmac.New(sha256.New, s.secret)
	mac.Write(data)
	return mac.Sum(nil)
}
