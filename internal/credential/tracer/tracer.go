// Package tracer provides a lightweight tracing abstraction for the
// credential module. It keeps the verification pipeline decoupled from
// OpenTelemetry APIs while still emitting distributed traces in production.
package tracer

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"time"
)

// Span represents an active trace span.
type Span interface {
	// End completes the span, recording any error that occurred.
	// End must be called exactly once, typically via defer.
	End(err error)

	// SetAttributes adds key-value pairs to the span.
	SetAttributes(attrs ...Attribute)

	// AddEvent records a timestamped event within the span.
	AddEvent(name string, attrs ...Attribute)
}

// Tracer creates spans for distributed tracing.
// Implementations must be safe for concurrent use.
type Tracer interface {
	Start(ctx context.Context, name string, attrs ...Attribute) (context.Context, Span)
}

// Attribute represents a key-value pair attached to spans.
type Attribute struct {
	Key   string
	Value any
}

// String creates a string attribute.
func String(key, value string) Attribute {
	return Attribute{Key: key, Value: value}
}

// Bool creates a boolean attribute.
func Bool(key string, value bool) Attribute {
	return Attribute{Key: key, Value: value}
}

// Int64 creates an int64 attribute.
func Int64(key string, value int64) Attribute {
	return Attribute{Key: key, Value: value}
}

// Duration creates a duration attribute in milliseconds.
func Duration(key string, value time.Duration) Attribute {
	return Attribute{Key: key, Value: value.Milliseconds()}
}

// HashExternalID returns a truncated SHA-256 hash of a subject external ID so
// traces can be correlated without exposing the identifier itself.
func HashExternalID(externalID string) string {
	if externalID == "" {
		return ""
	}
	hash := sha256.Sum256([]byte(externalID))
	return hex.EncodeToString(hash[:8])
}

// Span names used by the credential module.
const (
	SpanVerify         = "credential.verify"
	SpanIssue          = "credential.issue"
	SpanSubjectResolve = "credential.subject_resolve"
	SpanTokenCheck     = "credential.token_check"
)

// Attribute keys used by the credential module.
const (
	AttrSubjectHash  = "subject_hash"
	AttrRosterScoped = "roster_scoped"
	AttrGranted      = "granted"
	AttrDenialReason = "denial_reason"
)
