// Package tracer is the span API the consent service codes against. OTelTracer
// forwards to OpenTelemetry; NoopTracer drops everything and is the default,
// so tests and tracing-free deployments need no exporter.
package tracer

import (
	"context"
	"time"
)

type Span interface {
	// End finishes the span; err is the operation's result. Call exactly once.
	End(err error)
	SetAttributes(attrs ...Attribute)
	AddEvent(name string, attrs ...Attribute)
}

// Tracer must be safe for concurrent use. The returned context carries the
// span for child operations:
//
//	ctx, span := t.Start(ctx, tracer.SpanConsentCreate, tracer.String(tracer.AttrUserID, userID))
//	defer func() { span.End(err) }()
type Tracer interface {
	Start(ctx context.Context, name string, attrs ...Attribute) (context.Context, Span)
}

// Attribute is a span key/value. Supported values are string, []string, bool,
// int, int64 and float64; anything else is dropped.
type Attribute struct {
	Key   string
	Value any
}

func String(key, value string) Attribute { return Attribute{Key: key, Value: value} }
func Strings(key string, values []string) Attribute { return Attribute{Key: key, Value: values} }
func Bool(key string, value bool) Attribute { return Attribute{Key: key, Value: value} }
func Int64(key string, value int64) Attribute { return Attribute{Key: key, Value: value} }
func Float64(key string, value float64) Attribute { return Attribute{Key: key, Value: value} }

// Duration records value in milliseconds.
func Duration(key string, value time.Duration) Attribute {
	return Attribute{Key: key, Value: value.Milliseconds()}
}

const (
	SpanConsentCreate   = "consent.create"
	SpanConsentRetrieve = "consent.retrieve"
	SpanConsentUpdate   = "consent.update"
	SpanConsentRevoke   = "consent.revoke"
)

const (
	AttrConsentID   = "consent.id"
	AttrUserID      = "consent.user_id"
	AttrStatus      = "consent.status"
	AttrPermissions = "consent.permissions"
	AttrAuditAction = "audit.action"
)

const (
	EventAuditEmitted = "audit.emitted"
	EventAuditFailed  = "audit.failed"
)
