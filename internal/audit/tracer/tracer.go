// Package tracer is a small tracing abstraction for the audit module, so
// append and verify paths can emit spans without binding the call sites to
// OpenTelemetry. NoopTracer serves tests; OTelTracer adapts the global
// provider in production.
package tracer

import "context"

// Span represents an active trace span.
type Span interface {
	// End completes the span, marking it failed when err is non-nil.
	// Call exactly once, typically via defer.
	End(err error)

	// SetAttributes adds key-value pairs to the span.
	SetAttributes(attrs ...Attribute)

	// AddEvent records a timestamped event within the span.
	AddEvent(name string, attrs ...Attribute)
}

// Tracer creates spans. Implementations must be safe for concurrent use.
type Tracer interface {
	Start(ctx context.Context, name string, attrs ...Attribute) (context.Context, Span)
}

// Attribute is a key-value pair attached to spans.
type Attribute struct {
	Key   string
	Value any
}

func String(key, value string) Attribute {
	return Attribute{Key: key, Value: value}
}

func Bool(key string, value bool) Attribute {
	return Attribute{Key: key, Value: value}
}

func Int64(key string, value int64) Attribute {
	return Attribute{Key: key, Value: value}
}

// Span names used by the audit module.
const (
	SpanAppend  = "audit.append"
	SpanVerify  = "audit.verify"
	SpanCleanup = "audit.cleanup"
	SpanExport  = "audit.export"
)

// Attribute keys used by the audit module.
const (
	AttrAction   = "audit.action"
	AttrSeq      = "audit.seq"
	AttrAttempts = "audit.append_attempts"
	AttrValid    = "audit.valid"
	AttrRemoved  = "audit.removed"
	AttrFormat   = "audit.format"
)

// NoopTracer is a tracer that does nothing; use it in tests.
type NoopTracer struct{}

func NewNoop() *NoopTracer {
	return &NoopTracer{}
}

func (t *NoopTracer) Start(ctx context.Context, _ string, _ ...Attribute) (context.Context, Span) {
	return ctx, &noopSpan{}
}

type noopSpan struct{}

func (s *noopSpan) End(_ error)                       {}
func (s *noopSpan) SetAttributes(_ ...Attribute)      {}
func (s *noopSpan) AddEvent(_ string, _ ...Attribute) {}

var (
	_ Tracer = (*NoopTracer)(nil)
	_ Span   = (*noopSpan)(nil)
)
