// Package tracing times nested operations carried in a context. A run opens
// a root span, each phase opens a child, and the finished tree is written
// to slog in one pass.
package tracing

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"log/slog"
	"sync"
	"time"
)

type contextKey struct{}

// Span is one timed operation. Children are appended by Start when the
// parent is found in the context.
type Span struct {
	name    string
	traceID string
	start   time.Time

	mu       sync.Mutex
	duration time.Duration
	ended    bool
	children []*Span
	attrs    []any
}

// Start opens a span named name. It becomes a child of the span in ctx, or
// the root of a new trace when ctx carries none.
func Start(ctx context.Context, name string) (context.Context, *Span) {
	span := &Span{name: name, start: time.Now()}
	if parent := FromContext(ctx); parent != nil {
		span.traceID = parent.traceID
		parent.mu.Lock()
		parent.children = append(parent.children, span)
		parent.mu.Unlock()
	} else {
		span.traceID = newTraceID()
	}
	return context.WithValue(ctx, contextKey{}, span), span
}

// FromContext returns the current span, or nil.
func FromContext(ctx context.Context) *Span {
	span, _ := ctx.Value(contextKey{}).(*Span)
	return span
}

func (s *Span) Name() string { return s.name }
func (s *Span) TraceID() string { return s.traceID }

// SetAttr attaches a key-value pair that is logged with the span.
func (s *Span) SetAttr(key string, value any) {
	s.mu.Lock()
	s.attrs = append(s.attrs, key, value)
	s.mu.Unlock()
}

// End fixes the span's duration. Later calls are ignored.
func (s *Span) End() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ended {
		return
	}
	s.ended = true
	s.duration = time.Since(s.start)
}

// Duration is zero until End is called.
func (s *Span) Duration() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.duration
}

func (s *Span) Children() []*Span {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*Span, len(s.children))
	copy(out, s.children)
	return out
}

// Log writes the span and its descendants depth-first at debug level.
func (s *Span) Log(logger *slog.Logger) {
	s.log(logger, 0)
}

func (s *Span) log(logger *slog.Logger, depth int) {
	s.mu.Lock()
	attrs := append([]any{
		"trace_id", s.traceID,
		"span", s.name,
		"duration_ms", s.duration.Milliseconds(),
		"depth", depth,
	}, s.attrs...)
	children := s.children
	s.mu.Unlock()

	logger.Debug("span", attrs...)
	for _, child := range children {
		child.log(logger, depth+1)
	}
}

func newTraceID() string {
	var b [8]byte
	_, _ = rand.Read(b[:])
	return hex.EncodeToString(b[:])
}
