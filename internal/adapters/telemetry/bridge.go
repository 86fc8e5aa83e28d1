package telemetry

import (
	"context"

	"github.com/sawolford/onsub/internal/core/ports"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.trai.ch/zerr"
)

// Bridge implements sdktrace.SpanProcessor to report work item spans to a Renderer.
// Root spans frame a whole run and are not reported.
type Bridge struct {
	renderer ports.Renderer
}

// NewBridge returns a new Bridge.
func NewBridge(renderer ports.Renderer) *Bridge {
	return &Bridge{renderer: renderer}
}

func (b *Bridge) reports(s sdktrace.ReadOnlySpan) bool {
	return b.renderer != nil && s.SpanContext().IsValid() && s.Parent().IsValid()
}

// OnStart is called when a span starts.
func (b *Bridge) OnStart(_ context.Context, s sdktrace.ReadWriteSpan) {
	if !b.reports(s) {
		return
	}

	b.renderer.OnTaskStart(
		s.SpanContext().SpanID().String(),
		s.Parent().SpanID().String(),
		s.Name(),
		s.StartTime(),
	)
}

// OnEnd is called when a span ends.
func (b *Bridge) OnEnd(s sdktrace.ReadOnlySpan) {
	if !b.reports(s) {
		return
	}

	var err error
	if s.Status().Code == codes.Error {
		desc := s.Status().Description
		if desc == "" {
			desc = "command failed"
		}
		err = zerr.New(desc)
	}

	b.renderer.OnTaskComplete(s.SpanContext().SpanID().String(), s.EndTime(), err)
}

// ForceFlush does nothing.
func (b *Bridge) ForceFlush(_ context.Context) error {
	return nil
}

// Shutdown does nothing.
func (b *Bridge) Shutdown(_ context.Context) error {
	return nil
}
