package fetch

import (
	"context"
	"time"
)

// NoopRenderer implements Renderer for builds without a browser. Every
// render attempt is a typed hard failure, so escalation surfaces as
// render_unavailable instead of silently degrading.
type NoopRenderer struct{}

// NewNoopRenderer creates the stub renderer.
func NewNoopRenderer() *NoopRenderer {
	return &NoopRenderer{}
}

// Render always fails with CauseRenderUnavailable.
func (NoopRenderer) Render(_ context.Context, rawURL string, _ time.Duration) (Result, error) {
	return Result{}, &Error{URL: rawURL, Cause: CauseRenderUnavailable}
}

// Close is a no-op.
func (NoopRenderer) Close(context.Context) error { return nil }
