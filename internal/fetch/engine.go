package fetch

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/orbitdata/companycrawl/internal/ratelimit"
	"github.com/orbitdata/companycrawl/internal/telemetry"
)

// plainFetcher is the fast-path HTTP strategy.
type plainFetcher interface {
	Fetch(ctx context.Context, rawURL string) (Result, error)
}

// Options tune one Fetch call.
type Options struct {
	// ForceRender skips the plain-HTTP attempt entirely.
	ForceRender bool
	// IgnoreRobots bypasses the robots.txt gate for this call.
	IgnoreRobots bool
	// RenderTimeout bounds a browser navigation. Zero means the default.
	RenderTimeout time.Duration
}

// DefaultRenderTimeout applies when Options.RenderTimeout is zero.
const DefaultRenderTimeout = 15 * time.Second

// Engine retrieves a URL's rendered HTML. It tries plain HTTP first and
// escalates to browser rendering when the response looks JS-gated, is blocked
// with a 403/429, or fails at the transport level.
type Engine struct {
	plain    plainFetcher
	renderer Renderer
	detector *Detector
	limiter  *ratelimit.Limiter
	retry    *RetryPolicy
	robots   RobotsPolicy
	logger   *zap.Logger
}

// NewEngine wires the engine from its strategy parts.
func NewEngine(plain plainFetcher, renderer Renderer, detector *Detector,
	limiter *ratelimit.Limiter, retry *RetryPolicy, robots RobotsPolicy,
	logger *zap.Logger) *Engine {
	if robots == nil {
		robots = allowAllPolicy{}
	}
	return &Engine{
		plain:    plain,
		renderer: renderer,
		detector: detector,
		limiter:  limiter,
		retry:    retry,
		robots:   robots,
		logger:   logger,
	}
}

// Fetch returns the page HTML, the strategy that produced it inside the
// Result, or a typed *Error on exhaustion.
func (e *Engine) Fetch(ctx context.Context, rawURL string, opts Options) (Result, error) {
	renderTimeout := opts.RenderTimeout
	if renderTimeout <= 0 {
		renderTimeout = DefaultRenderTimeout
	}

	if opts.ForceRender {
		return e.render(ctx, rawURL, renderTimeout)
	}

	if !opts.IgnoreRobots && !e.robots.Allowed(ctx, rawURL) {
		telemetry.PagesFetched.WithLabelValues("http", "robots_disallowed").Inc()
		return Result{}, &Error{URL: rawURL, Cause: CauseRobots}
	}

	res, err := e.attemptHTTP(ctx, rawURL)
	switch {
	case err == nil && !e.detector.NeedsRender(res.Body):
		telemetry.PagesFetched.WithLabelValues("http", "success").Inc()
		return res, nil
	case err != nil && !shouldEscalate(err):
		telemetry.PagesFetched.WithLabelValues("http", "error").Inc()
		return Result{}, err
	}

	// JS-gated body, bot challenge, or a block the browser may get past.
	telemetry.HeadlessEscalations.Inc()
	e.logger.Debug("escalating to browser rendering",
		zap.String("url", rawURL), zap.Error(err))
	rendered, renderErr := e.render(ctx, rawURL, renderTimeout)
	if renderErr != nil {
		return Result{}, renderErr
	}
	return rendered, nil
}

func (e *Engine) attemptHTTP(ctx context.Context, rawURL string) (Result, error) {
	var res Result
	var err error
	for attempt := 0; ; attempt++ {
		if werr := e.limiter.Wait(ctx, rawURL); werr != nil {
			return Result{}, classify(rawURL, werr)
		}
		res, err = e.plain.Fetch(ctx, rawURL)
		if err == nil || !e.retry.ShouldRetry(err, attempt) {
			return res, err
		}
		telemetry.FetchRetries.Inc()
		if serr := sleep(ctx, e.retry.Backoff(attempt)); serr != nil {
			return Result{}, classify(rawURL, serr)
		}
	}
}

func (e *Engine) render(ctx context.Context, rawURL string, timeout time.Duration) (Result, error) {
	var res Result
	var err error
	for attempt := 0; ; attempt++ {
		if werr := e.limiter.Wait(ctx, rawURL); werr != nil {
			return Result{}, classify(rawURL, werr)
		}
		res, err = e.renderer.Render(ctx, rawURL, timeout)
		if err == nil {
			telemetry.PagesFetched.WithLabelValues("browser", "success").Inc()
			return res, nil
		}
		if !e.retry.ShouldRetry(err, attempt) {
			telemetry.PagesFetched.WithLabelValues("browser", "error").Inc()
			return Result{}, classify(rawURL, err)
		}
		telemetry.FetchRetries.Inc()
		if serr := sleep(ctx, e.retry.Backoff(attempt)); serr != nil {
			return Result{}, classify(rawURL, serr)
		}
	}
}

// shouldEscalate reports whether a failed plain fetch is worth a browser
// attempt: blocks that real browsers often clear, and transport failures.
func shouldEscalate(err error) bool {
	var fe *Error
	if !errors.As(err, &fe) {
		return false
	}
	switch fe.Cause {
	case CauseTimeout, CauseConnection:
		return true
	case CauseStatus:
		return fe.StatusCode == 403 || fe.StatusCode == 429
	default:
		return false
	}
}
