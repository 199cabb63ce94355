package fetch

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/orbitdata/companycrawl/internal/ratelimit"
	"github.com/orbitdata/companycrawl/internal/scrape"
)

type stubPlain struct {
	calls   int
	results []Result
	errs    []error
}

func (s *stubPlain) Fetch(_ context.Context, _ string) (Result, error) {
	i := s.calls
	s.calls++
	if i >= len(s.errs) {
		i = len(s.errs) - 1
	}
	return s.results[i], s.errs[i]
}

type stubRenderer struct {
	calls  int
	result Result
	err    error
}

func (s *stubRenderer) Render(_ context.Context, _ string, _ time.Duration) (Result, error) {
	s.calls++
	return s.result, s.err
}

func (s *stubRenderer) Close(context.Context) error { return nil }

func richBody() []byte {
	return []byte("<html><body>" + strings.Repeat("real content ", 100) + "</body></html>")
}

func newTestEngine(plain plainFetcher, renderer Renderer) *Engine {
	return NewEngine(plain, renderer, NewDefaultDetector(), ratelimit.New(0),
		NewRetryPolicy(3), nil, zap.NewNop())
}

func TestFetchPlainSuccess(t *testing.T) {
	plain := &stubPlain{
		results: []Result{{URL: "https://acme.example", Body: richBody(), StatusCode: 200, Strategy: scrape.StrategyHTTP}},
		errs:    []error{nil},
	}
	renderer := &stubRenderer{}
	e := newTestEngine(plain, renderer)

	res, err := e.Fetch(context.Background(), "https://acme.example", Options{})
	require.NoError(t, err)
	assert.Equal(t, scrape.StrategyHTTP, res.Strategy)
	assert.Equal(t, 1, plain.calls)
	assert.Zero(t, renderer.calls, "no escalation for a healthy body")
}

func TestFetchEscalatesOnShortBody(t *testing.T) {
	plain := &stubPlain{
		results: []Result{{URL: "u", Body: []byte("<html></html>"), StatusCode: 200}},
		errs:    []error{nil},
	}
	renderer := &stubRenderer{result: Result{URL: "u", Body: richBody(), StatusCode: 200, Strategy: scrape.StrategyBrowser}}
	e := newTestEngine(plain, renderer)

	res, err := e.Fetch(context.Background(), "u", Options{})
	require.NoError(t, err)
	assert.Equal(t, scrape.StrategyBrowser, res.Strategy)
	assert.Equal(t, 1, renderer.calls)
}

func TestFetchEscalatesOn403(t *testing.T) {
	plain := &stubPlain{
		results: []Result{{}},
		errs:    []error{statusError("u", 403)},
	}
	renderer := &stubRenderer{result: Result{URL: "u", Body: richBody(), Strategy: scrape.StrategyBrowser}}
	e := newTestEngine(plain, renderer)

	res, err := e.Fetch(context.Background(), "u", Options{})
	require.NoError(t, err)
	assert.Equal(t, scrape.StrategyBrowser, res.Strategy)
	assert.Equal(t, 1, plain.calls, "403 is not retried over plain HTTP")
}

func TestFetchDoesNotEscalateOn404(t *testing.T) {
	plain := &stubPlain{
		results: []Result{{}},
		errs:    []error{statusError("u", 404)},
	}
	renderer := &stubRenderer{}
	e := newTestEngine(plain, renderer)

	_, err := e.Fetch(context.Background(), "u", Options{})
	var fe *Error
	require.ErrorAs(t, err, &fe)
	assert.Equal(t, CauseStatus, fe.Cause)
	assert.Equal(t, 404, fe.StatusCode)
	assert.Zero(t, renderer.calls)
}

func TestFetchRetriesTransientThenEscalates(t *testing.T) {
	timeout := &Error{URL: "u", Cause: CauseTimeout}
	plain := &stubPlain{
		results: []Result{{}, {}, {}},
		errs:    []error{timeout, timeout, timeout},
	}
	renderer := &stubRenderer{result: Result{URL: "u", Body: richBody(), Strategy: scrape.StrategyBrowser}}
	e := newTestEngine(plain, renderer)

	res, err := e.Fetch(context.Background(), "u", Options{})
	require.NoError(t, err)
	assert.Equal(t, 3, plain.calls, "all attempts consumed before escalating")
	assert.Equal(t, scrape.StrategyBrowser, res.Strategy)
}

func TestFetchForceRenderSkipsPlain(t *testing.T) {
	plain := &stubPlain{results: []Result{{}}, errs: []error{nil}}
	renderer := &stubRenderer{result: Result{URL: "u", Body: richBody(), Strategy: scrape.StrategyBrowser}}
	e := newTestEngine(plain, renderer)

	res, err := e.Fetch(context.Background(), "u", Options{ForceRender: true})
	require.NoError(t, err)
	assert.Zero(t, plain.calls)
	assert.Equal(t, scrape.StrategyBrowser, res.Strategy)
}

func TestFetchRenderUnavailableIsHardFailure(t *testing.T) {
	plain := &stubPlain{
		results: []Result{{URL: "u", Body: []byte("tiny"), StatusCode: 200}},
		errs:    []error{nil},
	}
	e := newTestEngine(plain, NewNoopRenderer())

	_, err := e.Fetch(context.Background(), "u", Options{})
	var fe *Error
	require.ErrorAs(t, err, &fe)
	assert.Equal(t, CauseRenderUnavailable, fe.Cause)
}

type denyAll struct{}

func (denyAll) Allowed(context.Context, string) bool { return false }

func TestFetchRobotsDisallowed(t *testing.T) {
	plain := &stubPlain{results: []Result{{}}, errs: []error{nil}}
	renderer := &stubRenderer{}
	e := NewEngine(plain, renderer, NewDefaultDetector(), ratelimit.New(0),
		NewRetryPolicy(3), denyAll{}, zap.NewNop())

	_, err := e.Fetch(context.Background(), "u", Options{})
	var fe *Error
	require.ErrorAs(t, err, &fe)
	assert.Equal(t, CauseRobots, fe.Cause)
	assert.Zero(t, plain.calls)
}

func TestFetchIgnoreRobotsBypassesGate(t *testing.T) {
	plain := &stubPlain{
		results: []Result{{URL: "u", Body: richBody(), StatusCode: 200, Strategy: scrape.StrategyHTTP}},
		errs:    []error{nil},
	}
	e := NewEngine(plain, &stubRenderer{}, NewDefaultDetector(), ratelimit.New(0),
		NewRetryPolicy(3), denyAll{}, zap.NewNop())

	res, err := e.Fetch(context.Background(), "u", Options{IgnoreRobots: true})
	require.NoError(t, err)
	assert.Equal(t, scrape.StrategyHTTP, res.Strategy)
	assert.Equal(t, 1, plain.calls)
}

func TestFetchCanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	plain := &stubPlain{
		results: []Result{{}},
		errs:    []error{classify("u", context.Canceled)},
	}
	e := newTestEngine(plain, &stubRenderer{err: classify("u", context.Canceled)})

	_, err := e.Fetch(ctx, "u", Options{})
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.Canceled) || func() bool {
		var fe *Error
		return errors.As(err, &fe) && fe.Cause == CauseCanceled
	}())
}
