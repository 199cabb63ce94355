package fetch

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func TestRobotsEnforcerHonorsDisallow(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/robots.txt" {
			_, _ = w.Write([]byte("User-agent: *\nDisallow: /private\n"))
			return
		}
		http.NotFound(w, r)
	}))
	defer srv.Close()

	policy := NewRobotsPolicy(true, "companycrawl", zap.NewNop())
	ctx := context.Background()

	assert.True(t, policy.Allowed(ctx, srv.URL+"/public"))
	assert.False(t, policy.Allowed(ctx, srv.URL+"/private/page"))
	// Second call hits the per-host cache.
	assert.False(t, policy.Allowed(ctx, srv.URL+"/private/other"))
}

func TestRobotsEnforcerAllowsOnFetchFailure(t *testing.T) {
	policy := NewRobotsPolicy(true, "companycrawl", zap.NewNop())
	assert.True(t, policy.Allowed(context.Background(), "http://127.0.0.1:1/page"))
}

func TestRobotsDisabledAllowsEverything(t *testing.T) {
	policy := NewRobotsPolicy(false, "companycrawl", zap.NewNop())
	assert.True(t, policy.Allowed(context.Background(), "https://anything.example/secret"))
}
