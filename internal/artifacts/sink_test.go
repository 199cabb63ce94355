package artifacts

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/orbitdata/companycrawl/internal/normalize"
	"github.com/orbitdata/companycrawl/internal/scrape"
)

func newTestSink(t *testing.T) (*Sink, string) {
	t.Helper()
	dir := t.TempDir()
	sink, err := NewSink(dir, zap.NewNop())
	require.NoError(t, err)
	return sink, dir
}

func TestWritePageArtifacts(t *testing.T) {
	sink, dir := newTestSink(t)

	result := scrape.PageResult{
		PageType:      scrape.PageAbout,
		URL:           "https://acme.example/about",
		Found:         true,
		StatusCode:    200,
		ExtractedText: "About Acme.",
		ContentHash:   "abc123",
		FetchStrategy: scrape.StrategyHTTP,
		FetchedAt:     time.Now().UTC(),
	}
	doc := normalize.Document{Title: "About", FullText: "About Acme."}
	require.NoError(t, sink.WritePage("acme", "initial_pull", result, doc, []byte("<html>about</html>")))

	runDir := filepath.Join(dir, "acme", "initial_pull")
	payload, err := os.ReadFile(filepath.Join(runDir, "about_complete.json"))
	require.NoError(t, err)
	var decoded map[string]any
	require.NoError(t, json.Unmarshal(payload, &decoded))
	assert.Equal(t, "about", decoded["page_type"])
	assert.Equal(t, "abc123", decoded["content_hash"])
	assert.Equal(t, "http", decoded["fetch_strategy_used"])
	require.Contains(t, decoded, "structured_data")

	clean, err := os.ReadFile(filepath.Join(runDir, "about_clean.txt"))
	require.NoError(t, err)
	assert.Equal(t, "About Acme.", string(clean))

	raw, err := os.ReadFile(filepath.Join(runDir, "about.html"))
	require.NoError(t, err)
	assert.Equal(t, "<html>about</html>", string(raw))
}

func TestWritePageNotFoundSkipsTextAndHTML(t *testing.T) {
	sink, dir := newTestSink(t)

	result := scrape.PageResult{PageType: scrape.PagePricing, Found: false, Error: "timeout"}
	require.NoError(t, sink.WritePage("acme", "initial_pull", result, normalize.Document{}, nil))

	runDir := filepath.Join(dir, "acme", "initial_pull")
	_, err := os.Stat(filepath.Join(runDir, "pricing_complete.json"))
	assert.NoError(t, err)
	_, err = os.Stat(filepath.Join(runDir, "pricing_clean.txt"))
	assert.True(t, os.IsNotExist(err))
	_, err = os.Stat(filepath.Join(runDir, "pricing.html"))
	assert.True(t, os.IsNotExist(err))
}

func TestWriteJobsAndArticlesEmptyAsArrays(t *testing.T) {
	sink, dir := newTestSink(t)
	require.NoError(t, sink.WriteJobs("acme", "initial_pull", scrape.PageCareers, nil))
	require.NoError(t, sink.WriteArticles("acme", "initial_pull", scrape.PageBlog, nil))

	runDir := filepath.Join(dir, "acme", "initial_pull")
	jobs, err := os.ReadFile(filepath.Join(runDir, "careers_jobs.json"))
	require.NoError(t, err)
	assert.JSONEq(t, "[]", string(jobs))
	articles, err := os.ReadFile(filepath.Join(runDir, "blog_articles.json"))
	require.NoError(t, err)
	assert.JSONEq(t, "[]", string(articles))
}

func writeMeta(t *testing.T, sink *Sink, runFolder, hash string) {
	t.Helper()
	require.NoError(t, sink.WriteMetadata("acme", runFolder, scrape.CompanyRunMetadata{
		CompanyID: "acme",
		RunFolder: runFolder,
		Pages: []scrape.PageSummary{
			{PageType: scrape.PageAbout, Found: true, ContentHash: hash},
		},
	}))
}

func TestLoadPriorMetadataPrefersInitialPull(t *testing.T) {
	sink, _ := newTestSink(t)
	writeMeta(t, sink, "initial_pull", "h-initial")
	writeMeta(t, sink, "daily_2026-08-27", "h-daily")

	meta, err := sink.LoadPriorMetadata("acme", "daily_2026-08-28")
	require.NoError(t, err)
	require.NotNil(t, meta)
	assert.Equal(t, "initial_pull", meta.RunFolder)
}

func TestLoadPriorMetadataLatestDaily(t *testing.T) {
	sink, _ := newTestSink(t)
	writeMeta(t, sink, "daily_2026-08-26", "h1")
	writeMeta(t, sink, "daily_2026-08-27", "h2")

	meta, err := sink.LoadPriorMetadata("acme", "daily_2026-08-28")
	require.NoError(t, err)
	require.NotNil(t, meta)
	assert.Equal(t, "daily_2026-08-27", meta.RunFolder)
}

func TestLoadPriorMetadataIgnoresCurrentRun(t *testing.T) {
	sink, _ := newTestSink(t)
	writeMeta(t, sink, "daily_2026-08-28", "h-current")

	meta, err := sink.LoadPriorMetadata("acme", "daily_2026-08-28")
	require.NoError(t, err)
	assert.Nil(t, meta)
}

func TestLoadPriorMetadataNoHistory(t *testing.T) {
	sink, _ := newTestSink(t)
	meta, err := sink.LoadPriorMetadata("acme", "initial_pull")
	require.NoError(t, err)
	assert.Nil(t, meta)
}
