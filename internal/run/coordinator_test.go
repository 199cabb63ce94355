package run

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/orbitdata/companycrawl/internal/artifacts"
	"github.com/orbitdata/companycrawl/internal/ats"
	"github.com/orbitdata/companycrawl/internal/fetch"
	"github.com/orbitdata/companycrawl/internal/news"
	"github.com/orbitdata/companycrawl/internal/scrape"
)

type fixedClock struct{ t time.Time }

func (c fixedClock) Now() time.Time { return c.t }

type stubResponse struct {
	body string
	err  error
}

// stubFetcher serves canned bodies by URL; unknown URLs 404 so their
// categories count as absent, not failed.
type stubFetcher struct {
	mu        sync.Mutex
	responses map[string]stubResponse
	calls     []string
	seenOpts  map[string]fetch.Options
}

func (f *stubFetcher) Fetch(_ context.Context, rawURL string, opts fetch.Options) (fetch.Result, error) {
	f.mu.Lock()
	f.calls = append(f.calls, rawURL)
	if f.seenOpts == nil {
		f.seenOpts = make(map[string]fetch.Options)
	}
	f.seenOpts[rawURL] = opts
	resp, ok := f.responses[rawURL]
	f.mu.Unlock()
	if !ok {
		return fetch.Result{}, &fetch.Error{URL: rawURL, Cause: fetch.CauseStatus, StatusCode: 404}
	}
	if resp.err != nil {
		return fetch.Result{}, resp.err
	}
	return fetch.Result{
		URL:        rawURL,
		FinalURL:   rawURL,
		StatusCode: 200,
		Body:       []byte(resp.body),
		Strategy:   scrape.StrategyHTTP,
	}, nil
}

func (f *stubFetcher) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

type stubJobs struct {
	jobs []scrape.JobPosting
}

func (s *stubJobs) ExtractJobs(context.Context, string, string) (ats.Platform, []scrape.JobPosting) {
	return ats.PlatformGreenhouse, s.jobs
}

type stubArticles struct {
	articles []scrape.Article
	called   bool
}

func (s *stubArticles) Extract(_ context.Context, _, _ string, _ int, _ news.PageFetcher) []scrape.Article {
	s.called = true
	return s.articles
}

func newTestCoordinator(t *testing.T, fetcher Fetcher, jobs JobExtractor, articles ArticleExtractor) (*Coordinator, string) {
	t.Helper()
	dir := t.TempDir()
	sink, err := artifacts.NewSink(dir, zap.NewNop())
	require.NoError(t, err)
	clk := fixedClock{t: time.Date(2026, 8, 28, 12, 0, 0, 0, time.UTC)}
	return NewCoordinator(fetcher, jobs, articles, sink, clk, 4, DefaultRenderBudgets(), zap.NewNop()), dir
}

var testCompany = scrape.Company{
	CompanyID:   "acme",
	CompanyName: "Acme Inc",
	Website:     "https://acme.example",
}

const homepageHTML = `<html><body>
	<h1>Acme builds rockets</h1>
	<a href="/our-jobs">Careers</a>
</body></html>`

func TestScrapeCompanySuccess(t *testing.T) {
	fetcher := &stubFetcher{responses: map[string]stubResponse{
		"https://acme.example/":        {body: homepageHTML},
		"https://acme.example/careers": {body: "<html><body><h1>Open roles</h1></body></html>"},
	}}
	jobs := &stubJobs{jobs: []scrape.JobPosting{
		{Title: "Propulsion Engineer", SourceStrategy: "api"},
		{Title: "Avionics Lead", SourceStrategy: "api"},
	}}
	coord, dir := newTestCoordinator(t, fetcher, jobs, &stubArticles{})

	summary := coord.ScrapeCompany(context.Background(), testCompany, "initial_pull", scrape.DefaultOptions())
	assert.Equal(t, scrape.StatusSuccess, summary.Status)
	assert.Equal(t, 2, summary.PagesScraped)
	assert.Equal(t, 12, summary.PagesTotal)
	assert.ElementsMatch(t, []scrape.PageType{scrape.PageHomepage, scrape.PageCareers}, summary.ChangedPages)

	runDir := filepath.Join(dir, "acme", "initial_pull")
	payload, err := os.ReadFile(filepath.Join(runDir, "careers_jobs.json"))
	require.NoError(t, err)
	var decoded []scrape.JobPosting
	require.NoError(t, json.Unmarshal(payload, &decoded))
	require.Len(t, decoded, 2)
	assert.Equal(t, "Propulsion Engineer", decoded[0].Title)

	var meta scrape.CompanyRunMetadata
	metaRaw, err := os.ReadFile(filepath.Join(runDir, "metadata.json"))
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(metaRaw, &meta))
	assert.Equal(t, "acme", meta.CompanyID)
	assert.Equal(t, scrape.Version, meta.ScraperVersion)
	assert.NotEmpty(t, meta.RunID)
	assert.Len(t, meta.Pages, 12)

	_, err = os.Stat(filepath.Join(runDir, "about_complete.json"))
	assert.NoError(t, err, "absent categories still get a complete record")
	_, err = os.Stat(filepath.Join(runDir, "about_clean.txt"))
	assert.True(t, os.IsNotExist(err))
}

func TestScrapeCompanyPartialOnTimeout(t *testing.T) {
	timeout := &fetch.Error{Cause: fetch.CauseTimeout}
	fetcher := &stubFetcher{responses: map[string]stubResponse{
		"https://acme.example/":             {body: "<html><body>Acme</body></html>"},
		"https://acme.example/careers":      {err: timeout},
		"https://acme.example/jobs":         {err: timeout},
		"https://acme.example/join-us":      {err: timeout},
		"https://acme.example/work-with-us": {err: timeout},
	}}
	coord, dir := newTestCoordinator(t, fetcher, &stubJobs{}, &stubArticles{})

	summary := coord.ScrapeCompany(context.Background(), testCompany, "initial_pull", scrape.DefaultOptions())
	assert.Equal(t, scrape.StatusPartial, summary.Status)

	payload, err := os.ReadFile(filepath.Join(dir, "acme", "initial_pull", "careers_complete.json"))
	require.NoError(t, err)
	var record map[string]any
	require.NoError(t, json.Unmarshal(payload, &record))
	assert.Equal(t, false, record["found"])
	assert.Equal(t, "timeout", record["error"])
}

func TestScrapeCompany404sAreAbsenceNotFailure(t *testing.T) {
	fetcher := &stubFetcher{responses: map[string]stubResponse{
		"https://acme.example/": {body: "<html><body>Acme</body></html>"},
	}}
	coord, _ := newTestCoordinator(t, fetcher, &stubJobs{}, &stubArticles{})

	summary := coord.ScrapeCompany(context.Background(), testCompany, "initial_pull", scrape.DefaultOptions())
	assert.Equal(t, scrape.StatusSuccess, summary.Status)
	assert.Equal(t, 1, summary.PagesScraped)
}

func TestScrapeCompanyInvalidWebsite(t *testing.T) {
	coord, _ := newTestCoordinator(t, &stubFetcher{}, &stubJobs{}, &stubArticles{})
	summary := coord.ScrapeCompany(context.Background(),
		scrape.Company{CompanyID: "bad", Website: "not a url"}, "initial_pull", scrape.DefaultOptions())
	assert.Equal(t, scrape.StatusError, summary.Status)
	assert.NotEmpty(t, summary.Error)
}

func TestScrapeCompanyRobotsBlocked(t *testing.T) {
	fetcher := &stubFetcher{responses: map[string]stubResponse{
		"https://acme.example/": {err: &fetch.Error{Cause: fetch.CauseRobots}},
	}}
	coord, _ := newTestCoordinator(t, fetcher, &stubJobs{}, &stubArticles{})

	summary := coord.ScrapeCompany(context.Background(), testCompany, "initial_pull", scrape.DefaultOptions())
	assert.Equal(t, scrape.StatusError, summary.Status)
	assert.Equal(t, "blocked_by_robots", summary.Error)
}

func TestScrapeCompanyUsesDiscoveredLink(t *testing.T) {
	fetcher := &stubFetcher{responses: map[string]stubResponse{
		"https://acme.example/":         {body: homepageHTML},
		"https://acme.example/our-jobs": {body: "<html><body>Roles at Acme</body></html>"},
	}}
	coord, dir := newTestCoordinator(t, fetcher, &stubJobs{}, &stubArticles{})

	summary := coord.ScrapeCompany(context.Background(), testCompany, "initial_pull", scrape.DefaultOptions())
	assert.Equal(t, scrape.StatusSuccess, summary.Status)

	payload, err := os.ReadFile(filepath.Join(dir, "acme", "initial_pull", "careers_complete.json"))
	require.NoError(t, err)
	var record map[string]any
	require.NoError(t, json.Unmarshal(payload, &record))
	assert.Equal(t, true, record["found"])
	assert.Equal(t, "https://acme.example/our-jobs", record["url"])
}

func TestScrapeCompanyPageBudgetCapsCapturedPages(t *testing.T) {
	fetcher := &stubFetcher{responses: map[string]stubResponse{
		"https://acme.example/":        {body: "<html><body>Acme</body></html>"},
		"https://acme.example/about":   {body: "<html><body>About Acme</body></html>"},
		"https://acme.example/product": {body: "<html><body>Product</body></html>"},
		"https://acme.example/careers": {body: "<html><body>Roles</body></html>"},
	}}
	coord, _ := newTestCoordinator(t, fetcher, &stubJobs{}, &stubArticles{})

	opts := scrape.DefaultOptions()
	opts.MaxPages = 2
	summary := coord.ScrapeCompany(context.Background(), testCompany, "initial_pull", opts)
	assert.Equal(t, scrape.StatusSuccess, summary.Status, "budget exhaustion is not a failure")
	assert.Equal(t, 2, summary.PagesScraped)
	assert.Equal(t, 12, summary.PagesTotal)
}

func TestScrapeCompanyBudgetNotConsumedByMissingPages(t *testing.T) {
	// Only the homepage and the last-ordered category exist; every other
	// candidate 404s. Those probes must not starve the contact page.
	fetcher := &stubFetcher{responses: map[string]stubResponse{
		"https://acme.example/":        {body: "<html><body>Acme</body></html>"},
		"https://acme.example/contact": {body: "<html><body>Reach us</body></html>"},
	}}
	coord, dir := newTestCoordinator(t, fetcher, &stubJobs{}, &stubArticles{})

	summary := coord.ScrapeCompany(context.Background(), testCompany, "initial_pull", scrape.DefaultOptions())
	assert.Equal(t, scrape.StatusSuccess, summary.Status)
	assert.Equal(t, 2, summary.PagesScraped)

	payload, err := os.ReadFile(filepath.Join(dir, "acme", "initial_pull", "contact_complete.json"))
	require.NoError(t, err)
	var record map[string]any
	require.NoError(t, json.Unmarshal(payload, &record))
	assert.Equal(t, true, record["found"])
}

func TestScrapeCompanyBlogArticles(t *testing.T) {
	fetcher := &stubFetcher{responses: map[string]stubResponse{
		"https://acme.example/":     {body: "<html><body>Acme</body></html>"},
		"https://acme.example/blog": {body: "<html><body>Posts</body></html>"},
	}}
	articles := &stubArticles{articles: []scrape.Article{
		{Title: "Launch Day", URL: "https://acme.example/blog/launch", Source: "rss_feed"},
	}}
	coord, dir := newTestCoordinator(t, fetcher, &stubJobs{}, articles)

	summary := coord.ScrapeCompany(context.Background(), testCompany, "initial_pull", scrape.DefaultOptions())
	assert.Equal(t, scrape.StatusSuccess, summary.Status)
	assert.True(t, articles.called)

	payload, err := os.ReadFile(filepath.Join(dir, "acme", "initial_pull", "blog_articles.json"))
	require.NoError(t, err)
	var decoded []scrape.Article
	require.NoError(t, json.Unmarshal(payload, &decoded))
	require.Len(t, decoded, 1)
	assert.Equal(t, "Launch Day", decoded[0].Title)
}

func TestScrapeCompanyBlogDisabled(t *testing.T) {
	fetcher := &stubFetcher{responses: map[string]stubResponse{
		"https://acme.example/":     {body: "<html><body>Acme</body></html>"},
		"https://acme.example/blog": {body: "<html><body>Posts</body></html>"},
	}}
	articles := &stubArticles{}
	coord, dir := newTestCoordinator(t, fetcher, &stubJobs{}, articles)

	opts := scrape.DefaultOptions()
	opts.ScrapeBlogPosts = false
	coord.ScrapeCompany(context.Background(), testCompany, "initial_pull", opts)
	assert.False(t, articles.called)
	_, err := os.Stat(filepath.Join(dir, "acme", "initial_pull", "blog_articles.json"))
	assert.True(t, os.IsNotExist(err))
}

func TestScrapeCompanyRobotsOptionReachesFetcher(t *testing.T) {
	home := "https://acme.example/"
	fetcher := &stubFetcher{responses: map[string]stubResponse{
		home: {body: "<html><body>Acme</body></html>"},
	}}
	coord, _ := newTestCoordinator(t, fetcher, &stubJobs{}, &stubArticles{})

	opts := scrape.DefaultOptions()
	coord.ScrapeCompany(context.Background(), testCompany, "initial_pull", opts)
	assert.False(t, fetcher.seenOpts[home].IgnoreRobots)

	opts.RespectRobots = false
	coord.ScrapeCompany(context.Background(), testCompany, "daily_2026-08-29", opts)
	assert.True(t, fetcher.seenOpts[home].IgnoreRobots)
}

func TestScrapeCompanyChangeDetectionAcrossRuns(t *testing.T) {
	fetcher := &stubFetcher{responses: map[string]stubResponse{
		"https://acme.example/": {body: "<html><body>Acme version one</body></html>"},
	}}
	coord, _ := newTestCoordinator(t, fetcher, &stubJobs{}, &stubArticles{})

	first := coord.ScrapeCompany(context.Background(), testCompany, "initial_pull", scrape.DefaultOptions())
	assert.Equal(t, []scrape.PageType{scrape.PageHomepage}, first.ChangedPages)

	// Same content the next day: nothing changed.
	second := coord.ScrapeCompany(context.Background(), testCompany, "daily_2026-08-29", scrape.DefaultOptions())
	assert.Empty(t, second.ChangedPages)

	// Edited homepage: hash differs.
	fetcher.mu.Lock()
	fetcher.responses["https://acme.example/"] = stubResponse{body: "<html><body>Acme version two</body></html>"}
	fetcher.mu.Unlock()
	third := coord.ScrapeCompany(context.Background(), testCompany, "daily_2026-08-30", scrape.DefaultOptions())
	assert.Equal(t, []scrape.PageType{scrape.PageHomepage}, third.ChangedPages)
}

func TestChangesNoPrior(t *testing.T) {
	pages := []scrape.PageSummary{
		{PageType: scrape.PageHomepage, Found: true, ContentHash: "h1"},
		{PageType: scrape.PageAbout, Found: false},
	}
	changes := Changes(nil, pages)
	assert.True(t, changes[scrape.PageHomepage])
	assert.False(t, changes[scrape.PageAbout])
}

func TestChangesHashComparison(t *testing.T) {
	prior := &scrape.CompanyRunMetadata{Pages: []scrape.PageSummary{
		{PageType: scrape.PageHomepage, Found: true, ContentHash: "h1"},
		{PageType: scrape.PageAbout, Found: true, ContentHash: "h2"},
	}}
	pages := []scrape.PageSummary{
		{PageType: scrape.PageHomepage, Found: true, ContentHash: "h1"},
		{PageType: scrape.PageAbout, Found: true, ContentHash: "h2-changed"},
		{PageType: scrape.PageCareers, Found: true, ContentHash: "h3"},
	}
	changes := Changes(prior, pages)
	assert.False(t, changes[scrape.PageHomepage])
	assert.True(t, changes[scrape.PageAbout])
	assert.True(t, changes[scrape.PageCareers], "newly appearing page counts as changed")
}
