// Package run orchestrates one company snapshot: discover pages, fetch them
// through the escalating engine, run conditional extraction, and assemble the
// artifact set with change detection against the prior run.
package run

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/orbitdata/companycrawl/internal/artifacts"
	"github.com/orbitdata/companycrawl/internal/ats"
	"github.com/orbitdata/companycrawl/internal/clock"
	"github.com/orbitdata/companycrawl/internal/discovery"
	"github.com/orbitdata/companycrawl/internal/fetch"
	"github.com/orbitdata/companycrawl/internal/news"
	"github.com/orbitdata/companycrawl/internal/normalize"
	"github.com/orbitdata/companycrawl/internal/scrape"
)

// Fetcher is the slice of the fetch engine the coordinator uses.
type Fetcher interface {
	Fetch(ctx context.Context, rawURL string, opts fetch.Options) (fetch.Result, error)
}

// JobExtractor runs ATS detection and the per-platform strategy chains.
type JobExtractor interface {
	ExtractJobs(ctx context.Context, html, careersURL string) (ats.Platform, []scrape.JobPosting)
}

// ArticleExtractor finds feeds or crawls a blog index for article records.
type ArticleExtractor interface {
	Extract(ctx context.Context, blogHTML, blogURL string, maxArticles int, fetchPage news.PageFetcher) []scrape.Article
}

// RenderBudgets are the per-page-class browser timeouts.
type RenderBudgets struct {
	Default time.Duration
	Careers time.Duration
	Article time.Duration
}

// DefaultRenderBudgets mirror the orchestration defaults: careers pages get
// the longest budget because job boards hydrate slowly.
func DefaultRenderBudgets() RenderBudgets {
	return RenderBudgets{
		Default: 15 * time.Second,
		Careers: 60 * time.Second,
		Article: 40 * time.Second,
	}
}

func (b RenderBudgets) forPage(pt scrape.PageType) time.Duration {
	if pt == scrape.PageCareers {
		return b.Careers
	}
	return b.Default
}

// Coordinator drives the Discover, FetchAll, ExtractConditional, Assemble
// state machine for one company run.
type Coordinator struct {
	fetcher     Fetcher
	jobs        JobExtractor
	articles    ArticleExtractor
	sink        *artifacts.Sink
	clock       clock.Clock
	logger      *zap.Logger
	concurrency int
	budgets     RenderBudgets
}

// NewCoordinator wires the coordinator. concurrency bounds simultaneous page
// fetches per company.
func NewCoordinator(fetcher Fetcher, jobs JobExtractor, articles ArticleExtractor,
	sink *artifacts.Sink, clk clock.Clock, concurrency int, budgets RenderBudgets,
	logger *zap.Logger) *Coordinator {
	if concurrency < 1 {
		concurrency = 1
	}
	if budgets == (RenderBudgets{}) {
		budgets = DefaultRenderBudgets()
	}
	return &Coordinator{
		fetcher:     fetcher,
		jobs:        jobs,
		articles:    articles,
		sink:        sink,
		clock:       clk,
		logger:      logger,
		concurrency: concurrency,
		budgets:     budgets,
	}
}

// categoryOutcome carries one category's result through assembly.
type categoryOutcome struct {
	result scrape.PageResult
	failed bool
}

// ScrapeCompany runs the full snapshot for one company under
// outputDir/{company_id}/{run_folder}/ and returns the run summary.
func (c *Coordinator) ScrapeCompany(ctx context.Context, company scrape.Company, runFolder string, opts scrape.Options) scrape.RunSummary {
	logger := c.logger.With(
		zap.String("company_id", company.CompanyID),
		zap.String("run_folder", runFolder))

	base, err := url.Parse(company.Website)
	if err != nil || base.Host == "" {
		return scrape.RunSummary{
			Status: scrape.StatusError,
			Error:  fmt.Sprintf("invalid website url %q", company.Website),
		}
	}

	prior, err := c.sink.LoadPriorMetadata(company.CompanyID, runFolder)
	if err != nil {
		logger.Warn("prior metadata unreadable; treating all pages as changed", zap.Error(err))
	}

	bud := newBudget(opts.MaxPages)

	// Discover. The homepage is fetched up front, sequentially, so its links
	// can seed the remaining categories.
	targets := discovery.Targets(company.Website, nil, nil)
	homepage := targets[0]
	homeOutcome, homeHTML := c.processCategory(ctx, company, runFolder, homepage, opts, bud)

	if homeOutcome.failed && homeOutcome.result.Error == string(fetch.CauseRobots) {
		// The site's robots rules exclude us entirely.
		return scrape.RunSummary{
			Status: scrape.StatusError,
			Error:  "blocked_by_robots",
		}
	}

	if homeHTML != "" {
		discovered := discovery.FromHomepage(homeHTML, company.Website)
		targets = discovery.Targets(company.Website, nil, discovered)
	}

	// FetchAll: remaining categories in a bounded pool, any completion order.
	outcomes := make(map[scrape.PageType]categoryOutcome, len(targets))
	var mu sync.Mutex
	outcomes[scrape.PageHomepage] = homeOutcome

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.concurrency)
	for _, target := range targets {
		if target.PageType == scrape.PageHomepage {
			continue
		}
		target := target
		g.Go(func() error {
			outcome, _ := c.processCategory(gctx, company, runFolder, target, opts, bud)
			mu.Lock()
			outcomes[target.PageType] = outcome
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	// Assemble.
	return c.assemble(company, runFolder, prior, outcomes, logger)
}

func (c *Coordinator) assemble(company scrape.Company, runFolder string,
	prior *scrape.CompanyRunMetadata, outcomes map[scrape.PageType]categoryOutcome,
	logger *zap.Logger) scrape.RunSummary {

	summaries := make([]scrape.PageSummary, 0, len(outcomes))
	scraped := 0
	anyFailed := false
	for _, pt := range scrape.AllPageTypes() {
		outcome, ok := outcomes[pt]
		if !ok {
			continue
		}
		r := outcome.result
		if r.Found {
			scraped++
		}
		if outcome.failed {
			anyFailed = true
		}
		summaries = append(summaries, scrape.PageSummary{
			PageType:      r.PageType,
			URL:           r.URL,
			Found:         r.Found,
			StatusCode:    r.StatusCode,
			ContentHash:   r.ContentHash,
			FetchStrategy: r.FetchStrategy,
			FetchedAt:     r.FetchedAt,
			Error:         r.Error,
		})
	}

	changes := Changes(prior, summaries)

	meta := scrape.CompanyRunMetadata{
		CompanyID:      company.CompanyID,
		CompanyName:    company.CompanyName,
		RunID:          uuid.NewString(),
		RunFolder:      runFolder,
		ScraperVersion: scrape.Version,
		GeneratedAt:    c.clock.Now(),
		Pages:          summaries,
	}
	if err := c.sink.WriteMetadata(company.CompanyID, runFolder, meta); err != nil {
		logger.Error("write run metadata", zap.Error(err))
		return scrape.RunSummary{
			Status:       scrape.StatusError,
			PagesScraped: scraped,
			PagesTotal:   len(summaries),
			ChangedPages: changes.Changed(),
			Error:        err.Error(),
		}
	}

	status := scrape.StatusSuccess
	if anyFailed {
		status = scrape.StatusPartial
	}
	logger.Info("run finished",
		zap.String("status", string(status)),
		zap.Int("pages_scraped", scraped),
		zap.Int("changed_pages", len(changes.Changed())))
	return scrape.RunSummary{
		Status:       status,
		PagesScraped: scraped,
		PagesTotal:   len(summaries),
		ChangedPages: changes.Changed(),
	}
}

// processCategory fetches the category's candidates in priority order, runs
// normalization and conditional extraction, and writes its artifacts. The
// returned HTML feeds homepage link discovery.
func (c *Coordinator) processCategory(ctx context.Context, company scrape.Company,
	runFolder string, target scrape.PageTarget, opts scrape.Options, bud *budget) (categoryOutcome, string) {

	result := scrape.PageResult{
		PageType:  target.PageType,
		FetchedAt: c.clock.Now(),
	}

	fetchOpts := fetch.Options{
		ForceRender:   opts.ForceRender,
		IgnoreRobots:  !opts.RespectRobots,
		RenderTimeout: c.budgets.forPage(target.PageType),
	}

	// One budget unit buys one page snapshot, however many candidate paths
	// have to be probed to find it. The unit is returned if nothing is found.
	var (
		res     fetch.Result
		lastErr error
		got     bool
	)
	if bud.take() {
		for _, candidate := range target.CandidateURLs {
			r, err := c.fetcher.Fetch(ctx, candidate, fetchOpts)
			if err == nil {
				res, got = r, true
				result.URL = candidate
				break
			}
			lastErr = err
			if isCanceled(err) {
				break
			}
		}
		if !got {
			bud.release()
		}
	}

	var rawHTML string
	var doc normalize.Document
	failed := false
	switch {
	case got:
		rawHTML = string(res.Body)
		doc = normalize.Extract(rawHTML, result.URL)
		result.Found = true
		result.StatusCode = res.StatusCode
		result.RawHTMLLength = len(res.Body)
		result.ExtractedText = doc.FullText
		result.ContentHash = doc.ContentHash
		result.FetchStrategy = res.Strategy
		result.Warning = doc.Warning
	case lastErr != nil:
		result.Error = errorLabel(lastErr)
		failed = isFailure(lastErr)
	default:
		// No candidates, or the page budget ran out first: the category is
		// simply absent for this run.
	}

	if got {
		c.extractConditional(ctx, company, runFolder, target.PageType, rawHTML, result.URL, opts, bud, fetchOpts)
	}

	if err := c.sink.WritePage(company.CompanyID, runFolder, result, doc, []byte(rawHTML)); err != nil {
		c.logger.Error("write page artifacts",
			zap.String("page_type", string(target.PageType)), zap.Error(err))
		if result.Error == "" {
			result.Error = "artifact write failed"
		}
		failed = true
	}

	return categoryOutcome{result: result, failed: failed}, rawHTML
}

// extractConditional runs the category-specific extractors: job postings for
// careers, articles for blog.
func (c *Coordinator) extractConditional(ctx context.Context, company scrape.Company,
	runFolder string, pt scrape.PageType, html, pageURL string, opts scrape.Options,
	bud *budget, fetchOpts fetch.Options) {

	switch pt {
	case scrape.PageCareers:
		platform, jobs := c.jobs.ExtractJobs(ctx, html, pageURL)
		c.logger.Debug("ats extraction",
			zap.String("platform", string(platform)), zap.Int("jobs", len(jobs)))
		if err := c.sink.WriteJobs(company.CompanyID, runFolder, pt, jobs); err != nil {
			c.logger.Error("write jobs artifact", zap.Error(err))
		}
	case scrape.PageBlog:
		if !opts.ScrapeBlogPosts {
			return
		}
		articleOpts := fetchOpts
		articleOpts.RenderTimeout = c.budgets.Article
		fetchPage := func(ctx context.Context, rawURL string) (string, error) {
			if !bud.take() {
				return "", errors.New("page budget exhausted")
			}
			r, err := c.fetcher.Fetch(ctx, rawURL, articleOpts)
			if err != nil {
				bud.release()
				return "", err
			}
			return string(r.Body), nil
		}
		articles := c.articles.Extract(ctx, html, pageURL, opts.MaxBlogPosts, fetchPage)
		if err := c.sink.WriteArticles(company.CompanyID, runFolder, pt, articles); err != nil {
			c.logger.Error("write articles artifact", zap.Error(err))
		}
	}
}

// budget caps pages captured per run, blog posts included. Candidate probes
// that turn up nothing do not consume capacity.
type budget struct {
	mu        sync.Mutex
	remaining int
	unlimited bool
}

func newBudget(maxPages int) *budget {
	return &budget{remaining: maxPages, unlimited: maxPages <= 0}
}

func (b *budget) take() bool {
	if b.unlimited {
		return true
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.remaining <= 0 {
		return false
	}
	b.remaining--
	return true
}

func (b *budget) release() {
	if b.unlimited {
		return
	}
	b.mu.Lock()
	b.remaining++
	b.mu.Unlock()
}

// errorLabel renders the short cause string stored in PageResult.Error.
func errorLabel(err error) string {
	var fe *fetch.Error
	if errors.As(err, &fe) {
		if fe.Cause == fetch.CauseStatus {
			return fmt.Sprintf("status %d", fe.StatusCode)
		}
		return string(fe.Cause)
	}
	return err.Error()
}

// isFailure distinguishes real failures (which make the run partial) from
// plain absence: 4xx means the page does not exist for this company.
func isFailure(err error) bool {
	var fe *fetch.Error
	if !errors.As(err, &fe) {
		return true
	}
	if fe.Cause == fetch.CauseStatus {
		return fe.StatusCode >= 500
	}
	return true
}

func isCanceled(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var fe *fetch.Error
	return errors.As(err, &fe) && fe.Cause == fetch.CauseCanceled
}
