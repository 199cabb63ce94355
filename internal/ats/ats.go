// Package ats identifies which job-board platform serves a careers page and
// extracts its postings through a strategy chain: public API, then embedded
// JSON, then DOM heuristics.
package ats

import (
	"context"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"

	"github.com/orbitdata/companycrawl/internal/scrape"
	"github.com/orbitdata/companycrawl/internal/telemetry"
)

// Platform is one recognized applicant-tracking system.
type Platform string

// Recognized platforms. PlatformNone means a custom or unrecognized board.
const (
	PlatformGreenhouse      Platform = "greenhouse"
	PlatformLever           Platform = "lever"
	PlatformWorkable        Platform = "workable"
	PlatformAshby           Platform = "ashby"
	PlatformBambooHR        Platform = "bamboohr"
	PlatformICIMS           Platform = "icims"
	PlatformWorkday         Platform = "workday"
	PlatformOracle          Platform = "oracle"
	PlatformSmartRecruiters Platform = "smartrecruiters"
	PlatformJobvite         Platform = "jobvite"
	PlatformNone            Platform = "none"
)

// Strategy tiers recorded in JobPosting.SourceStrategy.
const (
	StrategyAPI      = "api"
	StrategyEmbedded = "embedded"
	StrategyDOM      = "dom"
	StrategyJSONLD   = "jsonld"
)

// detectionSignature matches a platform by substrings of the page HTML, the
// careers URL, or iframe src values.
type detectionSignature struct {
	platform      Platform
	htmlMarkers   []string
	urlMarkers    []string
	iframeMarkers []string
}

// signatures are checked in order; the first hit wins. HTML and URL markers
// run before the iframe scan, matching how widget embeds usually advertise
// their host platform in page source first.
var signatures = []detectionSignature{
	{PlatformGreenhouse, []string{"greenhouse"}, []string{"greenhouse.io"}, []string{"greenhouse.io"}},
	{PlatformLever, []string{"lever.co"}, []string{"lever.co"}, []string{"lever.co"}},
	{PlatformWorkable, []string{"workable"}, []string{"workable.com"}, []string{"workable.com"}},
	{PlatformAshby, []string{"ashby"}, []string{"ashbyhq.com"}, []string{"ashbyhq.com"}},
	{PlatformBambooHR, []string{"bamboohr"}, []string{"bamboohr.com"}, nil},
	{PlatformICIMS, []string{"icims"}, []string{"icims.com"}, []string{"icims.com"}},
	{PlatformWorkday, []string{"workday.com", "myworkdayjobs.com"}, []string{"workday.com", "myworkdayjobs.com"}, []string{"workday.com", "myworkdayjobs.com"}},
	{PlatformOracle, []string{"taleo"}, []string{"taleo.net", "oraclecloud.com"}, []string{"taleo.net", "oraclecloud.com"}},
	{PlatformSmartRecruiters, []string{"smartrecruiters"}, []string{"smartrecruiters.com"}, []string{"smartrecruiters.com"}},
	{PlatformJobvite, []string{"jobvite"}, []string{"jobvite.com"}, []string{"jobvite.com"}},
}

// Detect classifies the careers page. PlatformNone is a valid answer, not an
// error: custom boards go straight to the generic DOM path.
func Detect(html, careersURL string) Platform {
	htmlLower := strings.ToLower(html)
	urlLower := strings.ToLower(careersURL)

	for _, sig := range signatures {
		for _, m := range sig.htmlMarkers {
			if strings.Contains(htmlLower, m) {
				return sig.platform
			}
		}
		for _, m := range sig.urlMarkers {
			if strings.Contains(urlLower, m) {
				return sig.platform
			}
		}
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return PlatformNone
	}
	var found Platform = PlatformNone
	doc.Find("iframe[src]").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		src, _ := s.Attr("src")
		src = strings.ToLower(src)
		for _, sig := range signatures {
			for _, m := range sig.iframeMarkers {
				if strings.Contains(src, m) {
					found = sig.platform
					return false
				}
			}
		}
		return true
	})
	return found
}

// Extractor runs the per-platform strategy chains.
type Extractor struct {
	client *Client
	logger *zap.Logger
}

// NewExtractor wires the extractor with the shared API client.
func NewExtractor(client *Client, logger *zap.Logger) *Extractor {
	return &Extractor{client: client, logger: logger}
}

// ExtractJobs detects the platform and runs its chain. Each tier is attempted
// only if the prior one returned zero postings; the result is deduplicated by
// external id, else by (title, url).
func (e *Extractor) ExtractJobs(ctx context.Context, html, careersURL string) (Platform, []scrape.JobPosting) {
	platform := Detect(html, careersURL)

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		e.logger.Warn("careers page parse failed", zap.String("url", careersURL), zap.Error(err))
		return platform, nil
	}

	var jobs []scrape.JobPosting
	switch platform {
	case PlatformGreenhouse:
		jobs = e.greenhouseChain(ctx, doc, careersURL)
	case PlatformLever:
		jobs = e.leverChain(ctx, doc, careersURL)
	case PlatformWorkable:
		jobs = e.workableChain(ctx, doc, careersURL)
	case PlatformAshby:
		jobs = e.ashbyChain(ctx, doc, careersURL)
	case PlatformBambooHR, PlatformICIMS, PlatformWorkday,
		PlatformOracle, PlatformSmartRecruiters, PlatformJobvite:
		jobs = boardChain(platform, doc, careersURL)
	default:
		jobs = genericChain(doc, careersURL)
	}

	jobs = Dedupe(jobs)
	for _, j := range jobs {
		telemetry.JobsExtracted.WithLabelValues(string(platform), j.SourceStrategy).Inc()
	}
	e.logger.Info("job extraction finished",
		zap.String("platform", string(platform)),
		zap.Int("jobs", len(jobs)),
		zap.String("url", careersURL))
	return platform, jobs
}

// genericChain handles custom boards: schema.org JobPosting metadata first,
// then the plain DOM heuristics.
func genericChain(doc *goquery.Document, careersURL string) []scrape.JobPosting {
	if jobs := jsonldJobs(doc, careersURL); len(jobs) > 0 {
		return jobs
	}
	return domJobs(doc, careersURL, nil)
}
