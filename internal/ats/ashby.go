package ats

import (
	"context"
	"net/url"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"

	"github.com/orbitdata/companycrawl/internal/scrape"
)

var ashbyAPIBase = "https://api.ashbyhq.com/public/job_postings"

var ashbySlugPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)organizationSlug["']?\s*[:=]\s*["']([^"']+)["']`),
	regexp.MustCompile(`(?i)ashbyhq\.com/([^/"'?]+)`),
	regexp.MustCompile(`(?i)organization["']?\s*[:=]\s*["']([^"']+)["']`),
}

type ashbyPosting struct {
	Title        string `json:"title"`
	LocationName string `json:"locationName"`
	Team         struct {
		Name string `json:"name"`
	} `json:"team"`
	PublishedJobURL  string `json:"publishedJobUrl"`
	ID               string `json:"id"`
	PublishedAt      string `json:"publishedAt"`
	DescriptionPlain string `json:"descriptionPlain"`
}

func (e *Extractor) ashbyChain(ctx context.Context, doc *goquery.Document, careersURL string) []scrape.JobPosting {
	if slug := ashbySlug(doc, careersURL); slug != "" {
		jobs, err := e.ashbyAPI(ctx, slug)
		if err != nil {
			e.logger.Debug("ashby api failed", zap.String("slug", slug), zap.Error(err))
		} else if len(jobs) > 0 {
			return jobs
		}
	}
	if jobs := embeddedJobs(doc, careersURL); len(jobs) > 0 {
		return jobs
	}
	return domJobs(doc, careersURL, nil)
}

// ashbySlug locates the organization slug in board iframes, script
// configuration, or the careers URL path on an ashbyhq.com host.
func ashbySlug(doc *goquery.Document, careersURL string) string {
	var slug string
	doc.Find("iframe[src]").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		src, _ := s.Attr("src")
		if !containsFold(src, "ashbyhq.com") {
			return true
		}
		if m := ashbySlugPatterns[1].FindStringSubmatch(src); m != nil {
			slug = m[1]
			return false
		}
		return true
	})
	if slug != "" {
		return slug
	}

	doc.Find("script").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		text := s.Text()
		for _, re := range ashbySlugPatterns {
			if m := re.FindStringSubmatch(text); m != nil {
				slug = m[1]
				return false
			}
		}
		return true
	})
	if slug != "" {
		return slug
	}

	if u, err := url.Parse(careersURL); err == nil &&
		strings.Contains(strings.ToLower(u.Host), "ashbyhq.com") {
		parts := strings.Split(strings.Trim(u.Path, "/"), "/")
		if len(parts) > 0 && parts[0] != "" {
			return parts[0]
		}
	}
	return ""
}

func (e *Extractor) ashbyAPI(ctx context.Context, slug string) ([]scrape.JobPosting, error) {
	var payload struct {
		JobPostings []ashbyPosting `json:"jobPostings"`
	}
	apiURL := ashbyAPIBase + "?organization_slug=" + url.QueryEscape(slug)
	if err := e.client.GetJSON(ctx, apiURL, &payload); err != nil {
		return nil, err
	}

	jobs := make([]scrape.JobPosting, 0, len(payload.JobPostings))
	for _, p := range payload.JobPostings {
		if p.Title == "" {
			continue
		}
		jobs = append(jobs, scrape.JobPosting{
			Title:          p.Title,
			Location:       p.LocationName,
			Department:     p.Team.Name,
			URL:            p.PublishedJobURL,
			ExternalID:     p.ID,
			DatePosted:     p.PublishedAt,
			Description:    p.DescriptionPlain,
			SourceStrategy: StrategyAPI,
		})
	}
	return jobs, nil
}
