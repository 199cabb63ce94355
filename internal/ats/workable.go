package ats

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"

	"github.com/orbitdata/companycrawl/internal/scrape"
)

var workableAPIBase = "https://apply.workable.com/api/v3/accounts"

// workableSlugBlocklist filters slug candidates that are routing segments,
// not tenants.
var workableSlugBlocklist = map[string]bool{
	"api": true, "www": true, "apply": true, "jobs": true, "job": true,
}

type workableJob struct {
	Title       string          `json:"title"`
	Location    json.RawMessage `json:"location"`
	Department  string          `json:"department"`
	URL         string          `json:"url"`
	Shortlink   string          `json:"shortlink"`
	ID          json.Number     `json:"id"`
	PublishedOn string          `json:"published_on"`
	Description string          `json:"description"`
}

func (e *Extractor) workableChain(ctx context.Context, doc *goquery.Document, careersURL string) []scrape.JobPosting {
	if slug := workableSlug(doc, careersURL); slug != "" {
		jobs, err := e.workableAPI(ctx, slug)
		if err != nil {
			e.logger.Debug("workable api failed", zap.String("slug", slug), zap.Error(err))
		} else if len(jobs) > 0 {
			return jobs
		}
	}
	if jobs := embeddedJobs(doc, careersURL); len(jobs) > 0 {
		return jobs
	}
	return domJobs(doc, careersURL, nil)
}

// workableSlug finds the tenant account slug: careers URL path on a workable
// host, then iframe embeds, then workable links on the page.
func workableSlug(doc *goquery.Document, careersURL string) string {
	if slug := workableSlugFromURL(careersURL); slug != "" {
		return slug
	}
	var slug string
	doc.Find("iframe[src], a[href]").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		ref, ok := s.Attr("src")
		if !ok {
			ref, _ = s.Attr("href")
		}
		if slug = workableSlugFromURL(ref); slug != "" {
			return false
		}
		return true
	})
	return slug
}

func workableSlugFromURL(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil || !strings.Contains(strings.ToLower(u.Host), "workable.com") {
		return ""
	}
	parts := strings.Split(strings.Trim(u.Path, "/"), "/")
	if len(parts) == 0 || parts[0] == "" || workableSlugBlocklist[strings.ToLower(parts[0])] {
		return ""
	}
	return parts[0]
}

func (e *Extractor) workableAPI(ctx context.Context, slug string) ([]scrape.JobPosting, error) {
	var payload struct {
		Results []workableJob `json:"results"`
	}
	apiURL := fmt.Sprintf("%s/%s/jobs", workableAPIBase, slug)
	if err := e.client.GetJSON(ctx, apiURL, &payload); err != nil {
		return nil, err
	}

	jobs := make([]scrape.JobPosting, 0, len(payload.Results))
	for _, j := range payload.Results {
		if j.Title == "" {
			continue
		}
		jobURL := j.URL
		if jobURL == "" {
			jobURL = j.Shortlink
		}
		jobs = append(jobs, scrape.JobPosting{
			Title:          j.Title,
			Location:       workableLocation(j.Location),
			Department:     j.Department,
			URL:            jobURL,
			ExternalID:     j.ID.String(),
			DatePosted:     j.PublishedOn,
			Description:    j.Description,
			SourceStrategy: StrategyAPI,
		})
	}
	return jobs, nil
}

// workableLocation tolerates both representations the API has used: a plain
// string and an object with city/country fields.
func workableLocation(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	var obj struct {
		City    string `json:"city"`
		Region  string `json:"region"`
		Country string `json:"country"`
	}
	if err := json.Unmarshal(raw, &obj); err != nil {
		return ""
	}
	var parts []string
	for _, p := range []string{obj.City, obj.Region, obj.Country} {
		if p != "" {
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, ", ")
}
