package ats

import (
	"encoding/json"
	"regexp"
	"strconv"

	"github.com/PuerkitoBio/goquery"

	"github.com/orbitdata/companycrawl/internal/scrape"
)

// embeddedArrayRe finds job-listing arrays in inline scripts: state hydration
// blobs and SSR payloads keyed jobs/postings/jobPostings/positions.
var embeddedArrayRe = regexp.MustCompile(`(?is)["']?(?:jobs|postings|jobPostings|positions)["']?\s*[:=]\s*(\[.*?\])`)

// embeddedJobs is the second strategy tier: scan inline <script> bodies for
// JSON structures resembling job listings.
func embeddedJobs(doc *goquery.Document, careersURL string) []scrape.JobPosting {
	var jobs []scrape.JobPosting
	doc.Find("script").Each(func(_ int, s *goquery.Selection) {
		if typ, _ := s.Attr("type"); typ == "application/ld+json" {
			return
		}
		for _, m := range embeddedArrayRe.FindAllStringSubmatch(s.Text(), -1) {
			var items []map[string]any
			if err := json.Unmarshal([]byte(m[1]), &items); err != nil {
				continue
			}
			for _, item := range items {
				if posting, ok := postingFromMap(item, careersURL); ok {
					jobs = append(jobs, posting)
				}
			}
		}
	})
	return jobs
}

// postingFromMap maps the field names the platforms use in their hydration
// payloads onto a JobPosting.
func postingFromMap(item map[string]any, careersURL string) (scrape.JobPosting, bool) {
	title := stringField(item, "title", "text")
	if !validTitle(title) {
		return scrape.JobPosting{}, false
	}

	location := stringField(item, "location", "locationName")
	if location == "" {
		if loc, ok := item["location"].(map[string]any); ok {
			location = stringField(loc, "name", "city")
		}
	}
	department := stringField(item, "department")
	if department == "" {
		if team, ok := item["team"].(map[string]any); ok {
			department = stringField(team, "name")
		}
	}
	if department == "" {
		if cats, ok := item["categories"].(map[string]any); ok {
			department = stringField(cats, "team")
			if location == "" {
				location = stringField(cats, "location")
			}
		}
	}

	jobURL := stringField(item, "absolute_url", "publishedJobUrl", "hostedUrl", "url", "shortlink")
	return scrape.JobPosting{
		Title:          title,
		Location:       location,
		Department:     department,
		URL:            resolveURL(careersURL, jobURL),
		ExternalID:     idField(item),
		SourceStrategy: StrategyEmbedded,
	}, true
}

func stringField(m map[string]any, keys ...string) string {
	for _, k := range keys {
		if v, ok := m[k].(string); ok && v != "" {
			return v
		}
	}
	return ""
}

func idField(m map[string]any) string {
	switch v := m["id"].(type) {
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	default:
		return ""
	}
}
