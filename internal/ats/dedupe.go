package ats

import (
	"net/url"
	"strings"
	"time"

	"github.com/orbitdata/companycrawl/internal/scrape"
)

// Dedupe removes duplicate postings within a run: by external id when
// present, else by lowercased (title, url). Order is preserved.
func Dedupe(jobs []scrape.JobPosting) []scrape.JobPosting {
	if len(jobs) < 2 {
		return jobs
	}
	seenID := make(map[string]bool)
	seenKey := make(map[string]bool)
	out := make([]scrape.JobPosting, 0, len(jobs))
	for _, j := range jobs {
		if j.ExternalID != "" {
			if seenID[j.ExternalID] {
				continue
			}
			seenID[j.ExternalID] = true
		} else {
			key := strings.ToLower(j.Title) + "|" + strings.ToLower(j.URL)
			if seenKey[key] {
				continue
			}
			seenKey[key] = true
		}
		out = append(out, j)
	}
	return out
}

// validTitle filters out fragments and nav noise the heuristics pick up.
func validTitle(title string) bool {
	n := len(title)
	return n > 5 && n < 200
}

func resolveURL(base, href string) string {
	if href == "" {
		return ""
	}
	baseU, err := url.Parse(base)
	if err != nil {
		return href
	}
	ref, err := url.Parse(href)
	if err != nil {
		return href
	}
	return baseU.ResolveReference(ref).String()
}

func containsFold(s, substr string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(substr))
}

// millisToDate renders an epoch-milliseconds timestamp as RFC 3339, the form
// the rest of the pipeline stores dates in.
func millisToDate(ms int64) string {
	if ms <= 0 {
		return ""
	}
	return time.UnixMilli(ms).UTC().Format(time.RFC3339)
}
