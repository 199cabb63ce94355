package ats

import (
	"encoding/json"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/orbitdata/companycrawl/internal/scrape"
)

var (
	jobClassRe    = regexp.MustCompile(`(?i)job|position|opening|posting|vacancy|role`)
	titleClassRe  = regexp.MustCompile(`(?i)title|name|heading`)
	locClassRe    = regexp.MustCompile(`(?i)location|city|place|state`)
	deptClassRe   = regexp.MustCompile(`(?i)department|team|division`)
	jobHrefParts  = []string{"/jobs/", "/job/", "/position/", "/opening/", "/careers/", "/j/"}
)

// domConfig tunes the heuristics for platforms with distinctive markup.
type domConfig struct {
	// candidateAttrs mark job rows via data-* attributes (e.g. Workday's
	// data-automation-id).
	candidateAttrs []string
}

// domJobs is the last strategy tier: pattern-match class names, data-*
// attributes, and anchors that look like job rows. cfg may be nil.
func domJobs(doc *goquery.Document, careersURL string, cfg *domConfig) []scrape.JobPosting {
	var jobs []scrape.JobPosting

	doc.Find("div, li, article, tr").Each(func(_ int, s *goquery.Selection) {
		if !isJobCandidate(s, cfg) {
			return
		}
		title, titleSel := candidateTitle(s)
		if !validTitle(title) {
			return
		}

		posting := scrape.JobPosting{Title: title, SourceStrategy: StrategyDOM}
		if loc := classText(s, locClassRe); loc != "" {
			posting.Location = loc
		}
		if dept := classText(s, deptClassRe); dept != "" {
			posting.Department = dept
		}
		if href := candidateHref(s, titleSel); href != "" {
			posting.URL = resolveURL(careersURL, href)
		}
		jobs = append(jobs, posting)
	})

	if len(jobs) > 0 {
		return jobs
	}
	return linkJobs(doc, careersURL)
}

// linkJobs scans bare anchors with job-shaped hrefs when no structured rows
// were found.
func linkJobs(doc *goquery.Document, careersURL string) []scrape.JobPosting {
	var jobs []scrape.JobPosting
	seen := make(map[string]bool)
	doc.Find("a[href]").Each(func(_ int, s *goquery.Selection) {
		href, _ := s.Attr("href")
		lower := strings.ToLower(href)
		if !matchesAnyPart(lower, jobHrefParts) {
			return
		}
		title := strings.TrimSpace(s.Text())
		if !validTitle(title) {
			return
		}
		full := resolveURL(careersURL, href)
		key := strings.ToLower(full)
		if seen[key] {
			return
		}
		seen[key] = true
		jobs = append(jobs, scrape.JobPosting{
			Title:          title,
			URL:            full,
			SourceStrategy: StrategyDOM,
		})
	})
	return jobs
}

// jsonldJobs extracts schema.org JobPosting blocks, the platform-independent
// tier ahead of raw DOM heuristics for custom boards.
func jsonldJobs(doc *goquery.Document, careersURL string) []scrape.JobPosting {
	var jobs []scrape.JobPosting
	doc.Find(`script[type="application/ld+json"]`).Each(func(_ int, s *goquery.Selection) {
		var decoded any
		if err := json.Unmarshal([]byte(s.Text()), &decoded); err != nil {
			return
		}
		for _, obj := range flattenLD(decoded) {
			if !isLDType(obj, "JobPosting") {
				continue
			}
			title := stringField(obj, "title")
			if !validTitle(title) {
				continue
			}
			posting := scrape.JobPosting{
				Title:          title,
				URL:            resolveURL(careersURL, stringField(obj, "url")),
				DatePosted:     stringField(obj, "datePosted"),
				Description:    stringField(obj, "description"),
				SourceStrategy: StrategyJSONLD,
			}
			if loc, ok := obj["jobLocation"].(map[string]any); ok {
				if addr, ok := loc["address"].(map[string]any); ok {
					posting.Location = stringField(addr, "addressLocality", "addressRegion", "addressCountry")
				}
				if posting.Location == "" {
					posting.Location = stringField(loc, "name")
				}
			}
			if id, ok := obj["identifier"].(map[string]any); ok {
				posting.ExternalID = stringField(id, "value")
			}
			jobs = append(jobs, posting)
		}
	})
	return jobs
}

func isJobCandidate(s *goquery.Selection, cfg *domConfig) bool {
	if class, ok := s.Attr("class"); ok && jobClassRe.MatchString(class) {
		return true
	}
	attrs := []string{"data-job-id", "data-position-id", "data-workable-id"}
	if cfg != nil {
		attrs = append(attrs, cfg.candidateAttrs...)
	}
	for _, a := range attrs {
		if v, ok := s.Attr(a); ok && v != "" {
			return true
		}
	}
	if v, ok := s.Attr("data-automation-id"); ok && jobClassRe.MatchString(v) {
		return true
	}
	if v, ok := s.Attr("data-qa"); ok && jobClassRe.MatchString(v) {
		return true
	}
	return false
}

// candidateTitle prefers headings and links with title-like classes, then the
// first heading or link in the row.
func candidateTitle(s *goquery.Selection) (string, *goquery.Selection) {
	var found *goquery.Selection
	s.Find("h2, h3, h4, a, span, td").EachWithBreak(func(_ int, t *goquery.Selection) bool {
		class, _ := t.Attr("class")
		auto, _ := t.Attr("data-automation-id")
		if titleClassRe.MatchString(class) || titleClassRe.MatchString(auto) {
			found = t
			return false
		}
		return true
	})
	if found == nil {
		found = s.Find("h2, h3, h4, a").First()
	}
	if found == nil || found.Length() == 0 {
		return "", nil
	}
	return strings.TrimSpace(found.Text()), found
}

func candidateHref(s, titleSel *goquery.Selection) string {
	if titleSel != nil && goquery.NodeName(titleSel) == "a" {
		if href, ok := titleSel.Attr("href"); ok {
			return href
		}
	}
	if href, ok := s.Find("a[href]").First().Attr("href"); ok {
		return href
	}
	return ""
}

func classText(s *goquery.Selection, re *regexp.Regexp) string {
	var text string
	s.Find("*").EachWithBreak(func(_ int, c *goquery.Selection) bool {
		class, _ := c.Attr("class")
		auto, _ := c.Attr("data-automation-id")
		if re.MatchString(class) || re.MatchString(auto) {
			text = strings.TrimSpace(c.Text())
			return false
		}
		return true
	})
	return text
}

func flattenLD(v any) []map[string]any {
	switch t := v.(type) {
	case map[string]any:
		if graph, ok := t["@graph"].([]any); ok {
			var out []map[string]any
			for _, g := range graph {
				out = append(out, flattenLD(g)...)
			}
			return out
		}
		return []map[string]any{t}
	case []any:
		var out []map[string]any
		for _, e := range t {
			out = append(out, flattenLD(e)...)
		}
		return out
	default:
		return nil
	}
}

func isLDType(obj map[string]any, want string) bool {
	switch t := obj["@type"].(type) {
	case string:
		return strings.EqualFold(t, want)
	case []any:
		for _, e := range t {
			if s, ok := e.(string); ok && strings.EqualFold(s, want) {
				return true
			}
		}
	}
	return false
}

func matchesAnyPart(s string, parts []string) bool {
	for _, p := range parts {
		if strings.Contains(s, p) {
			return true
		}
	}
	return false
}
