package discovery

import (
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/orbitdata/companycrawl/internal/scrape"
)

// Targets builds one PageTarget per category, candidates in priority order:
// a per-company override first, then the category's path templates resolved
// against the base URL, then any homepage-discovered URL not already listed.
// An unparsable base URL yields targets with empty candidate lists.
func Targets(baseURL string, overrides, discovered map[scrape.PageType]string) []scrape.PageTarget {
	base, err := url.Parse(baseURL)
	if err != nil || base.Host == "" {
		base = nil
	}

	targets := make([]scrape.PageTarget, 0, len(scrape.AllPageTypes()))
	for _, pt := range scrape.AllPageTypes() {
		var candidates []string
		seen := make(map[string]bool)
		add := func(u string) {
			if u == "" || seen[u] {
				return
			}
			seen[u] = true
			candidates = append(candidates, u)
		}

		add(overrides[pt])
		if base != nil {
			for _, path := range pathTemplates[pt] {
				if ref, err := url.Parse(path); err == nil {
					add(base.ResolveReference(ref).String())
				}
			}
		}
		add(discovered[pt])

		targets = append(targets, scrape.PageTarget{
			PageType:      pt,
			CandidateURLs: candidates,
		})
	}
	return targets
}

// FromHomepage scans a fetched homepage for same-domain links that identify
// other categories, matching first on href fragments and then on anchor text.
// The first matching link per category wins.
func FromHomepage(homepageHTML, baseURL string) map[scrape.PageType]string {
	discovered := make(map[scrape.PageType]string)

	base, err := url.Parse(baseURL)
	if err != nil || base.Host == "" {
		return discovered
	}
	gq, err := goquery.NewDocumentFromReader(strings.NewReader(homepageHTML))
	if err != nil {
		return discovered
	}

	gq.Find("a[href]").Each(func(_ int, s *goquery.Selection) {
		href, _ := s.Attr("href")
		ref, err := url.Parse(href)
		if err != nil {
			return
		}
		full := base.ResolveReference(ref)
		if !strings.EqualFold(full.Host, base.Host) {
			return
		}

		lowerHref := strings.ToLower(href)
		anchorText := strings.ToLower(strings.TrimSpace(s.Text()))

		for _, pt := range scrape.AllPageTypes() {
			if _, done := discovered[pt]; done {
				continue
			}
			rule, ok := linkRules[pt]
			if !ok {
				continue
			}
			if matchesAny(lowerHref, rule.hrefFragments) ||
				matchesAny(anchorText, rule.textPhrases) {
				discovered[pt] = full.String()
			}
		}
	})
	return discovered
}

func matchesAny(s string, fragments []string) bool {
	if s == "" {
		return false
	}
	for _, f := range fragments {
		if strings.Contains(s, f) {
			return true
		}
	}
	return false
}
