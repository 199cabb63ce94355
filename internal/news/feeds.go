// Package news finds a site's RSS/Atom feeds and blog articles and extracts
// per-article records.
package news

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/antchfx/xmlquery"
	"go.uber.org/zap"

	"github.com/orbitdata/companycrawl/internal/ratelimit"
	"github.com/orbitdata/companycrawl/internal/scrape"
)

// Article sources recorded in Article.Source.
const (
	SourceFeed = "rss_feed"
	SourcePage = "article_page"
)

// conventionalFeedPaths are probed when the page advertises no feed link.
var conventionalFeedPaths = []string{
	"/feed", "/feed.xml", "/rss", "/rss.xml", "/atom.xml",
	"/blog/feed", "/news/feed", "/feed.rss",
}

const maxFeedBody = 4 << 20

// Extractor discovers feeds and extracts articles for one site.
type Extractor struct {
	client    *http.Client
	limiter   *ratelimit.Limiter
	userAgent string
	logger    *zap.Logger
}

// NewExtractor builds an Extractor sharing the per-domain limiter.
func NewExtractor(userAgent string, timeout time.Duration, limiter *ratelimit.Limiter, logger *zap.Logger) *Extractor {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Extractor{
		client:    &http.Client{Timeout: timeout},
		limiter:   limiter,
		userAgent: userAgent,
		logger:    logger,
	}
}

// DiscoverFeeds returns candidate feed URLs: <link rel=alternate> tags first,
// then conventional paths that answer a lightweight probe.
func (e *Extractor) DiscoverFeeds(ctx context.Context, pageHTML, baseURL string) []string {
	var feeds []string
	seen := make(map[string]bool)
	add := func(u string) {
		if u != "" && !seen[u] {
			seen[u] = true
			feeds = append(feeds, u)
		}
	}

	base, err := url.Parse(baseURL)
	if err != nil || base.Host == "" {
		return nil
	}

	if doc, err := goquery.NewDocumentFromReader(strings.NewReader(pageHTML)); err == nil {
		doc.Find("link[href]").Each(func(_ int, s *goquery.Selection) {
			typ, _ := s.Attr("type")
			typ = strings.ToLower(typ)
			if !strings.Contains(typ, "rss") && !strings.Contains(typ, "atom") && !strings.Contains(typ, "xml") {
				return
			}
			href, _ := s.Attr("href")
			if ref, err := url.Parse(href); err == nil {
				add(base.ResolveReference(ref).String())
			}
		})
	}

	for _, p := range conventionalFeedPaths {
		ref, err := url.Parse(p)
		if err != nil {
			continue
		}
		feedURL := base.ResolveReference(ref).String()
		if seen[feedURL] {
			continue
		}
		if e.probe(ctx, feedURL) {
			add(feedURL)
		}
	}
	return feeds
}

// probe checks existence with HEAD.
func (e *Extractor) probe(ctx context.Context, rawURL string) bool {
	if err := e.limiter.Wait(ctx, rawURL); err != nil {
		return false
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, rawURL, nil)
	if err != nil {
		return false
	}
	req.Header.Set("User-Agent", e.userAgent)
	resp, err := e.client.Do(req)
	if err != nil {
		return false
	}
	_ = resp.Body.Close()
	return resp.StatusCode == http.StatusOK
}

// FetchFeed downloads and parses one RSS or Atom feed.
func (e *Extractor) FetchFeed(ctx context.Context, feedURL string) ([]scrape.Article, error) {
	if err := e.limiter.Wait(ctx, feedURL); err != nil {
		return nil, fmt.Errorf("rate limit wait: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, feedURL, nil)
	if err != nil {
		return nil, fmt.Errorf("new feed request: %w", err)
	}
	req.Header.Set("User-Agent", e.userAgent)
	resp, err := e.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch feed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch feed %s: status %d", feedURL, resp.StatusCode)
	}
	return ParseFeed(io.LimitReader(resp.Body, maxFeedBody))
}

// ParseFeed reads RSS 2.0 or Atom and maps entries onto Articles.
func ParseFeed(r io.Reader) ([]scrape.Article, error) {
	doc, err := xmlquery.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("parse feed: %w", err)
	}

	items := xmlquery.Find(doc, "//item")
	if len(items) > 0 {
		return rssArticles(items), nil
	}
	entries := xmlquery.Find(doc, "//*[local-name()='entry']")
	if len(entries) > 0 {
		return atomArticles(entries), nil
	}
	return nil, nil
}

func rssArticles(items []*xmlquery.Node) []scrape.Article {
	articles := make([]scrape.Article, 0, len(items))
	for _, item := range items {
		a := scrape.Article{
			Title:         childText(item, "title"),
			URL:           childText(item, "link"),
			Author:        firstNonEmpty(childText(item, "author"), childText(item, "creator")),
			DatePublished: firstNonEmpty(childText(item, "pubDate"), childText(item, "date")),
			Excerpt:       childText(item, "description"),
			Content:       childText(item, "encoded"),
			Source:        SourceFeed,
		}
		for _, c := range childTexts(item, "category") {
			a.Categories = append(a.Categories, c)
		}
		a.WordCount = wordCount(firstNonEmpty(a.Content, a.Excerpt))
		if a.Title != "" || a.URL != "" {
			articles = append(articles, a)
		}
	}
	return articles
}

func atomArticles(entries []*xmlquery.Node) []scrape.Article {
	articles := make([]scrape.Article, 0, len(entries))
	for _, entry := range entries {
		a := scrape.Article{
			Title:         childText(entry, "title"),
			URL:           atomLink(entry),
			DatePublished: firstNonEmpty(childText(entry, "published"), childText(entry, "updated")),
			Excerpt:       childText(entry, "summary"),
			Content:       childText(entry, "content"),
			Source:        SourceFeed,
		}
		if author := childNode(entry, "author"); author != nil {
			a.Author = childText(author, "name")
		}
		for _, cat := range childNodes(entry, "category") {
			if term := cat.SelectAttr("term"); term != "" {
				a.Categories = append(a.Categories, term)
			}
		}
		a.WordCount = wordCount(firstNonEmpty(a.Content, a.Excerpt))
		if a.Title != "" || a.URL != "" {
			articles = append(articles, a)
		}
	}
	return articles
}

// atomLink prefers rel=alternate, then any href.
func atomLink(entry *xmlquery.Node) string {
	var fallback string
	for _, link := range childNodes(entry, "link") {
		href := link.SelectAttr("href")
		if href == "" {
			continue
		}
		rel := link.SelectAttr("rel")
		if rel == "" || rel == "alternate" {
			return href
		}
		if fallback == "" {
			fallback = href
		}
	}
	return fallback
}

// childNode finds the first direct child whose local name matches.
func childNode(n *xmlquery.Node, local string) *xmlquery.Node {
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == xmlquery.ElementNode && c.Data == local {
			return c
		}
	}
	return nil
}

func childNodes(n *xmlquery.Node, local string) []*xmlquery.Node {
	var out []*xmlquery.Node
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == xmlquery.ElementNode && c.Data == local {
			out = append(out, c)
		}
	}
	return out
}

func childText(n *xmlquery.Node, local string) string {
	if c := childNode(n, local); c != nil {
		return strings.TrimSpace(c.InnerText())
	}
	return ""
}

func childTexts(n *xmlquery.Node, local string) []string {
	var out []string
	for _, c := range childNodes(n, local) {
		if text := strings.TrimSpace(c.InnerText()); text != "" {
			out = append(out, text)
		}
	}
	return out
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

func wordCount(s string) int {
	return len(strings.Fields(s))
}
