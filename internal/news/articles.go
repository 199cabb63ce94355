package news

import (
	"context"
	"encoding/json"
	"net/url"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/araddon/dateparse"
	"go.uber.org/zap"

	"github.com/orbitdata/companycrawl/internal/normalize"
	"github.com/orbitdata/companycrawl/internal/scrape"
	"github.com/orbitdata/companycrawl/internal/telemetry"
)

// PageFetcher retrieves an article page's HTML; the run coordinator injects
// the full fetch engine here so article pages get the same escalation logic.
type PageFetcher func(ctx context.Context, rawURL string) (string, error)

var (
	articleSelectors = []string{
		"article a", ".post a", ".blog-post a", ".article-link",
		"h2 a", "h3 a", `[class*="post"] a`, `[class*="article"] a`,
	}
	skipPathParts    = []string{"/category/", "/tag/", "/author/", "/page/", "/search", "/archive"}
	articlePathParts = []string{"/blog/", "/news/", "/post/", "/article/"}
	authorClassRe    = regexp.MustCompile(`(?i)author`)
)

// Extract produces up to maxArticles records for a blog page: the feed fast
// path when one exists, else an index crawl with per-article extraction.
// Results are ordered most recent first; undated articles sort last.
func (e *Extractor) Extract(ctx context.Context, blogHTML, blogURL string, maxArticles int, fetchPage PageFetcher) []scrape.Article {
	if maxArticles <= 0 {
		maxArticles = 20
	}

	for _, feedURL := range e.DiscoverFeeds(ctx, blogHTML, blogURL) {
		articles, err := e.FetchFeed(ctx, feedURL)
		if err != nil {
			e.logger.Debug("feed fetch failed", zap.String("feed", feedURL), zap.Error(err))
			continue
		}
		if len(articles) > 0 {
			e.logger.Info("articles from feed",
				zap.String("feed", feedURL), zap.Int("count", len(articles)))
			telemetry.ArticlesExtracted.WithLabelValues(SourceFeed).Add(float64(len(articles)))
			return capArticles(SortByRecency(articles), maxArticles)
		}
	}

	links := ArticleLinks(blogHTML, blogURL)
	var articles []scrape.Article
	for _, link := range links {
		if len(articles) >= maxArticles {
			break
		}
		html, err := fetchPage(ctx, link)
		if err != nil {
			e.logger.Debug("article fetch failed", zap.String("url", link), zap.Error(err))
			continue
		}
		articles = append(articles, ExtractArticle(html, link))
	}
	telemetry.ArticlesExtracted.WithLabelValues(SourcePage).Add(float64(len(articles)))
	return capArticles(SortByRecency(articles), maxArticles)
}

// ArticleLinks pulls same-domain article URLs out of a blog index page,
// in document order, deduplicated.
func ArticleLinks(indexHTML, blogURL string) []string {
	base, err := url.Parse(blogURL)
	if err != nil || base.Host == "" {
		return nil
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(indexHTML))
	if err != nil {
		return nil
	}

	var links []string
	seen := make(map[string]bool)
	for _, sel := range articleSelectors {
		doc.Find(sel).Each(func(_ int, s *goquery.Selection) {
			href, _ := s.Attr("href")
			if href == "" {
				return
			}
			lower := strings.ToLower(href)
			if containsAnyPart(lower, skipPathParts) || !containsAnyPart(lower, articlePathParts) {
				return
			}
			ref, err := url.Parse(href)
			if err != nil {
				return
			}
			full := base.ResolveReference(ref)
			if !strings.EqualFold(full.Host, base.Host) {
				return
			}
			u := full.String()
			if !seen[u] {
				seen[u] = true
				links = append(links, u)
			}
		})
	}
	return links
}

// ExtractArticle builds an Article from a fetched article page: JSON-LD
// Article/BlogPosting/NewsArticle metadata first, then DOM fallbacks, with
// the body from the <article> element or the generic text extractor.
func ExtractArticle(pageHTML, pageURL string) scrape.Article {
	article := scrape.Article{URL: pageURL, Source: SourcePage}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(pageHTML))
	if err != nil {
		article.Content = normalize.FullText(pageHTML, pageURL)
		article.WordCount = wordCount(article.Content)
		return article
	}

	applyJSONLD(doc, &article)

	if article.Title == "" {
		article.Title = strings.TrimSpace(doc.Find("title").First().Text())
	}

	if body := doc.Find("article").First(); body.Length() > 0 {
		clone := body.Clone()
		clone.Find("script, style, nav, footer").Remove()
		article.Content = strings.TrimSpace(clone.Text())
	}
	if article.Content == "" {
		article.Content = normalize.FullText(pageHTML, pageURL)
	}

	if article.Author == "" {
		doc.Find("span, div, p").EachWithBreak(func(_ int, s *goquery.Selection) bool {
			class, _ := s.Attr("class")
			if authorClassRe.MatchString(class) {
				article.Author = strings.TrimSpace(s.Text())
				return false
			}
			return true
		})
	}
	if article.DatePublished == "" {
		if dt, ok := doc.Find("time[datetime]").First().Attr("datetime"); ok {
			article.DatePublished = dt
		}
	}

	article.WordCount = wordCount(article.Content)
	return article
}

func applyJSONLD(doc *goquery.Document, article *scrape.Article) {
	doc.Find(`script[type="application/ld+json"]`).EachWithBreak(func(_ int, s *goquery.Selection) bool {
		var data map[string]any
		if err := json.Unmarshal([]byte(s.Text()), &data); err != nil {
			return true
		}
		typ, _ := data["@type"].(string)
		switch typ {
		case "Article", "BlogPosting", "NewsArticle":
		default:
			return true
		}
		if headline, _ := data["headline"].(string); headline != "" {
			article.Title = headline
		} else if name, _ := data["name"].(string); name != "" {
			article.Title = name
		}
		switch author := data["author"].(type) {
		case map[string]any:
			article.Author, _ = author["name"].(string)
		case string:
			article.Author = author
		}
		if published, _ := data["datePublished"].(string); published != "" {
			article.DatePublished = published
		}
		if desc, _ := data["description"].(string); desc != "" {
			article.Excerpt = desc
		}
		return false
	})
}

// SortByRecency orders newest first. Articles whose dates cannot be parsed
// keep their relative order behind all dated ones.
func SortByRecency(articles []scrape.Article) []scrape.Article {
	type dated struct {
		article scrape.Article
		ts      time.Time
		ok      bool
	}
	ds := make([]dated, len(articles))
	for i, a := range articles {
		ds[i] = dated{article: a}
		if a.DatePublished == "" {
			continue
		}
		if ts, err := dateparse.ParseAny(a.DatePublished); err == nil {
			ds[i].ts = ts
			ds[i].ok = true
		}
	}
	sort.SliceStable(ds, func(i, j int) bool {
		if ds[i].ok != ds[j].ok {
			return ds[i].ok
		}
		return ds[i].ts.After(ds[j].ts)
	})
	out := make([]scrape.Article, len(ds))
	for i, d := range ds {
		out[i] = d.article
	}
	return out
}

func capArticles(articles []scrape.Article, max int) []scrape.Article {
	if len(articles) > max {
		return articles[:max]
	}
	return articles
}

func containsAnyPart(s string, parts []string) bool {
	for _, p := range parts {
		if strings.Contains(s, p) {
			return true
		}
	}
	return false
}
