// Package normalize converts raw page HTML into structured text, page
// metadata, and a stable content hash.
package normalize

import (
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/markusmobius/go-trafilatura"
)

// Heading is a single hN element with its level preserved.
type Heading struct {
	Level int    `json:"level"`
	Text  string `json:"text"`
}

// Document is the normalized view of one fetched page.
type Document struct {
	Title       string     `json:"title"`
	Description string     `json:"description"`
	FullText    string     `json:"full_text"`
	Headings    []Heading  `json:"headings"`
	Paragraphs  []string   `json:"paragraphs"`
	Lists       [][]string `json:"lists"`
	Quotes      []string   `json:"quotes"`
	Metadata    Metadata   `json:"metadata"`
	ContentHash string     `json:"content_hash"`
	// Warning is set when parsing was degraded; the document is still usable.
	Warning string `json:"extraction_warning,omitempty"`
}

// Extract normalizes raw HTML fetched from pageURL. It never returns an
// error: malformed markup degrades to whatever could be recovered, with
// Warning describing what went wrong.
func Extract(rawHTML, pageURL string) Document {
	var doc Document
	var warnings []string

	doc.FullText = fullText(rawHTML, pageURL)
	if doc.FullText == "" {
		warnings = append(warnings, "no article body recovered")
	}

	gq, err := goquery.NewDocumentFromReader(strings.NewReader(rawHTML))
	if err != nil {
		warnings = append(warnings, "html parse failed: "+err.Error())
		// Raw text was possibly still recovered above; hash what we have.
		doc.ContentHash = ContentHash(doc.FullText)
		doc.Warning = strings.Join(warnings, "; ")
		return doc
	}

	doc.Title = collapse(gq.Find("title").First().Text())
	doc.Description, _ = gq.Find(`meta[name="description"]`).Attr("content")
	doc.Description = collapse(doc.Description)

	gq.Find("h1, h2, h3, h4, h5, h6").Each(func(_ int, s *goquery.Selection) {
		text := collapse(s.Text())
		if text == "" {
			return
		}
		doc.Headings = append(doc.Headings, Heading{Level: headingLevel(s), Text: text})
	})
	gq.Find("p").Each(func(_ int, s *goquery.Selection) {
		if text := collapse(s.Text()); text != "" {
			doc.Paragraphs = append(doc.Paragraphs, text)
		}
	})
	gq.Find("ul, ol").Each(func(_ int, s *goquery.Selection) {
		var items []string
		s.Find("li").Each(func(_ int, li *goquery.Selection) {
			if text := collapse(li.Text()); text != "" {
				items = append(items, text)
			}
		})
		if len(items) > 0 {
			doc.Lists = append(doc.Lists, items)
		}
	})
	gq.Find("blockquote").Each(func(_ int, s *goquery.Selection) {
		if text := collapse(s.Text()); text != "" {
			doc.Quotes = append(doc.Quotes, text)
		}
	})

	doc.Metadata = extractMetadata(gq)

	if doc.FullText == "" {
		doc.FullText = bodyText(gq)
	}
	doc.ContentHash = ContentHash(doc.FullText)
	doc.Warning = strings.Join(warnings, "; ")
	return doc
}

// FullText runs just the main-body extraction, for callers that do not need
// the structured breakdown.
func FullText(rawHTML, pageURL string) string {
	if text := fullText(rawHTML, pageURL); text != "" {
		return text
	}
	gq, err := goquery.NewDocumentFromReader(strings.NewReader(rawHTML))
	if err != nil {
		return ""
	}
	return bodyText(gq)
}

func fullText(rawHTML, pageURL string) string {
	var opts trafilatura.Options
	if u, err := url.Parse(pageURL); err == nil && u.Host != "" {
		opts.OriginalURL = u
	}
	result, err := trafilatura.Extract(strings.NewReader(rawHTML), opts)
	if err != nil || result == nil {
		return ""
	}
	return strings.TrimSpace(result.ContentText)
}

// bodyText is the fallback when the article extractor finds nothing: strip
// non-content elements and collapse the remaining body text.
func bodyText(gq *goquery.Document) string {
	body := gq.Find("body").Clone()
	body.Find("script, style, noscript, template, iframe").Remove()
	return collapse(body.Text())
}

func headingLevel(s *goquery.Selection) int {
	if len(s.Nodes) == 0 {
		return 0
	}
	tag := s.Nodes[0].Data
	if len(tag) == 2 && tag[0] == 'h' && tag[1] >= '1' && tag[1] <= '6' {
		return int(tag[1] - '0')
	}
	return 0
}

func collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
