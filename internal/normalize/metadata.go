package normalize

import (
	"encoding/json"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// MicrodataItem is one schema.org itemscope with its flattened properties.
type MicrodataItem struct {
	Type       string            `json:"type"`
	Properties map[string]string `json:"properties"`
}

// Metadata collects the machine-readable annotations of a page.
type Metadata struct {
	OpenGraph   map[string]string `json:"open_graph,omitempty"`
	TwitterCard map[string]string `json:"twitter_card,omitempty"`
	JSONLD      []map[string]any  `json:"json_ld,omitempty"`
	Microdata   []MicrodataItem   `json:"microdata,omitempty"`
}

func extractMetadata(gq *goquery.Document) Metadata {
	var md Metadata

	gq.Find(`meta[property]`).Each(func(_ int, s *goquery.Selection) {
		prop, _ := s.Attr("property")
		content, _ := s.Attr("content")
		if !strings.HasPrefix(prop, "og:") || content == "" {
			return
		}
		if md.OpenGraph == nil {
			md.OpenGraph = make(map[string]string)
		}
		if _, seen := md.OpenGraph[prop]; !seen {
			md.OpenGraph[prop] = content
		}
	})

	gq.Find(`meta[name]`).Each(func(_ int, s *goquery.Selection) {
		name, _ := s.Attr("name")
		content, _ := s.Attr("content")
		if !strings.HasPrefix(name, "twitter:") || content == "" {
			return
		}
		if md.TwitterCard == nil {
			md.TwitterCard = make(map[string]string)
		}
		if _, seen := md.TwitterCard[name]; !seen {
			md.TwitterCard[name] = content
		}
	})

	md.JSONLD = extractJSONLD(gq)

	gq.Find(`[itemscope]`).Each(func(_ int, s *goquery.Selection) {
		item := MicrodataItem{
			Properties: make(map[string]string),
		}
		item.Type, _ = s.Attr("itemtype")
		s.Find(`[itemprop]`).Each(func(_ int, p *goquery.Selection) {
			name, _ := p.Attr("itemprop")
			if name == "" {
				return
			}
			value := microdataValue(p)
			if value == "" {
				return
			}
			if _, seen := item.Properties[name]; !seen {
				item.Properties[name] = value
			}
		})
		if len(item.Properties) > 0 {
			md.Microdata = append(md.Microdata, item)
		}
	})

	return md
}

// extractJSONLD decodes every ld+json script, flattening top-level arrays and
// @graph containers into individual objects. Invalid blocks are skipped.
func extractJSONLD(gq *goquery.Document) []map[string]any {
	var out []map[string]any
	gq.Find(`script[type="application/ld+json"]`).Each(func(_ int, s *goquery.Selection) {
		var decoded any
		if err := json.Unmarshal([]byte(s.Text()), &decoded); err != nil {
			return
		}
		out = append(out, flattenJSONLD(decoded)...)
	})
	return out
}

func flattenJSONLD(v any) []map[string]any {
	switch t := v.(type) {
	case map[string]any:
		if graph, ok := t["@graph"].([]any); ok {
			var out []map[string]any
			for _, g := range graph {
				out = append(out, flattenJSONLD(g)...)
			}
			return out
		}
		return []map[string]any{t}
	case []any:
		var out []map[string]any
		for _, e := range t {
			out = append(out, flattenJSONLD(e)...)
		}
		return out
	default:
		return nil
	}
}

// microdataValue reads the property value the way schema.org defines it:
// content attribute first, then href/src for link-like tags, then text.
func microdataValue(s *goquery.Selection) string {
	if v, ok := s.Attr("content"); ok && v != "" {
		return v
	}
	if v, ok := s.Attr("href"); ok && v != "" {
		return v
	}
	if v, ok := s.Attr("src"); ok && v != "" {
		return v
	}
	if v, ok := s.Attr("datetime"); ok && v != "" {
		return v
	}
	return collapse(s.Text())
}
