package ats

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"

	"github.com/orbitdata/companycrawl/internal/scrape"
)

var leverAPIBase = "https://api.lever.co/v0/postings"

type leverPosting struct {
	Text       string `json:"text"`
	Categories struct {
		Location string `json:"location"`
		Team     string `json:"team"`
	} `json:"categories"`
	HostedURL        string `json:"hostedUrl"`
	ApplyURL         string `json:"applyUrl"`
	ID               string `json:"id"`
	CreatedAt        int64  `json:"createdAt"`
	DescriptionPlain string `json:"descriptionPlain"`
}

func (e *Extractor) leverChain(ctx context.Context, doc *goquery.Document, careersURL string) []scrape.JobPosting {
	if site := leverSite(doc, careersURL); site != "" {
		jobs, err := e.leverAPI(ctx, site)
		if err != nil {
			e.logger.Debug("lever api failed", zap.String("site", site), zap.Error(err))
		} else if len(jobs) > 0 {
			return jobs
		}
	}
	if jobs := embeddedJobs(doc, careersURL); len(jobs) > 0 {
		return jobs
	}
	return domJobs(doc, careersURL, nil)
}

// leverSite derives the tenant name: the first path segment of a lever.co
// careers URL, or of the first lever.co link or iframe on the page.
func leverSite(doc *goquery.Document, careersURL string) string {
	if site := leverSiteFromURL(careersURL); site != "" {
		return site
	}
	var site string
	doc.Find("iframe[src], a[href]").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		ref, ok := s.Attr("src")
		if !ok {
			ref, _ = s.Attr("href")
		}
		if site = leverSiteFromURL(ref); site != "" {
			return false
		}
		return true
	})
	return site
}

func leverSiteFromURL(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil || !strings.Contains(strings.ToLower(u.Host), "lever.co") {
		return ""
	}
	parts := strings.Split(strings.Trim(u.Path, "/"), "/")
	if len(parts) > 0 && parts[0] != "" {
		return parts[0]
	}
	return ""
}

func (e *Extractor) leverAPI(ctx context.Context, site string) ([]scrape.JobPosting, error) {
	var postings []leverPosting
	apiURL := fmt.Sprintf("%s/%s?mode=json", leverAPIBase, site)
	if err := e.client.GetJSON(ctx, apiURL, &postings); err != nil {
		return nil, err
	}

	jobs := make([]scrape.JobPosting, 0, len(postings))
	for _, p := range postings {
		if p.Text == "" {
			continue
		}
		jobURL := p.HostedURL
		if jobURL == "" {
			jobURL = p.ApplyURL
		}
		jobs = append(jobs, scrape.JobPosting{
			Title:          p.Text,
			Location:       p.Categories.Location,
			Department:     p.Categories.Team,
			URL:            jobURL,
			ExternalID:     p.ID,
			DatePosted:     millisToDate(p.CreatedAt),
			Description:    p.DescriptionPlain,
			SourceStrategy: StrategyAPI,
		})
	}
	return jobs, nil
}
