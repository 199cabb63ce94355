package ats

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"

	"github.com/orbitdata/companycrawl/internal/scrape"
)

var greenhouseAPIBase = "https://boards-api.greenhouse.io/v1/boards"

var (
	boardTokenRe    = regexp.MustCompile(`boardToken["']?\s*[:=]\s*["']([^"']+)["']`)
	greenhouseForRe = regexp.MustCompile(`for=([^&]+)`)
)

type greenhouseJob struct {
	Title       string `json:"title"`
	Location    struct {
		Name string `json:"name"`
	} `json:"location"`
	Departments []struct {
		Name string `json:"name"`
	} `json:"departments"`
	AbsoluteURL string      `json:"absolute_url"`
	ID          json.Number `json:"id"`
	UpdatedAt   string      `json:"updated_at"`
	Content     string      `json:"content"`
}

func (e *Extractor) greenhouseChain(ctx context.Context, doc *goquery.Document, careersURL string) []scrape.JobPosting {
	if token := greenhouseBoardToken(doc); token != "" {
		jobs, err := e.greenhouseAPI(ctx, token)
		if err != nil {
			e.logger.Debug("greenhouse api failed", zap.String("token", token), zap.Error(err))
		} else if len(jobs) > 0 {
			return jobs
		}
	}
	if jobs := embeddedJobs(doc, careersURL); len(jobs) > 0 {
		return jobs
	}
	return domJobs(doc, careersURL, nil)
}

// greenhouseBoardToken finds the tenant token in script variables or in an
// embedded board iframe's ?for= parameter.
func greenhouseBoardToken(doc *goquery.Document) string {
	var token string
	doc.Find("script").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		if m := boardTokenRe.FindStringSubmatch(s.Text()); m != nil {
			token = m[1]
			return false
		}
		return true
	})
	if token != "" {
		return token
	}
	doc.Find("iframe[src]").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		src, _ := s.Attr("src")
		if !containsFold(src, "greenhouse.io") {
			return true
		}
		if m := greenhouseForRe.FindStringSubmatch(src); m != nil {
			token = m[1]
			return false
		}
		return true
	})
	return token
}

func (e *Extractor) greenhouseAPI(ctx context.Context, token string) ([]scrape.JobPosting, error) {
	var payload struct {
		Jobs []greenhouseJob `json:"jobs"`
	}
	apiURL := fmt.Sprintf("%s/%s/jobs", greenhouseAPIBase, token)
	if err := e.client.GetJSON(ctx, apiURL, &payload); err != nil {
		return nil, err
	}

	jobs := make([]scrape.JobPosting, 0, len(payload.Jobs))
	for _, j := range payload.Jobs {
		if j.Title == "" {
			continue
		}
		posting := scrape.JobPosting{
			Title:          j.Title,
			Location:       j.Location.Name,
			URL:            j.AbsoluteURL,
			ExternalID:     j.ID.String(),
			DatePosted:     j.UpdatedAt,
			Description:    j.Content,
			SourceStrategy: StrategyAPI,
		}
		if len(j.Departments) > 0 {
			posting.Department = j.Departments[0].Name
		}
		jobs = append(jobs, posting)
	}
	return jobs, nil
}
