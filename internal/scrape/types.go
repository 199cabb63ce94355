// Package scrape defines the core value types shared across the snapshot engine.
package scrape

import "time"

// Version identifies the engine build recorded in every run's metadata.
const Version = "1.1.0"

// PageType is one of the twelve site categories the engine snapshots.
type PageType string

// Page categories, in the order they are discovered and reported.
const (
	PageHomepage  PageType = "homepage"
	PageAbout     PageType = "about"
	PageProduct   PageType = "product"
	PageCareers   PageType = "careers"
	PageBlog      PageType = "blog"
	PageTeam      PageType = "team"
	PageInvestors PageType = "investors"
	PageCustomers PageType = "customers"
	PagePress     PageType = "press"
	PagePricing   PageType = "pricing"
	PagePartners  PageType = "partners"
	PageContact   PageType = "contact"
)

// AllPageTypes lists every category in canonical order.
func AllPageTypes() []PageType {
	return []PageType{
		PageHomepage, PageAbout, PageProduct, PageCareers, PageBlog, PageTeam,
		PageInvestors, PageCustomers, PagePress, PagePricing, PagePartners, PageContact,
	}
}

// FetchStrategy records how a page's HTML was ultimately obtained.
type FetchStrategy string

// Fetch strategies.
const (
	StrategyHTTP    FetchStrategy = "http"
	StrategyBrowser FetchStrategy = "browser"
)

// Company identifies one scrape subject.
type Company struct {
	CompanyID   string `json:"company_id"`
	CompanyName string `json:"company_name"`
	Website     string `json:"website"`
}

// PageTarget is the prioritized URL plan for one category. It is created by
// discovery at run start and never mutated after dispatch; the URL that
// ultimately answered, and how, is recorded on the PageResult.
type PageTarget struct {
	PageType      PageType
	CandidateURLs []string
}

// PageResult is the outcome for one PageTarget. Exactly one exists per
// category per run, possibly with Found=false.
type PageResult struct {
	PageType      PageType      `json:"page_type"`
	URL           string        `json:"url,omitempty"`
	Found         bool          `json:"found"`
	StatusCode    int           `json:"status_code"`
	RawHTMLLength int           `json:"raw_html_length"`
	ExtractedText string        `json:"extracted_text,omitempty"`
	ContentHash   string        `json:"content_hash,omitempty"`
	FetchStrategy FetchStrategy `json:"fetch_strategy_used,omitempty"`
	FetchedAt     time.Time     `json:"fetched_at"`
	Error         string        `json:"error,omitempty"`
	Warning       string        `json:"extraction_warning,omitempty"`
}

// JobPosting is one opening extracted from a careers page.
type JobPosting struct {
	Title          string `json:"title"`
	Location       string `json:"location,omitempty"`
	Department     string `json:"department,omitempty"`
	URL            string `json:"url,omitempty"`
	ExternalID     string `json:"external_id,omitempty"`
	DatePosted     string `json:"date_posted,omitempty"`
	Description    string `json:"description,omitempty"`
	SourceStrategy string `json:"source_strategy"`
}

// Article is one news or blog entry.
type Article struct {
	Title         string   `json:"title"`
	URL           string   `json:"url"`
	Author        string   `json:"author,omitempty"`
	DatePublished string   `json:"date_published,omitempty"`
	Excerpt       string   `json:"excerpt,omitempty"`
	Content       string   `json:"content,omitempty"`
	Categories    []string `json:"categories,omitempty"`
	WordCount     int      `json:"word_count"`
	Source        string   `json:"source"`
}

// PageSummary is the per-page slice of metadata.json consumed by the next
// run's change detection and by downstream collaborators.
type PageSummary struct {
	PageType      PageType      `json:"page_type"`
	URL           string        `json:"url,omitempty"`
	Found         bool          `json:"found"`
	StatusCode    int           `json:"status_code"`
	ContentHash   string        `json:"content_hash,omitempty"`
	FetchStrategy FetchStrategy `json:"fetch_strategy_used,omitempty"`
	FetchedAt     time.Time     `json:"fetched_at"`
	Error         string        `json:"error,omitempty"`
}

// CompanyRunMetadata is written once at run end.
type CompanyRunMetadata struct {
	CompanyID      string        `json:"company_id"`
	CompanyName    string        `json:"company_name"`
	RunID          string        `json:"run_id"`
	RunFolder      string        `json:"run_folder"`
	ScraperVersion string        `json:"scraper_version"`
	GeneratedAt    time.Time     `json:"generated_at"`
	Pages          []PageSummary `json:"pages"`
}

// ChangeSet maps each page type to whether its content hash differs from the
// most recent prior run. Derived, never persisted.
type ChangeSet map[PageType]bool

// Changed returns the changed page types in canonical order.
func (c ChangeSet) Changed() []PageType {
	var out []PageType
	for _, pt := range AllPageTypes() {
		if c[pt] {
			out = append(out, pt)
		}
	}
	return out
}

// RunStatus classifies a whole company run.
type RunStatus string

// Run statuses. Partial means some categories failed while others succeeded;
// Error is reserved for setup failures that prevented the run entirely.
const (
	StatusSuccess RunStatus = "success"
	StatusPartial RunStatus = "partial"
	StatusError   RunStatus = "error"
)

// RunSummary is returned to the invoking orchestration.
type RunSummary struct {
	Status       RunStatus  `json:"status"`
	PagesScraped int        `json:"pages_scraped"`
	PagesTotal   int        `json:"pages_total"`
	ChangedPages []PageType `json:"changed_pages"`
	Error        string     `json:"error,omitempty"`
}
