// Package artifacts writes and reads the per-run output file set consumed by
// downstream collaborators.
package artifacts

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/orbitdata/companycrawl/internal/normalize"
	"github.com/orbitdata/companycrawl/internal/scrape"
)

// Sink writes run artifacts under outputDir/{company_id}/{run_folder}/.
type Sink struct {
	outputDir string
	logger    *zap.Logger
}

// NewSink returns a sink rooted at outputDir.
func NewSink(outputDir string, logger *zap.Logger) (*Sink, error) {
	if err := os.MkdirAll(outputDir, 0o750); err != nil {
		return nil, fmt.Errorf("create output dir %s: %w", outputDir, err)
	}
	return &Sink{outputDir: outputDir, logger: logger}, nil
}

// RunDir is the artifact directory for one company run.
func (s *Sink) RunDir(companyID, runFolder string) string {
	return filepath.Join(s.outputDir, companyID, runFolder)
}

// pageArtifact is the {page_type}_complete.json payload: the PageResult with
// the full structured breakdown attached.
type pageArtifact struct {
	scrape.PageResult
	StructuredData normalize.Document `json:"structured_data"`
}

// WritePage persists one category's artifacts: the complete JSON record, and
// for found pages the clean text plus a raw HTML snapshot.
func (s *Sink) WritePage(companyID, runFolder string, result scrape.PageResult, doc normalize.Document, rawHTML []byte) error {
	dir := s.RunDir(companyID, runFolder)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return fmt.Errorf("create run dir %s: %w", dir, err)
	}

	name := string(result.PageType)
	if err := writeJSON(filepath.Join(dir, name+"_complete.json"), pageArtifact{
		PageResult:     result,
		StructuredData: doc,
	}); err != nil {
		return err
	}

	if !result.Found {
		return nil
	}
	if result.ExtractedText != "" {
		cleanPath := filepath.Join(dir, name+"_clean.txt")
		if err := os.WriteFile(cleanPath, []byte(result.ExtractedText), 0o600); err != nil {
			return fmt.Errorf("write clean text %s: %w", cleanPath, err)
		}
	}
	if len(rawHTML) > 0 {
		htmlPath := filepath.Join(dir, name+".html")
		if err := os.WriteFile(htmlPath, rawHTML, 0o600); err != nil {
			return fmt.Errorf("write html snapshot %s: %w", htmlPath, err)
		}
	}
	return nil
}

// WriteJobs persists {page_type}_jobs.json.
func (s *Sink) WriteJobs(companyID, runFolder string, pageType scrape.PageType, jobs []scrape.JobPosting) error {
	dir := s.RunDir(companyID, runFolder)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return fmt.Errorf("create run dir %s: %w", dir, err)
	}
	if jobs == nil {
		jobs = []scrape.JobPosting{}
	}
	return writeJSON(filepath.Join(dir, string(pageType)+"_jobs.json"), jobs)
}

// WriteArticles persists {page_type}_articles.json.
func (s *Sink) WriteArticles(companyID, runFolder string, pageType scrape.PageType, articles []scrape.Article) error {
	dir := s.RunDir(companyID, runFolder)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return fmt.Errorf("create run dir %s: %w", dir, err)
	}
	if articles == nil {
		articles = []scrape.Article{}
	}
	return writeJSON(filepath.Join(dir, string(pageType)+"_articles.json"), articles)
}

// WriteMetadata persists metadata.json, written once at run end.
func (s *Sink) WriteMetadata(companyID, runFolder string, meta scrape.CompanyRunMetadata) error {
	dir := s.RunDir(companyID, runFolder)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return fmt.Errorf("create run dir %s: %w", dir, err)
	}
	return writeJSON(filepath.Join(dir, "metadata.json"), meta)
}

func writeJSON(path string, v any) error {
	payload, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal %s: %w", path, err)
	}
	if err := os.WriteFile(path, payload, 0o600); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}
