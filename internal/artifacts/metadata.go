package artifacts

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/orbitdata/companycrawl/internal/scrape"
)

// InitialRunFolder names the first full pull; later runs use daily_YYYY-MM-DD.
const InitialRunFolder = "initial_pull"

// LoadPriorMetadata finds the most recent prior run's metadata for change
// detection: the initial full pull is preferred, else the latest daily run
// other than the current one. A company with no prior runs yields (nil, nil).
func (s *Sink) LoadPriorMetadata(companyID, currentRunFolder string) (*scrape.CompanyRunMetadata, error) {
	companyDir := filepath.Join(s.outputDir, companyID)

	if currentRunFolder != InitialRunFolder {
		meta, err := readMetadata(filepath.Join(companyDir, InitialRunFolder, "metadata.json"))
		if err == nil {
			return meta, nil
		}
		if !errors.Is(err, fs.ErrNotExist) {
			return nil, err
		}
	}

	entries, err := os.ReadDir(companyDir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("read company dir %s: %w", companyDir, err)
	}

	var dailies []string
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() && strings.HasPrefix(name, "daily_") && name != currentRunFolder {
			dailies = append(dailies, name)
		}
	}
	// daily_YYYY-MM-DD sorts chronologically as text.
	sort.Sort(sort.Reverse(sort.StringSlice(dailies)))

	for _, daily := range dailies {
		meta, err := readMetadata(filepath.Join(companyDir, daily, "metadata.json"))
		if err == nil {
			return meta, nil
		}
		if !errors.Is(err, fs.ErrNotExist) {
			return nil, err
		}
	}
	return nil, nil
}

func readMetadata(path string) (*scrape.CompanyRunMetadata, error) {
	payload, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var meta scrape.CompanyRunMetadata
	if err := json.Unmarshal(payload, &meta); err != nil {
		return nil, fmt.Errorf("decode metadata %s: %w", path, err)
	}
	return &meta, nil
}
