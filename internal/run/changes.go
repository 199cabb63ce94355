package run

import "github.com/orbitdata/companycrawl/internal/scrape"

// Changes compares the current run's page summaries against the prior run's
// metadata by content hash. A page counts as changed when it was found this
// run and either has no prior hash or a different one. With no prior run,
// every found page is changed.
func Changes(prior *scrape.CompanyRunMetadata, pages []scrape.PageSummary) scrape.ChangeSet {
	priorHashes := make(map[scrape.PageType]string)
	if prior != nil {
		for _, p := range prior.Pages {
			if p.Found && p.ContentHash != "" {
				priorHashes[p.PageType] = p.ContentHash
			}
		}
	}

	changes := make(scrape.ChangeSet, len(pages))
	for _, p := range pages {
		if !p.Found || p.ContentHash == "" {
			changes[p.PageType] = false
			continue
		}
		old, ok := priorHashes[p.PageType]
		changes[p.PageType] = !ok || old != p.ContentHash
	}
	return changes
}
