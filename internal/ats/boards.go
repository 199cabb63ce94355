package ats

import (
	"github.com/PuerkitoBio/goquery"

	"github.com/orbitdata/companycrawl/internal/scrape"
)

// boardConfigs tune the DOM tier for the platforms whose public listings are
// only reachable through rendered markup.
var boardConfigs = map[Platform]*domConfig{
	PlatformBambooHR:        {candidateAttrs: []string{"data-job-id"}},
	PlatformICIMS:           {candidateAttrs: []string{"data-job-id"}},
	PlatformWorkday:         {candidateAttrs: []string{"data-automation-id"}},
	PlatformOracle:          nil,
	PlatformSmartRecruiters: {candidateAttrs: []string{"data-job-id"}},
	PlatformJobvite:         nil,
}

// boardChain serves the DOM-signature platforms: embedded JSON when a
// hydration payload happens to be present, else tuned DOM heuristics.
func boardChain(platform Platform, doc *goquery.Document, careersURL string) []scrape.JobPosting {
	if jobs := embeddedJobs(doc, careersURL); len(jobs) > 0 {
		return jobs
	}
	return domJobs(doc, careersURL, boardConfigs[platform])
}
