// Package discovery expands a company's base URL into prioritized candidate
// URLs per page category. It performs no network I/O.
package discovery

import "github.com/orbitdata/companycrawl/internal/scrape"

// pathTemplates lists, in priority order, the conventional paths where each
// page category is usually found.
var pathTemplates = map[scrape.PageType][]string{
	scrape.PageHomepage:  {"/"},
	scrape.PageAbout:     {"/about", "/company", "/about-us", "/who-we-are", "/our-story"},
	scrape.PageProduct:   {"/product", "/products", "/platform", "/solutions", "/features"},
	scrape.PageCareers:   {"/careers", "/jobs", "/join-us", "/work-with-us"},
	scrape.PageBlog:      {"/blog", "/news", "/press", "/newsroom", "/insights", "/resources"},
	scrape.PageTeam:      {"/team", "/leadership", "/about/team", "/about/leadership", "/people", "/our-team"},
	scrape.PageInvestors: {"/investors", "/funding", "/about/investors", "/backed-by", "/backers"},
	scrape.PageCustomers: {"/customers", "/case-studies", "/success-stories", "/testimonials", "/customer-stories"},
	scrape.PagePress:     {"/press", "/newsroom", "/media", "/news-and-press", "/press-releases"},
	scrape.PagePricing:   {"/pricing", "/plans", "/price", "/buy", "/purchase"},
	scrape.PagePartners:  {"/partners", "/integrations", "/ecosystem", "/partner", "/integration"},
	scrape.PageContact:   {"/contact", "/contact-us", "/get-in-touch", "/reach-us"},
}

// linkRule classifies a homepage link by URL fragment or by anchor text.
type linkRule struct {
	hrefFragments []string
	textPhrases   []string
}

// linkRules drive homepage-link discovery. Fragments match anywhere in the
// lowercased href path; phrases match anywhere in the lowercased anchor text.
var linkRules = map[scrape.PageType]linkRule{
	scrape.PageAbout: {
		hrefFragments: []string{"/about", "/company", "/who-we-are", "/our-story"},
		textPhrases:   []string{"about", "company", "who we are", "our story"},
	},
	scrape.PageProduct: {
		hrefFragments: []string{"/product", "/platform", "/solution", "/feature"},
		textPhrases:   []string{"product", "platform", "solution", "features"},
	},
	scrape.PageCareers: {
		hrefFragments: []string{"/career", "/job", "/join", "/work-with"},
		textPhrases:   []string{"career", "jobs", "join us", "work with"},
	},
	scrape.PageBlog: {
		hrefFragments: []string{"/blog", "/insight", "/resource"},
		textPhrases:   []string{"blog", "insights", "resources"},
	},
	scrape.PageTeam: {
		hrefFragments: []string{"/team", "/leadership", "/people", "/our-team"},
		textPhrases:   []string{"team", "leadership", "people", "our team"},
	},
	scrape.PageInvestors: {
		hrefFragments: []string{"/investor", "/funding", "/backed-by", "/backer"},
		textPhrases:   []string{"investors", "funding", "backed by", "backers"},
	},
	scrape.PageCustomers: {
		hrefFragments: []string{"/customer", "/case-stud", "/success-stor", "/testimonial"},
		textPhrases:   []string{"customers", "case studies", "success stories", "testimonials"},
	},
	scrape.PagePress: {
		hrefFragments: []string{"/press", "/newsroom", "/media", "/news-and-press"},
		textPhrases:   []string{"press", "newsroom", "media", "news"},
	},
	scrape.PagePricing: {
		hrefFragments: []string{"/pricing", "/plans", "/price", "/buy"},
		textPhrases:   []string{"pricing", "plans", "price", "buy"},
	},
	scrape.PagePartners: {
		hrefFragments: []string{"/partner", "/integration", "/ecosystem"},
		textPhrases:   []string{"partners", "integrations", "ecosystem"},
	},
	scrape.PageContact: {
		hrefFragments: []string{"/contact", "/get-in-touch", "/reach-us"},
		textPhrases:   []string{"contact", "get in touch", "reach us"},
	},
}
