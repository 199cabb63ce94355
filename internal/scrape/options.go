package scrape

// Options are the per-invocation knobs recognized by ScrapeCompany.
type Options struct {
	// ForceRender skips the plain-HTTP attempt and renders every page in the
	// headless browser.
	ForceRender bool
	// RespectRobots honors robots.txt disallow rules on the plain-HTTP path.
	RespectRobots bool
	// ScrapeBlogPosts enables news/blog article extraction.
	ScrapeBlogPosts bool
	// MaxBlogPosts caps extracted articles per run.
	MaxBlogPosts int
	// MaxPages caps pages captured per run, blog posts included.
	MaxPages int
}

// DefaultOptions mirror the orchestration defaults.
func DefaultOptions() Options {
	return Options{
		RespectRobots:   true,
		ScrapeBlogPosts: true,
		MaxBlogPosts:    20,
		MaxPages:        50,
	}
}
