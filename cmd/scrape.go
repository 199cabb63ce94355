package cmd

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/orbitdata/companycrawl/internal/artifacts"
	"github.com/orbitdata/companycrawl/internal/ats"
	systemclock "github.com/orbitdata/companycrawl/internal/clock/system"
	"github.com/orbitdata/companycrawl/internal/fetch"
	"github.com/orbitdata/companycrawl/internal/logging"
	"github.com/orbitdata/companycrawl/internal/news"
	"github.com/orbitdata/companycrawl/internal/ratelimit"
	"github.com/orbitdata/companycrawl/internal/run"
	"github.com/orbitdata/companycrawl/internal/scrape"
)

var (
	flagCompanyID   string
	flagCompanyName string
	flagRunFolder   string
	flagForceRender bool
)

// newScrapeCmd creates the 'scrape' subcommand: one full snapshot of one
// company website.
func newScrapeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "scrape <website-url>",
		Short: "Scrape one company website into a run artifact set",
		Long: `Runs a full snapshot of the given company website: page discovery,
escalating fetch, content extraction, job and article extraction, and
change detection against the most recent prior run.`,
		Args: cobra.ExactArgs(1),
		RunE: runScrapeCommand,
	}

	cmd.Flags().StringVar(&flagCompanyID, "company-id", "", "stable company identifier (default: derived from the domain)")
	cmd.Flags().StringVar(&flagCompanyName, "company-name", "", "display name recorded in run metadata")
	cmd.Flags().StringVar(&flagRunFolder, "run-folder", "", "run folder name (default: initial_pull, then daily_YYYY-MM-DD)")
	cmd.Flags().BoolVar(&flagForceRender, "force-render", false, "always use the headless browser")

	return cmd
}

func runScrapeCommand(cmd *cobra.Command, args []string) error {
	logger, err := logging.New(viper.GetBool("logging.development"))
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()
	zap.ReplaceGlobals(logger)

	website := args[0]
	if !strings.Contains(website, "://") {
		website = "https://" + website
	}
	companyID := flagCompanyID
	if companyID == "" {
		companyID, err = deriveCompanyID(website)
		if err != nil {
			return err
		}
	}
	company := scrape.Company{
		CompanyID:   companyID,
		CompanyName: flagCompanyName,
		Website:     website,
	}

	userAgent := viper.GetString("scraper.user_agent")
	requestTimeout := viper.GetDuration("http.request_timeout")
	limiter := ratelimit.New(viper.GetDuration("scraper.domain_interval"))

	plain, err := fetch.NewHTTPFetcher(userAgent, requestTimeout, viper.GetInt("http.concurrency"), logger)
	if err != nil {
		return fmt.Errorf("init http fetcher: %w", err)
	}
	renderer := buildRenderer(userAgent, logger)
	defer func() {
		if cerr := renderer.Close(cmd.Context()); cerr != nil {
			logger.Warn("close renderer", zap.Error(cerr))
		}
	}()

	engine := fetch.NewEngine(
		plain,
		renderer,
		fetch.NewDetector(viper.GetInt("detector.min_html_bytes"), nil),
		limiter,
		fetch.NewRetryPolicy(viper.GetInt("scraper.max_retries")),
		fetch.NewRobotsPolicy(viper.GetBool("scraper.respect_robots"), userAgent, logger),
		logger,
	)

	sink, err := artifacts.NewSink(viper.GetString("scraper.output_dir"), logger)
	if err != nil {
		return fmt.Errorf("init artifact sink: %w", err)
	}

	clk := systemclock.New()
	runFolder := flagRunFolder
	if runFolder == "" {
		runFolder = chooseRunFolder(sink, companyID, clk.Now().Format("2006-01-02"))
	}

	coordinator := run.NewCoordinator(
		engine,
		ats.NewExtractor(ats.NewClient(userAgent, requestTimeout, limiter), logger),
		news.NewExtractor(userAgent, requestTimeout, limiter, logger),
		sink,
		clk,
		viper.GetInt("scraper.concurrency"),
		run.RenderBudgets{
			Default: viper.GetDuration("render.default_timeout"),
			Careers: viper.GetDuration("render.careers_timeout"),
			Article: viper.GetDuration("render.article_timeout"),
		},
		logging.ForCompany(logger, companyID, runFolder),
	)

	opts := scrape.Options{
		ForceRender:     flagForceRender,
		RespectRobots:   viper.GetBool("scraper.respect_robots"),
		ScrapeBlogPosts: viper.GetBool("scraper.scrape_blog_posts"),
		MaxBlogPosts:    viper.GetInt("scraper.max_blog_posts"),
		MaxPages:        viper.GetInt("scraper.max_pages"),
	}

	summary := coordinator.ScrapeCompany(cmd.Context(), company, runFolder, opts)

	payload, err := json.MarshalIndent(summary, "", "  ")
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), string(payload))

	if summary.Status == scrape.StatusError {
		return fmt.Errorf("run failed: %s", summary.Error)
	}
	return nil
}

// buildRenderer starts the headless browser pool, falling back to a stub
// renderer that fails escalations when Chrome is unavailable or disabled.
func buildRenderer(userAgent string, logger *zap.Logger) fetch.Renderer {
	if !viper.GetBool("render.enabled") {
		return fetch.NewNoopRenderer()
	}
	renderer, err := fetch.NewChromedpRenderer(userAgent, viper.GetInt("render.max_concurrency"), logger)
	if err != nil {
		logger.Warn("headless browser unavailable; js-gated pages will fail", zap.Error(err))
		return fetch.NewNoopRenderer()
	}
	return renderer
}

// deriveCompanyID turns a website URL into a filesystem-safe identifier,
// e.g. https://www.acme-corp.io -> acme-corp-io.
func deriveCompanyID(website string) (string, error) {
	u, err := url.Parse(website)
	if err != nil || u.Host == "" {
		return "", errors.New("cannot derive company id: invalid website url")
	}
	host := strings.ToLower(u.Hostname())
	host = strings.TrimPrefix(host, "www.")
	return strings.ReplaceAll(host, ".", "-"), nil
}

// chooseRunFolder picks initial_pull for a company's first run and
// daily_YYYY-MM-DD afterwards.
func chooseRunFolder(sink *artifacts.Sink, companyID, today string) string {
	if _, err := os.Stat(sink.RunDir(companyID, artifacts.InitialRunFolder)); err != nil {
		return artifacts.InitialRunFolder
	}
	return "daily_" + today
}
