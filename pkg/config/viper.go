// Package config initializes the application's configuration. It uses Viper
// to read settings from a config file and environment variables, providing a
// unified configuration system.
package config

import (
	"strings"

	"github.com/spf13/viper"
	"go.uber.org/zap"
)

// DefaultUserAgent identifies the scraper to target sites.
const DefaultUserAgent = "CompanyCrawl/1.0 (+https://github.com/orbitdata/companycrawl)"

// InitConfig sets defaults, search paths and environment bindings. Call once
// at startup, before any command reads configuration.
func InitConfig() {
	viper.SetConfigName("config")
	viper.AddConfigPath(".")
	viper.AddConfigPath("/etc/companycrawl/")
	viper.AddConfigPath("$HOME/.companycrawl")

	viper.SetDefault("scraper.user_agent", DefaultUserAgent)
	viper.SetDefault("scraper.respect_robots", true)
	viper.SetDefault("scraper.concurrency", 6)
	viper.SetDefault("scraper.max_pages", 50)
	viper.SetDefault("scraper.max_blog_posts", 20)
	viper.SetDefault("scraper.scrape_blog_posts", true)
	viper.SetDefault("scraper.output_dir", "data/companies")
	viper.SetDefault("scraper.domain_interval", "1s")
	viper.SetDefault("scraper.max_retries", 3)

	viper.SetDefault("http.request_timeout", "10s")
	viper.SetDefault("http.concurrency", 4)

	viper.SetDefault("render.enabled", true)
	viper.SetDefault("render.max_concurrency", 2)
	viper.SetDefault("render.default_timeout", "15s")
	viper.SetDefault("render.careers_timeout", "60s")
	viper.SetDefault("render.article_timeout", "40s")

	viper.SetDefault("detector.min_html_bytes", 500)

	viper.SetDefault("logging.development", false)

	// e.g. COMPANYCRAWL_SCRAPER_OUTPUT_DIR=/srv/companies
	viper.SetEnvPrefix("COMPANYCRAWL")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			zap.L().Debug("no config file found; using defaults and environment variables")
		} else {
			zap.L().Error("error reading config file", zap.Error(err))
		}
	} else {
		zap.L().Info("using config file", zap.String("path", viper.ConfigFileUsed()))
	}
}
