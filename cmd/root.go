// Package cmd defines and implements the CLI commands for the companycrawl
// executable.
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/orbitdata/companycrawl/pkg/config"
)

var cfgFile string

// newRootCmd creates and configures the root command.
func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "companycrawl",
		Short: "Company website snapshot engine for diligence pipelines.",
		Long: `companycrawl fetches a company's public website, categorizes its key
pages, extracts structured content, job postings and articles, and writes a
versioned artifact set with change detection against the prior run.`,
	}

	cobra.OnInitialize(func() {
		if cfgFile != "" {
			viper.SetConfigFile(cfgFile)
		}
		config.InitConfig()
	})

	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.companycrawl/config.yaml)")

	cmd.AddCommand(newScrapeCmd())

	return cmd
}

// Execute is the main entry point.
func Execute() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
