// Package cmd implements the projectscraper command line.
package cmd

import (
	"context"

	"github.com/spf13/cobra"
)

const defaultConfigPath = "config/config.yaml"

// globalFlags are shared by every subcommand.
type globalFlags struct {
	configPath string
	debug      bool
}

// NewRootCommand builds the command tree.
func NewRootCommand() *cobra.Command {
	flags := &globalFlags{}

	root := &cobra.Command{
		Use:   "projectscraper",
		Short: "Collect project listings from websites into a spreadsheet report",
		Long: `projectscraper fetches project details from a configured list of websites,
normalizes them, appends them to an Excel history workbook and emails the result.`,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmd.Help()
		},
	}

	root.PersistentFlags().StringVar(&flags.configPath, "config", defaultConfigPath, "path to the YAML config file")
	root.PersistentFlags().BoolVar(&flags.debug, "debug", false, "enable debug logging")

	root.AddCommand(
		newRunCommand(flags),
		newScheduleCommand(flags),
		newSitesCommand(flags),
	)
	return root
}

// Execute runs the command line with a background context.
func Execute() error {
	return NewRootCommand().ExecuteContext(context.Background())
}
