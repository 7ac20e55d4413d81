// cmd/sites.go
package cmd

import (
	"errors"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/gewnthar/projectscraper/scraper"
)

// ErrInvalidSites is returned by "sites validate" when any entry is unusable.
var ErrInvalidSites = errors.New("site registry has invalid entries")

func newSitesCommand(flags *globalFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sites",
		Short: "Inspect the site registry",
	}
	cmd.AddCommand(newSitesValidateCommand(flags))
	return cmd
}

func newSitesValidateCommand(flags *globalFlags) *cobra.Command {
	var file string

	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Load the site registry and show the strategy each site would use",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if file == "" {
				cfg, err := loadConfig(flags)
				if err != nil {
					return err
				}
				file = cfg.Scraper.SitesFile
			}

			sites, err := scraper.LoadSites(file)
			if err != nil {
				return err
			}
			if len(sites) == 0 {
				return fmt.Errorf("%s: no sites configured", file)
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "#\tNAME\tURL\tSTRATEGY\tSTATUS")
			invalid := 0
			for i, s := range sites {
				status := "ok"
				strategy := string(scraper.ClassifyURL(s.URL))
				if err := scraper.ValidateSiteURL(s.URL); err != nil {
					status = err.Error()
					strategy = "-"
					invalid++
				}
				fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\n", i+1, s.Label(), s.URL, strategy, status)
			}
			if err := w.Flush(); err != nil {
				return err
			}

			if invalid > 0 {
				return fmt.Errorf("%w: %d of %d", ErrInvalidSites, invalid, len(sites))
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%d sites OK\n", len(sites))
			return nil
		},
	}

	cmd.Flags().StringVarP(&file, "file", "f", "", "registry file to validate (default: scraper.sites_file from config)")
	return cmd
}
