// cmd/run.go
package cmd

import (
	"github.com/spf13/cobra"
)

func newRunCommand(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Run the scrape pipeline once and exit",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := newApp(cmd.Context(), flags)
			if err != nil {
				return err
			}
			defer a.Close()

			_, err = a.runs.Run(cmd.Context())
			return err
		},
	}
}
