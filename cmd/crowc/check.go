package main

import (
	"github.com/spf13/cobra"
)

var (
	checkOpts = struct {
		inputOpts
		quiet bool
	}{}

	checkCmd = &cobra.Command{
		Use:   "check [units...]",
		Short: "Run coercion checks",
		Long: `Run the checks of every unit manifest, or check every Go struct against every
Go interface. The command fails when a check contradicts its expectation.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			report, err := checkOpts.build(cmd.Context(), args)
			if err != nil {
				return err
			}
			if !checkOpts.quiet {
				report.WriteDiagnostics(cmd.OutOrStdout())
			}
			return report.Err()
		},
	}
)

func init() {
	checkOpts.register(checkCmd)
	checkCmd.Flags().BoolVarP(&checkOpts.quiet, "quiet", "q", false, "only report failures through the exit status")
}
