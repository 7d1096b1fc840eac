package main

import (
	"github.com/spf13/cobra"
)

var (
	vtablesOpts inputOpts

	vtablesCmd = &cobra.Command{
		Use:   "vtables [units...]",
		Short: "Print the vtables of satisfied checks",
		RunE: func(cmd *cobra.Command, args []string) error {
			report, err := vtablesOpts.build(cmd.Context(), args)
			if err != nil {
				return err
			}
			report.WriteVTables(cmd.OutOrStdout())
			return nil
		},
	}

	typesOpts inputOpts

	typesCmd = &cobra.Command{
		Use:   "types [units...]",
		Short: "Print the named types and method slots of each unit",
		RunE: func(cmd *cobra.Command, args []string) error {
			report, err := typesOpts.build(cmd.Context(), args)
			if err != nil {
				return err
			}
			report.WriteTypes(cmd.OutOrStdout())
			return nil
		},
	}
)

func init() {
	vtablesOpts.register(vtablesCmd)
	typesOpts.register(typesCmd)
}
