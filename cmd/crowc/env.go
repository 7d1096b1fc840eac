package main

import (
	"github.com/spf13/cobra"

	"omibyte.io/crow/builder"
)

var envCmd = &cobra.Command{
	Use:   "env",
	Short: "Print crow environment information",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		builder.Environment().Print(cmd.OutOrStdout())
	},
}
