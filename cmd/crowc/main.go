package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "crowc",
	Short: "Check structural interface satisfaction",
	Long: `Crow checks whether concrete types structurally satisfy interfaces and
prints the vtables used to dispatch through them.

Inputs are unit manifests given as arguments, Go packages given with --go and
Go package directories given with --dir.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.AddCommand(checkCmd, vtablesCmd, typesCmd, envCmd)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "crowc:", err)
		stop()
		os.Exit(1)
	}
}
