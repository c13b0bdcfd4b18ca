// Package main provides the entry point for the spanplan CLI tool.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/spanplan/spanplan/cmd/spanplan/commands"
	"github.com/spanplan/spanplan/pkg/version"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "spanplan",
		Short: "Spanplan - minimum-cost chunk cover planner",
		Long: `Spanplan computes the cheapest way to reconstruct a byte range from
overlapping, variable-cost chunks.

Commands:
  plan      Solve a chunk cover request`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.AddCommand(commands.NewPlanCommand())
	rootCmd.AddCommand(versionCmd())

	err := rootCmd.Execute()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(_ *cobra.Command, _ []string) {
			fmt.Fprintf(os.Stdout, "spanplan %s (commit: %s, built: %s)\n", version.Version, version.Commit, version.Date)
		},
	}
}
