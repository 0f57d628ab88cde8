package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/flowforge/flowforge/runtime/logger"
)

var rootCmd = &cobra.Command{
	Use:   "flowforge",
	Short: "flowforge compiles annotation-driven pipeline templates into deployable step modules",
	Long: `flowforge reads a pipeline template (appName, basePackage, transport, steps,
aspects, optional orchestrator) and compiles it through Discovery, Semantic
Analysis, Target Resolution, Binding Construction, Rendering and Order
Emission into role-specific generated source roots plus the ordered-step
and orchestrator-client resources the runtime loads at startup.`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		if cmd.Flags().Changed("verbose") {
			verbose, err := cmd.Flags().GetBool("verbose")
			if err != nil {
				fmt.Fprintf(os.Stderr, "Error getting verbose flag: %v\n", err)
				return
			}
			logger.SetVerbose(verbose)
		}
	},
}

func init() {
	rootCmd.PersistentFlags().Bool("verbose", false, "enable debug-level logging")
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func main() {
	Execute()
}
