// Command docquery answers natural-language questions over a MongoDB database.
package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/kailas-cloud/docquery/internal/config"
	"github.com/kailas-cloud/docquery/internal/version"
)

func main() {
	// .env does not overwrite variables already set in the environment
	_ = godotenv.Load()

	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "docquery",
		Short: "Ask questions about a document database in plain language",
		Long: `docquery turns questions into read-only MongoDB commands.

Examples:
  docquery serve
  docquery ask "How many orders were placed in 2024?"
  docquery refresh`,
		Version:       version.String(),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().String("env", "", "config environment (default: $ENV or local)")

	root.AddCommand(
		newServeCmd(),
		newAskCmd(),
		newRefreshCmd(),
	)
	return root
}

// envFlag resolves --env, falling back to the ENV variable.
func envFlag(cmd *cobra.Command) string {
	if env, _ := cmd.Flags().GetString("env"); env != "" {
		return env
	}
	return config.GetEnv()
}
