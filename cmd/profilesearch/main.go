// Package main provides the profilesearch entry point.
package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/kailas-cloud/profilesearch/internal/version"
)

// Exit codes.
const (
	ExitSuccess = 0
	ExitError   = 1
	ExitConfig  = 2
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		var ce configError
		if asConfigError(err, &ce) {
			os.Exit(ExitConfig)
		}
		os.Exit(ExitError)
	}
}

var rootCmd = &cobra.Command{
	Use:   "profilesearch",
	Short: "Semantic search over educator profiles",
	Long: `profilesearch embeds a CSV corpus of educator profiles and answers
natural-language queries with the k most similar profiles.

Configuration is read from config/<ENV>.yaml (ENV defaults to "local").
A .env file in the working directory is loaded first when present.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(*cobra.Command, []string) {
		// Missing .env is fine: variables may come from the environment.
		_ = godotenv.Load()
	},
}

func init() {
	rootCmd.Version = version.Version
}
