// Package main provides the pf CLI entry point.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// Version is set at build time via ldflags
var Version = "dev"

// humanOutput controls whether to use human-readable output
var humanOutput bool

func main() {
	if err := rootCmd.Execute(); err != nil {
		// Print the error since we have SilenceErrors: true
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(ExitError)
	}
}

var rootCmd = &cobra.Command{
	Use:   "pf",
	Short: "Paper feed collection and export CLI",
	Long: `pf collects paper announcements from journal and preprint RSS feeds,
filters and enriches them, and exports them to a Zotero library or a
BibTeX file without creating duplicates.

Core features:
  - Feed collection with per-source fetch history (no refetching)
  - Keyword filtering and metadata enrichment (CrossRef, OpenAlex)
  - Duplicate-aware Zotero export with tiered identity matching
  - BibTeX export with DOI-based dedup against the existing .bib

Data is stored in git-versionable JSONL with SQLite for fetch history.
All commands output JSON by default for scripting.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&humanOutput, "human", false, "Use human-readable output instead of JSON")
	rootCmd.Version = Version
}
