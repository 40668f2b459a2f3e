package main

import (
	"github.com/spf13/cobra"

	"github.com/paperfeed/paperfeed/internal/config"
	"github.com/paperfeed/paperfeed/internal/filter"
	"github.com/paperfeed/paperfeed/internal/storage"
)

var (
	filterDryRun     bool
	filterMinDate    string
	filterRequirePDF bool
	filterAuthors    []string
)

var filterCmd = &cobra.Command{
	Use:   "filter",
	Short: "Re-filter collected papers",
	Long: `Applies the configured filter rules to the papers already collected,
dropping papers that no longer pass. Flags tighten the configured rules
for this run. Useful after changing the rules, since fetch only filters
items as they arrive.`,
	Args: cobra.NoArgs,
	Run:  runFilter,
}

func init() {
	filterCmd.Flags().BoolVar(&filterDryRun, "dry-run", false, "Report what would be dropped without writing")
	filterCmd.Flags().StringVar(&filterMinDate, "min-date", "", "Drop papers published before this date (YYYY[-MM[-DD]])")
	filterCmd.Flags().BoolVar(&filterRequirePDF, "require-pdf", false, "Drop papers without a PDF link")
	filterCmd.Flags().StringArrayVar(&filterAuthors, "author", nil, "Keep only papers by any of these authors")
	rootCmd.AddCommand(filterCmd)
}

func runFilter(cmd *cobra.Command, args []string) {
	cfg, err := config.Load()
	if err != nil {
		exitWithError(ExitConfigError, "loading config: %s", err)
	}

	rules := cfg.Filters
	if filterMinDate != "" {
		rules.MinDate = filterMinDate
	}
	if filterRequirePDF {
		rules.RequirePDF = true
	}
	rules.Authors = append(rules.Authors, filterAuthors...)

	flt, err := filter.New(rules)
	if err != nil {
		exitWithError(ExitConfigError, "compiling filters: %s", err)
	}

	papers, err := storage.ReadAll(cfg.PapersPath())
	if err != nil {
		exitWithError(ExitDataError, "reading papers: %s", err)
	}

	kept, stats := flt.ApplyStats(papers)

	if !filterDryRun && stats.Kept < stats.Input {
		if err := storage.WriteAll(cfg.PapersPath(), kept); err != nil {
			exitWithError(ExitError, "writing papers: %s", err)
		}
	}

	if humanOutput {
		outputHuman("Kept %d of %d paper(s): %d excluded, %d without keyword, %d without author, %d without PDF, %d too old\n",
			stats.Kept, stats.Input, stats.Excluded, stats.NoKeyword, stats.NoAuthor, stats.NoPDF, stats.TooOld)
	} else {
		outputJSON(stats)
	}
}
