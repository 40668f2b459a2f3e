package main

import (
	"github.com/spf13/cobra"

	"github.com/paperfeed/paperfeed/internal/config"
	"github.com/paperfeed/paperfeed/internal/storage"
)

var historyLimit int

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show recent export runs",
	Args:  cobra.NoArgs,
	Run:   runHistory,
}

func init() {
	historyCmd.Flags().IntVar(&historyLimit, "limit", 10, "Show at most N runs")
	rootCmd.AddCommand(historyCmd)
}

func runHistory(cmd *cobra.Command, args []string) {
	cfg, err := config.Load()
	if err != nil {
		exitWithError(ExitConfigError, "loading config: %s", err)
	}

	if err := cfg.EnsureDataDir(); err != nil {
		exitWithError(ExitError, "%s", err)
	}
	history, err := storage.OpenHistory(cfg.HistoryPath())
	if err != nil {
		exitWithError(ExitError, "opening history: %s", err)
	}
	defer history.Close()

	runs, err := history.RecentExportRuns(historyLimit)
	if err != nil {
		exitWithError(ExitDataError, "reading export runs: %s", err)
	}

	if !humanOutput {
		outputJSON(runs)
		return
	}

	for _, r := range runs {
		outputHuman("%s  total=%d created=%d skipped=%d failed=%d\n",
			r.StartedAt.Format("2006-01-02 15:04"), r.Total, r.Created, r.Skipped, r.Failed)
	}
	outputHuman("%d run(s)\n", len(runs))
}
