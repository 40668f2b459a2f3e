package main

import (
	"github.com/spf13/cobra"

	"github.com/paperfeed/paperfeed/internal/config"
	"github.com/paperfeed/paperfeed/internal/storage"
)

var listLimit int

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List collected papers",
	Args:  cobra.NoArgs,
	Run:   runList,
}

func init() {
	listCmd.Flags().IntVar(&listLimit, "limit", 0, "Show only the most recent N papers (0 = all)")
	rootCmd.AddCommand(listCmd)
}

func runList(cmd *cobra.Command, args []string) {
	cfg, err := config.Load()
	if err != nil {
		exitWithError(ExitConfigError, "loading config: %s", err)
	}

	papers, err := storage.ReadAll(cfg.PapersPath())
	if err != nil {
		exitWithError(ExitDataError, "reading papers: %s", err)
	}

	if listLimit > 0 && len(papers) > listLimit {
		papers = papers[len(papers)-listLimit:]
	}

	if !humanOutput {
		outputJSON(papers)
		return
	}

	for _, p := range papers {
		line := truncateString(p.Title, ListTitleMaxLen)
		if authors := formatAuthorsShort(p.Authors, 3); authors != "" {
			line += " (" + authors + ")"
		}
		if !p.Published.IsZero() {
			line += " [" + p.Published.String() + "]"
		}
		outputHuman("%s\n", line)
	}
	outputHuman("%d paper(s)\n", len(papers))
}
