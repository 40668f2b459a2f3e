package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/paperfeed/paperfeed/internal/config"
	"github.com/paperfeed/paperfeed/internal/filter"
	"github.com/paperfeed/paperfeed/internal/paper"
	"github.com/paperfeed/paperfeed/internal/source/rss"
	"github.com/paperfeed/paperfeed/internal/storage"
)

var fetchDryRun bool

var fetchCmd = &cobra.Command{
	Use:   "fetch",
	Short: "Fetch configured feeds and collect new papers",
	Long: `Fetches every configured RSS feed, applies the keyword filters, and
appends papers not seen before to the papers file. Fetch history is
tracked per source so items are collected only once.`,
	Args: cobra.NoArgs,
	Run:  runFetch,
}

func init() {
	fetchCmd.Flags().BoolVar(&fetchDryRun, "dry-run", false, "Report what would be collected without writing")
	rootCmd.AddCommand(fetchCmd)
}

// FetchResult summarizes one fetch run.
type FetchResult struct {
	Feeds      int      `json:"feeds"`
	Items      int      `json:"items"`
	New        int      `json:"new"`
	Duplicates int      `json:"duplicates"`
	Filtered   int      `json:"filtered"`
	FeedErrors []string `json:"feed_errors,omitempty"`
}

func runFetch(cmd *cobra.Command, args []string) {
	cfg, err := config.Load()
	if err != nil {
		exitWithError(ExitConfigError, "loading config: %s", err)
	}

	feeds, err := cfg.AllFeeds()
	if err != nil {
		exitWithError(ExitConfigError, "loading feeds: %s", err)
	}
	if len(feeds) == 0 {
		exitWithError(ExitConfigError, "no feeds configured\n\n%s", config.HelpfulConfigMessage())
	}

	if err := cfg.EnsureDataDir(); err != nil {
		exitWithError(ExitError, "%s", err)
	}

	flt, err := filter.New(cfg.Filters)
	if err != nil {
		exitWithError(ExitConfigError, "compiling filters: %s", err)
	}

	history, err := storage.OpenHistory(cfg.HistoryPath())
	if err != nil {
		exitWithError(ExitError, "opening history: %s", err)
	}
	defer history.Close()

	existing, err := storage.ReadAll(cfg.PapersPath())
	if err != nil {
		exitWithError(ExitDataError, "reading papers: %s", err)
	}

	result := collectFeeds(cmd, cfg, feeds, flt, history, existing)

	if humanOutput {
		outputHuman("Fetched %d feed(s): %d item(s), %d new, %d duplicate(s), %d filtered\n",
			result.Feeds, result.Items, result.New, result.Duplicates, result.Filtered)
		for _, fe := range result.FeedErrors {
			outputHuman("  feed error: %s\n", fe)
		}
	} else {
		outputJSON(result)
	}
}

func collectFeeds(cmd *cobra.Command, cfg *config.Config, feeds []rss.Feed, flt *filter.Filter, history *storage.HistoryDB, existing []paper.Paper) FetchResult {
	result := FetchResult{Feeds: len(feeds)}
	fetcher := rss.NewFetcher(rss.WithUserAgent("paperfeed/" + Version))
	now := time.Now().UTC()

	for _, feed := range feeds {
		papers, err := fetcher.Fetch(cmd.Context(), feed)
		if err != nil {
			result.FeedErrors = append(result.FeedErrors, err.Error())
			continue
		}

		for _, p := range papers {
			result.Items++

			seen, err := history.Seen(p.Source, p.SourceID)
			if err != nil {
				fmt.Fprintf(os.Stderr, "Warning: history lookup failed: %v\n", err)
			}
			if !seen && p.SourceID != "" {
				if _, found := storage.FindBySourceID(existing, p.Source, p.SourceID); found {
					seen = true
				}
			}
			if !seen && p.DOI != "" {
				if _, found := storage.FindByDOI(existing, p.DOI); found {
					seen = true
				}
			}
			if seen {
				result.Duplicates++
				continue
			}

			if _, keep := flt.Match(p); !keep {
				result.Filtered++
				// Mark filtered items seen so they are not re-evaluated
				// on every fetch.
				if !fetchDryRun {
					if err := history.MarkSeen(p.Source, p.SourceID, p.Title, now); err != nil {
						fmt.Fprintf(os.Stderr, "Warning: recording history: %v\n", err)
					}
				}
				continue
			}

			result.New++
			if fetchDryRun {
				continue
			}
			if err := storage.Append(cfg.PapersPath(), p); err != nil {
				exitWithError(ExitError, "writing papers: %s", err)
			}
			existing = append(existing, p)
			if err := history.MarkSeen(p.Source, p.SourceID, p.Title, now); err != nil {
				fmt.Fprintf(os.Stderr, "Warning: recording history: %v\n", err)
			}
		}
	}

	return result
}
