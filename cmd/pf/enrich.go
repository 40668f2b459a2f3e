package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/paperfeed/paperfeed/internal/config"
	"github.com/paperfeed/paperfeed/internal/enrich"
	"github.com/paperfeed/paperfeed/internal/paper"
	"github.com/paperfeed/paperfeed/internal/storage"
)

var enrichLimit int

var enrichCmd = &cobra.Command{
	Use:   "enrich",
	Short: "Fill in missing metadata from CrossRef and OpenAlex",
	Long: `Looks up collected papers against CrossRef and OpenAlex and fills in
fields the feed did not provide (DOI, venue, volume, pages, PDF link).
Existing values are never overwritten.`,
	Args: cobra.NoArgs,
	Run:  runEnrich,
}

func init() {
	enrichCmd.Flags().IntVar(&enrichLimit, "limit", 0, "Enrich at most N papers (0 = all)")
	rootCmd.AddCommand(enrichCmd)
}

// EnrichResult summarizes one enrich run.
type EnrichResult struct {
	Candidates int `json:"candidates"`
	Enriched   int `json:"enriched"`
	Errors     int `json:"errors"`
}

// needsEnrichment reports whether a lookup could plausibly add anything.
func needsEnrichment(p paper.Paper) bool {
	return p.DOI == "" || p.PublicationTitle == "" || p.Volume == "" || p.PDFURL == ""
}

// gainedMetadata reports whether the lookup filled in anything new.
func gainedMetadata(before, after paper.Paper) bool {
	return after.DOI != before.DOI ||
		after.PublicationTitle != before.PublicationTitle ||
		after.Volume != before.Volume ||
		after.Pages != before.Pages ||
		after.PDFURL != before.PDFURL ||
		len(after.Authors) != len(before.Authors)
}

func runEnrich(cmd *cobra.Command, args []string) {
	cfg, err := config.Load()
	if err != nil {
		exitWithError(ExitConfigError, "loading config: %s", err)
	}

	papers, err := storage.ReadAll(cfg.PapersPath())
	if err != nil {
		exitWithError(ExitDataError, "reading papers: %s", err)
	}

	var crOpts []enrich.CrossRefOption
	if cfg.Mailto != "" {
		crOpts = append(crOpts, enrich.WithMailto(cfg.Mailto))
	}
	svc := enrich.NewService(enrich.NewCrossRef(crOpts...), enrich.NewOpenAlex())

	var result EnrichResult
	for i := range papers {
		if !needsEnrichment(papers[i]) {
			continue
		}
		if enrichLimit > 0 && result.Candidates >= enrichLimit {
			break
		}
		result.Candidates++

		enriched, err := svc.Enrich(cmd.Context(), papers[i])
		if err != nil {
			result.Errors++
			fmt.Fprintf(os.Stderr, "Warning: enriching %q: %v\n", truncateString(papers[i].Title, ListTitleMaxLen), err)
		}
		if gainedMetadata(papers[i], enriched) {
			result.Enriched++
		}
		papers[i] = enriched
	}

	if result.Enriched > 0 {
		if err := storage.WriteAll(cfg.PapersPath(), papers); err != nil {
			exitWithError(ExitError, "writing papers: %s", err)
		}
	}

	if humanOutput {
		outputHuman("Enriched %d of %d candidate(s), %d error(s)\n",
			result.Enriched, result.Candidates, result.Errors)
	} else {
		outputJSON(result)
	}
}
