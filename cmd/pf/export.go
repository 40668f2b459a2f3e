package main

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/paperfeed/paperfeed/internal/config"
	"github.com/paperfeed/paperfeed/internal/export"
	"github.com/paperfeed/paperfeed/internal/paper"
	"github.com/paperfeed/paperfeed/internal/storage"
	"github.com/paperfeed/paperfeed/internal/zotero"
)

var (
	exportCollection string
	exportLimit      int
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export collected papers",
}

var exportZoteroCmd = &cobra.Command{
	Use:   "zotero",
	Short: "Export collected papers to the Zotero library",
	Long: `Exports collected papers to the configured Zotero library. Existing
library items are matched by DOI, then by normalized title plus
publication date, then by URL; matched papers are skipped rather than
duplicated. Each run is recorded in the history database.`,
	Args: cobra.NoArgs,
	Run:  runExportZotero,
}

var exportJSONCmd = &cobra.Command{
	Use:   "json",
	Short: "Write collected papers to stdout as a JSON array",
	Long: `Writes the collected papers to stdout as a JSON array, for piping into
other tools. Unlike the other export targets this performs no
deduplication; it is a plain dump of the papers file.`,
	Args: cobra.NoArgs,
	Run:  runExportJSON,
}

var exportBibtexCmd = &cobra.Command{
	Use:   "bibtex",
	Short: "Append collected papers to the BibTeX file",
	Long: `Appends collected papers to the BibTeX file, skipping entries whose
citation key or DOI is already present.`,
	Args: cobra.NoArgs,
	Run:  runExportBibtex,
}

func init() {
	exportZoteroCmd.Flags().StringVar(&exportCollection, "collection", "", "Target collection name or key (default from config)")
	exportZoteroCmd.Flags().IntVar(&exportLimit, "limit", 0, "Export at most N papers (0 = all)")
	exportCmd.AddCommand(exportZoteroCmd)
	exportCmd.AddCommand(exportBibtexCmd)
	exportCmd.AddCommand(exportJSONCmd)
	rootCmd.AddCommand(exportCmd)
}

func loadExportPapers(cfg *config.Config) []paper.Paper {
	papers, err := storage.ReadAll(cfg.PapersPath())
	if err != nil {
		exitWithError(ExitDataError, "reading papers: %s", err)
	}
	if exportLimit > 0 && len(papers) > exportLimit {
		papers = papers[:exportLimit]
	}
	return papers
}

func runExportZotero(cmd *cobra.Command, args []string) {
	cfg, err := config.Load()
	if err != nil {
		exitWithError(ExitConfigError, "loading config: %s", err)
	}
	zcfg, err := cfg.ValidateZotero()
	if err != nil {
		exitWithError(ExitConfigError, "%s\n\n%s", err, config.HelpfulConfigMessage())
	}

	papers := loadExportPapers(cfg)

	opts := []zotero.ClientOption{zotero.WithAPIKey(zcfg.APIKey)}
	if zcfg.LibraryType == "group" {
		opts = append(opts, zotero.WithGroupLibrary())
	}
	client := zotero.NewClient(zcfg.LibraryID, opts...)

	exporter, err := export.NewZoteroExporter(nil, client)
	if err != nil {
		exitWithError(ExitError, "%s", err)
	}

	collection := exportCollection
	if collection == "" {
		collection = zcfg.Collection
	}

	start := time.Now().UTC()
	result := exporter.Export(cmd.Context(), papers, collection)

	if history, err := storage.OpenHistory(cfg.HistoryPath()); err == nil {
		if err := history.RecordExportRun(start, result.Total, result.SuccessCount, result.SkippedCount, len(result.Failures)); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: recording export run: %v\n", err)
		}
		history.Close()
	} else {
		fmt.Fprintf(os.Stderr, "Warning: opening history: %v\n", err)
	}

	if humanOutput {
		outputHuman("Exported %d of %d paper(s), %d skipped, %d failed\n",
			result.SuccessCount, result.Total, result.SkippedCount, len(result.Failures))
		for kind, n := range result.SkippedByKey {
			if n > 0 {
				outputHuman("  skipped by %s: %d\n", kind, n)
			}
		}
		for _, f := range result.Failures {
			outputHuman("  failed: %s: %s\n", truncateString(f.Title, ListTitleMaxLen), f.Error)
		}
	} else {
		outputJSON(result)
	}

	if len(result.Failures) > 0 {
		os.Exit(ExitDataError)
	}
}

func runExportJSON(cmd *cobra.Command, args []string) {
	cfg, err := config.Load()
	if err != nil {
		exitWithError(ExitConfigError, "loading config: %s", err)
	}

	papers := loadExportPapers(cfg)
	if papers == nil {
		papers = []paper.Paper{}
	}
	outputJSON(papers)
}

// BibtexResult summarizes one BibTeX export run.
type BibtexResult struct {
	Total    int    `json:"total"`
	Appended int    `json:"appended"`
	Skipped  int    `json:"skipped"`
	Path     string `json:"path"`
}

func runExportBibtex(cmd *cobra.Command, args []string) {
	cfg, err := config.Load()
	if err != nil {
		exitWithError(ExitConfigError, "loading config: %s", err)
	}

	papers := loadExportPapers(cfg)

	idx, err := export.ParseBibTeXFile(cfg.BibPath())
	if err != nil {
		exitWithError(ExitDataError, "parsing %s: %s", cfg.BibPath(), err)
	}

	result := BibtexResult{Total: len(papers), Path: cfg.BibPath()}
	var entries []string
	for _, p := range papers {
		if idx.HasPaper(p) {
			result.Skipped++
			continue
		}
		entries = append(entries, export.ToBibTeX(p))
		result.Appended++
	}

	if len(entries) > 0 {
		if err := cfg.EnsureDataDir(); err != nil {
			exitWithError(ExitError, "%s", err)
		}
		if err := export.AppendToBibFile(cfg.BibPath(), strings.Join(entries, "\n")); err != nil {
			exitWithError(ExitError, "appending to %s: %s", cfg.BibPath(), err)
		}
	}

	if humanOutput {
		outputHuman("Appended %d of %d paper(s) to %s (%d already present)\n",
			result.Appended, result.Total, result.Path, result.Skipped)
	} else {
		outputJSON(result)
	}
}
