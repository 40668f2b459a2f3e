package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/paperfeed/paperfeed/internal/config"
	"github.com/paperfeed/paperfeed/internal/importer"
	"github.com/paperfeed/paperfeed/internal/storage"
)

var importCmd = &cobra.Command{
	Use:   "import",
	Short: "Import papers from reference-manager exports",
}

var importPaperpileCmd = &cobra.Command{
	Use:   "paperpile <export.json>",
	Short: "Import papers from a Paperpile JSON export",
	Long: `Imports papers from a Paperpile JSON export file. Entries already in
the papers file (matched by DOI or Paperpile ID) are skipped.`,
	Args: cobra.ExactArgs(1),
	Run:  runImportPaperpile,
}

func init() {
	importCmd.AddCommand(importPaperpileCmd)
	rootCmd.AddCommand(importCmd)
}

// ImportResult summarizes one import run.
type ImportResult struct {
	Entries    int `json:"entries"`
	Imported   int `json:"imported"`
	Duplicates int `json:"duplicates"`
	Errors     int `json:"errors"`
}

func runImportPaperpile(cmd *cobra.Command, args []string) {
	cfg, err := config.Load()
	if err != nil {
		exitWithError(ExitConfigError, "loading config: %s", err)
	}

	data, err := os.ReadFile(args[0])
	if err != nil {
		exitWithError(ExitError, "%s", err)
	}

	papers, errs := importer.ParsePaperpile(data)
	if len(papers) == 0 && len(errs) > 0 {
		exitWithError(ExitDataError, "%s", errs[0])
	}
	for _, perr := range errs {
		fmt.Fprintf(os.Stderr, "Warning: %v\n", perr)
	}

	if err := cfg.EnsureDataDir(); err != nil {
		exitWithError(ExitError, "%s", err)
	}
	existing, err := storage.ReadAll(cfg.PapersPath())
	if err != nil {
		exitWithError(ExitDataError, "reading papers: %s", err)
	}

	result := ImportResult{Entries: len(papers) + len(errs), Errors: len(errs)}
	for _, p := range papers {
		dup := false
		if p.DOI != "" {
			_, dup = storage.FindByDOI(existing, p.DOI)
		}
		if !dup && p.SourceID != "" {
			_, dup = storage.FindBySourceID(existing, p.Source, p.SourceID)
		}
		if dup {
			result.Duplicates++
			continue
		}
		if err := storage.Append(cfg.PapersPath(), p); err != nil {
			exitWithError(ExitError, "writing papers: %s", err)
		}
		existing = append(existing, p)
		result.Imported++
	}

	if humanOutput {
		outputHuman("Imported %d of %d entr(ies), %d duplicate(s), %d error(s)\n",
			result.Imported, result.Entries, result.Duplicates, result.Errors)
	} else {
		outputJSON(result)
	}
}
