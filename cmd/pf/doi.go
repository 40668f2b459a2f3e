package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/paperfeed/paperfeed/internal/clipboard"
	"github.com/paperfeed/paperfeed/internal/pdf"
)

var doiCopy bool

var doiCmd = &cobra.Command{
	Use:   "doi <pdf-file>",
	Short: "Extract the DOI from a PDF file",
	Args:  cobra.ExactArgs(1),
	Run:   runDOI,
}

func init() {
	doiCmd.Flags().BoolVar(&doiCopy, "copy", false, "Copy the DOI to the clipboard")
	rootCmd.AddCommand(doiCmd)
}

// DOIResult is the output of the doi command.
type DOIResult struct {
	File string `json:"file"`
	DOI  string `json:"doi"`
}

func runDOI(cmd *cobra.Command, args []string) {
	doi, err := pdf.ExtractDOI(args[0])
	if err != nil {
		exitWithError(ExitDataError, "%s", err)
	}

	if doiCopy {
		if err := clipboard.Copy(doi); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: copying to clipboard: %v\n", err)
		}
	}

	if humanOutput {
		outputHuman("%s\n", doi)
	} else {
		outputJSON(DOIResult{File: args[0], DOI: doi})
	}
}
