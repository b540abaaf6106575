package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/dgallion1/docadapt/internal/letters"
	"github.com/dgallion1/docadapt/internal/pipeline"
	"github.com/dgallion1/docadapt/internal/selection"
)

var (
	lettersList   string
	lettersAll    bool
	lettersTitle  string
	lettersRender renderFlags
)

var lettersCmd = &cobra.Command{
	Use:   "letters",
	Short: "Fetch and adapt letters from the remote page source",
	Long: `Fetch letters by number, adapt them one at a time, and write the
assembled document. A letter that cannot be fetched is recorded as failed.

Examples:
  docadapt letters --letters 1,2,3
  docadapt letters --all --format pdf --out letters.pdf`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		log := cliLogger()
		fetcher := newFetcher(cfg, log)
		defer fetcher.Close()

		set, err := selectLetters(fetcher.Max())
		if err != nil {
			return err
		}

		adapter, release, err := newAdapter(cfg, lettersRender.profile, log)
		if err != nil {
			return err
		}
		defer release()

		log.Info("adapting letters", "units", len(set), "profile", adapter.Profile().Name, "model", adapter.Model())
		result := pipeline.NewBatch(adapter.Adapt, batchConfig(cfg), log,
			pipeline.WithBodyLoader(fetcher),
		).Run(cmd.Context(), set)

		path, err := writeDocument(lettersRender, adapter.Profile().Markup, lettersTitle, result)
		if err != nil {
			return err
		}
		printSummary(cmd.OutOrStdout(), result.Summarize(), path)
		return nil
	},
}

func selectLetters(max int) (selection.Set, error) {
	if lettersAll {
		return selection.LetterRange(max)
	}
	if strings.TrimSpace(lettersList) == "" {
		return nil, fmt.Errorf("%w: pass --letters or --all", selection.ErrEmptySelection)
	}
	numbers, err := selection.ParseIndices(lettersList)
	if err != nil {
		return nil, err
	}
	for _, n := range numbers {
		if n > max {
			return nil, fmt.Errorf("%w: %d (max %d)", letters.ErrInvalidLetter, n, max)
		}
	}
	return selection.Letters(numbers)
}

func init() {
	lettersCmd.Flags().StringVar(&lettersList, "letters", "", "comma-separated letter numbers")
	lettersCmd.Flags().BoolVar(&lettersAll, "all", false, "adapt every letter")
	lettersCmd.Flags().StringVar(&lettersTitle, "title", "Moral Letters to Lucilius", "document title")
	lettersCmd.MarkFlagsMutuallyExclusive("letters", "all")
	addRenderFlags(lettersCmd, &lettersRender)
}
