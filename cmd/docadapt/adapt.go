package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/dgallion1/docadapt/internal/doctree"
	"github.com/dgallion1/docadapt/internal/pipeline"
	"github.com/dgallion1/docadapt/internal/selection"
)

var (
	adaptUnits   []string
	adaptIndices string
	adaptAll     bool
	adaptTitle   string
	adaptRender  renderFlags
)

var adaptCmd = &cobra.Command{
	Use:   "adapt FILE",
	Short: "Adapt selected units of a document",
	Long: `Segment a document, adapt the selected units one at a time, and write
the assembled document. Failed units appear as a placeholder; the command
still succeeds.

Examples:
  docadapt adapt book.pdf --all
  docadapt adapt book.pdf --indices 1,3 --format md --out book.md
  docadapt adapt book.txt --unit "Part One > Chapter 2" --profile corporate-2024`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if !adaptAll && len(adaptUnits) == 0 && strings.TrimSpace(adaptIndices) == "" {
			return fmt.Errorf("%w: pass --all, --unit or --indices", selection.ErrEmptySelection)
		}

		out, err := loadOutline(args[0], adaptTitle, cfg)
		if err != nil {
			return err
		}
		set, err := selectUnits(out)
		if err != nil {
			return err
		}

		log := cliLogger()
		adapter, release, err := newAdapter(cfg, adaptRender.profile, log)
		if err != nil {
			return err
		}
		defer release()

		log.Info("adapting", "units", len(set), "profile", adapter.Profile().Name, "model", adapter.Model())
		result := pipeline.NewBatch(adapter.Adapt, batchConfig(cfg), log).Run(cmd.Context(), set)

		path, err := writeDocument(adaptRender, adapter.Profile().Markup, out.Title, result)
		if err != nil {
			return err
		}
		printSummary(cmd.OutOrStdout(), result.Summarize(), path)
		return nil
	},
}

func selectUnits(out *doctree.Outline) (selection.Set, error) {
	switch {
	case adaptAll:
		return selection.All(out)
	case len(adaptUnits) > 0:
		return selection.ByPaths(out, adaptUnits)
	}
	idx, err := selection.ParseIndices(adaptIndices)
	if err != nil {
		return nil, err
	}
	return selection.ByIndices(out, idx)
}

func addRenderFlags(cmd *cobra.Command, rf *renderFlags) {
	cmd.Flags().StringVar(&rf.out, "out", "", "output file (default from the title)")
	cmd.Flags().StringVar(&rf.format, "format", "", "docx, pdf or md (default from --out or OUTPUT_FORMAT)")
	cmd.Flags().StringVar(&rf.markup, "markup", "", "heuristic, tags or markdown (default from the profile or MARKUP)")
	cmd.Flags().StringVar(&rf.profile, "profile", "", "style profile (default STYLE_PROFILE)")
}

func init() {
	adaptCmd.Flags().StringArrayVar(&adaptUnits, "unit", nil, "unit path to adapt (repeatable)")
	adaptCmd.Flags().StringVar(&adaptIndices, "indices", "", "comma-separated 1-based unit indices")
	adaptCmd.Flags().BoolVar(&adaptAll, "all", false, "adapt every unit")
	adaptCmd.Flags().StringVar(&adaptTitle, "title", "", "document title (default from the file)")
	adaptCmd.MarkFlagsMutuallyExclusive("unit", "indices", "all")
	addRenderFlags(adaptCmd, &adaptRender)
}

// printSummary reports N/M adapted and lists each failure with its reason.
func printSummary(w io.Writer, s doctree.Summary, path string) {
	fmt.Fprintf(w, "Adapted %d/%d units\n", s.Succeeded, s.Total)
	for _, f := range s.Failures {
		fmt.Fprintf(w, "  failed: %s: %s\n", f.Path, f.Reason)
	}
	fmt.Fprintf(w, "Document saved to %s\n", path)
}
