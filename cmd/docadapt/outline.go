package main

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/dgallion1/docadapt/internal/doctree"
	"github.com/dgallion1/docadapt/internal/selection"
)

var outlineTitle string

type outlineUnit struct {
	Index  int    `json:"index" yaml:"index"`
	Path   string `json:"path" yaml:"path"`
	Tokens int    `json:"tokens" yaml:"tokens"`
}

type outlineView struct {
	Title   string          `json:"title" yaml:"title"`
	Outline []*doctree.Node `json:"outline" yaml:"outline"`
	Units   []outlineUnit   `json:"units" yaml:"units"`
}

var outlineCmd = &cobra.Command{
	Use:   "outline FILE",
	Short: "Show the part/chapter/section outline of a document",
	Long: `Segment a document and list its addressable units.

The unit index and path are what adapt accepts with --indices and --unit.

Examples:
  docadapt outline book.pdf
  docadapt outline book.md -o json`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		out, err := loadOutline(args[0], outlineTitle, cfg)
		if err != nil {
			return err
		}

		view := outlineView{Title: out.Title, Outline: out.Children}
		for i, u := range selection.Leaves(out) {
			view.Units = append(view.Units, outlineUnit{Index: i + 1, Path: u.Path, Tokens: u.Tokens})
		}
		return printOutput(cmd.OutOrStdout(), view)
	},
}

func init() {
	outlineCmd.Flags().StringVar(&outlineTitle, "title", "", "document title (default from the file)")
}

func printOutput(w io.Writer, v any) error {
	switch outputFormat {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	case "yaml", "":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		defer enc.Close()
		return enc.Encode(v)
	}
	return fmt.Errorf("unknown output format %q (want yaml or json)", outputFormat)
}
