package main

import (
	"github.com/spf13/cobra"

	"github.com/dgallion1/docadapt/internal/config"
)

var (
	cfgFile      string
	outputFormat string

	cfg config.Config
)

var rootCmd = &cobra.Command{
	Use:   "docadapt",
	Short: "Rewrite book chapters for a new audience with an LLM",
	Long: `Docadapt segments a document into parts, chapters and sections, sends
each selected unit to a chat completions endpoint with a style profile,
and assembles the rewrites into a docx, pdf or markdown document.

Units are processed one at a time. A unit that fails is recorded with its
reason and shows up as a placeholder in the output; the batch continues.`,
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: false,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load(cfgFile)
		return err
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(
		&cfgFile, "config", "", "YAML config file (environment variables take precedence)",
	)
	rootCmd.PersistentFlags().StringVarP(
		&outputFormat, "output", "o", "yaml", "output format for listings: yaml or json",
	)

	rootCmd.AddCommand(serveCmd, outlineCmd, adaptCmd, lettersCmd, versionCmd)
}
