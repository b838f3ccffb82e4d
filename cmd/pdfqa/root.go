package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"pdf-qa-assistant/internal/config"
	"pdf-qa-assistant/internal/logging"
)

var (
	cfgPath string
	pdfDir  string
	verbose bool

	cfg *config.Config
)

var rootCmd = &cobra.Command{
	Use:   "pdfqa",
	Short: "Ask questions about your PDFs",
	Long: `Builds a semantic index over every PDF in a folder and answers questions from it.
When the retrieved passages are not relevant enough the model answers directly.
Every exchange is recorded in a local history file.`,
	SilenceUsage:      true,
	PersistentPreRunE: loadConfig,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgPath, "config", "", "path to YAML config (default ./pdfqa.yaml, then ~/.config/pdfqa/config.yaml)")
	rootCmd.PersistentFlags().StringVarP(&pdfDir, "dir", "d", "", "directory containing the PDF files")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
}

func loadConfig(cmd *cobra.Command, _ []string) error {
	var err error
	if cfgPath == "" {
		cfg, _, err = config.LoadDefault()
	} else {
		cfg, err = config.Load(cfgPath)
	}
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	if pdfDir != "" {
		cfg.PDFDir = pdfDir
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	return logging.Setup(cfg.Log.Level, cfg.Log.Format, verbose, cmd.ErrOrStderr())
}
