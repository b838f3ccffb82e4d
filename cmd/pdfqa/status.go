package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"pdf-qa-assistant/internal/history"
	"pdf-qa-assistant/internal/processor"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show documents, history and model availability",
	Args:  cobra.NoArgs,
	RunE:  runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, _ []string) error {
	out := cmd.OutOrStdout()

	count := processor.CountPDFs(cfg.PDFDir)
	fmt.Fprintf(out, "Found %d PDF(s) in %s\n", count, cfg.PDFDir)
	if count == 0 {
		fmt.Fprintf(out, "  No PDFs found. Add PDF files to %s before asking questions.\n", cfg.PDFDir)
	}

	records, err := history.New(cfg.History.Path).List(0, false)
	if err != nil {
		fmt.Fprintf(out, "History: unreadable (%v)\n", err)
	} else {
		fmt.Fprintf(out, "History: %d entries in %s\n", len(records), cfg.History.Path)
	}

	fmt.Fprintf(out, "Vector store: %s\n", cfg.VectorStore.Type)
	fmt.Fprintf(out, "Relevance threshold: %.2f, top k: %d\n", cfg.Retrieval.RelevanceThreshold, cfg.Retrieval.TopK)

	generator, err := newGenerator(cfg)
	if err != nil {
		return err
	}

	names := []string{cfg.LLM.Model}
	if cfg.Embedder.Type == "ollama" {
		names = append(names, cfg.Embedder.Model)
	} else {
		fmt.Fprintf(out, "Embedder: %s (offline)\n", cfg.Embedder.Type)
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), 10*time.Second)
	defer cancel()
	if err := generator.CheckModels(ctx, names...); err != nil {
		fmt.Fprintf(out, "Ollama: %v\n", err)
		return errors.New("models unavailable")
	}
	fmt.Fprintf(out, "Ollama: ready (%v)\n", names)
	return nil
}
