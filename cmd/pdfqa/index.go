package main

import (
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/spf13/cobra"

	"pdf-qa-assistant/internal/pipeline"
)

var indexCmd = &cobra.Command{
	Use:   "index",
	Short: "Build the index and print chunk statistics",
	Long: `Loads and chunks every PDF, embeds the chunks and reports what was indexed.
Useful for tuning chunk size and overlap before asking questions.`,
	Args: cobra.NoArgs,
	RunE: runIndex,
}

func init() {
	rootCmd.AddCommand(indexCmd)
}

func runIndex(cmd *cobra.Command, _ []string) error {
	startTime := time.Now()

	p, closeStore, err := bootstrap(cmd.Context(), cfg, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	defer closeStore()

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Completed indexing in %v\n", time.Since(startTime).Round(time.Millisecond))
	printChunkStatistics(out, p.Stats(), cfg.Chunker.Size, cfg.Chunker.Overlap)
	if ix := p.Index(); ix != nil {
		fmt.Fprintf(out, "  Embedding model: %s (dimension %d)\n", ix.Model(), ix.Dimension())
	}
	return nil
}

// printChunkStatistics prints a summary of the indexed chunks
func printChunkStatistics(out io.Writer, stats pipeline.Stats, size, overlap int) {
	chunks := stats.Chunks
	if len(chunks) == 0 {
		fmt.Fprintln(out, "No chunks indexed")
		return
	}

	var totalLength, shortest, longest int
	sourceMap := make(map[string]int)
	for i, chunk := range chunks {
		n := len([]rune(chunk.Content))
		totalLength += n
		if i == 0 || n < shortest {
			shortest = n
		}
		if n > longest {
			longest = n
		}
		sourceMap[chunk.Metadata.Source]++
	}

	avgLength := float64(totalLength) / float64(len(chunks))

	fmt.Fprintln(out, "Chunk Statistics:")
	fmt.Fprintf(out, "  Files: %d, pages: %d\n", stats.Files, stats.Pages)
	fmt.Fprintf(out, "  Chunk size %d, overlap %d\n", size, overlap)
	fmt.Fprintf(out, "  Total chunks: %d\n", len(chunks))
	fmt.Fprintf(out, "  Average chunk length: %.1f characters (min %d, max %d)\n", avgLength, shortest, longest)

	fmt.Fprintln(out, "  Source breakdown:")
	for _, source := range sortedKeys(sourceMap) {
		fmt.Fprintf(out, "    %s: %d chunks\n", source, sourceMap[source])
	}
}

func sortedKeys(m map[string]int) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
