package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"pdf-qa-assistant/internal/history"
	"pdf-qa-assistant/internal/models"
	"pdf-qa-assistant/internal/processor"
)

// defaultHistoryShown is how many entries /history prints without an argument
const defaultHistoryShown = 5

var chatShowChunks bool

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Ask questions interactively",
	Long: `Indexes the PDF folder once and starts an interactive session.
Commands: /history [n] shows recent exchanges, /delete <timestamp> removes one,
exit or quit ends the session.`,
	Args: cobra.NoArgs,
	RunE: runChatCmd,
}

func init() {
	chatCmd.Flags().BoolVar(&chatShowChunks, "show-chunks", false, "print the text of each retrieved source")
	rootCmd.AddCommand(chatCmd)
}

// asker is the part of the pipeline the session needs
type asker interface {
	Ask(ctx context.Context, question string) (*models.Answer, error)
}

func runChatCmd(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	out := cmd.OutOrStdout()

	count := processor.CountPDFs(cfg.PDFDir)
	fmt.Fprintf(out, "Found %d PDF(s) in %s\n", count, cfg.PDFDir)
	if count == 0 {
		fmt.Fprintf(out, "No PDFs found. Add PDF files to %s and restart.\n", cfg.PDFDir)
	}

	p, closeStore, err := bootstrap(ctx, cfg, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	defer closeStore()

	return runChat(ctx, cmd.InOrStdin(), out, p, p.History(), chatShowChunks)
}

// runChat reads questions from in until EOF or exit
func runChat(ctx context.Context, in io.Reader, out io.Writer, a asker, log *history.Log, showChunks bool) error {
	scanner := bufio.NewScanner(in)

	fmt.Fprintln(out, "PDF Q&A Assistant - Ask questions about your documents (type 'exit' to quit)")

	for {
		fmt.Fprint(out, "\n> ")
		if !scanner.Scan() {
			break
		}

		input := strings.TrimSpace(scanner.Text())
		lower := strings.ToLower(input)
		if lower == "exit" || lower == "quit" {
			break
		}
		if input == "" {
			continue
		}

		if lower == "/history" || strings.HasPrefix(lower, "/history ") {
			printHistory(out, log, strings.TrimSpace(input[len("/history"):]))
			continue
		}

		if lower == "/delete" || strings.HasPrefix(lower, "/delete ") {
			deleteHistory(out, log, strings.TrimSpace(input[len("/delete"):]))
			continue
		}

		// Show "thinking" indicator
		fmt.Fprint(out, "Thinking... ")

		ans, err := a.Ask(ctx, input)
		if err != nil {
			fmt.Fprintf(out, "\rError: %v\n", err)
			// answering stays disabled for the whole session
			var loadErr *models.LoadError
			if errors.As(err, &loadErr) {
				return err
			}
			continue
		}

		fmt.Fprintln(out, "\r"+formatAnswer(ans, showChunks))
	}

	return scanner.Err()
}

func printHistory(out io.Writer, log *history.Log, arg string) {
	if log == nil {
		fmt.Fprintln(out, "History is disabled")
		return
	}

	limit := defaultHistoryShown
	if arg != "" {
		n, err := strconv.Atoi(arg)
		if err != nil || n <= 0 {
			fmt.Fprintf(out, "Invalid count: %s\n", arg)
			return
		}
		limit = n
	}

	records, err := log.List(limit, true)
	if err != nil {
		fmt.Fprintf(out, "Error: %v\n", err)
		return
	}
	if len(records) == 0 {
		fmt.Fprintln(out, "No history yet")
		return
	}
	for _, rec := range records {
		fmt.Fprint(out, formatRecord(rec))
	}
}

func deleteHistory(out io.Writer, log *history.Log, timestamp string) {
	if log == nil {
		fmt.Fprintln(out, "History is disabled")
		return
	}
	if timestamp == "" {
		fmt.Fprintln(out, "Usage: /delete <timestamp>")
		return
	}

	n, err := log.Delete(timestamp)
	if err != nil {
		fmt.Fprintf(out, "Error: %v\n", err)
		return
	}
	fmt.Fprintf(out, "Deleted %d entr%s\n", n, plural(n, "y", "ies"))
}

func plural(n int, one, many string) string {
	if n == 1 {
		return one
	}
	return many
}
