package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"pdf-qa-assistant/internal/history"
)

var (
	historyLimit       int
	historyOldestFirst bool
	historyJSON        bool
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Inspect and trim the interaction history",
}

var historyListCmd = &cobra.Command{
	Use:   "list",
	Short: "List recorded questions and answers",
	Args:  cobra.NoArgs,
	RunE:  runHistoryList,
}

var historyDeleteCmd = &cobra.Command{
	Use:   "delete [timestamp]",
	Short: "Delete every entry recorded at timestamp",
	Args:  cobra.ExactArgs(1),
	RunE:  runHistoryDelete,
}

var historyCompactCmd = &cobra.Command{
	Use:   "compact",
	Short: "Rewrite the history file without malformed lines",
	Args:  cobra.NoArgs,
	RunE:  runHistoryCompact,
}

func init() {
	historyListCmd.Flags().IntVarP(&historyLimit, "limit", "n", 10, "maximum number of entries (0 for all)")
	historyListCmd.Flags().BoolVar(&historyOldestFirst, "oldest-first", false, "print oldest entries first")
	historyListCmd.Flags().BoolVar(&historyJSON, "json", false, "output entries as JSON")

	historyCmd.AddCommand(historyListCmd, historyDeleteCmd, historyCompactCmd)
	rootCmd.AddCommand(historyCmd)
}

func runHistoryList(cmd *cobra.Command, _ []string) error {
	records, err := history.New(cfg.History.Path).List(historyLimit, !historyOldestFirst)
	if err != nil {
		return err
	}

	if historyJSON {
		data, err := json.MarshalIndent(records, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal history: %w", err)
		}
		fmt.Fprintln(cmd.OutOrStdout(), string(data))
		return nil
	}

	if len(records) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "No history yet.")
		return nil
	}
	for _, rec := range records {
		fmt.Fprint(cmd.OutOrStdout(), formatRecord(rec))
	}
	return nil
}

func runHistoryDelete(cmd *cobra.Command, args []string) error {
	n, err := history.New(cfg.History.Path).Delete(args[0])
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("no history entry with timestamp %s", args[0])
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Deleted %d entr%s\n", n, plural(n, "y", "ies"))
	return nil
}

func runHistoryCompact(cmd *cobra.Command, _ []string) error {
	n, err := history.New(cfg.History.Path).Compact()
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Removed %d malformed line(s)\n", n)
	return nil
}
