package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

var askShowChunks bool

var askCmd = &cobra.Command{
	Use:   "ask [question]",
	Short: "Answer a single question",
	Long: `Indexes the PDF folder, answers one question and exits.
The answer is labelled with where it came from: the PDFs or the model itself.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runAsk,
}

func init() {
	askCmd.Flags().BoolVar(&askShowChunks, "show-chunks", false, "print the text of each retrieved source")
	rootCmd.AddCommand(askCmd)
}

func runAsk(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	p, closeStore, err := bootstrap(ctx, cfg, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	defer closeStore()

	ans, err := p.Ask(ctx, strings.Join(args, " "))
	if err != nil {
		return err
	}

	fmt.Fprintln(cmd.OutOrStdout(), formatAnswer(ans, askShowChunks))
	return nil
}
