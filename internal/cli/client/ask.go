package client

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/cloo-solutions/docqa/internal/domain"
)

// AskCmd creates the ask command.
func AskCmd() *cobra.Command {
	var debug bool

	cmd := &cobra.Command{
		Use:     "ask <question>",
		Short:   "Answer a question from the ingested documents",
		Long:    "Embeds the question, selects the nearest chunks as context and asks the completion model.",
		Example: `  docqa ask "How long is the warranty?" --debug`,
		Args:    cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAsk(cmd, strings.Join(args, " "), debug)
		},
	}

	cmd.Flags().BoolVar(&debug, "debug", false, "Print the context sent to the model")

	return cmd
}

func runAsk(cmd *cobra.Command, question string, debug bool) error {
	backend, _, ctx, err := openBackend(cmd)
	if err != nil {
		return err
	}

	report, err := backend.Ask(ctx, question, debug)
	if err != nil {
		return fmt.Errorf("ask failed: %w", err)
	}

	if wantsJSON(cmd) {
		return printJSON(cmd.OutOrStdout(), report)
	}

	printWarnings(cmd.ErrOrStderr(), report.Warnings)
	if debug {
		fmt.Fprintf(cmd.ErrOrStderr(), "--- context (%d records, %d tokens) ---\n%s\n---\n",
			report.ContextRecords, report.ContextTokens, report.Context)
	}

	switch domain.AnswerStatus(report.Status) {
	case domain.AnswerStatusEmpty:
		fmt.Fprintln(cmd.ErrOrStderr(), "the model returned no answer")
	case domain.AnswerStatusUnknown:
		fmt.Fprintln(cmd.ErrOrStderr(), "the documents do not answer this question")
	}

	fmt.Fprintln(cmd.OutOrStdout(), report.Answer)
	return nil
}
