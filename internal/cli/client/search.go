package client

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/cloo-solutions/docqa/internal/service"
)

// SearchCmd creates the search command.
func SearchCmd() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "search <question>",
		Short: "Show the chunks nearest to a question",
		Long:  "Ranks the stored chunks by cosine distance to the question without asking the completion model.",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSearch(cmd, strings.Join(args, " "), limit)
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", service.DefaultSearchLimit, "Maximum number of results")

	return cmd
}

func runSearch(cmd *cobra.Command, question string, limit int) error {
	backend, _, ctx, err := openBackend(cmd)
	if err != nil {
		return err
	}

	hits, err := backend.Search(ctx, question, limit)
	if err != nil {
		return fmt.Errorf("search failed: %w", err)
	}

	if wantsJSON(cmd) {
		return printJSON(cmd.OutOrStdout(), hits)
	}

	out := cmd.OutOrStdout()
	if len(hits) == 0 {
		fmt.Fprintln(out, "No results")
		return nil
	}
	for i, h := range hits {
		fmt.Fprintf(out, "%d. [%.4f, %d tokens] %s\n", i+1, h.Distance, h.TokenCount, preview(h.Text, 120))
	}
	return nil
}

// preview shortens text to at most n runes on one line.
func preview(text string, n int) string {
	text = strings.Join(strings.Fields(text), " ")
	runes := []rune(text)
	if len(runes) <= n {
		return text
	}
	return string(runes[:n-3]) + "..."
}
