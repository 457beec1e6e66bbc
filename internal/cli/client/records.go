package client

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

// RecordsCmd creates the records command.
func RecordsCmd() *cobra.Command {
	var (
		limit      int
		cursor     string
		embeddings bool
	)

	cmd := &cobra.Command{
		Use:   "records",
		Short: "List the records of the embedding store",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRecords(cmd, RecordsQuery{Cursor: cursor, Limit: limit, Embeddings: embeddings})
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Maximum number of records")
	cmd.Flags().StringVar(&cursor, "cursor", "", "Pagination cursor from previous response")
	cmd.Flags().BoolVar(&embeddings, "embeddings", false, "Include embedding vectors (JSON output)")

	return cmd
}

func runRecords(cmd *cobra.Command, q RecordsQuery) error {
	backend, _, ctx, err := openBackend(cmd)
	if err != nil {
		return err
	}

	page, err := backend.Records(ctx, q)
	if err != nil {
		return fmt.Errorf("failed to list records: %w", err)
	}

	if wantsJSON(cmd) {
		return printJSON(cmd.OutOrStdout(), page)
	}

	tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "#\tTOKENS\tDIMS\tTEXT")
	for _, r := range page.Items {
		fmt.Fprintf(tw, "%d\t%d\t%d\t%s\n", r.Position, r.TokenCount, r.Dimensions, preview(r.Text, 80))
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "\n%d of %d records\n", len(page.Items), page.Total)
	if page.HasMore {
		fmt.Fprintf(cmd.OutOrStdout(), "Next page: --cursor %s\n", page.Cursor)
	}
	return nil
}
