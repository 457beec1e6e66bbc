package client

import (
	"fmt"

	"github.com/spf13/cobra"
)

// IngestCmd creates the ingest command.
func IngestCmd() *cobra.Command {
	var patterns, excludePages string

	cmd := &cobra.Command{
		Use:   "ingest <file-or-dir>...",
		Short: "Build the embedding store from PDF files",
		Long: `Extracts the text of every PDF, removes the given patterns, splits it into
token-bounded chunks and embeds each chunk. The new store replaces the previous
one. Locally it is written to the --table file.

Patterns and excluded pages are comma separated.`,
		Example: `  docqa ingest manual.pdf --patterns "Page \d+,CONFIDENTIAL" --exclude-pages 1,2
  docqa ingest ./docs`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runIngest(cmd, args, patterns, excludePages)
		},
	}

	cmd.Flags().StringVar(&patterns, "patterns", "", "Comma separated regular expressions removed from the text")
	cmd.Flags().StringVar(&excludePages, "exclude-pages", "", "Comma separated 1-based pages to skip")

	return cmd
}

func runIngest(cmd *cobra.Command, args []string, patterns, excludePages string) error {
	files, err := readInputs(args)
	if err != nil {
		return err
	}

	backend, settings, ctx, err := openBackend(cmd)
	if err != nil {
		return err
	}

	report, err := backend.Ingest(ctx, IngestRequest{
		Files:        files,
		Patterns:     patterns,
		ExcludePages: excludePages,
	})
	if err != nil {
		return fmt.Errorf("ingest failed: %w", err)
	}

	if wantsJSON(cmd) {
		return printJSON(cmd.OutOrStdout(), report)
	}

	out := cmd.OutOrStdout()
	for _, d := range report.Documents {
		fmt.Fprintf(out, "%s: %d/%d pages, %d characters\n", d.Name, d.PagesIncluded, d.PageCount, d.Characters)
	}
	printWarnings(cmd.ErrOrStderr(), report.Warnings)

	fmt.Fprintf(out, "Embedded %d records in %dms\n", report.Records, report.DurationMs)
	if !settings.Remote() {
		table, _ := cmd.Flags().GetString("table")
		fmt.Fprintf(out, "Table written to %s\n", table)
	}
	return nil
}
