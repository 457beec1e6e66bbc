package client

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
)

// ImportCmd creates the import command.
func ImportCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "import <table.csv>",
		Short: "Load a previously exported embedding table",
		Long:  "Validates a table with the columns text, n_tokens and embeddings and makes it the current store.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runImport(cmd, args[0])
		},
	}
}

// ExportCmd creates the export command.
func ExportCmd() *cobra.Command {
	var out string

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write the embedding table as CSV",
		Long:  "Writes the current store to --out, or to stdout when --out is empty, so it can be imported later.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runExport(cmd, out)
		},
	}

	cmd.Flags().StringVarP(&out, "out", "o", "", "Output file (default stdout)")

	return cmd
}

func runImport(cmd *cobra.Command, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open table: %w", err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return fmt.Errorf("failed to stat table: %w", err)
	}

	backend, _, ctx, err := openBackend(cmd)
	if err != nil {
		return err
	}

	stats, err := backend.Import(ctx, f, info.Size())
	if err != nil {
		return fmt.Errorf("import failed: %w", err)
	}

	if wantsJSON(cmd) {
		return printJSON(cmd.OutOrStdout(), stats)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Imported %d records (%d dimensions, %d tokens)\n",
		stats.Records, stats.Dimensions, stats.TotalTokens)
	return nil
}

func runExport(cmd *cobra.Command, out string) error {
	backend, _, ctx, err := openBackend(cmd)
	if err != nil {
		return err
	}

	var w io.Writer = cmd.OutOrStdout()
	if out != "" {
		f, err := os.Create(out)
		if err != nil {
			return fmt.Errorf("failed to create output file: %w", err)
		}
		defer f.Close()
		w = f
	}

	if err := backend.Export(ctx, w); err != nil {
		return fmt.Errorf("export failed: %w", err)
	}
	return nil
}
