package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"github.com/cloo-solutions/docqa/internal/cli"
	"github.com/cloo-solutions/docqa/internal/cli/client"
)

var version = "dev"

func main() {
	rootCmd := &cobra.Command{
		Use:   "docqa",
		Short: "docqa - ask questions about your PDF documents",
		Long: `docqa embeds the text of PDF documents and answers questions from the
passages nearest to each question.

Commands run locally and keep the store in --table unless --api-url points at
a docqad.

Environment variables:
  DOCQA_OPENAI_API_KEY   OpenAI API key
  DOCQA_API_URL          docqad base URL (optional)
  DOCQA_S3_*             object storage for push and pull in local mode`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	client.AddRootFlags(rootCmd)
	cli.AddHelpJSONFlag(rootCmd)

	rootCmd.AddCommand(client.IngestCmd())
	rootCmd.AddCommand(client.AskCmd())
	rootCmd.AddCommand(client.SearchCmd())
	rootCmd.AddCommand(client.RecordsCmd())
	rootCmd.AddCommand(client.ImportCmd())
	rootCmd.AddCommand(client.ExportCmd())
	rootCmd.AddCommand(client.PushCmd())
	rootCmd.AddCommand(client.PullCmd())
	rootCmd.AddCommand(client.ConfigCmd())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	cli.CheckHelpJSON(rootCmd)
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
