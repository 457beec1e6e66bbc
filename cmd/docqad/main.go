package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/cloo-solutions/docqa/internal/cli"
	"github.com/cloo-solutions/docqa/internal/cli/admin"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "docqad",
		Short: "docqa daemon",
		Long:  "docqa daemon for serving the question answering API and managing its database",
	}

	cli.AddHelpJSONFlag(rootCmd)
	rootCmd.AddCommand(admin.ServeCmd())
	rootCmd.AddCommand(admin.MigrateCmd())

	if len(os.Args) == 1 {
		os.Args = append(os.Args, "serve")
	}

	cli.CheckHelpJSON(rootCmd)
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
