package client

import (
	"fmt"

	"github.com/spf13/cobra"
)

// PushCmd creates the push command.
func PushCmd() *cobra.Command {
	var key string

	cmd := &cobra.Command{
		Use:   "push",
		Short: "Upload the embedding table to object storage",
		Long: `Uploads the current table to the configured S3 bucket so it can be pulled
later instead of ingesting the documents again. Without --key the configured
archive key is used, or a timestamped one is generated.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPush(cmd, key)
		},
	}

	cmd.Flags().StringVar(&key, "key", "", "Object key of the archive")

	return cmd
}

// PullCmd creates the pull command.
func PullCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "pull [key]",
		Short: "Restore the embedding table from object storage",
		Long:  "Downloads an archived table and makes it the current store. Locally it is written to the --table file.",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			key := ""
			if len(args) == 1 {
				key = args[0]
			}
			return runPull(cmd, key)
		},
	}

	return cmd
}

func runPush(cmd *cobra.Command, key string) error {
	backend, settings, ctx, err := openBackend(cmd)
	if err != nil {
		return err
	}
	if key == "" {
		key = settings.ArchiveKey
	}

	result, err := backend.Push(ctx, key)
	if err != nil {
		return fmt.Errorf("push failed: %w", err)
	}

	if wantsJSON(cmd) {
		return printJSON(cmd.OutOrStdout(), result)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Uploaded %d records (%d bytes) to %s\n", result.Records, result.Bytes, result.Key)
	if result.DownloadURL != "" {
		fmt.Fprintf(out, "Download URL: %s\n", result.DownloadURL)
	}
	return nil
}

func runPull(cmd *cobra.Command, key string) error {
	backend, settings, ctx, err := openBackend(cmd)
	if err != nil {
		return err
	}
	if key == "" {
		key = settings.ArchiveKey
	}
	if key == "" {
		return fmt.Errorf("archive key is required (pass it or run 'docqa config set --archive-key')")
	}

	stats, err := backend.Pull(ctx, key)
	if err != nil {
		return fmt.Errorf("pull failed: %w", err)
	}

	if wantsJSON(cmd) {
		return printJSON(cmd.OutOrStdout(), stats)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Restored %d records (%d dimensions) from %s\n", stats.Records, stats.Dimensions, key)
	return nil
}
