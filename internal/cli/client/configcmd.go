package client

import (
	"fmt"

	"github.com/spf13/cobra"
)

// ConfigCmd creates the config command group.
func ConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage the stored CLI configuration",
	}

	cmd.AddCommand(configSetCmd())
	cmd.AddCommand(configShowCmd())
	cmd.AddCommand(configClearCmd())

	return cmd
}

func configSetCmd() *cobra.Command {
	var apiKey, apiURL, archiveKey string

	cmd := &cobra.Command{
		Use:   "set",
		Short: "Store the API key, daemon URL or archive key",
		Long:  "Stores the given values in the user config file (mode 0600). Values not passed are kept.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			f := cmd.Flags()
			if !f.Changed("key") && !f.Changed("url") && !f.Changed("archive-key") {
				return fmt.Errorf("nothing to set: pass --key, --url or --archive-key")
			}

			config, err := LoadGlobalConfig()
			if err != nil {
				return err
			}
			if config == nil {
				config = &GlobalConfig{}
			}
			if f.Changed("key") {
				config.APIKey = apiKey
			}
			if f.Changed("url") {
				config.APIURL = apiURL
			}
			if f.Changed("archive-key") {
				config.ArchiveKey = archiveKey
			}

			if err := SaveGlobalConfig(config); err != nil {
				return fmt.Errorf("failed to save config: %w", err)
			}

			path, _ := GetConfigPath()
			fmt.Fprintf(cmd.OutOrStdout(), "Saved %s\n", path)
			return nil
		},
	}

	// --api-key and --api-url are already root flags
	cmd.Flags().StringVar(&apiKey, "key", "", "OpenAI API key")
	cmd.Flags().StringVar(&apiURL, "url", "", "docqad base URL (empty runs commands locally)")
	cmd.Flags().StringVar(&archiveKey, "archive-key", "", "Default object key for push and pull")

	return cmd
}

func configShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Show the effective configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			settings, err := ResolveSettings(cmd)
			if err != nil {
				return err
			}
			path, _ := GetConfigPath()

			mode := "local"
			if settings.Remote() {
				mode = "remote"
			}

			if wantsJSON(cmd) {
				status := map[string]any{
					"config_path":    path,
					"mode":           mode,
					"api_key_source": string(settings.APIKeySource),
					"api_url":        settings.APIURL,
					"archive_key":    settings.ArchiveKey,
				}
				if settings.APIKey != "" {
					status["api_key"] = maskAPIKey(settings.APIKey)
				}
				return printJSON(cmd.OutOrStdout(), status)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Config file: %s\n", path)
			fmt.Fprintf(out, "Mode: %s\n", mode)
			if settings.APIKey != "" {
				fmt.Fprintf(out, "API key: %s (%s)\n", maskAPIKey(settings.APIKey), settings.APIKeySource)
			} else {
				fmt.Fprintln(out, "API key: not set")
			}
			if settings.Remote() {
				fmt.Fprintf(out, "API URL: %s\n", settings.APIURL)
			}
			if settings.ArchiveKey != "" {
				fmt.Fprintf(out, "Archive key: %s\n", settings.ArchiveKey)
			}
			return nil
		},
	}
}

func configClearCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Delete the stored configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := DeleteGlobalConfig(); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Configuration cleared")
			return nil
		},
	}
}
