package client

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/cloo-solutions/docqa/internal/cli"
	"github.com/cloo-solutions/docqa/internal/config"
	"github.com/cloo-solutions/docqa/internal/domain"
	"github.com/cloo-solutions/docqa/internal/logger"
)

// AddRootFlags registers the flags every docqa command reads.
func AddRootFlags(root *cobra.Command) {
	flags := root.PersistentFlags()
	flags.Bool("output", false, "Output as JSON")
	flags.String("api-key", "", "OpenAI API key (overrides env and config)")
	flags.String("api-url", "", "docqad base URL; commands run locally when empty")
	flags.String("table", DefaultTable, "Embedding table used in local mode")
	flags.BoolP("verbose", "v", false, "Log progress to stderr")
}

// openBackend resolves the settings of cmd and returns the backend it should
// use together with a context carrying the CLI logger.
func openBackend(cmd *cobra.Command) (Backend, Settings, context.Context, error) {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	settings, err := ResolveSettings(cmd)
	if err != nil {
		return nil, Settings{}, nil, err
	}

	if settings.Remote() {
		backend := NewRemoteBackend(NewAPIClient(settings.APIURL, settings.APIKey))
		if verbose, _ := cmd.Flags().GetBool("verbose"); verbose {
			backend.Progress = printProgress(cmd.ErrOrStderr())
		}
		return backend, settings, ctx, nil
	}

	cfg, err := config.Load()
	if err != nil {
		return nil, Settings{}, nil, fmt.Errorf("failed to load config: %w", err)
	}

	level := "warn"
	if verbose, _ := cmd.Flags().GetBool("verbose"); verbose {
		level = "debug"
	}
	log, err := logger.NewLogger(cfg.Environment, level)
	if err != nil {
		return nil, Settings{}, nil, err
	}
	ctx = logger.ContextWithLogger(ctx, log)

	if settings.APIKey == "" {
		settings.APIKey = cfg.OpenAIAPIKey
	}

	stack, err := cli.BuildStack(ctx, cfg, cli.StackOptions{})
	if err != nil {
		return nil, Settings{}, nil, err
	}

	table, _ := cmd.Flags().GetString("table")
	var archiver LocalArchiver
	if stack.Archiver != nil {
		archiver = stack.Archiver
	}
	log.Debug("running locally", zap.String("table", table), zap.Bool("archive", archiver != nil))

	return NewLocalBackend(stack.Session, archiver, table, settings.APIKey), settings, ctx, nil
}

func wantsJSON(cmd *cobra.Command) bool {
	outputJSON, _ := cmd.Flags().GetBool("output")
	return outputJSON
}

func printJSON(w io.Writer, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal output: %w", err)
	}
	_, err = fmt.Fprintln(w, string(data))
	return err
}

func printWarnings(w io.Writer, warnings []domain.Warning) {
	for _, warn := range warnings {
		fmt.Fprintf(w, "warning [%s]: %s\n", warn.Code, warn.Message)
	}
}

func printProgress(w io.Writer) ProgressFunc {
	last := int64(-1)
	return func(current, total int64) {
		if total <= 0 {
			return
		}
		pct := current * 100 / total
		if pct == last {
			return
		}
		last = pct
		fmt.Fprintf(w, "\ruploading... %d%%", pct)
		if current >= total {
			fmt.Fprintln(w)
		}
	}
}

// readInputs reads the files named on the command line. Directories
// contribute their PDF files, non-recursively.
func readInputs(paths []string) ([]UploadFile, error) {
	var files []UploadFile

	for _, p := range paths {
		info, err := os.Stat(p)
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", p, err)
		}

		if !info.IsDir() {
			data, err := os.ReadFile(p)
			if err != nil {
				return nil, fmt.Errorf("failed to read %s: %w", p, err)
			}
			files = append(files, UploadFile{Name: filepath.Base(p), Data: data})
			continue
		}

		entries, err := os.ReadDir(p)
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", p, err)
		}
		for _, e := range entries {
			if e.IsDir() || !domain.IsPDFName(e.Name()) {
				continue
			}
			data, err := os.ReadFile(filepath.Join(p, e.Name()))
			if err != nil {
				return nil, fmt.Errorf("failed to read %s: %w", e.Name(), err)
			}
			files = append(files, UploadFile{Name: e.Name(), Data: data})
		}
	}

	return files, nil
}
