package main

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/hyperengineering/codex/internal/config"
	"github.com/hyperengineering/codex/internal/remote"
	"github.com/hyperengineering/codex/internal/summarize"
	"github.com/hyperengineering/codex/pkg/codex"
)

// Version is set at build time via ldflags: -ldflags "-X main.Version=1.0.0"
var Version = "dev"

var (
	novelFlag   string
	offlineFlag bool
	jsonOutput  bool
)

var rootCmd = &cobra.Command{
	Use:           "codex",
	Short:         "Codex - hierarchical novel attribute store",
	SilenceUsage:  true,
	SilenceErrors: false,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&novelFlag, "novel", "",
		"Novel title (first segment of every attribute path)")
	rootCmd.PersistentFlags().BoolVar(&offlineFlag, "offline", false,
		"Keep records in memory instead of the remote store")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false,
		"Output in JSON format")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(saveCmd)
	rootCmd.AddCommand(searchCmd)
	rootCmd.AddCommand(chaptersCmd)
	rootCmd.AddCommand(summaryCmd)
	rootCmd.AddCommand(watchCmd)
	rootCmd.AddCommand(deleteCmd)
	rootCmd.AddCommand(exportCmd)
}

// clientRuntime is what every client command needs.
type clientRuntime struct {
	cfg    *config.Config
	logger *slog.Logger
	client *codex.Client
}

// openClient loads configuration, builds the stderr logger and the client.
// The caller must Shutdown the client.
func openClient(cmd *cobra.Command) (*clientRuntime, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	logger := newLogger(cmd.ErrOrStderr(), cfg.Log)

	var summarizer summarize.Summarizer
	if cfg.Summary.APIKey != "" {
		summarizer = summarize.NewOpenAI(cfg.Summary.APIKey, cfg.Summary.Model, cfg.Summary.BaseURL)
	}

	client, err := codex.New(codex.Config{
		RemoteURL: cfg.Remote.URL,
		APIKey:    cfg.Remote.APIKey,
		Remote: remote.Options{
			Timeout:       time.Duration(cfg.Remote.Timeout),
			RatePerSecond: cfg.Remote.RatePerSecond,
			Burst:         cfg.Remote.Burst,
		},
		OfflineMode: offlineFlag,
		DraftPath:   cfg.Draft.Path,
		Summarizer:  summarizer,
		SummaryOptions: summarize.Options{
			MaxTokens:   cfg.Summary.MaxTokens,
			Temperature: cfg.Summary.Temperature,
		},
		QuietPeriod:    time.Duration(cfg.Save.QuietPeriod),
		QueryLimit:     cfg.Remote.QueryLimit,
		VerifyDelay:    time.Duration(cfg.Save.VerifyDelay),
		VerifyAttempts: cfg.Save.VerifyAttempts,
		Logger:         logger,
	})
	if err != nil {
		return nil, err
	}
	if novelFlag != "" {
		if err := client.SetNovel(novelFlag); err != nil {
			client.Shutdown()
			return nil, err
		}
	}
	return &clientRuntime{cfg: cfg, logger: logger, client: client}, nil
}

// requireNovel fails when --novel was not given.
func requireNovel() error {
	if novelFlag == "" {
		return fmt.Errorf("--novel is required")
	}
	return nil
}

func newLogger(w io.Writer, cfg config.LogConfig) *slog.Logger {
	opts := &slog.HandlerOptions{Level: parseLogLevel(cfg.Level)}
	if cfg.Format == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

func parseLogLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// printJSON marshals v to JSON and writes to the given writer.
func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(v)
}

// newTabWriter returns a configured tabwriter for aligned columns.
func newTabWriter(w io.Writer) *tabwriter.Writer {
	return tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
}

// readText returns value, or the contents of path when value is empty.
func readText(value, path string) (string, error) {
	if value != "" || path == "" {
		return value, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read %s: %w", path, err)
	}
	return string(data), nil
}
