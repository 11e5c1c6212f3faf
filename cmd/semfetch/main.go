// Package main provides the semfetch binary entry point.
// Semfetch retrieves web content safely for LLM context assembly.
package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"runtime"

	"github.com/spf13/cobra"

	"github.com/c360studio/semfetch/config"
)

const (
	Version   = "0.1.0"
	BuildTime = "dev"
	appName   = "semfetch"
)

func main() {
	defer func() {
		if r := recover(); r != nil {
			buf := make([]byte, 4096)
			n := runtime.Stack(buf, false)
			_, _ = fmt.Fprintf(os.Stderr, "PANIC: %v\nStack trace:\n%s\n", r, string(buf[:n]))
			os.Exit(2)
		}
	}()

	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// globalFlags are shared by every subcommand.
type globalFlags struct {
	configPath string
	logLevel   string
}

func rootCmd() *cobra.Command {
	flags := &globalFlags{}

	cmd := &cobra.Command{
		Use:   appName,
		Short: "Secure URL content retrieval",
		Long: `Semfetch fetches web pages for LLM context assembly.

Every URL is screened before any network access (format, private and
internal hosts, suspicious patterns, homographs, domain policy), then
fetched with per-host rate limiting, caching, retries and size limits,
and normalized to Markdown or plain text.`,
		SilenceUsage: true,
	}

	cmd.PersistentFlags().StringVarP(&flags.configPath, "config", "c", "", "Config file path (YAML); default searches semfetch.yaml upward")
	cmd.PersistentFlags().StringVar(&flags.logLevel, "log-level", "", "Log level (debug, info, warn, error); overrides config")

	cmd.AddCommand(
		fetchCmd(flags),
		validateCmd(flags),
		serveCmd(flags),
		configCmd(flags),
		&cobra.Command{
			Use:   "version",
			Short: "Print version information",
			Run: func(cmd *cobra.Command, args []string) {
				fmt.Fprintf(cmd.OutOrStdout(), "%s version %s (build: %s)\n", appName, Version, BuildTime)
			},
		},
	)

	return cmd
}

// loadedConfig is a resolved configuration and the files it was built from.
type loadedConfig struct {
	cfg     *config.Config
	sources []string

	// loader is set when cfg came from the layered loader rather than --config.
	loader *config.Loader
}

// loadConfig resolves configuration from --config or the layered loader.
func loadConfig(flags *globalFlags, logger *slog.Logger) (*loadedConfig, error) {
	if flags.configPath != "" {
		cfg, err := config.LoadFromFile(flags.configPath)
		if err != nil {
			return nil, err
		}
		if err := cfg.Validate(); err != nil {
			return nil, fmt.Errorf("invalid configuration: %w", err)
		}
		return &loadedConfig{cfg: cfg, sources: []string{flags.configPath}}, nil
	}

	loader := config.NewLoader(logger)
	cfg, err := loader.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	return &loadedConfig{cfg: cfg, sources: loader.Sources(), loader: loader}, nil
}

// newWatcher watches every file the config was built from. It returns nil
// when the config came from defaults alone.
func (l *loadedConfig) newWatcher(onChange func(*config.Config), logger *slog.Logger) (*config.Watcher, error) {
	switch {
	case len(l.sources) == 0:
		return nil, nil
	case l.loader != nil:
		return config.NewLayeredWatcher(l.loader, onChange, logger)
	default:
		return config.NewWatcher(l.sources[0], onChange, logger)
	}
}

// setup loads configuration and builds the logger it describes.
func setup(flags *globalFlags, stderr io.Writer) (*loadedConfig, *slog.Logger, error) {
	bootstrap := slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))
	loaded, err := loadConfig(flags, bootstrap)
	if err != nil {
		return nil, nil, err
	}

	logging := loaded.cfg.Logging
	if flags.logLevel != "" {
		if _, err := config.ParseLevel(flags.logLevel); err != nil {
			return nil, nil, err
		}
		logging.Level = flags.logLevel
	}
	logger := logging.NewLogger(stderr)
	slog.SetDefault(logger)
	return loaded, logger, nil
}
