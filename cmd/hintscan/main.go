package main

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/gyaneshwarpardhi/hintscan/internal/builtin"
	"github.com/gyaneshwarpardhi/hintscan/internal/config"
)

// version is overridden at build time via -ldflags.
var version = "0.1.0-dev"

// defaultConfigFile is picked up from the working directory when --config
// is not given.
const defaultConfigFile = ".hintrc"

// errProblemsFound makes the process exit non-zero without printing an
// error; the report already explains it.
var errProblemsFound = errors.New("problems found")

var rootCmd = &cobra.Command{
	Use:           "hintscan",
	Short:         "Audit web resources against a set of configurable hints",
	Long:          `hintscan loads a target through a connector, parses what it fetched and runs hints over the resulting events, reporting the problems they find.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
		return setupLogging(cmd)
	},
}

func init() {
	rootCmd.Version = version

	rootCmd.AddCommand(scanCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(hintsCmd)

	rootCmd.PersistentFlags().StringP("config", "c", "", "path to a YAML, TOML or JSON config file (default ./"+defaultConfigFile+" when present)")
	rootCmd.PersistentFlags().String("log-level", "warn", "log level (debug|info|warn|error)")
	rootCmd.PersistentFlags().String("log-format", "text", "log format (text|json)")
	rootCmd.PersistentFlags().String("color", "auto", "colorize output (auto|on|off)")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		if !errors.Is(err, errProblemsFound) {
			fmt.Fprintln(os.Stderr, color.RedString("error: %v", err))
		}
		os.Exit(1)
	}
}

func setupLogging(cmd *cobra.Command) error {
	flags := cmd.Root().PersistentFlags()
	levelName, _ := flags.GetString("log-level")
	format, _ := flags.GetString("log-format")
	colorMode, _ := flags.GetString("color")

	var level slog.Level
	if err := level.UnmarshalText([]byte(levelName)); err != nil {
		return fmt.Errorf("invalid --log-level %q: %w", levelName, err)
	}
	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	switch strings.ToLower(format) {
	case "text":
		handler = slog.NewTextHandler(os.Stderr, opts)
	case "json":
		handler = slog.NewJSONHandler(os.Stderr, opts)
	default:
		return fmt.Errorf("invalid --log-format %q (want text or json)", format)
	}
	slog.SetDefault(slog.New(handler))

	switch colorMode {
	case "on":
		color.NoColor = false
	case "off":
		color.NoColor = true
	case "auto":
	default:
		return fmt.Errorf("invalid --color %q (want auto, on or off)", colorMode)
	}
	return nil
}

// configPath returns the --config value, or the default file when it exists.
func configPath(cmd *cobra.Command) string {
	path, _ := cmd.Root().PersistentFlags().GetString("config")
	if path != "" {
		return path
	}
	if _, err := os.Stat(defaultConfigFile); err == nil {
		return defaultConfigFile
	}
	return ""
}

// loadConfig reads the config file, or enables every bundled hint when there
// is none.
func loadConfig(cmd *cobra.Command, set *builtin.Set) (*config.Config, *config.Loader, error) {
	path := configPath(cmd)
	if path == "" {
		slog.Debug("no config file, using bundled defaults")
		return set.DefaultConfig(), nil, nil
	}
	loader, err := config.NewLoader(path, slog.Default())
	if err != nil {
		return nil, nil, err
	}
	return loader.Config(), loader, nil
}
