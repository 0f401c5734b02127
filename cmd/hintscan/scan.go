package main

import (
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/gyaneshwarpardhi/hintscan/internal/builtin"
	"github.com/gyaneshwarpardhi/hintscan/internal/connector"
	"github.com/gyaneshwarpardhi/hintscan/internal/connector/local"
	"github.com/gyaneshwarpardhi/hintscan/internal/engine"
	"github.com/gyaneshwarpardhi/hintscan/internal/formatter"
	"github.com/gyaneshwarpardhi/hintscan/internal/problem"
)

var scanCmd = &cobra.Command{
	Use:   "scan [flags] <path|url>",
	Short: "Scan a file, a directory or a URL",
	Long:  `Scan runs the configured hints over the target and prints the problems found. It exits non-zero when a problem has error severity.`,
	Args:  cobra.ExactArgs(1),
	RunE:  runScan,
}

func init() {
	scanCmd.Flags().StringP("format", "f", formatter.NameStylish, "output format (stylish|json|summary)")
	scanCmd.Flags().BoolP("watch", "w", false, "keep watching the target and rescan on changes (local connector)")
	scanCmd.Flags().String("content", "", "analyze this content instead of the target's bytes")
	scanCmd.Flags().String("connector", "", "connector to load the target with (default: from the config file, else picked by target)")
}

func runScan(cmd *cobra.Command, args []string) error {
	formatName, _ := cmd.Flags().GetString("format")
	watch, _ := cmd.Flags().GetBool("watch")
	content, _ := cmd.Flags().GetString("content")
	connectorName, _ := cmd.Flags().GetString("connector")

	out, err := formatter.Get(formatName)
	if err != nil {
		return err
	}
	target, err := connector.ParseTarget(args[0])
	if err != nil {
		return err
	}

	set := builtin.New()
	cfg, loader, err := loadConfig(cmd, set)
	if err != nil {
		return err
	}
	switch {
	case connectorName != "":
		cfg.Connector.Name = connectorName
	case loader == nil:
		cfg.Connector.Name = builtin.ConnectorFor(target)
	}
	if watch {
		if cfg.Connector.Name != local.Name {
			return fmt.Errorf("--watch needs the %s connector, the scan uses %q", local.Name, cfg.Connector.Name)
		}
		if cfg.Connector.Options == nil {
			cfg.Connector.Options = make(map[string]interface{})
		}
		cfg.Connector.Options["watch"] = true
	}

	w := cmd.OutOrStdout()
	var printMu sync.Mutex
	onReport := func(rep engine.Report) {
		printMu.Lock()
		defer printMu.Unlock()
		if err := out.Format(w, &rep); err != nil {
			slog.Error("format report", "err", err)
		}
	}
	e, err := set.Engine(cfg, slog.Default(), onReport)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if watch {
		fmt.Fprintln(cmd.ErrOrStderr(), "watching for changes, press Ctrl+C to stop")
	}

	rep, err := e.Scan(ctx, target, engine.ScanOptions{Content: content})
	if err != nil {
		if watch && ctx.Err() != nil {
			return nil
		}
		return err
	}
	if watch {
		// snapshots were printed as they came
		return nil
	}
	if err := out.Format(w, rep); err != nil {
		return err
	}
	return exitStatus(rep)
}

func exitStatus(rep *engine.Report) error {
	for _, p := range rep.Problems {
		if p.Severity == problem.Error {
			return errProblemsFound
		}
	}
	return nil
}
