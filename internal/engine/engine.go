package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"regexp"
	"time"

	"github.com/gyaneshwarpardhi/hintscan/internal/bus"
	"github.com/gyaneshwarpardhi/hintscan/internal/config"
	"github.com/gyaneshwarpardhi/hintscan/internal/connector"
	"github.com/gyaneshwarpardhi/hintscan/internal/hint"
	"github.com/gyaneshwarpardhi/hintscan/internal/metrics"
	"github.com/gyaneshwarpardhi/hintscan/internal/parser"
	"github.com/gyaneshwarpardhi/hintscan/internal/problem"
)

// DefaultSeverityKeyword selects a hint's own default severity in config.
const DefaultSeverityKeyword = "default"

// State is the lifecycle position of a scan session.
type State string

const (
	StateIdle     State = "idle"
	StateScanning State = "scanning"
	StateWatching State = "watching"
	StateFinished State = "finished"
	StateFailed   State = "failed"
)

// Report is the outcome of one scan.
type Report struct {
	ScanID   string            `json:"scan_id"`
	Target   string            `json:"target"`
	State    State             `json:"state"`
	Problems []problem.Problem `json:"problems"`
	Faults   []*bus.Fault      `json:"faults"`
	Duration time.Duration     `json:"duration_ns"`
	Error    string            `json:"error,omitempty"`
}

// Options wires the registries an Engine draws its collaborators from.
type Options struct {
	Hints      *hint.Registry
	Connectors *connector.Registry
	Parsers    *parser.Registry
	Logger     *slog.Logger
	// OnReport receives a problem snapshot every time a watching connector
	// finishes a cycle.
	OnReport func(Report)
}

// ScanOptions tweaks a single scan.
type ScanOptions struct {
	// Content is analyzed instead of the target's bytes when the target is
	// a single resource.
	Content string
}

type activeHint struct {
	def      hint.Definition
	resolved config.Resolved
}

type ignoreRule struct {
	re    *regexp.Regexp
	all   bool
	hints map[string]bool
}

// Engine holds a validated configuration and runs scans against it. It is
// immutable after New and safe for concurrent Scan calls; each scan gets its
// own bus, connector, parsers and hint instances.
type Engine struct {
	cfg      *config.Config
	opts     Options
	logger   *slog.Logger
	conn     connector.Definition
	parsers  []parser.Definition
	hints    []activeHint
	ignored  []ignoreRule
	timeout  time.Duration
	onReport func(Report)
}

// New validates cfg and resolves every hint configuration. Any
// misconfiguration is returned here, before a scan can emit an event.
func New(cfg *config.Config, opts Options) (*Engine, error) {
	if opts.Hints == nil || opts.Connectors == nil || opts.Parsers == nil {
		return nil, errors.New("engine: hint, connector and parser registries are required")
	}
	if err := config.Validate(cfg); err != nil {
		return nil, err
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	e := &Engine{
		cfg:      cfg,
		opts:     opts,
		logger:   logger,
		timeout:  time.Duration(cfg.HintsTimeoutMs) * time.Millisecond,
		onReport: opts.OnReport,
	}

	var err error
	if e.conn, err = opts.Connectors.Get(cfg.Connector.Name); err != nil {
		return nil, fmt.Errorf("engine: %w", err)
	}
	for _, name := range cfg.Parsers {
		def, err := opts.Parsers.Get(name)
		if err != nil {
			return nil, fmt.Errorf("engine: %w", err)
		}
		e.parsers = append(e.parsers, def)
	}

	resolved, err := config.ResolveAll(e.expandDefaults(cfg.Hints), opts.Hints.Schemas)
	if err != nil {
		return nil, err
	}
	for _, r := range resolved {
		if r.Severity == problem.Off {
			continue
		}
		def, err := opts.Hints.Get(r.ID)
		if err != nil {
			return nil, fmt.Errorf("engine: %w", err)
		}
		e.hints = append(e.hints, activeHint{def: def, resolved: r})
	}

	for _, ig := range cfg.IgnoredURLs {
		rule := ignoreRule{re: regexp.MustCompile(ig.Pattern), hints: make(map[string]bool)}
		for _, id := range ig.Hints {
			if id == "*" {
				rule.all = true
			}
			rule.hints[id] = true
		}
		e.ignored = append(e.ignored, rule)
	}
	return e, nil
}

// expandDefaults replaces the "default" severity keyword with the hint's
// declared default severity.
func (e *Engine) expandDefaults(hints map[string]interface{}) map[string]interface{} {
	out := make(map[string]interface{}, len(hints))
	for id, raw := range hints {
		out[id] = raw
		def, err := e.opts.Hints.Get(id)
		if err != nil {
			// ResolveAll reports unknown hints.
			continue
		}
		switch v := raw.(type) {
		case string:
			if v == DefaultSeverityKeyword {
				out[id] = def.Meta.DefaultSeverity
			}
		case []interface{}:
			if len(v) > 0 && v[0] == DefaultSeverityKeyword {
				cp := append([]interface{}(nil), v...)
				cp[0] = def.Meta.DefaultSeverity
				out[id] = cp
			}
		}
	}
	return out
}

// Config returns the configuration the engine was built from.
func (e *Engine) Config() *config.Config { return e.cfg }

// Hints returns the ids and severities of the hints that will run, in
// instantiation order. Hints configured off are not included.
func (e *Engine) Hints() []config.Resolved {
	out := make([]config.Resolved, 0, len(e.hints))
	for _, h := range e.hints {
		out = append(out, h.resolved)
	}
	return out
}

func (e *Engine) isIgnored(hintID, resource string) bool {
	for _, rule := range e.ignored {
		if (rule.all || rule.hints[hintID]) && rule.re.MatchString(resource) {
			return true
		}
	}
	return false
}

// Scan runs one scan of target and returns its report. The error is non-nil
// when the scan could not run to completion: a collaborator failed to set
// up, the connector rejected the target, or ctx ended. The report is always
// returned and carries whatever was collected.
func (e *Engine) Scan(ctx context.Context, target *url.URL, opts ScanOptions) (*Report, error) {
	start := time.Now()
	s := newSession(e, target)
	err := s.run(ctx, opts)

	rep := s.report()
	rep.Duration = time.Since(start)
	status := string(rep.State)
	if err != nil {
		rep.Error = err.Error()
	}
	metrics.ScansTotal.WithLabelValues(status).Inc()
	metrics.ScanDuration.Observe(float64(rep.Duration.Milliseconds()))
	dispatched, _ := s.bus.Stats()
	e.logger.Info("scan done", "scan_id", rep.ScanID, "target", rep.Target, "state", rep.State,
		"problems", len(rep.Problems), "faults", len(rep.Faults), "listener_calls", dispatched,
		"duration", rep.Duration)
	return rep, err
}
