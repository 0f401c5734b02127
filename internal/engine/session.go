package engine

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"sync"

	"github.com/google/uuid"

	"github.com/gyaneshwarpardhi/hintscan/internal/bus"
	"github.com/gyaneshwarpardhi/hintscan/internal/config"
	"github.com/gyaneshwarpardhi/hintscan/internal/connector"
	"github.com/gyaneshwarpardhi/hintscan/internal/dom"
	"github.com/gyaneshwarpardhi/hintscan/internal/event"
	"github.com/gyaneshwarpardhi/hintscan/internal/hint"
	"github.com/gyaneshwarpardhi/hintscan/internal/problem"
)

// session is the state of one scan. It implements hint.Host; connectors and
// parsers get an ownerView of it.
type session struct {
	id        string
	target    *url.URL
	engine    *Engine
	logger    *slog.Logger
	bus       *bus.Bus
	collector *problem.Collector
	conn      connector.Connector

	mu     sync.Mutex
	state  State
	faults []*bus.Fault
	// categories of the instantiated hints, for synthetic fault problems
	categories map[string]problem.Category
}

func newSession(e *Engine, target *url.URL) *session {
	id := uuid.New().String()
	s := &session{
		id:         id,
		target:     target,
		engine:     e,
		logger:     e.logger.With("scan_id", id),
		collector:  problem.NewCollector(),
		state:      StateIdle,
		categories: make(map[string]problem.Category),
	}
	s.bus = bus.New(bus.Options{
		Logger:          s.logger,
		ListenerTimeout: e.timeout,
		OnFault:         s.onFault,
	})
	return s
}

func (s *session) targetString() string {
	if s.target == nil {
		return ""
	}
	return s.target.String()
}

func (s *session) setState(st State) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = st
}

// run instantiates the collaborators in order (connector, parsers, hints),
// hands the target to the connector and settles the bus afterwards.
func (s *session) run(ctx context.Context, opts ScanOptions) (err error) {
	e := s.engine
	defer func() {
		s.bus.Close()
		s.bus.Wait()
		if s.conn != nil {
			if cerr := s.conn.Close(); cerr != nil {
				s.logger.Warn("connector close failed", "err", cerr)
			}
		}
		if err != nil {
			s.setState(StateFailed)
		} else {
			s.setState(StateFinished)
		}
	}()

	conn, err := e.conn.New(s.view("connector:"+e.conn.Name), e.cfg.Connector.Options)
	if err != nil {
		return fmt.Errorf("connector %s: %w", e.conn.Name, err)
	}
	s.conn = conn

	for _, p := range e.parsers {
		if _, err := p.New(s.view("parser:" + p.Name)); err != nil {
			return fmt.Errorf("parser %s: %w", p.Name, err)
		}
	}

	for _, h := range e.hints {
		meta := h.def.Meta
		if !meta.Scope.AppliesTo(e.conn.Local) {
			s.logger.Info("hint skipped for connector", "hint", meta.ID, "scope", meta.Scope, "connector", e.conn.Name)
			continue
		}
		c := hint.NewContext(meta, hint.Settings{
			Severity:         h.resolved.Severity,
			Options:          h.resolved.Options,
			TargetedBrowsers: e.cfg.Browserslist,
			Language:         e.cfg.Language,
			Logger:           s.logger,
		}, s)
		if _, err := h.def.New(c); err != nil {
			return &config.HintError{HintID: meta.ID, Err: err}
		}
		s.mu.Lock()
		s.categories[meta.ID] = meta.Docs.Category
		s.mu.Unlock()
	}

	var fo *connector.FetchOptions
	if opts.Content != "" {
		fo = &connector.FetchOptions{Content: opts.Content}
	}
	s.setState(StateScanning)
	s.logger.Info("scan started", "target", s.targetString(), "hints", len(s.categories))
	return conn.Collect(ctx, s.target, fo)
}

func (s *session) report() *Report {
	s.mu.Lock()
	faults := append([]*bus.Fault{}, s.faults...)
	state := s.state
	s.mu.Unlock()
	problems := s.collector.Problems()
	if problems == nil {
		problems = []problem.Problem{}
	}
	return &Report{
		ScanID:   s.id,
		Target:   s.targetString(),
		State:    state,
		Problems: problems,
		Faults:   faults,
	}
}

func (s *session) onFault(f *bus.Fault) {
	id, fromHint := hint.OwnerID(f.Owner)
	s.mu.Lock()
	s.faults = append(s.faults, f)
	category, known := s.categories[id]
	s.mu.Unlock()

	if !s.engine.cfg.ReportListenerFaults || !fromHint {
		return
	}
	if !known {
		category = problem.CategoryOther
	}
	resource := f.Resource
	if resource == "" {
		resource = s.targetString()
	}
	s.collector.Add(problem.Problem{
		Resource: resource,
		HintID:   id,
		Category: category,
		Severity: problem.Error,
		Message:  fmt.Sprintf("%s failed on %s: %v", id, f.Event, f.Err),
		Location: problem.UnknownLocation,
	})
}

// notify delivers the current problem snapshot after a watch cycle.
func (s *session) notify(resource string) {
	s.setState(StateWatching)
	if s.engine.onReport == nil {
		return
	}
	rep := s.report()
	s.logger.Debug("watch cycle done", "resource", resource, "problems", len(rep.Problems))
	s.engine.onReport(*rep)
}

// hint.Host

func (s *session) Subscribe(owner, pattern string, l bus.Listener) error {
	return s.bus.Subscribe(owner, pattern, l)
}

func (s *session) Report(p problem.Problem) bool { return s.collector.Add(p) }

func (s *session) Ignored(hintID, resource string) bool {
	return s.engine.isIgnored(hintID, resource)
}

func (s *session) FetchContent(ctx context.Context, target string, headers http.Header, opts *connector.FetchOptions) (*connector.NetworkData, error) {
	return s.conn.FetchContent(ctx, target, headers, opts)
}

func (s *session) Evaluate(ctx context.Context, script string) (interface{}, error) {
	return s.conn.Evaluate(ctx, script)
}

func (s *session) QuerySelectorAll(selector string) ([]*dom.Element, error) {
	return s.conn.QuerySelectorAll(selector)
}

func (s *session) DOM() *dom.Document {
	if dp, ok := s.conn.(connector.DOMProvider); ok {
		return dp.DOM()
	}
	return nil
}

// ownerView is the connector.Host handed to one connector or parser. Its
// subscriptions are tagged with the owner so faults can be attributed.
type ownerView struct {
	s      *session
	owner  string
	logger *slog.Logger
}

func (s *session) view(owner string) *ownerView {
	return &ownerView{s: s, owner: owner, logger: s.logger.With("owner", owner)}
}

func (v *ownerView) On(pattern string, l bus.Listener) error {
	return v.s.bus.Subscribe(v.owner, pattern, l)
}

func (v *ownerView) Emit(ctx context.Context, name string, payload event.Payload) bool {
	return v.s.bus.Emit(ctx, name, payload)
}

func (v *ownerView) EmitAsync(ctx context.Context, name string, payload event.Payload) error {
	return v.s.bus.EmitAsync(ctx, name, payload)
}

func (v *ownerView) Clean(resource string) {
	n := v.s.collector.Clean(resource)
	v.logger.Debug("problems cleaned", "resource", resource, "removed", n)
}

func (v *ownerView) Clear() { v.s.collector.Clear() }

func (v *ownerView) Notify(_ context.Context, resource string) { v.s.notify(resource) }

func (v *ownerView) Language() string { return v.s.engine.cfg.Language }

func (v *ownerView) Logger() *slog.Logger { return v.logger }
