package engine_test

import (
	"context"
	"errors"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gyaneshwarpardhi/hintscan/internal/config"
	"github.com/gyaneshwarpardhi/hintscan/internal/connector"
	"github.com/gyaneshwarpardhi/hintscan/internal/engine"
	"github.com/gyaneshwarpardhi/hintscan/internal/event"
	"github.com/gyaneshwarpardhi/hintscan/internal/hint"
)

func schedulerEngine(t *testing.T, sc script, conf config.EngineConf) *engine.Engine {
	t.Helper()
	reporter := defineHint("reporter", hint.ScopeAny, func(c *hint.Context) error {
		return c.On("scan::end", func(_ context.Context, _ event.Name, p event.Payload) error {
			c.Report(p.ResourceURL(), "done")
			return nil
		})
	})
	f := newFixture(false, sc, reporter)
	cfg := testConfig(map[string]interface{}{"reporter": "warning"})
	cfg.Engine = conf
	e, err := engine.New(cfg, f.opts)
	require.NoError(t, err)
	return e
}

func TestScheduler_ScanSync(t *testing.T) {
	s := engine.NewScheduler(context.Background(), schedulerEngine(t, lifecycle, config.EngineConf{ScanWorkers: 2, QueueDepth: 4}))
	defer s.Shutdown()

	rep, err := s.ScanSync(context.Background(), target, engine.ScanOptions{})
	require.NoError(t, err)
	assert.Equal(t, engine.StateFinished, rep.State)
	require.Len(t, rep.Problems, 1)
	assert.Equal(t, "done", rep.Problems[0].Message)
}

func TestScheduler_ScanAsyncJobCompletes(t *testing.T) {
	s := engine.NewScheduler(context.Background(), schedulerEngine(t, lifecycle, config.EngineConf{ScanWorkers: 1, QueueDepth: 4}))
	defer s.Shutdown()

	job, err := s.ScanAsync(target, engine.ScanOptions{})
	require.NoError(t, err)
	assert.NotEmpty(t, job.ID)
	assert.Equal(t, "http://localhost/", job.Target)

	require.Eventually(t, func() bool {
		j, ok := s.Job(job.ID)
		return ok && j.Status == engine.JobDone
	}, 2*time.Second, 10*time.Millisecond)

	j, _ := s.Job(job.ID)
	require.NotNil(t, j.Report)
	assert.Len(t, j.Report.Problems, 1)
	assert.Empty(t, j.Error)
	assert.False(t, j.FinishedAt.IsZero())

	_, ok := s.Job("missing")
	assert.False(t, ok)
}

func TestScheduler_QueueFull(t *testing.T) {
	started := make(chan struct{}, 1)
	release := make(chan struct{})
	blocking := func(ctx context.Context, h connector.Host, u *url.URL) error {
		started <- struct{}{}
		<-release
		return lifecycle(ctx, h, u)
	}
	s := engine.NewScheduler(context.Background(), schedulerEngine(t, blocking, config.EngineConf{ScanWorkers: 1, QueueDepth: 1}))

	first, err := s.ScanAsync(target, engine.ScanOptions{})
	require.NoError(t, err)
	<-started

	_, err = s.ScanAsync(target, engine.ScanOptions{})
	require.NoError(t, err)
	assert.Equal(t, 1.0, s.QueueUtilization())

	_, err = s.ScanAsync(target, engine.ScanOptions{})
	assert.True(t, errors.Is(err, engine.ErrQueueFull))

	j, ok := s.Job(first.ID)
	require.True(t, ok)
	assert.Equal(t, engine.JobRunning, j.Status)

	close(release)
	s.Shutdown()
	j, _ = s.Job(first.ID)
	assert.Equal(t, engine.JobDone, j.Status)

	_, err = s.ScanSync(context.Background(), target, engine.ScanOptions{})
	assert.True(t, errors.Is(err, engine.ErrShutdown))
}

func TestScheduler_ScanTimeout(t *testing.T) {
	waitForCancel := func(ctx context.Context, _ connector.Host, _ *url.URL) error {
		<-ctx.Done()
		return ctx.Err()
	}
	s := engine.NewScheduler(context.Background(), schedulerEngine(t, waitForCancel,
		config.EngineConf{ScanWorkers: 1, QueueDepth: 1, ScanTimeoutMs: 20}))
	defer s.Shutdown()

	rep, err := s.ScanSync(context.Background(), target, engine.ScanOptions{})
	assert.True(t, errors.Is(err, context.DeadlineExceeded))
	require.NotNil(t, rep)
	assert.Equal(t, engine.StateFailed, rep.State)
}

func TestScheduler_SwapEngine(t *testing.T) {
	first := schedulerEngine(t, lifecycle, config.EngineConf{ScanWorkers: 1, QueueDepth: 1})
	s := engine.NewScheduler(context.Background(), first)
	defer s.Shutdown()

	f := newFixture(false, lifecycle)
	second, err := engine.New(testConfig(nil), f.opts)
	require.NoError(t, err)
	s.SwapEngine(second)
	assert.Same(t, second, s.Engine())

	rep, err := s.ScanSync(context.Background(), target, engine.ScanOptions{})
	require.NoError(t, err)
	assert.Empty(t, rep.Problems)
}
