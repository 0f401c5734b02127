package engine

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/gyaneshwarpardhi/hintscan/internal/metrics"
)

// maxJobs bounds how many finished async jobs are remembered.
const maxJobs = 1024

var (
	// ErrQueueFull is returned when the scan queue has no room.
	ErrQueueFull = errors.New("scan queue full")
	// ErrShutdown is returned after Shutdown.
	ErrShutdown = errors.New("scheduler shut down")
)

// JobStatus is the progress of an async scan.
type JobStatus string

const (
	JobQueued  JobStatus = "queued"
	JobRunning JobStatus = "running"
	JobDone    JobStatus = "done"
)

// Job is a scan submitted through ScanAsync.
type Job struct {
	ID          string    `json:"job_id"`
	Target      string    `json:"target"`
	Status      JobStatus `json:"status"`
	Report      *Report   `json:"report,omitempty"`
	Error       string    `json:"error,omitempty"`
	SubmittedAt time.Time `json:"submitted_at"`
	FinishedAt  time.Time `json:"finished_at,omitempty"`
}

type scanWork struct {
	jobID   string
	target  *url.URL
	opts    ScanOptions
	resultC chan scanResult
}

type scanResult struct {
	report *Report
	err    error
}

// Scheduler runs independent scans on a bounded worker pool. The Engine can
// be swapped on config reload; a queued scan uses the engine current when
// it starts.
type Scheduler struct {
	engine  atomic.Pointer[Engine]
	pool    *workerPool[*scanWork]
	timeout time.Duration

	mu     sync.Mutex
	closed bool
	jobs   map[string]*Job
	order  []string
}

// NewScheduler starts the scan workers sized by the engine's configuration.
func NewScheduler(ctx context.Context, e *Engine) *Scheduler {
	conf := e.Config().Engine
	s := &Scheduler{
		timeout: time.Duration(conf.ScanTimeoutMs) * time.Millisecond,
		jobs:    make(map[string]*Job),
	}
	s.engine.Store(e)
	s.pool = newWorkerPool[*scanWork](ctx, conf.ScanWorkers, conf.QueueDepth, s.process)
	return s
}

// SwapEngine atomically replaces the engine (used on hot-reload).
func (s *Scheduler) SwapEngine(e *Engine) {
	s.engine.Store(e)
}

// Engine returns the current engine.
func (s *Scheduler) Engine() *Engine { return s.engine.Load() }

// ScanSync queues a scan and waits for its report.
func (s *Scheduler) ScanSync(ctx context.Context, target *url.URL, opts ScanOptions) (*Report, error) {
	w := &scanWork{target: target, opts: opts, resultC: make(chan scanResult, 1)}
	if err := s.submit(w); err != nil {
		return nil, err
	}
	select {
	case res := <-w.resultC:
		return res.report, res.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// ScanAsync queues a scan and returns its job. The job can be polled with Job.
func (s *Scheduler) ScanAsync(target *url.URL, opts ScanOptions) (Job, error) {
	job := &Job{
		ID:          uuid.New().String(),
		Target:      target.String(),
		Status:      JobQueued,
		SubmittedAt: time.Now(),
	}
	s.mu.Lock()
	s.remember(job)
	snapshot := *job
	s.mu.Unlock()

	if err := s.submit(&scanWork{jobID: job.ID, target: target, opts: opts}); err != nil {
		s.mu.Lock()
		s.forget(job.ID)
		s.mu.Unlock()
		return Job{}, err
	}
	return snapshot, nil
}

// Job returns a copy of the job with id.
func (s *Scheduler) Job(id string) (Job, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	j, ok := s.jobs[id]
	if !ok {
		return Job{}, false
	}
	return *j, true
}

// QueueUtilization returns queue used / capacity (0–1).
func (s *Scheduler) QueueUtilization() float64 {
	if s.pool.QueueCap() == 0 {
		return 0
	}
	return float64(s.pool.QueueLen()) / float64(s.pool.QueueCap())
}

// Shutdown stops accepting scans and waits for queued ones to finish.
func (s *Scheduler) Shutdown() {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	s.pool.Drain()
}

func (s *Scheduler) submit(w *scanWork) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrShutdown
	}
	if !s.pool.Submit(w) {
		metrics.ScansDropped.Inc()
		return fmt.Errorf("%w (capacity %d)", ErrQueueFull, s.pool.QueueCap())
	}
	metrics.ScansEnqueued.Inc()
	metrics.QueueUtilization.Set(s.QueueUtilization())
	return nil
}

func (s *Scheduler) process(ctx context.Context, w *scanWork) {
	s.update(w.jobID, func(j *Job) { j.Status = JobRunning })

	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}
	rep, err := s.Engine().Scan(ctx, w.target, w.opts)
	metrics.QueueUtilization.Set(s.QueueUtilization())

	s.update(w.jobID, func(j *Job) {
		j.Status = JobDone
		j.Report = rep
		j.FinishedAt = time.Now()
		if err != nil {
			j.Error = err.Error()
		}
	})
	if w.resultC != nil {
		w.resultC <- scanResult{report: rep, err: err}
	}
}

func (s *Scheduler) update(id string, fn func(*Job)) {
	if id == "" {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if j, ok := s.jobs[id]; ok {
		fn(j)
	}
}

// remember stores job, evicting the oldest finished jobs beyond maxJobs.
// Callers hold s.mu.
func (s *Scheduler) remember(job *Job) {
	s.jobs[job.ID] = job
	s.order = append(s.order, job.ID)
	for len(s.order) > maxJobs {
		oldest := s.jobs[s.order[0]]
		if oldest != nil && oldest.Status != JobDone {
			break
		}
		delete(s.jobs, s.order[0])
		s.order = s.order[1:]
	}
}

func (s *Scheduler) forget(id string) {
	delete(s.jobs, id)
	for i, v := range s.order {
		if v == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			return
		}
	}
}
