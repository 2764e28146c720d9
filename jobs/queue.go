// Package jobs runs render requests submitted over the API one at a time.
// The browser is expensive and a batch already owns a whole Chromium
// process, so a single worker drains a bounded queue.
package jobs

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/use-agent/prerender/models"
	"github.com/use-agent/prerender/telemetry"
	"github.com/use-agent/prerender/webhook"
)

// ErrQueueFull is returned by Submit when no slot is free.
var ErrQueueFull = errors.New("jobs: queue full")

// Runner executes one render batch.
type Runner interface {
	Run(ctx context.Context, req *models.CaptureRequest) (*models.BatchReport, error)
}

// Job is a submitted render request and, once finished, its report.
type Job struct {
	ID         string
	Request    models.CaptureRequest
	Status     string
	Report     *models.BatchReport
	Err        error
	CreatedAt  time.Time
	FinishedAt time.Time
}

// Options configures a Queue.
type Options struct {
	Runner Runner

	// Notifier receives batch.completed events. May be nil.
	Notifier *webhook.Notifier

	// Size is the number of jobs that may wait. Default 16.
	Size int

	// Retention is how long finished jobs stay queryable. Default 1h.
	Retention time.Duration

	Logger *slog.Logger
}

// Queue stores jobs and feeds them to a single worker.
type Queue struct {
	runner    Runner
	notifier  *webhook.Notifier
	retention time.Duration
	logger    *slog.Logger

	pending chan *Job
	running atomic.Bool

	mu   sync.RWMutex
	jobs map[string]*Job

	wg sync.WaitGroup
}

// New creates a Queue. Call Start to begin processing.
func New(opts Options) *Queue {
	if opts.Size <= 0 {
		opts.Size = 16
	}
	if opts.Retention <= 0 {
		opts.Retention = time.Hour
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Queue{
		runner:    opts.Runner,
		notifier:  opts.Notifier,
		retention: opts.Retention,
		logger:    opts.Logger,
		pending:   make(chan *Job, opts.Size),
		jobs:      make(map[string]*Job),
	}
}

// Start launches the worker. It stops when ctx is cancelled; a job in
// progress sees the cancellation and ends between pages.
func (q *Queue) Start(ctx context.Context) {
	q.wg.Add(1)
	go func() {
		defer q.wg.Done()
		for {
			select {
			case <-ctx.Done():
				return
			case job := <-q.pending:
				q.run(ctx, job)
			}
		}
	}()
}

// Wait blocks until the worker has stopped.
func (q *Queue) Wait() {
	q.wg.Wait()
}

// Submit enqueues req and returns the queued job.
func (q *Queue) Submit(req models.CaptureRequest) (Job, error) {
	return q.SubmitFunc(req, nil)
}

// SubmitFunc is Submit with a hook that may adjust the request once the
// job id is assigned, e.g. to derive the output directory from it.
func (q *Queue) SubmitFunc(req models.CaptureRequest, prepare func(id string, req *models.CaptureRequest)) (Job, error) {
	q.prune()

	id := uuid.NewString()
	if prepare != nil {
		prepare(id, &req)
	}
	job := &Job{
		ID:        id,
		Request:   req,
		Status:    models.JobQueued,
		CreatedAt: time.Now(),
	}

	q.mu.Lock()
	select {
	case q.pending <- job:
		q.jobs[job.ID] = job
	default:
		q.mu.Unlock()
		return Job{}, ErrQueueFull
	}
	snapshot := *job
	q.mu.Unlock()

	q.logger.Info("render job queued", "id", job.ID, "url", req.URL, "depth", len(q.pending))
	return snapshot, nil
}

// Get returns a copy of the job with the given id.
func (q *Queue) Get(id string) (Job, bool) {
	q.mu.RLock()
	defer q.mu.RUnlock()
	job, ok := q.jobs[id]
	if !ok {
		return Job{}, false
	}
	return *job, true
}

// Depth reports the number of jobs waiting for the worker.
func (q *Queue) Depth() int {
	return len(q.pending)
}

// Running reports whether a job is being rendered.
func (q *Queue) Running() bool {
	return q.running.Load()
}

func (q *Queue) run(ctx context.Context, job *Job) {
	q.running.Store(true)
	defer q.running.Store(false)

	q.setStatus(job, models.JobRunning)
	start := time.Now()

	req := job.Request
	report, err := q.runner.Run(ctx, &req)

	status := models.JobFailed
	if err == nil {
		status = telemetry.BatchOutcome(report)
	}

	q.mu.Lock()
	job.Status = status
	job.Report = report
	job.Err = err
	job.FinishedAt = time.Now()
	q.mu.Unlock()

	attrs := []any{"id", job.ID, "status", status, "elapsed", time.Since(start).Round(time.Millisecond)}
	if err != nil {
		q.logger.Error("render job failed", append(attrs, "error", err)...)
	} else {
		q.logger.Info("render job finished", append(attrs,
			"succeeded", report.Succeeded(),
			"failed", report.Failed(),
		)...)
	}

	q.notifier.Notify(webhook.BatchCompleted(job.ID, job.Request.URL, status, report, err))
}

func (q *Queue) setStatus(job *Job, status string) {
	q.mu.Lock()
	job.Status = status
	q.mu.Unlock()
}

// prune drops finished jobs older than the retention window.
func (q *Queue) prune() {
	cutoff := time.Now().Add(-q.retention)
	q.mu.Lock()
	defer q.mu.Unlock()
	for id, job := range q.jobs {
		if !job.FinishedAt.IsZero() && job.FinishedAt.Before(cutoff) {
			delete(q.jobs, id)
		}
	}
}

// StatusResponse renders job for the API.
func StatusResponse(job Job) models.JobStatusResponse {
	resp := models.JobStatusResponse{
		ID:     job.ID,
		Status: job.Status,
		URL:    job.Request.URL,
	}
	if job.Report != nil {
		resp.Total = len(job.Report.Results)
		resp.Succeeded = job.Report.Succeeded()
		resp.Failed = job.Report.Failed()
		resp.Results = job.Report.Results
	}
	if job.Err != nil {
		var pe *models.PrerenderError
		if errors.As(job.Err, &pe) {
			resp.Error = pe.ToDetail()
		} else {
			resp.Error = &models.ErrorDetail{Code: models.ErrCodeInternal, Message: job.Err.Error()}
		}
	}
	return resp
}
