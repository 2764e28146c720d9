package jobs

import (
	"context"
	"io"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/use-agent/prerender/models"
)

var discard = slog.New(slog.NewTextHandler(io.Discard, nil))

type fakeRunner struct {
	active  atomic.Int32
	overlap atomic.Bool
	release chan struct{}
	fn      func(req *models.CaptureRequest) (*models.BatchReport, error)
}

func (r *fakeRunner) Run(_ context.Context, req *models.CaptureRequest) (*models.BatchReport, error) {
	if r.active.Add(1) > 1 {
		r.overlap.Store(true)
	}
	defer r.active.Add(-1)
	if r.release != nil {
		<-r.release
	}
	return r.fn(req)
}

func report(results ...bool) *models.BatchReport {
	rep := models.NewBatchReport()
	for _, ok := range results {
		rep.Append(models.PageResult{Succeeded: ok})
	}
	return rep
}

func waitStatus(t *testing.T, q *Queue, id, status string) Job {
	t.Helper()
	var job Job
	require.Eventually(t, func() bool {
		var ok bool
		job, ok = q.Get(id)
		return ok && job.Status == status
	}, 2*time.Second, 5*time.Millisecond)
	return job
}

func TestJobLifecycle(t *testing.T) {
	runner := &fakeRunner{fn: func(*models.CaptureRequest) (*models.BatchReport, error) {
		return report(true, false), nil
	}}
	q := New(Options{Runner: runner, Logger: discard})
	ctx, cancel := context.WithCancel(context.Background())
	defer func() { cancel(); q.Wait() }()
	q.Start(ctx)

	job, err := q.Submit(models.CaptureRequest{URL: "https://site.test/"})
	require.NoError(t, err)
	assert.Equal(t, models.JobQueued, job.Status)
	assert.NotEmpty(t, job.ID)

	done := waitStatus(t, q, job.ID, models.JobPartial)
	resp := StatusResponse(done)
	assert.Equal(t, 2, resp.Total)
	assert.Equal(t, 1, resp.Succeeded)
	assert.Equal(t, 1, resp.Failed)
	assert.Nil(t, resp.Error)
}

func TestJobFailure(t *testing.T) {
	runner := &fakeRunner{fn: func(*models.CaptureRequest) (*models.BatchReport, error) {
		return nil, models.NewError(models.ErrCodeMalformedSitemap, "no <url> entries", nil)
	}}
	q := New(Options{Runner: runner, Logger: discard})
	ctx, cancel := context.WithCancel(context.Background())
	defer func() { cancel(); q.Wait() }()
	q.Start(ctx)

	job, err := q.Submit(models.CaptureRequest{URL: "https://site.test/sitemap.xml"})
	require.NoError(t, err)

	resp := StatusResponse(waitStatus(t, q, job.ID, models.JobFailed))
	require.NotNil(t, resp.Error)
	assert.Equal(t, models.ErrCodeMalformedSitemap, resp.Error.Code)
}

func TestJobsRunOneAtATime(t *testing.T) {
	runner := &fakeRunner{
		release: make(chan struct{}),
		fn: func(*models.CaptureRequest) (*models.BatchReport, error) {
			return report(true), nil
		},
	}
	q := New(Options{Runner: runner, Logger: discard})
	ctx, cancel := context.WithCancel(context.Background())
	defer func() { cancel(); q.Wait() }()
	q.Start(ctx)

	var ids []string
	for range 3 {
		job, err := q.Submit(models.CaptureRequest{URL: "https://site.test/"})
		require.NoError(t, err)
		ids = append(ids, job.ID)
	}

	waitStatus(t, q, ids[0], models.JobRunning)
	assert.True(t, q.Running())
	assert.Equal(t, 2, q.Depth())

	for range 3 {
		runner.release <- struct{}{}
	}
	for _, id := range ids {
		waitStatus(t, q, id, models.JobCompleted)
	}
	assert.False(t, runner.overlap.Load())
}

func TestQueueFull(t *testing.T) {
	q := New(Options{Runner: &fakeRunner{}, Size: 1, Logger: discard})

	_, err := q.Submit(models.CaptureRequest{URL: "https://site.test/1"})
	require.NoError(t, err)
	_, err = q.Submit(models.CaptureRequest{URL: "https://site.test/2"})
	assert.ErrorIs(t, err, ErrQueueFull)
}

func TestUnknownJob(t *testing.T) {
	q := New(Options{Runner: &fakeRunner{}, Logger: discard})
	_, ok := q.Get("missing")
	assert.False(t, ok)
}

func TestPruneFinishedJobs(t *testing.T) {
	q := New(Options{Runner: &fakeRunner{}, Retention: time.Minute, Logger: discard})
	q.jobs["old"] = &Job{ID: "old", Status: models.JobCompleted, FinishedAt: time.Now().Add(-time.Hour)}
	q.jobs["fresh"] = &Job{ID: "fresh", Status: models.JobCompleted, FinishedAt: time.Now()}
	q.jobs["queued"] = &Job{ID: "queued", Status: models.JobQueued}

	q.prune()

	_, ok := q.Get("old")
	assert.False(t, ok)
	_, ok = q.Get("fresh")
	assert.True(t, ok)
	_, ok = q.Get("queued")
	assert.True(t, ok)
}
