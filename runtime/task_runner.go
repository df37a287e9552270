package runtime

import (
	"context"
	"errors"
	"log/slog"
	"time"
	"youcube/contract"
	"youcube/domain"
	errs "youcube/errors"
	"youcube/runtime/workers"

	"golang.org/x/sync/singleflight"
)

var _ contract.ITaskRunner = (*TaskRunner)(nil)

// TaskRunner hands blocking downloads to a pool of DownloadWorker so that
// connection loops only wait on a channel.
// Identical requests submitted while one is running share its result.
type TaskRunner struct {
	log     *slog.Logger
	jobs    chan workers.DownloadJob
	timeout time.Duration
	group   singleflight.Group
}

func NewTaskRunner(log *slog.Logger, queueSize int, timeout time.Duration) *TaskRunner {
	return &TaskRunner{
		log:     log,
		jobs:    make(chan workers.DownloadJob, queueSize),
		timeout: timeout,
	}
}

// Workers builds the pool consuming this runner's queue, to be run under a supervisor.
func (r *TaskRunner) Workers(downloader contract.Downloader, count int) []contract.Worker {
	pool := make([]contract.Worker, 0, count)
	for i := 0; i < count; i++ {
		pool = append(pool, workers.NewDownloadWorker(r.log.With("worker", i), r.jobs, downloader))
	}
	return pool
}

// Pending returns the number of queued jobs not yet picked by a worker.
func (r *TaskRunner) Pending() int {
	return len(r.jobs)
}

// Submit blocks the caller, not the process, until the download completes,
// the runner timeout elapses or ctx is canceled.
// The shared execution is detached from ctx so a caller leaving does not
// abort a download other callers may be waiting for.
func (r *TaskRunner) Submit(ctx context.Context, req domain.DownloadRequest, progress contract.ProgressSink) (domain.DownloadResult, error) {
	ch := r.group.DoChan(req.Key(), func() (any, error) {
		return r.execute(context.WithoutCancel(ctx), req, progress)
	})

	select {
	case res := <-ch:
		if res.Shared {
			r.log.Debug("Download result shared", "url", req.URL)
		}
		if res.Err != nil {
			return domain.DownloadResult{}, res.Err
		}
		return res.Val.(domain.DownloadResult), nil
	case <-ctx.Done():
		return domain.DownloadResult{}, ctx.Err()
	}
}

func (r *TaskRunner) execute(ctx context.Context, req domain.DownloadRequest, progress contract.ProgressSink) (domain.DownloadResult, error) {
	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	job := workers.NewDownloadJob(ctx, req, progress)
	select {
	case r.jobs <- job:
	default:
		r.log.Warn("Download queue is full", "capacity", cap(r.jobs))
		return domain.DownloadResult{}, errs.ErrQueueFull
	}

	select {
	case outcome := <-job.Reply():
		if errors.Is(outcome.Err, context.DeadlineExceeded) {
			return domain.DownloadResult{}, errs.ErrDownloadTimeout
		}
		return outcome.Result, outcome.Err
	case <-ctx.Done():
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return domain.DownloadResult{}, errs.ErrDownloadTimeout
		}
		return domain.DownloadResult{}, ctx.Err()
	}
}
