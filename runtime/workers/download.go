package workers

import (
	"context"
	"fmt"
	"log/slog"
	"youcube/contract"
	"youcube/domain"
	"youcube/errors"
)

var _ contract.Worker = (*DownloadWorker)(nil)

// DownloadJob is one blocking download handed to the worker pool.
// The submitter waits on Reply.
type DownloadJob struct {
	Ctx      context.Context
	Request  domain.DownloadRequest
	Progress contract.ProgressSink
	reply    chan DownloadOutcome
}

type DownloadOutcome struct {
	Result domain.DownloadResult
	Err    error
}

func NewDownloadJob(ctx context.Context, req domain.DownloadRequest, progress contract.ProgressSink) DownloadJob {
	return DownloadJob{Ctx: ctx, Request: req, Progress: progress, reply: make(chan DownloadOutcome, 1)}
}

func (j DownloadJob) Reply() <-chan DownloadOutcome {
	return j.reply
}

// complete never blocks, reply is buffered and written once.
func (j DownloadJob) complete(result domain.DownloadResult, err error) {
	j.reply <- DownloadOutcome{Result: result, Err: err}
}

// DownloadWorker executes download jobs one at a time.
// Several workers share the same jobs channel to form the pool.
type DownloadWorker struct {
	log        *slog.Logger
	jobs       <-chan DownloadJob
	downloader contract.Downloader
}

func NewDownloadWorker(log *slog.Logger, jobs <-chan DownloadJob, downloader contract.Downloader) *DownloadWorker {
	return &DownloadWorker{log: log, jobs: jobs, downloader: downloader}
}

func (w *DownloadWorker) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			w.log.Debug("Stopping download worker")
			return ctx.Err()
		case job, ok := <-w.jobs:
			if !ok {
				w.log.Debug("Channel is closed")
				return nil
			}
			w.handle(job)
		}
	}
}

func (w *DownloadWorker) handle(job DownloadJob) {
	if err := job.Ctx.Err(); err != nil {
		w.log.Debug("Skipping abandoned download", "url", job.Request.URL)
		job.complete(domain.DownloadResult{}, err)
		return
	}

	defer func() {
		if r := recover(); r != nil {
			w.log.Error("Download panicked", "url", job.Request.URL, "panic", r)
			job.complete(domain.DownloadResult{}, fmt.Errorf("%w: %v", errors.ErrWorkerPanic, r))
		}
	}()

	result, err := w.downloader.Download(job.Ctx, job.Request, job.Progress)
	if err != nil {
		w.log.Warn("Download failed", "url", job.Request.URL, "error", err)
	}
	job.complete(result, err)
}
