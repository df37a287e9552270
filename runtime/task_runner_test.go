package runtime

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"testing"
	"time"
	"youcube/contract"
	"youcube/domain"
	errs "youcube/errors"
	"youcube/mocks"
	"youcube/runtime/workers"

	"github.com/mama165/sdk-go/logs"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func startRunner(t *testing.T, runner *TaskRunner, downloader contract.Downloader, count int) {
	ctx, cancel := context.WithCancel(context.Background())
	sup := workers.NewSupervisor(logs.GetLoggerFromLevel(slog.LevelDebug), 10*time.Millisecond)
	sup.Add(runner.Workers(downloader, count)...)
	done := make(chan struct{})
	go func() {
		sup.Run(ctx)
		close(done)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})
}

func TestTaskRunner_Submit_ReturnsResult(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	downloader := mocks.NewMockDownloader(ctrl)
	progress := mocks.NewMockProgressSink(ctrl)

	expected := domain.DownloadResult{ID: "abc", Title: "Title"}
	downloader.EXPECT().
		Download(gomock.Any(), domain.DownloadRequest{URL: "https://a"}, progress).
		DoAndReturn(func(_ context.Context, _ domain.DownloadRequest, p contract.ProgressSink) (domain.DownloadResult, error) {
			p.Notify("Downloading ...")
			return expected, nil
		})
	progress.EXPECT().Notify("Downloading ...")

	runner := NewTaskRunner(logs.GetLoggerFromLevel(slog.LevelDebug), 4, time.Second)
	startRunner(t, runner, downloader, 1)

	result, err := runner.Submit(context.Background(), domain.DownloadRequest{URL: "https://a"}, progress)
	req.NoError(err)
	req.Equal(expected, result)
}

func TestTaskRunner_Submit_PropagatesFailure(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	downloader := mocks.NewMockDownloader(ctrl)

	downloader.EXPECT().Download(gomock.Any(), gomock.Any(), gomock.Any()).
		Return(domain.DownloadResult{}, errs.ErrTranscodeFailed)

	runner := NewTaskRunner(logs.GetLoggerFromLevel(slog.LevelDebug), 4, time.Second)
	startRunner(t, runner, downloader, 1)

	_, err := runner.Submit(context.Background(), domain.DownloadRequest{URL: "https://a"}, nil)
	req.ErrorIs(err, errs.ErrTranscodeFailed)
}

func TestTaskRunner_Submit_RecoversPanic(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	downloader := mocks.NewMockDownloader(ctrl)

	downloader.EXPECT().Download(gomock.Any(), gomock.Any(), gomock.Any()).
		DoAndReturn(func(context.Context, domain.DownloadRequest, contract.ProgressSink) (domain.DownloadResult, error) {
			panic("boom")
		})

	runner := NewTaskRunner(logs.GetLoggerFromLevel(slog.LevelDebug), 4, time.Second)
	startRunner(t, runner, downloader, 1)

	_, err := runner.Submit(context.Background(), domain.DownloadRequest{URL: "https://a"}, nil)
	req.ErrorIs(err, errs.ErrWorkerPanic)
}

func TestTaskRunner_Submit_Timeout(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	downloader := mocks.NewMockDownloader(ctrl)

	// Given a download that never completes on its own
	downloader.EXPECT().Download(gomock.Any(), gomock.Any(), gomock.Any()).
		DoAndReturn(func(ctx context.Context, _ domain.DownloadRequest, _ contract.ProgressSink) (domain.DownloadResult, error) {
			<-ctx.Done()
			return domain.DownloadResult{}, ctx.Err()
		})

	runner := NewTaskRunner(logs.GetLoggerFromLevel(slog.LevelDebug), 4, 50*time.Millisecond)
	startRunner(t, runner, downloader, 1)

	// When submitting it
	start := time.Now()
	_, err := runner.Submit(context.Background(), domain.DownloadRequest{URL: "https://slow"}, nil)

	// Then the runner gives up with a timeout error
	req.ErrorIs(err, errs.ErrDownloadTimeout)
	req.Less(time.Since(start), time.Second)
}

func TestTaskRunner_Submit_QueueFull(t *testing.T) {
	req := require.New(t)

	// Given no worker consumes the queue of capacity one
	runner := NewTaskRunner(logs.GetLoggerFromLevel(slog.LevelDebug), 1, 300*time.Millisecond)

	go func() {
		_, _ = runner.Submit(context.Background(), domain.DownloadRequest{URL: "https://first"}, nil)
	}()
	req.Eventually(func() bool { return len(runner.jobs) == 1 }, time.Second, 5*time.Millisecond)

	// When another download is submitted
	_, err := runner.Submit(context.Background(), domain.DownloadRequest{URL: "https://second"}, nil)

	// Then it is rejected immediately
	req.ErrorIs(err, errs.ErrQueueFull)
}

func TestTaskRunner_Submit_SharesIdenticalRequests(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	downloader := mocks.NewMockDownloader(ctrl)

	release := make(chan struct{})
	downloader.EXPECT().Download(gomock.Any(), gomock.Any(), gomock.Any()).
		DoAndReturn(func(context.Context, domain.DownloadRequest, contract.ProgressSink) (domain.DownloadResult, error) {
			<-release
			return domain.DownloadResult{ID: "shared"}, nil
		}).
		Times(1)

	runner := NewTaskRunner(logs.GetLoggerFromLevel(slog.LevelDebug), 4, time.Second)
	startRunner(t, runner, downloader, 2)

	var wg sync.WaitGroup
	results := make([]domain.DownloadResult, 2)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			res, err := runner.Submit(context.Background(), domain.DownloadRequest{URL: "https://same"}, nil)
			req.NoError(err)
			results[i] = res
		}(i)
	}
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	req.Equal(domain.AssetID("shared"), results[0].ID)
	req.Equal(domain.AssetID("shared"), results[1].ID)
}

func TestTaskRunner_Submit_SlowDownloadDoesNotBlockOthers(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	downloader := mocks.NewMockDownloader(ctrl)

	release := make(chan struct{})
	defer close(release)
	downloader.EXPECT().Download(gomock.Any(), domain.DownloadRequest{URL: "https://slow"}, gomock.Any()).
		DoAndReturn(func(context.Context, domain.DownloadRequest, contract.ProgressSink) (domain.DownloadResult, error) {
			<-release
			return domain.DownloadResult{}, nil
		}).
		AnyTimes()
	downloader.EXPECT().Download(gomock.Any(), domain.DownloadRequest{URL: "https://fast"}, gomock.Any()).
		Return(domain.DownloadResult{ID: "fast"}, nil)

	runner := NewTaskRunner(logs.GetLoggerFromLevel(slog.LevelDebug), 4, 5*time.Second)
	startRunner(t, runner, downloader, 2)

	// Given a slow download owned by a first connection
	go func() {
		_, _ = runner.Submit(context.Background(), domain.DownloadRequest{URL: "https://slow"}, nil)
	}()

	// When another connection submits its own download
	result, err := runner.Submit(context.Background(), domain.DownloadRequest{URL: "https://fast"}, nil)

	// Then it completes without waiting for the slow one
	req.NoError(err)
	req.Equal(domain.AssetID("fast"), result.ID)
}

func TestTaskRunner_Submit_CallerCanceled(t *testing.T) {
	req := require.New(t)
	runner := NewTaskRunner(logs.GetLoggerFromLevel(slog.LevelDebug), 4, time.Second)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := runner.Submit(ctx, domain.DownloadRequest{URL: "https://a"}, nil)
	req.True(errors.Is(err, context.Canceled))
}
