package errors

import "fmt"

var (
	ErrWorkerPanic      = fmt.Errorf("worker panic")
	ErrUnsafeID         = fmt.Errorf("identifier contains forbidden characters")
	ErrInvalidField     = fmt.Errorf("invalid field")
	ErrUntrustedProxy   = fmt.Errorf("a client is not using a trusted proxy")
	ErrUnsupportedURL   = fmt.Errorf("unsupported url")
	ErrDownloadTimeout  = fmt.Errorf("download timed out")
	ErrQueueFull        = fmt.Errorf("download queue is full")
	ErrRunnerStopped    = fmt.Errorf("task runner stopped")
	ErrToolNotFound     = fmt.Errorf("external tool not found")
	ErrTranscodeFailed  = fmt.Errorf("transcode failed")
	ErrUnsupportedMedia = fmt.Errorf("downloaded file is not audio or video")
	ErrAssetNotFound    = fmt.Errorf("asset not found")
)
