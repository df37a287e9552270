//go:generate go run go.uber.org/mock/mockgen -source=contract.go -destination=../mocks/mock_contract.go -package=mocks
package contract

import (
	"context"
	"reflect"
	"youcube/domain"
)

type ISupervisor interface {
	Add(worker ...Worker) ISupervisor
	Run(ctx context.Context)
	Start(ctx context.Context, worker Worker)
	Stop()
}

// Worker doesn't protect itself
// Can be silly, focused
type Worker interface {
	Run(ctx context.Context) error
}

// GetWorkerName uses reflection to retrieve the type name of the worker.
// This is used for logging and supervision purposes during worker initialization
// or lifecycle events, avoiding the need for manual naming in the Worker interface.
func GetWorkerName(w Worker) string {
	if w == nil {
		return "NilWorker"
	}
	t := reflect.TypeOf(w)
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	return t.Name()
}

// IChunkStore reads bounded slices of transcoded assets.
// Missing files and reads past the end are not errors, they yield short results.
type IChunkStore interface {
	ReadAudioChunk(id string, chunkIndex int64) ([]byte, error)
	ReadVideoLines(id string, width, height int, tracker int64) ([]string, error)
}

// ProgressSink receives intermediate messages of a running download.
type ProgressSink interface {
	Notify(message string)
}

// Downloader fetches a source URL and transcodes it into the served formats.
// It blocks until the asset is ready.
type Downloader interface {
	Download(ctx context.Context, req domain.DownloadRequest, progress ProgressSink) (domain.DownloadResult, error)
}

// ITaskRunner runs downloads off the connection's serving path.
type ITaskRunner interface {
	Submit(ctx context.Context, req domain.DownloadRequest, progress ProgressSink) (domain.DownloadResult, error)
}

// URLResolver turns links that are not direct media (e.g. music service
// tracks) into something the downloader understands.
// ok is false when the resolver does not handle the URL.
type URLResolver interface {
	Resolve(ctx context.Context, url string) (resolved string, ok bool, err error)
}

type IAssetRepository interface {
	Get(id domain.AssetID) (domain.AssetRecord, error)
	Save(record domain.AssetRecord) error
	List(limit int) ([]domain.AssetRecord, error)
}
