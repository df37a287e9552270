package workers

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"
	"youcube/contract"
)

var _ contract.Worker = (*JanitorWorker)(nil)

// JanitorWorker removes the download-* work directories that a crash or a
// kill left in the data folder once they are older than staleAfter.
type JanitorWorker struct {
	log        *slog.Logger
	dataDir    string
	interval   time.Duration
	staleAfter time.Duration
	now        func() time.Time
}

func NewJanitorWorker(log *slog.Logger, dataDir string, interval, staleAfter time.Duration) *JanitorWorker {
	return &JanitorWorker{
		log:        log,
		dataDir:    dataDir,
		interval:   interval,
		staleAfter: staleAfter,
		now:        time.Now,
	}
}

func (w *JanitorWorker) Run(ctx context.Context) error {
	w.Sweep()

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			w.Sweep()
		}
	}
}

// Sweep returns the number of entries removed.
func (w *JanitorWorker) Sweep() int {
	entries, err := os.ReadDir(w.dataDir)
	if err != nil {
		w.log.Warn("Cannot read data folder", "path", w.dataDir, "error", err)
		return 0
	}

	removed := 0
	for _, entry := range entries {
		name := entry.Name()
		if !entry.IsDir() || !strings.HasPrefix(name, "download-") {
			continue
		}
		info, err := entry.Info()
		if err != nil || w.now().Sub(info.ModTime()) < w.staleAfter {
			continue
		}
		if err := os.RemoveAll(filepath.Join(w.dataDir, name)); err != nil {
			w.log.Warn("Cannot remove leftover", "name", name, "error", err)
			continue
		}
		removed++
	}
	if removed > 0 {
		w.log.Info("Removed transcode leftovers", "count", removed)
	}
	return removed
}
