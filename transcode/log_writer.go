package transcode

import (
	"bytes"
	"log/slog"
	"sync"
)

// toolLogWriter forwards a subprocess's output to the logger line by line,
// tagged with the tool name. The last complete line is kept for error reports.
type toolLogWriter struct {
	mu      sync.Mutex
	logger  *slog.Logger
	tool    string
	pending []byte
	last    string
}

func newToolLogWriter(logger *slog.Logger, tool string) *toolLogWriter {
	return &toolLogWriter{logger: logger, tool: tool}
}

func (w *toolLogWriter) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.pending = append(w.pending, p...)
	for {
		i := bytes.IndexAny(w.pending, "\r\n")
		if i < 0 {
			break
		}
		w.emit(w.pending[:i])
		w.pending = w.pending[i+1:]
	}
	return len(p), nil
}

// Flush emits a trailing line that had no newline.
func (w *toolLogWriter) Flush() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.emit(w.pending)
	w.pending = nil
}

func (w *toolLogWriter) LastLine() string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.last
}

func (w *toolLogWriter) emit(line []byte) {
	line = bytes.TrimSpace(line)
	if len(line) == 0 {
		return
	}
	w.last = string(line)
	w.logger.Debug(w.last, "tool", w.tool)
}
