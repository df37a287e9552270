package transcode

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os/exec"
	"path/filepath"
	"time"
	errs "youcube/errors"
)

const waitDelay = 2 * time.Second

// CommandRunner executes an external tool and returns its standard output.
type CommandRunner interface {
	Run(ctx context.Context, name string, args ...string) ([]byte, error)
}

// ExecRunner runs tools as subprocesses, their stderr goes to the debug log.
type ExecRunner struct {
	log *slog.Logger
}

func NewExecRunner(log *slog.Logger) *ExecRunner {
	return &ExecRunner{log: log}
}

func (r *ExecRunner) Run(ctx context.Context, name string, args ...string) ([]byte, error) {
	var stdout bytes.Buffer
	stderr := newToolLogWriter(r.log, filepath.Base(name))
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stdout = &stdout
	cmd.Stderr = stderr
	// Children such as the ffmpeg spawned by yt-dlp may hold the pipes after a kill.
	cmd.WaitDelay = waitDelay

	err := cmd.Run()
	stderr.Flush()
	if err != nil {
		if errors.Is(err, exec.ErrNotFound) {
			return nil, fmt.Errorf("%w: %s", errs.ErrToolNotFound, name)
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("%s failed: %w: %s", filepath.Base(name), err, stderr.LastLine())
	}
	return stdout.Bytes(), nil
}

// MissingTools lists the tools that cannot be found in PATH.
func MissingTools(paths ...string) []string {
	var missing []string
	for _, path := range paths {
		if _, err := exec.LookPath(path); err != nil {
			missing = append(missing, path)
		}
	}
	return missing
}
