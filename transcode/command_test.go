package transcode

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"
	errs "youcube/errors"

	"github.com/mama165/sdk-go/logs"
	"github.com/stretchr/testify/require"
)

func writeScript(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "tool.sh")
	require.NoError(t, os.WriteFile(path, []byte("#!/bin/sh\n"+body+"\n"), 0o755))
	return path
}

func TestExecRunner_CapturesStdout(t *testing.T) {
	if _, err := os.Stat("/bin/sh"); err != nil {
		t.Skip("no shell available")
	}
	runner := NewExecRunner(logs.GetLoggerFromLevel(slog.LevelDebug))
	script := writeScript(t, `echo '{"title":"x"}'; echo "progress" >&2`)

	out, err := runner.Run(context.Background(), script)
	require.NoError(t, err)
	require.Equal(t, "{\"title\":\"x\"}\n", string(out))
}

func TestExecRunner_ReportsLastStderrLine(t *testing.T) {
	if _, err := os.Stat("/bin/sh"); err != nil {
		t.Skip("no shell available")
	}
	runner := NewExecRunner(logs.GetLoggerFromLevel(slog.LevelDebug))
	script := writeScript(t, `echo "first" >&2; echo "ERROR: unavailable" >&2; exit 3`)

	_, err := runner.Run(context.Background(), script)
	require.Error(t, err)
	require.Contains(t, err.Error(), "ERROR: unavailable")
}

func TestExecRunner_MissingTool(t *testing.T) {
	runner := NewExecRunner(logs.GetLoggerFromLevel(slog.LevelDebug))

	_, err := runner.Run(context.Background(), "youcube-no-such-tool")
	require.ErrorIs(t, err, errs.ErrToolNotFound)
	require.Equal(t, []string{"youcube-no-such-tool"}, MissingTools("youcube-no-such-tool"))
}

func TestExecRunner_Deadline(t *testing.T) {
	if _, err := os.Stat("/bin/sh"); err != nil {
		t.Skip("no shell available")
	}
	runner := NewExecRunner(logs.GetLoggerFromLevel(slog.LevelDebug))
	script := writeScript(t, `exec sleep 5`)
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := runner.Run(ctx, script)
	require.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestToolLogWriter_SplitsLines(t *testing.T) {
	w := newToolLogWriter(logs.GetLoggerFromLevel(slog.LevelDebug), "ffmpeg")

	_, _ = w.Write([]byte("frame=1\rframe=2\n  \nsize="))
	require.Equal(t, "frame=2", w.LastLine())

	_, _ = w.Write([]byte("10kB"))
	w.Flush()
	require.Equal(t, "size=10kB", w.LastLine())
}
