// Package logging sets up the process-wide slog logger shared by the server
// and the mail worker.
package logging

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
)

// levelRouter is a slog.Handler that routes INFO/WARN to one handler and
// ERROR+ to another.
type levelRouter struct {
	out   slog.Handler
	err   slog.Handler
	level slog.Level
}

// NewHandler returns a text handler writing records below ERROR to out and
// the rest to errOut. Records below level are dropped.
func NewHandler(out, errOut io.Writer, level slog.Level) slog.Handler {
	opts := &slog.HandlerOptions{Level: level}
	return &levelRouter{
		out:   slog.NewTextHandler(out, opts),
		err:   slog.NewTextHandler(errOut, opts),
		level: level,
	}
}

func (lr *levelRouter) Enabled(_ context.Context, level slog.Level) bool {
	return level >= lr.level
}

func (lr *levelRouter) Handle(ctx context.Context, r slog.Record) error {
	if r.Level >= slog.LevelError {
		return lr.err.Handle(ctx, r)
	}
	return lr.out.Handle(ctx, r)
}

func (lr *levelRouter) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &levelRouter{
		out:   lr.out.WithAttrs(attrs),
		err:   lr.err.WithAttrs(attrs),
		level: lr.level,
	}
}

func (lr *levelRouter) WithGroup(name string) slog.Handler {
	return &levelRouter{
		out:   lr.out.WithGroup(name),
		err:   lr.err.WithGroup(name),
		level: lr.level,
	}
}

// Setup installs the default logger. INFO/WARN go to stdout, ERROR goes to
// stderr. If logPath is non-empty, all levels are also appended to that file.
// The returned cleanup closes the file and is never nil.
func Setup(logPath string) (func(), error) {
	cleanup := func() {}

	stdoutW := io.Writer(os.Stdout)
	stderrW := io.Writer(os.Stderr)

	if logPath != "" {
		f, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			return nil, fmt.Errorf("opening log file: %w", err)
		}
		cleanup = func() { f.Close() }
		stdoutW = io.MultiWriter(os.Stdout, f)
		stderrW = io.MultiWriter(os.Stderr, f)
	}

	slog.SetDefault(slog.New(NewHandler(stdoutW, stderrW, slog.LevelInfo)))
	return cleanup, nil
}
