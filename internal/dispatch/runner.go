package dispatch

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/rewind-gg/rewind/internal/config"
)

const (
	// maxDiagnosticBytes bounds how much stderr a failed stage can attach to
	// its error. The tail is kept: failure summaries print last.
	maxDiagnosticBytes = 8 << 10

	// waitDelay gives a timed-out stage a grace period to flush stderr
	// before Wait stops copying.
	waitDelay = 5 * time.Second
)

type (
	// Invocation is one stage run: the binary, its arguments, and an ID that
	// ties log lines across retries together.
	Invocation struct {
		ID    string
		Stage Stage
		Path  string
		Args  []string
	}

	// Runner executes stage invocations. The context carries the stage
	// timeout; implementations must kill the process when it expires.
	Runner interface {
		Run(ctx context.Context, inv Invocation) error
	}

	// ExecRunner runs stage binaries as child processes.
	ExecRunner struct {
		logger *slog.Logger
	}
)

// Compile-time interface check.
var _ Runner = (*ExecRunner)(nil)

// NewExecRunner creates a subprocess runner.
func NewExecRunner() *ExecRunner {
	return &ExecRunner{
		logger: slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
			Level: config.GetEnvLogLevel("LOG_LEVEL", slog.LevelInfo),
		})),
	}
}

// Run executes the invocation and classifies its failure: a process that ran
// and exited non-zero yields a *StageError with the exit status and captured
// stderr; a process that never produced an exit status (launch failure,
// timeout kill) yields a *StageError with ExitStatus -1.
func (r *ExecRunner) Run(ctx context.Context, inv Invocation) error {
	cmd := exec.CommandContext(ctx, inv.Path, inv.Args...)

	var stderr tailBuffer

	cmd.Stdout = io.Discard
	cmd.Stderr = &stderr
	cmd.WaitDelay = waitDelay

	r.logger.Info("starting stage process",
		"invocation_id", inv.ID,
		"stage", inv.Stage.String(),
		"path", inv.Path,
		"args", inv.Args,
	)

	err := cmd.Run()
	if err == nil {
		return nil
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) && exitErr.ExitCode() >= 0 && ctx.Err() == nil {
		return &StageError{
			Stage:      inv.Stage,
			ExitStatus: exitErr.ExitCode(),
			Diagnostic: stderr.String(),
			Err:        err,
		}
	}

	// Launch failure or timeout kill: no usable exit status.
	cause := err
	if ctx.Err() != nil {
		cause = ctx.Err()
	}

	return &StageError{
		Stage:      inv.Stage,
		ExitStatus: -1,
		Diagnostic: stderr.String(),
		Err:        cause,
	}
}

// tailBuffer is an io.Writer that keeps only the last maxDiagnosticBytes
// written to it.
type tailBuffer struct {
	buf []byte
}

// Write implements io.Writer.
func (b *tailBuffer) Write(p []byte) (int, error) {
	b.buf = append(b.buf, p...)
	if len(b.buf) > maxDiagnosticBytes {
		b.buf = b.buf[len(b.buf)-maxDiagnosticBytes:]
	}

	return len(p), nil
}

// String returns the captured tail with surrounding whitespace trimmed.
func (b *tailBuffer) String() string {
	return strings.TrimSpace(string(b.buf))
}
