package transport

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"os/exec"
	"runtime"
	"strings"

	"github.com/melih-ucgun/xal/internal/core"
)

// exitNotFound is the status a POSIX shell returns when it cannot find the
// program it was asked to run.
const exitNotFound = 127

// LocalTransport implements Transport for the local machine
type LocalTransport struct {
	// Shell interprets Execute lines. Defaults to "sh".
	Shell  string
	logger *slog.Logger
}

func NewLocalTransport(logger *slog.Logger) *LocalTransport {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &LocalTransport{Shell: "sh", logger: logger}
}

func (t *LocalTransport) Close() error {
	return nil
}

// Execute runs line through the shell.
func (t *LocalTransport) Execute(ctx context.Context, line string, stdin io.Reader) (*core.Result, error) {
	res, err := t.Spawn(ctx, []string{t.Shell, "-c", line}, stdin)
	if err != nil {
		return nil, err
	}
	if res.ReturnCode == exitNotFound {
		return nil, &core.CommandNotFoundError{Argv: []string{line}, Err: errors.New(strings.TrimSpace(res.Stderr))}
	}
	return res, nil
}

// Spawn runs argv directly, without a shell.
func (t *LocalTransport) Spawn(ctx context.Context, argv []string, stdin io.Reader) (*core.Result, error) {
	if len(argv) == 0 {
		return nil, &core.CommandNotFoundError{Err: exec.ErrNotFound}
	}
	t.logger.Debug("local exec", "argv", argv)

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)
	cmd.Stdin = stdin
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	res := &core.Result{Stdout: stdout.String(), Stderr: stderr.String()}

	var exitErr *exec.ExitError
	switch {
	case err == nil:
	case errors.As(err, &exitErr):
		res.ReturnCode = exitErr.ExitCode()
		if res.ReturnCode < 0 {
			// Killed by a signal, most likely the context.
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, ctxErr
			}
		}
	case ctx.Err() != nil:
		return nil, ctx.Err()
	case cmd.ProcessState == nil:
		// The process never started.
		return nil, &core.CommandNotFoundError{Argv: argv, Err: err}
	default:
		return nil, err
	}
	return res, nil
}

func (t *LocalTransport) GetOS(ctx context.Context) (string, error) {
	return runtime.GOOS, nil
}
