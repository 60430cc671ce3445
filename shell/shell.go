// Package shell runs shell command lines as child processes and maps their
// termination to exit codes.
package shell

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
	"syscall"
	"time"

	"al.essio.dev/pkg/shellescape"
	"github.com/rs/zerolog"
)

// Exit codes follow the POSIX shell conventions.
const (
	ExitStartFailure = 127 // command could not be started
	ExitSignalBase   = 128 // added to the signal number of a killed process
	ExitInterrupted  = 130 // interrupted, or no exit status available
	ExitMax          = 255
)

// DefaultShell interprets the command lines.
const DefaultShell = "/bin/sh"

// Command is a shell command line to run.
type Command struct {
	// Shell command line
	Script string
	// Working directory
	Dir string
	// Complete environment of the child
	Env []string
	// Receives both stdout and stderr
	Output io.Writer
}

// Executor runs a command and returns its exit code. The error is only set
// when the command could not be run at all.
type Executor interface {
	Execute(ctx context.Context, cmd Command) (int, error)
}

// Local runs commands on the local machine.
type Local struct {
	logger zerolog.Logger
	shell  string
	grace  time.Duration
}

// NewLocal creates a local executor. When ctx of an Execute call is
// cancelled the child gets the grace period to exit on its own, then it is
// sent an interrupt, and killed after another grace period.
func NewLocal(logger zerolog.Logger, grace time.Duration) *Local {
	return &Local{
		logger: logger,
		shell:  DefaultShell,
		grace:  grace,
	}
}

// Execute implements Executor.
func (l *Local) Execute(ctx context.Context, c Command) (int, error) {
	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	defer cancel()

	stop := context.AfterFunc(ctx, func() {
		timer := time.NewTimer(l.grace)
		defer timer.Stop()
		select {
		case <-timer.C:
			l.logger.Debug().Str("dir", c.Dir).Msg("Grace period expired, interrupting child")
			cancel()
		case <-runCtx.Done():
		}
	})
	defer stop()

	cmd := exec.CommandContext(runCtx, l.shell, "-c", c.Script)
	cmd.Dir = c.Dir
	cmd.Env = c.Env
	cmd.Stdout = c.Output
	cmd.Stderr = c.Output
	cmd.Cancel = func() error {
		return cmd.Process.Signal(os.Interrupt)
	}
	cmd.WaitDelay = l.grace

	l.logger.Debug().
		Str("dir", c.Dir).
		Str("command", c.Script).
		Msg("Starting command")

	return ExitCode(cmd.Run())
}

// ExitCode converts the error of exec.Cmd.Run into an exit code.
func ExitCode(err error) (int, error) {
	if err == nil {
		return 0, nil
	}

	var exitErr *exec.ExitError
	if !errors.As(err, &exitErr) {
		return ExitStartFailure, fmt.Errorf("failed to execute command: %w", err)
	}

	if ws, ok := exitErr.Sys().(syscall.WaitStatus); ok && ws.Signaled() {
		return ExitSignalBase + int(ws.Signal()), nil
	}
	return Clamp(exitErr.ExitCode()), nil
}

// Clamp maps any exit code into 0..255. Negative codes mean the process
// left no status and are reported as interrupted.
func Clamp(code int) int {
	switch {
	case code < 0:
		return ExitInterrupted
	case code > ExitMax:
		return ExitMax
	default:
		return code
	}
}

// Join quotes args and joins them into a single command line.
func Join(args ...string) string {
	parts := make([]string, 0, len(args))
	for _, arg := range args {
		parts = append(parts, shellescape.Quote(arg))
	}
	return strings.Join(parts, " ")
}
