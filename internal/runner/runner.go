// Package runner executes the ordered shell command lists of a pipeline
// phase. Commands run strictly sequentially because later commands depend on
// filesystem state produced by earlier ones.
package runner

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"time"

	apperrors "git.home.luguber.info/inful/docship/internal/errors"
	"git.home.luguber.info/inful/docship/internal/logfields"
)

// Runner executes shell-level commands with an injected environment.
// Stages never read ambient process env; the caller resolves it once per leg.
type Runner struct {
	Dir    string    // working directory for every command
	Env    []string  // full environment, resolved from the run context
	Stdout io.Writer // defaults to os.Stdout
	Stderr io.Writer // defaults to os.Stderr
}

// New returns a Runner executing in dir with the given environment.
func New(dir string, env []string) *Runner {
	return &Runner{Dir: dir, Env: env}
}

// Run executes commands in order through the shell. On the first non-zero
// exit it stops immediately and returns a CommandError; remaining commands
// do not run. Output is passed through untouched so diagnostics reach the
// user exactly as the failing command emitted them. Warnings on stderr
// without a non-zero exit do not halt execution. There is no retry.
func (r *Runner) Run(ctx context.Context, commands []string) error {
	for _, command := range commands {
		if err := r.runOne(ctx, command); err != nil {
			return err
		}
	}
	return nil
}

func (r *Runner) runOne(ctx context.Context, command string) error {
	slog.Info("Running command", logfields.Command(command))
	start := time.Now()

	cmd := exec.CommandContext(ctx, "sh", "-c", command)
	cmd.Dir = r.Dir
	cmd.Env = r.Env
	cmd.Stdout = r.stdout()
	cmd.Stderr = r.stderr()

	err := cmd.Run()
	dur := time.Since(start)
	if err != nil {
		exitCode := -1
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			exitCode = exitErr.ExitCode()
		}
		slog.Error("Command failed",
			logfields.Command(command),
			slog.Int("exit_code", exitCode),
			logfields.DurationMS(float64(dur.Milliseconds())))
		return apperrors.CommandError(command, exitCode, err)
	}

	slog.Debug("Command succeeded",
		logfields.Command(command),
		logfields.DurationMS(float64(dur.Milliseconds())))
	return nil
}

func (r *Runner) stdout() io.Writer {
	if r.Stdout != nil {
		return r.Stdout
	}
	return os.Stdout
}

func (r *Runner) stderr() io.Writer {
	if r.Stderr != nil {
		return r.Stderr
	}
	return os.Stderr
}
