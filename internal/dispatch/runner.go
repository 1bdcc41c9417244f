package dispatch

import (
	"bytes"
	"context"
	"log/slog"
	"os/exec"
	"slices"
	"time"
)

// Command describes one child process invocation.
type Command struct {
	Path    string
	Args    []string
	Timeout time.Duration // zero means no deadline
}

// Result is the terminal outcome of one invocation. SpawnErr is set when the
// process never started (missing file, permission denied), in which case
// ExitCode and the captured streams are meaningless. Otherwise ExitCode is
// the child's exit status, -1 when it was killed.
type Result struct {
	Path     string
	Args     []string
	Started  time.Time
	Stopped  time.Time
	ExitCode int
	Stdout   []byte
	Stderr   []byte
	SpawnErr error
}

// Run spawns the executable with argv as its arguments and blocks until it
// exits. No stdin is attached, stdout and stderr are captured in full with
// no truncation. Spawn failure and non-zero exit are both reported outcomes,
// never retried here.
func Run(ctx context.Context, command Command) Result {
	res := Result{
		Path: command.Path,
		Args: slices.Clone(command.Args),
	}

	if command.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, command.Timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(ctx, res.Path, res.Args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	res.Started = time.Now().UTC()
	if err := cmd.Start(); err != nil {
		res.Stopped = time.Now().UTC()
		res.SpawnErr = err
		return res
	}

	err := cmd.Wait()
	res.Stopped = time.Now().UTC()
	res.Stdout = stdout.Bytes()
	res.Stderr = stderr.Bytes()
	res.ExitCode = cmd.ProcessState.ExitCode()
	if err != nil {
		slog.DebugContext(ctx, "child process wait",
			"path", res.Path,
			"exit_code", res.ExitCode,
			"error", err,
		)
	}
	return res
}
