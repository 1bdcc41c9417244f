package dispatch

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/microwrap/microwrap/internal/model"
)

// Dispatcher is the request-to-invocation pipeline: translate, admit, run,
// map. One Dispatcher serves all requests, the configuration it carries is
// immutable and the Scheduler is the only shared mutable state.
type Dispatcher struct {
	cfg   model.Config
	sched *Scheduler
}

func New(cfg model.Config) *Dispatcher {
	return &Dispatcher{
		cfg:   cfg,
		sched: NewScheduler(cfg.ConcurrencyLimit()),
	}
}

// Dispatch runs one invocation for the given query parameters and returns
// the response to send. It blocks while the submission is queued and while
// the child process runs. A ctx cancellation while queued (the caller went
// away) abandons the submission without ever spawning the process.
func (d *Dispatcher) Dispatch(ctx context.Context, incoming []Param) Response {
	argv := Translate(incoming, d.cfg.AllowedParameters, d.cfg.DefaultParameters)
	slog.DebugContext(ctx, "translated parameters", "argv", argv)

	if waiting := d.sched.Waiting(); waiting > 0 {
		slog.InfoContext(ctx, "invocation queued", "waiting", waiting)
	}
	if err := d.sched.Acquire(ctx); err != nil {
		slog.WarnContext(ctx, "abandoned while queued", "error", err)
		return Response{
			Status: http.StatusServiceUnavailable,
			Body:   []byte("invocation abandoned while queued: " + err.Error() + "\n"),
		}
	}
	defer d.sched.Release()

	res := Run(ctx, Command{
		Path:    d.cfg.ExecutablePath,
		Args:    argv,
		Timeout: d.cfg.Timeout(),
	})

	if res.SpawnErr != nil {
		slog.ErrorContext(ctx, "spawn failed",
			"path", res.Path,
			"error", res.SpawnErr,
		)
	} else {
		slog.InfoContext(ctx, "invocation completed",
			"exit_code", res.ExitCode,
			"duration", res.Stopped.Sub(res.Started).Round(time.Millisecond).String(),
			"stdout_bytes", len(res.Stdout),
			"stderr_bytes", len(res.Stderr),
		)
	}

	return MapResult(res)
}

// Running reports invocations currently holding an admission slot.
func (d *Dispatcher) Running() int64 { return d.sched.Running() }

// Waiting reports submissions queued for an admission slot.
func (d *Dispatcher) Waiting() int64 { return d.sched.Waiting() }
