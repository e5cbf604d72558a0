package shell

import (
	"context"
	"time"

	"github.com/creack/pty"

	apperrors "github.com/GriffinCanCode/AgentOS/sandbox/internal/shared/errors"
)

const (
	ptyCols = 120
	ptyRows = 40
)

// streamPTY runs the command attached to a pseudo-terminal. Output arrives
// merged on the terminal, so every line is emitted as stdout. The pty starts
// a new session, which also makes the child a process group leader.
func (e *Executor) streamPTY(ctx context.Context, inv *invocation, emit Emitter) error {
	cmd, runCtx, cancel := e.command(ctx, inv)
	defer cancel()
	cmd.Env = append(cmd.Env, "TERM=xterm-256color")

	start := time.Now()
	ptmx, err := pty.StartWithSize(cmd, &pty.Winsize{Cols: ptyCols, Rows: ptyRows})
	if err != nil {
		e.record(inv.kind, "start_failed", 0)
		return apperrors.Internal(err, "failed to start pty")
	}
	defer ptmx.Close()
	e.active(1)
	defer e.active(-1)

	out := &serialEmitter{emit: emit, cancel: cancel}
	emitErr := out.lines(ptmx, EventStdout)
	waitErr := cmd.Wait()

	return e.finish(ctx, runCtx, inv, out, emitErr, waitErr, cmd.ProcessState, time.Since(start))
}
