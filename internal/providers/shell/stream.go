package shell

import (
	"bufio"
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	apperrors "github.com/GriffinCanCode/AgentOS/sandbox/internal/shared/errors"
	"github.com/GriffinCanCode/AgentOS/sandbox/internal/shared/utils"
)

const maxLineSize = 1024 * 1024

// Emitter receives stream events in order. Returning an error stops the
// stream and kills the process.
type Emitter func(StreamEvent) error

// Stream runs a command and emits each completed output line as it arrives,
// followed by exactly one terminal event. Validation failures are returned
// before any event is emitted.
func (e *Executor) Stream(ctx context.Context, req ExecRequest, emit Emitter) error {
	if err := utils.ValidateRequired("command", req.Command); err != nil {
		return apperrors.Validation("%s", err.Error())
	}
	if err := utils.ValidateSize("command", len(req.Command), utils.MaxCommandSize); err != nil {
		return apperrors.Validation("%s", err.Error())
	}

	inv, err := e.prepare("stream", []string{"sh", "-c", req.Command}, req.Cwd, req.Env, req.Timeout)
	if err != nil {
		return err
	}
	if req.Pty {
		inv.kind = "pty"
		return e.streamPTY(ctx, inv, emit)
	}
	return e.stream(ctx, inv, emit)
}

func (e *Executor) stream(ctx context.Context, inv *invocation, emit Emitter) error {
	cmd, runCtx, cancel := e.command(ctx, inv)
	defer cancel()
	setProcessGroup(cmd)

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return apperrors.Internal(err, "failed to open stdout pipe")
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return apperrors.Internal(err, "failed to open stderr pipe")
	}

	start := time.Now()
	if err := cmd.Start(); err != nil {
		e.record(inv.kind, "start_failed", 0)
		return apperrors.Internal(err, "failed to start process")
	}
	e.active(1)
	defer e.active(-1)

	out := &serialEmitter{emit: emit, cancel: cancel}

	// Both pipes must reach EOF before Wait closes them
	var g errgroup.Group
	g.Go(func() error { return out.lines(stdout, EventStdout) })
	g.Go(func() error { return out.lines(stderr, EventStderr) })
	emitErr := g.Wait()
	waitErr := cmd.Wait()

	return e.finish(ctx, runCtx, inv, out, emitErr, waitErr, cmd.ProcessState, time.Since(start))
}

// finish emits the terminal event for a stream
func (e *Executor) finish(parent, runCtx context.Context, inv *invocation, out *serialEmitter, emitErr, waitErr error, state interface{ ExitCode() int }, elapsed time.Duration) error {
	if emitErr != nil {
		e.logger.Debug("stream consumer stopped", zap.String("kind", inv.kind), zap.Error(emitErr))
		e.record(inv.kind, "cancelled", elapsed)
		return emitErr
	}

	if waitErr != nil && runCtx.Err() != nil {
		cerr := e.contextError(runCtx, parent, inv)
		e.record(inv.kind, outcomeOf(cerr), elapsed)
		if apperrors.HasCode(cerr, apperrors.CodeTimeout) {
			return out.send(StreamEvent{Type: EventError, Data: ErrorMarkerTimeout})
		}
		return cerr
	}

	code := ExitCodeAbnormal
	var exitErr interface{ ExitCode() int }
	switch {
	case waitErr == nil && state != nil:
		code = state.ExitCode()
	case errors.As(waitErr, &exitErr):
		code = exitErr.ExitCode()
	default:
		e.record(inv.kind, "wait_failed", elapsed)
		return out.send(StreamEvent{Type: EventError, Data: waitErr.Error()})
	}

	e.record(inv.kind, "completed", elapsed)
	return out.send(StreamEvent{Type: EventExit, ExitCode: &code})
}

// serialEmitter serializes events from concurrent readers and latches the
// first consumer error
type serialEmitter struct {
	mu     sync.Mutex
	emit   Emitter
	cancel context.CancelFunc
	err    error
}

func (s *serialEmitter) send(ev StreamEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.err != nil {
		return s.err
	}
	if err := s.emit(ev); err != nil {
		s.err = err
		s.cancel()
		return err
	}
	return nil
}

// lines emits one event per line read from r until EOF. Read errors other
// than consumer failures end the stream quietly; a pty master reports EIO
// once the child side closes.
func (s *serialEmitter) lines(r io.Reader, typ EventType) error {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)

	for scanner.Scan() {
		line := strings.TrimSuffix(scanner.Text(), "\r")
		if err := s.send(StreamEvent{Type: typ, Data: line}); err != nil {
			_, _ = io.Copy(io.Discard, r)
			return err
		}
	}

	if errors.Is(scanner.Err(), bufio.ErrTooLong) {
		if err := s.send(StreamEvent{Type: typ, Data: "[line truncated]"}); err != nil {
			return err
		}
	}
	_, _ = io.Copy(io.Discard, r)
	return nil
}
