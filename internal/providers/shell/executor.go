package shell

import (
	"bytes"
	"context"
	"errors"
	"os"
	"os/exec"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/GriffinCanCode/AgentOS/sandbox/internal/infrastructure/monitoring"
	apperrors "github.com/GriffinCanCode/AgentOS/sandbox/internal/shared/errors"
	"github.com/GriffinCanCode/AgentOS/sandbox/internal/shared/paths"
	"github.com/GriffinCanCode/AgentOS/sandbox/internal/shared/utils"
)

const (
	defaultTimeout   = 30 * time.Second
	defaultMaxOutput = 16 * 1024 * 1024
	// waitDelay bounds how long Wait blocks on pipes held open by processes
	// that escaped the killed group.
	waitDelay = 2 * time.Second
)

// Options configures an Executor
type Options struct {
	Workspace      string
	TempDir        string
	DefaultTimeout time.Duration
	MaxTimeout     time.Duration
	MaxOutput      int
	Logger         *zap.Logger
	Metrics        *monitoring.Metrics
}

// Executor spawns bounded processes
type Executor struct {
	workspace      paths.Workspace
	tempDir        string
	defaultTimeout time.Duration
	maxTimeout     time.Duration
	maxOutput      int
	logger         *zap.Logger
	metrics        *monitoring.Metrics
}

// New creates an Executor
func New(opts Options) *Executor {
	if opts.DefaultTimeout <= 0 {
		opts.DefaultTimeout = defaultTimeout
	}
	if opts.MaxTimeout < opts.DefaultTimeout {
		opts.MaxTimeout = opts.DefaultTimeout
	}
	if opts.MaxOutput <= 0 {
		opts.MaxOutput = defaultMaxOutput
	}
	if opts.TempDir == "" {
		opts.TempDir = os.TempDir()
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}

	return &Executor{
		workspace:      paths.NewWorkspace(opts.Workspace),
		tempDir:        opts.TempDir,
		defaultTimeout: opts.DefaultTimeout,
		maxTimeout:     opts.MaxTimeout,
		maxOutput:      opts.MaxOutput,
		logger:         opts.Logger.Named("shell"),
		metrics:        opts.Metrics,
	}
}

// Workspace returns the default working directory
func (e *Executor) Workspace() string {
	return e.workspace.Root
}

// Exec runs a command through sh -c and captures its output.
// A non-zero exit status is a result, not an error.
func (e *Executor) Exec(ctx context.Context, req ExecRequest) (*ExecResult, error) {
	if err := utils.ValidateRequired("command", req.Command); err != nil {
		return nil, apperrors.Validation("%s", err.Error())
	}
	if err := utils.ValidateSize("command", len(req.Command), utils.MaxCommandSize); err != nil {
		return nil, apperrors.Validation("%s", err.Error())
	}

	inv, err := e.prepare("shell", []string{"sh", "-c", req.Command}, req.Cwd, req.Env, req.Timeout)
	if err != nil {
		return nil, err
	}
	return e.run(ctx, inv)
}

// invocation is a validated, ready-to-start process description
type invocation struct {
	kind    string
	argv    []string
	dir     string
	env     []string
	timeout time.Duration
}

func (e *Executor) prepare(kind string, argv []string, cwd string, env map[string]string, timeoutSecs int) (*invocation, error) {
	dir, err := e.resolveDir(cwd)
	if err != nil {
		return nil, err
	}
	merged, err := mergeEnv(env)
	if err != nil {
		return nil, err
	}
	return &invocation{
		kind:    kind,
		argv:    argv,
		dir:     dir,
		env:     merged,
		timeout: e.timeout(timeoutSecs),
	}, nil
}

// timeout converts a request timeout in seconds, clamped to the configured max
func (e *Executor) timeout(secs int) time.Duration {
	if secs <= 0 {
		return e.defaultTimeout
	}
	d := time.Duration(secs) * time.Second
	if d > e.maxTimeout {
		return e.maxTimeout
	}
	return d
}

func (e *Executor) resolveDir(cwd string) (string, error) {
	dir := e.workspace.Root
	if cwd != "" {
		dir = e.workspace.Resolve(cwd)
	}
	info, err := os.Stat(dir)
	if err != nil {
		return "", apperrors.Validation("working directory %s does not exist", dir)
	}
	if !info.IsDir() {
		return "", apperrors.Validation("working directory %s is not a directory", dir)
	}
	return dir, nil
}

func mergeEnv(overrides map[string]string) ([]string, error) {
	env := os.Environ()
	if len(overrides) == 0 {
		return env, nil
	}

	keys := make([]string, 0, len(overrides))
	for k := range overrides {
		if k == "" || strings.ContainsAny(k, "=\x00") {
			return nil, apperrors.Validation("invalid environment variable name %q", k)
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		env = append(env, k+"="+overrides[k])
	}
	return env, nil
}

// command builds the exec.Cmd for an invocation. The returned context must be
// cancelled by the caller.
func (e *Executor) command(ctx context.Context, inv *invocation) (*exec.Cmd, context.Context, context.CancelFunc) {
	ctx, cancel := context.WithTimeout(ctx, inv.timeout)

	cmd := exec.CommandContext(ctx, inv.argv[0], inv.argv[1:]...)
	cmd.Dir = inv.dir
	cmd.Env = inv.env
	cmd.Cancel = func() error { return killProcessGroup(cmd) }
	cmd.WaitDelay = waitDelay

	return cmd, ctx, cancel
}

func (e *Executor) run(ctx context.Context, inv *invocation) (*ExecResult, error) {
	cmd, runCtx, cancel := e.command(ctx, inv)
	defer cancel()

	stdout := newCappedBuffer(e.maxOutput)
	stderr := newCappedBuffer(e.maxOutput)
	cmd.Stdout = stdout
	cmd.Stderr = stderr
	setProcessGroup(cmd)

	e.logger.Debug("starting process",
		zap.String("kind", inv.kind),
		zap.String("program", inv.argv[0]),
		zap.String("dir", inv.dir),
		zap.Duration("timeout", inv.timeout),
	)

	start := time.Now()
	if err := cmd.Start(); err != nil {
		e.record(inv.kind, "start_failed", 0)
		return nil, apperrors.Internal(err, "failed to start process")
	}
	e.active(1)
	err := cmd.Wait()
	e.active(-1)
	elapsed := time.Since(start)

	if err != nil {
		if cerr := e.contextError(runCtx, ctx, inv); cerr != nil {
			e.record(inv.kind, outcomeOf(cerr), elapsed)
			return nil, cerr
		}
	}

	code, werr := exitCode(cmd, err)
	if werr != nil {
		e.record(inv.kind, "wait_failed", elapsed)
		return nil, apperrors.Internal(werr, "failed to wait for process")
	}

	e.record(inv.kind, "completed", elapsed)
	return &ExecResult{
		Stdout:     stdout.String(),
		Stderr:     stderr.String(),
		ExitCode:   code,
		DurationMs: elapsed.Milliseconds(),
		Truncated:  stdout.Truncated() || stderr.Truncated(),
	}, nil
}

// contextError classifies an ended run context: the invocation deadline is a
// Timeout, a cancelled parent (caller gone) is Internal.
func (e *Executor) contextError(runCtx, parent context.Context, inv *invocation) error {
	if runCtx.Err() == nil {
		return nil
	}
	if parent.Err() == nil || errors.Is(parent.Err(), context.DeadlineExceeded) {
		e.logger.Warn("process timed out",
			zap.String("kind", inv.kind),
			zap.Duration("timeout", inv.timeout),
		)
		return apperrors.Timeout("process exceeded timeout of %s", inv.timeout)
	}
	return apperrors.Internal(parent.Err(), "process cancelled")
}

// exitCode extracts the exit status from a Wait error
func exitCode(cmd *exec.Cmd, err error) (int, error) {
	if err == nil {
		return cmd.ProcessState.ExitCode(), nil
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return exitErr.ExitCode(), nil
	}
	if errors.Is(err, exec.ErrWaitDelay) && cmd.ProcessState != nil {
		return cmd.ProcessState.ExitCode(), nil
	}
	return ExitCodeAbnormal, err
}

func outcomeOf(err error) string {
	if apperrors.HasCode(err, apperrors.CodeTimeout) {
		return "timeout"
	}
	return "cancelled"
}

func (e *Executor) record(kind, outcome string, d time.Duration) {
	if e.metrics != nil {
		e.metrics.RecordExecution(kind, outcome, d)
	}
}

func (e *Executor) active(delta float64) {
	if e.metrics != nil {
		e.metrics.ExecutionsActive.Add(delta)
	}
}

// cappedBuffer keeps at most max bytes and remembers whether it dropped any
type cappedBuffer struct {
	mu        sync.Mutex
	buf       bytes.Buffer
	max       int
	truncated bool
}

func newCappedBuffer(max int) *cappedBuffer {
	return &cappedBuffer{max: max}
}

func (b *cappedBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	room := b.max - b.buf.Len()
	if room <= 0 {
		b.truncated = b.truncated || len(p) > 0
		return len(p), nil
	}
	if len(p) > room {
		b.buf.Write(p[:room])
		b.truncated = true
		return len(p), nil
	}
	return b.buf.Write(p)
}

func (b *cappedBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func (b *cappedBuffer) Truncated() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.truncated
}

func itoa(n int) string {
	return strconv.Itoa(n)
}

// shellQuote quotes s for safe interpolation into an sh command line
func shellQuote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}
