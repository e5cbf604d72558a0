package browser

import (
	"context"
	"encoding/base64"
	"errors"
	"math"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/GriffinCanCode/AgentOS/sandbox/internal/infrastructure/monitoring"
	apperrors "github.com/GriffinCanCode/AgentOS/sandbox/internal/shared/errors"
	"github.com/GriffinCanCode/AgentOS/sandbox/internal/shared/paths"
)

// Options configures a Manager
type Options struct {
	Headless   bool
	Executable string
	Viewport   Viewport
	Timeout    time.Duration
	// Launcher overrides the engine; defaults to LaunchPlaywright
	Launcher Launcher
	Logger   *zap.Logger
	Metrics  *monitoring.Metrics
}

// Manager owns the shared engine and runs page actions against it
type Manager struct {
	opts    Options
	launch  Launcher
	group   singleflight.Group
	logger  *zap.Logger
	metrics *monitoring.Metrics

	mu     sync.Mutex
	engine Engine
	closed bool
}

// NewManager creates a Manager. Nothing is launched until the first action.
func NewManager(opts Options) *Manager {
	if opts.Viewport.Width <= 0 || opts.Viewport.Height <= 0 {
		opts.Viewport = Viewport{Width: DefaultViewportWidth, Height: DefaultViewportHeight}
	}
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.Launcher == nil {
		opts.Launcher = LaunchPlaywright
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}

	return &Manager{
		opts:    opts,
		launch:  opts.Launcher,
		logger:  opts.Logger.Named("browser"),
		metrics: opts.Metrics,
	}
}

// LaunchArgs returns the Chromium flags for the current environment
func LaunchArgs() []string {
	args := []string{"--disable-gpu", "--disable-dev-shm-usage", "--disable-setuid-sandbox"}
	if paths.InContainer() {
		args = append(args, "--no-sandbox")
	}
	return args
}

func (m *Manager) current() Engine {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.engine
}

// ensure returns the running engine, launching it once for all concurrent
// callers. The launch is not bound to any single request.
func (m *Manager) ensure(ctx context.Context) (Engine, error) {
	if eng := m.current(); eng != nil {
		return eng, nil
	}

	ch := m.group.DoChan("launch", func() (any, error) {
		m.mu.Lock()
		if m.closed {
			m.mu.Unlock()
			return nil, apperrors.New(apperrors.CodeInternal, "browser manager is closed")
		}
		if m.engine != nil {
			eng := m.engine
			m.mu.Unlock()
			return eng, nil
		}
		m.mu.Unlock()

		start := time.Now()
		eng, err := m.launch(LaunchOptions{
			Headless:   m.opts.Headless,
			Executable: m.opts.Executable,
			Args:       LaunchArgs(),
		})
		if err != nil {
			m.logger.Error("browser launch failed", zap.Error(err))
			m.recordLaunch("failed")
			return nil, apperrors.Internal(err, "browser launch failed")
		}

		m.mu.Lock()
		defer m.mu.Unlock()
		if m.closed {
			_ = eng.Close()
			return nil, apperrors.New(apperrors.CodeInternal, "browser manager is closed")
		}
		m.engine = eng
		m.recordLaunch("success")
		m.setRunning(true)
		m.logger.Info("browser launched",
			zap.String("version", eng.Version()),
			zap.Duration("duration", time.Since(start)),
		)
		return eng, nil
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(Engine), nil
	case <-ctx.Done():
		return nil, ctxError(ctx)
	}
}

// withPage opens a page, optionally navigates to url, runs fn and always
// closes the page. Cancelling ctx closes the page to unblock fn.
func (m *Manager) withPage(ctx context.Context, op, url string, nav GotoOptions, fn func(Page) error) error {
	eng, err := m.ensure(ctx)
	if err != nil {
		return err
	}

	page, err := eng.NewPage(m.opts.Viewport)
	if err != nil {
		return apperrors.Internal(err, "failed to open page")
	}
	m.pages(1)
	defer m.pages(-1)

	var once sync.Once
	closePage := func() {
		once.Do(func() {
			if err := page.Close(); err != nil {
				m.logger.Debug("page close failed", zap.String("op", op), zap.Error(err))
			}
		})
	}
	defer closePage()
	stop := context.AfterFunc(ctx, closePage)
	defer stop()

	if url != "" {
		if nav.Timeout <= 0 {
			nav.Timeout = m.opts.Timeout
		}
		if err := page.Goto(url, nav); err != nil {
			return m.classify(ctx, err, "navigation failed")
		}
	}

	if err := fn(page); err != nil {
		return m.classify(ctx, err, op+" failed")
	}
	return nil
}

// classify maps engine errors onto coded errors
func (m *Manager) classify(ctx context.Context, err error, msg string) error {
	if ctx.Err() != nil {
		return ctxError(ctx)
	}
	var coded *apperrors.Error
	switch {
	case errors.As(err, &coded):
		return err
	case errors.Is(err, ErrSelectorNotFound):
		return apperrors.Wrap(err, apperrors.CodeNotFound, msg)
	case errors.Is(err, ErrTimeout):
		return apperrors.Wrap(err, apperrors.CodeTimeout, msg)
	default:
		return apperrors.Internal(err, msg)
	}
}

func ctxError(ctx context.Context) error {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return apperrors.Wrap(ctx.Err(), apperrors.CodeTimeout, "browser action timed out")
	}
	return apperrors.Internal(ctx.Err(), "browser action cancelled")
}

// Goto navigates a fresh page and reports where it landed
func (m *Manager) Goto(ctx context.Context, req GotoRequest) (*GotoResult, error) {
	if strings.TrimSpace(req.URL) == "" {
		return nil, apperrors.Validation("url is required")
	}
	if req.WaitUntil != "" && !waitUntilStates[req.WaitUntil] {
		return nil, apperrors.Validation("invalid wait_until %q", req.WaitUntil)
	}
	if req.Timeout < 0 {
		return nil, apperrors.Validation("timeout must not be negative")
	}

	nav := GotoOptions{WaitUntil: req.WaitUntil, Timeout: time.Duration(req.Timeout) * time.Millisecond}
	var res GotoResult
	err := m.withPage(ctx, "goto", req.URL, nav, func(p Page) error {
		title, err := p.Title()
		if err != nil {
			return err
		}
		res = GotoResult{URL: p.URL(), Title: title}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &res, nil
}

// Screenshot captures the viewport, the full page or a single element
func (m *Manager) Screenshot(ctx context.Context, req ScreenshotRequest) (*ScreenshotResult, error) {
	format := strings.ToLower(req.Format)
	switch format {
	case "":
		format = FormatPNG
	case "jpg":
		format = FormatJPEG
	case FormatPNG, FormatJPEG:
	default:
		return nil, apperrors.Validation("unsupported screenshot format %q", req.Format)
	}

	var res ScreenshotResult
	err := m.withPage(ctx, "screenshot", req.URL, GotoOptions{}, func(p Page) error {
		width, height := m.opts.Viewport.Width, m.opts.Viewport.Height
		if req.Selector != "" {
			box, err := p.ElementBox(req.Selector, m.opts.Timeout)
			if err != nil {
				return err
			}
			width, height = int(math.Round(box.Width)), int(math.Round(box.Height))
		}

		data, err := p.Screenshot(ShotOptions{
			Selector: req.Selector,
			Format:   format,
			FullPage: req.FullPage && req.Selector == "",
			Timeout:  m.opts.Timeout,
		})
		if err != nil {
			return err
		}
		res = ScreenshotResult{
			Data:   base64.StdEncoding.EncodeToString(data),
			Format: format,
			Width:  width,
			Height: height,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &res, nil
}

// Evaluate runs script in a page. Syntax errors are rejected before any
// page is opened.
func (m *Manager) Evaluate(ctx context.Context, req EvaluateRequest) (*EvaluateResult, error) {
	if err := CheckScript(req.Script); err != nil {
		return nil, err
	}

	var res EvaluateResult
	err := m.withPage(ctx, "evaluate", req.URL, GotoOptions{}, func(p Page) error {
		v, err := p.Evaluate(req.Script)
		if err != nil {
			return err
		}
		res.Result = v
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &res, nil
}

// Click clicks the first element matching the selector
func (m *Manager) Click(ctx context.Context, req ClickRequest) (*ActionResult, error) {
	if strings.TrimSpace(req.Selector) == "" {
		return nil, apperrors.Validation("selector is required")
	}
	err := m.withPage(ctx, "click", req.URL, GotoOptions{}, func(p Page) error {
		return p.Click(req.Selector, m.opts.Timeout)
	})
	if err != nil {
		return nil, err
	}
	return &ActionResult{Success: true}, nil
}

// Type fills the first element matching the selector
func (m *Manager) Type(ctx context.Context, req TypeRequest) (*ActionResult, error) {
	if strings.TrimSpace(req.Selector) == "" {
		return nil, apperrors.Validation("selector is required")
	}
	err := m.withPage(ctx, "type", req.URL, GotoOptions{}, func(p Page) error {
		return p.Fill(req.Selector, req.Text, m.opts.Timeout)
	})
	if err != nil {
		return nil, err
	}
	return &ActionResult{Success: true}, nil
}

// Content extracts text, links and HTML from a page
func (m *Manager) Content(ctx context.Context, req ContentRequest) (*ContentResult, error) {
	if req.Selector != "" && req.XPath != "" {
		return nil, apperrors.Validation("selector and xpath are mutually exclusive")
	}
	if req.Selector != "" {
		if _, err := CheckSelector(req.Selector); err != nil {
			return nil, err
		}
	}

	var res *ContentResult
	err := m.withPage(ctx, "content", req.URL, GotoOptions{}, func(p Page) error {
		html, err := p.Content()
		if err != nil {
			return err
		}
		title, err := p.Title()
		if err != nil {
			return err
		}
		res, err = Extract(html, req)
		if err != nil {
			return err
		}
		res.URL = p.URL()
		res.Title = title
		return nil
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}

// Status reports whether the engine is running. It never launches one.
func (m *Manager) Status() Status {
	eng := m.current()
	if eng == nil {
		return Status{}
	}
	return Status{Running: true, Version: eng.Version()}
}

// Close stops the engine. Later actions fail.
func (m *Manager) Close() error {
	m.mu.Lock()
	eng := m.engine
	m.engine = nil
	m.closed = true
	m.mu.Unlock()

	if eng == nil {
		return nil
	}
	m.setRunning(false)
	m.logger.Info("closing browser")
	return eng.Close()
}

func (m *Manager) recordLaunch(outcome string) {
	if m.metrics != nil {
		m.metrics.RecordBrowserLaunch(outcome)
	}
}

func (m *Manager) setRunning(running bool) {
	if m.metrics != nil {
		m.metrics.SetBrowserRunning(running)
	}
}

func (m *Manager) pages(delta float64) {
	if m.metrics != nil {
		m.metrics.BrowserPages.Add(delta)
	}
}
