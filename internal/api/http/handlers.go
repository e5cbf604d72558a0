package http

import (
	"context"
	"errors"
	"io"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/GriffinCanCode/AgentOS/sandbox/internal/domain/factory"
	"github.com/GriffinCanCode/AgentOS/sandbox/internal/domain/skills"
	"github.com/GriffinCanCode/AgentOS/sandbox/internal/infrastructure/config"
	"github.com/GriffinCanCode/AgentOS/sandbox/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/AgentOS/sandbox/internal/providers/browser"
	"github.com/GriffinCanCode/AgentOS/sandbox/internal/providers/filesystem"
	"github.com/GriffinCanCode/AgentOS/sandbox/internal/providers/shell"
	"github.com/GriffinCanCode/AgentOS/sandbox/internal/providers/tee"
	apperrors "github.com/GriffinCanCode/AgentOS/sandbox/internal/shared/errors"
	"github.com/GriffinCanCode/AgentOS/sandbox/internal/shared/paths"
)

// Browser is the page automation surface
type Browser interface {
	Goto(ctx context.Context, req browser.GotoRequest) (*browser.GotoResult, error)
	Screenshot(ctx context.Context, req browser.ScreenshotRequest) (*browser.ScreenshotResult, error)
	Evaluate(ctx context.Context, req browser.EvaluateRequest) (*browser.EvaluateResult, error)
	Click(ctx context.Context, req browser.ClickRequest) (*browser.ActionResult, error)
	Type(ctx context.Context, req browser.TypeRequest) (*browser.ActionResult, error)
	Content(ctx context.Context, req browser.ContentRequest) (*browser.ContentResult, error)
	Status() browser.Status
}

// Attestor is the confidential computing capability
type Attestor interface {
	Info(ctx context.Context) (*tee.Info, error)
	GetQuote(ctx context.Context, reportData []byte) (*tee.Quote, error)
	GetKey(ctx context.Context, path, purpose string) (*tee.Key, error)
	Sign(ctx context.Context, algorithm string, data []byte) (*tee.Signature, error)
	Verify(ctx context.Context, algorithm string, data, signature, publicKey []byte) (*tee.Verification, error)
	EmitEvent(ctx context.Context, event string, payload []byte) error
}

// Deps are the components served over HTTP
type Deps struct {
	Sandbox  config.SandboxConfig
	Executor *shell.Executor
	Files    *filesystem.Service
	Browser  Browser
	Skills   *skills.Registry
	Factory  *factory.Factory
	// TEE is nil when the capability is disabled
	TEE     Attestor
	Metrics *monitoring.Metrics
	Logger  *zap.Logger
}

// Handlers contains all HTTP handlers
type Handlers struct {
	sandbox  config.SandboxConfig
	executor *shell.Executor
	files    *filesystem.Service
	browser  Browser
	skills   *skills.Registry
	factory  *factory.Factory
	tee      Attestor
	metrics  *monitoring.Metrics
	logger   *zap.Logger
	started  time.Time
}

// NewHandlers creates a new handler set
func NewHandlers(deps Deps) *Handlers {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handlers{
		sandbox:  deps.Sandbox,
		executor: deps.Executor,
		files:    deps.Files,
		browser:  deps.Browser,
		skills:   deps.Skills,
		factory:  deps.Factory,
		tee:      deps.TEE,
		metrics:  deps.Metrics,
		logger:   logger.Named("http"),
		started:  time.Now(),
	}
}

// Health reports liveness and the state of the desktop services
func (h *Handlers) Health(c *gin.Context) {
	uptime := time.Since(h.started)
	if h.metrics != nil {
		uptime = h.metrics.Uptime()
	}

	c.JSON(http.StatusOK, gin.H{
		"status": "healthy",
		"uptime": uptime.Seconds(),
		"services": gin.H{
			"display": paths.Exists(paths.DisplaySocket(h.sandbox.Display)),
			"browser": h.browser.Status().Running,
		},
	})
}

// SandboxInfo describes how to reach the sandbox's desktop services
func (h *Handlers) SandboxInfo(c *gin.Context) {
	hostname, err := os.Hostname()
	if err != nil {
		hostname = "unknown"
	}

	c.JSON(http.StatusOK, gin.H{
		"hostname":  hostname,
		"workspace": h.sandbox.Workspace,
		"display":   h.sandbox.Display,
		"cdp_url":   "http://localhost:" + strconv.Itoa(h.sandbox.CDPPort),
		"vnc_url":   "vnc://localhost:" + strconv.Itoa(h.sandbox.VNCPort),
	})
}

// respondError renders a classified error
func (h *Handlers) respondError(c *gin.Context, err error) {
	code := apperrors.CodeOf(err)
	if code == apperrors.CodeInternal {
		h.logger.Error("Request failed",
			zap.String("path", c.Request.URL.Path),
			zap.Error(err))
	}
	_ = c.Error(err)
	c.AbortWithStatusJSON(apperrors.HTTPStatus(code), gin.H{
		"error": err.Error(),
		"code":  string(code),
	})
}

// bindJSON decodes the request body into v. An empty body leaves v zero.
func (h *Handlers) bindJSON(c *gin.Context, v any) bool {
	if err := c.ShouldBindJSON(v); err != nil && !errors.Is(err, io.EOF) {
		h.respondError(c, apperrors.Validation("invalid request body: %v", err))
		return false
	}
	return true
}
