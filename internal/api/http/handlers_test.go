//go:build !windows

package http

import (
	"bytes"
	"compress/gzip"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

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

type fakeBrowser struct {
	running bool
	err     error
	lastURL string
}

func (b *fakeBrowser) Goto(_ context.Context, req browser.GotoRequest) (*browser.GotoResult, error) {
	if b.err != nil {
		return nil, b.err
	}
	b.lastURL = req.URL
	return &browser.GotoResult{URL: req.URL, Title: "Example"}, nil
}

func (b *fakeBrowser) Screenshot(context.Context, browser.ScreenshotRequest) (*browser.ScreenshotResult, error) {
	return &browser.ScreenshotResult{Data: "iVBORw0KGgo=", Format: browser.FormatPNG, Width: 1280, Height: 720}, b.err
}

func (b *fakeBrowser) Evaluate(context.Context, browser.EvaluateRequest) (*browser.EvaluateResult, error) {
	return &browser.EvaluateResult{Result: float64(2)}, b.err
}

func (b *fakeBrowser) Click(_ context.Context, req browser.ClickRequest) (*browser.ActionResult, error) {
	if b.err != nil {
		return nil, b.err
	}
	return &browser.ActionResult{Success: true}, nil
}

func (b *fakeBrowser) Type(context.Context, browser.TypeRequest) (*browser.ActionResult, error) {
	return &browser.ActionResult{Success: true}, b.err
}

func (b *fakeBrowser) Content(context.Context, browser.ContentRequest) (*browser.ContentResult, error) {
	return &browser.ContentResult{Title: "Example", Text: "hello"}, b.err
}

func (b *fakeBrowser) Status() browser.Status {
	return browser.Status{Running: b.running}
}

type fakeAttestor struct {
	quoteData []byte
	verified  [][]byte
}

func (a *fakeAttestor) Info(context.Context) (*tee.Info, error) {
	return &tee.Info{AppID: "app-1"}, nil
}

func (a *fakeAttestor) GetQuote(_ context.Context, data []byte) (*tee.Quote, error) {
	a.quoteData = data
	return &tee.Quote{Quote: "q"}, nil
}

func (a *fakeAttestor) GetKey(_ context.Context, path, purpose string) (*tee.Key, error) {
	return &tee.Key{Key: path + ":" + purpose}, nil
}

func (a *fakeAttestor) Sign(context.Context, string, []byte) (*tee.Signature, error) {
	return &tee.Signature{Signature: "sig"}, nil
}

func (a *fakeAttestor) Verify(_ context.Context, _ string, data, sig, pub []byte) (*tee.Verification, error) {
	a.verified = [][]byte{data, sig, pub}
	return &tee.Verification{Valid: true}, nil
}

func (a *fakeAttestor) EmitEvent(context.Context, string, []byte) error {
	return nil
}

type fixture struct {
	router    *gin.Engine
	workspace string
	browser   *fakeBrowser
}

func newFixture(t *testing.T, attestor Attestor) *fixture {
	t.Helper()
	gin.SetMode(gin.TestMode)

	workspace := t.TempDir()
	metrics := monitoring.NewMetrics()
	exec := shell.New(shell.Options{Workspace: workspace, DefaultTimeout: 5 * time.Second, Metrics: metrics})
	registry := skills.NewRegistry(filepath.Join(workspace, paths.SkillsDirName), exec, nil, metrics)
	fac := factory.New(registry, factory.Options{TTL: time.Hour, SweepInterval: time.Hour, Metrics: metrics})
	t.Cleanup(func() { _ = fac.Close() })

	fb := &fakeBrowser{}
	deps := Deps{
		Sandbox:  config.SandboxConfig{Workspace: workspace, Display: ":99", CDPPort: 9222, VNCPort: 5900},
		Executor: exec,
		Files:    filesystem.New(paths.NewWorkspace(workspace), nil),
		Browser:  fb,
		Skills:   registry,
		Factory:  fac,
		Metrics:  metrics,
	}
	if attestor != nil {
		deps.TEE = attestor
	}

	router := gin.New()
	NewHandlers(deps).Register(router)
	return &fixture{router: router, workspace: workspace, browser: fb}
}

func (f *fixture) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var r io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		r = strings.NewReader(b)
	default:
		data, err := json.Marshal(b)
		require.NoError(t, err)
		r = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, r)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return out
}

func assertError(t *testing.T, w *httptest.ResponseRecorder, status int, code apperrors.Code) {
	t.Helper()
	assert.Equal(t, status, w.Code, w.Body.String())
	body := decode(t, w)
	assert.Equal(t, string(code), body["code"])
	assert.NotEmpty(t, body["error"])
}

func TestHealth(t *testing.T) {
	f := newFixture(t, nil)
	f.browser.running = true

	w := f.do(t, http.MethodGet, "/health", nil)
	require.Equal(t, http.StatusOK, w.Code)

	body := decode(t, w)
	assert.Equal(t, "healthy", body["status"])
	assert.GreaterOrEqual(t, body["uptime"].(float64), 0.0)
	services := body["services"].(map[string]any)
	assert.Equal(t, true, services["browser"])
	assert.Contains(t, services, "display")
}

func TestSandboxInfo(t *testing.T) {
	f := newFixture(t, nil)

	body := decode(t, f.do(t, http.MethodGet, "/sandbox/info", nil))
	assert.Equal(t, f.workspace, body["workspace"])
	assert.Equal(t, ":99", body["display"])
	assert.Equal(t, "http://localhost:9222", body["cdp_url"])
	assert.Equal(t, "vnc://localhost:5900", body["vnc_url"])
	assert.NotEmpty(t, body["hostname"])
}

func TestMetricsRoute(t *testing.T) {
	f := newFixture(t, nil)
	f.do(t, http.MethodPost, "/shell/exec", gin.H{"command": "true"})

	w := f.do(t, http.MethodGet, "/metrics", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.NotEmpty(t, w.Body.String())
}

func TestShellExec(t *testing.T) {
	f := newFixture(t, nil)

	w := f.do(t, http.MethodPost, "/shell/exec", gin.H{"command": "echo hi; echo err >&2; exit 4"})
	require.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	assert.Equal(t, "hi\n", body["stdout"])
	assert.Equal(t, "err\n", body["stderr"])
	assert.Equal(t, float64(4), body["exit_code"])
	assert.Contains(t, body, "duration_ms")
}

func TestShellExecErrors(t *testing.T) {
	f := newFixture(t, nil)

	assertError(t, f.do(t, http.MethodPost, "/shell/exec", gin.H{"command": ""}), http.StatusBadRequest, apperrors.CodeValidation)
	assertError(t, f.do(t, http.MethodPost, "/shell/exec", "{broken"), http.StatusBadRequest, apperrors.CodeValidation)
	assertError(t, f.do(t, http.MethodPost, "/shell/exec", gin.H{"command": "sleep 5", "timeout": 1}), http.StatusRequestTimeout, apperrors.CodeTimeout)
}

func TestShellStream(t *testing.T) {
	f := newFixture(t, nil)

	w := f.do(t, http.MethodPost, "/shell/stream", gin.H{"command": "echo hello; exit 2"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Type"), "text/event-stream")

	out := w.Body.String()
	assert.Contains(t, out, "event:message\ndata:hello\n")
	assert.True(t, strings.HasSuffix(out, "data:[exit_code:2]\n\n"), out)
	assert.Equal(t, 1, strings.Count(out, "[exit_code:"))
}

func TestShellStreamTimeoutMarker(t *testing.T) {
	f := newFixture(t, nil)

	w := f.do(t, http.MethodPost, "/shell/stream", gin.H{"command": "echo start; sleep 5", "timeout": 1})
	require.Equal(t, http.StatusOK, w.Code)
	out := w.Body.String()
	assert.Contains(t, out, "data:start\n")
	assert.Contains(t, out, "data:[error:")
	assert.NotContains(t, out, "[exit_code:")
}

func TestShellStreamValidationIsJSON(t *testing.T) {
	f := newFixture(t, nil)
	assertError(t, f.do(t, http.MethodPost, "/shell/stream", gin.H{"command": " "}), http.StatusBadRequest, apperrors.CodeValidation)
}

func TestExecuteCode(t *testing.T) {
	f := newFixture(t, nil)

	w := f.do(t, http.MethodPost, "/code/execute", gin.H{"language": "bash", "code": "echo $((6*7))"})
	require.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	assert.Equal(t, "42\n", body["output"])
	assert.Equal(t, float64(0), body["exit_code"])

	assertError(t, f.do(t, http.MethodPost, "/code/execute", gin.H{"language": "cobol", "code": "x"}), http.StatusBadRequest, apperrors.CodeValidation)

	langs := decode(t, f.do(t, http.MethodGet, "/code/languages", nil))
	assert.Contains(t, langs["languages"], "python")
}

func TestFileRoundTrip(t *testing.T) {
	f := newFixture(t, nil)

	w := f.do(t, http.MethodPost, "/file/write", gin.H{"path": "notes/a.txt", "content": "hello"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, filepath.Join(f.workspace, "notes", "a.txt"), decode(t, w)["path"])

	body := decode(t, f.do(t, http.MethodGet, "/file/read?path=notes/a.txt", nil))
	assert.Equal(t, "hello", body["content"])
	assert.Equal(t, "utf-8", body["encoding"])
	assert.Equal(t, float64(5), body["size"])

	list := decode(t, f.do(t, http.MethodGet, "/file/list?path=notes", nil))
	entries := list["entries"].([]any)
	require.Len(t, entries, 1)
	assert.Equal(t, "a.txt", entries[0].(map[string]any)["name"])
	assert.Equal(t, "file", entries[0].(map[string]any)["type"])

	list = decode(t, f.do(t, http.MethodGet, "/file/list?recursive=true&pattern=**/*.txt", nil))
	assert.Len(t, list["entries"].([]any), 1)

	sum := decode(t, f.do(t, http.MethodGet, "/file/checksum?path=notes/a.txt&algorithm=sha256", nil))
	assert.Equal(t, "2cf24dba5fb0a30e26e83b2ac5b9e29e1b161e5c1fa7425e73043362938b9824", sum["checksum"])
}

func TestFileErrors(t *testing.T) {
	f := newFixture(t, nil)

	assertError(t, f.do(t, http.MethodGet, "/file/read?path=missing.txt", nil), http.StatusNotFound, apperrors.CodeNotFound)
	assertError(t, f.do(t, http.MethodGet, "/file/read", nil), http.StatusBadRequest, apperrors.CodeValidation)
	assertError(t, f.do(t, http.MethodPost, "/file/write", gin.H{"path": "x", "content": "x", "mode": "999"}), http.StatusBadRequest, apperrors.CodeValidation)
	assertError(t, f.do(t, http.MethodGet, "/file/download?path=missing", nil), http.StatusNotFound, apperrors.CodeNotFound)
	assertError(t, f.do(t, http.MethodGet, "/file/checksum?path=x&algorithm=md5", nil), http.StatusBadRequest, apperrors.CodeValidation)
}

func TestFileUpload(t *testing.T) {
	f := newFixture(t, nil)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	require.NoError(t, mw.WriteField("path", "up/data.bin"))
	part, err := mw.CreateFormFile("file", "data.bin")
	require.NoError(t, err)
	_, _ = part.Write([]byte("uploaded bytes"))
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/file/upload", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, float64(14), decode(t, w)["size"])

	data, err := os.ReadFile(filepath.Join(f.workspace, "up", "data.bin"))
	require.NoError(t, err)
	assert.Equal(t, "uploaded bytes", string(data))
}

func TestFileUploadRequiresFields(t *testing.T) {
	f := newFixture(t, nil)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	require.NoError(t, mw.WriteField("path", "x.bin"))
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/file/upload", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	assertError(t, w, http.StatusBadRequest, apperrors.CodeValidation)
}

func TestFileDownload(t *testing.T) {
	f := newFixture(t, nil)
	content := strings.Repeat("line of text\n", 100)
	require.NoError(t, os.WriteFile(filepath.Join(f.workspace, "log.txt"), []byte(content), 0o644))

	w := f.do(t, http.MethodGet, "/file/download?path=log.txt", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, content, w.Body.String())
	assert.Equal(t, "text/plain", w.Header().Get("Content-Type"))
	assert.Contains(t, w.Header().Get("Content-Disposition"), `filename=log.txt`)
	assert.Empty(t, w.Header().Get("Content-Encoding"))

	req := httptest.NewRequest(http.MethodGet, "/file/download?path=log.txt", nil)
	req.Header.Set("Accept-Encoding", "br, gzip;q=0.8")
	w = httptest.NewRecorder()
	f.router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "gzip", w.Header().Get("Content-Encoding"))
	zr, err := gzip.NewReader(w.Body)
	require.NoError(t, err)
	plain, err := io.ReadAll(zr)
	require.NoError(t, err)
	assert.Equal(t, content, string(plain))
}

func TestAcceptsGzip(t *testing.T) {
	assert.True(t, acceptsGzip("gzip"))
	assert.True(t, acceptsGzip("deflate, GZIP;q=0.5"))
	assert.False(t, acceptsGzip("gzip;q=0"))
	assert.False(t, acceptsGzip("br"))
	assert.False(t, acceptsGzip(""))
}

func TestBrowserRoutes(t *testing.T) {
	f := newFixture(t, nil)

	body := decode(t, f.do(t, http.MethodPost, "/browser/goto", gin.H{"url": "https://example.com"}))
	assert.Equal(t, "Example", body["title"])
	assert.Equal(t, "https://example.com", f.browser.lastURL)

	body = decode(t, f.do(t, http.MethodPost, "/browser/screenshot", gin.H{}))
	assert.Equal(t, "png", body["format"])
	assert.Equal(t, float64(1280), body["width"])

	body = decode(t, f.do(t, http.MethodPost, "/browser/evaluate", gin.H{"script": "1+1"}))
	assert.Equal(t, float64(2), body["result"])

	body = decode(t, f.do(t, http.MethodPost, "/browser/click", gin.H{"selector": "#go"}))
	assert.Equal(t, true, body["success"])

	body = decode(t, f.do(t, http.MethodPost, "/browser/content", gin.H{}))
	assert.Equal(t, "hello", body["text"])

	body = decode(t, f.do(t, http.MethodGet, "/browser/status", nil))
	assert.Equal(t, false, body["running"])
}

func TestBrowserErrorMapping(t *testing.T) {
	f := newFixture(t, nil)

	f.browser.err = apperrors.NotFound("selector not found: #missing")
	assertError(t, f.do(t, http.MethodPost, "/browser/click", gin.H{"selector": "#missing"}), http.StatusNotFound, apperrors.CodeNotFound)

	f.browser.err = apperrors.Timeout("navigation timed out")
	assertError(t, f.do(t, http.MethodPost, "/browser/goto", gin.H{"url": "https://slow.example"}), http.StatusRequestTimeout, apperrors.CodeTimeout)
}

func TestSkillLifecycle(t *testing.T) {
	f := newFixture(t, nil)

	w := f.do(t, http.MethodPost, "/skills", gin.H{
		"name":        "greeter",
		"description": "Greets people",
		"body":        "# Greeter",
		"scripts":     gin.H{"hello.sh": "echo hello $1"},
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	assertError(t, f.do(t, http.MethodPost, "/skills", gin.H{"name": "greeter", "description": "again", "body": "x"}), http.StatusConflict, apperrors.CodeConflict)

	list := decode(t, f.do(t, http.MethodGet, "/skills", nil))
	assert.Len(t, list["skills"].([]any), 1)

	found := decode(t, f.do(t, http.MethodGet, "/skills/search?q=GREET", nil))
	assert.Len(t, found["skills"].([]any), 1)

	skill := decode(t, f.do(t, http.MethodGet, "/skills/greeter", nil))
	assert.Equal(t, "Greets people", skill["description"])

	w = f.do(t, http.MethodPost, "/skills/greeter/scripts/hello.sh", gin.H{"args": []string{"world"}})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "hello world\n", decode(t, w)["stdout"])

	assertError(t, f.do(t, http.MethodPost, "/skills/greeter/scripts/missing.sh", nil), http.StatusNotFound, apperrors.CodeNotFound)

	w = f.do(t, http.MethodPut, "/skills/greeter", gin.H{"description": "Says hello"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Says hello", decode(t, w)["description"])

	w = f.do(t, http.MethodDelete, "/skills/greeter", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "greeter", decode(t, w)["deleted"])

	assertError(t, f.do(t, http.MethodGet, "/skills/greeter", nil), http.StatusNotFound, apperrors.CodeNotFound)
	assertError(t, f.do(t, http.MethodGet, "/skills/Bad_Name", nil), http.StatusBadRequest, apperrors.CodeValidation)
}

func TestFactoryDialogue(t *testing.T) {
	f := newFixture(t, nil)

	start := decode(t, f.do(t, http.MethodPost, "/factory/start", gin.H{"initial_input": "Summarize PDFs"}))
	id := start["session_id"].(string)
	assert.Equal(t, "Trigger", start["step"])
	assert.Equal(t, false, start["done"])

	var last map[string]any
	for _, input := range []string{"summarize pdf, pdf summary", "input: report.pdf output: summary", "simple", "none", "yes"} {
		w := f.do(t, http.MethodPost, "/factory/continue", gin.H{"session_id": id, "input": input})
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		last = decode(t, w)
	}
	assert.Equal(t, true, last["done"])
	assert.Equal(t, "summarize-pdfs", last["skill"].(map[string]any)["name"])

	assertError(t, f.do(t, http.MethodPost, "/factory/continue", gin.H{"session_id": id, "input": "x"}), http.StatusNotFound, apperrors.CodeNotFound)

	// An empty body starts at the goal question
	start = decode(t, f.do(t, http.MethodPost, "/factory/start", nil))
	assert.Equal(t, "Goal", start["step"])
}

func TestFactoryCheck(t *testing.T) {
	f := newFixture(t, nil)

	body := decode(t, f.do(t, http.MethodPost, "/factory/check", gin.H{"input": "Please create a skill for me"}))
	assert.Equal(t, true, body["triggers_factory"])
	assert.NotEmpty(t, body["matched_phrases"])

	body = decode(t, f.do(t, http.MethodPost, "/factory/check", gin.H{"input": "what time is it"}))
	assert.Equal(t, false, body["triggers_factory"])
}

func TestTEEDisabled(t *testing.T) {
	f := newFixture(t, nil)

	w := f.do(t, http.MethodGet, "/tee/info", nil)
	assertError(t, w, http.StatusNotFound, apperrors.CodeNotFound)
	assert.Contains(t, w.Body.String(), "tee capability not enabled")

	assertError(t, f.do(t, http.MethodPost, "/tee/quote", gin.H{"report_data": "00"}), http.StatusNotFound, apperrors.CodeNotFound)
}

func TestTEEEnabled(t *testing.T) {
	att := &fakeAttestor{}
	f := newFixture(t, att)

	body := decode(t, f.do(t, http.MethodGet, "/tee/info", nil))
	assert.Equal(t, "app-1", body["app_id"])

	w := f.do(t, http.MethodPost, "/tee/quote", gin.H{"report_data": "cafe"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []byte{0xca, 0xfe}, att.quoteData)

	assertError(t, f.do(t, http.MethodPost, "/tee/quote", gin.H{"report_data": "xyz"}), http.StatusBadRequest, apperrors.CodeValidation)

	body = decode(t, f.do(t, http.MethodPost, "/tee/derive-key", gin.H{"path": "p", "purpose": "q"}))
	assert.Equal(t, "p:q", body["key"])

	w = f.do(t, http.MethodPost, "/tee/verify", gin.H{"algorithm": "secp256k1", "data": "01", "signature": "02", "public_key": "03"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, [][]byte{{0x01}, {0x02}, {0x03}}, att.verified)

	assertError(t, f.do(t, http.MethodPost, "/tee/verify", gin.H{"algorithm": "secp256k1", "data": "01", "signature": "zz", "public_key": "03"}), http.StatusBadRequest, apperrors.CodeValidation)

	body = decode(t, f.do(t, http.MethodPost, "/tee/emit-event", gin.H{"event": "deploy", "payload": "v1"}))
	assert.Equal(t, true, body["success"])
	assert.Equal(t, "Event 'deploy' emitted successfully", body["message"])
}
