package ws

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/bytedance/sonic"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/GriffinCanCode/AgentOS/sandbox/internal/providers/shell"
	apperrors "github.com/GriffinCanCode/AgentOS/sandbox/internal/shared/errors"
	"github.com/GriffinCanCode/AgentOS/sandbox/internal/shared/utils"
)

const (
	writeWait     = 10 * time.Second
	handshakeWait = 30 * time.Second
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// Streamer runs a command and emits its events
type Streamer interface {
	Stream(ctx context.Context, req shell.ExecRequest, emit shell.Emitter) error
}

// Handler manages WebSocket connections
type Handler struct {
	streamer Streamer
	logger   *zap.Logger
}

// NewHandler creates a new WebSocket handler
func NewHandler(streamer Streamer, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{streamer: streamer, logger: logger.Named("ws")}
}

// HandleShell upgrades the connection and runs one streamed command
func (h *Handler) HandleShell(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Debug("WebSocket upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()

	conn.SetReadLimit(int64(utils.MaxCommandSize) + 64*1024)
	_ = conn.SetReadDeadline(time.Now().Add(handshakeWait))

	var req shell.ExecRequest
	_, frame, err := conn.ReadMessage()
	if err != nil {
		h.logger.Debug("WebSocket read failed", zap.Error(err))
		return
	}

	out := &writer{conn: conn}
	if err := sonic.Unmarshal(frame, &req); err != nil {
		out.fail(apperrors.Validation("invalid exec request: %v", err))
		return
	}
	_ = conn.SetReadDeadline(time.Time{})

	ctx, cancel := context.WithCancel(c.Request.Context())
	defer cancel()

	// Any further frame or a closed socket cancels the command
	go func() {
		defer cancel()
		_, _, _ = conn.ReadMessage()
	}()

	var terminated bool
	err = h.streamer.Stream(ctx, req, func(ev shell.StreamEvent) error {
		terminated = terminated || ev.Terminal()
		return out.send(ev)
	})
	if err != nil && !terminated && ctx.Err() == nil {
		out.fail(err)
		return
	}
	out.close()
}

// writer serializes frames to the connection
type writer struct {
	mu   sync.Mutex
	conn *websocket.Conn
}

func (w *writer) send(ev shell.StreamEvent) error {
	data, err := sonic.Marshal(ev)
	if err != nil {
		return err
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	_ = w.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return w.conn.WriteMessage(websocket.TextMessage, data)
}

// fail sends a terminal error event with the error's category and closes
func (w *writer) fail(err error) {
	data, merr := sonic.Marshal(map[string]string{
		"type": string(shell.EventError),
		"data": err.Error(),
		"code": string(apperrors.CodeOf(err)),
	})
	if merr == nil {
		w.mu.Lock()
		_ = w.conn.SetWriteDeadline(time.Now().Add(writeWait))
		_ = w.conn.WriteMessage(websocket.TextMessage, data)
		w.mu.Unlock()
	}
	w.close()
}

func (w *writer) close() {
	w.mu.Lock()
	defer w.mu.Unlock()
	msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
	_ = w.conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(writeWait))
}
