package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/GriffinCanCode/AgentOS/sandbox/internal/providers/shell"
)

// Exec runs a command to completion
func (h *Handlers) Exec(c *gin.Context) {
	var req shell.ExecRequest
	if !h.bindJSON(c, &req) {
		return
	}

	res, err := h.executor.Exec(c.Request.Context(), req)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// Stream runs a command and relays its output as server-sent events. Each
// line is one message; the last message is an [exit_code:N] or [error:...]
// marker.
func (h *Handlers) Stream(c *gin.Context) {
	var req shell.ExecRequest
	if !h.bindJSON(c, &req) {
		return
	}

	var started, terminated bool
	emit := func(ev shell.StreamEvent) error {
		if !started {
			started = true
			c.Header("Cache-Control", "no-cache")
			c.Header("Connection", "keep-alive")
			c.Header("X-Accel-Buffering", "no")
			c.Status(http.StatusOK)
		}
		data := ev.Data
		if ev.Terminal() {
			terminated = true
			data = ev.Marker()
		}
		c.SSEvent("message", data)
		c.Writer.Flush()
		return c.Request.Context().Err()
	}

	err := h.executor.Stream(c.Request.Context(), req, emit)
	switch {
	case err == nil || terminated:
	case !started:
		h.respondError(c, err)
	case c.Request.Context().Err() == nil:
		_ = emit(shell.StreamEvent{Type: shell.EventError, Data: err.Error()})
	}
}

// ExecuteCode runs a source snippet in one of the supported languages
func (h *Handlers) ExecuteCode(c *gin.Context) {
	var req shell.CodeRequest
	if !h.bindJSON(c, &req) {
		return
	}

	res, err := h.executor.RunCode(c.Request.Context(), req)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// Languages lists the languages ExecuteCode accepts
func (h *Handlers) Languages(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"languages": shell.SupportedLanguages()})
}
