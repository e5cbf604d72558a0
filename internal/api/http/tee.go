package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/GriffinCanCode/AgentOS/sandbox/internal/providers/tee"
	apperrors "github.com/GriffinCanCode/AgentOS/sandbox/internal/shared/errors"
)

// RequireTEE answers 404 on every /tee route when the capability is off
func (h *Handlers) RequireTEE(c *gin.Context) {
	if h.tee == nil {
		h.respondError(c, apperrors.NotFound("tee capability not enabled"))
		return
	}
	c.Next()
}

// TEEInfo returns CVM instance metadata
func (h *Handlers) TEEInfo(c *gin.Context) {
	info, err := h.tee.Info(c.Request.Context())
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, info)
}

// TEEQuote generates an attestation quote over hex report data
func (h *Handlers) TEEQuote(c *gin.Context) {
	var req tee.QuoteRequest
	if !h.bindJSON(c, &req) {
		return
	}
	data, err := tee.DecodeHex("report_data", req.ReportData)
	if err != nil {
		h.respondError(c, err)
		return
	}

	quote, err := h.tee.GetQuote(c.Request.Context(), data)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, quote)
}

// TEEDeriveKey derives a key for a path and purpose
func (h *Handlers) TEEDeriveKey(c *gin.Context) {
	var req tee.KeyRequest
	if !h.bindJSON(c, &req) {
		return
	}

	key, err := h.tee.GetKey(c.Request.Context(), req.Path, req.Purpose)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, key)
}

// TEESign signs hex data
func (h *Handlers) TEESign(c *gin.Context) {
	var req tee.SignRequest
	if !h.bindJSON(c, &req) {
		return
	}
	data, err := tee.DecodeHex("data", req.Data)
	if err != nil {
		h.respondError(c, err)
		return
	}

	sig, err := h.tee.Sign(c.Request.Context(), req.Algorithm, data)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, sig)
}

// TEEVerify checks a hex signature
func (h *Handlers) TEEVerify(c *gin.Context) {
	var req tee.VerifyRequest
	if !h.bindJSON(c, &req) {
		return
	}

	var fields [3][]byte
	for i, f := range []struct{ name, value string }{
		{"data", req.Data},
		{"signature", req.Signature},
		{"public_key", req.PublicKey},
	} {
		b, err := tee.DecodeHex(f.name, f.value)
		if err != nil {
			h.respondError(c, err)
			return
		}
		fields[i] = b
	}

	v, err := h.tee.Verify(c.Request.Context(), req.Algorithm, fields[0], fields[1], fields[2])
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, v)
}

// TEEEmitEvent records a runtime event
func (h *Handlers) TEEEmitEvent(c *gin.Context) {
	var req tee.EventRequest
	if !h.bindJSON(c, &req) {
		return
	}

	if err := h.tee.EmitEvent(c.Request.Context(), req.Event, []byte(req.Payload)); err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Event '" + req.Event + "' emitted successfully",
	})
}
