package http

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
)

// browserCall decodes a request, runs op and renders its result
func browserCall[Req any, Res any](h *Handlers, c *gin.Context, op func(context.Context, Req) (*Res, error)) {
	var req Req
	if !h.bindJSON(c, &req) {
		return
	}
	res, err := op(c.Request.Context(), req)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// BrowserGoto navigates to a URL
func (h *Handlers) BrowserGoto(c *gin.Context) {
	browserCall(h, c, h.browser.Goto)
}

// BrowserScreenshot captures a page or element
func (h *Handlers) BrowserScreenshot(c *gin.Context) {
	browserCall(h, c, h.browser.Screenshot)
}

// BrowserEvaluate runs a script in the page
func (h *Handlers) BrowserEvaluate(c *gin.Context) {
	browserCall(h, c, h.browser.Evaluate)
}

// BrowserClick clicks an element
func (h *Handlers) BrowserClick(c *gin.Context) {
	browserCall(h, c, h.browser.Click)
}

// BrowserType fills an element with text
func (h *Handlers) BrowserType(c *gin.Context) {
	browserCall(h, c, h.browser.Type)
}

// BrowserContent extracts text, HTML and links
func (h *Handlers) BrowserContent(c *gin.Context) {
	browserCall(h, c, h.browser.Content)
}

// BrowserStatus reports whether the engine is running. It never launches it.
func (h *Handlers) BrowserStatus(c *gin.Context) {
	c.JSON(http.StatusOK, h.browser.Status())
}
