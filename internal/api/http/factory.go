package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

type startRequest struct {
	InitialInput string `json:"initial_input"`
}

type continueRequest struct {
	SessionID string `json:"session_id"`
	Input     string `json:"input"`
}

type checkRequest struct {
	Input string `json:"input"`
}

// FactoryStart opens a skill creation dialogue
func (h *Handlers) FactoryStart(c *gin.Context) {
	var req startRequest
	if !h.bindJSON(c, &req) {
		return
	}

	res, err := h.factory.Start(c.Request.Context(), req.InitialInput)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// FactoryContinue answers the current question of a dialogue
func (h *Handlers) FactoryContinue(c *gin.Context) {
	var req continueRequest
	if !h.bindJSON(c, &req) {
		return
	}

	res, err := h.factory.Continue(c.Request.Context(), req.SessionID, req.Input)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// FactoryCheck reports whether input asks for a new skill
func (h *Handlers) FactoryCheck(c *gin.Context) {
	var req checkRequest
	if !h.bindJSON(c, &req) {
		return
	}
	c.JSON(http.StatusOK, h.factory.CheckTrigger(req.Input))
}
