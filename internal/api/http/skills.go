package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/GriffinCanCode/AgentOS/sandbox/internal/domain/skills"
)

// ListSkills lists skill summaries
func (h *Handlers) ListSkills(c *gin.Context) {
	list, err := h.skills.List(c.Request.Context())
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"skills": list})
}

// SearchSkills filters skills by a case-insensitive query
func (h *Handlers) SearchSkills(c *gin.Context) {
	list, err := h.skills.Search(c.Request.Context(), c.Query("q"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"skills": list})
}

// GetSkill returns one skill
func (h *Handlers) GetSkill(c *gin.Context) {
	skill, err := h.skills.Get(c.Request.Context(), c.Param("name"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, skill)
}

// CreateSkill stores a new skill
func (h *Handlers) CreateSkill(c *gin.Context) {
	var req skills.CreateRequest
	if !h.bindJSON(c, &req) {
		return
	}

	skill, err := h.skills.Create(c.Request.Context(), req)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, skill)
}

// UpdateSkill changes an existing skill
func (h *Handlers) UpdateSkill(c *gin.Context) {
	var req skills.UpdateRequest
	if !h.bindJSON(c, &req) {
		return
	}

	skill, err := h.skills.Update(c.Request.Context(), c.Param("name"), req)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, skill)
}

// DeleteSkill removes a skill
func (h *Handlers) DeleteSkill(c *gin.Context) {
	name := c.Param("name")
	if err := h.skills.Delete(c.Request.Context(), name); err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"deleted": name,
		"message": "Skill '" + name + "' deleted successfully",
	})
}

// ExecuteSkillScript runs a script bundled with a skill
func (h *Handlers) ExecuteSkillScript(c *gin.Context) {
	var req skills.ScriptRequest
	if !h.bindJSON(c, &req) {
		return
	}

	res, err := h.skills.ExecuteScript(c.Request.Context(), c.Param("name"), c.Param("script"), req)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}
