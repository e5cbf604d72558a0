package http

import (
	"github.com/gin-gonic/gin"
)

// Register mounts every sandbox route on r
func (h *Handlers) Register(r gin.IRouter) {
	r.GET("/health", h.Health)
	r.GET("/sandbox/info", h.SandboxInfo)
	if h.metrics != nil {
		r.GET("/metrics", gin.WrapH(h.metrics.Handler()))
	}

	sh := r.Group("/shell")
	sh.POST("/exec", h.Exec)
	sh.POST("/stream", h.Stream)

	code := r.Group("/code")
	code.POST("/execute", h.ExecuteCode)
	code.GET("/languages", h.Languages)

	file := r.Group("/file")
	file.GET("/read", h.ReadFile)
	file.POST("/write", h.WriteFile)
	file.GET("/list", h.ListFiles)
	file.POST("/upload", h.UploadFile)
	file.GET("/download", h.DownloadFile)
	file.GET("/checksum", h.Checksum)

	br := r.Group("/browser")
	br.POST("/goto", h.BrowserGoto)
	br.POST("/screenshot", h.BrowserScreenshot)
	br.POST("/evaluate", h.BrowserEvaluate)
	br.POST("/click", h.BrowserClick)
	br.POST("/type", h.BrowserType)
	br.POST("/content", h.BrowserContent)
	br.GET("/status", h.BrowserStatus)

	sk := r.Group("/skills")
	sk.GET("", h.ListSkills)
	sk.POST("", h.CreateSkill)
	sk.GET("/search", h.SearchSkills)
	sk.GET("/:name", h.GetSkill)
	sk.PUT("/:name", h.UpdateSkill)
	sk.DELETE("/:name", h.DeleteSkill)
	sk.POST("/:name/scripts/:script", h.ExecuteSkillScript)

	fa := r.Group("/factory")
	fa.POST("/start", h.FactoryStart)
	fa.POST("/continue", h.FactoryContinue)
	fa.POST("/check", h.FactoryCheck)

	te := r.Group("/tee", h.RequireTEE)
	te.GET("/info", h.TEEInfo)
	te.POST("/quote", h.TEEQuote)
	te.POST("/derive-key", h.TEEDeriveKey)
	te.POST("/sign", h.TEESign)
	te.POST("/verify", h.TEEVerify)
	te.POST("/emit-event", h.TEEEmitEvent)
}
