package http

import (
	"io"
	"mime"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/klauspost/compress/gzip"
	"go.uber.org/zap"

	"github.com/GriffinCanCode/AgentOS/sandbox/internal/providers/filesystem"
	apperrors "github.com/GriffinCanCode/AgentOS/sandbox/internal/shared/errors"
	"github.com/GriffinCanCode/AgentOS/sandbox/internal/shared/utils"
)

// ReadFile returns a file's content
func (h *Handlers) ReadFile(c *gin.Context) {
	res, err := h.files.Read(c.Query("path"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// WriteFile stores content at a path
func (h *Handlers) WriteFile(c *gin.Context) {
	var req filesystem.WriteRequest
	if !h.bindJSON(c, &req) {
		return
	}

	res, err := h.files.Write(req)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// ListFiles lists a directory
func (h *Handlers) ListFiles(c *gin.Context) {
	var req filesystem.ListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		h.respondError(c, apperrors.Validation("invalid query: %v", err))
		return
	}

	res, err := h.files.List(req)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// UploadFile saves the multipart "file" field to the "path" field
func (h *Handlers) UploadFile(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, utils.MaxUploadSize+1<<20)

	path := c.PostForm("path")
	if strings.TrimSpace(path) == "" {
		h.respondError(c, apperrors.Validation("missing path field"))
		return
	}
	header, err := c.FormFile("file")
	if err != nil {
		h.respondError(c, apperrors.Validation("missing file field: %v", err))
		return
	}

	f, err := header.Open()
	if err != nil {
		h.respondError(c, apperrors.Internal(err, "failed to open upload"))
		return
	}
	defer f.Close()

	res, err := h.files.Save(path, f)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// DownloadFile streams a file as an attachment, gzip encoded when the client
// accepts it
func (h *Handlers) DownloadFile(c *gin.Context) {
	f, info, err := h.files.Open(c.Query("path"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	defer f.Close()

	c.Header("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": info.Name}))
	c.Header("Content-Type", info.MimeType)
	c.Header("Last-Modified", info.Modified.UTC().Format(http.TimeFormat))
	c.Header("Vary", "Accept-Encoding")

	if !acceptsGzip(c.GetHeader("Accept-Encoding")) {
		c.Header("Content-Length", strconv.FormatInt(info.Size, 10))
		c.Status(http.StatusOK)
		if _, err := io.Copy(c.Writer, f); err != nil {
			h.logger.Debug("Download interrupted", zap.String("path", info.Path), zap.Error(err))
		}
		return
	}

	c.Header("Content-Encoding", "gzip")
	c.Status(http.StatusOK)
	gz := gzip.NewWriter(c.Writer)
	if _, err := io.Copy(gz, f); err != nil {
		h.logger.Debug("Download interrupted", zap.String("path", info.Path), zap.Error(err))
	}
	if err := gz.Close(); err != nil {
		h.logger.Debug("Download interrupted", zap.String("path", info.Path), zap.Error(err))
	}
}

func acceptsGzip(header string) bool {
	for _, part := range strings.Split(header, ",") {
		name, params, _ := strings.Cut(strings.TrimSpace(part), ";")
		if !strings.EqualFold(strings.TrimSpace(name), "gzip") {
			continue
		}
		return strings.ReplaceAll(strings.TrimSpace(params), " ", "") != "q=0"
	}
	return false
}

// Checksum hashes a file
func (h *Handlers) Checksum(c *gin.Context) {
	res, err := h.files.Checksum(c.Query("path"), c.Query("algorithm"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}
