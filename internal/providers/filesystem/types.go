package filesystem

import "time"

const (
	EncodingUTF8   = "utf-8"
	EncodingBase64 = "base64"

	TypeFile      = "file"
	TypeDirectory = "directory"

	// MaxReadSize bounds files returned inline by Read
	MaxReadSize = 32 * 1024 * 1024
	// DefaultMode applies when a write names no mode
	DefaultMode = "644"
)

// ReadResult is a file's content and detected type
type ReadResult struct {
	Path     string `json:"path"`
	Content  string `json:"content"`
	Size     int64  `json:"size"`
	MimeType string `json:"mime_type"`
	Encoding string `json:"encoding"`
}

// WriteRequest stores content at Path. Mode is an octal string.
type WriteRequest struct {
	Path    string `json:"path"`
	Content string `json:"content"`
	Mode    string `json:"mode,omitempty"`
}

// WriteResult reports where data landed
type WriteResult struct {
	Path string `json:"path"`
	Size int64  `json:"size"`
}

// ListRequest selects directory entries
type ListRequest struct {
	Path      string `json:"path" form:"path"`
	Recursive bool   `json:"recursive" form:"recursive"`
	Pattern   string `json:"pattern" form:"pattern"`
}

// Entry is one listed file or directory
type Entry struct {
	Name     string `json:"name"`
	Path     string `json:"path"`
	Type     string `json:"type"`
	Size     int64  `json:"size"`
	Modified string `json:"modified"`
}

// ListResult holds entries sorted by path
type ListResult struct {
	Path    string  `json:"path"`
	Entries []Entry `json:"entries"`
}

// ChecksumResult is a hex digest
type ChecksumResult struct {
	Path      string `json:"path"`
	Algorithm string `json:"algorithm"`
	Checksum  string `json:"checksum"`
}

// FileInfo describes a file opened for download
type FileInfo struct {
	Path     string
	Name     string
	Size     int64
	MimeType string
	Modified time.Time
}
