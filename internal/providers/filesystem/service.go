package filesystem

import (
	"encoding/base64"
	"errors"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/charlievieth/fastwalk"
	"github.com/gabriel-vasile/mimetype"
	"github.com/saintfish/chardet"
	"go.uber.org/zap"
	"golang.org/x/net/html/charset"

	apperrors "github.com/GriffinCanCode/AgentOS/sandbox/internal/shared/errors"
	"github.com/GriffinCanCode/AgentOS/sandbox/internal/shared/paths"
	"github.com/GriffinCanCode/AgentOS/sandbox/internal/shared/utils"
)

// Service performs file operations relative to a workspace
type Service struct {
	workspace paths.Workspace
	logger    *zap.Logger
}

// New creates a file service
func New(workspace paths.Workspace, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{workspace: workspace, logger: logger}
}

// Resolve validates a caller path and maps it to an absolute path
func (s *Service) Resolve(path string) (string, error) {
	if err := utils.ValidateRequired("path", path); err != nil {
		return "", apperrors.Validation("%s", err.Error())
	}
	if strings.ContainsRune(path, 0) {
		return "", apperrors.Validation("path contains NUL byte")
	}
	return s.workspace.Resolve(path), nil
}

// Read returns a file's content. Text is returned as UTF-8, anything else
// base64 encoded.
func (s *Service) Read(path string) (*ReadResult, error) {
	full, err := s.Resolve(path)
	if err != nil {
		return nil, err
	}

	info, err := statFile(full)
	if err != nil {
		return nil, err
	}
	if err := utils.ValidateSize("file", int(info.Size()), MaxReadSize); err != nil {
		return nil, apperrors.Validation("%s", err.Error())
	}

	data, err := os.ReadFile(full)
	if err != nil {
		return nil, pathError(err, full)
	}

	mt := mimetype.Detect(data)
	content, encoding := decode(data, mt)

	return &ReadResult{
		Path:     full,
		Content:  content,
		Size:     int64(len(data)),
		MimeType: mediaType(mt),
		Encoding: encoding,
	}, nil
}

// decode renders data as UTF-8 text when it is text in a known charset
func decode(data []byte, mt *mimetype.MIME) (string, string) {
	if !isText(mt) {
		return base64.StdEncoding.EncodeToString(data), EncodingBase64
	}
	if utf8.Valid(data) {
		return string(data), EncodingUTF8
	}

	result, err := chardet.NewTextDetector().DetectBest(data)
	if err == nil {
		if enc, name := charset.Lookup(result.Charset); enc != nil {
			if text, err := enc.NewDecoder().Bytes(data); err == nil {
				return string(text), name
			}
		}
	}
	return base64.StdEncoding.EncodeToString(data), EncodingBase64
}

func isText(mt *mimetype.MIME) bool {
	for m := mt; m != nil; m = m.Parent() {
		if m.Is("text/plain") {
			return true
		}
	}
	return false
}

func mediaType(mt *mimetype.MIME) string {
	media, _, _ := strings.Cut(mt.String(), ";")
	return strings.TrimSpace(media)
}

// Write stores content, creating parent directories
func (s *Service) Write(req WriteRequest) (*WriteResult, error) {
	full, err := s.Resolve(req.Path)
	if err != nil {
		return nil, err
	}
	mode, err := ParseMode(req.Mode)
	if err != nil {
		return nil, err
	}
	if err := utils.ValidateSize("content", len(req.Content), utils.MaxFileWriteSize); err != nil {
		return nil, apperrors.Validation("%s", err.Error())
	}

	if err := writeAtomic(full, strings.NewReader(req.Content), mode, utils.MaxFileWriteSize); err != nil {
		return nil, err
	}

	s.logger.Debug("File written", zap.String("path", full), zap.Int("size", len(req.Content)))
	return &WriteResult{Path: full, Size: int64(len(req.Content))}, nil
}

// Save streams an upload to path
func (s *Service) Save(path string, r io.Reader) (*WriteResult, error) {
	full, err := s.Resolve(path)
	if err != nil {
		return nil, err
	}
	if info, err := os.Stat(full); err == nil && info.IsDir() {
		return nil, apperrors.Validation("path is a directory: %s", full)
	}

	counter := &countingReader{r: r}
	if err := writeAtomic(full, counter, 0o644, utils.MaxUploadSize); err != nil {
		return nil, err
	}

	s.logger.Debug("File uploaded", zap.String("path", full), zap.Int64("size", counter.n))
	return &WriteResult{Path: full, Size: counter.n}, nil
}

// ParseMode parses an octal permission string, empty meaning 644
func ParseMode(mode string) (os.FileMode, error) {
	if mode == "" {
		mode = DefaultMode
	}
	v, err := strconv.ParseUint(strings.TrimPrefix(mode, "0o"), 8, 32)
	if err != nil || v > 0o777 {
		return 0, apperrors.Validation("invalid mode %q: expected octal permissions", mode)
	}
	return os.FileMode(v), nil
}

// writeAtomic copies at most limit bytes to a sibling temp file and renames it into place
func writeAtomic(path string, r io.Reader, mode os.FileMode, limit int) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return apperrors.Wrap(err, apperrors.CodeInternal, "failed to create parent directory")
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return apperrors.Wrap(err, apperrors.CodeInternal, "failed to create file")
	}
	name := tmp.Name()
	defer os.Remove(name)

	n, err := io.Copy(tmp, io.LimitReader(r, int64(limit)+1))
	if err != nil {
		tmp.Close()
		return apperrors.Wrap(err, apperrors.CodeInternal, "failed to write file")
	}
	if n > int64(limit) {
		tmp.Close()
		return apperrors.Validation("file exceeds maximum size of %d bytes", limit)
	}
	if err := tmp.Close(); err != nil {
		return apperrors.Wrap(err, apperrors.CodeInternal, "failed to write file")
	}
	if err := os.Chmod(name, mode); err != nil {
		return apperrors.Wrap(err, apperrors.CodeInternal, "failed to set mode")
	}
	if err := os.Rename(name, path); err != nil {
		return apperrors.Wrap(err, apperrors.CodeInternal, "failed to write file")
	}
	return nil
}

type countingReader struct {
	r io.Reader
	n int64
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.n += int64(n)
	return n, err
}

// List returns directory entries sorted by path. Patterns match the path
// relative to the listed directory.
func (s *Service) List(req ListRequest) (*ListResult, error) {
	path := req.Path
	if path == "" {
		path = "."
	}
	root, err := s.Resolve(path)
	if err != nil {
		return nil, err
	}
	if req.Pattern != "" && !doublestar.ValidatePattern(req.Pattern) {
		return nil, apperrors.Validation("invalid pattern %q", req.Pattern)
	}

	info, err := os.Stat(root)
	if err != nil {
		return nil, pathError(err, root)
	}
	if !info.IsDir() {
		return nil, apperrors.Validation("not a directory: %s", root)
	}

	var entries []Entry
	if req.Recursive {
		entries, err = walk(root, req.Pattern)
	} else {
		entries, err = readDir(root, req.Pattern)
	}
	if err != nil {
		return nil, err
	}

	sort.Slice(entries, func(i, j int) bool { return entries[i].Path < entries[j].Path })
	return &ListResult{Path: root, Entries: entries}, nil
}

func readDir(root, pattern string) ([]Entry, error) {
	dirents, err := os.ReadDir(root)
	if err != nil {
		return nil, pathError(err, root)
	}

	entries := make([]Entry, 0, len(dirents))
	for _, d := range dirents {
		if !matches(pattern, d.Name()) {
			continue
		}
		if e, ok := toEntry(filepath.Join(root, d.Name()), d); ok {
			entries = append(entries, e)
		}
	}
	return entries, nil
}

func walk(root, pattern string) ([]Entry, error) {
	var (
		mu      sync.Mutex
		entries []Entry
	)

	conf := fastwalk.Config{Follow: false}
	err := fastwalk.Walk(&conf, root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			// Unreadable subtrees are skipped
			return nil
		}
		if path == root {
			return nil
		}
		rel, err := filepath.Rel(root, path)
		if err != nil || !matches(pattern, filepath.ToSlash(rel)) {
			return nil
		}
		e, ok := toEntry(path, d)
		if !ok {
			return nil
		}
		mu.Lock()
		entries = append(entries, e)
		mu.Unlock()
		return nil
	})
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeInternal, "failed to walk directory")
	}
	return entries, nil
}

func matches(pattern, name string) bool {
	if pattern == "" {
		return true
	}
	ok, err := doublestar.Match(pattern, name)
	return err == nil && ok
}

func toEntry(path string, d fs.DirEntry) (Entry, bool) {
	info, err := d.Info()
	if err != nil {
		return Entry{}, false
	}
	kind := TypeFile
	if info.IsDir() {
		kind = TypeDirectory
	}
	return Entry{
		Name:     d.Name(),
		Path:     path,
		Type:     kind,
		Size:     info.Size(),
		Modified: info.ModTime().UTC().Format(time.RFC3339),
	}, true
}

// Open opens a regular file for download. The caller closes it.
func (s *Service) Open(path string) (*os.File, *FileInfo, error) {
	full, err := s.Resolve(path)
	if err != nil {
		return nil, nil, err
	}
	info, err := statFile(full)
	if err != nil {
		return nil, nil, err
	}

	f, err := os.Open(full)
	if err != nil {
		return nil, nil, pathError(err, full)
	}

	head := make([]byte, 3072)
	n, err := io.ReadFull(f, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		f.Close()
		return nil, nil, pathError(err, full)
	}
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		f.Close()
		return nil, nil, pathError(err, full)
	}

	return f, &FileInfo{
		Path:     full,
		Name:     filepath.Base(full),
		Size:     info.Size(),
		MimeType: mediaType(mimetype.Detect(head[:n])),
		Modified: info.ModTime(),
	}, nil
}

// Checksum hashes a file with the named algorithm
func (s *Service) Checksum(path, algorithm string) (*ChecksumResult, error) {
	alg, err := utils.ParseHashAlgorithm(algorithm)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeValidation, "invalid algorithm")
	}
	full, err := s.Resolve(path)
	if err != nil {
		return nil, err
	}
	if _, err := statFile(full); err != nil {
		return nil, err
	}

	f, err := os.Open(full)
	if err != nil {
		return nil, pathError(err, full)
	}
	defer f.Close()

	sum, err := utils.NewHasher(alg).HashReader(f)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeInternal, "failed to hash file")
	}
	return &ChecksumResult{Path: full, Algorithm: string(alg), Checksum: sum}, nil
}

// statFile requires path to be an existing regular file
func statFile(path string) (os.FileInfo, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, pathError(err, path)
	}
	if info.IsDir() {
		return nil, apperrors.Validation("path is a directory: %s", path)
	}
	return info, nil
}

func pathError(err error, path string) error {
	if errors.Is(err, fs.ErrNotExist) {
		return apperrors.NotFound("file not found: %s", path)
	}
	return apperrors.Wrap(err, apperrors.CodeInternal, "file operation failed")
}
