package paths

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Well-known locations inside the sandbox image
const (
	DefaultWorkspace = "/home/sandbox/workspace"
	SkillsDirName    = ".skills"
	DisplaySocketDir = "/tmp/.X11-unix"
	DockerEnvFile    = "/.dockerenv"
)

// Skill subdirectories
const (
	SkillDocument     = "SKILL.md"
	SkillScripts      = "scripts"
	SkillReferences   = "references"
	SkillAssets       = "assets"
	skillResourceKind = 3
)

// Workspace resolves paths against a workspace root
type Workspace struct {
	Root string
}

// NewWorkspace creates a workspace rooted at root
func NewWorkspace(root string) Workspace {
	if root == "" {
		root = DefaultWorkspace
	}
	return Workspace{Root: filepath.Clean(root)}
}

// Resolve maps a caller-supplied path to an absolute path. Absolute paths are
// used as given, relative paths are joined to the workspace root.
func (w Workspace) Resolve(path string) string {
	if filepath.IsAbs(path) {
		return filepath.Clean(path)
	}
	return filepath.Join(w.Root, path)
}

// Contains reports whether path lies inside the workspace
func (w Workspace) Contains(path string) bool {
	rel, err := filepath.Rel(w.Root, w.Resolve(path))
	if err != nil {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}

// SkillsDir returns the default skill store under the workspace
func (w Workspace) SkillsDir() string {
	return filepath.Join(w.Root, SkillsDirName)
}

// Ensure creates the workspace root if missing
func (w Workspace) Ensure() error {
	if err := os.MkdirAll(w.Root, 0o755); err != nil {
		return fmt.Errorf("create workspace %s: %w", w.Root, err)
	}
	return nil
}

// SkillResourceDirs lists the resource subdirectories of a skill
func SkillResourceDirs() [skillResourceKind]string {
	return [skillResourceKind]string{SkillScripts, SkillReferences, SkillAssets}
}

// DisplaySocket returns the X11 socket path for a display such as ":99"
func DisplaySocket(display string) string {
	num := strings.TrimPrefix(display, ":")
	if i := strings.IndexByte(num, '.'); i >= 0 {
		num = num[:i]
	}
	return filepath.Join(DisplaySocketDir, "X"+num)
}

// InContainer reports whether the process appears to run inside a container
func InContainer() bool {
	if _, err := os.Stat(DockerEnvFile); err == nil {
		return true
	}
	return os.Getenv("CONTAINER") != ""
}

// Exists reports whether path exists
func Exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
