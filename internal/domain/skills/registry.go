package skills

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"slices"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/GriffinCanCode/AgentOS/sandbox/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/AgentOS/sandbox/internal/providers/shell"
	apperrors "github.com/GriffinCanCode/AgentOS/sandbox/internal/shared/errors"
	"github.com/GriffinCanCode/AgentOS/sandbox/internal/shared/id"
	"github.com/GriffinCanCode/AgentOS/sandbox/internal/shared/paths"
	"github.com/GriffinCanCode/AgentOS/sandbox/internal/shared/utils"
)

const (
	scriptPerm   = 0o755
	resourcePerm = 0o644
)

// ScriptRunner executes skill scripts
type ScriptRunner interface {
	RunScript(ctx context.Context, req shell.ScriptRequest) (*shell.ExecResult, error)
}

// Registry manages the on-disk skill store
type Registry struct {
	root    string
	runner  ScriptRunner
	locks   *keyedMutex
	logger  *zap.Logger
	metrics *monitoring.Metrics
}

// NewRegistry creates a registry rooted at dir. runner may be nil when
// scripts are never executed.
func NewRegistry(dir string, runner ScriptRunner, logger *zap.Logger, metrics *monitoring.Metrics) *Registry {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Registry{
		root:    dir,
		runner:  runner,
		locks:   newKeyedMutex(),
		logger:  logger.Named("skills"),
		metrics: metrics,
	}
}

// Root returns the store directory
func (r *Registry) Root() string {
	return r.root
}

func (r *Registry) dir(name string) string {
	return filepath.Join(r.root, name)
}

func (r *Registry) ensureRoot() error {
	if err := os.MkdirAll(r.root, 0o755); err != nil {
		return apperrors.Internal(err, "failed to create skills directory")
	}
	return nil
}

// List returns summaries of every readable skill, sorted by name. Malformed
// skills are skipped and logged.
func (r *Registry) List(ctx context.Context) ([]Summary, error) {
	entries, err := os.ReadDir(r.root)
	if err != nil {
		if os.IsNotExist(err) {
			r.setTotal(0)
			return []Summary{}, nil
		}
		return nil, apperrors.Internal(err, "failed to read skills directory")
	}

	out := make([]Summary, 0, len(entries))
	for _, e := range entries {
		if err := ctx.Err(); err != nil {
			return nil, apperrors.Internal(err, "listing cancelled")
		}
		if !e.IsDir() || ValidateName(e.Name()) != nil {
			continue
		}
		unlock := r.locks.RLock(e.Name())
		meta, _, err := r.readDocument(e.Name())
		unlock()
		if err != nil {
			r.logger.Warn("skipping malformed skill", zap.String("skill", e.Name()), zap.Error(err))
			continue
		}
		out = append(out, Summary{Name: meta.Name, Description: meta.Description})
	}

	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	r.setTotal(len(out))
	return out, nil
}

// Get loads a skill and its resource listings
func (r *Registry) Get(ctx context.Context, name string) (*Skill, error) {
	if err := ValidateName(name); err != nil {
		return nil, err
	}
	unlock := r.locks.RLock(name)
	defer unlock()
	return r.load(name)
}

func (r *Registry) load(name string) (*Skill, error) {
	meta, body, err := r.readDocument(name)
	if err != nil {
		return nil, err
	}

	skill := &Skill{Meta: meta, Body: body}
	lists := []*[]string{&skill.Scripts, &skill.References, &skill.Assets}
	for i, sub := range paths.SkillResourceDirs() {
		files, err := listFiles(filepath.Join(r.dir(name), sub))
		if err != nil {
			return nil, apperrors.Internal(err, "failed to list skill "+sub)
		}
		*lists[i] = files
	}
	return skill, nil
}

// readDocument reads and validates SKILL.md. The directory name is
// authoritative for the skill's name.
func (r *Registry) readDocument(name string) (Meta, string, error) {
	data, err := os.ReadFile(filepath.Join(r.dir(name), paths.SkillDocument))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Meta{}, "", apperrors.NotFound("skill '%s' not found", name)
		}
		return Meta{}, "", apperrors.Internal(err, "failed to read skill document")
	}

	meta, body, err := Parse(data)
	if err != nil {
		return Meta{}, "", apperrors.Internal(err, "malformed skill document for '"+name+"'")
	}
	if meta.Name != "" && meta.Name != name {
		r.logger.Debug("skill document name differs from directory",
			zap.String("skill", name), zap.String("document_name", meta.Name))
	}
	meta.Name = name
	if err := ValidateDescription(meta.Description); err != nil {
		return Meta{}, "", apperrors.Internal(err, "malformed skill document for '"+name+"'")
	}
	return meta, body, nil
}

// Create validates the request, then assembles the skill in a staging
// directory and renames it into place
func (r *Registry) Create(ctx context.Context, req CreateRequest) (*Skill, error) {
	if err := ValidateName(req.Name); err != nil {
		return nil, err
	}
	if err := ValidateDescription(req.Description); err != nil {
		return nil, err
	}
	if err := validateResources(req.Scripts, req.References, req.Assets); err != nil {
		return nil, err
	}

	doc, err := Render(Meta{
		Name:          req.Name,
		Description:   req.Description,
		License:       req.License,
		Compatibility: req.Compatibility,
		Metadata:      req.Metadata,
	}, req.Body)
	if err != nil {
		return nil, apperrors.Internal(err, "failed to render skill document")
	}

	unlock := r.locks.Lock(req.Name)
	defer unlock()

	if _, err := os.Stat(r.dir(req.Name)); err == nil {
		return nil, apperrors.Conflict("skill '%s' already exists", req.Name)
	}
	if err := r.ensureRoot(); err != nil {
		return nil, err
	}

	staging := filepath.Join(r.root, ".staging-"+req.Name+"-"+id.NewExecToken().String())
	defer os.RemoveAll(staging)

	if err := os.Mkdir(staging, 0o755); err != nil {
		return nil, apperrors.Internal(err, "failed to create skill directory")
	}
	if err := os.WriteFile(filepath.Join(staging, paths.SkillDocument), doc, resourcePerm); err != nil {
		return nil, apperrors.Internal(err, "failed to write skill document")
	}
	sets := [3]Resources{req.Scripts, req.References, req.Assets}
	for i, sub := range paths.SkillResourceDirs() {
		if err := writeResources(filepath.Join(staging, sub), sets[i], permFor(sub)); err != nil {
			return nil, apperrors.Internal(err, "failed to write skill "+sub)
		}
	}
	if err := os.Rename(staging, r.dir(req.Name)); err != nil {
		return nil, apperrors.Internal(err, "failed to install skill")
	}

	r.logger.Info("skill created", zap.String("skill", req.Name))
	r.addTotal(1)
	return r.load(req.Name)
}

// Update merges the supplied fields into an existing skill
func (r *Registry) Update(ctx context.Context, name string, req UpdateRequest) (*Skill, error) {
	if err := ValidateName(name); err != nil {
		return nil, err
	}
	if req.Description != nil {
		if err := ValidateDescription(*req.Description); err != nil {
			return nil, err
		}
	}
	if err := validateResources(req.Scripts, req.References, req.Assets); err != nil {
		return nil, err
	}

	unlock := r.locks.Lock(name)
	defer unlock()

	meta, body, err := r.readDocument(name)
	if err != nil {
		return nil, err
	}
	if req.Description != nil {
		meta.Description = *req.Description
	}
	if req.Body != nil {
		body = *req.Body
	}
	if req.License != nil {
		meta.License = *req.License
	}
	if req.Compatibility != nil {
		meta.Compatibility = *req.Compatibility
	}
	if req.Metadata != nil {
		meta.Metadata = req.Metadata
	}

	doc, err := Render(meta, body)
	if err != nil {
		return nil, apperrors.Internal(err, "failed to render skill document")
	}

	// The document is staged first; resource swaps roll back if anything
	// after them fails.
	docPath := filepath.Join(r.dir(name), paths.SkillDocument)
	staged, err := stageFile(docPath, doc, resourcePerm)
	if err != nil {
		return nil, apperrors.Internal(err, "failed to write skill document")
	}
	defer os.Remove(staged)

	var swaps []*resourceSwap
	rollback := func() {
		for i := len(swaps) - 1; i >= 0; i-- {
			swaps[i].rollback(r.logger)
		}
	}

	sets := [3]Resources{req.Scripts, req.References, req.Assets}
	for i, sub := range paths.SkillResourceDirs() {
		if sets[i] == nil {
			continue
		}
		swap, err := r.swapResources(name, sub, sets[i])
		if err != nil {
			rollback()
			return nil, err
		}
		swaps = append(swaps, swap)
	}

	if err := renameFile(staged, docPath); err != nil {
		rollback()
		return nil, apperrors.Internal(err, "failed to write skill document")
	}
	for _, swap := range swaps {
		swap.commit(r.logger)
	}

	r.logger.Info("skill updated", zap.String("skill", name))
	return r.load(name)
}

// resourceSwap is a resource subdirectory replaced in place, with the
// previous contents kept aside until commit
type resourceSwap struct {
	target string
	old    string
}

// swapResources moves a freshly written subdirectory into place
func (r *Registry) swapResources(name, sub string, set Resources) (*resourceSwap, error) {
	target := filepath.Join(r.dir(name), sub)
	token := id.NewExecToken().String()
	staging := filepath.Join(r.dir(name), ".staging-"+sub+"-"+token)
	old := filepath.Join(r.dir(name), ".old-"+sub+"-"+token)
	defer os.RemoveAll(staging)

	if err := writeResources(staging, set, permFor(sub)); err != nil {
		return nil, apperrors.Internal(err, "failed to write skill "+sub)
	}
	if err := renameFile(target, old); err != nil && !os.IsNotExist(err) {
		return nil, apperrors.Internal(err, "failed to replace skill "+sub)
	}
	if err := renameFile(staging, target); err != nil {
		_ = renameFile(old, target)
		return nil, apperrors.Internal(err, "failed to replace skill "+sub)
	}
	return &resourceSwap{target: target, old: old}, nil
}

func (s *resourceSwap) rollback(logger *zap.Logger) {
	if err := os.RemoveAll(s.target); err != nil {
		logger.Warn("failed to remove new resources", zap.String("path", s.target), zap.Error(err))
		return
	}
	if err := renameFile(s.old, s.target); err != nil && !os.IsNotExist(err) {
		logger.Warn("failed to restore resources", zap.String("path", s.target), zap.Error(err))
	}
}

func (s *resourceSwap) commit(logger *zap.Logger) {
	if err := os.RemoveAll(s.old); err != nil {
		logger.Warn("failed to remove replaced resources", zap.String("path", s.old), zap.Error(err))
	}
}

// Delete removes a skill and everything under it
func (r *Registry) Delete(ctx context.Context, name string) error {
	if err := ValidateName(name); err != nil {
		return err
	}

	unlock := r.locks.Lock(name)
	defer unlock()

	dir := r.dir(name)
	if _, err := os.Stat(dir); err != nil {
		if os.IsNotExist(err) {
			return apperrors.NotFound("skill '%s' not found", name)
		}
		return apperrors.Internal(err, "failed to stat skill")
	}

	trash := filepath.Join(r.root, ".trash-"+name+"-"+id.NewExecToken().String())
	if err := os.Rename(dir, trash); err != nil {
		return apperrors.Internal(err, "failed to delete skill")
	}
	if err := os.RemoveAll(trash); err != nil {
		r.logger.Warn("failed to remove deleted skill files", zap.String("path", trash), zap.Error(err))
	}

	r.logger.Info("skill deleted", zap.String("skill", name))
	r.addTotal(-1)
	return nil
}

// Search matches query case-insensitively against names and descriptions
func (r *Registry) Search(ctx context.Context, query string) ([]Summary, error) {
	all, err := r.List(ctx)
	if err != nil {
		return nil, err
	}

	q := strings.ToLower(strings.TrimSpace(query))
	out := make([]Summary, 0, len(all))
	for _, s := range all {
		if strings.Contains(strings.ToLower(s.Name), q) || strings.Contains(strings.ToLower(s.Description), q) {
			out = append(out, s)
		}
	}
	return out, nil
}

// ExecuteScript runs one of the skill's listed scripts from the scripts
// directory
func (r *Registry) ExecuteScript(ctx context.Context, name, script string, req ScriptRequest) (*shell.ExecResult, error) {
	if err := utils.ValidateFilename(script); err != nil {
		return nil, apperrors.Validation("invalid script name: %s", err.Error())
	}
	if err := ValidateName(name); err != nil {
		return nil, err
	}
	unlock := r.locks.RLock(name)
	skill, err := r.load(name)
	unlock()
	if err != nil {
		return nil, err
	}
	if !slices.Contains(skill.Scripts, script) {
		return nil, apperrors.NotFound("script '%s' not found in skill '%s'", script, name)
	}
	if r.runner == nil {
		return nil, apperrors.New(apperrors.CodeInternal, "script execution is not configured")
	}

	path, err := filepath.Abs(filepath.Join(r.dir(name), paths.SkillScripts, script))
	if err != nil {
		return nil, apperrors.Internal(err, "failed to resolve script path")
	}
	return r.runner.RunScript(ctx, shell.ScriptRequest{
		Path:    path,
		Args:    req.Args,
		Env:     req.Env,
		Timeout: req.Timeout,
	})
}

func permFor(sub string) os.FileMode {
	if sub == paths.SkillScripts {
		return scriptPerm
	}
	return resourcePerm
}

func (r *Registry) setTotal(n int) {
	if r.metrics != nil {
		r.metrics.SkillsTotal.Set(float64(n))
	}
}

func (r *Registry) addTotal(delta float64) {
	if r.metrics != nil {
		r.metrics.SkillsTotal.Add(delta)
	}
}
