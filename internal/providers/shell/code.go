package shell

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"go.uber.org/zap"

	apperrors "github.com/GriffinCanCode/AgentOS/sandbox/internal/shared/errors"
	"github.com/GriffinCanCode/AgentOS/sandbox/internal/shared/id"
	"github.com/GriffinCanCode/AgentOS/sandbox/internal/shared/utils"
)

// Language maps a language identifier to its source extension and the shell
// command that runs a source file
type Language struct {
	Name    string
	Ext     string
	Aliases []string
	// Command renders the invocation for src; bin is a free path for
	// compiled output
	Command func(src, bin string) string
}

var languages = []Language{
	{
		Name:    "python",
		Ext:     ".py",
		Aliases: []string{"py", "python3"},
		Command: func(src, _ string) string { return "python3 " + shellQuote(src) },
	},
	{
		Name:    "javascript",
		Ext:     ".js",
		Aliases: []string{"js", "node"},
		Command: func(src, _ string) string { return "node " + shellQuote(src) },
	},
	{
		Name:    "typescript",
		Ext:     ".ts",
		Aliases: []string{"ts"},
		Command: func(src, _ string) string { return "npx tsx " + shellQuote(src) },
	},
	{
		Name:    "go",
		Ext:     ".go",
		Aliases: []string{"golang"},
		Command: func(src, _ string) string { return "go run " + shellQuote(src) },
	},
	{
		Name:    "rust",
		Ext:     ".rs",
		Aliases: []string{"rs"},
		Command: func(src, bin string) string {
			return "rustc -o " + shellQuote(bin) + " " + shellQuote(src) + " && " + shellQuote(bin)
		},
	},
	{
		Name:    "bash",
		Ext:     ".sh",
		Aliases: []string{"sh", "shell"},
		Command: func(src, _ string) string { return "bash " + shellQuote(src) },
	},
}

var languageIndex = func() map[string]Language {
	idx := make(map[string]Language)
	for _, l := range languages {
		idx[l.Name] = l
		for _, a := range l.Aliases {
			idx[a] = l
		}
	}
	return idx
}()

// LookupLanguage finds a language by name or alias, case-insensitively
func LookupLanguage(name string) (Language, bool) {
	l, ok := languageIndex[strings.ToLower(strings.TrimSpace(name))]
	return l, ok
}

// SupportedLanguages returns the canonical language names, sorted
func SupportedLanguages() []string {
	names := make([]string, 0, len(languages))
	for _, l := range languages {
		names = append(names, l.Name)
	}
	sort.Strings(names)
	return names
}

// RunCode writes the source to a uniquely named temporary file, runs it with
// the language's toolchain and removes every artifact before returning.
func (e *Executor) RunCode(ctx context.Context, req CodeRequest) (*CodeResult, error) {
	lang, ok := LookupLanguage(req.Language)
	if !ok {
		return nil, apperrors.Validation("unsupported language %q (supported: %s)",
			req.Language, strings.Join(SupportedLanguages(), ", "))
	}
	if err := utils.ValidateRequired("code", req.Code); err != nil {
		return nil, apperrors.Validation("%s", err.Error())
	}
	if err := utils.ValidateSize("code", len(req.Code), utils.MaxCodeSize); err != nil {
		return nil, apperrors.Validation("%s", err.Error())
	}

	base := filepath.Join(e.tempDir, "code_"+id.NewExecToken().String())
	src := base + lang.Ext
	bin := base + ".bin"

	inv, err := e.prepare("code_"+lang.Name, []string{"sh", "-c", lang.Command(src, bin)}, "", nil, req.Timeout)
	if err != nil {
		return nil, err
	}

	if err := os.WriteFile(src, []byte(req.Code), 0o600); err != nil {
		return nil, apperrors.Internal(err, "failed to write source file")
	}
	defer e.removeArtifacts(src, bin)

	res, err := e.run(ctx, inv)
	if err != nil {
		return nil, err
	}

	return &CodeResult{
		Output:     res.Stdout,
		Error:      res.Stderr,
		ExitCode:   res.ExitCode,
		DurationMs: res.DurationMs,
	}, nil
}

func (e *Executor) removeArtifacts(files ...string) {
	for _, f := range files {
		if err := os.Remove(f); err != nil && !os.IsNotExist(err) {
			e.logger.Warn("failed to remove temporary file", zap.String("path", f), zap.Error(err))
		}
	}
}
