package shell

import (
	"context"
	"path/filepath"
	"strings"

	apperrors "github.com/GriffinCanCode/AgentOS/sandbox/internal/shared/errors"
)

// runners maps script extensions to their interpreter. Anything else is
// executed directly and must carry its own shebang and exec bit.
var runners = map[string]string{
	".sh": "sh",
	".py": "python3",
	".js": "node",
}

// ScriptArgv returns the argv used to run the script at path
func ScriptArgv(path string, args []string) []string {
	argv := make([]string, 0, len(args)+2)
	if runner, ok := runners[strings.ToLower(filepath.Ext(path))]; ok {
		argv = append(argv, runner)
	}
	argv = append(argv, path)
	return append(argv, args...)
}

// RunScript runs a script file from its own directory. Arguments are passed
// as argv entries, never through a shell.
func (e *Executor) RunScript(ctx context.Context, req ScriptRequest) (*ExecResult, error) {
	if !filepath.IsAbs(req.Path) {
		return nil, apperrors.Validation("script path must be absolute")
	}

	inv, err := e.prepare("script", ScriptArgv(req.Path, req.Args), filepath.Dir(req.Path), req.Env, req.Timeout)
	if err != nil {
		return nil, err
	}
	return e.run(ctx, inv)
}
