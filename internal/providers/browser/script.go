package browser

import (
	"errors"
	"strings"

	"github.com/dop251/goja"

	apperrors "github.com/GriffinCanCode/AgentOS/sandbox/internal/shared/errors"
	"github.com/GriffinCanCode/AgentOS/sandbox/internal/shared/utils"
)

// CheckScript parses script without running it. Anything the page would
// reject as a syntax error is reported as a validation error.
func CheckScript(script string) error {
	if strings.TrimSpace(script) == "" {
		return apperrors.Validation("script is required")
	}
	if err := utils.ValidateSize("script", len(script), utils.MaxScriptSize); err != nil {
		return apperrors.Validation("%s", err.Error())
	}

	if _, err := goja.Compile("evaluate", script, false); err != nil {
		var syntaxErr *goja.CompilerSyntaxError
		if errors.As(err, &syntaxErr) {
			return apperrors.Validation("script syntax error: %s", syntaxErr.Error())
		}
		return apperrors.Validation("script rejected: %v", err)
	}
	return nil
}
