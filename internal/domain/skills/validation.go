package skills

import (
	"regexp"

	apperrors "github.com/GriffinCanCode/AgentOS/sandbox/internal/shared/errors"
	"github.com/GriffinCanCode/AgentOS/sandbox/internal/shared/utils"
)

const (
	MaxNameLen        = 64
	MaxDescriptionLen = 1024
)

var namePattern = regexp.MustCompile(`^[a-z0-9]+(-[a-z0-9]+)*$`)

// ValidateName checks a skill name: 1-64 lowercase alphanumerics separated by
// single hyphens
func ValidateName(name string) error {
	switch {
	case name == "":
		return apperrors.Validation("skill name cannot be empty")
	case len(name) > MaxNameLen:
		return apperrors.Validation("skill name too long: %d characters (max %d)", len(name), MaxNameLen)
	case !namePattern.MatchString(name):
		return apperrors.Validation("skill name must be lowercase alphanumeric with single hyphens, not starting or ending with a hyphen")
	}
	return nil
}

// ValidateDescription checks a description is 1-1024 characters
func ValidateDescription(desc string) error {
	if err := utils.ValidateLength("description", desc, 1, MaxDescriptionLen); err != nil {
		return apperrors.Validation("%s", err.Error())
	}
	return nil
}

func validateResources(sets ...Resources) error {
	for _, set := range sets {
		for name := range set {
			if err := utils.ValidateFilename(name); err != nil {
				return apperrors.Validation("invalid resource filename: %s", err.Error())
			}
		}
	}
	return nil
}
