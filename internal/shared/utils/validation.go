package utils

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

// Request size limits (in bytes)
const (
	MaxCommandSize   = 64 * 1024
	MaxCodeSize      = 1 * 1024 * 1024
	MaxFileWriteSize = 32 * 1024 * 1024
	MaxUploadSize    = 64 * 1024 * 1024
	MaxScriptSize    = 256 * 1024
	MaxFilenameLen   = 255
)

// ValidateSize checks that data stays within max bytes
func ValidateSize(field string, size, max int) error {
	if size > max {
		return fmt.Errorf("%s size %d bytes exceeds maximum %d bytes", field, size, max)
	}
	return nil
}

// ValidateRequired checks that a trimmed value is not empty
func ValidateRequired(field, value string) error {
	if strings.TrimSpace(value) == "" {
		return fmt.Errorf("%s is required", field)
	}
	return nil
}

// ValidateLength checks a string's length in characters
func ValidateLength(field, value string, min, max int) error {
	n := utf8.RuneCountInString(value)
	if n < min {
		return fmt.Errorf("%s must be at least %d characters", field, min)
	}
	if n > max {
		return fmt.Errorf("%s must be at most %d characters", field, max)
	}
	return nil
}

// ValidateFilename rejects names that could escape their directory
func ValidateFilename(name string) error {
	switch {
	case name == "":
		return fmt.Errorf("filename cannot be empty")
	case name == "." || name == "..":
		return fmt.Errorf("invalid filename %q", name)
	case strings.ContainsAny(name, `/\`):
		return fmt.Errorf("filename %q cannot contain path separators", name)
	case strings.Contains(name, ".."):
		return fmt.Errorf("filename %q cannot contain '..'", name)
	case strings.ContainsRune(name, 0):
		return fmt.Errorf("filename %q contains a NUL byte", name)
	case len(name) > MaxFilenameLen:
		return fmt.Errorf("filename exceeds %d bytes", MaxFilenameLen)
	}
	return nil
}

// SanitizeString removes control characters except newline and tab
func SanitizeString(s string) string {
	return strings.Map(func(r rune) rune {
		if r < 32 && r != '\n' && r != '\t' && r != '\r' {
			return -1
		}
		return r
	}, s)
}
