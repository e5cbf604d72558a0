package skills

import (
	"bytes"
	"errors"
	"fmt"
	"strings"

	"github.com/goccy/go-yaml"
)

const delimiter = "---"

var errNoFrontMatter = errors.New("missing front matter delimiters")

// Render produces a SKILL.md document
func Render(meta Meta, body string) ([]byte, error) {
	front, err := yaml.Marshal(meta)
	if err != nil {
		return nil, fmt.Errorf("failed to encode front matter: %w", err)
	}

	var buf bytes.Buffer
	buf.WriteString(delimiter + "\n")
	buf.Write(front)
	buf.WriteString(delimiter + "\n\n")
	buf.WriteString(strings.TrimSpace(body))
	buf.WriteString("\n")
	return buf.Bytes(), nil
}

// Parse splits a SKILL.md document into front matter and body. The front
// matter must open the document and close on a line of its own.
func Parse(content []byte) (Meta, string, error) {
	text := strings.ReplaceAll(string(content), "\r\n", "\n")
	text = strings.TrimPrefix(text, "\ufeff")

	if !strings.HasPrefix(text, delimiter+"\n") {
		return Meta{}, "", errNoFrontMatter
	}
	rest := text[len(delimiter)+1:]

	var front, body string
	switch {
	case strings.HasPrefix(rest, delimiter+"\n") || rest == delimiter:
		body = strings.TrimPrefix(rest, delimiter)
	default:
		end := strings.Index(rest, "\n"+delimiter+"\n")
		if end < 0 {
			if !strings.HasSuffix(rest, "\n"+delimiter) {
				return Meta{}, "", errNoFrontMatter
			}
			end = len(rest) - len(delimiter) - 1
		}
		front = rest[:end]
		body = rest[min(end+len(delimiter)+2, len(rest)):]
	}

	var meta Meta
	if err := yaml.Unmarshal([]byte(front), &meta); err != nil {
		return Meta{}, "", fmt.Errorf("invalid front matter: %w", err)
	}
	return meta, strings.TrimSpace(body), nil
}
