// Package id generates the identifiers used across the sandbox.
//
// All identifiers are ULIDs so they sort by creation time and stay readable
// in logs:
//   - Trace and span ids carry "trace_" / "span_" prefixes
//   - Exec tokens name temporary artifacts of a single execution
//
// Factory sessions use UUIDs instead, see the factory package.
package id

import (
	"crypto/rand"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

// TraceID identifies one request across log lines
type TraceID string

// SpanID identifies one unit of work inside a trace
type SpanID string

// ExecToken names the temporary artifacts of a single execution
type ExecToken string

const (
	TracePrefix = "trace"
	SpanPrefix  = "span"
	ExecPrefix  = "exec"
)

// Generator produces ULIDs from a shared entropy source
type Generator struct {
	entropy   io.Reader
	entropyMu sync.Mutex
}

var (
	defaultGenerator *Generator
	once             sync.Once
)

// Default returns the process-wide generator
func Default() *Generator {
	once.Do(func() {
		defaultGenerator = NewGenerator()
	})
	return defaultGenerator
}

// NewGenerator creates a generator backed by crypto/rand
func NewGenerator() *Generator {
	return &Generator{entropy: rand.Reader}
}

// Generate creates a new ULID
func (g *Generator) Generate() ulid.ULID {
	g.entropyMu.Lock()
	defer g.entropyMu.Unlock()

	return ulid.MustNew(ulid.Timestamp(time.Now()), g.entropy)
}

// GenerateString creates a new ULID as a string
func (g *Generator) GenerateString() string {
	return g.Generate().String()
}

// GenerateWithPrefix creates a "prefix_ULID" string
func (g *Generator) GenerateWithPrefix(prefix string) string {
	return fmt.Sprintf("%s_%s", prefix, g.GenerateString())
}

// NewTraceID generates a trace id
func NewTraceID() TraceID {
	return TraceID(Default().GenerateWithPrefix(TracePrefix))
}

// NewSpanID generates a span id
func NewSpanID() SpanID {
	return SpanID(Default().GenerateWithPrefix(SpanPrefix))
}

// NewExecToken generates a token that is unique across concurrent executions.
// The token is lowercase so it is safe in file names on case-insensitive
// filesystems.
func NewExecToken() ExecToken {
	return ExecToken(strings.ToLower(Default().GenerateWithPrefix(ExecPrefix)))
}

func (id TraceID) String() string   { return string(id) }
func (id SpanID) String() string    { return string(id) }
func (id ExecToken) String() string { return string(id) }

// IsValid checks if a string is a valid ULID
func IsValid(id string) bool {
	_, err := ulid.Parse(id)
	return err == nil
}

// Parse parses a ULID string
func Parse(id string) (ulid.ULID, error) {
	return ulid.Parse(id)
}

// StripPrefix returns the ULID part of a prefixed id
func StripPrefix(id string) string {
	if i := strings.LastIndexByte(id, '_'); i >= 0 {
		return id[i+1:]
	}
	return id
}

// Timestamp extracts the creation time from a ULID or prefixed id
func Timestamp(id string) (time.Time, error) {
	parsed, err := Parse(StripPrefix(id))
	if err != nil {
		return time.Time{}, err
	}
	return ulid.Time(parsed.Time()), nil
}
