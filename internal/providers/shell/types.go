package shell

// ExecRequest describes a shell command invocation
type ExecRequest struct {
	Command string            `json:"command"`
	Cwd     string            `json:"cwd,omitempty"`
	Env     map[string]string `json:"env,omitempty"`
	Timeout int               `json:"timeout,omitempty"` // seconds
	Pty     bool              `json:"pty,omitempty"`     // streaming only
}

// ExecResult is the outcome of a finished process
type ExecResult struct {
	Stdout     string `json:"stdout"`
	Stderr     string `json:"stderr"`
	ExitCode   int    `json:"exit_code"`
	DurationMs int64  `json:"duration_ms"`
	Truncated  bool   `json:"truncated,omitempty"`
}

// CodeRequest describes a source snippet to run
type CodeRequest struct {
	Code     string `json:"code"`
	Language string `json:"language"`
	Timeout  int    `json:"timeout,omitempty"`
}

// CodeResult is the outcome of running a source snippet
type CodeResult struct {
	Output     string `json:"output"`
	Error      string `json:"error"`
	ExitCode   int    `json:"exit_code"`
	DurationMs int64  `json:"duration_ms"`
}

// ScriptRequest describes a script file to run from its own directory
type ScriptRequest struct {
	Path    string
	Args    []string
	Env     map[string]string
	Timeout int
}

// EventType tags a stream event
type EventType string

const (
	EventStdout EventType = "stdout"
	EventStderr EventType = "stderr"
	EventExit   EventType = "exit"
	EventError  EventType = "error"
)

// StreamEvent is one incremental unit of streamed output. Exactly one exit or
// error event ends every stream.
type StreamEvent struct {
	Type     EventType `json:"type"`
	Data     string    `json:"data,omitempty"`
	ExitCode *int      `json:"exit_code,omitempty"`
}

// Terminal reports whether the event ends the stream
func (e StreamEvent) Terminal() bool {
	return e.Type == EventExit || e.Type == EventError
}

// Marker renders terminal events in the "[exit_code:N]" / "[error:...]" form
func (e StreamEvent) Marker() string {
	switch e.Type {
	case EventExit:
		code := -1
		if e.ExitCode != nil {
			code = *e.ExitCode
		}
		return "[exit_code:" + itoa(code) + "]"
	case EventError:
		return "[error:" + e.Data + "]"
	default:
		return e.Data
	}
}

// ErrorMarkerTimeout is the error event payload for deadline expiry
const ErrorMarkerTimeout = "timeout"

// ExitCodeAbnormal is reported when a process ended without an exit status,
// for example when killed by a signal
const ExitCodeAbnormal = -1
