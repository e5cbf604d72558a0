package browser

import "time"

// Engine is a running browser
type Engine interface {
	NewPage(viewport Viewport) (Page, error)
	Version() string
	Close() error
}

// Page is one isolated tab. Implementations report selector misses as
// ErrSelectorNotFound, timeouts as ErrTimeout and script exceptions as
// ErrScript (wrapped).
type Page interface {
	Goto(url string, opts GotoOptions) error
	URL() string
	Title() (string, error)
	Content() (string, error)
	Screenshot(opts ShotOptions) ([]byte, error)
	ElementBox(selector string, timeout time.Duration) (Box, error)
	Evaluate(script string) (any, error)
	Click(selector string, timeout time.Duration) error
	Fill(selector, text string, timeout time.Duration) error
	Close() error
}

// Launcher starts an engine
type Launcher func(opts LaunchOptions) (Engine, error)
