package browser

import (
	"errors"
	"time"
)

const (
	DefaultViewportWidth  = 1280
	DefaultViewportHeight = 720
	DefaultTimeout        = 30 * time.Second

	FormatPNG  = "png"
	FormatJPEG = "jpeg"
)

// Engine errors reported by implementations and classified by the Manager
var (
	// ErrSelectorNotFound means no element matched within the action timeout
	ErrSelectorNotFound = errors.New("no element matches selector")
	// ErrTimeout means the engine gave up waiting
	ErrTimeout = errors.New("browser operation timed out")
	// ErrScript means the evaluated script threw
	ErrScript = errors.New("script error")
)

// waitUntilStates lists the accepted navigation completion events
var waitUntilStates = map[string]bool{
	"load":             true,
	"domcontentloaded": true,
	"networkidle":      true,
	"commit":           true,
}

// GotoRequest navigates a fresh page
type GotoRequest struct {
	URL       string `json:"url"`
	WaitUntil string `json:"wait_until,omitempty"`
	Timeout   int    `json:"timeout,omitempty"` // milliseconds
}

// GotoResult describes the page after navigation
type GotoResult struct {
	URL   string `json:"url"`
	Title string `json:"title"`
}

// ScreenshotRequest captures a page or one element
type ScreenshotRequest struct {
	URL      string `json:"url,omitempty"`
	Selector string `json:"selector,omitempty"`
	Format   string `json:"format,omitempty"`
	FullPage bool   `json:"full_page,omitempty"`
}

// ScreenshotResult carries base64 image data
type ScreenshotResult struct {
	Data   string `json:"data"`
	Format string `json:"format"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
}

// EvaluateRequest runs a script in a page
type EvaluateRequest struct {
	URL    string `json:"url,omitempty"`
	Script string `json:"script"`
}

// EvaluateResult holds the script's JSON-compatible value
type EvaluateResult struct {
	Result any `json:"result"`
}

// ClickRequest clicks the element matching Selector
type ClickRequest struct {
	URL      string `json:"url,omitempty"`
	Selector string `json:"selector"`
}

// TypeRequest fills the element matching Selector with Text
type TypeRequest struct {
	URL      string `json:"url,omitempty"`
	Selector string `json:"selector"`
	Text     string `json:"text"`
}

// ActionResult acknowledges an interaction
type ActionResult struct {
	Success bool `json:"success"`
}

// ContentRequest extracts content from a page. Selector (CSS) and XPath
// narrow the extraction to the first matching element.
type ContentRequest struct {
	URL      string `json:"url,omitempty"`
	Selector string `json:"selector,omitempty"`
	XPath    string `json:"xpath,omitempty"`
	Sanitize bool   `json:"sanitize,omitempty"`
}

// Link is an anchor found in extracted content
type Link struct {
	Text string `json:"text"`
	Href string `json:"href"`
}

// ContentResult is the extracted content
type ContentResult struct {
	URL   string `json:"url"`
	Title string `json:"title"`
	Text  string `json:"text"`
	HTML  string `json:"html"`
	Links []Link `json:"links"`
}

// Status reports engine liveness
type Status struct {
	Running bool   `json:"running"`
	Version string `json:"version,omitempty"`
}

// Viewport is a page size in CSS pixels
type Viewport struct {
	Width  int
	Height int
}

// LaunchOptions configures an engine launch
type LaunchOptions struct {
	Headless   bool
	Executable string
	Args       []string
}

// GotoOptions configures a navigation
type GotoOptions struct {
	WaitUntil string
	Timeout   time.Duration
}

// ShotOptions configures a screenshot
type ShotOptions struct {
	Selector string
	Format   string
	FullPage bool
	Timeout  time.Duration
}

// Box is an element's bounding box
type Box struct {
	Width  float64
	Height float64
}
