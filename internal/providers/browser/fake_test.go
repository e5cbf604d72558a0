package browser

import (
	"sync"
	"sync/atomic"
	"time"
)

type fakeEngine struct {
	mu      sync.Mutex
	pages   []*fakePage
	closed  bool
	pageFn  func(*fakePage)
	pageErr error
}

func (e *fakeEngine) NewPage(Viewport) (Page, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.pageErr != nil {
		return nil, e.pageErr
	}
	p := &fakePage{
		title:  "Example",
		html:   `<html><head><title>Example</title></head><body><p>hello</p></body></html>`,
		closed: make(chan struct{}),
	}
	if e.pageFn != nil {
		e.pageFn(p)
	}
	e.pages = append(e.pages, p)
	return p, nil
}

func (e *fakeEngine) Version() string { return "fake/1.0" }

func (e *fakeEngine) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.closed = true
	return nil
}

func (e *fakeEngine) isClosed() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.closed
}

func (e *fakeEngine) allPages() []*fakePage {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]*fakePage(nil), e.pages...)
}

type fakePage struct {
	mu        sync.Mutex
	url       string
	title     string
	html      string
	box       Box
	evalValue any
	err       error // returned by every operation when set
	block     bool  // operations wait until Close
	closeOnce sync.Once
	closed    chan struct{}
	closes    atomic.Int32
}

func (p *fakePage) op() error {
	if p.block {
		<-p.closed
		return ErrTimeout
	}
	return p.err
}

func (p *fakePage) Goto(url string, _ GotoOptions) error {
	if err := p.op(); err != nil {
		return err
	}
	p.mu.Lock()
	p.url = url
	p.mu.Unlock()
	return nil
}

func (p *fakePage) URL() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.url == "" {
		return "about:blank"
	}
	return p.url
}

func (p *fakePage) Title() (string, error)   { return p.title, p.op() }
func (p *fakePage) Content() (string, error) { return p.html, p.op() }

func (p *fakePage) Screenshot(ShotOptions) ([]byte, error) {
	if err := p.op(); err != nil {
		return nil, err
	}
	return []byte("png-bytes"), nil
}

func (p *fakePage) ElementBox(string, time.Duration) (Box, error) {
	return p.box, p.op()
}

func (p *fakePage) Evaluate(string) (any, error) {
	if err := p.op(); err != nil {
		return nil, err
	}
	return p.evalValue, nil
}

func (p *fakePage) Click(string, time.Duration) error        { return p.op() }
func (p *fakePage) Fill(string, string, time.Duration) error { return p.op() }

func (p *fakePage) Close() error {
	p.closes.Add(1)
	p.closeOnce.Do(func() { close(p.closed) })
	return nil
}

func (p *fakePage) isClosed() bool {
	select {
	case <-p.closed:
		return true
	default:
		return false
	}
}
