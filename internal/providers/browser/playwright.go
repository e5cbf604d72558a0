package browser

import (
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/playwright-community/playwright-go"
)

// LaunchPlaywright starts the playwright driver and a Chromium instance
func LaunchPlaywright(opts LaunchOptions) (Engine, error) {
	pw, err := playwright.Run(&playwright.RunOptions{
		Verbose: false,
		Stdout:  io.Discard,
		Stderr:  io.Discard,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to start playwright: %w", err)
	}

	launchOpts := playwright.BrowserTypeLaunchOptions{
		Headless: playwright.Bool(opts.Headless),
		Args:     opts.Args,
	}
	if opts.Executable != "" {
		launchOpts.ExecutablePath = playwright.String(opts.Executable)
	}

	browser, err := pw.Chromium.Launch(launchOpts)
	if err != nil {
		_ = pw.Stop()
		return nil, fmt.Errorf("failed to launch chromium: %w", err)
	}

	return &pwEngine{pw: pw, browser: browser}, nil
}

type pwEngine struct {
	pw      *playwright.Playwright
	browser playwright.Browser
}

func (e *pwEngine) NewPage(viewport Viewport) (Page, error) {
	bctx, err := e.browser.NewContext(playwright.BrowserNewContextOptions{
		Viewport: &playwright.Size{
			Width:  viewport.Width,
			Height: viewport.Height,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create context: %w", err)
	}

	page, err := bctx.NewPage()
	if err != nil {
		_ = bctx.Close()
		return nil, fmt.Errorf("failed to create page: %w", err)
	}
	return &pwPage{ctx: bctx, page: page}, nil
}

func (e *pwEngine) Version() string {
	return e.browser.Version()
}

func (e *pwEngine) Close() error {
	berr := e.browser.Close()
	perr := e.pw.Stop()
	return errors.Join(berr, perr)
}

// pwPage owns its browser context so pages never share cookies or storage
type pwPage struct {
	ctx  playwright.BrowserContext
	page playwright.Page
}

func ms(d time.Duration) *float64 {
	return playwright.Float(float64(d.Milliseconds()))
}

// translate maps playwright timeouts onto the package sentinels
func translate(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, playwright.ErrTimeout) {
		return fmt.Errorf("%w: %v", ErrTimeout, err)
	}
	return err
}

func (p *pwPage) Goto(url string, opts GotoOptions) error {
	gotoOpts := playwright.PageGotoOptions{Timeout: ms(opts.Timeout)}
	if opts.WaitUntil != "" {
		waitUntil := playwright.WaitUntilState(opts.WaitUntil)
		gotoOpts.WaitUntil = &waitUntil
	}
	_, err := p.page.Goto(url, gotoOpts)
	return translate(err)
}

func (p *pwPage) URL() string {
	return p.page.URL()
}

func (p *pwPage) Title() (string, error) {
	return p.page.Title()
}

func (p *pwPage) Content() (string, error) {
	return p.page.Content()
}

// locate waits for selector to attach, reporting a miss as ErrSelectorNotFound
func (p *pwPage) locate(selector string, timeout time.Duration) (playwright.Locator, error) {
	loc := p.page.Locator(selector).First()
	err := loc.WaitFor(playwright.LocatorWaitForOptions{
		State:   playwright.WaitForSelectorStateAttached,
		Timeout: ms(timeout),
	})
	if errors.Is(err, playwright.ErrTimeout) {
		return nil, fmt.Errorf("%w: %s", ErrSelectorNotFound, selector)
	}
	if err != nil {
		return nil, err
	}
	return loc, nil
}

func (p *pwPage) Screenshot(opts ShotOptions) ([]byte, error) {
	typ := playwright.ScreenshotType(opts.Format)

	if opts.Selector != "" {
		loc, err := p.locate(opts.Selector, opts.Timeout)
		if err != nil {
			return nil, err
		}
		data, err := loc.Screenshot(playwright.LocatorScreenshotOptions{
			Type:    &typ,
			Timeout: ms(opts.Timeout),
		})
		return data, translate(err)
	}

	data, err := p.page.Screenshot(playwright.PageScreenshotOptions{
		Type:     &typ,
		FullPage: playwright.Bool(opts.FullPage),
		Timeout:  ms(opts.Timeout),
	})
	return data, translate(err)
}

func (p *pwPage) ElementBox(selector string, timeout time.Duration) (Box, error) {
	loc, err := p.locate(selector, timeout)
	if err != nil {
		return Box{}, err
	}
	rect, err := loc.BoundingBox(playwright.LocatorBoundingBoxOptions{Timeout: ms(timeout)})
	if err != nil {
		return Box{}, translate(err)
	}
	if rect == nil {
		return Box{}, nil
	}
	return Box{Width: rect.Width, Height: rect.Height}, nil
}

func (p *pwPage) Evaluate(script string) (any, error) {
	v, err := p.page.Evaluate(script)
	if err != nil {
		if errors.Is(err, playwright.ErrTimeout) {
			return nil, translate(err)
		}
		return nil, fmt.Errorf("%w: %v", ErrScript, err)
	}
	return v, nil
}

func (p *pwPage) Click(selector string, timeout time.Duration) error {
	loc, err := p.locate(selector, timeout)
	if err != nil {
		return err
	}
	return translate(loc.Click(playwright.LocatorClickOptions{Timeout: ms(timeout)}))
}

func (p *pwPage) Fill(selector, text string, timeout time.Duration) error {
	loc, err := p.locate(selector, timeout)
	if err != nil {
		return err
	}
	return translate(loc.Fill(text, playwright.LocatorFillOptions{Timeout: ms(timeout)}))
}

func (p *pwPage) Close() error {
	perr := p.page.Close()
	cerr := p.ctx.Close()
	return errors.Join(perr, cerr)
}
