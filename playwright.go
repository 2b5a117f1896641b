package storecrawl

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/playwright-community/playwright-go"
)

// PlaywrightLauncher binds the crawler to the Playwright automation engine.
type PlaywrightLauncher struct {
	pw           *playwright.Playwright
	forceInstall bool
	userAgent    string
}

type PlaywrightOptions struct {
	// ForceInstall downloads the driver and browsers before launching,
	// needed on fresh deployment hosts.
	ForceInstall bool
}

func NewPlaywrightLauncher(options ...PlaywrightOptions) *PlaywrightLauncher {
	launcher := &PlaywrightLauncher{}
	if len(options) > 0 {
		launcher.forceInstall = options[0].ForceInstall
	}
	return launcher
}

func (l *PlaywrightLauncher) Launch(engine Engine) (Browser, error) {
	if l.forceInstall {
		if err := playwright.Install(); err != nil {
			return nil, fmt.Errorf("failed to install playwright: %w", err)
		}
	}
	pw, err := playwright.Run()
	if err != nil {
		return nil, fmt.Errorf("failed to run playwright: %w", err)
	}
	l.pw = pw
	l.userAgent = engine.UserAgent

	launchOptions := playwright.BrowserTypeLaunchOptions{
		Headless: playwright.Bool(engine.Headless),
		Devtools: playwright.Bool(engine.Devtools),
	}
	if len(engine.Args) > 0 {
		launchOptions.Args = engine.Args
	}

	var browser playwright.Browser
	switch engine.BrowserType {
	case "chromium", "":
		browser, err = pw.Chromium.Launch(launchOptions)
	case "firefox":
		browser, err = pw.Firefox.Launch(launchOptions)
	case "webkit":
		browser, err = pw.WebKit.Launch(launchOptions)
	default:
		return nil, fmt.Errorf("unsupported browser type: %s", engine.BrowserType)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to launch browser: %w", err)
	}
	return &playwrightBrowser{browser: browser, userAgent: l.userAgent}, nil
}

func (l *PlaywrightLauncher) Stop() error {
	if l.pw == nil {
		return nil
	}
	return l.pw.Stop()
}

type playwrightBrowser struct {
	browser   playwright.Browser
	userAgent string
}

func (b *playwrightBrowser) NewContext(snapshot []byte) (BrowserContext, error) {
	options := playwright.BrowserNewContextOptions{
		UserAgent: playwright.String(b.userAgent),
	}
	if snapshot != nil {
		var state playwright.OptionalStorageState
		if err := json.Unmarshal(snapshot, &state); err != nil {
			return nil, fmt.Errorf("invalid storage state snapshot: %w", err)
		}
		options.StorageState = &state
	}
	context, err := b.browser.NewContext(options)
	if err != nil {
		return nil, fmt.Errorf("could not create new browser context: %w", err)
	}
	return &playwrightContext{context: context}, nil
}

func (b *playwrightBrowser) Close() error {
	return b.browser.Close()
}

type playwrightContext struct {
	context playwright.BrowserContext
}

func (c *playwrightContext) NewPage() (Page, error) {
	page, err := c.context.NewPage()
	if err != nil {
		return nil, fmt.Errorf("failed to create page: %w", err)
	}
	return &playwrightPage{page: page}, nil
}

func (c *playwrightContext) StorageState() ([]byte, error) {
	state, err := c.context.StorageState()
	if err != nil {
		return nil, fmt.Errorf("failed to capture storage state: %w", err)
	}
	return json.Marshal(state)
}

func (c *playwrightContext) Close() error {
	return c.context.Close()
}

type playwrightPage struct {
	page playwright.Page
}

func (p *playwrightPage) Goto(url string, timeout time.Duration) error {
	_, err := p.page.Goto(url, playwright.PageGotoOptions{
		WaitUntil: playwright.WaitUntilStateDomcontentloaded,
		Timeout:   playwright.Float(float64(timeout.Milliseconds())),
	})
	return mapPlaywrightTimeout(err)
}

func (p *playwrightPage) URL() string {
	return p.page.URL()
}

func (p *playwrightPage) WaitForURL(match func(url string) bool, timeout time.Duration) error {
	err := p.page.WaitForURL(match, playwright.PageWaitForURLOptions{
		Timeout: playwright.Float(float64(timeout.Milliseconds())),
	})
	return mapPlaywrightTimeout(err)
}

func (p *playwrightPage) WaitForSelector(selector string, timeout time.Duration) error {
	_, err := p.page.WaitForSelector(selector, playwright.PageWaitForSelectorOptions{
		State:   playwright.WaitForSelectorStateAttached,
		Timeout: playwright.Float(float64(timeout.Milliseconds())),
	})
	return mapPlaywrightTimeout(err)
}

func (p *playwrightPage) Content() (string, error) {
	return p.page.Content()
}

func (p *playwrightPage) Evaluate(expression string) (interface{}, error) {
	return p.page.Evaluate(expression)
}

func (p *playwrightPage) Close() error {
	return p.page.Close()
}

// mapPlaywrightTimeout folds playwright's timeout errors into the package
// sentinel so operations can branch on errors.Is.
func mapPlaywrightTimeout(err error) error {
	if err == nil {
		return nil
	}
	if strings.Contains(strings.ToLower(err.Error()), "timeout") {
		return fmt.Errorf("%w: %v", ErrWaitTimeout, err)
	}
	return err
}
