package storecrawl

import (
	"fmt"
	"sync"
	"time"
)

// sessionTTL is how long a persisted login session is advertised as valid.
const sessionTTL = 30 * 24 * time.Hour

// Crawler owns one browser process and one shared browsing context against a
// single storefront. Collaborators are injected so callers can hold multiple
// isolated instances and tests can substitute fakes.
type Crawler struct {
	Name   string
	Config *configService
	Logger *defaultLogger

	target   Target
	engine   *Engine
	store    SessionStore
	launcher Launcher

	browser Browser
	context BrowserContext

	mu    sync.Mutex
	state CrawlerState
}

func NewCrawler(name string, store SessionStore, launcher Launcher, engines ...Engine) *Crawler {
	defaultEngine := getDefaultEngine()
	if len(engines) > 0 {
		eng := engines[0]
		overrideEngineDefaults(&defaultEngine, &eng)
	}
	config := newConfig()

	crawler := &Crawler{
		Name:     name,
		Config:   config,
		target:   getDefaultTarget(config),
		engine:   &defaultEngine,
		store:    store,
		launcher: launcher,
		state:    StateIdle,
	}
	crawler.Logger = newDefaultLogger(name)
	return crawler
}

func (app *Crawler) SetTarget(target Target) *Crawler {
	app.target = target
	return app
}

func (app *Crawler) SetBrowserType(browserType string) *Crawler {
	app.engine.BrowserType = browserType
	return app
}

func (app *Crawler) SetHeadless(headless bool) *Crawler {
	app.engine.Headless = headless
	return app
}

func (app *Crawler) SetTimeout(timeout time.Duration) *Crawler {
	app.engine.Timeout = timeout
	return app
}

// GetStatus returns the current lifecycle state without side effects.
func (app *Crawler) GetStatus() CrawlerState {
	app.mu.Lock()
	defer app.mu.Unlock()
	return app.state
}

// apply runs one validated state transition. Illegal transitions are
// rejected, not overwritten.
func (app *Crawler) apply(event stateEvent) error {
	app.mu.Lock()
	defer app.mu.Unlock()
	next, err := transition(app.state, event)
	if err != nil {
		return err
	}
	app.state = next
	return nil
}

// Initialize launches the browser process and creates the shared browsing
// context, seeded from a persisted session snapshot when one exists. It is
// idempotent: if the crawler is already Ready it returns immediately.
func (app *Crawler) Initialize() error {
	app.mu.Lock()
	if app.state == StateReady || app.state == StateCrawling {
		app.mu.Unlock()
		return nil
	}
	next, err := transition(app.state, eventInitialize)
	if err != nil {
		app.mu.Unlock()
		return newCrawlError(CodeInitError, "crawler cannot initialize", err)
	}
	app.state = next
	app.mu.Unlock()

	if err := app.initResources(); err != nil {
		if applyErr := app.apply(eventInitFailed); applyErr != nil {
			app.Logger.Error("%v", applyErr)
		}
		return newCrawlError(CodeInitError, "failed to initialize crawler", err)
	}

	if err := app.apply(eventInitialized); err != nil {
		return newCrawlError(CodeInitError, "crawler cannot become ready", err)
	}
	app.Logger.Info("Crawler %s initialized 🚀", app.Name)
	return nil
}

func (app *Crawler) initResources() error {
	browser, err := app.launcher.Launch(*app.engine)
	if err != nil {
		return fmt.Errorf("failed to launch browser: %w", err)
	}

	snapshot := app.loadSnapshot()
	context, err := browser.NewContext(snapshot)
	if err != nil && snapshot != nil {
		// A snapshot the engine refuses to load is treated as absent.
		app.Logger.Error("Session snapshot rejected, starting fresh context: %v", err)
		context, err = browser.NewContext(nil)
	}
	if err != nil {
		browser.Close()
		return fmt.Errorf("could not create browser context: %w", err)
	}

	app.browser = browser
	app.context = context
	return nil
}

// loadSnapshot reads the persisted session snapshot; corrupt or unreadable
// snapshots fail closed and the crawler starts unauthenticated.
func (app *Crawler) loadSnapshot() []byte {
	key := app.sessionKey()
	if !app.store.Exists(key) {
		return nil
	}
	data, err := app.store.Read(key)
	if err != nil {
		app.Logger.Error("Failed to read session snapshot: %v", err)
		return nil
	}
	if _, err := decodeSnapshot(data); err != nil {
		app.Logger.Error("Ignoring session snapshot: %v", err)
		return nil
	}
	app.Logger.Info("Restoring saved session for %s", app.target.Name)
	return data
}

// Close releases the context, the browser and the engine process. It is safe
// to call on a crawler that was never initialized, and calling it twice is a
// no-op.
func (app *Crawler) Close() error {
	if app.GetStatus() == StateClosed {
		return nil
	}
	if app.context != nil {
		if err := app.context.Close(); err != nil {
			app.Logger.Error("Failed to close context: %v", err)
		}
		app.context = nil
	}
	if app.browser != nil {
		if err := app.browser.Close(); err != nil {
			app.Logger.Error("Failed to close browser: %v", err)
		}
		app.browser = nil
	}
	var stopErr error
	if app.launcher != nil {
		stopErr = app.launcher.Stop()
	}
	if err := app.apply(eventClose); err != nil {
		app.Logger.Error("%v", err)
	}
	app.Logger.Info("Crawler %s stopped", app.Name)
	return stopErr
}

func (app *Crawler) sessionKey() string {
	return sessionKey(app.target.BaseUrl)
}

// newPage opens an ephemeral page on the shared context. Callers must close
// it before returning on every code path.
func (app *Crawler) newPage() (Page, error) {
	if app.context == nil {
		return nil, fmt.Errorf("crawler not initialized")
	}
	return app.context.NewPage()
}

func (app *Crawler) closePage(page Page) {
	if err := page.Close(); err != nil {
		app.Logger.Error("Failed to close page: %v", err)
	}
}
