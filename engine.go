package storecrawl

import (
	"errors"
	"time"
)

// ErrWaitTimeout is returned by engine bindings when a bounded wait
// (navigation, selector, URL predicate) elapses.
var ErrWaitTimeout = errors.New("wait timed out")

// Launcher starts and stops one automation engine process.
type Launcher interface {
	Launch(engine Engine) (Browser, error)
	Stop() error
}

// Browser is a running browser process.
type Browser interface {
	// NewContext creates an isolated browsing context. A non-nil snapshot
	// seeds it with previously captured storage state; the blob is whatever
	// StorageState produced, opaque to the caller.
	NewContext(snapshot []byte) (BrowserContext, error)
	Close() error
}

// BrowserContext is a cookie/storage scoped environment hosting pages.
type BrowserContext interface {
	NewPage() (Page, error)
	// StorageState captures cookies and per-origin local storage as one blob.
	StorageState() ([]byte, error)
	Close() error
}

// Page is one tab. All waits are bounded; ErrWaitTimeout signals the bound
// elapsed.
type Page interface {
	Goto(url string, timeout time.Duration) error
	URL() string
	WaitForURL(match func(url string) bool, timeout time.Duration) error
	WaitForSelector(selector string, timeout time.Duration) error
	Content() (string, error)
	Evaluate(expression string) (interface{}, error)
	Close() error
}

// Engine holds the launch and navigation options shared by all bindings.
type Engine struct {
	BrowserType string
	Headless    bool
	Devtools    bool
	UserAgent   string
	Args        []string
	Timeout     time.Duration
}

func getDefaultEngine() Engine {
	return Engine{
		BrowserType: "chromium",
		Headless:    true,
		UserAgent:   "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36",
		Timeout:     30 * time.Second,
	}
}

func overrideEngineDefaults(defaultEngine *Engine, eng *Engine) {
	if eng.BrowserType != "" {
		defaultEngine.BrowserType = eng.BrowserType
	}
	if eng.UserAgent != "" {
		defaultEngine.UserAgent = eng.UserAgent
	}
	if len(eng.Args) > 0 {
		defaultEngine.Args = eng.Args
	}
	if eng.Timeout > 0 {
		defaultEngine.Timeout = eng.Timeout
	}
}
