package storecrawl

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
)

// RodLauncher binds the crawler to the Rod automation engine. Playwright is
// the primary binding; rod avoids the driver download on hosts that already
// ship a Chrome binary.
type RodLauncher struct {
	launcher *launcher.Launcher
}

func NewRodLauncher() *RodLauncher {
	return &RodLauncher{}
}

func (l *RodLauncher) Launch(engine Engine) (Browser, error) {
	l.launcher = launcher.New().
		Headless(engine.Headless).
		Devtools(engine.Devtools).
		NoSandbox(true)

	controlUrl, err := l.launcher.Launch()
	if err != nil {
		return nil, fmt.Errorf("failed to launch browser: %w", err)
	}
	browser := rod.New().ControlURL(controlUrl)
	if err := browser.Connect(); err != nil {
		return nil, fmt.Errorf("failed to connect to browser: %w", err)
	}
	return &rodBrowser{browser: browser, userAgent: engine.UserAgent}, nil
}

func (l *RodLauncher) Stop() error {
	if l.launcher != nil {
		l.launcher.Cleanup()
	}
	return nil
}

type rodBrowser struct {
	browser   *rod.Browser
	userAgent string
}

func (b *rodBrowser) NewContext(snapshot []byte) (BrowserContext, error) {
	incognito, err := b.browser.Incognito()
	if err != nil {
		return nil, fmt.Errorf("could not create new browser context: %w", err)
	}
	ctx := &rodContext{browser: incognito, userAgent: b.userAgent}
	if snapshot != nil {
		state, err := decodeSnapshot(snapshot)
		if err != nil {
			return nil, err
		}
		if err := ctx.seed(state); err != nil {
			return nil, err
		}
	}
	return ctx, nil
}

func (b *rodBrowser) Close() error {
	return b.browser.Close()
}

type rodContext struct {
	browser   *rod.Browser
	userAgent string
	origins   []OriginStorage
	pages     []*rodPage
}

// seed restores cookies immediately; per-origin local storage is replayed by
// pages on their first navigation to the matching origin, since CDP only
// exposes localStorage through a page.
func (c *rodContext) seed(state *SessionSnapshot) error {
	var params []*proto.NetworkCookieParam
	for _, cookie := range state.Cookies {
		param := &proto.NetworkCookieParam{
			Name:     cookie.Name,
			Value:    cookie.Value,
			Domain:   cookie.Domain,
			Path:     cookie.Path,
			HTTPOnly: cookie.HttpOnly,
			Secure:   cookie.Secure,
		}
		if cookie.Expires > 0 {
			param.Expires = proto.TimeSinceEpoch(cookie.Expires)
		}
		switch cookie.SameSite {
		case "Strict":
			param.SameSite = proto.NetworkCookieSameSiteStrict
		case "Lax":
			param.SameSite = proto.NetworkCookieSameSiteLax
		case "None":
			param.SameSite = proto.NetworkCookieSameSiteNone
		}
		params = append(params, param)
	}
	if len(params) > 0 {
		if err := c.browser.SetCookies(params); err != nil {
			return fmt.Errorf("could not restore cookies: %w", err)
		}
	}
	c.origins = state.Origins
	return nil
}

func (c *rodContext) NewPage() (Page, error) {
	page, err := c.browser.Page(proto.TargetCreateTarget{})
	if err != nil {
		return nil, fmt.Errorf("failed to create page: %w", err)
	}
	if c.userAgent != "" {
		if err := page.SetUserAgent(&proto.NetworkSetUserAgentOverride{UserAgent: c.userAgent}); err != nil {
			return nil, fmt.Errorf("error setting user agent: %w", err)
		}
	}
	rp := &rodPage{page: page, context: c}
	c.pages = append(c.pages, rp)
	return rp, nil
}

// StorageState captures cookies from the context plus localStorage from the
// pages currently open in it.
func (c *rodContext) StorageState() ([]byte, error) {
	cookies, err := c.browser.GetCookies()
	if err != nil {
		return nil, fmt.Errorf("failed to capture cookies: %w", err)
	}

	state := SessionSnapshot{}
	for _, cookie := range cookies {
		state.Cookies = append(state.Cookies, SessionCookie{
			Name:     cookie.Name,
			Value:    cookie.Value,
			Domain:   cookie.Domain,
			Path:     cookie.Path,
			Expires:  float64(cookie.Expires),
			HttpOnly: cookie.HTTPOnly,
			Secure:   cookie.Secure,
			SameSite: string(cookie.SameSite),
		})
	}

	seen := map[string]bool{}
	for _, rp := range c.pages {
		if rp.closed {
			continue
		}
		origin, entries, err := rp.localStorage()
		if err != nil || origin == "" || seen[origin] {
			continue
		}
		seen[origin] = true
		state.Origins = append(state.Origins, OriginStorage{Origin: origin, LocalStorage: entries})
	}

	return json.Marshal(state)
}

func (c *rodContext) Close() error {
	return c.browser.Close()
}

type rodPage struct {
	page    *rod.Page
	context *rodContext
	closed  bool
}

func (p *rodPage) Goto(target string, timeout time.Duration) error {
	page := p.page.Timeout(timeout)
	if err := page.Navigate(target); err != nil {
		return mapRodTimeout(err)
	}
	if err := page.WaitLoad(); err != nil {
		return mapRodTimeout(err)
	}
	p.replayLocalStorage(target)
	return nil
}

// replayLocalStorage injects seeded localStorage entries on the first visit
// to a seeded origin.
func (p *rodPage) replayLocalStorage(target string) {
	parsed, err := url.Parse(target)
	if err != nil {
		return
	}
	origin := parsed.Scheme + "://" + parsed.Host
	remaining := p.context.origins[:0]
	for _, stored := range p.context.origins {
		if stored.Origin != origin {
			remaining = append(remaining, stored)
			continue
		}
		for _, entry := range stored.LocalStorage {
			js := fmt.Sprintf("() => localStorage.setItem(%q, %q)", entry.Name, entry.Value)
			if _, err := p.page.Eval(js); err != nil {
				return
			}
		}
	}
	p.context.origins = remaining
}

func (p *rodPage) URL() string {
	info, err := p.page.Info()
	if err != nil {
		return ""
	}
	return info.URL
}

func (p *rodPage) WaitForURL(match func(url string) bool, timeout time.Duration) error {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if match(p.URL()) {
			return nil
		}
		time.Sleep(250 * time.Millisecond)
	}
	return fmt.Errorf("%w: url condition not met within %s", ErrWaitTimeout, timeout)
}

func (p *rodPage) WaitForSelector(selector string, timeout time.Duration) error {
	_, err := p.page.Timeout(timeout).Element(selector)
	return mapRodTimeout(err)
}

func (p *rodPage) Content() (string, error) {
	return p.page.HTML()
}

func (p *rodPage) Evaluate(expression string) (interface{}, error) {
	obj, err := p.page.Eval("() => " + expression)
	if err != nil {
		return nil, err
	}
	return obj.Value.Val(), nil
}

// localStorage reads all entries of the page's current origin.
func (p *rodPage) localStorage() (string, []NameValue, error) {
	obj, err := p.page.Eval("() => JSON.stringify({origin: location.origin, entries: Object.entries(localStorage)})")
	if err != nil {
		return "", nil, err
	}
	var dump struct {
		Origin  string      `json:"origin"`
		Entries [][2]string `json:"entries"`
	}
	if err := json.Unmarshal([]byte(obj.Value.Str()), &dump); err != nil {
		return "", nil, err
	}
	var entries []NameValue
	for _, entry := range dump.Entries {
		entries = append(entries, NameValue{Name: entry[0], Value: entry[1]})
	}
	return dump.Origin, entries, nil
}

func (p *rodPage) Close() error {
	p.closed = true
	return p.page.Close()
}

func mapRodTimeout(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.DeadlineExceeded) || strings.Contains(err.Error(), "deadline") {
		return fmt.Errorf("%w: %v", ErrWaitTimeout, err)
	}
	return err
}
