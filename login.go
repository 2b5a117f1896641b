package storecrawl

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"
)

// DefaultLoginWaitSeconds bounds how long CreateLoginSession waits for the
// user to finish authenticating in the opened page.
const DefaultLoginWaitSeconds = 120

type LoginSession struct {
	ExpiresAt time.Time `json:"expiresAt"`
	Username  string    `json:"username,omitempty"`
}

type LoginResult struct {
	Success bool          `json:"success"`
	Session *LoginSession `json:"session,omitempty"`
	Error   *CrawlError   `json:"error,omitempty"`
}

// CreateLoginSession opens the storefront's login surface and waits up to
// waitSeconds for the URL to transition off it, which signals a completed
// login. On success the context's storage state is persisted, replacing any
// prior snapshot. The returned error is non-nil only when the crawler itself
// could not initialize; login outcomes are reported in the result.
func (app *Crawler) CreateLoginSession(waitSeconds int) (*LoginResult, error) {
	if waitSeconds <= 0 {
		waitSeconds = DefaultLoginWaitSeconds
	}
	if err := app.Initialize(); err != nil {
		return nil, err
	}

	page, err := app.newPage()
	if err != nil {
		return loginFailure(CodeLoginError, "could not open login page", err), nil
	}
	defer app.closePage(page)

	if err := page.Goto(app.target.LoginUrl, app.engine.Timeout); err != nil {
		return loginFailure(CodeLoginError, "could not reach login surface", err), nil
	}

	app.Logger.Info("Waiting up to %ds for login to complete", waitSeconds)
	wait := time.Duration(waitSeconds) * time.Second
	if err := page.WaitForURL(app.isAuthenticatedUrl, wait); err != nil {
		if errors.Is(err, ErrWaitTimeout) {
			msg := fmt.Sprintf("login not completed within %ds", waitSeconds)
			return loginFailure(CodeLoginTimeout, msg, err), nil
		}
		return loginFailure(CodeLoginError, "login wait failed", err), nil
	}

	snapshot, err := app.context.StorageState()
	if err != nil {
		return loginFailure(CodeLoginError, "could not capture session state", err), nil
	}
	if err := app.store.Write(app.sessionKey(), snapshot); err != nil {
		return loginFailure(CodeLoginError, "could not persist session", err), nil
	}

	session := &LoginSession{
		ExpiresAt: time.Now().Add(sessionTTL),
		Username:  app.extractUsername(page),
	}
	app.Logger.Info("Login session saved for %s", app.target.Name)
	return &LoginResult{Success: true, Session: session}, nil
}

func loginFailure(code ErrorCode, message string, cause error) *LoginResult {
	return &LoginResult{Success: false, Error: newCrawlError(code, message, cause)}
}

// isAuthenticatedUrl reports whether the page URL is on the target domain
// and has left the login surface.
func (app *Crawler) isAuthenticatedUrl(rawUrl string) bool {
	parsed, err := url.Parse(rawUrl)
	if err != nil {
		return false
	}
	host := strings.ToLower(parsed.Hostname())
	if host != app.target.Domain && !strings.HasSuffix(host, "."+app.target.Domain) {
		return false
	}
	return !app.isLoginPath(parsed)
}

// isLoginUrl reports whether a navigation landed on a login surface, which
// during scraping means the session is no longer authenticated.
func (app *Crawler) isLoginUrl(rawUrl string) bool {
	parsed, err := url.Parse(rawUrl)
	if err != nil {
		return false
	}
	return app.isLoginPath(parsed) || strings.HasPrefix(strings.ToLower(parsed.Hostname()), "login.")
}

func (app *Crawler) isLoginPath(parsed *url.URL) bool {
	path := strings.ToLower(parsed.Path)
	for _, hint := range app.target.LoginPathHints {
		if strings.Contains(path, hint) {
			return true
		}
	}
	return false
}

// extractUsername reads a best-effort display name off the page after login.
// Failure to find one is non-fatal.
func (app *Crawler) extractUsername(page Page) string {
	doc, err := app.getPageDom(page)
	if err != nil {
		return ""
	}
	return app.target.Selectors.Username.textFromDocument(doc)
}
