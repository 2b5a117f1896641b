package storecrawl

import (
	"fmt"
	"time"
)

// SessionStatus is a read-model computed on demand; it is never persisted.
type SessionStatus struct {
	IsActive    bool       `json:"isActive"`
	IsLoggedIn  bool       `json:"isLoggedIn"`
	LastUpdated time.Time  `json:"lastUpdated"`
	ExpiresAt   *time.Time `json:"expiresAt,omitempty"`
	Username    string     `json:"username,omitempty"`
}

// GetSessionStatus composes "does a snapshot exist" with a live verification
// pass. Without a snapshot the automation engine is never touched. Any
// verification failure reports a logged-out session rather than an error.
func (app *Crawler) GetSessionStatus() SessionStatus {
	key := app.sessionKey()
	if !app.store.Exists(key) {
		return SessionStatus{LastUpdated: time.Now()}
	}

	status := SessionStatus{IsActive: true, LastUpdated: time.Now()}
	if modTime, err := app.store.ModTime(key); err == nil {
		// The snapshot's age, not the probe time, so staleness is visible.
		status.LastUpdated = modTime
		expiresAt := modTime.Add(sessionTTL)
		status.ExpiresAt = &expiresAt
	}

	loggedIn, username, err := app.verifySession()
	if err != nil {
		app.Logger.Error("Session verification failed: %v", err)
		return SessionStatus{LastUpdated: status.LastUpdated}
	}
	status.IsLoggedIn = loggedIn
	status.Username = username
	return status
}

// verifySession opens a throwaway page on the home surface and checks for
// the logged-out indicator element.
func (app *Crawler) verifySession() (bool, string, error) {
	if err := app.Initialize(); err != nil {
		return false, "", err
	}

	page, err := app.newPage()
	if err != nil {
		return false, "", err
	}
	defer app.closePage(page)

	if err := page.Goto(app.target.HomeUrl, app.engine.Timeout); err != nil {
		return false, "", err
	}

	expression := fmt.Sprintf("document.querySelector(%q) !== null", app.target.Selectors.LoggedOutIndicator)
	result, err := page.Evaluate(expression)
	if err != nil {
		return false, "", err
	}
	loggedOut, ok := result.(bool)
	if !ok {
		return false, "", fmt.Errorf("unexpected evaluate result: %T", result)
	}
	if loggedOut {
		return false, "", nil
	}
	return true, app.extractUsername(page), nil
}

// ClearSession deletes the persisted snapshot. Deleting a nonexistent
// snapshot is not an error.
func (app *Crawler) ClearSession() error {
	if err := app.store.Delete(app.sessionKey()); err != nil {
		return fmt.Errorf("could not clear session: %w", err)
	}
	app.Logger.Info("Session cleared for %s", app.target.Name)
	return nil
}
