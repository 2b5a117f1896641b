package storecrawl

import (
	"errors"
	"fmt"
)

type ErrorCode string

const (
	CodeInitError         ErrorCode = "INIT_ERROR"
	CodeAuthRequired      ErrorCode = "AUTH_REQUIRED"
	CodeLoginTimeout      ErrorCode = "LOGIN_TIMEOUT"
	CodeLoginError        ErrorCode = "LOGIN_ERROR"
	CodeNavigationTimeout ErrorCode = "NAVIGATION_TIMEOUT"
	CodeSearchError       ErrorCode = "SEARCH_ERROR"
	CodeDetailError       ErrorCode = "DETAIL_ERROR"
)

// CrawlError is the structured failure every exported operation reports,
// so callers can branch on Code instead of matching message text.
type CrawlError struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
	Err     error     `json:"-"`
}

func (e *CrawlError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *CrawlError) Unwrap() error {
	return e.Err
}

func newCrawlError(code ErrorCode, message string, cause error) *CrawlError {
	return &CrawlError{Code: code, Message: message, Err: cause}
}

// IsCode reports whether err carries the given crawl error code.
func IsCode(err error, code ErrorCode) bool {
	var ce *CrawlError
	if errors.As(err, &ce) {
		return ce.Code == code
	}
	return false
}

// IsRetryable is the default predicate for the retry wrapper. Authentication
// failures need a re-login, not another attempt, and initialization failures
// are fatal for the instance.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	var ce *CrawlError
	if errors.As(err, &ce) {
		switch ce.Code {
		case CodeAuthRequired, CodeInitError:
			return false
		}
	}
	return true
}
