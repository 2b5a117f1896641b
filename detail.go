package storecrawl

import (
	"errors"
)

type Price struct {
	Current  float64 `json:"current"`
	Original float64 `json:"original,omitempty"`
	Currency string  `json:"currency"`
}

type Seller struct {
	ID       string  `json:"id,omitempty"`
	Name     string  `json:"name"`
	Rating   float64 `json:"rating,omitempty"`
	Location string  `json:"location,omitempty"`
}

type ProductDetail struct {
	Url            string            `json:"url"`
	Title          string            `json:"title"`
	Price          Price             `json:"price"`
	Images         []string          `json:"images"`
	Description    string            `json:"description,omitempty"`
	Specifications map[string]string `json:"specifications,omitempty"`
	Seller         Seller            `json:"seller"`
	Category       string            `json:"category,omitempty"`
	Sales          int               `json:"sales,omitempty"`
	Reviews        int               `json:"reviews,omitempty"`
	Shipping       string            `json:"shipping,omitempty"`
}

// GetDetail navigates to the exact product URL and extracts the fixed detail
// schema. Missing fields default to empty values; navigation failures are
// surfaced as DETAIL_ERROR with the original cause.
func (app *Crawler) GetDetail(productUrl string) (*ProductDetail, error) {
	if productUrl == "" {
		return nil, newCrawlError(CodeDetailError, "product url is required", nil)
	}
	if err := app.Initialize(); err != nil {
		return nil, err
	}

	page, err := app.newPage()
	if err != nil {
		return nil, newCrawlError(CodeDetailError, "could not open page", err)
	}
	defer app.closePage(page)

	if err := page.Goto(productUrl, app.engine.Timeout); err != nil {
		if errors.Is(err, ErrWaitTimeout) {
			return nil, app.timeoutError("detail navigation", app.engine.Timeout, err)
		}
		return nil, newCrawlError(CodeDetailError, "detail fetch failed", err)
	}

	if app.isLoginUrl(page.URL()) {
		return nil, newCrawlError(CodeAuthRequired, "detail redirected to login, session expired", nil)
	}

	doc, err := app.getPageDom(page)
	if err != nil {
		return nil, newCrawlError(CodeDetailError, "could not read product page", err)
	}

	detail := app.extractProductDetail(doc, productUrl)
	app.Logger.Info("Fetched detail for %s (%s)", detail.Title, productUrl)
	return detail, nil
}
