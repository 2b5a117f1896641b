package storecrawl

import (
	"errors"
	"fmt"
	"math"
	"net/url"
	"strconv"
	"time"

	"github.com/PuerkitoBio/goquery"
)

type SortOrder string

const (
	SortDefault   SortOrder = "default"
	SortPriceAsc  SortOrder = "price_asc"
	SortPriceDesc SortOrder = "price_desc"
	SortSales     SortOrder = "sales"
	SortNewest    SortOrder = "newest"
)

type SearchFilters struct {
	MinPrice     float64 `json:"minPrice,omitempty"`
	MaxPrice     float64 `json:"maxPrice,omitempty"`
	FreeShipping bool    `json:"freeShipping,omitempty"`
}

type SearchQuery struct {
	Keyword  string         `json:"keyword"`
	Page     int            `json:"page,omitempty"`
	PageSize int            `json:"pageSize,omitempty"`
	SortBy   SortOrder      `json:"sortBy,omitempty"`
	Filters  *SearchFilters `json:"filters,omitempty"`
}

// SearchResultItem fields are best-effort strings; a missing DOM node yields
// an empty string.
type SearchResultItem struct {
	Title      string `json:"title"`
	PriceText  string `json:"priceText"`
	ImageUrl   string `json:"imageUrl"`
	ProductUrl string `json:"productUrl"`
	ShopName   string `json:"shopName,omitempty"`
	SalesText  string `json:"salesText,omitempty"`
	Location   string `json:"location,omitempty"`
}

type Pagination struct {
	CurrentPage int `json:"currentPage"`
	PageSize    int `json:"pageSize"`
	TotalItems  int `json:"totalItems"`
	TotalPages  int `json:"totalPages"`
}

type SearchMetadata struct {
	SearchedAt     time.Time `json:"searchedAt"`
	Keyword        string    `json:"keyword"`
	ResponseTimeMs int64     `json:"responseTimeMs"`
}

type SearchResultPage struct {
	Items      []SearchResultItem `json:"items"`
	Pagination Pagination         `json:"pagination"`
	Metadata   SearchMetadata     `json:"metadata"`
}

// Search runs one keyword search through the authenticated session. The
// crawler reports Crawling for the duration and returns to Ready on every
// exit path. A login redirect fails with AUTH_REQUIRED so callers know to
// re-run the login flow instead of retrying blindly.
func (app *Crawler) Search(query SearchQuery) (*SearchResultPage, error) {
	if query.Keyword == "" {
		return nil, newCrawlError(CodeSearchError, "keyword is required", nil)
	}
	if err := app.Initialize(); err != nil {
		return nil, err
	}

	if err := app.apply(eventCrawlStart); err != nil {
		return nil, newCrawlError(CodeSearchError, "crawler is not ready", err)
	}
	defer func() {
		if err := app.apply(eventCrawlDone); err != nil {
			app.Logger.Error("%v", err)
		}
	}()

	startedAt := time.Now()
	searchUrl := app.buildSearchUrl(query)
	app.Logger.Info("Searching %q -> %s", query.Keyword, searchUrl)

	page, err := app.newPage()
	if err != nil {
		return nil, newCrawlError(CodeSearchError, "could not open page", err)
	}
	defer app.closePage(page)

	if err := page.Goto(searchUrl, app.engine.Timeout); err != nil {
		if errors.Is(err, ErrWaitTimeout) {
			return nil, app.timeoutError("search navigation", app.engine.Timeout, err)
		}
		return nil, newCrawlError(CodeSearchError, "search navigation failed", err)
	}

	if app.isLoginUrl(page.URL()) {
		return nil, newCrawlError(CodeAuthRequired, "search redirected to login, session expired", nil)
	}

	if err := page.WaitForSelector(app.target.Selectors.SearchItem, app.engine.Timeout); err != nil {
		if html, contentErr := page.Content(); contentErr == nil {
			app.Logger.Html(html, searchUrl, "search results did not appear")
		}
		if errors.Is(err, ErrWaitTimeout) {
			return nil, app.timeoutError("search results", app.engine.Timeout, err)
		}
		return nil, newCrawlError(CodeSearchError, "search results did not appear", err)
	}

	doc, err := app.getPageDom(page)
	if err != nil {
		return nil, newCrawlError(CodeSearchError, "could not read search page", err)
	}

	items := app.extractSearchItems(doc)
	result := &SearchResultPage{
		Items:      items,
		Pagination: app.buildPagination(query, doc, len(items)),
		Metadata: SearchMetadata{
			SearchedAt:     startedAt,
			Keyword:        query.Keyword,
			ResponseTimeMs: time.Since(startedAt).Milliseconds(),
		},
	}
	app.Logger.Info("Search %q page %d: %d items in %dms", query.Keyword, result.Pagination.CurrentPage, len(items), result.Metadata.ResponseTimeMs)
	return result, nil
}

// buildSearchUrl encodes the query into the storefront's parameter
// vocabulary. url.Values ordering makes the result deterministic.
func (app *Crawler) buildSearchUrl(query SearchQuery) string {
	pageSize := query.PageSize
	if pageSize <= 0 {
		pageSize = app.target.DefaultPageSize
	}

	params := url.Values{}
	params.Set(app.target.KeywordParam, query.Keyword)
	if query.Page > 1 {
		params.Set(app.target.OffsetParam, strconv.Itoa((query.Page-1)*pageSize))
	}
	if sortValue, ok := app.target.SortValues[query.SortBy]; ok && sortValue != "" {
		params.Set(app.target.SortParam, sortValue)
	}
	if query.Filters != nil {
		if query.Filters.MinPrice > 0 {
			params.Set(app.target.MinPriceParam, strconv.FormatFloat(query.Filters.MinPrice, 'f', -1, 64))
		}
		if query.Filters.MaxPrice > 0 {
			params.Set(app.target.MaxPriceParam, strconv.FormatFloat(query.Filters.MaxPrice, 'f', -1, 64))
		}
		if query.Filters.FreeShipping {
			params.Set(app.target.FreeShipParam, app.target.FreeShipValue)
		}
	}
	return app.target.SearchUrl + "?" + params.Encode()
}

// buildPagination computes paging math from the parsed result counter,
// falling back to the on-page item count when the counter is unparsable.
func (app *Crawler) buildPagination(query SearchQuery, doc *goquery.Document, itemCount int) Pagination {
	currentPage := query.Page
	if currentPage < 1 {
		currentPage = 1
	}
	pageSize := query.PageSize
	if pageSize <= 0 {
		pageSize = app.target.DefaultPageSize
	}
	totalItems := app.extractTotalItems(doc)
	if totalItems <= 0 {
		totalItems = itemCount
	}
	return Pagination{
		CurrentPage: currentPage,
		PageSize:    pageSize,
		TotalItems:  totalItems,
		TotalPages:  totalPagesFor(totalItems, pageSize),
	}
}

func (app *Crawler) timeoutError(what string, bound time.Duration, cause error) *CrawlError {
	return newCrawlError(CodeNavigationTimeout, fmt.Sprintf("%s timed out after %s", what, bound), cause)
}

func totalPagesFor(totalItems, pageSize int) int {
	if pageSize <= 0 || totalItems <= 0 {
		return 0
	}
	return int(math.Ceil(float64(totalItems) / float64(pageSize)))
}
