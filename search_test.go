package storecrawl

import (
	"fmt"
	"net/url"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const searchFixture = `
<html><body>
<div class="total">共 88 件</div>
<div class="m-itemlist"><div class="items">
  <div class="item">
    <div class="pic"><img src="//img.alicdn.com/case1.jpg"></div>
    <div class="title"><a href="//item.taobao.com/item.htm?id=1">Silicone case</a></div>
    <div class="price">¥12.80</div>
    <div class="deal-cnt">1.2万人付款</div>
    <div class="shopname">Good Shop</div>
    <div class="location">广东 深圳</div>
  </div>
  <div class="item">
    <div class="title"><a href="https://item.taobao.com/item.htm?id=2">Leather case</a></div>
    <div class="price">¥39.00</div>
  </div>
</div></div>
</body></html>`

func TestSearchExtractsItemsAndPagination(t *testing.T) {
	launcher := newFakeLauncher()
	launcher.browser.pageScript = fakePageScript{
		urlAfterGoto: "https://s.taobao.com/search?q=phone+case",
		content:      searchFixture,
	}
	crawler := newTestCrawler(t, launcher)

	result, err := crawler.Search(SearchQuery{Keyword: "phone case"})
	require.NoError(t, err)
	require.Len(t, result.Items, 2)

	first := result.Items[0]
	assert.Equal(t, "Silicone case", first.Title)
	assert.Equal(t, "¥12.80", first.PriceText)
	assert.Equal(t, "https://img.alicdn.com/case1.jpg", first.ImageUrl)
	assert.Equal(t, "https://item.taobao.com/item.htm?id=1", first.ProductUrl)
	assert.Equal(t, "Good Shop", first.ShopName)
	assert.Equal(t, "1.2万人付款", first.SalesText)
	assert.Equal(t, "广东 深圳", first.Location)

	// Fields missing from the second tile default to empty strings.
	second := result.Items[1]
	assert.Equal(t, "Leather case", second.Title)
	assert.Empty(t, second.ShopName)
	assert.Empty(t, second.ImageUrl)

	assert.Equal(t, 88, result.Pagination.TotalItems)
	assert.Equal(t, 44, result.Pagination.PageSize)
	assert.Equal(t, 2, result.Pagination.TotalPages)
	assert.Equal(t, 1, result.Pagination.CurrentPage)

	assert.Equal(t, "phone case", result.Metadata.Keyword)
	assert.GreaterOrEqual(t, result.Metadata.ResponseTimeMs, int64(0))

	opened, closed := pageCloseBalance(launcher.browser.contexts[0])
	assert.Equal(t, opened, closed)
}

func TestSearchPaginationFallsBackToItemCount(t *testing.T) {
	launcher := newFakeLauncher()
	launcher.browser.pageScript = fakePageScript{
		urlAfterGoto: "https://s.taobao.com/search?q=x",
		content: `<html><div class="m-itemlist"><div class="items">
			<div class="item"><div class="title"><a>only</a></div></div>
		</div></div></html>`,
	}
	crawler := newTestCrawler(t, launcher)

	result, err := crawler.Search(SearchQuery{Keyword: "x"})
	require.NoError(t, err)
	assert.Equal(t, 1, result.Pagination.TotalItems)
	assert.Equal(t, 1, result.Pagination.TotalPages)
}

func TestSearchRequiresKeyword(t *testing.T) {
	crawler := newTestCrawler(t, newFakeLauncher())
	_, err := crawler.Search(SearchQuery{})
	require.Error(t, err)
	assert.True(t, IsCode(err, CodeSearchError))
}

func TestSearchLoginRedirectIsAuthRequired(t *testing.T) {
	launcher := newFakeLauncher()
	launcher.browser.pageScript = fakePageScript{
		urlAfterGoto: "https://login.taobao.com/member/login.jhtml?redirectURL=xxx",
	}
	crawler := newTestCrawler(t, launcher)

	_, err := crawler.Search(SearchQuery{Keyword: "phone case"})
	require.Error(t, err)
	assert.True(t, IsCode(err, CodeAuthRequired), "login redirect must not look like a generic scrape failure")
	assert.False(t, IsCode(err, CodeSearchError))

	assert.Equal(t, StateReady, crawler.GetStatus(), "state returns to ready after a failed search")
	opened, closed := pageCloseBalance(launcher.browser.contexts[0])
	assert.Equal(t, opened, closed)
}

func TestSearchSelectorTimeoutIsHardFailure(t *testing.T) {
	launcher := newFakeLauncher()
	launcher.browser.pageScript = fakePageScript{
		urlAfterGoto:    "https://s.taobao.com/search?q=x",
		waitSelectorErr: fmt.Errorf("%w: selector", ErrWaitTimeout),
	}
	crawler := newTestCrawler(t, launcher)

	_, err := crawler.Search(SearchQuery{Keyword: "x"})
	require.Error(t, err)
	assert.True(t, IsCode(err, CodeNavigationTimeout))
	assert.Equal(t, StateReady, crawler.GetStatus())
}

func TestBuildSearchUrlOffset(t *testing.T) {
	crawler := newTestCrawler(t, newFakeLauncher())

	parsed, err := url.Parse(crawler.buildSearchUrl(SearchQuery{Keyword: "x", Page: 2}))
	require.NoError(t, err)
	params := parsed.Query()

	assert.Equal(t, "x", params.Get("q"))
	assert.Equal(t, strconv.Itoa(1*44), params.Get("s"))

	parsed, err = url.Parse(crawler.buildSearchUrl(SearchQuery{Keyword: "x", Page: 5, PageSize: 20}))
	require.NoError(t, err)
	assert.Equal(t, "80", parsed.Query().Get("s"))
}

func TestBuildSearchUrlFirstPageHasNoOffset(t *testing.T) {
	crawler := newTestCrawler(t, newFakeLauncher())
	parsed, err := url.Parse(crawler.buildSearchUrl(SearchQuery{Keyword: "x"}))
	require.NoError(t, err)
	assert.False(t, parsed.Query().Has("s"))
}

func TestBuildSearchUrlEncodesKeyword(t *testing.T) {
	crawler := newTestCrawler(t, newFakeLauncher())
	built := crawler.buildSearchUrl(SearchQuery{Keyword: "phone case 手机壳"})
	parsed, err := url.Parse(built)
	require.NoError(t, err)
	assert.Equal(t, "phone case 手机壳", parsed.Query().Get("q"))
}

func TestBuildSearchUrlSortAndFilters(t *testing.T) {
	crawler := newTestCrawler(t, newFakeLauncher())

	built := crawler.buildSearchUrl(SearchQuery{
		Keyword: "x",
		SortBy:  SortPriceDesc,
		Filters: &SearchFilters{MinPrice: 10, MaxPrice: 99.5, FreeShipping: true},
	})
	parsed, err := url.Parse(built)
	require.NoError(t, err)
	params := parsed.Query()

	assert.Equal(t, "price-desc", params.Get("sort"))
	assert.Equal(t, "10", params.Get("start_price"))
	assert.Equal(t, "99.5", params.Get("end_price"))
	assert.Equal(t, "1", params.Get("fs"))

	// Default sort adds no sort parameter.
	parsed, err = url.Parse(crawler.buildSearchUrl(SearchQuery{Keyword: "x", SortBy: SortDefault}))
	require.NoError(t, err)
	assert.False(t, parsed.Query().Has("sort"))
}

func TestBuildSearchUrlIsDeterministic(t *testing.T) {
	crawler := newTestCrawler(t, newFakeLauncher())
	query := SearchQuery{Keyword: "x", Page: 3, SortBy: SortSales, Filters: &SearchFilters{FreeShipping: true}}
	assert.Equal(t, crawler.buildSearchUrl(query), crawler.buildSearchUrl(query))
}
