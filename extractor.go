package storecrawl

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// getPageDom parses the page's current content into a goquery document.
func (app *Crawler) getPageDom(page Page) (*goquery.Document, error) {
	html, err := page.Content()
	if err != nil {
		return nil, err
	}
	return goquery.NewDocumentFromReader(strings.NewReader(html))
}

// extractSearchItems reads one record per result element. Every field is
// best-effort; a missing node yields an empty string.
func (app *Crawler) extractSearchItems(doc *goquery.Document) []SearchResultItem {
	sel := app.target.Selectors
	var items []SearchResultItem
	doc.Find(sel.SearchItem).Each(func(i int, s *goquery.Selection) {
		items = append(items, SearchResultItem{
			Title:      sel.ItemTitle.text(s),
			PriceText:  sel.ItemPrice.text(s),
			ImageUrl:   app.GetFullUrl(sel.ItemImage.text(s)),
			ProductUrl: app.GetFullUrl(sel.ItemLink.text(s)),
			ShopName:   sel.ItemShop.text(s),
			SalesText:  sel.ItemSales.text(s),
			Location:   sel.ItemPlace.text(s),
		})
	})
	return items
}

// extractTotalItems parses the result counter ("共1,200件"). Returns 0 when
// the counter is missing or unparsable; the caller falls back to the item
// count on the page.
func (app *Crawler) extractTotalItems(doc *goquery.Document) int {
	return parseCount(app.target.Selectors.SearchTotal.textFromDocument(doc))
}

// extractProductDetail evaluates the fixed detail schema. Missing fields
// default to empty string or zero.
func (app *Crawler) extractProductDetail(doc *goquery.Document, productUrl string) *ProductDetail {
	sel := app.target.Selectors

	detail := &ProductDetail{
		Url:   productUrl,
		Title: sel.DetailTitle.textFromDocument(doc),
		Price: Price{
			Current:  parsePrice(sel.DetailPrice.textFromDocument(doc)),
			Original: parsePrice(sel.DetailOrigin.textFromDocument(doc)),
			Currency: "CNY",
		},
		Description: sel.DetailDesc.textFromDocument(doc),
		Seller: Seller{
			ID:       sel.DetailSellerID.textFromDocument(doc),
			Name:     sel.DetailSeller.textFromDocument(doc),
			Rating:   parsePrice(sel.DetailRating.textFromDocument(doc)),
			Location: sel.DetailPlace.textFromDocument(doc),
		},
		Category: sel.DetailCategory.textFromDocument(doc),
		Sales:    parseCount(sel.DetailSales.textFromDocument(doc)),
		Reviews:  parseCount(sel.DetailReviews.textFromDocument(doc)),
		Shipping: sel.DetailShipping.textFromDocument(doc),
	}

	for _, src := range sel.DetailImages.values(doc) {
		detail.Images = append(detail.Images, app.GetFullUrl(src))
	}

	if sel.DetailSpecRow != "" {
		specs := make(map[string]string)
		doc.Find(sel.DetailSpecRow).Each(func(i int, s *goquery.Selection) {
			name := sel.DetailSpecName.text(s)
			value := sel.DetailSpecVal.text(s)
			if name == "" && value == "" {
				// Some storefront themes put "name: value" in one node.
				if parts := strings.SplitN(strings.TrimSpace(s.Text()), ":", 2); len(parts) == 2 {
					name, value = strings.TrimSpace(parts[0]), strings.TrimSpace(parts[1])
				}
			}
			if name != "" {
				specs[name] = value
			}
		})
		if len(specs) > 0 {
			detail.Specifications = specs
		}
	}

	return detail
}
