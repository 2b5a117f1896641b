package storecrawl

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// Selector names one DOM node and optionally an attribute to read. An empty
// Attr means the node's text.
type Selector struct {
	Query string
	Attr  string
}

// MultiSelector reads one value per matching node.
type MultiSelector struct {
	Query string
	Attr  string
}

// text evaluates a Selector against a selection subtree. A missing node or
// attribute yields "", never an error.
func (sel Selector) text(s *goquery.Selection) string {
	if sel.Query == "" {
		return ""
	}
	found := s.Find(sel.Query).First()
	if found.Length() == 0 {
		return ""
	}
	if sel.Attr != "" {
		value, _ := found.Attr(sel.Attr)
		return strings.TrimSpace(value)
	}
	return strings.TrimSpace(found.Text())
}

func (sel Selector) textFromDocument(doc *goquery.Document) string {
	return sel.text(doc.Selection)
}

// values evaluates a MultiSelector against the document, skipping nodes
// missing the attribute.
func (sel MultiSelector) values(doc *goquery.Document) []string {
	var items []string
	if sel.Query == "" {
		return items
	}
	doc.Find(sel.Query).Each(func(i int, s *goquery.Selection) {
		if sel.Attr != "" {
			if value, ok := s.Attr(sel.Attr); ok && strings.TrimSpace(value) != "" {
				items = append(items, strings.TrimSpace(value))
			}
			return
		}
		if text := strings.TrimSpace(s.Text()); text != "" {
			items = append(items, text)
		}
	})
	return items
}
