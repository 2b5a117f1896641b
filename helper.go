package storecrawl

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// parsePrice pulls a number out of localized currency text ("¥1,299.00",
// "1299元") by stripping everything that is not a digit or decimal point.
func parsePrice(text string) float64 {
	var b strings.Builder
	for _, r := range text {
		if (r >= '0' && r <= '9') || r == '.' {
			b.WriteRune(r)
		}
	}
	cleaned := strings.Trim(b.String(), ".")
	if cleaned == "" {
		return 0
	}
	value, err := strconv.ParseFloat(cleaned, 64)
	if err != nil {
		return 0
	}
	return value
}

// parseCount parses sales/review counters like "1200", "1,200+", "1.2万".
func parseCount(text string) int {
	text = strings.TrimSpace(text)
	if text == "" {
		return 0
	}
	multiplier := 1.0
	if strings.Contains(text, "万") {
		multiplier = 10000
	}
	value := parsePrice(text)
	return int(value * multiplier)
}

// GetFullUrl resolves scraped hrefs and image sources against the target
// base URL. Protocol-relative links ("//img.example.com/x.jpg") are common
// on the storefront.
func (app *Crawler) GetFullUrl(href string) string {
	href = strings.TrimSpace(href)
	if href == "" {
		return ""
	}
	if strings.HasPrefix(href, "//") {
		return "https:" + href
	}
	parsed, err := url.Parse(href)
	if err != nil {
		return href
	}
	if parsed.IsAbs() {
		return href
	}
	base, err := url.Parse(app.target.BaseUrl)
	if err != nil {
		return href
	}
	return base.ResolveReference(parsed).String()
}

func writePageContentToFile(name, html, pageUrl, msg string) error {
	if html == "" {
		html = "No Page Content Found"
	}
	html = fmt.Sprintf("<!-- Time: %v \n Page Url: %s \n %s -->\n%s", time.Now(), pageUrl, strings.TrimSpace(msg), html)
	directory := filepath.Join(storageRoot, "logs", name, "html")
	if err := os.MkdirAll(directory, 0755); err != nil {
		return err
	}
	filePath := filepath.Join(directory, generateFilename(pageUrl))
	return os.WriteFile(filePath, []byte(html), 0644)
}

// generateFilename builds a dump filename from the URL and current date.
func generateFilename(rawURL string) string {
	invalidChars := []string{"/", "\\", ":", "*", "?", "\"", "<", ">", "|", "&", "="}
	name := rawURL
	for _, char := range invalidChars {
		name = strings.ReplaceAll(name, char, "_")
	}
	if len(name) > 120 {
		name = name[:120]
	}
	return time.Now().Format("2006-01-02") + "_" + name + ".html"
}
