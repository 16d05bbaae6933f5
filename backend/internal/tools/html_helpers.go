package tools

import (
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// ExtractText returns the readable text of an HTML document, dropping
// scripts, styles and page chrome, with whitespace collapsed.
func ExtractText(doc *goquery.Document) string {
	doc.Find("script, style, noscript, iframe, svg, nav, header, footer, form").Remove()

	root := doc.Find("article").First()
	if root.Length() == 0 {
		root = doc.Find("main").First()
	}
	if root.Length() == 0 {
		root = doc.Find("body")
	}

	var blocks []string
	root.Find("h1, h2, h3, h4, p, li, blockquote, pre").Each(func(_ int, s *goquery.Selection) {
		if text := collapseWhitespace(s.Text()); text != "" {
			blocks = append(blocks, text)
		}
	})
	if len(blocks) == 0 {
		return collapseWhitespace(root.Text())
	}
	return strings.Join(blocks, "\n")
}

// PageTitle returns the document title, if any
func PageTitle(doc *goquery.Document) string {
	return collapseWhitespace(doc.Find("title").First().Text())
}

func collapseWhitespace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// unwrapDuckDuckGoURL extracts the target from DuckDuckGo's /l/?uddg= redirect links
func unwrapDuckDuckGoURL(raw string) string {
	if raw == "" {
		return ""
	}
	if strings.HasPrefix(raw, "//") {
		raw = "https:" + raw
	}
	parsed, err := url.Parse(raw)
	if err != nil {
		return raw
	}
	if target := parsed.Query().Get("uddg"); target != "" {
		return target
	}
	if strings.HasPrefix(raw, "/") {
		return ""
	}
	return raw
}
