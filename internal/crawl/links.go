package crawl

import (
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/antchfx/htmlquery"
	"golang.org/x/net/html"
)

// itemListSel is the container holding downloadable item links on a
// catalog page.
const itemListSel = ".item-list a"

// itemLinks extracts item URLs from catalog page HTML, resolved against
// the page URL. Anchors without an href are skipped.
func itemLinks(pageHTML, pageURL string) []string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(pageHTML))
	if err != nil {
		return nil
	}

	var links []string
	doc.Find(itemListSel).Each(func(_ int, sel *goquery.Selection) {
		href, ok := sel.Attr("href")
		if !ok || strings.TrimSpace(href) == "" {
			return
		}
		links = append(links, resolveURL(pageURL, href))
	})
	return links
}

// embeddedDocXPaths locate documents served inside a viewer page rather
// than linked directly.
var embeddedDocXPaths = []struct {
	expr string
	attr string
}{
	{`//embed[@type='application/pdf']`, "src"},
	{`//object[@type='application/pdf']`, "data"},
	{`//iframe[contains(@src, '.pdf')]`, "src"},
}

// embeddedDocumentURL finds the URL of a document embedded in a viewer
// page. Returns the resolved URL and whether one was found.
func embeddedDocumentURL(pageHTML, pageURL string) (string, bool) {
	doc, err := htmlquery.Parse(strings.NewReader(pageHTML))
	if err != nil {
		return "", false
	}

	for _, xp := range embeddedDocXPaths {
		node, err := htmlquery.Query(doc, xp.expr)
		if err != nil || node == nil {
			continue
		}
		if val := nodeAttr(node, xp.attr); val != "" && strings.Contains(val, ".pdf") {
			if strings.HasPrefix(strings.TrimSpace(val), "data:") {
				continue
			}
			return resolveURL(pageURL, val), true
		}
	}

	// Fall back to any plain anchor pointing at a PDF.
	anchors, err := htmlquery.QueryAll(doc, `//a[@href]`)
	if err != nil {
		return "", false
	}
	for _, a := range anchors {
		href := nodeAttr(a, "href")
		if strings.HasSuffix(strings.ToLower(href), ".pdf") {
			return resolveURL(pageURL, href), true
		}
	}
	return "", false
}

// nodeAttr reads an attribute off a parsed HTML node.
func nodeAttr(n *html.Node, name string) string {
	for _, attr := range n.Attr {
		if attr.Key == name {
			return attr.Val
		}
	}
	return ""
}

// resolveURL makes href absolute against a base URL.
func resolveURL(base, href string) string {
	b, err := url.Parse(base)
	if err != nil {
		return href
	}
	h, err := url.Parse(href)
	if err != nil {
		return href
	}
	return b.ResolveReference(h).String()
}

// joinDatasetURL appends a dataset path to the base catalog URL.
func joinDatasetURL(baseURL, datasetPath string) string {
	return strings.TrimRight(baseURL, "/") + "/" + strings.Trim(datasetPath, "/")
}
