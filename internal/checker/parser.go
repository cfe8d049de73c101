package checker

import (
	"fmt"
	"io"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html/charset"
)

// linkAttrs maps elements to the attribute holding a URL.
var linkAttrs = []struct {
	selector string
	attr     string
}{
	{selector: "a[href]", attr: "href"},
	{selector: "area[href]", attr: "href"},
	{selector: "link[href]", attr: "href"},
	{selector: "img[src]", attr: "src"},
	{selector: "script[src]", attr: "src"},
	{selector: "iframe[src]", attr: "src"},
	{selector: "frame[src]", attr: "src"},
	{selector: "embed[src]", attr: "src"},
	{selector: "source[src]", attr: "src"},
}

// skippedPrefixes are references that never name a checkable resource.
var skippedPrefixes = []string{"javascript:", "data:", "about:", "tel:"}

// parseLinks returns the absolute, deduplicated URLs referenced by an HTML
// document. contentType is used to detect the encoding; a <base href>
// overrides base for relative references.
func parseLinks(body io.Reader, base *url.URL, contentType string) ([]string, error) {
	utf8Body, err := charset.NewReader(body, contentType)
	if err != nil {
		return nil, fmt.Errorf("failed to detect encoding: %w", err)
	}

	doc, err := goquery.NewDocumentFromReader(utf8Body)
	if err != nil {
		return nil, err
	}

	if href, ok := doc.Find("base[href]").First().Attr("href"); ok {
		if u, err := base.Parse(strings.TrimSpace(href)); err == nil {
			base = u
		}
	}

	seen := make(map[string]struct{})
	links := make([]string, 0)
	for _, la := range linkAttrs {
		doc.Find(la.selector).Each(func(_ int, sel *goquery.Selection) {
			raw, _ := sel.Attr(la.attr)
			resolved := resolveURL(base, raw)
			if resolved == "" {
				return
			}
			if _, ok := seen[resolved]; ok {
				return
			}
			seen[resolved] = struct{}{}
			links = append(links, resolved)
		})
	}

	return links, nil
}

// resolveURL resolves href against base. It returns "" for empty
// references, pure fragments and schemes that are never checked.
func resolveURL(base *url.URL, href string) string {
	href = strings.TrimSpace(href)
	if href == "" || strings.HasPrefix(href, "#") {
		return ""
	}
	lower := strings.ToLower(href)
	for _, prefix := range skippedPrefixes {
		if strings.HasPrefix(lower, prefix) {
			return ""
		}
	}

	u, err := base.Parse(href)
	if err != nil {
		// Keep it so the broken reference is reported.
		return href
	}
	return u.String()
}
