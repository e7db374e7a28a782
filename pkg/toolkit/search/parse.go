package search

import (
	"net/url"
	"slices"
	"strings"

	"golang.org/x/net/html"
)

// parseResults extracts up to limit results from a DuckDuckGo HTML page.
// Each hit is a div with class "result" holding an "result__a" anchor and
// an optional "result__snippet" element. Ads are skipped.
func parseResults(doc *html.Node, limit int) []Result {
	var results []Result

	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if len(results) >= limit {
			return
		}

		if n.Type == html.ElementNode && hasClass(n, "result") && !hasClass(n, "result--ad") {
			if r, ok := parseResult(n); ok {
				results = append(results, r)
			}
			return
		}

		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)

	return results
}

func parseResult(n *html.Node) (Result, bool) {
	anchor := find(n, func(c *html.Node) bool {
		return c.Type == html.ElementNode && c.Data == "a" && hasClass(c, "result__a")
	})
	if anchor == nil {
		return Result{}, false
	}

	r := Result{
		Title: collapse(textOf(anchor)),
		URL:   resolveURL(attr(anchor, "href")),
	}

	if snippet := find(n, func(c *html.Node) bool {
		return c.Type == html.ElementNode && hasClass(c, "result__snippet")
	}); snippet != nil {
		r.Snippet = collapse(textOf(snippet))
	}

	return r, r.Title != ""
}

// resolveURL unwraps DuckDuckGo redirect links ("//duckduckgo.com/l/?uddg=...").
func resolveURL(href string) string {
	if href == "" {
		return ""
	}

	u, err := url.Parse(href)
	if err != nil {
		return href
	}

	if target := u.Query().Get("uddg"); target != "" {
		return target
	}

	if u.Scheme == "" && strings.HasPrefix(href, "//") {
		return "https:" + href
	}

	return href
}

func find(n *html.Node, match func(*html.Node) bool) *html.Node {
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if match(c) {
			return c
		}
		if found := find(c, match); found != nil {
			return found
		}
	}
	return nil
}

func textOf(n *html.Node) string {
	var b strings.Builder

	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			b.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)

	return b.String()
}

func collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

func hasClass(n *html.Node, class string) bool {
	return slices.Contains(strings.Fields(attr(n, "class")), class)
}
