// Package htmlutil prepares raw page HTML for model analysis and performs
// the rule-based privacy link extraction.
package htmlutil

import (
	"bytes"
	"strings"

	"github.com/pkg/errors"
	"golang.org/x/net/html"
)

// CleanForText strips scripts, styles and comments and returns the page's
// visible text with collapsed whitespace. Suitable for analyses where only
// the prose matters (retention, DPO contacts).
func CleanForText(htmlContent string) (string, error) {
	doc, err := html.Parse(strings.NewReader(htmlContent))
	if err != nil {
		return "", errors.Wrap(err, "failed to parse HTML")
	}

	root := findElement(doc, "body")
	if root == nil {
		root = doc
	}

	var b strings.Builder
	collectText(root, &b)

	return strings.Join(strings.Fields(b.String()), " "), nil
}

// StripScripts removes script and style elements but keeps the markup, so
// link-level analyses (privacy policy discovery) still see hrefs.
func StripScripts(htmlContent string) (string, error) {
	doc, err := html.Parse(strings.NewReader(htmlContent))
	if err != nil {
		return "", errors.Wrap(err, "failed to parse HTML")
	}

	removeNoise(doc)

	var buf bytes.Buffer
	if err := html.Render(&buf, doc); err != nil {
		return "", errors.Wrap(err, "failed to render HTML")
	}

	return buf.String(), nil
}

// PrivacyLinks returns the hrefs of anchors whose URL or text mentions
// privacy, deduplicated in document order.
func PrivacyLinks(htmlContent string) ([]string, error) {
	doc, err := html.Parse(strings.NewReader(htmlContent))
	if err != nil {
		return nil, errors.Wrap(err, "failed to parse HTML")
	}

	seen := make(map[string]struct{})
	var links []string

	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && n.Data == "a" {
			if href, ok := attr(n, "href"); ok {
				var text strings.Builder
				collectText(n, &text)

				if strings.Contains(strings.ToLower(href), "privacy") ||
					strings.Contains(strings.ToLower(text.String()), "privacy") {
					if _, dup := seen[href]; !dup {
						seen[href] = struct{}{}
						links = append(links, href)
					}
				}
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)

	return links, nil
}

func isNoise(n *html.Node) bool {
	if n.Type == html.CommentNode {
		return true
	}
	return n.Type == html.ElementNode && (n.Data == "script" || n.Data == "style")
}

func removeNoise(n *html.Node) {
	var next *html.Node
	for c := n.FirstChild; c != nil; c = next {
		next = c.NextSibling
		if isNoise(c) {
			n.RemoveChild(c)
			continue
		}
		removeNoise(c)
	}
}

func collectText(n *html.Node, b *strings.Builder) {
	if isNoise(n) {
		return
	}
	if n.Type == html.TextNode {
		b.WriteString(n.Data)
		b.WriteByte(' ')
		return
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		collectText(c, b)
	}
}

func findElement(n *html.Node, name string) *html.Node {
	if n.Type == html.ElementNode && n.Data == name {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if found := findElement(c, name); found != nil {
			return found
		}
	}
	return nil
}

func attr(n *html.Node, key string) (string, bool) {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val, true
		}
	}
	return "", false
}
