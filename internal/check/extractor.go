package check

import (
	"io"
	"strings"

	"golang.org/x/net/html"

	"git.home.luguber.info/inful/pagesmith/internal/foundation/errors"
)

// Link is a reference found in a generated page.
type Link struct {
	URL       string // The URL or path as written
	Tag       string // HTML tag (a, img, script, link, ...)
	Attribute string // Attribute containing the link (href, src)
}

// document is the parsed form of a generated page.
type document struct {
	ids   map[string]bool
	links []Link
}

var linkAttrs = map[string]string{
	"a":      "href",
	"link":   "href",
	"area":   "href",
	"img":    "src",
	"script": "src",
	"iframe": "src",
	"video":  "src",
	"audio":  "src",
	"source": "src",
}

// parseDocument collects element ids, anchor names and link targets.
func parseDocument(r io.Reader) (*document, error) {
	root, err := html.Parse(r)
	if err != nil {
		return nil, errors.WrapError(err, errors.CategoryValidation, "failed to parse HTML").Build()
	}
	doc := &document{ids: make(map[string]bool)}

	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			if id := getAttr(n, "id"); id != "" {
				doc.ids[id] = true
			}
			if n.Data == "a" {
				if name := getAttr(n, "name"); name != "" {
					doc.ids[name] = true
				}
			}
			if attr, ok := linkAttrs[n.Data]; ok {
				if v := strings.TrimSpace(getAttr(n, attr)); v != "" {
					doc.links = append(doc.links, Link{URL: v, Tag: n.Data, Attribute: attr})
				}
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(root)
	return doc, nil
}

// getAttr retrieves an attribute value from an HTML node.
func getAttr(n *html.Node, key string) string {
	for _, attr := range n.Attr {
		if attr.Key == key {
			return attr.Val
		}
	}
	return ""
}

// skipScheme reports links that never resolve to a site file.
func skipScheme(link string) bool {
	for _, p := range []string{"mailto:", "tel:", "javascript:", "data:"} {
		if strings.HasPrefix(link, p) {
			return true
		}
	}
	return false
}
