package graph

import (
	"strings"

	"golang.org/x/net/html"

	"github.com/orneryd/wikiladder/pkg/title"
)

const wikiLinkPrefix = "/wiki/"

// extractLinks pulls the outbound article links from the rendered HTML of a
// page. Only main-namespace targets are kept: hrefs of the form /wiki/X
// where X carries no "Namespace:" prefix. Section fragments are dropped and
// titles are decoded and normalized before deduplication.
//
// Parsing the rendered page, rather than asking the API for the link table,
// means a redirect page yields the links of its rendered target.
func extractLinks(page string) *TitleSet {
	links := newTitleSet(256)

	z := html.NewTokenizer(strings.NewReader(page))
	for {
		tt := z.Next()
		if tt == html.ErrorToken {
			// io.EOF or malformed tail; either way we keep what we have.
			return links
		}
		if tt != html.StartTagToken && tt != html.SelfClosingTagToken {
			continue
		}
		name, hasAttr := z.TagName()
		if len(name) != 1 || name[0] != 'a' || !hasAttr {
			continue
		}
		for {
			key, val, more := z.TagAttr()
			if string(key) == "href" {
				if t, ok := linkTarget(string(val)); ok {
					links.add(t)
				}
				break
			}
			if !more {
				break
			}
		}
	}
}

// linkTarget converts an href into a normalized article title, reporting
// whether the href points at a main-namespace article.
func linkTarget(href string) (string, bool) {
	if !strings.HasPrefix(href, wikiLinkPrefix) {
		return "", false
	}
	target := strings.TrimPrefix(href, wikiLinkPrefix)
	if i := strings.IndexByte(target, '#'); i >= 0 {
		target = target[:i]
	}
	// A colon marks a non-article namespace (File:, Category:, Help:, ...).
	if target == "" || strings.ContainsRune(target, ':') {
		return "", false
	}
	norm, err := title.Normalize(title.Decode(target))
	if err != nil {
		return "", false
	}
	return norm, true
}
