// Package htmlutil provides HTML processing utilities for profile page scraping.
package htmlutil

import (
	"io"
	"strings"
	"unicode/utf8"

	xhtml "golang.org/x/net/html"
)

// BioLength returns the length in characters of the bio portion of a profile
// meta description: the text before the first "-", trimmed.
//
// Descriptions look like `Bio text - 1,234 Followers, ...`. A description
// without a "-" is used whole.
func BioLength(description string) int {
	bio, _, _ := strings.Cut(description, "-")
	return utf8.RuneCountInString(strings.TrimSpace(bio))
}

// MetaContent streams an HTML document and returns the content attribute of
// the first <meta name=...> tag, wherever it appears in the document.
func MetaContent(r io.Reader, name string) (string, bool) {
	z := xhtml.NewTokenizer(r)
	for {
		switch z.Next() {
		case xhtml.ErrorToken:
			return "", false
		case xhtml.StartTagToken, xhtml.SelfClosingTagToken:
			tn, hasAttr := z.TagName()
			if string(tn) != "meta" || !hasAttr {
				continue
			}
			var metaName, content string
			var hasContent bool
			for {
				k, v, more := z.TagAttr()
				switch string(k) {
				case "name":
					metaName = string(v)
				case "content":
					content, hasContent = string(v), true
				}
				if !more {
					break
				}
			}
			if strings.EqualFold(metaName, name) && hasContent {
				return strings.TrimSpace(content), true
			}
		}
	}
}

// IsUnavailable detects Instagram's "page isn't available" interstitial,
// served for deleted and never-registered accounts alike.
func IsUnavailable(text string) bool {
	lower := strings.ToLower(text)
	for _, p := range []string{
		"sorry, this page isn't available",
		"sorry, this page isn&#39;t available",
		"the link you followed may be broken",
		"page not found",
	} {
		if strings.Contains(lower, p) {
			return true
		}
	}
	return false
}
