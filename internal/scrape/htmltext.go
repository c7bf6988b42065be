package scrape

import (
	"html"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

var tagPattern = regexp.MustCompile(`<[^>]+>`)

// CleanHTML reduces an HTML fragment to plain text: script/style blocks
// dropped, block boundaries turned into newlines, blank lines collapsed.
// Falls back to bare tag-stripping when the fragment will not parse.
func CleanHTML(fragment string) string {
	if fragment == "" {
		return ""
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(fragment))
	if err != nil {
		return strings.TrimSpace(tagPattern.ReplaceAllString(fragment, " "))
	}
	doc.Find("script, style, noscript").Remove()

	// Force line breaks at block-level boundaries before extracting text.
	doc.Find("p, div, li, ul, ol, br, h1, h2, h3, h4, h5, h6, tr").Each(func(_ int, s *goquery.Selection) {
		s.AppendHtml("\n")
	})

	return collapseBlankLines(doc.Text())
}

// MaybeHTML reports whether raw looks like markup rather than plain text.
func MaybeHTML(raw string) bool {
	return strings.Contains(raw, "<") || strings.Contains(raw, "&lt;")
}

// CleanDescription unescapes entities and strips markup when the input
// looks like HTML; plain text passes through untouched.
func CleanDescription(raw string) string {
	if raw == "" {
		return ""
	}
	if MaybeHTML(raw) {
		return CleanHTML(html.UnescapeString(raw))
	}
	return raw
}

func collapseBlankLines(text string) string {
	lines := strings.Split(text, "\n")
	out := make([]string, 0, len(lines))
	for _, line := range lines {
		if trimmed := strings.TrimSpace(line); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return strings.Join(out, "\n")
}
