package postservice

import (
	"regexp"
	"strings"
)

// summaryMaxLen is the maximum rune count of a post summary before the ellipsis.
const summaryMaxLen = 200

var (
	markdownImageRX = regexp.MustCompile(`!\[[^\]]*\]\([^)]*\)`)
	htmlImageRX     = regexp.MustCompile(`(?i)<img[^>]*>`)
	headingMarkRX   = regexp.MustCompile(`#+\s*`)
)

// Summarize derives a display-safe excerpt from raw Markdown content. Image
// syntax, <img> tags and heading marks are stripped before truncation, so a
// listing page never shows broken image links or half a heading.
func Summarize(content string) string {
	if content == "" {
		return ""
	}

	s := markdownImageRX.ReplaceAllString(content, "")
	s = htmlImageRX.ReplaceAllString(s, "")
	s = headingMarkRX.ReplaceAllString(s, "")
	s = strings.TrimSpace(s)

	runes := []rune(s)
	if len(runes) > summaryMaxLen {
		return string(runes[:summaryMaxLen]) + "..."
	}

	return s
}
