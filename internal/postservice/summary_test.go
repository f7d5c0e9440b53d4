package postservice

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSummarize(t *testing.T) {
	testCases := []struct {
		name     string
		content  string
		expected string
	}{
		{
			name:     "empty content",
			content:  "",
			expected: "",
		},
		{
			name:     "short content unchanged",
			content:  "A plain short post body.",
			expected: "A plain short post body.",
		},
		{
			name:     "markdown image stripped",
			content:  "before ![diagram](https://example.com/d.png) after",
			expected: "before  after",
		},
		{
			name:     "html image stripped",
			content:  `before <img src="https://example.com/d.png" alt="d"> after`,
			expected: "before  after",
		},
		{
			name:     "heading marks stripped",
			content:  "## Heading\nbody text",
			expected: "Heading\nbody text",
		},
		{
			name:     "leading whitespace trimmed",
			content:  "  padded  ",
			expected: "padded",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, Summarize(tc.content))
		})
	}
}

func TestSummarize_Truncation(t *testing.T) {
	long := strings.Repeat("a", 300)

	got := Summarize(long)
	assert.Len(t, got, 203)
	assert.True(t, strings.HasSuffix(got, "..."))

	exact := strings.Repeat("a", 200)
	assert.Equal(t, exact, Summarize(exact), "content at the limit is not truncated")
}

func TestSummarize_TruncationCountsRunes(t *testing.T) {
	long := strings.Repeat("字", 250)

	got := Summarize(long)
	runes := []rune(got)
	assert.Len(t, runes, 203)
	assert.True(t, strings.HasSuffix(got, "..."))
}

func TestSummarize_FilterBeforeTruncation(t *testing.T) {
	// images inflate the raw length past the limit but the filtered text is
	// short, so no ellipsis is appended
	content := "short text " + strings.Repeat("![pic](https://example.com/a-very-long-image-url.png) ", 10)

	got := Summarize(content)
	assert.False(t, strings.HasSuffix(got, "..."))
	assert.NotContains(t, got, "![")
}

func TestSummarize_NoMarkersSurvive(t *testing.T) {
	content := strings.Repeat("intro ![pic](url) mid # Heading body text and more filler words here. ", 10)

	got := Summarize(content)
	assert.NotContains(t, got, "![")
	assert.NotContains(t, got, "#")
	assert.LessOrEqual(t, len([]rune(got)), 203)
	assert.True(t, strings.HasSuffix(got, "..."))
}
