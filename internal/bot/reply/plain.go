package reply

import (
	"bytes"
	"html"
	"regexp"
	"strings"

	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
)

var (
	blockTags  = regexp.MustCompile(`<br\s*/?>|</?p>|</?div>|</?pre>|</?h[1-6]>|</?[uo]l>|</?blockquote>`)
	itemOpen   = regexp.MustCompile(`<li>`)
	itemClose  = regexp.MustCompile(`</li>`)
	blankLines = regexp.MustCompile(`\n\s*\n+`)

	markdown = goldmark.New()
	strict   = bluemonday.StrictPolicy()
)

// Plain renders model output, which is usually Markdown, as plain text for a
// Telegram message. List items keep a "- " bullet.
func Plain(text string) string {
	if strings.TrimSpace(text) == "" {
		return ""
	}

	var buf bytes.Buffer
	if err := markdown.Convert([]byte(text), &buf); err != nil {
		return text
	}

	out := blockTags.ReplaceAllString(buf.String(), "\n")
	out = itemOpen.ReplaceAllString(out, "- ")
	out = itemClose.ReplaceAllString(out, "")
	out = strict.Sanitize(out)
	out = blankLines.ReplaceAllString(out, "\n\n")
	return strings.TrimSpace(html.UnescapeString(out))
}
