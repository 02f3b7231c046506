// Package render turns stored post bodies into safe HTML and derives the
// plain-text fields (excerpt, read time) admin input may leave out.
package render

import (
	"bytes"
	"fmt"
	"html/template"
	"math"
	"strings"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/renderer/html"
)

// WordsPerMinute is the reading speed ReadTime assumes.
const WordsPerMinute = 200

var (
	markdown = goldmark.New(
		goldmark.WithExtensions(extension.Strikethrough, extension.Linkify),
		goldmark.WithRendererOptions(html.WithUnsafe(), html.WithHardWraps()),
	)
	policy = newPolicy()
)

func newPolicy() *bluemonday.Policy {
	p := bluemonday.UGCPolicy()
	p.RequireNoFollowOnLinks(true)
	p.AddTargetBlankToFullyQualifiedLinks(true)
	return p
}

// Sanitize strips scripts, handlers and unknown tags from admin-supplied HTML.
func Sanitize(s string) string {
	return strings.TrimSpace(policy.Sanitize(s))
}

// Markdown renders a post body. Bodies mix editor HTML with **bold** and
// *italic* markers; raw HTML passes through goldmark and the result is
// sanitized.
func Markdown(body string) (template.HTML, error) {
	var buf bytes.Buffer
	if err := markdown.Convert([]byte(body), &buf); err != nil {
		return "", fmt.Errorf("rendering markdown: %w", err)
	}
	return template.HTML(Sanitize(buf.String())), nil
}

// PlainText returns the visible text of an HTML fragment with runs of
// whitespace collapsed.
func PlainText(s string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(s))
	if err != nil {
		return strings.Join(strings.Fields(s), " ")
	}
	return strings.Join(strings.Fields(doc.Text()), " ")
}

// DeriveExcerpt returns the first maxRunes runes of the body's plain text,
// cut at a word boundary and suffixed with "..." when truncated.
func DeriveExcerpt(body string, maxRunes int) string {
	text := PlainText(body)
	if maxRunes <= 0 || utf8.RuneCountInString(text) <= maxRunes {
		return text
	}
	runes := []rune(text)
	cut := string(runes[:maxRunes])
	if runes[maxRunes] != ' ' {
		if i := strings.LastIndexByte(cut, ' '); i > 0 {
			cut = cut[:i]
		}
	}
	return strings.TrimRight(cut, " ,.;:") + "..."
}

// ReadTime estimates minutes to read body at WordsPerMinute, at least 1.
func ReadTime(body string) int {
	words := len(strings.Fields(PlainText(body)))
	minutes := int(math.Ceil(float64(words) / WordsPerMinute))
	if minutes < 1 {
		return 1
	}
	return minutes
}
