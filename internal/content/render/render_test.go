package render

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMarkdownBoldAndItalic(t *testing.T) {
	out, err := Markdown("**महावीर** taught *ahimsa*")
	require.NoError(t, err)
	assert.Contains(t, string(out), "<strong>महावीर</strong>")
	assert.Contains(t, string(out), "<em>ahimsa</em>")
}

func TestMarkdownStripsScripts(t *testing.T) {
	out, err := Markdown("<p>ok</p><script>alert(1)</script>")
	require.NoError(t, err)
	assert.NotContains(t, string(out), "<script")
	assert.Contains(t, string(out), "ok")
}

func TestSanitize(t *testing.T) {
	got := Sanitize(`<p onclick="x()">धर्म <a href="https://example.com">link</a></p><iframe src="x"></iframe>`)
	assert.NotContains(t, got, "onclick")
	assert.NotContains(t, got, "iframe")
	assert.Contains(t, got, `rel="nofollow`)
	assert.Contains(t, got, "धर्म")
}

func TestPlainText(t *testing.T) {
	assert.Equal(t, "Jain dharma teaches ahimsa", PlainText("<h1>Jain dharma</h1>\n<p>teaches   <b>ahimsa</b></p>"))
}

func TestDeriveExcerpt(t *testing.T) {
	tests := []struct {
		name string
		body string
		max  int
		want string
	}{
		{"short body kept", "<p>Short body</p>", 50, "Short body"},
		{"cut at word", "<p>one two three four</p>", 9, "one two..."},
		{"no limit", "<p>a b c</p>", 0, "a b c"},
		{"devanagari counted in runes", "जैन धर्म अहिंसा", 8, "जैन धर्म..."},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, DeriveExcerpt(tt.body, tt.max))
		})
	}
}

func TestReadTime(t *testing.T) {
	assert.Equal(t, 1, ReadTime(""))
	assert.Equal(t, 1, ReadTime("<p>a few words</p>"))
	assert.Equal(t, 2, ReadTime(strings.Repeat("word ", 201)))
	assert.Equal(t, 3, ReadTime(strings.Repeat("शब्द ", 600)))
}
