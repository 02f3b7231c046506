// Package matcher filters posts by case-insensitive substring matching of
// both the query as typed and its resolved (translated) form.
package matcher

import (
	"strings"

	"github.com/Adithya-Monish-Kumar-K/Bilingual-Blog-Search/internal/content"
	"golang.org/x/text/unicode/norm"
)

// Scope selects which post fields are searched.
type Scope int

const (
	// ScopeGlobal searches title, excerpt, content and category.
	ScopeGlobal Scope = iota
	// ScopeCategory is used inside a category listing and skips category.
	ScopeCategory
)

func (s Scope) String() string {
	if s == ScopeCategory {
		return "category"
	}
	return "global"
}

// Match returns the posts where any searched field contains the trimmed
// resolvedQuery or the trimmed rawQuery, compared lowercased and in NFC.
// An empty resolvedQuery matches nothing. Input order is preserved.
func Match(posts []content.Post, rawQuery, resolvedQuery string, scope Scope) []content.Post {
	needles := Needles(rawQuery, resolvedQuery)
	if len(needles) == 0 {
		return []content.Post{}
	}
	out := make([]content.Post, 0)
	for _, p := range posts {
		if matches(p, needles, scope) {
			out = append(out, p)
		}
	}
	return out
}

// Needles returns the distinct non-empty normalized needles for a query
// pair, resolved first. It is empty when the resolved query is blank.
func Needles(rawQuery, resolvedQuery string) []string {
	resolved := normalize(strings.TrimSpace(resolvedQuery))
	if resolved == "" {
		return nil
	}
	needles := []string{resolved}
	if raw := normalize(strings.TrimSpace(rawQuery)); raw != "" && raw != resolved {
		needles = append(needles, raw)
	}
	return needles
}

func matches(p content.Post, needles []string, scope Scope) bool {
	fields := [4]string{p.Title, p.Excerpt, p.Content, p.Category}
	n := len(fields)
	if scope == ScopeCategory {
		n--
	}
	for _, f := range fields[:n] {
		if f == "" {
			continue
		}
		hay := normalize(f)
		for _, needle := range needles {
			if strings.Contains(hay, needle) {
				return true
			}
		}
	}
	return false
}

func normalize(s string) string {
	return strings.ToLower(norm.NFC.String(s))
}
