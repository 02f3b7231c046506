// Package presenter paginates match results and reports whether the query
// was translated before matching.
package presenter

import (
	"strings"

	"github.com/Adithya-Monish-Kumar-K/Bilingual-Blog-Search/internal/content"
)

// DefaultPageSize is used when a non-positive page size is given.
const DefaultPageSize = 6

// Presenter pages over a fixed result set. Pages are 1-indexed.
type Presenter struct {
	results  []content.Post
	pageSize int
}

func New(results []content.Post, pageSize int) *Presenter {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	return &Presenter{results: results, pageSize: pageSize}
}

// Total is the number of results.
func (p *Presenter) Total() int {
	return len(p.results)
}

// TotalPages is ceil(Total / pageSize).
func (p *Presenter) TotalPages() int {
	return (len(p.results) + p.pageSize - 1) / p.pageSize
}

// Clamp maps k into [1, TotalPages]. With no pages it returns 1.
func (p *Presenter) Clamp(k int) int {
	total := p.TotalPages()
	if k > total {
		k = total
	}
	if k < 1 {
		k = 1
	}
	return k
}

// Page returns the items of page k after clamping.
func (p *Presenter) Page(k int) []content.Post {
	if len(p.results) == 0 {
		return []content.Post{}
	}
	k = p.Clamp(k)
	start := (k - 1) * p.pageSize
	end := min(start+p.pageSize, len(p.results))
	return p.results[start:end]
}

// Translation is the query rewrite shown to the user.
type Translation struct {
	From string `json:"from"`
	To   string `json:"to"`
}

// AppliedTranslation is non-nil when the resolved query differs from the
// trimmed raw query.
func AppliedTranslation(rawQuery, resolvedQuery string) *Translation {
	raw := strings.TrimSpace(rawQuery)
	if resolvedQuery == "" || raw == resolvedQuery {
		return nil
	}
	return &Translation{From: raw, To: resolvedQuery}
}

// Presentation is one rendered page of results.
type Presentation struct {
	Query              string         `json:"query"`
	ResolvedQuery      string         `json:"resolved_query"`
	AppliedTranslation *Translation   `json:"applied_translation"`
	TotalMatches       int            `json:"total_matches"`
	TotalPages         int            `json:"total_pages"`
	Page               int            `json:"page"`
	PageSize           int            `json:"page_size"`
	Posts              []content.Post `json:"posts"`
}

// Present builds the Presentation for page of results.
func Present(rawQuery, resolvedQuery string, results []content.Post, page, pageSize int) Presentation {
	p := New(results, pageSize)
	k := p.Clamp(page)
	return Presentation{
		Query:              rawQuery,
		ResolvedQuery:      resolvedQuery,
		AppliedTranslation: AppliedTranslation(rawQuery, resolvedQuery),
		TotalMatches:       p.Total(),
		TotalPages:         p.TotalPages(),
		Page:               k,
		PageSize:           p.pageSize,
		Posts:              p.Page(k),
	}
}
