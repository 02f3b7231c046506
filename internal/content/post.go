// Package content defines blog posts, their validation rules, the Store
// contract implemented by the filesystem and PostgreSQL backends, and the
// cached Service that every other component reads posts through.
package content

import (
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/araddon/dateparse"
)

// Post is a single blog entry. JSON names match the files under the content
// directory.
type Post struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	Excerpt   string `json:"excerpt"`
	Content   string `json:"content"`
	Author    string `json:"author"`
	Date      string `json:"date"`
	Category  string `json:"category"`
	Image     string `json:"image"`
	ReadTime  int    `json:"readTime"`
	SourceURL string `json:"sourceUrl,omitempty"`
}

// PublishedAt parses Date in any of the common layouts. Unparseable dates
// return the zero time and sort last.
func (p Post) PublishedAt() time.Time {
	if p.Date == "" {
		return time.Time{}
	}
	t, err := dateparse.ParseAny(p.Date)
	if err != nil {
		return time.Time{}
	}
	return t
}

var requiredStrings = []string{"id", "title", "excerpt", "content", "author", "date", "category", "image"}

var idPattern = regexp.MustCompile(`^[a-zA-Z0-9][a-zA-Z0-9_-]{0,127}$`)

// ValidID reports whether id is safe to use as a file name and URL segment.
func ValidID(id string) bool {
	return idPattern.MatchString(id)
}

// ValidationError holds per-field validation failure messages.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for field := range e.Fields {
		keys = append(keys, field)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, field := range keys {
		parts = append(parts, fmt.Sprintf("%s: %s", field, e.Fields[field]))
	}
	return strings.Join(parts, "; ")
}

// DecodePost parses a stored post record. Every string field must be present
// and a string, readTime must be a number, and title and content must be
// non-empty. Records failing any rule are rejected as a whole.
func DecodePost(data []byte) (Post, error) {
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return Post{}, fmt.Errorf("parsing post: %w", err)
	}

	errs := make(map[string]string)
	for _, field := range requiredStrings {
		v, ok := raw[field]
		if !ok {
			errs[field] = "missing"
			continue
		}
		if _, isString := v.(string); !isString {
			errs[field] = "must be a string"
		}
	}
	if _, isNumber := raw["readTime"].(float64); !isNumber {
		errs["readTime"] = "must be a number"
	}
	if len(errs) > 0 {
		return Post{}, &ValidationError{Fields: errs}
	}

	var p Post
	if err := json.Unmarshal(data, &p); err != nil {
		return Post{}, fmt.Errorf("decoding post: %w", err)
	}
	if err := p.Validate(); err != nil {
		return Post{}, err
	}
	return p, nil
}

// Validate checks the invariants every loaded post must hold. Any string is
// an acceptable id here; ids used as file names go through ValidID on write.
func (p Post) Validate() error {
	errs := make(map[string]string)
	if p.Title == "" {
		errs["title"] = "title is required"
	}
	if p.Content == "" {
		errs["content"] = "content is required"
	}
	if len(errs) > 0 {
		return &ValidationError{Fields: errs}
	}
	return nil
}

// validateWrite adds the write-side rules to Validate: the id must be a slug
// and readTime must not be negative.
func (p Post) validateWrite() error {
	errs := make(map[string]string)
	var verr *ValidationError
	if err := p.Validate(); errors.As(err, &verr) {
		errs = verr.Fields
	}
	if !ValidID(p.ID) {
		errs["id"] = "must be 1-128 letters, digits, '-' or '_'"
	}
	if p.ReadTime < 0 {
		errs["readTime"] = "must not be negative"
	}
	if len(errs) > 0 {
		return &ValidationError{Fields: errs}
	}
	return nil
}

// SortNewestFirst orders posts by publication date, newest first. Posts with
// equal or unparseable dates keep their relative order.
func SortNewestFirst(posts []Post) {
	type dated struct {
		post Post
		at   time.Time
	}
	ds := make([]dated, len(posts))
	for i, p := range posts {
		ds[i] = dated{post: p, at: p.PublishedAt()}
	}
	sort.SliceStable(ds, func(i, j int) bool {
		return ds[i].at.After(ds[j].at)
	})
	for i := range ds {
		posts[i] = ds[i].post
	}
}

// Categories returns the sorted distinct non-empty categories of posts.
func Categories(posts []Post) []string {
	seen := make(map[string]struct{})
	out := make([]string, 0)
	for _, p := range posts {
		if p.Category == "" {
			continue
		}
		if _, ok := seen[p.Category]; ok {
			continue
		}
		seen[p.Category] = struct{}{}
		out = append(out, p.Category)
	}
	sort.Strings(out)
	return out
}

// FilterCategory returns the posts whose category equals category.
func FilterCategory(posts []Post, category string) []Post {
	out := make([]Post, 0)
	for _, p := range posts {
		if p.Category == category {
			out = append(out, p)
		}
	}
	return out
}
