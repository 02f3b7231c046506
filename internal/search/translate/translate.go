// Package translate turns English-like queries into Hindi. A Resolver sits
// in front of a Translator (the remote service, optionally behind a Redis
// cache) and degrades to a small partial-word dictionary whenever the
// service cannot produce a distinct answer. Resolve never fails.
package translate

import (
	"context"
	"strings"
)

// Translator converts text from the configured source to target language.
type Translator interface {
	Translate(ctx context.Context, text string) (string, error)
}

// Source records how a Resolution was produced.
type Source string

const (
	// SourceNone: the trimmed query was empty.
	SourceNone Source = "none"
	// SourcePassthrough: not English-like, used as typed.
	SourcePassthrough Source = "passthrough"
	// SourceService: the remote service returned a distinct translation.
	SourceService Source = "service"
	// SourceFallback: the partial-word dictionary supplied the term.
	SourceFallback Source = "fallback"
	// SourceIdentity: nothing could translate the query.
	SourceIdentity Source = "identity"
)

// Resolution is the outcome of resolving one query.
type Resolution struct {
	Original string `json:"original"`
	Text     string `json:"text"`
	Source   Source `json:"source"`
}

// Translated reports whether the resolved text differs from the input.
func (r Resolution) Translated() bool {
	return r.Text != r.Original
}

type fallbackEntry struct {
	partial string
	hindi   string
}

// fallbackTerms is scanned in order; the first partial contained in the
// lowercased query wins.
var fallbackTerms = []fallbackEntry{
	{"mahav", "महावीर"},
	{"jain", "जैन"},
	{"dharm", "धर्म"},
	{"bhag", "भगवान"},
	{"swam", "स्वामी"},
}

// Fallback looks text up in the partial-word dictionary. On a hit the whole
// query is replaced by the Hindi term; otherwise text is returned unchanged.
func Fallback(text string) (string, bool) {
	lower := strings.ToLower(text)
	for _, e := range fallbackTerms {
		if strings.Contains(lower, e.partial) {
			return e.hindi, true
		}
	}
	return text, false
}
