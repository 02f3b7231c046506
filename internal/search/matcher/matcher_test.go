package matcher

import (
	"reflect"
	"testing"

	"github.com/Adithya-Monish-Kumar-K/Bilingual-Blog-Search/internal/content"
)

func fixturePosts() []content.Post {
	return []content.Post{
		{ID: "1", Title: "Mahavir Swami", Excerpt: "Life of the 24th tirthankara", Content: "Born in Kundagrama", Category: "Biography"},
		{ID: "2", Title: "जैन धर्म का परिचय", Excerpt: "An introduction", Content: "अहिंसा परमो धर्मः", Category: "Jainism"},
		{ID: "3", Title: "Jain Philosophy", Excerpt: "Anekantavada explained", Content: "Many-sidedness", Category: "Philosophy"},
		{ID: "4", Title: "Meditation", Excerpt: "Samayika practice", Content: "Daily practice", Category: "जैन साधना"},
		{ID: "5", Title: "Festivals", Excerpt: "Paryushan", Content: "Forgiveness and fasting", Category: "Culture"},
	}
}

func postIDs(posts []content.Post) []string {
	out := make([]string, len(posts))
	for i, p := range posts {
		out[i] = p.ID
	}
	return out
}

func TestMatchEmptyQueries(t *testing.T) {
	posts := fixturePosts()
	if got := Match(posts, "", "", ScopeGlobal); len(got) != 0 {
		t.Errorf("empty queries matched %v", postIDs(got))
	}
	if got := Match(posts, "jain", "   ", ScopeGlobal); len(got) != 0 {
		t.Errorf("blank resolved query matched %v", postIDs(got))
	}
}

func TestMatchCaseInsensitive(t *testing.T) {
	posts := fixturePosts()
	for _, q := range []string{"mahavir", "MAHAVIR", "MaHaViR"} {
		got := Match(posts, q, q, ScopeGlobal)
		if !reflect.DeepEqual(postIDs(got), []string{"1"}) {
			t.Errorf("query %q matched %v", q, postIDs(got))
		}
	}
	posts[0].Content = "महावीर स्वामी का जीवन"
	got := Match(posts, "mahavir", "महावीर", ScopeGlobal)
	if !reflect.DeepEqual(postIDs(got), []string{"1"}) {
		t.Errorf("translated query matched %v", postIDs(got))
	}
}

func TestMatchRawOrResolved(t *testing.T) {
	got := Match(fixturePosts(), "jain philosophy", "जैन", ScopeGlobal)
	want := []string{"2", "3", "4"}
	if !reflect.DeepEqual(postIDs(got), want) {
		t.Errorf("matched %v, want %v", postIDs(got), want)
	}
}

func TestMatchScopeCategoryOmitsCategory(t *testing.T) {
	posts := fixturePosts()
	if got := Match(posts, "culture", "culture", ScopeGlobal); !reflect.DeepEqual(postIDs(got), []string{"5"}) {
		t.Errorf("global matched %v", postIDs(got))
	}
	if got := Match(posts, "culture", "culture", ScopeCategory); len(got) != 0 {
		t.Errorf("category scope matched %v", postIDs(got))
	}
}

func TestMatchPreservesOrderAndIsDeterministic(t *testing.T) {
	posts := fixturePosts()
	first := Match(posts, "practice", "practice", ScopeGlobal)
	second := Match(posts, "practice", "practice", ScopeGlobal)
	if !reflect.DeepEqual(first, second) {
		t.Error("repeated Match differs")
	}
	reversed := make([]content.Post, len(posts))
	for i, p := range posts {
		reversed[len(posts)-1-i] = p
	}
	got := Match(reversed, "a", "a", ScopeGlobal)
	for i := 1; i < len(got); i++ {
		if got[i-1].ID < got[i].ID {
			t.Fatalf("order not preserved: %v", postIDs(got))
		}
	}
}

func TestMatchNFC(t *testing.T) {
	// U+0958 and KA followed by NUKTA are canonically equivalent.
	posts := []content.Post{{ID: "1", Title: "\u0915\u093c"}}
	if got := Match(posts, "\u0958", "\u0958", ScopeGlobal); len(got) != 1 {
		t.Errorf("precomposed query did not match decomposed title")
	}
}

func TestNeedles(t *testing.T) {
	if n := Needles(" Jain ", "jain"); len(n) != 1 {
		t.Errorf("duplicate needles kept: %v", n)
	}
	if n := Needles("jain", "जैन"); len(n) != 2 || n[0] != "जैन" {
		t.Errorf("needles = %v", n)
	}
}
