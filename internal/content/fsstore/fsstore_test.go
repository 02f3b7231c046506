package fsstore

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/Adithya-Monish-Kumar-K/Bilingual-Blog-Search/internal/content"
	apperrors "github.com/Adithya-Monish-Kumar-K/Bilingual-Blog-Search/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const validPost = `{"id":"jain-dharma","title":"जैन धर्म","excerpt":"e","content":"c","author":"a","date":"2024-03-01","category":"Jainism","image":"/i.jpg","readTime":5}`

func writeFile(t *testing.T, dir, name, body string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(body), 0o644))
}

func TestScanSeparatesInvalidFiles(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "jain-dharma.json", validPost)
	writeFile(t, dir, "broken.json", "{")
	writeFile(t, dir, "no-title.json", `{"id":"x","excerpt":"e","content":"c","author":"a","date":"d","category":"c","image":"i","readTime":1}`)
	writeFile(t, dir, "notes.txt", "ignored")

	s := New(dir, "")
	posts, invalid, err := s.Scan(context.Background())
	require.NoError(t, err)
	require.Len(t, posts, 1)
	assert.Equal(t, "jain-dharma", posts[0].ID)
	assert.Len(t, invalid, 2)
}

func TestScanKeepsNonSlugIDs(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "mahavir.json", `{"id":"महावीर जयंती","title":"महावीर जयंती","excerpt":"e","content":"c","author":"a","date":"2024-04-21","category":"पर्व","image":"/i.jpg","readTime":4}`)
	writeFile(t, dir, "darshan.json", `{"id":"jain darshan","title":"Jain Darshan","excerpt":"e","content":"c","author":"a","date":"2024-03-01","category":"Philosophy","image":"/i.jpg","readTime":2}`)

	s := New(dir, "")
	posts, invalid, err := s.Scan(context.Background())
	require.NoError(t, err)
	assert.Empty(t, invalid)
	assert.Len(t, posts, 2)

	got, err := s.Get(context.Background(), "महावीर जयंती")
	require.NoError(t, err)
	assert.Equal(t, "पर्व", got.Category)
}

func TestListMissingDir(t *testing.T) {
	s := New(filepath.Join(t.TempDir(), "absent"), "")
	posts, err := s.List(context.Background())
	require.NoError(t, err)
	assert.Empty(t, posts)
}

func TestSaveThenGet(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "blogs")
	s := New(dir, "")
	ctx := context.Background()
	p := content.Post{ID: "mahavir", Title: "Mahavir", Content: "c", Excerpt: "e", Author: "a", Date: "2024-01-01", Category: "Jainism", Image: "i", ReadTime: 2}

	require.NoError(t, s.Save(ctx, p))
	got, err := s.Get(ctx, "mahavir")
	require.NoError(t, err)
	assert.Equal(t, p, got)

	data, err := os.ReadFile(filepath.Join(dir, "mahavir.json"))
	require.NoError(t, err)
	assert.Contains(t, string(data), "\n  \"title\": \"Mahavir\"")

	leftovers, _ := filepath.Glob(filepath.Join(dir, "*.tmp"))
	assert.Empty(t, leftovers)
}

func TestGetUnknownAndUnsafe(t *testing.T) {
	s := New(t.TempDir(), "")
	_, err := s.Get(context.Background(), "nope")
	assert.True(t, errors.Is(err, apperrors.ErrPostNotFound))
	_, err = s.Get(context.Background(), "../secret")
	assert.True(t, errors.Is(err, apperrors.ErrPostNotFound))
}

func TestGetFallsBackToScan(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "renamed-file.json", validPost)
	got, err := New(dir, "").Get(context.Background(), "jain-dharma")
	require.NoError(t, err)
	assert.Equal(t, "जैन धर्म", got.Title)
}

func TestSaveRejectsUnsafeID(t *testing.T) {
	err := New(t.TempDir(), "").Save(context.Background(), content.Post{ID: "../x"})
	assert.True(t, errors.Is(err, apperrors.ErrInvalidInput))
}

func TestFeaturedIDs(t *testing.T) {
	dir := t.TempDir()
	featured := filepath.Join(dir, "featured.json")

	ids, err := New(dir, featured).FeaturedIDs(context.Background())
	require.NoError(t, err)
	assert.Empty(t, ids)

	writeFile(t, dir, "featured.json", `{"featuredIds":["b","a"]}`)
	ids, err = New(dir, featured).FeaturedIDs(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"b", "a"}, ids)

	writeFile(t, dir, "featured.json", `[1,2]`)
	_, err = New(dir, featured).FeaturedIDs(context.Background())
	assert.Error(t, err)
}
