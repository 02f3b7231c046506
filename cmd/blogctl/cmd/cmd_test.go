package cmd

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/Adithya-Monish-Kumar-K/Bilingual-Blog-Search/internal/content"
	"github.com/Adithya-Monish-Kumar-K/Bilingual-Blog-Search/internal/search/presenter"
	"github.com/Adithya-Monish-Kumar-K/Bilingual-Blog-Search/internal/search/translate"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writePost(t *testing.T, dir string, p content.Post) {
	t.Helper()
	data, err := json.Marshal(p)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(dir, p.ID+".json"), data, 0o644))
}

func post(id, title, category, date string) content.Post {
	return content.Post{
		ID:       id,
		Title:    title,
		Excerpt:  title + " excerpt",
		Content:  title + " body",
		Author:   "Team",
		Date:     date,
		Category: category,
		Image:    "/img/" + id + ".jpg",
		ReadTime: 3,
	}
}

func seedContent(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	writePost(t, dir, post("jain-darshan", "जैन दर्शन", "Philosophy", "2024-03-01"))
	writePost(t, dir, post("dharma-jeevan", "धर्म और जीवन", "Philosophy", "2024-02-01"))
	writePost(t, dir, post("yatra", "Pilgrimage notes", "Travel", "2024-01-01"))
	return dir
}

// run resets the package-level flag state and executes args.
func run(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	cfgFile, contentDir, jsonOutput, noColor, verbose = defaultConfigPath, "", false, false, false
	postsListCmd.Flags().Set("category", "")
	postsListCmd.Flags().Set("featured", "false")
	postsListCmd.Flags().Set("limit", "0")
	searchCmd.Flags().Set("interactive", "false")
	searchCmd.Flags().Set("page", "1")
	searchCmd.Flags().Set("category", "")
	searchCmd.Flags().Set("offline", "false")
	translateCmd.Flags().Set("offline", "false")

	var out, errOut bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&errOut)
	rootCmd.SetArgs(append([]string{"--no-color"}, args...))
	err := rootCmd.Execute()
	return out.String(), errOut.String(), err
}

func TestPostsListNewestFirst(t *testing.T) {
	dir := seedContent(t)

	out, _, err := run(t, "--content-dir", dir, "--json", "posts", "list")
	require.NoError(t, err)

	var posts []content.Post
	require.NoError(t, json.Unmarshal([]byte(out), &posts))
	require.Len(t, posts, 3)
	assert.Equal(t, []string{"jain-darshan", "dharma-jeevan", "yatra"},
		[]string{posts[0].ID, posts[1].ID, posts[2].ID})
}

func TestPostsListCategoryAndLimit(t *testing.T) {
	dir := seedContent(t)

	out, _, err := run(t, "--content-dir", dir, "posts", "list", "--category", "Philosophy", "--limit", "1")
	require.NoError(t, err)
	assert.Contains(t, out, "jain-darshan")
	assert.NotContains(t, out, "dharma-jeevan")
	assert.NotContains(t, out, "yatra")
}

func TestPostsShowUnknown(t *testing.T) {
	dir := seedContent(t)

	_, _, err := run(t, "--content-dir", dir, "posts", "show", "missing")
	require.Error(t, err)
	assert.Contains(t, err.Error(), `post "missing"`)
}

func TestPostsCategories(t *testing.T) {
	dir := seedContent(t)

	out, _, err := run(t, "--content-dir", dir, "--json", "posts", "categories")
	require.NoError(t, err)
	assert.JSONEq(t, `{"categories":["Philosophy","Travel"]}`, out)
}

func TestSearchOfflineUsesDictionary(t *testing.T) {
	dir := seedContent(t)

	out, _, err := run(t, "--content-dir", dir, "--json", "search", "--offline", "jain", "philosophy")
	require.NoError(t, err)

	var pr presenter.Presentation
	require.NoError(t, json.Unmarshal([]byte(out), &pr))
	assert.Equal(t, "जैन", pr.ResolvedQuery)
	require.NotNil(t, pr.AppliedTranslation)
	assert.Equal(t, "jain philosophy", pr.AppliedTranslation.From)
	require.Len(t, pr.Posts, 1)
	assert.Equal(t, "jain-darshan", pr.Posts[0].ID)
}

func TestSearchHumanOutput(t *testing.T) {
	dir := seedContent(t)

	out, _, err := run(t, "--content-dir", dir, "search", "धर्म")
	require.NoError(t, err)
	assert.Contains(t, out, "dharma-jeevan")
	assert.Contains(t, out, "page 1 of 1, 1 matches")
	assert.NotContains(t, out, "Searching for", "Hindi queries are not rewritten")
}

func TestSearchRequiresQuery(t *testing.T) {
	_, _, err := run(t, "--content-dir", t.TempDir(), "search")
	require.Error(t, err)
}

func TestTranslateOffline(t *testing.T) {
	out, _, err := run(t, "--json", "translate", "--offline", "Mahavir", "Swami")
	require.NoError(t, err)

	var res translate.Resolution
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	assert.Equal(t, "महावीर", res.Text)
	assert.Equal(t, translate.SourceFallback, res.Source)
}

func TestValidate(t *testing.T) {
	t.Run("clean directory", func(t *testing.T) {
		dir := seedContent(t)
		out, _, err := run(t, "validate", dir)
		require.NoError(t, err)
		assert.Contains(t, out, "3 posts valid")
	})

	t.Run("broken file fails with status 1", func(t *testing.T) {
		dir := seedContent(t)
		require.NoError(t, os.WriteFile(filepath.Join(dir, "broken.json"), []byte(`{"id":`), 0o644))

		_, errOut, err := run(t, "validate", dir)
		require.Error(t, err)
		assert.True(t, Silent(err))
		assert.Equal(t, 1, ExitCode(err))
		assert.Contains(t, errOut, "broken.json")
	})
}

func TestImportIntoDirectory(t *testing.T) {
	src := seedContent(t)
	dst := t.TempDir()

	out, _, err := run(t, "--content-dir", dst, "posts", "import", src)
	require.NoError(t, err)
	assert.Contains(t, out, "imported 3 posts into fs store")

	entries, err := os.ReadDir(dst)
	require.NoError(t, err)
	assert.Len(t, entries, 3)
}
