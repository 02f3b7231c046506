package cmd

import (
	"context"
	"fmt"
	"strings"

	"github.com/Adithya-Monish-Kumar-K/Bilingual-Blog-Search/internal/bootstrap"
	"github.com/Adithya-Monish-Kumar-K/Bilingual-Blog-Search/internal/content"
	"github.com/Adithya-Monish-Kumar-K/Bilingual-Blog-Search/internal/content/fsstore"
	"github.com/Adithya-Monish-Kumar-K/Bilingual-Blog-Search/internal/content/render"
	"github.com/MakeNowJust/heredoc/v2"
	"github.com/spf13/cobra"
)

var postsCmd = &cobra.Command{
	Use:     "posts",
	Aliases: []string{"post"},
	Short:   "Browse and import posts",
}

var postsListCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "List posts, newest first",
	Long: heredoc.Doc(`
		List posts newest first. --featured takes precedence over --category.

		Examples:
		  blogctl posts list
		  blogctl posts list --category Philosophy --limit 5
		  blogctl posts list --featured --json
	`),
	Args: cobra.NoArgs,
	RunE: runPostsList,
}

var postsShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show one post",
	Args:  cobra.ExactArgs(1),
	RunE:  runPostsShow,
}

var postsCategoriesCmd = &cobra.Command{
	Use:   "categories",
	Short: "List categories in first-seen order",
	Args:  cobra.NoArgs,
	RunE:  runPostsCategories,
}

var postsImportCmd = &cobra.Command{
	Use:   "import <dir>",
	Short: "Copy every valid post in a directory into the configured store",
	Long: heredoc.Doc(`
		Read the JSON posts in <dir> and save each valid one into the store
		named by the config. Invalid files are reported and skipped. With
		--featured the featured index is copied as well when the target store
		supports it.

		Example:
		  blogctl --config configs/postgres.yaml posts import content/blogs --featured content/featured.json
	`),
	Args: cobra.ExactArgs(1),
	RunE: runPostsImport,
}

func init() {
	rootCmd.AddCommand(postsCmd)
	postsCmd.AddCommand(postsListCmd, postsShowCmd, postsCategoriesCmd, postsImportCmd)

	postsListCmd.Flags().String("category", "", "only posts in this category")
	postsListCmd.Flags().Bool("featured", false, "only featured posts")
	postsListCmd.Flags().Int("limit", 0, "maximum posts to show, 0 for all")

	postsShowCmd.Flags().Bool("html", false, "print the sanitized HTML body instead of markdown")

	postsImportCmd.Flags().String("featured", "", "featured index to copy")
}

func runPostsList(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	svc, store, err := openService(ctx)
	if err != nil {
		return err
	}
	defer store.Close()

	category, _ := cmd.Flags().GetString("category")
	featured, _ := cmd.Flags().GetBool("featured")
	limit, _ := cmd.Flags().GetInt("limit")

	var posts []content.Post
	switch {
	case featured:
		posts, err = svc.Featured(ctx)
	case category != "":
		posts, err = svc.ByCategory(ctx, category)
	default:
		posts, err = svc.ListAll(ctx)
	}
	if err != nil {
		return err
	}
	if limit > 0 && len(posts) > limit {
		posts = posts[:limit]
	}

	if jsonOutput {
		return printer.JSON(posts)
	}
	if len(posts) == 0 {
		printer.Warn("no posts")
		return nil
	}
	printer.Posts(posts)
	return nil
}

func runPostsShow(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	svc, store, err := openService(ctx)
	if err != nil {
		return err
	}
	defer store.Close()

	p, err := svc.Get(ctx, args[0])
	if err != nil {
		return fmt.Errorf("post %q: %w", args[0], err)
	}
	if jsonOutput {
		return printer.JSON(p)
	}

	printer.Header("%s", p.Title)
	printer.Info("%s", printer.Faint(fmt.Sprintf("%s · %s · %s · %d min read", p.Author, p.Date, p.Category, p.ReadTime)))
	if p.Excerpt != "" {
		printer.Info("\n%s", p.Excerpt)
	}
	body := p.Content
	if asHTML, _ := cmd.Flags().GetBool("html"); asHTML {
		html, err := render.Markdown(p.Content)
		if err != nil {
			return err
		}
		body = string(html)
	}
	printer.Info("\n%s", strings.TrimSpace(body))
	return nil
}

func runPostsCategories(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	svc, store, err := openService(ctx)
	if err != nil {
		return err
	}
	defer store.Close()

	cats, err := svc.Categories(ctx)
	if err != nil {
		return err
	}
	if jsonOutput {
		return printer.JSON(map[string]any{"categories": cats})
	}
	for _, c := range cats {
		printer.Info("%s", c)
	}
	return nil
}

type featuredSetter interface {
	SetFeatured(ctx context.Context, ids []string) error
}

func runPostsImport(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	featuredFile, _ := cmd.Flags().GetString("featured")
	src := fsstore.New(args[0], featuredFile)

	posts, bad, err := src.Scan(ctx)
	if err != nil {
		return err
	}
	for _, fe := range bad {
		printer.Warn("skipping %s", fe.Error())
	}

	target, err := bootstrap.OpenStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer target.Close()

	for _, p := range posts {
		if err := target.Save(ctx, content.Prepare(p)); err != nil {
			return fmt.Errorf("saving %s: %w", p.ID, err)
		}
	}
	printer.Success("imported %d posts into %s store", len(posts), target.Backend)

	if featuredFile == "" {
		return nil
	}
	ids, err := src.FeaturedIDs(ctx)
	if err != nil {
		return err
	}
	fs, ok := target.Store.(featuredSetter)
	if !ok {
		printer.Warn("%s store keeps its own featured index, not copied", target.Backend)
		return nil
	}
	if err := fs.SetFeatured(ctx, ids); err != nil {
		return err
	}
	printer.Success("featured index set to %d posts", len(ids))
	return nil
}
