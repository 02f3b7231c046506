package cmd

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/Adithya-Monish-Kumar-K/Bilingual-Blog-Search/cmd/blogctl/internal/tui"
	"github.com/Adithya-Monish-Kumar-K/Bilingual-Blog-Search/internal/analytics"
	"github.com/Adithya-Monish-Kumar-K/Bilingual-Blog-Search/internal/bootstrap"
	"github.com/Adithya-Monish-Kumar-K/Bilingual-Blog-Search/internal/content"
	"github.com/Adithya-Monish-Kumar-K/Bilingual-Blog-Search/internal/search/matcher"
	"github.com/Adithya-Monish-Kumar-K/Bilingual-Blog-Search/internal/search/presenter"
	"github.com/Adithya-Monish-Kumar-K/Bilingual-Blog-Search/internal/search/session"
	"github.com/Adithya-Monish-Kumar-K/Bilingual-Blog-Search/pkg/kafka"
	"github.com/MakeNowJust/heredoc/v2"
	"github.com/spf13/cobra"
)

var searchCmd = &cobra.Command{
	Use:   "search [query]",
	Short: "Search posts in English or Hindi",
	Long: heredoc.Doc(`
		Search titles, excerpts, bodies and categories. English queries are
		translated to Hindi first; when the translation service is unreachable
		a small built-in dictionary is used instead.

		Examples:
		  blogctl search dharma
		  blogctl search "jain philosophy" --page 2
		  blogctl search --offline karma
		  blogctl search -i --category Philosophy
	`),
	RunE: runSearch,
}

var translateCmd = &cobra.Command{
	Use:   "translate <text>",
	Short: "Resolve text the way a search query would be resolved",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runTranslate,
}

func init() {
	rootCmd.AddCommand(searchCmd, translateCmd)

	searchCmd.Flags().BoolP("interactive", "i", false, "search as you type")
	searchCmd.Flags().Int("page", 1, "result page")
	searchCmd.Flags().String("category", "", "search within one category")

	for _, c := range []*cobra.Command{searchCmd, translateCmd} {
		c.Flags().Bool("offline", false, "skip the translation service, dictionary only")
	}
}

func translation(cmd *cobra.Command) *bootstrap.Translation {
	if offline, _ := cmd.Flags().GetBool("offline"); offline {
		cfg.Translate.Enabled = false
	}
	return bootstrap.NewTranslation(cfg, nil)
}

// searchTracker publishes CLI searches when Kafka is configured.
func searchTracker() (analytics.Tracker, func()) {
	if !cfg.Kafka.Enabled {
		return analytics.Discard{}, func() {}
	}
	producer := kafka.NewProducer(cfg.Kafka, cfg.Kafka.Topics.SearchEvents)
	c := analytics.NewCollector(producer, 64, nil)
	c.Start(context.Background())
	return c, func() {
		c.Close()
		producer.Close()
	}
}

func runSearch(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	interactive, _ := cmd.Flags().GetBool("interactive")
	category, _ := cmd.Flags().GetString("category")
	page, _ := cmd.Flags().GetInt("page")

	query := strings.Join(args, " ")
	if !interactive && strings.TrimSpace(query) == "" {
		return errors.New("a query is required unless -i is given")
	}

	svc, store, err := openService(ctx)
	if err != nil {
		return err
	}
	defer store.Close()
	posts, err := svc.ListAll(ctx)
	if err != nil {
		return err
	}

	tr := translation(cmd)
	defer tr.Close()
	tracker, closeTracker := searchTracker()
	defer closeTracker()

	if interactive {
		if !stdinIsTerminal() {
			return errors.New("interactive search needs a terminal")
		}
		return tui.Run(ctx, posts, tr.Resolver, tui.Options{
			Query: query,
			Session: session.Options{
				Debounce: cfg.Translate.Debounce,
				PageSize: cfg.Search.PageSize,
				Category: category,
				OnSettled: func(snap session.Snapshot, elapsed time.Duration) {
					if strings.TrimSpace(snap.RawQuery) == "" {
						return
					}
					tracker.TrackSearch(analytics.NewSearchEvent(analytics.ChannelCLI,
						snap.RawQuery, snap.ResolvedQuery, string(snap.Source),
						snap.Result.AppliedTranslation != nil,
						snap.Result.TotalMatches, len(snap.Result.Posts), elapsed))
				},
			},
		})
	}

	start := time.Now()
	scope := matcher.ScopeGlobal
	if category != "" {
		posts = content.FilterCategory(posts, category)
		scope = matcher.ScopeCategory
	}
	res := tr.Resolver.ResolveDetailed(ctx, query)
	results := matcher.Match(posts, query, res.Text, scope)
	out := presenter.Present(query, res.Text, results, page, cfg.Search.PageSize)

	tracker.TrackSearch(analytics.NewSearchEvent(analytics.ChannelCLI, query, res.Text,
		string(res.Source), out.AppliedTranslation != nil, out.TotalMatches, len(out.Posts), time.Since(start)))

	if jsonOutput {
		return printer.JSON(out)
	}
	printer.Presentation(out)
	return nil
}

func runTranslate(cmd *cobra.Command, args []string) error {
	tr := translation(cmd)
	defer tr.Close()

	res := tr.Resolver.ResolveDetailed(cmd.Context(), strings.Join(args, " "))
	if jsonOutput {
		return printer.JSON(res)
	}
	printer.Info("%s %s", res.Text, printer.Faint("("+string(res.Source)+")"))
	return nil
}
