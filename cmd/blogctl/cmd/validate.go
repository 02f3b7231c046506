package cmd

import (
	"github.com/Adithya-Monish-Kumar-K/Bilingual-Blog-Search/internal/content/fsstore"
	"github.com/MakeNowJust/heredoc/v2"
	"github.com/spf13/cobra"
)

var validateCmd = &cobra.Command{
	Use:   "validate [dir]",
	Short: "Check every post file and the featured index",
	Long: heredoc.Doc(`
		Parse and validate every JSON post in the content directory (or [dir])
		and check that each featured id names a valid post. Exits with status 1
		when anything is wrong.
	`),
	Args: cobra.MaximumNArgs(1),
	RunE: runValidate,
}

func init() {
	rootCmd.AddCommand(validateCmd)
}

type validationReport struct {
	Valid           int      `json:"valid"`
	Invalid         []string `json:"invalid"`
	MissingFeatured []string `json:"missing_featured"`
}

func runValidate(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	dir := cfg.Content.Dir
	if len(args) == 1 {
		dir = args[0]
	}
	store := fsstore.New(dir, cfg.Content.FeaturedFile)

	posts, bad, err := store.Scan(ctx)
	if err != nil {
		return err
	}
	report := validationReport{Valid: len(posts), Invalid: []string{}, MissingFeatured: []string{}}
	for _, fe := range bad {
		report.Invalid = append(report.Invalid, fe.Error())
	}

	ids, err := store.FeaturedIDs(ctx)
	if err != nil {
		report.Invalid = append(report.Invalid, err.Error())
	}
	known := make(map[string]bool, len(posts))
	for _, p := range posts {
		known[p.ID] = true
	}
	for _, id := range ids {
		if !known[id] {
			report.MissingFeatured = append(report.MissingFeatured, id)
		}
	}

	failed := len(report.Invalid) > 0 || len(report.MissingFeatured) > 0
	if jsonOutput {
		if err := printer.JSON(report); err != nil {
			return err
		}
	} else {
		for _, msg := range report.Invalid {
			printer.Error("%s", msg)
		}
		for _, id := range report.MissingFeatured {
			printer.Error("featured post %q does not exist", id)
		}
		if !failed {
			printer.Success("%d posts valid in %s", report.Valid, dir)
		}
	}
	if failed {
		return exitError{code: 1}
	}
	return nil
}
