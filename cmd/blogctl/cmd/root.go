// Package cmd contains the blogctl commands.
package cmd

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"strconv"

	"github.com/Adithya-Monish-Kumar-K/Bilingual-Blog-Search/cmd/blogctl/internal/output"
	"github.com/Adithya-Monish-Kumar-K/Bilingual-Blog-Search/internal/bootstrap"
	"github.com/Adithya-Monish-Kumar-K/Bilingual-Blog-Search/internal/content"
	"github.com/Adithya-Monish-Kumar-K/Bilingual-Blog-Search/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/Bilingual-Blog-Search/pkg/logger"
	"github.com/MakeNowJust/heredoc/v2"
	"github.com/spf13/cobra"
)

const defaultConfigPath = "configs/development.yaml"

var (
	cfgFile    string
	contentDir string
	jsonOutput bool
	noColor    bool
	verbose    bool

	cfg     *config.Config
	printer *output.Printer
)

var rootCmd = &cobra.Command{
	Use:   "blogctl",
	Short: "Inspect, search and import the blog catalog",
	Long: heredoc.Doc(`
		blogctl works directly against the content store named in the config
		(a directory of JSON posts or PostgreSQL). It does not need blogsvc to
		be running.

		Examples:
		  blogctl posts list --category Philosophy
		  blogctl search dharma
		  blogctl search -i
		  blogctl translate "jain philosophy"
		  blogctl validate
	`),
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return initConfig(cmd)
	},
}

// Execute runs the command tree.
func Execute(ctx context.Context) error {
	return rootCmd.ExecuteContext(ctx)
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", defaultConfigPath, "config file")
	rootCmd.PersistentFlags().StringVar(&contentDir, "content-dir", "", "override content.dir")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "output as JSON")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "disable colored output")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "log at debug level")
}

// initConfig loads the config. A missing default config file is not an
// error; built-in defaults apply.
func initConfig(cmd *cobra.Command) error {
	level := "warn"
	if verbose {
		level = "debug"
	}
	logger.SetupWriter(cmd.ErrOrStderr(), level, "text")
	printer = output.NewPrinter(cmd.OutOrStdout(), cmd.ErrOrStderr(), !noColor)

	var err error
	cfg, err = config.Load(cfgFile)
	if err != nil {
		if cfgFile != defaultConfigPath || !errors.Is(err, fs.ErrNotExist) {
			return err
		}
		cfg = config.Default()
	}
	if contentDir != "" {
		cfg.Content.Backend = "fs"
		cfg.Content.Dir = contentDir
	}
	return nil
}

// openService opens the configured store behind a content.Service. The
// caller closes the returned store.
func openService(ctx context.Context) (*content.Service, *bootstrap.Store, error) {
	store, err := bootstrap.OpenStore(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}
	return content.NewService(store, content.Options{}), store, nil
}

// exitError carries a non-zero exit status without printing a second error.
type exitError struct {
	code int
}

func (e exitError) Error() string {
	return "exit status " + strconv.Itoa(e.code)
}

// ExitCode maps an Execute error to a process exit status.
func ExitCode(err error) int {
	var ee exitError
	if errors.As(err, &ee) {
		return ee.code
	}
	return 1
}

// Silent reports whether err has already been reported to the user.
func Silent(err error) bool {
	var ee exitError
	return errors.As(err, &ee)
}

func stdinIsTerminal() bool {
	fi, err := os.Stdin.Stat()
	return err == nil && fi.Mode()&os.ModeCharDevice != 0
}
