package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/myrjola/survey/internal/autosave"
	"github.com/myrjola/survey/internal/envstruct"
	"github.com/myrjola/survey/internal/errors"
	"github.com/myrjola/survey/internal/logging"
	"github.com/myrjola/survey/internal/overview"
	"github.com/myrjola/survey/internal/repositories"
	"github.com/myrjola/survey/internal/sqlite"
	"github.com/spf13/cobra"
)

type config struct {
	SqliteURL string `env:"SURVEY_SQLITE_URL" envDefault:"./survey.sqlite"`
	LogLevel  string `env:"SURVEY_LOG_LEVEL" envDefault:"warn"`
}

type cli struct {
	lookupEnv func(string) (string, bool)
	// sqliteURL is the --sqlite-url flag.
	sqliteURL string
}

func newRootCmd(lookupEnv func(string) (string, bool)) *cobra.Command {
	c := &cli{lookupEnv: lookupEnv, sqliteURL: ""}
	root := &cobra.Command{
		Use:           "survey-cli",
		Short:         "Design questionnaires, take surveys and read the results",
		Long:          `Command line interface to the questionnaires stored in a survey SQLite database.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&c.sqliteURL, "sqlite-url", "", "SQLite URL, overrides SURVEY_SQLITE_URL")

	root.AddGroup(questionnairesGroup, sessionsGroup)
	root.AddCommand(
		c.listCmd(),
		c.importCmd(),
		c.exportCmd(),
		c.deleteCmd(),
		c.resultsCmd(),
		c.designCmd(),
		c.takeCmd(),
	)
	return root
}

// withService opens the database, runs fn and waits for the background saves fn scheduled before closing it.
// Saves that keep failing are reported in the returned error.
func (c *cli) withService(cmd *cobra.Command, fn func(ctx context.Context, svc *overview.Service) error) error {
	var cfg config
	if err := envstruct.Populate(&cfg, c.lookupEnv); err != nil {
		return errors.Wrap(err, "populate config")
	}
	if c.sqliteURL != "" {
		cfg.SqliteURL = c.sqliteURL
	}
	logger := logging.New(cmd.ErrOrStderr(), cfg.LogLevel)

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	db, err := sqlite.NewDatabase(ctx, cfg.SqliteURL, logger)
	if err != nil {
		return errors.Wrap(err, "open database", slog.String("url", cfg.SqliteURL))
	}
	defer func() {
		_ = db.Close()
	}()

	var saveErr error
	saver := autosave.New(logger, autosave.Config{
		Attempts:   3,                      //nolint:mnd // a few quick retries before giving up
		RetryDelay: 200 * time.Millisecond, //nolint:mnd // 200ms
		OnFailure: func(job autosave.Job, err error) {
			saveErr = errors.Join(saveErr, errors.Wrap(err, job.Name))
		},
	})
	saverDone := make(chan struct{})
	go func() {
		saver.Run(ctx)
		close(saverDone)
	}()

	err = fn(ctx, overview.NewService(repositories.NewGateway(ctx, db, logger), saver, logger))
	cancel()
	<-saverDone
	return errors.Join(err, saveErr)
}

func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		_, _ = fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	if err := newRootCmd(os.LookupEnv).Execute(); err != nil {
		_, _ = fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
