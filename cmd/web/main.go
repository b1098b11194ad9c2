package main

import (
	"context"
	"log/slog"
	"os"
	"time"

	"github.com/alexedwards/scs/sqlite3store"
	"github.com/alexedwards/scs/v2"
	"github.com/joho/godotenv"
	"github.com/myrjola/survey/internal/autosave"
	"github.com/myrjola/survey/internal/design"
	"github.com/myrjola/survey/internal/envstruct"
	"github.com/myrjola/survey/internal/errors"
	"github.com/myrjola/survey/internal/logging"
	"github.com/myrjola/survey/internal/overview"
	"github.com/myrjola/survey/internal/pprofserver"
	"github.com/myrjola/survey/internal/repositories"
	"github.com/myrjola/survey/internal/sqlite"
	"github.com/myrjola/survey/internal/survey"
)

type application struct {
	logger         *slog.Logger
	sessionManager *scs.SessionManager
	overview       *overview.Service
	designs        *registry[*design.Session]
	surveys        *registry[*survey.Session]
	notices        *noticeBoard
}

type config struct {
	// Addr is the address to listen on. It's possible to choose the address dynamically with localhost:0.
	Addr string `env:"SURVEY_ADDR" envDefault:"localhost:4000"`
	// SqliteURL is the URL to the SQLite database. You can use ":memory:" for an ephemeral database.
	SqliteURL string `env:"SURVEY_SQLITE_URL" envDefault:"./survey.sqlite"`
	// PprofPort is the localhost port for pprof. Empty disables it.
	PprofPort string `env:"SURVEY_PPROF_PORT" envDefault:""`
	// SaveAttempts is how many times a background save is tried before it's given up.
	SaveAttempts   int           `env:"SURVEY_SAVE_ATTEMPTS" envDefault:"3"`
	SaveRetryDelay time.Duration `env:"SURVEY_SAVE_RETRY_DELAY" envDefault:"500ms"`
	// SessionLifetime bounds both the browser session cookie and idle design and survey sessions.
	SessionLifetime time.Duration `env:"SURVEY_SESSION_LIFETIME" envDefault:"12h"`
}

func run(ctx context.Context, logger *slog.Logger, lookupEnv func(string) (string, bool)) error {
	var (
		err error
		cfg config
	)
	if err = envstruct.Populate(&cfg, lookupEnv); err != nil {
		return errors.Wrap(err, "populate config")
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	pprofserver.Launch(ctx, cfg.PprofPort, logger)

	var db *sqlite.Database
	if db, err = sqlite.NewDatabase(ctx, cfg.SqliteURL, logger); err != nil {
		return errors.Wrap(err, "open database", slog.String("url", cfg.SqliteURL))
	}
	defer func() {
		if closeErr := db.Close(); closeErr != nil {
			logger.LogAttrs(ctx, slog.LevelError, "error closing database", errors.SlogError(closeErr))
		}
	}()

	gateway := repositories.NewGateway(ctx, db, logger)

	notices := newNoticeBoard()
	go notices.broadcaster.Start()
	defer notices.broadcaster.Stop()

	saver := autosave.New(logger, autosave.Config{
		Attempts:   cfg.SaveAttempts,
		RetryDelay: cfg.SaveRetryDelay,
		OnFailure:  notices.saveFailed,
	})
	saverDone := make(chan struct{})
	go func() {
		saver.Run(ctx)
		close(saverDone)
	}()

	store := sqlite3store.NewWithCleanupInterval(db.ReadWrite.DB, 30*time.Minute) //nolint:mnd // 30 minutes
	defer store.StopCleanup()
	sessionManager := scs.New()
	sessionManager.Store = store
	sessionManager.Lifetime = cfg.SessionLifetime

	app := application{
		logger:         logger,
		sessionManager: sessionManager,
		overview:       overview.NewService(gateway, saver, logger),
		designs:        newRegistry[*design.Session](),
		surveys:        newRegistry[*survey.Session](),
		notices:        notices,
	}
	go app.sweepSessions(ctx, cfg.SessionLifetime)

	err = app.configureAndStartServer(ctx, cfg.Addr)
	// Let the worker drain whatever the last requests enqueued before the database closes.
	cancel()
	<-saverDone
	if err != nil {
		return errors.Wrap(err, "start server")
	}
	return nil
}

func main() {
	ctx := context.Background()
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		_, _ = os.Stderr.WriteString("load .env: " + err.Error() + "\n")
		os.Exit(1)
	}
	var logConfig struct {
		Level string `env:"SURVEY_LOG_LEVEL" envDefault:"debug"`
	}
	_ = envstruct.Populate(&logConfig, os.LookupEnv)
	logger := logging.New(os.Stdout, logConfig.Level)
	if err := run(ctx, logger, os.LookupEnv); err != nil {
		logger.LogAttrs(ctx, slog.LevelError, "failure starting application", errors.SlogError(err))
		os.Exit(1)
	}
}
