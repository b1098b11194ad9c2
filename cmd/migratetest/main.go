package main

import (
	"context"
	"log/slog"
	"os"
	"time"

	"github.com/myrjola/survey/internal/errors"
	"github.com/myrjola/survey/internal/sqlite"
	"github.com/myrjola/survey/internal/testhelpers"
)

func main() {
	logger := testhelpers.NewLogger(os.Stdout)
	var (
		err       error
		start     = time.Now()
		ctx       context.Context
		sqliteURL string
		ok        bool
		cancel    context.CancelFunc
	)
	ctx = context.Background()
	ctx, cancel = context.WithTimeout(ctx, 5*time.Second) //nolint:mnd // 5 seconds

	if sqliteURL, ok = os.LookupEnv("SURVEY_SQLITE_URL"); !ok {
		logger.LogAttrs(ctx, slog.LevelError, "SURVEY_SQLITE_URL not set")
		os.Exit(1)
	}

	var db *sqlite.Database
	if db, err = sqlite.NewDatabase(ctx, sqliteURL, logger); err != nil {
		logger.LogAttrs(ctx, slog.LevelError, "error creating database",
			slog.String("url", sqliteURL), errors.SlogError(err))
		os.Exit(1)
	}

	// Stored documents must still be readable after the migration.
	var counts struct {
		Questionnaires int `db:"questionnaires"`
		Results        int `db:"results"`
		Invalid        int `db:"invalid"`
	}
	if err = db.ReadOnly.GetContext(ctx, &counts, `
SELECT (SELECT COUNT(*) FROM questionnaires)                              AS questionnaires,
       (SELECT COUNT(*) FROM survey_results)                              AS results,
       (SELECT COUNT(*) FROM questionnaires WHERE NOT json_valid(questions)) +
       (SELECT COUNT(*) FROM survey_results WHERE NOT json_valid(question_results)) AS invalid`); err != nil {
		logger.LogAttrs(ctx, slog.LevelError, "error counting rows", errors.SlogError(err))
		os.Exit(1)
	}
	if counts.Questionnaires == 0 {
		logger.LogAttrs(ctx, slog.LevelError, "no questionnaires found, something is likely wrong")
		os.Exit(1)
	}
	if counts.Invalid != 0 {
		logger.LogAttrs(ctx, slog.LevelError, "found rows with invalid JSON", slog.Int("count", counts.Invalid))
		os.Exit(1)
	}
	logger.LogAttrs(ctx, slog.LevelInfo, "row counts",
		slog.Int("questionnaires", counts.Questionnaires), slog.Int("results", counts.Results))

	if err = db.Close(); err != nil {
		logger.LogAttrs(ctx, slog.LevelError, "error closing database", errors.SlogError(err))
	}
	logger.LogAttrs(ctx, slog.LevelInfo, "Migration test successful 🙌", slog.Duration("duration", time.Since(start)))
	cancel()
	os.Exit(0)
}
