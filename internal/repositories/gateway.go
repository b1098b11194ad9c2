package repositories

import (
	"context"
	"log/slog"

	"github.com/mattn/go-sqlite3"
	"github.com/myrjola/survey/internal/broker"
	"github.com/myrjola/survey/internal/errors"
	"github.com/myrjola/survey/internal/models"
	"github.com/myrjola/survey/internal/sqlite"
)

// Gateway stores questionnaires and survey results in SQLite.
//
// Every successful mutation schedules a refresh of the questionnaire listing, which is pushed to the subscribers of
// WatchQuestionnairesWithResults. Refreshes run on a background goroutine that stops when the context given to
// NewGateway is cancelled.
type Gateway struct {
	db       *sqlite.Database
	logger   *slog.Logger
	listings *broker.Broadcaster[[]models.QuestionnaireWithResults]
	dirty    chan struct{}
}

func NewGateway(ctx context.Context, db *sqlite.Database, logger *slog.Logger) *Gateway {
	g := &Gateway{
		db:       db,
		logger:   logger.With("source", "Gateway"),
		listings: broker.NewBroadcaster[[]models.QuestionnaireWithResults](),
		dirty:    make(chan struct{}, 1),
	}
	go g.listings.Start()
	go g.refreshListings(ctx)
	return g
}

// WatchQuestionnairesWithResults streams the questionnaire listing. The current listing arrives first and a fresh one
// follows every mutation; a slow reader skips to the newest listing. The channel is closed when ctx is done.
//
// Listings are shared between subscribers and must not be modified.
func (g *Gateway) WatchQuestionnairesWithResults(ctx context.Context) <-chan []models.QuestionnaireWithResults {
	listings, unsubscribe := g.listings.Subscribe()
	go func() {
		<-ctx.Done()
		unsubscribe()
	}()
	return listings
}

func (g *Gateway) refreshListings(ctx context.Context) {
	defer g.listings.Stop()
	for {
		listing, err := g.ListQuestionnairesWithResults(ctx)
		switch {
		case err == nil:
			g.listings.Publish(listing)
		case ctx.Err() == nil:
			g.logger.LogAttrs(ctx, slog.LevelError, "failed to refresh questionnaire listing", errors.SlogError(err))
		}
		select {
		case <-ctx.Done():
			return
		case <-g.dirty:
		}
	}
}

// changed schedules a listing refresh. Changes made while a refresh is pending are coalesced into it.
func (g *Gateway) changed() {
	select {
	case g.dirty <- struct{}{}:
	default:
	}
}

// storeError marks err as ErrStoreUnavailable unless it already carries a more specific domain error.
func storeError(err error, msg string, attrs ...slog.Attr) error {
	if errors.Is(err, models.ErrNotFound) || errors.Is(err, models.ErrSerializationFailed) {
		return errors.Wrap(err, msg, attrs...)
	}
	return errors.Wrap(errors.Mark(err, models.ErrStoreUnavailable), msg, attrs...)
}

// corruptRow marks a stored row that no longer decodes as ErrStoreUnavailable. The caller did nothing wrong, so the
// failure must not read as a bad request even though the decoder reports ErrSerializationFailed.
func corruptRow(err error, msg string, attrs ...slog.Attr) error {
	return errors.Wrap(errors.Mark(err, models.ErrStoreUnavailable), msg, attrs...)
}

func isForeignKeyViolation(err error) bool {
	var sqliteErr sqlite3.Error
	return errors.As(err, &sqliteErr) && sqliteErr.ExtendedCode == sqlite3.ErrConstraintForeignKey
}
