package repositories_test

import (
	"context"
	"io"
	"path/filepath"
	"testing"

	"github.com/myrjola/survey/internal/repositories"
	"github.com/myrjola/survey/internal/sqlite"
	"github.com/myrjola/survey/internal/testhelpers"
)

// newTestGateway creates a gateway backed by a fresh database file.
//
// A file is used instead of ":memory:" because shared-cache in-memory databases lock whole tables between the
// read-write and read-only connections.
func newTestGateway(t *testing.T) (context.Context, *repositories.Gateway) {
	t.Helper()
	ctx, g, _ := newTestGatewayWithDB(t)
	return ctx, g
}

// newTestGatewayWithDB is newTestGateway that also exposes the database for writing rows the gateway never would.
func newTestGatewayWithDB(t *testing.T) (context.Context, *repositories.Gateway, *sqlite.Database) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	logger := testhelpers.NewLogger(io.Discard)
	db, err := sqlite.NewDatabase(ctx, filepath.Join(t.TempDir(), "test.sqlite"), logger)
	if err != nil {
		cancel()
		t.Fatal(err)
	}
	t.Cleanup(func() {
		cancel()
		if err = db.Close(); err != nil {
			t.Error(err)
		}
	})
	return ctx, repositories.NewGateway(ctx, db, logger), db
}
