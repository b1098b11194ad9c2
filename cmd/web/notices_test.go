package main

import (
	"bufio"
	"context"
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/myrjola/survey/internal/autosave"
	"github.com/myrjola/survey/internal/errors"
	"github.com/myrjola/survey/internal/models"
	"github.com/stretchr/testify/require"
)

func Test_application_saveFailureNotice(t *testing.T) {
	t.Parallel()
	ctx, server := startServer(t)
	client := server.Client()
	id := importExample(ctx, t, client)

	streamCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	resp, err := client.Get(streamCtx, "/api/questionnaires/stream")
	require.NoError(t, err)
	defer func() {
		_ = resp.Body.Close()
	}()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	scanner := bufio.NewScanner(resp.Body)
	event, _ := nextEvent(t, scanner)
	require.Equal(t, "questionnaires", event)

	status, err := client.DoJSON(ctx, http.MethodPost, "/api/design", map[string]any{"id": id}, nil)
	require.NoError(t, err)
	require.Equal(t, http.StatusCreated, status)

	// The questionnaire disappears while it is being edited, so saving the commit fails in the background.
	status, err = client.DoJSON(ctx, http.MethodDelete, questionnairePath(id, ""), nil, nil)
	require.NoError(t, err)
	require.Equal(t, http.StatusNoContent, status)
	status, err = client.DoJSON(ctx, http.MethodPost, "/api/design/commit", nil, nil)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, status)

	for {
		name, data := nextEvent(t, scanner)
		if name != "notice" {
			continue
		}
		var n struct {
			Error   string `json:"error"`
			Message string `json:"message"`
			Job     string `json:"job"`
		}
		require.NoError(t, json.Unmarshal([]byte(data), &n))
		require.Equal(t, "update questionnaire", n.Job)
		require.Equal(t, http.StatusText(http.StatusInternalServerError), n.Error)
		require.NotEmpty(t, n.Message)
		return
	}
}

func Test_noticeBoard(t *testing.T) {
	t.Parallel()
	board := newNoticeBoard()
	go board.broadcaster.Start()
	defer board.broadcaster.Stop()

	board.saveFailed(autosave.Job{Name: "before", Attrs: nil, Save: nil}, errors.NewSentinel("boom"))

	notices, after, unsubscribe := board.subscribe()
	defer unsubscribe()

	// The latest notice is replayed on subscribe but predates the subscription.
	replayed := <-notices
	require.Equal(t, "before", replayed.Job)
	require.LessOrEqual(t, replayed.seq, after)

	board.saveFailed(autosave.Job{Name: "insert survey result", Attrs: nil, Save: nil},
		errors.Wrap(models.ErrStoreUnavailable, "save failed"))
	fresh := <-notices
	require.Greater(t, fresh.seq, after)
	require.Equal(t, "insert survey result", fresh.Job)
	require.Equal(t, http.StatusText(http.StatusServiceUnavailable), fresh.Error)
}
