package main

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/myrjola/survey/internal/errors"
	"github.com/myrjola/survey/internal/models"
	"github.com/myrjola/survey/internal/overview"
)

func (app *application) listQuestionnaires(w http.ResponseWriter, r *http.Request) {
	listing, err := app.overview.List(r.Context())
	if err != nil {
		app.errorResponse(w, r, err)
		return
	}
	app.writeJSON(w, r, http.StatusOK, listing)
}

// streamQuestionnaires pushes the questionnaire listing as Server Sent Events, first the current listing and then a
// fresh one after every change, until the client goes away. Background saves that fail are reported as notice
// events.
func (app *application) streamQuestionnaires(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	rc := http.NewResponseController(w)
	// The stream outlives the server's write timeout.
	if err := rc.SetWriteDeadline(time.Time{}); err != nil {
		app.serverError(w, r, errors.Wrap(err, "clear write deadline"))
		return
	}
	notices, after, unsubscribe := app.notices.subscribe()
	defer unsubscribe()
	listings := app.overview.Watch(ctx)

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	if err := rc.Flush(); err != nil {
		app.logger.LogAttrs(ctx, slog.LevelDebug, "flush stream", errors.SlogError(err))
		return
	}

	for {
		var (
			event   string
			payload any
		)
		select {
		case listing, ok := <-listings:
			if !ok {
				return
			}
			event, payload = "questionnaires", listing
		case n, ok := <-notices:
			if !ok {
				notices = nil
				continue
			}
			if n.seq <= after {
				continue
			}
			event, payload = "notice", n
		}
		if err := writeEvent(w, rc, event, payload); err != nil {
			app.logger.LogAttrs(ctx, slog.LevelDebug, "write stream", errors.SlogError(err))
			return
		}
	}
}

func writeEvent(w http.ResponseWriter, rc *http.ResponseController, event string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return errors.Wrap(err, "encode event", slog.String("event", event))
	}
	if _, err = fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event, data); err != nil {
		return errors.Wrap(err, "write event")
	}
	if err = rc.Flush(); err != nil {
		return errors.Wrap(err, "flush event")
	}
	return nil
}

func (app *application) getQuestionnaire(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		app.errorResponse(w, r, err)
		return
	}
	var q models.Questionnaire
	if q, err = app.overview.Get(r.Context(), id); err != nil {
		app.errorResponse(w, r, err)
		return
	}
	app.writeJSON(w, r, http.StatusOK, q)
}

func (app *application) exportQuestionnaire(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		app.errorResponse(w, r, err)
		return
	}
	var data []byte
	if data, err = app.overview.Export(r.Context(), id); err != nil {
		app.errorResponse(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="questionnaire-%d.json"`, id))
	_, _ = w.Write(data)
}

func (app *application) importQuestionnaire(w http.ResponseWriter, r *http.Request) {
	data, err := readBody(w, r)
	if err != nil {
		app.errorResponse(w, r, err)
		return
	}
	var id int64
	if id, err = app.overview.Import(r.Context(), data); err != nil {
		app.errorResponse(w, r, err)
		return
	}
	app.writeJSON(w, r, http.StatusCreated, struct {
		ID int64 `json:"id"`
	}{ID: id})
}

func (app *application) deleteQuestionnaire(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		app.errorResponse(w, r, err)
		return
	}
	if err = app.overview.Delete(r.Context(), id); err != nil {
		app.errorResponse(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type resultsResponse struct {
	Questionnaire models.Questionnaire  `json:"questionnaire"`
	Submissions   []overview.Submission `json:"submissions"`
}

func (app *application) questionnaireResults(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		app.errorResponse(w, r, err)
		return
	}
	q, submissions, err := app.overview.Results(r.Context(), id)
	if err != nil {
		app.errorResponse(w, r, err)
		return
	}
	app.writeJSON(w, r, http.StatusOK, resultsResponse{Questionnaire: q, Submissions: submissions})
}
