package main

import (
	"log/slog"
	"net/http"

	"github.com/myrjola/survey/internal/design"
	"github.com/myrjola/survey/internal/errors"
	"github.com/myrjola/survey/internal/models"
)

type designView struct {
	ID          int64                      `json:"id"`
	Title       string                     `json:"title"`
	Description string                     `json:"description"`
	Questions   []models.Question          `json:"questions"`
	Version     uint64                     `json:"version"`
	Failures    []design.ValidationFailure `json:"failures"`
}

func newDesignView(s *design.Session) designView {
	failures := s.Validate()
	if failures == nil {
		failures = []design.ValidationFailure{}
	}
	return designView{
		ID:          s.ID(),
		Title:       s.Title(),
		Description: s.Description(),
		Questions:   s.Questions(),
		Version:     s.Version(),
		Failures:    failures,
	}
}

// designOp is one edit of the draft. Fields irrelevant to Op are ignored.
type designOp struct {
	Op string `json:"op"`
	// Type is the kind of question addQuestion creates.
	Type models.QuestionType `json:"type"`
	// Index addresses a question. addQuestion appends when it is omitted.
	Index *int `json:"index"`
	// To is the second question of move.
	To     int    `json:"to"`
	Option int    `json:"option"`
	Text   string `json:"text"`
}

func (op designOp) index() (int, error) {
	if op.Index == nil {
		return 0, errors.Wrap(errBadRequest, "missing index", slog.String("op", op.Op))
	}
	return *op.Index, nil
}

// apply runs op on s.
func (op designOp) apply(s *design.Session) error {
	switch op.Op {
	case "setTitle":
		s.SetTitle(op.Text)
		return nil
	case "setDescription":
		s.SetDescription(op.Text)
		return nil
	case "addQuestion":
		if op.Index == nil {
			_, err := s.AddQuestion(op.Type)
			return err
		}
		return s.InsertQuestion(op.Type, *op.Index)
	}

	i, err := op.index()
	if err != nil {
		return err
	}
	switch op.Op {
	case "duplicate":
		return s.Duplicate(i)
	case "move":
		return s.Move(i, op.To)
	case "remove":
		return s.Remove(i)
	case "setQuestionText":
		return s.SetQuestionText(i, op.Text)
	case "addOption":
		_, err = s.AddOption(i)
		return err
	case "setOption":
		return s.SetOption(i, op.Option, op.Text)
	case "removeOption":
		return s.RemoveOption(i, op.Option)
	case "setHint":
		return s.SetHint(i, op.Text)
	default:
		return errors.Wrap(errBadRequest, "unknown design operation", slog.String("op", op.Op))
	}
}

// withDesign runs fn on the browser's design session.
func (app *application) withDesign(r *http.Request, fn func(s *design.Session) error) error {
	key := app.sessionManager.GetString(r.Context(), designSessionKey)
	return app.designs.with(key, fn)
}

type openRequest struct {
	ID *int64 `json:"id"`
}

// openDesign starts a design session on the questionnaire given by id, or on a new empty questionnaire when the body
// is empty. A previous design session of the browser is discarded.
func (app *application) openDesign(w http.ResponseWriter, r *http.Request) {
	var (
		req     openRequest
		session *design.Session
		err     error
	)
	if err = readJSON(w, r, &req, true); err != nil {
		app.errorResponse(w, r, err)
		return
	}
	if req.ID == nil {
		session, err = app.overview.NewDesign(r.Context())
	} else {
		session, err = app.overview.EditDesign(r.Context(), *req.ID)
	}
	if err != nil {
		app.errorResponse(w, r, err)
		return
	}

	ctx := r.Context()
	app.designs.remove(app.sessionManager.GetString(ctx, designSessionKey))
	key := app.designs.add(session)
	app.sessionManager.Put(ctx, designSessionKey, key.String())
	app.logger.LogAttrs(ctx, slog.LevelDebug, "opened design session", slog.Int64("questionnaire_id", session.ID()))
	app.writeJSON(w, r, http.StatusCreated, newDesignView(session))
}

func (app *application) getDesign(w http.ResponseWriter, r *http.Request) {
	var view designView
	if err := app.withDesign(r, func(s *design.Session) error {
		view = newDesignView(s)
		return nil
	}); err != nil {
		app.errorResponse(w, r, err)
		return
	}
	app.writeJSON(w, r, http.StatusOK, view)
}

// editDesign applies one operation and answers with the resulting draft. A rejected operation leaves the draft as
// it was.
func (app *application) editDesign(w http.ResponseWriter, r *http.Request) {
	var op designOp
	if err := readJSON(w, r, &op, false); err != nil {
		app.errorResponse(w, r, err)
		return
	}
	var view designView
	if err := app.withDesign(r, func(s *design.Session) error {
		if err := op.apply(s); err != nil {
			return err
		}
		view = newDesignView(s)
		return nil
	}); err != nil {
		app.errorResponse(w, r, err)
		return
	}
	app.writeJSON(w, r, http.StatusOK, view)
}

func (app *application) validateDesign(w http.ResponseWriter, r *http.Request) {
	var failures []design.ValidationFailure
	if err := app.withDesign(r, func(s *design.Session) error {
		failures = s.Validate()
		return nil
	}); err != nil {
		app.errorResponse(w, r, err)
		return
	}
	if failures == nil {
		failures = []design.ValidationFailure{}
	}
	app.writeJSON(w, r, http.StatusOK, struct {
		Failures []design.ValidationFailure `json:"failures"`
	}{Failures: failures})
}

// commitDesign finishes the browser's design session. The session stays open when the draft is not ready so that
// the failures can be fixed.
func (app *application) commitDesign(w http.ResponseWriter, r *http.Request) {
	var q models.Questionnaire
	if err := app.withDesign(r, func(s *design.Session) error {
		var err error
		q, err = app.overview.FinishDesign(r.Context(), s)
		return err
	}); err != nil {
		app.errorResponse(w, r, err)
		return
	}
	app.closeDesign(r)
	app.writeJSON(w, r, http.StatusOK, q)
}

func (app *application) discardDesign(w http.ResponseWriter, r *http.Request) {
	if err := app.withDesign(r, func(*design.Session) error { return nil }); err != nil {
		app.errorResponse(w, r, err)
		return
	}
	app.closeDesign(r)
	w.WriteHeader(http.StatusNoContent)
}

func (app *application) closeDesign(r *http.Request) {
	ctx := r.Context()
	app.designs.remove(app.sessionManager.PopString(ctx, designSessionKey))
}
