package main

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/myrjola/survey/internal/errors"
	"github.com/myrjola/survey/internal/models"
	"github.com/myrjola/survey/internal/survey"
)

type surveyView struct {
	QuestionnaireID int64           `json:"questionnaireId"`
	Title           string          `json:"title"`
	Description     string          `json:"description"`
	Position        int             `json:"position"`
	Len             int             `json:"len"`
	Question        models.Question `json:"question"`
	// Answer is the stored answer of the current question or null.
	Answer     models.Answer `json:"answer"`
	CanProceed bool          `json:"canProceed"`
	IsFirst    bool          `json:"isFirst"`
	IsLast     bool          `json:"isLast"`
	Version    uint64        `json:"version"`
}

func newSurveyView(s *survey.Session) surveyView {
	q := s.Questionnaire()
	position := s.CurrentIndex()
	return surveyView{
		QuestionnaireID: q.ID,
		Title:           q.Title,
		Description:     q.Description,
		Position:        position,
		Len:             s.Len(),
		Question:        s.Current(),
		Answer:          s.StoredAnswer(position),
		CanProceed:      s.CanProceed(position),
		IsFirst:         s.IsFirst(),
		IsLast:          s.IsLast(),
		Version:         s.Version(),
	}
}

func (app *application) withSurvey(r *http.Request, fn func(s *survey.Session) error) error {
	key := app.sessionManager.GetString(r.Context(), surveySessionKey)
	return app.surveys.with(key, fn)
}

// startSurvey opens a survey session on the questionnaire given by id. A previous survey session of the browser is
// discarded.
func (app *application) startSurvey(w http.ResponseWriter, r *http.Request) {
	var req openRequest
	if err := readJSON(w, r, &req, false); err != nil {
		app.errorResponse(w, r, err)
		return
	}
	if req.ID == nil {
		app.errorResponse(w, r, errors.Wrap(errBadRequest, "missing questionnaire id"))
		return
	}
	session, err := app.overview.StartSurvey(r.Context(), *req.ID)
	if err != nil {
		app.errorResponse(w, r, err)
		return
	}

	ctx := r.Context()
	app.surveys.remove(app.sessionManager.GetString(ctx, surveySessionKey))
	key := app.surveys.add(session)
	app.sessionManager.Put(ctx, surveySessionKey, key.String())
	app.logger.LogAttrs(ctx, slog.LevelDebug, "started survey", slog.Int64("questionnaire_id", *req.ID))
	app.writeJSON(w, r, http.StatusCreated, newSurveyView(session))
}

func (app *application) getSurvey(w http.ResponseWriter, r *http.Request) {
	app.surveyStep(w, r, func(*survey.Session) error { return nil })
}

type answerRequest struct {
	Position int             `json:"position"`
	Answer   json.RawMessage `json:"answer"`
}

func (app *application) answerSurvey(w http.ResponseWriter, r *http.Request) {
	var req answerRequest
	if err := readJSON(w, r, &req, false); err != nil {
		app.errorResponse(w, r, err)
		return
	}
	answer, err := models.UnmarshalAnswer(req.Answer)
	if err != nil {
		app.errorResponse(w, r, err)
		return
	}
	app.surveyStep(w, r, func(s *survey.Session) error {
		return s.Answer(req.Position, answer)
	})
}

func (app *application) nextQuestion(w http.ResponseWriter, r *http.Request) {
	app.surveyStep(w, r, (*survey.Session).Next)
}

func (app *application) previousQuestion(w http.ResponseWriter, r *http.Request) {
	app.surveyStep(w, r, (*survey.Session).Previous)
}

// surveyStep runs step on the browser's survey session and answers with the resulting state.
func (app *application) surveyStep(w http.ResponseWriter, r *http.Request, step func(s *survey.Session) error) {
	var view surveyView
	if err := app.withSurvey(r, func(s *survey.Session) error {
		if err := step(s); err != nil {
			return err
		}
		view = newSurveyView(s)
		return nil
	}); err != nil {
		app.errorResponse(w, r, err)
		return
	}
	app.writeJSON(w, r, http.StatusOK, view)
}

// submitSurvey submits the browser's survey session and closes it. The result is saved in the background.
func (app *application) submitSurvey(w http.ResponseWriter, r *http.Request) {
	var result models.SurveyResult
	if err := app.withSurvey(r, func(s *survey.Session) error {
		var err error
		result, err = app.overview.SubmitSurvey(r.Context(), s)
		return err
	}); err != nil {
		app.errorResponse(w, r, err)
		return
	}
	app.surveys.remove(app.sessionManager.PopString(r.Context(), surveySessionKey))
	app.writeJSON(w, r, http.StatusOK, result)
}
