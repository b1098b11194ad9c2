package main

import (
	"net/http"

	"github.com/justinas/alice"
)

func (app *application) routes() http.Handler {
	mux := http.NewServeMux()

	// Requests that touch the browser's design or survey session.
	session := alice.New(timeoutHandler, app.sessionManager.LoadAndSave)
	stateless := alice.New(timeoutHandler)

	mux.Handle("GET /api/healthy", stateless.ThenFunc(app.healthy))
	mux.Handle("GET /api/csrf", stateless.ThenFunc(app.csrfToken))

	mux.Handle("GET /api/questionnaires", stateless.ThenFunc(app.listQuestionnaires))
	// The stream outlives the handler timeout and must not go through the buffering session middleware.
	mux.HandleFunc("GET /api/questionnaires/stream", app.streamQuestionnaires)
	mux.Handle("POST /api/questionnaires/import", stateless.ThenFunc(app.importQuestionnaire))
	mux.Handle("GET /api/questionnaires/{id}", stateless.ThenFunc(app.getQuestionnaire))
	mux.Handle("GET /api/questionnaires/{id}/export", stateless.ThenFunc(app.exportQuestionnaire))
	mux.Handle("GET /api/questionnaires/{id}/results", stateless.ThenFunc(app.questionnaireResults))
	mux.Handle("DELETE /api/questionnaires/{id}", stateless.ThenFunc(app.deleteQuestionnaire))

	mux.Handle("POST /api/design", session.ThenFunc(app.openDesign))
	mux.Handle("GET /api/design", session.ThenFunc(app.getDesign))
	mux.Handle("DELETE /api/design", session.ThenFunc(app.discardDesign))
	mux.Handle("POST /api/design/ops", session.ThenFunc(app.editDesign))
	mux.Handle("GET /api/design/validation", session.ThenFunc(app.validateDesign))
	mux.Handle("POST /api/design/commit", session.ThenFunc(app.commitDesign))

	mux.Handle("POST /api/survey", session.ThenFunc(app.startSurvey))
	mux.Handle("GET /api/survey", session.ThenFunc(app.getSurvey))
	mux.Handle("POST /api/survey/answer", session.ThenFunc(app.answerSurvey))
	mux.Handle("POST /api/survey/next", session.ThenFunc(app.nextQuestion))
	mux.Handle("POST /api/survey/previous", session.ThenFunc(app.previousQuestion))
	mux.Handle("POST /api/survey/submit", session.ThenFunc(app.submitSurvey))

	mux.Handle("/", http.HandlerFunc(app.notFound))

	return alice.New(app.recoverPanic, app.logRequest, secureHeaders, app.noSurf).Then(mux)
}
