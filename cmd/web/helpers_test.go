package main

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/myrjola/survey/internal/design"
	"github.com/myrjola/survey/internal/errors"
	"github.com/myrjola/survey/internal/models"
	"github.com/myrjola/survey/internal/testhelpers"
	"github.com/stretchr/testify/require"
)

func Test_application_errorResponse(t *testing.T) {
	t.Parallel()
	app := &application{
		logger:         testhelpers.NewLogger(io.Discard),
		sessionManager: nil,
		overview:       nil,
		designs:        nil,
		surveys:        nil,
		notices:        nil,
	}
	corruptRow := errors.Wrap(errors.Mark(errors.Wrap(models.ErrSerializationFailed, "decode question"),
		models.ErrStoreUnavailable), "decode stored questions")

	tests := []struct {
		name       string
		err        error
		wantStatus int
	}{
		{"corrupt stored row", corruptRow, http.StatusServiceUnavailable},
		{"malformed payload", errors.Wrap(models.ErrSerializationFailed, "import"), http.StatusBadRequest},
		{"not found", errors.Wrap(models.ErrNotFound, "get"), http.StatusNotFound},
		{"no active session", errNoActiveSession, http.StatusNotFound},
		{"invalid transition", models.ErrInvalidTransition, http.StatusConflict},
		{"empty questionnaire", models.ErrEmptyQuestionnaire, http.StatusUnprocessableEntity},
		{"out of range", models.ErrOutOfRange, http.StatusBadRequest},
		{"unexpected", errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			w := httptest.NewRecorder()
			app.errorResponse(w, httptest.NewRequest(http.MethodGet, "/api/questionnaires", nil), tt.err)
			require.Equal(t, tt.wantStatus, w.Code)
			require.Equal(t, "application/json", w.Header().Get("Content-Type"))
		})
	}

	t.Run("validation failures", func(t *testing.T) {
		t.Parallel()
		w := httptest.NewRecorder()
		failures := []design.ValidationFailure{{Field: "title", Code: "required", Message: "title is a required field"}}
		err := errors.Wrap(&design.ValidationError{Failures: failures}, "commit design")
		app.errorResponse(w, httptest.NewRequest(http.MethodPost, "/api/design/commit", nil), err)
		require.Equal(t, http.StatusUnprocessableEntity, w.Code)
		var body errorBody
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
		require.Equal(t, failures, body.Failures)
	})
}
