package main

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/myrjola/survey/internal/design"
	"github.com/myrjola/survey/internal/errors"
	"github.com/myrjola/survey/internal/models"
)

const maxBodyBytes = 1 << 20

var errBadRequest = errors.NewSentinel("bad request")

type errorBody struct {
	Error    string                     `json:"error"`
	Failures []design.ValidationFailure `json:"failures,omitempty"`
}

func (app *application) writeJSON(w http.ResponseWriter, r *http.Request, status int, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		app.serverError(w, r, errors.Wrap(err, "encode response"))
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if _, err = w.Write(data); err != nil {
		app.logger.LogAttrs(r.Context(), slog.LevelDebug, "write response", errors.SlogError(err))
	}
}

// readBody returns the request body or an errBadRequest when it is unreadable or too large.
func readBody(w http.ResponseWriter, r *http.Request) ([]byte, error) {
	data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		return nil, errors.Mark(errors.Wrap(err, "read request body"), errBadRequest)
	}
	return data, nil
}

// readJSON decodes the request body into dst rejecting unknown fields. An empty body leaves dst untouched when
// allowEmpty is set.
func readJSON(w http.ResponseWriter, r *http.Request, dst any, allowEmpty bool) error {
	data, err := readBody(w, r)
	if err != nil {
		return err
	}
	if len(bytes.TrimSpace(data)) == 0 {
		if allowEmpty {
			return nil
		}
		return errors.Wrap(errBadRequest, "empty request body")
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err = dec.Decode(dst); err != nil {
		return errors.Mark(errors.Wrap(err, "decode request body"), errBadRequest)
	}
	if dec.More() {
		return errors.Wrap(errBadRequest, "trailing data in request body")
	}
	return nil
}

// pathID parses the {id} wildcard.
func pathID(r *http.Request) (int64, error) {
	raw := r.PathValue("id")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id < 1 {
		return 0, errors.Wrap(models.ErrNotFound, "invalid questionnaire id", slog.String("id", raw))
	}
	return id, nil
}

// errorResponse maps err onto a status code and a JSON error body. Errors outside the domain taxonomy are server
// errors.
func (app *application) errorResponse(w http.ResponseWriter, r *http.Request, err error) {
	var status int
	switch {
	// A stored row that fails to decode also reports ErrSerializationFailed, so the store is checked first.
	case errors.Is(err, models.ErrStoreUnavailable):
		app.logger.LogAttrs(r.Context(), slog.LevelError, "store unavailable", errors.SlogError(err))
		app.writeJSON(w, r, http.StatusServiceUnavailable, errorBody{
			Error:    http.StatusText(http.StatusServiceUnavailable),
			Failures: nil,
		})
		return
	case errors.Is(err, errNoActiveSession), errors.Is(err, models.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, models.ErrInvalidTransition):
		status = http.StatusConflict
	case errors.Is(err, models.ErrValidationFailed), errors.Is(err, models.ErrEmptyQuestionnaire):
		status = http.StatusUnprocessableEntity
	case errors.Is(err, models.ErrOutOfRange),
		errors.Is(err, models.ErrAnswerMismatch),
		errors.Is(err, models.ErrUnknownQuestionType),
		errors.Is(err, models.ErrSerializationFailed),
		errors.Is(err, errBadRequest):
		status = http.StatusBadRequest
	default:
		app.serverError(w, r, err)
		return
	}

	body := errorBody{Error: err.Error(), Failures: nil}
	var validationErr *design.ValidationError
	if errors.As(err, &validationErr) {
		body.Failures = validationErr.Failures
	}
	app.clientError(w, r, status, body)
}

func (app *application) serverError(w http.ResponseWriter, r *http.Request, err error) {
	var (
		method = r.Method
		uri    = r.URL.RequestURI()
	)

	app.logger.LogAttrs(r.Context(), slog.LevelError, "server error",
		slog.String("method", method), slog.String("uri", uri), errors.SlogError(err))
	app.writeJSON(w, r, http.StatusInternalServerError, errorBody{
		Error:    http.StatusText(http.StatusInternalServerError),
		Failures: nil,
	})
}

func (app *application) clientError(w http.ResponseWriter, r *http.Request, status int, body errorBody) {
	var (
		method = r.Method
		uri    = r.URL.RequestURI()
	)

	app.logger.LogAttrs(r.Context(), slog.LevelDebug, http.StatusText(status),
		slog.String("method", method), slog.String("uri", uri), slog.String("error", body.Error))
	app.writeJSON(w, r, status, body)
}

func (app *application) notFound(w http.ResponseWriter, r *http.Request) {
	app.clientError(w, r, http.StatusNotFound, errorBody{Error: http.StatusText(http.StatusNotFound), Failures: nil})
}
