package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/myrjola/survey/internal/e2etest"
	"github.com/myrjola/survey/internal/errors"
	"github.com/myrjola/survey/internal/logging"
)

const smokeQuestionnaire = `{
  "title": "Smoke test",
  "description": "Created and deleted by the smoke test",
  "questions": [
    {"type": "SingleChoice", "questionText": "Is it up?", "possibleAnswer": {"optionsString": ["Yes", "No"]}}
  ]
}`

func expectStatus(status, want int, step string) error {
	if status != want {
		return errors.New("unexpected status code",
			slog.String("step", step), slog.Int("status", status), slog.Int("want", want))
	}
	return nil
}

// TestRespondentFlow imports a questionnaire, answers it, reads the result back and deletes the questionnaire.
func TestRespondentFlow(client *e2etest.Client) error {
	ctx := context.Background()
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second) //nolint:mnd // 10 seconds
	defer cancel()

	var created struct {
		ID int64 `json:"id"`
	}
	status, err := client.DoJSON(ctx, http.MethodPost, "/api/questionnaires/import", []byte(smokeQuestionnaire), &created)
	if err != nil {
		return errors.Wrap(err, "import questionnaire")
	}
	if err = expectStatus(status, http.StatusCreated, "import"); err != nil {
		return err
	}
	path := fmt.Sprintf("/api/questionnaires/%d", created.ID)
	defer func() {
		_, _ = client.DoJSON(context.WithoutCancel(ctx), http.MethodDelete, path, nil, nil)
	}()

	steps := []struct {
		name string
		path string
		body any
	}{
		{"start survey", "/api/survey", map[string]any{"id": created.ID}},
		{"answer", "/api/survey/answer", map[string]any{
			"position": 0,
			"answer":   map[string]any{"type": "SingleChoice", "selectedIndex": 0},
		}},
		{"submit", "/api/survey/submit", nil},
	}
	for _, step := range steps {
		if status, err = client.DoJSON(ctx, http.MethodPost, step.path, step.body, nil); err != nil {
			return errors.Wrap(err, step.name)
		}
		want := http.StatusOK
		if step.path == "/api/survey" {
			want = http.StatusCreated
		}
		if err = expectStatus(status, want, step.name); err != nil {
			return err
		}
	}

	// The result is saved in the background.
	for {
		var results struct {
			Submissions []struct {
				ID int64 `json:"id"`
			} `json:"submissions"`
		}
		if err = client.GetJSON(ctx, path+"/results", &results); err != nil {
			return errors.Wrap(err, "get results")
		}
		if len(results.Submissions) == 1 {
			return nil
		}
		select {
		case <-ctx.Done():
			return errors.Wrap(ctx.Err(), "waiting for the submission to be saved")
		case <-time.After(100 * time.Millisecond): //nolint:mnd // 100ms
		}
	}
}

func main() {
	logger := logging.New(os.Stdout, slog.LevelDebug.String())
	ctx := context.Background()

	if len(os.Args) != 2 { //nolint:mnd // we expect only hostname to be passed as argument.
		logger.LogAttrs(ctx, slog.LevelError, "usage: smoketest <hostname>")
		os.Exit(1)
	}

	var (
		hostname = os.Args[1]
		url      = "https://" + hostname
		client   *e2etest.Client
		err      error
	)
	ctx = logging.WithAttrs(ctx, slog.String("hostname", url))

	if client, err = e2etest.NewClient(url); err != nil {
		logger.LogAttrs(ctx, slog.LevelError, "error creating client", errors.SlogError(err))
		os.Exit(1)
	}
	if err = client.WaitForReady(ctx, "/api/healthy"); err != nil {
		logger.LogAttrs(ctx, slog.LevelError, "service not ready", errors.SlogError(err))
		os.Exit(1)
	}
	if err = TestRespondentFlow(client); err != nil {
		logger.LogAttrs(ctx, slog.LevelError, "error testing respondent flow", errors.SlogError(err))
		os.Exit(1)
	}

	logger.LogAttrs(ctx, slog.LevelInfo, "Smoke test successful 🙌")
	os.Exit(0)
}
