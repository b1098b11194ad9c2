package main

import (
	"bufio"
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/myrjola/survey/internal/e2etest"
	"github.com/stretchr/testify/require"
)

type surveyState struct {
	QuestionnaireID int64           `json:"questionnaireId"`
	Position        int             `json:"position"`
	Len             int             `json:"len"`
	Answer          json.RawMessage `json:"answer"`
	CanProceed      bool            `json:"canProceed"`
	IsFirst         bool            `json:"isFirst"`
	IsLast          bool            `json:"isLast"`
}

func answerBody(position int, answer string) map[string]any {
	return map[string]any{"position": position, "answer": json.RawMessage(answer)}
}

func surveyStep(
	ctx context.Context, t *testing.T, client *e2etest.Client, path string, body any, wantStatus int,
) surveyState {
	t.Helper()
	var state surveyState
	status, err := client.DoJSON(ctx, http.MethodPost, path, body, &state)
	require.NoError(t, err)
	require.Equal(t, wantStatus, status, "POST %s", path)
	return state
}

func Test_application_survey(t *testing.T) {
	t.Parallel()
	ctx, server := startServer(t)
	client := server.Client()
	id := importExample(ctx, t, client)

	state := surveyStep(ctx, t, client, "/api/survey", map[string]any{"id": id}, http.StatusCreated)
	require.Equal(t, id, state.QuestionnaireID)
	require.Equal(t, 0, state.Position)
	require.Equal(t, 3, state.Len)
	require.True(t, state.IsFirst)
	require.False(t, state.CanProceed)
	require.JSONEq(t, "null", string(state.Answer))

	// Nothing moves forward before the current question is answered.
	surveyStep(ctx, t, client, "/api/survey/next", nil, http.StatusConflict)
	surveyStep(ctx, t, client, "/api/survey/submit", nil, http.StatusConflict)

	rejected := []struct {
		name string
		body any
	}{
		{"type mismatch", answerBody(0, `{"type":"Blank","text":"x"}`)},
		{"option out of range", answerBody(0, `{"type":"SingleChoice","selectedIndex":5}`)},
		{"position out of range", answerBody(7, `{"type":"SingleChoice","selectedIndex":0}`)},
		{"unknown answer type", answerBody(0, `{"type":"Essay","text":"x"}`)},
		{"missing answer", map[string]any{"position": 0}},
	}
	for _, tt := range rejected {
		t.Run(tt.name, func(t *testing.T) {
			surveyStep(ctx, t, client, "/api/survey/answer", tt.body, http.StatusBadRequest)
		})
	}

	state = surveyStep(ctx, t, client, "/api/survey/answer",
		answerBody(0, `{"type":"SingleChoice","selectedIndex":1}`), http.StatusOK)
	require.True(t, state.CanProceed)
	require.JSONEq(t, `{"type":"SingleChoice","selectedIndex":1}`, string(state.Answer))

	state = surveyStep(ctx, t, client, "/api/survey/next", nil, http.StatusOK)
	require.Equal(t, 1, state.Position)
	state = surveyStep(ctx, t, client, "/api/survey/previous", nil, http.StatusOK)
	require.Equal(t, 0, state.Position)
	require.True(t, state.CanProceed, "answers survive moving back")
	surveyStep(ctx, t, client, "/api/survey/next", nil, http.StatusOK)

	surveyStep(ctx, t, client, "/api/survey/answer",
		answerBody(1, `{"type":"MultipleChoice","selectedIndices":[2,0]}`), http.StatusOK)
	surveyStep(ctx, t, client, "/api/survey/next", nil, http.StatusOK)
	state = surveyStep(ctx, t, client, "/api/survey/answer",
		answerBody(2, `{"type":"Blank","text":"Decaf please"}`), http.StatusOK)
	require.True(t, state.IsLast)
	surveyStep(ctx, t, client, "/api/survey/next", nil, http.StatusConflict)

	var result struct {
		QuestionnaireID int64             `json:"questionnaireId"`
		QuestionResults []json.RawMessage `json:"questionResults"`
	}
	status, err := client.DoJSON(ctx, http.MethodPost, "/api/survey/submit", nil, &result)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, status)
	require.Equal(t, id, result.QuestionnaireID)
	require.Len(t, result.QuestionResults, 3)

	// The session is closed after submitting.
	status, err = client.DoJSON(ctx, http.MethodGet, "/api/survey", nil, nil)
	require.NoError(t, err)
	require.Equal(t, http.StatusNotFound, status)

	var res resultsResponse
	require.Eventually(t, func() bool {
		return client.GetJSON(ctx, questionnairePath(id, "/results"), &res) == nil && len(res.Submissions) == 1
	}, 2*time.Second, 20*time.Millisecond)
	answers := res.Submissions[0].Answers
	require.Len(t, answers, 3)
	require.Equal(t, []string{"Dark"}, answers[0].Selected)
	require.Equal(t, []string{"Milk", "Oat"}, answers[1].Selected)
	require.Equal(t, "Decaf please", answers[2].Text)
}

func Test_application_surveyRefusals(t *testing.T) {
	t.Parallel()
	ctx, server := startServer(t)
	client := server.Client()

	// A freshly created design is stored without questions.
	var view designView
	status, err := client.DoJSON(ctx, http.MethodPost, "/api/design", nil, &view)
	require.NoError(t, err)
	require.Equal(t, http.StatusCreated, status)

	tests := []struct {
		name       string
		body       any
		wantStatus int
	}{
		{"empty questionnaire", map[string]any{"id": view.ID}, http.StatusUnprocessableEntity},
		{"unknown questionnaire", map[string]any{"id": view.ID + 100}, http.StatusNotFound},
		{"missing id", map[string]any{}, http.StatusBadRequest},
		{"empty body", nil, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, doErr := client.DoJSON(ctx, http.MethodPost, "/api/survey", tt.body, nil)
			require.NoError(t, doErr)
			require.Equal(t, tt.wantStatus, got)
		})
	}

	status, err = client.DoJSON(ctx, http.MethodGet, "/api/survey", nil, nil)
	require.NoError(t, err)
	require.Equal(t, http.StatusNotFound, status)
}

// readEvent returns the data of the next Server Sent Event.
func readEvent(t *testing.T, scanner *bufio.Scanner) string {
	t.Helper()
	_, data := nextEvent(t, scanner)
	return data
}

// nextEvent returns the name and data of the next Server Sent Event.
func nextEvent(t *testing.T, scanner *bufio.Scanner) (string, string) {
	t.Helper()
	var event, data string
	for scanner.Scan() {
		line := scanner.Text()
		if line == "" && data != "" {
			return event, data
		}
		if after, ok := strings.CutPrefix(line, "event: "); ok {
			event = after
		}
		if after, ok := strings.CutPrefix(line, "data: "); ok {
			data = after
		}
	}
	require.NoError(t, scanner.Err())
	t.Fatal("stream ended")
	return "", ""
}

func Test_application_streamQuestionnaires(t *testing.T) {
	t.Parallel()
	ctx, server := startServer(t)
	client := server.Client()

	streamCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	resp, err := client.Get(streamCtx, "/api/questionnaires/stream")
	require.NoError(t, err)
	defer func() {
		_ = resp.Body.Close()
	}()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))
	scanner := bufio.NewScanner(resp.Body)

	require.JSONEq(t, "[]", readEvent(t, scanner))

	id := importExample(ctx, t, client)
	var listing []struct {
		Questionnaire struct {
			ID int64 `json:"id"`
		} `json:"questionnaire"`
	}
	// Listings are coalesced, so skip ahead until the import shows up.
	for len(listing) == 0 {
		require.NoError(t, json.Unmarshal([]byte(readEvent(t, scanner)), &listing))
	}
	require.Equal(t, id, listing[0].Questionnaire.ID)
}
