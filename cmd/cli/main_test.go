package main

import (
	"bytes"
	"encoding/json"
	"path/filepath"
	"strings"
	"testing"

	"github.com/myrjola/survey/internal/models"
	"github.com/stretchr/testify/require"
)

const exampleImport = `{
  "title": "Coffee",
  "description": "Morning habits",
  "questions": [
    {"type": "SingleChoice", "questionText": "Roast?", "possibleAnswer": {"optionsString": ["Light", "Dark"]}},
    {"type": "MultipleChoice", "questionText": "Add?", "possibleAnswer": {"optionsString": ["Milk", "Sugar", "Oat"]}},
    {"type": "Blank", "questionText": "Anything else?", "possibleAnswer": {"hint": "Tell us"}}
  ]
}`

type testCLI struct {
	t         *testing.T
	sqliteURL string
}

func newTestCLI(t *testing.T) testCLI {
	t.Helper()
	return testCLI{t: t, sqliteURL: filepath.Join(t.TempDir(), "survey.sqlite")}
}

// run executes the CLI with args feeding it stdin and returns what it printed to stdout.
func (c testCLI) run(stdin string, args ...string) (string, error) {
	c.t.Helper()
	cmd := newRootCmd(func(key string) (string, bool) {
		if key == "SURVEY_SQLITE_URL" {
			return c.sqliteURL, true
		}
		return "", false
	})
	var stdout, stderr bytes.Buffer
	cmd.SetArgs(args)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	err := cmd.Execute()
	return stdout.String(), err
}

func (c testCLI) mustRun(stdin string, args ...string) string {
	c.t.Helper()
	out, err := c.run(stdin, args...)
	require.NoError(c.t, err, out)
	return out
}

func TestQuestionnaires(t *testing.T) {
	t.Parallel()
	c := newTestCLI(t)

	out := c.mustRun(exampleImport, "import")
	require.Equal(t, "imported questionnaire 1\n", out)

	out = c.mustRun("", "list")
	require.Contains(t, out, "Coffee")
	require.Contains(t, out, "TITLE")

	out = c.mustRun("", "export", "1")
	var exported map[string]json.RawMessage
	require.NoError(t, json.Unmarshal([]byte(out), &exported))
	require.NotContains(t, exported, "id")
	require.JSONEq(t, `"Coffee"`, string(exported["title"]))

	// An exported document imports as a new questionnaire.
	out = c.mustRun(out, "import")
	require.Equal(t, "imported questionnaire 2\n", out)

	out = c.mustRun("", "delete", "1")
	require.Equal(t, "deleted questionnaire 1\n", out)

	tests := []struct {
		name    string
		stdin   string
		args    []string
		wantErr error
	}{
		{"export deleted", "", []string{"export", "1"}, models.ErrNotFound},
		{"delete deleted", "", []string{"delete", "1"}, models.ErrNotFound},
		{"results deleted", "", []string{"results", "1"}, models.ErrNotFound},
		{"malformed import", `{"title":"x"}`, []string{"import"}, models.ErrSerializationFailed},
		{"unknown type import", strings.Replace(exampleImport, `"Blank"`, `"Essay"`, 1), []string{"import"},
			models.ErrSerializationFailed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := c.run(tt.stdin, tt.args...)
			require.ErrorIs(t, err, tt.wantErr)
		})
	}

	_, err := c.run("", "export", "one")
	require.Error(t, err)
}

func TestSqliteURLFlag(t *testing.T) {
	t.Parallel()
	c := newTestCLI(t)
	other := filepath.Join(t.TempDir(), "other.sqlite")

	c.mustRun(exampleImport, "import", "--sqlite-url", other)

	out := c.mustRun("", "list")
	require.NotContains(t, out, "Coffee")
	out = c.mustRun("", "list", "--sqlite-url", other)
	require.Contains(t, out, "Coffee")
}

func TestTake(t *testing.T) {
	t.Parallel()
	c := newTestCLI(t)
	c.mustRun(exampleImport, "import")

	answers := strings.Join([]string{
		"9",     // no such option
		"2",     // Dark
		"1, 3",  // Milk and Oat
		":back", // back to the second question
		"3,1",
		"Decaf please",
	}, "\n") + "\n"
	out := c.mustRun(answers, "take", "1")
	require.Contains(t, out, "[1/3] Roast?")
	require.Contains(t, out, "error:")
	require.Contains(t, out, "submitted 3 answers")

	out = c.mustRun("", "results", "1")
	require.Contains(t, out, "Coffee: 1 submissions")
	require.Contains(t, out, "Dark")
	require.Contains(t, out, "Milk, Oat")
	require.Contains(t, out, "Decaf please")

	out = c.mustRun("2\n:quit\n", "take", "1")
	require.Contains(t, out, "left without submitting")
	out = c.mustRun("", "results", "1")
	require.Contains(t, out, "Coffee: 1 submissions")

	_, err := c.run("2\n", "take", "1")
	require.Error(t, err, "input ending mid-survey is an error")

	_, err = c.run("", "take", "7")
	require.ErrorIs(t, err, models.ErrNotFound)

	// An empty line leaves the multiple choice selection empty.
	out = c.mustRun("1\n\nPlain\n", "take", "1")
	require.NotContains(t, out, "error:")
	require.Contains(t, out, "submitted 3 answers")
	out = c.mustRun("", "results", "1")
	require.Contains(t, out, "Coffee: 2 submissions")
	require.Contains(t, out, "Plain")
}

func TestParseAnswer(t *testing.T) {
	single := models.Question{Text: "Roast?", PossibleAnswer: models.NewSingleChoice("Light", "Dark")}
	multiple := models.Question{Text: "Add?", PossibleAnswer: models.NewMultipleChoice("Milk", "Sugar", "Oat")}
	blank := models.Question{Text: "Else?", PossibleAnswer: models.NewBlank("")}

	tests := []struct {
		name     string
		question models.Question
		line     string
		want     models.Answer
		wantErr  error
	}{
		{"single", single, "2", models.SingleChoiceAnswer{SelectedIndex: 1}, nil},
		{"single not a number", single, "dark", nil, errUsage},
		{"single empty", single, "", nil, errUsage},
		{"multiple with commas", multiple, "3,1", models.NewMultipleChoiceAnswer(0, 2), nil},
		{"multiple with spaces", multiple, "1 3", models.NewMultipleChoiceAnswer(0, 2), nil},
		{"multiple with both", multiple, "1, 2", models.NewMultipleChoiceAnswer(0, 1), nil},
		{"multiple empty", multiple, "", models.NewMultipleChoiceAnswer(), nil},
		{"multiple not a number", multiple, "1,x", nil, errUsage},
		{"blank", blank, "Decaf please", models.BlankAnswer{Text: "Decaf please"}, nil},
		{"blank empty", blank, "", models.BlankAnswer{Text: ""}, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, err := parseAnswer(tt.question, tt.line)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tt.want, got)
		})
	}
}

func TestDesign(t *testing.T) {
	t.Parallel()
	c := newTestCLI(t)

	script := strings.Join([]string{
		"commit",
		"title Tea",
		"description Afternoon habits",
		"add Essay",
		"add SingleChoice",
		"text 1 Green or black?",
		"option add 1",
		"option add 1",
		"option set 1 1 Green",
		"option set 1 2 Black",
		"add Blank 1",
		"hint 1 Anything",
		"option add 1",
		"move 1 2",
		"show",
		"validate",
		"commit",
	}, "\n") + "\n"
	out := c.mustRun(script, "design")
	require.Contains(t, out, "editing questionnaire 1")
	require.Contains(t, out, "title is a required field")
	require.Contains(t, out, "unknown question type")
	require.Contains(t, out, "answer does not match question type")
	require.Contains(t, out, "1. [SingleChoice] Green or black?")
	require.Contains(t, out, "   2) Black")
	require.Contains(t, out, "ready to commit")
	require.Contains(t, out, "saved questionnaire 1")

	exported := c.mustRun("", "export", "1")
	require.Contains(t, exported, `"title":"Tea"`)
	require.Contains(t, exported, `"hint":"Anything"`)

	out = c.mustRun("title Herbal tea\nquit\n", "design", "1")
	require.Contains(t, out, "discarded changes")
	exported = c.mustRun("", "export", "1")
	require.Contains(t, exported, `"title":"Tea"`)

	_, err := c.run("title Unsaved\n", "design", "1")
	require.Error(t, err)

	_, err = c.run("", "design", "42")
	require.ErrorIs(t, err, models.ErrNotFound)
}
