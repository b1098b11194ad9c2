// Package results turns stored submissions into readable answers.
//
// A QuestionResult addresses its question by position in the questionnaire at submission time. Resolution looks the
// position up in the current questionnaire, so answers recorded before questions were reordered or removed resolve
// against the wrong question. A type check catches some of these cases; an edit that keeps the type does not.
package results

import (
	"log/slog"
	"strings"

	"github.com/myrjola/survey/internal/errors"
	"github.com/myrjola/survey/internal/models"
)

// Resolution is one answer paired with the question it answers.
type Resolution struct {
	Position int                 `json:"position"`
	Question string              `json:"question"`
	Type     models.QuestionType `json:"type"`
	// Answered is false when the question was left unanswered.
	Answered bool `json:"answered"`
	// Selected holds the texts of the chosen options for choice questions.
	Selected []string `json:"selected"`
	// Text holds the free-text answer of a Blank question.
	Text string `json:"text"`
}

// Display renders the answer as a single line.
func (r Resolution) Display() string {
	if !r.Answered {
		return "(no answer)"
	}
	if r.Type == models.QuestionTypeBlank {
		return r.Text
	}
	return strings.Join(r.Selected, ", ")
}

// Resolve looks up the question of r in q by position.
func Resolve(q models.Questionnaire, r models.QuestionResult) (Resolution, error) {
	if r.QuestionID < 0 || r.QuestionID >= len(q.Questions) {
		return Resolution{}, errors.Wrap(models.ErrOutOfRange, "resolve question position",
			slog.Int("position", r.QuestionID), slog.Int("len", len(q.Questions)))
	}
	question := q.Questions[r.QuestionID]
	if question.Type() != r.Type {
		return Resolution{}, errors.Wrap(models.ErrAnswerMismatch, "question changed since submission",
			slog.Int("position", r.QuestionID),
			slog.String("question_type", string(question.Type())),
			slog.String("result_type", string(r.Type)))
	}
	resolution := Resolution{
		Position: r.QuestionID,
		Question: question.Text,
		Type:     r.Type,
		Answered: r.Answer != nil,
		Selected: []string{},
		Text:     "",
	}
	if r.Answer == nil {
		return resolution, nil
	}
	if err := question.Accepts(r.Answer); err != nil {
		return Resolution{}, errors.Wrap(err, "resolve answer", slog.Int("position", r.QuestionID))
	}
	options, _ := models.Options(question.PossibleAnswer)
	switch a := r.Answer.(type) {
	case models.SingleChoiceAnswer:
		resolution.Selected = append(resolution.Selected, options[a.SelectedIndex])
	case models.MultipleChoiceAnswer:
		for _, i := range a.SelectedIndices {
			resolution.Selected = append(resolution.Selected, options[i])
		}
	case models.BlankAnswer:
		resolution.Text = a.Text
	}
	return resolution, nil
}

// Describe resolves every answer of one submission in order.
func Describe(q models.Questionnaire, sr models.SurveyResult) ([]Resolution, error) {
	resolutions := make([]Resolution, 0, len(sr.QuestionResults))
	for _, r := range sr.QuestionResults {
		resolution, err := Resolve(q, r)
		if err != nil {
			return nil, errors.Wrap(err, "describe survey result", slog.Int64("survey_result_id", sr.ID))
		}
		resolutions = append(resolutions, resolution)
	}
	return resolutions, nil
}
