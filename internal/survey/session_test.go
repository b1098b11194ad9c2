package survey_test

import (
	"testing"

	"github.com/myrjola/survey/internal/models"
	"github.com/myrjola/survey/internal/survey"
	"github.com/stretchr/testify/require"
)

func threeSingleChoice() models.Questionnaire {
	q := models.Questionnaire{ID: 9, Title: "T", Description: "D", Questions: nil}
	for _, text := range []string{"first", "second", "third"} {
		q.Questions = append(q.Questions, models.Question{Text: text, PossibleAnswer: models.NewSingleChoice("A", "B", "C")})
	}
	return q
}

func TestSession_gatedNext(t *testing.T) {
	s, err := survey.New(threeSingleChoice())
	require.NoError(t, err)
	require.Equal(t, 0, s.CurrentIndex())
	require.True(t, s.IsFirst())

	require.ErrorIs(t, s.Next(), models.ErrInvalidTransition)
	require.Equal(t, 0, s.CurrentIndex())

	require.NoError(t, s.Answer(0, models.SingleChoiceAnswer{SelectedIndex: 1}))
	require.NoError(t, s.Next())
	require.Equal(t, 1, s.CurrentIndex())
	require.Equal(t, "second", s.Current().Text)
}

func TestNew_emptyQuestionnaire(t *testing.T) {
	_, err := survey.New(models.Questionnaire{ID: 1, Title: "T", Description: "D", Questions: []models.Question{}})
	require.ErrorIs(t, err, models.ErrEmptyQuestionnaire)
}

func TestSession_navigationBounds(t *testing.T) {
	s, err := survey.New(threeSingleChoice())
	require.NoError(t, err)

	require.NoError(t, s.Previous())
	require.Equal(t, 0, s.CurrentIndex())
	require.Equal(t, uint64(0), s.Version())

	for i := range 3 {
		require.NoError(t, s.Answer(i, models.SingleChoiceAnswer{SelectedIndex: i}))
	}
	require.NoError(t, s.Next())
	require.NoError(t, s.Next())
	require.True(t, s.IsLast())
	require.ErrorIs(t, s.Next(), models.ErrInvalidTransition)
	require.Equal(t, 2, s.CurrentIndex())

	require.NoError(t, s.Previous())
	require.NoError(t, s.Previous())
	require.NoError(t, s.Previous())
	require.Equal(t, 0, s.CurrentIndex())

	// Revisited answers are kept.
	require.Equal(t, models.SingleChoiceAnswer{SelectedIndex: 0}, s.StoredAnswer(0))
}

func TestSession_Answer_rejects(t *testing.T) {
	s, err := survey.New(threeSingleChoice())
	require.NoError(t, err)

	require.ErrorIs(t, s.Answer(3, models.SingleChoiceAnswer{SelectedIndex: 0}), models.ErrOutOfRange)
	require.ErrorIs(t, s.Answer(0, models.SingleChoiceAnswer{SelectedIndex: 3}), models.ErrOutOfRange)
	require.ErrorIs(t, s.Answer(0, models.BlankAnswer{Text: "x"}), models.ErrAnswerMismatch)
	require.False(t, s.CanProceed(0))
	require.Nil(t, s.StoredAnswer(0))
	require.Equal(t, uint64(0), s.Version())
}

func TestSession_Submit(t *testing.T) {
	q := models.Questionnaire{
		ID:          5,
		Title:       "T",
		Description: "D",
		Questions: []models.Question{
			{Text: "one", PossibleAnswer: models.NewSingleChoice("a", "b")},
			{Text: "many", PossibleAnswer: models.NewMultipleChoice("a", "b", "c")},
			{Text: "free", PossibleAnswer: models.NewBlank("")},
		},
	}
	s, err := survey.New(q)
	require.NoError(t, err)

	_, err = s.Submit()
	require.ErrorIs(t, err, models.ErrInvalidTransition)

	require.NoError(t, s.Answer(0, models.SingleChoiceAnswer{SelectedIndex: 1}))
	require.NoError(t, s.Next())
	require.NoError(t, s.Answer(1, models.NewMultipleChoiceAnswer(2, 0)))
	require.NoError(t, s.Next())

	_, err = s.Submit()
	require.ErrorIs(t, err, models.ErrInvalidTransition)

	require.NoError(t, s.Answer(2, models.BlankAnswer{Text: "because"}))
	result, err := s.Submit()
	require.NoError(t, err)
	require.True(t, s.Submitted())

	require.Equal(t, models.SurveyResult{
		ID:              0,
		QuestionnaireID: 5,
		QuestionResults: []models.QuestionResult{
			{QuestionID: 0, Type: models.QuestionTypeSingleChoice, Answer: models.SingleChoiceAnswer{SelectedIndex: 1}},
			{QuestionID: 1, Type: models.QuestionTypeMultipleChoice, Answer: models.NewMultipleChoiceAnswer(0, 2)},
			{QuestionID: 2, Type: models.QuestionTypeBlank, Answer: models.BlankAnswer{Text: "because"}},
		},
	}, result)
	require.Len(t, result.QuestionResults, len(q.Questions))

	require.ErrorIs(t, s.Answer(0, models.SingleChoiceAnswer{SelectedIndex: 0}), models.ErrInvalidTransition)
	require.ErrorIs(t, s.Previous(), models.ErrInvalidTransition)
	_, err = s.Submit()
	require.ErrorIs(t, err, models.ErrInvalidTransition)
}

func TestSession_singleQuestion(t *testing.T) {
	s, err := survey.New(models.Questionnaire{
		ID:          1,
		Title:       "T",
		Description: "D",
		Questions:   []models.Question{{Text: "free", PossibleAnswer: models.NewBlank("")}},
	})
	require.NoError(t, err)
	require.True(t, s.IsFirst())
	require.True(t, s.IsLast())
	require.NoError(t, s.Answer(0, models.BlankAnswer{Text: ""}))
	result, err := s.Submit()
	require.NoError(t, err)
	require.Len(t, result.QuestionResults, 1)
}

func TestSession_isolatedFromCaller(t *testing.T) {
	q := threeSingleChoice()
	s, err := survey.New(q)
	require.NoError(t, err)
	q.Questions[0].PossibleAnswer.(models.SingleChoiceOptions).Options[0] = "changed"
	require.Equal(t, models.NewSingleChoice("A", "B", "C"), s.Current().PossibleAnswer)
}

func TestSession_Subscribe(t *testing.T) {
	s, err := survey.New(threeSingleChoice())
	require.NoError(t, err)
	var seen []int
	s.Subscribe(func(uint64) { seen = append(seen, s.CurrentIndex()) })
	require.NoError(t, s.Answer(0, models.SingleChoiceAnswer{SelectedIndex: 0}))
	require.NoError(t, s.Next())
	require.Equal(t, []int{0, 1}, seen)
}
