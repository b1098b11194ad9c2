package repositories_test

import (
	"testing"
	"time"

	"github.com/myrjola/survey/internal/models"
	"github.com/stretchr/testify/require"
)

func sampleQuestionnaire() models.Questionnaire {
	return models.Questionnaire{
		ID:          0,
		Title:       "Breakfast",
		Description: "What do you eat?",
		Questions: []models.Question{
			{Text: "Coffee or tea?", PossibleAnswer: models.NewSingleChoice("coffee", "tea")},
			{Text: "Toppings", PossibleAnswer: models.NewMultipleChoice("jam", "butter", "cheese")},
			{Text: "Anything else?", PossibleAnswer: models.NewBlank("")},
		},
	}
}

func TestGateway_questionnaireLifecycle(t *testing.T) {
	ctx, g := newTestGateway(t)

	id, err := g.CreateQuestionnaire(ctx)
	require.NoError(t, err)
	require.Positive(t, id)

	created, err := g.GetQuestionnaire(ctx, id)
	require.NoError(t, err)
	require.Equal(t, models.Questionnaire{ID: id, Title: "", Description: "", Questions: []models.Question{}}, created)

	q := sampleQuestionnaire()
	q.ID = id
	require.NoError(t, g.UpdateQuestionnaire(ctx, q))
	require.NoError(t, g.UpdateQuestionnaire(ctx, q), "saving the same snapshot twice")

	got, err := g.GetQuestionnaire(ctx, id)
	require.NoError(t, err)
	require.Equal(t, q, got)

	require.NoError(t, g.DeleteQuestionnaire(ctx, id))
	_, err = g.GetQuestionnaire(ctx, id)
	require.ErrorIs(t, err, models.ErrNotFound)
}

func TestGateway_notFound(t *testing.T) {
	ctx, g := newTestGateway(t)

	_, err := g.GetQuestionnaire(ctx, 42)
	require.ErrorIs(t, err, models.ErrNotFound)

	q := sampleQuestionnaire()
	q.ID = 42
	require.ErrorIs(t, g.UpdateQuestionnaire(ctx, q), models.ErrNotFound)
	require.ErrorIs(t, g.DeleteQuestionnaire(ctx, 42), models.ErrNotFound)

	_, err = g.InsertSurveyResult(ctx, models.SurveyResult{ID: 0, QuestionnaireID: 42, QuestionResults: nil})
	require.ErrorIs(t, err, models.ErrNotFound)
}

func TestGateway_InsertQuestionnaire_ignoresID(t *testing.T) {
	ctx, g := newTestGateway(t)
	q := sampleQuestionnaire()
	q.ID = 1000
	id, err := g.InsertQuestionnaire(ctx, q)
	require.NoError(t, err)
	require.NotEqual(t, int64(1000), id)
}

func TestGateway_deleteCascadesToResults(t *testing.T) {
	ctx, g := newTestGateway(t)

	keep, err := g.InsertQuestionnaire(ctx, sampleQuestionnaire())
	require.NoError(t, err)
	drop, err := g.InsertQuestionnaire(ctx, sampleQuestionnaire())
	require.NoError(t, err)

	result := models.SurveyResult{
		ID:              0,
		QuestionnaireID: drop,
		QuestionResults: []models.QuestionResult{
			{QuestionID: 0, Type: models.QuestionTypeSingleChoice, Answer: models.SingleChoiceAnswer{SelectedIndex: 1}},
			{QuestionID: 1, Type: models.QuestionTypeMultipleChoice, Answer: models.NewMultipleChoiceAnswer(0, 2)},
			{QuestionID: 2, Type: models.QuestionTypeBlank, Answer: nil},
		},
	}
	_, err = g.InsertSurveyResult(ctx, result)
	require.NoError(t, err)
	result.QuestionnaireID = keep
	resultID, err := g.InsertSurveyResult(ctx, result)
	require.NoError(t, err)

	require.NoError(t, g.DeleteQuestionnaire(ctx, drop))

	dropped, err := g.ListSurveyResults(ctx, drop)
	require.NoError(t, err)
	require.Empty(t, dropped)

	kept, err := g.ListSurveyResults(ctx, keep)
	require.NoError(t, err)
	result.ID = resultID
	require.Equal(t, []models.SurveyResult{result}, kept)
}

func TestGateway_ListQuestionnairesWithResults(t *testing.T) {
	ctx, g := newTestGateway(t)

	empty, err := g.ListQuestionnairesWithResults(ctx)
	require.NoError(t, err)
	require.Empty(t, empty)

	first, err := g.InsertQuestionnaire(ctx, sampleQuestionnaire())
	require.NoError(t, err)
	second, err := g.CreateQuestionnaire(ctx)
	require.NoError(t, err)
	result := models.SurveyResult{
		ID:              0,
		QuestionnaireID: first,
		QuestionResults: []models.QuestionResult{
			{QuestionID: 0, Type: models.QuestionTypeSingleChoice, Answer: models.SingleChoiceAnswer{SelectedIndex: 0}},
		},
	}
	resultID, err := g.InsertSurveyResult(ctx, result)
	require.NoError(t, err)

	listing, err := g.ListQuestionnairesWithResults(ctx)
	require.NoError(t, err)
	require.Len(t, listing, 2)
	require.Equal(t, first, listing[0].Questionnaire.ID)
	require.Len(t, listing[0].Results, 1)
	require.Equal(t, resultID, listing[0].Results[0].ID)
	require.Equal(t, second, listing[1].Questionnaire.ID)
	require.Empty(t, listing[1].Results)
}

func TestGateway_WatchQuestionnairesWithResults(t *testing.T) {
	ctx, g := newTestGateway(t)
	listings := g.WatchQuestionnairesWithResults(ctx)

	// Waits for a listing with the wanted number of questionnaires. Intermediate listings may be skipped.
	waitFor := func(count int) []models.QuestionnaireWithResults {
		t.Helper()
		timeout := time.After(5 * time.Second)
		for {
			select {
			case listing := <-listings:
				if len(listing) == count {
					return listing
				}
			case <-timeout:
				t.Fatalf("timed out waiting for listing with %d questionnaires", count)
				return nil
			}
		}
	}

	waitFor(0)
	id, err := g.InsertQuestionnaire(ctx, sampleQuestionnaire())
	require.NoError(t, err)
	listing := waitFor(1)
	require.Equal(t, id, listing[0].Questionnaire.ID)

	_, err = g.CreateQuestionnaire(ctx)
	require.NoError(t, err)
	waitFor(2)

	require.NoError(t, g.DeleteQuestionnaire(ctx, id))
	listing = waitFor(1)
	require.NotEqual(t, id, listing[0].Questionnaire.ID)
}

func TestGateway_corruptRows(t *testing.T) {
	ctx, g, db := newTestGatewayWithDB(t)

	healthy, err := g.InsertQuestionnaire(ctx, sampleQuestionnaire())
	require.NoError(t, err)
	_, err = g.InsertSurveyResult(ctx, models.SurveyResult{
		ID:              0,
		QuestionnaireID: healthy,
		QuestionResults: []models.QuestionResult{
			{QuestionID: 0, Type: models.QuestionTypeSingleChoice, Answer: models.SingleChoiceAnswer{SelectedIndex: 1}},
		},
	})
	require.NoError(t, err)

	// Valid JSON that does not match the stored schema.
	result, err := db.ReadWrite.ExecContext(ctx,
		`INSERT INTO questionnaires (title, description, questions) VALUES ('Broken', '', '[{"type":"Essay"}]')`)
	require.NoError(t, err)
	broken, err := result.LastInsertId()
	require.NoError(t, err)
	_, err = db.ReadWrite.ExecContext(ctx,
		`INSERT INTO survey_results (questionnaire_id, question_results) VALUES (?, '[{"questionId":0}]')`, healthy)
	require.NoError(t, err)

	_, err = g.GetQuestionnaire(ctx, broken)
	require.ErrorIs(t, err, models.ErrStoreUnavailable)

	_, err = g.ListSurveyResults(ctx, healthy)
	require.ErrorIs(t, err, models.ErrStoreUnavailable)

	listing, err := g.ListQuestionnairesWithResults(ctx)
	require.NoError(t, err, "corrupt rows are left out of the listing")
	require.Len(t, listing, 1)
	require.Equal(t, healthy, listing[0].Questionnaire.ID)
	require.Len(t, listing[0].Results, 1)
}
