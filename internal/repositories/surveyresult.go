package repositories

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/myrjola/survey/internal/errors"
	"github.com/myrjola/survey/internal/models"
)

type surveyResultRow struct {
	ID              int64  `db:"id"`
	QuestionnaireID int64  `db:"questionnaire_id"`
	QuestionResults string `db:"question_results"`
}

func (row surveyResultRow) surveyResult() (models.SurveyResult, error) {
	r := models.SurveyResult{ID: row.ID, QuestionnaireID: row.QuestionnaireID, QuestionResults: nil}
	if err := json.Unmarshal([]byte(row.QuestionResults), &r.QuestionResults); err != nil {
		return models.SurveyResult{}, corruptRow(err, "decode stored question results",
			slog.Int64("survey_result_id", row.ID))
	}
	if r.QuestionResults == nil {
		r.QuestionResults = []models.QuestionResult{}
	}
	return r, nil
}

// InsertSurveyResult stores r for questionnaire r.QuestionnaireID, ignoring r.ID, and returns the assigned id.
func (g *Gateway) InsertSurveyResult(ctx context.Context, r models.SurveyResult) (int64, error) {
	questionResults := r.QuestionResults
	if questionResults == nil {
		questionResults = []models.QuestionResult{}
	}
	data, err := json.Marshal(questionResults)
	if err != nil {
		return 0, errors.Wrap(errors.Mark(err, models.ErrSerializationFailed), "encode question results")
	}
	row := surveyResultRow{ID: 0, QuestionnaireID: r.QuestionnaireID, QuestionResults: string(data)}
	stmt := `INSERT INTO survey_results (questionnaire_id, question_results) VALUES (:questionnaire_id, :question_results)`
	result, err := g.db.ReadWrite.NamedExecContext(ctx, stmt, row)
	if err != nil {
		if isForeignKeyViolation(err) {
			return 0, errors.Wrap(models.ErrNotFound, "insert survey result for unknown questionnaire",
				slog.Int64("questionnaire_id", r.QuestionnaireID))
		}
		return 0, storeError(err, "insert survey result", slog.Int64("questionnaire_id", r.QuestionnaireID))
	}
	id, err := result.LastInsertId()
	if err != nil {
		return 0, storeError(err, "read survey result id")
	}
	g.changed()
	return id, nil
}

// ListSurveyResults returns the results of questionnaire questionnaireID in submission order.
func (g *Gateway) ListSurveyResults(ctx context.Context, questionnaireID int64) ([]models.SurveyResult, error) {
	var rows []surveyResultRow
	stmt := `SELECT id, questionnaire_id, question_results FROM survey_results WHERE questionnaire_id = ? ORDER BY id`
	if err := g.db.ReadOnly.SelectContext(ctx, &rows, stmt, questionnaireID); err != nil {
		return nil, storeError(err, "list survey results", slog.Int64("questionnaire_id", questionnaireID))
	}
	results := make([]models.SurveyResult, 0, len(rows))
	for _, row := range rows {
		r, err := row.surveyResult()
		if err != nil {
			return nil, err
		}
		results = append(results, r)
	}
	return results, nil
}
