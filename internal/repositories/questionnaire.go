package repositories

import (
	"context"
	"database/sql"
	"encoding/json"
	"log/slog"

	"github.com/jmoiron/sqlx"
	"github.com/myrjola/survey/internal/errors"
	"github.com/myrjola/survey/internal/models"
)

type questionnaireRow struct {
	ID          int64  `db:"id"`
	Title       string `db:"title"`
	Description string `db:"description"`
	// Questions is the JSON array of questions. STRICT tables reject BLOBs in TEXT columns so it is kept a string.
	Questions string `db:"questions"`
}

func newQuestionnaireRow(q models.Questionnaire) (questionnaireRow, error) {
	questions := q.Questions
	if questions == nil {
		questions = []models.Question{}
	}
	data, err := json.Marshal(questions)
	if err != nil {
		return questionnaireRow{}, errors.Wrap(errors.Mark(err, models.ErrSerializationFailed), "encode questions")
	}
	return questionnaireRow{ID: q.ID, Title: q.Title, Description: q.Description, Questions: string(data)}, nil
}

func (row questionnaireRow) questionnaire() (models.Questionnaire, error) {
	q := models.Questionnaire{ID: row.ID, Title: row.Title, Description: row.Description, Questions: nil}
	if err := json.Unmarshal([]byte(row.Questions), &q.Questions); err != nil {
		return models.Questionnaire{}, corruptRow(err, "decode stored questions", slog.Int64("questionnaire_id", row.ID))
	}
	if q.Questions == nil {
		q.Questions = []models.Question{}
	}
	return q, nil
}

// CreateQuestionnaire stores an empty questionnaire and returns its id.
func (g *Gateway) CreateQuestionnaire(ctx context.Context) (int64, error) {
	return g.InsertQuestionnaire(ctx, models.Questionnaire{ID: 0, Title: "", Description: "", Questions: nil})
}

// InsertQuestionnaire stores q as a new questionnaire, ignoring q.ID, and returns the assigned id.
func (g *Gateway) InsertQuestionnaire(ctx context.Context, q models.Questionnaire) (int64, error) {
	row, err := newQuestionnaireRow(q)
	if err != nil {
		return 0, err
	}
	stmt := `INSERT INTO questionnaires (title, description, questions) VALUES (:title, :description, :questions)`
	result, err := g.db.ReadWrite.NamedExecContext(ctx, stmt, row)
	if err != nil {
		return 0, storeError(err, "insert questionnaire")
	}
	id, err := result.LastInsertId()
	if err != nil {
		return 0, storeError(err, "read questionnaire id")
	}
	g.changed()
	return id, nil
}

// UpdateQuestionnaire overwrites the stored questionnaire with id q.ID. Saving the same snapshot twice is harmless.
func (g *Gateway) UpdateQuestionnaire(ctx context.Context, q models.Questionnaire) error {
	row, err := newQuestionnaireRow(q)
	if err != nil {
		return err
	}
	stmt := `UPDATE questionnaires SET title = :title, description = :description, questions = :questions
WHERE id = :id`
	result, err := g.db.ReadWrite.NamedExecContext(ctx, stmt, row)
	if err != nil {
		return storeError(err, "update questionnaire", slog.Int64("questionnaire_id", q.ID))
	}
	if err = requireAffected(result, q.ID); err != nil {
		return err
	}
	g.changed()
	return nil
}

// DeleteQuestionnaire removes the questionnaire and its survey results.
func (g *Gateway) DeleteQuestionnaire(ctx context.Context, id int64) (err error) {
	var tx *sqlx.Tx
	if tx, err = g.db.ReadWrite.BeginTxx(ctx, nil); err != nil {
		return storeError(err, "begin transaction")
	}
	defer func() {
		if rollbackErr := tx.Rollback(); rollbackErr != nil && !errors.Is(rollbackErr, sql.ErrTxDone) {
			g.logger.LogAttrs(ctx, slog.LevelError, "failed to rollback transaction",
				errors.SlogError(errors.Wrap(rollbackErr, "rollback")))
		}
	}()

	// The foreign key cascades too. The explicit delete also covers databases opened without foreign key enforcement.
	if _, err = tx.ExecContext(ctx, `DELETE FROM survey_results WHERE questionnaire_id = ?`, id); err != nil {
		return storeError(err, "delete survey results", slog.Int64("questionnaire_id", id))
	}
	var result sql.Result
	if result, err = tx.ExecContext(ctx, `DELETE FROM questionnaires WHERE id = ?`, id); err != nil {
		return storeError(err, "delete questionnaire", slog.Int64("questionnaire_id", id))
	}
	if err = requireAffected(result, id); err != nil {
		return err
	}
	if err = tx.Commit(); err != nil {
		return storeError(err, "commit transaction")
	}
	g.changed()
	return nil
}

// GetQuestionnaire returns the questionnaire with id or ErrNotFound.
func (g *Gateway) GetQuestionnaire(ctx context.Context, id int64) (models.Questionnaire, error) {
	var row questionnaireRow
	stmt := `SELECT id, title, description, questions FROM questionnaires WHERE id = ?`
	if err := g.db.ReadOnly.GetContext(ctx, &row, stmt, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.Questionnaire{}, errors.Wrap(models.ErrNotFound, "get questionnaire",
				slog.Int64("questionnaire_id", id))
		}
		return models.Questionnaire{}, storeError(err, "get questionnaire", slog.Int64("questionnaire_id", id))
	}
	return row.questionnaire()
}

// ListQuestionnairesWithResults returns every questionnaire with its survey results, ordered by id. Rows that no
// longer decode are logged and left out.
func (g *Gateway) ListQuestionnairesWithResults(ctx context.Context) ([]models.QuestionnaireWithResults, error) {
	var questionnaireRows []questionnaireRow
	if err := g.db.ReadOnly.SelectContext(ctx, &questionnaireRows,
		`SELECT id, title, description, questions FROM questionnaires ORDER BY id`); err != nil {
		return nil, storeError(err, "list questionnaires")
	}
	var resultRows []surveyResultRow
	if err := g.db.ReadOnly.SelectContext(ctx, &resultRows,
		`SELECT id, questionnaire_id, question_results FROM survey_results ORDER BY questionnaire_id, id`); err != nil {
		return nil, storeError(err, "list survey results")
	}

	// A row that no longer decodes is left out of the listing so that the rest stays visible.
	resultsByQuestionnaire := make(map[int64][]models.SurveyResult, len(questionnaireRows))
	for _, row := range resultRows {
		result, err := row.surveyResult()
		if err != nil {
			g.logger.LogAttrs(ctx, slog.LevelError, "skipping corrupt survey result", errors.SlogError(err))
			continue
		}
		resultsByQuestionnaire[row.QuestionnaireID] = append(resultsByQuestionnaire[row.QuestionnaireID], result)
	}

	listing := make([]models.QuestionnaireWithResults, 0, len(questionnaireRows))
	for _, row := range questionnaireRows {
		q, err := row.questionnaire()
		if err != nil {
			g.logger.LogAttrs(ctx, slog.LevelError, "skipping corrupt questionnaire", errors.SlogError(err))
			continue
		}
		results := resultsByQuestionnaire[q.ID]
		if results == nil {
			results = []models.SurveyResult{}
		}
		listing = append(listing, models.QuestionnaireWithResults{Questionnaire: q, Results: results})
	}
	return listing, nil
}

func requireAffected(result sql.Result, id int64) error {
	affected, err := result.RowsAffected()
	if err != nil {
		return storeError(err, "read affected rows")
	}
	if affected == 0 {
		return errors.Wrap(models.ErrNotFound, "no questionnaire", slog.Int64("questionnaire_id", id))
	}
	return nil
}
