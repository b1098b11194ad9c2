// Package interchange encodes questionnaires for copying between installations through the clipboard or a file.
//
// The document is {title, description, questions}. Identifiers are local to a store: they are left out on export and
// an imported questionnaire is always new.
package interchange

import (
	"encoding/json"

	"github.com/myrjola/survey/internal/errors"
	"github.com/myrjola/survey/internal/models"
)

type document struct {
	Title       string            `json:"title"`
	Description string            `json:"description"`
	Questions   []models.Question `json:"questions"`
}

// Export encodes q without its identifier.
func Export(q models.Questionnaire) ([]byte, error) {
	questions := q.Questions
	if questions == nil {
		questions = []models.Question{}
	}
	data, err := json.Marshal(document{Title: q.Title, Description: q.Description, Questions: questions})
	if err != nil {
		return nil, errors.Wrap(errors.Mark(err, models.ErrSerializationFailed), "export questionnaire")
	}
	return data, nil
}

// Import decodes a questionnaire document. The result has ID 0. Unknown, duplicate or missing keys, trailing data
// and unknown question types fail with [models.ErrSerializationFailed].
//
// An "id" key is tolerated so that full questionnaire payloads are accepted. Its value is discarded.
func Import(data []byte) (models.Questionnaire, error) {
	fields, err := models.DecodeObject(data, []string{"title", "description", "questions"}, "id")
	if err != nil {
		return models.Questionnaire{}, errors.Wrap(err, "import questionnaire")
	}
	if raw, ok := fields["id"]; ok {
		var id *int64
		if err = json.Unmarshal(raw, &id); err != nil {
			return models.Questionnaire{}, errors.Wrap(errors.Mark(err, models.ErrSerializationFailed), "import id")
		}
	}
	q := models.Questionnaire{ID: 0, Title: "", Description: "", Questions: nil}
	if err = models.DecodeValue(fields["title"], &q.Title); err != nil {
		return models.Questionnaire{}, errors.Wrap(err, "import title")
	}
	if err = models.DecodeValue(fields["description"], &q.Description); err != nil {
		return models.Questionnaire{}, errors.Wrap(err, "import description")
	}
	if err = models.DecodeValue(fields["questions"], &q.Questions); err != nil {
		return models.Questionnaire{}, errors.Wrap(err, "import questions")
	}
	if q.Questions == nil {
		q.Questions = []models.Question{}
	}
	return q, nil
}
