// Package overview opens design and survey sessions on stored questionnaires and hands their snapshots back to the
// store.
package overview

import (
	"context"
	"log/slog"

	"github.com/myrjola/survey/internal/autosave"
	"github.com/myrjola/survey/internal/design"
	"github.com/myrjola/survey/internal/errors"
	"github.com/myrjola/survey/internal/interchange"
	"github.com/myrjola/survey/internal/models"
	"github.com/myrjola/survey/internal/results"
	"github.com/myrjola/survey/internal/survey"
)

// Gateway is the durable store of questionnaires and survey results.
type Gateway interface {
	CreateQuestionnaire(ctx context.Context) (int64, error)
	InsertQuestionnaire(ctx context.Context, q models.Questionnaire) (int64, error)
	UpdateQuestionnaire(ctx context.Context, q models.Questionnaire) error
	DeleteQuestionnaire(ctx context.Context, id int64) error
	GetQuestionnaire(ctx context.Context, id int64) (models.Questionnaire, error)
	ListQuestionnairesWithResults(ctx context.Context) ([]models.QuestionnaireWithResults, error)
	WatchQuestionnairesWithResults(ctx context.Context) <-chan []models.QuestionnaireWithResults
	InsertSurveyResult(ctx context.Context, r models.SurveyResult) (int64, error)
	ListSurveyResults(ctx context.Context, questionnaireID int64) ([]models.SurveyResult, error)
}

// Saver runs saves in the background.
type Saver interface {
	Enqueue(job autosave.Job)
}

type Service struct {
	gateway Gateway
	saver   Saver
	logger  *slog.Logger
}

func NewService(gateway Gateway, saver Saver, logger *slog.Logger) *Service {
	return &Service{
		gateway: gateway,
		saver:   saver,
		logger:  logger.With("source", "Overview"),
	}
}

// NewDesign stores a new empty questionnaire and opens a design session on it.
func (s *Service) NewDesign(ctx context.Context) (*design.Session, error) {
	id, err := s.gateway.CreateQuestionnaire(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "create questionnaire")
	}
	s.logger.LogAttrs(ctx, slog.LevelInfo, "created questionnaire", slog.Int64("questionnaire_id", id))
	return design.New(id), nil
}

// EditDesign opens a design session on the stored questionnaire id.
func (s *Service) EditDesign(ctx context.Context, id int64) (*design.Session, error) {
	q, err := s.gateway.GetQuestionnaire(ctx, id)
	if err != nil {
		return nil, errors.Wrap(err, "load questionnaire for editing", slog.Int64("questionnaire_id", id))
	}
	return design.FromQuestionnaire(q), nil
}

// FinishDesign commits the draft and schedules saving it. A draft that fails validation is not committed and the
// returned error is a *design.ValidationError.
func (s *Service) FinishDesign(ctx context.Context, session *design.Session) (models.Questionnaire, error) {
	q, err := session.ValidatedCommit()
	if err != nil {
		return models.Questionnaire{}, errors.Wrap(err, "commit design", slog.Int64("questionnaire_id", session.ID()))
	}
	s.saver.Enqueue(autosave.Job{
		Name:  "update questionnaire",
		Attrs: []slog.Attr{slog.Int64("questionnaire_id", q.ID)},
		Save: func(ctx context.Context) error {
			return s.gateway.UpdateQuestionnaire(ctx, q)
		},
	})
	return q, nil
}

// StartSurvey opens a survey session on the stored questionnaire id. Questionnaires without questions are refused
// with models.ErrEmptyQuestionnaire.
func (s *Service) StartSurvey(ctx context.Context, id int64) (*survey.Session, error) {
	q, err := s.gateway.GetQuestionnaire(ctx, id)
	if err != nil {
		return nil, errors.Wrap(err, "load questionnaire for survey", slog.Int64("questionnaire_id", id))
	}
	if len(q.Questions) == 0 {
		return nil, errors.Wrap(models.ErrEmptyQuestionnaire, "start survey", slog.Int64("questionnaire_id", id))
	}
	session, err := survey.New(q)
	if err != nil {
		return nil, errors.Wrap(err, "start survey", slog.Int64("questionnaire_id", id))
	}
	return session, nil
}

// SubmitSurvey submits the session and schedules saving the result.
func (s *Service) SubmitSurvey(ctx context.Context, session *survey.Session) (models.SurveyResult, error) {
	result, err := session.Submit()
	if err != nil {
		return models.SurveyResult{}, errors.Wrap(err, "submit survey")
	}
	s.logger.LogAttrs(ctx, slog.LevelInfo, "survey submitted", slog.Int64("questionnaire_id", result.QuestionnaireID))
	s.saver.Enqueue(autosave.Job{
		Name:  "insert survey result",
		Attrs: []slog.Attr{slog.Int64("questionnaire_id", result.QuestionnaireID)},
		Save: func(ctx context.Context) error {
			_, saveErr := s.gateway.InsertSurveyResult(ctx, result)
			return saveErr
		},
	})
	return result, nil
}

// Import decodes an interchange document and stores it as a new questionnaire. Nothing is stored when decoding fails.
func (s *Service) Import(ctx context.Context, data []byte) (int64, error) {
	q, err := interchange.Import(data)
	if err != nil {
		return 0, errors.Wrap(err, "import questionnaire")
	}
	id, err := s.gateway.InsertQuestionnaire(ctx, q)
	if err != nil {
		return 0, errors.Wrap(err, "store imported questionnaire")
	}
	s.logger.LogAttrs(ctx, slog.LevelInfo, "imported questionnaire", slog.Int64("questionnaire_id", id))
	return id, nil
}

// Export encodes the stored questionnaire id as an interchange document.
func (s *Service) Export(ctx context.Context, id int64) ([]byte, error) {
	q, err := s.gateway.GetQuestionnaire(ctx, id)
	if err != nil {
		return nil, errors.Wrap(err, "load questionnaire for export", slog.Int64("questionnaire_id", id))
	}
	data, err := interchange.Export(q)
	if err != nil {
		return nil, errors.Wrap(err, "export questionnaire", slog.Int64("questionnaire_id", id))
	}
	return data, nil
}

// Get returns the stored questionnaire id.
func (s *Service) Get(ctx context.Context, id int64) (models.Questionnaire, error) {
	q, err := s.gateway.GetQuestionnaire(ctx, id)
	if err != nil {
		return models.Questionnaire{}, errors.Wrap(err, "get questionnaire", slog.Int64("questionnaire_id", id))
	}
	return q, nil
}

// Delete removes the questionnaire and its results.
func (s *Service) Delete(ctx context.Context, id int64) error {
	if err := s.gateway.DeleteQuestionnaire(ctx, id); err != nil {
		return errors.Wrap(err, "delete questionnaire", slog.Int64("questionnaire_id", id))
	}
	s.logger.LogAttrs(ctx, slog.LevelInfo, "deleted questionnaire", slog.Int64("questionnaire_id", id))
	return nil
}

// List returns the current questionnaire listing.
func (s *Service) List(ctx context.Context) ([]models.QuestionnaireWithResults, error) {
	listing, err := s.gateway.ListQuestionnairesWithResults(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "list questionnaires")
	}
	return listing, nil
}

// Watch streams the questionnaire listing until ctx is done.
func (s *Service) Watch(ctx context.Context) <-chan []models.QuestionnaireWithResults {
	return s.gateway.WatchQuestionnairesWithResults(ctx)
}

// Submission is one survey result resolved against the current questionnaire.
type Submission struct {
	ID      int64                `json:"id"`
	Answers []results.Resolution `json:"answers"`
	// Problem explains why the answers could not be resolved, typically because the questionnaire was edited after
	// the submission.
	Problem string `json:"problem,omitempty"`
}

// Results returns questionnaire id with its submissions resolved to readable answers.
func (s *Service) Results(ctx context.Context, id int64) (models.Questionnaire, []Submission, error) {
	q, err := s.gateway.GetQuestionnaire(ctx, id)
	if err != nil {
		return models.Questionnaire{}, nil, errors.Wrap(err, "load questionnaire", slog.Int64("questionnaire_id", id))
	}
	stored, err := s.gateway.ListSurveyResults(ctx, id)
	if err != nil {
		return models.Questionnaire{}, nil, errors.Wrap(err, "load results", slog.Int64("questionnaire_id", id))
	}
	submissions := make([]Submission, 0, len(stored))
	for _, sr := range stored {
		submission := Submission{ID: sr.ID, Answers: []results.Resolution{}, Problem: ""}
		answers, describeErr := results.Describe(q, sr)
		if describeErr != nil {
			s.logger.LogAttrs(ctx, slog.LevelWarn, "stale survey result", errors.SlogError(describeErr))
			submission.Problem = describeErr.Error()
		} else {
			submission.Answers = answers
		}
		submissions = append(submissions, submission)
	}
	return q, submissions, nil
}
