// Package survey walks a respondent through a questionnaire one question at a time.
package survey

import (
	"log/slog"

	"github.com/myrjola/survey/internal/errors"
	"github.com/myrjola/survey/internal/models"
	"github.com/myrjola/survey/internal/observe"
)

type slot struct {
	answer     models.Answer
	canProceed bool
}

// Session is the traversal state of one respondent. The cursor stays within [0, Len-1] and only moves forward past
// an answered question. After [Session.Submit] the session is terminal and every mutation fails with
// [models.ErrInvalidTransition].
//
// A Session has a single owner and is not safe for concurrent use.
type Session struct {
	questionnaire models.Questionnaire
	slots         []slot
	current       int
	submitted     bool
	notifier      observe.Notifier
}

// New starts a session at the first question of q. A questionnaire without questions is rejected with
// [models.ErrEmptyQuestionnaire].
func New(q models.Questionnaire) (*Session, error) {
	if len(q.Questions) == 0 {
		return nil, errors.Wrap(models.ErrEmptyQuestionnaire, "start survey", slog.Int64("questionnaire_id", q.ID))
	}
	return &Session{
		questionnaire: q.Copy(),
		slots:         make([]slot, len(q.Questions)),
		current:       0,
		submitted:     false,
		notifier:      observe.Notifier{},
	}, nil
}

// Questionnaire returns a copy of the questionnaire being answered.
func (s *Session) Questionnaire() models.Questionnaire { return s.questionnaire.Copy() }

func (s *Session) Len() int          { return len(s.slots) }
func (s *Session) CurrentIndex() int { return s.current }
func (s *Session) IsFirst() bool     { return s.current == 0 }
func (s *Session) IsLast() bool      { return s.current == len(s.slots)-1 }
func (s *Session) Submitted() bool   { return s.submitted }

// Current returns the question under the cursor.
func (s *Session) Current() models.Question {
	return s.questionnaire.Questions[s.current].Copy()
}

// CanProceed reports whether an answer has been recorded for position.
func (s *Session) CanProceed(position int) bool {
	if position < 0 || position >= len(s.slots) {
		return false
	}
	return s.slots[position].canProceed
}

// StoredAnswer returns the answer recorded for position or nil.
func (s *Session) StoredAnswer(position int) models.Answer {
	if position < 0 || position >= len(s.slots) {
		return nil
	}
	return models.CopyAnswer(s.slots[position].answer)
}

// Version returns the number of successful transitions.
func (s *Session) Version() uint64 {
	return s.notifier.Version()
}

// Subscribe registers fn to be called after each successful transition.
func (s *Session) Subscribe(fn func(version uint64)) (cancel func()) {
	return s.notifier.Subscribe(fn)
}

// Answer records a for the question at position without moving the cursor. The answer must match the question's
// type and address existing options.
func (s *Session) Answer(position int, a models.Answer) error {
	if err := s.checkActive("answer"); err != nil {
		return err
	}
	if position < 0 || position >= len(s.slots) {
		return errors.Wrap(models.ErrOutOfRange, "answer position",
			slog.Int("position", position), slog.Int("len", len(s.slots)))
	}
	if err := s.questionnaire.Questions[position].Accepts(a); err != nil {
		return errors.Wrap(err, "answer", slog.Int("position", position))
	}
	s.slots[position] = slot{answer: a.Copy(), canProceed: true}
	s.notifier.Changed()
	return nil
}

// Next advances the cursor. The current question must be answered and must not be the last one.
func (s *Session) Next() error {
	if err := s.checkActive("next"); err != nil {
		return err
	}
	if !s.slots[s.current].canProceed {
		return errors.Wrap(models.ErrInvalidTransition, "next: current question unanswered", slog.Int("position", s.current))
	}
	if s.IsLast() {
		return errors.Wrap(models.ErrInvalidTransition, "next: already at last question", slog.Int("position", s.current))
	}
	s.current++
	s.notifier.Changed()
	return nil
}

// Previous moves the cursor back. At the first question it does nothing.
func (s *Session) Previous() error {
	if err := s.checkActive("previous"); err != nil {
		return err
	}
	if s.current == 0 {
		return nil
	}
	s.current--
	s.notifier.Changed()
	return nil
}

// Submit ends the session from the answered last question and returns the result. QuestionResults mirror the
// questionnaire's order with one entry per question.
func (s *Session) Submit() (models.SurveyResult, error) {
	if err := s.checkActive("submit"); err != nil {
		return models.SurveyResult{}, err
	}
	if !s.IsLast() {
		return models.SurveyResult{}, errors.Wrap(models.ErrInvalidTransition, "submit before last question",
			slog.Int("position", s.current))
	}
	if !s.slots[s.current].canProceed {
		return models.SurveyResult{}, errors.Wrap(models.ErrInvalidTransition, "submit: last question unanswered")
	}
	results := make([]models.QuestionResult, len(s.slots))
	for i, sl := range s.slots {
		results[i] = models.QuestionResult{
			QuestionID: i,
			Type:       s.questionnaire.Questions[i].Type(),
			Answer:     models.CopyAnswer(sl.answer),
		}
	}
	s.submitted = true
	s.notifier.Changed()
	return models.SurveyResult{ID: 0, QuestionnaireID: s.questionnaire.ID, QuestionResults: results}, nil
}

func (s *Session) checkActive(op string) error {
	if s.submitted {
		return errors.Wrap(models.ErrInvalidTransition, "session already submitted", slog.String("op", op))
	}
	return nil
}
