// Package design holds the authoring-time state of a questionnaire draft.
package design

import (
	"log/slog"
	"slices"

	"github.com/myrjola/survey/internal/errors"
	"github.com/myrjola/survey/internal/models"
	"github.com/myrjola/survey/internal/observe"
)

// questionDraft is the mutable authoring state of one question. Its type is fixed at creation.
type questionDraft struct {
	questionType models.QuestionType
	text         string
	options      []string
	hint         string
}

func newQuestionDraft(t models.QuestionType) (*questionDraft, error) {
	if !t.Valid() {
		return nil, errors.Wrap(models.ErrUnknownQuestionType, "new question", slog.String("type", string(t)))
	}
	return &questionDraft{questionType: t, text: "", options: []string{}, hint: ""}, nil
}

func draftFromQuestion(q models.Question) *questionDraft {
	d := &questionDraft{questionType: q.Type(), text: q.Text, options: []string{}, hint: ""}
	switch p := q.PossibleAnswer.(type) {
	case models.SingleChoiceOptions:
		d.options = append(d.options, p.Options...)
	case models.MultipleChoiceOptions:
		d.options = append(d.options, p.Options...)
	case models.BlankHint:
		d.hint = p.HintText()
	}
	return d
}

func (d *questionDraft) copy() *questionDraft {
	c := *d
	c.options = append([]string{}, d.options...)
	return &c
}

func (d *questionDraft) question() models.Question {
	var possibleAnswer models.PossibleAnswer
	switch d.questionType {
	case models.QuestionTypeSingleChoice:
		possibleAnswer = models.NewSingleChoice(d.options...)
	case models.QuestionTypeMultipleChoice:
		possibleAnswer = models.NewMultipleChoice(d.options...)
	case models.QuestionTypeBlank:
		possibleAnswer = models.NewBlank(d.hint)
	}
	return models.Question{Text: d.text, PossibleAnswer: possibleAnswer}
}

// Session is the mutable draft of one questionnaire.
//
// A Session has a single owner and is not safe for concurrent use. Every successful mutation bumps [Session.Version]
// and notifies the subscribers before returning. Failed operations leave the draft untouched.
type Session struct {
	id          int64
	title       string
	description string
	questions   []*questionDraft
	notifier    observe.Notifier
}

// New returns an empty draft for the questionnaire with the given id.
func New(id int64) *Session {
	return &Session{id: id, title: "", description: "", questions: nil, notifier: observe.Notifier{}}
}

// FromQuestionnaire returns an editable copy of q.
func FromQuestionnaire(q models.Questionnaire) *Session {
	s := New(q.ID)
	s.title = q.Title
	s.description = q.Description
	for _, question := range q.Questions {
		s.questions = append(s.questions, draftFromQuestion(question))
	}
	return s
}

func (s *Session) ID() int64           { return s.id }
func (s *Session) Title() string       { return s.title }
func (s *Session) Description() string { return s.description }
func (s *Session) Len() int            { return len(s.questions) }

// Question returns a snapshot of the question at index i.
func (s *Session) Question(i int) (models.Question, error) {
	if err := s.checkIndex(i); err != nil {
		return models.Question{}, err
	}
	return s.questions[i].question(), nil
}

// Questions returns a snapshot of all questions in order.
func (s *Session) Questions() []models.Question {
	questions := make([]models.Question, len(s.questions))
	for i, d := range s.questions {
		questions[i] = d.question()
	}
	return questions
}

// Version returns the number of successful mutations.
func (s *Session) Version() uint64 {
	return s.notifier.Version()
}

// Subscribe registers fn to be called after each successful mutation.
func (s *Session) Subscribe(fn func(version uint64)) (cancel func()) {
	return s.notifier.Subscribe(fn)
}

// AddQuestion appends an empty question of type t and returns its index.
func (s *Session) AddQuestion(t models.QuestionType) (int, error) {
	if err := s.InsertQuestion(t, len(s.questions)); err != nil {
		return 0, err
	}
	return len(s.questions) - 1, nil
}

// InsertQuestion inserts an empty question of type t at index, 0 ≤ index ≤ Len.
func (s *Session) InsertQuestion(t models.QuestionType, index int) error {
	if index < 0 || index > len(s.questions) {
		return errors.Wrap(models.ErrOutOfRange, "insert question",
			slog.Int("index", index), slog.Int("len", len(s.questions)))
	}
	d, err := newQuestionDraft(t)
	if err != nil {
		return err
	}
	s.questions = slices.Insert(s.questions, index, d)
	s.notifier.Changed()
	return nil
}

// Duplicate inserts a deep copy of the question at index i right after it.
func (s *Session) Duplicate(i int) error {
	if err := s.checkIndex(i); err != nil {
		return err
	}
	s.questions = slices.Insert(s.questions, i+1, s.questions[i].copy())
	s.notifier.Changed()
	return nil
}

// Move swaps the questions at a and b. Calling it twice with the same arguments restores the original order.
func (s *Session) Move(a, b int) error {
	if err := s.checkIndex(a); err != nil {
		return err
	}
	if err := s.checkIndex(b); err != nil {
		return err
	}
	s.questions[a], s.questions[b] = s.questions[b], s.questions[a]
	s.notifier.Changed()
	return nil
}

// Remove deletes the question at index i. Later questions shift down by one so positions held by the caller for
// them are no longer valid.
func (s *Session) Remove(i int) error {
	if err := s.checkIndex(i); err != nil {
		return err
	}
	s.questions = slices.Delete(s.questions, i, i+1)
	s.notifier.Changed()
	return nil
}

func (s *Session) SetTitle(title string) {
	s.title = title
	s.notifier.Changed()
}

func (s *Session) SetDescription(description string) {
	s.description = description
	s.notifier.Changed()
}

// SetQuestionText replaces the prompt of question i.
func (s *Session) SetQuestionText(i int, text string) error {
	if err := s.checkIndex(i); err != nil {
		return err
	}
	s.questions[i].text = text
	s.notifier.Changed()
	return nil
}

// AddOption appends an empty option to choice question q and returns the option index.
func (s *Session) AddOption(q int) (int, error) {
	d, err := s.choiceDraft(q)
	if err != nil {
		return 0, err
	}
	d.options = append(d.options, "")
	s.notifier.Changed()
	return len(d.options) - 1, nil
}

// SetOption replaces option o of choice question q.
func (s *Session) SetOption(q, o int, text string) error {
	d, err := s.choiceDraft(q)
	if err != nil {
		return err
	}
	if err = checkOption(d, o); err != nil {
		return err
	}
	d.options[o] = text
	s.notifier.Changed()
	return nil
}

// RemoveOption deletes option o of choice question q.
func (s *Session) RemoveOption(q, o int) error {
	d, err := s.choiceDraft(q)
	if err != nil {
		return err
	}
	if err = checkOption(d, o); err != nil {
		return err
	}
	d.options = slices.Delete(d.options, o, o+1)
	s.notifier.Changed()
	return nil
}

// SetHint replaces the hint of Blank question q. The empty string means no hint.
func (s *Session) SetHint(q int, hint string) error {
	if err := s.checkIndex(q); err != nil {
		return err
	}
	d := s.questions[q]
	if d.questionType != models.QuestionTypeBlank {
		return errors.Wrap(models.ErrAnswerMismatch, "set hint on choice question",
			slog.Int("question", q), slog.String("type", string(d.questionType)))
	}
	d.hint = hint
	s.notifier.Changed()
	return nil
}

// Commit returns an immutable snapshot of the draft. It does not validate; see [Session.Validate].
func (s *Session) Commit() models.Questionnaire {
	return models.Questionnaire{
		ID:          s.id,
		Title:       s.title,
		Description: s.description,
		Questions:   s.Questions(),
	}
}

func (s *Session) checkIndex(i int) error {
	if i < 0 || i >= len(s.questions) {
		return errors.Wrap(models.ErrOutOfRange, "question index", slog.Int("index", i), slog.Int("len", len(s.questions)))
	}
	return nil
}

func (s *Session) choiceDraft(q int) (*questionDraft, error) {
	if err := s.checkIndex(q); err != nil {
		return nil, err
	}
	d := s.questions[q]
	if d.questionType == models.QuestionTypeBlank {
		return nil, errors.Wrap(models.ErrAnswerMismatch, "edit options of blank question", slog.Int("question", q))
	}
	return d, nil
}

func checkOption(d *questionDraft, o int) error {
	if o < 0 || o >= len(d.options) {
		return errors.Wrap(models.ErrOutOfRange, "option index", slog.Int("index", o), slog.Int("len", len(d.options)))
	}
	return nil
}

