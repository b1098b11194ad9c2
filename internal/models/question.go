package models

import (
	"github.com/myrjola/survey/internal/errors"
	"log/slog"
	"slices"
)

// QuestionType is the discriminant shared by [PossibleAnswer] and [Answer] variants.
type QuestionType string

const (
	QuestionTypeSingleChoice   QuestionType = "SingleChoice"
	QuestionTypeMultipleChoice QuestionType = "MultipleChoice"
	QuestionTypeBlank          QuestionType = "Blank"
)

// QuestionTypes lists the known question types in presentation order.
var QuestionTypes = []QuestionType{QuestionTypeSingleChoice, QuestionTypeMultipleChoice, QuestionTypeBlank}

// ParseQuestionType returns the QuestionType named s or ErrUnknownQuestionType.
func ParseQuestionType(s string) (QuestionType, error) {
	t := QuestionType(s)
	if !t.Valid() {
		return "", errors.Wrap(ErrUnknownQuestionType, "parse question type", slog.String("type", s))
	}
	return t, nil
}

// Valid reports whether t is one of the known question types.
func (t QuestionType) Valid() bool {
	return slices.Contains(QuestionTypes, t)
}

// PossibleAnswer is the answer shape a question accepts. The variants are [SingleChoiceOptions],
// [MultipleChoiceOptions] and [BlankHint].
type PossibleAnswer interface {
	Type() QuestionType
	// Copy returns an independent deep copy.
	Copy() PossibleAnswer
	isPossibleAnswer()
}

// SingleChoiceOptions lets the respondent pick exactly one option. Duplicate options are allowed.
type SingleChoiceOptions struct {
	// Options is never nil when built with [NewSingleChoice]. A nil list encodes as [] and decodes as an empty list.
	Options []string
}

// MultipleChoiceOptions lets the respondent pick any subset of the options.
type MultipleChoiceOptions struct {
	// Options is never nil when built with [NewMultipleChoice]. A nil list encodes as [] and decodes as an empty list.
	Options []string
}

// BlankHint asks for free text. A nil Hint means no hint is shown.
type BlankHint struct {
	Hint *string
}

// NewSingleChoice returns a SingleChoiceOptions owning a copy of options.
func NewSingleChoice(options ...string) SingleChoiceOptions {
	return SingleChoiceOptions{Options: copyOptions(options)}
}

// NewMultipleChoice returns a MultipleChoiceOptions owning a copy of options.
func NewMultipleChoice(options ...string) MultipleChoiceOptions {
	return MultipleChoiceOptions{Options: copyOptions(options)}
}

// NewBlank returns a BlankHint. An empty hint is stored as no hint.
func NewBlank(hint string) BlankHint {
	if hint == "" {
		return BlankHint{Hint: nil}
	}
	return BlankHint{Hint: &hint}
}

// NewPossibleAnswer returns the empty answer shape for t.
func NewPossibleAnswer(t QuestionType) (PossibleAnswer, error) {
	switch t {
	case QuestionTypeSingleChoice:
		return NewSingleChoice(), nil
	case QuestionTypeMultipleChoice:
		return NewMultipleChoice(), nil
	case QuestionTypeBlank:
		return NewBlank(""), nil
	}
	return nil, errors.Wrap(ErrUnknownQuestionType, "new possible answer", slog.String("type", string(t)))
}

func (SingleChoiceOptions) Type() QuestionType   { return QuestionTypeSingleChoice }
func (MultipleChoiceOptions) Type() QuestionType { return QuestionTypeMultipleChoice }
func (BlankHint) Type() QuestionType             { return QuestionTypeBlank }

func (p SingleChoiceOptions) Copy() PossibleAnswer {
	return SingleChoiceOptions{Options: copyOptions(p.Options)}
}

func (p MultipleChoiceOptions) Copy() PossibleAnswer {
	return MultipleChoiceOptions{Options: copyOptions(p.Options)}
}

func (p BlankHint) Copy() PossibleAnswer {
	if p.Hint == nil {
		return BlankHint{Hint: nil}
	}
	hint := *p.Hint
	return BlankHint{Hint: &hint}
}

func (SingleChoiceOptions) isPossibleAnswer()   {}
func (MultipleChoiceOptions) isPossibleAnswer() {}
func (BlankHint) isPossibleAnswer()             {}

// HintText returns the hint or the empty string when there is none.
func (p BlankHint) HintText() string {
	if p.Hint == nil {
		return ""
	}
	return *p.Hint
}

// copyOptions never returns nil so that an empty option list survives a JSON round trip unchanged.
func copyOptions(options []string) []string {
	dst := make([]string, len(options))
	copy(dst, options)
	return dst
}

// Options returns the option list of a choice answer shape and false for [BlankHint].
func Options(p PossibleAnswer) ([]string, bool) {
	switch v := p.(type) {
	case SingleChoiceOptions:
		return v.Options, true
	case MultipleChoiceOptions:
		return v.Options, true
	default:
		return nil, false
	}
}

// Question is one prompt plus the shape of answers it accepts. Its type is derived from PossibleAnswer.
type Question struct {
	Text           string
	PossibleAnswer PossibleAnswer
}

// Type returns the discriminant of q's answer shape.
func (q Question) Type() QuestionType {
	if q.PossibleAnswer == nil {
		return ""
	}
	return q.PossibleAnswer.Type()
}

// Copy returns an independent deep copy of q.
func (q Question) Copy() Question {
	c := Question{Text: q.Text, PossibleAnswer: nil}
	if q.PossibleAnswer != nil {
		c.PossibleAnswer = q.PossibleAnswer.Copy()
	}
	return c
}

// Accepts checks that a answers q: the variants must match and every selected index must address an option.
func (q Question) Accepts(a Answer) error {
	if a == nil {
		return errors.Wrap(ErrAnswerMismatch, "nil answer")
	}
	if a.Type() != q.Type() {
		return errors.Wrap(ErrAnswerMismatch, "check answer",
			slog.String("question_type", string(q.Type())),
			slog.String("answer_type", string(a.Type())))
	}
	options, _ := Options(q.PossibleAnswer)
	switch v := a.(type) {
	case SingleChoiceAnswer:
		if v.SelectedIndex < 0 || v.SelectedIndex >= len(options) {
			return errors.Wrap(ErrOutOfRange, "selected option",
				slog.Int("index", v.SelectedIndex), slog.Int("options", len(options)))
		}
	case MultipleChoiceAnswer:
		for _, i := range v.SelectedIndices {
			if i < 0 || i >= len(options) {
				return errors.Wrap(ErrOutOfRange, "selected options",
					slog.Int("index", i), slog.Int("options", len(options)))
			}
		}
	case BlankAnswer:
	}
	return nil
}
