package models

import (
	"slices"
)

// Answer is a respondent's value for one question. Its variant mirrors the [PossibleAnswer] it answers:
// [SingleChoiceAnswer], [MultipleChoiceAnswer] or [BlankAnswer]. Use [Question.Accepts] to check a pairing.
type Answer interface {
	Type() QuestionType
	// Copy returns an independent deep copy.
	Copy() Answer
	isAnswer()
}

// SingleChoiceAnswer selects one option by its position.
type SingleChoiceAnswer struct {
	SelectedIndex int
}

// MultipleChoiceAnswer selects a set of options.
type MultipleChoiceAnswer struct {
	// SelectedIndices is a set. [NewMultipleChoiceAnswer] builds the canonical form: sorted, free of duplicates and
	// never nil. Encoding writes the canonical form, so a literal in any other form decodes to its canonical
	// equivalent rather than to an identical value.
	SelectedIndices []int
}

// BlankAnswer is free text.
type BlankAnswer struct {
	Text string
}

// NewMultipleChoiceAnswer returns the set of indices as a sorted, de-duplicated answer.
func NewMultipleChoiceAnswer(indices ...int) MultipleChoiceAnswer {
	set := make([]int, len(indices))
	copy(set, indices)
	slices.Sort(set)
	return MultipleChoiceAnswer{SelectedIndices: slices.Compact(set)}
}

func (SingleChoiceAnswer) Type() QuestionType   { return QuestionTypeSingleChoice }
func (MultipleChoiceAnswer) Type() QuestionType { return QuestionTypeMultipleChoice }
func (BlankAnswer) Type() QuestionType          { return QuestionTypeBlank }

func (a SingleChoiceAnswer) Copy() Answer { return a }

func (a MultipleChoiceAnswer) Copy() Answer {
	return NewMultipleChoiceAnswer(a.SelectedIndices...)
}

func (a BlankAnswer) Copy() Answer { return a }

// Selected reports whether index i is part of the selection.
func (a MultipleChoiceAnswer) Selected(i int) bool {
	_, found := slices.BinarySearch(a.SelectedIndices, i)
	return found
}

func (SingleChoiceAnswer) isAnswer()   {}
func (MultipleChoiceAnswer) isAnswer() {}
func (BlankAnswer) isAnswer()          {}

// CopyAnswer copies a, preserving nil.
func CopyAnswer(a Answer) Answer {
	if a == nil {
		return nil
	}
	return a.Copy()
}
