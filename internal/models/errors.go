package models

import "github.com/myrjola/survey/internal/errors"

// Error taxonomy shared by the sessions, the overview and the persistence gateway. Match with errors.Is.
var (
	// ErrOutOfRange is returned by index-based operations given an invalid index.
	ErrOutOfRange = errors.NewSentinel("index out of range")
	// ErrInvalidTransition is returned when a survey session transition is not allowed in its current state.
	ErrInvalidTransition = errors.NewSentinel("invalid transition")
	// ErrValidationFailed is returned when a questionnaire draft is not ready to be committed.
	ErrValidationFailed = errors.NewSentinel("validation failed")
	// ErrSerializationFailed is returned when a payload does not conform to the JSON schema.
	ErrSerializationFailed = errors.NewSentinel("serialization failed")
	// ErrStoreUnavailable is returned when the persistence gateway fails.
	ErrStoreUnavailable = errors.NewSentinel("store unavailable")
	// ErrNotFound is returned when the persistence gateway has no record with the given id.
	ErrNotFound = errors.NewSentinel("not found")
	// ErrAnswerMismatch is returned when an answer or edit does not match the kind of the question.
	ErrAnswerMismatch = errors.NewSentinel("answer does not match question type")
	// ErrUnknownQuestionType is returned for a question type tag that is not one of the known kinds.
	ErrUnknownQuestionType = errors.NewSentinel("unknown question type")
	// ErrEmptyQuestionnaire is returned when a survey is started on a questionnaire without questions.
	ErrEmptyQuestionnaire = errors.NewSentinel("questionnaire has no questions")
)
