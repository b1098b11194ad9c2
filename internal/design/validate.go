package design

import (
	"reflect"
	"strings"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	entranslations "github.com/go-playground/validator/v10/translations/en"
	"github.com/myrjola/survey/internal/errors"
	"github.com/myrjola/survey/internal/models"
)

// Failure codes reported by [Session.Validate].
const (
	CodeTitleRequired       = "title_required"
	CodeDescriptionRequired = "description_required"
	CodeQuestionsRequired   = "questions_required"
)

// ValidationFailure is one unmet commit-readiness requirement.
type ValidationFailure struct {
	Field   string `json:"field"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// ValidationError carries the failures that block committing a draft. It matches [models.ErrValidationFailed].
type ValidationError struct {
	Failures []ValidationFailure
}

func (e *ValidationError) Error() string {
	codes := make([]string, len(e.Failures))
	for i, f := range e.Failures {
		codes[i] = f.Code
	}
	return models.ErrValidationFailed.Error() + ": " + strings.Join(codes, ", ")
}

func (e *ValidationError) Is(target error) bool {
	return target == models.ErrValidationFailed //nolint:errorlint // sentinel identity
}

// readiness is validated in field order, which gives the failure order title, description, question count.
type readiness struct {
	Title       string `json:"title"       validate:"required"`
	Description string `json:"description" validate:"required"`
	Questions   int    `json:"questions"   validate:"min=1"`
}

var failureCodes = map[string]string{
	"title":       CodeTitleRequired,
	"description": CodeDescriptionRequired,
	"questions":   CodeQuestionsRequired,
}

type readinessValidator struct {
	validate *validator.Validate
	trans    ut.Translator
}

var defaultValidator = newReadinessValidator()

func newReadinessValidator() readinessValidator {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0] //nolint:mnd // name and options
		if name == "-" {
			return ""
		}
		return name
	})
	enLocale := en.New()
	trans, _ := ut.New(enLocale, enLocale).GetTranslator("en")
	if err := entranslations.RegisterDefaultTranslations(v, trans); err != nil {
		panic(err)
	}
	return readinessValidator{validate: v, trans: trans}
}

// Validate checks whether the draft is ready to be committed: a non-empty title, a non-empty description and at least
// one question, reported in that order. An empty result means the draft is ready.
func (s *Session) Validate() []ValidationFailure {
	err := defaultValidator.validate.Struct(readiness{
		Title:       s.title,
		Description: s.description,
		Questions:   len(s.questions),
	})
	if err == nil {
		return nil
	}
	var fieldErrors validator.ValidationErrors
	if !errors.As(err, &fieldErrors) {
		return []ValidationFailure{{Field: "", Code: "invalid", Message: err.Error()}}
	}
	failures := make([]ValidationFailure, 0, len(fieldErrors))
	for _, fe := range fieldErrors {
		failures = append(failures, ValidationFailure{
			Field:   fe.Field(),
			Code:    failureCodes[fe.Field()],
			Message: fe.Translate(defaultValidator.trans),
		})
	}
	return failures
}

// ValidatedCommit commits the draft when it passes [Session.Validate] and returns a *[ValidationError] otherwise.
func (s *Session) ValidatedCommit() (models.Questionnaire, error) {
	if failures := s.Validate(); len(failures) > 0 {
		return models.Questionnaire{}, &ValidationError{Failures: failures}
	}
	return s.Commit(), nil
}
