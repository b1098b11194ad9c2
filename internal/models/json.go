package models

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"slices"
	"sort"

	"github.com/myrjola/survey/internal/errors"
)

// JSON codec for the domain model. Question and answer-shape encoding follows the interchange schema:
//
//	Question       := { type, questionText, possibleAnswer }
//	PossibleAnswer := { optionsString: [string] } | { hint: string|null }
//	Answer         := { type, selectedIndex } | { type, selectedIndices } | { type, text }
//	QuestionResult := { questionId, type, answer: Answer|null }
//
// Decoding is strict: unknown, duplicate or missing keys, nulls in non-nullable positions and unknown type tags all
// fail with ErrSerializationFailed. Keys are case sensitive.

var jsonNull = []byte("null")

type questionJSON struct {
	Type           QuestionType    `json:"type"`
	QuestionText   string          `json:"questionText"`
	PossibleAnswer json.RawMessage `json:"possibleAnswer"`
}

type optionsJSON struct {
	OptionsString []string `json:"optionsString"`
}

type hintJSON struct {
	Hint *string `json:"hint"`
}

type singleChoiceAnswerJSON struct {
	Type          QuestionType `json:"type"`
	SelectedIndex int          `json:"selectedIndex"`
}

type multipleChoiceAnswerJSON struct {
	Type            QuestionType `json:"type"`
	SelectedIndices []int        `json:"selectedIndices"`
}

type blankAnswerJSON struct {
	Type QuestionType `json:"type"`
	Text string       `json:"text"`
}

type questionResultJSON struct {
	QuestionID int             `json:"questionId"`
	Type       QuestionType    `json:"type"`
	Answer     json.RawMessage `json:"answer"`
}

func (p SingleChoiceOptions) MarshalJSON() ([]byte, error) {
	return json.Marshal(optionsJSON{OptionsString: copyOptions(p.Options)})
}

func (p MultipleChoiceOptions) MarshalJSON() ([]byte, error) {
	return json.Marshal(optionsJSON{OptionsString: copyOptions(p.Options)})
}

func (p BlankHint) MarshalJSON() ([]byte, error) {
	return json.Marshal(hintJSON(p))
}

func (q Question) MarshalJSON() ([]byte, error) {
	if q.PossibleAnswer == nil {
		return nil, errors.Wrap(ErrSerializationFailed, "question without answer shape")
	}
	possibleAnswer, err := json.Marshal(q.PossibleAnswer)
	if err != nil {
		return nil, errors.Wrap(err, "marshal possible answer")
	}
	return json.Marshal(questionJSON{
		Type:           q.Type(),
		QuestionText:   q.Text,
		PossibleAnswer: possibleAnswer,
	})
}

func (q *Question) UnmarshalJSON(data []byte) error {
	fields, err := DecodeObject(data, []string{"type", "questionText", "possibleAnswer"})
	if err != nil {
		return errors.Wrap(err, "decode question")
	}
	var (
		t    QuestionType
		text string
	)
	if t, err = decodeType(fields["type"]); err != nil {
		return errors.Wrap(err, "decode question type")
	}
	if err = DecodeValue(fields["questionText"], &text); err != nil {
		return errors.Wrap(err, "decode question text")
	}
	possibleAnswer, err := UnmarshalPossibleAnswer(t, fields["possibleAnswer"])
	if err != nil {
		return errors.Wrap(err, "decode possible answer")
	}
	*q = Question{Text: text, PossibleAnswer: possibleAnswer}
	return nil
}

// UnmarshalPossibleAnswer decodes the answer shape of a question of type t.
func UnmarshalPossibleAnswer(t QuestionType, data []byte) (PossibleAnswer, error) {
	switch t {
	case QuestionTypeSingleChoice, QuestionTypeMultipleChoice:
		fields, err := DecodeObject(data, []string{"optionsString"})
		if err != nil {
			return nil, err
		}
		var options []string
		if options, err = decodeStrings(fields["optionsString"]); err != nil {
			return nil, errors.Wrap(err, "decode options")
		}
		if t == QuestionTypeSingleChoice {
			return NewSingleChoice(options...), nil
		}
		return NewMultipleChoice(options...), nil
	case QuestionTypeBlank:
		fields, err := DecodeObject(data, []string{"hint"})
		if err != nil {
			return nil, err
		}
		if bytes.Equal(bytes.TrimSpace(fields["hint"]), jsonNull) {
			return BlankHint{Hint: nil}, nil
		}
		var hint string
		if err = DecodeValue(fields["hint"], &hint); err != nil {
			return nil, errors.Wrap(err, "decode hint")
		}
		return BlankHint{Hint: &hint}, nil
	}
	return nil, errors.Wrap(ErrSerializationFailed, "unknown question type", slog.String("type", string(t)))
}

func (a SingleChoiceAnswer) MarshalJSON() ([]byte, error) {
	return json.Marshal(singleChoiceAnswerJSON{Type: a.Type(), SelectedIndex: a.SelectedIndex})
}

func (a MultipleChoiceAnswer) MarshalJSON() ([]byte, error) {
	return json.Marshal(multipleChoiceAnswerJSON{
		Type:            a.Type(),
		SelectedIndices: NewMultipleChoiceAnswer(a.SelectedIndices...).SelectedIndices,
	})
}

func (a BlankAnswer) MarshalJSON() ([]byte, error) {
	return json.Marshal(blankAnswerJSON{Type: a.Type(), Text: a.Text})
}

// UnmarshalAnswer decodes a self-describing answer.
func UnmarshalAnswer(data []byte) (Answer, error) {
	fields, err := objectFields(data)
	if err != nil {
		return nil, errors.Wrap(err, "decode answer")
	}
	t, err := decodeType(fields["type"])
	if err != nil {
		return nil, errors.Wrap(err, "decode answer type")
	}
	switch t {
	case QuestionTypeSingleChoice:
		if err = requireKeys(fields, []string{"type", "selectedIndex"}); err != nil {
			return nil, err
		}
		var index int
		if err = DecodeValue(fields["selectedIndex"], &index); err != nil {
			return nil, errors.Wrap(err, "decode selected index")
		}
		return SingleChoiceAnswer{SelectedIndex: index}, nil
	case QuestionTypeMultipleChoice:
		if err = requireKeys(fields, []string{"type", "selectedIndices"}); err != nil {
			return nil, err
		}
		var indices []int
		if err = DecodeValue(fields["selectedIndices"], &indices); err != nil {
			return nil, errors.Wrap(err, "decode selected indices")
		}
		return NewMultipleChoiceAnswer(indices...), nil
	case QuestionTypeBlank:
		if err = requireKeys(fields, []string{"type", "text"}); err != nil {
			return nil, err
		}
		var text string
		if err = DecodeValue(fields["text"], &text); err != nil {
			return nil, errors.Wrap(err, "decode text")
		}
		return BlankAnswer{Text: text}, nil
	}
	return nil, errors.Wrap(ErrSerializationFailed, "unknown answer type", slog.String("type", string(t)))
}

func (r QuestionResult) MarshalJSON() ([]byte, error) {
	answer := jsonNull
	if r.Answer != nil {
		var err error
		if answer, err = json.Marshal(r.Answer); err != nil {
			return nil, errors.Wrap(err, "marshal answer")
		}
	}
	return json.Marshal(questionResultJSON{QuestionID: r.QuestionID, Type: r.Type, Answer: answer})
}

func (r *QuestionResult) UnmarshalJSON(data []byte) error {
	fields, err := DecodeObject(data, []string{"questionId", "type", "answer"})
	if err != nil {
		return errors.Wrap(err, "decode question result")
	}
	var (
		position int
		t        QuestionType
		answer   Answer
	)
	if err = DecodeValue(fields["questionId"], &position); err != nil {
		return errors.Wrap(err, "decode question id")
	}
	if position < 0 {
		return errors.Wrap(ErrSerializationFailed, "negative question id", slog.Int("questionId", position))
	}
	if t, err = decodeType(fields["type"]); err != nil {
		return errors.Wrap(err, "decode question result type")
	}
	if !bytes.Equal(bytes.TrimSpace(fields["answer"]), jsonNull) {
		if answer, err = UnmarshalAnswer(fields["answer"]); err != nil {
			return err
		}
		if answer.Type() != t {
			return errors.Wrap(ErrSerializationFailed, "answer type differs from result type",
				slog.String("type", string(t)), slog.String("answer_type", string(answer.Type())))
		}
	}
	*r = QuestionResult{QuestionID: position, Type: t, Answer: answer}
	return nil
}

// DecodeObject decodes a JSON object into its raw fields. Keys match exactly and may appear only once. The object
// must hold every key in required, may hold the keys in optional and nothing else.
func DecodeObject(data []byte, required []string, optional ...string) (map[string]json.RawMessage, error) {
	fields, err := objectFields(data)
	if err != nil {
		return nil, err
	}
	if err = requireKeys(fields, required, optional...); err != nil {
		return nil, err
	}
	return fields, nil
}

// objectFields walks the tokens of a single JSON object so that duplicate keys and trailing data are caught.
func objectFields(data []byte) (map[string]json.RawMessage, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return nil, errors.Wrap(errors.Mark(err, ErrSerializationFailed), "expected object")
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return nil, errors.Wrap(ErrSerializationFailed, "expected object")
	}
	fields := make(map[string]json.RawMessage)
	for dec.More() {
		if tok, err = dec.Token(); err != nil {
			return nil, errors.Wrap(errors.Mark(err, ErrSerializationFailed), "read key")
		}
		key, _ := tok.(string)
		if _, seen := fields[key]; seen {
			return nil, errors.Wrap(ErrSerializationFailed, "duplicate key", slog.String("key", key))
		}
		var value json.RawMessage
		if err = dec.Decode(&value); err != nil {
			return nil, errors.Wrap(errors.Mark(err, ErrSerializationFailed), "read value", slog.String("key", key))
		}
		fields[key] = value
	}
	if _, err = dec.Token(); err != nil {
		return nil, errors.Wrap(errors.Mark(err, ErrSerializationFailed), "unterminated object")
	}
	if _, err = dec.Token(); !errors.Is(err, io.EOF) {
		return nil, errors.Wrap(ErrSerializationFailed, "trailing data after object")
	}
	return fields, nil
}

// requireKeys checks that fields contains every key in required, any key in optional and nothing else.
func requireKeys(fields map[string]json.RawMessage, required []string, optional ...string) error {
	for _, key := range required {
		if _, ok := fields[key]; !ok {
			return errors.Wrap(ErrSerializationFailed, "missing key", slog.String("key", key))
		}
	}
	var unknown []string
	for key := range fields {
		if !slices.Contains(required, key) && !slices.Contains(optional, key) {
			unknown = append(unknown, key)
		}
	}
	if len(unknown) > 0 {
		sort.Strings(unknown)
		return errors.Wrap(ErrSerializationFailed, "unknown keys", slog.Any("keys", unknown))
	}
	return nil
}

// DecodeValue decodes a non-null JSON value into dst.
func DecodeValue(raw json.RawMessage, dst any) error {
	if len(raw) == 0 || bytes.Equal(bytes.TrimSpace(raw), jsonNull) {
		return errors.Wrap(ErrSerializationFailed, "unexpected null")
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return errors.Wrap(errors.Mark(err, ErrSerializationFailed), "decode value")
	}
	return nil
}

func decodeStrings(raw json.RawMessage) ([]string, error) {
	var elements []json.RawMessage
	if err := DecodeValue(raw, &elements); err != nil {
		return nil, err
	}
	values := make([]string, len(elements))
	for i, element := range elements {
		if err := DecodeValue(element, &values[i]); err != nil {
			return nil, errors.Wrap(err, "decode element", slog.Int("index", i))
		}
	}
	return values, nil
}

func decodeType(raw json.RawMessage) (QuestionType, error) {
	var s string
	if err := DecodeValue(raw, &s); err != nil {
		return "", err
	}
	t, err := ParseQuestionType(s)
	if err != nil {
		return "", errors.Mark(err, ErrSerializationFailed)
	}
	return t, nil
}
