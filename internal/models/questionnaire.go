package models

// Questionnaire is a named, ordered set of questions. The order defines question numbering and the alignment of
// [QuestionResult] positions. ID 0 means the questionnaire has not been persisted yet.
type Questionnaire struct {
	ID          int64      `json:"id"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Questions   []Question `json:"questions"`
}

// Copy returns an independent deep copy of q.
func (q Questionnaire) Copy() Questionnaire {
	questions := make([]Question, len(q.Questions))
	for i, question := range q.Questions {
		questions[i] = question.Copy()
	}
	return Questionnaire{
		ID:          q.ID,
		Title:       q.Title,
		Description: q.Description,
		Questions:   questions,
	}
}

// QuestionResult is the recorded answer to one question.
//
// QuestionID is the zero-based position of the question when the survey was submitted, not a stable identifier.
// Reordering or removing questions afterwards misattributes historical answers on redisplay. Answer is nil when the
// question was left unanswered.
type QuestionResult struct {
	QuestionID int
	Type       QuestionType
	Answer     Answer
}

// SurveyResult is one respondent's submission. QuestionResults has the questionnaire's length and order at submission.
type SurveyResult struct {
	ID              int64            `json:"id"`
	QuestionnaireID int64            `json:"questionnaireId"`
	QuestionResults []QuestionResult `json:"questionResults"`
}

// Copy returns an independent deep copy of r.
func (r SurveyResult) Copy() SurveyResult {
	results := make([]QuestionResult, len(r.QuestionResults))
	for i, qr := range r.QuestionResults {
		results[i] = QuestionResult{QuestionID: qr.QuestionID, Type: qr.Type, Answer: CopyAnswer(qr.Answer)}
	}
	return SurveyResult{
		ID:              r.ID,
		QuestionnaireID: r.QuestionnaireID,
		QuestionResults: results,
	}
}

// QuestionnaireWithResults pairs a questionnaire with all submissions recorded for it.
type QuestionnaireWithResults struct {
	Questionnaire Questionnaire  `json:"questionnaire"`
	Results       []SurveyResult `json:"results"`
}
