// Package questions reads question records from JSON Lines input.
package questions

import (
	"encoding/json"
	"errors"
	"fmt"
)

// Wire field names of an input record. "data_chuck" is the historical
// spelling used by existing datasets and must not be corrected.
const (
	FieldQuestionNo = "question_no"
	FieldDataChunk  = "data_chuck"
	FieldModelTag   = "model(q)"
	FieldQuestion   = "question"
)

// UnknownModelTag is used when a record carries no model(q) field.
const UnknownModelTag = "unknown"

// Question is one parsed input record.
//
// QuestionNo, DataChunk and ModelTag hold the raw JSON text of the input
// value, so objects keep their key order and numbers their literal form.
// An absent data_chuck is the JSON null.
type Question struct {
	Line       int
	QuestionNo json.RawMessage
	DataChunk  json.RawMessage
	ModelTag   json.RawMessage
	Prompt     string
}

// Number returns the question number as plain text: strings unquoted,
// anything else as its JSON literal.
func (q *Question) Number() string {
	var s string
	if json.Unmarshal(q.QuestionNo, &s) == nil {
		return s
	}
	return string(q.QuestionNo)
}

var (
	// ErrMalformedLine indicates the line is not valid JSON.
	ErrMalformedLine = errors.New("malformed JSON line")
	// ErrMissingQuestion indicates the required question field is absent or empty.
	ErrMissingQuestion = errors.New("missing 'question' key")
	// ErrUnexpectedLine covers any other reason a line could not be used.
	ErrUnexpectedLine = errors.New("unexpected line content")
)

// LineError describes why a line was skipped.
type LineError struct {
	Line    int
	Content string
	Kind    error
	Err     error
}

func (e *LineError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("line %d: %v: %v", e.Line, e.Kind, e.Err)
	}
	return fmt.Sprintf("line %d: %v", e.Line, e.Kind)
}

func (e *LineError) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

// Entry is the outcome of reading one line: a Question, or a *LineError
// when the line was skipped.
type Entry struct {
	Question *Question
	Err      *LineError
}

// Skipped reports whether the line produced no question.
func (e Entry) Skipped() bool {
	return e.Err != nil
}
