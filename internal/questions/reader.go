package questions

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"iter"
	"strconv"
)

var (
	jsonNull        = json.RawMessage("null")
	unknownModelTag = json.RawMessage(strconv.Quote(UnknownModelTag))
)

// Reader yields one Entry per input line. It makes a single forward pass
// over the underlying source and cannot be restarted.
type Reader struct {
	src *bufio.Reader
	err error
}

// NewReader creates a Reader over r.
func NewReader(r io.Reader) *Reader {
	return &Reader{src: bufio.NewReader(r)}
}

// Entries returns the lazy sequence of entries. Iteration stops at the end
// of input or on a read error, which is then reported by Err.
func (r *Reader) Entries() iter.Seq[Entry] {
	return func(yield func(Entry) bool) {
		lineNo := 0
		for {
			line, readErr := r.readLine()
			if readErr != nil && !errors.Is(readErr, io.EOF) {
				r.err = fmt.Errorf("read line %d: %w", lineNo+1, readErr)
				return
			}
			// A trailing line break does not start another record.
			if len(line) == 0 && readErr != nil {
				return
			}

			lineNo++
			if !yield(parseLine(lineNo, line)) {
				return
			}
			if readErr != nil {
				return
			}
		}
	}
}

// Err returns the first read error encountered by Entries, if any.
func (r *Reader) Err() error {
	return r.err
}

// readLine returns the next line without its terminator. "\n", "\r\n" and
// a lone "\r" all end a line.
func (r *Reader) readLine() ([]byte, error) {
	var line []byte
	for {
		b, err := r.src.ReadByte()
		if err != nil {
			return line, err
		}
		switch b {
		case '\n':
			return line, nil
		case '\r':
			if next, err := r.src.Peek(1); err == nil && next[0] == '\n' {
				_, _ = r.src.Discard(1)
			}
			return line, nil
		}
		line = append(line, b)
	}
}

func parseLine(lineNo int, raw []byte) Entry {
	line := bytes.TrimSpace(raw)
	skip := func(kind, err error) Entry {
		return Entry{Err: &LineError{Line: lineNo, Content: string(line), Kind: kind, Err: err}}
	}

	var value json.RawMessage
	dec := json.NewDecoder(bytes.NewReader(line))
	if err := dec.Decode(&value); err != nil {
		return skip(ErrMalformedLine, err)
	}
	if _, err := dec.Token(); err != io.EOF {
		return skip(ErrMalformedLine, errors.New("extra data after JSON value"))
	}

	if value[0] != '{' {
		return skip(ErrUnexpectedLine, fmt.Errorf("record is %s, not an object", jsonKind(value)))
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(value, &fields); err != nil {
		return skip(ErrMalformedLine, err)
	}

	q := &Question{
		Line:       lineNo,
		QuestionNo: json.RawMessage(strconv.Itoa(lineNo)),
		DataChunk:  jsonNull,
		ModelTag:   unknownModelTag,
	}
	if v, ok := fields[FieldQuestionNo]; ok {
		q.QuestionNo = v
	}
	if v, ok := fields[FieldDataChunk]; ok {
		q.DataChunk = v
	}
	if v, ok := fields[FieldModelTag]; ok {
		q.ModelTag = v
	}

	prompt, ok := fields[FieldQuestion]
	switch {
	case !ok || bytes.Equal(prompt, jsonNull):
		return skip(ErrMissingQuestion, nil)
	case prompt[0] != '"':
		return skip(ErrUnexpectedLine, fmt.Errorf("%q is %s, not a string", FieldQuestion, jsonKind(prompt)))
	}
	if err := json.Unmarshal(prompt, &q.Prompt); err != nil {
		return skip(ErrMalformedLine, err)
	}
	if q.Prompt == "" {
		return skip(ErrMissingQuestion, nil)
	}

	return Entry{Question: q}
}

// jsonKind names the type of a JSON value from its first byte.
func jsonKind(v json.RawMessage) string {
	switch v[0] {
	case 'n':
		return "null"
	case 't', 'f':
		return "a boolean"
	case '"':
		return "a string"
	case '[':
		return "an array"
	case '{':
		return "an object"
	default:
		return "a number"
	}
}
