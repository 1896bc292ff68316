package answers

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v6"
)

// Answer is one output record. Field order is the document's key order.
// The pass-through fields carry the input's raw JSON text.
type Answer struct {
	QuestionNo     json.RawMessage `json:"question_no"`
	DataChunk      json.RawMessage `json:"data_chuck"`
	ModelTag       json.RawMessage `json:"model(q)"`
	Question       string          `json:"question"`
	ResponderLabel string          `json:"Responsed_model"`
	ModelResponse  string          `json:"model_response"`
}

const documentIndent = "    "

// Encode renders answers as the output document: a JSON array indented
// with four spaces, with HTML and non-ASCII characters (U+2028 and U+2029
// included) left literal and no trailing newline.
func Encode(answers []Answer) ([]byte, error) {
	if answers == nil {
		answers = []Answer{}
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", documentIndent)
	if err := enc.Encode(answers); err != nil {
		return nil, fmt.Errorf("encode answers: %w", err)
	}

	return unescapeLineSeparators(bytes.TrimSuffix(buf.Bytes(), []byte("\n"))), nil
}

// unescapeLineSeparators turns the \u2028 and \u2029 escapes that
// encoding/json always emits back into literal characters. Escaped
// backslashes are copied as pairs so "\\u2028" text is left alone.
func unescapeLineSeparators(doc []byte) []byte {
	if !bytes.Contains(doc, []byte(`\u202`)) {
		return doc
	}
	out := make([]byte, 0, len(doc))
	for i := 0; i < len(doc); i++ {
		c := doc[i]
		if c != '\\' || i+1 >= len(doc) {
			out = append(out, c)
			continue
		}
		if rest := doc[i:]; bytes.HasPrefix(rest, []byte(`\u2028`)) || bytes.HasPrefix(rest, []byte(`\u2029`)) {
			if rest[5] == '8' {
				out = append(out, "\u2028"...)
			} else {
				out = append(out, "\u2029"...)
			}
			i += 5
			continue
		}
		out = append(out, c, doc[i+1])
		i++
	}
	return out
}

//go:embed output.schema.json
var outputSchemaJSON []byte

const outputSchemaURL = "schema://answergen/output.schema.json"

var (
	outputSchemaOnce sync.Once
	outputSchema     *jsonschema.Schema
	outputSchemaErr  error
)

// Validate checks an encoded document against the output schema.
func Validate(doc []byte) error {
	schema, err := compiledOutputSchema()
	if err != nil {
		return err
	}

	parsed, err := jsonschema.UnmarshalJSON(bytes.NewReader(doc))
	if err != nil {
		return fmt.Errorf("parse output document: %w", err)
	}

	if err := schema.Validate(parsed); err != nil {
		return fmt.Errorf("output document violates schema: %w", err)
	}
	return nil
}

func compiledOutputSchema() (*jsonschema.Schema, error) {
	outputSchemaOnce.Do(func() {
		def, err := jsonschema.UnmarshalJSON(bytes.NewReader(outputSchemaJSON))
		if err != nil {
			outputSchemaErr = fmt.Errorf("parse output schema: %w", err)
			return
		}

		c := jsonschema.NewCompiler()
		if err := c.AddResource(outputSchemaURL, def); err != nil {
			outputSchemaErr = fmt.Errorf("add resource: %w", err)
			return
		}

		outputSchema, outputSchemaErr = c.Compile(outputSchemaURL)
	})
	return outputSchema, outputSchemaErr
}
