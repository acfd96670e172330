// Package lenient pulls JSON out of free-form model replies. Replies are
// untrusted: the JSON may be wrapped in prose, span several lines, or carry
// trailing commas.
package lenient

import (
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

var (
	// ErrNotFound is returned when the reply holds no bracketed JSON value.
	ErrNotFound = errors.New("no JSON value found in reply")
	// ErrParse is returned when the bracketed text is not valid JSON.
	ErrParse = errors.New("failed to parse JSON")
	// ErrSchema is returned when parsed JSON does not match the expected schema.
	ErrSchema = errors.New("JSON does not match schema")
)

// Shape selects the delimiters searched for in a reply.
type Shape int

const (
	Array Shape = iota
	Object
)

func (s Shape) delims() (byte, byte) {
	if s == Object {
		return '{', '}'
	}
	return '[', ']'
}

var (
	trailingObject = regexp.MustCompile(`,\s*}`)
	trailingArray  = regexp.MustCompile(`,\s*]`)
)

// Extract returns the substring from the first opening delimiter to the last
// closing delimiter of the given shape.
func Extract(text string, shape Shape) (string, error) {
	open, close := shape.delims()
	start := strings.IndexByte(text, open)
	end := strings.LastIndexByte(text, close)
	if start < 0 || end <= start {
		return "", ErrNotFound
	}
	return text[start : end+1], nil
}

// Repair strips line breaks and drops commas directly before a closing
// brace or bracket.
func Repair(s string) string {
	s = strings.ReplaceAll(s, "\n", " ")
	s = strings.ReplaceAll(s, "\r", "")
	s = trailingObject.ReplaceAllString(s, "}")
	return trailingArray.ReplaceAllString(s, "]")
}

// Decoder turns a model reply into a Go value: it extracts the first value
// of Shape, optionally repairs it, checks it against Schema when one is set
// and unmarshals it.
type Decoder struct {
	Shape  Shape
	Repair bool
	Schema *Schema
}

// Decode fills v from text. Errors wrap ErrNotFound, ErrParse or ErrSchema.
func (d Decoder) Decode(text string, v any) error {
	raw, err := Extract(strings.TrimSpace(text), d.Shape)
	if err != nil {
		return err
	}
	if d.Repair {
		raw = Repair(raw)
	}
	if d.Schema != nil {
		if err := d.Schema.Validate(raw); err != nil {
			return err
		}
	}
	if err := json.Unmarshal([]byte(raw), v); err != nil {
		return fmt.Errorf("%w: %v", ErrParse, err)
	}
	return nil
}

// Schema is a compiled JSON schema used to check replies before any field
// access.
type Schema struct {
	schema *gojsonschema.Schema
}

func MustCompile(schema string) *Schema {
	s, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(schema))
	if err != nil {
		panic(fmt.Sprintf("lenient: invalid schema: %v", err))
	}
	return &Schema{schema: s}
}

// Validate checks raw JSON against the schema.
func (s *Schema) Validate(raw string) error {
	result, err := s.schema.Validate(gojsonschema.NewStringLoader(raw))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrParse, err)
	}
	if result.Valid() {
		return nil
	}

	msgs := make([]string, 0, len(result.Errors()))
	for _, e := range result.Errors() {
		msgs = append(msgs, e.String())
	}
	return fmt.Errorf("%w: %s", ErrSchema, strings.Join(msgs, "; "))
}
