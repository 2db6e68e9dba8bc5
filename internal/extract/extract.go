// Package extract turns free-form generated text into validated structured records.
package extract

import (
	"encoding/json"
	"fmt"
	"reflect"
	"regexp"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
	"github.com/rotisserie/eris"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// ErrExtraction is matched by every *ExtractionError.
var ErrExtraction = eris.New("extract: no valid structured record")

// Strategy names one way of locating a JSON candidate in raw text.
type Strategy string

// Strategies in priority order.
const (
	LabeledFence Strategy = "labeled_fence"
	AnyFence     Strategy = "any_fence"
	WholeText    Strategy = "whole_text"
)

// Candidate is a piece of text to be decoded, tagged with the strategy that found it.
type Candidate struct {
	Strategy Strategy
	Text     string
}

// Attempt records why one strategy did not yield a record.
type Attempt struct {
	Strategy Strategy
	Reason   string
}

// ExtractionError is returned when no strategy produced a valid record.
type ExtractionError struct {
	Raw      string
	Attempts []Attempt
}

func (e *ExtractionError) Error() string {
	parts := make([]string, 0, len(e.Attempts))
	for _, a := range e.Attempts {
		parts = append(parts, fmt.Sprintf("%s: %s", a.Strategy, a.Reason))
	}
	return fmt.Sprintf("extract: no valid structured record (%s)", strings.Join(parts, "; "))
}

// Is reports whether target is ErrExtraction.
func (e *ExtractionError) Is(target error) bool {
	return target == ErrExtraction
}

var fenceRe = regexp.MustCompile("(?s)```([A-Za-z0-9_+-]*)[^\\n]*\\n(.*?)```")

// Candidates returns the ordered candidates found in raw. A strategy that
// finds nothing, or finds the same text as an earlier strategy, is omitted.
func Candidates(raw string) []Candidate {
	var out []Candidate
	add := func(s Strategy, text string) {
		text = strings.TrimSpace(text)
		if text == "" {
			return
		}
		for _, c := range out {
			if c.Text == text {
				return
			}
		}
		out = append(out, Candidate{Strategy: s, Text: text})
	}

	fences := fenceRe.FindAllStringSubmatch(raw, -1)
	for _, f := range fences {
		if strings.EqualFold(f[1], "json") {
			add(LabeledFence, f[2])
			break
		}
	}
	if len(fences) > 0 {
		add(AnyFence, fences[0][2])
	}
	add(WholeText, trimToObject(raw))
	return out
}

// trimToObject drops chatter around the outermost JSON object.
func trimToObject(text string) string {
	text = strings.TrimSpace(text)
	if strings.HasPrefix(text, "{") || strings.HasPrefix(text, "[") {
		return text
	}
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start >= 0 && end > start {
		return text[start : end+1]
	}
	return text
}

type options[T any] struct {
	required  []string
	normalize func(*T)
}

// Option configures Parse.
type Option[T any] func(*options[T])

// WithRequiredKeys requires each key to be present in the decoded top-level object.
func WithRequiredKeys[T any](keys ...string) Option[T] {
	return func(o *options[T]) { o.required = append(o.required, keys...) }
}

// WithNormalizer runs fn on the decoded record before validation.
func WithNormalizer[T any](fn func(*T)) Option[T] {
	return func(o *options[T]) { o.normalize = fn }
}

var (
	validateOnce sync.Once
	validate     *validator.Validate
)

func structValidator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
	})
	return validate
}

// Parse extracts a T from raw, returning the first candidate that decodes
// and validates. It returns *ExtractionError when every candidate fails.
func Parse[T any](raw string, opts ...Option[T]) (T, error) {
	var o options[T]
	for _, opt := range opts {
		opt(&o)
	}

	var zero T
	xerr := &ExtractionError{Raw: raw}
	cands := Candidates(raw)
	if len(cands) == 0 {
		xerr.Attempts = append(xerr.Attempts, Attempt{Strategy: WholeText, Reason: "empty input"})
		return zero, xerr
	}

	for _, c := range cands {
		v, err := decode(c.Text, &o)
		if err != nil {
			xerr.Attempts = append(xerr.Attempts, Attempt{Strategy: c.Strategy, Reason: err.Error()})
			continue
		}
		return v, nil
	}
	return zero, xerr
}

func decode[T any](text string, o *options[T]) (T, error) {
	var v T
	if len(o.required) > 0 {
		var obj map[string]json.RawMessage
		if err := json.Unmarshal([]byte(text), &obj); err != nil {
			return v, eris.Wrap(err, "decode object")
		}
		var missing []string
		for _, k := range o.required {
			if raw, ok := obj[k]; !ok || string(raw) == "null" {
				missing = append(missing, k)
			}
		}
		if len(missing) > 0 {
			return v, eris.Errorf("missing required keys: %s", strings.Join(missing, ", "))
		}
	}

	if err := json.Unmarshal([]byte(text), &v); err != nil {
		return v, eris.Wrap(err, "decode")
	}
	if o.normalize != nil {
		o.normalize(&v)
	}
	if reflect.Indirect(reflect.ValueOf(&v)).Kind() == reflect.Struct {
		if err := structValidator().Struct(&v); err != nil {
			return v, eris.Wrap(err, "validate")
		}
	}
	return v, nil
}

// Title canonicalises an enumeration value such as "low" or " HIGH " to "Low" or "High".
func Title(s string) string {
	// Casers hold state and cannot be shared between goroutines.
	return cases.Title(language.English).String(strings.ToLower(strings.TrimSpace(s)))
}
