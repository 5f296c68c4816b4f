// Package extract pulls structured data out of raw LLM responses.
//
// Model output is unreliable: the JSON a prompt asks for may arrive bare,
// fenced in a markdown code block, interleaved with prose, or wrapped in
// streaming log entries. The Extractor runs an explicit ordered chain of
// strategies and returns the first successful parse, so callers get one
// well-defined fallback order instead of ad hoc retry logic.
package extract

import (
	"encoding/json"
	"regexp"
	"sort"
	"strings"

	ralpherrors "github.com/Iron-Ham/ralph/internal/errors"
)

// ExpectType tells the extractor what the top-level JSON value should be.
type ExpectType string

const (
	ExpectObject ExpectType = "object"
	ExpectArray  ExpectType = "array"
)

// Strategy is one step in the extraction chain. It returns the parsed value
// and true on success.
type Strategy struct {
	Name string
	Run  func(response string, expect ExpectType) (any, bool)
}

var (
	codeBlockPattern  = regexp.MustCompile("(?is)```(?:json)?\\s*\n?(.*?)\n?```")
	jsonObjectPattern = regexp.MustCompile(`(?s)\{[^{}]*(?:\{[^{}]*\}[^{}]*)*\}`)
	jsonArrayPattern  = regexp.MustCompile(`(?s)\[[^\[\]]*(?:\[[^\[\]]*\][^\[\]]*)*\]`)
)

// Extractor runs the JSON extraction chain. The zero value is not usable;
// construct with New.
type Extractor struct {
	strategies []Strategy
}

// New builds an Extractor with the default strategy chain:
//
//  1. direct: parse the whole response as JSON
//  2. code-block: parse each markdown code fence in order
//  3. log-entries: reassemble text from streaming JSON log lines, then
//     re-run direct parsing on the result
//  4. embedded: scan prose for balanced JSON spans, preferring the largest
//     valid object
func New() *Extractor {
	return &Extractor{
		strategies: []Strategy{
			{Name: "direct", Run: directStrategy},
			{Name: "code-block", Run: codeBlockStrategy},
			{Name: "log-entries", Run: logEntriesStrategy},
			{Name: "embedded", Run: embeddedStrategy},
		},
	}
}

// Strategies returns the names of the chain in execution order.
func (e *Extractor) Strategies() []string {
	names := make([]string, len(e.strategies))
	for i, s := range e.strategies {
		names[i] = s.Name
	}
	return names
}

// JSON extracts a JSON value from a response. expect selects whether the
// embedded-span fallback looks for an object or an array; the earlier
// strategies return whatever parses.
func (e *Extractor) JSON(response string, expect ExpectType) (any, error) {
	if strings.TrimSpace(response) == "" {
		return nil, ralpherrors.NewParseError("empty response", ralpherrors.ErrNoJSONFound)
	}

	for _, s := range e.strategies {
		if result, ok := s.Run(response, expect); ok {
			return result, nil
		}
	}

	return nil, ralpherrors.NewParseError("no strategy matched", ralpherrors.ErrNoJSONFound).
		WithSnippet(response)
}

// Object extracts a JSON object from a response.
func (e *Extractor) Object(response string) (map[string]any, error) {
	result, err := e.JSON(response, ExpectObject)
	if err != nil {
		return nil, err
	}
	obj, ok := result.(map[string]any)
	if !ok {
		return nil, ralpherrors.NewParseError("extracted value is not an object", ralpherrors.ErrNoJSONFound).
			WithSnippet(response)
	}
	return obj, nil
}

// Array extracts a JSON array from a response.
func (e *Extractor) Array(response string) ([]any, error) {
	result, err := e.JSON(response, ExpectArray)
	if err != nil {
		return nil, err
	}
	arr, ok := result.([]any)
	if !ok {
		return nil, ralpherrors.NewParseError("extracted value is not an array", ralpherrors.ErrNoJSONFound).
			WithSnippet(response)
	}
	return arr, nil
}

// Into extracts a JSON object and unmarshals it into out.
func (e *Extractor) Into(response string, out any) error {
	obj, err := e.Object(response)
	if err != nil {
		return err
	}
	b, err := json.Marshal(obj)
	if err != nil {
		return ralpherrors.Wrap(err, "re-encoding extracted object")
	}
	if err := json.Unmarshal(b, out); err != nil {
		return ralpherrors.NewParseError("extracted object does not match target shape", err).
			WithSnippet(response)
	}
	return nil
}

func directStrategy(response string, _ ExpectType) (any, bool) {
	return tryParse(strings.TrimSpace(response))
}

func codeBlockStrategy(response string, _ ExpectType) (any, bool) {
	for _, m := range codeBlockPattern.FindAllStringSubmatch(response, -1) {
		if result, ok := tryParse(strings.TrimSpace(m[1])); ok {
			return result, true
		}
	}
	return nil, false
}

// logEntriesStrategy handles responses made of streaming JSON log lines:
//
//	{"type":"text","part":{"type":"text","text":"actual content"}}
//
// The text fragments are joined and re-parsed as JSON.
func logEntriesStrategy(response string, _ ExpectType) (any, bool) {
	text, ok := TextFromLogEntries(response)
	if !ok {
		return nil, false
	}
	return tryParse(strings.TrimSpace(text))
}

// TextFromLogEntries reassembles the text content of a streaming response
// whose lines are JSON log entries. It returns false when the response is
// not in that format or carries no text.
func TextFromLogEntries(response string) (string, bool) {
	if !strings.HasPrefix(strings.TrimSpace(response), "{") {
		return "", false
	}

	var parts []string
	for _, line := range strings.Split(response, "\n") {
		line = strings.TrimSpace(line)
		if !strings.HasPrefix(line, "{") {
			continue
		}

		var entry map[string]any
		if err := json.Unmarshal([]byte(line), &entry); err != nil {
			continue
		}

		if entry["type"] == "text" {
			if part, ok := entry["part"].(map[string]any); ok {
				if text, ok := part["text"].(string); ok && text != "" {
					parts = append(parts, text)
					continue
				}
			}
		}
		if text, ok := entry["text"].(string); ok && text != "" {
			parts = append(parts, text)
		}
	}

	if len(parts) == 0 {
		return "", false
	}
	return strings.Join(parts, "\n"), true
}

func embeddedStrategy(response string, expect ExpectType) (any, bool) {
	if expect == ExpectArray {
		for _, m := range jsonArrayPattern.FindAllString(response, -1) {
			if result, ok := tryParse(m); ok {
				if _, isArr := result.([]any); isArr {
					return result, true
				}
			}
		}
		return nil, false
	}

	// Prefer the largest valid object so a small inline example does not
	// shadow the real payload.
	type candidate struct {
		size int
		obj  map[string]any
	}
	var candidates []candidate
	for _, m := range jsonObjectPattern.FindAllString(response, -1) {
		if result, ok := tryParse(m); ok {
			if obj, isObj := result.(map[string]any); isObj {
				candidates = append(candidates, candidate{size: len(m), obj: obj})
			}
		}
	}
	if len(candidates) == 0 {
		return nil, false
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].size > candidates[j].size
	})
	return candidates[0].obj, true
}

func tryParse(text string) (any, bool) {
	if text == "" {
		return nil, false
	}
	var result any
	if err := json.Unmarshal([]byte(text), &result); err != nil {
		return nil, false
	}
	switch result.(type) {
	case map[string]any, []any:
		return result, true
	}
	return nil, false
}
