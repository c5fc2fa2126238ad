// Text classification capability used by the second pass of the moderation
// pipeline.
//
// A Classifier receives comment text plus a set of natural-language category
// rules, and returns the specific keywords or phrases which violate them. The
// production implementation calls an OpenAI-compatible chat completion API in
// JSON mode; results can be cached with CachedClassifier.
package classifier

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
)

type Classifier interface {
	Classify(ctx context.Context, req *Request) (*Verdict, error)
}

type Request struct {
	Text  string  `json:"text"`
	Rules RuleSet `json:"rules"`
}

// Item is a single flagged span of the classified text.
type Item struct {
	Keyword  string `json:"keyword"`
	Category string `json:"category"`
}

// Verdict is the structured classifier response.
//
// Severity is 1 (mild) through 5 (severe), or 0 if the classifier didn't report
// one. It is not currently used for scoring.
type Verdict struct {
	Items    []Item `json:"detected_items"`
	Reason   string `json:"reason"`
	Severity int    `json:"severity"`
}

var (
	ErrEmptyResponse     = errors.New("classifier returned empty response")
	ErrMalformedResponse = errors.New("classifier returned malformed response")
)

// wire format; severity is loosely typed because models sometimes quote numbers
type rawVerdict struct {
	Items    []Item          `json:"detected_items"`
	Reason   string          `json:"reason"`
	Severity json.RawMessage `json:"severity"`
}

// ParseVerdict decodes the JSON object returned by a classifier.
func ParseVerdict(content string) (*Verdict, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, ErrEmptyResponse
	}
	var raw rawVerdict
	if err := json.Unmarshal([]byte(content), &raw); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}

	v := Verdict{
		Items:  make([]Item, 0, len(raw.Items)),
		Reason: raw.Reason,
	}
	for _, item := range raw.Items {
		item.Keyword = strings.TrimSpace(item.Keyword)
		item.Category = strings.TrimSpace(item.Category)
		v.Items = append(v.Items, item)
	}
	v.Severity = parseSeverity(raw.Severity)
	return &v, nil
}

func parseSeverity(raw json.RawMessage) int {
	s := strings.Trim(strings.TrimSpace(string(raw)), `"`)
	if s == "" || s == "null" {
		return 0
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	sev := int(f)
	if sev < 1 {
		sev = 1
	}
	if sev > 5 {
		sev = 5
	}
	return sev
}

// Noop never detects anything. It stands in when no classifier is configured,
// so the second pass still runs.
type Noop struct{}

var _ Classifier = Noop{}

func (Noop) Classify(ctx context.Context, req *Request) (*Verdict, error) {
	return &Verdict{Items: []Item{}}, nil
}
