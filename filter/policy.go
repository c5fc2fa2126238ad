package filter

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/rivo/uniseg"
	"golang.org/x/text/unicode/norm"
)

type Action string

const (
	ActionPass            Action = "PASS"
	ActionMasking         Action = "MASKING"
	ActionReviewHuman     Action = "REVIEW_HUMAN"
	ActionAutoHide        Action = "AUTO_HIDE"
	ActionPermanentDelete Action = "PERMANENT_DELETE"
)

// User-facing replacement text, by action.
const (
	PlaceholderReview  = "[관리자 검토 중인 메시지입니다]"
	PlaceholderHidden  = "[규정 위반으로 숨겨진 메시지입니다]"
	PlaceholderDeleted = "[삭제된 메시지입니다]"
)

const (
	MinLevel = 1
	MaxLevel = 5

	DefaultLevel     = 3
	DefaultThreshold = 0.6
)

var ErrInvalidConfig = errors.New("invalid moderation configuration")

type Decision struct {
	Action       Action  `json:"action"`
	RenderedText string  `json:"rendered_text"`
	Score        float64 `json:"score"`
}

// PolicyConfig is the operator-chosen strictness. Level 1 only masks offending
// words; level 5 deletes the message.
type PolicyConfig struct {
	Level     int     `json:"level"`
	Threshold float64 `json:"threshold"`
}

func DefaultPolicyConfig() PolicyConfig {
	return PolicyConfig{Level: DefaultLevel, Threshold: DefaultThreshold}
}

func (c PolicyConfig) Validate() error {
	if c.Level < MinLevel || c.Level > MaxLevel {
		return fmt.Errorf("%w: strictness level must be %d..%d, got %d", ErrInvalidConfig, MinLevel, MaxLevel, c.Level)
	}
	// written this way so NaN is rejected
	if !(c.Threshold >= 0 && c.Threshold <= 1) {
		return fmt.Errorf("%w: risk threshold must be in [0, 1], got %v", ErrInvalidConfig, c.Threshold)
	}
	return nil
}

// Policy is the decision table from risk score and strictness level to
// enforcement action. It is stateless.
type Policy struct{}

// Decide maps a score to an action. Configuration is checked on every call, so
// an invalid level is an error even when the score is under the threshold.
func (Policy) Decide(score float64, res *FilterResult, level int, threshold float64) (*Decision, error) {
	if err := (PolicyConfig{Level: level, Threshold: threshold}).Validate(); err != nil {
		return nil, err
	}

	d := &Decision{Score: score}
	if score < threshold {
		d.Action = ActionPass
		d.RenderedText = res.OriginalText
		decisionCount.WithLabelValues(string(d.Action)).Inc()
		return d, nil
	}

	switch level {
	case 1:
		d.Action = ActionMasking
		d.RenderedText = maskWords(res.OriginalText, res.DetectedItems)
	case 2:
		d.Action = ActionReviewHuman
		d.RenderedText = PlaceholderReview
	case 3, 4:
		d.Action = ActionAutoHide
		d.RenderedText = PlaceholderHidden
	case 5:
		d.Action = ActionPermanentDelete
		d.RenderedText = PlaceholderDeleted
	}
	decisionCount.WithLabelValues(string(d.Action)).Inc()
	return d, nil
}

// characters removed by normalization, which may appear inside an obfuscated
// word ("씨.발") without changing its normalized form
const ignorableRunes = `[^가-힣a-z0-9\s]*`

// Replaces each occurrence of each detected word in the text with a run of
// '*', one per user-perceived character (grapheme cluster) of the occurrence.
//
// Detected words are in normalized form, so matching is done modulo
// normalization: case-insensitive, on NFC-composed text, allowing characters
// that normalization drops between the word's characters.
func maskWords(text string, items []DetectedItem) string {
	text = norm.NFC.String(text)
	for _, item := range items {
		re := maskPattern(item.Word)
		if re == nil {
			continue
		}
		text = re.ReplaceAllStringFunc(text, func(m string) string {
			return strings.Repeat("*", graphemeCount(m))
		})
	}
	return text
}

func maskPattern(word string) *regexp.Regexp {
	word = strings.TrimSpace(norm.NFC.String(word))
	if word == "" {
		return nil
	}
	var b strings.Builder
	b.WriteString("(?i)")
	for i, r := range []rune(word) {
		if i > 0 {
			b.WriteString(ignorableRunes)
		}
		b.WriteString(regexp.QuoteMeta(string(r)))
	}
	re, err := regexp.Compile(b.String())
	if err != nil {
		return nil
	}
	return re
}

func graphemeCount(s string) int {
	n := 0
	gr := uniseg.NewGraphemes(s)
	for gr.Next() {
		n++
	}
	return n
}
