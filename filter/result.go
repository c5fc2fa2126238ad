package filter

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel tokens substituted for matched spans of the masked text.
const (
	SentinelWhitelist = "__W__"
	SentinelBlacklist = "__B__"
	SentinelSystem    = "__F__"
	SentinelSecond    = "__S__"
)

var sentinels = []string{SentinelWhitelist, SentinelBlacklist, SentinelSystem, SentinelSecond}

type Status string

const (
	StatusPassed             Status = "PASSED"
	StatusFilteredFirstPass  Status = "FILTERED_FIRST_PASS"
	StatusFilteredSecondPass Status = "FILTERED_SECOND_PASS"
)

func (s Status) rank() int {
	switch s {
	case StatusPassed:
		return 0
	case StatusFilteredFirstPass:
		return 1
	case StatusFilteredSecondPass:
		return 2
	default:
		return -1
	}
}

func (s Status) Valid() bool {
	return s.rank() >= 0
}

// Escalate returns the more severe of the two statuses. A filtered status is
// never reset to PASSED.
func (s Status) Escalate(next Status) Status {
	if next.rank() > s.rank() {
		return next
	}
	return s
}

type Category string

const (
	CategoryUserBlacklist Category = "USER_BLACKLIST"
	CategorySystemKeyword Category = "SYSTEM_KEYWORD"

	aiCategoryPrefix = "AI_"
)

// AICategory builds the category for a second-pass (classifier) detection, eg
// "privacy" becomes "AI_PRIVACY".
func AICategory(name string) Category {
	name = strings.ToUpper(strings.TrimSpace(name))
	if name == "" {
		name = "DETECTED"
	}
	return Category(aiCategoryPrefix + name)
}

func (c Category) IsAI() bool {
	return strings.HasPrefix(string(c), aiCategoryPrefix)
}

func (c Category) Valid() bool {
	return c == CategoryUserBlacklist || c == CategorySystemKeyword || (c.IsAI() && len(c) > len(aiCategoryPrefix))
}

type DetectedItem struct {
	Word     string   `json:"word"`
	Category Category `json:"category"`
}

// FilterResult is the record threaded through all pipeline stages.
//
// OriginalText is never modified. DetectedItems is append-only, and Status only
// escalates.
type FilterResult struct {
	OriginalText  string         `json:"original_text"`
	Status        Status         `json:"status"`
	DetectedItems []DetectedItem `json:"detected_items"`
	MaskedText    string         `json:"masked_text"`
}

var ErrInvalidResult = errors.New("inconsistent filter result")

func NewFilterResult(original string) *FilterResult {
	return &FilterResult{
		OriginalText:  original,
		Status:        StatusPassed,
		DetectedItems: []DetectedItem{},
	}
}

func (r *FilterResult) addDetection(word string, cat Category, stage Status) {
	r.DetectedItems = append(r.DetectedItems, DetectedItem{Word: word, Category: cat})
	r.Status = r.Status.Escalate(stage)
}

// Clone returns a deep copy, so a stage can work on its input without aliasing
// the caller's slice.
func (r *FilterResult) Clone() *FilterResult {
	out := *r
	out.DetectedItems = make([]DetectedItem, len(r.DetectedItems))
	copy(out.DetectedItems, r.DetectedItems)
	return &out
}

func (r *FilterResult) HasCategory(cat Category) bool {
	for _, item := range r.DetectedItems {
		if item.Category == cat {
			return true
		}
	}
	return false
}

// Categories returns the category of every detected item, in detection order.
func (r *FilterResult) Categories() []string {
	out := make([]string, 0, len(r.DetectedItems))
	for _, item := range r.DetectedItems {
		out = append(out, string(item.Category))
	}
	return out
}

// Validate checks the record against the stage contracts. Records built by this
// package always pass; this is for records decoded from external input.
func (r *FilterResult) Validate() error {
	if !r.Status.Valid() {
		return fmt.Errorf("%w: unknown status %q", ErrInvalidResult, r.Status)
	}
	if r.Status == StatusPassed && len(r.DetectedItems) > 0 {
		return fmt.Errorf("%w: status PASSED with %d detected items", ErrInvalidResult, len(r.DetectedItems))
	}
	if r.Status != StatusPassed && len(r.DetectedItems) == 0 {
		return fmt.Errorf("%w: status %s without detected items", ErrInvalidResult, r.Status)
	}
	for i, item := range r.DetectedItems {
		if item.Word == "" {
			return fmt.Errorf("%w: detected item %d has empty word", ErrInvalidResult, i)
		}
		if !item.Category.Valid() {
			return fmt.Errorf("%w: detected item %d has unknown category %q", ErrInvalidResult, i, item.Category)
		}
	}
	return nil
}
