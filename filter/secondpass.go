package filter

import (
	"context"
	"log/slog"
	"regexp"
	"strings"
	"time"

	"github.com/ytfilter/sieve/classifier"
)

const DefaultClassifierTimeout = 10 * time.Second

var sentinelRegex = regexp.MustCompile(`__[WBFS]__`)

// SecondPass is the semantic screening stage. It sends the masked text of a
// first pass result to an external classifier, and merges the returned findings
// in to the result.
type SecondPass struct {
	Classifier classifier.Classifier
	Rules      classifier.RuleSet
	Timeout    time.Duration
	Logger     *slog.Logger
}

func NewSecondPass(c classifier.Classifier, rules classifier.RuleSet, timeout time.Duration, logger *slog.Logger) *SecondPass {
	if c == nil {
		c = classifier.Noop{}
	}
	if timeout <= 0 {
		timeout = DefaultClassifierTimeout
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &SecondPass{
		Classifier: c,
		Rules:      rules,
		Timeout:    timeout,
		Logger:     logger.With("stage", "second-pass"),
	}
}

// Execute runs the classifier over the masked text. It returns a new result;
// the input is not modified.
//
// Any classifier failure (including timeout) is logged and results in the input
// being returned as-is. Keywords which can't be found in the masked text
// outside existing sentinels are skipped.
func (sp *SecondPass) Execute(ctx context.Context, in *FilterResult) *FilterResult {
	ctx, cancel := context.WithTimeout(ctx, sp.Timeout)
	defer cancel()

	verdict, err := sp.Classifier.Classify(ctx, &classifier.Request{
		Text:  in.MaskedText,
		Rules: sp.Rules,
	})
	if err != nil {
		secondPassFailures.Inc()
		sp.Logger.Warn("classifier failed, skipping second pass", "err", err)
		return in
	}

	out := in.Clone()
	for _, item := range verdict.Items {
		if item.Keyword == "" {
			continue
		}
		start, end, ok := locateKeyword(out.MaskedText, item.Keyword)
		if !ok {
			sp.Logger.Info("classifier keyword not present in text, skipping", "keyword", item.Keyword, "category", item.Category)
			continue
		}
		cat := AICategory(item.Category)
		out.addDetection(out.MaskedText[start:end], cat, StatusFilteredSecondPass)
		out.MaskedText = out.MaskedText[:start] + SentinelSecond + out.MaskedText[end:]
		detectionCount.WithLabelValues("second-pass", string(cat)).Inc()
	}

	if len(verdict.Items) > 0 {
		sp.Logger.Debug("classifier verdict", "items", len(verdict.Items), "severity", verdict.Severity, "reason", verdict.Reason)
	}
	return out
}

// Finds the first occurrence of a classifier keyword in the masked text which
// doesn't overlap a sentinel. The keyword is tried verbatim, then in normalized
// form (classifiers sometimes echo back punctuation which normalization
// removed).
func locateKeyword(text, keyword string) (int, int, bool) {
	spans := sentinelRegex.FindAllStringIndex(text, -1)
	candidates := []string{keyword}
	if norm := strings.TrimSpace(Normalize(keyword)); norm != "" && norm != keyword {
		candidates = append(candidates, norm)
	}
	for _, kw := range candidates {
		from := 0
		for from <= len(text) {
			idx := strings.Index(text[from:], kw)
			if idx < 0 {
				break
			}
			start := from + idx
			end := start + len(kw)
			if !overlapsAny(start, end, spans) {
				return start, end, true
			}
			from = start + 1
		}
	}
	return 0, 0, false
}

func overlapsAny(start, end int, spans [][]int) bool {
	for _, s := range spans {
		if start < s[1] && s[0] < end {
			return true
		}
	}
	return false
}
