package filter

import (
	"math"
	"regexp"
	"strings"
	"unicode/utf8"
)

// Weights are the tunable constants of RiskScorer.
type Weights struct {
	BaseSystem    float64
	BaseBlacklist float64

	CountBonus float64
	CountMax   float64

	DensityBonus     float64
	DensityThreshold float64

	ConsecutiveBonus  float64
	ConsecutiveRunMax float64
	ConsecutiveMax    float64
}

func DefaultWeights() Weights {
	return Weights{
		BaseSystem:        0.4,
		BaseBlacklist:     0.7,
		CountBonus:        0.1,
		CountMax:          0.4,
		DensityBonus:      0.2,
		DensityThreshold:  0.4,
		ConsecutiveBonus:  0.15,
		ConsecutiveRunMax: 0.3,
		ConsecutiveMax:    0.4,
	}
}

var (
	// a "wall" of lexical sentinels; second pass and whitelist sentinels don't
	// count
	consecutiveRunRegex = regexp.MustCompile(`(?:__[BF]__\s*){2,}`)
	lexicalSentinel     = regexp.MustCompile(`__[BF]__`)
)

// RiskScorer maps a FilterResult to a risk score in [0, 1]. It has no state
// beyond its weights, and is safe for concurrent use.
type RiskScorer struct {
	Weights Weights
}

func NewRiskScorer() *RiskScorer {
	return &RiskScorer{Weights: DefaultWeights()}
}

func (rs *RiskScorer) Execute(res *FilterResult) float64 {
	if len(res.DetectedItems) == 0 {
		return 0.0
	}
	w := rs.Weights

	score := w.BaseSystem
	if res.HasCategory(CategoryUserBlacklist) {
		score = w.BaseBlacklist
	}

	count := len(res.DetectedItems)
	score += math.Min(float64(count-1)*w.CountBonus, w.CountMax)

	// only spaces are dropped; newlines count towards the text length
	textLen := utf8.RuneCountInString(strings.ReplaceAll(res.MaskedText, " ", ""))
	if textLen > 0 {
		matched := 0
		for _, item := range res.DetectedItems {
			matched += utf8.RuneCountInString(item.Word)
		}
		if float64(matched)/float64(textLen) > w.DensityThreshold {
			score += w.DensityBonus
		}
	}

	consecutive := 0.0
	for _, run := range consecutiveRunRegex.FindAllString(res.MaskedText, -1) {
		n := len(lexicalSentinel.FindAllString(run, -1))
		if n >= 2 {
			consecutive += math.Min(w.ConsecutiveBonus*float64(n-1), w.ConsecutiveRunMax)
		}
	}
	score += math.Min(consecutive, w.ConsecutiveMax)

	return math.Min(round2(score), 1.0)
}

func round2(f float64) float64 {
	return math.Round(f*100) / 100
}
