package classifier

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// CategoryRule is a named violation category with a natural-language rule for
// the classifier.
type CategoryRule struct {
	Name string `json:"name" yaml:"name"`
	Rule string `json:"rule" yaml:"rule"`
}

// RuleSet is the full set of checks sent with every classification request.
// Basic rules apply to all text; each category rule yields detections tagged
// with its name.
type RuleSet struct {
	Basic      []string       `json:"basic" yaml:"basic"`
	Categories []CategoryRule `json:"categories" yaml:"categories"`
}

func DefaultRules() RuleSet {
	return RuleSet{
		Basic: []string{
			"욕설, 비속어, 모욕적 표현 (초성, 자모 분리, 특수문자를 섞은 변형 포함)",
			"특정인을 겨냥한 비하나 조롱",
		},
		Categories: []CategoryRule{
			{Name: "PRIVACY", Rule: "전화번호, 주소, 계좌번호, 실명 등 개인정보 노출 또는 신상 털기"},
			{Name: "AGGRESSION", Rule: "위협, 협박, 폭력 예고, 괴롭힘"},
			{Name: "SEXUAL", Rule: "성적인 표현, 성희롱, 음란물 유도"},
			{Name: "HATE", Rule: "성별, 지역, 인종, 종교, 장애 등에 대한 혐오 표현"},
			{Name: "SPAM", Rule: "광고, 홍보, 도박이나 불법 사이트 유도, 금전 요구"},
		},
	}
}

func (rs RuleSet) Validate() error {
	seen := make(map[string]bool, len(rs.Categories))
	for i, c := range rs.Categories {
		name := strings.ToUpper(strings.TrimSpace(c.Name))
		if name == "" {
			return fmt.Errorf("category rule %d has no name", i)
		}
		if strings.TrimSpace(c.Rule) == "" {
			return fmt.Errorf("category rule %s has no rule text", name)
		}
		if seen[name] {
			return fmt.Errorf("duplicate category rule: %s", name)
		}
		seen[name] = true
	}
	return nil
}

// LoadRules reads a rule set from a JSON or YAML file (by extension).
func LoadRules(p string) (RuleSet, error) {
	var rs RuleSet
	raw, err := os.ReadFile(p)
	if err != nil {
		return rs, err
	}
	switch strings.ToLower(filepath.Ext(p)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(raw, &rs)
	default:
		err = json.Unmarshal(raw, &rs)
	}
	if err != nil {
		return rs, fmt.Errorf("parsing rules file %s: %w", p, err)
	}
	if err := rs.Validate(); err != nil {
		return rs, fmt.Errorf("invalid rules file %s: %w", p, err)
	}
	return rs, nil
}
