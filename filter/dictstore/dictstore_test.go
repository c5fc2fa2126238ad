package dictstore

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLoadDictionaries(t *testing.T) {
	assert := assert.New(t)

	s := Load("testdata/user_dictionary.json", "testdata/system_dictionary.json", nil)

	assert.Equal(Counts{Whitelist: 2, Blacklist: 2, System: 5}, s.Counts())
	assert.True(s.InWhitelist("유튜버"))
	assert.True(s.InWhitelist("sibal"))
	assert.True(s.InWhitelist("SIBAL"))
	assert.True(s.InBlacklist("천사"))
	assert.False(s.InBlacklist(""))

	cat, ok := s.InSystem("개새끼")
	assert.True(ok)
	assert.Equal("profanity", cat)
	cat, ok = s.InSystem("바보")
	assert.True(ok)
	assert.Equal("insult", cat)
	_, ok = s.InSystem("안녕")
	assert.False(ok)
}

func TestLoadYAML(t *testing.T) {
	assert := assert.New(t)

	s := Load("", "testdata/system_dictionary.yaml", nil)
	assert.Equal(3, s.Counts().System)
	cat, ok := s.InSystem("yadong")
	assert.True(ok)
	assert.Equal("sexual", cat)
}

func TestLoadDegradesToEmpty(t *testing.T) {
	assert := assert.New(t)

	s := Load("testdata/does-not-exist.json", "testdata/malformed.json", nil)
	assert.Equal(Counts{}, s.Counts())
	assert.False(s.Contains("개새끼"))

	// a malformed entry only loses that entry
	s = Load("testdata/partial_user.json", "", nil)
	assert.Equal(Counts{Whitelist: 0, Blacklist: 1, System: 0}, s.Counts())
	assert.True(s.InBlacklist("스팸"))
}

func TestLookups(t *testing.T) {
	assert := assert.New(t)

	s := NewStore([]string{"good"}, []string{"bad"}, map[string][]string{"profanity": {"worse"}})

	assert.True(s.InWhitelist("good"))
	assert.False(s.InWhitelist("bad"))
	assert.True(s.InBlacklist("BAD"))
	_, ok := s.InSystem("worse")
	assert.True(ok)

	assert.True(s.Contains("good"))
	assert.True(s.Contains("worse"))
	assert.False(s.Contains("neutral"))
	assert.Equal(Counts{}, Empty().Counts())
}

func TestEntriesNormalized(t *testing.T) {
	assert := assert.New(t)

	s := NewStore(
		[]string{"유튜버!"},
		[]string{"f*ck", "ㅅㅂ", "  "},
		map[string][]string{"profanity": {"\u110a\u1175\u1107\u1161\u11af", "개.새.끼"}},
	)

	// "ㅅㅂ" (compatibility jamo) and blank entries are dropped
	assert.Equal(Counts{Whitelist: 1, Blacklist: 1, System: 2}, s.Counts())
	assert.True(s.InWhitelist("유튜버"))
	assert.True(s.InBlacklist("fck"))
	assert.True(s.InBlacklist("F*CK"))

	// decomposed entry matches composed text, and the other way round
	cat, ok := s.InSystem("씨발")
	assert.True(ok)
	assert.Equal("profanity", cat)
	_, ok = s.InSystem("개새끼")
	assert.True(ok)
}
