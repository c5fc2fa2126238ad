// Word lists used by the first-pass filter: a user whitelist, a user
// blacklist, and the system dictionary of prohibited words.
//
// Entries are stored normalized (textnorm.Normalize), the same way comment
// text is, and lookups normalize their argument. A Store is loaded once at
// startup and is immutable afterwards, so it is safe for unsynchronized
// concurrent reads. Reloading means constructing a new Store.
package dictstore

import (
	"log/slog"
	"strings"

	"github.com/ytfilter/sieve/filter/textnorm"
)

type Store struct {
	whitelist map[string]bool
	blacklist map[string]bool
	// word to system dictionary category
	system map[string]string
}

// Brings a dictionary entry or a looked-up word to the same form as
// normalized comment text. Returns empty string for entries which should be
// dropped.
func cleanWord(w string) string {
	return strings.TrimSpace(textnorm.Normalize(w))
}

// like cleanWord, but warns about non-blank entries which normalize to
// nothing (eg, compatibility jamo like "ㅅㅂ"), since they can never match
func cleanEntry(w string) string {
	clean := cleanWord(w)
	if clean == "" && strings.TrimSpace(w) != "" {
		slog.Warn("dropping dictionary entry which is empty after normalization", "entry", w)
	}
	return clean
}

func toSet(words []string) map[string]bool {
	m := make(map[string]bool, len(words))
	for _, w := range words {
		if w = cleanEntry(w); w != "" {
			m[w] = true
		}
	}
	return m
}

// NewStore builds a store from in-memory lists. system maps category names to
// word lists.
func NewStore(whitelist, blacklist []string, system map[string][]string) *Store {
	s := &Store{
		whitelist: toSet(whitelist),
		blacklist: toSet(blacklist),
		system:    make(map[string]string),
	}
	for cat, words := range system {
		for _, w := range words {
			if w = cleanEntry(w); w != "" {
				s.system[w] = cat
			}
		}
	}
	return s
}

// Empty returns a store with no entries; all lookups miss.
func Empty() *Store {
	return NewStore(nil, nil, nil)
}

func (s *Store) InWhitelist(word string) bool {
	return s.whitelist[cleanWord(word)]
}

func (s *Store) InBlacklist(word string) bool {
	return s.blacklist[cleanWord(word)]
}

// InSystem reports whether the word is in the system dictionary, and which
// category it was listed under.
func (s *Store) InSystem(word string) (string, bool) {
	cat, ok := s.system[cleanWord(word)]
	return cat, ok
}

// Contains reports whether the word is in any of the sets.
func (s *Store) Contains(word string) bool {
	w := cleanWord(word)
	if s.whitelist[w] || s.blacklist[w] {
		return true
	}
	_, ok := s.system[w]
	return ok
}

type Counts struct {
	Whitelist int `json:"whitelist"`
	Blacklist int `json:"blacklist"`
	System    int `json:"system"`
}

func (s *Store) Counts() Counts {
	return Counts{
		Whitelist: len(s.whitelist),
		Blacklist: len(s.blacklist),
		System:    len(s.system),
	}
}
