package dictstore

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Documents are decoded loosely (as generic maps), so that a single malformed
// entry degrades to an empty list instead of discarding the whole file.
//
// user dictionary: {"user_whitelist": [...], "user_blacklist": [...]}
// system dictionary: {"<category>": {"words": [...]}, ...}

// Decodes a JSON or YAML document, based on file extension.
func decodeFile(p string, v any) error {
	raw, err := os.ReadFile(p)
	if err != nil {
		return err
	}
	switch strings.ToLower(filepath.Ext(p)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(raw, v)
	default:
		err = json.Unmarshal(raw, v)
	}
	if err != nil {
		return fmt.Errorf("parsing %s: %w", p, err)
	}
	return nil
}

// Extracts the string elements of a decoded list; anything else yields nil.
func stringList(v any) []string {
	list, ok := v.([]any)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(list))
	for _, elem := range list {
		if s, ok := elem.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

func loadUserDictionary(p string) ([]string, []string, error) {
	var doc map[string]any
	if err := decodeFile(p, &doc); err != nil {
		return nil, nil, err
	}
	return stringList(doc["user_whitelist"]), stringList(doc["user_blacklist"]), nil
}

func loadSystemDictionary(p string, logger *slog.Logger) (map[string][]string, error) {
	var doc map[string]any
	if err := decodeFile(p, &doc); err != nil {
		return nil, err
	}
	out := make(map[string][]string, len(doc))
	for name, raw := range doc {
		cat, ok := raw.(map[string]any)
		if !ok {
			logger.Warn("skipping malformed system dictionary category", "path", p, "category", name)
			continue
		}
		out[name] = stringList(cat["words"])
	}
	return out, nil
}

// Load reads the user and system dictionaries. It never fails: a missing or
// malformed file is logged and degrades to empty sets. An empty path skips that
// file.
func Load(userPath, systemPath string, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}

	var whitelist, blacklist []string
	if userPath != "" {
		w, b, err := loadUserDictionary(userPath)
		if err != nil {
			logger.Warn("failed to load user dictionary, continuing with empty lists", "path", userPath, "err", err)
		} else {
			whitelist, blacklist = w, b
		}
	}

	var system map[string][]string
	if systemPath != "" {
		sys, err := loadSystemDictionary(systemPath, logger)
		if err != nil {
			logger.Warn("failed to load system dictionary, continuing with empty dictionary", "path", systemPath, "err", err)
		} else {
			system = sys
		}
	}

	s := NewStore(whitelist, blacklist, system)
	c := s.Counts()
	logger.Info("loaded dictionaries", "whitelist", c.Whitelist, "blacklist", c.Blacklist, "system", c.System)
	return s
}
