package classifier

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/ytfilter/sieve/cachestore"

	"github.com/spaolacci/murmur3"
)

const verdictCacheName = "verdict"

// CachedClassifier memoizes verdicts of an inner classifier. Identical text
// with identical rules is only classified once per cache TTL.
//
// Cache failures are logged and otherwise ignored; only the inner classifier's
// errors are returned. Errors are never cached.
type CachedClassifier struct {
	Inner  Classifier
	Cache  cachestore.Store
	Logger *slog.Logger
}

var _ Classifier = (*CachedClassifier)(nil)

func NewCachedClassifier(inner Classifier, cache cachestore.Store, logger *slog.Logger) *CachedClassifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &CachedClassifier{
		Inner:  inner,
		Cache:  cache,
		Logger: logger.With("component", "classifier-cache"),
	}
}

// returns a fast, compact hash of a string
//
// current implementation uses murmur3, default seed, and hex encoding
func hashOfString(s string) string {
	val := murmur3.Sum64([]byte(s))
	return fmt.Sprintf("%016x", val)
}

func cacheKey(req *Request) (string, error) {
	raw, err := json.Marshal(req)
	if err != nil {
		return "", err
	}
	return hashOfString(string(raw)), nil
}

func (c *CachedClassifier) Classify(ctx context.Context, req *Request) (*Verdict, error) {
	key, err := cacheKey(req)
	if err != nil {
		return c.Inner.Classify(ctx, req)
	}

	cached, err := cachestore.GetJSON[Verdict](ctx, c.Cache, verdictCacheName, key)
	switch {
	case err != nil:
		classifierCacheCount.WithLabelValues("error").Inc()
		c.Logger.Warn("verdict cache read failed", "key", key, "err", err)
	case cached != nil:
		classifierCacheCount.WithLabelValues("hit").Inc()
		return cached, nil
	default:
		classifierCacheCount.WithLabelValues("miss").Inc()
	}

	v, err := c.Inner.Classify(ctx, req)
	if err != nil {
		return nil, err
	}
	if err := cachestore.SetJSON(ctx, c.Cache, verdictCacheName, key, v); err != nil {
		c.Logger.Warn("verdict cache write failed", "err", err)
	}
	return v, nil
}
