package classifier

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/ytfilter/sieve/cachestore"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingClassifier struct {
	calls   int
	verdict *Verdict
	err     error
}

func (c *countingClassifier) Classify(ctx context.Context, req *Request) (*Verdict, error) {
	c.calls++
	return c.verdict, c.err
}

func TestCachedClassifier(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()

	inner := &countingClassifier{verdict: &Verdict{Items: []Item{{Keyword: "광고", Category: "SPAM"}}, Reason: "ad", Severity: 2}}
	c := NewCachedClassifier(inner, cachestore.NewMemStore(100, time.Minute), nil)

	req := &Request{Text: "광고 보세요", Rules: DefaultRules()}
	v, err := c.Classify(ctx, req)
	require.NoError(t, err)
	assert.Equal(inner.verdict, v)

	v, err = c.Classify(ctx, &Request{Text: "광고 보세요", Rules: DefaultRules()})
	require.NoError(t, err)
	assert.Equal(inner.verdict, v)
	assert.Equal(1, inner.calls)

	// different rules are a different cache entry
	_, err = c.Classify(ctx, &Request{Text: "광고 보세요", Rules: RuleSet{Basic: []string{"other"}}})
	require.NoError(t, err)
	assert.Equal(2, inner.calls)
}

func TestCachedClassifierErrorsNotCached(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()

	inner := &countingClassifier{err: errors.New("upstream down")}
	c := NewCachedClassifier(inner, cachestore.NewMemStore(100, time.Minute), nil)

	req := &Request{Text: "hello"}
	_, err := c.Classify(ctx, req)
	assert.Error(err)
	_, err = c.Classify(ctx, req)
	assert.Error(err)
	assert.Equal(2, inner.calls)
}
