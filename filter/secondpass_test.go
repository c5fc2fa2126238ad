package filter

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/ytfilter/sieve/classifier"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubClassifier struct {
	verdict *classifier.Verdict
	err     error
	req     *classifier.Request
}

func (s *stubClassifier) Classify(ctx context.Context, req *classifier.Request) (*classifier.Verdict, error) {
	s.req = req
	if s.err != nil {
		return nil, s.err
	}
	return s.verdict, nil
}

func verdictOf(items ...classifier.Item) *classifier.Verdict {
	return &classifier.Verdict{Items: items, Reason: "test", Severity: 3}
}

type slowClassifier struct{}

func (slowClassifier) Classify(ctx context.Context, req *classifier.Request) (*classifier.Verdict, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-time.After(5 * time.Second):
		return verdictOf(classifier.Item{Keyword: "a", Category: "SPAM"}), nil
	}
}

func maskedResult(original, masked string) *FilterResult {
	res := NewFilterResult(original)
	res.MaskedText = masked
	return res
}

func TestSecondPass(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()

	stub := &stubClassifier{verdict: verdictOf(
		classifier.Item{Keyword: "010-1234-5678", Category: "privacy"},
		classifier.Item{Keyword: "", Category: "SPAM"},
		classifier.Item{Keyword: "없는말", Category: "HATE"},
	)}
	sp := NewSecondPass(stub, classifier.DefaultRules(), time.Second, nil)

	in := maskedResult("연락처 010-1234-5678 으로 연락해", "연락처 01012345678 으로 연락해")
	out := sp.Execute(ctx, in)

	assert.Equal("연락처 01012345678 으로 연락해", stub.req.Text)
	assert.Equal(classifier.DefaultRules(), stub.req.Rules)

	assert.Equal("연락처 __S__ 으로 연락해", out.MaskedText)
	assert.Equal(StatusFilteredSecondPass, out.Status)
	assert.Equal([]DetectedItem{{Word: "01012345678", Category: "AI_PRIVACY"}}, out.DetectedItems)
	assert.NoError(out.Validate())

	// input is not modified
	assert.Equal("연락처 01012345678 으로 연락해", in.MaskedText)
	assert.Equal(StatusPassed, in.Status)
	assert.Empty(in.DetectedItems)
}

func TestSecondPassMergesAfterFirstPass(t *testing.T) {
	assert := assert.New(t)

	stub := &stubClassifier{verdict: verdictOf(classifier.Item{Keyword: "집 주소", Category: "aggression"})}
	sp := NewSecondPass(stub, classifier.DefaultRules(), time.Second, nil)

	in := testFirstPass(nil).Execute("바보야 너네 집 주소 안다")
	require.Equal(t, StatusFilteredFirstPass, in.Status)

	out := sp.Execute(context.Background(), in)
	assert.Equal("__F__야 너네 __S__ 안다", out.MaskedText)
	assert.Equal(StatusFilteredSecondPass, out.Status)
	assert.Equal([]DetectedItem{
		{Word: "바보", Category: CategorySystemKeyword},
		{Word: "집 주소", Category: "AI_AGGRESSION"},
	}, out.DetectedItems)
}

func TestSecondPassSentinelsAndOccurrences(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()

	// only the first occurrence outside of sentinels is replaced
	stub := &stubClassifier{verdict: verdictOf(
		classifier.Item{Keyword: "__F__", Category: "HATE"},
		classifier.Item{Keyword: "F", Category: "HATE"},
		classifier.Item{Keyword: "멍청", Category: "HATE"},
	)}
	sp := NewSecondPass(stub, classifier.DefaultRules(), time.Second, nil)
	out := sp.Execute(ctx, maskedResult("x", "__F__ 멍청 멍청"))
	assert.Equal("__F__ __S__ 멍청", out.MaskedText)
	assert.Equal([]DetectedItem{{Word: "멍청", Category: "AI_HATE"}}, out.DetectedItems)

	// no items at all keeps a passed result passed
	stub = &stubClassifier{verdict: verdictOf()}
	sp = NewSecondPass(stub, classifier.DefaultRules(), time.Second, nil)
	out = sp.Execute(ctx, maskedResult("안녕", "안녕"))
	assert.Equal(StatusPassed, out.Status)
	assert.Equal("안녕", out.MaskedText)
}

func TestSecondPassFailures(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()

	in := maskedResult("바보", "__F__")
	in.addDetection("바보", CategorySystemKeyword, StatusFilteredFirstPass)
	failuresBefore := testutil.ToFloat64(secondPassFailures)

	sp := NewSecondPass(&stubClassifier{err: errors.New("connection refused")}, classifier.DefaultRules(), time.Second, nil)
	assert.Same(in, sp.Execute(ctx, in))

	sp = NewSecondPass(&stubClassifier{err: classifier.ErrMalformedResponse}, classifier.DefaultRules(), time.Second, nil)
	assert.Same(in, sp.Execute(ctx, in))

	sp = NewSecondPass(slowClassifier{}, classifier.DefaultRules(), 20*time.Millisecond, nil)
	start := time.Now()
	assert.Same(in, sp.Execute(ctx, in))
	assert.Less(time.Since(start), 2*time.Second)
	assert.Equal(failuresBefore+3, testutil.ToFloat64(secondPassFailures))

	assert.Equal(StatusFilteredFirstPass, in.Status)
	assert.Len(in.DetectedItems, 1)
}

func TestSecondPassDefaults(t *testing.T) {
	sp := NewSecondPass(nil, classifier.RuleSet{}, 0, nil)
	assert.Equal(t, DefaultClassifierTimeout, sp.Timeout)

	out := sp.Execute(context.Background(), maskedResult("안녕", "안녕"))
	assert.Equal(t, StatusPassed, out.Status)
}
