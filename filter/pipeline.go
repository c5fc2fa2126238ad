package filter

import (
	"context"
	"log/slog"
	"time"

	"github.com/ytfilter/sieve/classifier"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/errgroup"
)

var tracer = otel.Tracer("sieve/filter")

type PipelineConfig struct {
	Dictionary        Dictionary
	Tokenizer         Tokenizer
	Classifier        classifier.Classifier
	Rules             classifier.RuleSet
	ClassifierTimeout time.Duration
	Policy            PolicyConfig
	Logger            *slog.Logger
}

// Pipeline runs a comment through all moderation stages. Stages hold no
// per-request state, so a single Pipeline is safe for concurrent use.
type Pipeline struct {
	First  *FirstPass
	Second *SecondPass
	Scorer *RiskScorer
	Policy Policy
	Config PolicyConfig
	Logger *slog.Logger
}

// Analysis is the outcome of a full pipeline run.
type Analysis struct {
	OriginalText  string        `json:"original_text"`
	ProcessedText string        `json:"processed_text"`
	Action        Action        `json:"action"`
	Score         float64       `json:"score"`
	Details       *FilterResult `json:"details"`
}

func NewPipeline(config PipelineConfig) (*Pipeline, error) {
	if err := config.Policy.Validate(); err != nil {
		return nil, err
	}
	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}
	tok := config.Tokenizer
	if tok == nil {
		tok = NewRuleTokenizer(nil)
	}
	return &Pipeline{
		First:  NewFirstPass(config.Dictionary, tok, logger),
		Second: NewSecondPass(config.Classifier, config.Rules, config.ClassifierTimeout, logger),
		Scorer: NewRiskScorer(),
		Config: config.Policy,
		Logger: logger,
	}, nil
}

// Analyze runs the pipeline with the configured strictness.
func (p *Pipeline) Analyze(ctx context.Context, text string) (*Analysis, error) {
	return p.AnalyzeWith(ctx, text, p.Config)
}

// AnalyzeWith runs the pipeline with a per-request strictness. The only errors
// returned are configuration errors (ErrInvalidConfig); classifier and
// tokenizer failures are absorbed by the stages.
func (p *Pipeline) AnalyzeWith(ctx context.Context, text string, pc PolicyConfig) (*Analysis, error) {
	if err := pc.Validate(); err != nil {
		return nil, err
	}
	start := time.Now()
	defer func() {
		pipelineDuration.Observe(time.Since(start).Seconds())
	}()

	ctx, span := tracer.Start(ctx, "Analyze")
	defer span.End()

	_, fpSpan := tracer.Start(ctx, "FirstPass")
	res := p.First.Execute(text)
	fpSpan.SetAttributes(attribute.Int("detections", len(res.DetectedItems)))
	fpSpan.End()

	spCtx, spSpan := tracer.Start(ctx, "SecondPass")
	res = p.Second.Execute(spCtx, res)
	spSpan.SetAttributes(attribute.Int("detections", len(res.DetectedItems)))
	spSpan.End()

	score := p.Scorer.Execute(res)
	riskScoreHistogram.Observe(score)

	decision, err := p.Policy.Decide(score, res, pc.Level, pc.Threshold)
	if err != nil {
		return nil, err
	}
	span.SetAttributes(
		attribute.String("status", string(res.Status)),
		attribute.String("action", string(decision.Action)),
		attribute.Float64("score", score),
	)
	if decision.Action != ActionPass {
		p.Logger.Info("comment flagged", "action", decision.Action, "score", score, "status", res.Status, "categories", res.Categories())
	}

	return &Analysis{
		OriginalText:  text,
		ProcessedText: decision.RenderedText,
		Action:        decision.Action,
		Score:         score,
		Details:       res,
	}, nil
}

// AnalyzeBatch runs independent pipeline invocations concurrently, at most
// concurrency at a time. Results are in input order.
//
// Cancellation only stops new texts from being started: if ctx is done, the
// texts which were never started have a nil entry and ctx.Err() is returned
// along with the partial results.
func (p *Pipeline) AnalyzeBatch(ctx context.Context, texts []string, concurrency int) ([]*Analysis, error) {
	return p.AnalyzeBatchWith(ctx, texts, concurrency, p.Config)
}

func (p *Pipeline) AnalyzeBatchWith(ctx context.Context, texts []string, concurrency int, pc PolicyConfig) ([]*Analysis, error) {
	if err := pc.Validate(); err != nil {
		return nil, err
	}
	if concurrency < 1 {
		concurrency = 1
	}

	out := make([]*Analysis, len(texts))
	eg := new(errgroup.Group)
	eg.SetLimit(concurrency)
	for i, text := range texts {
		if ctx.Err() != nil {
			break
		}
		eg.Go(func() error {
			a, err := p.AnalyzeWith(ctx, text, pc)
			if err != nil {
				return err
			}
			out[i] = a
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return out, err
	}
	return out, ctx.Err()
}
