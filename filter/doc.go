// Multi-stage comment moderation pipeline.
//
// A raw comment flows through FirstPass (normalization, tokenization, and
// word-list screening), SecondPass (an external text classifier), RiskScorer (a
// pure scoring function), and finally Policy, which maps the score and a
// configured strictness level to an enforcement action.
//
// The stages communicate through a single FilterResult record. Matched spans
// are replaced in the record's masked text with sentinel tokens (__W__, __B__,
// __F__, __S__), which later stages never match, so each detection is scored
// exactly once.
//
// Stages absorb failures of their external dependencies (tokenizer, classifier)
// and degrade to "no detection"; only configuration errors (ErrInvalidConfig)
// reach the caller.
package filter
