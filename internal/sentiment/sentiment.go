package sentiment

import (
	"strings"

	"github.com/grassmudhorses/vader-go/lexicon"
	"github.com/grassmudhorses/vader-go/sentitext"
	"github.com/sirupsen/logrus"
)

// Sentiment classification labels.
const (
	LabelPositive = "positive"
	LabelNegative = "negative"
	LabelNeutral  = "neutral"
)

// Result of analyzing one piece of text.
type Result struct {
	Score      float64 `json:"score"` // -1..1
	Label      string  `json:"label"`
	Confidence float64 `json:"confidence"`
}

// Analyzer scores free text.
type Analyzer interface {
	Name() string
	Analyze(text string) Result
}

// Scorer wraps a backend analyzer and adds rating-blended scoring.
type Scorer struct {
	backend Analyzer
}

// NewScorer builds a Scorer for the configured backend name ("vader" or
// "keyword"). Unknown names fall back to vader.
func NewScorer(backend string) *Scorer {
	switch backend {
	case "vader", "":
		return &Scorer{backend: &vaderAnalyzer{}}
	case "keyword":
		return &Scorer{backend: &keywordAnalyzer{}}
	default:
		logrus.Warnf("Unknown sentiment analyzer %q, falling back to vader", backend)
		return &Scorer{backend: &vaderAnalyzer{}}
	}
}

// Backend returns the name of the active analyzer backend.
func (s *Scorer) Backend() string {
	return s.backend.Name()
}

// Analyze scores the text alone. Empty or whitespace-only text is neutral
// with zero confidence.
func (s *Scorer) Analyze(text string) Result {
	if strings.TrimSpace(text) == "" {
		return Result{Score: 0.0, Label: LabelNeutral, Confidence: 0.0}
	}
	return s.backend.Analyze(text)
}

// AnalyzeWithRating blends the text score with a rating-derived score.
// Short review text is often uninformative while the numeric rating is
// always present, so the rating gets the larger weight when text
// confidence is low.
func (s *Scorer) AnalyzeWithRating(text string, rating *float64) Result {
	result := s.Analyze(text)
	if rating == nil {
		return result
	}

	ratingScore := (*rating - 3) / 2 // 1 star -> -1, 3 -> 0, 5 -> +1

	var blended float64
	if result.Confidence > 0.5 {
		blended = result.Score*0.7 + ratingScore*0.3
	} else {
		blended = result.Score*0.4 + ratingScore*0.6
	}
	blended = clamp(blended, -1, 1)

	return Result{
		Score:      blended,
		Label:      labelFor(blended),
		Confidence: result.Confidence,
	}
}

// labelFor maps a score onto a label: >= 0.05 positive, <= -0.05 negative.
func labelFor(score float64) string {
	switch {
	case score >= 0.05:
		return LabelPositive
	case score <= -0.05:
		return LabelNegative
	default:
		return LabelNeutral
	}
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// vaderAnalyzer scores text with the VADER lexicon. The compound score is
// already normalized to -1..1.
type vaderAnalyzer struct{}

func (v *vaderAnalyzer) Name() string { return "vader" }

func (v *vaderAnalyzer) Analyze(text string) Result {
	parsed := sentitext.Parse(text, lexicon.DefaultLexicon)
	polarity := sentitext.PolarityScore(parsed)

	confidence := polarity.Positive
	if polarity.Negative > confidence {
		confidence = polarity.Negative
	}
	if polarity.Neutral > confidence {
		confidence = polarity.Neutral
	}

	return Result{
		Score:      polarity.Compound,
		Label:      labelFor(polarity.Compound),
		Confidence: confidence,
	}
}

// keywordAnalyzer is a lightweight word-list scorer for environments where
// the full lexicon is unwanted. Score is the signed balance of matched
// words; confidence grows with the number of matches.
type keywordAnalyzer struct{}

var positiveWords = []string{
	"good", "great", "excellent", "love", "loved", "wonderful", "awesome",
	"fantastic", "helpful", "caring", "clean", "friendly", "attentive",
	"compassionate", "recommend", "happy", "amazing", "best",
}

var negativeWords = []string{
	"bad", "terrible", "awful", "hate", "dirty", "rude", "neglect",
	"unresponsive", "poor", "worst", "problem", "issue", "disappointed",
	"unsafe", "understaffed", "complaint", "never",
}

func (k *keywordAnalyzer) Name() string { return "keyword" }

func (k *keywordAnalyzer) Analyze(text string) Result {
	content := strings.ToLower(text)

	var pos, neg int
	for _, word := range positiveWords {
		if strings.Contains(content, word) {
			pos++
		}
	}
	for _, word := range negativeWords {
		if strings.Contains(content, word) {
			neg++
		}
	}

	total := pos + neg
	if total == 0 {
		return Result{Score: 0.0, Label: LabelNeutral, Confidence: 0.0}
	}

	score := float64(pos-neg) / float64(total)
	confidence := float64(total) / 5.0
	if confidence > 1 {
		confidence = 1
	}

	return Result{
		Score:      score,
		Label:      labelFor(score),
		Confidence: confidence,
	}
}
