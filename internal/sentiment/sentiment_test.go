package sentiment

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLabelFor(t *testing.T) {
	tests := []struct {
		name     string
		score    float64
		expected string
	}{
		{name: "Clearly positive", score: 0.8, expected: LabelPositive},
		{name: "At positive threshold", score: 0.05, expected: LabelPositive},
		{name: "Just below positive threshold", score: 0.04, expected: LabelNeutral},
		{name: "Zero", score: 0.0, expected: LabelNeutral},
		{name: "Just above negative threshold", score: -0.04, expected: LabelNeutral},
		{name: "At negative threshold", score: -0.05, expected: LabelNegative},
		{name: "Clearly negative", score: -0.9, expected: LabelNegative},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, labelFor(tt.score))
		})
	}
}

func TestScorer_Analyze_EmptyText(t *testing.T) {
	for _, backend := range []string{"vader", "keyword"} {
		scorer := NewScorer(backend)

		for _, text := range []string{"", "   ", "\t\n"} {
			result := scorer.Analyze(text)
			assert.Equal(t, 0.0, result.Score)
			assert.Equal(t, LabelNeutral, result.Label)
			assert.Equal(t, 0.0, result.Confidence)
		}
	}
}

func TestScorer_UnknownBackendFallsBackToVader(t *testing.T) {
	scorer := NewScorer("bogus")
	assert.Equal(t, "vader", scorer.Backend())
}

func TestScorer_DefaultBackendIsVader(t *testing.T) {
	scorer := NewScorer("")
	assert.Equal(t, "vader", scorer.Backend())
}

func TestVaderAnalyzer(t *testing.T) {
	scorer := NewScorer("vader")

	positive := scorer.Analyze("The staff was wonderful and my mother loves living here!")
	assert.Equal(t, LabelPositive, positive.Label)
	assert.Greater(t, positive.Score, 0.05)

	negative := scorer.Analyze("Terrible place, the staff was rude and neglectful. Awful experience.")
	assert.Equal(t, LabelNegative, negative.Label)
	assert.Less(t, negative.Score, -0.05)
}

func TestKeywordAnalyzer(t *testing.T) {
	scorer := NewScorer("keyword")

	tests := []struct {
		name     string
		text     string
		expected string
	}{
		{
			name:     "Positive review",
			text:     "The caring staff was wonderful, clean rooms and friendly nurses",
			expected: LabelPositive,
		},
		{
			name:     "Negative review",
			text:     "Terrible facility, rude staff, dirty rooms, very disappointed",
			expected: LabelNegative,
		},
		{
			name:     "No matched words",
			text:     "We visited the facility on Tuesday",
			expected: LabelNeutral,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := scorer.Analyze(tt.text)
			assert.Equal(t, tt.expected, result.Label)
		})
	}
}

func TestScorer_AnalyzeWithRating(t *testing.T) {
	scorer := NewScorer("keyword")

	t.Run("Nil rating returns text score unchanged", func(t *testing.T) {
		text := "wonderful caring staff"
		plain := scorer.Analyze(text)
		blended := scorer.AnalyzeWithRating(text, nil)
		assert.Equal(t, plain, blended)
	})

	t.Run("Rating dominates when text is uninformative", func(t *testing.T) {
		// No sentiment words: text score 0 with zero confidence, so the
		// one-star rating (-1.0) carries 0.6 of the blend.
		rating := 1.0
		result := scorer.AnalyzeWithRating("We moved in last month", &rating)
		assert.InDelta(t, -0.6, result.Score, 0.001)
		assert.Equal(t, LabelNegative, result.Label)
	})

	t.Run("Three star rating pulls score toward zero", func(t *testing.T) {
		rating := 3.0
		text := "wonderful wonderful great excellent love this place, caring and clean"
		plain := scorer.Analyze(text)
		result := scorer.AnalyzeWithRating(text, &rating)
		// Rating term is (3-3)/2 = 0, so the blend only shrinks the text score.
		assert.Less(t, result.Score, plain.Score)
		assert.Greater(t, result.Score, 0.0)
	})

	t.Run("Five star rating with positive text is positive", func(t *testing.T) {
		rating := 5.0
		result := scorer.AnalyzeWithRating("great caring friendly staff", &rating)
		assert.Equal(t, LabelPositive, result.Label)
	})

	t.Run("Score stays within bounds", func(t *testing.T) {
		rating := 5.0
		text := "great excellent wonderful amazing best love fantastic awesome"
		result := scorer.AnalyzeWithRating(text, &rating)
		assert.LessOrEqual(t, result.Score, 1.0)
		assert.GreaterOrEqual(t, result.Score, -1.0)
	})
}
