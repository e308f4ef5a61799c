// Package sentiment scores review text with the VADER lexicon and rule based
// model and provides a caching decorator for any domain.Scorer.
package sentiment

import (
	"context"
	"math"
	"strings"

	"github.com/jonreiter/govader"

	"review_analyzer/internal/domain"
)

// Version identifies the lexicon and rule set. Bump it whenever scores change
// so cached polarities from an older model are not reused.
const Version = "vader-govader-20250429"

// Analyzer wraps a govader analyzer. The lexicon is read-only after
// construction, so one Analyzer serves concurrent requests.
type Analyzer struct {
	vader *govader.SentimentIntensityAnalyzer
}

func NewAnalyzer() *Analyzer {
	return &Analyzer{vader: govader.NewSentimentIntensityAnalyzer()}
}

func (a *Analyzer) Version() string { return Version }

func (a *Analyzer) Score(ctx context.Context, text string) (domain.Polarity, error) {
	if err := ctx.Err(); err != nil {
		return domain.Polarity{}, err
	}
	return a.PolarityScores(text), nil
}

// PolarityScores returns the negative, neutral and positive proportions of
// text plus the normalized compound score, rounded like the reference VADER
// output (three places, four for compound).
func (a *Analyzer) PolarityScores(text string) domain.Polarity {
	if strings.TrimSpace(text) == "" {
		return domain.Polarity{}
	}
	s := a.vader.PolarityScores(text)
	return domain.Polarity{
		Neg:      round(s.Negative, 3),
		Neu:      round(s.Neutral, 3),
		Pos:      round(s.Positive, 3),
		Compound: round(math.Max(-1, math.Min(1, s.Compound)), 4),
	}
}

func round(f float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(f*p) / p
}
