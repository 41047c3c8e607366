package processors

import (
	"math"

	"github.com/username/smepulse/backend/src/models"
)

const neutralScore = 50.0

// score floor inside a benchmark band
const bandFloor = 30.0

func usable(v *float64) bool {
	return v != nil && !math.IsNaN(*v) && !math.IsInf(*v, 0)
}

// ScoreHigherIsBetter maps v onto 30..100 across band. Missing values score 50.
func ScoreHigherIsBetter(v *float64, band Band) float64 {
	if !usable(v) {
		return neutralScore
	}
	switch {
	case *v >= band.High:
		return 100
	case *v <= band.Low:
		return bandFloor
	default:
		return bandFloor + (*v-band.Low)/(band.High-band.Low)*(100-bandFloor)
	}
}

// ScoreLowerIsBetter is the mirror of ScoreHigherIsBetter.
func ScoreLowerIsBetter(v *float64, band Band) float64 {
	if !usable(v) {
		return neutralScore
	}
	switch {
	case *v <= band.Low:
		return 100
	case *v >= band.High:
		return bandFloor
	default:
		return 100 - (*v-band.Low)/(band.High-band.Low)*(100-bandFloor)
	}
}

// ScoreDSCR uses a fixed ladder rather than the industry band.
func ScoreDSCR(v *float64) float64 {
	if !usable(v) {
		return neutralScore
	}
	switch d := *v; {
	case d >= 2.0:
		return 100
	case d >= 1.5:
		return 85
	case d >= 1.25:
		return 70
	case d >= 1.0:
		return 50
	case d >= 0.75:
		return 30
	default:
		return 15
	}
}

// BenchmarkScorer scores ratios against an industry's bands.
type BenchmarkScorer struct {
	benchmarks *BenchmarkTable
}

func NewBenchmarkScorer(benchmarks *BenchmarkTable) *BenchmarkScorer {
	return &BenchmarkScorer{benchmarks: benchmarks}
}

func (s *BenchmarkScorer) Score(r models.RatioSet, industry models.Industry) models.ComponentScores {
	bands := s.benchmarks.For(industry)
	return models.ComponentScores{
		CashFlow:      ScoreHigherIsBetter(r.CurrentRatio, bands.CurrentRatio),
		Profitability: ScoreHigherIsBetter(r.NetMargin, bands.NetMargin),
		Leverage:      ScoreLowerIsBetter(r.DebtToEquity, bands.DebtToEquity),
		Efficiency:    ScoreHigherIsBetter(r.ReceivablesTurnover, s.benchmarks.ReceivablesTurnover),
		Stability:     ScoreDSCR(r.DSCR),
	}
}

// Component weights of the overall score.
const (
	weightCashFlow      = 0.25
	weightProfitability = 0.25
	weightLeverage      = 0.20
	weightEfficiency    = 0.15
	weightStability     = 0.15
)

// Composite returns the weighted overall score and its classifications.
func Composite(c models.ComponentScores) (float64, models.RiskTier, models.CreditRating) {
	overall := c.CashFlow*weightCashFlow +
		c.Profitability*weightProfitability +
		c.Leverage*weightLeverage +
		c.Efficiency*weightEfficiency +
		c.Stability*weightStability
	overall = math.Min(100, math.Max(0, overall))
	return overall, RiskTierFor(overall), CreditRatingFor(overall)
}

func RiskTierFor(overall float64) models.RiskTier {
	switch {
	case overall >= 80:
		return models.RiskLow
	case overall >= 60:
		return models.RiskMedium
	case overall >= 40:
		return models.RiskHigh
	default:
		return models.RiskCritical
	}
}

var ratingLadder = []struct {
	min    float64
	rating models.CreditRating
}{
	{90, "AAA"}, {80, "AA"}, {70, "A"}, {60, "BBB"}, {50, "BB"}, {40, "B"}, {30, "CCC"},
}

func CreditRatingFor(overall float64) models.CreditRating {
	for _, step := range ratingLadder {
		if overall >= step.min {
			return step.rating
		}
	}
	return "D"
}
