package processors

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/username/smepulse/backend/src/models"
)

func TestScoreDSCRLadder(t *testing.T) {
	tests := []struct {
		dscr float64
		want float64
	}{
		{2.0, 100}, {1.99, 85}, {1.5, 85}, {1.25, 70}, {1.24, 50},
		{1.0, 50}, {0.99, 30}, {0.75, 30}, {0.74, 15}, {-3, 15},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ScoreDSCR(ptr(tt.dscr)), "dscr=%v", tt.dscr)
	}
	assert.Equal(t, 50.0, ScoreDSCR(nil))
	assert.Equal(t, 50.0, ScoreDSCR(ptr(math.NaN())))
}

func TestScoreHigherIsBetter(t *testing.T) {
	band := Band{Low: 1, High: 2}
	tests := []struct {
		name string
		v    *float64
		want float64
	}{
		{"missing", nil, 50},
		{"infinite", ptr(math.Inf(1)), 50},
		{"at high", ptr(2), 100},
		{"above high", ptr(5), 100},
		{"at low", ptr(1), 30},
		{"below low", ptr(-1), 30},
		{"midpoint", ptr(1.5), 65},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, ScoreHigherIsBetter(tt.v, band), 1e-9)
		})
	}
}

func TestScoreLowerIsBetter(t *testing.T) {
	band := Band{Low: 0.2, High: 0.5}
	assert.Equal(t, 50.0, ScoreLowerIsBetter(nil, band))
	assert.Equal(t, 100.0, ScoreLowerIsBetter(ptr(0.1), band))
	assert.Equal(t, 30.0, ScoreLowerIsBetter(ptr(0.9), band))
	assert.InDelta(t, 65.0, ScoreLowerIsBetter(ptr(0.35), band), 1e-9)
}

func TestRiskTierBoundaries(t *testing.T) {
	tests := []struct {
		overall float64
		want    models.RiskTier
	}{
		{100, models.RiskLow}, {80, models.RiskLow}, {79.99, models.RiskMedium},
		{60, models.RiskMedium}, {59.99, models.RiskHigh}, {40, models.RiskHigh},
		{39.99, models.RiskCritical}, {0, models.RiskCritical},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, RiskTierFor(tt.overall), "overall=%v", tt.overall)
	}
}

func TestCreditRatingFor(t *testing.T) {
	tests := []struct {
		overall float64
		want    models.CreditRating
	}{
		{95, "AAA"}, {90, "AAA"}, {89.9, "AA"}, {80, "AA"}, {70, "A"}, {60, "BBB"},
		{50, "BB"}, {40, "B"}, {30, "CCC"}, {29.9, "D"}, {0, "D"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, CreditRatingFor(tt.overall), "overall=%v", tt.overall)
	}
}

func TestCompositeStaysInRange(t *testing.T) {
	tests := []struct {
		name       string
		scores     models.ComponentScores
		want       float64
		wantTier   models.RiskTier
		wantRating models.CreditRating
	}{
		{"all max", uniformScores(100), 100, models.RiskLow, "AAA"},
		{"all neutral", uniformScores(50), 50, models.RiskHigh, "BB"},
		{"all min", uniformScores(15), 15, models.RiskCritical, "D"},
		{"weighted", models.ComponentScores{CashFlow: 100, Profitability: 0, Leverage: 100, Efficiency: 0, Stability: 0}, 45, models.RiskHigh, "B"},
		{"cash flow weight", models.ComponentScores{CashFlow: 100}, 25, models.RiskCritical, "D"},
		{"profitability weight", models.ComponentScores{Profitability: 100}, 25, models.RiskCritical, "D"},
		{"leverage weight", models.ComponentScores{Leverage: 100}, 20, models.RiskCritical, "D"},
		{"efficiency weight", models.ComponentScores{Efficiency: 100}, 15, models.RiskCritical, "D"},
		{"stability weight", models.ComponentScores{Stability: 100}, 15, models.RiskCritical, "D"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			overall, tier, rating := Composite(tt.scores)
			assert.InDelta(t, tt.want, overall, 1e-9)
			assert.GreaterOrEqual(t, overall, 0.0)
			assert.LessOrEqual(t, overall, 100.0)
			assert.Equal(t, tt.wantTier, tier)
			assert.Equal(t, tt.wantRating, rating)
		})
	}
}

func TestBenchmarkScorerUsesIndustryBands(t *testing.T) {
	scorer := NewBenchmarkScorer(DefaultBenchmarks())
	r := models.RatioSet{
		CurrentRatio:        ptr(2.0),
		NetMargin:           ptr(20),
		DebtToEquity:        ptr(0.1),
		ReceivablesTurnover: ptr(10),
		DSCR:                ptr(1.3),
	}

	services := scorer.Score(r, models.IndustryServices)
	assert.Equal(t, models.ComponentScores{CashFlow: 100, Profitability: 100, Leverage: 100, Efficiency: 100, Stability: 70}, services)

	it := scorer.Score(r, models.IndustryITServices)
	assert.InDelta(t, 30+(0.5/1.5)*70, it.CashFlow, 1e-9)
	assert.InDelta(t, 30+(10.0/15.0)*70, it.Profitability, 1e-9)

	assert.Equal(t, services, scorer.Score(r, models.IndustryConstruction))
	assert.Equal(t, uniformScores(50), scorer.Score(models.RatioSet{}, models.IndustryRetail))
}

func uniformScores(v float64) models.ComponentScores {
	return models.ComponentScores{CashFlow: v, Profitability: v, Leverage: v, Efficiency: v, Stability: v}
}
