package processors

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/username/smepulse/backend/src/models"
)

func categories(recs []models.Recommendation) []string {
	out := []string{}
	for _, r := range recs {
		out = append(out, r.Category)
	}
	return out
}

func TestGenerateRecommendations(t *testing.T) {
	tests := []struct {
		name    string
		ratios  models.RatioSet
		overall float64
		want    []string
	}{
		{
			name:    "all rules fire in declaration order",
			ratios:  models.RatioSet{CurrentRatio: ptr(0.8), DebtToEquity: ptr(1.2), DSCR: ptr(1.0), NetMargin: ptr(2)},
			overall: 35,
			want:    []string{"liquidity", "leverage", "dscr", "profitability", "general"},
		},
		{
			name:    "healthy",
			ratios:  models.RatioSet{CurrentRatio: ptr(1.5), DebtToEquity: ptr(0.8), DSCR: ptr(1.25), NetMargin: ptr(5)},
			overall: 60,
			want:    []string{},
		},
		{
			name:    "missing ratios never fire",
			ratios:  models.RatioSet{},
			overall: 50,
			want:    []string{"general"},
		},
		{
			name:    "negative margin",
			ratios:  models.RatioSet{NetMargin: ptr(-12)},
			overall: 75,
			want:    []string{"profitability"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, categories(GenerateRecommendations(tt.ratios, tt.overall)))
		})
	}
}

func TestRecommendationPriorities(t *testing.T) {
	recs := GenerateRecommendations(models.RatioSet{DebtToEquity: ptr(2), NetMargin: ptr(1)}, 90)
	if assert.Len(t, recs, 2) {
		assert.Equal(t, 2, recs[0].Priority)
		assert.Equal(t, "Reduce Debt Burden", recs[0].Title)
		assert.Equal(t, 3, recs[1].Priority)
	}
}
