package processors

import "github.com/username/smepulse/backend/src/models"

type recommendationRule struct {
	applies func(r models.RatioSet, overall float64) bool
	rec     models.Recommendation
}

func below(v *float64, limit float64) bool { return v != nil && *v < limit }
func above(v *float64, limit float64) bool { return v != nil && *v > limit }

// Output follows this order.
var recommendationRules = []recommendationRule{
	{
		applies: func(r models.RatioSet, _ float64) bool { return below(r.CurrentRatio, 1.0) },
		rec: models.Recommendation{
			Category:    "liquidity",
			Priority:    1,
			Title:       "Improve Current Ratio",
			Description: "Your current ratio is below industry benchmark. Consider maintaining higher cash reserves or negotiating longer payment terms with suppliers.",
			Impact:      "Better ability to meet short-term obligations",
		},
	},
	{
		applies: func(r models.RatioSet, _ float64) bool { return above(r.DebtToEquity, 0.8) },
		rec: models.Recommendation{
			Category:    "leverage",
			Priority:    2,
			Title:       "Reduce Debt Burden",
			Description: "Your debt-to-equity ratio is high. Consider accelerating debt repayment or exploring equity financing options.",
			Impact:      "Lower interest costs and improved financial flexibility",
		},
	},
	{
		applies: func(r models.RatioSet, _ float64) bool { return below(r.DSCR, 1.25) },
		rec: models.Recommendation{
			Category:    "dscr",
			Priority:    1,
			Title:       "Improve Debt Service Coverage",
			Description: "Your DSCR indicates potential difficulty in servicing debt. Focus on improving operating income or restructuring debt payments.",
			Impact:      "Better loan eligibility and lower borrowing costs",
		},
	},
	{
		applies: func(r models.RatioSet, _ float64) bool { return below(r.NetMargin, 5) },
		rec: models.Recommendation{
			Category:    "profitability",
			Priority:    3,
			Title:       "Improve Profit Margins",
			Description: "Net profit margins are below industry average. Review pricing strategy and cost structure.",
			Impact:      "Increased profitability and shareholder value",
		},
	},
	{
		applies: func(_ models.RatioSet, overall float64) bool { return overall < 60 },
		rec: models.Recommendation{
			Category:    "general",
			Priority:    1,
			Title:       "Financial Health Improvement Plan",
			Description: "Consider engaging with a financial advisor to develop a comprehensive improvement strategy.",
			Impact:      "Systematic approach to improving financial health",
		},
	},
}

// GenerateRecommendations returns the recommendations whose trigger fires.
func GenerateRecommendations(r models.RatioSet, overall float64) []models.Recommendation {
	recs := []models.Recommendation{}
	for _, rule := range recommendationRules {
		if rule.applies(r, overall) {
			recs = append(recs, rule.rec)
		}
	}
	return recs
}
