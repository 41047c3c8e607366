package models

import "time"

// Window is an inclusive date range.
type Window struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// NewWindow returns the window of days ending at end.
func NewWindow(end time.Time, days int) Window {
	return Window{Start: end.AddDate(0, 0, -days), End: end}
}

func (w Window) Contains(t time.Time) bool {
	return !t.Before(w.Start) && !t.After(w.End)
}

type FinancialSummary struct {
	TotalInflows            float64 `json:"total_inflows"`
	TotalOutflows           float64 `json:"total_outflows"`
	NetCashFlow             float64 `json:"net_cash_flow"`
	AverageTransactionValue float64 `json:"average_transaction_value"`
	LargestInflow           float64 `json:"largest_inflow"`
	LargestOutflow          float64 `json:"largest_outflow"`
	TransactionCount        int     `json:"transaction_count"`
	Period                  Window  `json:"period"`
}

// RatioSource says where the liquidity, leverage and return ratios came from.
type RatioSource string

const (
	RatioSourceObserved  RatioSource = "observed"
	RatioSourceEstimated RatioSource = "estimated"
	RatioSourceMixed     RatioSource = "mixed"
)

// RatioSet holds derived ratios. A nil field means insufficient data.
// Margins and returns are percentages.
type RatioSet struct {
	CurrentRatio        *float64    `json:"current_ratio"`
	QuickRatio          *float64    `json:"quick_ratio"`
	CashRatio           *float64    `json:"cash_ratio"`
	DebtToEquity        *float64    `json:"debt_to_equity"`
	DebtToAssets        *float64    `json:"debt_to_assets"`
	ReceivablesTurnover *float64    `json:"receivables_turnover"`
	PayablesTurnover    *float64    `json:"payables_turnover"`
	GrossMargin         *float64    `json:"gross_margin"`
	OperatingMargin     *float64    `json:"operating_margin"`
	NetMargin           *float64    `json:"net_margin"`
	ReturnOnAssets      *float64    `json:"return_on_assets"`
	ReturnOnEquity      *float64    `json:"return_on_equity"`
	DSCR                *float64    `json:"dscr"`
	Source              RatioSource `json:"source"`
}

type ComponentScores struct {
	CashFlow      float64 `json:"cash_flow"`
	Profitability float64 `json:"profitability"`
	Leverage      float64 `json:"leverage"`
	Efficiency    float64 `json:"efficiency"`
	Stability     float64 `json:"stability"`
}

type RiskTier string

const (
	RiskLow      RiskTier = "low"
	RiskMedium   RiskTier = "medium"
	RiskHigh     RiskTier = "high"
	RiskCritical RiskTier = "critical"
)

type CreditRating string

// FinancialMetrics is the persisted summary and ratios of one analysis run.
type FinancialMetrics struct {
	ID         int64            `json:"id"`
	CompanyID  int64            `json:"company_id"`
	WindowDays int              `json:"window_days"`
	Summary    FinancialSummary `json:"summary"`
	Ratios     RatioSet         `json:"ratios"`
	CreatedAt  time.Time        `json:"created_at"`
}

// HealthScoreSnapshot is an append-only scoring record.
type HealthScoreSnapshot struct {
	ID           int64           `json:"id"`
	CompanyID    int64           `json:"company_id"`
	MetricsID    int64           `json:"metrics_id"`
	OverallScore float64         `json:"overall_score"`
	Components   ComponentScores `json:"components"`
	RiskTier     RiskTier        `json:"risk_tier"`
	CreditRating CreditRating    `json:"credit_rating"`
	Period       Window          `json:"assessment_period"`
	CreatedAt    time.Time       `json:"created_at"`
}

type AnomalyType string

const (
	AnomalyLargeTransaction   AnomalyType = "large_transaction"
	AnomalyCategorizedFlagged AnomalyType = "categorized_anomaly"
)

type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

var Severities = []Severity{SeverityLow, SeverityMedium, SeverityHigh, SeverityCritical}

type Anomaly struct {
	ID            int64          `json:"id"`
	CompanyID     int64          `json:"company_id"`
	TransactionID int64          `json:"transaction_id"`
	HealthScoreID int64          `json:"health_score_id,omitempty"`
	Type          AnomalyType    `json:"type"`
	Severity      Severity       `json:"severity"`
	Description   string         `json:"description"`
	Details       map[string]any `json:"details,omitempty"`
	IsResolved    bool           `json:"is_resolved"`
	CreatedAt     time.Time      `json:"created_at"`
}

type AnomalyFilter struct {
	Severity        Severity
	IncludeResolved bool
}

type AnomalyList struct {
	Anomalies  []Anomaly        `json:"anomalies"`
	Total      int              `json:"total"`
	BySeverity map[Severity]int `json:"by_severity"`
}

type Recommendation struct {
	Category    string `json:"category"`
	Priority    int    `json:"priority"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Impact      string `json:"impact"`
}

// AnalysisReport is returned by one analysis run.
type AnalysisReport struct {
	CompanyID       int64               `json:"company_id"`
	WindowDays      int                 `json:"window_days"`
	Summary         FinancialSummary    `json:"summary"`
	Ratios          RatioSet            `json:"ratios"`
	HealthScore     HealthScoreSnapshot `json:"health_score"`
	AnomalyCount    int                 `json:"anomaly_count"`
	Anomalies       []Anomaly           `json:"anomalies"`
	Recommendations []Recommendation    `json:"recommendations"`
}
