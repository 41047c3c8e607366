package model

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/username/smepulse/backend/src/models"
)

func InsertFinancialMetrics(ctx context.Context, db DBTX, m *models.FinancialMetrics) error {
	s, r := m.Summary, m.Ratios
	res, err := db.ExecContext(ctx, `
	INSERT INTO financial_metrics (company_id, period_start, period_end, window_days,
	    total_inflows, total_outflows, net_cash_flow, average_transaction_value,
	    largest_inflow, largest_outflow, transaction_count,
	    current_ratio, quick_ratio, cash_ratio, debt_to_equity, debt_to_assets,
	    receivables_turnover, payables_turnover, gross_margin, operating_margin, net_margin,
	    return_on_assets, return_on_equity, dscr, ratio_source, created_at)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		m.CompanyID, formatTime(s.Period.Start), formatTime(s.Period.End), m.WindowDays,
		s.TotalInflows, s.TotalOutflows, s.NetCashFlow, s.AverageTransactionValue,
		s.LargestInflow, s.LargestOutflow, s.TransactionCount,
		nullFloatArg(r.CurrentRatio), nullFloatArg(r.QuickRatio), nullFloatArg(r.CashRatio),
		nullFloatArg(r.DebtToEquity), nullFloatArg(r.DebtToAssets),
		nullFloatArg(r.ReceivablesTurnover), nullFloatArg(r.PayablesTurnover),
		nullFloatArg(r.GrossMargin), nullFloatArg(r.OperatingMargin), nullFloatArg(r.NetMargin),
		nullFloatArg(r.ReturnOnAssets), nullFloatArg(r.ReturnOnEquity), nullFloatArg(r.DSCR),
		string(r.Source), formatTime(m.CreatedAt))
	if err != nil {
		return fmt.Errorf("failed to insert financial metrics for company %d: %w", m.CompanyID, err)
	}
	m.ID, err = res.LastInsertId()
	return err
}

func GetLatestFinancialMetrics(ctx context.Context, db DBTX, companyID int64) (*models.FinancialMetrics, error) {
	row := db.QueryRowContext(ctx, `
	SELECT id, period_start, period_end, window_days,
	       total_inflows, total_outflows, net_cash_flow, average_transaction_value,
	       largest_inflow, largest_outflow, transaction_count,
	       current_ratio, quick_ratio, cash_ratio, debt_to_equity, debt_to_assets,
	       receivables_turnover, payables_turnover, gross_margin, operating_margin, net_margin,
	       return_on_assets, return_on_equity, dscr, ratio_source, created_at
	FROM financial_metrics WHERE company_id = ? ORDER BY id DESC LIMIT 1`, companyID)

	m := models.FinancialMetrics{CompanyID: companyID}
	s := &m.Summary
	var start, end, source, createdAt string
	var f [13]sql.NullFloat64
	err := row.Scan(&m.ID, &start, &end, &m.WindowDays,
		&s.TotalInflows, &s.TotalOutflows, &s.NetCashFlow, &s.AverageTransactionValue,
		&s.LargestInflow, &s.LargestOutflow, &s.TransactionCount,
		&f[0], &f[1], &f[2], &f[3], &f[4], &f[5], &f[6], &f[7], &f[8], &f[9], &f[10], &f[11], &f[12],
		&source, &createdAt)
	if err != nil {
		return nil, notFound(err, "financial metrics for company", companyID)
	}
	m.Ratios = models.RatioSet{
		CurrentRatio:        floatPtr(f[0]),
		QuickRatio:          floatPtr(f[1]),
		CashRatio:           floatPtr(f[2]),
		DebtToEquity:        floatPtr(f[3]),
		DebtToAssets:        floatPtr(f[4]),
		ReceivablesTurnover: floatPtr(f[5]),
		PayablesTurnover:    floatPtr(f[6]),
		GrossMargin:         floatPtr(f[7]),
		OperatingMargin:     floatPtr(f[8]),
		NetMargin:           floatPtr(f[9]),
		ReturnOnAssets:      floatPtr(f[10]),
		ReturnOnEquity:      floatPtr(f[11]),
		DSCR:                floatPtr(f[12]),
		Source:              models.RatioSource(source),
	}
	if s.Period.Start, err = parseTime(start); err != nil {
		return nil, err
	}
	if s.Period.End, err = parseTime(end); err != nil {
		return nil, err
	}
	if m.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	return &m, nil
}

// InsertHealthScore appends a snapshot; snapshots are never updated.
func InsertHealthScore(ctx context.Context, db DBTX, h *models.HealthScoreSnapshot) error {
	c := h.Components
	res, err := db.ExecContext(ctx, `
	INSERT INTO health_scores (company_id, metrics_id, overall_score, cash_flow_score,
	    profitability_score, leverage_score, efficiency_score, stability_score,
	    risk_tier, credit_rating, period_start, period_end, created_at)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		h.CompanyID, h.MetricsID, h.OverallScore, c.CashFlow, c.Profitability, c.Leverage,
		c.Efficiency, c.Stability, string(h.RiskTier), string(h.CreditRating),
		formatTime(h.Period.Start), formatTime(h.Period.End), formatTime(h.CreatedAt))
	if err != nil {
		return fmt.Errorf("failed to insert health score for company %d: %w", h.CompanyID, err)
	}
	h.ID, err = res.LastInsertId()
	return err
}

const healthScoreColumns = `id, company_id, metrics_id, overall_score, cash_flow_score, profitability_score,
	leverage_score, efficiency_score, stability_score, risk_tier, credit_rating,
	period_start, period_end, created_at`

func scanHealthScore(row interface{ Scan(...any) error }) (models.HealthScoreSnapshot, error) {
	var h models.HealthScoreSnapshot
	c := &h.Components
	var tier, rating, start, end, createdAt string
	err := row.Scan(&h.ID, &h.CompanyID, &h.MetricsID, &h.OverallScore, &c.CashFlow, &c.Profitability,
		&c.Leverage, &c.Efficiency, &c.Stability, &tier, &rating, &start, &end, &createdAt)
	if err != nil {
		return h, err
	}
	h.RiskTier = models.RiskTier(tier)
	h.CreditRating = models.CreditRating(rating)
	if h.Period.Start, err = parseTime(start); err != nil {
		return h, err
	}
	if h.Period.End, err = parseTime(end); err != nil {
		return h, err
	}
	h.CreatedAt, err = parseTime(createdAt)
	return h, err
}

func GetLatestHealthScore(ctx context.Context, db DBTX, companyID int64) (*models.HealthScoreSnapshot, error) {
	row := db.QueryRowContext(ctx, `SELECT `+healthScoreColumns+` FROM health_scores
	WHERE company_id = ? ORDER BY id DESC LIMIT 1`, companyID)
	h, err := scanHealthScore(row)
	if err != nil {
		return nil, notFound(err, "health score for company", companyID)
	}
	return &h, nil
}

// ListHealthScores returns up to limit snapshots, newest first.
func ListHealthScores(ctx context.Context, db DBTX, companyID int64, limit int) ([]models.HealthScoreSnapshot, error) {
	rows, err := db.QueryContext(ctx, `SELECT `+healthScoreColumns+` FROM health_scores
	WHERE company_id = ? ORDER BY id DESC LIMIT ?`, companyID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list health scores for company %d: %w", companyID, err)
	}
	defer rows.Close()

	history := []models.HealthScoreSnapshot{}
	for rows.Next() {
		h, err := scanHealthScore(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan health score: %w", err)
		}
		history = append(history, h)
	}
	return history, rows.Err()
}

// InsertAnomaly stores a new anomaly. It reports false when the same anomaly type
// is already recorded for the transaction.
func InsertAnomaly(ctx context.Context, db DBTX, a *models.Anomaly) (bool, error) {
	var details any
	if len(a.Details) > 0 {
		b, err := json.Marshal(a.Details)
		if err != nil {
			return false, fmt.Errorf("failed to encode anomaly details: %w", err)
		}
		details = string(b)
	}
	var healthScoreID any
	if a.HealthScoreID != 0 {
		healthScoreID = a.HealthScoreID
	}
	res, err := db.ExecContext(ctx, `
	INSERT OR IGNORE INTO anomalies (company_id, transaction_id, health_score_id, anomaly_type,
	    severity, description, details, is_resolved, created_at)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		a.CompanyID, a.TransactionID, healthScoreID, string(a.Type), string(a.Severity),
		a.Description, details, a.IsResolved, formatTime(a.CreatedAt))
	if err != nil {
		return false, fmt.Errorf("failed to insert anomaly for transaction %d: %w", a.TransactionID, err)
	}
	n, err := res.RowsAffected()
	if err != nil || n == 0 {
		return false, err
	}
	a.ID, err = res.LastInsertId()
	return true, err
}

func ListAnomalies(ctx context.Context, db DBTX, companyID int64, filter models.AnomalyFilter) ([]models.Anomaly, error) {
	var sb strings.Builder
	sb.WriteString(`SELECT id, company_id, transaction_id, health_score_id, anomaly_type, severity,
	       description, details, is_resolved, created_at
	FROM anomalies WHERE company_id = ?`)
	args := []any{companyID}
	if filter.Severity != "" {
		sb.WriteString(` AND severity = ?`)
		args = append(args, string(filter.Severity))
	}
	if !filter.IncludeResolved {
		sb.WriteString(` AND is_resolved = 0`)
	}
	sb.WriteString(` ORDER BY id DESC`)

	rows, err := db.QueryContext(ctx, sb.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list anomalies for company %d: %w", companyID, err)
	}
	defer rows.Close()

	anomalies := []models.Anomaly{}
	for rows.Next() {
		var a models.Anomaly
		var healthScoreID sql.NullInt64
		var typ, severity, createdAt string
		var details sql.NullString
		if err := rows.Scan(&a.ID, &a.CompanyID, &a.TransactionID, &healthScoreID, &typ, &severity,
			&a.Description, &details, &a.IsResolved, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan anomaly: %w", err)
		}
		a.HealthScoreID = healthScoreID.Int64
		a.Type = models.AnomalyType(typ)
		a.Severity = models.Severity(severity)
		if details.Valid && details.String != "" {
			if err := json.Unmarshal([]byte(details.String), &a.Details); err != nil {
				return nil, fmt.Errorf("bad details on anomaly %d: %w", a.ID, err)
			}
		}
		if a.CreatedAt, err = parseTime(createdAt); err != nil {
			return nil, err
		}
		anomalies = append(anomalies, a)
	}
	return anomalies, rows.Err()
}
