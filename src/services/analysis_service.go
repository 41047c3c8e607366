package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/patrickmn/go-cache"
	"github.com/username/smepulse/backend/src/logger"
	"github.com/username/smepulse/backend/src/model"
	"github.com/username/smepulse/backend/src/models"
	"github.com/username/smepulse/backend/src/processors"
	"github.com/username/smepulse/backend/src/security/validation"
)

const (
	ckLatestHealthScore  = "health_latest_company_%d"
	ckHealthHistory      = "health_history_company_%d_limit_%d"
	ckHealthHistoryScope = "health_history_company_%d_"
	ckLatestMetrics      = "metrics_latest_company_%d"

	DefaultCacheExpiration = 15 * time.Minute
	CacheCleanupInterval   = 30 * time.Minute

	DefaultWindowDays   = 90
	DefaultHistoryLimit = 10
)

type analysisServiceImpl struct {
	db                *sql.DB
	estimator         processors.RatioProvider
	scorer            *processors.BenchmarkScorer
	detector          *processors.AnomalyDetector
	reportCache       *cache.Cache
	defaultWindowDays int
	now               func() time.Time
}

// NewAnalysisService builds the scoring pipeline. Placeholder ratios come from an
// estimator seeded with estimatorSeed, so repeated runs over the same data agree.
func NewAnalysisService(
	db *sql.DB,
	benchmarks *processors.BenchmarkTable,
	estimatorSeed int64,
	defaultWindowDays int,
	reportCache *cache.Cache,
) AnalysisService {
	if defaultWindowDays == 0 {
		defaultWindowDays = DefaultWindowDays
	}
	return &analysisServiceImpl{
		db:                db,
		estimator:         processors.NewEstimatedRatioProvider(estimatorSeed, benchmarks),
		scorer:            processors.NewBenchmarkScorer(benchmarks),
		detector:          processors.NewAnomalyDetector(),
		reportCache:       reportCache,
		defaultWindowDays: defaultWindowDays,
		now:               time.Now,
	}
}

func (s *analysisServiceImpl) Analyze(ctx context.Context, companyID int64, windowDays int) (*models.AnalysisReport, error) {
	log := logger.FromContext(ctx).With("companyID", companyID)
	if windowDays == 0 {
		windowDays = s.defaultWindowDays
	}
	if err := validation.ValidateIntRange(windowDays, validation.MinWindowDays, validation.MaxWindowDays, "window_days"); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}

	company, err := lookupCompany(ctx, s.db, companyID)
	if err != nil {
		return nil, err
	}
	txs, err := model.ListCompanyTransactions(ctx, s.db, companyID)
	if err != nil {
		return nil, err
	}
	provider, err := s.ratioProvider(ctx, companyID)
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	window := models.NewWindow(now, windowDays)
	summary := processors.Summarize(txs, window)
	ratios := processors.NewRatioCalculator(provider).Compute(processors.RatioInput{
		Company:    *company,
		Summary:    summary,
		WindowDays: windowDays,
	})
	components := s.scorer.Score(ratios, company.Industry)
	overall, tier, rating := processors.Composite(components)
	anomalies := s.detector.Detect(processors.FilterWindow(txs, window), summary)
	recommendations := processors.GenerateRecommendations(ratios, overall)

	metrics := &models.FinancialMetrics{
		CompanyID:  companyID,
		WindowDays: windowDays,
		Summary:    summary,
		Ratios:     ratios,
		CreatedAt:  now,
	}
	snapshot := &models.HealthScoreSnapshot{
		CompanyID:    companyID,
		OverallScore: overall,
		Components:   components,
		RiskTier:     tier,
		CreditRating: rating,
		Period:       window,
		CreatedAt:    now,
	}
	newAnomalies, err := s.persist(ctx, metrics, snapshot, anomalies)
	if err != nil {
		return nil, err
	}
	s.InvalidateCompanyCache(companyID)

	log.Info("Analysis completed",
		"windowDays", windowDays,
		"transactions", summary.TransactionCount,
		"overallScore", overall,
		"riskTier", tier,
		"ratioSource", ratios.Source,
		"anomalies", len(anomalies),
		"newAnomalies", newAnomalies)

	if anomalies == nil {
		anomalies = []models.Anomaly{}
	}
	return &models.AnalysisReport{
		CompanyID:       companyID,
		WindowDays:      windowDays,
		Summary:         summary,
		Ratios:          ratios,
		HealthScore:     *snapshot,
		AnomalyCount:    len(anomalies),
		Anomalies:       anomalies,
		Recommendations: recommendations,
	}, nil
}

// ratioProvider prefers a recorded balance sheet and falls back to estimates.
func (s *analysisServiceImpl) ratioProvider(ctx context.Context, companyID int64) (processors.RatioProvider, error) {
	sheet, err := model.GetBalanceSheet(ctx, s.db, companyID)
	switch {
	case errors.Is(err, model.ErrNotFound):
		return s.estimator, nil
	case err != nil:
		return nil, err
	}
	return processors.NewFallbackRatioProvider(processors.NewObservedRatioProvider(*sheet), s.estimator), nil
}

// persist writes the metrics row, the snapshot, the anomalies and the transaction
// flags in one DB transaction. It returns how many anomalies were new.
func (s *analysisServiceImpl) persist(ctx context.Context, metrics *models.FinancialMetrics, snapshot *models.HealthScoreSnapshot, anomalies []models.Anomaly) (int, error) {
	dbTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("error beginning database transaction: %w", err)
	}
	defer dbTx.Rollback()

	if err := model.InsertFinancialMetrics(ctx, dbTx, metrics); err != nil {
		return 0, err
	}
	snapshot.MetricsID = metrics.ID
	if err := model.InsertHealthScore(ctx, dbTx, snapshot); err != nil {
		return 0, err
	}

	inserted := 0
	for i := range anomalies {
		a := &anomalies[i]
		a.HealthScoreID = snapshot.ID
		a.CreatedAt = snapshot.CreatedAt
		isNew, err := model.InsertAnomaly(ctx, dbTx, a)
		if err != nil {
			return 0, err
		}
		if isNew {
			inserted++
		}
		if a.Type == models.AnomalyLargeTransaction {
			if err := model.FlagTransaction(ctx, dbTx, a.TransactionID, a.Type); err != nil {
				return 0, err
			}
		}
	}

	if err := dbTx.Commit(); err != nil {
		return 0, fmt.Errorf("error committing analysis: %w", err)
	}
	return inserted, nil
}

func (s *analysisServiceImpl) GetLatestHealthScore(ctx context.Context, companyID int64) (*models.HealthScoreSnapshot, error) {
	cacheKey := fmt.Sprintf(ckLatestHealthScore, companyID)
	if cached, found := s.reportCache.Get(cacheKey); found {
		return cached.(*models.HealthScoreSnapshot), nil
	}
	if _, err := lookupCompany(ctx, s.db, companyID); err != nil {
		return nil, err
	}
	h, err := model.GetLatestHealthScore(ctx, s.db, companyID)
	if errors.Is(err, model.ErrNotFound) {
		return nil, fmt.Errorf("%w: company %d has no health score yet", ErrNoAnalysis, companyID)
	}
	if err != nil {
		return nil, err
	}
	s.reportCache.Set(cacheKey, h, cache.DefaultExpiration)
	return h, nil
}

func (s *analysisServiceImpl) GetHealthScoreHistory(ctx context.Context, companyID int64, limit int) ([]models.HealthScoreSnapshot, error) {
	if limit == 0 {
		limit = DefaultHistoryLimit
	}
	if err := validation.ValidateIntRange(limit, validation.MinHistoryLimit, validation.MaxHistoryLimit, "limit"); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	cacheKey := fmt.Sprintf(ckHealthHistory, companyID, limit)
	if cached, found := s.reportCache.Get(cacheKey); found {
		return cached.([]models.HealthScoreSnapshot), nil
	}
	if _, err := lookupCompany(ctx, s.db, companyID); err != nil {
		return nil, err
	}
	history, err := model.ListHealthScores(ctx, s.db, companyID, limit)
	if err != nil {
		return nil, err
	}
	s.reportCache.Set(cacheKey, history, cache.DefaultExpiration)
	return history, nil
}

func (s *analysisServiceImpl) ListAnomalies(ctx context.Context, companyID int64, filter models.AnomalyFilter) (*models.AnomalyList, error) {
	if _, err := lookupCompany(ctx, s.db, companyID); err != nil {
		return nil, err
	}
	anomalies, err := model.ListAnomalies(ctx, s.db, companyID, filter)
	if err != nil {
		return nil, err
	}
	bySeverity := make(map[models.Severity]int, len(models.Severities))
	for _, sev := range models.Severities {
		bySeverity[sev] = 0
	}
	for _, a := range anomalies {
		bySeverity[a.Severity]++
	}
	return &models.AnomalyList{Anomalies: anomalies, Total: len(anomalies), BySeverity: bySeverity}, nil
}

func (s *analysisServiceImpl) GetLatestMetrics(ctx context.Context, companyID int64) (*models.FinancialMetrics, error) {
	cacheKey := fmt.Sprintf(ckLatestMetrics, companyID)
	if cached, found := s.reportCache.Get(cacheKey); found {
		return cached.(*models.FinancialMetrics), nil
	}
	if _, err := lookupCompany(ctx, s.db, companyID); err != nil {
		return nil, err
	}
	m, err := model.GetLatestFinancialMetrics(ctx, s.db, companyID)
	if errors.Is(err, model.ErrNotFound) {
		return nil, fmt.Errorf("%w: company %d has no metrics yet", ErrNoAnalysis, companyID)
	}
	if err != nil {
		return nil, err
	}
	s.reportCache.Set(cacheKey, m, cache.DefaultExpiration)
	return m, nil
}

// InvalidateCompanyCache drops every cached read for the company.
func (s *analysisServiceImpl) InvalidateCompanyCache(companyID int64) {
	s.reportCache.Delete(fmt.Sprintf(ckLatestHealthScore, companyID))
	s.reportCache.Delete(fmt.Sprintf(ckLatestMetrics, companyID))
	scope := fmt.Sprintf(ckHealthHistoryScope, companyID)
	for key := range s.reportCache.Items() {
		if strings.HasPrefix(key, scope) {
			s.reportCache.Delete(key)
		}
	}
}
