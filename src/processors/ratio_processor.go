package processors

import (
	"math"
	"math/rand"

	"github.com/username/smepulse/backend/src/models"
)

// debtServiceShare is the fraction of annualized outflows treated as debt service.
const debtServiceShare = 0.2

// RatioInput is everything a provider may draw on for one company and window.
type RatioInput struct {
	Company    models.Company
	Summary    models.FinancialSummary
	WindowDays int
}

// RatioProvider supplies balance-sheet style ratios. Fields it cannot supply stay nil.
type RatioProvider interface {
	Ratios(in RatioInput) models.RatioSet
}

func ptr(v float64) *float64 { return &v }

// safeDiv returns nil unless both operands are present and the divisor is non-zero.
func safeDiv(num, den *float64) *float64 {
	if num == nil || den == nil || *den == 0 {
		return nil
	}
	return ptr(*num / *den)
}

func pct(v *float64) *float64 {
	if v == nil {
		return nil
	}
	return ptr(*v * 100)
}

type estimatedRatioProvider struct {
	seed       int64
	benchmarks *BenchmarkTable
}

// NewEstimatedRatioProvider returns placeholder ratios built from the industry band
// midpoints plus bounded jitter. The jitter is seeded by seed and the company id, so
// the same company always gets the same ratios.
func NewEstimatedRatioProvider(seed int64, benchmarks *BenchmarkTable) RatioProvider {
	return &estimatedRatioProvider{seed: seed, benchmarks: benchmarks}
}

func (p *estimatedRatioProvider) Ratios(in RatioInput) models.RatioSet {
	rng := rand.New(rand.NewSource(p.seed ^ (in.Company.ID * 0x9E3779B1)))
	jitter := func(lo, hi float64) float64 { return lo + rng.Float64()*(hi-lo) }
	bands := p.benchmarks.For(in.Company.Industry)

	gross := 65 + jitter(-10, 15)
	return models.RatioSet{
		CurrentRatio:        ptr(bands.CurrentRatio.Mid() + jitter(-0.3, 0.6)),
		QuickRatio:          ptr(0.8 + jitter(-0.2, 0.4)),
		CashRatio:           ptr(0.3 + jitter(-0.1, 0.3)),
		DebtToEquity:        ptr(math.Max(0, bands.DebtToEquity.Mid()+jitter(-0.2, 0.3))),
		DebtToAssets:        ptr(0.3 + jitter(-0.1, 0.2)),
		GrossMargin:         ptr(gross),
		OperatingMargin:     ptr(gross * 0.7),
		ReturnOnAssets:      ptr(jitter(5, 15)),
		ReturnOnEquity:      ptr(jitter(10, 25)),
		ReceivablesTurnover: ptr(p.benchmarks.ReceivablesTurnover.Mid() + jitter(-4, 4)),
		PayablesTurnover:    ptr(jitter(6, 15)),
		DSCR:                ptr(2.5 + jitter(-0.5, 1.0)),
		Source:              models.RatioSourceEstimated,
	}
}

type observedRatioProvider struct {
	sheet models.BalanceSheet
}

// NewObservedRatioProvider derives ratios from a reported balance sheet.
func NewObservedRatioProvider(sheet models.BalanceSheet) RatioProvider {
	return &observedRatioProvider{sheet: sheet}
}

func (p *observedRatioProvider) Ratios(_ RatioInput) models.RatioSet {
	s := p.sheet
	r := models.RatioSet{
		CurrentRatio:        safeDiv(s.CurrentAssets, s.CurrentLiabilities),
		CashRatio:           safeDiv(s.Cash, s.CurrentLiabilities),
		DebtToEquity:        safeDiv(s.TotalDebt, s.TotalEquity),
		DebtToAssets:        safeDiv(s.TotalDebt, s.TotalAssets),
		ReceivablesTurnover: safeDiv(s.Revenue, s.Receivables),
		PayablesTurnover:    safeDiv(s.CostOfGoodsSold, s.Payables),
		OperatingMargin:     pct(safeDiv(s.OperatingIncome, s.Revenue)),
		NetMargin:           pct(safeDiv(s.NetIncome, s.Revenue)),
		ReturnOnAssets:      pct(safeDiv(s.NetIncome, s.TotalAssets)),
		ReturnOnEquity:      pct(safeDiv(s.NetIncome, s.TotalEquity)),
		Source:              models.RatioSourceObserved,
	}
	if s.CurrentAssets != nil && s.Inventory != nil {
		r.QuickRatio = safeDiv(ptr(*s.CurrentAssets-*s.Inventory), s.CurrentLiabilities)
	}
	if s.Revenue != nil && s.CostOfGoodsSold != nil {
		r.GrossMargin = pct(safeDiv(ptr(*s.Revenue-*s.CostOfGoodsSold), s.Revenue))
	}
	return r
}

type fallbackRatioProvider struct {
	primary, fallback RatioProvider
}

// NewFallbackRatioProvider fills the ratios primary cannot supply from fallback.
func NewFallbackRatioProvider(primary, fallback RatioProvider) RatioProvider {
	return &fallbackRatioProvider{primary: primary, fallback: fallback}
}

func (p *fallbackRatioProvider) Ratios(in RatioInput) models.RatioSet {
	out := p.primary.Ratios(in)
	alt := p.fallback.Ratios(in)

	fromPrimary, fromFallback := 0, 0
	dst, src := balanceSheetFields(&out), balanceSheetFields(&alt)
	for i := range dst {
		switch {
		case *dst[i] != nil:
			fromPrimary++
		case *src[i] != nil:
			*dst[i] = *src[i]
			fromFallback++
		}
	}
	if out.DSCR == nil {
		out.DSCR = alt.DSCR
	}

	switch {
	case fromFallback == 0:
	case fromPrimary == 0:
		out.Source = alt.Source
	default:
		out.Source = models.RatioSourceMixed
	}
	return out
}

// balanceSheetFields lists the provider-supplied ratios. NetMargin and DSCR are
// computed from cash flow when possible and do not count toward the source.
func balanceSheetFields(r *models.RatioSet) []**float64 {
	return []**float64{
		&r.CurrentRatio, &r.QuickRatio, &r.CashRatio,
		&r.DebtToEquity, &r.DebtToAssets,
		&r.ReceivablesTurnover, &r.PayablesTurnover,
		&r.GrossMargin, &r.OperatingMargin,
		&r.ReturnOnAssets, &r.ReturnOnEquity,
	}
}

// RatioCalculator combines cash-flow ratios with those of a provider.
type RatioCalculator struct {
	provider RatioProvider
}

func NewRatioCalculator(provider RatioProvider) *RatioCalculator {
	return &RatioCalculator{provider: provider}
}

// Compute returns the full ratio set for in. Net margin and DSCR come from the
// summary when it has the data; otherwise the provider's values are kept.
func (c *RatioCalculator) Compute(in RatioInput) models.RatioSet {
	r := c.provider.Ratios(in)
	s := in.Summary

	if s.TotalInflows > 0 {
		r.NetMargin = ptr(s.NetCashFlow / s.TotalInflows * 100)
	}
	if s.TotalOutflows > 0 {
		annualize := 1.0
		if in.WindowDays > 0 {
			annualize = 365 / float64(in.WindowDays)
		}
		annualNOI := s.NetCashFlow * annualize
		annualDebtService := s.TotalOutflows * annualize * debtServiceShare
		r.DSCR = ptr(annualNOI / annualDebtService)
	}
	return r
}
