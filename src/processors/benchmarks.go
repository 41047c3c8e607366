package processors

import (
	_ "embed"
	"errors"
	"fmt"
	"os"

	"github.com/username/smepulse/backend/src/models"
	"gopkg.in/yaml.v2"
)

//go:embed benchmarks.yaml
var defaultBenchmarksYAML []byte

var ErrInvalidBenchmarks = errors.New("invalid benchmark table")

// Band is an industry (low, high) range.
type Band struct {
	Low  float64 `yaml:"low" json:"low"`
	High float64 `yaml:"high" json:"high"`
}

// Mid is the centre of the band.
func (b Band) Mid() float64 { return (b.Low + b.High) / 2 }

type IndustryBenchmarks struct {
	CurrentRatio Band `yaml:"current_ratio" json:"current_ratio"`
	DebtToEquity Band `yaml:"debt_to_equity" json:"debt_to_equity"`
	NetMargin    Band `yaml:"net_margin" json:"net_margin"`
	DSCR         Band `yaml:"dscr" json:"dscr"`
}

// BenchmarkTable holds the bands for each industry. It is read-only after loading.
type BenchmarkTable struct {
	DefaultIndustry     models.Industry                        `yaml:"default_industry"`
	ReceivablesTurnover Band                                   `yaml:"receivables_turnover"`
	Industries          map[models.Industry]IndustryBenchmarks `yaml:"industries"`
}

// For returns the bands for industry, falling back to the default industry.
func (t *BenchmarkTable) For(industry models.Industry) IndustryBenchmarks {
	if b, ok := t.Industries[industry]; ok {
		return b
	}
	return t.Industries[t.DefaultIndustry]
}

// ParseBenchmarks decodes and checks a YAML benchmark table.
func ParseBenchmarks(data []byte) (*BenchmarkTable, error) {
	var t BenchmarkTable
	if err := yaml.Unmarshal(data, &t); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidBenchmarks, err)
	}
	if _, ok := t.Industries[t.DefaultIndustry]; !ok {
		return nil, fmt.Errorf("%w: default industry %q has no bands", ErrInvalidBenchmarks, t.DefaultIndustry)
	}
	if t.ReceivablesTurnover.High <= t.ReceivablesTurnover.Low {
		return nil, fmt.Errorf("%w: receivables_turnover band is empty", ErrInvalidBenchmarks)
	}
	for industry, b := range t.Industries {
		for name, band := range map[string]Band{
			"current_ratio":  b.CurrentRatio,
			"debt_to_equity": b.DebtToEquity,
			"net_margin":     b.NetMargin,
			"dscr":           b.DSCR,
		} {
			if band.High <= band.Low {
				return nil, fmt.Errorf("%w: %s.%s low must be below high", ErrInvalidBenchmarks, industry, name)
			}
		}
	}
	return &t, nil
}

// DefaultBenchmarks returns the built-in table.
func DefaultBenchmarks() *BenchmarkTable {
	t, err := ParseBenchmarks(defaultBenchmarksYAML)
	if err != nil {
		panic(err)
	}
	return t
}

// LoadBenchmarks reads a table from path, or returns the built-in one when path is empty.
func LoadBenchmarks(path string) (*BenchmarkTable, error) {
	if path == "" {
		return DefaultBenchmarks(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read benchmark file %s: %w", path, err)
	}
	return ParseBenchmarks(data)
}
