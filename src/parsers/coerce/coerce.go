// Package coerce turns raw cell text into dates, amounts and directions.
package coerce

import (
	"errors"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/username/smepulse/backend/src/models"
)

var ErrInvalidAmount = errors.New("invalid amount")

// DateLayouts are tried in order; the first match wins.
// Day-first layouts precede the month-first fallback.
var DateLayouts = []string{
	"02/01/2006",
	"02-01-2006",
	"2006-01-02",
	"02 Jan 2006",
	"02 January 2006",
	"01/02/2006",
	"02-Jan-2006",
	"02-Jan-06",
	"02.01.2006",
	"02/01/06",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05Z07:00",
	"02/01/2006 15:04:05",
	"02/01/2006 15:04",
	"20060102",
}

// spreadsheet serial day zero
var excelEpoch = time.Date(1899, 12, 30, 0, 0, 0, 0, time.UTC)

// ParseDate parses s against DateLayouts, then as a spreadsheet serial number.
func ParseDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range DateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	if serial, err := strconv.ParseFloat(s, 64); err == nil && serial > 20000 && serial < 80000 {
		days := math.Floor(serial)
		return excelEpoch.AddDate(0, 0, int(days)), true
	}
	return time.Time{}, false
}

var (
	currencyNoise = strings.NewReplacer(",", "", "₹", "", "$", "", "€", "", "£", "", " ", "", "\u00a0", "")
	currencyWords = regexp.MustCompile(`(?i)^(inr|rs\.?|usd|eur)`)
	drCrSuffix    = regexp.MustCompile(`(?i)(dr|cr)\.?$`)
)

// ParseAmount parses a money cell. Thousands separators, currency markers and
// surrounding spaces are ignored. Parentheses and a trailing "Dr" make the
// value negative; a trailing "Cr" makes it positive.
func ParseAmount(s string) (decimal.Decimal, error) {
	raw := s
	s = strings.TrimSpace(s)
	if s == "" || s == "-" {
		return decimal.Zero, fmt.Errorf("%w: empty", ErrInvalidAmount)
	}

	negative := false
	if strings.HasPrefix(s, "(") && strings.HasSuffix(s, ")") {
		negative = true
		s = strings.TrimSuffix(strings.TrimPrefix(s, "("), ")")
	}

	forceSign := 0
	if m := drCrSuffix.FindString(s); m != "" {
		if strings.EqualFold(m[:2], "dr") {
			forceSign = -1
		} else {
			forceSign = 1
		}
		s = strings.TrimSpace(s[:len(s)-len(m)])
	}

	s = currencyWords.ReplaceAllString(strings.TrimSpace(s), "")
	s = currencyNoise.Replace(s)
	if s == "" {
		return decimal.Zero, fmt.Errorf("%w: %q", ErrInvalidAmount, raw)
	}

	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: %q", ErrInvalidAmount, raw)
	}
	if negative {
		d = d.Neg()
	}
	switch forceSign {
	case -1:
		d = d.Abs().Neg()
	case 1:
		d = d.Abs()
	}
	return d, nil
}

var directionWords = map[string]models.Direction{
	"credit":     models.Credit,
	"cr":         models.Credit,
	"c":          models.Credit,
	"deposit":    models.Credit,
	"in":         models.Credit,
	"inflow":     models.Credit,
	"receipt":    models.Credit,
	"receipts":   models.Credit,
	"sales":      models.Credit,
	"sale":       models.Credit,
	"income":     models.Credit,
	"debit":      models.Debit,
	"dr":         models.Debit,
	"d":          models.Debit,
	"withdrawal": models.Debit,
	"out":        models.Debit,
	"outflow":    models.Debit,
	"payment":    models.Debit,
	"payments":   models.Debit,
	"purchase":   models.Debit,
	"purchases":  models.Debit,
	"expense":    models.Debit,
}

// ParseDirection maps a direction cell to credit or debit.
func ParseDirection(s string) (models.Direction, bool) {
	key := strings.Trim(strings.ToLower(strings.TrimSpace(s)), ".")
	d, ok := directionWords[key]
	return d, ok
}

// DirectionFromSign treats negative amounts as debits.
func DirectionFromSign(d decimal.Decimal) models.Direction {
	if d.IsNegative() {
		return models.Debit
	}
	return models.Credit
}
