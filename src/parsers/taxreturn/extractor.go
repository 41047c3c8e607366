// Package taxreturn pulls GST return identifiers, period and tax totals.
// Tax returns never produce transactions.
package taxreturn

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"regexp"
	"sort"
	"strings"

	jsonrepair "github.com/RealAlexandreAI/json-repair"
	"github.com/shopspring/decimal"
	"github.com/username/smepulse/backend/src/logger"
	"github.com/username/smepulse/backend/src/models"
	"github.com/username/smepulse/backend/src/parsers/coerce"
	"github.com/username/smepulse/backend/src/parsers/columns"
	"github.com/username/smepulse/backend/src/parsers/reader"
)

var (
	gstinPattern  = regexp.MustCompile(`GSTIN[:\s]+(\d{2}[A-Z]{5}\d{4}[A-Z]{1}[A-Z\d]{1}[Z]{1}[A-Z\d]{1})`)
	periodPattern = regexp.MustCompile(`Tax Period[:\s]+(\d{2}/\d{4})`)
)

// GST portal JSON keys and the totals they feed.
var structuredTotalKeys = map[string]string{
	"txval": "taxable_value",
	"iamt":  "igst",
	"camt":  "cgst",
	"samt":  "sgst",
	"csamt": "cess",
}

// Tabular header aliases per total, in priority order.
var tabularTotalAliases = []struct {
	total   string
	aliases []string
}{
	{"taxable_value", []string{"taxable_value", "taxable value", "txval"}},
	{"igst", []string{"igst", "integrated tax", "iamt"}},
	{"cgst", []string{"cgst", "central tax", "camt"}},
	{"sgst", []string{"sgst", "state/ut tax", "state tax", "samt"}},
	{"cess", []string{"cess", "csamt"}},
}

// StructuredExtractor reads GST portal JSON, repairing it when it is malformed.
type StructuredExtractor struct{}

func NewStructuredExtractor() *StructuredExtractor { return &StructuredExtractor{} }

func (e *StructuredExtractor) Extract(ctx context.Context, r io.Reader) (*models.ExtractionResult, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("tax return: read content: %w", err)
	}

	var doc any
	repaired := false
	if err := json.Unmarshal(data, &doc); err != nil {
		fixed, repairErr := jsonrepair.RepairJSON(string(data))
		if repairErr != nil {
			return nil, fmt.Errorf("tax return: %w: invalid JSON: %v", reader.ErrUnreadable, err)
		}
		if err := json.Unmarshal([]byte(fixed), &doc); err != nil {
			return nil, fmt.Errorf("tax return: %w: invalid JSON after repair: %v", reader.ErrUnreadable, err)
		}
		repaired = true
		logger.FromContext(ctx).Warn("Tax return JSON was malformed and has been repaired")
	}
	if _, ok := doc.(map[string]any); !ok {
		return nil, fmt.Errorf("tax return: %w: expected a JSON object", reader.ErrUnreadable)
	}

	result := models.NewExtractionResult()
	result.Metadata["raw_data"] = doc
	result.Metadata["repaired"] = repaired
	if gstin, ok := findString(doc, "gstin"); ok {
		result.Metadata["gstin"] = gstin
	}
	if period, ok := findString(doc, "ret_period", "fp", "tax_period"); ok {
		result.Metadata["tax_period"] = period
	}

	totals := make(map[string]decimal.Decimal)
	sumKeys(doc, totals)
	result.Metadata["tax_totals"] = totalsToFloat(totals)
	return result, nil
}

// findString returns the first string value under any of keys, searching
// objects breadth-first so top-level identifiers win over nested ones.
func findString(doc any, keys ...string) (string, bool) {
	queue := []any{doc}
	for len(queue) > 0 {
		node := queue[0]
		queue = queue[1:]
		switch v := node.(type) {
		case map[string]any:
			for _, k := range keys {
				if s, ok := v[k].(string); ok && s != "" {
					return s, true
				}
			}
			for _, k := range sortedKeys(v) {
				queue = append(queue, v[k])
			}
		case []any:
			queue = append(queue, v...)
		}
	}
	return "", false
}

func sumKeys(node any, totals map[string]decimal.Decimal) {
	switch v := node.(type) {
	case map[string]any:
		for k, child := range v {
			if total, ok := structuredTotalKeys[strings.ToLower(k)]; ok {
				if d, ok := toDecimal(child); ok {
					totals[total] = totals[total].Add(d)
					continue
				}
			}
			sumKeys(child, totals)
		}
	case []any:
		for _, child := range v {
			sumKeys(child, totals)
		}
	}
}

func toDecimal(v any) (decimal.Decimal, bool) {
	switch n := v.(type) {
	case float64:
		return decimal.NewFromFloat(n), true
	case string:
		d, err := coerce.ParseAmount(n)
		return d, err == nil
	}
	return decimal.Zero, false
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func totalsToFloat(totals map[string]decimal.Decimal) map[string]float64 {
	out := make(map[string]float64, len(structuredTotalKeys))
	for _, name := range structuredTotalKeys {
		out[name] = totals[name].InexactFloat64()
	}
	return out
}

// TabularExtractor looks up GST fields by column in a delimited or spreadsheet return.
type TabularExtractor struct {
	rows func([]byte) ([][]string, error)
}

func NewDelimitedExtractor() *TabularExtractor {
	return &TabularExtractor{rows: reader.Delimited}
}

func NewSpreadsheetExtractor() *TabularExtractor {
	return &TabularExtractor{rows: reader.Spreadsheet}
}

func (e *TabularExtractor) Extract(ctx context.Context, r io.Reader) (*models.ExtractionResult, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("tax return: read content: %w", err)
	}
	rows, err := e.rows(data)
	if err != nil {
		return nil, fmt.Errorf("tax return: %w", err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("tax return: %w: no rows", reader.ErrUnreadable)
	}

	header := make(map[string]int)
	headers := make([]string, len(rows[0]))
	for i, h := range rows[0] {
		n := columns.NormalizeHeader(h)
		headers[i] = n
		if _, dup := header[n]; !dup {
			header[n] = i
		}
	}
	lookup := func(aliases ...string) (int, bool) {
		for _, a := range aliases {
			if idx, ok := header[a]; ok {
				return idx, true
			}
		}
		return -1, false
	}

	result := models.NewExtractionResult()
	result.Metadata["columns"] = headers
	result.Metadata["total_records"] = len(rows) - 1

	gstinIdx, hasGSTIN := lookup("gstin", "gstin/uin", "gstin of supplier")
	periodIdx, hasPeriod := lookup("tax_period", "tax period", "return period", "period")
	totals := make(map[string]decimal.Decimal)

	for i, row := range rows[1:] {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if hasGSTIN && result.Metadata["gstin"] == nil && gstinIdx < len(row) && strings.TrimSpace(row[gstinIdx]) != "" {
			result.Metadata["gstin"] = strings.TrimSpace(row[gstinIdx])
		}
		if hasPeriod && result.Metadata["tax_period"] == nil && periodIdx < len(row) && strings.TrimSpace(row[periodIdx]) != "" {
			result.Metadata["tax_period"] = strings.TrimSpace(row[periodIdx])
		}
		for _, t := range tabularTotalAliases {
			idx, ok := lookup(t.aliases...)
			if !ok || idx >= len(row) || strings.TrimSpace(row[idx]) == "" {
				continue
			}
			d, err := coerce.ParseAmount(row[idx])
			if err != nil {
				result.Skip(i+2, fmt.Sprintf("%s: %v", t.total, err))
				continue
			}
			totals[t.total] = totals[t.total].Add(d)
		}
	}
	result.Metadata["tax_totals"] = totalsToFloat(totals)
	return result, nil
}

// TextExtractor applies regexes to PDF or plain-text returns.
type TextExtractor struct{}

func NewTextExtractor() *TextExtractor { return &TextExtractor{} }

func (e *TextExtractor) Extract(ctx context.Context, r io.Reader) (*models.ExtractionResult, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("tax return: read content: %w", err)
	}
	pages, err := reader.Pages(data)
	if err != nil {
		return nil, fmt.Errorf("tax return: %w", err)
	}
	text := strings.Join(pages, "\n")

	result := models.NewExtractionResult()
	result.Metadata["page_count"] = len(pages)
	if m := gstinPattern.FindStringSubmatch(text); m != nil {
		result.Metadata["gstin"] = m[1]
	}
	if m := periodPattern.FindStringSubmatch(text); m != nil {
		result.Metadata["tax_period"] = m[1]
	}
	return result, nil
}
