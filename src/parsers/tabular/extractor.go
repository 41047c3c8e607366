// Package tabular extracts transactions from delimited and spreadsheet exports.
package tabular

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/username/smepulse/backend/src/logger"
	"github.com/username/smepulse/backend/src/models"
	"github.com/username/smepulse/backend/src/parsers/coerce"
	"github.com/username/smepulse/backend/src/parsers/columns"
	"github.com/username/smepulse/backend/src/parsers/reader"
)

// ErrMissingColumns is returned when no header row maps a date and an amount.
var ErrMissingColumns = errors.New("required columns not found")

// headerSearchDepth bounds how many leading rows may be preamble.
const headerSearchDepth = 15

// RowReader decodes raw content into cell rows.
type RowReader func(data []byte) ([][]string, error)

type Extractor struct {
	name   string
	mapper *columns.Mapper
	rows   RowReader
}

// NewExtractor builds an extractor that reads rows with rows and maps them with aliases.
func NewExtractor(name string, aliases columns.Aliases, rows RowReader) *Extractor {
	return &Extractor{name: name, mapper: columns.NewMapper(aliases), rows: rows}
}

func NewDelimitedExtractor(name string, aliases columns.Aliases) *Extractor {
	return NewExtractor(name, aliases, reader.Delimited)
}

func NewSpreadsheetExtractor(name string, aliases columns.Aliases) *Extractor {
	return NewExtractor(name, aliases, reader.Spreadsheet)
}

// Extract reads every row after the header. Rows that cannot be coerced are recorded as skips.
func (e *Extractor) Extract(ctx context.Context, r io.Reader) (*models.ExtractionResult, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("%s: read content: %w", e.name, err)
	}
	rows, err := e.rows(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", e.name, err)
	}

	headerIdx, mapping, ok := e.findHeader(rows)
	if !ok {
		return nil, fmt.Errorf("%s: %w (need a date column and an amount or withdrawal/deposit column)", e.name, ErrMissingColumns)
	}

	result := models.NewExtractionResult()
	result.Metadata["header_row"] = headerIdx + 1
	result.Metadata["columns"] = normalizedHeaders(rows[headerIdx])
	result.Metadata["mapped_fields"] = mappedFieldNames(mapping)

	dataRows := 0
	for i := headerIdx + 1; i < len(rows); i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		row := rows[i]
		if isBlank(row) {
			continue
		}
		dataRows++
		rowNum := i + 1

		tx, reason := e.coerceRow(row, mapping)
		if reason != "" {
			logger.L.Warn("Skipping row", "extractor", e.name, "row", rowNum, "reason", reason)
			result.Skip(rowNum, reason)
			continue
		}
		tx.Row = rowNum
		result.Transactions = append(result.Transactions, tx)
	}

	result.Metadata["total_rows"] = dataRows
	return result, nil
}

func (e *Extractor) findHeader(rows [][]string) (int, columns.Mapping, bool) {
	limit := len(rows)
	if limit > headerSearchDepth {
		limit = headerSearchDepth
	}
	for i := 0; i < limit; i++ {
		if isBlank(rows[i]) {
			continue
		}
		m := e.mapper.Map(rows[i])
		hasAmount := m.Has(columns.Amount) || m.Has(columns.Withdrawal) || m.Has(columns.Deposit)
		if m.Has(columns.Date) && hasAmount {
			return i, m, true
		}
	}
	return 0, nil, false
}

// coerceRow returns a candidate or a non-empty skip reason.
func (e *Extractor) coerceRow(row []string, m columns.Mapping) (models.CandidateTransaction, string) {
	var tx models.CandidateTransaction

	rawDate := m.Value(row, columns.Date)
	if rawDate == "" {
		return tx, "missing date"
	}
	if d, ok := coerce.ParseDate(rawDate); ok {
		tx.Date = d
	} else {
		tx.DateUnparsed = true
		tx.RawDate = rawDate
	}

	amount, splitDir, reason := resolveAmount(row, m)
	if reason != "" {
		return tx, reason
	}
	tx.Amount = amount

	switch dir, ok := coerce.ParseDirection(m.Value(row, columns.Direction)); {
	case ok:
		tx.Direction = dir
	case splitDir != "":
		tx.Direction = splitDir
	default:
		tx.Direction = coerce.DirectionFromSign(amount)
	}

	tx.Description = m.Value(row, columns.Description)
	tx.Category = m.Value(row, columns.Category)
	tx.Counterparty = m.Value(row, columns.Counterparty)
	tx.Reference = m.Value(row, columns.Reference)
	return tx, ""
}

// resolveAmount prefers a single amount column and falls back to split
// withdrawal/deposit columns, which also fix the direction.
func resolveAmount(row []string, m columns.Mapping) (decimal.Decimal, models.Direction, string) {
	if raw := m.Value(row, columns.Amount); raw != "" {
		amount, err := coerce.ParseAmount(raw)
		if err != nil {
			return decimal.Zero, "", err.Error()
		}
		return amount, "", ""
	}

	if raw := m.Value(row, columns.Withdrawal); raw != "" {
		if amount, err := coerce.ParseAmount(raw); err == nil && !amount.IsZero() {
			return amount.Abs().Neg(), models.Debit, ""
		}
	}
	if raw := m.Value(row, columns.Deposit); raw != "" {
		if amount, err := coerce.ParseAmount(raw); err == nil && !amount.IsZero() {
			return amount.Abs(), models.Credit, ""
		}
	}
	return decimal.Zero, "", "missing amount"
}

func isBlank(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}

func normalizedHeaders(row []string) []string {
	out := make([]string, len(row))
	for i, h := range row {
		out[i] = columns.NormalizeHeader(h)
	}
	return out
}

func mappedFieldNames(m columns.Mapping) []string {
	var names []string
	for _, f := range columns.Fields {
		if m.Has(f) {
			names = append(names, string(f))
		}
	}
	return names
}
