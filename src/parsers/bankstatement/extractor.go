// Package bankstatement extracts transactions from layout text of bank statements,
// either decoded from a PDF or supplied as page text.
package bankstatement

import (
	"context"
	"fmt"
	"io"
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/username/smepulse/backend/src/logger"
	"github.com/username/smepulse/backend/src/models"
	"github.com/username/smepulse/backend/src/parsers/coerce"
	"github.com/username/smepulse/backend/src/parsers/reader"
)

// minRowCells is the fewest cells a line needs to be treated as a table row.
const minRowCells = 4

// HeaderPatterns locate statement metadata. Bank name patterns are tried in order.
type HeaderPatterns struct {
	BankNames     []*regexp.Regexp
	AccountNumber *regexp.Regexp
	Period        *regexp.Regexp
}

func DefaultHeaderPatterns() HeaderPatterns {
	return HeaderPatterns{
		BankNames: []*regexp.Regexp{
			regexp.MustCompile(`(?i)\b(ICICI|HDFC|SBI|AXIS|KOTAK|YES BANK|IDFC FIRST|BANDHAN BANK)\b`),
			regexp.MustCompile(`(?i)\b(Bank of [A-Za-z]+)`),
		},
		AccountNumber: regexp.MustCompile(`(?i)Account\s*(?:No|Number)[:\s.]*(\d{4,16})`),
		Period:        regexp.MustCompile(`(?is)From[:\s]+(\d{2}[/-]\d{2}[/-]\d{4}).*?To[:\s]+(\d{2}[/-]\d{2}[/-]\d{4})`),
	}
}

type Extractor struct {
	patterns HeaderPatterns
}

func NewExtractor(patterns HeaderPatterns) *Extractor {
	return &Extractor{patterns: patterns}
}

func (e *Extractor) Extract(ctx context.Context, r io.Reader) (*models.ExtractionResult, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("bank statement: read content: %w", err)
	}
	pages, err := reader.Pages(data)
	if err != nil {
		return nil, fmt.Errorf("bank statement: %w", err)
	}

	result := models.NewExtractionResult()
	result.Metadata["page_count"] = len(pages)
	if reader.IsPDF(data) {
		result.Metadata["source"] = "pdf"
	} else {
		result.Metadata["source"] = "text"
	}
	e.extractHeader(strings.Join(pages, "\n"), result.Metadata)

	var (
		layout      *tableLayout
		prevBalance *decimal.Decimal
		lineNum     int
	)
	for _, page := range pages {
		for _, line := range strings.Split(page, "\n") {
			lineNum++
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			cells := splitCells(line)
			if len(cells) < minRowCells {
				continue
			}
			if isHeaderRow(cells) {
				layout = newTableLayout(cells)
				continue
			}
			if layout == nil {
				continue
			}

			tx, balance, reason := layout.coerce(cells, prevBalance)
			if balance != nil {
				prevBalance = balance
			}
			if reason != "" {
				logger.L.Warn("Skipping statement row", "line", lineNum, "reason", reason)
				result.Skip(lineNum, reason)
				continue
			}
			tx.Row = lineNum
			result.Transactions = append(result.Transactions, tx)
		}
	}

	if layout == nil {
		result.Metadata["table_found"] = false
	}
	return result, nil
}

func (e *Extractor) extractHeader(text string, meta map[string]any) {
	for _, re := range e.patterns.BankNames {
		if m := re.FindStringSubmatch(text); m != nil {
			meta["bank_name"] = strings.ToUpper(m[1])
			break
		}
	}
	if e.patterns.AccountNumber != nil {
		if m := e.patterns.AccountNumber.FindStringSubmatch(text); m != nil {
			meta["account_number"] = m[1]
		}
	}
	if e.patterns.Period != nil {
		if m := e.patterns.Period.FindStringSubmatch(text); m != nil {
			period := map[string]string{"from": m[1], "to": m[2]}
			if from, ok := coerce.ParseDate(m[1]); ok {
				period["from"] = from.Format("2006-01-02")
			}
			if to, ok := coerce.ParseDate(m[2]); ok {
				period["to"] = to.Format("2006-01-02")
			}
			meta["statement_period"] = period
		}
	}
}

var cellGap = regexp.MustCompile(`\t+|\s{2,}`)

// splitCells splits on pipes when present, otherwise on runs of two or more spaces.
// Pipe-separated rows keep empty inner cells.
func splitCells(line string) []string {
	line = strings.TrimSpace(line)
	if line == "" {
		return nil
	}
	var parts []string
	if strings.Contains(line, "|") {
		parts = strings.Split(strings.Trim(line, "|"), "|")
	} else {
		parts = cellGap.Split(line, -1)
	}
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	return parts
}

func isHeaderRow(cells []string) bool {
	hasDateLabel := false
	for _, c := range cells {
		lc := strings.ToLower(c)
		if strings.Contains(lc, "date") {
			hasDateLabel = true
		}
		if _, ok := coerce.ParseDate(c); ok {
			return false
		}
	}
	return hasDateLabel
}

// tableLayout holds column positions resolved from a header row.
type tableLayout struct {
	width int

	date, description, reference, withdrawal, deposit, bal int
}

func newTableLayout(header []string) *tableLayout {
	l := &tableLayout{width: len(header), date: -1, description: -1, reference: -1, withdrawal: -1, deposit: -1, bal: -1}
	for i, h := range header {
		lh := strings.ToLower(h)
		switch {
		case l.date < 0 && strings.Contains(lh, "date") && !strings.Contains(lh, "value"):
			l.date = i
		case l.description < 0 && containsAny(lh, "description", "particulars", "narration", "details", "remarks"):
			l.description = i
		case l.reference < 0 && containsAny(lh, "chq", "cheque", "ref"):
			l.reference = i
		case l.withdrawal < 0 && (containsAny(lh, "withdrawal", "debit") || lh == "dr"):
			l.withdrawal = i
		case l.deposit < 0 && (containsAny(lh, "deposit", "credit") || lh == "cr"):
			l.deposit = i
		case l.bal < 0 && strings.Contains(lh, "balance"):
			l.bal = i
		}
	}
	// conventional statement column order
	fallback := func(idx *int, pos int) {
		if *idx < 0 && pos < l.width {
			*idx = pos
		}
	}
	fallback(&l.date, 0)
	fallback(&l.description, 1)
	fallback(&l.withdrawal, 4)
	fallback(&l.deposit, 5)
	fallback(&l.bal, 6)
	return l
}

func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

func cell(cells []string, idx int) string {
	if idx < 0 || idx >= len(cells) {
		return ""
	}
	return cells[idx]
}

// coerce turns a row into a candidate. When the row is narrower than the header
// (empty cells collapsed by layout text) the trailing numbers are read as amount and
// balance, and the balance movement gives the direction.
func (l *tableLayout) coerce(cells []string, prevBalance *decimal.Decimal) (models.CandidateTransaction, *decimal.Decimal, string) {
	var (
		tx      models.CandidateTransaction
		balance *decimal.Decimal
	)

	if len(cells) == l.width {
		if b, err := coerce.ParseAmount(cell(cells, l.bal)); err == nil {
			balance = &b
		}
		withdrawal, wErr := coerce.ParseAmount(cell(cells, l.withdrawal))
		deposit, dErr := coerce.ParseAmount(cell(cells, l.deposit))
		switch {
		case wErr == nil && !withdrawal.IsZero():
			tx.Amount, tx.Direction = withdrawal.Abs().Neg(), models.Debit
		case dErr == nil && !deposit.IsZero():
			tx.Amount, tx.Direction = deposit.Abs(), models.Credit
		default:
			return tx, balance, "no withdrawal or deposit amount"
		}
		tx.Description = cell(cells, l.description)
		tx.Reference = cell(cells, l.reference)
	} else {
		var nums []decimal.Decimal
		for i := len(cells) - 1; i > l.date && len(nums) < 2; i-- {
			d, err := coerce.ParseAmount(cells[i])
			if err != nil {
				break
			}
			nums = append(nums, d)
		}
		if len(nums) < 2 {
			return tx, nil, "no amount and balance in collapsed row"
		}
		b, amount := nums[0], nums[1].Abs()
		balance = &b
		if prevBalance == nil {
			return tx, balance, "direction unknown without a previous balance"
		}
		if b.GreaterThanOrEqual(*prevBalance) {
			tx.Amount, tx.Direction = amount, models.Credit
		} else {
			tx.Amount, tx.Direction = amount.Neg(), models.Debit
		}
		if l.description >= 0 && l.description < len(cells)-2 {
			tx.Description = cells[l.description]
		}
	}

	rawDate := cell(cells, l.date)
	if rawDate == "" {
		return tx, balance, "missing date"
	}
	if d, ok := coerce.ParseDate(rawDate); ok {
		tx.Date = d
	} else {
		tx.DateUnparsed = true
		tx.RawDate = rawDate
	}
	return tx, balance, ""
}
