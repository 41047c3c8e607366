// Package reader turns raw document bytes into page text or cell rows.
package reader

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/ledongthuc/pdf"
	"github.com/xuri/excelize/v2"
)

// ErrUnreadable marks content that cannot be decoded in the declared format.
var ErrUnreadable = errors.New("unreadable document")

var utf8BOM = []byte("\xef\xbb\xbf")

// IsPDF reports whether data carries the PDF signature.
func IsPDF(data []byte) bool {
	return bytes.HasPrefix(data, []byte("%PDF-"))
}

// Pages returns the text of each page. PDF input is decoded; anything else must be
// UTF-8 text whose pages are separated by form feeds.
func Pages(data []byte) ([]string, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: empty content", ErrUnreadable)
	}
	if IsPDF(data) {
		return pdfPages(data)
	}
	data = bytes.TrimPrefix(data, utf8BOM)
	if !utf8.Valid(data) || bytes.IndexByte(data, 0) != -1 {
		return nil, fmt.Errorf("%w: content is neither PDF nor text", ErrUnreadable)
	}
	text := strings.ReplaceAll(string(data), "\r\n", "\n")
	return strings.Split(text, "\f"), nil
}

func pdfPages(data []byte) (pages []string, err error) {
	// the pdf package panics on some malformed files
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: pdf decode: %v", ErrUnreadable, r)
		}
	}()

	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnreadable, err)
	}

	for i := 1; i <= r.NumPage(); i++ {
		p := r.Page(i)
		if p.V.IsNull() {
			continue
		}
		rows, err := p.GetTextByRow()
		if err != nil {
			return nil, fmt.Errorf("%w: page %d: %v", ErrUnreadable, i, err)
		}
		// PDF y grows upwards
		sort.SliceStable(rows, func(a, b int) bool { return rows[a].Position > rows[b].Position })

		lines := make([]string, 0, len(rows))
		for _, row := range rows {
			lines = append(lines, joinRun(row.Content))
		}
		pages = append(pages, strings.Join(lines, "\n"))
	}
	return pages, nil
}

// joinRun rebuilds a text line from positioned glyph runs. Wide gaps become a
// double space so column boundaries survive.
func joinRun(texts pdf.TextHorizontal) string {
	sorted := make([]pdf.Text, len(texts))
	copy(sorted, texts)
	sort.SliceStable(sorted, func(a, b int) bool { return sorted[a].X < sorted[b].X })

	var sb strings.Builder
	var prevEnd float64
	for i, t := range sorted {
		if i > 0 {
			gap := t.X - prevEnd
			size := t.FontSize
			if size <= 0 {
				size = 10
			}
			switch {
			case gap > size*1.5:
				sb.WriteString("  ")
			case gap > size*0.2:
				sb.WriteString(" ")
			}
		}
		sb.WriteString(t.S)
		prevEnd = t.X + t.W
	}
	return sb.String()
}

// Delimited reads CSV-like rows. The delimiter is sniffed from the first non-empty line.
func Delimited(data []byte) ([][]string, error) {
	data = bytes.TrimPrefix(data, utf8BOM)
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, fmt.Errorf("%w: empty content", ErrUnreadable)
	}
	if !utf8.Valid(data) || bytes.IndexByte(data, 0) != -1 {
		return nil, fmt.Errorf("%w: delimited content is not text", ErrUnreadable)
	}

	r := csv.NewReader(bytes.NewReader(data))
	r.Comma = sniffDelimiter(data)
	r.FieldsPerRecord = -1
	r.LazyQuotes = true
	r.TrimLeadingSpace = true

	var rows [][]string
	for {
		record, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrUnreadable, err)
		}
		rows = append(rows, record)
	}
	return rows, nil
}

func sniffDelimiter(data []byte) rune {
	var first string
	for _, line := range strings.Split(string(data), "\n") {
		if strings.TrimSpace(line) != "" {
			first = line
			break
		}
	}
	best, bestCount := ',', 0
	for _, c := range []rune{',', ';', '\t', '|'} {
		if n := strings.Count(first, string(c)); n > bestCount {
			best, bestCount = c, n
		}
	}
	return best
}

// Spreadsheet returns the rows of the first sheet with raw cell values, so dates
// come back as serial numbers rather than locale-formatted text.
func Spreadsheet(data []byte) ([][]string, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnreadable, err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("%w: workbook has no sheets", ErrUnreadable)
	}
	rows, err := f.GetRows(sheets[0], excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, fmt.Errorf("%w: sheet %q: %v", ErrUnreadable, sheets[0], err)
	}
	return rows, nil
}
