package reader

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func TestPagesSplitsOnFormFeed(t *testing.T) {
	pages, err := Pages([]byte("page one\r\nline two\fpage two"))
	require.NoError(t, err)
	assert.Equal(t, []string{"page one\nline two", "page two"}, pages)
}

func TestPagesRejectsBinary(t *testing.T) {
	_, err := Pages([]byte{0x00, 0x01, 0x02})
	assert.ErrorIs(t, err, ErrUnreadable)

	_, err = Pages(nil)
	assert.ErrorIs(t, err, ErrUnreadable)
}

func TestPagesRejectsBrokenPDF(t *testing.T) {
	_, err := Pages([]byte("%PDF-1.4\nthis is not really a pdf"))
	assert.ErrorIs(t, err, ErrUnreadable)
}

func TestDelimitedSniffsDelimiter(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want [][]string
	}{
		{"comma", "a,b\n1,2\n", [][]string{{"a", "b"}, {"1", "2"}}},
		{"semicolon", "a;b\n1;2\n", [][]string{{"a", "b"}, {"1", "2"}}},
		{"tab", "a\tb\n1\t2\n", [][]string{{"a", "b"}, {"1", "2"}}},
		{"ragged", "a,b,c\n1,2\n", [][]string{{"a", "b", "c"}, {"1", "2"}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Delimited([]byte(tt.in))
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDelimitedRejectsEmpty(t *testing.T) {
	_, err := Delimited([]byte("  \n"))
	assert.ErrorIs(t, err, ErrUnreadable)
}

func TestSpreadsheetReadsFirstSheet(t *testing.T) {
	f := excelize.NewFile()
	require.NoError(t, f.SetCellValue("Sheet1", "A1", "Date"))
	require.NoError(t, f.SetCellValue("Sheet1", "B1", "Amount"))
	require.NoError(t, f.SetCellValue("Sheet1", "A2", "2024-04-15"))
	require.NoError(t, f.SetCellValue("Sheet1", "B2", 1250.5))
	buf, err := f.WriteToBuffer()
	require.NoError(t, err)

	rows, err := Spreadsheet(buf.Bytes())
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, []string{"Date", "Amount"}, rows[0])
	assert.Equal(t, []string{"2024-04-15", "1250.5"}, rows[1])
}

func TestSpreadsheetRejectsGarbage(t *testing.T) {
	_, err := Spreadsheet([]byte("not a zip"))
	assert.ErrorIs(t, err, ErrUnreadable)
}
