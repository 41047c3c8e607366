package validation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/username/smepulse/backend/src/models"
)

func TestValidateFileContent(t *testing.T) {
	tests := []struct {
		name    string
		content []byte
		format  models.FileFormat
		want    string
		wantErr bool
	}{
		{"csv", []byte("date,amount\n01/04/2024,10\n"), models.FormatDelimited, "text/plain", false},
		{"pdf as layout", []byte("%PDF-1.7\n..."), models.FormatLayout, "application/pdf", false},
		{"text as layout", []byte("HDFC BANK\nDate | Amount"), models.FormatLayout, "text/plain", false},
		{"xlsx", []byte("PK\x03\x04rest"), models.FormatSpreadsheet, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", false},
		{"csv declared as spreadsheet", []byte("a,b\n"), models.FormatSpreadsheet, "", true},
		{"binary as delimited", []byte{'a', 0x00, 'b'}, models.FormatDelimited, "", true},
		{"empty", nil, models.FormatText, "", true},
		{"unknown format", []byte("x"), "docx", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ValidateFileContent(tt.content, tt.format)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrValidationFailed)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestIsBinaryContentToleratesCutRune(t *testing.T) {
	buf := []byte("Amount ₹")
	assert.False(t, isBinaryContent(buf[:len(buf)-1]))
	assert.True(t, isBinaryContent([]byte{0xff, 0xfe, 'a', 'b', 'c', 'd'}))
}

func TestCleanField(t *testing.T) {
	assert.Equal(t, "NEFT ACME & Sons", CleanField("  NEFT <b>ACME</b>\x07 &amp; Sons ", 0))
	assert.Equal(t, "abc", CleanField("abcdef", 3))
	assert.Equal(t, "", CleanField("<script>alert(1)</script>", 0))
}

func TestValidateEnums(t *testing.T) {
	kind, err := ValidateDocumentKind(" Bank_Statement ")
	require.NoError(t, err)
	assert.Equal(t, models.KindBankStatement, kind)

	_, err = ValidateDocumentKind("invoice")
	assert.ErrorIs(t, err, ErrValidationFailed)

	format, err := ValidateFileFormat("SPREADSHEET")
	require.NoError(t, err)
	assert.Equal(t, models.FormatSpreadsheet, format)

	industry, err := ValidateIndustry("")
	require.NoError(t, err)
	assert.Equal(t, models.IndustryOther, industry)

	_, err = ValidateIndustry("mining")
	assert.ErrorIs(t, err, ErrValidationFailed)

	sev, err := ValidateSeverity("")
	require.NoError(t, err)
	assert.Equal(t, models.Severity(""), sev)
}

func TestValidateGSTIN(t *testing.T) {
	assert.NoError(t, ValidateGSTIN(""))
	assert.NoError(t, ValidateGSTIN("27AAPFU0939F1ZV"))
	assert.ErrorIs(t, ValidateGSTIN("27AAPFU0939F1XV"), ErrValidationFailed)
}

func TestValidateIntRange(t *testing.T) {
	assert.NoError(t, ValidateIntRange(90, MinWindowDays, MaxWindowDays, "window_days"))
	assert.ErrorIs(t, ValidateIntRange(29, MinWindowDays, MaxWindowDays, "window_days"), ErrValidationFailed)
}

func TestCheckXSSPatterns(t *testing.T) {
	assert.NoError(t, CheckXSSPatterns("Acme Traders Pvt Ltd", "name"))
	assert.ErrorIs(t, CheckXSSPatterns(`<img src="javascript:x">`, "name"), ErrValidationFailed)
}
