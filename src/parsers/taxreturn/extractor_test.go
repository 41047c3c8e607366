package taxreturn

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/username/smepulse/backend/src/parsers/reader"
)

const gstr1JSON = `{
  "gstin": "27AAPFU0939F1ZV",
  "fp": "042024",
  "b2b": [
    {"ctin": "29AABCU9603R1ZM", "inv": [
      {"inum": "S1", "itms": [{"itm_det": {"txval": 10000, "iamt": 1800, "csamt": 0}}]},
      {"inum": "S2", "itms": [{"itm_det": {"txval": 5000.5, "camt": 450, "samt": 450}}]}
    ]}
  ]
}`

func TestStructuredExtractor(t *testing.T) {
	res, err := NewStructuredExtractor().Extract(context.Background(), strings.NewReader(gstr1JSON))
	require.NoError(t, err)

	assert.Empty(t, res.Transactions)
	assert.Equal(t, "27AAPFU0939F1ZV", res.Metadata["gstin"])
	assert.Equal(t, "042024", res.Metadata["tax_period"])
	assert.Equal(t, false, res.Metadata["repaired"])
	assert.Equal(t, map[string]float64{
		"taxable_value": 15000.5,
		"igst":          1800,
		"cgst":          450,
		"sgst":          450,
		"cess":          0,
	}, res.Metadata["tax_totals"])
	assert.NotNil(t, res.Metadata["raw_data"])
}

func TestStructuredExtractorRepairsTrailingComma(t *testing.T) {
	res, err := NewStructuredExtractor().Extract(context.Background(), strings.NewReader(`{"gstin": "27AAPFU0939F1ZV", "ret_period": "042024",}`))
	require.NoError(t, err)

	assert.Equal(t, true, res.Metadata["repaired"])
	assert.Equal(t, "27AAPFU0939F1ZV", res.Metadata["gstin"])
	assert.Equal(t, "042024", res.Metadata["tax_period"])
}

func TestStructuredExtractorRejectsNonObject(t *testing.T) {
	_, err := NewStructuredExtractor().Extract(context.Background(), strings.NewReader(`[1, 2, 3]`))
	assert.ErrorIs(t, err, reader.ErrUnreadable)
}

func TestTabularExtractor(t *testing.T) {
	in := "GSTIN,Tax Period,Invoice No,Taxable Value,IGST,CGST,SGST,Cess\n" +
		"27AAPFU0939F1ZV,04/2024,S1,\"10,000.00\",1800,,,\n" +
		",,S2,5000,,450,450,\n" +
		",,S3,oops,,,,\n"

	res, err := NewDelimitedExtractor().Extract(context.Background(), strings.NewReader(in))
	require.NoError(t, err)

	assert.Equal(t, "27AAPFU0939F1ZV", res.Metadata["gstin"])
	assert.Equal(t, "04/2024", res.Metadata["tax_period"])
	assert.Equal(t, 3, res.Metadata["total_records"])
	assert.Equal(t, []string{"gstin", "tax period", "invoice no", "taxable value", "igst", "cgst", "sgst", "cess"}, res.Metadata["columns"])

	totals := res.Metadata["tax_totals"].(map[string]float64)
	assert.Equal(t, 15000.0, totals["taxable_value"])
	assert.Equal(t, 1800.0, totals["igst"])
	assert.Equal(t, 450.0, totals["cgst"])
	require.Len(t, res.Skipped, 1)
	assert.Equal(t, 4, res.Skipped[0].Row)
}

func TestTextExtractor(t *testing.T) {
	text := "FORM GSTR-3B\nGSTIN: 27AAPFU0939F1ZV\nTax Period: 04/2024\nTotal tax payable 2,700"

	res, err := NewTextExtractor().Extract(context.Background(), strings.NewReader(text))
	require.NoError(t, err)

	assert.Equal(t, "27AAPFU0939F1ZV", res.Metadata["gstin"])
	assert.Equal(t, "04/2024", res.Metadata["tax_period"])
	assert.Equal(t, 1, res.Metadata["page_count"])
}
