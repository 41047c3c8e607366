package bankstatement

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/username/smepulse/backend/src/models"
)

const statementText = `HDFC BANK LTD
Account No: 50100123456789
Statement From: 01/04/2024 To: 30/04/2024

Date | Narration | Chq./Ref.No. | Value Dt | Withdrawal Amt. | Deposit Amt. | Closing Balance
01/04/2024 | NEFT-ACME CORP | N123 | 01/04/2024 | | 50,000.00 | 1,50,000.00
02/04/2024 | RENT APRIL | C456 | 02/04/2024 | 20,000.00 | | 1,30,000.00
03/04/2024 | OPENING ADJ | | 03/04/2024 | | | 1,30,000.00
31/02/2024 | BAD DAY ROW | X1 | 31/02/2024 | 100.00 | | 1,29,900.00
` + "\f" + `Page 2
Date  Narration  Chq./Ref.No.  Value Dt  Withdrawal Amt.  Deposit Amt.  Closing Balance
05/04/2024  UPI-GROCER  U77  05/04/2024  1,200.00  1,28,700.00
06/04/2024  IMPS-CLIENT  U78  06/04/2024  9,300.00  1,38,000.00
`

func TestExtractLayoutText(t *testing.T) {
	e := NewExtractor(DefaultHeaderPatterns())

	res, err := e.Extract(context.Background(), strings.NewReader(statementText))
	require.NoError(t, err)

	assert.Equal(t, "HDFC", res.Metadata["bank_name"])
	assert.Equal(t, "50100123456789", res.Metadata["account_number"])
	assert.Equal(t, map[string]string{"from": "2024-04-01", "to": "2024-04-30"}, res.Metadata["statement_period"])
	assert.Equal(t, 2, res.Metadata["page_count"])
	assert.Equal(t, "text", res.Metadata["source"])

	require.Len(t, res.Transactions, 5)
	require.Len(t, res.Skipped, 1)
	assert.Equal(t, "no withdrawal or deposit amount", res.Skipped[0].Reason)

	deposit := res.Transactions[0]
	assert.Equal(t, models.Credit, deposit.Direction)
	assert.Equal(t, "50000", deposit.Amount.String())
	assert.Equal(t, "NEFT-ACME CORP", deposit.Description)
	assert.Equal(t, "N123", deposit.Reference)

	rent := res.Transactions[1]
	assert.Equal(t, models.Debit, rent.Direction)
	assert.Equal(t, "-20000", rent.Amount.String())

	badDate := res.Transactions[2]
	assert.True(t, badDate.DateUnparsed)
	assert.Equal(t, "31/02/2024", badDate.RawDate)

	// collapsed rows take direction from the balance movement
	grocer := res.Transactions[3]
	assert.Equal(t, models.Debit, grocer.Direction)
	assert.Equal(t, "-1200", grocer.Amount.String())
	assert.Equal(t, "UPI-GROCER", grocer.Description)

	client := res.Transactions[4]
	assert.Equal(t, models.Credit, client.Direction)
	assert.Equal(t, "9300", client.Amount.String())
}

func TestExtractBankOfPattern(t *testing.T) {
	e := NewExtractor(DefaultHeaderPatterns())
	res, err := e.Extract(context.Background(), strings.NewReader("Bank of Baroda\nAccount Number 123456\n"))
	require.NoError(t, err)

	assert.Equal(t, "BANK OF BARODA", res.Metadata["bank_name"])
	assert.Equal(t, "123456", res.Metadata["account_number"])
	assert.Equal(t, false, res.Metadata["table_found"])
	assert.Empty(t, res.Transactions)
}

func TestExtractRejectsBinary(t *testing.T) {
	e := NewExtractor(DefaultHeaderPatterns())
	_, err := e.Extract(context.Background(), strings.NewReader("\x00\x01binary"))
	assert.Error(t, err)
}

func TestSplitCells(t *testing.T) {
	tests := []struct {
		in   string
		want []string
	}{
		{"| a | b |  | d |", []string{"a", "b", "", "d"}},
		{"01/04/2024   NEFT IN   500.00", []string{"01/04/2024", "NEFT IN", "500.00"}},
		{"a\tb\t\tc", []string{"a", "b", "c"}},
		{"   ", nil},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, splitCells(tt.in))
	}
}
