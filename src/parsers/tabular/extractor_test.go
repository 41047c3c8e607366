package tabular

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/username/smepulse/backend/src/models"
	"github.com/username/smepulse/backend/src/parsers/columns"
	"github.com/xuri/excelize/v2"
)

const bankCSV = `Txn Date,Particulars,Amount,Type,Ref No
01/04/2024,Opening deposit,"50,000.00",CR,R1
02/04/2024,Rent,-15000,,R2
03/04/2024,Client ACME,12000,,R3
04/04/2024,Bad amount,twelve,,R4
05/04/2024,Salary,"(20,000)",,R5
,No date,100,,R6
07/04/2024,Refund,500,DR,R7
08/04/2024,Supplies,-2500,,R8
someday,Unparsed date,300,,R9
10/04/2024,Interest,45.5,,R10
`

func TestDelimitedBankStatement(t *testing.T) {
	e := NewDelimitedExtractor("bank_statement", columns.BankStatementAliases())

	res, err := e.Extract(context.Background(), strings.NewReader(bankCSV))
	require.NoError(t, err)

	require.Len(t, res.Transactions, 8)
	require.Len(t, res.Skipped, 2)
	assert.Equal(t, 5, res.Skipped[0].Row)
	assert.Equal(t, models.RowSkip{Row: 7, Reason: "missing date"}, res.Skipped[1])
	assert.Equal(t, 10, res.Metadata["total_rows"])

	first := res.Transactions[0]
	assert.Equal(t, "Opening deposit", first.Description)
	assert.Equal(t, "50000", first.Amount.String())
	assert.Equal(t, models.Credit, first.Direction)
	assert.Equal(t, "R1", first.Reference)

	// sign decides when there is no direction cell
	assert.Equal(t, models.Debit, res.Transactions[1].Direction)
	assert.Equal(t, models.Credit, res.Transactions[2].Direction)
	assert.Equal(t, models.Debit, res.Transactions[3].Direction)

	// explicit direction beats the sign
	refund := res.Transactions[4]
	assert.Equal(t, "Refund", refund.Description)
	assert.Equal(t, models.Debit, refund.Direction)

	unparsed := res.Transactions[6]
	assert.True(t, unparsed.DateUnparsed)
	assert.Equal(t, "someday", unparsed.RawDate)
	assert.Equal(t, 1, res.UnparsedDateCount())
}

func TestSplitWithdrawalDepositColumns(t *testing.T) {
	in := "Some bank export\n\nDate,Narration,Withdrawal Amt,Deposit Amt,Balance\n" +
		"15-04-2024,ATM,2000,,8000\n" +
		"16-04-2024,NEFT IN,,5000,13000\n" +
		"17-04-2024,Nothing,,,13000\n"
	e := NewDelimitedExtractor("bank_statement", columns.BankStatementAliases())

	res, err := e.Extract(context.Background(), strings.NewReader(in))
	require.NoError(t, err)

	assert.Equal(t, 2, res.Metadata["header_row"])
	require.Len(t, res.Transactions, 2)
	assert.Equal(t, models.Debit, res.Transactions[0].Direction)
	assert.Equal(t, "-2000", res.Transactions[0].Amount.String())
	assert.Equal(t, models.Credit, res.Transactions[1].Direction)
	require.Len(t, res.Skipped, 1)
	assert.Equal(t, "missing amount", res.Skipped[0].Reason)
}

func TestTallyLedgerAliases(t *testing.T) {
	in := "Date,Particulars,Ledger Name,Vch Type,Vch No.,Amount\n" +
		"01-04-2024,Being goods sold,Sharma Traders,Sales,S-1,25000\n" +
		"02-04-2024,Paid vendor,Gupta Supplies,Payment,P-9,8000\n"
	e := NewDelimitedExtractor("tally_export", columns.TallyAliases())

	res, err := e.Extract(context.Background(), strings.NewReader(in))
	require.NoError(t, err)
	require.Len(t, res.Transactions, 2)

	assert.Equal(t, "Sharma Traders", res.Transactions[0].Counterparty)
	assert.Equal(t, models.Credit, res.Transactions[0].Direction)
	assert.Equal(t, "S-1", res.Transactions[0].Reference)
	assert.Equal(t, models.Debit, res.Transactions[1].Direction)
}

func TestTallyDayBook(t *testing.T) {
	in := "Date,Particulars,Vch Type,Vch No.,Debit,Credit\n" +
		"01-04-2024,Sharma Traders,Sales,S-1,,25000\n" +
		"02-04-2024,Gupta Supplies,Purchase,P-4,8000,\n"
	e := NewDelimitedExtractor("tally_export", columns.TallyAliases())

	res, err := e.Extract(context.Background(), strings.NewReader(in))
	require.NoError(t, err)
	require.Len(t, res.Transactions, 2)

	assert.Equal(t, "Sharma Traders", res.Transactions[0].Counterparty)
	assert.Equal(t, "Sharma Traders", res.Transactions[0].Description)
	assert.Equal(t, models.Credit, res.Transactions[0].Direction)
	assert.Equal(t, "Gupta Supplies", res.Transactions[1].Counterparty)
	assert.Equal(t, models.Debit, res.Transactions[1].Direction)
	assert.Equal(t, "P-4", res.Transactions[1].Reference)
}

func TestMissingColumnsIsDocumentError(t *testing.T) {
	e := NewDelimitedExtractor("bank_statement", columns.BankStatementAliases())

	_, err := e.Extract(context.Background(), strings.NewReader("foo,bar\n1,2\n"))
	assert.ErrorIs(t, err, ErrMissingColumns)
}

func TestExtractHonoursCancellation(t *testing.T) {
	e := NewDelimitedExtractor("bank_statement", columns.BankStatementAliases())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := e.Extract(ctx, strings.NewReader(bankCSV))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestSpreadsheetExtractor(t *testing.T) {
	f := excelize.NewFile()
	rows := [][]any{
		{"Date", "Description", "Amount", "Category"},
		{"2024-04-01", "Invoice 17", 18000, "sales"},
		{45383, "Electricity", -3200.75, "utilities"},
	}
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		require.NoError(t, f.SetSheetRow("Sheet1", cell, &row))
	}
	buf, err := f.WriteToBuffer()
	require.NoError(t, err)

	e := NewSpreadsheetExtractor("bank_statement", columns.BankStatementAliases())
	res, err := e.Extract(context.Background(), bytes.NewReader(buf.Bytes()))
	require.NoError(t, err)
	require.Len(t, res.Transactions, 2)

	assert.Equal(t, "sales", res.Transactions[0].Category)
	second := res.Transactions[1]
	assert.False(t, second.DateUnparsed)
	assert.Equal(t, 2024, second.Date.Year())
	assert.Equal(t, models.Debit, second.Direction)
	assert.Equal(t, "-3200.75", second.Amount.String())
}
