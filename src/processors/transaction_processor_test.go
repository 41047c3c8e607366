package processors

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/username/smepulse/backend/src/models"
)

func TestTransactionProcessorProcess(t *testing.T) {
	created := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	day := time.Date(2024, 4, 3, 0, 0, 0, 0, time.UTC)
	candidates := []models.CandidateTransaction{
		{Row: 1, Date: day, Description: "  NEFT <b>ACME</b>  Ltd ", Amount: decimal.RequireFromString("-1500.75"), Direction: models.Debit, Category: "Rent"},
		{Row: 2, DateUnparsed: true, RawDate: "31/13/2024", Description: "UPI credit", Amount: decimal.NewFromInt(200), Direction: models.Credit},
		{Row: 3, Date: day, Amount: decimal.NewFromInt(-40)},
	}

	got := NewTransactionProcessor().Process(11, 5, candidates, created)
	require.Len(t, got, 3)

	assert.Equal(t, int64(11), got[0].DocumentID)
	assert.Equal(t, int64(5), got[0].CompanyID)
	assert.Equal(t, "NEFT ACME Ltd", got[0].Description)
	assert.True(t, got[0].Amount.Equal(decimal.RequireFromString("1500.75")))
	assert.Equal(t, models.Debit, got[0].Direction)
	assert.True(t, got[0].Date.Valid)
	assert.Equal(t, day, got[0].Date.Time)
	assert.Equal(t, created, got[0].CreatedAt)

	assert.False(t, got[1].Date.Valid)
	assert.Equal(t, models.Credit, got[1].Direction)

	assert.Equal(t, models.Debit, got[2].Direction)
	assert.True(t, got[2].Amount.Equal(decimal.NewFromInt(40)))
}
