package processors

import (
	"github.com/shopspring/decimal"
	"github.com/username/smepulse/backend/src/models"
)

// FilterWindow keeps dated transactions that fall inside w. Undated transactions never match.
func FilterWindow(txs []models.Transaction, w models.Window) []models.Transaction {
	var in []models.Transaction
	for _, tx := range txs {
		if tx.Date.Valid && w.Contains(tx.Date.Time) {
			in = append(in, tx)
		}
	}
	return in
}

// Summarize aggregates the transactions inside w.
func Summarize(txs []models.Transaction, w models.Window) models.FinancialSummary {
	windowed := FilterWindow(txs, w)

	inflows, outflows, gross := decimal.Zero, decimal.Zero, decimal.Zero
	largestIn, largestOut := decimal.Zero, decimal.Zero
	for _, tx := range windowed {
		amount := tx.Amount.Abs()
		gross = gross.Add(amount)
		switch tx.Direction {
		case models.Credit:
			inflows = inflows.Add(amount)
			if amount.GreaterThan(largestIn) {
				largestIn = amount
			}
		case models.Debit:
			outflows = outflows.Add(amount)
			if amount.GreaterThan(largestOut) {
				largestOut = amount
			}
		}
	}

	summary := models.FinancialSummary{
		TotalInflows:     inflows.InexactFloat64(),
		TotalOutflows:    outflows.InexactFloat64(),
		LargestInflow:    largestIn.InexactFloat64(),
		LargestOutflow:   largestOut.InexactFloat64(),
		TransactionCount: len(windowed),
		Period:           w,
	}
	// derived from the reported totals so the identity holds on the float values
	summary.NetCashFlow = summary.TotalInflows - summary.TotalOutflows
	if len(windowed) > 0 {
		summary.AverageTransactionValue = gross.Div(decimal.NewFromInt(int64(len(windowed)))).InexactFloat64()
	}
	return summary
}
