package processors

import (
	"fmt"

	"github.com/username/smepulse/backend/src/models"
	"github.com/username/smepulse/backend/src/utils"
)

const (
	largeTransactionMultiple = 5.0
	highSeverityMultiple     = 10.0
)

type AnomalyDetector struct{}

func NewAnomalyDetector() *AnomalyDetector { return &AnomalyDetector{} }

// Detect runs the large-transaction and flagged-category checks independently;
// one transaction may yield one anomaly of each type.
func (d *AnomalyDetector) Detect(txs []models.Transaction, summary models.FinancialSummary) []models.Anomaly {
	var anomalies []models.Anomaly
	avg := summary.AverageTransactionValue
	threshold := avg * largeTransactionMultiple

	for _, tx := range txs {
		amount := tx.Amount.Abs().InexactFloat64()

		if threshold > 0 && amount > threshold {
			severity := models.SeverityMedium
			if amount > avg*highSeverityMultiple {
				severity = models.SeverityHigh
			}
			anomalies = append(anomalies, models.Anomaly{
				CompanyID:     tx.CompanyID,
				TransactionID: tx.ID,
				Type:          models.AnomalyLargeTransaction,
				Severity:      severity,
				Description:   fmt.Sprintf("Unusually large transaction of ₹%s", tx.Amount.Abs().StringFixed(2)),
				Details: map[string]any{
					"amount":              amount,
					"average_transaction": avg,
					"threshold":           threshold,
					"multiple":            utils.RoundFloat(amount/avg, 2),
				},
			})
		}

		if tx.IsFlagged && tx.Category != "" {
			anomalies = append(anomalies, models.Anomaly{
				CompanyID:     tx.CompanyID,
				TransactionID: tx.ID,
				Type:          models.AnomalyCategorizedFlagged,
				Severity:      models.SeverityLow,
				Description:   fmt.Sprintf("Flagged transaction in category: %s", tx.Category),
				Details: map[string]any{
					"category":     tx.Category,
					"anomaly_type": tx.AnomalyType,
				},
			})
		}
	}
	return anomalies
}
