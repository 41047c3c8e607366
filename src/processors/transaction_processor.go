package processors

import (
	"time"

	"github.com/username/smepulse/backend/src/models"
	"github.com/username/smepulse/backend/src/security/validation"
)

const (
	maxDescriptionRunes = validation.MaxDescriptionLength
	maxShortFieldRunes  = validation.MaxShortFieldLength
)

// TransactionProcessor turns extractor candidates into storable transactions.
type TransactionProcessor struct{}

func NewTransactionProcessor() *TransactionProcessor { return &TransactionProcessor{} }

// Process cleans the free-text fields of each candidate and stores the amount as a
// magnitude; the direction already carries the sign.
func (p *TransactionProcessor) Process(documentID, companyID int64, candidates []models.CandidateTransaction, createdAt time.Time) []models.Transaction {
	txs := make([]models.Transaction, 0, len(candidates))
	for _, c := range candidates {
		tx := models.Transaction{
			DocumentID:   documentID,
			CompanyID:    companyID,
			Description:  validation.CleanField(c.Description, maxDescriptionRunes),
			Amount:       c.Amount.Abs(),
			Direction:    c.Direction,
			Category:     validation.CleanField(c.Category, maxShortFieldRunes),
			Counterparty: validation.CleanField(c.Counterparty, maxShortFieldRunes),
			Reference:    validation.CleanField(c.Reference, maxShortFieldRunes),
			CreatedAt:    createdAt,
		}
		if !c.DateUnparsed && !c.Date.IsZero() {
			tx.Date = models.NewNullTime(c.Date)
		}
		if tx.Direction != models.Credit && tx.Direction != models.Debit {
			tx.Direction = models.Credit
			if c.Amount.IsNegative() {
				tx.Direction = models.Debit
			}
		}
		txs = append(txs, tx)
	}
	return txs
}
