package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type Direction string

const (
	Credit Direction = "credit"
	Debit  Direction = "debit"
)

// CandidateTransaction is a row pulled out of a document before normalization.
// Amount keeps the sign found in the source; Direction is already resolved.
type CandidateTransaction struct {
	Row          int             `json:"row"`
	Date         time.Time       `json:"date"`
	DateUnparsed bool            `json:"date_unparsed,omitempty"`
	RawDate      string          `json:"raw_date,omitempty"`
	Description  string          `json:"description,omitempty"`
	Amount       decimal.Decimal `json:"amount"`
	Direction    Direction       `json:"direction"`
	Category     string          `json:"category,omitempty"`
	Counterparty string          `json:"counterparty,omitempty"`
	Reference    string          `json:"reference,omitempty"`
}

// RowSkip records why a source row produced no candidate.
type RowSkip struct {
	Row    int    `json:"row"`
	Reason string `json:"reason"`
}

// ExtractionResult is what an extractor yields for one document.
type ExtractionResult struct {
	Metadata     map[string]any         `json:"metadata"`
	Transactions []CandidateTransaction `json:"transactions"`
	Skipped      []RowSkip              `json:"skipped,omitempty"`
}

func NewExtractionResult() *ExtractionResult {
	return &ExtractionResult{Metadata: make(map[string]any)}
}

// Skip records a dropped row.
func (r *ExtractionResult) Skip(row int, reason string) {
	r.Skipped = append(r.Skipped, RowSkip{Row: row, Reason: reason})
}

// UnparsedDateCount counts candidates whose date could not be read.
func (r *ExtractionResult) UnparsedDateCount() int {
	n := 0
	for _, tx := range r.Transactions {
		if tx.DateUnparsed {
			n++
		}
	}
	return n
}

// Transaction is the persisted form of a candidate. Amount is a non-negative magnitude.
type Transaction struct {
	ID           int64           `json:"id"`
	DocumentID   int64           `json:"document_id"`
	CompanyID    int64           `json:"company_id"`
	Date         NullTime        `json:"date"`
	Description  string          `json:"description,omitempty"`
	Amount       decimal.Decimal `json:"amount"`
	Direction    Direction       `json:"direction"`
	Category     string          `json:"category,omitempty"`
	Counterparty string          `json:"counterparty,omitempty"`
	Reference    string          `json:"reference,omitempty"`
	IsFlagged    bool            `json:"is_flagged"`
	AnomalyType  string          `json:"anomaly_type,omitempty"`
	CreatedAt    time.Time       `json:"created_at"`
}

// TransactionPage is one page of a document's transactions.
type TransactionPage struct {
	Transactions []Transaction `json:"transactions"`
	Total        int           `json:"total"`
	Page         int           `json:"page"`
	PageSize     int           `json:"page_size"`
}
