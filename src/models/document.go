package models

import (
	"database/sql"
	"time"
)

// DocumentKind is the declared business type of an uploaded document.
type DocumentKind string

const (
	KindBankStatement DocumentKind = "bank_statement"
	KindTallyExport   DocumentKind = "tally_export"
	KindZohoExport    DocumentKind = "zoho_export"
	KindGSTReturn     DocumentKind = "gst_return"
)

// DocumentKinds lists every accepted kind.
var DocumentKinds = []DocumentKind{KindBankStatement, KindTallyExport, KindZohoExport, KindGSTReturn}

// FileFormat is the declared encoding of an uploaded document.
type FileFormat string

const (
	// FormatLayout is a PDF or its page text, pages separated by form feeds.
	FormatLayout      FileFormat = "layout"
	FormatDelimited   FileFormat = "delimited"
	FormatSpreadsheet FileFormat = "spreadsheet"
	FormatStructured  FileFormat = "structured"
	FormatText        FileFormat = "text"
)

// FileFormats lists every accepted format.
var FileFormats = []FileFormat{FormatLayout, FormatDelimited, FormatSpreadsheet, FormatStructured, FormatText}

type DocumentStatus string

const (
	StatusPending    DocumentStatus = "pending"
	StatusProcessing DocumentStatus = "processing"
	StatusCompleted  DocumentStatus = "completed"
	StatusFailed     DocumentStatus = "failed"
)

// Progress is a coarse percentage for polling clients.
func (s DocumentStatus) Progress() int {
	switch s {
	case StatusProcessing:
		return 50
	case StatusCompleted, StatusFailed:
		return 100
	default:
		return 0
	}
}

// NullTime wraps sql.NullTime so absent values marshal as JSON null.
type NullTime sql.NullTime

func (nt NullTime) MarshalJSON() ([]byte, error) {
	if !nt.Valid {
		return []byte("null"), nil
	}
	return nt.Time.MarshalJSON()
}

func (nt *NullTime) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*nt = NullTime{}
		return nil
	}
	if err := nt.Time.UnmarshalJSON(data); err != nil {
		return err
	}
	nt.Valid = true
	return nil
}

// NewNullTime returns a valid NullTime for t.
func NewNullTime(t time.Time) NullTime {
	return NullTime{Time: t, Valid: true}
}

// Document is an uploaded file and its extraction state. Content is loaded separately.
type Document struct {
	ID                    int64          `json:"id"`
	CompanyID             int64          `json:"company_id"`
	Filename              string         `json:"filename"`
	Kind                  DocumentKind   `json:"kind"`
	Format                FileFormat     `json:"format"`
	FileSize              int64          `json:"file_size"`
	Checksum              string         `json:"checksum"`
	Status                DocumentStatus `json:"status"`
	ProcessingError       string         `json:"processing_error,omitempty"`
	Metadata              map[string]any `json:"metadata,omitempty"`
	TransactionsExtracted int            `json:"transactions_extracted"`
	SkippedRows           int            `json:"skipped_rows"`
	CreatedAt             time.Time      `json:"created_at"`
	ProcessedAt           NullTime       `json:"processed_at"`
}

// DocumentStatusView is the polling projection of a document.
type DocumentStatusView struct {
	DocumentID int64          `json:"document_id"`
	Status     DocumentStatus `json:"status"`
	Progress   int            `json:"progress"`
	Message    string         `json:"message,omitempty"`
}

// ExtractionOutcome reports the result of one extraction run.
type ExtractionOutcome struct {
	DocumentID            int64          `json:"document_id"`
	Status                DocumentStatus `json:"status"`
	TransactionsExtracted int            `json:"transactions_extracted"`
	SkippedRows           int            `json:"skipped_rows"`
	Error                 string         `json:"error,omitempty"`
}
