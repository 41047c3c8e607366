package model

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/username/smepulse/backend/src/models"
)

// ErrDocumentBusy is returned when a document is being extracted.
var ErrDocumentBusy = errors.New("document is processing")

// InsertDocument stores a new document in the pending state.
func InsertDocument(ctx context.Context, db DBTX, d *models.Document, content []byte) error {
	d.Status = models.StatusPending
	d.FileSize = int64(len(content))
	res, err := db.ExecContext(ctx, `
	INSERT INTO documents (company_id, filename, kind, format, content, file_size, checksum, status, created_at)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		d.CompanyID, d.Filename, string(d.Kind), string(d.Format), content, d.FileSize, d.Checksum,
		string(d.Status), formatTime(d.CreatedAt))
	if err != nil {
		return fmt.Errorf("failed to insert document: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	d.ID = id
	return nil
}

const documentColumns = `id, company_id, filename, kind, format, file_size, checksum, status,
	processing_error, metadata, transactions_extracted, skipped_rows, created_at, processed_at`

func scanDocument(row interface{ Scan(...any) error }) (models.Document, error) {
	var d models.Document
	var kind, format, status, createdAt string
	var procErr, metadata, processedAt sql.NullString
	err := row.Scan(&d.ID, &d.CompanyID, &d.Filename, &kind, &format, &d.FileSize, &d.Checksum, &status,
		&procErr, &metadata, &d.TransactionsExtracted, &d.SkippedRows, &createdAt, &processedAt)
	if err != nil {
		return d, err
	}
	d.Kind = models.DocumentKind(kind)
	d.Format = models.FileFormat(format)
	d.Status = models.DocumentStatus(status)
	d.ProcessingError = procErr.String
	if metadata.Valid && metadata.String != "" {
		if err := json.Unmarshal([]byte(metadata.String), &d.Metadata); err != nil {
			return d, fmt.Errorf("bad metadata on document %d: %w", d.ID, err)
		}
	}
	if d.CreatedAt, err = parseTime(createdAt); err != nil {
		return d, err
	}
	pt, err := parseNullTime(processedAt)
	if err != nil {
		return d, err
	}
	d.ProcessedAt = models.NullTime(pt)
	return d, nil
}

// GetDocument loads a document without its content.
func GetDocument(ctx context.Context, db DBTX, id int64) (*models.Document, error) {
	row := db.QueryRowContext(ctx, `SELECT `+documentColumns+` FROM documents WHERE id = ?`, id)
	d, err := scanDocument(row)
	if err != nil {
		return nil, notFound(err, "document", id)
	}
	return &d, nil
}

func GetDocumentContent(ctx context.Context, db DBTX, id int64) ([]byte, error) {
	var content []byte
	if err := db.QueryRowContext(ctx, `SELECT content FROM documents WHERE id = ?`, id).Scan(&content); err != nil {
		return nil, notFound(err, "document", id)
	}
	return content, nil
}

func ListDocumentsByCompany(ctx context.Context, db DBTX, companyID int64) ([]models.Document, error) {
	rows, err := db.QueryContext(ctx, `SELECT `+documentColumns+` FROM documents WHERE company_id = ? ORDER BY id DESC`, companyID)
	if err != nil {
		return nil, fmt.Errorf("failed to list documents for company %d: %w", companyID, err)
	}
	defer rows.Close()

	docs := []models.Document{}
	for rows.Next() {
		d, err := scanDocument(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan document: %w", err)
		}
		docs = append(docs, d)
	}
	return docs, rows.Err()
}

// ClaimDocument moves a pending or failed document to processing. It reports false
// when another caller holds the claim or the document is already completed.
func ClaimDocument(ctx context.Context, db DBTX, id int64) (bool, error) {
	res, err := db.ExecContext(ctx, `
	UPDATE documents SET status = ?, processing_error = NULL
	WHERE id = ? AND status IN (?, ?)`,
		string(models.StatusProcessing), id, string(models.StatusPending), string(models.StatusFailed))
	if err != nil {
		return false, fmt.Errorf("failed to claim document %d: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

// CompleteDocument marks a processing document completed with its extraction counts.
func CompleteDocument(ctx context.Context, db DBTX, id int64, extracted, skipped int, metadata map[string]any, at time.Time) error {
	meta, err := json.Marshal(metadata)
	if err != nil {
		return fmt.Errorf("failed to encode metadata for document %d: %w", id, err)
	}
	res, err := db.ExecContext(ctx, `
	UPDATE documents
	SET status = ?, processing_error = NULL, metadata = ?, transactions_extracted = ?, skipped_rows = ?, processed_at = ?
	WHERE id = ? AND status = ?`,
		string(models.StatusCompleted), string(meta), extracted, skipped, formatTime(at),
		id, string(models.StatusProcessing))
	if err != nil {
		return fmt.Errorf("failed to complete document %d: %w", id, err)
	}
	if n, err := res.RowsAffected(); err != nil {
		return err
	} else if n != 1 {
		return fmt.Errorf("document %d is no longer processing", id)
	}
	return nil
}

// FailDocument records a terminal extraction error.
func FailDocument(ctx context.Context, db DBTX, id int64, msg string, at time.Time) error {
	_, err := db.ExecContext(ctx, `
	UPDATE documents
	SET status = ?, processing_error = ?, transactions_extracted = 0, processed_at = ?
	WHERE id = ?`,
		string(models.StatusFailed), msg, formatTime(at), id)
	if err != nil {
		return fmt.Errorf("failed to mark document %d failed: %w", id, err)
	}
	return nil
}

// FailStaleProcessing fails every document left processing, which after a restart
// means its extraction was abandoned. It returns the number of documents failed.
func FailStaleProcessing(ctx context.Context, db DBTX, msg string, at time.Time) (int64, error) {
	res, err := db.ExecContext(ctx, `
	UPDATE documents
	SET status = ?, processing_error = ?, transactions_extracted = 0, processed_at = ?
	WHERE status = ?`,
		string(models.StatusFailed), msg, formatTime(at), string(models.StatusProcessing))
	if err != nil {
		return 0, fmt.Errorf("failed to fail stale documents: %w", err)
	}
	return res.RowsAffected()
}

// DeleteDocument removes a document; its transactions and their anomalies go with it.
// A processing document is left in place and ErrDocumentBusy returned.
func DeleteDocument(ctx context.Context, db DBTX, id int64) error {
	res, err := db.ExecContext(ctx, `DELETE FROM documents WHERE id = ? AND status <> ?`, id, string(models.StatusProcessing))
	if err != nil {
		return fmt.Errorf("failed to delete document %d: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n > 0 {
		return nil
	}

	var status string
	err = db.QueryRowContext(ctx, `SELECT status FROM documents WHERE id = ?`, id).Scan(&status)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%w: document %d", ErrNotFound, id)
	}
	if err != nil {
		return fmt.Errorf("failed to check document %d: %w", id, err)
	}
	return fmt.Errorf("%w: document %d", ErrDocumentBusy, id)
}
