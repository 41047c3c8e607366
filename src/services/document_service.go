package services

import (
	"bytes"
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/username/smepulse/backend/src/logger"
	"github.com/username/smepulse/backend/src/model"
	"github.com/username/smepulse/backend/src/models"
	"github.com/username/smepulse/backend/src/parsers"
	"github.com/username/smepulse/backend/src/processors"
	"github.com/username/smepulse/backend/src/security/validation"
)

const (
	DefaultPageSize = 50
	MaxPageSize     = validation.MaxTransactionPageLen
)

type documentServiceImpl struct {
	db                   *sql.DB
	registry             *parsers.Registry
	transactionProcessor *processors.TransactionProcessor
	maxUploadBytes       int64
	now                  func() time.Time
}

func NewDocumentService(
	db *sql.DB,
	registry *parsers.Registry,
	transactionProcessor *processors.TransactionProcessor,
	maxUploadBytes int64,
) DocumentService {
	return &documentServiceImpl{
		db:                   db,
		registry:             registry,
		transactionProcessor: transactionProcessor,
		maxUploadBytes:       maxUploadBytes,
		now:                  time.Now,
	}
}

func (s *documentServiceImpl) SubmitDocument(ctx context.Context, in SubmitDocumentInput) (*models.Document, error) {
	if _, err := lookupCompany(ctx, s.db, in.CompanyID); err != nil {
		return nil, err
	}
	if err := validation.ValidateStringNotEmpty(in.Filename, "filename"); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	if err := validation.ValidateStringMaxLength(in.Filename, validation.MaxFilenameLength, "filename"); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	if !s.registry.Supports(in.Kind, in.Format) {
		return nil, fmt.Errorf("%w: %s documents accept formats %v, got %q", ErrInvalidInput, in.Kind, s.registry.Formats(in.Kind), in.Format)
	}
	if s.maxUploadBytes > 0 && int64(len(in.Content)) > s.maxUploadBytes {
		return nil, fmt.Errorf("%w: file exceeds %d bytes", ErrInvalidInput, s.maxUploadBytes)
	}
	if _, err := validation.ValidateFileContent(in.Content, in.Format); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}

	sum := sha256.Sum256(in.Content)
	doc := &models.Document{
		CompanyID: in.CompanyID,
		Filename:  validation.CleanField(in.Filename, validation.MaxFilenameLength),
		Kind:      in.Kind,
		Format:    in.Format,
		Checksum:  hex.EncodeToString(sum[:]),
		CreatedAt: s.now().UTC(),
	}
	if err := model.InsertDocument(ctx, s.db, doc, in.Content); err != nil {
		return nil, err
	}
	logger.FromContext(ctx).Info("Document submitted", "documentID", doc.ID, "companyID", doc.CompanyID, "kind", doc.Kind, "format", doc.Format, "size", doc.FileSize)
	return doc, nil
}

func (s *documentServiceImpl) RunExtraction(ctx context.Context, documentID int64) (*models.ExtractionOutcome, error) {
	log := logger.FromContext(ctx).With("documentID", documentID)

	doc, err := s.GetDocument(ctx, documentID)
	if err != nil {
		return nil, err
	}

	claimed, err := model.ClaimDocument(ctx, s.db, documentID)
	if err != nil {
		return nil, err
	}
	if !claimed {
		current, err := s.GetDocument(ctx, documentID)
		if err != nil {
			return nil, err
		}
		if current.Status == models.StatusCompleted {
			log.Info("Document already extracted")
			return outcomeOf(current), nil
		}
		return nil, fmt.Errorf("%w: document %d", ErrExtractionInProgress, documentID)
	}
	log.Info("Extraction started", "kind", doc.Kind, "format", doc.Format)
	start := time.Now()

	outcome, err := s.extractAndPersist(ctx, doc)
	if err != nil {
		log.Error("Extraction failed", "error", err)
		s.markFailed(ctx, documentID, err)
		return &models.ExtractionOutcome{DocumentID: documentID, Status: models.StatusFailed, Error: err.Error()}, nil
	}
	log.Info("Extraction completed", "transactions", outcome.TransactionsExtracted, "skippedRows", outcome.SkippedRows, "duration", time.Since(start))
	return outcome, nil
}

// extractAndPersist parses the document and writes its transactions in one DB
// transaction. Nothing is persisted unless every step succeeds.
func (s *documentServiceImpl) extractAndPersist(ctx context.Context, doc *models.Document) (outcome *models.ExtractionOutcome, err error) {
	defer func() {
		if r := recover(); r != nil {
			outcome, err = nil, fmt.Errorf("extraction aborted: %v", r)
		}
	}()

	extractor, err := s.registry.Lookup(doc.Kind, doc.Format)
	if err != nil {
		return nil, err
	}
	content, err := model.GetDocumentContent(ctx, s.db, doc.ID)
	if err != nil {
		return nil, err
	}
	result, err := extractor.Extract(ctx, bytes.NewReader(content))
	if err != nil {
		return nil, err
	}
	if skipErr := parsers.SkipError(result); skipErr != nil {
		logger.FromContext(ctx).Warn("Rows skipped during extraction", "documentID", doc.ID, "count", len(result.Skipped), "reasons", skipErr.Error())
	}
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("extraction cancelled: %w", err)
	}

	now := s.now().UTC()
	txs := s.transactionProcessor.Process(doc.ID, doc.CompanyID, result.Transactions, now)

	metadata := make(map[string]any, len(result.Metadata)+2)
	for k, v := range result.Metadata {
		metadata[k] = v
	}
	metadata["skipped_rows"] = len(result.Skipped)
	metadata["unparsed_date_count"] = result.UnparsedDateCount()

	dbTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("error beginning database transaction: %w", err)
	}
	defer dbTx.Rollback()

	if _, err := model.DeleteTransactionsByDocument(ctx, dbTx, doc.ID); err != nil {
		return nil, err
	}
	if err := model.InsertTransactions(ctx, dbTx, txs); err != nil {
		return nil, err
	}
	if err := model.CompleteDocument(ctx, dbTx, doc.ID, len(txs), len(result.Skipped), metadata, now); err != nil {
		return nil, err
	}
	if err := dbTx.Commit(); err != nil {
		return nil, fmt.Errorf("error committing extraction: %w", err)
	}

	return &models.ExtractionOutcome{
		DocumentID:            doc.ID,
		Status:                models.StatusCompleted,
		TransactionsExtracted: len(txs),
		SkippedRows:           len(result.Skipped),
	}, nil
}

// FailAbandonedExtractions marks documents left processing by a previous run as
// failed so they can be extracted again or deleted. Call it before any worker starts.
func (s *documentServiceImpl) FailAbandonedExtractions(ctx context.Context) (int, error) {
	n, err := model.FailStaleProcessing(ctx, s.db, "extraction abandoned: server stopped before it finished", s.now().UTC())
	if err != nil {
		return 0, err
	}
	if n > 0 {
		logger.FromContext(ctx).Warn("Failed abandoned extractions", "documents", n)
	}
	return int(n), nil
}

// markFailed runs even when ctx is cancelled so the document never stays processing.
func (s *documentServiceImpl) markFailed(ctx context.Context, documentID int64, cause error) {
	if err := model.FailDocument(context.WithoutCancel(ctx), s.db, documentID, cause.Error(), s.now().UTC()); err != nil {
		logger.FromContext(ctx).Error("Failed to record extraction failure", "documentID", documentID, "error", err)
	}
}

func outcomeOf(d *models.Document) *models.ExtractionOutcome {
	return &models.ExtractionOutcome{
		DocumentID:            d.ID,
		Status:                d.Status,
		TransactionsExtracted: d.TransactionsExtracted,
		SkippedRows:           d.SkippedRows,
		Error:                 d.ProcessingError,
	}
}

func (s *documentServiceImpl) GetDocument(ctx context.Context, documentID int64) (*models.Document, error) {
	doc, err := model.GetDocument(ctx, s.db, documentID)
	if errors.Is(err, model.ErrNotFound) {
		return nil, fmt.Errorf("%w: %d", ErrDocumentNotFound, documentID)
	}
	return doc, err
}

func (s *documentServiceImpl) GetStatus(ctx context.Context, documentID int64) (*models.DocumentStatusView, error) {
	doc, err := s.GetDocument(ctx, documentID)
	if err != nil {
		return nil, err
	}
	return &models.DocumentStatusView{
		DocumentID: doc.ID,
		Status:     doc.Status,
		Progress:   doc.Status.Progress(),
		Message:    doc.ProcessingError,
	}, nil
}

func (s *documentServiceImpl) ListDocuments(ctx context.Context, companyID int64) ([]models.Document, error) {
	if _, err := lookupCompany(ctx, s.db, companyID); err != nil {
		return nil, err
	}
	return model.ListDocumentsByCompany(ctx, s.db, companyID)
}

func (s *documentServiceImpl) ListTransactions(ctx context.Context, documentID int64, page, pageSize int) (*models.TransactionPage, error) {
	if _, err := s.GetDocument(ctx, documentID); err != nil {
		return nil, err
	}
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = DefaultPageSize
	}
	if pageSize > MaxPageSize {
		pageSize = MaxPageSize
	}
	total, err := model.CountTransactionsByDocument(ctx, s.db, documentID)
	if err != nil {
		return nil, err
	}
	txs, err := model.ListTransactionsByDocument(ctx, s.db, documentID, pageSize, (page-1)*pageSize)
	if err != nil {
		return nil, err
	}
	return &models.TransactionPage{Transactions: txs, Total: total, Page: page, PageSize: pageSize}, nil
}

// DeleteDocument removes a document and all of its transactions in one step.
// A document being extracted cannot be deleted; the status check is part of the delete.
func (s *documentServiceImpl) DeleteDocument(ctx context.Context, documentID int64) error {
	dbTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("error beginning database transaction: %w", err)
	}
	defer dbTx.Rollback()

	removed, err := model.DeleteTransactionsByDocument(ctx, dbTx, documentID)
	if err != nil {
		return err
	}
	if err := model.DeleteDocument(ctx, dbTx, documentID); err != nil {
		if errors.Is(err, model.ErrNotFound) {
			return fmt.Errorf("%w: %d", ErrDocumentNotFound, documentID)
		}
		if errors.Is(err, model.ErrDocumentBusy) {
			return fmt.Errorf("%w: document %d", ErrExtractionInProgress, documentID)
		}
		return err
	}
	if err := dbTx.Commit(); err != nil {
		return fmt.Errorf("error committing document delete: %w", err)
	}
	logger.FromContext(ctx).Info("Document deleted", "documentID", documentID, "transactionsRemoved", removed)
	return nil
}
