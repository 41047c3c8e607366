package services

import (
	"context"
	"errors"

	"github.com/username/smepulse/backend/src/models"
)

var (
	ErrDocumentNotFound     = errors.New("document not found")
	ErrCompanyNotFound      = errors.New("company not found")
	ErrExtractionInProgress = errors.New("extraction already in progress")
	ErrInvalidInput         = errors.New("invalid input")
	ErrNoAnalysis           = errors.New("no analysis available")
)

// SubmitDocumentInput is an uploaded file with its declared kind and format.
type SubmitDocumentInput struct {
	CompanyID int64
	Filename  string
	Kind      models.DocumentKind
	Format    models.FileFormat
	Content   []byte
}

// DocumentService owns document intake and the extraction state machine.
type DocumentService interface {
	SubmitDocument(ctx context.Context, in SubmitDocumentInput) (*models.Document, error)
	// RunExtraction claims the document and extracts it. Extraction failures are
	// reported in the outcome; the error is for not-found and claim conflicts.
	RunExtraction(ctx context.Context, documentID int64) (*models.ExtractionOutcome, error)
	GetStatus(ctx context.Context, documentID int64) (*models.DocumentStatusView, error)
	GetDocument(ctx context.Context, documentID int64) (*models.Document, error)
	ListDocuments(ctx context.Context, companyID int64) ([]models.Document, error)
	ListTransactions(ctx context.Context, documentID int64, page, pageSize int) (*models.TransactionPage, error)
	DeleteDocument(ctx context.Context, documentID int64) error
	// FailAbandonedExtractions fails documents still processing from an earlier run.
	FailAbandonedExtractions(ctx context.Context) (int, error)
}

// AnalysisService scores a company from its extracted transactions.
type AnalysisService interface {
	Analyze(ctx context.Context, companyID int64, windowDays int) (*models.AnalysisReport, error)
	GetLatestHealthScore(ctx context.Context, companyID int64) (*models.HealthScoreSnapshot, error)
	GetHealthScoreHistory(ctx context.Context, companyID int64, limit int) ([]models.HealthScoreSnapshot, error)
	ListAnomalies(ctx context.Context, companyID int64, filter models.AnomalyFilter) (*models.AnomalyList, error)
	GetLatestMetrics(ctx context.Context, companyID int64) (*models.FinancialMetrics, error)
}

type CompanyService interface {
	CreateCompany(ctx context.Context, name, industry, gstNumber string) (*models.Company, error)
	GetCompany(ctx context.Context, companyID int64) (*models.Company, error)
	ListCompanies(ctx context.Context) ([]models.Company, error)
	RecordBalanceSheet(ctx context.Context, companyID int64, sheet models.BalanceSheet) (*models.BalanceSheet, error)
}
