package handlers

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/patrickmn/go-cache"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/username/smepulse/backend/src/database"
	"github.com/username/smepulse/backend/src/jobs"
	"github.com/username/smepulse/backend/src/models"
	"github.com/username/smepulse/backend/src/parsers"
	"github.com/username/smepulse/backend/src/processors"
	"github.com/username/smepulse/backend/src/security/validation"
	"github.com/username/smepulse/backend/src/services"
)

const statementCSV = `Date,Description,Amount
01/04/2024,Sales invoice,10000
02/04/2024,Rent,-3000
`

type stubQueue struct {
	enqueued []int64
	err      error
}

func (q *stubQueue) Enqueue(documentID int64) (string, error) {
	if q.err != nil {
		return "", q.err
	}
	q.enqueued = append(q.enqueued, documentID)
	return fmt.Sprintf("job-%d", len(q.enqueued)), nil
}

func newTestRouter(t *testing.T, queue ExtractionQueue) http.Handler {
	t.Helper()
	db, err := database.Open(filepath.Join(t.TempDir(), "handlers.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, database.RunMigrations(db))

	companies := services.NewCompanyService(db)
	documents := services.NewDocumentService(db, parsers.NewDefaultRegistry(), processors.NewTransactionProcessor(), 1<<20)
	analysis := services.NewAnalysisService(db, processors.DefaultBenchmarks(), 42, 90,
		cache.New(services.DefaultCacheExpiration, services.CacheCleanupInterval))

	r := chi.NewRouter()
	r.Use(ContextualLoggerMiddleware)
	RegisterRoutes(r,
		NewCompanyHandler(companies),
		NewDocumentHandler(documents, queue, 1<<20),
		NewAnalysisHandler(analysis),
	)
	return r
}

func do(t *testing.T, h http.Handler, method, path string, body []byte, contentType string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, bytes.NewReader(body))
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func multipartUpload(t *testing.T, kind, format, filename string, content []byte) ([]byte, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	require.NoError(t, mw.WriteField("kind", kind))
	require.NoError(t, mw.WriteField("format", format))
	fw, err := mw.CreateFormFile("file", filename)
	require.NoError(t, err)
	_, err = fw.Write(content)
	require.NoError(t, err)
	require.NoError(t, mw.Close())
	return buf.Bytes(), mw.FormDataContentType()
}

func createCompany(t *testing.T, h http.Handler) models.Company {
	t.Helper()
	rec := do(t, h, http.MethodPost, "/api/companies", []byte(`{"name":"Acme Traders","industry":"trading"}`), "application/json")
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	return decode[models.Company](t, rec)
}

func uploadStatement(t *testing.T, h http.Handler, companyID int64) uploadResponse {
	t.Helper()
	body, ct := multipartUpload(t, "bank_statement", "delimited", "april.csv", []byte(statementCSV))
	rec := do(t, h, http.MethodPost, fmt.Sprintf("/api/companies/%d/documents", companyID), body, ct)
	require.Equal(t, http.StatusAccepted, rec.Code, rec.Body.String())
	return decode[uploadResponse](t, rec)
}

func TestCompanyEndpoints(t *testing.T) {
	h := newTestRouter(t, &stubQueue{})
	company := createCompany(t, h)
	assert.Equal(t, "Acme Traders", company.Name)
	assert.Equal(t, models.Industry("trading"), company.Industry)

	testCases := []struct {
		name       string
		method     string
		path       string
		body       string
		wantStatus int
	}{
		{"get existing", http.MethodGet, fmt.Sprintf("/api/companies/%d", company.ID), "", http.StatusOK},
		{"get unknown", http.MethodGet, "/api/companies/999", "", http.StatusNotFound},
		{"get bad id", http.MethodGet, "/api/companies/abc", "", http.StatusBadRequest},
		{"list", http.MethodGet, "/api/companies", "", http.StatusOK},
		{"create malformed json", http.MethodPost, "/api/companies", `{"name":`, http.StatusBadRequest},
		{"create empty name", http.MethodPost, "/api/companies", `{"name":"  "}`, http.StatusBadRequest},
		{"create bad gstin", http.MethodPost, "/api/companies", `{"name":"X","gst_number":"nope"}`, http.StatusBadRequest},
		{"balance sheet", http.MethodPut, fmt.Sprintf("/api/companies/%d/balance-sheet", company.ID), `{"current_assets":500,"current_liabilities":250}`, http.StatusOK},
		{"balance sheet unknown company", http.MethodPut, "/api/companies/999/balance-sheet", `{}`, http.StatusNotFound},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			rec := do(t, h, tc.method, tc.path, []byte(tc.body), "application/json")
			assert.Equal(t, tc.wantStatus, rec.Code, rec.Body.String())
		})
	}
}

func TestUploadQueuesExtraction(t *testing.T) {
	queue := &stubQueue{}
	h := newTestRouter(t, queue)
	company := createCompany(t, h)

	resp := uploadStatement(t, h, company.ID)
	require.NotNil(t, resp.Document)
	assert.True(t, resp.Queued)
	assert.Equal(t, "job-1", resp.JobID)
	assert.Equal(t, models.StatusPending, resp.Document.Status)
	assert.Equal(t, []int64{resp.Document.ID}, queue.enqueued)
}

func TestUploadWithFullQueueLeavesDocumentPending(t *testing.T) {
	h := newTestRouter(t, &stubQueue{err: jobs.ErrQueueFull})
	company := createCompany(t, h)

	resp := uploadStatement(t, h, company.ID)
	assert.False(t, resp.Queued)
	assert.Empty(t, resp.JobID)
	assert.Contains(t, resp.Message, "extract")

	rec := do(t, h, http.MethodGet, fmt.Sprintf("/api/documents/%d/status", resp.Document.ID), nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, models.StatusPending, decode[models.DocumentStatusView](t, rec).Status)
}

func TestUploadRejectsBadInput(t *testing.T) {
	h := newTestRouter(t, &stubQueue{})
	company := createCompany(t, h)
	path := fmt.Sprintf("/api/companies/%d/documents", company.ID)

	testCases := []struct {
		name       string
		path       string
		kind       string
		format     string
		content    []byte
		wantStatus int
	}{
		{"unknown kind", path, "invoice", "delimited", []byte(statementCSV), http.StatusBadRequest},
		{"unknown format", path, "bank_statement", "docx", []byte(statementCSV), http.StatusBadRequest},
		{"unsupported combination", path, "tally_export", "layout", []byte(statementCSV), http.StatusBadRequest},
		{"spreadsheet without zip signature", path, "bank_statement", "spreadsheet", []byte(statementCSV), http.StatusBadRequest},
		{"unknown company", "/api/companies/999/documents", "bank_statement", "delimited", []byte(statementCSV), http.StatusNotFound},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			body, ct := multipartUpload(t, tc.kind, tc.format, "file.csv", tc.content)
			rec := do(t, h, http.MethodPost, tc.path, body, ct)
			assert.Equal(t, tc.wantStatus, rec.Code, rec.Body.String())
		})
	}

	t.Run("not multipart", func(t *testing.T) {
		rec := do(t, h, http.MethodPost, path, []byte("plain"), "text/plain")
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestDocumentLifecycle(t *testing.T) {
	h := newTestRouter(t, &stubQueue{})
	company := createCompany(t, h)
	docID := uploadStatement(t, h, company.ID).Document.ID

	rec := do(t, h, http.MethodPost, fmt.Sprintf("/api/documents/%d/extract", docID), nil, "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	outcome := decode[models.ExtractionOutcome](t, rec)
	assert.Equal(t, models.StatusCompleted, outcome.Status)
	assert.Equal(t, 2, outcome.TransactionsExtracted)

	rec = do(t, h, http.MethodGet, fmt.Sprintf("/api/documents/%d/status", docID), nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	status := decode[models.DocumentStatusView](t, rec)
	assert.Equal(t, models.StatusCompleted, status.Status)
	assert.Equal(t, 100, status.Progress)

	rec = do(t, h, http.MethodGet, fmt.Sprintf("/api/documents/%d/transactions?page=1&page_size=1", docID), nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	page := decode[models.TransactionPage](t, rec)
	assert.Equal(t, 2, page.Total)
	assert.Len(t, page.Transactions, 1)

	rec = do(t, h, http.MethodGet, fmt.Sprintf("/api/documents/%d/transactions?page_size=many", docID), nil, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, h, http.MethodGet, fmt.Sprintf("/api/companies/%d/documents", company.ID), nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]models.Document](t, rec), 1)

	rec = do(t, h, http.MethodDelete, fmt.Sprintf("/api/documents/%d", docID), nil, "")
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = do(t, h, http.MethodDelete, fmt.Sprintf("/api/documents/%d", docID), nil, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = do(t, h, http.MethodPost, fmt.Sprintf("/api/documents/%d/extract", docID), nil, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestAnalysisEndpoints(t *testing.T) {
	h := newTestRouter(t, &stubQueue{})
	company := createCompany(t, h)
	base := fmt.Sprintf("/api/companies/%d", company.ID)

	rec := do(t, h, http.MethodGet, base+"/health-score", nil, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = do(t, h, http.MethodPost, base+"/analysis?window_days=10", nil, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	rec = do(t, h, http.MethodPost, base+"/analysis?window_days=ninety", nil, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	rec = do(t, h, http.MethodPost, "/api/companies/999/analysis", nil, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = do(t, h, http.MethodPost, base+"/analysis", nil, "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	report := decode[models.AnalysisReport](t, rec)
	assert.Equal(t, 90, report.WindowDays)
	assert.Equal(t, company.ID, report.CompanyID)
	assert.NotNil(t, report.Recommendations)

	rec = do(t, h, http.MethodGet, base+"/health-score", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	snapshot := decode[models.HealthScoreSnapshot](t, rec)
	assert.Equal(t, report.HealthScore.OverallScore, snapshot.OverallScore)

	rec = do(t, h, http.MethodGet, base+"/health-score/history?limit=5", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]models.HealthScoreSnapshot](t, rec), 1)

	rec = do(t, h, http.MethodGet, base+"/health-score/history?limit=500", nil, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, h, http.MethodGet, base+"/anomalies?severity=high&include_resolved=true", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	list := decode[models.AnomalyList](t, rec)
	assert.Equal(t, 0, list.Total)
	assert.NotNil(t, list.Anomalies)

	rec = do(t, h, http.MethodGet, base+"/anomalies?severity=catastrophic", nil, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	rec = do(t, h, http.MethodGet, base+"/anomalies?include_resolved=maybe", nil, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, h, http.MethodGet, base+"/metrics", nil, "")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestStatusForError(t *testing.T) {
	testCases := []struct {
		err  error
		want int
	}{
		{fmt.Errorf("%w: 7", services.ErrCompanyNotFound), http.StatusNotFound},
		{services.ErrDocumentNotFound, http.StatusNotFound},
		{services.ErrNoAnalysis, http.StatusNotFound},
		{fmt.Errorf("%w: bad", services.ErrInvalidInput), http.StatusBadRequest},
		{validation.ErrValidationFailed, http.StatusBadRequest},
		{services.ErrExtractionInProgress, http.StatusConflict},
		{jobs.ErrQueueFull, http.StatusServiceUnavailable},
		{errors.New("disk on fire"), http.StatusInternalServerError},
	}
	for _, tc := range testCases {
		t.Run(tc.err.Error(), func(t *testing.T) {
			assert.Equal(t, tc.want, statusForError(tc.err))
		})
	}
}

func TestRateLimitMiddleware(t *testing.T) {
	ok := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) })
	h := RateLimitMiddleware(1, 1)(ok)

	first := httptest.NewRecorder()
	h.ServeHTTP(first, httptest.NewRequest(http.MethodGet, "/", nil))
	second := httptest.NewRecorder()
	h.ServeHTTP(second, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusOK, first.Code)
	assert.Equal(t, http.StatusTooManyRequests, second.Code)

	unlimited := RateLimitMiddleware(0, 0)(ok)
	for i := 0; i < 5; i++ {
		rec := httptest.NewRecorder()
		unlimited.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
		assert.Equal(t, http.StatusOK, rec.Code)
	}
}

func TestContextualLoggerMiddlewareSetsRequestID(t *testing.T) {
	var seen string
	h := ContextualLoggerMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen, _ = r.Context().Value(requestIDContextKey).(string)
	}))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.NotEmpty(t, seen)
	assert.Equal(t, seen, rec.Header().Get("X-Request-ID"))
}
