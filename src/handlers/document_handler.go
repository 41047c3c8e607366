package handlers

import (
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/username/smepulse/backend/src/logger"
	"github.com/username/smepulse/backend/src/models"
	"github.com/username/smepulse/backend/src/security/validation"
	"github.com/username/smepulse/backend/src/services"
	"github.com/username/smepulse/backend/src/utils"
)

// ExtractionQueue schedules background extraction of a submitted document.
type ExtractionQueue interface {
	Enqueue(documentID int64) (string, error)
}

type DocumentHandler struct {
	documentService services.DocumentService
	queue           ExtractionQueue
	maxUploadBytes  int64
}

func NewDocumentHandler(service services.DocumentService, queue ExtractionQueue, maxUploadBytes int64) *DocumentHandler {
	return &DocumentHandler{
		documentService: service,
		queue:           queue,
		maxUploadBytes:  maxUploadBytes,
	}
}

type uploadResponse struct {
	Document *models.Document `json:"document"`
	JobID    string           `json:"job_id,omitempty"`
	Queued   bool             `json:"queued"`
	Message  string           `json:"message,omitempty"`
}

// HandleUpload stores a multipart upload (fields file, kind, format) and queues its extraction.
func (h *DocumentHandler) HandleUpload(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContext(r.Context())
	companyID, ok := parseIDParam(r, "companyID")
	if !ok {
		utils.SendJSONError(w, "invalid company id", http.StatusBadRequest)
		return
	}

	// Multipart framing needs headroom over the file limit.
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadBytes+1<<20)
	if err := r.ParseMultipartForm(h.maxUploadBytes); err != nil {
		log.Warn("Failed to parse multipart form or request too large", "companyID", companyID, "error", err, "limit", h.maxUploadBytes)
		utils.SendJSONError(w, fmt.Sprintf("failed to parse upload or file too large (max %d MB)", h.maxUploadBytes/(1024*1024)), http.StatusBadRequest)
		return
	}

	kind, err := validation.ValidateDocumentKind(r.FormValue("kind"))
	if err != nil {
		utils.SendJSONError(w, err.Error(), http.StatusBadRequest)
		return
	}
	format, err := validation.ValidateFileFormat(r.FormValue("format"))
	if err != nil {
		utils.SendJSONError(w, err.Error(), http.StatusBadRequest)
		return
	}

	file, fileHeader, err := r.FormFile("file")
	if err != nil {
		log.Warn("Failed to retrieve file from request", "companyID", companyID, "error", err)
		utils.SendJSONError(w, "failed to retrieve file from request, ensure the 'file' field is used", http.StatusBadRequest)
		return
	}
	defer file.Close()

	if fileHeader.Size > h.maxUploadBytes {
		log.Warn("Uploaded file header reports size too large", "companyID", companyID, "fileSize", fileHeader.Size, "limit", h.maxUploadBytes)
		utils.SendJSONError(w, fmt.Sprintf("file too large, max %d MB", h.maxUploadBytes/(1024*1024)), http.StatusBadRequest)
		return
	}

	content, err := io.ReadAll(file)
	if err != nil {
		log.Error("Failed to read uploaded file", "companyID", companyID, "error", err)
		utils.SendJSONError(w, "failed to read uploaded file", http.StatusInternalServerError)
		return
	}

	doc, err := h.documentService.SubmitDocument(r.Context(), services.SubmitDocumentInput{
		CompanyID: companyID,
		Filename:  fileHeader.Filename,
		Kind:      kind,
		Format:    format,
		Content:   content,
	})
	if err != nil {
		sendServiceError(w, r, err, "submit document")
		return
	}

	logger.InfoFromContext(r.Context(), "Upload accepted", "documentID", doc.ID, "companyID", companyID, "filename", doc.Filename)
	resp := uploadResponse{Document: doc}
	jobID, err := h.queue.Enqueue(doc.ID)
	if err != nil {
		// The document stays pending and can be extracted on demand.
		log.Warn("Extraction not queued", "documentID", doc.ID, "error", err)
		resp.Message = fmt.Sprintf("extraction not queued (%v), POST /api/documents/%d/extract to run it", err, doc.ID)
	} else {
		resp.JobID = jobID
		resp.Queued = true
	}
	_ = utils.SendJSON(w, resp, http.StatusAccepted)
}

func (h *DocumentHandler) HandleListDocuments(w http.ResponseWriter, r *http.Request) {
	companyID, ok := parseIDParam(r, "companyID")
	if !ok {
		utils.SendJSONError(w, "invalid company id", http.StatusBadRequest)
		return
	}
	docs, err := h.documentService.ListDocuments(r.Context(), companyID)
	if err != nil {
		sendServiceError(w, r, err, "list documents")
		return
	}
	if docs == nil {
		docs = []models.Document{}
	}
	_ = utils.SendJSON(w, docs, http.StatusOK)
}

func (h *DocumentHandler) HandleGetStatus(w http.ResponseWriter, r *http.Request) {
	documentID, ok := parseIDParam(r, "documentID")
	if !ok {
		utils.SendJSONError(w, "invalid document id", http.StatusBadRequest)
		return
	}
	status, err := h.documentService.GetStatus(r.Context(), documentID)
	if err != nil {
		sendServiceError(w, r, err, "get document status")
		return
	}
	_ = utils.SendJSON(w, status, http.StatusOK)
}

// HandleRunExtraction runs extraction inline. A failed extraction is still a 200 with status failed.
func (h *DocumentHandler) HandleRunExtraction(w http.ResponseWriter, r *http.Request) {
	documentID, ok := parseIDParam(r, "documentID")
	if !ok {
		utils.SendJSONError(w, "invalid document id", http.StatusBadRequest)
		return
	}
	outcome, err := h.documentService.RunExtraction(r.Context(), documentID)
	if err != nil {
		sendServiceError(w, r, err, "run extraction")
		return
	}
	_ = utils.SendJSON(w, outcome, http.StatusOK)
}

func (h *DocumentHandler) HandleListTransactions(w http.ResponseWriter, r *http.Request) {
	documentID, ok := parseIDParam(r, "documentID")
	if !ok {
		utils.SendJSONError(w, "invalid document id", http.StatusBadRequest)
		return
	}
	page, err := queryInt(r, "page")
	if err != nil {
		utils.SendJSONError(w, "page must be an integer", http.StatusBadRequest)
		return
	}
	pageSize, err := queryInt(r, "page_size")
	if err != nil {
		utils.SendJSONError(w, "page_size must be an integer", http.StatusBadRequest)
		return
	}

	result, err := h.documentService.ListTransactions(r.Context(), documentID, page, pageSize)
	if err != nil {
		sendServiceError(w, r, err, "list transactions")
		return
	}
	if result.Transactions == nil {
		result.Transactions = []models.Transaction{}
	}
	_ = utils.SendJSON(w, result, http.StatusOK)
}

func (h *DocumentHandler) HandleDeleteDocument(w http.ResponseWriter, r *http.Request) {
	documentID, ok := parseIDParam(r, "documentID")
	if !ok {
		utils.SendJSONError(w, "invalid document id", http.StatusBadRequest)
		return
	}
	if err := h.documentService.DeleteDocument(r.Context(), documentID); err != nil {
		if errors.Is(err, services.ErrExtractionInProgress) {
			utils.SendJSONError(w, "document is being extracted, retry once it finishes", http.StatusConflict)
			return
		}
		sendServiceError(w, r, err, "delete document")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
