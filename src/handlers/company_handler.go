package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/username/smepulse/backend/src/logger"
	"github.com/username/smepulse/backend/src/models"
	"github.com/username/smepulse/backend/src/services"
	"github.com/username/smepulse/backend/src/utils"
)

type CompanyHandler struct {
	companyService services.CompanyService
}

func NewCompanyHandler(service services.CompanyService) *CompanyHandler {
	return &CompanyHandler{companyService: service}
}

type createCompanyRequest struct {
	Name      string `json:"name"`
	Industry  string `json:"industry"`
	GSTNumber string `json:"gst_number"`
}

func (h *CompanyHandler) HandleCreateCompany(w http.ResponseWriter, r *http.Request) {
	var req createCompanyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.FromContext(r.Context()).Warn("Invalid create company payload", "error", err)
		utils.SendJSONError(w, "invalid request body", http.StatusBadRequest)
		return
	}

	company, err := h.companyService.CreateCompany(r.Context(), req.Name, req.Industry, req.GSTNumber)
	if err != nil {
		sendServiceError(w, r, err, "create company")
		return
	}
	_ = utils.SendJSON(w, company, http.StatusCreated)
}

func (h *CompanyHandler) HandleListCompanies(w http.ResponseWriter, r *http.Request) {
	companies, err := h.companyService.ListCompanies(r.Context())
	if err != nil {
		sendServiceError(w, r, err, "list companies")
		return
	}
	if companies == nil {
		companies = []models.Company{}
	}
	_ = utils.SendJSON(w, companies, http.StatusOK)
}

func (h *CompanyHandler) HandleGetCompany(w http.ResponseWriter, r *http.Request) {
	companyID, ok := parseIDParam(r, "companyID")
	if !ok {
		utils.SendJSONError(w, "invalid company id", http.StatusBadRequest)
		return
	}
	company, err := h.companyService.GetCompany(r.Context(), companyID)
	if err != nil {
		sendServiceError(w, r, err, "get company")
		return
	}
	_ = utils.SendJSON(w, company, http.StatusOK)
}

// HandlePutBalanceSheet replaces the company's balance sheet. Omitted fields are stored as absent.
func (h *CompanyHandler) HandlePutBalanceSheet(w http.ResponseWriter, r *http.Request) {
	companyID, ok := parseIDParam(r, "companyID")
	if !ok {
		utils.SendJSONError(w, "invalid company id", http.StatusBadRequest)
		return
	}
	var sheet models.BalanceSheet
	if err := json.NewDecoder(r.Body).Decode(&sheet); err != nil {
		logger.FromContext(r.Context()).Warn("Invalid balance sheet payload", "companyID", companyID, "error", err)
		utils.SendJSONError(w, "invalid request body", http.StatusBadRequest)
		return
	}

	saved, err := h.companyService.RecordBalanceSheet(r.Context(), companyID, sheet)
	if err != nil {
		sendServiceError(w, r, err, "record balance sheet")
		return
	}
	_ = utils.SendJSON(w, saved, http.StatusOK)
}
