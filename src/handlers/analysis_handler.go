package handlers

import (
	"net/http"
	"strconv"

	"github.com/username/smepulse/backend/src/models"
	"github.com/username/smepulse/backend/src/security/validation"
	"github.com/username/smepulse/backend/src/services"
	"github.com/username/smepulse/backend/src/utils"
)

type AnalysisHandler struct {
	analysisService services.AnalysisService
}

func NewAnalysisHandler(service services.AnalysisService) *AnalysisHandler {
	return &AnalysisHandler{analysisService: service}
}

// HandleAnalyze runs a scoring pass over the company's window (?window_days=, default 90).
func (h *AnalysisHandler) HandleAnalyze(w http.ResponseWriter, r *http.Request) {
	companyID, ok := parseIDParam(r, "companyID")
	if !ok {
		utils.SendJSONError(w, "invalid company id", http.StatusBadRequest)
		return
	}
	windowDays, err := queryInt(r, "window_days")
	if err != nil {
		utils.SendJSONError(w, "window_days must be an integer", http.StatusBadRequest)
		return
	}

	report, err := h.analysisService.Analyze(r.Context(), companyID, windowDays)
	if err != nil {
		sendServiceError(w, r, err, "analyze company")
		return
	}
	_ = utils.SendJSON(w, report, http.StatusOK)
}

func (h *AnalysisHandler) HandleGetHealthScore(w http.ResponseWriter, r *http.Request) {
	companyID, ok := parseIDParam(r, "companyID")
	if !ok {
		utils.SendJSONError(w, "invalid company id", http.StatusBadRequest)
		return
	}
	snapshot, err := h.analysisService.GetLatestHealthScore(r.Context(), companyID)
	if err != nil {
		sendServiceError(w, r, err, "get health score")
		return
	}
	_ = utils.SendJSON(w, snapshot, http.StatusOK)
}

func (h *AnalysisHandler) HandleGetHealthScoreHistory(w http.ResponseWriter, r *http.Request) {
	companyID, ok := parseIDParam(r, "companyID")
	if !ok {
		utils.SendJSONError(w, "invalid company id", http.StatusBadRequest)
		return
	}
	limit, err := queryInt(r, "limit")
	if err != nil {
		utils.SendJSONError(w, "limit must be an integer", http.StatusBadRequest)
		return
	}

	history, err := h.analysisService.GetHealthScoreHistory(r.Context(), companyID, limit)
	if err != nil {
		sendServiceError(w, r, err, "get health score history")
		return
	}
	if history == nil {
		history = []models.HealthScoreSnapshot{}
	}
	_ = utils.SendJSON(w, history, http.StatusOK)
}

func (h *AnalysisHandler) HandleListAnomalies(w http.ResponseWriter, r *http.Request) {
	companyID, ok := parseIDParam(r, "companyID")
	if !ok {
		utils.SendJSONError(w, "invalid company id", http.StatusBadRequest)
		return
	}
	query := r.URL.Query()
	severity, err := validation.ValidateSeverity(query.Get("severity"))
	if err != nil {
		utils.SendJSONError(w, err.Error(), http.StatusBadRequest)
		return
	}
	filter := models.AnomalyFilter{Severity: severity}
	if raw := query.Get("include_resolved"); raw != "" {
		if filter.IncludeResolved, err = strconv.ParseBool(raw); err != nil {
			utils.SendJSONError(w, "include_resolved must be a boolean", http.StatusBadRequest)
			return
		}
	}

	list, err := h.analysisService.ListAnomalies(r.Context(), companyID, filter)
	if err != nil {
		sendServiceError(w, r, err, "list anomalies")
		return
	}
	if list.Anomalies == nil {
		list.Anomalies = []models.Anomaly{}
	}
	_ = utils.SendJSON(w, list, http.StatusOK)
}

func (h *AnalysisHandler) HandleGetMetrics(w http.ResponseWriter, r *http.Request) {
	companyID, ok := parseIDParam(r, "companyID")
	if !ok {
		utils.SendJSONError(w, "invalid company id", http.StatusBadRequest)
		return
	}
	metrics, err := h.analysisService.GetLatestMetrics(r.Context(), companyID)
	if err != nil {
		sendServiceError(w, r, err, "get metrics")
		return
	}
	_ = utils.SendJSON(w, metrics, http.StatusOK)
}
