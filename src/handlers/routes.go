package handlers

import "github.com/go-chi/chi/v5"

// RegisterRoutes mounts the /api surface on r.
func RegisterRoutes(r chi.Router, companies *CompanyHandler, documents *DocumentHandler, analysis *AnalysisHandler) {
	r.Route("/api", func(r chi.Router) {
		r.Route("/companies", func(r chi.Router) {
			r.Post("/", companies.HandleCreateCompany)
			r.Get("/", companies.HandleListCompanies)

			r.Route("/{companyID}", func(r chi.Router) {
				r.Get("/", companies.HandleGetCompany)
				r.Put("/balance-sheet", companies.HandlePutBalanceSheet)

				r.Post("/documents", documents.HandleUpload)
				r.Get("/documents", documents.HandleListDocuments)

				r.Post("/analysis", analysis.HandleAnalyze)
				r.Get("/health-score", analysis.HandleGetHealthScore)
				r.Get("/health-score/history", analysis.HandleGetHealthScoreHistory)
				r.Get("/anomalies", analysis.HandleListAnomalies)
				r.Get("/metrics", analysis.HandleGetMetrics)
			})
		})

		r.Route("/documents/{documentID}", func(r chi.Router) {
			r.Get("/status", documents.HandleGetStatus)
			r.Post("/extract", documents.HandleRunExtraction)
			r.Get("/transactions", documents.HandleListTransactions)
			r.Delete("/", documents.HandleDeleteDocument)
		})
	})
}
