package http

import (
	"net/http"

	"clinical-quiz-service/internal/app"
	"clinical-quiz-service/internal/domain"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

type CatalogHandler struct {
	catalog     *app.CatalogService
	performance *app.PerformanceService
	log         *zap.Logger
}

func NewCatalogHandler(catalog *app.CatalogService, performance *app.PerformanceService, log *zap.Logger) *CatalogHandler {
	return &CatalogHandler{catalog: catalog, performance: performance, log: log}
}

func (h *CatalogHandler) Institutions(w http.ResponseWriter, r *http.Request) {
	list, err := h.catalog.ListInstitutions(r.Context())
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	if list == nil {
		list = []domain.Institution{}
	}
	writeJSON(w, http.StatusOK, list)
}

func (h *CatalogHandler) Cases(w http.ResponseWriter, r *http.Request) {
	list, err := h.catalog.ListCases(r.Context(), r.URL.Query().Get("institution_id"))
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	if list == nil {
		list = []app.CaseSummary{}
	}
	writeJSON(w, http.StatusOK, list)
}

func (h *CatalogHandler) Case(w http.ResponseWriter, r *http.Request) {
	view, err := h.catalog.GetCase(r.Context(), chi.URLParam(r, "caseID"))
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

type attemptView struct {
	domain.AttemptRecord
	Band string `json:"band"`
}

type performanceResponse struct {
	Total        int           `json:"total"`
	AverageScore float64       `json:"averageScore"`
	BestScore    float64       `json:"bestScore"`
	PassRate     float64       `json:"passRate"`
	Attempts     []attemptView `json:"attempts"`
}

func (h *CatalogHandler) Performance(w http.ResponseWriter, r *http.Request) {
	user, _ := UserFromContext(r.Context())
	summary, err := h.performance.Summary(r.Context(), user.ID)
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	resp := performanceResponse{
		Total:        summary.Total,
		AverageScore: summary.AverageScore,
		BestScore:    summary.BestScore,
		PassRate:     summary.PassRate,
		Attempts:     make([]attemptView, 0, len(summary.Attempts)),
	}
	for _, a := range summary.Attempts {
		resp.Attempts = append(resp.Attempts, attemptView{AttemptRecord: a, Band: app.Band(a.Score)})
	}
	writeJSON(w, http.StatusOK, resp)
}
