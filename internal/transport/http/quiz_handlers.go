package http

import (
	"errors"
	"net/http"

	"clinical-quiz-service/internal/app"
	"clinical-quiz-service/internal/domain"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// QuizHandler exposes the quiz session over REST.
type QuizHandler struct {
	service *app.QuizService
	log     *zap.Logger
}

func NewQuizHandler(service *app.QuizService, log *zap.Logger) *QuizHandler {
	return &QuizHandler{service: service, log: log}
}

type selectRequest struct {
	QuestionID  int  `json:"questionId"`
	OptionIndex *int `json:"optionIndex"`
}

func (h *QuizHandler) Start(w http.ResponseWriter, r *http.Request) {
	user, _ := UserFromContext(r.Context())
	state, err := h.service.Start(r.Context(), user.ID, chi.URLParam(r, "caseID"))
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusCreated, state)
}

func (h *QuizHandler) State(w http.ResponseWriter, r *http.Request) {
	user, _ := UserFromContext(r.Context())
	state, err := h.service.State(r.Context(), chi.URLParam(r, "sessionID"), user.ID)
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, state)
}

func (h *QuizHandler) Select(w http.ResponseWriter, r *http.Request) {
	var req selectRequest
	if err := decodeJSON(w, r, &req); err != nil || req.OptionIndex == nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "questionId and optionIndex are required"})
		return
	}
	user, _ := UserFromContext(r.Context())
	state, err := h.service.SelectAnswer(r.Context(), chi.URLParam(r, "sessionID"), user.ID, req.QuestionID, *req.OptionIndex)
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, state)
}

func (h *QuizHandler) Next(w http.ResponseWriter, r *http.Request) {
	user, _ := UserFromContext(r.Context())
	state, err := h.service.Next(r.Context(), chi.URLParam(r, "sessionID"), user.ID)
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, state)
}

func (h *QuizHandler) Previous(w http.ResponseWriter, r *http.Request) {
	user, _ := UserFromContext(r.Context())
	state, err := h.service.Previous(r.Context(), chi.URLParam(r, "sessionID"), user.ID)
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, state)
}

func (h *QuizHandler) Finish(w http.ResponseWriter, r *http.Request) {
	user, _ := UserFromContext(r.Context())
	outcome, err := h.service.Finish(r.Context(), chi.URLParam(r, "sessionID"), user.ID)
	if errors.Is(err, domain.ErrQuizFinished) {
		// the first result is still the answer
		writeJSON(w, http.StatusConflict, outcome)
		return
	}
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, outcome)
}

func (h *QuizHandler) Abandon(w http.ResponseWriter, r *http.Request) {
	user, _ := UserFromContext(r.Context())
	if err := h.service.Abandon(r.Context(), chi.URLParam(r, "sessionID"), user.ID); err != nil {
		writeError(w, h.log, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
