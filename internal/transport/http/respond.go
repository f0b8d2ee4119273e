package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"clinical-quiz-service/internal/auth"
	"clinical-quiz-service/internal/domain"
	"go.uber.org/zap"
)

type errorResponse struct {
	Error   string `json:"error"`
	Missing []int  `json:"missing,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20))
	dec.DisallowUnknownFields()
	return dec.Decode(dst)
}

// writeError maps domain errors onto status codes. Unexpected errors are
// logged and reported without detail.
func writeError(w http.ResponseWriter, log *zap.Logger, err error) {
	status, body := errorStatus(err)
	if status == http.StatusInternalServerError {
		log.Error("request failed", zap.Error(err))
	}
	writeJSON(w, status, body)
}

func errorStatus(err error) (int, errorResponse) {
	var incomplete *domain.IncompleteQuizError
	switch {
	case errors.As(err, &incomplete):
		return http.StatusUnprocessableEntity, errorResponse{Error: domain.ErrIncompleteQuiz.Error(), Missing: incomplete.Missing}
	case errors.Is(err, domain.ErrNoQuestionsAvailable):
		return http.StatusUnprocessableEntity, errorResponse{Error: err.Error()}
	case errors.Is(err, domain.ErrInvalidAnswerIndex), errors.Is(err, domain.ErrQuestionNotFound):
		return http.StatusBadRequest, errorResponse{Error: err.Error()}
	case errors.Is(err, auth.ErrInvalidEmail), errors.Is(err, auth.ErrWeakPassword):
		return http.StatusBadRequest, errorResponse{Error: err.Error()}
	case errors.Is(err, domain.ErrCaseNotFound), errors.Is(err, domain.ErrSessionNotFound), errors.Is(err, auth.ErrUnknownProvider):
		return http.StatusNotFound, errorResponse{Error: err.Error()}
	case errors.Is(err, domain.ErrQuizFinished), errors.Is(err, domain.ErrEmailTaken):
		return http.StatusConflict, errorResponse{Error: err.Error()}
	case errors.Is(err, domain.ErrAuthFailed):
		return http.StatusUnauthorized, errorResponse{Error: domain.ErrAuthFailed.Error()}
	}
	return http.StatusInternalServerError, errorResponse{Error: "internal error"}
}
