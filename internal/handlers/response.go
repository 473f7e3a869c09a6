package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/shaibs3/careportal/internal/apperror"
	"go.uber.org/zap"
)

type errorBody struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeMessage(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"message": message})
}

// writeError maps err onto a status and a JSON body. Internal causes are
// logged, never sent.
func writeError(w http.ResponseWriter, logger *zap.Logger, r *http.Request, err error) {
	appErr := apperror.From(err)
	if appErr.Kind == apperror.KindInternal {
		logger.Error("request failed",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Error(err))
	}
	writeJSON(w, appErr.HTTPStatus, errorBody{Error: appErr.Message, Code: appErr.Code})
}

func badRequest(w http.ResponseWriter, message string) {
	writeJSON(w, http.StatusBadRequest, errorBody{Error: message})
}

func decodeJSON(r *http.Request, dst interface{}) error {
	dec := json.NewDecoder(r.Body)
	return dec.Decode(dst)
}
