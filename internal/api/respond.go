package api

import (
	"encoding/json"
	"net/http"

	"finance-sim/internal/logger"
	"finance-sim/internal/model"
)

type errorBody struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, msg string) {
	writeJSON(w, status, errorBody{Error: msg, Code: code})
}

// statusFor maps a failure kind to its HTTP status.
func statusFor(kind model.Kind) int {
	switch kind {
	case model.KindQuoteUnavailable:
		return http.StatusServiceUnavailable
	case model.KindUnauthenticated:
		return http.StatusUnauthorized
	default:
		return http.StatusBadRequest
	}
}

// fail renders err. Failures keep their message; anything else is logged
// and reported as a bare 500.
func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	if kind, ok := model.KindOf(err); ok {
		writeError(w, statusFor(kind), string(kind), err.Error())
		return
	}
	s.log.Error("request failed", append(logger.LogAttrs(r.Context()), "path", r.URL.Path, "error", err)...)
	writeError(w, http.StatusInternalServerError, "internal", "internal server error")
}
