// Package birthdays serves the birthday tracker: list, add and delete.
package birthdays

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"finance-sim/internal/logger"
	"finance-sim/internal/model"
)

// Store persists birthdays.
type Store interface {
	List(ctx context.Context) ([]model.Birthday, error)
	Add(ctx context.Context, b model.Birthday) (int64, error)
	Delete(ctx context.Context, id int64) error
}

// Handler serves /api/birthdays.
type Handler struct {
	store Store
	log   *slog.Logger
	mux   *http.ServeMux
}

func NewHandler(store Store, log *slog.Logger) *Handler {
	if log == nil {
		log = slog.Default()
	}
	h := &Handler{store: store, log: log.With("component", "birthdays"), mux: http.NewServeMux()}
	h.mux.HandleFunc("GET /api/birthdays", h.list)
	h.mux.HandleFunc("POST /api/birthdays", h.add)
	h.mux.HandleFunc("DELETE /api/birthdays/{id}", h.remove)
	return h
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Cache-Control", "no-cache, no-store, must-revalidate")
	w.Header().Set("Expires", "0")
	w.Header().Set("Pragma", "no-cache")

	id := r.Header.Get("X-Request-ID")
	if id == "" {
		id = logger.NewRequestID()
	}
	w.Header().Set("X-Request-ID", id)
	h.mux.ServeHTTP(w, r.WithContext(logger.WithRequestID(r.Context(), id)))
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	rows, err := h.store.List(r.Context())
	if err != nil {
		h.internal(w, r, err)
		return
	}
	if rows == nil {
		rows = []model.Birthday{}
	}
	writeJSON(w, http.StatusOK, rows)
}

func (h *Handler) add(w http.ResponseWriter, r *http.Request) {
	b, msg := parseBirthday(r)
	if msg != "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": msg, "code": string(model.KindMissingInput)})
		return
	}
	id, err := h.store.Add(r.Context(), b)
	if err != nil {
		h.internal(w, r, err)
		return
	}
	b.ID = id
	writeJSON(w, http.StatusCreated, b)
}

func (h *Handler) remove(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid id", "code": string(model.KindMissingInput)})
		return
	}
	err = h.store.Delete(r.Context(), id)
	if errors.Is(err, model.ErrBirthdayNotFound) {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": err.Error(), "code": "not_found"})
		return
	}
	if err != nil {
		h.internal(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// parseBirthday reads name, month and day from the form. It returns a
// user-facing message when any is missing or out of range.
func parseBirthday(r *http.Request) (model.Birthday, string) {
	name := strings.TrimSpace(r.FormValue("name"))
	if name == "" {
		return model.Birthday{}, "missing name"
	}
	month, err := strconv.Atoi(strings.TrimSpace(r.FormValue("month")))
	if err != nil || month < 1 || month > 12 {
		return model.Birthday{}, "month must be 1-12"
	}
	day, err := strconv.Atoi(strings.TrimSpace(r.FormValue("day")))
	if err != nil || day < 1 || day > 31 {
		return model.Birthday{}, "day must be 1-31"
	}
	return model.Birthday{Name: name, Month: month, Day: day}, ""
}

func (h *Handler) internal(w http.ResponseWriter, r *http.Request, err error) {
	h.log.Error("request failed", append(logger.LogAttrs(r.Context()), "path", r.URL.Path, "error", err)...)
	writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error", "code": "internal"})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
