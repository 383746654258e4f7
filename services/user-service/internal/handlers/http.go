package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/avasilev/freelancedesk/services/user-service/internal/users"
	"github.com/jackc/pgx/v5/pgconn"
)

type Handler struct {
	repo *users.Repository
}

func New(repo *users.Repository) *Handler {
	return &Handler{repo: repo}
}

func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("POST /users", h.Create)
	mux.HandleFunc("GET /users/{id}", h.Get)
	mux.HandleFunc("PATCH /users/{id}", h.Update)
	mux.HandleFunc("DELETE /users/{id}", h.Delete)
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var req struct {
		DisplayName string `json:"display_name"`
		Email       string `json:"email"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json body", http.StatusBadRequest)
		return
	}
	req.DisplayName = strings.TrimSpace(req.DisplayName)
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if req.DisplayName == "" || req.Email == "" {
		http.Error(w, "display_name and email are required", http.StatusBadRequest)
		return
	}

	u, err := h.repo.Create(r.Context(), users.User{DisplayName: req.DisplayName, Email: req.Email})
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			http.Error(w, "email already registered", http.StatusConflict)
			return
		}
		http.Error(w, "failed to create user", http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusCreated)
	writeUser(w, u)
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	u, found, err := h.repo.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		http.Error(w, "failed to load user", http.StatusInternalServerError)
		return
	}
	if !found {
		http.Error(w, "user not found", http.StatusNotFound)
		return
	}
	writeUser(w, u)
}

func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	var req struct {
		DisplayName string `json:"display_name"`
		Email       string `json:"email"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json body", http.StatusBadRequest)
		return
	}

	u, found, err := h.repo.Update(r.Context(), r.PathValue("id"),
		strings.TrimSpace(req.DisplayName), strings.ToLower(strings.TrimSpace(req.Email)))
	if err != nil {
		http.Error(w, "failed to update user", http.StatusInternalServerError)
		return
	}
	if !found {
		http.Error(w, "user not found", http.StatusNotFound)
		return
	}
	writeUser(w, u)
}

func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	deleted, err := h.repo.Delete(r.Context(), r.PathValue("id"))
	if err != nil {
		http.Error(w, "failed to delete user", http.StatusInternalServerError)
		return
	}
	if !deleted {
		http.Error(w, "user not found", http.StatusNotFound)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func writeUser(w http.ResponseWriter, u users.User) {
	_ = json.NewEncoder(w).Encode(map[string]any{
		"id":           u.ID,
		"display_name": u.DisplayName,
		"email":        u.Email,
		"created_at":   u.CreatedAt,
		"updated_at":   u.UpdatedAt,
	})
}
