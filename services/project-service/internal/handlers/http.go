package handlers

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/avasilev/freelancedesk/services/project-service/internal/projects"
	"github.com/google/uuid"
)

type Handler struct {
	repo *projects.Repository
}

func New(repo *projects.Repository) *Handler {
	return &Handler{repo: repo}
}

func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("POST /projects", h.Create)
	mux.HandleFunc("GET /projects/{id}", h.Get)
	mux.HandleFunc("PATCH /projects/{id}", h.Update)
	mux.HandleFunc("DELETE /projects/{id}", h.Delete)
	mux.HandleFunc("POST /projects/{id}/members", h.AddMember)
	mux.HandleFunc("DELETE /projects/{id}/members/{userId}", h.RemoveMember)
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Title   string `json:"title"`
		OwnerID string `json:"owner_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json body", http.StatusBadRequest)
		return
	}
	req.Title = strings.TrimSpace(req.Title)
	if req.Title == "" {
		http.Error(w, "title is required", http.StatusBadRequest)
		return
	}
	if _, err := uuid.Parse(req.OwnerID); err != nil {
		http.Error(w, "owner_id must be a uuid", http.StatusBadRequest)
		return
	}

	p, err := h.repo.Create(r.Context(), projects.Project{Title: req.Title, OwnerID: req.OwnerID})
	if err != nil {
		http.Error(w, "failed to create project", http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusCreated)
	writeProject(w, p)
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	p, found, err := h.repo.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		http.Error(w, "failed to load project", http.StatusInternalServerError)
		return
	}
	if !found {
		http.Error(w, "project not found", http.StatusNotFound)
		return
	}
	writeProject(w, p)
}

func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Title  string `json:"title"`
		Status string `json:"status"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json body", http.StatusBadRequest)
		return
	}

	p, found, err := h.repo.Update(r.Context(), r.PathValue("id"), strings.TrimSpace(req.Title), strings.TrimSpace(req.Status))
	if err != nil {
		http.Error(w, "failed to update project", http.StatusInternalServerError)
		return
	}
	if !found {
		http.Error(w, "project not found", http.StatusNotFound)
		return
	}
	writeProject(w, p)
}

func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	deleted, err := h.repo.Delete(r.Context(), r.PathValue("id"))
	if err != nil {
		http.Error(w, "failed to delete project", http.StatusInternalServerError)
		return
	}
	if !deleted {
		http.Error(w, "project not found", http.StatusNotFound)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) AddMember(w http.ResponseWriter, r *http.Request) {
	var req struct {
		UserID string `json:"user_id"`
		Role   string `json:"role"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json body", http.StatusBadRequest)
		return
	}
	if _, err := uuid.Parse(req.UserID); err != nil {
		http.Error(w, "user_id must be a uuid", http.StatusBadRequest)
		return
	}

	m := projects.Member{ProjectID: r.PathValue("id"), UserID: req.UserID, Role: strings.TrimSpace(req.Role)}
	if err := h.repo.AddMember(r.Context(), m); err != nil {
		http.Error(w, "failed to add member", http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) RemoveMember(w http.ResponseWriter, r *http.Request) {
	removed, err := h.repo.RemoveMember(r.Context(), r.PathValue("id"), r.PathValue("userId"))
	if err != nil {
		http.Error(w, "failed to remove member", http.StatusInternalServerError)
		return
	}
	if !removed {
		http.Error(w, "member not found", http.StatusNotFound)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func writeProject(w http.ResponseWriter, p projects.Project) {
	_ = json.NewEncoder(w).Encode(map[string]any{
		"id":         p.ID,
		"title":      p.Title,
		"owner_id":   p.OwnerID,
		"status":     p.Status,
		"created_at": p.CreatedAt,
		"updated_at": p.UpdatedAt,
	})
}
