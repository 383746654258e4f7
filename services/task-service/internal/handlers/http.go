package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/avasilev/freelancedesk/services/task-service/internal/tasks"
	"github.com/google/uuid"
)

type Handler struct {
	repo *tasks.Repository
}

func New(repo *tasks.Repository) *Handler {
	return &Handler{repo: repo}
}

func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("POST /tasks", h.Create)
	mux.HandleFunc("GET /tasks/{id}", h.Get)
	mux.HandleFunc("POST /tasks/{id}/complete", h.Complete)
	mux.HandleFunc("DELETE /tasks/{id}", h.Delete)
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ProjectID  string `json:"project_id"`
		Title      string `json:"title"`
		AssigneeID string `json:"assignee_id"`
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
	if _, err := uuid.Parse(req.ProjectID); err != nil {
		http.Error(w, "project_id must be a uuid", http.StatusBadRequest)
		return
	}
	if req.AssigneeID != "" {
		if _, err := uuid.Parse(req.AssigneeID); err != nil {
			http.Error(w, "assignee_id must be a uuid", http.StatusBadRequest)
			return
		}
	}

	t, err := h.repo.Create(r.Context(), tasks.Task{
		ProjectID:  req.ProjectID,
		Title:      req.Title,
		AssigneeID: req.AssigneeID,
	})
	if err != nil {
		if errors.Is(err, tasks.ErrUnknownProject) {
			http.Error(w, "unknown project", http.StatusUnprocessableEntity)
			return
		}
		http.Error(w, "failed to create task", http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusCreated)
	writeTask(w, t)
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	t, found, err := h.repo.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		http.Error(w, "failed to load task", http.StatusInternalServerError)
		return
	}
	if !found {
		http.Error(w, "task not found", http.StatusNotFound)
		return
	}
	writeTask(w, t)
}

func (h *Handler) Complete(w http.ResponseWriter, r *http.Request) {
	t, found, err := h.repo.Complete(r.Context(), r.PathValue("id"))
	if err != nil {
		http.Error(w, "failed to complete task", http.StatusInternalServerError)
		return
	}
	if !found {
		http.Error(w, "task not found", http.StatusNotFound)
		return
	}
	writeTask(w, t)
}

func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	deleted, err := h.repo.Delete(r.Context(), r.PathValue("id"))
	if err != nil {
		http.Error(w, "failed to delete task", http.StatusInternalServerError)
		return
	}
	if !deleted {
		http.Error(w, "task not found", http.StatusNotFound)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func writeTask(w http.ResponseWriter, t tasks.Task) {
	_ = json.NewEncoder(w).Encode(map[string]any{
		"id":          t.ID,
		"project_id":  t.ProjectID,
		"title":       t.Title,
		"assignee_id": t.AssigneeID,
		"status":      t.Status,
		"created_at":  t.CreatedAt,
		"updated_at":  t.UpdatedAt,
	})
}
