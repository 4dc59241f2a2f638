package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"playmind-backend/internal/middleware"
	"playmind-backend/internal/models"
	"playmind-backend/internal/repository"
)

type ChildHandler struct {
	childRepo *repository.ChildRepo
}

func NewChildHandler(childRepo *repository.ChildRepo) *ChildHandler {
	return &ChildHandler{childRepo: childRepo}
}

func (h *ChildHandler) Create(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		writeJSON(w, http.StatusUnauthorized, errorResp("UNAUTHORIZED", "Not authenticated", r))
		return
	}

	var req models.CreateChildRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid request body", r))
		return
	}

	fields := make(map[string]string)
	if req.Name == "" {
		fields["name"] = "Name is required"
	}
	if req.BirthDate == nil || *req.BirthDate == "" {
		fields["birth_date"] = "Birth date is required"
	}
	if len(fields) > 0 {
		writeJSON(w, http.StatusBadRequest, errorRespWithFields("VALIDATION_ERROR", "Validation failed", fields, r))
		return
	}

	birthDate, err := time.Parse("2006-01-02", *req.BirthDate)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorRespWithFields("VALIDATION_ERROR", "Validation failed",
			map[string]string{"birth_date": "Must be YYYY-MM-DD"}, r))
		return
	}

	child := &models.Child{
		UserID:    userID,
		Name:      req.Name,
		Gender:    req.Gender,
		BirthDate: &birthDate,
	}

	if err := h.childRepo.Create(r.Context(), child); err != nil {
		writeJSON(w, http.StatusInternalServerError, errorResp("INTERNAL_ERROR", "Failed to create child", r))
		return
	}

	writeJSON(w, http.StatusCreated, child)
}

func (h *ChildHandler) List(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		writeJSON(w, http.StatusUnauthorized, errorResp("UNAUTHORIZED", "Not authenticated", r))
		return
	}

	children, err := h.childRepo.ListByUser(r.Context(), userID)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, errorResp("INTERNAL_ERROR", "Failed to list children", r))
		return
	}

	if children == nil {
		children = []*models.Child{}
	}
	writeJSON(w, http.StatusOK, children)
}

func (h *ChildHandler) Get(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		writeJSON(w, http.StatusUnauthorized, errorResp("UNAUTHORIZED", "Not authenticated", r))
		return
	}

	childID, err := uuid.Parse(chi.URLParam(r, "childID"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid child ID", r))
		return
	}

	child, err := h.childRepo.GetByID(r.Context(), childID)
	if err != nil {
		writeJSON(w, http.StatusNotFound, errorResp("NOT_FOUND", "Child not found", r))
		return
	}

	if child.UserID != userID {
		writeJSON(w, http.StatusForbidden, errorResp("FORBIDDEN", "Not your child profile", r))
		return
	}

	writeJSON(w, http.StatusOK, child)
}
