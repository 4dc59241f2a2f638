package handlers

import (
	"net/http"

	"playmind-backend/internal/models"
	"playmind-backend/internal/repository"
)

type GameHandler struct {
	gameRepo *repository.GameRepo
}

func NewGameHandler(gameRepo *repository.GameRepo) *GameHandler {
	return &GameHandler{gameRepo: gameRepo}
}

// List returns the active game catalog.
func (h *GameHandler) List(w http.ResponseWriter, r *http.Request) {
	games, err := h.gameRepo.ListActive(r.Context())
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, errorResp("INTERNAL_ERROR", "Failed to list games", r))
		return
	}

	if games == nil {
		games = []*models.Game{}
	}
	writeJSON(w, http.StatusOK, games)
}
