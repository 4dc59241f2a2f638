package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"

	"playmind-backend/internal/middleware"
	"playmind-backend/internal/models"
	"playmind-backend/internal/repository"
)

type ResultHandler struct {
	resultRepo *repository.ResultRepo
	childRepo  *repository.ChildRepo
	gameRepo   *repository.GameRepo
}

func NewResultHandler(resultRepo *repository.ResultRepo, childRepo *repository.ChildRepo, gameRepo *repository.GameRepo) *ResultHandler {
	return &ResultHandler{resultRepo: resultRepo, childRepo: childRepo, gameRepo: gameRepo}
}

// Submit ingests one finished play session's finalized outcome. Results are
// append-only: a session id can be submitted once.
func (h *ResultHandler) Submit(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		writeJSON(w, http.StatusUnauthorized, errorResp("UNAUTHORIZED", "Not authenticated", r))
		return
	}

	var req models.SubmitResultRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid request body", r))
		return
	}

	fieldErrors := make(map[string]string)

	sessionID, err := uuid.Parse(req.SessionID)
	if err != nil {
		fieldErrors["session_id"] = "Must be a valid UUID"
	}
	childID, err := uuid.Parse(req.ChildID)
	if err != nil {
		fieldErrors["child_id"] = "Must be a valid UUID"
	}
	if req.RoundCount < 0 || req.SuccessCount < 0 || req.WrongCount < 0 || req.ReactionMsSum < 0 {
		fieldErrors["counts"] = "Counts must not be negative"
	}
	if len(fieldErrors) > 0 {
		writeJSON(w, http.StatusBadRequest, errorRespWithFields("VALIDATION_ERROR", "Validation failed", fieldErrors, r))
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

	game, err := h.gameRepo.GetByCode(r.Context(), models.GameCode(req.GameCode))
	if err != nil {
		writeJSON(w, http.StatusNotFound, errorResp("NOT_FOUND", "Unknown game code", r))
		return
	}
	if req.RoundCount > game.MaxRound {
		writeJSON(w, http.StatusBadRequest, errorRespWithFields("VALIDATION_ERROR", "Validation failed",
			map[string]string{"round_count": "Exceeds the game's maximum round"}, r))
		return
	}

	result := &models.GameResult{
		SessionID:     sessionID,
		ChildID:       childID,
		GameID:        game.ID,
		RoundCount:    req.RoundCount,
		SuccessCount:  req.SuccessCount,
		WrongCount:    req.WrongCount,
		ReactionMsSum: req.ReactionMsSum,
		MetaJSON:      req.Meta,
	}

	if err := h.resultRepo.Create(r.Context(), result); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			writeJSON(w, http.StatusConflict, errorResp("CONFLICT", "Result for this session already submitted", r))
			return
		}
		writeJSON(w, http.StatusInternalServerError, errorResp("INTERNAL_ERROR", "Failed to store result", r))
		return
	}

	writeJSON(w, http.StatusCreated, result)
}
