package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/redis/go-redis/v9"
	"golang.org/x/crypto/bcrypt"

	"playmind-backend/internal/middleware"
	"playmind-backend/internal/models"
	"playmind-backend/internal/repository"
	"playmind-backend/internal/services"
)

// pinGrantTTL is how long a verified report PIN unlocks report reads.
const pinGrantTTL = 15 * time.Minute

type ReportHandler struct {
	reportRepo *repository.ReportRepo
	grRepo     *repository.GameReportRepo
	adviceRepo *repository.AdviceRepo
	gameRepo   *repository.GameRepo
	childRepo  *repository.ChildRepo
	pinRepo    *repository.PinRepo
	status     *services.StatusService
	queue      *services.JobQueue
	redis      *redis.Client
}

func NewReportHandler(
	reportRepo *repository.ReportRepo,
	grRepo *repository.GameReportRepo,
	adviceRepo *repository.AdviceRepo,
	gameRepo *repository.GameRepo,
	childRepo *repository.ChildRepo,
	pinRepo *repository.PinRepo,
	status *services.StatusService,
	queue *services.JobQueue,
	redisClient *redis.Client,
) *ReportHandler {
	return &ReportHandler{
		reportRepo: reportRepo,
		grRepo:     grRepo,
		adviceRepo: adviceRepo,
		gameRepo:   gameRepo,
		childRepo:  childRepo,
		pinRepo:    pinRepo,
		status:     status,
		queue:      queue,
		redis:      redisClient,
	}
}

// Status is the trigger boundary: every poll runs the state machine, which
// lazily creates the report and enqueues generation when it is stale. Safe to
// call repeatedly and concurrently.
func (h *ReportHandler) Status(w http.ResponseWriter, r *http.Request) {
	userID, child, ok := h.authorizeChild(w, r)
	if !ok {
		return
	}

	report, _, err := h.reportRepo.GetOrCreate(r.Context(), userID, child.ID)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, errorResp("INTERNAL_ERROR", "Failed to load report", r))
		return
	}

	status, err := h.status.CheckAndMaybeGenerate(r.Context(), report.ID)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, errorResp("INTERNAL_ERROR", "Failed to check report status", r))
		return
	}

	writeJSON(w, http.StatusOK, models.ReportStatusResponse{
		Status:      status,
		Description: status.Description(),
	})
}

// Detail returns the composite report: score plus per-game statistics and
// advice. Gated by the guardian's report PIN when one is set.
func (h *ReportHandler) Detail(w http.ResponseWriter, r *http.Request) {
	userID, child, ok := h.authorizeChild(w, r)
	if !ok {
		return
	}

	if !h.pinSatisfied(r, userID) {
		writeJSON(w, http.StatusForbidden, errorResp("PIN_REQUIRED", "Verify your report PIN first", r))
		return
	}

	report, err := h.reportRepo.GetByUserAndChild(r.Context(), userID, child.ID)
	if err != nil {
		writeJSON(w, http.StatusNotFound, errorResp("NOT_FOUND", "Report not generated yet", r))
		return
	}

	gameReports, err := h.grRepo.ListByReport(r.Context(), report.ID)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, errorResp("INTERNAL_ERROR", "Failed to load game reports", r))
		return
	}

	detail := models.ReportDetail{
		Report:      report,
		GameReports: []*models.GameReportDetail{},
	}
	for _, gr := range gameReports {
		game, err := h.gameRepo.GetByID(r.Context(), gr.GameID)
		if err != nil {
			writeJSON(w, http.StatusInternalServerError, errorResp("INTERNAL_ERROR", "Failed to load game", r))
			return
		}
		advices, err := h.adviceRepo.ListByGameReport(r.Context(), gr.ID)
		if err != nil {
			writeJSON(w, http.StatusInternalServerError, errorResp("INTERNAL_ERROR", "Failed to load advice", r))
			return
		}
		if advices == nil {
			advices = []*models.Advice{}
		}
		detail.GameReports = append(detail.GameReports, &models.GameReportDetail{
			Game:       game,
			GameReport: gr,
			Advices:    advices,
		})
	}

	writeJSON(w, http.StatusOK, detail)
}

// RequestEmail enqueues a background job that mails the report summary to the
// guardian.
func (h *ReportHandler) RequestEmail(w http.ResponseWriter, r *http.Request) {
	userID, child, ok := h.authorizeChild(w, r)
	if !ok {
		return
	}

	report, err := h.reportRepo.GetByUserAndChild(r.Context(), userID, child.ID)
	if err != nil {
		writeJSON(w, http.StatusNotFound, errorResp("NOT_FOUND", "Report not generated yet", r))
		return
	}

	if report.Status != models.ReportStatusCompleted {
		writeJSON(w, http.StatusConflict, errorResp("CONFLICT", "Report is not ready to be emailed", r))
		return
	}

	job, err := h.queue.EnqueueReportEmail(r.Context(), userID, report.ID)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, errorResp("INTERNAL_ERROR", "Failed to enqueue report email", r))
		return
	}

	writeJSON(w, http.StatusAccepted, map[string]interface{}{
		"job_id":  job.ID,
		"message": "Report email queued",
	})
}

func (h *ReportHandler) SetPin(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		writeJSON(w, http.StatusUnauthorized, errorResp("UNAUTHORIZED", "Not authenticated", r))
		return
	}

	var req struct {
		Pin string `json:"pin"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid request body", r))
		return
	}

	if len(req.Pin) < 4 || len(req.Pin) > 6 || !allDigits(req.Pin) {
		writeJSON(w, http.StatusBadRequest, errorRespWithFields("VALIDATION_ERROR", "Validation failed",
			map[string]string{"pin": "PIN must be 4 to 6 digits"}, r))
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Pin), 12)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, errorResp("INTERNAL_ERROR", "Failed to set PIN", r))
		return
	}

	if err := h.pinRepo.Upsert(r.Context(), userID, string(hash)); err != nil {
		writeJSON(w, http.StatusInternalServerError, errorResp("INTERNAL_ERROR", "Failed to set PIN", r))
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"message": "Report PIN set"})
}

func (h *ReportHandler) VerifyPin(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		writeJSON(w, http.StatusUnauthorized, errorResp("UNAUTHORIZED", "Not authenticated", r))
		return
	}

	var req struct {
		Pin string `json:"pin"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid request body", r))
		return
	}

	pin, err := h.pinRepo.GetByUser(r.Context(), userID)
	if err != nil {
		writeJSON(w, http.StatusNotFound, errorResp("NOT_FOUND", "No report PIN set", r))
		return
	}

	if err := bcrypt.CompareHashAndPassword([]byte(pin.PinHash), []byte(req.Pin)); err != nil {
		writeJSON(w, http.StatusUnauthorized, errorResp("UNAUTHORIZED", "Incorrect PIN", r))
		return
	}

	if err := h.redis.Set(r.Context(), "report_pin_ok:"+userID.String(), "1", pinGrantTTL).Err(); err != nil {
		writeJSON(w, http.StatusInternalServerError, errorResp("INTERNAL_ERROR", "Failed to record PIN verification", r))
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"message": "PIN verified"})
}

// pinSatisfied is true when the guardian has no PIN configured, or has
// verified it recently.
func (h *ReportHandler) pinSatisfied(r *http.Request, userID uuid.UUID) bool {
	_, err := h.pinRepo.GetByUser(r.Context(), userID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return true
		}
		return false
	}

	exists, err := h.redis.Exists(r.Context(), "report_pin_ok:"+userID.String()).Result()
	return err == nil && exists > 0
}

// authorizeChild resolves the childID URL param and checks ownership.
func (h *ReportHandler) authorizeChild(w http.ResponseWriter, r *http.Request) (uuid.UUID, *models.Child, bool) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		writeJSON(w, http.StatusUnauthorized, errorResp("UNAUTHORIZED", "Not authenticated", r))
		return uuid.Nil, nil, false
	}

	childID, err := uuid.Parse(chi.URLParam(r, "childID"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid child ID", r))
		return uuid.Nil, nil, false
	}

	child, err := h.childRepo.GetByID(r.Context(), childID)
	if err != nil {
		writeJSON(w, http.StatusNotFound, errorResp("NOT_FOUND", "Child not found", r))
		return uuid.Nil, nil, false
	}
	if child.UserID != userID {
		writeJSON(w, http.StatusForbidden, errorResp("FORBIDDEN", "Not your child profile", r))
		return uuid.Nil, nil, false
	}

	return userID, child, true
}

func allDigits(s string) bool {
	for _, ch := range s {
		if ch < '0' || ch > '9' {
			return false
		}
	}
	return true
}
