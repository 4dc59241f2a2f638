package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

type ReportStatus string

const (
	ReportStatusNoGamesPlayed ReportStatus = "no_games_played"
	ReportStatusNoUpToDate    ReportStatus = "no_up_to_date" // reserved, never assigned
	ReportStatusPending       ReportStatus = "pending"       // reserved, never assigned
	ReportStatusGenerating    ReportStatus = "generating"
	ReportStatusCompleted     ReportStatus = "completed"
	ReportStatusError         ReportStatus = "error"
)

// Description returns the human-readable status text exposed by the status
// endpoint.
func (s ReportStatus) Description() string {
	switch s {
	case ReportStatusNoGamesPlayed:
		return "No games played yet"
	case ReportStatusNoUpToDate:
		return "Report is out of date"
	case ReportStatusPending:
		return "Report is pending"
	case ReportStatusGenerating:
		return "Report generation in progress"
	case ReportStatusCompleted:
		return "Report is ready"
	case ReportStatusError:
		return "Report generation failed"
	default:
		return "Unknown status"
	}
}

// Report is the per-(guardian, child) composite. At most one row exists per
// pair; it is created lazily on the first status check and never deleted here.
type Report struct {
	ID                 uuid.UUID    `json:"id"`
	UserID             uuid.UUID    `json:"user_id"`
	ChildID            uuid.UUID    `json:"child_id"`
	ConcentrationScore int          `json:"concentration_score"`
	Status             ReportStatus `json:"status"`
	CreatedAt          time.Time    `json:"created_at"`
	UpdatedAt          time.Time    `json:"updated_at"`
}

// GameReport is the materialized statistics summary for one (report, game)
// pair. Counters are a deterministic fold over exactly the results that
// existed at the last successful aggregation; LastReflectedSessionID marks
// that point.
type GameReport struct {
	ID                     uuid.UUID       `json:"id"`
	ReportID               uuid.UUID       `json:"report_id"`
	GameID                 uuid.UUID       `json:"game_id"`
	TotalPlaysCount        int             `json:"total_plays_count"`
	TotalPlayRoundsCount   int             `json:"total_play_rounds_count"`
	MaxRoundsCount         int             `json:"max_rounds_count"`
	TotalReactionMsSum     int             `json:"total_reaction_ms_sum"`
	TotalPlayActionsCount  int             `json:"total_play_actions_count"`
	TotalSuccessCount      int             `json:"total_success_count"`
	TotalWrongCount        int             `json:"total_wrong_count"`
	LastReflectedSessionID *uuid.UUID      `json:"last_reflected_session_id"`
	MetaJSON               json.RawMessage `json:"meta"`
	CreatedAt              time.Time       `json:"created_at"`
	UpdatedAt              time.Time       `json:"updated_at"`
}

// AvgReactionMs is the mean reaction time per scored action, nil when the
// report has no actions.
func (gr *GameReport) AvgReactionMs() *float64 {
	if gr.TotalPlayActionsCount == 0 {
		return nil
	}
	v := float64(gr.TotalReactionMsSum) / float64(gr.TotalPlayActionsCount)
	return &v
}

// WrongRate is the wrong-action percentage, nil when the report has no
// actions.
func (gr *GameReport) WrongRate() *float64 {
	if gr.TotalPlayActionsCount == 0 {
		return nil
	}
	v := float64(gr.TotalWrongCount) / float64(gr.TotalPlayActionsCount) * 100
	return &v
}

// AvgRoundsCount is the mean round reached per play, nil when the report has
// no plays.
func (gr *GameReport) AvgRoundsCount() *float64 {
	if gr.TotalPlaysCount == 0 {
		return nil
	}
	v := float64(gr.TotalPlayRoundsCount) / float64(gr.TotalPlaysCount)
	return &v
}

// Advice is one generated guidance entry for a game report. A failed
// generation attempt is stored as a single entry with ErrorMessage set so the
// UI always has something to show.
type Advice struct {
	ID           uuid.UUID `json:"id"`
	GameReportID uuid.UUID `json:"game_report_id"`
	Title        string    `json:"title"`
	Description  string    `json:"description"`
	ErrorMessage *string   `json:"error_message,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}

// AdviceItem is what a generator returns before persistence.
type AdviceItem struct {
	Title       string `json:"title"`
	Description string `json:"description"`
}

type ReportStatusResponse struct {
	Status      ReportStatus `json:"status"`
	Description string       `json:"description"`
}

type GameReportDetail struct {
	Game       *Game       `json:"game"`
	GameReport *GameReport `json:"game_report"`
	Advices    []*Advice   `json:"advices"`
}

type ReportDetail struct {
	Report      *Report             `json:"report"`
	GameReports []*GameReportDetail `json:"game_reports"`
}
