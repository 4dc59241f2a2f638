package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// GameCode identifies a mini-game family. Statistics vocabulary and advice
// prompts are dispatched on this code, never on free-form strings.
type GameCode string

const (
	GameCodeKidsTraffic GameCode = "KIDS_TRAFFIC" // Go/No-Go reaction inhibition
	GameCodeBBStar      GameCode = "BB_STAR"      // sequence memory
)

type Game struct {
	ID              uuid.UUID `json:"id"`
	Code            GameCode  `json:"code"`
	Name            string    `json:"name"`
	MaxRound        int       `json:"max_round"`
	ActionsPerRound int       `json:"actions_per_round"`
	IsActive        bool      `json:"is_active"`
	CreatedAt       time.Time `json:"created_at"`
}

// GameResult is one finished play session's finalized outcome. The table is
// append-only: results are written once at session end and never updated, so
// report counters can be refolded from them at any time.
type GameResult struct {
	ID            uuid.UUID       `json:"id"`
	SessionID     uuid.UUID       `json:"session_id"`
	ChildID       uuid.UUID       `json:"child_id"`
	GameID        uuid.UUID       `json:"game_id"`
	RoundCount    int             `json:"round_count"`
	SuccessCount  int             `json:"success_count"`
	WrongCount    int             `json:"wrong_count"`
	ReactionMsSum int             `json:"reaction_ms_sum"`
	MetaJSON      json.RawMessage `json:"meta"`
	CreatedAt     time.Time       `json:"created_at"`
}

// SuccessRate is the per-session success percentage, 0 when the session had
// no scored actions.
func (r *GameResult) SuccessRate() float64 {
	actions := r.SuccessCount + r.WrongCount
	if actions == 0 {
		return 0
	}
	return float64(r.SuccessCount) / float64(actions) * 100
}

// ResultCounters is one SQL pass over a child's results for a game.
type ResultCounters struct {
	PlaysCount    int
	RoundsSum     int
	MaxRoundPlays int
	ReactionMsSum int
	SuccessSum    int
	WrongSum      int
}

type SubmitResultRequest struct {
	SessionID     string          `json:"session_id"`
	ChildID       string          `json:"child_id"`
	GameCode      string          `json:"game_code"`
	RoundCount    int             `json:"round_count"`
	SuccessCount  int             `json:"success_count"`
	WrongCount    int             `json:"wrong_count"`
	ReactionMsSum int             `json:"reaction_ms_sum"`
	Meta          json.RawMessage `json:"meta"`
}
