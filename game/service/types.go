package service

import (
	"time"

	"github.com/wricardo/ludo-engine/game/engine"
)

// SessionInfo provides information about a game session
type SessionInfo struct {
	ID             string             `json:"id"`
	ConfigName     string             `json:"config_name"`
	Players        []engine.PlayerID  `json:"players"`
	CreatedAt      time.Time          `json:"created_at"`
	LastAccessedAt time.Time          `json:"last_accessed_at"`
	GameState      *engine.GameState  `json:"game_state"`
	GameConfig     *engine.GameConfig `json:"game_config"`
}

// TurnResult contains the result of a single turn
type TurnResult struct {
	Success   bool               `json:"success"`
	Turn      *engine.TurnRecord `json:"turn"`
	GameState *engine.GameState  `json:"game_state"`
	Message   string             `json:"message"`
	Events    []GameEvent        `json:"events,omitempty"`
}

// BatchTurnResult contains the result of a batch of turns
type BatchTurnResult struct {
	// Summary
	TurnsExecuted  int               `json:"turns_executed"`
	RequestedTurns int               `json:"requested_turns"`
	Success        bool              `json:"success"`
	GameState      *engine.GameState `json:"game_state"`
	Events         []GameEvent       `json:"events"`
	StoppedReason  string            `json:"stopped_reason,omitempty"`   // Human-readable reason
	StopReasonCode string            `json:"stop_reason_code,omitempty"` // invalid_turn|game_over|cancelled
	StoppedOnTurn  int               `json:"stopped_on_turn,omitempty"`  // 1-based index of the turn that caused stop
	Truncated      bool              `json:"truncated,omitempty"`
	Limit          int               `json:"limit,omitempty"`

	// Start/end snapshot
	StartPositions []string `json:"start_positions"`
	EndPositions   []string `json:"end_positions"`
	Kicks          int      `json:"kicks"`

	// Per-turn trace (only for this call)
	Turns []engine.TurnRecord `json:"turns,omitempty"`

	// Final status
	GameOver  bool              `json:"game_over"`
	Finishers []engine.PlayerID `json:"finishers,omitempty"`
	Message   string            `json:"message,omitempty"`
}

// Event types
const (
	EventTurn      = "turn"
	EventRelease   = "release"
	EventKick      = "kick"
	EventFinish    = "finish"
	EventCompleted = "completed"
	EventNoMove    = "no_move"
	EventGameOver  = "game_over"
	EventReset     = "reset"
)

// GameEvent represents an event that occurred during gameplay
type GameEvent struct {
	Type      string          `json:"type"`
	Message   string          `json:"message"`
	Timestamp time.Time       `json:"timestamp"`
	Player    engine.PlayerID `json:"player,omitempty"`
	Token     engine.TokenID  `json:"token,omitempty"`
	Space     string          `json:"space,omitempty"`
}

// HistoryOptions configures turn history retrieval
type HistoryOptions struct {
	Page  int    `json:"page"`
	Limit int    `json:"limit"`
	Order string `json:"order"` // "asc" or "desc"
}

// HistoryResponse contains paginated turn history
type HistoryResponse struct {
	Turns       []engine.TurnRecord `json:"turns"`
	TotalTurns  int                 `json:"total_turns"`
	Page        int                 `json:"page"`
	PageSize    int                 `json:"page_size"`
	TotalPages  int                 `json:"total_pages"`
	HasNext     bool                `json:"has_next"`
	HasPrevious bool                `json:"has_previous"`
}

// SpaceNameResult answers a reverse lookup from step count to space
type SpaceNameResult struct {
	Player engine.PlayerID `json:"player"`
	Steps  int             `json:"steps"`
	Space  string          `json:"space"`
}

// ConfigInfo provides information about a game configuration
type ConfigInfo struct {
	Filename    string            `json:"filename"`
	ConfigID    string            `json:"config_id"` // The identifier to use for session creation
	Name        string            `json:"name"`      // Display name
	Description string            `json:"description"`
	Players     []engine.PlayerID `json:"players"`
	KickScan    engine.KickScan   `json:"kick_scan,omitempty"`
}
