package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/wricardo/ludo-engine/game/engine"
)

// gameServiceImpl implements the GameService interface. Each session carries
// its own lock, so turns on different sessions never wait on each other.
type gameServiceImpl struct {
	sessions SessionManager
	configs  ConfigManager
}

// getConfigID returns the config_id for a given config name, used for consistent API responses
func (s *gameServiceImpl) getConfigID(configName string) string {
	availableConfigs, err := s.configs.ListConfigs()
	if err == nil {
		for _, cfg := range availableConfigs {
			if cfg.Name == configName {
				return cfg.ConfigID
			}
		}
	}
	// Fallback: return as-is or "default"
	if configName == "" {
		return "default"
	}
	return configName
}

// NewGameService creates a new game service instance
func NewGameService(sessions SessionManager, configs ConfigManager) GameService {
	return &gameServiceImpl{
		sessions: sessions,
		configs:  configs,
	}
}

// lockSession looks up a session and returns it locked. Callers must Unlock.
func (s *gameServiceImpl) lockSession(sessionID string) (*Session, error) {
	sess, err := s.sessions.Get(sessionID)
	if err != nil {
		return nil, fmt.Errorf("session not found: %w", err)
	}
	sess.Lock()
	return sess, nil
}

// sessionInfo builds a detached view of sess. Callers hold the session lock.
func (s *gameServiceImpl) sessionInfo(sess *Session, configID string) *SessionInfo {
	if configID == "" {
		configID = s.getConfigID(sess.Config.Name)
	}
	return &SessionInfo{
		ID:             sess.ID,
		ConfigName:     configID,
		Players:        sess.Engine.Roster(),
		CreatedAt:      sess.CreatedAt,
		LastAccessedAt: sess.LastAccessedAt,
		GameState:      sess.Engine.Snapshot(),
		GameConfig:     sess.Config,
	}
}

// CreateSession creates a new game session. An empty player list seats the
// config's default roster.
func (s *gameServiceImpl) CreateSession(ctx context.Context, configName string, players []engine.PlayerID) (*SessionInfo, error) {
	// Load configuration
	var config *engine.GameConfig
	var err error
	if configName != "" {
		config, err = s.configs.LoadConfig(configName)
		if err != nil {
			if errors.Is(err, ErrConfigNotFound) {
				availableConfigs, listErr := s.configs.ListConfigs()
				if listErr == nil && len(availableConfigs) > 0 {
					var configIDs []string
					for _, cfg := range availableConfigs {
						configIDs = append(configIDs, cfg.ConfigID)
					}
					return nil, fmt.Errorf("config '%s' not found. Available configs: %v: %w", configName, configIDs, err)
				}
				return nil, fmt.Errorf("config '%s' not found. Use /api/configs to list available configurations: %w", configName, err)
			}
			return nil, fmt.Errorf("failed to load config %s: %w", configName, err)
		}
	} else {
		config = s.configs.GetDefault()
	}

	// Let session manager generate the ID
	session, err := s.sessions.Create("", config, players)
	if err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}

	session.Lock()
	defer session.Unlock()
	return s.sessionInfo(session, configName), nil
}

// GetSession retrieves session information
func (s *gameServiceImpl) GetSession(ctx context.Context, sessionID string) (*SessionInfo, error) {
	session, err := s.lockSession(sessionID)
	if err != nil {
		return nil, err
	}
	defer session.Unlock()

	s.sessions.UpdateLastAccessed(sessionID)

	return s.sessionInfo(session, ""), nil
}

// ListSessions returns all active sessions
func (s *gameServiceImpl) ListSessions(ctx context.Context) ([]*SessionInfo, error) {
	sessions := s.sessions.List()
	result := make([]*SessionInfo, 0, len(sessions))

	for _, sess := range sessions {
		sess.Lock()
		result = append(result, s.sessionInfo(sess, ""))
		sess.Unlock()
	}

	return result, nil
}

// DeleteSession removes a session
func (s *gameServiceImpl) DeleteSession(ctx context.Context, sessionID string) error {
	return s.sessions.Delete(sessionID)
}

// PlayTurn applies a single (player, roll) turn to a session
func (s *gameServiceImpl) PlayTurn(ctx context.Context, sessionID string, turn engine.Turn, reset bool) (*TurnResult, error) {
	sess, err := s.lockSession(sessionID)
	if err != nil {
		return nil, err
	}
	defer sess.Unlock()

	// Update last accessed time
	s.sessions.UpdateLastAccessed(sessionID)

	events := []GameEvent{}

	if reset {
		sess.Engine.Reset()
		events = append(events, resetEvent())
	}

	record, err := sess.Engine.ApplyTurn(turn.Player, turn.Roll)
	if err != nil {
		return nil, fmt.Errorf("turn %s:%d rejected: %w", turn.Player, turn.Roll, err)
	}

	rec := record.Clone()
	state := sess.Engine.Snapshot()
	result := &TurnResult{
		Success:   record.Action != engine.ActionNone,
		Turn:      &rec,
		GameState: state,
		Message:   state.Message,
		Events:    append(events, turnEvents(&rec, state)...),
	}

	// Auto-save session after turn
	if err := s.sessions.Save(sessionID); err != nil {
		fmt.Printf("Warning: Failed to persist session %s after turn: %v\n", sessionID, err)
	}

	return result, nil
}

// PlayTurns applies turns in sequence. It stops at the first rejected turn
// or once every player has completed.
func (s *gameServiceImpl) PlayTurns(ctx context.Context, sessionID string, turns []engine.Turn, reset bool) (*BatchTurnResult, error) {
	sess, err := s.lockSession(sessionID)
	if err != nil {
		return nil, err
	}
	defer sess.Unlock()

	// Update last accessed
	s.sessions.UpdateLastAccessed(sessionID)

	result := &BatchTurnResult{
		RequestedTurns: len(turns),
		Events:         make([]GameEvent, 0),
		Success:        true,
	}

	// Handle reset
	if reset {
		sess.Engine.Reset()
		result.Events = append(result.Events, resetEvent())
	}
	result.StartPositions = sess.Engine.Positions()

	// Limit turns to prevent abuse
	if len(turns) > engine.MaxBatchTurns {
		result.Truncated = true
		result.Limit = engine.MaxBatchTurns
		turns = turns[:engine.MaxBatchTurns]
	}

	for i, turn := range turns {
		if sess.Engine.IsGameOver() {
			result.StoppedReason = "every player has completed"
			result.StopReasonCode = "game_over"
			result.StoppedOnTurn = i + 1
			break
		}
		if err := ctx.Err(); err != nil {
			result.Success = false
			result.StoppedReason = err.Error()
			result.StopReasonCode = "cancelled"
			result.StoppedOnTurn = i + 1
			break
		}

		record, err := sess.Engine.ApplyTurn(turn.Player, turn.Roll)
		if err != nil {
			result.Success = false
			result.StoppedReason = fmt.Sprintf("turn %d (%s:%d) rejected: %v", i+1, turn.Player, turn.Roll, err)
			result.StopReasonCode = "invalid_turn"
			result.StoppedOnTurn = i + 1
			break
		}

		result.TurnsExecuted++
		result.Kicks += len(record.Kicked)
		result.Turns = append(result.Turns, record.Clone())
		result.Events = append(result.Events, turnEvents(record, sess.Engine.GetState())...)
	}

	endState := sess.Engine.Snapshot()
	result.GameState = endState
	result.EndPositions = sess.Engine.Positions()
	result.GameOver = endState.GameOver
	result.Finishers = endState.Finishers
	result.Message = endState.Message

	// Auto-save session after the batch
	if err := s.sessions.Save(sessionID); err != nil {
		fmt.Printf("Warning: Failed to persist session %s after batch turns: %v\n", sessionID, err)
	}

	return result, nil
}

// Reset resets a game session to initial state
func (s *gameServiceImpl) Reset(ctx context.Context, sessionID string) (*engine.GameState, error) {
	sess, err := s.lockSession(sessionID)
	if err != nil {
		return nil, err
	}
	defer sess.Unlock()

	s.sessions.UpdateLastAccessed(sessionID)
	sess.Engine.Reset()
	state := sess.Engine.Snapshot()

	// Auto-save session after reset
	if err := s.sessions.Save(sessionID); err != nil {
		fmt.Printf("Warning: Failed to persist session %s after reset: %v\n", sessionID, err)
	}

	return state, nil
}

// GetGameState retrieves the current game state
func (s *gameServiceImpl) GetGameState(ctx context.Context, sessionID string) (*engine.GameState, error) {
	sess, err := s.lockSession(sessionID)
	if err != nil {
		return nil, err
	}
	defer sess.Unlock()

	s.sessions.UpdateLastAccessed(sessionID)
	return sess.Engine.Snapshot(), nil
}

// GetTurnHistory returns paginated turn history
func (s *gameServiceImpl) GetTurnHistory(ctx context.Context, sessionID string, opts HistoryOptions) (*HistoryResponse, error) {
	sess, err := s.lockSession(sessionID)
	if err != nil {
		return nil, err
	}
	defer sess.Unlock()

	history := sess.Engine.GetTurnHistory()
	total := len(history)

	// Apply defaults
	if opts.Page < 1 {
		opts.Page = 1
	}
	if opts.Limit <= 0 {
		opts.Limit = 20
	}
	if opts.Limit > 100 {
		opts.Limit = 100
	}
	if opts.Order == "" {
		opts.Order = "desc"
	}

	// Calculate pagination
	totalPages := (total + opts.Limit - 1) / opts.Limit
	if totalPages == 0 {
		totalPages = 1
	}

	start := (opts.Page - 1) * opts.Limit
	end := start + opts.Limit
	if end > total {
		end = total
	}

	var turns []engine.TurnRecord
	if opts.Order == "desc" {
		// Most recent first
		for i := total - 1 - start; i >= 0 && i >= total-end; i-- {
			turns = append(turns, history[i].Clone())
		}
	} else {
		for i := start; i < end; i++ {
			turns = append(turns, history[i].Clone())
		}
	}

	if turns == nil {
		turns = []engine.TurnRecord{}
	}

	return &HistoryResponse{
		Turns:       turns,
		TotalTurns:  total,
		Page:        opts.Page,
		PageSize:    opts.Limit,
		TotalPages:  totalPages,
		HasNext:     opts.Page < totalPages,
		HasPrevious: opts.Page > 1,
	}, nil
}

// GetPlayerInfo summarises one seated player
func (s *gameServiceImpl) GetPlayerInfo(ctx context.Context, sessionID string, player engine.PlayerID) (*engine.PlayerInfo, error) {
	sess, err := s.lockSession(sessionID)
	if err != nil {
		return nil, err
	}
	defer sess.Unlock()

	return sess.Engine.PlayerInfo(player)
}

// SpaceName resolves the space a player reaches after steps from Ready
func (s *gameServiceImpl) SpaceName(ctx context.Context, sessionID string, player engine.PlayerID, steps int) (*SpaceNameResult, error) {
	sess, err := s.lockSession(sessionID)
	if err != nil {
		return nil, err
	}
	defer sess.Unlock()

	space, err := sess.Engine.SpaceName(player, steps)
	if err != nil {
		return nil, err
	}
	return &SpaceNameResult{Player: player, Steps: steps, Space: space.String()}, nil
}

// ListConfigs returns available game configurations
func (s *gameServiceImpl) ListConfigs(ctx context.Context) ([]*ConfigInfo, error) {
	return s.configs.ListConfigs()
}

// LoadConfig loads a specific game configuration
func (s *gameServiceImpl) LoadConfig(ctx context.Context, configName string) (*engine.GameConfig, error) {
	return s.configs.LoadConfig(configName)
}

// SaveConfig saves a game configuration to disk
func (s *gameServiceImpl) SaveConfig(ctx context.Context, configName string, config *engine.GameConfig) error {
	return s.configs.SaveConfig(configName, config)
}

// IsNotFound reports whether err means a session does not exist
func IsNotFound(err error) bool {
	return errors.Is(err, ErrSessionNotFound)
}

// IsInvalidTurn reports whether err is a rejected turn or lookup input
func IsInvalidTurn(err error) bool {
	return errors.Is(err, engine.ErrInvalidRoll) ||
		errors.Is(err, engine.ErrInvalidPlayer) ||
		errors.Is(err, engine.ErrPlayerNotFound) ||
		errors.Is(err, engine.ErrInvalidToken) ||
		errors.Is(err, engine.ErrEmptyRoster) ||
		errors.Is(err, engine.ErrIndexOutOfRange)
}

func resetEvent() GameEvent {
	return GameEvent{
		Type:      EventReset,
		Message:   "Game reset to initial state",
		Timestamp: time.Now(),
	}
}

// turnEvents generates events from an applied turn
func turnEvents(record *engine.TurnRecord, state *engine.GameState) []GameEvent {
	now := time.Now()
	events := []GameEvent{{
		Type:      EventTurn,
		Message:   state.Message,
		Timestamp: now,
		Player:    record.Player,
	}}

	if record.Action == engine.ActionNone {
		events = append(events, GameEvent{
			Type:      EventNoMove,
			Message:   fmt.Sprintf("%s cannot move with a roll of %d", record.Player, record.Roll),
			Timestamp: now,
			Player:    record.Player,
		})
	}

	for _, tok := range record.Moved {
		to := record.To.P
		if tok == engine.TokenQ {
			to = record.To.Q
		}
		switch {
		case strings.HasPrefix(record.Rule, "release"):
			events = append(events, GameEvent{
				Type:      EventRelease,
				Message:   fmt.Sprintf("%s released token %s", record.Player, tok),
				Timestamp: now,
				Player:    record.Player,
				Token:     tok,
				Space:     to.String(),
			})
		case to == engine.EndSpace:
			events = append(events, GameEvent{
				Type:      EventFinish,
				Message:   fmt.Sprintf("%s moved token %s into End", record.Player, tok),
				Timestamp: now,
				Player:    record.Player,
				Token:     tok,
				Space:     to.String(),
			})
		}
	}

	for _, k := range record.Kicked {
		events = append(events, GameEvent{
			Type:      EventKick,
			Message:   fmt.Sprintf("%s kicked %s's token %s off %s", record.Player, k.Player, k.Token, k.From),
			Timestamp: now,
			Player:    k.Player,
			Token:     k.Token,
			Space:     k.From.String(),
		})
	}

	if record.Completed && len(record.Moved) > 0 {
		events = append(events, GameEvent{
			Type:      EventCompleted,
			Message:   fmt.Sprintf("%s has both tokens in End", record.Player),
			Timestamp: now,
			Player:    record.Player,
		})
	}

	if state.GameOver {
		events = append(events, GameEvent{
			Type:      EventGameOver,
			Message:   state.Message,
			Timestamp: now,
		})
	}

	return events
}
