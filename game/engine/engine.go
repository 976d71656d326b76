package engine

import "fmt"

// Engine provides the main interface for game operations
type Engine interface {
	// Game state management
	GetState() *GameState
	Snapshot() *GameState
	SetState(state *GameState) error
	Reset() *GameState
	IsGameOver() bool
	Roster() []PlayerID

	// Turns
	ApplyTurn(player PlayerID, roll int) (*TurnRecord, error)
	PlayTurns(turns []Turn) ([]TurnRecord, error)
	Decide(player PlayerID, roll int) (Decision, error)

	// Queries
	Positions() []string
	IsCompleted(player PlayerID) (bool, error)
	StepCount(player PlayerID, token TokenID) (int, error)
	SpaceName(player PlayerID, steps int) (Space, error)
	PlayerInfo(player PlayerID) (*PlayerInfo, error)

	// Configuration
	GetConfig() *GameConfig
	SetConfig(config *GameConfig) error

	// History
	GetTurnHistory() []TurnRecord
	GetLastTurn() *TurnRecord
}

// PlayerInfo is a read-only summary of one seated player
type PlayerInfo struct {
	ID         PlayerID    `json:"id"`
	StartSpace int         `json:"start_space"`
	EndSpace   int         `json:"end_space"`
	P          Space       `json:"p"`
	Q          Space       `json:"q"`
	StatusP    TokenStatus `json:"status_p"`
	StatusQ    TokenStatus `json:"status_q"`
	StepsP     int         `json:"steps_p"`
	StepsQ     int         `json:"steps_q"`
	Stacked    bool        `json:"stacked"`
	Completed  bool        `json:"completed"`
}

// GameEngine implements the Engine interface
type GameEngine struct {
	state  *GameState
	config *GameConfig
}

// NewEngine creates a new game engine. An empty roster seats the config's players.
func NewEngine(config *GameConfig, roster []PlayerID) (*GameEngine, error) {
	if err := ValidateGameConfig(config); err != nil {
		return nil, err
	}

	state, err := InitGameStateFromConfig(config, roster)
	if err != nil {
		return nil, err
	}

	return &GameEngine{config: config, state: state}, nil
}

// NewEngineWithDefaults creates an engine on the classic rules
func NewEngineWithDefaults(roster []PlayerID) (*GameEngine, error) {
	return NewEngine(DefaultGameConfig(), roster)
}

// GetState returns the live game state. Callers sharing the engine across
// goroutines should use Snapshot instead.
func (e *GameEngine) GetState() *GameState {
	return e.state
}

// Snapshot returns a deep copy of the current game state
func (e *GameEngine) Snapshot() *GameState {
	return e.state.Clone()
}

// SetState sets the game state (used for persistence loading)
func (e *GameEngine) SetState(state *GameState) error {
	if state == nil {
		return fmt.Errorf("state cannot be nil")
	}
	if len(state.Players) == 0 {
		return fmt.Errorf("invalid state: %w", ErrEmptyRoster)
	}

	seen := make(map[PlayerID]bool, len(state.Players))
	for _, ps := range state.Players {
		if seen[ps.ID] {
			return fmt.Errorf("invalid state: player %s seated twice", ps.ID)
		}
		seen[ps.ID] = true

		b, err := BoardFor(ps.ID)
		if err != nil {
			return fmt.Errorf("invalid state: %w", err)
		}
		for _, tok := range []Token{ps.P, ps.Q} {
			if _, err := b.IndexOf(tok.Space); err != nil {
				return fmt.Errorf("invalid state: %w", err)
			}
		}
	}

	e.state = state
	return nil
}

// Reset resets the game to initial state
func (e *GameEngine) Reset() *GameState {
	// Preserve cumulative history and totals across resets
	prevHistory := e.state.TurnHistory
	prevTotal := e.state.TotalTurns

	fresh, err := InitGameStateFromConfig(e.config, e.state.Roster())
	if err != nil {
		// The roster came from a valid state, so this only happens on a nil config
		fresh, _ = NewGameState(e.state.Roster())
	}
	e.state = fresh

	e.state.TurnHistory = prevHistory
	e.state.TotalTurns = prevTotal
	e.state.CurrentTurns = []TurnRecord{}
	e.state.CurrentTurnsCount = 0

	return e.state
}

// IsGameOver returns whether every seated player has completed
func (e *GameEngine) IsGameOver() bool {
	return e.state.GameOver
}

// Roster returns the seated players in catalog order
func (e *GameEngine) Roster() []PlayerID {
	return e.state.Roster()
}

// ApplyTurn resolves one turn for a player
func (e *GameEngine) ApplyTurn(player PlayerID, roll int) (*TurnRecord, error) {
	return e.state.ApplyTurn(player, roll, e.config)
}

// PlayTurns applies turns in sequence, stopping early once the game is over
// or a turn fails
func (e *GameEngine) PlayTurns(turns []Turn) ([]TurnRecord, error) {
	records := make([]TurnRecord, 0, len(turns))

	for _, t := range turns {
		if e.IsGameOver() {
			break
		}

		record, err := e.ApplyTurn(t.Player, t.Roll)
		if err != nil {
			return records, err
		}
		records = append(records, *record)
	}

	return records, nil
}

// Decide reports what a turn would do without applying it
func (e *GameEngine) Decide(player PlayerID, roll int) (Decision, error) {
	return e.state.Decide(player, roll, e.kickScan())
}

// WouldKick reports whether a roll lets the player hit an opponent
func (e *GameEngine) WouldKick(player PlayerID, roll int) (bool, error) {
	ps, err := e.state.player(player)
	if err != nil {
		return false, err
	}
	return e.state.WouldKick(ps, roll, e.kickScan())
}

func (e *GameEngine) kickScan() KickScan {
	if e.config == nil || e.config.KickScan == "" {
		return KickScanFirstOpponent
	}
	return e.config.KickScan
}

// Positions returns p then q for every seated player
func (e *GameEngine) Positions() []string {
	return e.state.Positions()
}

// IsCompleted reports whether both of a player's tokens are in End
func (e *GameEngine) IsCompleted(player PlayerID) (bool, error) {
	ps, err := e.state.player(player)
	if err != nil {
		return false, err
	}
	return ps.IsCompleted(), nil
}

// StepCount returns how far a token has travelled from Ready
func (e *GameEngine) StepCount(player PlayerID, token TokenID) (int, error) {
	ps, err := e.state.player(player)
	if err != nil {
		return 0, err
	}
	return ps.StepCount(token)
}

// SpaceName returns the space a player reaches after steps from Ready
func (e *GameEngine) SpaceName(player PlayerID, steps int) (Space, error) {
	if _, err := e.state.player(player); err != nil {
		return Space{}, err
	}
	b, err := BoardFor(player)
	if err != nil {
		return Space{}, err
	}
	return b.SpaceName(steps)
}

// PlayerInfo summarises a seated player
func (e *GameEngine) PlayerInfo(player PlayerID) (*PlayerInfo, error) {
	ps, err := e.state.player(player)
	if err != nil {
		return nil, err
	}
	stepsP, err := ps.StepCount(TokenP)
	if err != nil {
		return nil, err
	}
	stepsQ, err := ps.StepCount(TokenQ)
	if err != nil {
		return nil, err
	}

	return &PlayerInfo{
		ID:         ps.ID,
		StartSpace: ps.StartSpace,
		EndSpace:   ps.EndSpace,
		P:          ps.P.Space,
		Q:          ps.Q.Space,
		StatusP:    ps.P.Status,
		StatusQ:    ps.Q.Status,
		StepsP:     stepsP,
		StepsQ:     stepsQ,
		Stacked:    ps.IsStacked(),
		Completed:  ps.IsCompleted(),
	}, nil
}

// GetConfig returns the current game configuration
func (e *GameEngine) GetConfig() *GameConfig {
	return e.config
}

// SetConfig sets a new game configuration and resets the game, keeping the roster
func (e *GameEngine) SetConfig(config *GameConfig) error {
	if err := ValidateGameConfig(config); err != nil {
		return err
	}

	state, err := InitGameStateFromConfig(config, e.state.Roster())
	if err != nil {
		return err
	}
	e.config = config
	e.state = state
	return nil
}

// GetTurnHistory returns the complete turn history
func (e *GameEngine) GetTurnHistory() []TurnRecord {
	return e.state.TurnHistory
}

// GetLastTurn returns the last turn played, or nil if none
func (e *GameEngine) GetLastTurn() *TurnRecord {
	if len(e.state.TurnHistory) == 0 {
		return nil
	}
	return &e.state.TurnHistory[len(e.state.TurnHistory)-1]
}
