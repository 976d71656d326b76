package engine

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// GameConfig is a named rule set: the default roster, how kicks are
// detected and the event messages shown to players
type GameConfig struct {
	Name        string       `json:"name"`
	Description string       `json:"description"`
	Players     []PlayerID   `json:"players"`
	KickScan    KickScan     `json:"kick_scan,omitempty"`
	Messages    GameMessages `json:"messages"`
}

// GameMessages holds the format strings used for turn messages
type GameMessages struct {
	Welcome   string `json:"welcome"`
	Released  string `json:"released"`  // player, token
	Moved     string `json:"moved"`     // player, tokens, destination
	Kicked    string `json:"kicked"`    // player, victims
	Finished  string `json:"finished"`  // player, tokens
	Completed string `json:"completed"` // player
	NoMove    string `json:"no_move"`   // player, roll
	GameOver  string `json:"game_over"`
}

// DefaultGameConfig returns the classic four-seat rules
func DefaultGameConfig() *GameConfig {
	return &GameConfig{
		Name:        "classic",
		Description: "Classic two-token Ludo for up to four players",
		Players:     Catalog(),
		KickScan:    KickScanFirstOpponent,
		Messages: GameMessages{
			Welcome:   "Welcome to Ludo! Roll a 6 to bring a token out of Home.",
			Released:  "%s released token %s onto Ready",
			Moved:     "%s moved %s to %s",
			Kicked:    "%s kicked %s back Home!",
			Finished:  "%s brought %s into End",
			Completed: "%s has both tokens in End!",
			NoMove:    "%s cannot move with a roll of %d",
			GameOver:  "Game over! Every player has finished.",
		},
	}
}

// ValidateGameConfig validates a game configuration for correctness
func ValidateGameConfig(config *GameConfig) error {
	if config == nil {
		return fmt.Errorf("config validation: config is nil")
	}
	if config.Name == "" {
		return fmt.Errorf("config validation: name is required")
	}
	if config.Description == "" {
		return fmt.Errorf("config validation: description is required")
	}

	if len(config.Players) == 0 {
		return fmt.Errorf("config validation: players: %w", ErrEmptyRoster)
	}
	seen := make(map[PlayerID]bool, len(config.Players))
	for _, id := range config.Players {
		if _, err := BoardFor(id); err != nil {
			return fmt.Errorf("config validation: players: %w", err)
		}
		if seen[id] {
			return fmt.Errorf("config validation: player %s listed twice", id)
		}
		seen[id] = true
	}

	if config.KickScan != "" && !config.KickScan.Valid() {
		return fmt.Errorf("config validation: kick_scan must be %q or %q, got %q",
			KickScanFirstOpponent, KickScanAllOpponents, config.KickScan)
	}

	if config.Messages.Welcome == "" {
		return fmt.Errorf("config validation: messages.welcome is required")
	}
	if config.Messages.GameOver == "" {
		return fmt.Errorf("config validation: messages.game_over is required")
	}

	formats := map[string]string{
		"released":  config.Messages.Released,
		"moved":     config.Messages.Moved,
		"kicked":    config.Messages.Kicked,
		"finished":  config.Messages.Finished,
		"completed": config.Messages.Completed,
		"no_move":   config.Messages.NoMove,
	}
	for key, format := range formats {
		if !strings.Contains(format, "%s") {
			return fmt.Errorf("config validation: messages.%s must contain %%s for the player", key)
		}
	}
	if !strings.Contains(config.Messages.NoMove, "%d") {
		return fmt.Errorf("config validation: messages.no_move must contain %%d for the roll")
	}

	return nil
}

// LoadGameConfig loads a game configuration from a JSON file
func LoadGameConfig(filename string) (*GameConfig, error) {
	// Support CONFIG_DIR environment variable for alternative config directory
	configPath := filename
	if configDir := os.Getenv("CONFIG_DIR"); configDir != "" {
		if strings.HasPrefix(filename, "configs/") {
			configPath = filepath.Join(configDir, strings.TrimPrefix(filename, "configs/"))
		}
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, err
	}

	var config GameConfig
	if err := json.Unmarshal(data, &config); err != nil {
		return nil, err
	}

	if err := ValidateGameConfig(&config); err != nil {
		return nil, err
	}

	return &config, nil
}

// InitGameStateFromConfig creates a fresh game for the roster. An empty
// roster falls back to the config's players.
func InitGameStateFromConfig(config *GameConfig, roster []PlayerID) (*GameState, error) {
	if config == nil {
		config = DefaultGameConfig()
	}
	if len(roster) == 0 {
		roster = config.Players
	}

	state, err := NewGameState(roster)
	if err != nil {
		return nil, err
	}
	state.Message = config.Messages.Welcome
	state.ConfigName = config.Name
	return state, nil
}

// NewGameState seats the requested players in catalog order with both
// tokens at Home. Duplicate ids collapse into one seat.
func NewGameState(roster []PlayerID) (*GameState, error) {
	if len(roster) == 0 {
		return nil, ErrEmptyRoster
	}

	wanted := make(map[PlayerID]bool, len(roster))
	for _, id := range roster {
		if _, err := BoardFor(id); err != nil {
			return nil, err
		}
		wanted[id] = true
	}

	players := make([]PlayerState, 0, len(wanted))
	for _, s := range catalog {
		if !wanted[s.id] {
			continue
		}
		players = append(players, PlayerState{
			ID:         s.id,
			StartSpace: s.start,
			EndSpace:   s.end,
			P:          Token{Space: HomeSpace, Status: StatusHome},
			Q:          Token{Space: HomeSpace, Status: StatusHome},
		})
	}

	return &GameState{
		Players:           players,
		Finishers:         []PlayerID{},
		TurnHistory:       []TurnRecord{},
		CurrentTurns:      []TurnRecord{},
		TotalTurns:        0,
		CurrentTurnsCount: 0,
	}, nil
}

// Play applies turns in order and returns the final positions. It stops at
// the first failing turn.
func (gs *GameState) Play(turns []Turn, config *GameConfig) ([]string, error) {
	for i, t := range turns {
		if _, err := gs.ApplyTurn(t.Player, t.Roll, config); err != nil {
			return gs.Positions(), fmt.Errorf("turn %d (%s:%d): %w", i+1, t.Player, t.Roll, err)
		}
	}
	return gs.Positions(), nil
}

// PlayGame seats roster, plays every turn and returns the resulting state
func PlayGame(config *GameConfig, roster []PlayerID, turns []Turn) (*GameState, error) {
	state, err := InitGameStateFromConfig(config, roster)
	if err != nil {
		return nil, err
	}
	if _, err := state.Play(turns, config); err != nil {
		return state, err
	}
	return state, nil
}

// ParseTurn parses a single "A:6" turn
func ParseTurn(raw string) (Turn, error) {
	player, roll, ok := strings.Cut(strings.TrimSpace(raw), ":")
	if !ok {
		return Turn{}, fmt.Errorf("turn %q: expected PLAYER:ROLL", raw)
	}
	id, err := ParsePlayerID(player)
	if err != nil {
		return Turn{}, fmt.Errorf("turn %q: %w", raw, err)
	}
	n, err := strconv.Atoi(strings.TrimSpace(roll))
	if err != nil || n < MinRoll || n > MaxRoll {
		return Turn{}, fmt.Errorf("turn %q: %w", raw, ErrInvalidRoll)
	}
	return Turn{Player: id, Roll: n}, nil
}

// ParseTurns parses a comma separated list such as "A:6,A:4,B:6"
func ParseTurns(raw string) ([]Turn, error) {
	var turns []Turn
	for _, part := range strings.Split(raw, ",") {
		if strings.TrimSpace(part) == "" {
			continue
		}
		t, err := ParseTurn(part)
		if err != nil {
			return nil, err
		}
		turns = append(turns, t)
	}
	return turns, nil
}

// ParseRoster parses player ids such as "A,B" or "a b"
func ParseRoster(raw []string) ([]PlayerID, error) {
	var roster []PlayerID
	for _, item := range raw {
		for _, field := range strings.FieldsFunc(item, func(r rune) bool { return r == ',' || r == ' ' }) {
			id, err := ParsePlayerID(field)
			if err != nil {
				return nil, err
			}
			roster = append(roster, id)
		}
	}
	if len(roster) == 0 {
		return nil, ErrEmptyRoster
	}
	return roster, nil
}

// turnMessage renders the status line for an applied turn
func turnMessage(record *TurnRecord, newlyDone []PlayerID, gameOver bool, config *GameConfig) string {
	if config == nil {
		config = DefaultGameConfig()
	}
	m := config.Messages

	switch {
	case gameOver:
		return m.GameOver
	case len(newlyDone) > 0:
		return fmt.Sprintf(m.Completed, newlyDone[0])
	case len(record.Kicked) > 0:
		victims := make([]string, 0, len(record.Kicked))
		for _, k := range record.Kicked {
			victims = append(victims, fmt.Sprintf("%s.%s", k.Player, k.Token))
		}
		return fmt.Sprintf(m.Kicked, record.Player, strings.Join(victims, ", "))
	case len(record.Moved) == 0:
		return fmt.Sprintf(m.NoMove, record.Player, record.Roll)
	}

	tokens := joinTokens(record.Moved)
	switch {
	case strings.HasPrefix(record.Rule, "release"):
		return fmt.Sprintf(m.Released, record.Player, tokens)
	case strings.HasPrefix(record.Rule, "finish"):
		return fmt.Sprintf(m.Finished, record.Player, tokens)
	}

	dest := record.To.P
	if record.Moved[0] == TokenQ {
		dest = record.To.Q
	}
	return fmt.Sprintf(m.Moved, record.Player, tokens, dest)
}

func joinTokens(ids []TokenID) string {
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = string(id)
	}
	return strings.Join(parts, "+")
}
