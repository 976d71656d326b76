package engine

import (
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
)

func createValidConfig() *GameConfig {
	config := DefaultGameConfig()
	config.Name = "Test Config"
	config.Description = "A valid test configuration"
	config.Players = []PlayerID{PlayerA, PlayerC}
	return config
}

func TestValidateGameConfig_ValidConfig(t *testing.T) {
	if err := ValidateGameConfig(createValidConfig()); err != nil {
		t.Errorf("Expected valid config to pass validation, got error: %v", err)
	}
	if err := ValidateGameConfig(DefaultGameConfig()); err != nil {
		t.Errorf("Expected default config to pass validation, got error: %v", err)
	}
}

func TestValidateGameConfig_Errors(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *GameConfig)
		wantMsg string
	}{
		{"missing name", func(c *GameConfig) { c.Name = "" }, "name is required"},
		{"missing description", func(c *GameConfig) { c.Description = "" }, "description is required"},
		{"empty roster", func(c *GameConfig) { c.Players = nil }, "roster is empty"},
		{"unknown player", func(c *GameConfig) { c.Players = []PlayerID{PlayerA, "Q"} }, "invalid player"},
		{"duplicate player", func(c *GameConfig) { c.Players = []PlayerID{PlayerB, PlayerB} }, "listed twice"},
		{"bad kick scan", func(c *GameConfig) { c.KickScan = "nearest" }, "kick_scan"},
		{"missing welcome", func(c *GameConfig) { c.Messages.Welcome = "" }, "messages.welcome"},
		{"missing game over", func(c *GameConfig) { c.Messages.GameOver = "" }, "messages.game_over"},
		{"moved without verb", func(c *GameConfig) { c.Messages.Moved = "Moved!" }, "messages.moved"},
		{"no_move without roll", func(c *GameConfig) { c.Messages.NoMove = "%s is stuck" }, "%d for the roll"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config := createValidConfig()
			tt.mutate(config)

			err := ValidateGameConfig(config)
			if err == nil {
				t.Fatal("Expected validation error")
			}
			if !strings.Contains(err.Error(), tt.wantMsg) {
				t.Errorf("Expected error containing %q, got %v", tt.wantMsg, err)
			}
		})
	}

	if err := ValidateGameConfig(nil); err == nil {
		t.Error("Expected error for nil config")
	}
}

func TestLoadGameConfig(t *testing.T) {
	tempFile := filepath.Join(t.TempDir(), "test_config.json")

	configContent := `{
		"name": "Test Config",
		"description": "Test description",
		"players": ["A", "D"],
		"kick_scan": "all_opponents",
		"messages": {
			"welcome": "Welcome!",
			"released": "%s out with %s",
			"moved": "%s moved %s to %s",
			"kicked": "%s hit %s",
			"finished": "%s finished %s",
			"completed": "%s done",
			"no_move": "%s cannot use %d",
			"game_over": "Over"
		}
	}`

	if err := os.WriteFile(tempFile, []byte(configContent), 0644); err != nil {
		t.Fatalf("Failed to create test config file: %v", err)
	}

	config, err := LoadGameConfig(tempFile)
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}

	if config.Name != "Test Config" {
		t.Errorf("Expected config name 'Test Config', got '%s'", config.Name)
	}
	if !reflect.DeepEqual(config.Players, []PlayerID{PlayerA, PlayerD}) {
		t.Errorf("Expected players [A D], got %v", config.Players)
	}
	if config.KickScan != KickScanAllOpponents {
		t.Errorf("Expected all_opponents, got %q", config.KickScan)
	}

	if _, err := LoadGameConfig("nonexistent.json"); err == nil {
		t.Error("Expected error for non-existent file")
	}
}

func TestLoadGameConfig_ConfigDir(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("CONFIG_DIR", dir)

	data := `{"name":"dir","description":"from CONFIG_DIR","players":["B"],` +
		`"messages":{"welcome":"hi","released":"%s %s","moved":"%s %s %s","kicked":"%s %s",` +
		`"finished":"%s %s","completed":"%s","no_move":"%s %d","game_over":"bye"}}`
	if err := os.WriteFile(filepath.Join(dir, "dir.json"), []byte(data), 0644); err != nil {
		t.Fatalf("Failed to write config: %v", err)
	}

	loaded, err := LoadGameConfig("configs/dir.json")
	if err != nil {
		t.Fatalf("Expected CONFIG_DIR to be honoured: %v", err)
	}
	if loaded.Name != "dir" {
		t.Errorf("Loaded wrong config: %q", loaded.Name)
	}
}

func TestInitGameStateFromConfig(t *testing.T) {
	config := createValidConfig()

	state, err := InitGameStateFromConfig(config, nil)
	if err != nil {
		t.Fatalf("InitGameStateFromConfig failed: %v", err)
	}

	if !reflect.DeepEqual(state.Roster(), []PlayerID{PlayerA, PlayerC}) {
		t.Errorf("Expected config roster, got %v", state.Roster())
	}
	if state.GameOver {
		t.Error("Expected game not to be over initially")
	}
	if state.Message != config.Messages.Welcome {
		t.Errorf("Expected welcome message, got %q", state.Message)
	}
	for _, ps := range state.Players {
		if ps.P.Status != StatusHome || ps.Q.Status != StatusHome {
			t.Errorf("Expected %s to start at Home", ps.ID)
		}
	}
	c := state.Players[1]
	if c.StartSpace != 29 || c.EndSpace != 22 {
		t.Errorf("Expected C start/end 29/22, got %d/%d", c.StartSpace, c.EndSpace)
	}

	override, err := InitGameStateFromConfig(config, []PlayerID{PlayerD})
	if err != nil {
		t.Fatalf("InitGameStateFromConfig failed: %v", err)
	}
	if !reflect.DeepEqual(override.Roster(), []PlayerID{PlayerD}) {
		t.Errorf("Expected explicit roster to win, got %v", override.Roster())
	}

	defaults, err := InitGameStateFromConfig(nil, nil)
	if err != nil {
		t.Fatalf("InitGameStateFromConfig(nil) failed: %v", err)
	}
	if len(defaults.Players) != 4 || defaults.ConfigName != "classic" {
		t.Errorf("Expected classic four-player defaults, got %d players, %q", len(defaults.Players), defaults.ConfigName)
	}
}

func TestNewGameState_Errors(t *testing.T) {
	if _, err := NewGameState(nil); !errors.Is(err, ErrEmptyRoster) {
		t.Errorf("Expected ErrEmptyRoster, got %v", err)
	}
	if _, err := NewGameState([]PlayerID{"X"}); !errors.Is(err, ErrInvalidPlayer) {
		t.Errorf("Expected ErrInvalidPlayer, got %v", err)
	}
}

func TestParseTurns(t *testing.T) {
	turns, err := ParseTurns("A:6, a:4,B:1,")
	if err != nil {
		t.Fatalf("ParseTurns failed: %v", err)
	}
	want := []Turn{{PlayerA, 6}, {PlayerA, 4}, {PlayerB, 1}}
	if !reflect.DeepEqual(turns, want) {
		t.Errorf("Expected %v, got %v", want, turns)
	}

	bad := []struct {
		raw  string
		want error
	}{
		{"A:7", ErrInvalidRoll},
		{"A:x", ErrInvalidRoll},
		{"E:3", ErrInvalidPlayer},
	}
	for _, tt := range bad {
		if _, err := ParseTurns(tt.raw); !errors.Is(err, tt.want) {
			t.Errorf("ParseTurns(%q): expected %v, got %v", tt.raw, tt.want, err)
		}
	}
	if _, err := ParseTurns("A6"); err == nil {
		t.Error("Expected error for missing separator")
	}
}

func TestParseRoster(t *testing.T) {
	roster, err := ParseRoster([]string{"a,b", "D"})
	if err != nil {
		t.Fatalf("ParseRoster failed: %v", err)
	}
	if !reflect.DeepEqual(roster, []PlayerID{PlayerA, PlayerB, PlayerD}) {
		t.Errorf("Unexpected roster %v", roster)
	}
	if _, err := ParseRoster(nil); !errors.Is(err, ErrEmptyRoster) {
		t.Errorf("Expected ErrEmptyRoster, got %v", err)
	}
}

func TestTurnMessage(t *testing.T) {
	config := createTestConfig()

	tests := []struct {
		name   string
		record TurnRecord
		done   []PlayerID
		over   bool
		want   string
	}{
		{"game over wins", TurnRecord{Player: PlayerA}, []PlayerID{PlayerA}, true, "Game over!"},
		{"completion", TurnRecord{Player: PlayerA}, []PlayerID{PlayerA}, false, "A completed"},
		{"release", TurnRecord{Player: PlayerB, Rule: "release-q", Moved: []TokenID{TokenQ}}, nil, false, "B released q"},
		{"finish", TurnRecord{Player: PlayerB, Rule: "finish-stack", Moved: []TokenID{TokenP, TokenQ}}, nil, false, "B finished p+q"},
		{
			"move",
			TurnRecord{Player: PlayerC, Rule: "advance-q", Moved: []TokenID{TokenQ}, To: TokenPair{P: HomeSpace, Q: LoopSpace(33)}},
			nil, false, "C moved q to 33",
		},
		{"no move", TurnRecord{Player: PlayerD, Roll: 4}, nil, false, "D stuck on 4"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := turnMessage(&tt.record, tt.done, tt.over, config)
			if got != tt.want {
				t.Errorf("Expected %q, got %q", tt.want, got)
			}
		})
	}
}
