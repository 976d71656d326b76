package service_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"sync"
	"testing"
	"time"

	"github.com/wricardo/ludo-engine/game/engine"
	"github.com/wricardo/ludo-engine/game/service"
)

// MockSessionManager implements service.SessionManager for testing
type MockSessionManager struct {
	mu       sync.Mutex
	sessions map[string]*service.Session
	saves    int
}

func NewMockSessionManager() *MockSessionManager {
	return &MockSessionManager{
		sessions: make(map[string]*service.Session),
	}
}

func (m *MockSessionManager) Create(id string, config *engine.GameConfig, players []engine.PlayerID) (*service.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	// Generate ID if empty (mimics real session manager behavior)
	if id == "" {
		id = fmt.Sprintf("test_%d", len(m.sessions)+1)
	}

	if _, exists := m.sessions[id]; exists {
		return nil, errors.New("session already exists")
	}

	eng, err := engine.NewEngine(config, players)
	if err != nil {
		return nil, err
	}

	session := &service.Session{
		ID:             id,
		Engine:         eng,
		Config:         config,
		CreatedAt:      time.Now(),
		LastAccessedAt: time.Now(),
	}

	m.sessions[id] = session
	return session, nil
}

func (m *MockSessionManager) Get(id string) (*service.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	session, exists := m.sessions[id]
	if !exists {
		return nil, service.ErrSessionNotFound
	}
	return session, nil
}

func (m *MockSessionManager) GetOrCreate(id string, config *engine.GameConfig, players []engine.PlayerID) (*service.Session, error) {
	if session, err := m.Get(id); err == nil {
		return session, nil
	}
	return m.Create(id, config, players)
}

func (m *MockSessionManager) List() []*service.Session {
	m.mu.Lock()
	defer m.mu.Unlock()

	result := make([]*service.Session, 0, len(m.sessions))
	for _, session := range m.sessions {
		result = append(result, session)
	}
	return result
}

func (m *MockSessionManager) Delete(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.sessions[id]; !exists {
		return service.ErrSessionNotFound
	}
	delete(m.sessions, id)
	return nil
}

func (m *MockSessionManager) UpdateLastAccessed(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if session, exists := m.sessions[id]; exists {
		session.LastAccessedAt = time.Now()
		return nil
	}
	return service.ErrSessionNotFound
}

func (m *MockSessionManager) Save(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.sessions[id]; !exists {
		return service.ErrSessionNotFound
	}
	m.saves++
	return nil
}

// MockConfigManager implements service.ConfigManager for testing
type MockConfigManager struct {
	configs map[string]*engine.GameConfig
}

func NewMockConfigManager() *MockConfigManager {
	defaultConfig := engine.DefaultGameConfig()
	defaultConfig.Name = "test"
	defaultConfig.Description = "Test configuration"
	defaultConfig.Players = []engine.PlayerID{engine.PlayerA, engine.PlayerB}

	return &MockConfigManager{
		configs: map[string]*engine.GameConfig{
			"test":    defaultConfig,
			"default": defaultConfig,
		},
	}
}

func (m *MockConfigManager) LoadConfig(name string) (*engine.GameConfig, error) {
	config, exists := m.configs[name]
	if !exists {
		return nil, fmt.Errorf("%w: %s", service.ErrConfigNotFound, name)
	}
	return config, nil
}

func (m *MockConfigManager) ListConfigs() ([]*service.ConfigInfo, error) {
	result := make([]*service.ConfigInfo, 0, len(m.configs))
	for name, config := range m.configs {
		result = append(result, &service.ConfigInfo{
			Filename:    name + ".json",
			ConfigID:    name,
			Name:        config.Name,
			Description: config.Description,
			Players:     config.Players,
			KickScan:    config.KickScan,
		})
	}
	return result, nil
}

func (m *MockConfigManager) GetDefault() *engine.GameConfig {
	return m.configs["default"]
}

func (m *MockConfigManager) SaveConfig(name string, config *engine.GameConfig) error {
	m.configs[name] = config
	return nil
}

func newTestService() (service.GameService, *MockSessionManager) {
	sessions := NewMockSessionManager()
	return service.NewGameService(sessions, NewMockConfigManager()), sessions
}

func goldenTurns() []engine.Turn {
	return []engine.Turn{
		{Player: "A", Roll: 6}, {Player: "A", Roll: 4}, {Player: "A", Roll: 5}, {Player: "A", Roll: 4},
		{Player: "B", Roll: 6}, {Player: "B", Roll: 4}, {Player: "B", Roll: 1}, {Player: "B", Roll: 2},
		{Player: "A", Roll: 6}, {Player: "A", Roll: 4}, {Player: "A", Roll: 6}, {Player: "A", Roll: 3},
		{Player: "A", Roll: 5}, {Player: "A", Roll: 1}, {Player: "A", Roll: 5}, {Player: "A", Roll: 4},
	}
}

func TestGameService_CreateSession(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService()

	tests := []struct {
		name        string
		configName  string
		players     []engine.PlayerID
		wantErr     bool
		wantPlayers []engine.PlayerID
	}{
		{
			name:        "create with default config",
			configName:  "",
			wantPlayers: []engine.PlayerID{engine.PlayerA, engine.PlayerB},
		},
		{
			name:        "create with explicit roster",
			configName:  "test",
			players:     []engine.PlayerID{engine.PlayerD, engine.PlayerC},
			wantPlayers: []engine.PlayerID{engine.PlayerC, engine.PlayerD},
		},
		{
			name:       "create with invalid config",
			configName: "nonexistent",
			wantErr:    true,
		},
		{
			name:       "create with unknown player",
			configName: "test",
			players:    []engine.PlayerID{"Z"},
			wantErr:    true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			session, err := svc.CreateSession(ctx, tt.configName, tt.players)
			if (err != nil) != tt.wantErr {
				t.Errorf("CreateSession() error = %v, wantErr %v", err, tt.wantErr)
				return
			}
			if tt.wantErr {
				return
			}
			if session == nil {
				t.Fatal("CreateSession() returned nil session")
			}
			if !reflect.DeepEqual(session.Players, tt.wantPlayers) {
				t.Errorf("Expected players %v, got %v", tt.wantPlayers, session.Players)
			}
		})
	}
}

func TestGameService_PlayTurn(t *testing.T) {
	ctx := context.Background()
	svc, sessions := newTestService()

	info, err := svc.CreateSession(ctx, "test", nil)
	if err != nil {
		t.Fatalf("Failed to create session: %v", err)
	}

	// A six releases p
	res, err := svc.PlayTurn(ctx, info.ID, engine.Turn{Player: engine.PlayerA, Roll: 6}, false)
	if err != nil {
		t.Fatalf("PlayTurn failed: %v", err)
	}
	if !res.Success || res.Turn.Rule != "release-p" {
		t.Errorf("Expected release-p, got success=%v rule=%q", res.Success, res.Turn.Rule)
	}
	if !hasEvent(res.Events, service.EventRelease) {
		t.Errorf("Expected release event, got %+v", res.Events)
	}
	if sessions.saves != 1 {
		t.Errorf("Expected session to be saved once, got %d", sessions.saves)
	}

	// B has nothing out, so a 3 is a no-move
	res, err = svc.PlayTurn(ctx, info.ID, engine.Turn{Player: engine.PlayerB, Roll: 3}, false)
	if err != nil {
		t.Fatalf("PlayTurn failed: %v", err)
	}
	if res.Success || !hasEvent(res.Events, service.EventNoMove) {
		t.Errorf("Expected no-move turn, got success=%v events=%+v", res.Success, res.Events)
	}

	// Reset puts A back at Home before the turn applies
	res, err = svc.PlayTurn(ctx, info.ID, engine.Turn{Player: engine.PlayerA, Roll: 2}, true)
	if err != nil {
		t.Fatalf("PlayTurn with reset failed: %v", err)
	}
	if !hasEvent(res.Events, service.EventReset) || res.Success {
		t.Errorf("Expected reset then no-move, got %+v", res.Events)
	}

	errTests := []struct {
		name      string
		sessionID string
		turn      engine.Turn
		want      error
	}{
		{"invalid session", "nonexistent", engine.Turn{Player: engine.PlayerA, Roll: 1}, service.ErrSessionNotFound},
		{"roll too high", info.ID, engine.Turn{Player: engine.PlayerA, Roll: 7}, engine.ErrInvalidRoll},
		{"unseated player", info.ID, engine.Turn{Player: engine.PlayerC, Roll: 6}, engine.ErrPlayerNotFound},
	}
	for _, tt := range errTests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.PlayTurn(ctx, tt.sessionID, tt.turn, false)
			if !errors.Is(err, tt.want) {
				t.Errorf("Expected %v, got %v", tt.want, err)
			}
		})
	}
}

func TestGameService_PlayTurns(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService()

	info, err := svc.CreateSession(ctx, "test", nil)
	if err != nil {
		t.Fatalf("Failed to create session: %v", err)
	}

	res, err := svc.PlayTurns(ctx, info.ID, goldenTurns(), false)
	if err != nil {
		t.Fatalf("PlayTurns failed: %v", err)
	}
	if !res.Success || res.TurnsExecuted != 16 || res.RequestedTurns != 16 {
		t.Errorf("Expected 16 executed turns, got success=%v executed=%d", res.Success, res.TurnsExecuted)
	}
	if want := []string{"28", "28", "21", "H"}; !reflect.DeepEqual(res.EndPositions, want) {
		t.Errorf("Expected end positions %v, got %v", want, res.EndPositions)
	}
	if want := []string{"H", "H", "H", "H"}; !reflect.DeepEqual(res.StartPositions, want) {
		t.Errorf("Expected start positions %v, got %v", want, res.StartPositions)
	}
	if len(res.Turns) != 16 {
		t.Errorf("Expected a 16 turn trace, got %d", len(res.Turns))
	}

	// Batch stops at the invalid roll and keeps earlier turns
	bad := []engine.Turn{{Player: "A", Roll: 6}, {Player: "A", Roll: 9}, {Player: "A", Roll: 1}}
	res, err = svc.PlayTurns(ctx, info.ID, bad, true)
	if err != nil {
		t.Fatalf("PlayTurns returned error for invalid turn: %v", err)
	}
	if res.Success || res.StopReasonCode != "invalid_turn" || res.StoppedOnTurn != 2 {
		t.Errorf("Expected invalid_turn on turn 2, got %+v", res)
	}
	if res.TurnsExecuted != 1 || res.EndPositions[0] != "R" {
		t.Errorf("Expected first turn kept, got executed=%d positions=%v", res.TurnsExecuted, res.EndPositions)
	}

	// Empty batch is fine
	res, err = svc.PlayTurns(ctx, info.ID, nil, false)
	if err != nil || res.TurnsExecuted != 0 {
		t.Errorf("Expected empty batch to succeed, got %v / %+v", err, res)
	}

	if _, err := svc.PlayTurns(ctx, "nonexistent", goldenTurns(), false); !errors.Is(err, service.ErrSessionNotFound) {
		t.Errorf("Expected ErrSessionNotFound, got %v", err)
	}
}

func TestGameService_PlayTurns_Truncated(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService()

	info, _ := svc.CreateSession(ctx, "test", nil)

	turns := make([]engine.Turn, engine.MaxBatchTurns+10)
	for i := range turns {
		turns[i] = engine.Turn{Player: engine.PlayerB, Roll: 2}
	}

	res, err := svc.PlayTurns(ctx, info.ID, turns, false)
	if err != nil {
		t.Fatalf("PlayTurns failed: %v", err)
	}
	if !res.Truncated || res.Limit != engine.MaxBatchTurns || res.TurnsExecuted != engine.MaxBatchTurns {
		t.Errorf("Expected truncation at %d, got truncated=%v executed=%d", engine.MaxBatchTurns, res.Truncated, res.TurnsExecuted)
	}
}

func TestGameService_PlayTurns_Cancelled(t *testing.T) {
	svc, _ := newTestService()
	info, _ := svc.CreateSession(context.Background(), "test", nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res, err := svc.PlayTurns(ctx, info.ID, goldenTurns(), false)
	if err != nil {
		t.Fatalf("PlayTurns failed: %v", err)
	}
	if res.StopReasonCode != "cancelled" || res.TurnsExecuted != 0 {
		t.Errorf("Expected cancelled before any turn, got %+v", res)
	}
}

func TestGameService_GetTurnHistory(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService()

	sessionInfo, err := svc.CreateSession(ctx, "test", nil)
	if err != nil {
		t.Fatalf("Failed to create session: %v", err)
	}

	if _, err := svc.PlayTurns(ctx, sessionInfo.ID, goldenTurns()[:5], false); err != nil {
		t.Fatalf("Failed to play turns: %v", err)
	}

	tests := []struct {
		name      string
		opts      service.HistoryOptions
		wantLen   int
		wantFirst int
		wantNext  bool
	}{
		{"default options", service.HistoryOptions{}, 5, 5, false},
		{"ascending pages", service.HistoryOptions{Page: 1, Limit: 2, Order: "asc"}, 2, 1, true},
		{"last ascending page", service.HistoryOptions{Page: 3, Limit: 2, Order: "asc"}, 1, 5, false},
		{"descending page", service.HistoryOptions{Page: 2, Limit: 2, Order: "desc"}, 2, 3, true},
		{"past the end", service.HistoryOptions{Page: 9, Limit: 2, Order: "asc"}, 0, 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := svc.GetTurnHistory(ctx, sessionInfo.ID, tt.opts)
			if err != nil {
				t.Fatalf("GetTurnHistory() error = %v", err)
			}
			if result.Turns == nil {
				t.Fatal("GetTurnHistory() returned nil turns slice")
			}
			if len(result.Turns) != tt.wantLen {
				t.Fatalf("Expected %d turns, got %d", tt.wantLen, len(result.Turns))
			}
			if tt.wantLen > 0 && result.Turns[0].TurnNumber != tt.wantFirst {
				t.Errorf("Expected first turn %d, got %d", tt.wantFirst, result.Turns[0].TurnNumber)
			}
			if result.HasNext != tt.wantNext {
				t.Errorf("Expected HasNext=%v, got %v", tt.wantNext, result.HasNext)
			}
			if result.TotalTurns != 5 {
				t.Errorf("Expected 5 total turns, got %d", result.TotalTurns)
			}
		})
	}

	if _, err := svc.GetTurnHistory(ctx, "nonexistent", service.HistoryOptions{}); err == nil {
		t.Error("Expected error for invalid session")
	}
}

func TestGameService_PlayerInfoAndSpaceName(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService()

	info, _ := svc.CreateSession(ctx, "test", nil)
	if _, err := svc.PlayTurns(ctx, info.ID, goldenTurns(), false); err != nil {
		t.Fatalf("PlayTurns failed: %v", err)
	}

	pi, err := svc.GetPlayerInfo(ctx, info.ID, engine.PlayerA)
	if err != nil {
		t.Fatalf("GetPlayerInfo failed: %v", err)
	}
	if pi.StepsP != 28 || pi.StepsQ != 28 || !pi.Stacked {
		t.Errorf("Expected A stacked at 28, got %+v", pi)
	}
	if _, err := svc.GetPlayerInfo(ctx, info.ID, engine.PlayerD); !errors.Is(err, engine.ErrPlayerNotFound) {
		t.Errorf("Expected ErrPlayerNotFound for unseated D, got %v", err)
	}

	name, err := svc.SpaceName(ctx, info.ID, engine.PlayerB, 55)
	if err != nil {
		t.Fatalf("SpaceName failed: %v", err)
	}
	if name.Space != "B5" {
		t.Errorf("Expected B5, got %s", name.Space)
	}
	if _, err := svc.SpaceName(ctx, info.ID, engine.PlayerB, 99); err == nil {
		t.Error("Expected error for steps past End")
	}
}

func TestGameService_ListSessions(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService()

	// Create multiple sessions
	for i := 0; i < 3; i++ {
		_, err := svc.CreateSession(ctx, "test", nil)
		if err != nil {
			t.Fatalf("Failed to create session %d: %v", i, err)
		}
	}

	sessionList, err := svc.ListSessions(ctx)
	if err != nil {
		t.Fatalf("ListSessions() error = %v", err)
	}

	if len(sessionList) != 3 {
		t.Errorf("ListSessions() returned %d sessions, want 3", len(sessionList))
	}
}

func TestGameService_Reset(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService()

	sessionInfo, err := svc.CreateSession(ctx, "test", nil)
	if err != nil {
		t.Fatalf("Failed to create session: %v", err)
	}

	if _, err := svc.PlayTurn(ctx, sessionInfo.ID, engine.Turn{Player: engine.PlayerA, Roll: 6}, false); err != nil {
		t.Fatalf("Failed to play turn: %v", err)
	}

	state, err := svc.Reset(ctx, sessionInfo.ID)
	if err != nil {
		t.Fatalf("Reset() error = %v", err)
	}

	if got := state.Positions(); !reflect.DeepEqual(got, []string{"H", "H", "H", "H"}) {
		t.Errorf("Expected everyone Home after reset, got %v", got)
	}
	if state.TotalTurns != 1 {
		t.Errorf("Expected cumulative history to survive reset, got %d", state.TotalTurns)
	}
}

func TestGameService_DeleteSession(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService()

	info, _ := svc.CreateSession(ctx, "test", nil)
	if err := svc.DeleteSession(ctx, info.ID); err != nil {
		t.Fatalf("DeleteSession failed: %v", err)
	}
	if _, err := svc.GetSession(ctx, info.ID); !service.IsNotFound(err) {
		t.Errorf("Expected not found after delete, got %v", err)
	}
}

func TestGameService_ReturnedStateIsDetached(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService()

	info, err := svc.CreateSession(ctx, "test", nil)
	if err != nil {
		t.Fatalf("Failed to create session: %v", err)
	}
	first, err := svc.PlayTurn(ctx, info.ID, engine.Turn{Player: engine.PlayerA, Roll: 6}, false)
	if err != nil {
		t.Fatalf("PlayTurn failed: %v", err)
	}
	state, err := svc.GetGameState(ctx, info.ID)
	if err != nil {
		t.Fatalf("GetGameState failed: %v", err)
	}

	if _, err := svc.PlayTurns(ctx, info.ID, []engine.Turn{{Player: "A", Roll: 4}, {Player: "B", Roll: 6}}, false); err != nil {
		t.Fatalf("PlayTurns failed: %v", err)
	}

	want := []string{"R", "H", "H", "H"}
	if got := state.Positions(); !reflect.DeepEqual(got, want) {
		t.Errorf("GetGameState result moved with later turns: %v", got)
	}
	if got := first.GameState.Positions(); !reflect.DeepEqual(got, want) {
		t.Errorf("PlayTurn result moved with later turns: %v", got)
	}
	if len(state.TurnHistory) != 1 || info.GameState.TotalTurns != 0 {
		t.Errorf("Expected histories frozen at 1 and 0, got %d and %d", len(state.TurnHistory), info.GameState.TotalTurns)
	}

	state.Players[0].P.Space = engine.EndSpace
	current, _ := svc.GetGameState(ctx, info.ID)
	if current.Players[0].P.Space == engine.EndSpace {
		t.Error("Writing to a returned state changed the session")
	}
}

// Run with -race: readers encode states while a writer keeps playing.
func TestGameService_ConcurrentTurnsAndReads(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService()

	info, err := svc.CreateSession(ctx, "test", nil)
	if err != nil {
		t.Fatalf("Failed to create session: %v", err)
	}

	const rounds = 50
	var wg sync.WaitGroup
	errs := make(chan error, 3)

	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < rounds; i++ {
			for j, turn := range goldenTurns() {
				if _, err := svc.PlayTurn(ctx, info.ID, turn, j == 0); err != nil {
					errs <- fmt.Errorf("PlayTurn: %w", err)
					return
				}
			}
		}
	}()

	for r := 0; r < 2; r++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < rounds*4; i++ {
				state, err := svc.GetGameState(ctx, info.ID)
				if err != nil {
					errs <- fmt.Errorf("GetGameState: %w", err)
					return
				}
				if _, err := json.Marshal(state); err != nil {
					errs <- fmt.Errorf("marshal state: %w", err)
					return
				}
				sess, err := svc.GetSession(ctx, info.ID)
				if err != nil {
					errs <- fmt.Errorf("GetSession: %w", err)
					return
				}
				if _, err := json.Marshal(sess); err != nil {
					errs <- fmt.Errorf("marshal session: %w", err)
					return
				}
			}
		}()
	}

	wg.Wait()
	close(errs)
	for err := range errs {
		t.Error(err)
	}

	state, _ := svc.GetGameState(ctx, info.ID)
	if want := []string{"28", "28", "21", "H"}; !reflect.DeepEqual(state.Positions(), want) {
		t.Errorf("Expected golden end positions %v, got %v", want, state.Positions())
	}
	if state.TotalTurns != rounds*16 {
		t.Errorf("Expected %d cumulative turns, got %d", rounds*16, state.TotalTurns)
	}
}

func hasEvent(events []service.GameEvent, kind string) bool {
	for _, ev := range events {
		if ev.Type == kind {
			return true
		}
	}
	return false
}
