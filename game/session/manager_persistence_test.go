package session

import (
	"reflect"
	"testing"
	"time"

	"github.com/wricardo/ludo-engine/game/engine"
)

func TestManagerWithPersistence(t *testing.T) {
	configManager := newConfigManager(t)

	for name, persistence := range persistenceBackends(t, configManager) {
		t.Run(name, func(t *testing.T) {
			manager := NewManagerWithPersistence(persistence)
			gameConfig := configManager.GetDefault()

			t.Run("Create Session Auto-Saves", func(t *testing.T) {
				session, err := manager.Create("auto1", gameConfig, []engine.PlayerID{engine.PlayerA, engine.PlayerC})
				if err != nil {
					t.Fatalf("Failed to create session: %v", err)
				}

				if !persistence.Exists(session.ID) {
					t.Error("Session should be auto-saved on creation")
				}

				loaded, err := persistence.Load(session.ID)
				if err != nil {
					t.Fatalf("Failed to load auto-saved session: %v", err)
				}
				if !reflect.DeepEqual(loaded.Engine.Roster(), []engine.PlayerID{engine.PlayerA, engine.PlayerC}) {
					t.Errorf("Expected roster [A C], got %v", loaded.Engine.Roster())
				}
			})

			t.Run("Get Session Loads from Persistence", func(t *testing.T) {
				// New manager simulates a restart with nothing in memory
				manager2 := NewManagerWithPersistence(persistence)

				session, err := manager2.Get("auto1")
				if err != nil {
					t.Fatalf("Failed to get session from persistence: %v", err)
				}

				session2, err := manager2.Get("auto1")
				if err != nil {
					t.Fatalf("Failed to get session from memory: %v", err)
				}
				if session2 != session {
					t.Error("Session should be cached in memory after loading from persistence")
				}
			})

			t.Run("Save Method Persists Changes", func(t *testing.T) {
				session, err := manager.Get("auto1")
				if err != nil {
					t.Fatalf("Failed to get session: %v", err)
				}

				if _, err := session.Engine.ApplyTurn(engine.PlayerC, 6); err != nil {
					t.Fatalf("ApplyTurn failed: %v", err)
				}

				if err := manager.Save("auto1"); err != nil {
					t.Fatalf("Failed to save session: %v", err)
				}

				manager3 := NewManagerWithPersistence(persistence)
				loaded, err := manager3.Get("auto1")
				if err != nil {
					t.Fatalf("Failed to load session after manual save: %v", err)
				}

				if want := []string{"H", "H", "R", "H"}; !reflect.DeepEqual(loaded.Engine.Positions(), want) {
					t.Errorf("Expected positions %v, got %v", want, loaded.Engine.Positions())
				}
				if len(loaded.Engine.GetTurnHistory()) != 1 {
					t.Error("Turn history should be persisted")
				}
			})

			t.Run("Delete Removes from Persistence", func(t *testing.T) {
				session, err := manager.Create("delete_test", gameConfig, nil)
				if err != nil {
					t.Fatalf("Failed to create session: %v", err)
				}

				if err := manager.Delete(session.ID); err != nil {
					t.Fatalf("Failed to delete session: %v", err)
				}
				if persistence.Exists(session.ID) {
					t.Error("Session should be removed from persistence on delete")
				}
				if _, err := manager.Get(session.ID); err == nil {
					t.Error("Should not be able to get deleted session")
				}
			})

			t.Run("Load Persisted Sessions on Startup", func(t *testing.T) {
				ids := []string{"startup1", "startup2", "startup3"}
				for _, id := range ids {
					if _, err := manager.Create(id, gameConfig, nil); err != nil {
						t.Fatalf("Failed to create session %s: %v", id, err)
					}
				}

				manager4 := NewManagerWithPersistence(persistence)
				if err := manager4.LoadPersistedSessions(); err != nil {
					t.Fatalf("Failed to load persisted sessions: %v", err)
				}

				for _, id := range ids {
					session, err := manager4.Get(id)
					if err != nil {
						t.Fatalf("Failed to get session %s after loading persisted sessions: %v", id, err)
					}
					if session.ID != id {
						t.Errorf("Expected ID %s, got %s", id, session.ID)
					}
				}

				// auto1 plus the three startup sessions
				if manager4.Count() != 4 {
					t.Errorf("Expected 4 sessions, got %d", manager4.Count())
				}
			})

			t.Run("Update Last Accessed Persists", func(t *testing.T) {
				session, err := manager.Get("startup1")
				if err != nil {
					t.Fatalf("Failed to get session: %v", err)
				}

				originalTime := session.LastAccessedAt
				time.Sleep(10 * time.Millisecond)

				if err := manager.UpdateLastAccessed("startup1"); err != nil {
					t.Fatalf("Failed to update last accessed: %v", err)
				}

				manager5 := NewManagerWithPersistence(persistence)
				loaded, err := manager5.Get("startup1")
				if err != nil {
					t.Fatalf("Failed to load session: %v", err)
				}
				if !loaded.LastAccessedAt.After(originalTime) {
					t.Error("Last accessed time should be updated and persisted")
				}
			})
		})
	}
}
