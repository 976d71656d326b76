// Package session provides session management for the Ludo engine.
//
// The session package implements:
//   - Thread-safe session storage and retrieval
//   - Session ID generation
//   - Pluggable persistence (JSON files or SQLite)
//   - Session cleanup and expiration
//
// Core Types:
//
// Manager owns the live sessions. Each session wraps its own engine, so
// turns in one game never touch another.
//
// Session Identifiers:
//
// Generated IDs are the first group of a random UUID (8 hex characters).
// Lookups are case-insensitive.
//
// Persistence:
//
// FilePersistence writes one JSON document per session into a directory.
// SQLitePersistence stores the same document in a sessions table. Both
// restore the roster and full game state, so a restarted server continues
// every game where it left off.
//
// Usage:
//
//	store, err := session.NewSQLitePersistence("sessions.db", configManager)
//	if err != nil {
//		log.Fatal(err)
//	}
//	manager := session.NewManagerWithPersistence(store)
//	if err := manager.LoadPersistedSessions(); err != nil {
//		log.Printf("Warning: %v", err)
//	}
//
//	sess, err := manager.Create("", config, []engine.PlayerID{"A", "C"})
package session
