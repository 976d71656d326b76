// Package service provides the business logic layer for the Ludo engine.
//
// The service package implements:
//   - Multi-session game management
//   - Configuration management and loading
//   - Turn processing, single and batched
//   - Turn history paging
//
// Core Interfaces:
//
// GameService is the main service interface providing high-level game operations.
// SessionManager handles session creation, retrieval, and lifecycle.
// ConfigManager manages game configuration loading and validation.
//
// Architecture:
//
// The service layer sits between the transport layer (HTTP/WebSocket/MCP) and
// the rules engine. Each session owns its own engine instance, so sessions
// never share token positions.
//
// Usage:
//
//	sessionMgr := session.NewManager()
//	configMgr := config.NewManager("configs")
//	gameService := service.NewGameService(sessionMgr, configMgr)
//
//	info, err := gameService.CreateSession(ctx, "classic", []engine.PlayerID{"A", "C"})
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	result, err := gameService.PlayTurn(ctx, info.ID, engine.Turn{Player: "A", Roll: 6}, false)
//
// Batches stop at the first rejected turn and report it through
// BatchTurnResult.StopReasonCode rather than an error, so callers keep the
// turns that did apply.
package service
