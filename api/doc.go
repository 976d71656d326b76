// Package api provides HTTP REST API handlers for the Ludo engine.
//
// The api package implements:
//   - Session management endpoints
//   - Turn application, single and batched
//   - Turn history with pagination
//   - Player and space lookups
//   - Configuration listing and creation
//   - WebSocket upgrade handling
//
// Endpoints:
//
// Session Management:
//   - POST /api/sessions - Create a session {config_id, players}
//   - GET /api/sessions - List sessions (sort, order, limit)
//   - GET /api/sessions/unified - Positions across several sessions
//   - GET /api/sessions/{id} - Get a session
//   - DELETE /api/sessions/{id} - Delete a session
//
// Game Operations:
//   - GET /api/sessions/{id}/state - Current game state
//   - POST /api/sessions/{id}/turn - Apply one turn
//   - POST /api/sessions/{id}/turns - Apply a batch of turns
//   - POST /api/sessions/{id}/reset - Send every token back Home
//   - GET /api/sessions/{id}/history - Paginated turn history
//   - GET /api/sessions/{id}/players/{player} - Token spaces and step counts
//   - GET /api/sessions/{id}/players/{player}/space?steps=N - Space N steps from Ready
//
// Configuration:
//   - GET /api/configs - List available configurations
//   - POST /api/configs - Save a configuration
//   - GET /api/configs/{name} - Get one configuration
//
// A turn is sent as:
//
//	{"player": "A", "roll": 6, "reset": false}
//
// A batch accepts structured turns, a compact sequence, or both (turns
// first):
//
//	{"turns": [{"player": "A", "roll": 6}], "sequence": "A:4,B:6"}
//
// Batches stop at the first rejected turn and report stop_reason_code
// "invalid_turn" with the 1-based stopped_on_turn.
//
// Error Handling:
//
// Errors are returned as JSON {"error": "..."}. Unknown sessions and
// configs give 404, rejected turns or lookups give 400, everything else 500.
package api
