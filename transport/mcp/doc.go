// Package mcp exposes the Ludo engine to AI agents over the Model Context
// Protocol.
//
// The client is thin: every tool call is proxied to the REST API, so an
// agent and a browser looking at the same session see the same state.
//
// MCP Tools:
//   - create_session: New session with optional config_id and players
//   - list_sessions, get_session: Session lookups
//   - game_state: Token positions for every seated player
//   - play_turn: Apply one (player, roll) pair
//   - play_turns: Apply a "A:6,A:4,B:6" sequence
//   - reset_game: Send every token back Home
//   - turn_history: Paginated turn log
//   - player_info: Spaces, statuses and step counts for one player
//   - space_name: Space reached N steps past Ready
//   - list_configs: Available rule sets
//   - game_instructions: Full rules text
//
// Usage:
//
//	client := mcp.NewClient("http://localhost:8080")
//	server.ServeStdio(client.GetMCPServer())
package mcp
