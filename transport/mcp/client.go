package mcp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/wricardo/ludo-engine/game/engine"
	"github.com/wricardo/ludo-engine/game/service"
)

// Client is a thin MCP client that proxies to the REST API
type Client struct {
	baseURL    string
	httpClient *http.Client
	mcpServer  *server.MCPServer
}

// NewClient creates a new MCP client that calls the REST API
func NewClient(baseURL string) *Client {
	c := &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}

	c.initMCPServer()
	return c
}

// initMCPServer initializes the MCP server with all tools
func (c *Client) initMCPServer() {
	c.mcpServer = server.NewMCPServer(
		"Ludo Engine",
		"1.0.0",
		server.WithToolCapabilities(true),
		server.WithInstructions(`Ludo Engine - MCP Interface

This is a thin client that proxies all requests to the REST API server.

GAME OBJECTIVE:
Each seated player (A, B, C, D) moves two tokens, p and q, from Home to End.
You supply every (player, roll) pair; the engine decides which token moves.

AVAILABLE TOOLS:
- create_session: Create a new game with an optional roster and config
- list_sessions: List all active sessions
- get_session: Get session details
- game_state: Get current token positions
- play_turn: Apply one (player, roll) turn
- play_turns: Apply a batch of turns, e.g. "A:6,A:4,B:6"
- reset_game: Send every token back Home
- turn_history: View past turns
- player_info: Spaces and step counts for one player's tokens
- space_name: Which space a player reaches N steps past Ready
- list_configs: List available rule sets
- game_instructions: Get the full rules`),
	)

	c.registerTools()
}

func sessionProperty() map[string]interface{} {
	return map[string]interface{}{
		"type":        "string",
		"description": "Session ID",
	}
}

func playerProperty() map[string]interface{} {
	return map[string]interface{}{
		"type":        "string",
		"enum":        []string{"A", "B", "C", "D"},
		"description": "Player seat",
	}
}

// registerTools registers all MCP tools
func (c *Client) registerTools() {
	// Session management
	c.mcpServer.AddTool(mcp.Tool{
		Name:        "create_session",
		Description: "Create a new game session with optional roster and config selection",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"config_id": map[string]interface{}{
					"type":        "string",
					"description": "Config to use (optional, defaults to classic)",
				},
				"players": map[string]interface{}{
					"type":        "array",
					"items":       map[string]interface{}{"type": "string"},
					"description": "Seated players, e.g. [\"A\",\"C\"] (optional, defaults to the config's roster)",
				},
			},
		},
	}, c.handleCreateSession)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "list_sessions",
		Description: "List all active game sessions",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}, c.handleListSessions)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "get_session",
		Description: "Get details of a specific session",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{"session_id": sessionProperty()},
			Required:   []string{"session_id"},
		},
	}, c.handleGetSession)

	// Game operations
	c.mcpServer.AddTool(mcp.Tool{
		Name:        "game_state",
		Description: "Get the current game state",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{"session_id": sessionProperty()},
			Required:   []string{"session_id"},
		},
	}, c.handleGameState)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "play_turn",
		Description: "Apply one die roll for a player. The engine picks the move.",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"session_id": sessionProperty(),
				"player":     playerProperty(),
				"roll": map[string]interface{}{
					"type":        "integer",
					"minimum":     engine.MinRoll,
					"maximum":     engine.MaxRoll,
					"description": "Die roll",
				},
				"reset": map[string]interface{}{
					"type":        "boolean",
					"description": "Reset before playing",
				},
			},
			Required: []string{"session_id", "player", "roll"},
		},
	}, c.handlePlayTurn)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "play_turns",
		Description: "Apply a sequence of turns in order. Stops at the first rejected turn.",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"session_id": sessionProperty(),
				"sequence": map[string]interface{}{
					"type":        "string",
					"description": "Comma separated PLAYER:ROLL pairs, e.g. \"A:6,A:4,B:6\"",
				},
				"reset": map[string]interface{}{
					"type":        "boolean",
					"description": "Reset before playing",
				},
			},
			Required: []string{"session_id", "sequence"},
		},
	}, c.handlePlayTurns)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "reset_game",
		Description: "Reset the game to initial state",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{"session_id": sessionProperty()},
			Required:   []string{"session_id"},
		},
	}, c.handleReset)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "turn_history",
		Description: "Get turn history for a session",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"session_id": sessionProperty(),
				"page": map[string]interface{}{
					"type":        "integer",
					"description": "Page number",
				},
				"limit": map[string]interface{}{
					"type":        "integer",
					"description": "Items per page",
				},
			},
			Required: []string{"session_id"},
		},
	}, c.handleTurnHistory)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "player_info",
		Description: "Get a player's token spaces, statuses and step counts",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"session_id": sessionProperty(),
				"player":     playerProperty(),
			},
			Required: []string{"session_id", "player"},
		},
	}, c.handlePlayerInfo)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "space_name",
		Description: "Name the space a player's token reaches after the given number of steps from Ready",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"session_id": sessionProperty(),
				"player":     playerProperty(),
				"steps": map[string]interface{}{
					"type":        "integer",
					"description": "Steps past Ready (-1 is Home, 0 is Ready, 57 is End)",
				},
			},
			Required: []string{"session_id", "player", "steps"},
		},
	}, c.handleSpaceName)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "list_configs",
		Description: "List available game configurations",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}, c.handleListConfigs)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "game_instructions",
		Description: "Get comprehensive game instructions and rules",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}, c.handleGameInstructions)
}

// GetMCPServer returns the underlying MCP server for serving
func (c *Client) GetMCPServer() *server.MCPServer {
	return c.mcpServer
}

// Helper methods for API calls

func (c *Client) apiCall(ctx context.Context, method, path string, body interface{}, result interface{}) error {
	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reqBody = bytes.NewBuffer(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return err
	}

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		var errResp map[string]string
		json.NewDecoder(resp.Body).Decode(&errResp)
		if msg, ok := errResp["error"]; ok {
			return fmt.Errorf("%s", msg)
		}
		return fmt.Errorf("API error: %d", resp.StatusCode)
	}

	if result != nil {
		return json.NewDecoder(resp.Body).Decode(result)
	}

	return nil
}

func arguments(request mcp.CallToolRequest) map[string]interface{} {
	args, _ := request.Params.Arguments.(map[string]interface{})
	return args
}

// wholeNumber reads a required integer argument. JSON numbers arrive as
// float64, so 4.5 or "4" are rejected rather than truncated.
func wholeNumber(args map[string]interface{}, name string) (int, error) {
	raw, ok := args[name]
	if !ok || raw == nil {
		return 0, fmt.Errorf("%s is required", name)
	}
	switch v := raw.(type) {
	case float64:
		if v != math.Trunc(v) || math.IsInf(v, 0) || v > math.MaxInt32 || v < math.MinInt32 {
			return 0, fmt.Errorf("%s must be a whole number, got %v", name, v)
		}
		return int(v), nil
	case int:
		return v, nil
	default:
		return 0, fmt.Errorf("%s must be a whole number, got %T", name, raw)
	}
}

func sessionPath(sessionID string, parts ...string) string {
	path := "/api/sessions/" + url.PathEscape(sessionID)
	for _, p := range parts {
		path += "/" + url.PathEscape(p)
	}
	return path
}

// Tool handlers

func (c *Client) handleCreateSession(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := arguments(request)

	body := map[string]interface{}{}
	if configID, _ := args["config_id"].(string); configID != "" {
		body["config_id"] = configID
	}
	if raw, ok := args["players"].([]interface{}); ok {
		players := make([]string, 0, len(raw))
		for _, p := range raw {
			if s, ok := p.(string); ok {
				players = append(players, s)
			}
		}
		body["players"] = players
	}

	var session service.SessionInfo
	if err := c.apiCall(ctx, "POST", "/api/sessions", body, &session); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	result := fmt.Sprintf("Created session: %s\nConfig: %s\nPlayers: %s\n",
		session.ID, session.ConfigName, joinPlayers(session.Players))
	return mcp.NewToolResultText(result), nil
}

func (c *Client) handleListSessions(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var response struct {
		Count    int                   `json:"count"`
		Sessions []service.SessionInfo `json:"sessions"`
	}

	if err := c.apiCall(ctx, "GET", "/api/sessions", nil, &response); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	result := fmt.Sprintf("Active Sessions (%d):\n\n", response.Count)
	for _, s := range response.Sessions {
		result += fmt.Sprintf("- %s (Config: %s, Players: %s, Created: %s)\n",
			s.ID, s.ConfigName, joinPlayers(s.Players), s.CreatedAt.Format("15:04:05"))
	}

	return mcp.NewToolResultText(result), nil
}

func (c *Client) handleGetSession(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sessionID, _ := arguments(request)["session_id"].(string)

	var session service.SessionInfo
	if err := c.apiCall(ctx, "GET", sessionPath(sessionID), nil, &session); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(formatSessionInfo(&session)), nil
}

func (c *Client) handleGameState(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sessionID, _ := arguments(request)["session_id"].(string)

	var state engine.GameState
	if err := c.apiCall(ctx, "GET", sessionPath(sessionID, "state"), nil, &state); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(formatGameState(&state)), nil
}

func (c *Client) handlePlayTurn(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := arguments(request)
	sessionID, _ := args["session_id"].(string)
	player, _ := args["player"].(string)
	roll, err := wholeNumber(args, "roll")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	reset, _ := args["reset"].(bool)

	body := map[string]interface{}{
		"player": player,
		"roll":   roll,
		"reset":  reset,
	}

	var result service.TurnResult
	if err := c.apiCall(ctx, "POST", sessionPath(sessionID, "turn"), body, &result); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(formatTurnResult(&result)), nil
}

func (c *Client) handlePlayTurns(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := arguments(request)
	sessionID, _ := args["session_id"].(string)
	sequence, _ := args["sequence"].(string)
	reset, _ := args["reset"].(bool)

	body := map[string]interface{}{
		"sequence": sequence,
		"reset":    reset,
	}

	var result service.BatchTurnResult
	if err := c.apiCall(ctx, "POST", sessionPath(sessionID, "turns"), body, &result); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(formatBatchTurnResult(sessionID, &result)), nil
}

func (c *Client) handleReset(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sessionID, _ := arguments(request)["session_id"].(string)

	var response struct {
		Message string            `json:"message"`
		State   *engine.GameState `json:"state"`
	}

	if err := c.apiCall(ctx, "POST", sessionPath(sessionID, "reset"), nil, &response); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	result := fmt.Sprintf("%s\n\n%s", response.Message, formatGameState(response.State))
	return mcp.NewToolResultText(result), nil
}

func (c *Client) handleTurnHistory(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := arguments(request)
	sessionID, _ := args["session_id"].(string)

	params := url.Values{}
	if page, ok := args["page"].(float64); ok {
		params.Set("page", fmt.Sprintf("%d", int(page)))
	}
	if limit, ok := args["limit"].(float64); ok {
		params.Set("limit", fmt.Sprintf("%d", int(limit)))
	}

	path := sessionPath(sessionID, "history")
	if len(params) > 0 {
		path += "?" + params.Encode()
	}

	var history service.HistoryResponse
	if err := c.apiCall(ctx, "GET", path, nil, &history); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(formatHistory(&history)), nil
}

func (c *Client) handlePlayerInfo(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := arguments(request)
	sessionID, _ := args["session_id"].(string)
	player, _ := args["player"].(string)

	var info engine.PlayerInfo
	if err := c.apiCall(ctx, "GET", sessionPath(sessionID, "players", player), nil, &info); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(formatPlayerInfo(&info)), nil
}

func (c *Client) handleSpaceName(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := arguments(request)
	sessionID, _ := args["session_id"].(string)
	player, _ := args["player"].(string)
	steps, err := wholeNumber(args, "steps")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	path := fmt.Sprintf("%s?steps=%d", sessionPath(sessionID, "players", player, "space"), steps)

	var result service.SpaceNameResult
	if err := c.apiCall(ctx, "GET", path, nil, &result); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	text := fmt.Sprintf("Player %s, %d steps from Ready: %s", result.Player, result.Steps, result.Space)
	return mcp.NewToolResultText(text), nil
}

func (c *Client) handleListConfigs(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var configs []service.ConfigInfo
	if err := c.apiCall(ctx, "GET", "/api/configs", nil, &configs); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	result := "Available Configurations:\n\n"
	for _, cfg := range configs {
		result += fmt.Sprintf("• %s\n  %s\n  Players: %s, Kick scan: %s\n\n",
			cfg.ConfigID, cfg.Description, joinPlayers(cfg.Players), cfg.KickScan)
	}

	return mcp.NewToolResultText(result), nil
}

func (c *Client) handleGameInstructions(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	instructions := `Ludo Engine - Complete Instructions

GAME OBJECTIVE:
Bring both of a player's tokens (p and q) from Home into End. The game is
over when every seated player has both tokens in End.

THE BOARD:
Every player walks the same 56-space ring from a different start space,
then turns into a private 6-space home stretch.
• H: Home, where tokens start and return when kicked
• R: Ready, the launch space reached by rolling a 6
• 1..56: shared ring spaces
• A1..A6, B1..B6, ...: a player's private home stretch
• E: End, 57 steps past Ready

TURNS:
You supply (player, roll) pairs in any order; rolls are 1 to 6. The engine
chooses the move. In priority order it will:
1. On a 6, release a Home token to Ready
2. Finish a token that lands exactly on End
3. Kick an opponent token sitting on the landing space
4. Advance the token that is further behind
A stacked pair (both tokens on one space) moves together. Tokens that would
overshoot End bounce back by the excess.

KICKS:
A token landing on an opponent's token sends it back Home. Configs pick
whether only the first opponent in seat order is checked (first_opponent)
or every opponent (all_opponents).

TOOLS:
• create_session {config_id?, players?}
• play_turn {session_id, player, roll}
• play_turns {session_id, sequence: "A:6,A:4,B:6"}
• game_state / player_info / space_name for lookups
• turn_history for a paginated log, reset_game to start over

A rejected turn (unknown player, roll outside 1..6) leaves the game untouched.
In a batch, play stops at the rejected turn and earlier turns are kept.`

	return mcp.NewToolResultText(instructions), nil
}

// Formatting helpers

func joinPlayers(ids []engine.PlayerID) string {
	if len(ids) == 0 {
		return "-"
	}
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = string(id)
	}
	return strings.Join(parts, ",")
}

func formatSessionInfo(session *service.SessionInfo) string {
	return fmt.Sprintf("Session: %s\nConfig: %s\nPlayers: %s\nCreated: %s\n\n%s",
		session.ID, session.ConfigName, joinPlayers(session.Players),
		session.CreatedAt.Format("2006-01-02 15:04:05"),
		formatGameState(session.GameState))
}

func formatGameState(state *engine.GameState) string {
	if state == nil {
		return "No game state available"
	}

	var result strings.Builder
	result.WriteString(fmt.Sprintf("Config: %s | Turns: %d\n\n", state.ConfigName, state.TotalTurns))

	for _, p := range state.Players {
		done := ""
		if p.Completed {
			done = "  (done)"
		}
		result.WriteString(fmt.Sprintf("%s  p=%-3s q=%-3s%s\n", p.ID, p.P.Space, p.Q.Space, done))
	}

	if len(state.Finishers) > 0 {
		result.WriteString(fmt.Sprintf("\nFinished: %s\n", joinPlayers(state.Finishers)))
	}
	if state.GameOver {
		result.WriteString("\nGAME OVER")
	}
	if state.Message != "" {
		result.WriteString(fmt.Sprintf("\nMessage: %s", state.Message))
	}

	return result.String()
}

func formatTurnLine(rec *engine.TurnRecord) string {
	line := fmt.Sprintf("#%d %s:%d %s  p %s→%s  q %s→%s",
		rec.TurnNumber, rec.Player, rec.Roll, rec.Rule,
		rec.From.P, rec.To.P, rec.From.Q, rec.To.Q)
	for _, k := range rec.Kicked {
		line += fmt.Sprintf("  kicked %s%s@%s", k.Player, k.Token, k.From)
	}
	return line + "\n"
}

func formatTurnResult(result *service.TurnResult) string {
	response := "✓ Turn applied\n"
	if !result.Success {
		response = "• No move possible\n"
	}

	if result.Turn != nil {
		response += formatTurnLine(result.Turn)
	}

	if len(result.Events) > 0 {
		response += "Events:\n"
		for _, event := range result.Events {
			response += fmt.Sprintf("- %s: %s\n", event.Type, event.Message)
		}
	}

	response += "\n" + formatGameState(result.GameState)
	return response
}

func formatBatchTurnResult(sessionID string, result *service.BatchTurnResult) string {
	var b strings.Builder

	b.WriteString(fmt.Sprintf("Session: %s\n", sessionID))
	b.WriteString(fmt.Sprintf("Executed %d/%d turns, %d kicks\n", result.TurnsExecuted, result.RequestedTurns, result.Kicks))
	if result.Truncated {
		b.WriteString(fmt.Sprintf("Truncated to %d turns\n", result.Limit))
	}
	if result.StoppedReason != "" {
		b.WriteString(fmt.Sprintf("Stopped on turn %d: %s\n", result.StoppedOnTurn, result.StoppedReason))
	}
	b.WriteString(fmt.Sprintf("Start: %s\nEnd:   %s\n",
		strings.Join(result.StartPositions, " "), strings.Join(result.EndPositions, " ")))

	if len(result.Turns) > 0 {
		b.WriteString("\nTurns (this call):\n")
		for i := range result.Turns {
			b.WriteString(formatTurnLine(&result.Turns[i]))
		}
	}

	b.WriteString("\n")
	b.WriteString(formatGameState(result.GameState))
	return b.String()
}

func formatPlayerInfo(info *engine.PlayerInfo) string {
	return fmt.Sprintf("Player %s (start space %d)\n  p: %s %s, %d steps\n  q: %s %s, %d steps\nStacked: %v, Completed: %v\n",
		info.ID, info.StartSpace,
		info.P, info.StatusP, info.StepsP,
		info.Q, info.StatusQ, info.StepsQ,
		info.Stacked, info.Completed)
}

func formatHistory(history *service.HistoryResponse) string {
	result := fmt.Sprintf("Turn History (Page %d/%d) Total: %d\n\n",
		history.Page, history.TotalPages, history.TotalTurns)

	for i := range history.Turns {
		result += formatTurnLine(&history.Turns[i])
	}

	return result
}
