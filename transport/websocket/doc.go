// Package websocket provides live session updates over WebSocket.
//
// A central Hub owns every connection. Clients subscribe to one session with
// /ws?session=<id> and only receive messages for that session. The hub never
// reads commands from clients; turns go through the REST API or MCP.
//
// Message Protocol:
//
// Every message is a JSON Message:
//   - state_update carries the full GameState, plus the TurnRecord when a
//     turn caused it
//   - kick carries KickData for each token sent back Home
//   - finish carries FinishData for each token that reached End
//   - game_over carries the finishing order
//
// Several queued messages may share one frame, separated by newlines.
//
// Usage:
//
//	hub := websocket.NewHub()
//	go hub.Run()
//
//	http.HandleFunc("/ws", func(w http.ResponseWriter, r *http.Request) {
//		hub.ServeWS(w, r, r.URL.Query().Get("session"))
//	})
//
//	hub.BroadcastTurn(sessionID, record, state)
package websocket
