// Package engine provides the core rules for a two-token, four-seat Ludo game.
//
// The engine package implements:
//   - Per-player track tables (Home, Ready, the shared loop, a private
//     six-space stretch and End)
//   - Token movement with bounce-back off End
//   - Kick detection and resolution against opponent tokens
//   - The token-selection priority policy applied on every turn
//   - Game state, turn history and configuration loading
//
// Core Types:
//
// The Engine interface defines the main contract for game operations,
// implemented by GameEngine. GameState holds the seated players and turn
// history, while GameConfig names a rule set loaded from JSON files.
//
// Usage:
//
//	gameEngine, err := engine.NewEngineWithDefaults([]engine.PlayerID{engine.PlayerA, engine.PlayerB})
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	record, err := gameEngine.ApplyTurn(engine.PlayerA, 6)
//	if err != nil {
//		log.Fatal(err)
//	}
//	fmt.Println(record.Rule, gameEngine.Positions())
//
// Game Rules:
//
// Dice rolls are inputs; the engine never generates them. A token leaves Home
// only on a 6 and lands on Ready. Each turn the priority policy picks one
// action: release a token, finish a token with an exact roll, kick an
// opponent back Home, or advance the trailing token. A player whose two
// tokens are in End is complete and ignores further turns.
package engine
