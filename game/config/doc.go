// Package config provides configuration management for the Ludo engine.
//
// Game configurations are stored as JSON files in the configs directory.
// Each configuration defines:
//   - The default roster of seated players
//   - The kick scan (first_opponent or all_opponents)
//   - Message templates for releases, moves, kicks and finishes
//
// Usage:
//
//	manager, err := config.NewManager("configs")
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	gameConfig, err := manager.LoadConfig("all_opponents")
//	defaultConfig := manager.GetDefault()
//	configs, err := manager.ListConfigs()
//
// When classic.json is missing the manager falls back to the first valid
// file, and to the built-in classic rules when the directory has none.
package config
