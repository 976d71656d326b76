// Command validate provides a small CLI that validates game configuration JSON
// files in the ../configs directory (or the directory given as the first
// argument). It checks:
//   - JSON structure and required fields
//   - Roster: known seats, no duplicates, at least one player
//   - Kick scan mode
//   - Message keys and their format verbs
//   - Board walk: every seated player reaches End in exactly 57 steps
//     through their own home stretch
//   - Smoke game: a short scripted game plays cleanly under the config
package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/wricardo/ludo-engine/game/engine"
)

// Config mirrors the JSON schema for a game configuration.
type Config struct {
	Name        string            `json:"name"`
	Description string            `json:"description"`
	Players     []string          `json:"players"`
	KickScan    string            `json:"kick_scan"`
	Messages    map[string]string `json:"messages"`
}

// ValidationResult captures the outcome of validating a single file.
// If Valid is true, Errors contains informational messages; otherwise it
// accumulates the validation errors that were found.
type ValidationResult struct {
	File   string
	Valid  bool
	Errors []string
}

func (r *ValidationResult) fail(format string, args ...interface{}) {
	r.Valid = false
	r.Errors = append(r.Errors, fmt.Sprintf(format, args...))
}

// requiredMessages maps each message key to the verbs its format must carry
var requiredMessages = map[string][]string{
	"welcome":   nil,
	"released":  {"%s"},
	"moved":     {"%s"},
	"kicked":    {"%s"},
	"finished":  {"%s"},
	"completed": {"%s"},
	"no_move":   {"%s", "%d"},
	"game_over": nil,
}

// validateConfig loads and validates a single configuration JSON file.
func validateConfig(filePath string) ValidationResult {
	result := ValidationResult{
		File:   filepath.Base(filePath),
		Valid:  true,
		Errors: []string{},
	}

	data, err := os.ReadFile(filePath)
	if err != nil {
		result.fail("Failed to read file: %v", err)
		return result
	}

	var config Config
	if err := json.Unmarshal(data, &config); err != nil {
		result.fail("Invalid JSON: %v", err)
		return result
	}

	if config.Name == "" {
		result.fail("name is required")
	}
	if config.Description == "" {
		result.fail("description is required")
	}

	// Validate roster
	var roster []engine.PlayerID
	if len(config.Players) == 0 {
		result.fail("Must seat at least 1 player")
	}
	seen := map[engine.PlayerID]bool{}
	for _, raw := range config.Players {
		id, err := engine.ParsePlayerID(raw)
		if err != nil {
			result.fail("Unknown player %q (seats are %v)", raw, engine.Catalog())
			continue
		}
		if seen[id] {
			result.fail("Player %s listed twice", id)
			continue
		}
		seen[id] = true
		roster = append(roster, id)
	}

	if config.KickScan != "" && !engine.KickScan(config.KickScan).Valid() {
		result.fail("kick_scan must be %q or %q, got %q",
			engine.KickScanFirstOpponent, engine.KickScanAllOpponents, config.KickScan)
	}

	// Validate messages
	for _, key := range sortedKeys(requiredMessages) {
		msg, exists := config.Messages[key]
		if !exists || msg == "" {
			result.fail("Missing required message: %s", key)
			continue
		}
		for _, verb := range requiredMessages[key] {
			if !strings.Contains(msg, verb) {
				result.fail("Message %s must contain %s", key, verb)
			}
		}
	}

	// Board and smoke checks need a sane roster
	if result.Valid {
		boardResult := validateBoards(roster)
		if !boardResult.Valid {
			result.Valid = false
		}
		result.Errors = append(result.Errors, boardResult.Errors...)
	}

	if result.Valid {
		smoke := smokeGame(filePath, roster)
		if !smoke.Valid {
			result.Valid = false
		}
		result.Errors = append(result.Errors, smoke.Errors...)
	}

	// Add informational data
	if result.Valid {
		scan := config.KickScan
		if scan == "" {
			scan = string(engine.KickScanFirstOpponent) + " (default)"
		}
		result.Errors = append(result.Errors, fmt.Sprintf("✓ Name: %s", config.Name))
		result.Errors = append(result.Errors, fmt.Sprintf("✓ Players: %s", strings.Join(config.Players, ",")))
		result.Errors = append(result.Errors, fmt.Sprintf("✓ Kick scan: %s", scan))
	}

	return result
}

// validateBoards walks each seated player's table from Ready and checks that
// End is exactly EndStep steps away and that the last six track spaces are
// the player's own home stretch.
func validateBoards(roster []engine.PlayerID) ValidationResult {
	result := ValidationResult{
		Valid:  true,
		Errors: []string{},
	}

	for _, id := range roster {
		board, err := engine.BoardFor(id)
		if err != nil {
			result.fail("Player %s has no board: %v", id, err)
			continue
		}

		end, err := board.SpaceName(engine.EndStep)
		if err != nil || end != engine.EndSpace {
			result.fail("Player %s: %d steps from Ready lands on %v, not End", id, engine.EndStep, end)
			continue
		}

		for n := 1; n <= engine.StretchSpaces; n++ {
			step := engine.EndStep - engine.StretchSpaces - 1 + n
			space, err := board.SpaceName(step)
			if err != nil || space != engine.StretchSpace(id, n) {
				result.fail("Player %s: step %d is %v, expected %s", id, step, space, engine.StretchSpace(id, n))
			}
		}
	}

	if result.Valid {
		result.Errors = append(result.Errors, fmt.Sprintf("✓ Boards: %d players reach End in %d steps", len(roster), engine.EndStep))
	}

	return result
}

// smokeGame releases and advances every seated player once under the
// config and checks the rendered messages have no formatting errors
func smokeGame(filePath string, roster []engine.PlayerID) ValidationResult {
	result := ValidationResult{
		Valid:  true,
		Errors: []string{},
	}

	cfg, err := engine.LoadGameConfig(filePath)
	if err != nil {
		result.fail("Engine rejected config: %v", err)
		return result
	}

	eng, err := engine.NewEngine(cfg, roster)
	if err != nil {
		result.fail("Cannot start game: %v", err)
		return result
	}

	for _, id := range roster {
		for _, roll := range []int{1, 6, 5} {
			if _, err := eng.ApplyTurn(id, roll); err != nil {
				result.fail("Smoke turn %s:%d failed: %v", id, roll, err)
				return result
			}
			if msg := eng.GetState().Message; strings.Contains(msg, "%!") {
				result.fail("Bad message after %s:%d: %q", id, roll, msg)
			}
		}
	}

	if result.Valid {
		result.Errors = append(result.Errors, fmt.Sprintf("✓ Smoke game: %s", strings.Join(eng.Positions(), " ")))
	}

	return result
}

func sortedKeys(m map[string][]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// main scans the config directory for *.json files and validates each one,
// printing a concise report and exiting with non-zero status if any are
// invalid.
func main() {
	configDir := "../configs"
	if len(os.Args) > 1 {
		configDir = os.Args[1]
	}

	files, err := filepath.Glob(filepath.Join(configDir, "*.json"))
	if err != nil {
		fmt.Printf("Error finding config files: %v\n", err)
		os.Exit(1)
	}

	allValid := true
	for _, file := range files {
		result := validateConfig(file)

		fmt.Printf("\n%s %s\n", strings.Repeat("=", 20), result.File)

		if result.Valid {
			fmt.Println("✅ VALID")
			for _, info := range result.Errors {
				fmt.Println("  " + info)
			}
		} else {
			fmt.Println("❌ INVALID")
			allValid = false
			for _, err := range result.Errors {
				if !strings.HasPrefix(err, "✓") {
					fmt.Println("  ❌ " + err)
				}
			}
		}
	}

	fmt.Printf("\n%s\n", strings.Repeat("=", 40))
	if allValid {
		fmt.Println("✅ All configurations are valid!")
	} else {
		fmt.Println("❌ Some configurations have errors")
		os.Exit(1)
	}
}
