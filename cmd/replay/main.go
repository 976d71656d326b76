// Command replay plays a fixed list of turns through the engine and prints
// where every token ended up, which players completed and how far each token
// has travelled. It also tallies kicks dealt and received per player, which
// helps when comparing kick scan modes on the same script.
//
//	replay --players A,B --turns A:6,A:4,B:6 [--all-opponents] [--json]
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/urfave/cli/v3"
	"github.com/wricardo/ludo-engine/game/engine"
)

// PlayerReport summarizes one seated player after the replay
type PlayerReport struct {
	ID        engine.PlayerID `json:"id"`
	P         string          `json:"p"`
	Q         string          `json:"q"`
	StepsP    int             `json:"steps_p"`
	StepsQ    int             `json:"steps_q"`
	Completed bool            `json:"completed"`
	KicksMade int             `json:"kicks_made"`
	KickedBy  int             `json:"times_kicked"`
}

// Report is the full replay outcome
type Report struct {
	Config    string            `json:"config"`
	KickScan  engine.KickScan   `json:"kick_scan"`
	Turns     int               `json:"turns"`
	NoMoves   int               `json:"no_moves"`
	Positions []string          `json:"positions"`
	Players   []PlayerReport    `json:"players"`
	Finishers []engine.PlayerID `json:"finishers"`
	GameOver  bool              `json:"game_over"`
}

func newCommand() *cli.Command {
	return &cli.Command{
		Name:      "replay",
		Usage:     "replay a list of (player, roll) turns and report the final board",
		ArgsUsage: "[PLAYER:ROLL ...]",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "players",
				Aliases: []string{"p"},
				Usage:   "comma separated roster, defaults to the config's players",
			},
			&cli.StringFlag{
				Name:    "turns",
				Aliases: []string{"t"},
				Usage:   "comma separated PLAYER:ROLL turns, e.g. A:6,A:4,B:6",
			},
			&cli.StringFlag{
				Name:  "config",
				Usage: "path to a game config JSON file",
			},
			&cli.BoolFlag{
				Name:  "all-opponents",
				Usage: "check every opponent when detecting kicks",
			},
			&cli.BoolFlag{
				Name:  "json",
				Usage: "print the report as JSON",
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			cfg := engine.DefaultGameConfig()
			if path := cmd.String("config"); path != "" {
				loaded, err := engine.LoadGameConfig(path)
				if err != nil {
					return fmt.Errorf("load config %s: %w", path, err)
				}
				cfg = loaded
			}
			if cmd.Bool("all-opponents") {
				cfg.KickScan = engine.KickScanAllOpponents
			}

			var roster []engine.PlayerID
			if raw := cmd.String("players"); raw != "" {
				var err error
				roster, err = engine.ParseRoster([]string{raw})
				if err != nil {
					return fmt.Errorf("players: %w", err)
				}
			}

			sequence := cmd.String("turns")
			if rest := cmd.Args().Slice(); len(rest) > 0 {
				sequence = strings.Join(append([]string{sequence}, rest...), ",")
			}
			turns, err := engine.ParseTurns(sequence)
			if err != nil {
				return err
			}

			report, err := replay(cfg, roster, turns)
			if err != nil {
				return err
			}

			if cmd.Bool("json") {
				enc := json.NewEncoder(cmd.Writer)
				enc.SetIndent("", "  ")
				return enc.Encode(report)
			}
			printReport(cmd.Writer, report)
			return nil
		},
	}
}

// replay applies turns in order and stops at the first rejected one
func replay(cfg *engine.GameConfig, roster []engine.PlayerID, turns []engine.Turn) (*Report, error) {
	eng, err := engine.NewEngine(cfg, roster)
	if err != nil {
		return nil, err
	}

	made := map[engine.PlayerID]int{}
	taken := map[engine.PlayerID]int{}
	noMoves := 0

	for i, t := range turns {
		rec, err := eng.ApplyTurn(t.Player, t.Roll)
		if err != nil {
			return nil, fmt.Errorf("turn %d (%s:%d): %w", i+1, t.Player, t.Roll, err)
		}
		if rec.Action == engine.ActionNone {
			noMoves++
		}
		for _, k := range rec.Kicked {
			made[rec.Player]++
			taken[k.Player]++
		}
	}

	state := eng.GetState()
	report := &Report{
		Config:    cfg.Name,
		KickScan:  cfg.KickScan,
		Turns:     len(turns),
		NoMoves:   noMoves,
		Positions: eng.Positions(),
		Finishers: state.Finishers,
		GameOver:  state.GameOver,
	}

	for _, id := range eng.Roster() {
		info, err := eng.PlayerInfo(id)
		if err != nil {
			return nil, err
		}
		report.Players = append(report.Players, PlayerReport{
			ID:        id,
			P:         info.P.String(),
			Q:         info.Q.String(),
			StepsP:    info.StepsP,
			StepsQ:    info.StepsQ,
			Completed: info.Completed,
			KicksMade: made[id],
			KickedBy:  taken[id],
		})
	}

	return report, nil
}

func printReport(w io.Writer, r *Report) {
	fmt.Fprintf(w, "Config: %s (kick scan %s), %d turns, %d without a move\n", r.Config, r.KickScan, r.Turns, r.NoMoves)
	fmt.Fprintf(w, "Final spaces: %s\n\n", strings.Join(r.Positions, " "))

	for _, p := range r.Players {
		fmt.Fprintf(w, "%s  p=%-3s (%2d steps)  q=%-3s (%2d steps)  completed=%-5v  kicks=%d kicked=%d\n",
			p.ID, p.P, p.StepsP, p.Q, p.StepsQ, p.Completed, p.KicksMade, p.KickedBy)
	}

	if len(r.Finishers) > 0 {
		ids := make([]string, len(r.Finishers))
		for i, id := range r.Finishers {
			ids[i] = string(id)
		}
		fmt.Fprintf(w, "\nFinished: %s\n", strings.Join(ids, ","))
	}
	if r.GameOver {
		fmt.Fprintln(w, "Game over")
	}
}

func main() {
	if err := newCommand().Run(context.Background(), os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "replay: %v\n", err)
		os.Exit(1)
	}
}
