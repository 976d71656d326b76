package engine

import (
	"fmt"
	"slices"
	"time"
)

// token returns a pointer to the named token
func (ps *PlayerState) token(id TokenID) (*Token, error) {
	switch id {
	case TokenP:
		return &ps.P, nil
	case TokenQ:
		return &ps.Q, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrInvalidToken, id)
	}
}

// Board returns the player's track table
func (ps *PlayerState) Board() (*Board, error) {
	return BoardFor(ps.ID)
}

// StepCount returns the number of steps a token has taken from Ready
func (ps *PlayerState) StepCount(id TokenID) (int, error) {
	tok, err := ps.token(id)
	if err != nil {
		return 0, err
	}
	b, err := ps.Board()
	if err != nil {
		return 0, err
	}
	return b.StepCount(tok.Space)
}

// IsCompleted reports whether both tokens have reached End
func (ps *PlayerState) IsCompleted() bool {
	return ps.P.Space == EndSpace && ps.Q.Space == EndSpace
}

// IsStacked reports whether both tokens share a space out on the track
func (ps *PlayerState) IsStacked() bool {
	return ps.P.Space == ps.Q.Space && ps.P.Space != HomeSpace && ps.P.Space != ReadySpace
}

// Spaces snapshots both token spaces
func (ps *PlayerState) Spaces() TokenPair {
	return TokenPair{P: ps.P.Space, Q: ps.Q.Space}
}

// advance shifts a token by delta table slots without any bounce
func (ps *PlayerState) advance(id TokenID, delta int) error {
	tok, err := ps.token(id)
	if err != nil {
		return err
	}
	b, err := ps.Board()
	if err != nil {
		return err
	}

	from, err := b.IndexOf(tok.Space)
	if err != nil {
		return err
	}
	to := from + delta
	space, err := b.SpaceAt(to)
	if err != nil {
		return err
	}

	tok.Space = space
	tok.Status = statusAt(to)
	return nil
}

// move shifts a token by steps, bouncing back off End when the roll overshoots
func (ps *PlayerState) move(id TokenID, steps int) error {
	tok, err := ps.token(id)
	if err != nil {
		return err
	}
	b, err := ps.Board()
	if err != nil {
		return err
	}

	current, err := b.IndexOf(tok.Space)
	if err != nil {
		return err
	}
	return ps.advance(id, bounceDelta(current, steps))
}

// bounceDelta returns the effective delta for a move of steps from index.
// Overshooting the last stretch space reflects off End.
func bounceDelta(index, steps int) int {
	if index+steps > LastTrackIndex {
		return 2*(EndIndex-index) - steps
	}
	return steps
}

// kickHome sends a token back to Home
func (ps *PlayerState) kickHome(id TokenID) error {
	tok, err := ps.token(id)
	if err != nil {
		return err
	}
	tok.Space = HomeSpace
	tok.Status = StatusHome
	return nil
}

// statusAt derives the coarse token status from a table index
func statusAt(index int) TokenStatus {
	switch {
	case index == HomeIndex:
		return StatusHome
	case index == ReadyIndex:
		return StatusReady
	case index <= LastTrackIndex:
		return StatusOnBoard
	default:
		return StatusEnd
	}
}

// player returns the seated player with the given id
func (gs *GameState) player(id PlayerID) (*PlayerState, error) {
	for i := range gs.Players {
		if gs.Players[i].ID == id {
			return &gs.Players[i], nil
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrPlayerNotFound, id)
}

// Player returns a copy of a seated player's state
func (gs *GameState) Player(id PlayerID) (PlayerState, error) {
	ps, err := gs.player(id)
	if err != nil {
		return PlayerState{}, err
	}
	return *ps, nil
}

// Roster returns the seated player ids in catalog order
func (gs *GameState) Roster() []PlayerID {
	ids := make([]PlayerID, 0, len(gs.Players))
	for _, ps := range gs.Players {
		ids = append(ids, ps.ID)
	}
	return ids
}

// Positions returns p then q space names for every seated player
func (gs *GameState) Positions() []string {
	out := make([]string, 0, 2*len(gs.Players))
	for _, ps := range gs.Players {
		out = append(out, ps.P.Space.String(), ps.Q.Space.String())
	}
	return out
}

// Clone returns a deep copy that shares no slices with gs
func (gs *GameState) Clone() *GameState {
	if gs == nil {
		return nil
	}
	c := *gs
	c.Players = slices.Clone(gs.Players)
	c.Finishers = slices.Clone(gs.Finishers)
	c.TurnHistory = cloneRecords(gs.TurnHistory)
	c.CurrentTurns = cloneRecords(gs.CurrentTurns)
	return &c
}

// Clone returns a copy of the record with its own Moved and Kicked slices
func (r TurnRecord) Clone() TurnRecord {
	r.Moved = slices.Clone(r.Moved)
	r.Kicked = slices.Clone(r.Kicked)
	return r
}

func cloneRecords(records []TurnRecord) []TurnRecord {
	if records == nil {
		return nil
	}
	out := make([]TurnRecord, len(records))
	for i, r := range records {
		out[i] = r.Clone()
	}
	return out
}

// ApplyTurn resolves one (player, roll) turn through the priority rules
func (gs *GameState) ApplyTurn(id PlayerID, roll int, config *GameConfig) (*TurnRecord, error) {
	if roll < MinRoll || roll > MaxRoll {
		return nil, fmt.Errorf("%w: %d (must be %d-%d)", ErrInvalidRoll, roll, MinRoll, MaxRoll)
	}
	mover, err := gs.player(id)
	if err != nil {
		return nil, err
	}

	scan := KickScanFirstOpponent
	if config != nil && config.KickScan != "" {
		scan = config.KickScan
	}

	decision, err := gs.decide(mover, roll, scan)
	if err != nil {
		return nil, err
	}

	before := mover.Spaces()
	kicks, err := gs.apply(mover, decision)
	if err != nil {
		return nil, err
	}
	after := mover.Spaces()

	record := TurnRecord{
		Player:    id,
		Roll:      roll,
		Rule:      decision.Rule,
		Action:    decision.Action,
		Moved:     movedTokens(before, after),
		Kicked:    kicks,
		From:      before,
		To:        after,
		Completed: mover.IsCompleted(),
	}

	newlyDone := gs.refresh()
	gs.Message = turnMessage(&record, newlyDone, gs.GameOver, config)
	gs.AddTurnToHistory(record)

	last := gs.TurnHistory[len(gs.TurnHistory)-1]
	return &last, nil
}

// refresh recomputes completion flags and finish order, returning players
// that completed during this turn
func (gs *GameState) refresh() []PlayerID {
	var newlyDone []PlayerID
	allDone := len(gs.Players) > 0
	for i := range gs.Players {
		ps := &gs.Players[i]
		done := ps.IsCompleted()
		if done && !ps.Completed {
			newlyDone = append(newlyDone, ps.ID)
			gs.Finishers = append(gs.Finishers, ps.ID)
		}
		if !done && ps.Completed {
			gs.Finishers = removePlayer(gs.Finishers, ps.ID)
		}
		ps.Completed = done
		allDone = allDone && done
	}
	gs.GameOver = allDone
	return newlyDone
}

// AddTurnToHistory adds a turn to the game's history
func (gs *GameState) AddTurnToHistory(record TurnRecord) {
	record.TurnNumber = gs.TotalTurns + 1
	record.Timestamp = time.Now().Unix()

	gs.TurnHistory = append(gs.TurnHistory, record)
	gs.TotalTurns++

	gs.CurrentTurns = append(gs.CurrentTurns, record)
	gs.CurrentTurnsCount++
}

func movedTokens(before, after TokenPair) []TokenID {
	var moved []TokenID
	if before.P != after.P {
		moved = append(moved, TokenP)
	}
	if before.Q != after.Q {
		moved = append(moved, TokenQ)
	}
	return moved
}

func removePlayer(ids []PlayerID, id PlayerID) []PlayerID {
	out := ids[:0]
	for _, v := range ids {
		if v != id {
			out = append(out, v)
		}
	}
	return out
}
