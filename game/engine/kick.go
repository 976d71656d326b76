package engine

import "fmt"

// KickScan selects how many opponents kick detection examines
type KickScan string

const (
	// KickScanFirstOpponent reports the result for the first opponent in
	// catalog order only. Later opponents are never examined, so a kick
	// against them can be missed in games of three or more players.
	KickScanFirstOpponent KickScan = "first_opponent"

	// KickScanAllOpponents reports a kick if any opponent can be hit.
	KickScanAllOpponents KickScan = "all_opponents"
)

// Valid reports whether the scan mode is known
func (k KickScan) Valid() bool {
	return k == KickScanFirstOpponent || k == KickScanAllOpponents
}

// landing is a prospective destination; ok is false when it lies past the table
type landing struct {
	space Space
	ok    bool
}

func (l landing) on(s Space) bool {
	return l.ok && l.space == s
}

// landings returns where p and q would land if each moved steps without bounce
func (ps *PlayerState) landings(steps int) (landing, landing, error) {
	b, err := ps.Board()
	if err != nil {
		return landing{}, landing{}, err
	}
	stepP, err := b.StepCount(ps.P.Space)
	if err != nil {
		return landing{}, landing{}, err
	}
	stepQ, err := b.StepCount(ps.Q.Space)
	if err != nil {
		return landing{}, landing{}, err
	}

	var lp, lq landing
	lp.space, lp.ok = b.landing(stepP + steps + ReadyIndex)
	lq.space, lq.ok = b.landing(stepQ + steps + ReadyIndex)
	return lp, lq, nil
}

// WouldKick reports whether moving steps could send an opponent token home
func (gs *GameState) WouldKick(mover *PlayerState, steps int, scan KickScan) (bool, error) {
	lp, lq, err := mover.landings(steps)
	if err != nil {
		return false, err
	}

	for i := range gs.Players {
		opp := &gs.Players[i]
		if opp.ID == mover.ID {
			continue
		}
		hit := lp.on(opp.P.Space) || lp.on(opp.Q.Space) ||
			lq.on(opp.P.Space) || lq.on(opp.Q.Space)
		if scan != KickScanAllOpponents {
			return hit, nil
		}
		if hit {
			return true, nil
		}
	}
	return false, nil
}

// kickOutcome is the effect of one branch of the kick table
type kickOutcome struct {
	moveP, moveQ bool
	kickP, kickQ bool
}

// kickBranch matches landings against an opponent's spaces. Stacked
// coincidences take precedence over single ones; the first match wins.
func kickBranch(lp, lq landing, op, oq Space) (kickOutcome, bool) {
	switch {
	case lp.on(op) && lp.on(oq) && lq.on(op) && lq.on(oq):
		return kickOutcome{moveP: true, moveQ: true, kickP: true, kickQ: true}, true
	case lp.on(op) && lq.on(op):
		return kickOutcome{moveP: true, moveQ: true, kickP: true}, true
	case lp.on(oq) && lq.on(oq):
		return kickOutcome{moveP: true, moveQ: true, kickQ: true}, true
	case lp.on(op) && lp.on(oq):
		return kickOutcome{moveP: true, kickP: true, kickQ: true}, true
	case lq.on(op) && lq.on(oq):
		return kickOutcome{moveQ: true, kickP: true, kickQ: true}, true
	case lp.on(op):
		return kickOutcome{moveP: true, kickP: true}, true
	case lp.on(oq):
		return kickOutcome{moveP: true, kickQ: true}, true
	case lq.on(op):
		return kickOutcome{moveQ: true, kickP: true}, true
	case lq.on(oq):
		return kickOutcome{moveQ: true, kickQ: true}, true
	}
	return kickOutcome{}, false
}

// ResolveKick moves the mover's matching tokens onto opponents and sends the
// hit tokens home. Every opponent is visited in catalog order and landings are
// recomputed after each one, since an earlier kick may already have moved the
// mover.
func (gs *GameState) ResolveKick(mover *PlayerState, steps int) ([]Kick, error) {
	var kicks []Kick
	for i := range gs.Players {
		opp := &gs.Players[i]
		if opp.ID == mover.ID {
			continue
		}

		lp, lq, err := mover.landings(steps)
		if err != nil {
			return kicks, err
		}
		op, oq := opp.P.Space, opp.Q.Space
		outcome, ok := kickBranch(lp, lq, op, oq)
		if !ok {
			continue
		}

		if outcome.moveP {
			if err := mover.advance(TokenP, steps); err != nil {
				return kicks, fmt.Errorf("kick move p: %w", err)
			}
		}
		if outcome.moveQ {
			if err := mover.advance(TokenQ, steps); err != nil {
				return kicks, fmt.Errorf("kick move q: %w", err)
			}
		}
		if outcome.kickP {
			kicks = append(kicks, Kick{Player: opp.ID, Token: TokenP, From: op})
			opp.kickHome(TokenP)
		}
		if outcome.kickQ {
			kicks = append(kicks, Kick{Player: opp.ID, Token: TokenQ, From: oq})
			opp.kickHome(TokenQ)
		}
	}
	return kicks, nil
}
