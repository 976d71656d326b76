package engine

import "fmt"

// ActionKind is what a decision does to the board
type ActionKind string

const (
	ActionNone ActionKind = "none"
	ActionMove ActionKind = "move"
	ActionKick ActionKind = "kick"
)

// Decision is the outcome of the priority policy for one turn
type Decision struct {
	Rule   string     `json:"rule"`
	Action ActionKind `json:"action"`
	Tokens []TokenID  `json:"tokens,omitempty"`
	Steps  int        `json:"steps"`
}

// turnView is what the priority rules look at
type turnView struct {
	roll         int
	p, q         Space
	stepP, stepQ int
	kickable     bool
}

func (v *turnView) finishes(step int) bool { return step+v.roll == EndStep }
func (v *turnView) pHome() bool            { return v.p == HomeSpace }
func (v *turnView) qHome() bool            { return v.q == HomeSpace }

type rule struct {
	name string
	when func(v *turnView) bool
	then func(v *turnView) Decision
}

func always(*turnView) bool { return true }

func moveTokens(steps int, tokens ...TokenID) func(*turnView) Decision {
	return func(v *turnView) Decision {
		n := steps
		if n == 0 {
			n = v.roll
		}
		return Decision{Action: ActionMove, Tokens: tokens, Steps: n}
	}
}

func kickAny(v *turnView) Decision {
	return Decision{Action: ActionKick, Steps: v.roll}
}

func canKick(v *turnView) bool { return v.kickable }

// Rule tables. A zero step count in moveTokens means "move by the roll".
var (
	stackedRules = []rule{
		{"finish-stack", func(v *turnView) bool { return v.finishes(v.stepP) }, moveTokens(0, TokenP, TokenQ)},
		{"kick", canKick, kickAny},
		{"advance-stack", always, moveTokens(0, TokenP, TokenQ)},
	}

	sixRules = []rule{
		{"release-p", (*turnView).pHome, moveTokens(ReleaseSteps, TokenP)},
		{"release-q", (*turnView).qHome, moveTokens(ReleaseSteps, TokenQ)},
		{"finish-p", func(v *turnView) bool { return v.finishes(v.stepP) }, moveTokens(0, TokenP)},
		{"finish-q", func(v *turnView) bool { return v.finishes(v.stepQ) }, moveTokens(0, TokenQ)},
		{"kick", canKick, kickAny},
		{"advance-p", func(v *turnView) bool { return v.stepP < v.stepQ }, moveTokens(0, TokenP)},
		{"advance-q", always, moveTokens(0, TokenQ)},
	}

	// p is at Home, only q is in play
	onlyQRules = []rule{
		{"finish-q", func(v *turnView) bool { return v.finishes(v.stepQ) }, moveTokens(0, TokenQ)},
		{"kick", canKick, kickAny},
		{"advance-q", always, moveTokens(0, TokenQ)},
	}

	// q is at Home, only p is in play
	onlyPRules = []rule{
		{"finish-p", func(v *turnView) bool { return v.finishes(v.stepP) }, moveTokens(0, TokenP)},
		{"kick", canKick, kickAny},
		{"advance-p", always, moveTokens(0, TokenP)},
	}

	openRules = []rule{
		{"finish-p", func(v *turnView) bool { return v.finishes(v.stepP) }, moveTokens(0, TokenP)},
		{"finish-q", func(v *turnView) bool { return v.finishes(v.stepQ) }, moveTokens(0, TokenQ)},
		{"kick", canKick, kickAny},
		{"advance-p", func(v *turnView) bool { return v.stepP <= v.stepQ }, moveTokens(0, TokenP)},
		{"advance-q", always, moveTokens(0, TokenQ)},
	}
)

func firstMatch(rules []rule, v *turnView) Decision {
	for _, r := range rules {
		if r.when(v) {
			d := r.then(v)
			d.Rule = r.name
			return d
		}
	}
	return Decision{Rule: "no-rule", Action: ActionNone}
}

// Decide evaluates the priority policy without changing any state
func (gs *GameState) Decide(id PlayerID, roll int, scan KickScan) (Decision, error) {
	if roll < MinRoll || roll > MaxRoll {
		return Decision{}, fmt.Errorf("%w: %d (must be %d-%d)", ErrInvalidRoll, roll, MinRoll, MaxRoll)
	}
	mover, err := gs.player(id)
	if err != nil {
		return Decision{}, err
	}
	return gs.decide(mover, roll, scan)
}

func (gs *GameState) decide(mover *PlayerState, roll int, scan KickScan) (Decision, error) {
	if mover.IsCompleted() {
		return Decision{Rule: "completed", Action: ActionNone}, nil
	}

	b, err := mover.Board()
	if err != nil {
		return Decision{}, err
	}
	v := &turnView{roll: roll, p: mover.P.Space, q: mover.Q.Space}
	if v.stepP, err = b.StepCount(v.p); err != nil {
		return Decision{}, err
	}
	if v.stepQ, err = b.StepCount(v.q); err != nil {
		return Decision{}, err
	}
	if v.kickable, err = gs.WouldKick(mover, roll, scan); err != nil {
		return Decision{}, err
	}

	switch {
	case mover.IsStacked():
		return firstMatch(stackedRules, v), nil
	case roll == ReleaseRoll:
		return firstMatch(sixRules, v), nil
	case v.pHome() && v.qHome():
		return Decision{Rule: "all-home", Action: ActionNone}, nil
	case v.pHome():
		return firstMatch(onlyQRules, v), nil
	case v.qHome():
		return firstMatch(onlyPRules, v), nil
	default:
		return firstMatch(openRules, v), nil
	}
}

// apply executes a decision against the mover and returns any kicks it caused
func (gs *GameState) apply(mover *PlayerState, d Decision) ([]Kick, error) {
	switch d.Action {
	case ActionNone:
		return nil, nil
	case ActionMove:
		for _, tok := range d.Tokens {
			if err := mover.move(tok, d.Steps); err != nil {
				return nil, fmt.Errorf("move %s%s by %d: %w", mover.ID, tok, d.Steps, err)
			}
		}
		return nil, nil
	case ActionKick:
		return gs.ResolveKick(mover, d.Steps)
	default:
		return nil, fmt.Errorf("unknown action %q", d.Action)
	}
}
