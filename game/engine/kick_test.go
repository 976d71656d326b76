package engine

import (
	"reflect"
	"testing"
)

func TestResolveKick_Branches(t *testing.T) {
	tests := []struct {
		name       string
		a, b       [2]string
		wantPos    []string
		wantKicked []Kick
	}{
		{
			name:    "all four spaces coincide",
			a:       [2]string{"20", "20"},
			b:       [2]string{"23", "23"},
			wantPos: []string{"23", "23", "H", "H"},
			wantKicked: []Kick{
				{Player: PlayerB, Token: TokenP, From: LoopSpace(23)},
				{Player: PlayerB, Token: TokenQ, From: LoopSpace(23)},
			},
		},
		{
			name:       "stack lands on opponent p",
			a:          [2]string{"20", "20"},
			b:          [2]string{"23", "30"},
			wantPos:    []string{"23", "23", "H", "30"},
			wantKicked: []Kick{{Player: PlayerB, Token: TokenP, From: LoopSpace(23)}},
		},
		{
			name:       "stack lands on opponent q",
			a:          [2]string{"20", "20"},
			b:          [2]string{"30", "23"},
			wantPos:    []string{"23", "23", "30", "H"},
			wantKicked: []Kick{{Player: PlayerB, Token: TokenQ, From: LoopSpace(23)}},
		},
		{
			name:    "p lands on opponent stack",
			a:       [2]string{"20", "10"},
			b:       [2]string{"23", "23"},
			wantPos: []string{"23", "10", "H", "H"},
			wantKicked: []Kick{
				{Player: PlayerB, Token: TokenP, From: LoopSpace(23)},
				{Player: PlayerB, Token: TokenQ, From: LoopSpace(23)},
			},
		},
		{
			name:    "q lands on opponent stack",
			a:       [2]string{"10", "20"},
			b:       [2]string{"23", "23"},
			wantPos: []string{"10", "23", "H", "H"},
			wantKicked: []Kick{
				{Player: PlayerB, Token: TokenP, From: LoopSpace(23)},
				{Player: PlayerB, Token: TokenQ, From: LoopSpace(23)},
			},
		},
		{
			name:       "p lands on opponent p",
			a:          [2]string{"20", "10"},
			b:          [2]string{"23", "30"},
			wantPos:    []string{"23", "10", "H", "30"},
			wantKicked: []Kick{{Player: PlayerB, Token: TokenP, From: LoopSpace(23)}},
		},
		{
			name:       "p lands on opponent q",
			a:          [2]string{"20", "10"},
			b:          [2]string{"30", "23"},
			wantPos:    []string{"23", "10", "30", "H"},
			wantKicked: []Kick{{Player: PlayerB, Token: TokenQ, From: LoopSpace(23)}},
		},
		{
			name:       "q lands on opponent p",
			a:          [2]string{"10", "20"},
			b:          [2]string{"23", "30"},
			wantPos:    []string{"10", "23", "H", "30"},
			wantKicked: []Kick{{Player: PlayerB, Token: TokenP, From: LoopSpace(23)}},
		},
		{
			name:       "q lands on opponent q",
			a:          [2]string{"10", "20"},
			b:          [2]string{"30", "23"},
			wantPos:    []string{"10", "23", "30", "H"},
			wantKicked: []Kick{{Player: PlayerB, Token: TokenQ, From: LoopSpace(23)}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			state := placeTokens(t, []PlayerID{PlayerA, PlayerB}, map[PlayerID][2]string{
				PlayerA: tt.a,
				PlayerB: tt.b,
			})

			record, err := state.ApplyTurn(PlayerA, 3, nil)
			if err != nil {
				t.Fatalf("ApplyTurn failed: %v", err)
			}

			if record.Action != ActionKick {
				t.Errorf("Expected kick action, got %s (%s)", record.Action, record.Rule)
			}
			if got := state.Positions(); !reflect.DeepEqual(got, tt.wantPos) {
				t.Errorf("Expected positions %v, got %v", tt.wantPos, got)
			}
			if !reflect.DeepEqual(record.Kicked, tt.wantKicked) {
				t.Errorf("Expected kicks %+v, got %+v", tt.wantKicked, record.Kicked)
			}
		})
	}
}

func TestKickBranch_StackedTakesPrecedence(t *testing.T) {
	at := func(s Space) landing { return landing{space: s, ok: true} }
	s23 := LoopSpace(23)

	got, ok := kickBranch(at(s23), at(s23), s23, LoopSpace(30))
	if !ok {
		t.Fatal("Expected a match")
	}
	want := kickOutcome{moveP: true, moveQ: true, kickP: true}
	if got != want {
		t.Errorf("Expected %+v, got %+v", want, got)
	}

	if _, ok := kickBranch(landing{}, landing{}, UnusedSpace, UnusedSpace); ok {
		t.Error("Expected landings past the table never to match")
	}
}

func TestWouldKick_FirstOpponentOnly(t *testing.T) {
	positions := map[PlayerID][2]string{
		PlayerA: {"20", "10"},
		PlayerB: {"40", "41"},
		PlayerC: {"23", "H"},
	}
	roster := []PlayerID{PlayerA, PlayerB, PlayerC}

	state := placeTokens(t, roster, positions)
	mover, _ := state.player(PlayerA)

	hit, err := state.WouldKick(mover, 3, KickScanFirstOpponent)
	if err != nil {
		t.Fatalf("WouldKick failed: %v", err)
	}
	if hit {
		t.Error("Expected first_opponent scan to stop at B and miss C")
	}

	hit, _ = state.WouldKick(mover, 3, KickScanAllOpponents)
	if !hit {
		t.Error("Expected all_opponents scan to find C")
	}

	// Default detection: A advances its trailing token and C survives
	record, err := state.ApplyTurn(PlayerA, 3, nil)
	if err != nil {
		t.Fatalf("ApplyTurn failed: %v", err)
	}
	if record.Action != ActionMove {
		t.Errorf("Expected a plain move, got %s", record.Action)
	}
	want := []string{"20", "13", "40", "41", "23", "H"}
	if got := state.Positions(); !reflect.DeepEqual(got, want) {
		t.Errorf("Expected %v, got %v", want, got)
	}

	// All opponents: C is kicked
	state = placeTokens(t, roster, positions)
	config := createTestConfig()
	config.KickScan = KickScanAllOpponents
	record, err = state.ApplyTurn(PlayerA, 3, config)
	if err != nil {
		t.Fatalf("ApplyTurn failed: %v", err)
	}
	if record.Action != ActionKick {
		t.Errorf("Expected a kick, got %s", record.Action)
	}
	want = []string{"23", "10", "40", "41", "H", "H"}
	if got := state.Positions(); !reflect.DeepEqual(got, want) {
		t.Errorf("Expected %v, got %v", want, got)
	}
}

func TestResolveKick_RecomputesAfterEachOpponent(t *testing.T) {
	state := placeTokens(t, []PlayerID{PlayerA, PlayerB, PlayerC}, map[PlayerID][2]string{
		PlayerA: {"7", "7"},
		PlayerB: {"9", "9"},
		PlayerC: {"9", "H"},
	})

	if _, err := state.ApplyTurn(PlayerA, 2, nil); err != nil {
		t.Fatalf("ApplyTurn failed: %v", err)
	}

	// The stack moved onto B; C is now behind the new landing and stays put
	want := []string{"9", "9", "H", "H", "9", "H"}
	if got := state.Positions(); !reflect.DeepEqual(got, want) {
		t.Errorf("Expected %v, got %v", want, got)
	}
}

func TestResolveKick_ReadyIsShared(t *testing.T) {
	state := placeTokens(t, []PlayerID{PlayerB, PlayerC}, nil)

	turns := []Turn{{PlayerC, 6}, {PlayerB, 6}, {PlayerC, 6}, {PlayerB, 1}}
	if _, err := state.Play(turns, nil); err != nil {
		t.Fatalf("Play failed: %v", err)
	}

	// B's q lands on Ready from Home, which every player shares
	want := []string{"R", "R", "H", "H"}
	if got := state.Positions(); !reflect.DeepEqual(got, want) {
		t.Errorf("Expected %v, got %v", want, got)
	}

	last := state.TurnHistory[len(state.TurnHistory)-1]
	if len(last.Kicked) != 2 {
		t.Errorf("Expected both of C's tokens kicked, got %+v", last.Kicked)
	}
}

func TestApplyTurn_KickMessage(t *testing.T) {
	state := placeTokens(t, []PlayerID{PlayerA, PlayerB}, map[PlayerID][2]string{
		PlayerA: {"20", "10"},
		PlayerB: {"23", "30"},
	})

	if _, err := state.ApplyTurn(PlayerA, 3, createTestConfig()); err != nil {
		t.Fatalf("ApplyTurn failed: %v", err)
	}
	if state.Message != "A kicked B.p" {
		t.Errorf("Expected kick message, got %q", state.Message)
	}
}
