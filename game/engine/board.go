package engine

import (
	"fmt"
	"strings"
)

// seat describes one of the four fixed starting slots
type seat struct {
	id    PlayerID
	start int
	end   int
}

// catalog lists the seats in the order players are created and scanned
var catalog = [...]seat{
	{id: PlayerA, start: 1, end: 50},
	{id: PlayerB, start: 15, end: 8},
	{id: PlayerC, start: 29, end: 22},
	{id: PlayerD, start: 43, end: 36},
}

// Board is a player's immutable track table: Home, Ready, the loop spaces
// rotated to the player's start, the private stretch, End and padding.
type Board struct {
	player PlayerID
	spaces [TableSize]Space
	index  map[Space]int
}

var boards = buildBoards()

func buildBoards() map[PlayerID]*Board {
	result := make(map[PlayerID]*Board, len(catalog))
	for _, s := range catalog {
		result[s.id] = newBoard(s)
	}
	return result
}

func newBoard(s seat) *Board {
	b := &Board{
		player: s.id,
		index:  make(map[Space]int, TableSize),
	}

	b.spaces[HomeIndex] = HomeSpace
	b.spaces[ReadyIndex] = ReadySpace
	for i := 0; i < LoopSpaces; i++ {
		b.spaces[FirstLoopIndex+i] = LoopSpace((s.start-1+i)%RingSize + 1)
	}
	for i := 1; i <= StretchSpaces; i++ {
		b.spaces[FirstLoopIndex+LoopSpaces+i-1] = StretchSpace(s.id, i)
	}
	b.spaces[EndIndex] = EndSpace
	for i := EndIndex + 1; i < TableSize; i++ {
		b.spaces[i] = UnusedSpace
	}

	for i, space := range b.spaces {
		if space.Kind == KindUnused {
			continue
		}
		b.index[space] = i
	}
	return b
}

// Catalog returns every seat id in catalog order
func Catalog() []PlayerID {
	ids := make([]PlayerID, 0, len(catalog))
	for _, s := range catalog {
		ids = append(ids, s.id)
	}
	return ids
}

// ParsePlayerID validates a seat identifier, accepting lower case
func ParsePlayerID(raw string) (PlayerID, error) {
	id := PlayerID(strings.ToUpper(strings.TrimSpace(raw)))
	for _, s := range catalog {
		if s.id == id {
			return id, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidPlayer, raw)
}

// BoardFor returns the track table for a seat
func BoardFor(id PlayerID) (*Board, error) {
	b, ok := boards[id]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrInvalidPlayer, id)
	}
	return b, nil
}

// Player returns the seat this board belongs to
func (b *Board) Player() PlayerID {
	return b.player
}

// SpaceAt returns the space at an absolute table index
func (b *Board) SpaceAt(index int) (Space, error) {
	if index < 0 || index >= TableSize {
		return Space{}, fmt.Errorf("%w: %d for player %s", ErrIndexOutOfRange, index, b.player)
	}
	return b.spaces[index], nil
}

// IndexOf returns the absolute table index of a space
func (b *Board) IndexOf(space Space) (int, error) {
	i, ok := b.index[space]
	if !ok {
		return 0, fmt.Errorf("%w: %s on %s's board", ErrSpaceNotFound, space, b.player)
	}
	return i, nil
}

// StepCount returns the distance of a space from Ready: -1 for Home, 0 for
// Ready and EndStep for End.
func (b *Board) StepCount(space Space) (int, error) {
	i, err := b.IndexOf(space)
	if err != nil {
		return 0, err
	}
	return i - ReadyIndex, nil
}

// SpaceName returns the space reached after the given number of steps
func (b *Board) SpaceName(steps int) (Space, error) {
	return b.SpaceAt(steps + ReadyIndex)
}

// Spaces returns a copy of the full table
func (b *Board) Spaces() []Space {
	out := make([]Space, TableSize)
	copy(out, b.spaces[:])
	return out
}

// landing returns the space at index, reporting false when the index falls
// outside the table
func (b *Board) landing(index int) (Space, bool) {
	if index < 0 || index >= TableSize {
		return Space{}, false
	}
	return b.spaces[index], true
}
