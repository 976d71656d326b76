package engine

import (
	"fmt"
	"strconv"
	"strings"
)

// SpaceKind tags the variant held by a Space
type SpaceKind uint8

const (
	KindHome SpaceKind = iota
	KindReady
	KindLoop
	KindStretch
	KindEnd
	KindUnused
)

// Space is a single board location. Loop spaces carry their ring number,
// stretch spaces their owner and 1-based depth. Home, Ready, End and Unused
// are shared sentinels and compare equal across players.
type Space struct {
	Kind   SpaceKind
	Number int
	Owner  PlayerID
}

var (
	HomeSpace   = Space{Kind: KindHome}
	ReadySpace  = Space{Kind: KindReady}
	EndSpace    = Space{Kind: KindEnd}
	UnusedSpace = Space{Kind: KindUnused}
)

// LoopSpace returns the shared ring space with the given number
func LoopSpace(n int) Space {
	return Space{Kind: KindLoop, Number: n}
}

// StretchSpace returns a player's private home-stretch space
func StretchSpace(owner PlayerID, n int) Space {
	return Space{Kind: KindStretch, Number: n, Owner: owner}
}

func (s Space) String() string {
	switch s.Kind {
	case KindHome:
		return "H"
	case KindReady:
		return "R"
	case KindLoop:
		return strconv.Itoa(s.Number)
	case KindStretch:
		return fmt.Sprintf("%s%d", s.Owner, s.Number)
	case KindEnd:
		return "E"
	default:
		return "*"
	}
}

// ParseSpace converts a space name such as "H", "23", "A4" or "E" into a Space
func ParseSpace(name string) (Space, error) {
	name = strings.TrimSpace(name)
	switch name {
	case "H":
		return HomeSpace, nil
	case "R":
		return ReadySpace, nil
	case "E":
		return EndSpace, nil
	case "*":
		return UnusedSpace, nil
	case "":
		return Space{}, fmt.Errorf("%w: empty name", ErrInvalidSpace)
	}

	if n, err := strconv.Atoi(name); err == nil {
		if n < 1 || n > RingSize {
			return Space{}, fmt.Errorf("%w: loop space %d outside 1..%d", ErrInvalidSpace, n, RingSize)
		}
		return LoopSpace(n), nil
	}

	if len(name) == 2 {
		owner, err := ParsePlayerID(name[:1])
		if err == nil && name[1] >= '1' && name[1] <= '0'+StretchSpaces {
			return StretchSpace(owner, int(name[1]-'0')), nil
		}
	}

	return Space{}, fmt.Errorf("%w: %q", ErrInvalidSpace, name)
}

// MarshalText implements encoding.TextMarshaler
func (s Space) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler
func (s *Space) UnmarshalText(text []byte) error {
	parsed, err := ParseSpace(string(text))
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}
