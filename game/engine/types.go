package engine

import "errors"

// PlayerID identifies one of the four fixed seats around the board
type PlayerID string

const (
	PlayerA PlayerID = "A"
	PlayerB PlayerID = "B"
	PlayerC PlayerID = "C"
	PlayerD PlayerID = "D"
)

// TokenID names one of a player's two tokens
type TokenID string

const (
	TokenP TokenID = "p"
	TokenQ TokenID = "q"
)

// TokenStatus is the coarse position class of a token
type TokenStatus string

const (
	StatusHome    TokenStatus = "HOME"
	StatusReady   TokenStatus = "READY"
	StatusOnBoard TokenStatus = "ON_BOARD"
	StatusEnd     TokenStatus = "END"
)

const (
	// Board table layout
	HomeIndex      = 0
	ReadyIndex     = 1
	FirstLoopIndex = 2
	LastTrackIndex = 57
	EndIndex       = 58
	TableSize      = 65
	LoopSpaces     = 50
	RingSize       = 56
	StretchSpaces  = 6
	EndStep        = EndIndex - ReadyIndex

	// Dice and turn limits
	MinRoll       = 1
	MaxRoll       = 6
	ReleaseRoll   = 6
	ReleaseSteps  = 1
	MaxBatchTurns = 200
)

var (
	ErrPlayerNotFound  = errors.New("player not found")
	ErrInvalidPlayer   = errors.New("invalid player")
	ErrEmptyRoster     = errors.New("roster is empty")
	ErrInvalidRoll     = errors.New("invalid roll")
	ErrInvalidToken    = errors.New("invalid token")
	ErrInvalidSpace    = errors.New("invalid space")
	ErrSpaceNotFound   = errors.New("space not on player's board")
	ErrIndexOutOfRange = errors.New("board index out of range")
)

// Token is one playing piece
type Token struct {
	Space  Space       `json:"space"`
	Status TokenStatus `json:"status"`
}

// PlayerState holds a seated player's tokens
type PlayerState struct {
	ID         PlayerID `json:"id"`
	StartSpace int      `json:"start_space"`
	EndSpace   int      `json:"end_space"`
	P          Token    `json:"p"`
	Q          Token    `json:"q"`
	Completed  bool     `json:"completed"`
}

// Turn is a single (player, roll) input
type Turn struct {
	Player PlayerID `json:"player"`
	Roll   int      `json:"roll"`
}

// TokenPair is a snapshot of both of a player's token spaces
type TokenPair struct {
	P Space `json:"p"`
	Q Space `json:"q"`
}

// Kick records an opponent token sent back home
type Kick struct {
	Player PlayerID `json:"player"`
	Token  TokenID  `json:"token"`
	From   Space    `json:"from"`
}

// TurnRecord represents a single applied turn in the game history
type TurnRecord struct {
	TurnNumber int        `json:"turn_number"`
	Player     PlayerID   `json:"player"`
	Roll       int        `json:"roll"`
	Rule       string     `json:"rule"`
	Action     ActionKind `json:"action"`
	Moved      []TokenID  `json:"moved,omitempty"`
	Kicked     []Kick     `json:"kicked,omitempty"`
	From       TokenPair  `json:"from"`
	To         TokenPair  `json:"to"`
	Completed  bool       `json:"completed"`
	Timestamp  int64      `json:"timestamp"`
}

// GameState represents the complete game state
type GameState struct {
	Players    []PlayerState `json:"players"`
	Message    string        `json:"message"`
	GameOver   bool          `json:"game_over"`
	Finishers  []PlayerID    `json:"finishers"`
	ConfigName string        `json:"config_name"`

	// TurnHistory is cumulative across resets; CurrentTurns only covers the
	// turns since the last reset.
	TurnHistory       []TurnRecord `json:"turn_history"`
	TotalTurns        int          `json:"total_turns"`
	CurrentTurns      []TurnRecord `json:"current_turns"`
	CurrentTurnsCount int          `json:"current_turns_count"`
}
