// Package core provides fundamental types shared by the game kernels and the
// match engine. It contains no external dependencies to keep game logic pure
// and testable.
package core

// PlayerID identifies a participant slot inside a match.
// Player1 is the room owner (or the human in AI matches), Player2 is the
// joiner, the CPU opponent, or absent in solo variants.
type PlayerID int

const (
	NoPlayer PlayerID = iota
	Player1
	Player2
)

// String returns a human-readable name for the player slot.
func (p PlayerID) String() string {
	switch p {
	case Player1:
		return "player1"
	case Player2:
		return "player2"
	default:
		return "none"
	}
}

// Opponent returns the other slot of a two-player match.
func (p PlayerID) Opponent() PlayerID {
	switch p {
	case Player1:
		return Player2
	case Player2:
		return Player1
	default:
		return NoPlayer
	}
}

// Input is the directional flag state for one player during one tick.
// Clients send the full flag set with every input event; the engine keeps the
// last received frame per player (last-write-wins).
type Input struct {
	Up       bool `json:"up"`
	Down     bool `json:"down"`
	Left     bool `json:"left"`
	Right    bool `json:"right"`
	Rotate   bool `json:"rotate"`
	SoftDrop bool `json:"softDrop"`
	HardDrop bool `json:"hardDrop"`
}

// IsZero reports whether no flag is held.
func (in Input) IsZero() bool {
	return in == Input{}
}

// MultiInput carries the input of both player slots for a single tick.
type MultiInput struct {
	P1 Input
	P2 Input
}

// Player returns the input frame for the given slot.
func (m MultiInput) Player(id PlayerID) Input {
	switch id {
	case Player1:
		return m.P1
	case Player2:
		return m.P2
	default:
		return Input{}
	}
}

// Set stores the input frame for the given slot.
func (m *MultiInput) Set(id PlayerID, in Input) {
	switch id {
	case Player1:
		m.P1 = in
	case Player2:
		m.P2 = in
	}
}
