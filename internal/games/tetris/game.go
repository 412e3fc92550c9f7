// Package tetris implements the authoritative Tetris simulation in the same
// pure-kernel style as the pong package: Step consumes a state and input
// flags and returns the next state, with no timers or I/O of its own.
package tetris

import "github.com/dkarpov/netarcade/internal/core"

// Board dimensions in cells.
const (
	BoardWidth  = 10
	BoardHeight = 20
)

// lineScores awards points for 1, 2, 3, and 4+ simultaneous clears.
var lineScores = [5]int{0, 100, 300, 500, 800}

// Config contains the tunable parameters of a Tetris session.
type Config struct {
	GravityInterval    int     `yaml:"gravity_interval"`     // ticks per row at start
	SoftDropInterval   int     `yaml:"soft_drop_interval"`   // ticks per row while soft drop is held
	MinGravityInterval int     `yaml:"min_gravity_interval"` // acceleration floor
	GravityFactor      float64 `yaml:"gravity_factor"`       // applied on every clear
	DASDelay           int     `yaml:"das_delay"`            // ticks a direction must be held before auto-repeat
	DASRepeat          int     `yaml:"das_repeat"`           // ticks between auto-repeated moves
}

// DefaultConfig returns the standard timings for a 60 Hz tick rate.
func DefaultConfig() Config {
	return Config{
		GravityInterval:    48,
		SoftDropInterval:   3,
		MinGravityInterval: 6,
		GravityFactor:      0.9,
		DASDelay:           10,
		DASRepeat:          4,
	}
}

// Board is the playfield grid. Zero is empty; otherwise the cell holds the
// kind of the piece that locked there plus one.
type Board [BoardHeight][BoardWidth]uint8

// State is the complete simulation state of one Tetris session. Like
// pong.State it is a value: Step returns a new one.
type State struct {
	Board           Board
	Piece           Piece
	Score           int
	LinesCleared    int
	GravityInterval int
	GameOver        bool

	// Tick-local bookkeeping carried between steps.
	gravityTick int
	dasDir      int
	dasHeld     int
	prevIn      core.Input
}

// NewState returns an empty board with the first piece spawned.
func NewState(cfg Config, rng core.Rand) State {
	s := State{GravityInterval: cfg.GravityInterval}
	s.Piece = spawnPiece(rng)
	return s
}

func spawnPiece(rng core.Rand) Piece {
	return Piece{Kind: Kind(rng.Intn(int(kindCount))), X: 3, Y: 0}
}

// Step advances the simulation by one tick.
func Step(cfg Config, s State, in core.Input, rng core.Rand) State {
	if s.GameOver {
		return s
	}

	s = stepHorizontal(cfg, s, in)

	// Rotation acts once per press, not while held.
	if in.Rotate && !s.prevIn.Rotate {
		if r := s.Piece.rotated(); !collides(s.Board, r) {
			s.Piece = r
		}
	}

	// Hard drop acts once per press and locks immediately.
	if in.HardDrop && !s.prevIn.HardDrop {
		for !collides(s.Board, moved(s.Piece, 0, 1)) {
			s.Piece.Y++
		}
		s = lockPiece(cfg, s, rng)
		s.prevIn = in
		return s
	}

	interval := s.GravityInterval
	if in.SoftDrop && cfg.SoftDropInterval < interval {
		interval = cfg.SoftDropInterval
	}
	s.gravityTick++
	if s.gravityTick >= interval {
		s.gravityTick = 0
		if next := moved(s.Piece, 0, 1); !collides(s.Board, next) {
			s.Piece = next
		} else {
			s = lockPiece(cfg, s, rng)
		}
	}

	s.prevIn = in
	return s
}

// stepHorizontal applies the auto-repeat movement scheme: move immediately
// on press, wait DASDelay ticks, then repeat every DASRepeat ticks.
func stepHorizontal(cfg Config, s State, in core.Input) State {
	dir := 0
	if in.Left && !in.Right {
		dir = -1
	} else if in.Right && !in.Left {
		dir = 1
	}

	switch {
	case dir == 0:
		s.dasDir = 0
		s.dasHeld = 0
	case dir != s.dasDir:
		s.dasDir = dir
		s.dasHeld = 0
		s = tryShift(s, dir)
	default:
		s.dasHeld++
		if s.dasHeld >= cfg.DASDelay && (s.dasHeld-cfg.DASDelay)%cfg.DASRepeat == 0 {
			s = tryShift(s, dir)
		}
	}
	return s
}

func tryShift(s State, dx int) State {
	if next := moved(s.Piece, dx, 0); !collides(s.Board, next) {
		s.Piece = next
	}
	return s
}

func moved(p Piece, dx, dy int) Piece {
	p.X += dx
	p.Y += dy
	return p
}

// collides reports whether the piece overlaps the walls, the floor, or a
// locked cell.
func collides(b Board, p Piece) bool {
	for _, c := range p.cells() {
		x, y := c[0], c[1]
		if x < 0 || x >= BoardWidth || y < 0 || y >= BoardHeight {
			return true
		}
		if b[y][x] != 0 {
			return true
		}
	}
	return false
}

// lockPiece writes the piece into the board, resolves clears, applies the
// scoring and gravity acceleration rules, and spawns the next piece. A spawn
// that fails its collision check ends the game.
func lockPiece(cfg Config, s State, rng core.Rand) State {
	for _, c := range s.Piece.cells() {
		s.Board[c[1]][c[0]] = uint8(s.Piece.Kind) + 1
	}

	var cleared int
	s.Board, cleared = clearFullRows(s.Board)
	if cleared > 0 {
		s.Score += lineScores[min(cleared, 4)]
		s.LinesCleared += cleared
		s.GravityInterval = accelerateGravity(cfg, s.GravityInterval)
	}

	s.gravityTick = 0
	s.Piece = spawnPiece(rng)
	if collides(s.Board, s.Piece) {
		s.GameOver = true
	}
	return s
}

// clearFullRows removes completed rows, shifting the rows above down, and
// returns the number of rows removed.
func clearFullRows(b Board) (Board, int) {
	var out Board
	dst := BoardHeight - 1
	cleared := 0

	for y := BoardHeight - 1; y >= 0; y-- {
		full := true
		for x := 0; x < BoardWidth; x++ {
			if b[y][x] == 0 {
				full = false
				break
			}
		}
		if full {
			cleared++
			continue
		}
		out[dst] = b[y]
		dst--
	}
	return out, cleared
}

// accelerateGravity speeds the fall up multiplicatively, never dropping
// below the configured floor.
func accelerateGravity(cfg Config, interval int) int {
	next := int(float64(interval) * cfg.GravityFactor)
	if next < cfg.MinGravityInterval {
		return cfg.MinGravityInterval
	}
	return next
}
