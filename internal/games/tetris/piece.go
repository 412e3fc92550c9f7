package tetris

// Kind enumerates the seven tetrominoes.
type Kind int

const (
	KindI Kind = iota
	KindO
	KindT
	KindS
	KindZ
	KindJ
	KindL
	kindCount
)

// cellOffsets lists the four occupied cells of a rotation as (x, y) offsets
// from the piece origin (top-left of its bounding box).
type cellOffsets [4][2]int

// shapes holds every rotation of every piece. Rotation index wraps per piece.
var shapes = [kindCount][]cellOffsets{
	KindI: {
		{{0, 1}, {1, 1}, {2, 1}, {3, 1}},
		{{2, 0}, {2, 1}, {2, 2}, {2, 3}},
	},
	KindO: {
		{{1, 0}, {2, 0}, {1, 1}, {2, 1}},
	},
	KindT: {
		{{1, 0}, {0, 1}, {1, 1}, {2, 1}},
		{{1, 0}, {1, 1}, {2, 1}, {1, 2}},
		{{0, 1}, {1, 1}, {2, 1}, {1, 2}},
		{{1, 0}, {0, 1}, {1, 1}, {1, 2}},
	},
	KindS: {
		{{1, 0}, {2, 0}, {0, 1}, {1, 1}},
		{{1, 0}, {1, 1}, {2, 1}, {2, 2}},
	},
	KindZ: {
		{{0, 0}, {1, 0}, {1, 1}, {2, 1}},
		{{2, 0}, {1, 1}, {2, 1}, {1, 2}},
	},
	KindJ: {
		{{0, 0}, {0, 1}, {1, 1}, {2, 1}},
		{{1, 0}, {2, 0}, {1, 1}, {1, 2}},
		{{0, 1}, {1, 1}, {2, 1}, {2, 2}},
		{{1, 0}, {1, 1}, {0, 2}, {1, 2}},
	},
	KindL: {
		{{2, 0}, {0, 1}, {1, 1}, {2, 1}},
		{{1, 0}, {1, 1}, {1, 2}, {2, 2}},
		{{0, 1}, {1, 1}, {2, 1}, {0, 2}},
		{{0, 0}, {1, 0}, {1, 1}, {1, 2}},
	},
}

// Piece is the falling tetromino: kind, rotation index, and board position
// of its bounding-box origin.
type Piece struct {
	Kind     Kind
	Rotation int
	X, Y     int
}

// cells returns the absolute board coordinates occupied by the piece.
func (p Piece) cells() [4][2]int {
	rot := shapes[p.Kind][p.Rotation%len(shapes[p.Kind])]
	var out [4][2]int
	for i, c := range rot {
		out[i] = [2]int{p.X + c[0], p.Y + c[1]}
	}
	return out
}

// rotated returns the piece advanced to its next rotation state.
func (p Piece) rotated() Piece {
	p.Rotation = (p.Rotation + 1) % len(shapes[p.Kind])
	return p
}
