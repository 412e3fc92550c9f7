package tetris

import "github.com/dkarpov/netarcade/internal/core"

// Snapshot is the per-tick state broadcast to clients.
type Snapshot struct {
	Board           [][]int `json:"board"`
	PieceKind       int     `json:"pieceKind"`
	PieceRotation   int     `json:"pieceRotation"`
	PieceX          int     `json:"pieceX"`
	PieceY          int     `json:"pieceY"`
	Score           int     `json:"score"`
	LinesCleared    int     `json:"linesCleared"`
	GravityInterval int     `json:"gravityInterval"`
	GameOver        bool    `json:"gameOver"`
}

// IsSnapshot implements the core.Snapshot marker.
func (Snapshot) IsSnapshot() {}

var _ core.Snapshot = Snapshot{}

// Snapshot converts the state into its broadcast form.
func (s State) Snapshot() Snapshot {
	board := make([][]int, BoardHeight)
	for y := range s.Board {
		row := make([]int, BoardWidth)
		for x, cell := range s.Board[y] {
			row[x] = int(cell)
		}
		board[y] = row
	}
	return Snapshot{
		Board:           board,
		PieceKind:       int(s.Piece.Kind),
		PieceRotation:   s.Piece.Rotation,
		PieceX:          s.Piece.X,
		PieceY:          s.Piece.Y,
		Score:           s.Score,
		LinesCleared:    s.LinesCleared,
		GravityInterval: s.GravityInterval,
		GameOver:        s.GameOver,
	}
}
