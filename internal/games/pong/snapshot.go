package pong

import "github.com/dkarpov/netarcade/internal/core"

// Snapshot is the per-tick state broadcast to clients.
type Snapshot struct {
	BallX    float64 `json:"ballX"`
	BallY    float64 `json:"ballY"`
	BallVX   float64 `json:"ballVX"`
	BallVY   float64 `json:"ballVY"`
	Paddle1Y float64 `json:"paddle1Y"`
	Paddle2Y float64 `json:"paddle2Y"`
	Score1   int     `json:"score1"`
	Score2   int     `json:"score2"`
	Winner   int     `json:"winner"` // 0=none, 1=player1, 2=player2
}

// IsSnapshot implements the core.Snapshot marker.
func (Snapshot) IsSnapshot() {}

var _ core.Snapshot = Snapshot{}

// Snapshot converts the state into its broadcast form.
func (s State) Snapshot() Snapshot {
	return Snapshot{
		BallX:    s.Ball.X,
		BallY:    s.Ball.Y,
		BallVX:   s.Ball.VX,
		BallVY:   s.Ball.VY,
		Paddle1Y: s.Paddle1Y,
		Paddle2Y: s.Paddle2Y,
		Score1:   s.Score1,
		Score2:   s.Score2,
		Winner:   int(s.Winner),
	}
}
