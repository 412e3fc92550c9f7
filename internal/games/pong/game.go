// Package pong implements the authoritative Pong simulation.
// The kernel is a pure step function: given a state, the per-player input
// flags, and a randomness source it produces the next state without touching
// timers or I/O. The match engine drives it at a fixed tick rate.
package pong

import (
	"math"

	"github.com/dkarpov/netarcade/internal/core"
)

// Physics constants that are not worth tuning per deployment.
const (
	// MaxBounceAngle bounds the angle of a paddle bounce at 30 degrees from
	// the horizontal.
	MaxBounceAngle = math.Pi / 6

	// BounceJitter perturbs the bounce angle by up to +-0.1 rad so rallies
	// are not perfectly predictable.
	BounceJitter = 0.1

	// SpeedUpFactor multiplies ball speed on every paddle contact. There is
	// no cap: escalating speed is what ends long rallies.
	SpeedUpFactor = 1.1

	// ServeSpread bounds the randomized vertical angle of a serve.
	ServeSpread = 0.6
)

// Config contains the tunable parameters of a Pong board.
type Config struct {
	BoardWidth   float64 `yaml:"board_width"`
	BoardHeight  float64 `yaml:"board_height"`
	PaddleWidth  float64 `yaml:"paddle_width"`
	PaddleHeight float64 `yaml:"paddle_height"`
	PaddleOffset float64 `yaml:"paddle_offset"` // distance from the goal line
	PaddleSpeed  float64 `yaml:"paddle_speed"`  // units per tick
	BallSpeed    float64 `yaml:"ball_speed"`    // serve speed, units per tick
	WinningScore int     `yaml:"winning_score"`
}

// DefaultConfig returns the standard board.
func DefaultConfig() Config {
	return Config{
		BoardWidth:   640,
		BoardHeight:  360,
		PaddleWidth:  10,
		PaddleHeight: 60,
		PaddleOffset: 10,
		PaddleSpeed:  5,
		BallSpeed:    5,
		WinningScore: 10,
	}
}

// Ball is the ball position and velocity in board units per tick.
type Ball struct {
	X, Y   float64
	VX, VY float64
}

// State is the complete simulation state of one Pong match.
// It is a value type: Step returns a new State and never mutates its input.
type State struct {
	Ball     Ball
	Paddle1Y float64 // top edge of the left paddle
	Paddle2Y float64 // top edge of the right paddle
	Score1   int
	Score2   int
	Winner   core.PlayerID // NoPlayer until a score reaches WinningScore
}

// NewState returns the initial state with centered paddles and a serve
// toward a random side.
func NewState(cfg Config, rng core.Rand) State {
	s := State{
		Paddle1Y: (cfg.BoardHeight - cfg.PaddleHeight) / 2,
		Paddle2Y: (cfg.BoardHeight - cfg.PaddleHeight) / 2,
	}
	toward := core.Player1
	if rng.Intn(2) == 0 {
		toward = core.Player2
	}
	s.Ball = serve(cfg, rng, toward)
	return s
}

// serve places the ball at the center moving toward the given side at base
// speed with a randomized vertical component.
func serve(cfg Config, rng core.Rand, toward core.PlayerID) Ball {
	angle := (rng.Float64()*2 - 1) * ServeSpread
	dir := 1.0
	if toward == core.Player1 {
		dir = -1.0
	}
	return Ball{
		X:  cfg.BoardWidth / 2,
		Y:  cfg.BoardHeight / 2,
		VX: dir * cfg.BallSpeed * math.Cos(angle),
		VY: cfg.BallSpeed * math.Sin(angle),
	}
}

// Step advances the simulation by one tick. Deterministic given identical
// (state, inputs) and RNG stream. A finished match is a fixed point.
func Step(cfg Config, s State, in core.MultiInput, rng core.Rand) State {
	if s.Winner != core.NoPlayer {
		return s
	}

	s.Paddle1Y = movePaddle(cfg, s.Paddle1Y, in.P1)
	s.Paddle2Y = movePaddle(cfg, s.Paddle2Y, in.P2)

	s.Ball.X += s.Ball.VX
	s.Ball.Y += s.Ball.VY

	// Wall reflection with positional clamping so the ball cannot leak out
	// of bounds between ticks.
	if s.Ball.Y < 0 {
		s.Ball.Y = 0
		s.Ball.VY = -s.Ball.VY
	}
	if s.Ball.Y > cfg.BoardHeight {
		s.Ball.Y = cfg.BoardHeight
		s.Ball.VY = -s.Ball.VY
	}

	s.Ball = bounceOffPaddles(cfg, s, rng)

	// Goal resolution, then the terminal check exactly once per tick.
	switch {
	case s.Ball.X < 0:
		s.Score2++
		s.Ball = serve(cfg, rng, core.Player1)
	case s.Ball.X > cfg.BoardWidth:
		s.Score1++
		s.Ball = serve(cfg, rng, core.Player2)
	}

	if s.Score1 >= cfg.WinningScore {
		s.Winner = core.Player1
	} else if s.Score2 >= cfg.WinningScore {
		s.Winner = core.Player2
	}

	return s
}

func movePaddle(cfg Config, y float64, in core.Input) float64 {
	if in.Up {
		y -= cfg.PaddleSpeed
	}
	if in.Down {
		y += cfg.PaddleSpeed
	}
	return core.ClampF(y, 0, cfg.BoardHeight-cfg.PaddleHeight)
}

func bounceOffPaddles(cfg Config, s State, rng core.Rand) Ball {
	b := s.Ball

	leftFace := cfg.PaddleOffset + cfg.PaddleWidth
	if b.VX < 0 && b.X <= leftFace && b.X >= 0 &&
		b.Y >= s.Paddle1Y && b.Y <= s.Paddle1Y+cfg.PaddleHeight {
		b = deflect(cfg, b, s.Paddle1Y, rng, 1)
		b.X = leftFace
	}

	rightFace := cfg.BoardWidth - cfg.PaddleOffset - cfg.PaddleWidth
	if b.VX > 0 && b.X >= rightFace && b.X <= cfg.BoardWidth &&
		b.Y >= s.Paddle2Y && b.Y <= s.Paddle2Y+cfg.PaddleHeight {
		b = deflect(cfg, b, s.Paddle2Y, rng, -1)
		b.X = rightFace
	}

	return b
}

// deflect computes the outgoing velocity for a paddle contact. The bounce
// angle is proportional to the contact offset from the paddle center,
// normalized to [-MaxBounceAngle, MaxBounceAngle], jittered, and the speed is
// multiplied by SpeedUpFactor.
func deflect(cfg Config, b Ball, paddleY float64, rng core.Rand, dir float64) Ball {
	rel := (b.Y - (paddleY + cfg.PaddleHeight/2)) / (cfg.PaddleHeight / 2)
	rel = core.ClampF(rel, -1, 1)
	angle := rel*MaxBounceAngle + (rng.Float64()*2-1)*BounceJitter
	speed := math.Hypot(b.VX, b.VY) * SpeedUpFactor
	b.VX = dir * speed * math.Cos(angle)
	b.VY = speed * math.Sin(angle)
	return b
}
