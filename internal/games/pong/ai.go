package pong

import "github.com/dkarpov/netarcade/internal/core"

// AI tuning constants.
const (
	// aiDeadZone is how far the paddle center may sit from the target before
	// the AI bothers moving.
	aiDeadZone = 6.0

	// aiAimError is the magnitude of the random offset added to a predicted
	// intercept so the opponent is beatable.
	aiAimError = 25.0

	// aiMaxPredictSteps bounds the look-ahead simulation. The decision cycle
	// shares the process with every other room, so prediction cost must stay
	// bounded.
	aiMaxPredictSteps = 2000
)

// AI is the synthetic right-side opponent. It "thinks" on a slow cadence
// (the engine's decision driver, 1 Hz) and exposes the resulting directional
// flags, which the physics tick consumes every tick like any player input.
type AI struct {
	cfg Config
	rng core.Rand

	// One target is computed per approach of the ball and memoized until the
	// ball moves away again.
	targetY   float64
	hasTarget bool
}

// NewAI creates an opponent for the given board.
func NewAI(cfg Config, rng core.Rand) *AI {
	return &AI{cfg: cfg, rng: rng}
}

// Predict simulates the ball forward using only the wall reflection rules
// (paddles ignored) until it crosses the AI goal line, and returns the
// intercept y plus a random offset, clamped to reachable paddle centers.
// If the simulation does not converge within the step budget it returns the
// vertical center of the board.
func (a *AI) Predict(s State) float64 {
	b := s.Ball
	goalX := a.cfg.BoardWidth - a.cfg.PaddleOffset - a.cfg.PaddleWidth

	for n := 0; n < aiMaxPredictSteps; n++ {
		b.X += b.VX
		b.Y += b.VY
		if b.Y < 0 {
			b.Y = 0
			b.VY = -b.VY
		}
		if b.Y > a.cfg.BoardHeight {
			b.Y = a.cfg.BoardHeight
			b.VY = -b.VY
		}
		if b.X >= goalX {
			y := b.Y + (a.rng.Float64()*2-1)*aiAimError
			half := a.cfg.PaddleHeight / 2
			return core.ClampF(y, half, a.cfg.BoardHeight-half)
		}
	}
	return a.cfg.BoardHeight / 2
}

// Decide runs one decision cycle and returns the input flags to hold until
// the next cycle. When the ball is moving away the target and input are
// cleared; otherwise the intercept is computed once per approach and the
// paddle is steered toward it outside a small dead zone.
func (a *AI) Decide(s State) core.Input {
	if s.Ball.VX <= 0 {
		a.hasTarget = false
		return core.Input{}
	}

	if !a.hasTarget {
		a.targetY = a.Predict(s)
		a.hasTarget = true
	}

	center := s.Paddle2Y + a.cfg.PaddleHeight/2
	switch {
	case center < a.targetY-aiDeadZone:
		return core.Input{Down: true}
	case center > a.targetY+aiDeadZone:
		return core.Input{Up: true}
	default:
		return core.Input{}
	}
}
