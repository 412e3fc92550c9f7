package pong

import (
	"math"
	"testing"

	"github.com/dkarpov/netarcade/internal/core"
)

// stubRand returns a fixed Float64 value; with 0.5 all jitter terms vanish.
type stubRand struct{ f float64 }

func (r stubRand) Float64() float64 { return r.f }
func (r stubRand) Intn(int) int { return 0 }
func (r stubRand) Shuffle(int, func(i, j int)) {}

func noJitter() core.Rand { return stubRand{f: 0.5} }

func TestPaddleStaysInBounds(t *testing.T) {
	cfg := DefaultConfig()
	s := NewState(cfg, noJitter())

	for n := 0; n < 500; n++ {
		s = Step(cfg, s, core.MultiInput{P1: core.Input{Up: true}, P2: core.Input{Down: true}}, noJitter())
	}

	if s.Paddle1Y != 0 {
		t.Errorf("Paddle1Y = %v, want 0 after holding up", s.Paddle1Y)
	}
	want := cfg.BoardHeight - cfg.PaddleHeight
	if s.Paddle2Y != want {
		t.Errorf("Paddle2Y = %v, want %v after holding down", s.Paddle2Y, want)
	}
}

func TestBallStaysInBounds(t *testing.T) {
	cfg := DefaultConfig()
	rng := core.NewRand(7)
	s := NewState(cfg, rng)

	for i := 0; i < 5000; i++ {
		var in core.MultiInput
		if rng.Intn(2) == 0 {
			in.P1.Up = true
		} else {
			in.P1.Down = true
		}
		s = Step(cfg, s, in, rng)

		if s.Ball.X < 0 || s.Ball.X > cfg.BoardWidth {
			t.Fatalf("tick %d: ball x = %v out of [0, %v]", i, s.Ball.X, cfg.BoardWidth)
		}
		if s.Ball.Y < 0 || s.Ball.Y > cfg.BoardHeight {
			t.Fatalf("tick %d: ball y = %v out of [0, %v]", i, s.Ball.Y, cfg.BoardHeight)
		}
		if s.Winner != core.NoPlayer {
			break
		}
	}
}

func TestScoreMonotonic(t *testing.T) {
	cfg := DefaultConfig()
	rng := core.NewRand(11)
	s := NewState(cfg, rng)

	prev1, prev2 := 0, 0
	for n := 0; n < 20000; n++ {
		s = Step(cfg, s, core.MultiInput{}, rng)
		if s.Score1 < prev1 || s.Score2 < prev2 {
			t.Fatalf("score decreased: (%d,%d) -> (%d,%d)", prev1, prev2, s.Score1, s.Score2)
		}
		prev1, prev2 = s.Score1, s.Score2
		if s.Winner != core.NoPlayer {
			break
		}
	}
}

func TestPaddleBounceSpeedsUp(t *testing.T) {
	cfg := DefaultConfig()
	face := cfg.BoardWidth - cfg.PaddleOffset - cfg.PaddleWidth

	s := State{
		Paddle1Y: 150,
		Paddle2Y: 150,
		Ball:     Ball{X: face - 2, Y: 180, VX: 4, VY: 3},
	}
	before := math.Hypot(4, 3)

	s = Step(cfg, s, core.MultiInput{}, noJitter())

	after := math.Hypot(s.Ball.VX, s.Ball.VY)
	if math.Abs(after-before*SpeedUpFactor) > 1e-9 {
		t.Errorf("post-bounce speed = %v, want %v", after, before*SpeedUpFactor)
	}
	if s.Ball.VX >= 0 {
		t.Errorf("ball should move left after right-paddle bounce, VX = %v", s.Ball.VX)
	}

	angle := math.Atan2(s.Ball.VY, -s.Ball.VX)
	if math.Abs(angle) > MaxBounceAngle+BounceJitter+1e-9 {
		t.Errorf("bounce angle %v exceeds bound %v", angle, MaxBounceAngle+BounceJitter)
	}
}

func TestBounceAngleFollowsContactOffset(t *testing.T) {
	cfg := DefaultConfig()
	face := cfg.BoardWidth - cfg.PaddleOffset - cfg.PaddleWidth

	tests := []struct {
		name   string
		ballY  float64
		wantVY func(vy float64) bool
	}{
		{"hit above center deflects up", 155, func(vy float64) bool { return vy < 0 }},
		{"hit center goes flat", 180, func(vy float64) bool { return math.Abs(vy) < 1e-9 }},
		{"hit below center deflects down", 205, func(vy float64) bool { return vy > 0 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := State{
				Paddle2Y: 150, // center at 180
				Ball:     Ball{X: face - 1, Y: tt.ballY, VX: 5, VY: 0},
			}
			s = Step(cfg, s, core.MultiInput{}, noJitter())
			if !tt.wantVY(s.Ball.VY) {
				t.Errorf("ball VY = %v after contact at y=%v", s.Ball.VY, tt.ballY)
			}
		})
	}
}

func TestGoalResetsBallTowardConceder(t *testing.T) {
	cfg := DefaultConfig()

	// Ball about to cross the left goal line with no paddle in the way.
	s := State{
		Paddle1Y: 300,
		Paddle2Y: 300,
		Ball:     Ball{X: 2, Y: 50, VX: -6, VY: 0},
	}
	s = Step(cfg, s, core.MultiInput{}, noJitter())

	if s.Score2 != 1 {
		t.Fatalf("Score2 = %d, want 1", s.Score2)
	}
	if s.Ball.X != cfg.BoardWidth/2 || s.Ball.Y != cfg.BoardHeight/2 {
		t.Errorf("ball not recentered: (%v, %v)", s.Ball.X, s.Ball.Y)
	}
	if s.Ball.VX >= 0 {
		t.Errorf("serve should head toward the conceder (left), VX = %v", s.Ball.VX)
	}
	speed := math.Hypot(s.Ball.VX, s.Ball.VY)
	if math.Abs(speed-cfg.BallSpeed) > 1e-9 {
		t.Errorf("serve speed = %v, want base speed %v", speed, cfg.BallSpeed)
	}
}

func TestWinningScoreEndsMatchOnce(t *testing.T) {
	cfg := DefaultConfig()

	s := State{
		Score1:   cfg.WinningScore - 1,
		Paddle1Y: 150,
		Paddle2Y: 0,
		Ball:     Ball{X: cfg.BoardWidth - 2, Y: 300, VX: 6, VY: 0},
	}
	s = Step(cfg, s, core.MultiInput{}, noJitter())

	if s.Score1 != cfg.WinningScore {
		t.Fatalf("Score1 = %d, want %d", s.Score1, cfg.WinningScore)
	}
	if s.Winner != core.Player1 {
		t.Fatalf("Winner = %v, want player1", s.Winner)
	}

	// A finished match is a fixed point.
	after := Step(cfg, s, core.MultiInput{P1: core.Input{Up: true}}, noJitter())
	if after != s {
		t.Error("Step on a finished match should not change state")
	}
}

func TestDeterministicGivenSameSeed(t *testing.T) {
	cfg := DefaultConfig()

	run := func(seed int64) State {
		rng := core.NewRand(seed)
		s := NewState(cfg, rng)
		for n := 0; n < 1000; n++ {
			s = Step(cfg, s, core.MultiInput{P1: core.Input{Down: true}}, rng)
		}
		return s
	}

	if run(42) != run(42) {
		t.Error("same seed should produce identical states")
	}
}
