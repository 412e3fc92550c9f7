package engine

import (
	"fmt"

	"github.com/dkarpov/netarcade/internal/core"
	"github.com/dkarpov/netarcade/internal/games/pong"
	"github.com/dkarpov/netarcade/internal/games/tetris"
)

// Variant adapts one game kernel to the session loop. Implementations are
// not safe for concurrent use; the owning session serializes access.
type Variant interface {
	Name() string
	Players() int
	Step(in core.MultiInput)
	Snapshot() core.Snapshot
	Terminal() bool
	Winner() core.PlayerID
	Scores() (int, int)
}

// aiVariant is implemented by variants that drive one slot themselves on
// the slow cadence.
type aiVariant interface {
	DecideAI()
}

// VariantConfig bundles the per-game tuning handed to variantFor.
type VariantConfig struct {
	Pong   pong.Config
	Tetris tetris.Config
}

func variantFor(name string, cfg VariantConfig, rng core.Rand) (Variant, error) {
	switch name {
	case "pong":
		return newPongVariant(cfg.Pong, rng), nil
	case "pong_ai":
		return newPongAIVariant(cfg.Pong, rng), nil
	case "tetris":
		return newTetrisVariant(cfg.Tetris, rng), nil
	default:
		return nil, fmt.Errorf("unknown game variant %q", name)
	}
}

type pongVariant struct {
	name  string
	cfg   pong.Config
	rng   core.Rand
	state pong.State
}

func newPongVariant(cfg pong.Config, rng core.Rand) *pongVariant {
	return &pongVariant{name: "pong", cfg: cfg, rng: rng, state: pong.NewState(cfg, rng)}
}

func (v *pongVariant) Name() string { return v.name }

func (v *pongVariant) Players() int { return 2 }

func (v *pongVariant) Step(in core.MultiInput) {
	v.state = pong.Step(v.cfg, v.state, in, v.rng)
}

func (v *pongVariant) Snapshot() core.Snapshot { return v.state.Snapshot() }

func (v *pongVariant) Terminal() bool { return v.state.Winner != core.NoPlayer }

func (v *pongVariant) Winner() core.PlayerID { return v.state.Winner }

func (v *pongVariant) Scores() (int, int) { return v.state.Score1, v.state.Score2 }

// pongAIVariant drives the second paddle itself. Only this type satisfies
// aiVariant, so plain PvP rooms never land on the decision driver.
type pongAIVariant struct {
	pongVariant
	ai      *pong.AI
	aiInput core.Input
}

func newPongAIVariant(cfg pong.Config, rng core.Rand) *pongAIVariant {
	return &pongAIVariant{
		pongVariant: pongVariant{name: "pong_ai", cfg: cfg, rng: rng, state: pong.NewState(cfg, rng)},
		ai:          pong.NewAI(cfg, rng),
	}
}

func (v *pongAIVariant) Players() int { return 1 }

func (v *pongAIVariant) Step(in core.MultiInput) {
	in.P2 = v.aiInput
	v.state = pong.Step(v.cfg, v.state, in, v.rng)
}

// DecideAI refreshes the held paddle input. Called on the slow cadence so
// the opponent reacts at a human pace.
func (v *pongAIVariant) DecideAI() {
	v.aiInput = v.ai.Decide(v.state)
}

type tetrisVariant struct {
	cfg   tetris.Config
	rng   core.Rand
	state tetris.State
}

func newTetrisVariant(cfg tetris.Config, rng core.Rand) *tetrisVariant {
	return &tetrisVariant{cfg: cfg, rng: rng, state: tetris.NewState(cfg, rng)}
}

func (v *tetrisVariant) Name() string { return "tetris" }

func (v *tetrisVariant) Players() int { return 1 }

func (v *tetrisVariant) Step(in core.MultiInput) {
	v.state = tetris.Step(v.cfg, v.state, in.P1, v.rng)
}

func (v *tetrisVariant) Snapshot() core.Snapshot { return v.state.Snapshot() }

func (v *tetrisVariant) Terminal() bool { return v.state.GameOver }

// Winner reports no player; a solo game ending is not a victory.
func (v *tetrisVariant) Winner() core.PlayerID { return core.NoPlayer }

func (v *tetrisVariant) Scores() (int, int) { return v.state.Score, 0 }
