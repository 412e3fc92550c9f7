package engine

import (
	"errors"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/jonboulle/clockwork"

	"github.com/dkarpov/netarcade/internal/core"
)

// Status is the room lifecycle. Transitions only move forward.
type Status int

const (
	StatusWaiting Status = iota
	StatusCountdown
	StatusInProgress
	StatusFinished
)

func (s Status) String() string {
	switch s {
	case StatusWaiting:
		return "waiting"
	case StatusCountdown:
		return "countdown"
	case StatusInProgress:
		return "in_progress"
	case StatusFinished:
		return "finished"
	}
	return "unknown"
}

// Participant is one connected occupant of a room.
type Participant struct {
	ConnID        string
	Alias         string
	UserID        string
	Authenticated bool
	Slot          core.PlayerID
}

var (
	ErrRoomFull   = errors.New("room is full")
	ErrNotWaiting = errors.New("room is no longer accepting players")
)

// AIName is the recorded identity of the built-in opponent.
const AIName = "ai"

// MatchSession owns one room: its variant state, occupants, and lifecycle.
// All methods are safe for concurrent use; a single mutex serializes the
// tick loop against joins, inputs, and terminations.
type MatchSession struct {
	id          string
	variant     Variant
	clock       clockwork.Clock
	broadcaster Broadcaster
	sink        ResultSink
	logger      *log.Logger

	// onResult fires exactly once when the session finishes.
	onResult func(MatchResult)

	mu           sync.Mutex
	status       Status
	participants map[string]*Participant
	// names remembers each slot's alias even after its occupant leaves,
	// so forfeit records still carry both players.
	names     map[core.PlayerID]string
	inputs    core.MultiInput
	tick      uint64
	startedAt time.Time
	countdown clockwork.Timer
}

func NewMatchSession(id string, v Variant, clock clockwork.Clock, b Broadcaster, sink ResultSink, logger *log.Logger, onResult func(MatchResult)) *MatchSession {
	return &MatchSession{
		id:           id,
		variant:      v,
		clock:        clock,
		broadcaster:  b,
		sink:         sink,
		logger:       logger,
		onResult:     onResult,
		status:       StatusWaiting,
		participants: make(map[string]*Participant),
		names:        make(map[core.PlayerID]string),
	}
}

func (m *MatchSession) ID() string { return m.id }

func (m *MatchSession) Status() Status {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.status
}

// Join seats a participant in the first free slot and announces the new
// room state to all occupants.
func (m *MatchSession) Join(p Participant) error {
	m.mu.Lock()
	if m.status != StatusWaiting {
		m.mu.Unlock()
		return ErrNotWaiting
	}
	if len(m.participants) >= m.variant.Players() {
		m.mu.Unlock()
		return ErrRoomFull
	}
	p.Slot = m.freeSlotLocked()
	m.participants[p.ConnID] = &p
	m.names[p.Slot] = p.Alias
	state := m.roomStateLocked()
	m.mu.Unlock()

	m.broadcaster.JoinGroup(m.id, p.ConnID)
	m.broadcaster.SendToGroup(m.id, EvtRoomState, state)
	return nil
}

func (m *MatchSession) freeSlotLocked() core.PlayerID {
	taken := map[core.PlayerID]bool{}
	for _, p := range m.participants {
		taken[p.Slot] = true
	}
	if !taken[core.Player1] {
		return core.Player1
	}
	return core.Player2
}

// Full reports whether every human slot is taken.
func (m *MatchSession) Full() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.participants) >= m.variant.Players()
}

// Start moves the room into in_progress. No-op unless the room is waiting
// or counting down.
func (m *MatchSession) Start() {
	m.mu.Lock()
	if m.status != StatusWaiting && m.status != StatusCountdown {
		m.mu.Unlock()
		return
	}
	m.status = StatusInProgress
	m.startedAt = m.clock.Now()
	m.mu.Unlock()

	m.broadcaster.SendToGroup(m.id, EvtMatchStarted, MatchStartedPayload{
		RoomID:  m.id,
		Variant: m.variant.Name(),
	})
}

// StartCountdown arms a delayed start. The timer is dropped if the session
// finishes first.
func (m *MatchSession) StartCountdown(d time.Duration) {
	m.mu.Lock()
	if m.status != StatusWaiting {
		m.mu.Unlock()
		return
	}
	m.status = StatusCountdown
	m.countdown = m.clock.AfterFunc(d, m.Start)
	m.mu.Unlock()
}

// ApplyInput records the latest held input for the sender's slot. Inputs
// from non-participants or outside in_progress are dropped silently.
func (m *MatchSession) ApplyInput(connID string, in core.Input) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.status != StatusInProgress {
		return
	}
	p, ok := m.participants[connID]
	if !ok {
		return
	}
	m.inputs.Set(p.Slot, in)
}

// Tick advances the variant by one step and broadcasts the snapshot. Runs
// on the fast cadence.
func (m *MatchSession) Tick() {
	m.mu.Lock()
	if m.status != StatusInProgress {
		m.mu.Unlock()
		return
	}
	m.variant.Step(m.inputs)
	m.tick++
	payload := GameStatePayload{RoomID: m.id, Tick: m.tick, State: m.variant.Snapshot()}
	terminal := m.variant.Terminal()
	winner := m.variant.Winner()
	m.mu.Unlock()

	m.broadcaster.SendToGroup(m.id, EvtGameState, payload)
	if terminal {
		m.finish(winner, ReasonCompleted)
	}
}

// DecideAI runs the variant's opponent logic, if any. Runs on the slow
// cadence.
func (m *MatchSession) DecideAI() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.status != StatusInProgress {
		return
	}
	if ai, ok := m.variant.(aiVariant); ok {
		ai.DecideAI()
	}
}

// TerminateParticipant removes a participant. Mid-match this forfeits the
// game to the remaining opponent; in a waiting room it only frees the seat.
// The reason distinguishes a deliberate leave from a dropped connection.
func (m *MatchSession) TerminateParticipant(connID, reason string) {
	m.mu.Lock()
	p, ok := m.participants[connID]
	if !ok {
		m.mu.Unlock()
		return
	}
	delete(m.participants, connID)
	m.inputs.Set(p.Slot, core.Input{})
	status := m.status
	deserted := len(m.participants) == 0
	state := m.roomStateLocked()
	m.mu.Unlock()

	m.broadcaster.LeaveGroup(m.id, connID)

	switch status {
	case StatusInProgress, StatusCountdown:
		// With nobody left (solo and AI rooms) no winner is inferred.
		winner := p.Slot.Opponent()
		if deserted {
			winner = core.NoPlayer
		}
		m.finish(winner, reason)
	case StatusWaiting:
		m.broadcaster.SendToGroup(m.id, EvtRoomState, state)
	}
}

// Stop force-finishes the session with no winner, for shutdown paths. A
// room that never started is closed silently, with no record and no
// match_ended.
func (m *MatchSession) Stop() {
	m.mu.Lock()
	if m.status == StatusWaiting {
		m.status = StatusFinished
		m.mu.Unlock()
		return
	}
	m.mu.Unlock()
	m.finish(core.NoPlayer, ReasonStopped)
}

// Fail force-finishes a faulting room with no winner and a server_error
// outcome.
func (m *MatchSession) Fail() {
	m.finish(core.NoPlayer, ReasonServerError)
}

// finish is the single terminal transition. Idempotent; later calls see
// StatusFinished and return.
func (m *MatchSession) finish(winner core.PlayerID, reason string) {
	m.mu.Lock()
	if m.status == StatusFinished {
		m.mu.Unlock()
		return
	}
	m.status = StatusFinished
	if m.countdown != nil {
		m.countdown.Stop()
	}

	score1, score2 := m.variant.Scores()
	result := MatchResult{
		RoomID: m.id,
		Winner: winner,
		Reason: reason,
		Score1: score1,
		Score2: score2,
		Ticks:  m.tick,
	}
	result.WinnerName = m.slotNameLocked(winner)
	if p := m.participantBySlotLocked(winner); p != nil {
		result.WinnerConnID = p.ConnID
	}
	rec := m.recordLocked(result)
	m.mu.Unlock()

	m.broadcaster.SendToGroup(m.id, EvtMatchEnded, MatchEndedPayload{
		RoomID: m.id,
		Winner: result.WinnerName,
		Reason: reason,
		Score1: score1,
		Score2: score2,
	})

	if m.sink != nil {
		// Persistence must not stall the tick loop.
		go func() {
			if err := m.sink.Persist(rec); err != nil {
				m.logger.Error("failed to persist game record", "room", m.id, "err", err)
			}
		}()
	}
	if m.onResult != nil {
		m.onResult(result)
	}
}

func (m *MatchSession) participantBySlotLocked(slot core.PlayerID) *Participant {
	for _, p := range m.participants {
		if p.Slot == slot {
			return p
		}
	}
	return nil
}

// slotNameLocked resolves a slot to a recordable identity. A slot that was
// never seated resolves to the AI name when the variant drives it, and
// stays neutral otherwise.
func (m *MatchSession) slotNameLocked(slot core.PlayerID) string {
	if slot == core.NoPlayer {
		return NeutralWinner
	}
	if name, ok := m.names[slot]; ok {
		return name
	}
	if _, ok := m.variant.(aiVariant); ok && slot == core.Player2 {
		return AIName
	}
	return NeutralWinner
}

func (m *MatchSession) recordLocked(result MatchResult) GameRecord {
	started := m.startedAt
	if started.IsZero() {
		started = m.clock.Now()
	}
	return GameRecord{
		GameName:   m.variant.Name(),
		StartedAt:  started,
		FinishedAt: m.clock.Now(),
		Player1:    m.slotNameLocked(core.Player1),
		Player2:    m.slotNameLocked(core.Player2),
		Winner:     result.WinnerName,
		OutcomeData: map[string]any{
			"score1": result.Score1,
			"score2": result.Score2,
			"reason": result.Reason,
			"ticks":  result.Ticks,
		},
	}
}

func (m *MatchSession) roomStateLocked() RoomStatePayload {
	players := make([]string, 0, len(m.participants))
	for _, p := range m.participants {
		players = append(players, p.Alias)
	}
	return RoomStatePayload{
		RoomID:  m.id,
		Variant: m.variant.Name(),
		Status:  m.status.String(),
		Players: players,
	}
}
