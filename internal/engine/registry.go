package engine

import (
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"

	"github.com/dkarpov/netarcade/internal/core"
)

// Cadences of the two tick drivers.
const (
	PhysicsInterval = time.Second / 60
	AIInterval      = time.Second
)

// RegistryConfig tunes the session registry.
type RegistryConfig struct {
	Variants VariantConfig
	// DestroyDelay is how long a finished room lingers so clients can
	// read the final state before room_destroyed.
	DestroyDelay time.Duration
}

// SessionRegistry owns every live room and the schedulers that drive them.
// Invalid operations (unknown room, stray input, double leave) are dropped
// silently; clients cannot crash the registry.
type SessionRegistry struct {
	cfg         RegistryConfig
	clock       clockwork.Clock
	broadcaster Broadcaster
	sink        ResultSink
	logger      *log.Logger
	newRand     func() core.Rand

	physics *TickScheduler
	ai      *TickScheduler

	mu       sync.Mutex
	rooms    map[string]*MatchSession
	connRoom map[string]string
}

func NewSessionRegistry(cfg RegistryConfig, clock clockwork.Clock, b Broadcaster, sink ResultSink, newRand func() core.Rand, logger *log.Logger) *SessionRegistry {
	if cfg.DestroyDelay <= 0 {
		cfg.DestroyDelay = 5 * time.Second
	}
	r := &SessionRegistry{
		cfg:         cfg,
		clock:       clock,
		broadcaster: b,
		sink:        sink,
		logger:      logger,
		newRand:     newRand,
		physics:     NewTickScheduler(clock, PhysicsInterval, logger),
		ai:          NewTickScheduler(clock, AIInterval, logger),
		rooms:       make(map[string]*MatchSession),
		connRoom:    make(map[string]string),
	}
	// A physics fault kills the room; a failed AI decision only costs the
	// opponent that cycle.
	r.physics.OnEvict(r.failRoom)
	r.ai.KeepOnPanic()
	return r
}

// Run starts both tick drivers. Blocks until Stop.
func (r *SessionRegistry) Run() {
	go r.ai.Run()
	r.physics.Run()
}

// Stop halts the drivers and force-finishes every live room.
func (r *SessionRegistry) Stop() {
	r.physics.Stop()
	r.ai.Stop()

	r.mu.Lock()
	sessions := make([]*MatchSession, 0, len(r.rooms))
	for _, s := range r.rooms {
		sessions = append(sessions, s)
	}
	r.mu.Unlock()

	for _, s := range sessions {
		s.Stop()
	}
}

// CreateRoom opens a room for the given variant with the creator seated.
func (r *SessionRegistry) CreateRoom(p Participant, variantName string) {
	session, err := r.newSession(variantName, func(res MatchResult) {
		r.scheduleDestroy(res.RoomID, EvtMatchEnded)
	})
	if err != nil {
		r.broadcaster.SendTo(p.ConnID, EvtError, ErrorPayload{Message: err.Error()})
		return
	}

	if err := r.seat(session, p); err != nil {
		r.destroyRoom(session.ID(), "empty")
		r.broadcaster.SendTo(p.ConnID, EvtError, ErrorPayload{Message: err.Error()})
		return
	}
	r.broadcaster.SendTo(p.ConnID, EvtRoomCreated, RoomStatePayload{
		RoomID:  session.ID(),
		Variant: variantName,
		Status:  session.Status().String(),
		Players: []string{p.Alias},
	})
	r.logger.Info("room created", "room", session.ID(), "variant", variantName, "by", p.Alias)
}

// JoinRoom seats a participant in an existing waiting room. An unknown
// room id is dropped silently; joins race teardown routinely.
func (r *SessionRegistry) JoinRoom(p Participant, roomID string) {
	r.mu.Lock()
	session, ok := r.rooms[roomID]
	r.mu.Unlock()
	if !ok {
		r.logger.Debug("join for unknown room dropped", "room", roomID, "conn", p.ConnID)
		return
	}
	if err := r.seat(session, p); err != nil {
		r.broadcaster.SendTo(p.ConnID, EvtError, ErrorPayload{Message: err.Error()})
	}
}

// StartGame starts the caller's room. No-op unless the caller is seated
// and every slot is filled.
func (r *SessionRegistry) StartGame(connID string) {
	session := r.sessionFor(connID)
	if session == nil || !session.Full() {
		return
	}
	session.Start()
}

// RouteInput forwards held input to the caller's room, if any.
func (r *SessionRegistry) RouteInput(connID string, in core.Input) {
	if session := r.sessionFor(connID); session != nil {
		session.ApplyInput(connID, in)
	}
}

// Leave handles a deliberate exit.
func (r *SessionRegistry) Leave(connID string) {
	r.terminateParticipant(connID, ReasonLeft)
}

// Disconnect handles a dropped connection. Same path as Leave apart from
// the recorded reason.
func (r *SessionRegistry) Disconnect(connID string) {
	r.terminateParticipant(connID, ReasonDisconnected)
}

// CreateMatch opens a room on behalf of the tournament scheduler: both
// players pre-seated, result routed to the given callback instead of the
// registry's own teardown. The caller owns countdown and destruction.
func (r *SessionRegistry) CreateMatch(variantName string, players []Participant, onResult func(MatchResult)) (*MatchSession, error) {
	session, err := r.newSession(variantName, onResult)
	if err != nil {
		return nil, err
	}
	for _, p := range players {
		if err := r.seat(session, p); err != nil {
			r.destroyRoom(session.ID(), "seating_failed")
			return nil, err
		}
	}
	return session, nil
}

// DestroyRoom tears a room down immediately. Exposed for session owners
// such as the tournament scheduler.
func (r *SessionRegistry) DestroyRoom(roomID, reason string) {
	r.destroyRoom(roomID, reason)
}

func (r *SessionRegistry) newSession(variantName string, onResult func(MatchResult)) (*MatchSession, error) {
	variant, err := variantFor(variantName, r.cfg.Variants, r.newRand())
	if err != nil {
		return nil, err
	}

	id := uuid.NewString()
	session := NewMatchSession(id, variant, r.clock, r.broadcaster, r.sink, r.logger, onResult)

	r.mu.Lock()
	r.rooms[id] = session
	r.mu.Unlock()

	r.physics.RegisterRoom(id, session.Tick)
	// Only variants that drive an opponent need the slow cadence.
	if _, ok := variant.(aiVariant); ok {
		r.ai.RegisterRoom(id, session.DecideAI)
	}
	return session, nil
}

func (r *SessionRegistry) seat(session *MatchSession, p Participant) error {
	r.mu.Lock()
	if prev, seated := r.connRoom[p.ConnID]; seated && prev != session.ID() {
		// One room per connection; leaving the old one first.
		r.mu.Unlock()
		r.terminateParticipant(p.ConnID, ReasonLeft)
		r.mu.Lock()
	}
	r.mu.Unlock()

	if err := session.Join(p); err != nil {
		return err
	}
	r.mu.Lock()
	r.connRoom[p.ConnID] = session.ID()
	r.mu.Unlock()
	return nil
}

func (r *SessionRegistry) sessionFor(connID string) *MatchSession {
	r.mu.Lock()
	defer r.mu.Unlock()
	roomID, ok := r.connRoom[connID]
	if !ok {
		return nil
	}
	return r.rooms[roomID]
}

func (r *SessionRegistry) terminateParticipant(connID, reason string) {
	r.mu.Lock()
	roomID, ok := r.connRoom[connID]
	if ok {
		delete(r.connRoom, connID)
	}
	session := r.rooms[roomID]
	r.mu.Unlock()
	if !ok || session == nil {
		return
	}

	session.TerminateParticipant(connID, reason)

	// A waiting room with nobody left is destroyed right away.
	r.mu.Lock()
	empty := true
	for _, room := range r.connRoom {
		if room == roomID {
			empty = false
			break
		}
	}
	r.mu.Unlock()
	if empty && session.Status() != StatusFinished {
		r.destroyRoom(roomID, "empty")
	}
}

// failRoom finishes a room evicted after a tick panic and tears it down.
// The faulting variant state cannot be trusted, so no winner is inferred.
func (r *SessionRegistry) failRoom(roomID string) {
	r.mu.Lock()
	session := r.rooms[roomID]
	r.mu.Unlock()
	if session == nil {
		return
	}
	session.Fail()
	r.destroyRoom(roomID, ReasonServerError)
}

func (r *SessionRegistry) scheduleDestroy(roomID, reason string) {
	r.clock.AfterFunc(r.cfg.DestroyDelay, func() {
		r.destroyRoom(roomID, reason)
	})
}

func (r *SessionRegistry) destroyRoom(roomID, reason string) {
	r.mu.Lock()
	session, ok := r.rooms[roomID]
	if ok {
		delete(r.rooms, roomID)
	}
	var conns []string
	for conn, room := range r.connRoom {
		if room == roomID {
			delete(r.connRoom, conn)
			conns = append(conns, conn)
		}
	}
	r.mu.Unlock()
	if !ok {
		return
	}

	r.physics.UnregisterRoom(roomID)
	r.ai.UnregisterRoom(roomID)
	session.Stop()
	r.broadcaster.SendToGroup(roomID, EvtRoomDestroyed, RoomDestroyedPayload{RoomID: roomID, Reason: reason})
	for _, conn := range conns {
		r.broadcaster.LeaveGroup(roomID, conn)
	}
	r.logger.Info("room destroyed", "room", roomID, "reason", reason)
}
