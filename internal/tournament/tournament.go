// Package tournament runs single-elimination pong brackets on top of the
// match engine. One match plays at a time; losers are eliminated and the
// pool is re-paired until a single player remains.
package tournament

import (
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"golang.org/x/crypto/bcrypt"

	"github.com/dkarpov/netarcade/internal/core"
	"github.com/dkarpov/netarcade/internal/engine"
)

// Config tunes bracket pacing.
type Config struct {
	// AnnounceCountdown is the delay between match_announced and the
	// match actually starting.
	AnnounceCountdown time.Duration
	// RepairDelay is the pause between a match ending and the next
	// pairing.
	RepairDelay time.Duration
	// DestroyGrace is how long a finished match room survives so both
	// players can see the final score.
	DestroyGrace time.Duration
	// MinPlayers gates start_tournament.
	MinPlayers int
}

func DefaultConfig() Config {
	return Config{
		AnnounceCountdown: 3 * time.Second,
		RepairDelay:       2 * time.Second,
		DestroyGrace:      10 * time.Second,
		MinPlayers:        2,
	}
}

type state int

const (
	stateGathering state = iota
	stateRunning
	stateFinished
)

// Player is one bracket entrant.
type Player struct {
	ConnID string
	Alias  string
}

type bracket struct {
	id           string
	name         string
	creatorConn  string
	passwordHash []byte
	state        state
	// players keeps join order for listings; remaining is the
	// not-yet-eliminated pool.
	players   []Player
	remaining []Player
	// match is the live room, nil between pairings.
	match        *engine.MatchSession
	matchPlayers [2]Player
	destroyed    bool
}

// Payloads specific to bracket events.
type MatchAnnouncedPayload struct {
	TournamentID string `json:"tournamentId"`
	RoomID       string `json:"roomId"`
	Player1      string `json:"player1"`
	Player2      string `json:"player2"`
	CountdownSec int    `json:"countdownSec"`
}

type FinishedPayload struct {
	TournamentID string `json:"tournamentId"`
	Winner       string `json:"winner"`
}

type StatePayload struct {
	TournamentID string   `json:"tournamentId"`
	Name         string   `json:"name"`
	Status       string   `json:"status"`
	Players      []string `json:"players"`
	Remaining    []string `json:"remaining"`
}

// Scheduler owns every live bracket. Like the session registry, invalid
// client operations are dropped or answered with an error event; they
// never crash the scheduler.
type Scheduler struct {
	cfg         Config
	clock       clockwork.Clock
	registry    *engine.SessionRegistry
	broadcaster engine.Broadcaster
	rng         core.Rand
	logger      *log.Logger

	mu          sync.Mutex
	brackets    map[string]*bracket
	connBracket map[string]string
}

func NewScheduler(cfg Config, clock clockwork.Clock, registry *engine.SessionRegistry, b engine.Broadcaster, rng core.Rand, logger *log.Logger) *Scheduler {
	if cfg.MinPlayers < 2 {
		cfg.MinPlayers = 2
	}
	return &Scheduler{
		cfg:         cfg,
		clock:       clock,
		registry:    registry,
		broadcaster: b,
		rng:         rng,
		logger:      logger,
		brackets:    make(map[string]*bracket),
		connBracket: make(map[string]string),
	}
}

// Create opens a bracket with the creator enrolled. An empty password
// leaves the bracket open.
func (s *Scheduler) Create(connID, alias, name, password string) {
	var hash []byte
	if password != "" {
		var err error
		hash, err = bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
		if err != nil {
			s.sendError(connID, "could not set tournament password")
			return
		}
	}

	b := &bracket{
		id:           uuid.NewString(),
		name:         name,
		creatorConn:  connID,
		passwordHash: hash,
		state:        stateGathering,
	}
	b.players = []Player{{ConnID: connID, Alias: alias}}
	b.remaining = append([]Player(nil), b.players...)

	s.mu.Lock()
	s.brackets[b.id] = b
	s.connBracket[connID] = b.id
	s.mu.Unlock()

	s.broadcaster.JoinGroup(b.id, connID)
	s.broadcaster.SendTo(connID, engine.EvtRoomCreated, s.statePayload(b))
	s.logger.Info("tournament created", "tournament", b.id, "name", name, "by", alias)
}

// Join enrolls a player into a gathering bracket.
func (s *Scheduler) Join(connID, alias, tournamentID, password string) {
	s.mu.Lock()
	b, ok := s.brackets[tournamentID]
	if !ok {
		s.mu.Unlock()
		s.sendError(connID, "tournament not found")
		return
	}
	if b.state != stateGathering {
		s.mu.Unlock()
		s.sendError(connID, "tournament already started")
		return
	}
	if len(b.passwordHash) > 0 {
		if bcrypt.CompareHashAndPassword(b.passwordHash, []byte(password)) != nil {
			s.mu.Unlock()
			s.sendError(connID, "wrong tournament password")
			return
		}
	}
	for _, p := range b.players {
		if p.ConnID == connID {
			s.mu.Unlock()
			return
		}
	}
	p := Player{ConnID: connID, Alias: alias}
	b.players = append(b.players, p)
	b.remaining = append(b.remaining, p)
	s.connBracket[connID] = b.id
	payload := s.statePayload(b)
	s.mu.Unlock()

	s.broadcaster.JoinGroup(tournamentID, connID)
	s.broadcaster.SendToGroup(tournamentID, engine.EvtRoomState, payload)
}

// Start launches the bracket. Only the creator may start, and only once
// enough players gathered.
func (s *Scheduler) Start(connID string) {
	s.mu.Lock()
	b := s.bracketForLocked(connID)
	if b == nil || b.creatorConn != connID || b.state != stateGathering {
		s.mu.Unlock()
		return
	}
	if len(b.remaining) < s.cfg.MinPlayers {
		s.mu.Unlock()
		s.sendError(connID, "not enough players")
		return
	}
	b.state = stateRunning
	s.mu.Unlock()

	s.pairNext(b.id)
}

// Leave handles a deliberate exit; Disconnect a dropped connection. The
// creator leaving destroys the whole bracket either way.
func (s *Scheduler) Leave(connID string)      { s.remove(connID, engine.ReasonLeft) }
func (s *Scheduler) Disconnect(connID string) { s.remove(connID, engine.ReasonDisconnected) }

// Stop tears down every bracket, for shutdown.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	ids := make([]string, 0, len(s.brackets))
	for id := range s.brackets {
		ids = append(ids, id)
	}
	s.mu.Unlock()
	for _, id := range ids {
		s.destroy(id, engine.ReasonStopped)
	}
}

func (s *Scheduler) remove(connID, reason string) {
	s.mu.Lock()
	b := s.bracketForLocked(connID)
	if b == nil {
		s.mu.Unlock()
		return
	}
	delete(s.connBracket, connID)

	if b.creatorConn == connID {
		id := b.id
		s.mu.Unlock()
		s.destroy(id, reason)
		return
	}

	b.players = removePlayer(b.players, connID)
	b.remaining = removePlayer(b.remaining, connID)
	inMatch := b.match != nil && (b.matchPlayers[0].ConnID == connID || b.matchPlayers[1].ConnID == connID)
	id := b.id
	payload := s.statePayload(b)
	s.mu.Unlock()

	s.broadcaster.LeaveGroup(id, connID)
	s.broadcaster.SendToGroup(id, engine.EvtRoomState, payload)

	if inMatch {
		// Forfeit flows back through the match result callback.
		s.registry.Leave(connID)
		return
	}
	s.checkCompletion(id)
}

func (s *Scheduler) bracketForLocked(connID string) *bracket {
	id, ok := s.connBracket[connID]
	if !ok {
		return nil
	}
	return s.brackets[id]
}

// pairNext shuffles the pool and seats the first two players. Repeat
// pairings across rounds are allowed; the draw is uniform each time.
func (s *Scheduler) pairNext(tournamentID string) {
	s.mu.Lock()
	b, ok := s.brackets[tournamentID]
	if !ok || b.state != stateRunning || b.match != nil {
		s.mu.Unlock()
		return
	}
	if len(b.remaining) < 2 {
		s.mu.Unlock()
		s.checkCompletion(tournamentID)
		return
	}

	s.rng.Shuffle(len(b.remaining), func(i, j int) {
		b.remaining[i], b.remaining[j] = b.remaining[j], b.remaining[i]
	})
	p1, p2 := b.remaining[0], b.remaining[1]
	b.matchPlayers = [2]Player{p1, p2}
	s.mu.Unlock()

	session, err := s.registry.CreateMatch("pong", []engine.Participant{
		{ConnID: p1.ConnID, Alias: p1.Alias},
		{ConnID: p2.ConnID, Alias: p2.Alias},
	}, func(res engine.MatchResult) { s.onMatchResult(tournamentID, res) })
	if err != nil {
		s.logger.Error("failed to open bracket match", "tournament", tournamentID, "err", err)
		s.destroy(tournamentID, engine.ReasonServerError)
		return
	}

	s.mu.Lock()
	if cur, live := s.brackets[tournamentID]; !live || cur != b || b.destroyed {
		// Bracket went away while the room was being opened.
		s.mu.Unlock()
		s.registry.DestroyRoom(session.ID(), "tournament_destroyed")
		return
	}
	b.match = session
	s.mu.Unlock()

	s.broadcaster.SendToGroup(tournamentID, engine.EvtMatchAnnounced, MatchAnnouncedPayload{
		TournamentID: tournamentID,
		RoomID:       session.ID(),
		Player1:      p1.Alias,
		Player2:      p2.Alias,
		CountdownSec: int(s.cfg.AnnounceCountdown / time.Second),
	})
	session.StartCountdown(s.cfg.AnnounceCountdown)
}

func (s *Scheduler) onMatchResult(tournamentID string, res engine.MatchResult) {
	s.mu.Lock()
	b, ok := s.brackets[tournamentID]
	if !ok || b.match == nil || b.match.ID() != res.RoomID {
		s.mu.Unlock()
		return
	}
	roomID := res.RoomID
	b.match = nil

	// The loser is out. With no rule-based or forfeit winner, both seats
	// are eliminated.
	var survivors []Player
	for _, p := range b.remaining {
		inMatch := p.ConnID == b.matchPlayers[0].ConnID || p.ConnID == b.matchPlayers[1].ConnID
		if !inMatch || p.ConnID == res.WinnerConnID {
			survivors = append(survivors, p)
		}
	}
	b.remaining = survivors
	s.mu.Unlock()

	s.clock.AfterFunc(s.cfg.DestroyGrace, func() {
		s.registry.DestroyRoom(roomID, "bracket_complete")
	})
	s.clock.AfterFunc(s.cfg.RepairDelay, func() {
		s.pairNext(tournamentID)
	})
}

// checkCompletion finishes the bracket when at most one player remains.
func (s *Scheduler) checkCompletion(tournamentID string) {
	s.mu.Lock()
	b, ok := s.brackets[tournamentID]
	if !ok || b.state != stateRunning || b.match != nil || len(b.remaining) >= 2 {
		s.mu.Unlock()
		return
	}
	b.state = stateFinished
	winner := engine.NeutralWinner
	if len(b.remaining) == 1 {
		winner = b.remaining[0].Alias
	}
	s.mu.Unlock()

	s.broadcaster.SendToGroup(tournamentID, engine.EvtTournamentFinished, FinishedPayload{
		TournamentID: tournamentID,
		Winner:       winner,
	})
	s.logger.Info("tournament finished", "tournament", tournamentID, "winner", winner)

	// The lobby lingers through the grace window so everyone sees the
	// final standings before the group goes away.
	s.clock.AfterFunc(s.cfg.DestroyGrace, func() {
		s.destroy(tournamentID, "finished")
	})
}

// destroy is the single teardown path. Idempotent.
func (s *Scheduler) destroy(tournamentID, reason string) {
	s.mu.Lock()
	b, ok := s.brackets[tournamentID]
	if !ok || b.destroyed {
		s.mu.Unlock()
		return
	}
	b.destroyed = true
	delete(s.brackets, tournamentID)
	var conns []string
	for conn, id := range s.connBracket {
		if id == tournamentID {
			delete(s.connBracket, conn)
			conns = append(conns, conn)
		}
	}
	match := b.match
	b.match = nil
	s.mu.Unlock()

	if match != nil {
		s.registry.DestroyRoom(match.ID(), reason)
	}
	s.broadcaster.SendToGroup(tournamentID, engine.EvtRoomDestroyed, engine.RoomDestroyedPayload{
		RoomID: tournamentID,
		Reason: reason,
	})
	for _, conn := range conns {
		s.broadcaster.LeaveGroup(tournamentID, conn)
	}
	s.logger.Info("tournament destroyed", "tournament", tournamentID, "reason", reason)
}

func (s *Scheduler) statePayload(b *bracket) StatePayload {
	names := make([]string, len(b.players))
	for i, p := range b.players {
		names[i] = p.Alias
	}
	left := make([]string, len(b.remaining))
	for i, p := range b.remaining {
		left[i] = p.Alias
	}
	return StatePayload{
		TournamentID: b.id,
		Name:         b.name,
		Status:       stateName(b.state),
		Players:      names,
		Remaining:    left,
	}
}

func stateName(st state) string {
	switch st {
	case stateGathering:
		return "gathering"
	case stateRunning:
		return "running"
	case stateFinished:
		return "finished"
	}
	return "unknown"
}

func (s *Scheduler) sendError(connID, msg string) {
	s.broadcaster.SendTo(connID, engine.EvtError, engine.ErrorPayload{Message: msg})
}

func removePlayer(players []Player, connID string) []Player {
	out := players[:0]
	for _, p := range players {
		if p.ConnID != connID {
			out = append(out, p)
		}
	}
	return out
}
