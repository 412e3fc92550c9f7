package engine

import (
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/jonboulle/clockwork"
)

// TickScheduler fires a callback per registered room at a fixed interval.
// One scheduler drives one cadence; the registry owns a fast one for
// physics and a slow one for AI decisions.
type TickScheduler struct {
	clock    clockwork.Clock
	interval time.Duration
	logger   *log.Logger

	mu    sync.Mutex
	rooms map[string]func()

	// onEvict, when set, is told about rooms removed after a panic.
	onEvict func(roomID string)
	// keepOnPanic keeps a panicking room registered; the failed cycle is
	// logged and skipped. Used for advisory cadences like AI decisions.
	keepOnPanic bool

	stopOnce sync.Once
	done     chan struct{}
}

func NewTickScheduler(clock clockwork.Clock, interval time.Duration, logger *log.Logger) *TickScheduler {
	return &TickScheduler{
		clock:    clock,
		interval: interval,
		logger:   logger,
		rooms:    make(map[string]func()),
		done:     make(chan struct{}),
	}
}

// OnEvict sets the callback invoked after a panicking room is removed.
// Must be called before Run.
func (s *TickScheduler) OnEvict(fn func(roomID string)) {
	s.onEvict = fn
}

// KeepOnPanic makes a panic skip the room's cycle instead of evicting it.
// Must be called before Run.
func (s *TickScheduler) KeepOnPanic() {
	s.keepOnPanic = true
}

// RegisterRoom adds a per-tick callback under the room id. Registering an
// existing id replaces the callback.
func (s *TickScheduler) RegisterRoom(roomID string, tick func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rooms[roomID] = tick
}

// UnregisterRoom is idempotent.
func (s *TickScheduler) UnregisterRoom(roomID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.rooms, roomID)
}

// Run drives ticks until Stop. Blocks; callers start it on its own
// goroutine.
func (s *TickScheduler) Run() {
	ticker := s.clock.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-s.done:
			return
		case <-ticker.Chan():
			s.Tick()
		}
	}
}

func (s *TickScheduler) Stop() {
	s.stopOnce.Do(func() { close(s.done) })
}

// Tick runs every registered callback once, synchronously. A panicking
// room is logged and unregistered; the others keep ticking.
func (s *TickScheduler) Tick() {
	s.mu.Lock()
	callbacks := make(map[string]func(), len(s.rooms))
	for id, fn := range s.rooms {
		callbacks[id] = fn
	}
	s.mu.Unlock()

	for id, fn := range callbacks {
		s.safeTick(id, fn)
	}
}

func (s *TickScheduler) safeTick(roomID string, fn func()) {
	defer func() {
		if r := recover(); r != nil {
			if s.keepOnPanic {
				s.logger.Error("room tick panicked, skipping cycle", "room", roomID, "panic", r)
				return
			}
			s.logger.Error("room tick panicked, evicting", "room", roomID, "panic", r)
			s.UnregisterRoom(roomID)
			if s.onEvict != nil {
				s.onEvict(roomID)
			}
		}
	}()
	fn()
}
