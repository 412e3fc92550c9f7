package engine

import (
	"io"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/jonboulle/clockwork"
)

func testLogger() *log.Logger {
	return log.New(io.Discard)
}

func TestTickRunsAllRooms(t *testing.T) {
	s := NewTickScheduler(clockwork.NewFakeClock(), PhysicsInterval, testLogger())

	counts := map[string]int{}
	s.RegisterRoom("a", func() { counts["a"]++ })
	s.RegisterRoom("b", func() { counts["b"]++ })

	s.Tick()
	s.Tick()

	if counts["a"] != 2 || counts["b"] != 2 {
		t.Errorf("tick counts = %v, want 2 each", counts)
	}
}

func TestUnregisterIsIdempotent(t *testing.T) {
	s := NewTickScheduler(clockwork.NewFakeClock(), PhysicsInterval, testLogger())

	ran := 0
	s.RegisterRoom("a", func() { ran++ })
	s.UnregisterRoom("a")
	s.UnregisterRoom("a")
	s.UnregisterRoom("never-registered")

	s.Tick()
	if ran != 0 {
		t.Errorf("unregistered room ticked %d times", ran)
	}
}

func TestPanickingRoomIsEvicted(t *testing.T) {
	s := NewTickScheduler(clockwork.NewFakeClock(), PhysicsInterval, testLogger())

	var evicted []string
	s.OnEvict(func(roomID string) { evicted = append(evicted, roomID) })

	healthy := 0
	s.RegisterRoom("bad", func() { panic("boom") })
	s.RegisterRoom("good", func() { healthy++ })

	s.Tick()
	if healthy != 1 {
		t.Fatalf("healthy room ticked %d times alongside a panic, want 1", healthy)
	}
	if len(evicted) != 1 || evicted[0] != "bad" {
		t.Errorf("evicted = %v, want [bad]", evicted)
	}

	// The panicking room must be gone; this tick would panic otherwise.
	s.Tick()
	if healthy != 2 {
		t.Errorf("healthy room ticked %d times, want 2", healthy)
	}
}

func TestKeepOnPanicRetainsRoom(t *testing.T) {
	s := NewTickScheduler(clockwork.NewFakeClock(), AIInterval, testLogger())
	s.KeepOnPanic()

	evicted := false
	s.OnEvict(func(string) { evicted = true })

	calls := 0
	s.RegisterRoom("flaky", func() {
		calls++
		if calls == 1 {
			panic("boom")
		}
	})

	s.Tick()
	s.Tick()
	if calls != 2 {
		t.Errorf("flaky room ran %d cycles, want 2 (panic skips, not evicts)", calls)
	}
	if evicted {
		t.Error("room evicted despite KeepOnPanic")
	}
}

func TestRunDrivesTicksUntilStop(t *testing.T) {
	clock := clockwork.NewFakeClock()
	s := NewTickScheduler(clock, PhysicsInterval, testLogger())

	ticked := make(chan struct{}, 16)
	s.RegisterRoom("a", func() { ticked <- struct{}{} })

	done := make(chan struct{})
	go func() {
		s.Run()
		close(done)
	}()

	clock.BlockUntil(1)
	clock.Advance(PhysicsInterval)
	select {
	case <-ticked:
	case <-time.After(time.Second):
		t.Fatal("no tick after advancing the clock")
	}

	s.Stop()
	s.Stop() // idempotent
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not return after Stop")
	}
}
