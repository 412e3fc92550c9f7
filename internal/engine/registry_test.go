package engine

import (
	"testing"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/dkarpov/netarcade/internal/core"
	"github.com/dkarpov/netarcade/internal/games/pong"
	"github.com/dkarpov/netarcade/internal/games/tetris"
)

func newTestRegistry() (*SessionRegistry, *fakeBroadcaster, *fakeSink, *clockwork.FakeClock) {
	clock := clockwork.NewFakeClock()
	b := newFakeBroadcaster()
	sink := newFakeSink()
	cfg := RegistryConfig{
		Variants: VariantConfig{
			Pong:   pong.DefaultConfig(),
			Tetris: tetris.DefaultConfig(),
		},
		DestroyDelay: 5 * time.Second,
	}
	seed := int64(0)
	newRand := func() core.Rand {
		seed++
		return core.NewRand(seed)
	}
	return NewSessionRegistry(cfg, clock, b, sink, newRand, testLogger()), b, sink, clock
}

func createdRoomID(t *testing.T, b *fakeBroadcaster) string {
	t.Helper()
	e, ok := b.last(EvtRoomCreated)
	if !ok {
		t.Fatal("no room_created event")
	}
	return e.Payload.(RoomStatePayload).RoomID
}

func TestCreateJoinStartLifecycle(t *testing.T) {
	r, b, _, _ := newTestRegistry()

	r.CreateRoom(Participant{ConnID: "c1", Alias: "alice"}, "pong")
	roomID := createdRoomID(t, b)

	// One seat filled: start must be refused.
	r.StartGame("c1")
	if got := b.count(EvtMatchStarted); got != 0 {
		t.Fatal("match started with an empty seat")
	}

	r.JoinRoom(Participant{ConnID: "c2", Alias: "bob"}, roomID)
	r.StartGame("c2")
	if got := b.count(EvtMatchStarted); got != 1 {
		t.Fatalf("match_started broadcasts = %d, want 1", got)
	}

	r.RouteInput("c1", core.Input{Up: true})
	r.physics.Tick()
	if got := b.count(EvtGameState); got != 1 {
		t.Errorf("game_state broadcasts = %d, want 1", got)
	}
}

func TestUnknownVariantSendsError(t *testing.T) {
	r, b, _, _ := newTestRegistry()

	r.CreateRoom(Participant{ConnID: "c1", Alias: "alice"}, "chess")
	if _, ok := b.last(EvtError); !ok {
		t.Error("no error event for an unknown variant")
	}
	if _, ok := b.last(EvtRoomCreated); ok {
		t.Error("room created for an unknown variant")
	}
}

func TestJoinUnknownRoomIsIgnored(t *testing.T) {
	r, b, _, _ := newTestRegistry()

	// A join can race the room's teardown; it is not a client error.
	r.JoinRoom(Participant{ConnID: "c1", Alias: "alice"}, "no-such-room")
	if e, ok := b.last(EvtError); ok {
		t.Errorf("unexpected error event %+v for an unknown room", e)
	}
	if len(b.events) != 0 {
		t.Errorf("unknown-room join produced %d events, want none", len(b.events))
	}
}

func TestStrayOpsAreDropped(t *testing.T) {
	r, _, _, _ := newTestRegistry()

	// None of these may panic or create state.
	r.StartGame("ghost")
	r.RouteInput("ghost", core.Input{Up: true})
	r.Leave("ghost")
	r.Disconnect("ghost")
}

func TestDisconnectForfeitsAndDestroysAfterDelay(t *testing.T) {
	r, b, sink, clock := newTestRegistry()

	r.CreateRoom(Participant{ConnID: "c1", Alias: "alice"}, "pong")
	roomID := createdRoomID(t, b)
	r.JoinRoom(Participant{ConnID: "c2", Alias: "bob"}, roomID)
	r.StartGame("c1")
	r.physics.Tick()

	r.Disconnect("c2")

	ended, ok := b.last(EvtMatchEnded)
	if !ok {
		t.Fatal("no match_ended after disconnect")
	}
	payload := ended.Payload.(MatchEndedPayload)
	if payload.Winner != "alice" || payload.Reason != ReasonDisconnected {
		t.Errorf("payload = %+v", payload)
	}
	sink.wait(t)

	if got := b.count(EvtRoomDestroyed); got != 0 {
		t.Fatal("room destroyed before the grace delay")
	}
	clock.Advance(5 * time.Second)
	waitFor(t, func() bool { return b.count(EvtRoomDestroyed) == 1 }, "room not destroyed after the delay")

	// Input into the destroyed room is a no-op.
	before := b.count(EvtGameState)
	r.RouteInput("c1", core.Input{Up: true})
	r.physics.Tick()
	if b.count(EvtGameState) != before {
		t.Error("destroyed room still ticking")
	}
}

func TestLastLeaverDestroysWaitingRoom(t *testing.T) {
	r, b, _, _ := newTestRegistry()

	r.CreateRoom(Participant{ConnID: "c1", Alias: "alice"}, "tetris")
	r.Leave("c1")

	if got := b.count(EvtRoomDestroyed); got != 1 {
		t.Errorf("room_destroyed broadcasts = %d, want 1", got)
	}
	if got := b.count(EvtMatchEnded); got != 0 {
		t.Errorf("a waiting room produced match_ended on teardown")
	}
}

func TestCreatingSecondRoomLeavesFirst(t *testing.T) {
	r, b, _, _ := newTestRegistry()

	r.CreateRoom(Participant{ConnID: "c1", Alias: "alice"}, "pong")
	first := createdRoomID(t, b)
	r.CreateRoom(Participant{ConnID: "c1", Alias: "alice"}, "tetris")
	second := createdRoomID(t, b)

	if first == second {
		t.Fatal("expected a fresh room id")
	}
	// The first room emptied out and went away.
	if got := b.count(EvtRoomDestroyed); got != 1 {
		t.Errorf("room_destroyed broadcasts = %d, want 1", got)
	}
}

func TestDecisionDriverCarriesOnlyAIRooms(t *testing.T) {
	r, b, _, _ := newTestRegistry()

	r.CreateRoom(Participant{ConnID: "c1", Alias: "alice"}, "pong")
	r.CreateRoom(Participant{ConnID: "c2", Alias: "bob"}, "tetris")
	r.CreateRoom(Participant{ConnID: "c3", Alias: "carol"}, "pong_ai")
	aiRoom := createdRoomID(t, b)

	r.ai.mu.Lock()
	defer r.ai.mu.Unlock()
	if len(r.ai.rooms) != 1 {
		t.Fatalf("decision driver carries %d rooms, want 1", len(r.ai.rooms))
	}
	if _, ok := r.ai.rooms[aiRoom]; !ok {
		t.Error("the pong_ai room is not on the decision driver")
	}
}

func TestSoloTetrisRunsToGameState(t *testing.T) {
	r, b, _, _ := newTestRegistry()

	r.CreateRoom(Participant{ConnID: "c1", Alias: "alice"}, "tetris")
	r.StartGame("c1")
	if got := b.count(EvtMatchStarted); got != 1 {
		t.Fatalf("match_started broadcasts = %d, want 1", got)
	}

	for n := 0; n < 5; n++ {
		r.physics.Tick()
	}
	if got := b.count(EvtGameState); got != 5 {
		t.Errorf("game_state broadcasts = %d, want 5", got)
	}
}

func TestCreateMatchRoutesResultToOwner(t *testing.T) {
	r, b, _, _ := newTestRegistry()

	var result *MatchResult
	session, err := r.CreateMatch("pong", []Participant{
		{ConnID: "c1", Alias: "alice"},
		{ConnID: "c2", Alias: "bob"},
	}, func(res MatchResult) { result = &res })
	if err != nil {
		t.Fatal(err)
	}

	session.Start()
	r.Disconnect("c2")

	if result == nil {
		t.Fatal("owner callback not called")
	}
	if result.WinnerName != "alice" || result.Reason != ReasonDisconnected {
		t.Errorf("result = %+v", result)
	}

	// The owner destroys explicitly; the registry must not have done it.
	if got := b.count(EvtRoomDestroyed); got != 0 {
		t.Fatal("registry destroyed an owned room")
	}
	r.DestroyRoom(session.ID(), "bracket_complete")
	if got := b.count(EvtRoomDestroyed); got != 1 {
		t.Errorf("room_destroyed broadcasts = %d, want 1", got)
	}
}

func TestStopFinishesEveryRoom(t *testing.T) {
	r, b, _, _ := newTestRegistry()

	r.CreateRoom(Participant{ConnID: "c1", Alias: "alice"}, "tetris")
	r.StartGame("c1")
	r.CreateRoom(Participant{ConnID: "c2", Alias: "bob"}, "tetris")
	r.StartGame("c2")

	r.Stop()
	if got := b.count(EvtMatchEnded); got != 2 {
		t.Errorf("match_ended broadcasts = %d, want 2", got)
	}
}
