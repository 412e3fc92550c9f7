package ws

import (
	"encoding/json"
	"io"
	"testing"

	"github.com/charmbracelet/log"
)

func newHubClient(h *Hub, id string) *Client {
	c := newClient(id, Guest(id), nil, h, nil)
	h.register(c)
	return c
}

func drainOne(t *testing.T, c *Client) Envelope {
	t.Helper()
	select {
	case frame := <-c.send:
		var env Envelope
		if err := json.Unmarshal(frame, &env); err != nil {
			t.Fatalf("bad frame %s: %v", frame, err)
		}
		return env
	default:
		t.Fatal("no frame queued")
		return Envelope{}
	}
}

func assertEmpty(t *testing.T, c *Client) {
	t.Helper()
	select {
	case frame := <-c.send:
		t.Fatalf("unexpected frame: %s", frame)
	default:
	}
}

func TestSendToTargetsOneClient(t *testing.T) {
	h := NewHub(log.New(io.Discard))
	a := newHubClient(h, "a")
	b := newHubClient(h, "b")

	h.SendTo("a", "game_state", map[string]int{"tick": 1})

	env := drainOne(t, a)
	if env.Event != "game_state" {
		t.Errorf("event = %q", env.Event)
	}
	assertEmpty(t, b)
}

func TestSendToUnknownClientIsNoop(t *testing.T) {
	h := NewHub(log.New(io.Discard))
	h.SendTo("ghost", "game_state", nil)
}

func TestGroupBroadcast(t *testing.T) {
	h := NewHub(log.New(io.Discard))
	a := newHubClient(h, "a")
	b := newHubClient(h, "b")
	c := newHubClient(h, "c")

	h.JoinGroup("room-1", "a")
	h.JoinGroup("room-1", "b")
	h.SendToGroup("room-1", "match_started", nil)

	if env := drainOne(t, a); env.Event != "match_started" {
		t.Errorf("event = %q", env.Event)
	}
	drainOne(t, b)
	assertEmpty(t, c)

	h.LeaveGroup("room-1", "b")
	h.SendToGroup("room-1", "game_state", nil)
	drainOne(t, a)
	assertEmpty(t, b)
}

func TestUnregisterDropsGroupMembership(t *testing.T) {
	h := NewHub(log.New(io.Discard))
	a := newHubClient(h, "a")

	h.JoinGroup("room-1", "a")
	h.unregister("a")
	h.SendToGroup("room-1", "game_state", nil)
	h.SendTo("a", "game_state", nil)
	assertEmpty(t, a)
}

// Group broadcasts race connection teardown; a frame aimed at a client
// that just closed must be dropped, never panic.
func TestBroadcastToClosedClientIsDropped(t *testing.T) {
	h := NewHub(log.New(io.Discard))
	a := newHubClient(h, "a")
	b := newHubClient(h, "b")

	h.JoinGroup("room-1", "a")
	h.JoinGroup("room-1", "b")

	a.close()
	h.SendToGroup("room-1", "match_ended", nil)
	h.SendTo("a", "room_destroyed", nil)

	assertEmpty(t, a)
	if env := drainOne(t, b); env.Event != "match_ended" {
		t.Errorf("event = %q", env.Event)
	}
}

func TestFramePayloadEncoding(t *testing.T) {
	h := NewHub(log.New(io.Discard))
	a := newHubClient(h, "a")

	h.SendTo("a", "error", map[string]string{"message": "room is full"})
	env := drainOne(t, a)

	var payload struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(env.Data, &payload); err != nil {
		t.Fatalf("bad data: %v", err)
	}
	if payload.Message != "room is full" {
		t.Errorf("message = %q", payload.Message)
	}
}
