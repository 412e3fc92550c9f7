package ws

import (
	"encoding/json"

	"github.com/charmbracelet/log"

	"github.com/dkarpov/netarcade/internal/core"
	"github.com/dkarpov/netarcade/internal/engine"
	"github.com/dkarpov/netarcade/internal/tournament"
)

// Inbound event names.
const (
	evtCreateRoom       = "create_room"
	evtJoinRoom         = "join_room"
	evtLeaveRoom        = "leave_room"
	evtStartGame        = "start_game"
	evtInput            = "input"
	evtSetReady         = "set_ready"
	evtCreateTournament = "create_tournament"
	evtJoinTournament   = "join_tournament"
	evtStartTournament  = "start_tournament"
	evtLeaveTournament  = "leave_tournament"
)

type createRoomRequest struct {
	Variant string `json:"variant"`
}

type joinRoomRequest struct {
	RoomID string `json:"roomId"`
}

type setReadyRequest struct {
	Ready bool `json:"ready"`
}

type createTournamentRequest struct {
	Name     string `json:"name"`
	Password string `json:"password"`
}

type joinTournamentRequest struct {
	TournamentID string `json:"tournamentId"`
	Password     string `json:"password"`
}

// Dispatcher routes inbound envelopes to the registry and the tournament
// scheduler. Malformed frames get an error event; unknown events are
// dropped.
type Dispatcher struct {
	registry    *engine.SessionRegistry
	tournaments *tournament.Scheduler
	hub         *Hub
	logger      *log.Logger
}

func NewDispatcher(registry *engine.SessionRegistry, tournaments *tournament.Scheduler, hub *Hub, logger *log.Logger) *Dispatcher {
	return &Dispatcher{
		registry:    registry,
		tournaments: tournaments,
		hub:         hub,
		logger:      logger,
	}
}

func (d *Dispatcher) HandleMessage(c *Client, frame []byte) {
	var env Envelope
	if err := json.Unmarshal(frame, &env); err != nil {
		d.hub.SendTo(c.ID(), engine.EvtError, engine.ErrorPayload{Message: "malformed frame"})
		return
	}

	id := c.Identity()
	participant := engine.Participant{
		ConnID:        c.ID(),
		Alias:         id.Alias,
		UserID:        id.UserID,
		Authenticated: id.Authenticated,
	}

	switch env.Event {
	case evtCreateRoom:
		var req createRoomRequest
		if !d.decode(c, env.Data, &req) {
			return
		}
		d.registry.CreateRoom(participant, req.Variant)

	case evtJoinRoom:
		var req joinRoomRequest
		if !d.decode(c, env.Data, &req) {
			return
		}
		d.registry.JoinRoom(participant, req.RoomID)

	case evtLeaveRoom:
		d.registry.Leave(c.ID())

	case evtStartGame:
		d.registry.StartGame(c.ID())

	case evtSetReady:
		// Readying up as the last player doubles as a start request.
		// Omitted data means ready; an explicit ready=false does nothing.
		req := setReadyRequest{Ready: true}
		if len(env.Data) > 0 && !d.decode(c, env.Data, &req) {
			return
		}
		if req.Ready {
			d.registry.StartGame(c.ID())
		}

	case evtInput:
		var in core.Input
		if !d.decode(c, env.Data, &in) {
			return
		}
		d.registry.RouteInput(c.ID(), in)

	case evtCreateTournament:
		var req createTournamentRequest
		if !d.decode(c, env.Data, &req) {
			return
		}
		d.tournaments.Create(c.ID(), id.Alias, req.Name, req.Password)

	case evtJoinTournament:
		var req joinTournamentRequest
		if !d.decode(c, env.Data, &req) {
			return
		}
		d.tournaments.Join(c.ID(), id.Alias, req.TournamentID, req.Password)

	case evtStartTournament:
		d.tournaments.Start(c.ID())

	case evtLeaveTournament:
		d.tournaments.Leave(c.ID())

	default:
		d.logger.Debug("dropping unknown event", "event", env.Event, "conn", c.ID())
	}
}

// Disconnected runs the teardown for a dropped connection in both owners.
func (d *Dispatcher) Disconnected(connID string) {
	d.registry.Disconnect(connID)
	d.tournaments.Disconnect(connID)
}

func (d *Dispatcher) decode(c *Client, data json.RawMessage, dst any) bool {
	if len(data) == 0 {
		d.hub.SendTo(c.ID(), engine.EvtError, engine.ErrorPayload{Message: "missing event data"})
		return false
	}
	if err := json.Unmarshal(data, dst); err != nil {
		d.hub.SendTo(c.ID(), engine.EvtError, engine.ErrorPayload{Message: "malformed event data"})
		return false
	}
	return true
}

var _ Handler = (*Dispatcher)(nil)
