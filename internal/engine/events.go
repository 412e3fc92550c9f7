// Package engine contains the real-time match core: per-room sessions,
// the process-wide session registry, and the fixed-rate tick drivers.
package engine

import (
	"time"

	"github.com/dkarpov/netarcade/internal/core"
)

// Outbound event names pushed to clients over the broadcast collaborator.
const (
	EvtRoomCreated        = "room_created"
	EvtRoomState          = "room_state"
	EvtMatchAnnounced     = "match_announced"
	EvtMatchStarted       = "match_started"
	EvtGameState          = "game_state"
	EvtMatchEnded         = "match_ended"
	EvtTournamentFinished = "tournament_finished"
	EvtRoomDestroyed      = "room_destroyed"
	EvtError              = "error"
)

// End reasons recorded in outcome data and match_ended payloads.
const (
	ReasonCompleted    = "completed"
	ReasonDisconnected = "player_disconnected"
	ReasonLeft         = "player_left"
	ReasonStopped      = "stopped"
	ReasonServerError  = "server_error"
)

// NeutralWinner is recorded when a single-occupant room ends without a
// game-rule victory; no winner is inferred.
const NeutralWinner = "N/A"

// Broadcaster is the outbound push collaborator. Delivery is best-effort;
// implementations must never block the caller.
type Broadcaster interface {
	SendTo(connID, event string, payload any)
	SendToGroup(group, event string, payload any)
	JoinGroup(group, connID string)
	LeaveGroup(group, connID string)
}

// GameRecord is the durable outcome of a finished match. Immutable once
// FinishedAt is set.
type GameRecord struct {
	GameName    string
	StartedAt   time.Time
	FinishedAt  time.Time
	Player1     string
	Player2     string
	Winner      string
	OutcomeData map[string]any
}

// ResultSink durably stores finished-match records. Failures are logged by
// the caller and never retried synchronously.
type ResultSink interface {
	Persist(rec GameRecord) error
}

// RoomStatePayload describes a room to its occupants.
type RoomStatePayload struct {
	RoomID  string   `json:"roomId"`
	Variant string   `json:"variant"`
	Status  string   `json:"status"`
	Players []string `json:"players"`
}

// GameStatePayload carries the per-tick snapshot.
type GameStatePayload struct {
	RoomID string        `json:"roomId"`
	Tick   uint64        `json:"tick"`
	State  core.Snapshot `json:"state"`
}

// MatchStartedPayload announces the transition to in_progress.
type MatchStartedPayload struct {
	RoomID  string `json:"roomId"`
	Variant string `json:"variant"`
}

// MatchEndedPayload names the terminal outcome of a room.
type MatchEndedPayload struct {
	RoomID string `json:"roomId"`
	Winner string `json:"winner"`
	Reason string `json:"reason"`
	Score1 int    `json:"score1"`
	Score2 int    `json:"score2"`
}

// RoomDestroyedPayload is the final event for a room.
type RoomDestroyedPayload struct {
	RoomID string `json:"roomId"`
	Reason string `json:"reason"`
}

// ErrorPayload carries user-visible failures (full room, bad password).
// Internal errors are never exposed through it.
type ErrorPayload struct {
	Message string `json:"message"`
}

// MatchResult is handed to the owner of a session (registry or tournament
// scheduler) exactly once when the session reaches finished.
type MatchResult struct {
	RoomID       string
	Winner       core.PlayerID
	WinnerConnID string
	WinnerName   string
	Reason       string
	Score1       int
	Score2       int
	Ticks        uint64
}
