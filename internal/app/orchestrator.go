package app

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/jobmate/signaling/internal/core"
	"github.com/jobmate/signaling/internal/domain"
	"github.com/jobmate/signaling/internal/protocol"
)

// Orchestrator owns the whole signaling state: presence, rooms and
// calls form one consistency domain, serialized behind a single
// mutex. Every inbound event handler and every timer callback enters
// through it, runs to completion, and never blocks under it (sends
// are non-blocking pushes).
type Orchestrator struct {
	mu       sync.Mutex
	presence *Presence
	rooms    *Rooms
	calls    *Calls
	relay    *Relay
}

func NewOrchestrator(ringTimeout, acceptLinger time.Duration) *Orchestrator {
	o := &Orchestrator{}
	o.presence = NewPresence()
	o.rooms = NewRooms()
	o.calls = NewCalls(o.presence, &o.mu, ringTimeout, acceptLinger)
	o.relay = NewRelay(o.rooms, o.presence)
	return o
}

// Register binds uid to the connection and announces the presence
// change. Re-registration (same user, new socket) supersedes silently
// and announces nothing: the user never went offline.
func (o *Orchestrator) Register(sid core.SessionID, conn core.SignalConnection, uid domain.UserID) {
	o.mu.Lock()
	defer o.mu.Unlock()

	wasOnline := o.presence.Online(uid)
	o.presence.Register(uid, sid, conn)
	if !wasOnline {
		o.announcePresence(uid, true)
	}
}

// Identity resolves the registered user of a socket.
func (o *Orchestrator) Identity(sid core.SessionID) (domain.UserID, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.presence.Identity(sid)
}

// CallRequest starts a ring attempt; conn is the caller's socket the
// request arrived on.
func (o *Orchestrator) CallRequest(conn core.SignalConnection, callerID domain.UserID, callerName string, calleeID domain.UserID, roomID domain.RoomID, isVideo bool) (*domain.Call, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.calls.Create(callerID, callerName, conn, calleeID, roomID, isVideo)
}

func (o *Orchestrator) CallRespond(callID string, accepted bool) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.calls.Respond(callID, accepted)
}

func (o *Orchestrator) CallCancel(callID string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.calls.Cancel(callID)
}

func (o *Orchestrator) JoinRoom(roomID domain.RoomID, sid core.SessionID, conn core.SignalConnection, uid domain.UserID, userName string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.rooms.Join(roomID, sid, conn, uid, userName)
}

func (o *Orchestrator) LeaveRoom(roomID domain.RoomID, sid core.SessionID) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.rooms.Leave(roomID, sid)
}

// RelaySignal forwards one opaque offer/answer/candidate payload.
func (o *Orchestrator) RelaySignal(kind string, roomID domain.RoomID, payload json.RawMessage, sender core.SessionID) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.relay.Forward(kind, roomID, payload, sender)
}

func (o *Orchestrator) ConnectionStatus(uid domain.UserID) bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.presence.Online(uid)
}

func (o *Orchestrator) ConnectedUsers() []domain.UserID {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.presence.Users()
}

// OnDisconnect reconciles all three stores when a socket dies.
// Order matters: the reverse identity is resolved before presence is
// erased, so call cleanup still knows who the socket was.
func (o *Orchestrator) OnDisconnect(sid core.SessionID) {
	o.mu.Lock()
	defer o.mu.Unlock()

	uid, registered := o.presence.Identity(sid)
	if registered {
		o.calls.DisconnectCleanup(uid)
	}
	o.presence.Unregister(sid)
	o.rooms.LeaveAll(sid)

	if registered && !o.presence.Online(uid) {
		o.announcePresence(uid, false)
	}
	log.Info().Str("module", "app").Str("sid", string(sid)).Bool("registered", registered).Msg("connection cleaned up")
}

// announcePresence pushes user-online-status to every registered
// connection except the user's own. Caller holds the mutex.
func (o *Orchestrator) announcePresence(uid domain.UserID, online bool) {
	ev := protocol.UserOnlineStatus{
		Type:     protocol.EvUserOnlineStatus,
		UserID:   uid,
		IsOnline: online,
	}
	o.presence.Each(func(other domain.UserID, conn core.SignalConnection) {
		if other == uid {
			return
		}
		push(conn, ev)
	})
}

// Shutdown drops everything and notifies no one. Timers still armed
// fire into empty state and no-op.
func (o *Orchestrator) Shutdown() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.calls.Reset()
	o.rooms.Reset()
	o.presence.Reset()
	log.Info().Str("module", "app").Msg("engine state dropped")
}
