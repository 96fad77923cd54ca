package app

import (
	"github.com/rs/zerolog/log"

	"github.com/jobmate/signaling/internal/core"
	"github.com/jobmate/signaling/internal/domain"
	"github.com/jobmate/signaling/internal/protocol"
)

type roomMember struct {
	Conn     core.SignalConnection
	UserID   domain.UserID
	UserName string
}

// Rooms tracks the ephemeral groups of connections sharing an active
// call. A room exists exactly while it has members: created on first
// join, deleted the moment the last member leaves.
//
// Serialized by the Orchestrator, like Presence.
type Rooms struct {
	rooms map[domain.RoomID]map[core.SessionID]roomMember
}

func NewRooms() *Rooms {
	return &Rooms{rooms: make(map[domain.RoomID]map[core.SessionID]roomMember)}
}

// Join adds the connection to roomID, creating the room if needed.
// Existing members are told about the newcomer; the joiner gets the
// current participant list, itself excluded.
func (r *Rooms) Join(roomID domain.RoomID, sid core.SessionID, conn core.SignalConnection, uid domain.UserID, userName string) {
	members, ok := r.rooms[roomID]
	if !ok {
		members = make(map[core.SessionID]roomMember)
		r.rooms[roomID] = members
	}

	joined := protocol.UserJoined{
		Type:     protocol.EvUserJoined,
		RoomID:   roomID,
		SocketID: string(sid),
		UserID:   uid,
		UserName: userName,
	}
	snapshot := make([]domain.Participant, 0, len(members))
	for msid, m := range members {
		if msid == sid {
			continue
		}
		push(m.Conn, joined)
		snapshot = append(snapshot, domain.Participant{
			SocketID: string(msid),
			UserID:   m.UserID,
			UserName: m.UserName,
		})
	}

	members[sid] = roomMember{Conn: conn, UserID: uid, UserName: userName}
	push(conn, protocol.RoomParticipants{
		Type:         protocol.EvRoomParticipants,
		RoomID:       roomID,
		Participants: snapshot,
	})
	log.Info().Str("module", "app.rooms").Str("room", string(roomID)).Str("sid", string(sid)).Str("user", string(uid)).Int("members", len(members)).Msg("joined room")
}

// Leave removes the connection from roomID, tells the remainder, and
// deletes the room if it is now empty. Unknown room or non-member is
// a no-op.
func (r *Rooms) Leave(roomID domain.RoomID, sid core.SessionID) {
	members, ok := r.rooms[roomID]
	if !ok {
		return
	}
	m, ok := members[sid]
	if !ok {
		return
	}
	delete(members, sid)
	if len(members) == 0 {
		delete(r.rooms, roomID)
		log.Info().Str("module", "app.rooms").Str("room", string(roomID)).Msg("room empty, deleted")
		return
	}

	left := protocol.UserLeft{
		Type:     protocol.EvUserLeft,
		RoomID:   roomID,
		SocketID: string(sid),
		UserID:   m.UserID,
	}
	for _, rest := range members {
		push(rest.Conn, left)
	}
	log.Info().Str("module", "app.rooms").Str("room", string(roomID)).Str("sid", string(sid)).Msg("left room")
}

// LeaveAll applies Leave to every room the connection belongs to.
// Used on disconnect.
func (r *Rooms) LeaveAll(sid core.SessionID) {
	for roomID, members := range r.rooms {
		if _, ok := members[sid]; ok {
			r.Leave(roomID, sid)
		}
	}
}

// Broadcast sends an encoded event to every member except from.
func (r *Rooms) Broadcast(roomID domain.RoomID, from core.SessionID, v any) error {
	members, ok := r.rooms[roomID]
	if !ok {
		return domain.ErrRoomNotFound
	}
	for sid, m := range members {
		if sid == from {
			continue
		}
		push(m.Conn, v)
	}
	return nil
}

func (r *Rooms) MemberCount(roomID domain.RoomID) int {
	return len(r.rooms[roomID])
}

func (r *Rooms) Exists(roomID domain.RoomID) bool {
	_, ok := r.rooms[roomID]
	return ok
}

// Reset drops all rooms, notifying no one.
func (r *Rooms) Reset() {
	r.rooms = make(map[domain.RoomID]map[core.SessionID]roomMember)
}
