package app

import (
	"encoding/json"

	"github.com/rs/zerolog/log"

	"github.com/jobmate/signaling/internal/core"
	"github.com/jobmate/signaling/internal/domain"
	"github.com/jobmate/signaling/internal/protocol"
)

// Relay fans one opaque SDP/ICE payload out to the sender's roommates.
// Stateless: it keeps nothing, validates nothing about the payload,
// and acknowledges nothing to the sender.
type Relay struct {
	rooms    *Rooms
	presence *Presence
}

func NewRelay(rooms *Rooms, presence *Presence) *Relay {
	return &Relay{rooms: rooms, presence: presence}
}

// Forward re-envelopes the payload with the sender attached and
// pushes it to every room member except the sender. Unknown room:
// logged and dropped, no reply.
func (r *Relay) Forward(kind string, roomID domain.RoomID, payload json.RawMessage, sender core.SessionID) {
	ev := protocol.RelayedSignal{
		Type:   kind,
		RoomID: roomID,
		From:   string(sender),
	}
	if uid, ok := r.presence.Identity(sender); ok {
		ev.FromUserID = uid
	}
	switch kind {
	case protocol.EvOffer:
		ev.Offer = payload
	case protocol.EvAnswer:
		ev.Answer = payload
	case protocol.EvIceCandidate:
		ev.Candidate = payload
	default:
		log.Warn().Str("module", "app.relay").Str("kind", kind).Msg("unknown signal kind")
		return
	}

	if err := r.rooms.Broadcast(roomID, sender, ev); err != nil {
		log.Warn().Str("module", "app.relay").Str("room", string(roomID)).Str("kind", kind).Msg("relay to unknown room dropped")
	}
}
