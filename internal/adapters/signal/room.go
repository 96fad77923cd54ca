package signal

import (
	"encoding/json"

	"github.com/rs/zerolog/log"

	"github.com/jobmate/signaling/internal/core"
	"github.com/jobmate/signaling/internal/domain"
	"github.com/jobmate/signaling/internal/protocol"
)

func (ctl *SignalWSController) handleJoinCall(
	sid core.SessionID,
	conn *WsSignalConn,
	data []byte,
) {
	type joinPayload struct {
		Type     string `json:"type"`
		RoomID   string `json:"roomId" validate:"required"`
		UserID   string `json:"userId"`
		UserName string `json:"userName"`
	}
	var p joinPayload
	if err := json.Unmarshal(data, &p); err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("bad join-call payload")
		return
	}
	if err := ctl.validate.Struct(p); err != nil {
		log.Warn().Str("module", "signal").Str("sid", string(sid)).Msg("join-call without roomId")
		return
	}

	// Prefer the registered identity; fall back to the payload for
	// sockets that join mid-setup, before register.
	uid, ok := ctl.Engine.Identity(sid)
	if !ok {
		uid = domain.UserID(p.UserID)
	}

	log.Info().Str("module", "signal").Str("sid", string(sid)).Str("room", p.RoomID).Str("user", string(uid)).Msg("join call room")
	ctl.Engine.JoinRoom(domain.RoomID(p.RoomID), sid, conn, uid, p.UserName)
}

func (ctl *SignalWSController) handleLeaveCall(
	sid core.SessionID,
	conn *WsSignalConn,
	data []byte,
) {
	type leavePayload struct {
		Type   string `json:"type"`
		RoomID string `json:"roomId" validate:"required"`
	}
	var p leavePayload
	if err := json.Unmarshal(data, &p); err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("bad leave-call payload")
		return
	}
	if err := ctl.validate.Struct(p); err != nil {
		log.Warn().Str("module", "signal").Str("sid", string(sid)).Msg("leave-call without roomId")
		return
	}

	log.Info().Str("module", "signal").Str("sid", string(sid)).Str("room", p.RoomID).Msg("leave call room")
	ctl.Engine.LeaveRoom(domain.RoomID(p.RoomID), sid)
}

// handleRelay covers offer, answer and ice-candidate. The payload
// field carries the peer's SDP or candidate verbatim; only the
// envelope is rebuilt, with the sender attached.
func (ctl *SignalWSController) handleRelay(
	sid core.SessionID,
	kind string,
	data []byte,
) {
	type relayPayload struct {
		Type      string          `json:"type"`
		RoomID    string          `json:"roomId" validate:"required"`
		Offer     json.RawMessage `json:"offer"`
		Answer    json.RawMessage `json:"answer"`
		Candidate json.RawMessage `json:"candidate"`
	}
	var p relayPayload
	if err := json.Unmarshal(data, &p); err != nil {
		log.Error().Err(err).Str("module", "signal").Str("kind", kind).Msg("bad relay payload")
		return
	}
	if err := ctl.validate.Struct(p); err != nil {
		log.Warn().Str("module", "signal").Str("sid", string(sid)).Str("kind", kind).Msg("relay without roomId")
		return
	}

	var payload json.RawMessage
	switch kind {
	case protocol.InOffer:
		payload = p.Offer
	case protocol.InAnswer:
		payload = p.Answer
	case protocol.InIceCandidate:
		payload = p.Candidate
	}
	if len(payload) == 0 {
		log.Warn().Str("module", "signal").Str("sid", string(sid)).Str("kind", kind).Msg("relay with empty payload")
		return
	}

	ctl.Engine.RelaySignal(kind, domain.RoomID(p.RoomID), payload, sid)
}
