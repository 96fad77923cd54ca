package signal

import (
	"encoding/json"
	"errors"

	"github.com/rs/zerolog/log"

	"github.com/jobmate/signaling/internal/core"
	"github.com/jobmate/signaling/internal/domain"
	"github.com/jobmate/signaling/internal/protocol"
)

func (ctl *SignalWSController) handleCallRequest(
	sid core.SessionID,
	conn *WsSignalConn,
	data []byte,
) {
	type callRequestPayload struct {
		Type         string `json:"type"`
		RoomID       string `json:"roomId" validate:"required"`
		FromUserID   string `json:"fromUserId" validate:"required"`
		FromUserName string `json:"fromUserName"`
		ToUserID     string `json:"toUserId" validate:"required"`
		IsVideoCall  bool   `json:"isVideoCall"`
	}
	var p callRequestPayload
	if err := json.Unmarshal(data, &p); err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("bad call-request payload")
		ctl.sendJSON(conn, protocol.CallRequestFailed{Type: protocol.EvCallRequestFailed, Reason: "bad_payload"})
		return
	}
	if err := ctl.validate.Struct(p); err != nil {
		ctl.sendJSON(conn, protocol.CallRequestFailed{Type: protocol.EvCallRequestFailed, Reason: "missing required field"})
		return
	}

	// The registered identity of this socket is authoritative; the
	// resent fromUserId is wire decoration only.
	callerID, ok := ctl.Engine.Identity(sid)
	if !ok {
		ctl.sendJSON(conn, protocol.CallRequestFailed{Type: protocol.EvCallRequestFailed, Reason: "not-registered"})
		return
	}
	if callerID != domain.UserID(p.FromUserID) {
		log.Warn().Str("module", "signal").Str("sid", string(sid)).Str("claimed", p.FromUserID).Str("registered", string(callerID)).Msg("call-request fromUserId mismatch")
	}

	if !ctl.limiter.Allow(callerID) {
		ctl.sendJSON(conn, protocol.CallRequestFailed{Type: protocol.EvCallRequestFailed, Reason: protocol.ReasonRateLimited})
		return
	}

	_, err := ctl.Engine.CallRequest(conn, callerID, p.FromUserName, domain.UserID(p.ToUserID), domain.RoomID(p.RoomID), p.IsVideoCall)
	switch {
	case errors.Is(err, domain.ErrCalleeOffline):
		ctl.sendJSON(conn, protocol.CallRequestFailed{Type: protocol.EvCallRequestFailed, Reason: protocol.ReasonCalleeOffline})
	case errors.Is(err, domain.ErrCalleeBusy):
		ctl.sendJSON(conn, protocol.CallRequestFailed{Type: protocol.EvCallRequestFailed, Reason: protocol.ReasonCalleeBusy})
	case err != nil:
		log.Error().Err(err).Str("module", "signal").Msg("call-request failed")
		ctl.sendJSON(conn, protocol.CallRequestFailed{Type: protocol.EvCallRequestFailed, Reason: "internal"})
	}
}

func (ctl *SignalWSController) handleCallResponse(
	sid core.SessionID,
	conn *WsSignalConn,
	data []byte,
) {
	type callResponsePayload struct {
		Type     string `json:"type"`
		CallID   string `json:"callId" validate:"required"`
		Accepted bool   `json:"accepted"`
	}
	var p callResponsePayload
	if err := json.Unmarshal(data, &p); err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("bad call-response payload")
		ctl.sendJSON(conn, protocol.CallResponseFailed{Type: protocol.EvCallResponseFailed, Error: "bad_payload"})
		return
	}
	if err := ctl.validate.Struct(p); err != nil {
		ctl.sendJSON(conn, protocol.CallResponseFailed{Type: protocol.EvCallResponseFailed, Error: "callId required"})
		return
	}

	if err := ctl.Engine.CallRespond(p.CallID, p.Accepted); err != nil {
		ctl.sendJSON(conn, protocol.CallResponseFailed{Type: protocol.EvCallResponseFailed, Error: "call not found"})
	}
}

func (ctl *SignalWSController) handleCancelCall(
	sid core.SessionID,
	conn *WsSignalConn,
	data []byte,
) {
	type cancelPayload struct {
		Type   string `json:"type"`
		CallID string `json:"callId" validate:"required"`
	}
	var p cancelPayload
	if err := json.Unmarshal(data, &p); err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("bad cancel-call payload")
		return
	}
	if err := ctl.validate.Struct(p); err != nil {
		log.Warn().Str("module", "signal").Str("sid", string(sid)).Msg("cancel-call without callId")
		return
	}

	// Idempotent: cancelling an unknown or settled call is fine, the
	// transport delivers at least once.
	ctl.Engine.CallCancel(p.CallID)
}
