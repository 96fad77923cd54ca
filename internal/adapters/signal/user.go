package signal

import (
	"encoding/json"

	"github.com/rs/zerolog/log"

	"github.com/jobmate/signaling/internal/core"
	"github.com/jobmate/signaling/internal/domain"
	"github.com/jobmate/signaling/internal/protocol"
)

func (ctl *SignalWSController) handleRegister(
	sid core.SessionID,
	conn *WsSignalConn,
	data []byte,
) {
	type registerPayload struct {
		Type   string `json:"type"`
		UserID string `json:"userId" validate:"required"`
	}
	var p registerPayload
	if err := json.Unmarshal(data, &p); err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("bad register payload")
		ctl.sendJSON(conn, protocol.RegisterError{Type: protocol.EvRegisterError, Error: "bad_payload"})
		return
	}
	if err := ctl.validate.Struct(p); err != nil {
		ctl.sendJSON(conn, protocol.RegisterError{Type: protocol.EvRegisterError, Error: "userId required"})
		return
	}

	uid, err := domain.ParseUserID(p.UserID)
	if err != nil {
		ctl.sendJSON(conn, protocol.RegisterError{Type: protocol.EvRegisterError, Error: err.Error()})
		return
	}

	ctl.Engine.Register(sid, conn, uid)
	ctl.sendJSON(conn, protocol.RegisterSuccess{
		Type:     protocol.EvRegisterSuccess,
		UserID:   uid,
		SocketID: string(sid),
	})
}

func (ctl *SignalWSController) handleConnectionStatus(
	sid core.SessionID,
	conn *WsSignalConn,
	data []byte,
) {
	type statusPayload struct {
		Type   string `json:"type"`
		UserID string `json:"userId" validate:"required"`
	}
	var p statusPayload
	if err := json.Unmarshal(data, &p); err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("bad status payload")
		return
	}
	if err := ctl.validate.Struct(p); err != nil {
		log.Warn().Str("module", "signal").Str("sid", string(sid)).Msg("status query without userId")
		return
	}

	uid := domain.UserID(p.UserID)
	ctl.sendJSON(conn, protocol.ConnectionStatus{
		Type:     protocol.EvConnectionStatus,
		UserID:   uid,
		IsOnline: ctl.Engine.ConnectionStatus(uid),
	})
}

func (ctl *SignalWSController) handleConnectedUsers(conn *WsSignalConn) {
	ctl.sendJSON(conn, protocol.ConnectedUsers{
		Type:  protocol.EvConnectedUsers,
		Users: ctl.Engine.ConnectedUsers(),
	})
}
