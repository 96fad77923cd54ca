package signal

import (
	"context"
	"encoding/json"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/jobmate/signaling/internal/core"
	"github.com/jobmate/signaling/internal/protocol"
)

func (ctl *SignalWSController) writePump(ctx context.Context, c *WsSignalConn) {
	for {
		select {
		case <-ctx.Done():
			log.Info().Str("module", "signal").Msg("writePump ctx done")
			return
		case data, ok := <-c.send:
			if !ok {
				log.Warn().Str("module", "signal").Msg("writePump channel closed")
				return
			}
			if err := c.conn.SetWriteDeadline(time.Now().Add(5 * time.Second)); err != nil {
				log.Error().Err(err).Str("module", "signal").Msg("writePump set deadline")
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				log.Error().Err(err).Str("module", "signal").Msg("writePump write error")
				return
			}
		}
	}
}

func (ctl *SignalWSController) readPump(ctx context.Context, cancel context.CancelFunc, sid core.SessionID, c *WsSignalConn) {
	defer func() {
		log.Info().Str("module", "signal").Str("sid", string(sid)).Msg("readPump closing")
		ctl.Engine.OnDisconnect(sid)
		cancel()
		c.Close()
	}()

	for {
		select {
		case <-ctx.Done():
			log.Info().Str("module", "signal").Str("sid", string(sid)).Msg("readPump ctx done")
			return
		default:
			_, data, err := c.conn.ReadMessage()
			if err != nil {
				log.Info().Err(err).Str("module", "signal").Str("sid", string(sid)).Msg("readPump read error")
				return
			}
			ctl.handleEvent(sid, c, data)
		}
	}
}

// handleEvent dispatches one inbound frame. A fault in one handler is
// that connection's problem only: logged, answered where the protocol
// has a failure event, never fatal to the process.
func (ctl *SignalWSController) handleEvent(sid core.SessionID, c *WsSignalConn, data []byte) {
	var env struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(data, &env); err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("bad json")
		return
	}

	switch env.Type {
	case protocol.InRegister:
		ctl.handleRegister(sid, c, data)
	case protocol.InCallRequest:
		ctl.handleCallRequest(sid, c, data)
	case protocol.InCallResponse:
		ctl.handleCallResponse(sid, c, data)
	case protocol.InCancelCall:
		ctl.handleCancelCall(sid, c, data)
	case protocol.InJoinCall:
		ctl.handleJoinCall(sid, c, data)
	case protocol.InLeaveCall:
		ctl.handleLeaveCall(sid, c, data)
	case protocol.InOffer, protocol.InAnswer, protocol.InIceCandidate:
		ctl.handleRelay(sid, env.Type, data)
	case protocol.InGetConnectionStatus:
		ctl.handleConnectionStatus(sid, c, data)
	case protocol.InGetConnectedUsers:
		ctl.handleConnectedUsers(c)
	case protocol.InPing:
		ctl.handlePing(c)
	default:
		log.Warn().Str("module", "signal").Str("type", env.Type).Msg("unknown signal")
	}
}

func (ctl *SignalWSController) sendJSON(c *WsSignalConn, v any) {
	b, err := json.Marshal(v)
	if err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("sendJSON marshal")
		return
	}
	_ = c.TrySend(b)
}
