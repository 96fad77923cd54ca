package signal

import "github.com/jobmate/signaling/internal/protocol"

func (ctl *SignalWSController) handlePing(
	conn *WsSignalConn,
) {
	ctl.sendJSON(conn, protocol.Pong{Type: protocol.EvPong})
}
