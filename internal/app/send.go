package app

import (
	"encoding/json"

	"github.com/rs/zerolog/log"

	"github.com/jobmate/signaling/internal/core"
)

// push encodes one named event and hands it to the connection.
// Delivery is fire-and-forget: a full buffer or closed socket drops
// the frame with a log line, never a retry.
func push(conn core.SignalConnection, v any) {
	if conn == nil {
		return
	}
	b, err := json.Marshal(v)
	if err != nil {
		log.Error().Err(err).Str("module", "app").Msg("event marshal")
		return
	}
	if err := conn.TrySend(core.Frame(b)); err != nil {
		log.Warn().Err(err).Str("module", "app").Msg("event dropped")
	}
}
