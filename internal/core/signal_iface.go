// Package core holds the seam between the signaling engine and the
// transport adapter. The engine pushes frames through SignalConnection
// and never owns the socket behind it.
package core

// Frame is a raw outbound payload, already encoded.
type Frame []byte

// SessionID identifies one live transport connection (one socket).
// Distinct from domain.UserID: a user re-registering gets a new
// session, never the old one back.
type SessionID string

// SignalConnection abstracts the system messaging transport.
// Owned by the adapter; the adapter must Close() it. TrySend never
// blocks: a full buffer is the sender's problem, not the engine's.
type SignalConnection interface {
	TrySend(Frame) error
	Close()
}
