package app

import (
	"github.com/rs/zerolog/log"

	"github.com/jobmate/signaling/internal/core"
	"github.com/jobmate/signaling/internal/domain"
)

type presenceEntry struct {
	SID  core.SessionID
	Conn core.SignalConnection
}

// Presence is the bidirectional user ⇄ live-connection registry.
// At most one connection per identity; a later Register supersedes
// the earlier one without telling the superseded socket anything.
//
// Not goroutine-safe on its own: the Orchestrator serializes every
// mutation of presence, rooms and calls behind one mutex.
type Presence struct {
	byUser map[domain.UserID]presenceEntry
	bySID  map[core.SessionID]domain.UserID
}

func NewPresence() *Presence {
	return &Presence{
		byUser: make(map[domain.UserID]presenceEntry),
		bySID:  make(map[core.SessionID]domain.UserID),
	}
}

// Register binds uid to the given connection, superseding any prior
// one. Idempotent, never fails.
func (p *Presence) Register(uid domain.UserID, sid core.SessionID, conn core.SignalConnection) {
	if old, ok := p.byUser[uid]; ok && old.SID != sid {
		delete(p.bySID, old.SID)
		log.Info().Str("module", "app.presence").Str("user", string(uid)).Str("old_sid", string(old.SID)).Msg("registration superseded")
	}
	p.byUser[uid] = presenceEntry{SID: sid, Conn: conn}
	p.bySID[sid] = uid
	log.Info().Str("module", "app.presence").Str("user", string(uid)).Str("sid", string(sid)).Msg("registered")
}

// Lookup resolves the current live connection for uid.
func (p *Presence) Lookup(uid domain.UserID) (core.SessionID, core.SignalConnection, bool) {
	e, ok := p.byUser[uid]
	if !ok {
		return "", nil, false
	}
	return e.SID, e.Conn, true
}

// Identity is the reverse mapping: which user owns this socket.
func (p *Presence) Identity(sid core.SessionID) (domain.UserID, bool) {
	uid, ok := p.bySID[sid]
	return uid, ok
}

// Unregister drops both directions for sid. A socket that was already
// superseded (or never registered) is a no-op; in particular it must
// not evict the identity's newer connection.
func (p *Presence) Unregister(sid core.SessionID) {
	uid, ok := p.bySID[sid]
	if !ok {
		return
	}
	delete(p.bySID, sid)
	if e, ok := p.byUser[uid]; ok && e.SID == sid {
		delete(p.byUser, uid)
	}
	log.Info().Str("module", "app.presence").Str("user", string(uid)).Str("sid", string(sid)).Msg("unregistered")
}

func (p *Presence) Online(uid domain.UserID) bool {
	_, ok := p.byUser[uid]
	return ok
}

// Users lists every registered identity.
func (p *Presence) Users() []domain.UserID {
	out := make([]domain.UserID, 0, len(p.byUser))
	for uid := range p.byUser {
		out = append(out, uid)
	}
	return out
}

// Each visits every registered connection.
func (p *Presence) Each(f func(uid domain.UserID, conn core.SignalConnection)) {
	for uid, e := range p.byUser {
		f(uid, e.Conn)
	}
}

// Reset drops all state, notifying no one.
func (p *Presence) Reset() {
	p.byUser = make(map[domain.UserID]presenceEntry)
	p.bySID = make(map[core.SessionID]domain.UserID)
}
