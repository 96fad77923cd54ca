package app

import (
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/jobmate/signaling/internal/core"
	"github.com/jobmate/signaling/internal/domain"
	"github.com/jobmate/signaling/internal/protocol"
)

// Calls is the ring lifecycle state machine. One record per in-flight
// attempt, keyed by callId; ringing is the only non-terminal state.
// Rejected, cancelled and timed-out records vanish immediately;
// accepted ones linger briefly so late duplicate messages resolve as
// harmless no-ops instead of "unknown call".
//
// All entry points run under the orchestrator mutex. Timer callbacks
// re-acquire it and re-validate state before acting, because the
// world may have changed between scheduling and firing.
type Calls struct {
	presence *Presence
	calls    map[string]*domain.Call

	ringTimeout  time.Duration
	acceptLinger time.Duration

	// Engine mutex, taken by timer fires. Injected by the engine.
	mu sync.Locker

	afterFunc func(time.Duration, func()) *time.Timer
	now       func() time.Time
}

func NewCalls(presence *Presence, mu sync.Locker, ringTimeout, acceptLinger time.Duration) *Calls {
	return &Calls{
		presence:     presence,
		calls:        make(map[string]*domain.Call),
		ringTimeout:  ringTimeout,
		acceptLinger: acceptLinger,
		mu:           mu,
		afterFunc:    time.AfterFunc,
		now:          time.Now,
	}
}

// ringingParty reports whether uid is caller or callee of any ringing
// call. Linear scan; the ringing population is small and every entry
// is timeout-bounded.
func (c *Calls) ringingParty(uid domain.UserID) bool {
	for _, call := range c.calls {
		if call.Status != domain.CallRinging {
			continue
		}
		if call.CallerID == uid || call.CalleeID == uid {
			return true
		}
	}
	return false
}

// Create starts a ring attempt. The busy check and the store are one
// atomic step under the engine mutex, so two near-simultaneous
// requests against the same callee cannot both succeed.
func (c *Calls) Create(callerID domain.UserID, callerName string, callerConn core.SignalConnection, calleeID domain.UserID, roomID domain.RoomID, isVideo bool) (*domain.Call, error) {
	_, calleeConn, ok := c.presence.Lookup(calleeID)
	if !ok {
		return nil, domain.ErrCalleeOffline
	}
	if c.ringingParty(calleeID) {
		return nil, domain.ErrCalleeBusy
	}

	call := &domain.Call{
		ID:         domain.NewCallID(c.now()),
		RoomID:     roomID,
		CallerID:   callerID,
		CallerName: callerName,
		CalleeID:   calleeID,
		IsVideo:    isVideo,
		Status:     domain.CallRinging,
		CreatedAt:  c.now(),
	}
	c.calls[call.ID] = call

	push(calleeConn, protocol.IncomingCall{
		Type:         protocol.EvIncomingCall,
		CallID:       call.ID,
		RoomID:       call.RoomID,
		FromUserID:   call.CallerID,
		FromUserName: call.CallerName,
		IsVideoCall:  call.IsVideo,
	})
	push(callerConn, protocol.CallStarted{
		Type:     protocol.EvCallStarted,
		CallID:   call.ID,
		RoomID:   call.RoomID,
		ToUserID: call.CalleeID,
	})

	id := call.ID
	c.afterFunc(c.ringTimeout, func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		c.ringTimedOut(id)
	})

	log.Info().Str("module", "app.calls").Str("call", call.ID).Str("caller", string(callerID)).Str("callee", string(calleeID)).Bool("video", isVideo).Msg("ringing")
	return call, nil
}

// Respond settles a ringing call. Both parties' connections are
// re-resolved through presence at response time; the caller may have
// reconnected since the ring started, so a connection cached at
// create time would be the wrong one.
func (c *Calls) Respond(callID string, accepted bool) error {
	call, ok := c.calls[callID]
	if !ok || call.Status != domain.CallRinging {
		return domain.ErrCallNotFound
	}

	_, callerConn, _ := c.presence.Lookup(call.CallerID)
	_, calleeConn, _ := c.presence.Lookup(call.CalleeID)

	push(callerConn, protocol.CallResponse{
		Type:       protocol.EvCallResponse,
		CallID:     call.ID,
		Accepted:   accepted,
		FromUserID: call.CalleeID,
	})

	if !accepted {
		call.Status = domain.CallRejected
		delete(c.calls, callID)
		log.Info().Str("module", "app.calls").Str("call", callID).Msg("rejected")
		return nil
	}

	call.Status = domain.CallAccepted
	joinRoom := protocol.JoinCallRoom{
		Type:   protocol.EvJoinCallRoom,
		RoomID: call.RoomID,
		CallID: call.ID,
	}
	push(callerConn, joinRoom)
	push(calleeConn, joinRoom)

	c.afterFunc(c.acceptLinger, func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		c.reapAccepted(callID)
	})

	log.Info().Str("module", "app.calls").Str("call", callID).Msg("accepted")
	return nil
}

// Cancel withdraws a ring attempt. An unknown or already-settled
// callId is a no-op, not an error: the transport delivers at least
// once, so duplicate cancels are expected.
func (c *Calls) Cancel(callID string) {
	call, ok := c.calls[callID]
	if !ok || call.Status != domain.CallRinging {
		return
	}
	call.Status = domain.CallCancelled
	delete(c.calls, callID)

	if _, calleeConn, ok := c.presence.Lookup(call.CalleeID); ok {
		push(calleeConn, protocol.CallCancelled{
			Type:   protocol.EvCallCancelled,
			CallID: call.ID,
			Reason: protocol.ReasonCancelled,
		})
	}
	log.Info().Str("module", "app.calls").Str("call", callID).Msg("cancelled")
}

// DisconnectCleanup removes every ringing call uid is a party of,
// telling the counterpart the peer went away.
func (c *Calls) DisconnectCleanup(uid domain.UserID) {
	for id, call := range c.calls {
		if call.Status != domain.CallRinging {
			continue
		}
		var counterpart domain.UserID
		switch uid {
		case call.CallerID:
			counterpart = call.CalleeID
		case call.CalleeID:
			counterpart = call.CallerID
		default:
			continue
		}
		delete(c.calls, id)
		if _, conn, ok := c.presence.Lookup(counterpart); ok {
			push(conn, protocol.CallCancelled{
				Type:   protocol.EvCallCancelled,
				CallID: id,
				Reason: protocol.ReasonPeerDisconnected,
			})
		}
		log.Info().Str("module", "app.calls").Str("call", id).Str("user", string(uid)).Msg("removed on disconnect")
	}
}

// ringTimedOut fires when the ring window closes. The call may have
// been settled or removed since the timer was armed; firing against
// stale state is a silent no-op.
func (c *Calls) ringTimedOut(callID string) {
	call, ok := c.calls[callID]
	if !ok || call.Status != domain.CallRinging {
		return
	}
	call.Status = domain.CallTimedOut
	delete(c.calls, callID)

	timeout := protocol.CallTimeout{Type: protocol.EvCallTimeout, CallID: callID}
	if _, conn, ok := c.presence.Lookup(call.CallerID); ok {
		push(conn, timeout)
	}
	if _, conn, ok := c.presence.Lookup(call.CalleeID); ok {
		push(conn, timeout)
	}
	log.Info().Str("module", "app.calls").Str("call", callID).Msg("ring timed out")
}

// reapAccepted drops an accepted record once the linger window ends.
func (c *Calls) reapAccepted(callID string) {
	call, ok := c.calls[callID]
	if !ok || call.Status != domain.CallAccepted {
		return
	}
	delete(c.calls, callID)
	log.Debug().Str("module", "app.calls").Str("call", callID).Msg("accepted record reaped")
}

// Get exposes the stored record, for status queries and tests.
func (c *Calls) Get(callID string) (*domain.Call, bool) {
	call, ok := c.calls[callID]
	return call, ok
}

func (c *Calls) Count() int { return len(c.calls) }

// Reset drops all records, notifying no one. Armed timers will fire
// into empty state and no-op.
func (c *Calls) Reset() {
	c.calls = make(map[string]*domain.Call)
}
