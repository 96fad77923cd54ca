package app

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/jobmate/signaling/internal/domain"
	"github.com/jobmate/signaling/internal/protocol"
)

// newTestCalls wires a Calls instance whose timers never run on their
// own; armed callbacks are captured so tests fire them explicitly.
func newTestCalls() (*Calls, *Presence, *[]func()) {
	p := NewPresence()
	c := NewCalls(p, &sync.Mutex{}, 30*time.Second, 5*time.Second)
	var armed []func()
	c.afterFunc = func(_ time.Duration, f func()) *time.Timer {
		armed = append(armed, f)
		return nil
	}
	return c, p, &armed
}

func TestCalls_CreateRingsBothParties(t *testing.T) {
	c, p, _ := newTestCalls()
	caller := &fakeConn{}
	callee := &fakeConn{}
	p.Register("u1", "s1", caller)
	p.Register("u2", "s2", callee)

	call, err := c.Create("u1", "Alice", caller, "u2", "r1", true)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if call.Status != domain.CallRinging {
		t.Fatalf("Status=%s, want ringing", call.Status)
	}

	incoming := callee.eventsOfType(t, protocol.EvIncomingCall)
	if len(incoming) != 1 {
		t.Fatalf("callee got %d incoming-call events, want 1", len(incoming))
	}
	if incoming[0]["roomId"] != "r1" || incoming[0]["isVideoCall"] != true || incoming[0]["fromUserId"] != "u1" {
		t.Fatalf("incoming-call = %v", incoming[0])
	}

	started := caller.eventsOfType(t, protocol.EvCallStarted)
	if len(started) != 1 || started[0]["callId"] != call.ID {
		t.Fatalf("caller call-started events = %v, want one for %s", started, call.ID)
	}
}

func TestCalls_CreateCalleeOffline(t *testing.T) {
	c, p, _ := newTestCalls()
	caller := &fakeConn{}
	p.Register("u1", "s1", caller)

	_, err := c.Create("u1", "Alice", caller, "u2", "r1", false)
	if !errors.Is(err, domain.ErrCalleeOffline) {
		t.Fatalf("Create err=%v, want ErrCalleeOffline", err)
	}
	if got := c.Count(); got != 0 {
		t.Fatalf("Count=%d after failed create, want 0", got)
	}
}

func TestCalls_SecondCreateAgainstRingingCalleeIsBusy(t *testing.T) {
	c, p, _ := newTestCalls()
	caller := &fakeConn{}
	callee := &fakeConn{}
	p.Register("u1", "s1", caller)
	p.Register("u2", "s2", callee)

	if _, err := c.Create("u1", "Alice", caller, "u2", "r1", false); err != nil {
		t.Fatalf("first Create: %v", err)
	}
	_, err := c.Create("u1", "Alice", caller, "u2", "r1", false)
	if !errors.Is(err, domain.ErrCalleeBusy) {
		t.Fatalf("second Create err=%v, want ErrCalleeBusy", err)
	}
	if got := c.Count(); got != 1 {
		t.Fatalf("Count=%d, want exactly one call record", got)
	}
}

func TestCalls_BusyCoversCalleeAsCaller(t *testing.T) {
	c, p, _ := newTestCalls()
	a, b, x := &fakeConn{}, &fakeConn{}, &fakeConn{}
	p.Register("uA", "sA", a)
	p.Register("uB", "sB", b)
	p.Register("uX", "sX", x)

	// uA rings uB; now uX ringing uA must see busy because uA is the
	// caller of an in-flight ring.
	if _, err := c.Create("uA", "A", a, "uB", "r1", false); err != nil {
		t.Fatalf("Create: %v", err)
	}
	_, err := c.Create("uX", "X", x, "uA", "r2", false)
	if !errors.Is(err, domain.ErrCalleeBusy) {
		t.Fatalf("Create err=%v, want ErrCalleeBusy", err)
	}
}

func TestCalls_RespondAcceptUsesCurrentConnections(t *testing.T) {
	c, p, _ := newTestCalls()
	caller := &fakeConn{}
	callee := &fakeConn{}
	p.Register("u1", "s1", caller)
	p.Register("u2", "s2", callee)

	call, err := c.Create("u1", "Alice", caller, "u2", "r1", false)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	// Caller reconnects while the call rings.
	caller2 := &fakeConn{}
	p.Register("u1", "s1b", caller2)

	if err := c.Respond(call.ID, true); err != nil {
		t.Fatalf("Respond: %v", err)
	}

	if got := len(caller.eventsOfType(t, protocol.EvJoinCallRoom)); got != 0 {
		t.Fatalf("stale caller connection got %d join-call-room events, want 0", got)
	}
	joins := caller2.eventsOfType(t, protocol.EvJoinCallRoom)
	if len(joins) != 1 || joins[0]["roomId"] != "r1" || joins[0]["callId"] != call.ID {
		t.Fatalf("current caller join-call-room = %v", joins)
	}
	if got := len(callee.eventsOfType(t, protocol.EvJoinCallRoom)); got != 1 {
		t.Fatalf("callee got %d join-call-room events, want 1", got)
	}

	stored, ok := c.Get(call.ID)
	if !ok || stored.Status != domain.CallAccepted {
		t.Fatal("accepted call should linger with status accepted")
	}
}

func TestCalls_RespondRejectNotifiesCallerAndRemoves(t *testing.T) {
	c, p, _ := newTestCalls()
	caller := &fakeConn{}
	callee := &fakeConn{}
	p.Register("u1", "s1", caller)
	p.Register("u2", "s2", callee)

	call, _ := c.Create("u1", "Alice", caller, "u2", "r1", false)
	if err := c.Respond(call.ID, false); err != nil {
		t.Fatalf("Respond: %v", err)
	}

	resp := caller.eventsOfType(t, protocol.EvCallResponse)
	if len(resp) != 1 || resp[0]["accepted"] != false || resp[0]["fromUserId"] != "u2" {
		t.Fatalf("call-response = %v", resp)
	}
	if got := c.Count(); got != 0 {
		t.Fatalf("Count=%d after reject, want 0", got)
	}
}

func TestCalls_RespondUnknownCall(t *testing.T) {
	c, _, _ := newTestCalls()
	if err := c.Respond("ghost", true); !errors.Is(err, domain.ErrCallNotFound) {
		t.Fatalf("Respond err=%v, want ErrCallNotFound", err)
	}
}

func TestCalls_RespondOnLingeringAcceptedIsNotFound(t *testing.T) {
	c, p, _ := newTestCalls()
	caller := &fakeConn{}
	callee := &fakeConn{}
	p.Register("u1", "s1", caller)
	p.Register("u2", "s2", callee)

	call, _ := c.Create("u1", "Alice", caller, "u2", "r1", false)
	if err := c.Respond(call.ID, true); err != nil {
		t.Fatalf("first Respond: %v", err)
	}
	if err := c.Respond(call.ID, true); !errors.Is(err, domain.ErrCallNotFound) {
		t.Fatalf("duplicate Respond err=%v, want ErrCallNotFound", err)
	}
	// The duplicate must not have re-pushed join-call-room.
	if got := len(callee.eventsOfType(t, protocol.EvJoinCallRoom)); got != 1 {
		t.Fatalf("callee got %d join-call-room events, want 1", got)
	}
}

func TestCalls_CancelNotifiesCalleeAndIsIdempotent(t *testing.T) {
	c, p, _ := newTestCalls()
	caller := &fakeConn{}
	callee := &fakeConn{}
	p.Register("u1", "s1", caller)
	p.Register("u2", "s2", callee)

	call, _ := c.Create("u1", "Alice", caller, "u2", "r1", false)
	c.Cancel(call.ID)

	cancelled := callee.eventsOfType(t, protocol.EvCallCancelled)
	if len(cancelled) != 1 || cancelled[0]["callId"] != call.ID {
		t.Fatalf("call-cancelled = %v", cancelled)
	}
	if got := c.Count(); got != 0 {
		t.Fatalf("Count=%d after cancel, want 0", got)
	}

	// Duplicate and unknown cancels are silent no-ops.
	c.Cancel(call.ID)
	c.Cancel("ghost")
	if got := len(callee.eventsOfType(t, protocol.EvCallCancelled)); got != 1 {
		t.Fatalf("callee got %d call-cancelled events after duplicates, want 1", got)
	}
}

func TestCalls_RingTimeoutFiresExactlyOnce(t *testing.T) {
	c, p, armed := newTestCalls()
	caller := &fakeConn{}
	callee := &fakeConn{}
	p.Register("u1", "s1", caller)
	p.Register("u2", "s2", callee)

	c.Create("u1", "Alice", caller, "u2", "r1", false)
	if len(*armed) != 1 {
		t.Fatalf("%d timers armed, want 1", len(*armed))
	}

	(*armed)[0]()
	if got := len(caller.eventsOfType(t, protocol.EvCallTimeout)); got != 1 {
		t.Fatalf("caller got %d call-timeout events, want 1", got)
	}
	if got := len(callee.eventsOfType(t, protocol.EvCallTimeout)); got != 1 {
		t.Fatalf("callee got %d call-timeout events, want 1", got)
	}
	if got := c.Count(); got != 0 {
		t.Fatalf("Count=%d after timeout, want 0", got)
	}

	// The world may change between scheduling and firing; a second
	// fire against removed state must be silent.
	(*armed)[0]()
	if got := len(callee.eventsOfType(t, protocol.EvCallTimeout)); got != 1 {
		t.Fatalf("callee got %d call-timeout events after stale fire, want 1", got)
	}
}

func TestCalls_TimerAfterCancelIsNoop(t *testing.T) {
	c, p, armed := newTestCalls()
	caller := &fakeConn{}
	callee := &fakeConn{}
	p.Register("u1", "s1", caller)
	p.Register("u2", "s2", callee)

	call, _ := c.Create("u1", "Alice", caller, "u2", "r1", false)
	c.Cancel(call.ID)
	(*armed)[0]()

	if got := len(caller.eventsOfType(t, protocol.EvCallTimeout)); got != 0 {
		t.Fatalf("caller got %d call-timeout events after cancel, want 0", got)
	}
	if got := len(callee.eventsOfType(t, protocol.EvCallTimeout)); got != 0 {
		t.Fatalf("callee got %d call-timeout events after cancel, want 0", got)
	}
}

func TestCalls_AcceptLingerReapsRecord(t *testing.T) {
	c, p, armed := newTestCalls()
	caller := &fakeConn{}
	callee := &fakeConn{}
	p.Register("u1", "s1", caller)
	p.Register("u2", "s2", callee)

	call, _ := c.Create("u1", "Alice", caller, "u2", "r1", false)
	if err := c.Respond(call.ID, true); err != nil {
		t.Fatalf("Respond: %v", err)
	}
	// Timer 0 is the ring timeout, timer 1 the accept linger.
	if len(*armed) != 2 {
		t.Fatalf("%d timers armed, want 2", len(*armed))
	}

	(*armed)[0]() // stale ring timeout, must not touch the accepted call
	if _, ok := c.Get(call.ID); !ok {
		t.Fatal("accepted call reaped by stale ring timer")
	}

	(*armed)[1]()
	if got := c.Count(); got != 0 {
		t.Fatalf("Count=%d after linger reap, want 0", got)
	}
}

func TestCalls_DisconnectCleanupNotifiesCounterpart(t *testing.T) {
	c, p, _ := newTestCalls()
	caller := &fakeConn{}
	callee := &fakeConn{}
	p.Register("u1", "s1", caller)
	p.Register("u2", "s2", callee)

	call, _ := c.Create("u1", "Alice", caller, "u2", "r1", false)

	// An uninvolved identity disconnecting affects nothing.
	c.DisconnectCleanup("u3")
	if got := c.Count(); got != 1 {
		t.Fatalf("Count=%d after unrelated disconnect, want 1", got)
	}

	c.DisconnectCleanup("u1")
	cancelled := callee.eventsOfType(t, protocol.EvCallCancelled)
	if len(cancelled) != 1 {
		t.Fatalf("callee got %d call-cancelled events, want 1", len(cancelled))
	}
	if cancelled[0]["reason"] != protocol.ReasonPeerDisconnected || cancelled[0]["callId"] != call.ID {
		t.Fatalf("call-cancelled = %v", cancelled[0])
	}
	if got := c.Count(); got != 0 {
		t.Fatalf("Count=%d after party disconnect, want 0", got)
	}
}
