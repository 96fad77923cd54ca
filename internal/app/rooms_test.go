package app

import (
	"errors"
	"testing"

	"github.com/jobmate/signaling/internal/domain"
	"github.com/jobmate/signaling/internal/protocol"
)

func TestRooms_JoinNotifiesAndSnapshotsExcludeSelf(t *testing.T) {
	r := NewRooms()
	c1 := &fakeConn{}
	c2 := &fakeConn{}

	r.Join("r1", "s1", c1, "u1", "Alice")

	parts := c1.eventsOfType(t, protocol.EvRoomParticipants)
	if len(parts) != 1 {
		t.Fatalf("joiner got %d room-participants events, want 1", len(parts))
	}
	if got := parts[0]["participants"].([]any); len(got) != 0 {
		t.Fatalf("first joiner sees %d participants, want 0", len(got))
	}

	r.Join("r1", "s2", c2, "u2", "Bob")

	joined := c1.eventsOfType(t, protocol.EvUserJoined)
	if len(joined) != 1 {
		t.Fatalf("existing member got %d user-joined events, want 1", len(joined))
	}
	if joined[0]["userId"] != "u2" || joined[0]["socketId"] != "s2" {
		t.Fatalf("user-joined = %v, want u2/s2", joined[0])
	}

	parts = c2.eventsOfType(t, protocol.EvRoomParticipants)
	if len(parts) != 1 {
		t.Fatalf("second joiner got %d room-participants events, want 1", len(parts))
	}
	list := parts[0]["participants"].([]any)
	if len(list) != 1 {
		t.Fatalf("second joiner sees %d participants, want 1", len(list))
	}
	first := list[0].(map[string]any)
	if first["userId"] != "u1" || first["userName"] != "Alice" {
		t.Fatalf("participant = %v, want u1/Alice", first)
	}
}

func TestRooms_LeaveNotifiesAndDeletesEmptyRoom(t *testing.T) {
	r := NewRooms()
	c1 := &fakeConn{}
	c2 := &fakeConn{}
	r.Join("r1", "s1", c1, "u1", "Alice")
	r.Join("r1", "s2", c2, "u2", "Bob")

	r.Leave("r1", "s1")

	if !r.Exists("r1") {
		t.Fatal("room should survive while a member remains")
	}
	if got := r.MemberCount("r1"); got != 1 {
		t.Fatalf("MemberCount=%d, want 1", got)
	}
	left := c2.eventsOfType(t, protocol.EvUserLeft)
	if len(left) != 1 || left[0]["socketId"] != "s1" {
		t.Fatalf("remaining member user-left events = %v, want one for s1", left)
	}

	r.Leave("r1", "s2")
	if r.Exists("r1") {
		t.Fatal("room should be deleted at zero members")
	}
}

func TestRooms_LeaveUnknownRoomOrMemberIsNoop(t *testing.T) {
	r := NewRooms()
	r.Leave("nope", "s1")

	c1 := &fakeConn{}
	r.Join("r1", "s1", c1, "u1", "Alice")
	r.Leave("r1", "stranger")
	if got := r.MemberCount("r1"); got != 1 {
		t.Fatalf("MemberCount=%d after stranger leave, want 1", got)
	}
}

func TestRooms_LeaveAll(t *testing.T) {
	r := NewRooms()
	c1 := &fakeConn{}
	c2 := &fakeConn{}
	r.Join("r1", "s1", c1, "u1", "Alice")
	r.Join("r2", "s1", c1, "u1", "Alice")
	r.Join("r1", "s2", c2, "u2", "Bob")

	r.LeaveAll("s1")

	if r.Exists("r2") {
		t.Fatal("r2 had only s1, should be deleted")
	}
	if got := r.MemberCount("r1"); got != 1 {
		t.Fatalf("r1 MemberCount=%d, want 1", got)
	}
	if got := len(c2.eventsOfType(t, protocol.EvUserLeft)); got != 1 {
		t.Fatalf("c2 got %d user-left events, want 1", got)
	}
}

func TestRooms_BroadcastSkipsSenderAndUnknownRoomErrors(t *testing.T) {
	r := NewRooms()
	c1 := &fakeConn{}
	c2 := &fakeConn{}
	r.Join("r1", "s1", c1, "u1", "Alice")
	r.Join("r1", "s2", c2, "u2", "Bob")
	c1.frames = nil
	c2.frames = nil

	if err := r.Broadcast("r1", "s1", protocol.Pong{Type: protocol.EvPong}); err != nil {
		t.Fatalf("Broadcast: %v", err)
	}
	if len(c1.frames) != 0 {
		t.Fatalf("sender received %d frames, want 0", len(c1.frames))
	}
	if len(c2.frames) != 1 {
		t.Fatalf("peer received %d frames, want 1", len(c2.frames))
	}

	if err := r.Broadcast("ghost", "s1", protocol.Pong{Type: protocol.EvPong}); !errors.Is(err, domain.ErrRoomNotFound) {
		t.Fatalf("Broadcast(ghost) err=%v, want ErrRoomNotFound", err)
	}
}
