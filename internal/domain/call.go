package domain

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// CallStatus is the lifecycle state of a call.
// Keep values stable because they travel over the wire.
type CallStatus string

const (
	CallRinging   CallStatus = "ringing"
	CallAccepted  CallStatus = "accepted"
	CallRejected  CallStatus = "rejected"
	CallCancelled CallStatus = "cancelled"
	CallTimedOut  CallStatus = "timed_out"
)

// Terminal reports whether the status ends the ring lifecycle.
// Everything but ringing is terminal.
func (s CallStatus) Terminal() bool { return s != CallRinging }

// Call is one ring attempt between exactly two identities.
// CallID is the only authoritative handle; room/peer fields a client
// resends later are never trusted over this record.
type Call struct {
	ID         string
	RoomID     RoomID
	CallerID   UserID
	CallerName string
	CalleeID   UserID
	IsVideo    bool
	Status     CallStatus
	CreatedAt  time.Time
}

// NewCallID builds a time-ordered id with a uniqueness suffix.
func NewCallID(now time.Time) string {
	return fmt.Sprintf("call-%d-%s", now.UnixMilli(), uuid.NewString()[:8])
}
