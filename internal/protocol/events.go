// Package protocol defines the named events this server pushes to
// clients. Every outbound frame is one of these structs, JSON-encoded,
// discriminated by the Type field.
package protocol

import (
	"encoding/json"

	"github.com/jobmate/signaling/internal/domain"
)

// Inbound event names the dispatcher switches on.
const (
	InRegister            = "register"
	InCallRequest         = "call-request"
	InCallResponse        = "call-response"
	InCancelCall          = "cancel-call"
	InJoinCall            = "join-call"
	InLeaveCall           = "leave-call"
	InOffer               = "offer"
	InAnswer              = "answer"
	InIceCandidate        = "ice-candidate"
	InGetConnectionStatus = "get-connection-status"
	InGetConnectedUsers   = "get-connected-users"
	InPing                = "ping"
)

// Outbound event names.
const (
	EvRegisterSuccess    = "register-success"
	EvRegisterError      = "register-error"
	EvIncomingCall       = "incoming-call"
	EvCallStarted        = "call-started"
	EvCallRequestFailed  = "call-request-failed"
	EvCallResponse       = "call-response"
	EvCallResponseFailed = "call-response-failed"
	EvCallCancelled      = "call-cancelled"
	EvCallTimeout        = "call-timeout"
	EvJoinCallRoom       = "join-call-room"
	EvUserJoined         = "user-joined"
	EvUserLeft           = "user-left"
	EvRoomParticipants   = "room-participants"
	EvOffer              = "offer"
	EvAnswer             = "answer"
	EvIceCandidate       = "ice-candidate"
	EvConnectionStatus   = "connection-status"
	EvUserOnlineStatus   = "user-online-status"
	EvConnectedUsers     = "connected-users"
	EvPong               = "pong"
)

// Failure reasons carried by call-request-failed and call-cancelled.
const (
	ReasonCalleeOffline    = "callee-offline"
	ReasonCalleeBusy       = "callee-busy"
	ReasonRateLimited      = "rate-limited"
	ReasonCancelled        = "cancelled"
	ReasonPeerDisconnected = "peer disconnected"
)

type RegisterSuccess struct {
	Type     string        `json:"type"`
	UserID   domain.UserID `json:"userId"`
	SocketID string        `json:"socketId"`
}

type RegisterError struct {
	Type  string `json:"type"`
	Error string `json:"error"`
}

type IncomingCall struct {
	Type         string        `json:"type"`
	CallID       string        `json:"callId"`
	RoomID       domain.RoomID `json:"roomId"`
	FromUserID   domain.UserID `json:"fromUserId"`
	FromUserName string        `json:"fromUserName"`
	IsVideoCall  bool          `json:"isVideoCall"`
}

type CallStarted struct {
	Type     string        `json:"type"`
	CallID   string        `json:"callId"`
	RoomID   domain.RoomID `json:"roomId"`
	ToUserID domain.UserID `json:"toUserId"`
}

type CallRequestFailed struct {
	Type   string `json:"type"`
	Reason string `json:"reason"`
}

type CallResponse struct {
	Type       string        `json:"type"`
	CallID     string        `json:"callId"`
	Accepted   bool          `json:"accepted"`
	FromUserID domain.UserID `json:"fromUserId"`
}

type CallResponseFailed struct {
	Type  string `json:"type"`
	Error string `json:"error"`
}

type CallCancelled struct {
	Type   string `json:"type"`
	CallID string `json:"callId"`
	Reason string `json:"reason"`
}

type CallTimeout struct {
	Type   string `json:"type"`
	CallID string `json:"callId"`
}

type JoinCallRoom struct {
	Type   string        `json:"type"`
	RoomID domain.RoomID `json:"roomId"`
	CallID string        `json:"callId"`
}

type UserJoined struct {
	Type     string        `json:"type"`
	RoomID   domain.RoomID `json:"roomId"`
	SocketID string        `json:"socketId"`
	UserID   domain.UserID `json:"userId"`
	UserName string        `json:"userName"`
}

type UserLeft struct {
	Type     string        `json:"type"`
	RoomID   domain.RoomID `json:"roomId"`
	SocketID string        `json:"socketId"`
	UserID   domain.UserID `json:"userId"`
}

type RoomParticipants struct {
	Type         string               `json:"type"`
	RoomID       domain.RoomID        `json:"roomId"`
	Participants []domain.Participant `json:"participants"`
}

// RelayedSignal carries an opaque offer/answer/candidate to the other
// room members. Type selects which of the three payload fields is set;
// the payload is forwarded verbatim, never parsed.
type RelayedSignal struct {
	Type       string          `json:"type"`
	RoomID     domain.RoomID   `json:"roomId"`
	From       string          `json:"from"`
	FromUserID domain.UserID   `json:"fromUserId,omitempty"`
	Offer      json.RawMessage `json:"offer,omitempty"`
	Answer     json.RawMessage `json:"answer,omitempty"`
	Candidate  json.RawMessage `json:"candidate,omitempty"`
}

type ConnectionStatus struct {
	Type     string        `json:"type"`
	UserID   domain.UserID `json:"userId"`
	IsOnline bool          `json:"isOnline"`
}

type UserOnlineStatus struct {
	Type     string        `json:"type"`
	UserID   domain.UserID `json:"userId"`
	IsOnline bool          `json:"isOnline"`
}

type ConnectedUsers struct {
	Type  string          `json:"type"`
	Users []domain.UserID `json:"users"`
}

type Pong struct {
	Type string `json:"type"`
}
