package domain

// RoomID is the caller-supplied key of an ephemeral call room.
type RoomID string

// Participant is the public view of a room member.
type Participant struct {
	SocketID string `json:"socketId"`
	UserID   UserID `json:"userId"`
	UserName string `json:"userName"`
}
