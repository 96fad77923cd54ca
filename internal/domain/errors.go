package domain

import "errors"

// Operational failures the signal adapter maps to protocol events.
var (
	ErrCalleeOffline = errors.New("callee offline")
	ErrCalleeBusy    = errors.New("callee busy")
	ErrCallNotFound  = errors.New("call not found")
	ErrRoomNotFound  = errors.New("room not found")
)
