package chathub

import "errors"

// Admission and in-room failures. Gate errors reject the connection attempt
// outright; the rest are reported to the requesting connection only.
var (
	ErrRoomNotFound       = errors.New("the room does not exist")
	ErrRoomFull           = errors.New("the room is full (max 10 people)")
	ErrInvalidCredentials = errors.New("incorrect credentials")
	ErrOwnerAlreadyActive = errors.New("the room owner is already logged in from another device")
	ErrInvalidSession     = errors.New("invalid or expired session")

	ErrRoomNameTaken = errors.New("room name already exists")
)
