package chathub

import "natalk/server/internal/models"

// Client is the hub's view of one admitted connection. It abstracts the
// transport so the hub and its tests can manage connections uniformly.
type Client interface {
	// GetUserID returns the identity this connection was admitted as.
	GetUserID() string
	// GetRoomID returns the room this connection belongs to.
	GetRoomID() string
	// IsAdmin reports whether the connection holds the owner role.
	IsAdmin() bool

	// GetSendChannel returns the channel the hub pushes outbound events to.
	GetSendChannel() chan<- models.Event

	// Run starts the client's read and write pumps.
	Run()
	// Close shuts the client down; the write pump drains pending events,
	// sends a close frame and releases the connection. Safe to call more
	// than once.
	Close()
}
