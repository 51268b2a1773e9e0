package chathub

// OwnerTracker maps each room to the identity currently holding its owner
// connection. At most one entry per room exists at any time. The tracker is
// confined to the hub goroutine, so it needs no locking.
type OwnerTracker struct {
	active map[string]string
}

func NewOwnerTracker() *OwnerTracker {
	return &OwnerTracker{active: make(map[string]string)}
}

// Holder returns the identity holding the owner slot for a room, if any.
func (t *OwnerTracker) Holder(roomID string) (string, bool) {
	id, ok := t.active[roomID]
	return id, ok
}

// Claim takes the owner slot. It succeeds when the slot is free or already
// held by the same identity (a reconnect).
func (t *OwnerTracker) Claim(roomID, identity string) bool {
	if held, ok := t.active[roomID]; ok && held != identity {
		return false
	}
	t.active[roomID] = identity
	return true
}

// Release frees the owner slot, but only for the identity that holds it.
func (t *OwnerTracker) Release(roomID, identity string) {
	if t.active[roomID] == identity {
		delete(t.active, roomID)
	}
}
