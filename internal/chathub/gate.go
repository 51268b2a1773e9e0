package chathub

import (
	"crypto/rand"
	"encoding/hex"
	"strings"

	"github.com/sirupsen/logrus"

	"natalk/server/internal/models"
)

// Credentials is what a connection attempt presents at handshake: a session
// token, a room identifier plus guest password, or a room identifier plus
// owner email.
type Credentials struct {
	SessionToken   string
	RoomIdentifier string
	Password       string
	Email          string
}

// Admission is the result of a successful pass through the gate: the
// connection's room, identity and role.
type Admission struct {
	RoomID   string
	Identity string
	IsAdmin  bool
}

// authorize is the connection authorization gate. It runs exactly once per
// connection attempt, inside the hub goroutine, before any room-state
// mutation for the connection. Rejections leave the registry and the owner
// tracker untouched.
func (h *Hub) authorize(creds Credentials) (Admission, error) {
	if creds.SessionToken != "" {
		return h.authorizeSession(creds.SessionToken)
	}

	roomID, room := h.findRoom(creds.RoomIdentifier)
	if room == nil {
		return Admission{}, ErrRoomNotFound
	}
	if len(room.Users) >= h.Capacity {
		return Admission{}, ErrRoomFull
	}

	if creds.Email != "" {
		if creds.Email != room.OwnerEmail {
			return Admission{}, ErrInvalidCredentials
		}
		// A fresh owner login takes the slot only when nobody holds it.
		// Reclaiming an occupied slot is reserved for session-token
		// reconnects of the same identity.
		if _, held := h.owners.Holder(roomID); held {
			return Admission{}, ErrOwnerAlreadyActive
		}
		identity := OwnerIdentity(creds.Email)
		h.owners.Claim(roomID, identity)
		room.HostID = identity
		h.saveRooms()
		h.Log.WithFields(logrus.Fields{"room": roomID, "user": shortID(identity)}).Info("host logged in")
		return Admission{RoomID: roomID, Identity: identity, IsAdmin: true}, nil
	}

	if creds.Password != room.Password {
		return Admission{}, ErrInvalidCredentials
	}
	return Admission{RoomID: roomID, Identity: GuestIdentity()}, nil
}

// authorizeSession restores an earlier admission from a session token. The
// identity must still have a profile recorded in the room.
func (h *Hub) authorizeSession(token string) (Admission, error) {
	identity, roomID, err := h.Tokens.Parse(token)
	if err != nil {
		return Admission{}, ErrInvalidSession
	}

	room, ok := h.rooms[roomID]
	if !ok {
		return Admission{}, ErrInvalidSession
	}
	if _, ok := room.UserProfiles[identity]; !ok {
		return Admission{}, ErrInvalidSession
	}

	adm := Admission{RoomID: roomID, Identity: identity}
	if room.HostID == identity {
		if holder, held := h.owners.Holder(roomID); held && holder != identity {
			return Admission{}, ErrOwnerAlreadyActive
		}
		h.owners.Claim(roomID, identity)
		adm.IsAdmin = true
	}
	h.Log.WithFields(logrus.Fields{"room": roomID, "user": shortID(identity)}).Info("session restored")
	return adm, nil
}

// findRoom resolves a room identifier by exact id, then exact name, then
// exact invite code.
func (h *Hub) findRoom(identifier string) (string, *models.Room) {
	if room, ok := h.rooms[identifier]; ok {
		return identifier, room
	}
	for id, room := range h.rooms {
		if room.Name == identifier {
			return id, room
		}
	}
	for id, room := range h.rooms {
		if room.InviteCode == identifier {
			return id, room
		}
	}
	return "", nil
}

// newInviteCode generates a short unique invite code, retrying on the rare
// collision with an existing room.
func (h *Hub) newInviteCode() string {
	for {
		buf := make([]byte, 4)
		rand.Read(buf)
		code := strings.ToUpper(hex.EncodeToString(buf))

		inUse := false
		for _, room := range h.rooms {
			if room.InviteCode == code {
				inUse = true
				break
			}
		}
		if !inUse {
			return code
		}
	}
}
