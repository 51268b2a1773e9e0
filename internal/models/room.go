package models

import (
	"sort"
	"time"
)

// Profile holds the durable, per-identity appearance of a user inside one room.
// Profiles survive disconnects and server restarts; they are written to the
// room snapshot and never deleted when a user leaves.
type Profile struct {
	Nickname     string `json:"nickname,omitempty"`
	ProfileImage string `json:"profileImage,omitempty"`
}

// Member is a currently connected user as shown in the room roster.
type Member struct {
	ID           string `json:"id"`
	Nickname     string `json:"nickname"`
	ProfileImage string `json:"profileImage"`
	IsAdmin      bool   `json:"isAdmin"`
}

// Room is one chat room. The snapshot file (rooms.json) stores everything
// except Users, which is rebuilt empty on every process start.
type Room struct {
	ID         string    `json:"-"`
	Name       string    `json:"name"`
	Password   string    `json:"password"`
	OwnerEmail string    `json:"ownerEmail"`
	InviteCode string    `json:"inviteCode"`
	HostID     string    `json:"hostId"`
	CreatedAt  time.Time `json:"createdAt"`

	// UserProfiles accumulates monotonically: keys are every identity that
	// ever joined, connected or not.
	UserProfiles map[string]*Profile `json:"userProfiles"`

	// Users maps identity to roster entry for connected users only.
	Users map[string]*Member `json:"-"`
}

// MemberList returns the roster in a stable order for broadcasting.
func (r *Room) MemberList() []*Member {
	list := make([]*Member, 0, len(r.Users))
	for _, m := range r.Users {
		list = append(list, m)
	}
	sort.Slice(list, func(i, j int) bool { return list[i].ID < list[j].ID })
	return list
}

// RoomStatus is the per-room entry returned by GET /api/rooms-status.
type RoomStatus struct {
	RoomID    string `json:"roomId"`
	Name      string `json:"name"`
	UserCount int    `json:"userCount"`
	IsActive  bool   `json:"isActive"`
}
