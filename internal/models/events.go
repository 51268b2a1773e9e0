package models

import "encoding/json"

// Socket event kinds. The set is closed: anything else read from a client is
// dropped by the hub.
const (
	// Server -> client
	EventSession          = "session"
	EventChatHistory      = "chat_history"
	EventUpdateUserList   = "update_user_list"
	EventReceiveMessage   = "receive_message"
	EventSystemMessage    = "system_message"
	EventForceDisconnect  = "force_disconnect"
	EventSetProfileResult = "set_profile_result"

	// Client -> server
	EventSendMessage = "send_message"
	EventSetProfile  = "set_profile"
	EventKickUser    = "kick_user"
	EventDestroyRoom = "destroy_room"
)

// Event is the JSON envelope for every frame on the realtime channel.
type Event struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// NewEvent wraps a payload into an envelope. Payloads are plain structs and
// strings, so a marshal failure is a programming error; it yields null data.
func NewEvent(kind string, payload any) Event {
	data, _ := json.Marshal(payload)
	return Event{Event: kind, Data: data}
}

// SessionPayload is sent once to a freshly admitted connection.
type SessionPayload struct {
	UserID       string `json:"userId"`
	SessionToken string `json:"sessionToken"`
	RoomName     string `json:"roomName"`
	InviteCode   string `json:"inviteCode"`
	Nickname     string `json:"nickname"`
	ProfileImage string `json:"profileImage"`
	IsAdmin      bool   `json:"isAdmin"`
}

// SendMessagePayload is the client request to relay a chat message.
type SendMessagePayload struct {
	Message string `json:"message"`
}

// SetProfilePayload is the client request to change its nickname.
type SetProfilePayload struct {
	Nickname string `json:"nickname"`
}

// SetProfileResult acknowledges a set_profile request to the requester only.
type SetProfileResult struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
}

// KickUserPayload is the owner-only request to remove a connected user.
type KickUserPayload struct {
	TargetUserID string `json:"targetUserId"`
}
