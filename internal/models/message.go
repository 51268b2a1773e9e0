package models

import "time"

// Message is one chat message as broadcast to the room and appended to the
// room's log file. Nickname and ProfileImage are snapshotted at send time.
type Message struct {
	UserID       string    `json:"userId"`
	Nickname     string    `json:"nickname"`
	ProfileImage string    `json:"profileImage"`
	Message      string    `json:"message"`
	Timestamp    time.Time `json:"timestamp"`
}
