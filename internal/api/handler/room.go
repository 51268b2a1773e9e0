package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"natalk/server/internal/chathub"
)

type createRoomRequest struct {
	RoomName string `json:"roomName"`
	Password string `json:"password"`
	Email    string `json:"email"`
}

// CreateRoom handles POST /create-room.
func (h *Handler) CreateRoom(c *gin.Context) {
	var req createRoomRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.RoomName == "" || req.Password == "" || req.Email == "" {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Room name, password, and email are required."})
		return
	}

	roomID, inviteCode, err := h.Hub.CreateRoom(req.RoomName, req.Password, req.Email)
	if errors.Is(err, chathub.ErrRoomNameTaken) {
		c.JSON(http.StatusConflict, gin.H{"message": "Room name already exists. Please use a different name."})
		return
	}
	if err != nil {
		h.Log.Errorf("failed to create room %q: %v", req.RoomName, err)
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Failed to create chat log file."})
		return
	}

	c.JSON(http.StatusCreated, gin.H{"roomId": roomID, "inviteCode": inviteCode})
}

// RoomsStatus handles GET /api/rooms-status.
func (h *Handler) RoomsStatus(c *gin.Context) {
	c.JSON(http.StatusOK, h.Hub.RoomsStatus())
}

// DeleteRoom handles DELETE /room/:roomId. The endpoint predates the
// socket-based destroy flow and is kept only to refuse.
func (h *Handler) DeleteRoom(c *gin.Context) {
	h.Log.Warnf("HTTP DELETE /room/%s is deprecated, use socket event 'destroy_room'", c.Param("roomId"))
	c.JSON(http.StatusForbidden, gin.H{"message": "This endpoint is deprecated for security reasons."})
}
