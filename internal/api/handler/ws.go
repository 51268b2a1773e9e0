package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"natalk/server/internal/chathub"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Rooms are gated by their own credentials, not by origin.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// ServeWebSocket handles GET /ws. Credentials arrive as query parameters;
// the authorization gate runs before the upgrade, so a rejected attempt
// comes back as a plain HTTP error with the reason.
func (h *Handler) ServeWebSocket(c *gin.Context) {
	creds := chathub.Credentials{
		SessionToken:   c.Query("sessionToken"),
		RoomIdentifier: c.Query("room"),
		Password:       c.Query("password"),
		Email:          c.Query("email"),
	}

	adm, err := h.Hub.Authorize(creds)
	if err != nil {
		c.AbortWithStatusJSON(rejectionStatus(err), gin.H{"message": err.Error()})
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		// The gate may have claimed the owner slot for this admission.
		h.Hub.Abandon(adm)
		h.Log.Warnf("websocket upgrade failed: %v", err)
		return
	}

	client := chathub.NewWebSocketClient(h.Hub, conn, adm)
	h.Hub.RegisterCh <- client
	client.Run()
}

func rejectionStatus(err error) int {
	switch {
	case errors.Is(err, chathub.ErrRoomNotFound):
		return http.StatusNotFound
	case errors.Is(err, chathub.ErrRoomFull), errors.Is(err, chathub.ErrOwnerAlreadyActive):
		return http.StatusConflict
	default:
		return http.StatusUnauthorized
	}
}
