package chathub

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"natalk/server/internal/models"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4096
)

// WebSocketClient implements Client over a gorilla/websocket connection.
type WebSocketClient struct {
	Admission Admission
	Conn      *websocket.Conn
	Hub       *Hub
	Send      chan models.Event

	closeOnce sync.Once
}

func NewWebSocketClient(hub *Hub, conn *websocket.Conn, adm Admission) *WebSocketClient {
	return &WebSocketClient{
		Admission: adm,
		Conn:      conn,
		Hub:       hub,
		Send:      make(chan models.Event, 256),
	}
}

func (c *WebSocketClient) GetUserID() string                   { return c.Admission.Identity }
func (c *WebSocketClient) GetRoomID() string                   { return c.Admission.RoomID }
func (c *WebSocketClient) IsAdmin() bool                       { return c.Admission.IsAdmin }
func (c *WebSocketClient) GetSendChannel() chan<- models.Event { return c.Send }

// Run starts the pumps.
func (c *WebSocketClient) Run() {
	go c.writePump()
	go c.readPump()
}

// Close shuts the Send channel, which makes the write pump flush whatever is
// queued, send a close frame and drop the connection. The read pump then
// fails and unregisters the client from the hub.
func (c *WebSocketClient) Close() {
	c.closeOnce.Do(func() { close(c.Send) })
}

func (c *WebSocketClient) readPump() {
	defer func() {
		c.Hub.UnregisterCh <- c
		c.Conn.Close()
	}()

	c.Conn.SetReadLimit(maxMessageSize)
	c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	c.Conn.SetPongHandler(func(string) error {
		c.Conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, message, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.Hub.Log.WithField("user", c.Admission.Identity).Debugf("read error: %v", err)
			}
			break
		}

		var event models.Event
		if err := json.Unmarshal(message, &event); err != nil {
			c.Hub.Log.WithField("user", c.Admission.Identity).Warnf("dropping malformed frame: %v", err)
			continue
		}

		c.Hub.InboundCh <- Inbound{Client: c, Event: event}
	}
}

func (c *WebSocketClient) writePump() {
	ticker := time.NewTicker(pingPeriod)

	defer func() {
		ticker.Stop()
		c.Conn.Close()
	}()

	for {
		select {
		case event, ok := <-c.Send:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// Hub closed the channel.
				c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			data, err := json.Marshal(event)
			if err != nil {
				continue
			}

			if err := c.Conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}

			// Flush anything already queued while we hold the writer.
			n := len(c.Send)
			for i := 0; i < n; i++ {
				next, ok := <-c.Send
				if !ok {
					c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
					return
				}
				extra, _ := json.Marshal(next)
				if err := c.Conn.WriteMessage(websocket.TextMessage, extra); err != nil {
					return
				}
			}

		case <-ticker.C:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
