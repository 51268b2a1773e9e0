package handler_test

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"natalk/server/internal/api/handler"
	"natalk/server/internal/chathub"
	"natalk/server/internal/models"
	"natalk/server/internal/storage"
)

func newTestServer(t *testing.T) (*httptest.Server, *chathub.Hub, *storage.Service) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	dir := t.TempDir()
	log := logrus.New()
	log.SetOutput(io.Discard)

	store := storage.NewService(filepath.Join(dir, "data"), filepath.Join(dir, "rooms.json"), log)
	rooms, err := store.LoadRooms()
	require.NoError(t, err)

	hub := chathub.NewHub(rooms, store, chathub.NewTokenIssuer("test-secret"), log)
	hub.DestroyGrace = 50 * time.Millisecond
	go hub.Run()
	t.Cleanup(hub.Stop)

	h := handler.NewHandler(hub, log)
	r := gin.New()
	r.POST("/create-room", h.CreateRoom)
	r.GET("/api/rooms-status", h.RoomsStatus)
	r.DELETE("/room/:roomId", h.DeleteRoom)
	r.GET("/ws", h.ServeWebSocket)

	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return srv, hub, store
}

func createRoom(t *testing.T, srv *httptest.Server, name, password, email string) (roomID, inviteCode string) {
	t.Helper()
	body, _ := json.Marshal(gin.H{"roomName": name, "password": password, "email": email})
	resp, err := http.Post(srv.URL+"/create-room", "application/json", bytes.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var out struct {
		RoomID     string `json:"roomId"`
		InviteCode string `json:"inviteCode"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	require.NotEmpty(t, out.RoomID)
	require.NotEmpty(t, out.InviteCode)
	return out.RoomID, out.InviteCode
}

func TestCreateRoom(t *testing.T) {
	srv, _, store := newTestServer(t)

	_, _ = createRoom(t, srv, "family", "p1", "a@x.com")
	assert.True(t, store.LogExists("family"), "an empty log is written at creation")
}

func TestCreateRoom_MissingFields(t *testing.T) {
	srv, _, _ := newTestServer(t)

	body, _ := json.Marshal(gin.H{"roomName": "family"})
	resp, err := http.Post(srv.URL+"/create-room", "application/json", bytes.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestCreateRoom_NameCollision(t *testing.T) {
	srv, _, _ := newTestServer(t)

	createRoom(t, srv, "family", "p1", "a@x.com")

	body, _ := json.Marshal(gin.H{"roomName": "family", "password": "p2", "email": "b@x.com"})
	resp, err := http.Post(srv.URL+"/create-room", "application/json", bytes.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
}

func TestRoomsStatus(t *testing.T) {
	srv, _, _ := newTestServer(t)

	resp, err := http.Get(srv.URL + "/api/rooms-status")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var statuses []models.RoomStatus
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&statuses))
	assert.Empty(t, statuses)

	roomID, _ := createRoom(t, srv, "family", "p1", "a@x.com")

	resp, err = http.Get(srv.URL + "/api/rooms-status")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&statuses))
	require.Len(t, statuses, 1)
	assert.Equal(t, roomID, statuses[0].RoomID)
	assert.Equal(t, 0, statuses[0].UserCount)
	assert.False(t, statuses[0].IsActive)
}

func TestDeleteRoom_AlwaysForbidden(t *testing.T) {
	srv, _, _ := newTestServer(t)
	roomID, _ := createRoom(t, srv, "family", "p1", "a@x.com")

	req, err := http.NewRequest(http.MethodDelete, srv.URL+"/room/"+roomID, nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}

func TestServeWebSocket_RejectionStatuses(t *testing.T) {
	srv, _, _ := newTestServer(t)
	roomID, _ := createRoom(t, srv, "family", "p1", "a@x.com")

	tests := []struct {
		name  string
		query string
		want  int
	}{
		{"unknown room", "room=nope&password=p1", http.StatusNotFound},
		{"wrong password", "room=" + roomID + "&password=bad", http.StatusUnauthorized},
		{"wrong email", "room=" + roomID + "&email=wrong@x.com", http.StatusUnauthorized},
		{"garbage session", "sessionToken=garbage", http.StatusUnauthorized},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, err := http.Get(srv.URL + "/ws?" + tt.query)
			require.NoError(t, err)
			defer resp.Body.Close()
			assert.Equal(t, tt.want, resp.StatusCode)
		})
	}
}
