package storage_test

import (
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"natalk/server/internal/models"
	"natalk/server/internal/storage"
)

func newTestService(t *testing.T) *storage.Service {
	t.Helper()
	dir := t.TempDir()
	log := logrus.New()
	log.SetOutput(io.Discard)
	return storage.NewService(filepath.Join(dir, "data"), filepath.Join(dir, "rooms.json"), log)
}

func TestSanitizeFilename(t *testing.T) {
	assert.Equal(t, "a_b_c_d_e_f_g_h", storage.SanitizeFilename(`a\b/c:d*e"f<g>h`))
	assert.Equal(t, "family", storage.SanitizeFilename("family"))
}

func TestLoadRooms_CreatesMissingSnapshot(t *testing.T) {
	s := newTestService(t)

	rooms, err := s.LoadRooms()
	require.NoError(t, err)
	assert.Empty(t, rooms)

	data, err := os.ReadFile(s.RoomsFile)
	require.NoError(t, err)
	assert.Equal(t, "{}", string(data))
}

func TestSaveRooms_RoundTrip(t *testing.T) {
	s := newTestService(t)
	_, err := s.LoadRooms()
	require.NoError(t, err)

	room := &models.Room{
		ID:         "room-1",
		Name:       "family",
		Password:   "p1",
		OwnerEmail: "a@x.com",
		InviteCode: "AB12CD34",
		HostID:     "host-identity",
		CreatedAt:  time.Now().UTC().Truncate(time.Second),
		UserProfiles: map[string]*models.Profile{
			"guest-1": {Nickname: "timo", ProfileImage: "/profile3.png"},
		},
		Users: map[string]*models.Member{
			"guest-1": {ID: "guest-1", Nickname: "timo"},
		},
	}
	require.NoError(t, s.CreateLog(room.Name))
	require.NoError(t, s.SaveRooms(map[string]*models.Room{"room-1": room}))

	loaded, err := s.LoadRooms()
	require.NoError(t, err)
	require.Contains(t, loaded, "room-1")

	got := loaded["room-1"]
	assert.Equal(t, "room-1", got.ID)
	assert.Equal(t, "family", got.Name)
	assert.Equal(t, "p1", got.Password)
	assert.Equal(t, "a@x.com", got.OwnerEmail)
	assert.Equal(t, "AB12CD34", got.InviteCode)
	assert.Equal(t, "host-identity", got.HostID)
	assert.Equal(t, room.CreatedAt, got.CreatedAt)
	require.Contains(t, got.UserProfiles, "guest-1")
	assert.Equal(t, "timo", got.UserProfiles["guest-1"].Nickname)
	assert.Empty(t, got.Users, "membership is transient and rebuilt empty")
}

func TestLoadRooms_RecreatesMissingLog(t *testing.T) {
	s := newTestService(t)
	_, err := s.LoadRooms()
	require.NoError(t, err)

	room := &models.Room{ID: "room-1", Name: "family", CreatedAt: time.Now(),
		UserProfiles: map[string]*models.Profile{}, Users: map[string]*models.Member{}}
	require.NoError(t, s.SaveRooms(map[string]*models.Room{"room-1": room}))

	// Log never created (or lost); load restores an empty one.
	loaded, err := s.LoadRooms()
	require.NoError(t, err)
	require.Contains(t, loaded, "room-1")
	assert.True(t, s.LogExists("family"))

	msgs, err := s.ReadLog("family")
	require.NoError(t, err)
	assert.Empty(t, msgs)
}

func TestLoadRooms_RejectsCorruptSnapshot(t *testing.T) {
	s := newTestService(t)
	require.NoError(t, os.MkdirAll(filepath.Dir(s.RoomsFile), 0o755))
	require.NoError(t, os.WriteFile(s.RoomsFile, []byte("{broken"), 0o644))

	_, err := s.LoadRooms()
	assert.Error(t, err)
}
