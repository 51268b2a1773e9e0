package storage

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/sirupsen/logrus"

	"natalk/server/internal/models"
)

// Store is the persistence boundary of the hub: the room snapshot file plus
// one message log file per room.
type Store interface {
	LoadRooms() (map[string]*models.Room, error)
	SaveRooms(rooms map[string]*models.Room) error

	CreateLog(roomName string) error
	LogExists(roomName string) bool
	ReadLog(roomName string) ([]models.Message, error)
	AppendLog(roomName string, msg models.Message) error
	TruncateLog(roomName string) error
	DeleteLog(roomName string) error
}

// Service implements Store on the local filesystem.
type Service struct {
	DataDir   string
	RoomsFile string
	Log       *logrus.Logger
}

func NewService(dataDir, roomsFile string, log *logrus.Logger) *Service {
	return &Service{DataDir: dataDir, RoomsFile: roomsFile, Log: log}
}

var filenameSanitizer = strings.NewReplacer(
	`\`, "_", "/", "_", ":", "_", "*", "_", `"`, "_", "<", "_", ">", "_", "|", "_",
)

// SanitizeFilename strips characters that are unsafe in log filenames. The
// result is the collision key for room names: two names mapping to the same
// file are considered the same room name.
func SanitizeFilename(name string) string {
	return filenameSanitizer.Replace(name)
}

func (s *Service) logPath(roomName string) string {
	return filepath.Join(s.DataDir, SanitizeFilename(roomName)+".json")
}

// LoadRooms reads the snapshot file, rebuilding every room with an empty
// roster. A missing snapshot is created empty. Rooms whose log file has gone
// missing get a fresh empty log, matching what the snapshot promises.
func (s *Service) LoadRooms() (map[string]*models.Room, error) {
	if err := os.MkdirAll(s.DataDir, 0o755); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}

	rooms := make(map[string]*models.Room)

	data, err := os.ReadFile(s.RoomsFile)
	if os.IsNotExist(err) {
		s.Log.Infof("%s not found, creating a new one", s.RoomsFile)
		if err := os.WriteFile(s.RoomsFile, []byte("{}"), 0o644); err != nil {
			return nil, fmt.Errorf("create snapshot: %w", err)
		}
		return rooms, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read snapshot: %w", err)
	}

	if err := json.Unmarshal(data, &rooms); err != nil {
		return nil, fmt.Errorf("parse snapshot: %w", err)
	}

	for id, room := range rooms {
		room.ID = id
		room.Users = make(map[string]*models.Member)
		if room.UserProfiles == nil {
			room.UserProfiles = make(map[string]*models.Profile)
		}
		if !s.LogExists(room.Name) {
			s.Log.Warnf("chat log for room %q was missing, re-creating file", room.Name)
			if err := s.CreateLog(room.Name); err != nil {
				return nil, err
			}
		}
	}

	s.Log.Infof("loaded %d rooms from %s", len(rooms), s.RoomsFile)
	return rooms, nil
}

// SaveRooms writes the snapshot. Transient rosters are excluded by the Room
// JSON tags, so only durable metadata and profiles hit disk.
func (s *Service) SaveRooms(rooms map[string]*models.Room) error {
	data, err := json.MarshalIndent(rooms, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}
	if err := os.WriteFile(s.RoomsFile, data, 0o644); err != nil {
		return fmt.Errorf("write snapshot: %w", err)
	}
	return nil
}
