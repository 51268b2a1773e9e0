package storage

import (
	"encoding/json"
	"fmt"
	"os"

	"natalk/server/internal/models"
)

// Message logs keep the on-disk shape of an ordered JSON array, but appends
// are O(1): the new record is written in place over the closing bracket
// instead of rewriting the whole file. The hub serializes all writers for a
// room, which this layout requires.

// CreateLog writes a fresh empty log for a room.
func (s *Service) CreateLog(roomName string) error {
	if err := os.MkdirAll(s.DataDir, 0o755); err != nil {
		return fmt.Errorf("create data dir: %w", err)
	}
	if err := os.WriteFile(s.logPath(roomName), []byte("[]"), 0o644); err != nil {
		return fmt.Errorf("create log: %w", err)
	}
	return nil
}

// LogExists reports whether a room's log file is present. Room names collide
// exactly when their sanitized filenames collide.
func (s *Service) LogExists(roomName string) bool {
	_, err := os.Stat(s.logPath(roomName))
	return err == nil
}

// ReadLog returns the full ordered history of a room. A missing file reads
// as empty history.
func (s *Service) ReadLog(roomName string) ([]models.Message, error) {
	data, err := os.ReadFile(s.logPath(roomName))
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read log: %w", err)
	}
	var msgs []models.Message
	if err := json.Unmarshal(data, &msgs); err != nil {
		return nil, fmt.Errorf("parse log: %w", err)
	}
	return msgs, nil
}

// AppendLog adds one record to the end of a room's log, preserving the JSON
// array shape on disk.
func (s *Service) AppendLog(roomName string, msg models.Message) error {
	rec, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}

	f, err := os.OpenFile(s.logPath(roomName), os.O_RDWR, 0o644)
	if err != nil {
		return fmt.Errorf("open log: %w", err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return fmt.Errorf("stat log: %w", err)
	}

	var buf []byte
	var off int64
	if info.Size() <= 2 {
		// Empty or freshly truncated "[]": rewrite from the start.
		buf = append(buf, '[')
		buf = append(buf, rec...)
		buf = append(buf, ']')
		if err := f.Truncate(0); err != nil {
			return fmt.Errorf("truncate log: %w", err)
		}
	} else {
		// Overwrite the closing bracket with ",<record>]".
		buf = append(buf, ',')
		buf = append(buf, rec...)
		buf = append(buf, ']')
		off = info.Size() - 1
	}

	if _, err := f.WriteAt(buf, off); err != nil {
		return fmt.Errorf("append log: %w", err)
	}
	return nil
}

// TruncateLog clears a room's history without removing the file. Used by the
// rotation sweep; the registry entry is never touched here.
func (s *Service) TruncateLog(roomName string) error {
	if err := os.WriteFile(s.logPath(roomName), []byte("[]"), 0o644); err != nil {
		return fmt.Errorf("truncate log: %w", err)
	}
	return nil
}

// DeleteLog removes a room's log file entirely. Only room destruction does
// this.
func (s *Service) DeleteLog(roomName string) error {
	if err := os.Remove(s.logPath(roomName)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("delete log: %w", err)
	}
	return nil
}
