package store

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"sync"

	"github.com/disgoorg/json"
	"github.com/lmittmann/tint"
)

const DefaultPath = "data/last_patchnotes_pr.json"

// Cursor is the on-disk record of the last announced merge.
type Cursor struct {
	LastAnnouncedID string `json:"last_announced_id"`
}

// legacyCursor is the shape written by the previous bot, which stored the numeric pull request id.
type legacyCursor struct {
	LastPrID json.RawMessage `json:"lastPrId"`
}

// File keeps the cursor in a JSON file. A missing or unreadable-as-JSON file counts as "nothing
// announced yet"; only I/O failures are errors.
type File struct {
	path string
	mu   sync.Mutex
}

func NewFile(path string) *File {
	if path == "" {
		path = DefaultPath
	}
	return &File{path: path}
}

func (f *File) Path() string {
	return f.path
}

func (f *File) LastAnnounced(_ context.Context) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	data, err := os.ReadFile(f.path)
	if errors.Is(err, os.ErrNotExist) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("read %s: %w", f.path, err)
	}
	cursor, err := decode(data)
	if err != nil {
		slog.Warn("store: ignoring malformed cursor file", slog.String("path", f.path), tint.Err(err))
		return "", nil
	}
	return cursor.LastAnnouncedID, nil
}

func (f *File) SetLastAnnounced(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	data, err := json.Marshal(Cursor{LastAnnouncedID: id})
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(f.path), 0o755); err != nil {
		return fmt.Errorf("create directory for %s: %w", f.path, err)
	}
	tmp := f.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", tmp, err)
	}
	if err := os.Rename(tmp, f.path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("replace %s: %w", f.path, err)
	}
	return nil
}

func decode(data []byte) (Cursor, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return Cursor{}, nil
	}
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return Cursor{}, err
	}
	if _, ok := raw["last_announced_id"]; ok {
		var cursor Cursor
		if err := json.Unmarshal(data, &cursor); err != nil {
			return Cursor{}, err
		}
		return cursor, nil
	}
	if _, ok := raw["lastPrId"]; ok {
		var legacy legacyCursor
		if err := json.Unmarshal(data, &legacy); err != nil {
			return Cursor{}, err
		}
		return decodeLegacy(legacy.LastPrID)
	}
	return Cursor{}, errors.New("no cursor field")
}

func decodeLegacy(raw json.RawMessage) (Cursor, error) {
	var id *int64
	if err := json.Unmarshal(raw, &id); err == nil {
		if id == nil {
			return Cursor{}, nil
		}
		return Cursor{LastAnnouncedID: strconv.FormatInt(*id, 10)}, nil
	}
	var s *string
	if err := json.Unmarshal(raw, &s); err != nil {
		return Cursor{}, fmt.Errorf("legacy cursor: %w", err)
	}
	if s == nil {
		return Cursor{}, nil
	}
	return Cursor{LastAnnouncedID: *s}, nil
}
