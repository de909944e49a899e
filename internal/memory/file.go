package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// FileArchive stores one JSON snapshot file per session in a directory.
type FileArchive struct {
	dir string
	mu  sync.Mutex
}

func NewFileArchive(dir string) (*FileArchive, error) {
	if strings.TrimSpace(dir) == "" {
		dir = "conversations"
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("ensure archive dir: %w", err)
	}
	return &FileArchive{dir: dir}, nil
}

func (a *FileArchive) SaveSession(_ context.Context, sessionID string, snap Snapshot) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}

	path := a.path(sessionID)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write snapshot: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("commit snapshot: %w", err)
	}
	return nil
}

func (a *FileArchive) LoadSession(_ context.Context, sessionID string) (Snapshot, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	data, err := os.ReadFile(a.path(sessionID))
	if err != nil {
		if os.IsNotExist(err) {
			return Snapshot{}, ErrSnapshotNotFound
		}
		return Snapshot{}, fmt.Errorf("read snapshot: %w", err)
	}
	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return Snapshot{}, fmt.Errorf("decode snapshot: %w", err)
	}
	return snap, nil
}

func (a *FileArchive) ListSessions(_ context.Context) ([]string, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	entries, err := os.ReadDir(a.dir)
	if err != nil {
		return nil, fmt.Errorf("list archive dir: %w", err)
	}
	var ids []string
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasSuffix(name, ".json") {
			continue
		}
		ids = append(ids, strings.TrimSuffix(name, ".json"))
	}
	return ids, nil
}

func (a *FileArchive) Close() error { return nil }

func (a *FileArchive) path(sessionID string) string {
	// Keep path separators out of the filename.
	name := strings.NewReplacer("/", "_", "\\", "_", "..", "_").Replace(sessionID)
	return filepath.Join(a.dir, name+".json")
}
