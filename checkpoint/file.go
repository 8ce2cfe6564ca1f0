package checkpoint

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// FileStore keeps one snapshot file per session under a directory.
type FileStore struct {
	Dir string
}

func NewFileStore(dir string) *FileStore {
	return &FileStore{Dir: dir}
}

func (f *FileStore) path(sessionID string) string {
	// Session ids come from callers; keep the file name flat.
	name := strings.ReplaceAll(sessionID, string(os.PathSeparator), "_")
	return filepath.Join(f.Dir, name+".json")
}

func (f *FileStore) Load(ctx context.Context, sessionID string) ([]byte, error) {
	b, err := os.ReadFile(f.path(sessionID))
	if os.IsNotExist(err) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("read checkpoint: %w", err)
	}
	return b, nil
}

func (f *FileStore) Save(ctx context.Context, sessionID string, snapshot []byte) error {
	if err := os.MkdirAll(f.Dir, 0o755); err != nil {
		return fmt.Errorf("create checkpoint dir: %w", err)
	}
	if err := os.WriteFile(f.path(sessionID), snapshot, 0o644); err != nil {
		return fmt.Errorf("write checkpoint: %w", err)
	}
	return nil
}
