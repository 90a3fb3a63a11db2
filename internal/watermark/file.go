package watermark

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"
)

// FileStore keeps the watermark in a small JSON document on local disk.
type FileStore struct {
	path string
}

// NewFileStore builds a file-backed store at path.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

type fileState struct {
	WatermarkMillis int64     `json:"watermark_ms"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// Load reads the stored watermark. A missing file is not an error.
func (s *FileStore) Load(ctx context.Context) (int64, bool, error) {
	if err := ctx.Err(); err != nil {
		return 0, false, err
	}

	payload, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return 0, false, nil
		}
		return 0, false, fmt.Errorf("read watermark file: %w", err)
	}

	var state fileState
	if err := json.Unmarshal(payload, &state); err != nil {
		return 0, false, fmt.Errorf("decode watermark file %s: %w", s.path, err)
	}
	if state.WatermarkMillis <= 0 {
		return 0, false, nil
	}
	return state.WatermarkMillis, true, nil
}

// Save writes the watermark via a temp file and rename so a crash mid-write
// cannot leave a truncated document behind.
func (s *FileStore) Save(ctx context.Context, millis int64) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	payload, err := json.Marshal(fileState{
		WatermarkMillis: millis,
		UpdatedAt:       time.Now().UTC(),
	})
	if err != nil {
		return fmt.Errorf("encode watermark: %w", err)
	}

	dir := filepath.Dir(s.path)
	if dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create watermark dir: %w", err)
		}
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, payload, 0o644); err != nil {
		return fmt.Errorf("write watermark file: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("replace watermark file: %w", err)
	}
	return nil
}

var _ Store = (*FileStore)(nil)
