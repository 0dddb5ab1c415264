package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

const DefaultFileName = "speech_styles.json"

// FileStore keeps the catalog in a single JSON file.
type FileStore struct {
	path string
}

func NewFileStore(path string) *FileStore {
	if path == "" {
		path = DefaultFileName
	}
	return &FileStore{path: path}
}

func (s *FileStore) Path() string { return s.path }

// Load reads the file. A missing file is an empty catalog.
func (s *FileStore) Load(_ context.Context) (map[string]string, error) {
	b, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return map[string]string{}, nil
		}
		return nil, fmt.Errorf("read styles file: %w", err)
	}
	return decodeStyles(b)
}

// Save rewrites the whole file. The new content is renamed into place so
// readers see either the old record or the new one.
func (s *FileStore) Save(_ context.Context, styles map[string]string) error {
	b, err := encodeStyles(styles)
	if err != nil {
		return err
	}
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create styles dir: %w", err)
	}
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(s.path)+".*")
	if err != nil {
		return fmt.Errorf("create styles temp file: %w", err)
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(b); err != nil {
		tmp.Close()
		return fmt.Errorf("write styles file: %w", err)
	}
	if err := tmp.Chmod(0o644); err != nil {
		tmp.Close()
		return fmt.Errorf("write styles file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("write styles file: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return fmt.Errorf("replace styles file: %w", err)
	}
	return nil
}

func decodeStyles(b []byte) (map[string]string, error) {
	styles := map[string]string{}
	if err := json.Unmarshal(b, &styles); err != nil {
		return nil, fmt.Errorf("parse styles: %w", err)
	}
	if styles == nil {
		styles = map[string]string{}
	}
	return styles, nil
}

func encodeStyles(styles map[string]string) ([]byte, error) {
	b, err := json.MarshalIndent(styles, "", "    ")
	if err != nil {
		return nil, fmt.Errorf("encode styles: %w", err)
	}
	return b, nil
}
