package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"

	"momentum-signal-go/internal/models"
)

const alertsFileName = "alerts.json"

// FileStore persists the alert list as a single JSON document on disk.
// The directory comes from STORAGE_PATH (or STORAGE_DIR); an empty dir means
// the process working directory, matching local development runs without a
// mounted volume.
type FileStore struct {
	mu   sync.Mutex
	path string
}

// NewFileStore resolves the alerts.json location, creating the storage
// directory when one is configured.
func NewFileStore(dir string) (*FileStore, error) {
	if dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create storage dir %s: %w", dir, err)
		}
	}
	return &FileStore{path: filepath.Join(dir, alertsFileName)}, nil
}

// Path returns the resolved location of alerts.json.
func (s *FileStore) Path() string {
	return s.path
}

// Load reads the alert list. A missing or unreadable file yields an empty
// list so a fresh volume starts clean instead of failing startup.
func (s *FileStore) Load() []models.Alert {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			log.Printf("store: alerts file not found at %s, starting empty", s.path)
		} else {
			log.Printf("store: failed to read %s: %v", s.path, err)
		}
		return []models.Alert{}
	}

	var alerts []models.Alert
	if err := json.Unmarshal(data, &alerts); err != nil {
		log.Printf("store: corrupt alerts file %s: %v", s.path, err)
		return []models.Alert{}
	}

	log.Printf("store: loaded %d alerts from %s", len(alerts), s.path)
	return alerts
}

// Save writes the whole alert list atomically (temp file + rename) so a crash
// mid-write never leaves a truncated document behind.
func (s *FileStore) Save(alerts []models.Alert) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := json.MarshalIndent(alerts, "", "    ")
	if err != nil {
		return err
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, s.path)
}
